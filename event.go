package plume

import (
	"fmt"
	"sort"

	"github.com/akmonengine/plume/actor"
	"github.com/akmonengine/plume/collide"
	"github.com/akmonengine/plume/constraint"
)

const (
	TRIGGER_ENTER EventType = iota
	COLLISION_ENTER
	TRIGGER_EXIT
	COLLISION_EXIT
	ON_SLEEP
	ON_WAKE
	ON_WARNING
)

// pairKey identifies a body pair by handle slots, so the event diffing
// stays deterministic across runs.
type pairKey struct {
	indexA int
	indexB int
}

type pairState struct {
	bodyA *actor.RigidBody
	bodyB *actor.RigidBody
	// manifold captured at the first substep the pair was seen
	manifold collide.Manifold
}

func makePairKey(bodyA, bodyB *actor.RigidBody) pairKey {
	if bodyB.Index < bodyA.Index {
		bodyA, bodyB = bodyB, bodyA
	}
	return pairKey{indexA: bodyA.Index, indexB: bodyB.Index}
}

type EventType uint8

// Event interface - all events implement this
type Event interface {
	Type() EventType
}

// Trigger events
type TriggerEnterEvent struct {
	BodyA *actor.RigidBody
	BodyB *actor.RigidBody
}

func (e TriggerEnterEvent) Type() EventType { return TRIGGER_ENTER }

type TriggerExitEvent struct {
	BodyA *actor.RigidBody
	BodyB *actor.RigidBody
}

func (e TriggerExitEvent) Type() EventType { return TRIGGER_EXIT }

// Collision events; Enter carries the first manifold of the pair
type CollisionEnterEvent struct {
	BodyA    *actor.RigidBody
	BodyB    *actor.RigidBody
	Manifold collide.Manifold
}

func (e CollisionEnterEvent) Type() EventType { return COLLISION_ENTER }

type CollisionExitEvent struct {
	BodyA *actor.RigidBody
	BodyB *actor.RigidBody
}

func (e CollisionExitEvent) Type() EventType { return COLLISION_EXIT }

// Sleep/Wake events
type SleepEvent struct {
	Body *actor.RigidBody
}

func (e SleepEvent) Type() EventType { return ON_SLEEP }

type WakeEvent struct {
	Body *actor.RigidBody
}

func (e WakeEvent) Type() EventType { return ON_WAKE }

// WarningEvent reports a runtime anomaly the engine degraded around
// instead of aborting the frame: a skipped degenerate pair, a clamped
// correction, a capped velocity, a dangling joint.
type WarningEvent struct {
	Message string
}

func (e WarningEvent) Type() EventType { return ON_WARNING }

// EventListener - callback for events
type EventListener func(event Event)

// Events manager
type Events struct {
	// Listeners by event type
	listeners map[EventType][]EventListener

	// Event buffer to send at flush
	buffer []Event

	// Collision tracking for Enter/Exit detection
	previousActivePairs map[pairKey]pairState
	currentActivePairs  map[pairKey]pairState

	sleepStates map[*actor.RigidBody]bool
}

func NewEvents() Events {
	return Events{
		listeners:           make(map[EventType][]EventListener),
		buffer:              make([]Event, 0, 256),
		previousActivePairs: make(map[pairKey]pairState),
		currentActivePairs:  make(map[pairKey]pairState),
		sleepStates:         make(map[*actor.RigidBody]bool),
	}
}

// Subscribe adds a listener for an event type
func (e *Events) Subscribe(eventType EventType, listener EventListener) {
	e.listeners[eventType] = append(e.listeners[eventType], listener)
}

// Warnf buffers a warning for the next flush. Called from the
// sequential parts of Step only.
func (e *Events) Warnf(format string, args ...any) {
	e.buffer = append(e.buffer, WarningEvent{Message: fmt.Sprintf(format, args...)})
}

// recordCollisions is called during substeps to record the active
// pairs, and filters trigger pairs out of the solver input.
func (e *Events) recordCollisions(contacts []*constraint.ContactConstraint) []*constraint.ContactConstraint {
	n := 0
	for _, c := range contacts {
		pair := makePairKey(c.BodyA, c.BodyB)
		if _, seen := e.currentActivePairs[pair]; !seen {
			e.currentActivePairs[pair] = pairState{
				bodyA:    c.BodyA,
				bodyB:    c.BodyB,
				manifold: snapshotManifold(c),
			}
		}

		if !c.BodyA.IsTrigger && !c.BodyB.IsTrigger {
			contacts[n] = c
			n++
		}
	}

	return contacts[:n]
}

// snapshotManifold rebuilds the world-space manifold from the contact
// anchors, for the enter event.
func snapshotManifold(c *constraint.ContactConstraint) collide.Manifold {
	m := collide.Manifold{
		Normal: c.BodyA.Transform.Rotation.Rotate(c.LocalNormal),
		Points: make([]collide.ManifoldPoint, 0, len(c.Points)),
	}
	for _, pt := range c.Points {
		pa := c.BodyA.Transform.Apply(pt.LocalA)
		pb := c.BodyB.Transform.Apply(pt.LocalB)
		m.Points = append(m.Points, collide.ManifoldPoint{
			Position:    pa.Add(pb).Mul(0.5),
			Penetration: pa.Sub(pb).Dot(m.Normal),
			Feature:     pt.Feature,
		})
	}
	return m
}

// processCollisionEvents compares current and previous pairs to detect
// Enter and Exit; called once per Step, after all substeps. Pairs are
// walked in handle order so the event stream is reproducible run to
// run, not just the simulation state.
func (e *Events) processCollisionEvents() {
	for _, pair := range sortedNewPairs(e.currentActivePairs, e.previousActivePairs) {
		state := e.currentActivePairs[pair]
		// Skip if both bodies are sleeping, to avoid spamming events
		if state.bodyA.IsSleeping && state.bodyB.IsSleeping {
			continue
		}

		if state.bodyA.IsTrigger || state.bodyB.IsTrigger {
			e.buffer = append(e.buffer, TriggerEnterEvent{
				BodyA: state.bodyA,
				BodyB: state.bodyB,
			})
		} else {
			e.buffer = append(e.buffer, CollisionEnterEvent{
				BodyA:    state.bodyA,
				BodyB:    state.bodyB,
				Manifold: state.manifold,
			})
		}
	}

	for _, pair := range sortedNewPairs(e.previousActivePairs, e.currentActivePairs) {
		state := e.previousActivePairs[pair]
		// A pair that fell asleep together leaves the broad phase while
		// still touching; carry it until a wake lets the separation be
		// observed, otherwise Exit fires on bodies still in contact
		if state.bodyA.IsSleeping && state.bodyB.IsSleeping {
			e.currentActivePairs[pair] = state
			continue
		}

		if state.bodyA.IsTrigger || state.bodyB.IsTrigger {
			e.buffer = append(e.buffer, TriggerExitEvent{
				BodyA: state.bodyA,
				BodyB: state.bodyB,
			})
		} else {
			e.buffer = append(e.buffer, CollisionExitEvent{
				BodyA: state.bodyA,
				BodyB: state.bodyB,
			})
		}
	}

	// Swap for next frame and clear current
	e.previousActivePairs, e.currentActivePairs = e.currentActivePairs, e.previousActivePairs
	clear(e.currentActivePairs)
}

// sortedNewPairs returns the keys of m that are absent from exclude,
// ordered by handle slots.
func sortedNewPairs(m, exclude map[pairKey]pairState) []pairKey {
	keys := make([]pairKey, 0, len(m))
	for pair := range m {
		if _, ok := exclude[pair]; !ok {
			keys = append(keys, pair)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].indexA != keys[j].indexA {
			return keys[i].indexA < keys[j].indexA
		}
		return keys[i].indexB < keys[j].indexB
	})
	return keys
}

func (e *Events) processSleepEvents(bodies []*actor.RigidBody) {
	for _, body := range bodies {
		trackedState, exists := e.sleepStates[body]
		if !exists {
			e.sleepStates[body] = body.IsSleeping
			continue
		}

		if !trackedState && body.IsSleeping {
			e.buffer = append(e.buffer, SleepEvent{Body: body})
			e.sleepStates[body] = true
		} else if trackedState && !body.IsSleeping {
			e.buffer = append(e.buffer, WakeEvent{Body: body})
			e.sleepStates[body] = false
		}
	}
}

func (e *Events) forgetBody(body *actor.RigidBody) {
	delete(e.sleepStates, body)
	for pair, state := range e.previousActivePairs {
		if state.bodyA == body || state.bodyB == body {
			delete(e.previousActivePairs, pair)
		}
	}
	for pair, state := range e.currentActivePairs {
		if state.bodyA == body || state.bodyB == body {
			delete(e.currentActivePairs, pair)
		}
	}
}

// flush sends all buffered events and clears the buffer
func (e *Events) flush() {
	e.processCollisionEvents()

	for _, event := range e.buffer {
		if listeners, ok := e.listeners[event.Type()]; ok {
			for _, listener := range listeners {
				listener(event)
			}
		}
	}
	e.buffer = e.buffer[:0]
}
