// Package plume is a 2D rigid-body physics engine built on extended
// position-based dynamics: constraints correct predicted positions
// directly, and velocities are derived from the resulting motion.
package plume

import (
	"errors"

	"github.com/akmonengine/plume/actor"
	"github.com/akmonengine/plume/collide"
	"github.com/akmonengine/plume/constraint"
	"github.com/go-gl/mathgl/mgl64"
)

const DEFAULT_WORKERS = 1

// BodyID is a stable handle into the world's body store. Slots are
// reused after RemoveBody, so a handle kept past the removal of its
// body may resolve to a newer occupant; discard handles on removal.
type BodyID int

// JointID is a stable handle into the world's joint store.
type JointID int

var (
	ErrNilBody      = errors.New("nil rigid body")
	ErrBodyInWorld  = errors.New("body already belongs to a world")
	ErrUnknownBody  = errors.New("unknown body handle")
	ErrNilJoint     = errors.New("nil joint")
	ErrUnknownJoint = errors.New("unknown joint handle")
)

type warmKey struct {
	pair    pairKey
	feature collide.Feature
}

// World owns the bodies and joints and drives the simulation. Handles
// index slot arrays; removal frees the slot for reuse and invalidates
// outstanding references.
type World struct {
	Config Config
	Events Events

	bodies     []*actor.RigidBody
	freeBodies []int
	joints     []constraint.Joint
	freeJoints []int

	// warmCache carries contact multipliers across substeps, keyed by
	// pair and clip feature
	warmCache map[warmKey]float64
}

func NewWorld(config Config) (*World, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &World{
		Config:    config,
		Events:    NewEvents(),
		warmCache: make(map[warmKey]float64),
	}, nil
}

// AddBody adds a rigid body to the world and returns its handle. A
// body with a fully blank material adopts the configured default
// response.
func (w *World) AddBody(body *actor.RigidBody) (BodyID, error) {
	if body == nil {
		return -1, ErrNilBody
	}
	if body.Index != -1 {
		return -1, ErrBodyInWorld
	}

	if blankMaterial(body.Material) {
		def := w.Config.DefaultMaterial
		body.Material.Restitution = def.Restitution
		body.Material.StaticFriction = def.StaticFriction
		body.Material.DynamicFriction = def.DynamicFriction
		body.Material.LinearDamping = def.LinearDamping
		body.Material.AngularDamping = def.AngularDamping
	}

	var slot int
	if n := len(w.freeBodies); n > 0 {
		slot = w.freeBodies[n-1]
		w.freeBodies = w.freeBodies[:n-1]
		w.bodies[slot] = body
	} else {
		slot = len(w.bodies)
		w.bodies = append(w.bodies, body)
	}
	body.Index = slot
	body.IslandID = -1

	return BodyID(slot), nil
}

func blankMaterial(m actor.Material) bool {
	return m.Restitution == 0 && m.StaticFriction == 0 && m.DynamicFriction == 0 &&
		m.LinearDamping == 0 && m.AngularDamping == 0
}

// Body resolves a handle, nil if the handle was removed or never valid.
func (w *World) Body(id BodyID) *actor.RigidBody {
	if id < 0 || int(id) >= len(w.bodies) {
		return nil
	}
	return w.bodies[id]
}

// RemoveBody frees the handle. Bodies in contact with the removed one
// are woken so nothing stays asleep on support that no longer exists;
// joints referencing it deactivate with a warning at the next Step.
func (w *World) RemoveBody(id BodyID) error {
	body := w.Body(id)
	if body == nil {
		return ErrUnknownBody
	}

	for _, state := range w.Events.previousActivePairs {
		if state.bodyA == body {
			w.wakeIsland(state.bodyB)
		} else if state.bodyB == body {
			w.wakeIsland(state.bodyA)
		}
	}
	w.Events.forgetBody(body)

	body.Index = -1
	w.bodies[id] = nil
	w.freeBodies = append(w.freeBodies, int(id))
	return nil
}

// CreateAnchor adds a shapeless static body, usable as the world-side
// attachment of a joint.
func (w *World) CreateAnchor(position mgl64.Vec2) BodyID {
	id, _ := w.AddBody(actor.NewAnchor(position))
	return id
}

// AddJoint adds a joint whose bodies must already live in this world.
func (w *World) AddJoint(joint constraint.Joint) (JointID, error) {
	if joint == nil {
		return -1, ErrNilJoint
	}
	bodyA, bodyB := joint.Bodies()
	if !w.owns(bodyA) || !w.owns(bodyB) {
		return -1, ErrUnknownBody
	}

	var slot int
	if n := len(w.freeJoints); n > 0 {
		slot = w.freeJoints[n-1]
		w.freeJoints = w.freeJoints[:n-1]
		w.joints[slot] = joint
	} else {
		slot = len(w.joints)
		w.joints = append(w.joints, joint)
	}
	return JointID(slot), nil
}

// Joint resolves a joint handle, nil if removed or never valid.
func (w *World) Joint(id JointID) constraint.Joint {
	if id < 0 || int(id) >= len(w.joints) {
		return nil
	}
	return w.joints[id]
}

func (w *World) RemoveJoint(id JointID) error {
	joint := w.Joint(id)
	if joint == nil {
		return ErrUnknownJoint
	}

	bodyA, bodyB := joint.Bodies()
	if w.owns(bodyA) {
		w.wakeIsland(bodyA)
	}
	if w.owns(bodyB) {
		w.wakeIsland(bodyB)
	}

	w.joints[id] = nil
	w.freeJoints = append(w.freeJoints, int(id))
	return nil
}

// owns reports whether the body currently occupies its slot in this
// world; a removed body fails the identity check.
func (w *World) owns(body *actor.RigidBody) bool {
	return body != nil && body.Index >= 0 && body.Index < len(w.bodies) &&
		w.bodies[body.Index] == body
}

// ApplyImpulse applies an immediate impulse at a world point and wakes
// the body's island.
func (w *World) ApplyImpulse(id BodyID, impulse, point mgl64.Vec2) error {
	body := w.Body(id)
	if body == nil {
		return ErrUnknownBody
	}
	w.wakeIsland(body)
	body.ApplyImpulse(impulse, point)
	return nil
}

// ApplyForce accumulates a force for the next integration and wakes
// the body's island.
func (w *World) ApplyForce(id BodyID, force mgl64.Vec2) error {
	body := w.Body(id)
	if body == nil {
		return ErrUnknownBody
	}
	w.wakeIsland(body)
	body.AddForce(force)
	return nil
}

func (w *World) IsSleeping(id BodyID) bool {
	body := w.Body(id)
	return body != nil && body.IsSleeping
}

// activeBodies compacts the slot array, in handle order.
func (w *World) activeBodies() []*actor.RigidBody {
	bodies := make([]*actor.RigidBody, 0, len(w.bodies))
	for _, body := range w.bodies {
		if body != nil {
			bodies = append(bodies, body)
		}
	}
	return bodies
}

// activeJoints filters out joints whose bodies were removed, warning
// once per Step for each dangling joint.
func (w *World) activeJoints() []constraint.Joint {
	joints := make([]constraint.Joint, 0, len(w.joints))
	for i, joint := range w.joints {
		if joint == nil {
			continue
		}
		bodyA, bodyB := joint.Bodies()
		if !w.owns(bodyA) || !w.owns(bodyB) {
			w.Events.Warnf("joint %d references a removed body, deactivated", i)
			continue
		}
		joints = append(joints, joint)
	}
	return joints
}

// Step advances the simulation by dt, split into the configured
// substeps. Each substep integrates, detects collisions, solves the
// position constraints, derives velocities from the corrected motion
// and reconciles them with restitution and friction.
func (w *World) Step(dt float64) {
	if dt <= 0 {
		return
	}
	workers := max(DEFAULT_WORKERS, w.Config.Workers)
	h := dt / float64(w.Config.Substeps)

	bodies := w.activeBodies()
	joints := w.activeJoints()

	warnedInvalid := make(map[*actor.RigidBody]bool)
	var frameContacts []*constraint.ContactConstraint

	for substep := 0; substep < w.Config.Substeps; substep++ {
		for _, joint := range joints {
			joint.DampVelocities(h)
		}
		w.integrate(bodies, h, workers)

		// Bodies with corrupted transforms are quarantined from
		// collision rather than poisoning the solver
		invalid := false
		for _, body := range bodies {
			if actor.IsValidVec(body.Transform.Position) {
				continue
			}
			invalid = true
			if !warnedInvalid[body] {
				w.Events.Warnf("body %d has a non-finite position, skipped", body.Index)
				warnedInvalid[body] = true
			}
		}
		sane := bodies
		if invalid {
			sane = make([]*actor.RigidBody, 0, len(bodies))
			for _, body := range bodies {
				if actor.IsValidVec(body.Transform.Position) {
					sane = append(sane, body)
				}
			}
		}

		pairs := BroadPhase(sane, &w.Config.LayerMatrix, h)
		contacts := NarrowPhase(pairs, workers)
		contacts = w.Events.recordCollisions(contacts)
		wakeOnContact(contacts, w.Config.SleepLinearVelocity, w.Config.SleepAngularVelocity)
		contacts = filterInactive(contacts)
		w.prepareContacts(contacts, h)

		for _, joint := range joints {
			joint.ClearLagrange()
		}

		for iter := 0; iter < w.Config.SolverIterations; iter++ {
			w.solvePosition(h, contacts, joints, workers)
		}

		w.update(bodies, h, workers)
		w.solveVelocity(h, contacts, joints, workers)
		w.capVelocities(bodies)

		w.storeWarmStart(contacts)
		w.reportClamped(contacts)
		frameContacts = contacts
	}

	w.updateIslands(dt, bodies, frameContacts, joints)
	w.Events.processSleepEvents(bodies)
	w.Events.flush()
}

func (w *World) integrate(bodies []*actor.RigidBody, h float64, workers int) {
	task(workers, bodies, func(body *actor.RigidBody) {
		body.Integrate(h, w.Config.Gravity)
	})
}

func (w *World) update(bodies []*actor.RigidBody, h float64, workers int) {
	task(workers, bodies, func(body *actor.RigidBody) {
		body.Update(h)
	})
}

func (w *World) solvePosition(h float64, contacts []*constraint.ContactConstraint, joints []constraint.Joint, workers int) {
	task(workers, contacts, func(contact *constraint.ContactConstraint) {
		contact.SolvePosition(h)
	})
	for _, joint := range joints {
		joint.SolvePosition(h)
	}
}

func (w *World) solveVelocity(h float64, contacts []*constraint.ContactConstraint, joints []constraint.Joint, workers int) {
	task(workers, contacts, func(contact *constraint.ContactConstraint) {
		contact.SolveVelocity(h)
	})
	for _, joint := range joints {
		joint.SolveVelocity(h)
	}
}

// filterInactive drops contacts where neither side can move, so
// sleeping bodies resting on static geometry are never nudged.
func filterInactive(contacts []*constraint.ContactConstraint) []*constraint.ContactConstraint {
	inactive := func(b *actor.RigidBody) bool {
		return b.IsSleeping || b.BodyType == actor.BodyTypeStatic
	}

	n := 0
	for _, c := range contacts {
		if inactive(c.BodyA) && inactive(c.BodyB) {
			continue
		}
		contacts[n] = c
		n++
	}
	return contacts[:n]
}

// prepareContacts applies the world tuning to the fresh contacts and
// seeds the multipliers from the previous substep when warm starting.
func (w *World) prepareContacts(contacts []*constraint.ContactConstraint, h float64) {
	cutoff := 2 * w.Config.Gravity.Len()

	for _, c := range contacts {
		c.Compliance = w.Config.ContactCompliance
		c.MaxCorrection = w.Config.MaxCorrection
		c.RestitutionCutoff = cutoff

		if !w.Config.WarmStarting {
			continue
		}
		pair := makePairKey(c.BodyA, c.BodyB)
		for i := range c.Points {
			pt := &c.Points[i]
			pt.NormalLagrange = w.warmCache[warmKey{pair: pair, feature: pt.Feature}]
		}
	}
}

// storeWarmStart rebuilds the multiplier cache from this substep's
// contacts; pairs that left the broad phase drop out naturally.
func (w *World) storeWarmStart(contacts []*constraint.ContactConstraint) {
	if !w.Config.WarmStarting {
		return
	}
	clear(w.warmCache)
	for _, c := range contacts {
		pair := makePairKey(c.BodyA, c.BodyB)
		for _, pt := range c.Points {
			w.warmCache[warmKey{pair: pair, feature: pt.Feature}] = pt.NormalLagrange
		}
	}
}

func (w *World) reportClamped(contacts []*constraint.ContactConstraint) {
	for _, c := range contacts {
		if c.Clamped {
			w.Events.Warnf("deep overlap between bodies %d and %d, correction clamped",
				c.BodyA.Index, c.BodyB.Index)
			c.Clamped = false
		}
	}
}

// capVelocities clamps runaway velocities to the configured caps, a
// safety net against solver blowups.
func (w *World) capVelocities(bodies []*actor.RigidBody) {
	for _, body := range bodies {
		if body.BodyType != actor.BodyTypeDynamic || body.IsSleeping {
			continue
		}
		if speed := body.Velocity.Len(); speed > w.Config.MaxLinearVelocity {
			body.Velocity = body.Velocity.Mul(w.Config.MaxLinearVelocity / speed)
			w.Events.Warnf("body %d linear velocity capped from %.3g", body.Index, speed)
		}
		if spin := body.AngularVelocity; spin > w.Config.MaxAngularVelocity || spin < -w.Config.MaxAngularVelocity {
			if spin > 0 {
				body.AngularVelocity = w.Config.MaxAngularVelocity
			} else {
				body.AngularVelocity = -w.Config.MaxAngularVelocity
			}
			w.Events.Warnf("body %d angular velocity capped from %.3g", body.Index, spin)
		}
	}
}
