package plume

import (
	"strings"
	"testing"

	"github.com/akmonengine/plume/actor"
	"github.com/akmonengine/plume/collide"
	"github.com/akmonengine/plume/constraint"
	"github.com/go-gl/mathgl/mgl64"
)

func contactBetween(a, b *actor.RigidBody) *constraint.ContactConstraint {
	mid := a.Transform.Position.Add(b.Transform.Position).Mul(0.5)
	return constraint.NewContact(a, b, collide.Manifold{
		Normal: mgl64.Vec2{0, 1},
		Points: []collide.ManifoldPoint{{Position: mid, Penetration: 0.1}},
	})
}

func TestCollisionEnterExitEvents(t *testing.T) {
	a := testBox(t, 0, 0, actor.BodyTypeDynamic, 0)
	b := testBox(t, 0, 0.9, actor.BodyTypeDynamic, 1)

	events := NewEvents()
	var enters, exits int
	events.Subscribe(COLLISION_ENTER, func(event Event) {
		enters++
		e := event.(CollisionEnterEvent)
		if e.BodyA != a || e.BodyB != b {
			t.Error("enter event carries the wrong bodies")
		}
		if len(e.Manifold.Points) != 1 || e.Manifold.Points[0].Penetration <= 0 {
			t.Errorf("enter manifold = %+v, want one penetrating point", e.Manifold)
		}
	})
	events.Subscribe(COLLISION_EXIT, func(event Event) { exits++ })

	// Frame 1: the pair appears
	events.recordCollisions([]*constraint.ContactConstraint{contactBetween(a, b)})
	events.flush()
	if enters != 1 || exits != 0 {
		t.Fatalf("after frame 1: enters = %d, exits = %d, want 1, 0", enters, exits)
	}

	// Frame 2: still touching, no new event
	events.recordCollisions([]*constraint.ContactConstraint{contactBetween(a, b)})
	events.flush()
	if enters != 1 || exits != 0 {
		t.Fatalf("after frame 2: enters = %d, exits = %d, want 1, 0", enters, exits)
	}

	// Frame 3: the pair is gone
	events.flush()
	if enters != 1 || exits != 1 {
		t.Fatalf("after frame 3: enters = %d, exits = %d, want 1, 1", enters, exits)
	}
}

func TestRecordCollisionsFiltersTriggers(t *testing.T) {
	a := testBox(t, 0, 0, actor.BodyTypeDynamic, 0)
	b := testBox(t, 0, 0.9, actor.BodyTypeDynamic, 1)
	b.IsTrigger = true

	events := NewEvents()
	var triggered int
	events.Subscribe(TRIGGER_ENTER, func(event Event) { triggered++ })
	events.Subscribe(COLLISION_ENTER, func(event Event) {
		t.Error("trigger pair produced a collision event")
	})

	// The trigger pair is recorded for events but removed from the
	// solver input
	solved := events.recordCollisions([]*constraint.ContactConstraint{contactBetween(a, b)})
	if len(solved) != 0 {
		t.Errorf("solver input = %d contacts, want 0 for a trigger pair", len(solved))
	}

	events.flush()
	if triggered != 1 {
		t.Errorf("trigger enters = %d, want 1", triggered)
	}
}

func TestTriggerExitEvent(t *testing.T) {
	a := testBox(t, 0, 0, actor.BodyTypeDynamic, 0)
	b := testBox(t, 0, 0.9, actor.BodyTypeDynamic, 1)
	a.IsTrigger = true

	events := NewEvents()
	var exits int
	events.Subscribe(TRIGGER_EXIT, func(event Event) { exits++ })

	events.recordCollisions([]*constraint.ContactConstraint{contactBetween(a, b)})
	events.flush()
	events.flush()

	if exits != 1 {
		t.Errorf("trigger exits = %d, want 1", exits)
	}
}

func TestWarningEvents(t *testing.T) {
	events := NewEvents()
	var messages []string
	events.Subscribe(ON_WARNING, func(event Event) {
		messages = append(messages, event.(WarningEvent).Message)
	})

	events.Warnf("body %d misbehaves", 7)
	events.flush()

	if len(messages) != 1 || !strings.Contains(messages[0], "body 7") {
		t.Errorf("warnings = %v", messages)
	}

	// The buffer is drained by flush
	events.flush()
	if len(messages) != 1 {
		t.Errorf("flush replayed the warning: %v", messages)
	}
}

func TestSleepWakeEvents(t *testing.T) {
	body := testBox(t, 0, 0, actor.BodyTypeDynamic, 0)
	bodies := []*actor.RigidBody{body}

	events := NewEvents()
	var slept, woke int
	events.Subscribe(ON_SLEEP, func(event Event) { slept++ })
	events.Subscribe(ON_WAKE, func(event Event) { woke++ })

	// First sighting only registers the state
	events.processSleepEvents(bodies)
	events.flush()
	if slept != 0 || woke != 0 {
		t.Fatalf("initial frame fired events: %d sleeps, %d wakes", slept, woke)
	}

	body.Sleep()
	events.processSleepEvents(bodies)
	events.flush()
	if slept != 1 {
		t.Errorf("sleeps = %d, want 1", slept)
	}

	body.Awake()
	events.processSleepEvents(bodies)
	events.flush()
	if woke != 1 {
		t.Errorf("wakes = %d, want 1", woke)
	}

	// No transition, no event
	events.processSleepEvents(bodies)
	events.flush()
	if slept != 1 || woke != 1 {
		t.Errorf("steady state fired events: %d sleeps, %d wakes", slept, woke)
	}
}

func TestSleepingPairStaysQuiet(t *testing.T) {
	a := testBox(t, 0, 0, actor.BodyTypeDynamic, 0)
	b := testBox(t, 0, 0.9, actor.BodyTypeDynamic, 1)

	events := NewEvents()
	events.Subscribe(COLLISION_ENTER, func(event Event) {
		t.Error("sleeping pair produced an enter event")
	})

	contact := contactBetween(a, b)
	a.Sleep()
	b.Sleep()
	events.recordCollisions([]*constraint.ContactConstraint{contact})
	events.flush()
}

func TestSleepingPairKeepsContactAlive(t *testing.T) {
	a := testBox(t, 0, 0, actor.BodyTypeDynamic, 0)
	b := testBox(t, 0, 0.9, actor.BodyTypeDynamic, 1)

	events := NewEvents()
	var enters, exits int
	events.Subscribe(COLLISION_ENTER, func(event Event) { enters++ })
	events.Subscribe(COLLISION_EXIT, func(event Event) { exits++ })

	events.recordCollisions([]*constraint.ContactConstraint{contactBetween(a, b)})
	events.flush()
	if enters != 1 {
		t.Fatalf("enters = %d, want 1", enters)
	}

	// Asleep, the pair leaves the broad phase while still touching
	a.Sleep()
	b.Sleep()
	events.flush()
	events.flush()
	if exits != 0 {
		t.Fatalf("exits = %d for a sleeping resting pair, want 0", exits)
	}

	// Waking while still in contact re-reports the pair: no new events
	a.Awake()
	b.Awake()
	events.recordCollisions([]*constraint.ContactConstraint{contactBetween(a, b)})
	events.flush()
	if enters != 1 || exits != 0 {
		t.Fatalf("after wake: enters = %d, exits = %d, want 1, 0", enters, exits)
	}

	// Exit fires only once the contact truly ends
	events.flush()
	if exits != 1 {
		t.Errorf("exits = %d after separation, want 1", exits)
	}
}

func TestCollisionEventsOrderedByHandles(t *testing.T) {
	bodies := make([]*actor.RigidBody, 4)
	for i := range bodies {
		bodies[i] = testBox(t, float64(i), 0, actor.BodyTypeDynamic, i)
	}

	events := NewEvents()
	var order [][2]int
	events.Subscribe(COLLISION_ENTER, func(event Event) {
		e := event.(CollisionEnterEvent)
		order = append(order, [2]int{e.BodyA.Index, e.BodyB.Index})
	})

	// Recorded out of order, emitted in handle order
	events.recordCollisions([]*constraint.ContactConstraint{
		contactBetween(bodies[2], bodies[3]),
		contactBetween(bodies[0], bodies[3]),
		contactBetween(bodies[1], bodies[2]),
		contactBetween(bodies[0], bodies[1]),
	})
	events.flush()

	want := [][2]int{{0, 1}, {0, 3}, {1, 2}, {2, 3}}
	if len(order) != len(want) {
		t.Fatalf("enters = %d, want %d", len(order), len(want))
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("event %d for pair %v, want %v", i, order[i], want[i])
		}
	}
}

func TestForgetBody(t *testing.T) {
	a := testBox(t, 0, 0, actor.BodyTypeDynamic, 0)
	b := testBox(t, 0, 0.9, actor.BodyTypeDynamic, 1)

	events := NewEvents()
	events.Subscribe(COLLISION_ENTER, func(event Event) {
		t.Error("forgotten body still produced an event")
	})
	events.Subscribe(COLLISION_EXIT, func(event Event) {
		t.Error("forgotten body still produced an exit event")
	})

	events.recordCollisions([]*constraint.ContactConstraint{contactBetween(a, b)})
	events.forgetBody(a)
	events.flush()
	events.flush()
}
