package plume

import (
	"math"
	"strings"
	"testing"

	"github.com/akmonengine/plume/actor"
	"github.com/akmonengine/plume/constraint"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const frame = 1.0 / 60.0

func newTestWorld(t *testing.T) *World {
	t.Helper()
	w, err := NewWorld(DefaultConfig())
	require.NoError(t, err)
	return w
}

// addGround registers a wide static slab whose top surface is y = 0.
func addGround(t *testing.T, w *World) BodyID {
	t.Helper()
	shape, err := actor.NewBox(25, 0.5)
	require.NoError(t, err)
	ground, err := actor.NewRigidBody(transformAt(0, -0.5, 0), shape, actor.BodyTypeStatic, 0)
	require.NoError(t, err)
	id, err := w.AddBody(ground)
	require.NoError(t, err)
	return id
}

func addBox(t *testing.T, w *World, x, y float64) (BodyID, *actor.RigidBody) {
	t.Helper()
	box := testBox(t, x, y, actor.BodyTypeDynamic, -1)
	id, err := w.AddBody(box)
	require.NoError(t, err)
	return id, box
}

func addCircle(t *testing.T, w *World, x, y, radius float64) (BodyID, *actor.RigidBody) {
	t.Helper()
	body, err := actor.NewRigidBody(transformAt(x, y, 0), &actor.Circle{Radius: radius},
		actor.BodyTypeDynamic, 1.0)
	require.NoError(t, err)
	id, err := w.AddBody(body)
	require.NoError(t, err)
	return id, body
}

func TestBoxSettlesOnGround(t *testing.T) {
	w := newTestWorld(t)
	addGround(t, w)
	id, box := addBox(t, w, 0, 5)

	for i := 0; i < 240; i++ {
		w.Step(frame)
	}

	// A 1x1 box at rest sits with its center half a meter above the
	// slab; the position solve removes the penetration each substep, so
	// the resting offset is far below a millimeter
	assert.InDelta(t, 0.5, box.Transform.Position.Y(), 1e-4)
	assert.InDelta(t, 0, box.Velocity.Len(), 0.05)
	assert.True(t, w.IsSleeping(id), "settled box should be asleep")
}

func TestElasticCirclesSwapVelocities(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Gravity = mgl64.Vec2{}
	w, err := NewWorld(cfg)
	require.NoError(t, err)

	_, a := addCircle(t, w, -2, 0, 0.5)
	a.Material.Restitution = 1
	a.Velocity = mgl64.Vec2{2, 0}

	_, b := addCircle(t, w, 2, 0, 0.5)
	b.Material.Restitution = 1
	b.Velocity = mgl64.Vec2{-2, 0}

	for i := 0; i < 90; i++ {
		w.Step(frame)
	}

	// Equal masses, head on, perfect restitution: velocities swap
	assert.InDelta(t, -2, a.Velocity.X(), 0.1)
	assert.InDelta(t, 2, b.Velocity.X(), 0.1)
	assert.InDelta(t, 0, a.Velocity.Y(), 1e-6)
	assert.InDelta(t, 0, b.Velocity.Y(), 1e-6)
}

func TestDistanceJointPendulum(t *testing.T) {
	w := newTestWorld(t)

	anchorID := w.CreateAnchor(mgl64.Vec2{0, 10})
	anchor := w.Body(anchorID)
	require.NotNil(t, anchor)

	_, bob := addCircle(t, w, 3, 10, 0.5)
	_, err := w.AddJoint(constraint.NewDistanceJoint(anchor, bob))
	require.NoError(t, err)

	// Track the lowest point of the swing: at any single frame the bob
	// may be anywhere on its arc, including back near the start height
	minY := bob.Transform.Position.Y()
	for i := 0; i < 120; i++ {
		w.Step(frame)
		minY = math.Min(minY, bob.Transform.Position.Y())
	}

	// The bob swings through the bottom of the arc, the rod length holds
	dist := bob.Transform.Position.Sub(anchor.Transform.Position).Len()
	assert.InDelta(t, 3.0, dist, 0.01)
	assert.Less(t, minY, 8.0, "pendulum never swung")
	assert.Greater(t, bob.Velocity.Len(), 0.1)
}

func TestDeterminism(t *testing.T) {
	run := func() []float64 {
		w := newTestWorld(t)
		addGround(t, w)
		_, b1 := addBox(t, w, 0, 0.55)
		_, b2 := addBox(t, w, 0.04, 1.6)
		_, b3 := addBox(t, w, -0.03, 2.7)
		_, ball := addCircle(t, w, 0.5, 4, 0.5)

		for i := 0; i < 120; i++ {
			w.Step(frame)
		}

		var state []float64
		for _, body := range []*actor.RigidBody{b1, b2, b3, ball} {
			state = append(state,
				body.Transform.Position.X(),
				body.Transform.Position.Y(),
				body.Transform.Rotation.Angle())
		}
		return state
	}

	first := run()
	second := run()
	require.Equal(t, first, second, "identical scenes diverged")
}

func TestSleepAndWakeRoundTrip(t *testing.T) {
	w := newTestWorld(t)
	addGround(t, w)
	id, box := addBox(t, w, 0, 2)

	var wakes int
	w.Events.Subscribe(ON_WAKE, func(event Event) { wakes++ })

	for i := 0; i < 180; i++ {
		w.Step(frame)
	}
	require.True(t, w.IsSleeping(id))

	restY := box.Transform.Position.Y()
	require.NoError(t, w.ApplyImpulse(id, mgl64.Vec2{0, 4}, box.Transform.Position))
	assert.False(t, w.IsSleeping(id), "impulse should wake the body")

	for i := 0; i < 15; i++ {
		w.Step(frame)
	}
	assert.Greater(t, box.Transform.Position.Y(), restY+0.1, "woken box never jumped")
	assert.Equal(t, 1, wakes)
}

func TestSleepingStackKeepsContacts(t *testing.T) {
	w := newTestWorld(t)
	addGround(t, w)
	_, lower := addBox(t, w, 0, 0.5)
	_, upper := addBox(t, w, 0, 1.5)

	var exits int
	w.Events.Subscribe(COLLISION_EXIT, func(event Event) { exits++ })

	for i := 0; i < 400; i++ {
		w.Step(frame)
	}
	require.True(t, lower.IsSleeping)
	require.True(t, upper.IsSleeping)

	// The stack fell asleep without separating: the box-box pair left
	// the broad phase but the bodies still touch
	assert.Zero(t, exits, "still-touching pair reported an exit")
}

func TestBodyHandles(t *testing.T) {
	w := newTestWorld(t)

	_, err := w.AddBody(nil)
	assert.ErrorIs(t, err, ErrNilBody)

	box := testBox(t, 0, 0, actor.BodyTypeDynamic, -1)
	id, err := w.AddBody(box)
	require.NoError(t, err)
	assert.Same(t, box, w.Body(id))

	_, err = w.AddBody(box)
	assert.ErrorIs(t, err, ErrBodyInWorld)

	assert.Nil(t, w.Body(BodyID(99)))
	assert.Nil(t, w.Body(BodyID(-1)))

	require.NoError(t, w.RemoveBody(id))
	assert.Nil(t, w.Body(id))
	assert.ErrorIs(t, w.RemoveBody(id), ErrUnknownBody)

	// The freed slot is reused: a stale handle kept across RemoveBody
	// resolves to the new occupant, not to nil
	other := testBox(t, 1, 0, actor.BodyTypeDynamic, -1)
	reused, err := w.AddBody(other)
	require.NoError(t, err)
	assert.Equal(t, id, reused)
	assert.Same(t, other, w.Body(id))
}

func TestJointHandles(t *testing.T) {
	w := newTestWorld(t)
	_, a := addBox(t, w, 0, 0)
	_, b := addBox(t, w, 3, 0)

	_, err := w.AddJoint(nil)
	assert.ErrorIs(t, err, ErrNilJoint)

	// Bodies must belong to this world
	stray := testBox(t, 9, 0, actor.BodyTypeDynamic, -1)
	_, err = w.AddJoint(constraint.NewDistanceJoint(a, stray))
	assert.ErrorIs(t, err, ErrUnknownBody)

	joint := constraint.NewDistanceJoint(a, b)
	id, err := w.AddJoint(joint)
	require.NoError(t, err)
	assert.Same(t, joint, w.Joint(id))

	require.NoError(t, w.RemoveJoint(id))
	assert.Nil(t, w.Joint(id))
	assert.ErrorIs(t, w.RemoveJoint(id), ErrUnknownJoint)
}

func TestDanglingJointWarns(t *testing.T) {
	w := newTestWorld(t)
	_, a := addBox(t, w, 0, 0)
	bID, b := addBox(t, w, 3, 0)

	_, err := w.AddJoint(constraint.NewDistanceJoint(a, b))
	require.NoError(t, err)

	var warnings []string
	w.Events.Subscribe(ON_WARNING, func(event Event) {
		warnings = append(warnings, event.(WarningEvent).Message)
	})

	require.NoError(t, w.RemoveBody(bID))
	w.Step(frame)

	require.NotEmpty(t, warnings, "dangling joint produced no warning")
	assert.Contains(t, warnings[0], "joint")

	// The dangling joint no longer constrains anything
	startX := a.Transform.Position.X()
	for i := 0; i < 30; i++ {
		w.Step(frame)
	}
	assert.InDelta(t, startX, a.Transform.Position.X(), 1e-9)
}

func TestTriggerZone(t *testing.T) {
	w := newTestWorld(t)
	addGround(t, w)

	triggerShape, err := actor.NewBox(0.5, 0.5)
	require.NoError(t, err)
	zone, err := actor.NewRigidBody(transformAt(0, 3, 0), triggerShape, actor.BodyTypeStatic, 0)
	require.NoError(t, err)
	zone.IsTrigger = true
	_, err = w.AddBody(zone)
	require.NoError(t, err)

	_, box := addBox(t, w, 0, 6)

	var enters, exits int
	w.Events.Subscribe(TRIGGER_ENTER, func(event Event) { enters++ })
	w.Events.Subscribe(TRIGGER_EXIT, func(event Event) { exits++ })
	w.Events.Subscribe(COLLISION_ENTER, func(event Event) {
		e := event.(CollisionEnterEvent)
		if e.BodyA == zone || e.BodyB == zone {
			t.Error("trigger pair reported as a collision")
		}
	})

	for i := 0; i < 240; i++ {
		w.Step(frame)
	}

	assert.Equal(t, 1, enters)
	assert.Equal(t, 1, exits)
	// The zone produced no response: the box fell through onto the ground
	assert.InDelta(t, 0.5, box.Transform.Position.Y(), 0.02)
}

func TestCollisionEventOnLanding(t *testing.T) {
	w := newTestWorld(t)
	groundID := addGround(t, w)
	boxID, _ := addBox(t, w, 0, 2)

	var landed bool
	w.Events.Subscribe(COLLISION_ENTER, func(event Event) {
		e := event.(CollisionEnterEvent)
		if e.BodyA == w.Body(groundID) && e.BodyB == w.Body(boxID) {
			landed = true
			assert.InDelta(t, 0, e.Manifold.Normal.X(), 1e-6)
		}
	})

	for i := 0; i < 120; i++ {
		w.Step(frame)
	}
	assert.True(t, landed, "landing produced no collision event")
}

func TestDefaultMaterialApplied(t *testing.T) {
	w := newTestWorld(t)

	_, blank := addBox(t, w, 0, 0)
	assert.Equal(t, 0.6, blank.Material.StaticFriction)
	assert.Equal(t, 0.4, blank.Material.DynamicFriction)

	// Any explicit response field keeps the material as authored
	bouncy := testBox(t, 3, 0, actor.BodyTypeDynamic, -1)
	bouncy.Material.Restitution = 1
	_, err := w.AddBody(bouncy)
	require.NoError(t, err)
	assert.Zero(t, bouncy.Material.StaticFriction)
	assert.Zero(t, bouncy.Material.DynamicFriction)
}

func TestStepIgnoresNonPositiveDt(t *testing.T) {
	w := newTestWorld(t)
	_, box := addBox(t, w, 0, 5)

	w.Step(0)
	w.Step(-frame)

	assert.Equal(t, 5.0, box.Transform.Position.Y())
}

func TestInvalidBodyQuarantined(t *testing.T) {
	w := newTestWorld(t)
	addGround(t, w)
	_, good := addBox(t, w, 0, 2)
	_, bad := addBox(t, w, 5, 2)
	bad.Transform.Position = mgl64.Vec2{math.NaN(), 2}

	var warned bool
	w.Events.Subscribe(ON_WARNING, func(event Event) {
		if strings.Contains(event.(WarningEvent).Message, "non-finite") {
			warned = true
		}
	})

	for i := 0; i < 180; i++ {
		w.Step(frame)
	}

	assert.True(t, warned, "corrupted body produced no warning")
	// The rest of the scene is unaffected
	assert.InDelta(t, 0.5, good.Transform.Position.Y(), 0.02)
}

func TestVelocityCap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxLinearVelocity = 5
	w, err := NewWorld(cfg)
	require.NoError(t, err)
	_, box := addBox(t, w, 0, 100)

	var warned bool
	w.Events.Subscribe(ON_WARNING, func(event Event) {
		if strings.Contains(event.(WarningEvent).Message, "capped") {
			warned = true
		}
	})

	for i := 0; i < 120; i++ {
		w.Step(frame)
	}

	assert.LessOrEqual(t, box.Velocity.Len(), 5.1)
	assert.True(t, warned, "cap fired no warning")
}

func TestWorldRayCast(t *testing.T) {
	w := newTestWorld(t)
	addGround(t, w)
	boxID, _ := addBox(t, w, 0, 0.5)

	hit, ok := w.RayCast(mgl64.Vec2{0, 5}, mgl64.Vec2{0, -10}, ^uint32(0))
	require.True(t, ok)
	assert.Equal(t, boxID, hit.Body)
	assert.InDelta(t, 0.4, hit.Fraction, 1e-9)
	assert.InDelta(t, 1.0, hit.Point.Y(), 1e-9)
	assert.InDelta(t, 1.0, hit.Normal.Y(), 1e-9)

	// A mask with no matching layer hits nothing
	_, ok = w.RayCast(mgl64.Vec2{0, 5}, mgl64.Vec2{0, -10}, 1<<5)
	assert.False(t, ok)
}

func TestWorldCircleCast(t *testing.T) {
	w := newTestWorld(t)
	boxID, _ := addBox(t, w, 0, 0.5)

	// The swept circle touches the inflated surface half a meter early
	hit, ok := w.CircleCast(mgl64.Vec2{0, 5}, 0.5, mgl64.Vec2{0, -10}, ^uint32(0))
	require.True(t, ok)
	assert.Equal(t, boxID, hit.Body)
	assert.InDelta(t, 0.35, hit.Fraction, 1e-9)
	assert.InDelta(t, 1.5, hit.Point.Y(), 1e-9)
}

func TestWorldAABBQuery(t *testing.T) {
	w := newTestWorld(t)
	groundID := addGround(t, w)
	boxID, _ := addBox(t, w, 0, 0.5)

	ids := w.AABBQuery(actor.AABB{
		Min: mgl64.Vec2{-0.1, 0.4},
		Max: mgl64.Vec2{0.1, 0.6},
	}, ^uint32(0))
	assert.Equal(t, []BodyID{boxID}, ids)

	ids = w.AABBQuery(actor.AABB{
		Min: mgl64.Vec2{-30, -2},
		Max: mgl64.Vec2{30, 6},
	}, ^uint32(0))
	assert.Equal(t, []BodyID{groundID, boxID}, ids)

	ids = w.AABBQuery(actor.AABB{
		Min: mgl64.Vec2{-0.1, 0.4},
		Max: mgl64.Vec2{0.1, 0.6},
	}, 1<<7)
	assert.Empty(t, ids)
}

func BenchmarkStackSceneStep(b *testing.B) {
	const stackHeight = 20

	cfg := DefaultConfig()
	cfg.SleepTime = 1e9 // keep the stack solving for the whole run
	w, err := NewWorld(cfg)
	if err != nil {
		b.Fatal(err)
	}

	groundShape, _ := actor.NewBox(25, 0.5)
	ground, _ := actor.NewRigidBody(transformAt(0, -0.5, 0), groundShape, actor.BodyTypeStatic, 0)
	if _, err := w.AddBody(ground); err != nil {
		b.Fatal(err)
	}
	for i := 0; i < stackHeight; i++ {
		shape, _ := actor.NewBox(0.5, 0.5)
		box, _ := actor.NewRigidBody(transformAt(0, 0.5+float64(i)*1.01, 0), shape, actor.BodyTypeDynamic, 1.0)
		if _, err := w.AddBody(box); err != nil {
			b.Fatal(err)
		}
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w.Step(frame)
	}
}
