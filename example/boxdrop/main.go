package main

import (
	"fmt"

	"github.com/akmonengine/plume"
	"github.com/akmonengine/plume/actor"
	"github.com/akmonengine/plume/constraint"
	"github.com/go-gl/mathgl/mgl64"
)

// SetupScene builds a ground, a falling box, a bouncing ball and a
// pendulum swinging from a world anchor.
func SetupScene() (*plume.World, plume.BodyID, plume.BodyID, plume.BodyID) {
	config := plume.DefaultConfig()
	world, err := plume.NewWorld(config)
	if err != nil {
		panic(err)
	}

	// Ground: a wide static box whose top surface is y=0
	groundShape, _ := actor.NewBox(50, 1)
	ground, _ := actor.NewRigidBody(actor.NewTransform(mgl64.Vec2{0, -1}, 0), groundShape, actor.BodyTypeStatic, 0)
	world.AddBody(ground)

	// A 1x1 box dropped from 5m
	boxShape, _ := actor.NewBox(0.5, 0.5)
	box, _ := actor.NewRigidBody(actor.NewTransform(mgl64.Vec2{0, 5}, 0.3), boxShape, actor.BodyTypeDynamic, 1.0)
	boxID, _ := world.AddBody(box)

	// A bouncy ball next to it
	ball, _ := actor.NewRigidBody(actor.NewTransform(mgl64.Vec2{3, 4}, 0), &actor.Circle{Radius: 0.5}, actor.BodyTypeDynamic, 1.0)
	ball.Material.Restitution = 0.7
	ballID, _ := world.AddBody(ball)

	// Pendulum: a box hinged to a world anchor
	bobShape, _ := actor.NewBox(0.25, 0.25)
	bob, _ := actor.NewRigidBody(actor.NewTransform(mgl64.Vec2{-4, 6}, 0), bobShape, actor.BodyTypeDynamic, 1.0)
	bobID, _ := world.AddBody(bob)

	pivotID := world.CreateAnchor(mgl64.Vec2{-6, 6})
	pivot := world.Body(pivotID)
	world.AddJoint(constraint.NewRevoluteJoint(pivot, bob, mgl64.Vec2{-6, 6}))

	return world, boxID, ballID, bobID
}

func main() {
	world, boxID, ballID, bobID := SetupScene()

	world.Events.Subscribe(plume.COLLISION_ENTER, func(event plume.Event) {
		e := event.(plume.CollisionEnterEvent)
		fmt.Printf("  contact: body %d <-> body %d, normale %v\n",
			e.BodyA.Index, e.BodyB.Index, e.Manifold.Normal)
	})
	world.Events.Subscribe(plume.ON_SLEEP, func(event plume.Event) {
		e := event.(plume.SleepEvent)
		fmt.Printf("  body %d s'endort\n", e.Body.Index)
	})
	world.Events.Subscribe(plume.ON_WARNING, func(event plume.Event) {
		fmt.Printf("  warning: %s\n", event.(plume.WarningEvent).Message)
	})

	const dt = 1.0 / 60.0
	const steps = 600

	for step := 0; step < steps; step++ {
		world.Step(dt)

		if step%60 == 59 {
			box := world.Body(boxID)
			ball := world.Body(ballID)
			bob := world.Body(bobID)
			fmt.Printf("t=%.1fs box=(%.3f, %.3f) ball=(%.3f, %.3f) pendule=(%.3f, %.3f)\n",
				float64(step+1)*dt,
				box.Transform.Position.X(), box.Transform.Position.Y(),
				ball.Transform.Position.X(), ball.Transform.Position.Y(),
				bob.Transform.Position.X(), bob.Transform.Position.Y())
		}
	}

	if hit, ok := world.RayCast(mgl64.Vec2{0, 10}, mgl64.Vec2{0, -20}, ^uint32(0)); ok {
		fmt.Printf("rayon vertical: touche le body %d en (%.3f, %.3f)\n",
			hit.Body, hit.Point.X(), hit.Point.Y())
	}
}
