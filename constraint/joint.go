package constraint

import (
	"math"

	"github.com/akmonengine/plume/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// Joint is a persistent constraint between two bodies. Unlike
// contacts, joints survive across frames; their Lagrange multipliers
// are reset at the start of each substep.
type Joint interface {
	Constraint
	ClearLagrange()
	// DampVelocities applies the joint's linear/angular velocity
	// damping, run during integration before the position solve
	DampVelocities(dt float64)
}

// solveAlong solves a scalar constraint c measured along the gradient
// n ((pa−pb)·n convention): positive c moves body A against n and
// body B along it.
func solveAlong(bodyA, bodyB *actor.RigidBody, pa, pb, n mgl64.Vec2, c float64, lagrange *float64, compliance, dt float64) {
	rA := pa.Sub(bodyA.Transform.Position)
	rB := pb.Sub(bodyB.Transform.Position)

	wA := generalizedInverseMass(bodyA, rA, n)
	wB := generalizedInverseMass(bodyB, rB, n)
	if wA+wB < 1e-12 {
		return
	}

	deltaLagrange := lagrangeUpdate(*lagrange, c, wA+wB, compliance, dt)
	*lagrange += deltaLagrange
	applyPositionalCorrection(bodyA, bodyB, deltaLagrange, n, rA, rB)
}

// solvePoint pulls two world-space anchors together (ball joint).
func solvePoint(bodyA, bodyB *actor.RigidBody, localA, localB mgl64.Vec2, lagrange *float64, compliance, dt float64) {
	pa := bodyA.Transform.Apply(localA)
	pb := bodyB.Transform.Apply(localB)

	delta := pa.Sub(pb)
	c := delta.Len()
	if c < 1e-9 {
		return
	}
	n := delta.Mul(1.0 / c)
	solveAlong(bodyA, bodyB, pa, pb, n, c, lagrange, compliance, dt)
}

// solveAngle locks the relative angle θB − θA to a target, two-sided.
func solveAngle(bodyA, bodyB *actor.RigidBody, target float64, lagrange *float64, compliance, dt float64) {
	c := wrapAngle(bodyB.Transform.Rotation.Angle() - bodyA.Transform.Rotation.Angle() - target)
	if math.Abs(c) < 1e-12 {
		return
	}
	solveAngleError(bodyA, bodyB, c, lagrange, compliance, dt)
}

func solveAngleError(bodyA, bodyB *actor.RigidBody, c float64, lagrange *float64, compliance, dt float64) {
	wSum := bodyA.InvInertia() + bodyB.InvInertia()
	if wSum < 1e-12 {
		return
	}
	deltaLagrange := lagrangeUpdate(*lagrange, c, wSum, compliance, dt)
	*lagrange += deltaLagrange
	applyAngularCorrection(bodyA, bodyB, deltaLagrange)
}

// dampRelativeVelocities bleeds off the relative velocity of a jointed
// pair, conserving momentum. Factors are clamped to a full stop at
// damping·dt = 1.
func dampRelativeVelocities(bodyA, bodyB *actor.RigidBody, linearDamping, angularDamping, dt float64) {
	if bodyA.IsSleeping && bodyB.IsSleeping {
		return
	}

	if linearDamping > 0 {
		wSum := bodyA.InvMass() + bodyB.InvMass()
		if wSum > 1e-12 {
			deltaV := bodyB.Velocity.Sub(bodyA.Velocity).Mul(math.Min(linearDamping*dt, 1))
			p := deltaV.Mul(1.0 / wSum)
			if bodyA.BodyType == actor.BodyTypeDynamic {
				bodyA.Velocity = bodyA.Velocity.Add(p.Mul(bodyA.InvMass()))
			}
			if bodyB.BodyType == actor.BodyTypeDynamic {
				bodyB.Velocity = bodyB.Velocity.Sub(p.Mul(bodyB.InvMass()))
			}
		}
	}

	if angularDamping > 0 {
		wSum := bodyA.InvInertia() + bodyB.InvInertia()
		if wSum > 1e-12 {
			deltaW := (bodyB.AngularVelocity - bodyA.AngularVelocity) * math.Min(angularDamping*dt, 1)
			p := deltaW / wSum
			if bodyA.BodyType == actor.BodyTypeDynamic {
				bodyA.AngularVelocity += p * bodyA.InvInertia()
			}
			if bodyB.BodyType == actor.BodyTypeDynamic {
				bodyB.AngularVelocity -= p * bodyB.InvInertia()
			}
		}
	}
}
