// Package constraint implements the XPBD position-based constraints:
// contacts and joints. Each constraint corrects the predicted
// transforms of its two bodies directly, accumulating a Lagrange
// multiplier; velocities are reconciled afterwards by the world's
// velocity pass.
package constraint

import (
	"math"

	"github.com/akmonengine/plume/actor"
	"github.com/go-gl/mathgl/mgl64"
)

type Constraint interface {
	SolvePosition(dt float64)
	SolveVelocity(dt float64)
	Bodies() (*actor.RigidBody, *actor.RigidBody)
}

func ComputeRestitution(matA, matB actor.Material) float64 {
	// If one bounces, it bounces
	return math.Max(matA.Restitution, matB.Restitution)
}

func ComputeStaticFriction(matA, matB actor.Material) float64 {
	// Moyenne géométrique (standard en physique)
	return math.Sqrt(matA.StaticFriction * matB.StaticFriction)
}

func ComputeDynamicFriction(matA, matB actor.Material) float64 {
	return math.Sqrt(matA.DynamicFriction * matB.DynamicFriction)
}

// lockPair acquires both body mutexes in handle order, so parallel
// constraint batches never deadlock on a shared body.
func lockPair(bodyA, bodyB *actor.RigidBody) {
	if bodyA.Index <= bodyB.Index {
		bodyA.Mutex.Lock()
		bodyB.Mutex.Lock()
	} else {
		bodyB.Mutex.Lock()
		bodyA.Mutex.Lock()
	}
}

func unlockPair(bodyA, bodyB *actor.RigidBody) {
	bodyA.Mutex.Unlock()
	bodyB.Mutex.Unlock()
}

// generalizedInverseMass projects a body's inverse mass and inertia
// along a constraint gradient: w = m⁻¹ + I⁻¹ (r × n)².
func generalizedInverseMass(body *actor.RigidBody, r, n mgl64.Vec2) float64 {
	rn := actor.Cross(r, n)
	return body.InvMass() + body.InvInertia()*rn*rn
}

// lagrangeUpdate is the XPBD multiplier update:
// Δλ = (−C − α̃λ) / (Σw + α̃), with α̃ = compliance / dt².
func lagrangeUpdate(lagrange, c, wSum, compliance, dt float64) float64 {
	alphaTilde := compliance / (dt * dt)
	return (-c - alphaTilde*lagrange) / (wSum + alphaTilde)
}

// applyPositionalCorrection moves both bodies by the impulse Δλ·n,
// weighted by their inverse mass shares. The constraint value is
// measured as C = (pA − pB)·n, so a negative Δλ separates the pair.
func applyPositionalCorrection(bodyA, bodyB *actor.RigidBody, deltaLagrange float64, n, rA, rB mgl64.Vec2) {
	impulse := n.Mul(deltaLagrange)

	if bodyA.BodyType == actor.BodyTypeDynamic {
		bodyA.Transform.Position = bodyA.Transform.Position.Add(impulse.Mul(bodyA.InvMass()))
		rotate(bodyA, bodyA.InvInertia()*actor.Cross(rA, impulse))
	}
	if bodyB.BodyType == actor.BodyTypeDynamic {
		bodyB.Transform.Position = bodyB.Transform.Position.Sub(impulse.Mul(bodyB.InvMass()))
		rotate(bodyB, -bodyB.InvInertia()*actor.Cross(rB, impulse))
	}
}

// applyAngularCorrection corrects a relative-angle constraint
// C = θB − θA − θ₀: body A turns towards B's orientation and vice
// versa, shared by inverse inertia.
func applyAngularCorrection(bodyA, bodyB *actor.RigidBody, deltaLagrange float64) {
	if bodyA.BodyType == actor.BodyTypeDynamic {
		rotate(bodyA, -deltaLagrange*bodyA.InvInertia())
	}
	if bodyB.BodyType == actor.BodyTypeDynamic {
		rotate(bodyB, deltaLagrange*bodyB.InvInertia())
	}
}

func rotate(body *actor.RigidBody, deltaAngle float64) {
	if deltaAngle == 0 {
		return
	}
	body.Transform.Rotation = actor.MakeRot(body.Transform.Rotation.Angle() + deltaAngle)
}

// wrapAngle maps an angle to (-π, π].
func wrapAngle(angle float64) float64 {
	for angle > math.Pi {
		angle -= 2 * math.Pi
	}
	for angle <= -math.Pi {
		angle += 2 * math.Pi
	}
	return angle
}

func clampSmallVelocities(rb *actor.RigidBody) {
	const velocityThreshold = 1e-5

	if rb.Velocity.Len() < velocityThreshold {
		rb.Velocity = mgl64.Vec2{}
	}
	if math.Abs(rb.AngularVelocity) < velocityThreshold {
		rb.AngularVelocity = 0
	}
}
