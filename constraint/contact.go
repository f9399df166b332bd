package constraint

import (
	"math"

	"github.com/akmonengine/plume/actor"
	"github.com/akmonengine/plume/collide"
	"github.com/go-gl/mathgl/mgl64"
)

// ContactPoint is one point of a contact manifold, anchored in each
// body's local space so the violation can be re-measured as the solver
// moves the bodies.
type ContactPoint struct {
	LocalA, LocalB mgl64.Vec2
	Feature        collide.Feature

	NormalLagrange  float64
	TangentLagrange float64
}

// ContactConstraint prevents overlap between two bodies. The normal is
// stored in body A's local frame and points from A to B; the
// penetration is (pA − pB)·n, positive when overlapping.
type ContactConstraint struct {
	BodyA *actor.RigidBody
	BodyB *actor.RigidBody

	LocalNormal mgl64.Vec2
	Points      []ContactPoint

	// Compliance is the inverse stiffness; zero for rigid contact
	Compliance float64
	// MaxCorrection bounds the positional correction per solve, so a
	// deep overlap is resolved over several substeps instead of one
	// energy-injecting jump
	MaxCorrection float64
	// RestitutionCutoff zeroes restitution for near-resting normal
	// velocities (typically 2·|g|·dt) to avoid jitter
	RestitutionCutoff float64

	Restitution     float64
	StaticFriction  float64
	DynamicFriction float64

	// Clamped is raised when MaxCorrection kicked in, so the world can
	// report the degradation
	Clamped bool
}

// NewContact builds a contact constraint from a narrow-phase manifold.
// Material responses are combined here; solver tuning fields are set
// by the world.
func NewContact(bodyA, bodyB *actor.RigidBody, manifold collide.Manifold) *ContactConstraint {
	c := &ContactConstraint{
		BodyA:           bodyA,
		BodyB:           bodyB,
		LocalNormal:     bodyA.Transform.Rotation.RotateInv(manifold.Normal),
		Restitution:     ComputeRestitution(bodyA.Material, bodyB.Material),
		StaticFriction:  ComputeStaticFriction(bodyA.Material, bodyB.Material),
		DynamicFriction: ComputeDynamicFriction(bodyA.Material, bodyB.Material),
		MaxCorrection:   math.MaxFloat64,
	}

	c.Points = make([]ContactPoint, 0, len(manifold.Points))
	for _, p := range manifold.Points {
		// Split the midpoint back into a surface anchor on each body
		offset := manifold.Normal.Mul(p.Penetration * 0.5)
		c.Points = append(c.Points, ContactPoint{
			LocalA:  bodyA.Transform.ApplyInv(p.Position.Add(offset)),
			LocalB:  bodyB.Transform.ApplyInv(p.Position.Sub(offset)),
			Feature: p.Feature,
		})
	}

	return c
}

func (c *ContactConstraint) Bodies() (*actor.RigidBody, *actor.RigidBody) {
	return c.BodyA, c.BodyB
}

// SolvePosition corrects the predicted transforms so the bodies no
// longer overlap, then handles static friction as a positional
// constraint on the tangential motion of the contact points.
func (c *ContactConstraint) SolvePosition(dt float64) {
	if len(c.Points) == 0 {
		return
	}
	if c.BodyA.IsSleeping && c.BodyB.IsSleeping {
		return
	}

	bodyA, bodyB := c.BodyA, c.BodyB
	lockPair(bodyA, bodyB)
	defer unlockPair(bodyA, bodyB)

	for i := range c.Points {
		pt := &c.Points[i]

		normal := bodyA.Transform.Rotation.Rotate(c.LocalNormal)
		pa := bodyA.Transform.Apply(pt.LocalA)
		pb := bodyB.Transform.Apply(pt.LocalB)

		// Re-measure the violation at the current predicted transforms
		penetration := pa.Sub(pb).Dot(normal)
		if penetration <= 0 {
			continue
		}
		if penetration > c.MaxCorrection {
			penetration = c.MaxCorrection
			c.Clamped = true
		}

		rA := pa.Sub(bodyA.Transform.Position)
		rB := pb.Sub(bodyB.Transform.Position)

		wA := generalizedInverseMass(bodyA, rA, normal)
		wB := generalizedInverseMass(bodyB, rB, normal)
		if wA+wB < 1e-12 {
			continue
		}

		deltaLagrange := lagrangeUpdate(pt.NormalLagrange, penetration, wA+wB, c.Compliance, dt)
		pt.NormalLagrange += deltaLagrange
		applyPositionalCorrection(bodyA, bodyB, deltaLagrange, normal, rA, rB)

		c.solveStaticFriction(pt, normal, dt)
	}
}

// solveStaticFriction cancels the tangential drift of the contact
// points while it stays inside the static friction cone
// (|Δx_t| < μs · penetration).
func (c *ContactConstraint) solveStaticFriction(pt *ContactPoint, normal mgl64.Vec2, dt float64) {
	bodyA, bodyB := c.BodyA, c.BodyB

	pa := bodyA.Transform.Apply(pt.LocalA)
	pb := bodyB.Transform.Apply(pt.LocalB)
	penetration := pa.Sub(pb).Dot(normal)
	if penetration <= 0 {
		return
	}

	deltaA := pa.Sub(bodyA.PreviousTransform.Apply(pt.LocalA))
	deltaB := pb.Sub(bodyB.PreviousTransform.Apply(pt.LocalB))
	deltaP := deltaA.Sub(deltaB)
	tangential := deltaP.Sub(normal.Mul(deltaP.Dot(normal)))

	sliding := tangential.Len()
	if sliding <= 1e-9 || sliding >= c.StaticFriction*penetration {
		return
	}
	tangent := tangential.Mul(1.0 / sliding)

	rA := pa.Sub(bodyA.Transform.Position)
	rB := pb.Sub(bodyB.Transform.Position)
	wA := generalizedInverseMass(bodyA, rA, tangent)
	wB := generalizedInverseMass(bodyB, rB, tangent)
	if wA+wB < 1e-12 {
		return
	}

	deltaLagrange := lagrangeUpdate(pt.TangentLagrange, sliding, wA+wB, c.Compliance, dt)
	pt.TangentLagrange += deltaLagrange
	applyPositionalCorrection(bodyA, bodyB, deltaLagrange, tangent, rA, rB)
}

// SolveVelocity reconciles the derived velocities with the contact:
// restitution against the pre-solve normal velocity, and dynamic
// Coulomb friction clamped by the accumulated normal impulse.
func (c *ContactConstraint) SolveVelocity(dt float64) {
	if len(c.Points) == 0 {
		return
	}
	if c.BodyA.IsSleeping && c.BodyB.IsSleeping {
		return
	}

	bodyA, bodyB := c.BodyA, c.BodyB
	lockPair(bodyA, bodyB)
	defer unlockPair(bodyA, bodyB)

	for i := range c.Points {
		pt := &c.Points[i]
		if pt.NormalLagrange == 0 {
			continue
		}

		normal := bodyA.Transform.Rotation.Rotate(c.LocalNormal)
		pa := bodyA.Transform.Apply(pt.LocalA)
		pb := bodyB.Transform.Apply(pt.LocalB)
		rA := pa.Sub(bodyA.Transform.Position)
		rB := pb.Sub(bodyB.Transform.Position)

		// Relative velocity of B with respect to A at the contact;
		// approaching contacts have a negative normal component
		relVel := bodyB.VelocityAt(pb).Sub(bodyA.VelocityAt(pa))
		normalVel := relVel.Dot(normal)

		preA := bodyA.PresolveVelocity.Add(actor.CrossScalar(bodyA.PresolveAngularVelocity, rA))
		preB := bodyB.PresolveVelocity.Add(actor.CrossScalar(bodyB.PresolveAngularVelocity, rB))
		preNormalVel := preB.Sub(preA).Dot(normal)

		restitution := c.Restitution
		if math.Abs(preNormalVel) <= c.RestitutionCutoff*dt {
			// Resting contact: restitution would only feed jitter
			restitution = 0
		}

		wA := generalizedInverseMass(bodyA, rA, normal)
		wB := generalizedInverseMass(bodyB, rB, normal)
		if wA+wB >= 1e-12 {
			deltaNormalVel := -normalVel + math.Max(-restitution*preNormalVel, 0)
			impulse := normal.Mul(deltaNormalVel / (wA + wB))
			applyVelocityImpulse(bodyA, bodyB, impulse, rA, rB)
		}

		// Dynamic friction
		relVel = bodyB.VelocityAt(pb).Sub(bodyA.VelocityAt(pa))
		tangentVel := relVel.Sub(normal.Mul(relVel.Dot(normal)))
		tangentSpeed := tangentVel.Len()
		if tangentSpeed <= 1e-9 {
			continue
		}
		tangent := tangentVel.Mul(1.0 / tangentSpeed)

		wAt := generalizedInverseMass(bodyA, rA, tangent)
		wBt := generalizedInverseMass(bodyB, rB, tangent)
		if wAt+wBt < 1e-12 {
			continue
		}

		// Coulomb's law: the velocity change cannot exceed what the
		// normal impulse allows, Δv_t ≤ μ_d |λ_n| / dt
		maxDeltaVel := c.DynamicFriction * math.Abs(pt.NormalLagrange) / dt
		deltaVel := math.Min(maxDeltaVel, tangentSpeed)
		impulse := tangent.Mul(-deltaVel / (wAt + wBt))
		applyVelocityImpulse(bodyA, bodyB, impulse, rA, rB)
	}

	clampSmallVelocities(bodyA)
	clampSmallVelocities(bodyB)
}

// applyVelocityImpulse adds +p to body B and −p to body A at the
// given contact offsets, conserving momentum across the pair.
func applyVelocityImpulse(bodyA, bodyB *actor.RigidBody, p, rA, rB mgl64.Vec2) {
	if bodyA.BodyType == actor.BodyTypeDynamic {
		bodyA.Velocity = bodyA.Velocity.Sub(p.Mul(bodyA.InvMass()))
		bodyA.AngularVelocity -= bodyA.InvInertia() * actor.Cross(rA, p)
	}
	if bodyB.BodyType == actor.BodyTypeDynamic {
		bodyB.Velocity = bodyB.Velocity.Add(p.Mul(bodyB.InvMass()))
		bodyB.AngularVelocity += bodyB.InvInertia() * actor.Cross(rB, p)
	}
}
