package constraint

import (
	"github.com/akmonengine/plume/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// RevoluteJoint pins two bodies at a shared point (a hinge), optionally
// limiting the relative angle to [lower, upper].
type RevoluteJoint struct {
	BodyA *actor.RigidBody
	BodyB *actor.RigidBody

	LocalAnchorA mgl64.Vec2
	LocalAnchorB mgl64.Vec2

	// ReferenceAngle is the relative angle θB − θA at rest; the limits
	// are measured from it
	ReferenceAngle float64
	LowerAngle     float64
	UpperAngle     float64
	EnableLimit    bool

	Compliance     float64
	LinearDamping  float64
	AngularDamping float64

	PointLagrange float64
	AngleLagrange float64

	force mgl64.Vec2
}

// NewRevoluteJoint creates a hinge at a world-space pivot, converting
// it into each body's local frame.
func NewRevoluteJoint(bodyA, bodyB *actor.RigidBody, worldPivot mgl64.Vec2) *RevoluteJoint {
	return &RevoluteJoint{
		BodyA:        bodyA,
		BodyB:        bodyB,
		LocalAnchorA: bodyA.Transform.ApplyInv(worldPivot),
		LocalAnchorB: bodyB.Transform.ApplyInv(worldPivot),
		ReferenceAngle: wrapAngle(bodyB.Transform.Rotation.Angle() -
			bodyA.Transform.Rotation.Angle()),
	}
}

func (j *RevoluteJoint) WithLimits(lower, upper float64) *RevoluteJoint {
	j.LowerAngle = lower
	j.UpperAngle = upper
	j.EnableLimit = true
	return j
}

func (j *RevoluteJoint) WithCompliance(compliance float64) *RevoluteJoint {
	j.Compliance = compliance
	return j
}

func (j *RevoluteJoint) WithDamping(linear, angular float64) *RevoluteJoint {
	j.LinearDamping = linear
	j.AngularDamping = angular
	return j
}

func (j *RevoluteJoint) Bodies() (*actor.RigidBody, *actor.RigidBody) {
	return j.BodyA, j.BodyB
}

func (j *RevoluteJoint) ClearLagrange() {
	j.PointLagrange = 0
	j.AngleLagrange = 0
}

func (j *RevoluteJoint) DampVelocities(dt float64) {
	dampRelativeVelocities(j.BodyA, j.BodyB, j.LinearDamping, j.AngularDamping, dt)
}

func (j *RevoluteJoint) SolvePosition(dt float64) {
	if j.BodyA.IsSleeping && j.BodyB.IsSleeping {
		return
	}
	lockPair(j.BodyA, j.BodyB)
	defer unlockPair(j.BodyA, j.BodyB)

	if j.EnableLimit {
		rel := wrapAngle(j.BodyB.Transform.Rotation.Angle() -
			j.BodyA.Transform.Rotation.Angle() - j.ReferenceAngle)
		// One-sided: only a violated bound produces a correction
		switch {
		case rel < j.LowerAngle:
			solveAngleError(j.BodyA, j.BodyB, rel-j.LowerAngle, &j.AngleLagrange, j.Compliance, dt)
		case rel > j.UpperAngle:
			solveAngleError(j.BodyA, j.BodyB, rel-j.UpperAngle, &j.AngleLagrange, j.Compliance, dt)
		}
	}

	solvePoint(j.BodyA, j.BodyB, j.LocalAnchorA, j.LocalAnchorB, &j.PointLagrange, j.Compliance, dt)

	pa := j.BodyA.Transform.Apply(j.LocalAnchorA)
	pb := j.BodyB.Transform.Apply(j.LocalAnchorB)
	delta := pa.Sub(pb)
	if length := delta.Len(); length > 1e-9 {
		j.force = delta.Mul(j.PointLagrange / length / (dt * dt))
	} else {
		j.force = mgl64.Vec2{}
	}
}

func (j *RevoluteJoint) SolveVelocity(dt float64) {}

func (j *RevoluteJoint) Force() mgl64.Vec2 {
	return j.force
}
