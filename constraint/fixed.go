package constraint

import (
	"github.com/akmonengine/plume/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// FixedJoint welds two bodies together: the anchors coincide and the
// relative angle is locked. A positive compliance turns it into a
// flexible weld.
type FixedJoint struct {
	BodyA *actor.RigidBody
	BodyB *actor.RigidBody

	LocalAnchorA mgl64.Vec2
	LocalAnchorB mgl64.Vec2

	ReferenceAngle float64

	Compliance     float64
	LinearDamping  float64
	AngularDamping float64

	PointLagrange float64
	AngleLagrange float64

	force mgl64.Vec2
}

func NewFixedJoint(bodyA, bodyB *actor.RigidBody, worldAnchor mgl64.Vec2) *FixedJoint {
	return &FixedJoint{
		BodyA:        bodyA,
		BodyB:        bodyB,
		LocalAnchorA: bodyA.Transform.ApplyInv(worldAnchor),
		LocalAnchorB: bodyB.Transform.ApplyInv(worldAnchor),
		ReferenceAngle: wrapAngle(bodyB.Transform.Rotation.Angle() -
			bodyA.Transform.Rotation.Angle()),
	}
}

func (j *FixedJoint) WithCompliance(compliance float64) *FixedJoint {
	j.Compliance = compliance
	return j
}

func (j *FixedJoint) WithDamping(linear, angular float64) *FixedJoint {
	j.LinearDamping = linear
	j.AngularDamping = angular
	return j
}

func (j *FixedJoint) Bodies() (*actor.RigidBody, *actor.RigidBody) {
	return j.BodyA, j.BodyB
}

func (j *FixedJoint) ClearLagrange() {
	j.PointLagrange = 0
	j.AngleLagrange = 0
}

func (j *FixedJoint) DampVelocities(dt float64) {
	dampRelativeVelocities(j.BodyA, j.BodyB, j.LinearDamping, j.AngularDamping, dt)
}

func (j *FixedJoint) SolvePosition(dt float64) {
	if j.BodyA.IsSleeping && j.BodyB.IsSleeping {
		return
	}
	lockPair(j.BodyA, j.BodyB)
	defer unlockPair(j.BodyA, j.BodyB)

	solveAngle(j.BodyA, j.BodyB, j.ReferenceAngle, &j.AngleLagrange, j.Compliance, dt)
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

func (j *FixedJoint) SolveVelocity(dt float64) {}

func (j *FixedJoint) Force() mgl64.Vec2 {
	return j.force
}
