package constraint

import (
	"math"

	"github.com/akmonengine/plume/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// PrismaticJoint constrains body B to slide along an axis fixed in
// body A's frame, with the relative angle locked. Travel limits bound
// the translation along the axis.
type PrismaticJoint struct {
	BodyA *actor.RigidBody
	BodyB *actor.RigidBody

	LocalAnchorA mgl64.Vec2
	LocalAnchorB mgl64.Vec2
	// LocalAxis is the slide direction in body A's frame, unit length
	LocalAxis mgl64.Vec2

	ReferenceAngle   float64
	LowerTranslation float64
	UpperTranslation float64
	EnableLimit      bool

	Compliance     float64
	LinearDamping  float64
	AngularDamping float64

	PerpLagrange  float64
	AngleLagrange float64
	LimitLagrange float64

	force mgl64.Vec2
}

// NewPrismaticJoint creates a slider through a world-space anchor along
// a world-space axis.
func NewPrismaticJoint(bodyA, bodyB *actor.RigidBody, worldAnchor, worldAxis mgl64.Vec2) *PrismaticJoint {
	return &PrismaticJoint{
		BodyA:        bodyA,
		BodyB:        bodyB,
		LocalAnchorA: bodyA.Transform.ApplyInv(worldAnchor),
		LocalAnchorB: bodyB.Transform.ApplyInv(worldAnchor),
		LocalAxis:    bodyA.Transform.Rotation.RotateInv(worldAxis.Normalize()),
		ReferenceAngle: wrapAngle(bodyB.Transform.Rotation.Angle() -
			bodyA.Transform.Rotation.Angle()),
	}
}

func (j *PrismaticJoint) WithLimits(lower, upper float64) *PrismaticJoint {
	j.LowerTranslation = lower
	j.UpperTranslation = upper
	j.EnableLimit = true
	return j
}

func (j *PrismaticJoint) WithCompliance(compliance float64) *PrismaticJoint {
	j.Compliance = compliance
	return j
}

func (j *PrismaticJoint) WithDamping(linear, angular float64) *PrismaticJoint {
	j.LinearDamping = linear
	j.AngularDamping = angular
	return j
}

func (j *PrismaticJoint) Bodies() (*actor.RigidBody, *actor.RigidBody) {
	return j.BodyA, j.BodyB
}

func (j *PrismaticJoint) ClearLagrange() {
	j.PerpLagrange = 0
	j.AngleLagrange = 0
	j.LimitLagrange = 0
}

func (j *PrismaticJoint) DampVelocities(dt float64) {
	dampRelativeVelocities(j.BodyA, j.BodyB, j.LinearDamping, j.AngularDamping, dt)
}

// Translation returns the current slide offset of B's anchor along the
// axis, measured from A's anchor.
func (j *PrismaticJoint) Translation() float64 {
	axis := j.BodyA.Transform.Rotation.Rotate(j.LocalAxis)
	pa := j.BodyA.Transform.Apply(j.LocalAnchorA)
	pb := j.BodyB.Transform.Apply(j.LocalAnchorB)
	return pb.Sub(pa).Dot(axis)
}

func (j *PrismaticJoint) SolvePosition(dt float64) {
	if j.BodyA.IsSleeping && j.BodyB.IsSleeping {
		return
	}
	lockPair(j.BodyA, j.BodyB)
	defer unlockPair(j.BodyA, j.BodyB)

	solveAngle(j.BodyA, j.BodyB, j.ReferenceAngle, &j.AngleLagrange, j.Compliance, dt)

	axis := j.BodyA.Transform.Rotation.Rotate(j.LocalAxis)
	perp := actor.Perp(axis)

	pa := j.BodyA.Transform.Apply(j.LocalAnchorA)
	pb := j.BodyB.Transform.Apply(j.LocalAnchorB)

	// Kill the drift perpendicular to the axis
	cPerp := pa.Sub(pb).Dot(perp)
	if math.Abs(cPerp) > 1e-12 {
		solveAlong(j.BodyA, j.BodyB, pa, pb, perp, cPerp, &j.PerpLagrange, j.Compliance, dt)
		pa = j.BodyA.Transform.Apply(j.LocalAnchorA)
		pb = j.BodyB.Transform.Apply(j.LocalAnchorB)
	}

	if j.EnableLimit {
		s := pb.Sub(pa).Dot(axis)
		switch {
		case s > j.UpperTranslation:
			solveAlong(j.BodyA, j.BodyB, pa, pb, axis.Mul(-1), s-j.UpperTranslation,
				&j.LimitLagrange, j.Compliance, dt)
		case s < j.LowerTranslation:
			solveAlong(j.BodyA, j.BodyB, pa, pb, axis, j.LowerTranslation-s,
				&j.LimitLagrange, j.Compliance, dt)
		}
	}

	j.force = perp.Mul(j.PerpLagrange / (dt * dt)).Add(axis.Mul(j.LimitLagrange / (dt * dt)))
}

func (j *PrismaticJoint) SolveVelocity(dt float64) {}

func (j *PrismaticJoint) Force() mgl64.Vec2 {
	return j.force
}
