package constraint

import (
	"math"

	"github.com/akmonengine/plume/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// DistanceJoint keeps two anchor points at a rest length, or inside a
// [min, max] range when limits are set. With a positive compliance it
// behaves as a spring.
type DistanceJoint struct {
	BodyA *actor.RigidBody
	BodyB *actor.RigidBody

	LocalAnchorA mgl64.Vec2
	LocalAnchorB mgl64.Vec2

	RestLength float64
	MinLength  float64
	MaxLength  float64
	HasLimits  bool

	Compliance     float64
	LinearDamping  float64
	AngularDamping float64

	Lagrange float64
	// force is the constraint force of the last substep, λ·n/dt²
	force mgl64.Vec2
}

func NewDistanceJoint(bodyA, bodyB *actor.RigidBody) *DistanceJoint {
	j := &DistanceJoint{BodyA: bodyA, BodyB: bodyB}
	j.RestLength = bodyA.Transform.Position.Sub(bodyB.Transform.Position).Len()
	return j
}

func (j *DistanceJoint) WithAnchors(localA, localB mgl64.Vec2) *DistanceJoint {
	j.LocalAnchorA = localA
	j.LocalAnchorB = localB
	pa := j.BodyA.Transform.Apply(localA)
	pb := j.BodyB.Transform.Apply(localB)
	j.RestLength = pa.Sub(pb).Len()
	return j
}

func (j *DistanceJoint) WithRestLength(length float64) *DistanceJoint {
	j.RestLength = length
	return j
}

// WithLimits replaces the rest length by a free range [min, max].
func (j *DistanceJoint) WithLimits(min, max float64) *DistanceJoint {
	j.MinLength = min
	j.MaxLength = max
	j.HasLimits = true
	return j
}

func (j *DistanceJoint) WithCompliance(compliance float64) *DistanceJoint {
	j.Compliance = compliance
	return j
}

func (j *DistanceJoint) WithDamping(linear, angular float64) *DistanceJoint {
	j.LinearDamping = linear
	j.AngularDamping = angular
	return j
}

func (j *DistanceJoint) Bodies() (*actor.RigidBody, *actor.RigidBody) {
	return j.BodyA, j.BodyB
}

func (j *DistanceJoint) ClearLagrange() {
	j.Lagrange = 0
}

func (j *DistanceJoint) DampVelocities(dt float64) {
	dampRelativeVelocities(j.BodyA, j.BodyB, j.LinearDamping, j.AngularDamping, dt)
}

func (j *DistanceJoint) SolvePosition(dt float64) {
	if j.BodyA.IsSleeping && j.BodyB.IsSleeping {
		return
	}
	lockPair(j.BodyA, j.BodyB)
	defer unlockPair(j.BodyA, j.BodyB)

	pa := j.BodyA.Transform.Apply(j.LocalAnchorA)
	pb := j.BodyB.Transform.Apply(j.LocalAnchorB)
	delta := pa.Sub(pb)
	length := delta.Len()
	if length < 1e-9 {
		return
	}

	var c float64
	if j.HasLimits {
		switch {
		case length > j.MaxLength:
			c = length - j.MaxLength
		case length < j.MinLength:
			c = length - j.MinLength
		default:
			j.force = mgl64.Vec2{}
			return
		}
	} else {
		c = length - j.RestLength
	}
	if math.Abs(c) < 1e-12 {
		j.force = mgl64.Vec2{}
		return
	}

	n := delta.Mul(1.0 / length)
	solveAlong(j.BodyA, j.BodyB, pa, pb, n, c, &j.Lagrange, j.Compliance, dt)
	j.force = n.Mul(j.Lagrange / (dt * dt))
}

func (j *DistanceJoint) SolveVelocity(dt float64) {}

// Force reports the constraint force applied during the last substep.
func (j *DistanceJoint) Force() mgl64.Vec2 {
	return j.force
}
