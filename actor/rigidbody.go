package actor

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

// BodyType represents the type of rigid body
type BodyType int

const (
	// BodyTypeDynamic bodies are affected by forces, gravity, and collisions
	// They have finite mass and can move freely
	BodyTypeDynamic BodyType = iota

	// BodyTypeStatic bodies are immovable and have infinite mass
	// They are not affected by forces or gravity (e.g., ground, walls)
	BodyTypeStatic

	// BodyTypeKinematic bodies follow their externally driven velocity
	// and are never corrected by the solver
	BodyTypeKinematic
)

var ErrNonPositiveMass = errors.New("dynamic body requires strictly positive mass")

type Material struct {
	Density     float64 `yaml:"density"`
	mass        float64
	Restitution float64 `yaml:"restitution"` // 0 = no rebound, 1 = perfect restitution

	StaticFriction  float64 `yaml:"static_friction"`
	DynamicFriction float64 `yaml:"dynamic_friction"`
	LinearDamping   float64 `yaml:"linear_damping"`  // 0.0 - 1.0, typique : 0.01
	AngularDamping  float64 `yaml:"angular_damping"` // 0.0 - 1.0, typique : 0.05
}

func (material Material) GetMass() float64 {
	return material.mass
}

// RigidBody represents a rigid body in the physics simulation
type RigidBody struct {
	// Spatial properties
	PreviousTransform Transform
	Transform         Transform

	// Linear motion
	PresolveVelocity mgl64.Vec2
	Velocity         mgl64.Vec2 // Linear velocity (m/s)

	// Angular motion
	PresolveAngularVelocity float64
	AngularVelocity         float64 // rad/s

	// Inverse mass properties: zero for static and kinematic bodies,
	// strictly positive for dynamic bodies
	invMass    float64
	invInertia float64

	accumulatedForce  mgl64.Vec2
	accumulatedTorque float64

	IsSleeping bool
	SleepTimer float64
	IslandID   int

	// Collision filtering: bodies interact when the world's layer
	// matrix allows their two layers
	Layer uint8

	// IsTrigger bodies report overlaps but produce no contact response
	IsTrigger bool

	// Physical properties
	Material Material
	BodyType BodyType // Dynamic, Static or Kinematic

	// Id is an optional host tag, never read by the engine
	Id any

	// Index is the stable handle slot assigned by the world store; it
	// also fixes the lock order when constraints are solved in parallel
	Index int

	// Collision shape; nil for pure joint anchor bodies
	Shape Shape

	Mutex sync.Mutex
}

// NewRigidBody creates a new rigid body with the given properties.
// density is used to calculate mass for dynamic bodies (ignored for
// static and kinematic). A dynamic body whose shape and density yield
// a non-positive mass is rejected rather than silently coerced.
func NewRigidBody(transform Transform, shape Shape, bodyType BodyType, density float64) (*RigidBody, error) {
	rb := &RigidBody{
		PreviousTransform: transform,
		Transform:         transform,
		Shape:             shape,
		BodyType:          bodyType,
		Index:             -1,
	}
	if rb.Transform.Rotation == (Rot{}) {
		rb.Transform.Rotation = RotIdent()
		rb.PreviousTransform.Rotation = RotIdent()
	}

	if bodyType == BodyTypeDynamic {
		if shape == nil {
			return nil, errors.New("dynamic body requires a collision shape")
		}
		mass := shape.ComputeMass(density)
		if mass <= 0 || math.IsNaN(mass) || math.IsInf(mass, 0) {
			return nil, fmt.Errorf("%w: shape %T with density %v gives mass %v",
				ErrNonPositiveMass, shape, density, mass)
		}
		rb.Material = Material{Density: density, mass: mass}
		rb.invMass = 1.0 / mass

		// The body rotates about its origin, so the inertia is shifted
		// from the shape centroid by the parallel axis theorem
		centroid := shape.Centroid()
		inertia := shape.ComputeInertia(mass) + mass*centroid.Dot(centroid)
		if inertia > 0 {
			rb.invInertia = 1.0 / inertia
		}
	} else {
		rb.Material = Material{mass: math.Inf(1)}
	}

	if rb.Shape != nil {
		rb.Shape.ComputeAABB(rb.Transform)
	}

	return rb, nil
}

// NewAnchor creates a shapeless static body usable as a world-space
// joint attachment.
func NewAnchor(position mgl64.Vec2) *RigidBody {
	rb, _ := NewRigidBody(NewTransform(position, 0), nil, BodyTypeStatic, 0)
	return rb
}

// InvMass returns the inverse mass, zero for non-dynamic bodies.
func (rb *RigidBody) InvMass() float64 {
	return rb.invMass
}

// InvInertia returns the inverse rotational inertia, zero for
// non-dynamic bodies.
func (rb *RigidBody) InvInertia() float64 {
	return rb.invInertia
}

func (rb *RigidBody) Sleep() {
	rb.IsSleeping = true
	rb.SleepTimer = 0.0

	if rb.Shape != nil {
		rb.Shape.ComputeAABB(rb.Transform)
	}
	rb.ClearForces()
	rb.Velocity = mgl64.Vec2{}
	rb.AngularVelocity = 0
}

func (rb *RigidBody) Awake() {
	rb.IsSleeping = false
	rb.SleepTimer = 0.0
}

// BelowSleepThresholds reports whether the body moves slowly enough to
// accumulate sleep time.
func (rb *RigidBody) BelowSleepThresholds(linear, angular float64) bool {
	return rb.Velocity.Len() < linear && math.Abs(rb.AngularVelocity) < angular
}

// Integrate predicts the next transform for one substep: external
// acceleration and damping applied to the velocity, then an explicit
// position/rotation step. The prediction is what the constraint
// solver corrects afterwards.
func (rb *RigidBody) Integrate(dt float64, gravity mgl64.Vec2) {
	if rb.BodyType == BodyTypeStatic || rb.IsSleeping {
		return
	}

	rb.PreviousTransform = rb.Transform

	if rb.BodyType == BodyTypeDynamic {
		rb.Velocity = rb.Velocity.Add(gravity.Add(rb.accumulatedForce.Mul(rb.invMass)).Mul(dt))
		rb.Velocity = rb.Velocity.Mul(math.Exp(-rb.Material.LinearDamping * dt))

		rb.AngularVelocity += rb.accumulatedTorque * rb.invInertia * dt
		rb.AngularVelocity *= math.Exp(-rb.Material.AngularDamping * dt)
	}

	rb.Transform.Position = rb.Transform.Position.Add(rb.Velocity.Mul(dt))
	rb.Transform.Rotation = MakeRot(rb.Transform.Rotation.Angle() + rb.AngularVelocity*dt)

	rb.PresolveVelocity = rb.Velocity
	rb.PresolveAngularVelocity = rb.AngularVelocity

	if rb.Shape != nil {
		rb.Shape.ComputeAABB(rb.Transform)
	}
	rb.ClearForces()
}

// Update derives the velocities from the transform delta accumulated
// over the substep. This is the XPBD step: velocity is a consequence
// of the position change, not of integrated forces.
func (rb *RigidBody) Update(dt float64) {
	if rb.BodyType != BodyTypeDynamic || rb.IsSleeping {
		return
	}

	rb.Velocity = rb.Transform.Position.Sub(rb.PreviousTransform.Position).Mul(1.0 / dt)

	// MulT measures the shortest signed angle between the two rotations
	delta := rb.PreviousTransform.Rotation.MulT(rb.Transform.Rotation)
	rb.AngularVelocity = delta.Angle() / dt
}

// AddForce accumulates a force in N, applied at the next integration
func (rb *RigidBody) AddForce(force mgl64.Vec2) {
	if rb.BodyType == BodyTypeDynamic {
		rb.Awake()
		rb.accumulatedForce = rb.accumulatedForce.Add(force)
	}
}

// AddTorque accumulates a torque in N⋅m
func (rb *RigidBody) AddTorque(torque float64) {
	if rb.BodyType == BodyTypeDynamic {
		rb.Awake()
		rb.accumulatedTorque += torque
	}
}

// ApplyImpulse changes the velocity immediately, as if an impulse in
// N⋅s hit the body at the given world-space point.
func (rb *RigidBody) ApplyImpulse(impulse mgl64.Vec2, point mgl64.Vec2) {
	if rb.BodyType != BodyTypeDynamic {
		return
	}
	rb.Awake()
	rb.Velocity = rb.Velocity.Add(impulse.Mul(rb.invMass))
	rb.AngularVelocity += rb.invInertia * Cross(point.Sub(rb.Transform.Position), impulse)
}

// VelocityAt returns the velocity of a world-space point on the body.
func (rb *RigidBody) VelocityAt(point mgl64.Vec2) mgl64.Vec2 {
	return rb.Velocity.Add(CrossScalar(rb.AngularVelocity, point.Sub(rb.Transform.Position)))
}

func (rb *RigidBody) ClearForces() {
	rb.accumulatedForce = mgl64.Vec2{}
	rb.accumulatedTorque = 0
}
