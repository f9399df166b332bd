package actor

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestNewRigidBodyMassValidation(t *testing.T) {
	box, _ := NewBox(0.5, 0.5)

	tests := []struct {
		name    string
		shape   Shape
		density float64
		wantErr bool
	}{
		{"densite positive", box, 1.0, false},
		{"densite nulle", box, 0.0, true},
		{"densite negative", box, -1.0, true},
		{"sans shape", nil, 1.0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRigidBody(NewTransform(mgl64.Vec2{}, 0), tt.shape, BodyTypeDynamic, tt.density)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewRigidBody err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	if _, err := NewRigidBody(NewTransform(mgl64.Vec2{}, 0), box, BodyTypeDynamic, 0); !errors.Is(err, ErrNonPositiveMass) {
		t.Errorf("zero density error = %v, want ErrNonPositiveMass", err)
	}
}

func TestInverseMassInvariant(t *testing.T) {
	box, _ := NewBox(0.5, 0.5)

	dynamic, _ := NewRigidBody(NewTransform(mgl64.Vec2{}, 0), box, BodyTypeDynamic, 2.0)
	if dynamic.InvMass() <= 0 || dynamic.InvInertia() <= 0 {
		t.Errorf("dynamic body inverse mass %v, inverse inertia %v, both must be positive",
			dynamic.InvMass(), dynamic.InvInertia())
	}
	if math.Abs(dynamic.InvMass()-0.5) > epsilon {
		t.Errorf("invMass = %v, want 0.5 (mass 2)", dynamic.InvMass())
	}

	static, _ := NewRigidBody(NewTransform(mgl64.Vec2{}, 0), box, BodyTypeStatic, 2.0)
	kinematic, _ := NewRigidBody(NewTransform(mgl64.Vec2{}, 0), box, BodyTypeKinematic, 2.0)
	for _, rb := range []*RigidBody{static, kinematic} {
		if rb.InvMass() != 0 || rb.InvInertia() != 0 {
			t.Errorf("%v body has non-zero inverse mass properties", rb.BodyType)
		}
		if !math.IsInf(rb.Material.GetMass(), 1) {
			t.Errorf("%v body mass = %v, want +Inf", rb.BodyType, rb.Material.GetMass())
		}
	}
}

func TestIntegratePredictsTransform(t *testing.T) {
	box, _ := NewBox(0.5, 0.5)
	rb, _ := NewRigidBody(NewTransform(mgl64.Vec2{0, 10}, 0), box, BodyTypeDynamic, 1.0)

	dt := 1.0 / 60.0
	gravity := mgl64.Vec2{0, -10}
	rb.Integrate(dt, gravity)

	wantVel := mgl64.Vec2{0, -10.0 / 60.0}
	if !vecNear(rb.Velocity, wantVel, epsilon) {
		t.Errorf("velocity = %v, want %v", rb.Velocity, wantVel)
	}
	wantPos := mgl64.Vec2{0, 10 - 10.0/60.0/60.0}
	if !vecNear(rb.Transform.Position, wantPos, epsilon) {
		t.Errorf("position = %v, want %v", rb.Transform.Position, wantPos)
	}
	if rb.PreviousTransform.Position != (mgl64.Vec2{0, 10}) {
		t.Errorf("previous transform not captured: %v", rb.PreviousTransform.Position)
	}
	if !vecNear(rb.PresolveVelocity, rb.Velocity, epsilon) {
		t.Errorf("presolve velocity not captured")
	}
}

func TestIntegrateSkipsStaticAndSleeping(t *testing.T) {
	box, _ := NewBox(0.5, 0.5)

	static, _ := NewRigidBody(NewTransform(mgl64.Vec2{}, 0), box, BodyTypeStatic, 0)
	static.Integrate(1.0, mgl64.Vec2{0, -10})
	if static.Transform.Position != (mgl64.Vec2{}) {
		t.Error("static body moved during integration")
	}

	sleeping, _ := NewRigidBody(NewTransform(mgl64.Vec2{}, 0), box, BodyTypeDynamic, 1.0)
	sleeping.Sleep()
	sleeping.Integrate(1.0, mgl64.Vec2{0, -10})
	if sleeping.Transform.Position != (mgl64.Vec2{}) {
		t.Error("sleeping body moved during integration")
	}
}

func TestIntegrateKinematicIgnoresGravity(t *testing.T) {
	box, _ := NewBox(0.5, 0.5)
	rb, _ := NewRigidBody(NewTransform(mgl64.Vec2{}, 0), box, BodyTypeKinematic, 0)
	rb.Velocity = mgl64.Vec2{2, 0}

	rb.Integrate(0.5, mgl64.Vec2{0, -10})

	if !vecNear(rb.Transform.Position, mgl64.Vec2{1, 0}, epsilon) {
		t.Errorf("kinematic position = %v, want (1,0)", rb.Transform.Position)
	}
	if !vecNear(rb.Velocity, mgl64.Vec2{2, 0}, epsilon) {
		t.Errorf("kinematic velocity changed: %v", rb.Velocity)
	}
}

func TestUpdateDerivesVelocityFromMotion(t *testing.T) {
	box, _ := NewBox(0.5, 0.5)
	rb, _ := NewRigidBody(NewTransform(mgl64.Vec2{}, 0), box, BodyTypeDynamic, 1.0)

	dt := 0.1
	rb.PreviousTransform = rb.Transform
	rb.Transform.Position = mgl64.Vec2{0.5, -0.2}
	rb.Transform.Rotation = MakeRot(0.3)

	rb.Update(dt)

	if !vecNear(rb.Velocity, mgl64.Vec2{5, -2}, epsilon) {
		t.Errorf("velocity = %v, want (5,-2)", rb.Velocity)
	}
	if math.Abs(rb.AngularVelocity-3.0) > epsilon {
		t.Errorf("angular velocity = %v, want 3", rb.AngularVelocity)
	}
}

func TestApplyImpulse(t *testing.T) {
	box, _ := NewBox(0.5, 0.5)
	rb, _ := NewRigidBody(NewTransform(mgl64.Vec2{}, 0), box, BodyTypeDynamic, 1.0)

	// Impulse at the corner produces both linear and angular motion
	rb.ApplyImpulse(mgl64.Vec2{0, 1}, mgl64.Vec2{0.5, 0})

	if !vecNear(rb.Velocity, mgl64.Vec2{0, 1}, epsilon) {
		t.Errorf("velocity = %v, want (0,1)", rb.Velocity)
	}
	if rb.AngularVelocity <= 0 {
		t.Errorf("angular velocity = %v, want positive spin", rb.AngularVelocity)
	}

	static, _ := NewRigidBody(NewTransform(mgl64.Vec2{}, 0), box, BodyTypeStatic, 0)
	static.ApplyImpulse(mgl64.Vec2{0, 1}, mgl64.Vec2{})
	if static.Velocity != (mgl64.Vec2{}) {
		t.Error("impulse moved a static body")
	}
}

func TestVelocityAt(t *testing.T) {
	box, _ := NewBox(0.5, 0.5)
	rb, _ := NewRigidBody(NewTransform(mgl64.Vec2{}, 0), box, BodyTypeDynamic, 1.0)
	rb.Velocity = mgl64.Vec2{1, 0}
	rb.AngularVelocity = 2

	// Point above the center gains -x from the spin
	got := rb.VelocityAt(mgl64.Vec2{0, 1})
	if !vecNear(got, mgl64.Vec2{-1, 0}, epsilon) {
		t.Errorf("VelocityAt = %v, want (-1,0)", got)
	}
}

func TestSleepWake(t *testing.T) {
	box, _ := NewBox(0.5, 0.5)
	rb, _ := NewRigidBody(NewTransform(mgl64.Vec2{}, 0), box, BodyTypeDynamic, 1.0)
	rb.Velocity = mgl64.Vec2{5, 0}

	rb.Sleep()
	if !rb.IsSleeping || rb.Velocity != (mgl64.Vec2{}) || rb.AngularVelocity != 0 {
		t.Error("Sleep did not freeze the body")
	}

	// Forces wake the body
	rb.AddForce(mgl64.Vec2{1, 0})
	if rb.IsSleeping {
		t.Error("AddForce did not wake the body")
	}
}

func TestBelowSleepThresholds(t *testing.T) {
	box, _ := NewBox(0.5, 0.5)
	rb, _ := NewRigidBody(NewTransform(mgl64.Vec2{}, 0), box, BodyTypeDynamic, 1.0)

	rb.Velocity = mgl64.Vec2{0.05, 0}
	rb.AngularVelocity = 0.01
	if !rb.BelowSleepThresholds(0.1, 0.05) {
		t.Error("slow body reported above thresholds")
	}

	rb.Velocity = mgl64.Vec2{0.2, 0}
	if rb.BelowSleepThresholds(0.1, 0.05) {
		t.Error("moving body reported below thresholds")
	}
}

func TestAnchorBody(t *testing.T) {
	anchor := NewAnchor(mgl64.Vec2{3, 4})
	if anchor.Shape != nil || anchor.BodyType != BodyTypeStatic {
		t.Error("anchor must be a shapeless static body")
	}
	if anchor.Transform.Position != (mgl64.Vec2{3, 4}) {
		t.Errorf("anchor position = %v", anchor.Transform.Position)
	}
	if anchor.InvMass() != 0 || anchor.InvInertia() != 0 {
		t.Error("anchor has non-zero inverse mass")
	}
}
