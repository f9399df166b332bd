package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Rot is a 2D rotation stored as cached sine/cosine, so the hot paths
// never recompute trigonometry.
type Rot struct {
	S, C float64
}

// MakeRot builds a rotation from an angle in radians.
func MakeRot(angle float64) Rot {
	return Rot{S: math.Sin(angle), C: math.Cos(angle)}
}

// RotIdent returns the identity rotation.
func RotIdent() Rot {
	return Rot{S: 0, C: 1}
}

// Angle returns the rotation angle in radians, in (-π, π].
func (r Rot) Angle() float64 {
	return math.Atan2(r.S, r.C)
}

// Rotate applies the rotation to a vector.
func (r Rot) Rotate(v mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{r.C*v.X() - r.S*v.Y(), r.S*v.X() + r.C*v.Y()}
}

// RotateInv applies the inverse rotation to a vector.
func (r Rot) RotateInv(v mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{r.C*v.X() + r.S*v.Y(), -r.S*v.X() + r.C*v.Y()}
}

// Mul composes two rotations: the result applies o first, then r.
func (r Rot) Mul(o Rot) Rot {
	return Rot{S: r.S*o.C + r.C*o.S, C: r.C*o.C - r.S*o.S}
}

// MulT composes the inverse of r with o. The angle of the result is
// the shortest signed angle from r to o, which makes it the safe way
// to measure an angular delta across the ±π seam.
func (r Rot) MulT(o Rot) Rot {
	return Rot{S: r.C*o.S - r.S*o.C, C: r.C*o.C + r.S*o.S}
}

// Transform represents a position and orientation in 2D space.
type Transform struct {
	Position mgl64.Vec2
	Rotation Rot
}

// NewTransform creates a transform at the given position and angle.
func NewTransform(position mgl64.Vec2, angle float64) Transform {
	return Transform{Position: position, Rotation: MakeRot(angle)}
}

// Apply maps a point from local to world space.
func (t Transform) Apply(v mgl64.Vec2) mgl64.Vec2 {
	return t.Rotation.Rotate(v).Add(t.Position)
}

// ApplyInv maps a point from world to local space.
func (t Transform) ApplyInv(v mgl64.Vec2) mgl64.Vec2 {
	return t.Rotation.RotateInv(v.Sub(t.Position))
}

// Mul composes two transforms: the result maps o's local space
// through t. Used to flatten compound shape children into world space.
func (t Transform) Mul(o Transform) Transform {
	return Transform{
		Position: t.Apply(o.Position),
		Rotation: t.Rotation.Mul(o.Rotation),
	}
}

// Cross is the 2D cross product, a scalar.
func Cross(a, b mgl64.Vec2) float64 {
	return a.X()*b.Y() - a.Y()*b.X()
}

// CrossScalar computes ω × v for a scalar angular velocity ω.
func CrossScalar(s float64, v mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{-s * v.Y(), s * v.X()}
}

// Perp returns v rotated 90° counter-clockwise.
func Perp(v mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{-v.Y(), v.X()}
}

// IsValidVec reports whether a vector is free of NaN and Inf,
// used to keep degenerate transforms out of the solver.
func IsValidVec(v mgl64.Vec2) bool {
	return !math.IsNaN(v.X()) && !math.IsInf(v.X(), 0) &&
		!math.IsNaN(v.Y()) && !math.IsInf(v.Y(), 0)
}
