package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// AABB represents an axis-aligned bounding box
type AABB struct {
	Min mgl64.Vec2
	Max mgl64.Vec2
}

// ContainsPoint checks if a point is inside the AABB
func (a AABB) ContainsPoint(point mgl64.Vec2) bool {
	return point.X() >= a.Min.X() && point.X() <= a.Max.X() &&
		point.Y() >= a.Min.Y() && point.Y() <= a.Max.Y()
}

// Overlaps checks if two AABBs overlap
func (a AABB) Overlaps(other AABB) bool {
	// AABBs overlap if they overlap on both axes
	return a.Max.X() >= other.Min.X() && a.Min.X() <= other.Max.X() &&
		a.Max.Y() >= other.Min.Y() && a.Min.Y() <= other.Max.Y()
}

// Union returns the smallest AABB enclosing both boxes
func (a AABB) Union(other AABB) AABB {
	return AABB{
		Min: mgl64.Vec2{math.Min(a.Min.X(), other.Min.X()), math.Min(a.Min.Y(), other.Min.Y())},
		Max: mgl64.Vec2{math.Max(a.Max.X(), other.Max.X()), math.Max(a.Max.Y(), other.Max.Y())},
	}
}

// Expand grows the AABB by a margin on all sides
func (a AABB) Expand(margin float64) AABB {
	m := mgl64.Vec2{margin, margin}
	return AABB{Min: a.Min.Sub(m), Max: a.Max.Add(m)}
}

// Sweep extends the AABB by a displacement, covering the space the box
// travels through. Used by the broad phase to catch fast-moving bodies.
func (a AABB) Sweep(displacement mgl64.Vec2) AABB {
	out := a
	if displacement.X() < 0 {
		out.Min[0] += displacement.X()
	} else {
		out.Max[0] += displacement.X()
	}
	if displacement.Y() < 0 {
		out.Min[1] += displacement.Y()
	} else {
		out.Max[1] += displacement.Y()
	}
	return out
}

// Center returns the midpoint of the AABB
func (a AABB) Center() mgl64.Vec2 {
	return a.Min.Add(a.Max).Mul(0.5)
}
