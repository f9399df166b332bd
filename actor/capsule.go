package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Capsule is a segment along the local X axis inflated by a radius.
// The core runs from (-HalfLength, 0) to (+HalfLength, 0).
type Capsule struct {
	HalfLength float64
	Radius     float64
	aabb       AABB
}

func (c *Capsule) Type() ShapeType { return ShapeTypeCapsule }

func (c *Capsule) ComputeAABB(transform Transform) {
	p1 := transform.Apply(mgl64.Vec2{-c.HalfLength, 0})
	p2 := transform.Apply(mgl64.Vec2{c.HalfLength, 0})
	r := mgl64.Vec2{c.Radius, c.Radius}
	c.aabb = AABB{
		Min: mgl64.Vec2{math.Min(p1.X(), p2.X()), math.Min(p1.Y(), p2.Y())}.Sub(r),
		Max: mgl64.Vec2{math.Max(p1.X(), p2.X()), math.Max(p1.Y(), p2.Y())}.Add(r),
	}
}

func (c *Capsule) GetAABB() AABB {
	return c.aabb
}

func (c *Capsule) ComputeMass(density float64) float64 {
	// Rectangle plus the two caps forming a full disc
	return density * (4.0*c.HalfLength*c.Radius + math.Pi*c.Radius*c.Radius)
}

func (c *Capsule) ComputeInertia(mass float64) float64 {
	h := c.HalfLength
	r := c.Radius

	rectArea := 4.0 * h * r
	capArea := math.Pi * r * r
	total := rectArea + capArea

	rectMass := mass * rectArea / total
	capMass := mass * capArea / total

	// Rectangle about its center: m (w² + h²) / 12 with w = 2h, h = 2r
	rectInertia := rectMass * (4.0*h*h + 4.0*r*r) / 12.0

	// Both caps together form a disc whose halves sit at ±h. Each half
	// contributes its moment about the flat edge center (r²/2 per unit
	// mass) plus the axis shift, including the centroid offset 4r/3π.
	capInertia := capMass * (0.5*r*r + h*h + 8.0*h*r/(3.0*math.Pi))

	return rectInertia + capInertia
}

func (c *Capsule) Centroid() mgl64.Vec2 {
	return mgl64.Vec2{}
}

// Hull exposes the capsule as a 2-vertex rounded hull so capsule pairs
// ride the same SAT/clipping path as polygons.
func (c *Capsule) Hull() Hull {
	return Hull{
		Verts:  []mgl64.Vec2{{-c.HalfLength, 0}, {c.HalfLength, 0}},
		Norms:  []mgl64.Vec2{{0, -1}, {0, 1}},
		Radius: c.Radius,
	}
}
