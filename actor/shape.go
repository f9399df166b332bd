package actor

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ShapeType represents the type of collision shape
type ShapeType int

const (
	ShapeTypeCircle ShapeType = iota
	ShapeTypePolygon
	ShapeTypeCapsule
	ShapeTypeCompound
)

var (
	ErrTooFewVertices = errors.New("polygon requires at least 3 vertices")
	ErrZeroArea       = errors.New("polygon has zero area")
	ErrNotConvex      = errors.New("polygon is not convex")
)

// Shape is the interface that all collision shapes must implement.
// The enumeration of supported shapes is closed: the narrow phase
// dispatches on ShapeType pairs, not on dynamic behavior.
type Shape interface {
	Type() ShapeType
	// ComputeAABB calculates and caches the axis-aligned bounding box
	// for the shape at the given transform
	ComputeAABB(transform Transform)
	GetAABB() AABB
	// ComputeMass calculates the mass of the shape given a density
	ComputeMass(density float64) float64
	// ComputeInertia calculates the rotational inertia about the
	// shape's centroid for the given mass
	ComputeInertia(mass float64) float64
	// Centroid returns the center of mass in local space
	Centroid() mgl64.Vec2
	// RayCast intersects a segment with the shape in world space
	RayCast(input RayCastInput, transform Transform) (RayCastOutput, bool)
}

// Hull is the convex rounded hull a shape exposes to the narrow phase:
// core vertices, outward edge normals (normal i belongs to the edge
// from vertex i to vertex i+1) and a radius the core is inflated by.
// Polygons have radius zero; a capsule is a 2-vertex hull.
type Hull struct {
	Verts  []mgl64.Vec2
	Norms  []mgl64.Vec2
	Radius float64
}

// Circle represents a circular collision shape centered on the body origin.
type Circle struct {
	Radius float64
	aabb   AABB
}

func (c *Circle) Type() ShapeType { return ShapeTypeCircle }

func (c *Circle) ComputeAABB(transform Transform) {
	r := mgl64.Vec2{c.Radius, c.Radius}
	c.aabb = AABB{
		Min: transform.Position.Sub(r),
		Max: transform.Position.Add(r),
	}
}

func (c *Circle) GetAABB() AABB {
	return c.aabb
}

func (c *Circle) ComputeMass(density float64) float64 {
	return density * math.Pi * c.Radius * c.Radius
}

func (c *Circle) ComputeInertia(mass float64) float64 {
	// I = (1/2) m r²
	return 0.5 * mass * c.Radius * c.Radius
}

func (c *Circle) Centroid() mgl64.Vec2 {
	return mgl64.Vec2{}
}

// Polygon represents a convex polygon collision shape.
// Vertices are stored counter-clockwise in local space.
type Polygon struct {
	Verts []mgl64.Vec2
	Norms []mgl64.Vec2

	centroid    mgl64.Vec2
	area        float64
	unitInertia float64 // inertia about the centroid for unit mass
	aabb        AABB
}

// NewPolygon builds a convex polygon from counter-clockwise vertices.
// Clockwise input is reversed. Degenerate (zero-area) or concave
// vertex sets are rejected so they never reach the solver.
func NewPolygon(verts []mgl64.Vec2) (*Polygon, error) {
	if len(verts) < 3 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewVertices, len(verts))
	}

	vs := make([]mgl64.Vec2, len(verts))
	copy(vs, verts)

	if signedArea(vs) < 0 {
		for i, j := 0, len(vs)-1; i < j; i, j = i+1, j-1 {
			vs[i], vs[j] = vs[j], vs[i]
		}
	}

	area := signedArea(vs)
	if area < 1e-12 {
		return nil, ErrZeroArea
	}

	// Convexity: every vertex must turn left (CCW winding)
	n := len(vs)
	for i := 0; i < n; i++ {
		e1 := vs[(i+1)%n].Sub(vs[i])
		e2 := vs[(i+2)%n].Sub(vs[(i+1)%n])
		if Cross(e1, e2) < -1e-12 {
			return nil, fmt.Errorf("%w: reflex angle at vertex %d", ErrNotConvex, (i+1)%n)
		}
	}

	p := &Polygon{Verts: vs, area: area}
	p.Norms = make([]mgl64.Vec2, n)
	for i := 0; i < n; i++ {
		edge := vs[(i+1)%n].Sub(vs[i])
		// Outward normal of a CCW edge
		p.Norms[i] = mgl64.Vec2{edge.Y(), -edge.X()}.Normalize()
	}
	p.centroid, p.unitInertia = polygonMassProperties(vs, area)

	return p, nil
}

// NewBox builds an axis-aligned box polygon from half extents.
func NewBox(halfWidth, halfHeight float64) (*Polygon, error) {
	return NewPolygon([]mgl64.Vec2{
		{-halfWidth, -halfHeight},
		{halfWidth, -halfHeight},
		{halfWidth, halfHeight},
		{-halfWidth, halfHeight},
	})
}

func signedArea(verts []mgl64.Vec2) float64 {
	area := 0.0
	for i := range verts {
		j := (i + 1) % len(verts)
		area += Cross(verts[i], verts[j])
	}
	return 0.5 * area
}

// polygonMassProperties integrates centroid and unit-mass inertia by
// fanning triangles from the first vertex.
func polygonMassProperties(verts []mgl64.Vec2, area float64) (mgl64.Vec2, float64) {
	ref := verts[0]
	var centroid mgl64.Vec2
	inertia := 0.0

	for i := 1; i < len(verts)-1; i++ {
		e1 := verts[i].Sub(ref)
		e2 := verts[i+1].Sub(ref)
		d := Cross(e1, e2)
		triArea := 0.5 * d

		centroid = centroid.Add(e1.Add(e2).Mul(triArea / 3.0))

		// Second moment of the triangle about the reference vertex
		intX2 := e1.X()*e1.X() + e1.X()*e2.X() + e2.X()*e2.X()
		intY2 := e1.Y()*e1.Y() + e1.Y()*e2.Y() + e2.Y()*e2.Y()
		inertia += (0.25 / 3.0) * d * (intX2 + intY2)
	}

	centroid = centroid.Mul(1.0 / area)
	// Shift the integral from the reference vertex to the centroid
	unitInertia := inertia/area - centroid.Dot(centroid)
	return centroid.Add(ref), unitInertia
}

func (p *Polygon) Type() ShapeType { return ShapeTypePolygon }

func (p *Polygon) ComputeAABB(transform Transform) {
	first := transform.Apply(p.Verts[0])
	box := AABB{Min: first, Max: first}
	for _, v := range p.Verts[1:] {
		w := transform.Apply(v)
		box.Min = mgl64.Vec2{math.Min(box.Min.X(), w.X()), math.Min(box.Min.Y(), w.Y())}
		box.Max = mgl64.Vec2{math.Max(box.Max.X(), w.X()), math.Max(box.Max.Y(), w.Y())}
	}
	p.aabb = box
}

func (p *Polygon) GetAABB() AABB {
	return p.aabb
}

func (p *Polygon) ComputeMass(density float64) float64 {
	return density * p.area
}

func (p *Polygon) ComputeInertia(mass float64) float64 {
	return mass * p.unitInertia
}

func (p *Polygon) Centroid() mgl64.Vec2 {
	return p.centroid
}

// Hull exposes the polygon to the pairwise narrow-phase routines.
func (p *Polygon) Hull() Hull {
	return Hull{Verts: p.Verts, Norms: p.Norms}
}
