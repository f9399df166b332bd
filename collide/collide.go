// Package collide holds the pairwise narrow-phase routines. Each
// routine takes two shapes with their world transforms and produces a
// contact manifold: up to two points with a shared normal pointing
// from the first shape to the second.
package collide

import (
	"math"

	"github.com/akmonengine/plume/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// linearSlop is the collision tolerance; separating-axis ties within
// 0.1*linearSlop resolve to the first hull so manifolds stay stable
// frame over frame.
const linearSlop = 0.005

// Feature identifies which shape features generated a contact point,
// stable across substeps for warm-starting.
type Feature uint32

// ManifoldPoint is a single contact: the world-space midpoint between
// the two surfaces and the signed penetration depth along the
// manifold normal (positive = overlapping).
type ManifoldPoint struct {
	Position    mgl64.Vec2
	Penetration float64
	Feature     Feature
}

// Manifold is the output of a narrow-phase routine.
type Manifold struct {
	Normal mgl64.Vec2
	Points []ManifoldPoint
}

// CircleCircle computes the analytic contact between two circles.
func CircleCircle(a *actor.Circle, xfA actor.Transform, b *actor.Circle, xfB actor.Transform) (Manifold, bool) {
	pA := xfA.Position
	pB := xfB.Position

	d := pB.Sub(pA)
	distSqr := d.Dot(d)
	radius := a.Radius + b.Radius
	if distSqr > radius*radius {
		return Manifold{}, false
	}

	dist := d.Len()
	normal := mgl64.Vec2{1, 0}
	if dist > 1e-12 {
		normal = d.Mul(1.0 / dist)
	}

	surfaceA := pA.Add(normal.Mul(a.Radius))
	surfaceB := pB.Sub(normal.Mul(b.Radius))

	return Manifold{
		Normal: normal,
		Points: []ManifoldPoint{{
			Position:    surfaceA.Add(surfaceB).Mul(0.5),
			Penetration: radius - dist,
		}},
	}, true
}

// HullCircle computes the contact between a rounded hull (polygon or
// capsule) and a circle. The normal points from the hull to the circle.
func HullCircle(h actor.Hull, xfA actor.Transform, c *actor.Circle, xfB actor.Transform) (Manifold, bool) {
	// Circle center in the hull's frame
	cLocal := xfA.ApplyInv(xfB.Position)

	radius := h.Radius + c.Radius

	// Find the edge of minimum separation
	normalIndex := 0
	separation := -math.MaxFloat64
	for i := range h.Verts {
		s := h.Norms[i].Dot(cLocal.Sub(h.Verts[i]))
		if s > radius {
			return Manifold{}, false
		}
		if s > separation {
			separation = s
			normalIndex = i
		}
	}

	v1 := h.Verts[normalIndex]
	v2 := h.Verts[(normalIndex+1)%len(h.Verts)]

	var normal mgl64.Vec2
	var coreSep float64

	switch {
	case separation < 1e-12:
		// Center inside the core: the deepest face wins
		normal = h.Norms[normalIndex]
		coreSep = separation
	default:
		// Voronoi regions of the face
		u1 := cLocal.Sub(v1).Dot(v2.Sub(v1))
		u2 := cLocal.Sub(v2).Dot(v1.Sub(v2))

		var vertex mgl64.Vec2
		switch {
		case u1 <= 0.0:
			vertex = v1
		case u2 <= 0.0:
			vertex = v2
		default:
			normal = h.Norms[normalIndex]
			coreSep = normal.Dot(cLocal.Sub(v1))
			if coreSep > radius {
				return Manifold{}, false
			}
			return hullCircleManifold(h, xfA, c, cLocal, normal, coreSep, normalIndex), true
		}

		d := cLocal.Sub(vertex)
		dist := d.Len()
		if dist > radius || dist < 1e-12 {
			return Manifold{}, false
		}
		normal = d.Mul(1.0 / dist)
		coreSep = dist
	}

	return hullCircleManifold(h, xfA, c, cLocal, normal, coreSep, normalIndex), true
}

func hullCircleManifold(h actor.Hull, xfA actor.Transform, c *actor.Circle, cLocal, normal mgl64.Vec2, coreSep float64, edge int) Manifold {
	// Midpoint between the two surfaces, in the hull's frame
	hullSurface := cLocal.Sub(normal.Mul(coreSep - h.Radius))
	circleSurface := cLocal.Sub(normal.Mul(c.Radius))
	mid := hullSurface.Add(circleSurface).Mul(0.5)

	return Manifold{
		Normal: xfA.Rotation.Rotate(normal),
		Points: []ManifoldPoint{{
			Position:    xfA.Apply(mid),
			Penetration: h.Radius + c.Radius - coreSep,
			Feature:     Feature(edge),
		}},
	}
}
