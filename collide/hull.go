package collide

import (
	"math"

	"github.com/akmonengine/plume/actor"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	featureVertex = 0
	featureFace   = 1
)

type clipID struct {
	indexA, indexB uint8
	typeA, typeB   uint8
}

func (id clipID) feature(flipped bool) Feature {
	f := Feature(id.indexA)<<24 | Feature(id.indexB)<<16 |
		Feature(id.typeA)<<8 | Feature(id.typeB)<<1
	if flipped {
		f |= 1
	}
	return f
}

type clipVertex struct {
	v  mgl64.Vec2
	id clipID
}

// mulT composes inv(a) with b, expressing b's local space in a's frame.
func mulT(a, b actor.Transform) actor.Transform {
	return actor.Transform{
		Position: a.ApplyInv(b.Position),
		Rotation: a.Rotation.MulT(b.Rotation),
	}
}

// findMaxSeparation finds the edge of hull1 whose normal maximizes the
// core separation to hull2, both expressed in hull2's frame.
func findMaxSeparation(h1 actor.Hull, xf1 actor.Transform, h2 actor.Hull, xf2 actor.Transform) (int, float64) {
	xf := mulT(xf2, xf1)

	bestIndex := 0
	maxSeparation := -math.MaxFloat64
	for i := range h1.Verts {
		// Hull1 normal and vertex in hull2's frame
		n := xf.Rotation.Rotate(h1.Norms[i])
		v1 := xf.Apply(h1.Verts[i])

		// Deepest point of hull2 against normal i
		si := math.MaxFloat64
		for _, v2 := range h2.Verts {
			sij := n.Dot(v2.Sub(v1))
			if sij < si {
				si = sij
			}
		}

		if si > maxSeparation {
			maxSeparation = si
			bestIndex = i
		}
	}

	return bestIndex, maxSeparation
}

// findIncidentEdge picks the edge of hull2 most anti-parallel to the
// reference edge of hull1, as world-space clip vertices.
func findIncidentEdge(h1 actor.Hull, xf1 actor.Transform, edge1 int, h2 actor.Hull, xf2 actor.Transform) [2]clipVertex {
	// Reference normal in hull2's frame
	normal1 := xf2.Rotation.RotateInv(xf1.Rotation.Rotate(h1.Norms[edge1]))

	index := 0
	minDot := math.MaxFloat64
	for i := range h2.Norms {
		dot := normal1.Dot(h2.Norms[i])
		if dot < minDot {
			minDot = dot
			index = i
		}
	}

	i1 := index
	i2 := (index + 1) % len(h2.Verts)

	return [2]clipVertex{
		{
			v: xf2.Apply(h2.Verts[i1]),
			id: clipID{
				indexA: uint8(edge1), indexB: uint8(i1),
				typeA: featureFace, typeB: featureVertex,
			},
		},
		{
			v: xf2.Apply(h2.Verts[i2]),
			id: clipID{
				indexA: uint8(edge1), indexB: uint8(i2),
				typeA: featureFace, typeB: featureVertex,
			},
		},
	}
}

// clipSegmentToLine is Sutherland-Hodgman clipping of a two-point
// segment against a half-plane.
func clipSegmentToLine(vIn [2]clipVertex, normal mgl64.Vec2, offset float64, vertexIndexA int) ([2]clipVertex, int) {
	var vOut [2]clipVertex
	numOut := 0

	distance0 := normal.Dot(vIn[0].v) - offset
	distance1 := normal.Dot(vIn[1].v) - offset

	if distance0 <= 0.0 {
		vOut[numOut] = vIn[0]
		numOut++
	}
	if distance1 <= 0.0 {
		vOut[numOut] = vIn[1]
		numOut++
	}

	if distance0*distance1 < 0.0 {
		interp := distance0 / (distance0 - distance1)
		vOut[numOut].v = vIn[0].v.Add(vIn[1].v.Sub(vIn[0].v).Mul(interp))
		vOut[numOut].id = clipID{
			indexA: uint8(vertexIndexA), indexB: vIn[0].id.indexB,
			typeA: featureVertex, typeB: featureFace,
		}
		numOut++
	}

	return vOut, numOut
}

// HullHull computes the contact manifold between two convex rounded
// hulls: find the axis of minimum separation over both hulls' edge
// normals, then clip the incident edge to the reference edge, keeping
// up to two points. The returned normal points from hull A to hull B.
//
// Tie-break: when the two best separations are equal within
// 0.1*linearSlop, the reference edge is taken from hull A. Callers
// pass the lower body handle as A, which makes degenerate parallel-edge
// manifolds deterministic.
func HullHull(a actor.Hull, xfA actor.Transform, b actor.Hull, xfB actor.Transform) (Manifold, bool) {
	totalRadius := a.Radius + b.Radius

	edgeA, separationA := findMaxSeparation(a, xfA, b, xfB)
	if separationA > totalRadius {
		return Manifold{}, false
	}
	edgeB, separationB := findMaxSeparation(b, xfB, a, xfA)
	if separationB > totalRadius {
		return Manifold{}, false
	}

	var ref, inc actor.Hull
	var xfRef, xfInc actor.Transform
	var edge1 int
	flip := false

	if separationB > separationA+0.1*linearSlop {
		ref, inc = b, a
		xfRef, xfInc = xfB, xfA
		edge1 = edgeB
		flip = true
	} else {
		ref, inc = a, b
		xfRef, xfInc = xfA, xfB
		edge1 = edgeA
	}

	incidentEdge := findIncidentEdge(ref, xfRef, edge1, inc, xfInc)

	iv1 := edge1
	iv2 := (edge1 + 1) % len(ref.Verts)

	v11 := ref.Verts[iv1]
	v12 := ref.Verts[iv2]

	localTangent := v12.Sub(v11).Normalize()
	tangent := xfRef.Rotation.Rotate(localTangent)
	// Outward normal of the reference edge
	normal := mgl64.Vec2{tangent.Y(), -tangent.X()}

	v11w := xfRef.Apply(v11)
	v12w := xfRef.Apply(v12)

	frontOffset := normal.Dot(v11w)

	// Side offsets, extended by the hull radii
	sideOffset1 := -tangent.Dot(v11w) + totalRadius
	sideOffset2 := tangent.Dot(v12w) + totalRadius

	clip1, np := clipSegmentToLine(incidentEdge, tangent.Mul(-1), sideOffset1, iv1)
	if np < 2 {
		return Manifold{}, false
	}
	clip2, np := clipSegmentToLine(clip1, tangent, sideOffset2, iv2)
	if np < 2 {
		return Manifold{}, false
	}

	radiusRef, radiusInc := ref.Radius, inc.Radius

	var points []ManifoldPoint
	for _, cv := range clip2 {
		separation := normal.Dot(cv.v) - frontOffset
		if separation > totalRadius {
			continue
		}
		// Midpoint between the reference surface (frontOffset+radiusRef)
		// and the incident surface (separation-radiusInc)
		pos := cv.v.Sub(normal.Mul((separation - radiusRef + radiusInc) * 0.5))
		points = append(points, ManifoldPoint{
			Position:    pos,
			Penetration: totalRadius - separation,
			Feature:     cv.id.feature(flip),
		})
	}
	if len(points) == 0 {
		return Manifold{}, false
	}

	if flip {
		normal = normal.Mul(-1)
	}
	return Manifold{Normal: normal, Points: points}, true
}
