package collide

import (
	"math"

	"github.com/akmonengine/plume/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// Capsule contacts are gated by exact segment distances before the
// SAT/clipping path runs: edge-normal SAT alone cannot see
// vertex-vertex separating axes, so rounded endpoints near corners
// would otherwise produce phantom contacts.

func closestPointOnSegment(p, a, b mgl64.Vec2) mgl64.Vec2 {
	ab := b.Sub(a)
	denom := ab.Dot(ab)
	if denom < 1e-12 {
		return a
	}
	t := p.Sub(a).Dot(ab) / denom
	t = math.Max(0, math.Min(1, t))
	return a.Add(ab.Mul(t))
}

// segmentClosestPoints returns the closest pair of points between
// segments [p1,q1] and [p2,q2].
func segmentClosestPoints(p1, q1, p2, q2 mgl64.Vec2) (mgl64.Vec2, mgl64.Vec2) {
	d1 := q1.Sub(p1)
	d2 := q2.Sub(p2)
	r := p1.Sub(p2)

	a := d1.Dot(d1)
	e := d2.Dot(d2)
	f := d2.Dot(r)

	var s, t float64
	switch {
	case a < 1e-12 && e < 1e-12:
		return p1, p2
	case a < 1e-12:
		t = math.Max(0, math.Min(1, f/e))
	default:
		c := d1.Dot(r)
		if e < 1e-12 {
			s = math.Max(0, math.Min(1, -c/a))
		} else {
			b := d1.Dot(d2)
			denom := a*e - b*b
			if denom > 1e-12 {
				s = math.Max(0, math.Min(1, (b*f-c*e)/denom))
			}
			t = (b*s + f) / e
			if t < 0 {
				t = 0
				s = math.Max(0, math.Min(1, -c/a))
			} else if t > 1 {
				t = 1
				s = math.Max(0, math.Min(1, (b-c)/a))
			}
		}
	}

	return p1.Add(d1.Mul(s)), p2.Add(d2.Mul(t))
}

func pointInHull(p mgl64.Vec2, h actor.Hull, xf actor.Transform) bool {
	local := xf.ApplyInv(p)
	for i := range h.Verts {
		if h.Norms[i].Dot(local.Sub(h.Verts[i])) > 0 {
			return false
		}
	}
	return true
}

// capsuleCore returns the world-space core segment of a capsule.
func capsuleCore(c *actor.Capsule, xf actor.Transform) (mgl64.Vec2, mgl64.Vec2) {
	return xf.Apply(mgl64.Vec2{-c.HalfLength, 0}), xf.Apply(mgl64.Vec2{c.HalfLength, 0})
}

// pointManifold builds a single-point manifold from the closest core
// points, with the normal pointing from A to B.
func pointManifold(cA, cB mgl64.Vec2, dist, radiusA, radiusB float64) Manifold {
	normal := cB.Sub(cA).Mul(1.0 / dist)
	surfaceA := cA.Add(normal.Mul(radiusA))
	surfaceB := cB.Sub(normal.Mul(radiusB))
	return Manifold{
		Normal: normal,
		Points: []ManifoldPoint{{
			Position:    surfaceA.Add(surfaceB).Mul(0.5),
			Penetration: radiusA + radiusB - dist,
		}},
	}
}

// CapsuleCapsule computes the contact between two capsules. Parallel
// side contact yields a clipped two-point manifold; everything else is
// a single contact between the closest core points.
func CapsuleCapsule(a *actor.Capsule, xfA actor.Transform, b *actor.Capsule, xfB actor.Transform) (Manifold, bool) {
	pA1, pA2 := capsuleCore(a, xfA)
	pB1, pB2 := capsuleCore(b, xfB)

	cA, cB := segmentClosestPoints(pA1, pA2, pB1, pB2)
	dist := cB.Sub(cA).Len()
	totalRadius := a.Radius + b.Radius

	if dist > totalRadius {
		return Manifold{}, false
	}

	axisA := pA2.Sub(pA1)
	axisB := pB2.Sub(pB1)
	parallel := math.Abs(actor.Cross(axisA.Normalize(), axisB.Normalize())) < 1e-6

	if parallel {
		// Side contact only if the cores overlap along the shared axis
		dir := axisA.Normalize()
		lo := math.Min(pB1.Sub(pA1).Dot(dir), pB2.Sub(pA1).Dot(dir))
		hi := math.Max(pB1.Sub(pA1).Dot(dir), pB2.Sub(pA1).Dot(dir))
		if hi > 1e-9 && lo < axisA.Len()-1e-9 {
			return HullHull(a.Hull(), xfA, b.Hull(), xfB)
		}
	}

	if dist < 1e-9 {
		// Cores crossing: let the SAT pick a resolution direction
		return HullHull(a.Hull(), xfA, b.Hull(), xfB)
	}

	return pointManifold(cA, cB, dist, a.Radius, b.Radius), true
}

// CapsulePolygon computes the contact between a capsule (A) and a
// polygon (B). The normal points from the capsule to the polygon.
func CapsulePolygon(a *actor.Capsule, xfA actor.Transform, b *actor.Polygon, xfB actor.Transform) (Manifold, bool) {
	p1, p2 := capsuleCore(a, xfA)
	hull := b.Hull()

	if pointInHull(p1, hull, xfB) || pointInHull(p2, hull, xfB) {
		return HullHull(a.Hull(), xfA, hull, xfB)
	}

	// Exact core distance over the polygon edges
	minDist := math.MaxFloat64
	var cA, cB mgl64.Vec2
	n := len(b.Verts)
	for i := 0; i < n; i++ {
		v1 := xfB.Apply(b.Verts[i])
		v2 := xfB.Apply(b.Verts[(i+1)%n])
		c1, c2 := segmentClosestPoints(p1, p2, v1, v2)
		if d := c2.Sub(c1).Len(); d < minDist {
			minDist = d
			cA, cB = c1, c2
		}
	}

	if minDist > a.Radius {
		return Manifold{}, false
	}
	if minDist < 1e-9 {
		return HullHull(a.Hull(), xfA, hull, xfB)
	}

	// Endpoint against a polygon corner: the SAT cannot express this
	// axis, resolve it as a point contact
	endpoint := cA.Sub(p1).Len() < 1e-9 || cA.Sub(p2).Len() < 1e-9
	corner := false
	for _, v := range b.Verts {
		if cB.Sub(xfB.Apply(v)).Len() < 1e-9 {
			corner = true
			break
		}
	}
	if endpoint && corner {
		return pointManifold(cA, cB, minDist, a.Radius, 0), true
	}

	return HullHull(a.Hull(), xfA, hull, xfB)
}
