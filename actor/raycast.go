package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// RayCastInput is a segment cast from P1 towards P2, cut off at
// MaxFraction of the way.
type RayCastInput struct {
	P1, P2      mgl64.Vec2
	MaxFraction float64
}

// RayCastOutput reports a hit at P1 + Fraction*(P2-P1) with the
// surface normal at the hit point.
type RayCastOutput struct {
	Normal   mgl64.Vec2
	Fraction float64
}

func (c *Circle) RayCast(input RayCastInput, transform Transform) (RayCastOutput, bool) {
	return raycastCircle(transform.Position, c.Radius, input)
}

// raycastCircle solves the ray-circle quadratic.
func raycastCircle(center mgl64.Vec2, radius float64, input RayCastInput) (RayCastOutput, bool) {
	s := input.P1.Sub(center)
	b := s.Dot(s) - radius*radius

	r := input.P2.Sub(input.P1)
	c := s.Dot(r)
	rr := r.Dot(r)
	sigma := c*c - rr*b

	// Negative discriminant or degenerate segment
	if sigma < 0.0 || rr < 1e-12 {
		return RayCastOutput{}, false
	}

	a := -(c + math.Sqrt(sigma))
	if 0.0 <= a && a <= input.MaxFraction*rr {
		a /= rr
		return RayCastOutput{
			Fraction: a,
			Normal:   s.Add(r.Mul(a)).Normalize(),
		}, true
	}

	return RayCastOutput{}, false
}

// RayCast casts a segment against the rounded hull itself, which lets
// callers inflate the radius for shape casts.
func (h Hull) RayCast(input RayCastInput, transform Transform) (RayCastOutput, bool) {
	return raycastHull(h, transform, input)
}

func (p *Polygon) RayCast(input RayCastInput, transform Transform) (RayCastOutput, bool) {
	out, ok := raycastHull(p.Hull(), transform, input)
	return out, ok
}

func (c *Capsule) RayCast(input RayCastInput, transform Transform) (RayCastOutput, bool) {
	return raycastHull(c.Hull(), transform, input)
}

func (c *Compound) RayCast(input RayCastInput, transform Transform) (RayCastOutput, bool) {
	best := RayCastOutput{Fraction: math.MaxFloat64}
	hit := false
	in := input
	for _, child := range c.Children {
		if out, ok := child.Shape.RayCast(in, transform.Mul(child.Transform)); ok {
			if out.Fraction < best.Fraction {
				best = out
				hit = true
				// Shorten the segment so later children only beat this hit
				in.MaxFraction = out.Fraction
			}
		}
	}
	return best, hit
}

// raycastHull casts a segment against a convex rounded hull: the slab
// method over radius-offset faces, with vertex caps handled as circles
// when the hull is inflated.
func raycastHull(h Hull, transform Transform, input RayCastInput) (RayCastOutput, bool) {
	// Put the ray into the hull's frame of reference
	p1 := transform.ApplyInv(input.P1)
	p2 := transform.ApplyInv(input.P2)
	d := p2.Sub(p1)

	lower, upper := 0.0, input.MaxFraction
	index := -1

	for i := range h.Verts {
		// dot(normal, p1 + a*d - (v + normal*radius)) = 0
		numerator := h.Norms[i].Dot(h.Verts[i].Sub(p1)) + h.Radius
		denominator := h.Norms[i].Dot(d)

		if denominator == 0.0 {
			if numerator < 0.0 {
				return RayCastOutput{}, false
			}
		} else {
			if denominator < 0.0 && numerator < lower*denominator {
				lower = numerator / denominator
				index = i
			} else if denominator > 0.0 && numerator < upper*denominator {
				upper = numerator / denominator
			}
		}

		if upper < lower {
			return RayCastOutput{}, false
		}
	}

	if index >= 0 {
		valid := true
		if h.Radius > 0 {
			// The offset planes overshoot at rounded corners: accept the
			// face hit only if it lands within the face span.
			hitPoint := p1.Add(d.Mul(lower))
			v1 := h.Verts[index]
			v2 := h.Verts[(index+1)%len(h.Verts)]
			edge := v2.Sub(v1)
			t := hitPoint.Sub(v1).Dot(edge)
			valid = t >= 0 && t <= edge.Dot(edge)
		}
		if valid {
			return RayCastOutput{
				Fraction: lower,
				Normal:   transform.Rotation.Rotate(h.Norms[index]),
			}, true
		}
	}

	if h.Radius <= 0 {
		return RayCastOutput{}, false
	}

	// Vertex caps
	best := RayCastOutput{Fraction: math.MaxFloat64}
	hit := false
	localInput := RayCastInput{P1: p1, P2: p2, MaxFraction: input.MaxFraction}
	for _, v := range h.Verts {
		if out, ok := raycastCircle(v, h.Radius, localInput); ok && out.Fraction < best.Fraction {
			best = out
			hit = true
		}
	}
	if !hit {
		return RayCastOutput{}, false
	}
	best.Normal = transform.Rotation.Rotate(best.Normal)
	return best, true
}
