package plume

import (
	"math"

	"github.com/akmonengine/plume/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// RayHit is the closest intersection found by a world query.
type RayHit struct {
	Body     BodyID
	Point    mgl64.Vec2
	Normal   mgl64.Vec2
	Fraction float64
}

// RayCast finds the closest body hit by the segment from origin to
// origin+translation. layerMask selects which layers are considered;
// ^uint32(0) hits everything.
func (w *World) RayCast(origin, translation mgl64.Vec2, layerMask uint32) (RayHit, bool) {
	return w.cast(origin, translation, layerMask, 0)
}

// CircleCast sweeps a circle of the given radius along the segment: a
// ray cast against every shape inflated by the radius.
func (w *World) CircleCast(origin mgl64.Vec2, radius float64, translation mgl64.Vec2, layerMask uint32) (RayHit, bool) {
	return w.cast(origin, translation, layerMask, radius)
}

func (w *World) cast(origin, translation mgl64.Vec2, layerMask uint32, inflate float64) (RayHit, bool) {
	input := actor.RayCastInput{
		P1:          origin,
		P2:          origin.Add(translation),
		MaxFraction: 1.0,
	}

	best := RayHit{Fraction: math.MaxFloat64}
	found := false
	for i, body := range w.bodies {
		if body == nil || body.Shape == nil {
			continue
		}
		if layerMask&(1<<body.Layer) == 0 {
			continue
		}

		out, hit := castShape(body.Shape, body.Transform, input, inflate)
		if hit && out.Fraction < best.Fraction {
			best = RayHit{
				Body:     BodyID(i),
				Normal:   out.Normal,
				Fraction: out.Fraction,
			}
			found = true
			// Later bodies only need to beat this hit
			input.MaxFraction = out.Fraction
		}
	}

	if !found {
		return RayHit{}, false
	}
	best.Point = origin.Add(translation.Mul(best.Fraction))
	return best, true
}

// castShape casts against a shape inflated by the given radius, which
// the rounded-hull slab test supports directly.
func castShape(shape actor.Shape, xf actor.Transform, input actor.RayCastInput, inflate float64) (actor.RayCastOutput, bool) {
	if inflate <= 0 {
		return shape.RayCast(input, xf)
	}

	switch s := shape.(type) {
	case *actor.Circle:
		grown := actor.Circle{Radius: s.Radius + inflate}
		return grown.RayCast(input, xf)
	case *actor.Polygon:
		hull := s.Hull()
		hull.Radius += inflate
		return hull.RayCast(input, xf)
	case *actor.Capsule:
		hull := s.Hull()
		hull.Radius += inflate
		return hull.RayCast(input, xf)
	case *actor.Compound:
		best := actor.RayCastOutput{Fraction: math.MaxFloat64}
		hit := false
		in := input
		for _, child := range s.Children {
			if out, ok := castShape(child.Shape, xf.Mul(child.Transform), in, inflate); ok && out.Fraction < best.Fraction {
				best = out
				hit = true
				in.MaxFraction = out.Fraction
			}
		}
		return best, hit
	}
	return actor.RayCastOutput{}, false
}

// AABBQuery returns the handles of all bodies whose AABB overlaps the
// query box, in handle order.
func (w *World) AABBQuery(aabb actor.AABB, layerMask uint32) []BodyID {
	var ids []BodyID
	for i, body := range w.bodies {
		if body == nil || body.Shape == nil {
			continue
		}
		if layerMask&(1<<body.Layer) == 0 {
			continue
		}
		if body.Shape.GetAABB().Overlaps(aabb) {
			ids = append(ids, BodyID(i))
		}
	}
	return ids
}
