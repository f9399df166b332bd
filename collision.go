package plume

import (
	"github.com/akmonengine/plume/actor"
	"github.com/akmonengine/plume/collide"
	"github.com/akmonengine/plume/constraint"
)

const STIFF_COMPLIANCE = CONCRETE_COMPLIANCE

const (
	CONCRETE_COMPLIANCE = 0.04e-9
	WOOD_COMPLIANCE     = 0.16e-9
	LEATHER_COMPLIANCE  = 14e-8
	TENDON_COMPLIANCE   = 0.2e-7
	RUBBER_COMPLIANCE   = 1e-6
	MUSCLE_COMPLIANCE   = 0.2e-3
	FAT_COMPLIANCE      = 1e-3
)

type collideFunc func(a actor.Shape, xfA actor.Transform, b actor.Shape, xfB actor.Transform) (collide.Manifold, bool)

// dispatch maps ordered (ShapeType, ShapeType) to a manifold routine.
// Missing entries are served by the transposed entry with the bodies
// swapped and the normal negated; compounds are recursed above the
// table and never reach it.
var dispatch [4][4]collideFunc

func init() {
	dispatch[actor.ShapeTypeCircle][actor.ShapeTypeCircle] = func(a actor.Shape, xfA actor.Transform, b actor.Shape, xfB actor.Transform) (collide.Manifold, bool) {
		return collide.CircleCircle(a.(*actor.Circle), xfA, b.(*actor.Circle), xfB)
	}
	dispatch[actor.ShapeTypePolygon][actor.ShapeTypeCircle] = func(a actor.Shape, xfA actor.Transform, b actor.Shape, xfB actor.Transform) (collide.Manifold, bool) {
		return collide.HullCircle(a.(*actor.Polygon).Hull(), xfA, b.(*actor.Circle), xfB)
	}
	dispatch[actor.ShapeTypeCapsule][actor.ShapeTypeCircle] = func(a actor.Shape, xfA actor.Transform, b actor.Shape, xfB actor.Transform) (collide.Manifold, bool) {
		return collide.HullCircle(a.(*actor.Capsule).Hull(), xfA, b.(*actor.Circle), xfB)
	}
	dispatch[actor.ShapeTypePolygon][actor.ShapeTypePolygon] = func(a actor.Shape, xfA actor.Transform, b actor.Shape, xfB actor.Transform) (collide.Manifold, bool) {
		return collide.HullHull(a.(*actor.Polygon).Hull(), xfA, b.(*actor.Polygon).Hull(), xfB)
	}
	dispatch[actor.ShapeTypeCapsule][actor.ShapeTypePolygon] = func(a actor.Shape, xfA actor.Transform, b actor.Shape, xfB actor.Transform) (collide.Manifold, bool) {
		return collide.CapsulePolygon(a.(*actor.Capsule), xfA, b.(*actor.Polygon), xfB)
	}
	dispatch[actor.ShapeTypeCapsule][actor.ShapeTypeCapsule] = func(a actor.Shape, xfA actor.Transform, b actor.Shape, xfB actor.Transform) (collide.Manifold, bool) {
		return collide.CapsuleCapsule(a.(*actor.Capsule), xfA, b.(*actor.Capsule), xfB)
	}
}

// collideShapes produces the manifolds between two shapes, recursing
// into compound children. Normals always point from A to B.
func collideShapes(a actor.Shape, xfA actor.Transform, b actor.Shape, xfB actor.Transform) []collide.Manifold {
	if compound, ok := a.(*actor.Compound); ok {
		var manifolds []collide.Manifold
		for _, child := range compound.Children {
			manifolds = append(manifolds, collideShapes(child.Shape, xfA.Mul(child.Transform), b, xfB)...)
		}
		return manifolds
	}
	if compound, ok := b.(*actor.Compound); ok {
		var manifolds []collide.Manifold
		for _, child := range compound.Children {
			manifolds = append(manifolds, collideShapes(a, xfA, child.Shape, xfB.Mul(child.Transform))...)
		}
		return manifolds
	}

	if fn := dispatch[a.Type()][b.Type()]; fn != nil {
		if m, ok := fn(a, xfA, b, xfB); ok {
			return []collide.Manifold{m}
		}
		return nil
	}
	if fn := dispatch[b.Type()][a.Type()]; fn != nil {
		if m, ok := fn(b, xfB, a, xfA); ok {
			m.Normal = m.Normal.Mul(-1)
			return []collide.Manifold{m}
		}
	}
	return nil
}

// NarrowPhase runs the manifold routines over the candidate pairs in
// parallel, writing into per-pair slots so the flattened output keeps
// the broad-phase order. Degenerate manifolds are dropped.
func NarrowPhase(pairs []Pair, workersCount int) []*constraint.ContactConstraint {
	results := make([][]*constraint.ContactConstraint, len(pairs))

	taskIndexed(workersCount, pairs, func(i int, pair Pair) {
		manifolds := collideShapes(pair.BodyA.Shape, pair.BodyA.Transform, pair.BodyB.Shape, pair.BodyB.Transform)
		for _, m := range manifolds {
			if !actor.IsValidVec(m.Normal) || len(m.Points) == 0 {
				continue
			}
			results[i] = append(results[i], constraint.NewContact(pair.BodyA, pair.BodyB, m))
		}
	})

	contacts := make([]*constraint.ContactConstraint, 0, len(pairs))
	for _, r := range results {
		contacts = append(contacts, r...)
	}
	return contacts
}
