package plume

import (
	"sort"

	"github.com/akmonengine/plume/actor"
)

// Pair is a broad-phase candidate, normalized so BodyA holds the lower
// handle slot.
type Pair struct {
	BodyA *actor.RigidBody
	BodyB *actor.RigidBody
}

func makePair(a, b *actor.RigidBody) Pair {
	if b.Index < a.Index {
		a, b = b, a
	}
	return Pair{BodyA: a, BodyB: b}
}

type sweepEntry struct {
	body *actor.RigidBody
	aabb actor.AABB
}

// BroadPhase finds candidate pairs by sort-and-sweep: swept AABBs are
// sorted along the axis of greater positional variance and swept with
// an active window, testing overlap on the other axis. Sleeping bodies
// stay in the index so an awake body landing on them produces a pair;
// pairs where neither body can respond are dropped here.
func BroadPhase(bodies []*actor.RigidBody, layerMatrix *[32]uint32, dt float64) []Pair {
	entries := make([]sweepEntry, 0, len(bodies))
	for _, body := range bodies {
		if body.Shape == nil {
			continue
		}
		aabb := body.Shape.GetAABB()
		if !body.IsSleeping {
			aabb = aabb.Sweep(body.Velocity.Mul(dt))
		}
		entries = append(entries, sweepEntry{body: body, aabb: aabb})
	}

	axis := sweepAxis(entries)
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].aabb.Min[axis] != entries[j].aabb.Min[axis] {
			return entries[i].aabb.Min[axis] < entries[j].aabb.Min[axis]
		}
		return entries[i].body.Index < entries[j].body.Index
	})

	var pairs []Pair
	var active []sweepEntry
	for _, e := range entries {
		// Drop actives left behind on the sweep axis
		n := 0
		for _, a := range active {
			if a.aabb.Max[axis] >= e.aabb.Min[axis] {
				active[n] = a
				n++
			}
		}
		active = active[:n]

		for _, a := range active {
			if a.aabb.Overlaps(e.aabb) && shouldCollide(a.body, e.body, layerMatrix) {
				pairs = append(pairs, makePair(a.body, e.body))
			}
		}
		active = append(active, e)
	}

	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].BodyA.Index != pairs[j].BodyA.Index {
			return pairs[i].BodyA.Index < pairs[j].BodyA.Index
		}
		return pairs[i].BodyB.Index < pairs[j].BodyB.Index
	})

	return pairs
}

// sweepAxis picks the axis along which the AABB centers spread the
// most, which minimizes the active window during the sweep.
func sweepAxis(entries []sweepEntry) int {
	if len(entries) < 2 {
		return 0
	}

	var mean, variance [2]float64
	for _, e := range entries {
		c := e.aabb.Center()
		mean[0] += c.X()
		mean[1] += c.Y()
	}
	mean[0] /= float64(len(entries))
	mean[1] /= float64(len(entries))
	for _, e := range entries {
		c := e.aabb.Center()
		variance[0] += (c.X() - mean[0]) * (c.X() - mean[0])
		variance[1] += (c.Y() - mean[1]) * (c.Y() - mean[1])
	}

	if variance[1] > variance[0] {
		return 1
	}
	return 0
}

func shouldCollide(a, b *actor.RigidBody, layerMatrix *[32]uint32) bool {
	// At least one body must be able to respond
	if a.BodyType != actor.BodyTypeDynamic && b.BodyType != actor.BodyTypeDynamic {
		return false
	}
	if a.IsSleeping && b.IsSleeping {
		return false
	}
	if layerMatrix[a.Layer]&(1<<b.Layer) == 0 || layerMatrix[b.Layer]&(1<<a.Layer) == 0 {
		return false
	}
	return true
}
