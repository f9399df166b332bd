package plume

import (
	"github.com/akmonengine/plume/actor"
	"github.com/akmonengine/plume/constraint"
)

// Islands are rebuilt once per Step from the last substep's contacts
// and the active joints: bodies connected through constraints sleep and
// wake together, so a stack never half-freezes. Static and kinematic
// bodies never merge islands; they are sinks, not bridges.

type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{
		parent: make([]int, n),
		rank:   make([]int, n),
	}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(i int) int {
	for uf.parent[i] != i {
		uf.parent[i] = uf.parent[uf.parent[i]]
		i = uf.parent[i]
	}
	return i
}

func (uf *unionFind) union(a, b int) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	if uf.rank[ra] < uf.rank[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	if uf.rank[ra] == uf.rank[rb] {
		uf.rank[ra]++
	}
}

// updateIslands groups the dynamic bodies, advances the per-body sleep
// timers by the frame duration, then puts whole islands to sleep or
// wakes them.
func (w *World) updateIslands(dt float64, bodies []*actor.RigidBody, contacts []*constraint.ContactConstraint, joints []constraint.Joint) {
	uf := newUnionFind(len(w.bodies))

	link := func(a, b *actor.RigidBody) {
		if a.BodyType == actor.BodyTypeDynamic && b.BodyType == actor.BodyTypeDynamic {
			uf.union(a.Index, b.Index)
		}
	}
	for _, c := range contacts {
		link(c.BodyA, c.BodyB)
	}
	for _, j := range joints {
		link(j.Bodies())
	}

	islands := make(map[int][]*actor.RigidBody)
	for _, body := range bodies {
		if body.BodyType != actor.BodyTypeDynamic {
			body.IslandID = -1
			continue
		}

		if !body.IsSleeping {
			if body.BelowSleepThresholds(w.Config.SleepLinearVelocity, w.Config.SleepAngularVelocity) {
				body.SleepTimer += dt
			} else {
				body.SleepTimer = 0
			}
		}

		root := uf.find(body.Index)
		body.IslandID = root
		islands[root] = append(islands[root], body)
	}

	for _, members := range islands {
		anyAwake := false
		allEligible := true
		for _, body := range members {
			if !body.IsSleeping {
				anyAwake = true
				if body.SleepTimer < w.Config.SleepTime {
					allEligible = false
				}
			}
		}
		if !anyAwake {
			continue
		}

		if allEligible {
			for _, body := range members {
				if !body.IsSleeping {
					body.Sleep()
				}
			}
		} else {
			// One moving member keeps the whole island awake
			for _, body := range members {
				if body.IsSleeping {
					body.Awake()
				}
			}
		}
	}
}

// wakeIsland wakes a body together with every body of its island, as
// last grouped. Bodies not yet grouped wake alone.
func (w *World) wakeIsland(body *actor.RigidBody) {
	body.Awake()
	if body.IslandID < 0 {
		return
	}
	for _, other := range w.bodies {
		if other != nil && other.IslandID == body.IslandID && other.IsSleeping {
			other.Awake()
		}
	}
}

// wakeOnContact wakes a sleeping body touched by a moving one, so the
// position solve of this substep already sees it. Contact with resting
// static geometry never wakes anyone.
func wakeOnContact(contacts []*constraint.ContactConstraint, linearThreshold, angularThreshold float64) {
	disturbs := func(b *actor.RigidBody) bool {
		if b.IsSleeping {
			return false
		}
		return b.BodyType == actor.BodyTypeDynamic || !b.BelowSleepThresholds(linearThreshold, angularThreshold)
	}

	for _, c := range contacts {
		if c.BodyA.IsSleeping && c.BodyA.BodyType == actor.BodyTypeDynamic && disturbs(c.BodyB) {
			c.BodyA.Awake()
		}
		if c.BodyB.IsSleeping && c.BodyB.BodyType == actor.BodyTypeDynamic && disturbs(c.BodyA) {
			c.BodyB.Awake()
		}
	}
}
