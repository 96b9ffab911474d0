package solver

import (
	"github.com/san-kum/jointsim/internal/body"
	"github.com/san-kum/jointsim/internal/joint"
)

// unit is either one batch of springs or a single constraint.
type unit struct {
	batch  int
	c      joint.Constraint
	b1, b2 int
}

// island is pooled scratch for one group of connected bodies.
type island struct {
	states  []joint.BodyState
	bodies  []*body.Body
	index   map[uint32]int
	units   []unit
	batches []joint.SpringBatch
	joints  int
	batched int
}

func (is *island) reset() {
	is.states = is.states[:0]
	clear(is.bodies)
	is.bodies = is.bodies[:0]
	clear(is.index)
	clear(is.units)
	is.units = is.units[:0]
	clear(is.batches)
	is.batches = is.batches[:0]
	is.joints = 0
	is.batched = 0
}

// state returns the scratch index for h, loading the body on first use.
func (is *island) state(h body.Handle, b *body.Body) int {
	if i, ok := is.index[h.Slot]; ok {
		return i
	}
	i := len(is.states)
	is.states = append(is.states, joint.NewBodyState(b))
	is.bodies = append(is.bodies, b)
	is.index[h.Slot] = i
	return i
}

// add places c into the first open batch whose bodies are disjoint from it,
// or opens a new unit.
func (is *island) add(c joint.Constraint, b1, b2 int, batching bool) {
	is.joints++
	if sp, ok := c.(*joint.SpringJoint); ok && batching && sp.SupportsSIMD() {
		for _, u := range is.units {
			if u.batch >= 0 && is.batches[u.batch].Add(sp, b1, b2) {
				is.batched++
				return
			}
		}
		is.batches = append(is.batches, joint.SpringBatch{})
		bi := len(is.batches) - 1
		if is.batches[bi].Add(sp, b1, b2) {
			is.units = append(is.units, unit{batch: bi})
			is.batched++
			return
		}
		is.batches = is.batches[:bi]
	}
	is.units = append(is.units, unit{batch: -1, c: c, b1: b1, b2: b2})
}

func (is *island) solve(step joint.Step, iterations int) {
	for _, u := range is.units {
		if u.batch >= 0 {
			is.batches[u.batch].Prepare(step, is.states)
			continue
		}
		u.c.Prepare(step, &is.states[u.b1], &is.states[u.b2])
	}
	for it := 0; it < iterations; it++ {
		for _, u := range is.units {
			if u.batch >= 0 {
				is.batches[u.batch].Solve(step, is.states)
				continue
			}
			u.c.Solve(step, &is.states[u.b1], &is.states[u.b2])
		}
	}
}

// writeBack copies velocities into dynamic bodies only.
func (is *island) writeBack() {
	for i, b := range is.bodies {
		if !b.IsDynamic() {
			continue
		}
		b.LinearVelocity = is.states[i].LinVel
		b.AngularVelocity = is.states[i].AngVel
	}
}

type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return &unionFind{parent: p}
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

// union links the larger root under the smaller so roots stay stable.
func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	switch {
	case ra < rb:
		u.parent[rb] = ra
	case rb < ra:
		u.parent[ra] = rb
	}
}
