// Package solver drives registered joints through the sequential-impulse
// cycle once per substep.
//
// Bodies connected by joints are grouped into islands. Static and kinematic
// bodies never merge islands, so a fixed anchor shared by many springs does
// not serialize them. Islands are independent and are solved concurrently;
// inside an island the order is fixed by joint slot, which keeps results
// identical for any worker count.
package solver

import (
	"runtime"
	"sync"

	"github.com/san-kum/jointsim/internal/body"
	"github.com/san-kum/jointsim/internal/joint"
	"golang.org/x/sync/errgroup"
)

type Config struct {
	Iterations     int     `yaml:"iterations" json:"iterations"`
	WarmStarting   bool    `yaml:"warm_starting" json:"warm_starting"`
	ErrorReduction float64 `yaml:"error_reduction" json:"error_reduction"`
	Workers        int     `yaml:"workers" json:"workers"`
	Batching       bool    `yaml:"batching" json:"batching"`
}

func DefaultConfig() Config {
	return Config{
		Iterations:     8,
		WarmStarting:   true,
		ErrorReduction: joint.DefaultErrorReduction,
		Workers:        runtime.NumCPU(),
		Batching:       true,
	}
}

// Stats summarizes one call to Step.
type Stats struct {
	Islands int
	Joints  int
	Batches int
	Singles int
}

type Solver struct {
	cfg  Config
	pool sync.Pool
}

func New(cfg Config) *Solver {
	if cfg.Iterations < 1 {
		cfg.Iterations = 1
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Solver{
		cfg: cfg,
		pool: sync.Pool{
			New: func() interface{} {
				return &island{index: make(map[uint32]int)}
			},
		},
	}
}

func (s *Solver) Config() Config { return s.cfg }

// Step prepares and solves every joint once and writes the new velocities
// of dynamic bodies back into the set. Joint accumulators stay inside the
// joints for the next substep.
func (s *Solver) Step(bodies *body.Set, joints *joint.Set, step joint.Step) Stats {
	if s.cfg.ErrorReduction > 0 {
		step.ErrorReduction = s.cfg.ErrorReduction
	}
	step.WarmStarting = step.WarmStarting && s.cfg.WarmStarting

	islands := s.build(bodies, joints)
	defer func() {
		for _, is := range islands {
			is.reset()
			s.pool.Put(is)
		}
	}()

	var g errgroup.Group
	g.SetLimit(s.cfg.Workers)
	for _, is := range islands {
		g.Go(func() error {
			is.solve(step, s.cfg.Iterations)
			is.writeBack()
			return nil
		})
	}
	_ = g.Wait()

	var st Stats
	st.Islands = len(islands)
	for _, is := range islands {
		st.Joints += is.joints
		st.Batches += len(is.batches)
		st.Singles += is.joints - is.batched
	}
	return st
}

// build groups joints into islands ordered by their lowest joint slot.
func (s *Solver) build(bodies *body.Set, joints *joint.Set) []*island {
	uf := newUnionFind(bodies.Slots())

	type entry struct {
		j      *joint.Joint
		b1, b2 *body.Body
	}
	entries := make([]entry, 0, joints.Len())
	joints.Each(func(_ joint.Handle, j *joint.Joint) bool {
		b1, ok1 := bodies.Get(j.Body1)
		b2, ok2 := bodies.Get(j.Body2)
		if !ok1 || !ok2 {
			return true
		}
		if b1.IsDynamic() && b2.IsDynamic() {
			uf.union(int(j.Body1.Slot), int(j.Body2.Slot))
		}
		entries = append(entries, entry{j, b1, b2})
		return true
	})

	var islands []*island
	byRoot := make(map[int]*island)
	for _, e := range entries {
		root := -1
		switch {
		case e.b1.IsDynamic():
			root = uf.find(int(e.j.Body1.Slot))
		case e.b2.IsDynamic():
			root = uf.find(int(e.j.Body2.Slot))
		}

		is, ok := byRoot[root]
		if root < 0 || !ok {
			is = s.pool.Get().(*island)
			islands = append(islands, is)
			if root >= 0 {
				byRoot[root] = is
			}
		}
		i1 := is.state(e.j.Body1, e.b1)
		i2 := is.state(e.j.Body2, e.b2)
		is.add(e.j.Constraint, i1, i2, s.cfg.Batching)
	}
	return islands
}
