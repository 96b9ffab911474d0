package dynamo

import (
	"context"
	"fmt"
	"sync"

	"github.com/san-kum/jointsim/internal/world"
)

// Builder creates the world for one ensemble run.
type Builder func(run int) (*world.World, error)

// Ensemble runs independent worlds in parallel, one goroutine per run.
type Ensemble struct {
	numRuns int
	build   Builder
	newSim  func() *Simulator
}

// NewEnsemble prepares numRuns runs. newSim is called once per run so that
// stateful metrics are never shared; nil uses a bare simulator.
func NewEnsemble(numRuns int, build Builder, newSim func() *Simulator) *Ensemble {
	if newSim == nil {
		newSim = New
	}
	return &Ensemble{numRuns: numRuns, build: build, newSim: newSim}
}

func (e *Ensemble) Run(ctx context.Context, cfg Config) ([]*Result, error) {
	results := make([]*Result, e.numRuns)
	errs := make([]error, e.numRuns)

	var wg sync.WaitGroup
	for i := 0; i < e.numRuns; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			w, err := e.build(idx)
			if err != nil {
				errs[idx] = fmt.Errorf("build run %d: %w", idx, err)
				return
			}
			results[idx], errs[idx] = e.newSim().Run(ctx, w, cfg)
		}(i)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return results, nil
}
