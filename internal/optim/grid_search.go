// Package optim searches spring parameters for the lowest value of a run
// metric.
package optim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/jointsim/internal/dynamo"
	"github.com/san-kum/jointsim/internal/world"
	"golang.org/x/sync/errgroup"
)

var ErrEmptyGrid = errors.New("optim: empty parameter grid")

// Builder creates a world for one parameter combination.
type Builder func(params map[string]float64) (*world.World, error)

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	workers    int
}

func NewGridSearch(params []string, ranges [][]float64, workers int) *GridSearch {
	if workers < 1 {
		workers = 1
	}
	return &GridSearch{paramNames: params, ranges: ranges, workers: workers}
}

// Point is one evaluated combination.
type Point struct {
	Params map[string]float64
	Value  float64
	Err    error
}

// Search runs every combination and returns all points sorted by metric
// value, best first. Failed combinations sort last and keep their error.
func (g *GridSearch) Search(ctx context.Context, build Builder, newSim func() *dynamo.Simulator, cfg dynamo.Config, metricName string) ([]Point, error) {
	if len(g.paramNames) == 0 || len(g.paramNames) != len(g.ranges) {
		return nil, ErrEmptyGrid
	}
	var combos []map[string]float64
	g.expand(0, make(map[string]float64), &combos)
	if len(combos) == 0 {
		return nil, ErrEmptyGrid
	}

	points := make([]Point, len(combos))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for i, params := range combos {
		eg.Go(func() error {
			points[i] = Point{Params: params, Value: math.Inf(1)}
			w, err := build(params)
			if err != nil {
				points[i].Err = err
				return nil
			}
			res, err := newSim().Run(ctx, w, cfg)
			if err != nil {
				if ctx.Err() != nil {
					return err
				}
				points[i].Err = err
				return nil
			}
			if len(res.Errors) > 0 {
				points[i].Err = res.Errors[0]
				return nil
			}
			v, ok := res.Metrics[metricName]
			if !ok {
				points[i].Err = fmt.Errorf("metric %q not recorded", metricName)
				return nil
			}
			points[i].Value = v
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(points, func(a, b int) bool {
		if (points[a].Err == nil) != (points[b].Err == nil) {
			return points[a].Err == nil
		}
		return points[a].Value < points[b].Value
	})
	return points, nil
}

func (g *GridSearch) expand(depth int, current map[string]float64, out *[]map[string]float64) {
	if depth == len(g.paramNames) {
		params := make(map[string]float64, len(current))
		for k, v := range current {
			params[k] = v
		}
		*out = append(*out, params)
		return
	}
	name := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		current[name] = val
		g.expand(depth+1, current, out)
	}
	delete(current, name)
}
