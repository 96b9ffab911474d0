package world

import (
	"fmt"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

var easings = map[string]ease.TweenFunc{
	"linear":       ease.Linear,
	"in-quad":      ease.InQuad,
	"out-quad":     ease.OutQuad,
	"in-out-quad":  ease.InOutQuad,
	"in-cubic":     ease.InCubic,
	"out-cubic":    ease.OutCubic,
	"in-out-cubic": ease.InOutCubic,
	"in-out-sine":  ease.InOutSine,
}

// Easings lists the registered easing names.
func Easings() []string {
	names := make([]string, 0, len(easings))
	for n := range easings {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Ramp moves a body's external force from From to To over Duration
// seconds of simulated time.
type Ramp struct {
	From     mgl64.Vec3 `json:"from" yaml:"from"`
	To       mgl64.Vec3 `json:"to" yaml:"to"`
	Duration float64    `json:"duration" yaml:"duration"`
	Easing   string     `json:"easing" yaml:"easing"`
}

type forceRamp struct {
	Ramp
	elapsed float64
	tween   *gween.Tween
}

func newForceRamp(r Ramp, elapsed float64) (*forceRamp, error) {
	if r.Easing == "" {
		r.Easing = "linear"
	}
	fn, ok := easings[r.Easing]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEasing, r.Easing)
	}
	if !(r.Duration > 0) {
		return nil, fmt.Errorf("world: ramp duration must be positive, got %v", r.Duration)
	}
	return &forceRamp{
		Ramp:    r,
		elapsed: elapsed,
		tween:   gween.New(0, 1, float32(r.Duration), fn),
	}, nil
}

// force evaluates the ramp at its elapsed time. The tween is positioned
// absolutely so a restored ramp yields the same values as an uninterrupted one.
func (r *forceRamp) force() (mgl64.Vec3, bool) {
	frac, done := r.tween.Set(float32(r.elapsed))
	if done || r.elapsed >= r.Duration {
		return r.To, true
	}
	return r.From.Add(r.To.Sub(r.From).Mul(float64(frac))), false
}
