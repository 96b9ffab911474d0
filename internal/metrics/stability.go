package metrics

import (
	"github.com/san-kum/jointsim/internal/body"
	"github.com/san-kum/jointsim/internal/world"
)

// Stability is the fraction of observed steps in which every body moves
// slower than the threshold.
type Stability struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{
		name:      "stability",
		threshold: threshold,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(w *world.World, t float64) {
	s.samples++
	limit := s.threshold * s.threshold
	w.Bodies().Each(func(_ body.Handle, b *body.Body) bool {
		if !b.IsValid() || b.LinearVelocity.Dot(b.LinearVelocity) > limit {
			s.violations++
			return false
		}
		return true
	})
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}
