package metrics

import (
	"math"

	"github.com/san-kum/jointsim/internal/joint"
	"github.com/san-kum/jointsim/internal/world"
)

// PeakDeviation is the largest |L - rest| of any spring observed at or
// after From seconds.
type PeakDeviation struct {
	From float64
	peak float64
}

func NewPeakDeviation(from float64) *PeakDeviation {
	return &PeakDeviation{From: from}
}

func (p *PeakDeviation) Name() string { return "peak_deviation" }

func (p *PeakDeviation) Observe(w *world.World, t float64) {
	if t < p.From {
		return
	}
	eachSpring(w, func(s *joint.SpringJoint, l float64) {
		p.peak = math.Max(p.peak, math.Abs(l-s.RestLength()))
	})
}

func (p *PeakDeviation) Value() float64 { return p.peak }
func (p *PeakDeviation) Reset()         { p.peak = 0 }

// LimitViolation is the largest distance any limited spring was observed
// outside its [min, max] range.
type LimitViolation struct {
	worst float64
}

func NewLimitViolation() *LimitViolation { return &LimitViolation{} }

func (v *LimitViolation) Name() string { return "limit_violation" }

func (v *LimitViolation) Observe(w *world.World, t float64) {
	eachSpring(w, func(s *joint.SpringJoint, l float64) {
		if !s.LimitsEnabled() {
			return
		}
		v.worst = math.Max(v.worst, s.LimitsMinLength()-l)
		v.worst = math.Max(v.worst, l-s.LimitsMaxLength())
	})
}

func (v *LimitViolation) Value() float64 { return v.worst }
func (v *LimitViolation) Reset()         { v.worst = 0 }

func eachSpring(w *world.World, fn func(s *joint.SpringJoint, length float64)) {
	w.Joints().Each(func(h joint.Handle, j *joint.Joint) bool {
		s, ok := j.Constraint.(*joint.SpringJoint)
		if !ok {
			return true
		}
		if l, err := w.Separation(h); err == nil {
			fn(s, l)
		}
		return true
	})
}
