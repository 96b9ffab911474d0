package dynamo

import (
	"math"

	"github.com/san-kum/jointsim/internal/solver"
	"github.com/san-kum/jointsim/internal/world"
)

// State holds one value per spring joint, in joint slot order.
type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

type Metric interface {
	Name() string
	Observe(w *world.World, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(w *world.World, st solver.Stats, t float64)
}

type Config struct {
	Dt            float64 `yaml:"dt" json:"dt"`
	Duration      float64 `yaml:"duration" json:"duration"`
	ValidateState bool    `yaml:"validate_state" json:"validate_state"`

	// SampleEvery records every n-th step into the result.
	SampleEvery int `yaml:"sample_every" json:"sample_every"`

	// MaxEnergyGrowth stops the run when the total energy exceeds the
	// initial energy by this factor. Zero disables the check.
	MaxEnergyGrowth float64 `yaml:"max_energy_growth" json:"max_energy_growth"`
}

func DefaultConfig() Config {
	return Config{
		Dt:              0.01,
		Duration:        10.0,
		ValidateState:   true,
		SampleEvery:     1,
		MaxEnergyGrowth: 0,
	}
}

type Result struct {
	States      []State
	Times       []float64
	Energies    []float64
	Metrics     map[string]float64
	EnergyDrift float64
	StepsTaken  int
	Errors      []error
}
