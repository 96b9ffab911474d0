package dynamo

import (
	"context"
	"fmt"
	"math"

	"github.com/go-logr/logr"
	"github.com/san-kum/jointsim/internal/logging"
	"github.com/san-kum/jointsim/internal/world"
)

type Simulator struct {
	metrics   []Metric
	observers []Observer
}

func New() *Simulator {
	return &Simulator{
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

// Run steps w for cfg.Duration. A state or stability failure ends the run
// early and is reported in Result.Errors; cancellation returns the partial
// result with an error.
func (s *Simulator) Run(ctx context.Context, w *world.World, cfg Config) (*Result, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	log := logr.FromContextOrDiscard(ctx)

	steps := int(math.Round(cfg.Duration / cfg.Dt))
	every := cfg.SampleEvery
	if every < 1 {
		every = 1
	}
	result := &Result{
		States:   make([]State, 0, steps/every+1),
		Times:    make([]float64, 0, steps/every+1),
		Energies: make([]float64, 0, steps/every+1),
		Metrics:  make(map[string]float64),
		Errors:   make([]error, 0),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	initialEnergy := w.Energy().Total()
	s.record(result, w, initialEnergy)
	log.V(logging.VERBOSE).Info("Starting run", "steps", steps, "dt", cfg.Dt, "bodies", w.Bodies().Len(), "joints", w.Joints().Len())

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return result, &SimulationError{
				Step:    i,
				Time:    w.Time(),
				Wrapped: fmt.Errorf("%w: %w", ErrContextCanceled, ctx.Err()),
			}
		default:
		}

		t := w.Time()
		for _, m := range s.metrics {
			m.Observe(w, t)
		}

		st := w.Step(cfg.Dt)
		for _, obs := range s.observers {
			obs.OnStep(w, st, w.Time())
		}

		if cfg.ValidateState && !w.IsValid() {
			err := &SimulationError{Step: i, Time: w.Time(), State: State(w.Separations()), Wrapped: ErrInvalidState}
			result.Errors = append(result.Errors, err)
			log.Error(err, "Run stopped", "step", i)
			break
		}

		energy := w.Energy().Total()
		if cfg.MaxEnergyGrowth > 0 && energy > math.Abs(initialEnergy)*cfg.MaxEnergyGrowth {
			err := &SimulationError{Step: i, Time: w.Time(), State: State(w.Separations()), Wrapped: ErrUnstable}
			result.Errors = append(result.Errors, err)
			log.Error(err, "Run stopped", "step", i, "energy", energy)
			break
		}

		result.StepsTaken++
		if result.StepsTaken%every == 0 {
			s.record(result, w, energy)
		}
		log.V(logging.TRACE).Info("Step", "step", i, "time", w.Time(), "islands", st.Islands, "batches", st.Batches)
	}

	finalEnergy := w.Energy().Total()
	if initialEnergy != 0 {
		result.EnergyDrift = math.Abs(finalEnergy-initialEnergy) / math.Abs(initialEnergy)
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	log.V(logging.VERBOSE).Info("Run finished", "steps", result.StepsTaken, "time", w.Time(), "energyDrift", result.EnergyDrift)

	return result, nil
}

func (s *Simulator) record(r *Result, w *world.World, energy float64) {
	r.States = append(r.States, State(w.Separations()))
	r.Times = append(r.Times, w.Time())
	r.Energies = append(r.Energies, energy)
}

func validateConfig(cfg Config) error {
	if !(cfg.Dt > 0) || math.IsInf(cfg.Dt, 0) {
		return fmt.Errorf("%w: dt must be positive, got %v", ErrParameterBounds, cfg.Dt)
	}
	if !(cfg.Duration > 0) || math.IsInf(cfg.Duration, 0) {
		return fmt.Errorf("%w: duration must be positive, got %v", ErrParameterBounds, cfg.Duration)
	}
	if cfg.MaxEnergyGrowth < 0 {
		return fmt.Errorf("%w: max energy growth must be non-negative, got %v", ErrParameterBounds, cfg.MaxEnergyGrowth)
	}
	return nil
}
