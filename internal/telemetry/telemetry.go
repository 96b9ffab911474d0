// Package telemetry exports solver activity as Prometheus metrics.
package telemetry

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/san-kum/jointsim/internal/joint"
	"github.com/san-kum/jointsim/internal/solver"
	"github.com/san-kum/jointsim/internal/world"
)

const namespace = "jointsim"

// Recorder is a dynamo.Observer that keeps its own registry so several
// runs in one process never collide.
type Recorder struct {
	registry *prometheus.Registry

	steps      prometheus.Counter
	islands    prometheus.Gauge
	joints     prometheus.Gauge
	batches    prometheus.Gauge
	singles    prometheus.Gauge
	simTime    prometheus.Gauge
	energy     prometheus.Gauge
	separation *prometheus.GaugeVec
	impulse    *prometheus.GaugeVec
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		steps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_total",
			Help:      "Number of world steps taken.",
		}),
		islands: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "solver",
			Name:      "islands",
			Help:      "Islands solved in the last substep.",
		}),
		joints: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "solver",
			Name:      "joints",
			Help:      "Joints solved in the last substep.",
		}),
		batches: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "solver",
			Name:      "batches",
			Help:      "Spring batches solved in the last substep.",
		}),
		singles: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "solver",
			Name:      "single_joints",
			Help:      "Joints solved outside a batch in the last substep.",
		}),
		simTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "simulated_seconds",
			Help:      "Simulated time of the world.",
		}),
		energy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "total_energy",
			Help:      "Kinetic plus elastic plus gravitational energy.",
		}),
		separation: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "spring",
			Name:      "separation",
			Help:      "Current anchor distance of each spring.",
		}, []string{"joint"}),
		impulse: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "spring",
			Name:      "impulse",
			Help:      "Accumulated impulse of each spring row.",
		}, []string{"joint", "row"}),
	}
	r.registry.MustRegister(r.steps, r.islands, r.joints, r.batches, r.singles, r.simTime, r.energy, r.separation, r.impulse)
	return r
}

func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

func (r *Recorder) OnStep(w *world.World, st solver.Stats, t float64) {
	r.steps.Inc()
	r.islands.Set(float64(st.Islands))
	r.joints.Set(float64(st.Joints))
	r.batches.Set(float64(st.Batches))
	r.singles.Set(float64(st.Singles))
	r.simTime.Set(t)
	r.energy.Set(w.Energy().Total())

	w.Joints().Each(func(h joint.Handle, j *joint.Joint) bool {
		s, ok := j.Constraint.(*joint.SpringJoint)
		if !ok {
			return true
		}
		label := h.String()
		if l, err := w.Separation(h); err == nil {
			r.separation.WithLabelValues(label).Set(l)
		}
		r.impulse.WithLabelValues(label, "spring").Set(s.Impulse())
		r.impulse.WithLabelValues(label, "lower").Set(s.LimitsLowerImpulse())
		r.impulse.WithLabelValues(label, "upper").Set(s.LimitsUpperImpulse())
		return true
	})
}

// Values flattens every unlabeled counter and gauge into name -> value.
func (r *Recorder) Values() (map[string]float64, error) {
	families, err := r.registry.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather metrics: %w", err)
	}
	out := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if len(m.GetLabel()) > 0 {
				continue
			}
			switch mf.GetType() {
			case dto.MetricType_COUNTER:
				out[mf.GetName()] = m.GetCounter().GetValue()
			case dto.MetricType_GAUGE:
				out[mf.GetName()] = m.GetGauge().GetValue()
			}
		}
	}
	return out, nil
}

// WriteText writes every metric family in the Prometheus text format.
func (r *Recorder) WriteText(out io.Writer) error {
	families, err := r.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(out, mf); err != nil {
			return err
		}
	}
	return nil
}

func (r *Recorder) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if err := r.WriteText(bw); err != nil {
		return err
	}
	return bw.Flush()
}
