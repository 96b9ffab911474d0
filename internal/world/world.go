// Package world owns the body and joint registries and advances them
// through the substep pipeline:
//
//	ramps -> velocities -> joint solver -> positions
//
// Removing a body removes every joint attached to it in the same call, so
// the solver never sees a joint whose bodies are gone.
package world

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/go-logr/logr"
	"github.com/san-kum/jointsim/internal/body"
	"github.com/san-kum/jointsim/internal/integrators"
	"github.com/san-kum/jointsim/internal/joint"
	"github.com/san-kum/jointsim/internal/logging"
	"github.com/san-kum/jointsim/internal/solver"
)

type Config struct {
	Gravity  mgl64.Vec3    `json:"gravity"`
	Substeps int           `json:"substeps"`
	Solver   solver.Config `json:"solver"`
}

func DefaultConfig() Config {
	return Config{
		Gravity:  mgl64.Vec3{0, -9.81, 0},
		Substeps: 4,
		Solver:   solver.DefaultConfig(),
	}
}

type Option func(*World)

func WithLogger(l logr.Logger) Option {
	return func(w *World) { w.log = l }
}

type World struct {
	cfg    Config
	bodies *body.Set
	joints *joint.Set
	solver *solver.Solver
	integ  *integrators.SymplecticEuler
	ramps  map[body.Handle]*forceRamp
	log    logr.Logger

	time   float64
	lastDt float64
}

func New(cfg Config, opts ...Option) *World {
	if cfg.Substeps < 1 {
		cfg.Substeps = 1
	}
	w := &World{
		cfg:    cfg,
		bodies: body.NewSet(),
		joints: joint.NewSet(),
		solver: solver.New(cfg.Solver),
		integ:  integrators.NewEuler(cfg.Gravity),
		ramps:  make(map[body.Handle]*forceRamp),
		log:    logr.Discard(),
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

func (w *World) Config() Config       { return w.cfg }
func (w *World) Bodies() *body.Set    { return w.bodies }
func (w *World) Joints() *joint.Set   { return w.joints }
func (w *World) Time() float64        { return w.time }
func (w *World) LastSubstep() float64 { return w.lastDt }

func (w *World) AddBody(b body.Body) (body.Handle, error) {
	if !b.IsValid() {
		return body.Handle{}, ErrInvalidBody
	}
	if b.Orientation == (mgl64.Quat{}) {
		b.Orientation = mgl64.QuatIdent()
	}
	return w.bodies.Insert(b), nil
}

func (w *World) Body(h body.Handle) (*body.Body, error) {
	b, ok := w.bodies.Get(h)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBody, h)
	}
	return b, nil
}

// RemoveBody removes the body together with its attached joints and any
// force ramp driving it.
func (w *World) RemoveBody(h body.Handle) error {
	if _, ok := w.bodies.Remove(h); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownBody, h)
	}
	removed := w.joints.RemoveAttached(h)
	delete(w.ramps, h)
	if len(removed) > 0 {
		w.log.V(logging.DEBUG).Info("Removed attached joints", "body", h.String(), "joints", len(removed))
	}
	return nil
}

// AddJoint registers c between two live, distinct bodies. Constraints
// that can validate themselves are checked first.
func (w *World) AddJoint(b1, b2 body.Handle, c joint.Constraint) (joint.Handle, error) {
	if !w.bodies.Contains(b1) {
		return joint.Handle{}, fmt.Errorf("%w: %s", ErrUnknownBody, b1)
	}
	if !w.bodies.Contains(b2) {
		return joint.Handle{}, fmt.Errorf("%w: %s", ErrUnknownBody, b2)
	}
	if b1 == b2 {
		return joint.Handle{}, fmt.Errorf("%w: %s", ErrSelfJoint, b1)
	}
	if v, ok := c.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return joint.Handle{}, err
		}
	}
	return w.joints.Insert(b1, b2, c), nil
}

func (w *World) RemoveJoint(h joint.Handle) error {
	if _, ok := w.joints.Remove(h); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJoint, h)
	}
	return nil
}

func (w *World) Joint(h joint.Handle) (*joint.Joint, error) {
	j, ok := w.joints.Get(h)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJoint, h)
	}
	return j, nil
}

func (w *World) Spring(h joint.Handle) (*joint.SpringJoint, error) {
	j, err := w.Joint(h)
	if err != nil {
		return nil, err
	}
	s, ok := j.Constraint.(*joint.SpringJoint)
	if !ok {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotSpring, h, j.Kind())
	}
	return s, nil
}

// SetForce sets a constant external force and cancels any ramp on the body.
func (w *World) SetForce(h body.Handle, f mgl64.Vec3) error {
	b, err := w.Body(h)
	if err != nil {
		return err
	}
	delete(w.ramps, h)
	b.Force = f
	return nil
}

// SetForceRamp starts easing the body's force from r.From to r.To.
func (w *World) SetForceRamp(h body.Handle, r Ramp) error {
	b, err := w.Body(h)
	if err != nil {
		return err
	}
	fr, err := newForceRamp(r, 0)
	if err != nil {
		return err
	}
	w.ramps[h] = fr
	b.Force = r.From
	return nil
}

// Step advances the world by dt split into the configured substeps and
// returns the solver statistics of the last substep.
func (w *World) Step(dt float64) solver.Stats {
	var st solver.Stats
	if !(dt > 0) {
		return st
	}
	h := dt / float64(w.cfg.Substeps)
	for i := 0; i < w.cfg.Substeps; i++ {
		st = w.substep(h)
	}
	return st
}

func (w *World) substep(h float64) solver.Stats {
	w.applyRamps(h)
	w.integ.IntegrateVelocities(w.bodies, h)
	st := w.solver.Step(w.bodies, w.joints, joint.NewStep(h, w.lastDt, w.cfg.Solver.WarmStarting))
	w.integ.IntegratePositions(w.bodies, h)
	w.time += h
	w.lastDt = h
	return st
}

func (w *World) applyRamps(h float64) {
	for bh, r := range w.ramps {
		b, ok := w.bodies.Get(bh)
		if !ok {
			delete(w.ramps, bh)
			continue
		}
		f, done := r.force()
		b.Force = f
		if done {
			delete(w.ramps, bh)
			continue
		}
		r.elapsed += h
	}
}

// Separation returns the current anchor distance of a spring joint.
func (w *World) Separation(h joint.Handle) (float64, error) {
	j, err := w.Joint(h)
	if err != nil {
		return 0, err
	}
	s, ok := j.Constraint.(*joint.SpringJoint)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNotSpring, h)
	}
	b1, err := w.Body(j.Body1)
	if err != nil {
		return 0, err
	}
	b2, err := w.Body(j.Body2)
	if err != nil {
		return 0, err
	}
	return s.Separation(b1, b2), nil
}

// Separations returns the separation of every spring in joint slot order.
func (w *World) Separations() []float64 {
	var out []float64
	w.joints.Each(func(h joint.Handle, j *joint.Joint) bool {
		if l, err := w.Separation(h); err == nil {
			out = append(out, l)
		}
		return true
	})
	return out
}

type Energy struct {
	Kinetic   float64
	Elastic   float64
	Potential float64
}

func (e Energy) Total() float64 { return e.Kinetic + e.Elastic + e.Potential }

// Energy sums kinetic energy, spring elastic energy and gravitational
// potential energy of dynamic bodies.
func (w *World) Energy() Energy {
	var e Energy
	w.bodies.Each(func(_ body.Handle, b *body.Body) bool {
		e.Kinetic += b.KineticEnergy()
		if b.IsDynamic() && b.InvMass > 0 {
			e.Potential -= w.cfg.Gravity.Dot(b.WorldCenterOfMass()) / b.InvMass
		}
		return true
	})
	w.joints.Each(func(h joint.Handle, j *joint.Joint) bool {
		if s, ok := j.Constraint.(*joint.SpringJoint); ok {
			if l, err := w.Separation(h); err == nil {
				e.Elastic += s.PotentialEnergy(l)
			}
		}
		return true
	})
	return e
}

// IsValid reports whether every body state is finite.
func (w *World) IsValid() bool {
	ok := true
	w.bodies.Each(func(_ body.Handle, b *body.Body) bool {
		ok = b.IsValid()
		return ok
	})
	return ok && !math.IsNaN(w.time)
}
