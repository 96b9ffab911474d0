// Package config loads scene descriptions from YAML and turns them into
// ready-to-run worlds.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/jointsim/internal/body"
	"github.com/san-kum/jointsim/internal/dynamo"
	"github.com/san-kum/jointsim/internal/joint"
	"github.com/san-kum/jointsim/internal/solver"
	"github.com/san-kum/jointsim/internal/world"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDt       = 0.01
	DefaultDuration = 10.0
	DefaultSubsteps = 4
	DefaultMass     = 1.0
	DefaultHalfSize = 0.5
)

type Scene struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description,omitempty"`
	Dt          float64       `yaml:"dt"`
	Duration    float64       `yaml:"duration"`
	Substeps    int           `yaml:"substeps"`
	Gravity     []float64     `yaml:"gravity,flow,omitempty"`
	Solver      solver.Config `yaml:"solver"`
	Bodies      []BodySpec    `yaml:"bodies"`
	Joints      []JointSpec   `yaml:"joints"`
}

type BodySpec struct {
	Name            string    `yaml:"name"`
	Kind            string    `yaml:"kind,omitempty"`
	Position        []float64 `yaml:"position,flow"`
	Velocity        []float64 `yaml:"velocity,flow,omitempty"`
	AngularVelocity []float64 `yaml:"angular_velocity,flow,omitempty"`
	Mass            float64   `yaml:"mass,omitempty"`
	HalfExtents     []float64 `yaml:"half_extents,flow,omitempty"`
	Force           []float64 `yaml:"force,flow,omitempty"`
	Ramp            *RampSpec `yaml:"ramp,omitempty"`
}

type RampSpec struct {
	From     []float64 `yaml:"from,flow,omitempty"`
	To       []float64 `yaml:"to,flow"`
	Duration float64   `yaml:"duration"`
	Easing   string    `yaml:"easing,omitempty"`
}

type JointSpec struct {
	Name       string     `yaml:"name"`
	Body1      string     `yaml:"body1"`
	Body2      string     `yaml:"body2"`
	Anchor1    []float64  `yaml:"anchor1,flow,omitempty"`
	Anchor2    []float64  `yaml:"anchor2,flow,omitempty"`
	RestLength float64    `yaml:"rest_length"`
	Stiffness  float64    `yaml:"stiffness"`
	Damping    float64    `yaml:"damping"`
	Limits     *LimitSpec `yaml:"limits,omitempty"`
}

type LimitSpec struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Handles maps scene names to the handles created by Build.
type Handles struct {
	Bodies     map[string]body.Handle
	Joints     map[string]joint.Handle
	JointOrder []string
}

func newScene() *Scene {
	return &Scene{
		Dt:       DefaultDt,
		Duration: DefaultDuration,
		Substeps: DefaultSubsteps,
		Solver:   solver.DefaultConfig(),
	}
}

// DefaultScene is the two-body oscillator.
func DefaultScene() *Scene {
	return GetPreset("oscillator")
}

func Load(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s := newScene()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scene %s: %w", path, err)
	}
	return s, nil
}

func Save(path string, s *Scene) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// RunConfig returns the run settings of the scene.
func (s *Scene) RunConfig() dynamo.Config {
	cfg := dynamo.DefaultConfig()
	cfg.Dt = s.Dt
	cfg.Duration = s.Duration
	return cfg
}

// WorldConfig returns the world settings of the scene.
func (s *Scene) WorldConfig() world.Config {
	g, _ := vec3(s.Gravity)
	return world.Config{Gravity: g, Substeps: s.Substeps, Solver: s.Solver}
}

// Validate reports every problem in the scene.
func (s *Scene) Validate() error {
	var errs []error
	if !(s.Dt > 0) {
		errs = append(errs, fmt.Errorf("dt must be positive, got %v", s.Dt))
	}
	if !(s.Duration > 0) {
		errs = append(errs, fmt.Errorf("duration must be positive, got %v", s.Duration))
	}
	if s.Substeps < 1 {
		errs = append(errs, fmt.Errorf("substeps must be at least 1, got %d", s.Substeps))
	}
	if s.Solver.Iterations < 1 {
		errs = append(errs, fmt.Errorf("solver iterations must be at least 1, got %d", s.Solver.Iterations))
	}
	if _, err := vec3(s.Gravity); err != nil {
		errs = append(errs, fmt.Errorf("gravity: %w", err))
	}

	names := make(map[string]bool, len(s.Bodies))
	for i, b := range s.Bodies {
		if b.Name == "" {
			errs = append(errs, fmt.Errorf("body %d: missing name", i))
		} else if names[b.Name] {
			errs = append(errs, fmt.Errorf("body %q: duplicate name", b.Name))
		}
		names[b.Name] = true
		if _, err := b.build(); err != nil {
			errs = append(errs, fmt.Errorf("body %q: %w", b.Name, err))
		}
	}

	jointNames := make(map[string]bool, len(s.Joints))
	for i, j := range s.Joints {
		label := j.Name
		if label == "" {
			label = fmt.Sprintf("#%d", i)
		} else if jointNames[j.Name] {
			errs = append(errs, fmt.Errorf("joint %q: duplicate name", j.Name))
		}
		jointNames[j.Name] = true
		if !names[j.Body1] {
			errs = append(errs, fmt.Errorf("joint %s: unknown body %q", label, j.Body1))
		}
		if !names[j.Body2] {
			errs = append(errs, fmt.Errorf("joint %s: unknown body %q", label, j.Body2))
		}
		if j.Body1 == j.Body2 {
			errs = append(errs, fmt.Errorf("joint %s: %w", label, world.ErrSelfJoint))
		}
		if _, err := j.build(); err != nil {
			errs = append(errs, fmt.Errorf("joint %s: %w", label, err))
		}
	}
	return errors.Join(errs...)
}

// Build validates the scene and creates its world.
func (s *Scene) Build(opts ...world.Option) (*world.World, *Handles, error) {
	if err := s.Validate(); err != nil {
		return nil, nil, err
	}
	w := world.New(s.WorldConfig(), opts...)
	hs := &Handles{
		Bodies: make(map[string]body.Handle, len(s.Bodies)),
		Joints: make(map[string]joint.Handle, len(s.Joints)),
	}

	for _, spec := range s.Bodies {
		b, _ := spec.build()
		h, err := w.AddBody(b)
		if err != nil {
			return nil, nil, fmt.Errorf("body %q: %w", spec.Name, err)
		}
		hs.Bodies[spec.Name] = h
		if spec.Ramp != nil {
			r, err := spec.Ramp.ramp()
			if err != nil {
				return nil, nil, fmt.Errorf("body %q: %w", spec.Name, err)
			}
			if err := w.SetForceRamp(h, r); err != nil {
				return nil, nil, fmt.Errorf("body %q: %w", spec.Name, err)
			}
		}
	}

	for i, spec := range s.Joints {
		sp, _ := spec.build()
		h, err := w.AddJoint(hs.Bodies[spec.Body1], hs.Bodies[spec.Body2], sp)
		if err != nil {
			return nil, nil, fmt.Errorf("joint %q: %w", spec.Name, err)
		}
		name := spec.Name
		if name == "" {
			name = fmt.Sprintf("joint%d", i)
		}
		hs.Joints[name] = h
		hs.JointOrder = append(hs.JointOrder, name)
	}
	return w, hs, nil
}

func (b BodySpec) build() (body.Body, error) {
	pos, err := vec3(b.Position)
	if err != nil {
		return body.Body{}, fmt.Errorf("position: %w", err)
	}
	vel, err := vec3(b.Velocity)
	if err != nil {
		return body.Body{}, fmt.Errorf("velocity: %w", err)
	}
	ang, err := vec3(b.AngularVelocity)
	if err != nil {
		return body.Body{}, fmt.Errorf("angular velocity: %w", err)
	}
	force, err := vec3(b.Force)
	if err != nil {
		return body.Body{}, fmt.Errorf("force: %w", err)
	}
	if b.Ramp != nil {
		if _, err := b.Ramp.ramp(); err != nil {
			return body.Body{}, err
		}
	}

	kind, err := body.ParseKind(b.Kind)
	if err != nil {
		return body.Body{}, err
	}

	var out body.Body
	switch kind {
	case body.Static:
		out = body.NewStatic(pos)
	case body.Kinematic:
		out = body.NewKinematic(pos, vel)
		out.AngularVelocity = ang
	default:
		mass := b.Mass
		if mass == 0 {
			mass = DefaultMass
		}
		half := mgl64.Vec3{DefaultHalfSize, DefaultHalfSize, DefaultHalfSize}
		if len(b.HalfExtents) > 0 {
			if half, err = vec3(b.HalfExtents); err != nil {
				return body.Body{}, fmt.Errorf("half extents: %w", err)
			}
		}
		out, err = body.NewDynamic(pos, mass, body.CuboidInertia(mass, half))
		if err != nil {
			return body.Body{}, err
		}
		out.LinearVelocity = vel
		out.AngularVelocity = ang
		out.Force = force
	}
	return out, nil
}

func (r RampSpec) ramp() (world.Ramp, error) {
	from, err := vec3(r.From)
	if err != nil {
		return world.Ramp{}, fmt.Errorf("ramp from: %w", err)
	}
	to, err := vec3(r.To)
	if err != nil {
		return world.Ramp{}, fmt.Errorf("ramp to: %w", err)
	}
	if !(r.Duration > 0) {
		return world.Ramp{}, fmt.Errorf("ramp duration must be positive, got %v", r.Duration)
	}
	return world.Ramp{From: from, To: to, Duration: r.Duration, Easing: r.Easing}, nil
}

func (j JointSpec) build() (*joint.SpringJoint, error) {
	a1, err := vec3(j.Anchor1)
	if err != nil {
		return nil, fmt.Errorf("anchor1: %w", err)
	}
	a2, err := vec3(j.Anchor2)
	if err != nil {
		return nil, fmt.Errorf("anchor2: %w", err)
	}
	b := joint.NewSpringBuilder().
		Anchors(a1, a2).
		RestLength(j.RestLength).
		Stiffness(j.Stiffness).
		Damping(j.Damping)
	if j.Limits != nil {
		b.Limits(j.Limits.Min, j.Limits.Max)
	}
	return b.Build()
}

// vec3 converts an optional YAML triple; nil is the zero vector.
func vec3(v []float64) (mgl64.Vec3, error) {
	if len(v) == 0 {
		return mgl64.Vec3{}, nil
	}
	if len(v) != 3 {
		return mgl64.Vec3{}, fmt.Errorf("expected 3 components, got %d", len(v))
	}
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return mgl64.Vec3{}, fmt.Errorf("non-finite component %v", c)
		}
	}
	return mgl64.Vec3{v[0], v[1], v[2]}, nil
}
