package joint

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/jointsim/internal/body"
)

type Kind string

const KindSpring Kind = "spring"

// DefaultErrorReduction is the fraction of a limit violation removed per substep.
const DefaultErrorReduction = 0.2

// Step describes the substep a constraint is being solved for.
type Step struct {
	Dt    float64
	InvDt float64

	// DtRatio is Dt divided by the previous substep; warm-start impulses
	// are scaled by it so a changing step keeps the same force.
	DtRatio        float64
	WarmStarting   bool
	ErrorReduction float64
}

func NewStep(dt, prevDt float64, warmStarting bool) Step {
	s := Step{Dt: dt, DtRatio: 1, WarmStarting: warmStarting, ErrorReduction: DefaultErrorReduction}
	if dt > 0 {
		s.InvDt = 1 / dt
	}
	if prevDt > 0 {
		s.DtRatio = dt / prevDt
	}
	return s
}

// BodyState is the solver's per-substep copy of the body data a joint
// reads and the velocities it writes.
type BodyState struct {
	Position    mgl64.Vec3
	Orientation mgl64.Quat
	Center      mgl64.Vec3
	InvMass     float64
	InvInertia  mgl64.Mat3
	LinVel      mgl64.Vec3
	AngVel      mgl64.Vec3
}

func NewBodyState(b *body.Body) BodyState {
	return BodyState{
		Position:    b.Position,
		Orientation: b.Orientation,
		Center:      b.WorldCenterOfMass(),
		InvMass:     b.EffectiveInvMass(),
		InvInertia:  b.InvInertiaWorld(),
		LinVel:      b.LinearVelocity,
		AngVel:      b.AngularVelocity,
	}
}

func (s *BodyState) WorldPoint(local mgl64.Vec3) mgl64.Vec3 {
	return s.Position.Add(s.Orientation.Rotate(local))
}

// ApplyImpulse applies p at lever arm r from the center of mass.
func (s *BodyState) ApplyImpulse(p, r mgl64.Vec3) {
	s.LinVel = s.LinVel.Add(p.Mul(s.InvMass))
	s.AngVel = s.AngVel.Add(s.InvInertia.Mul3x1(r.Cross(p)))
}

// Constraint is implemented by every joint kind the solver can drive.
type Constraint interface {
	Kind() Kind

	// SupportsSIMD reports whether the joint may be packed into a
	// vectorized batch with joints of the same kind.
	SupportsSIMD() bool

	// Prepare computes per-substep quantities and applies the warm-start
	// impulse to both bodies.
	Prepare(step Step, b1, b2 *BodyState)

	// Solve runs one iteration, adding impulse deltas to the accumulators.
	Solve(step Step, b1, b2 *BodyState)
}
