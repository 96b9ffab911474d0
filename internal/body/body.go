package body

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

var (
	// ErrStaleHandle indicates a handle whose body was removed.
	ErrStaleHandle = errors.New("body: stale or unknown handle")

	// ErrInvalidMass indicates a non-positive or non-finite mass for a dynamic body.
	ErrInvalidMass = errors.New("body: mass must be positive and finite")
)

type Kind uint8

const (
	Dynamic Kind = iota
	Static
	Kinematic
)

func (k Kind) String() string {
	switch k {
	case Dynamic:
		return "dynamic"
	case Static:
		return "static"
	case Kinematic:
		return "kinematic"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

func ParseKind(s string) (Kind, error) {
	switch s {
	case "dynamic", "":
		return Dynamic, nil
	case "static":
		return Static, nil
	case "kinematic":
		return Kinematic, nil
	}
	return 0, fmt.Errorf("body: unknown kind %q", s)
}

// Body is the simulation state of one rigid body. Position is the world
// location of the body origin; LocalCenterOfMass is relative to it.
type Body struct {
	Kind              Kind       `json:"kind"`
	Position          mgl64.Vec3 `json:"position"`
	Orientation       mgl64.Quat `json:"orientation"`
	LocalCenterOfMass mgl64.Vec3 `json:"local_center_of_mass"`
	LinearVelocity    mgl64.Vec3 `json:"linear_velocity"`
	AngularVelocity   mgl64.Vec3 `json:"angular_velocity"`

	// InvMass and LocalInvInertia (principal axes) are ignored for
	// non-dynamic bodies, which always behave as infinitely heavy.
	InvMass         float64    `json:"inv_mass"`
	LocalInvInertia mgl64.Vec3 `json:"local_inv_inertia"`

	// Force is a constant external force applied at the center of mass.
	Force mgl64.Vec3 `json:"force"`
}

// NewDynamic returns a dynamic body at pos with the given mass and
// principal inertia. Zero inertia components lock rotation about that axis.
func NewDynamic(pos mgl64.Vec3, mass float64, inertia mgl64.Vec3) (Body, error) {
	if mass <= 0 || math.IsInf(mass, 0) || math.IsNaN(mass) {
		return Body{}, fmt.Errorf("%w: got %v", ErrInvalidMass, mass)
	}
	return Body{
		Kind:            Dynamic,
		Position:        pos,
		Orientation:     mgl64.QuatIdent(),
		InvMass:         1 / mass,
		LocalInvInertia: invertDiag(inertia),
	}, nil
}

func NewStatic(pos mgl64.Vec3) Body {
	return Body{Kind: Static, Position: pos, Orientation: mgl64.QuatIdent()}
}

func NewKinematic(pos, vel mgl64.Vec3) Body {
	return Body{Kind: Kinematic, Position: pos, Orientation: mgl64.QuatIdent(), LinearVelocity: vel}
}

// CuboidInertia returns the principal inertia of a solid box with the
// given half extents.
func CuboidInertia(mass float64, half mgl64.Vec3) mgl64.Vec3 {
	x, y, z := 2*half[0], 2*half[1], 2*half[2]
	return mgl64.Vec3{
		mass * (y*y + z*z) / 12,
		mass * (x*x + z*z) / 12,
		mass * (x*x + y*y) / 12,
	}
}

func invertDiag(v mgl64.Vec3) mgl64.Vec3 {
	var r mgl64.Vec3
	for i := range v {
		if v[i] > 0 && !math.IsInf(v[i], 0) {
			r[i] = 1 / v[i]
		}
	}
	return r
}

func (b *Body) IsDynamic() bool { return b.Kind == Dynamic }

// EffectiveInvMass is zero for static and kinematic bodies.
func (b *Body) EffectiveInvMass() float64 {
	if !b.IsDynamic() {
		return 0
	}
	return b.InvMass
}

// InvInertiaWorld returns R·diag(LocalInvInertia)·Rᵀ, or the zero matrix
// for non-dynamic bodies.
func (b *Body) InvInertiaWorld() mgl64.Mat3 {
	if !b.IsDynamic() {
		return mgl64.Mat3{}
	}
	r := b.Orientation.Normalize().Mat4().Mat3()
	return r.Mul3(mgl64.Diag3(b.LocalInvInertia)).Mul3(r.Transpose())
}

func (b *Body) WorldPoint(local mgl64.Vec3) mgl64.Vec3 {
	return b.Position.Add(b.Orientation.Rotate(local))
}

func (b *Body) WorldCenterOfMass() mgl64.Vec3 {
	return b.WorldPoint(b.LocalCenterOfMass)
}

// PointVelocity returns the velocity of the world point p attached to the body.
func (b *Body) PointVelocity(p mgl64.Vec3) mgl64.Vec3 {
	return b.LinearVelocity.Add(b.AngularVelocity.Cross(p.Sub(b.WorldCenterOfMass())))
}

// KineticEnergy is zero for non-dynamic bodies.
func (b *Body) KineticEnergy() float64 {
	if !b.IsDynamic() || b.InvMass == 0 {
		return 0
	}
	e := 0.5 * b.LinearVelocity.Dot(b.LinearVelocity) / b.InvMass

	// rotational part in the body frame
	w := b.Orientation.Normalize().Inverse().Rotate(b.AngularVelocity)
	for i := range w {
		if b.LocalInvInertia[i] > 0 {
			e += 0.5 * w[i] * w[i] / b.LocalInvInertia[i]
		}
	}
	return e
}

// IsValid reports whether every component is finite.
func (b *Body) IsValid() bool {
	vs := []mgl64.Vec3{b.Position, b.Orientation.V, b.LinearVelocity, b.AngularVelocity}
	for _, v := range vs {
		for _, c := range v {
			if math.IsNaN(c) || math.IsInf(c, 0) {
				return false
			}
		}
	}
	return !math.IsNaN(b.Orientation.W) && !math.IsInf(b.Orientation.W, 0)
}
