// Package integrators advances body poses and velocities between solver
// passes.
package integrators

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/jointsim/internal/body"
)

// SymplecticEuler integrates velocities from forces first and positions
// from the solved velocities afterwards, so constraint impulses act on the
// same substep's motion.
type SymplecticEuler struct {
	Gravity mgl64.Vec3
}

func NewEuler(gravity mgl64.Vec3) *SymplecticEuler {
	return &SymplecticEuler{Gravity: gravity}
}

// IntegrateVelocities applies gravity and each body's external force to
// dynamic bodies.
func (e *SymplecticEuler) IntegrateVelocities(bodies *body.Set, dt float64) {
	bodies.Each(func(_ body.Handle, b *body.Body) bool {
		if !b.IsDynamic() {
			return true
		}
		acc := e.Gravity.Add(b.Force.Mul(b.InvMass))
		b.LinearVelocity = b.LinearVelocity.Add(acc.Mul(dt))
		return true
	})
}

// IntegratePositions moves dynamic and kinematic bodies along their
// velocities. Rotation happens about the center of mass.
func (e *SymplecticEuler) IntegratePositions(bodies *body.Set, dt float64) {
	bodies.Each(func(_ body.Handle, b *body.Body) bool {
		if b.Kind == body.Static {
			return true
		}
		Step(b, dt)
		return true
	})
}

// Step advances one body's pose by dt.
func Step(b *body.Body, dt float64) {
	com := b.WorldCenterOfMass().Add(b.LinearVelocity.Mul(dt))

	w := b.AngularVelocity
	if w != (mgl64.Vec3{}) {
		spin := mgl64.Quat{W: 0, V: w}.Mul(b.Orientation).Scale(0.5 * dt)
		b.Orientation = b.Orientation.Add(spin).Normalize()
	}
	b.Position = com.Sub(b.Orientation.Rotate(b.LocalCenterOfMass))
}
