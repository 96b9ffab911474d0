package integrators

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/jointsim/internal/body"
)

func benchBodies(n int) *body.Set {
	s := body.NewSet()
	for i := 0; i < n; i++ {
		b, _ := body.NewDynamic(mgl64.Vec3{float64(i), 0, 0}, 1, mgl64.Vec3{1, 1, 1})
		b.AngularVelocity = mgl64.Vec3{0.1, 0.2, 0.3}
		s.Insert(b)
	}
	return s
}

func BenchmarkEuler(b *testing.B) {
	bodies := benchBodies(1)
	e := NewEuler(mgl64.Vec3{0, -9.81, 0})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.IntegrateVelocities(bodies, 0.01)
		e.IntegratePositions(bodies, 0.01)
	}
}

func BenchmarkEuler_Bodies100(b *testing.B) {
	bodies := benchBodies(100)
	e := NewEuler(mgl64.Vec3{0, -9.81, 0})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.IntegrateVelocities(bodies, 0.001)
		e.IntegratePositions(bodies, 0.001)
	}
}
