package world

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/jointsim/internal/body"
	"github.com/san-kum/jointsim/internal/joint"
)

func zeroGravity() Config {
	cfg := DefaultConfig()
	cfg.Gravity = mgl64.Vec3{}
	cfg.Solver.Workers = 2
	return cfg
}

func addCube(t *testing.T, w *World, pos mgl64.Vec3) body.Handle {
	t.Helper()
	b, err := body.NewDynamic(pos, 1, body.CuboidInertia(1, mgl64.Vec3{0.5, 0.5, 0.5}))
	if err != nil {
		t.Fatal(err)
	}
	h, err := w.AddBody(b)
	if err != nil {
		t.Fatal(err)
	}
	return h
}

func addSpring(t *testing.T, w *World, b1, b2 body.Handle, s *joint.SpringJoint) joint.Handle {
	t.Helper()
	h, err := w.AddJoint(b1, b2, s)
	if err != nil {
		t.Fatal(err)
	}
	return h
}

func mustSeparation(t *testing.T, w *World, h joint.Handle) float64 {
	t.Helper()
	l, err := w.Separation(h)
	if err != nil {
		t.Fatal(err)
	}
	return l
}
