package world

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/go-logr/logr/funcr"
	"github.com/san-kum/jointsim/internal/body"
	"github.com/san-kum/jointsim/internal/joint"
	"github.com/san-kum/jointsim/internal/logging"
)

func TestRemoveBodyCascadesToJoints(t *testing.T) {
	var logged []string
	logger := funcr.New(func(prefix, args string) {
		logged = append(logged, args)
	}, funcr.Options{Verbosity: logging.DEBUG})

	w := New(zeroGravity(), WithLogger(logger))
	hub, _ := w.AddBody(body.NewStatic(mgl64.Vec3{}))
	a := addCube(t, w, mgl64.Vec3{3, 0, 0})
	b := addCube(t, w, mgl64.Vec3{0, 3, 0})
	c := addCube(t, w, mgl64.Vec3{0, 0, 3})

	ja := addSpring(t, w, hub, a, joint.NewSpring(mgl64.Vec3{}, mgl64.Vec3{}, 2, 10, 0))
	jab := addSpring(t, w, a, b, joint.NewSpring(mgl64.Vec3{}, mgl64.Vec3{}, 2, 10, 0))
	jbc := addSpring(t, w, b, c, joint.NewSpring(mgl64.Vec3{}, mgl64.Vec3{}, 2, 10, 0))
	w.Step(0.01)

	if err := w.RemoveBody(a); err != nil {
		t.Fatalf("RemoveBody: %v", err)
	}

	for _, h := range []joint.Handle{ja, jab} {
		if _, err := w.Joint(h); !errors.Is(err, ErrUnknownJoint) {
			t.Errorf("joint %s still present after removing its body", h)
		}
	}
	if _, err := w.Joint(jbc); err != nil {
		t.Errorf("unrelated joint removed: %v", err)
	}
	if got := w.Joints().Len(); got != 1 {
		t.Errorf("Joints().Len() = %d, want 1", got)
	}
	if len(logged) != 1 {
		t.Errorf("got %d debug log lines, want 1", len(logged))
	}

	// the solver keeps running on what is left
	w.Step(0.01)
	if !w.IsValid() {
		t.Error("world invalid after cascade")
	}
	if err := w.RemoveBody(a); !errors.Is(err, ErrUnknownBody) {
		t.Errorf("second RemoveBody = %v, want ErrUnknownBody", err)
	}
}

func TestAddJointErrors(t *testing.T) {
	w := New(zeroGravity())
	a := addCube(t, w, mgl64.Vec3{})
	b := addCube(t, w, mgl64.Vec3{1, 0, 0})
	gone := addCube(t, w, mgl64.Vec3{2, 0, 0})
	if err := w.RemoveBody(gone); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		b1, b2 body.Handle
		c      joint.Constraint
		want   error
	}{
		{"self", a, a, joint.NewSpring(mgl64.Vec3{}, mgl64.Vec3{}, 1, 1, 0), ErrSelfJoint},
		{"removed body", a, gone, joint.NewSpring(mgl64.Vec3{}, mgl64.Vec3{}, 1, 1, 0), ErrUnknownBody},
		{"invalid spring", a, b, joint.NewSpring(mgl64.Vec3{}, mgl64.Vec3{}, -1, 1, 0), joint.ErrNegativeRestLength},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := w.AddJoint(tt.b1, tt.b2, tt.c); !errors.Is(err, tt.want) {
				t.Errorf("AddJoint = %v, want %v", err, tt.want)
			}
		})
	}
	if w.Joints().Len() != 0 {
		t.Errorf("failed inserts left %d joints", w.Joints().Len())
	}
}

func TestRemoveJoint(t *testing.T) {
	w := New(zeroGravity())
	a := addCube(t, w, mgl64.Vec3{})
	b := addCube(t, w, mgl64.Vec3{5, 0, 0})
	j := addSpring(t, w, a, b, joint.NewSpring(mgl64.Vec3{}, mgl64.Vec3{}, 4, 25, 0))

	if err := w.RemoveJoint(j); err != nil {
		t.Fatal(err)
	}
	if err := w.RemoveJoint(j); !errors.Is(err, ErrUnknownJoint) {
		t.Errorf("second RemoveJoint = %v, want ErrUnknownJoint", err)
	}
	if _, err := w.Separation(j); !errors.Is(err, ErrUnknownJoint) {
		t.Errorf("Separation = %v, want ErrUnknownJoint", err)
	}

	w.Step(0.1)
	bb, _ := w.Body(b)
	if bb.LinearVelocity != (mgl64.Vec3{}) {
		t.Errorf("removed joint still acts: %v", bb.LinearVelocity)
	}
}

func TestForceRamp(t *testing.T) {
	cfg := zeroGravity()
	cfg.Substeps = 1
	w := New(cfg)
	a := addCube(t, w, mgl64.Vec3{})

	if err := w.SetForceRamp(a, Ramp{To: mgl64.Vec3{10, 0, 0}, Duration: 1, Easing: "bogus"}); !errors.Is(err, ErrUnknownEasing) {
		t.Fatalf("SetForceRamp = %v, want ErrUnknownEasing", err)
	}
	if err := w.SetForceRamp(a, Ramp{To: mgl64.Vec3{10, 0, 0}, Duration: 1}); err != nil {
		t.Fatal(err)
	}

	b, _ := w.Body(a)
	for i := 0; i < 50; i++ {
		w.Step(0.01)
	}
	// the force applied in the 50th step was sampled at t = 0.49
	if math.Abs(b.Force.X()-4.9) > 1e-4 {
		t.Errorf("mid-ramp force = %v, want about 4.9", b.Force.X())
	}
	for i := 0; i < 60; i++ {
		w.Step(0.01)
	}
	if b.Force != (mgl64.Vec3{10, 0, 0}) {
		t.Errorf("final force = %v, want (10,0,0)", b.Force)
	}
	if len(w.ramps) != 0 {
		t.Errorf("finished ramp not dropped")
	}
}

func TestEasings(t *testing.T) {
	names := Easings()
	if len(names) != len(easings) || names[0] != "in-cubic" {
		t.Errorf("Easings() = %v", names)
	}
}
