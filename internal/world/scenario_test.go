package world

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/jointsim/internal/body"
	"github.com/san-kum/jointsim/internal/joint"
)

func TestOscillatorEnergyNeverGrows(t *testing.T) {
	w := New(zeroGravity())
	a := addCube(t, w, mgl64.Vec3{0, 0, 0})
	b := addCube(t, w, mgl64.Vec3{5, 0, 0})
	j := addSpring(t, w, a, b, joint.NewSpring(mgl64.Vec3{}, mgl64.Vec3{}, 4, 25, 0))

	e0 := w.Energy().Total()
	if math.Abs(e0-12.5) > 1e-12 {
		t.Fatalf("initial energy = %v, want 12.5", e0)
	}

	prev := e0
	minL, maxL := math.Inf(1), math.Inf(-1)
	for i := 0; i < 250; i++ {
		w.Step(0.01)
		e := w.Energy().Total()
		if e > e0*(1+1e-6) {
			t.Fatalf("step %d: energy %v exceeds initial %v", i, e, e0)
		}
		if e > prev+1e-9 {
			t.Fatalf("step %d: energy grew from %v to %v", i, prev, e)
		}
		prev = e
		l := mustSeparation(t, w, j)
		minL = math.Min(minL, l)
		maxL = math.Max(maxL, l)
	}

	if minL > 3.5 || maxL < 4.5 {
		t.Errorf("separation range [%v, %v] does not oscillate around the rest length", minL, maxL)
	}
	if prev < 0.5*e0 {
		t.Errorf("energy decayed too fast: %v of %v", prev, e0)
	}
}

func TestStretchLimitHolds(t *testing.T) {
	w := New(zeroGravity())
	a := addCube(t, w, mgl64.Vec3{0, 0, 0})
	b := addCube(t, w, mgl64.Vec3{5, 0, 0})
	s, err := joint.NewSpringBuilder().RestLength(4).Stiffness(25).Damping(5).Limits(2, 6).Build()
	if err != nil {
		t.Fatal(err)
	}
	j := addSpring(t, w, a, b, s)
	if err := w.SetForce(a, mgl64.Vec3{-150, 0, 0}); err != nil {
		t.Fatal(err)
	}
	if err := w.SetForce(b, mgl64.Vec3{150, 0, 0}); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 300; i++ {
		w.Step(0.01)
		if l := mustSeparation(t, w, j); l > 6+1e-3 {
			t.Fatalf("step %d: separation %v exceeds the maximum", i, l)
		}
	}

	if s.LimitsUpperImpulse() <= 0 {
		t.Errorf("upper impulse = %v, want > 0", s.LimitsUpperImpulse())
	}
	if s.LimitsLowerImpulse() != 0 {
		t.Errorf("lower impulse = %v, want 0", s.LimitsLowerImpulse())
	}
	if l := mustSeparation(t, w, j); math.Abs(l-6) > 1e-3 {
		t.Errorf("final separation = %v, want about 6", l)
	}
}

func TestRigidLimitsKeepDistance(t *testing.T) {
	tests := []struct {
		name    string
		gravity mgl64.Vec3
		static  bool
		vel     mgl64.Vec3
	}{
		{"free pair spinning", mgl64.Vec3{}, false, mgl64.Vec3{0, 3, 0}},
		{"pendulum", mgl64.Vec3{0, -9.81, 0}, true, mgl64.Vec3{0, 0, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := zeroGravity()
			cfg.Gravity = tt.gravity
			w := New(cfg)

			var a body.Handle
			if tt.static {
				var err error
				if a, err = w.AddBody(body.NewStatic(mgl64.Vec3{})); err != nil {
					t.Fatal(err)
				}
			} else {
				a = addCube(t, w, mgl64.Vec3{})
			}
			b := addCube(t, w, mgl64.Vec3{4, 0, 0})
			bb, _ := w.Body(b)
			bb.LinearVelocity = tt.vel

			s, err := joint.NewSpringBuilder().RestLength(4).Stiffness(25).Limits(4, 4).Build()
			if err != nil {
				t.Fatal(err)
			}
			j := addSpring(t, w, a, b, s)

			for i := 0; i < 300; i++ {
				w.Step(0.01)
				if l := mustSeparation(t, w, j); math.Abs(l-4) > 1e-3 {
					t.Fatalf("step %d: separation %v drifted from 4", i, l)
				}
			}
		})
	}
}

func TestSwappedBodiesGiveSameMotion(t *testing.T) {
	build := func(swap bool) (*World, body.Handle, body.Handle) {
		w := New(zeroGravity())
		a := addCube(t, w, mgl64.Vec3{0, 0, 0})
		b := addCube(t, w, mgl64.Vec3{4, 1, 0})
		ba, _ := w.Body(a)
		ba.AngularVelocity = mgl64.Vec3{0, 0.5, 0.2}
		bb, _ := w.Body(b)
		bb.LinearVelocity = mgl64.Vec3{1, -0.5, 2}

		anchorA, anchorB := mgl64.Vec3{0.5, 0, 0}, mgl64.Vec3{-0.5, 0.25, 0}
		s := joint.NewSpring(anchorA, anchorB, 3, 40, 1.5)
		if swap {
			s = joint.NewSpring(anchorB, anchorA, 3, 40, 1.5)
		}
		if err := s.SetLimits(2.5, 4.2); err != nil {
			t.Fatal(err)
		}
		if swap {
			addSpring(t, w, b, a, s)
		} else {
			addSpring(t, w, a, b, s)
		}
		return w, a, b
	}

	w1, a1, b1 := build(false)
	w2, a2, b2 := build(true)
	for i := 0; i < 50; i++ {
		w1.Step(0.01)
		w2.Step(0.01)
	}

	pairs := [][2]body.Handle{{a1, a2}, {b1, b2}}
	for _, p := range pairs {
		x, _ := w1.Body(p[0])
		y, _ := w2.Body(p[1])
		if d := x.Position.Sub(y.Position).Len(); d > 1e-6 {
			t.Errorf("position differs by %v", d)
		}
		if d := x.LinearVelocity.Sub(y.LinearVelocity).Len(); d > 1e-6 {
			t.Errorf("linear velocity differs by %v", d)
		}
		if d := x.AngularVelocity.Sub(y.AngularVelocity).Len(); d > 1e-6 {
			t.Errorf("angular velocity differs by %v", d)
		}
	}
}
