package analysis

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/jointsim/internal/body"
	"github.com/san-kum/jointsim/internal/joint"
	"github.com/san-kum/jointsim/internal/world"
)

func TestDominantFrequencySine(t *testing.T) {
	const dt = 0.01
	x := make([]float64, 1024)
	for i := range x {
		x[i] = 3 + math.Sin(2*math.Pi*2*float64(i)*dt)
	}

	f, err := DominantFrequency(x, dt)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(f-2) > 0.05 {
		t.Errorf("dominant frequency = %v, want 2", f)
	}
}

func TestPowerSpectrumShape(t *testing.T) {
	x := make([]float64, 100)
	for i := range x {
		x[i] = math.Cos(2 * math.Pi * 5 * float64(i) * 0.01)
	}
	s, err := PowerSpectrum(x, 0.01)
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Power) != 51 || len(s.Frequencies) != 51 {
		t.Fatalf("got %d bins, want 51", len(s.Power))
	}
	if s.Frequencies[50] != 50 {
		t.Errorf("nyquist bin = %v, want 50", s.Frequencies[50])
	}
}

func TestShortSeries(t *testing.T) {
	if _, err := DominantFrequency([]float64{1, 2, 3}, 0.01); err != ErrShortSeries {
		t.Errorf("err = %v, want ErrShortSeries", err)
	}
	if _, err := PowerSpectrum(make([]float64, 64), 0); err != ErrShortSeries {
		t.Errorf("err = %v, want ErrShortSeries", err)
	}
}

func TestDampingRatio(t *testing.T) {
	const (
		zeta = 0.05
		wn   = 2 * math.Pi * 2
		dt   = 0.0005
	)
	wd := wn * math.Sqrt(1-zeta*zeta)
	x := make([]float64, int(5/dt))
	for i := range x {
		tt := float64(i) * dt
		x[i] = 4 + math.Exp(-zeta*wn*tt)*math.Sin(wd*tt)
	}

	if got := DampingRatio(x, 4); math.Abs(got-zeta) > 0.005 {
		t.Errorf("damping ratio = %v, want %v", got, zeta)
	}
	if got := DampingRatio([]float64{4, 4, 4}, 4); got != 0 {
		t.Errorf("flat series ratio = %v, want 0", got)
	}
}

// Two unit masses on a k=25 spring oscillate at sqrt(k/mu)/(2pi) with
// reduced mass mu = 0.5.
func TestSpringPairFrequency(t *testing.T) {
	cfg := world.DefaultConfig()
	cfg.Gravity = mgl64.Vec3{}
	w := world.New(cfg)
	a, _ := body.NewDynamic(mgl64.Vec3{}, 1, mgl64.Vec3{1, 1, 1})
	b, _ := body.NewDynamic(mgl64.Vec3{5, 0, 0}, 1, mgl64.Vec3{1, 1, 1})
	ha, _ := w.AddBody(a)
	hb, _ := w.AddBody(b)
	h, err := w.AddJoint(ha, hb, joint.NewSpring(mgl64.Vec3{}, mgl64.Vec3{}, 4, 25, 0))
	if err != nil {
		t.Fatal(err)
	}

	const dt = 0.01
	x := make([]float64, 1024)
	for i := range x {
		l, err := w.Separation(h)
		if err != nil {
			t.Fatal(err)
		}
		x[i] = l
		w.Step(dt)
	}

	want := math.Sqrt(25/0.5) / (2 * math.Pi)
	f, err := DominantFrequency(x, dt)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(f-want) > 0.1 {
		t.Errorf("pair frequency = %v, want %v", f, want)
	}
}
