package joint

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/go-cmp/cmp"
)

func batchScene() ([]*SpringJoint, []BodyState) {
	springs := []*SpringJoint{
		NewSpring(mgl64.Vec3{0.1, 0, 0}, mgl64.Vec3{}, 4, 25, 0.5),
		NewSpring(mgl64.Vec3{}, mgl64.Vec3{0, 0.2, 0}, 1, 80, 0),
		NewSpring(mgl64.Vec3{}, mgl64.Vec3{}, 2, 0, 3),
	}
	states := []BodyState{
		unitState(mgl64.Vec3{0, 0, 0}),
		unitState(mgl64.Vec3{5, 0.5, 0}),
		unitState(mgl64.Vec3{0, 10, 0}),
		unitState(mgl64.Vec3{0.3, 10.2, 0.1}),
		fixedState(mgl64.Vec3{-4, 0, 0}),
		unitState(mgl64.Vec3{-4, 3, 0}),
	}
	states[3].LinVel = mgl64.Vec3{0, 2, -1}
	states[5].AngVel = mgl64.Vec3{0.5, 0, 0.1}
	return springs, states
}

func TestSpringBatchMatchesScalar(t *testing.T) {
	step := NewStep(1.0/240, 1.0/240, true)

	springs, want := batchScene()
	for s := 0; s < 20; s++ {
		for i, sp := range springs {
			sp.Prepare(step, &want[2*i], &want[2*i+1])
		}
		for it := 0; it < 4; it++ {
			for i, sp := range springs {
				sp.Solve(step, &want[2*i], &want[2*i+1])
			}
		}
	}

	batched, got := batchScene()
	var batch SpringBatch
	for i, sp := range batched {
		if !batch.Add(sp, 2*i, 2*i+1) {
			t.Fatalf("lane %d rejected", i)
		}
	}
	for s := 0; s < 20; s++ {
		batch.Prepare(step, got)
		for it := 0; it < 4; it++ {
			batch.Solve(step, got)
		}
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("batched states differ (-scalar +batch):\n%s", diff)
	}
	for i := range springs {
		if springs[i].Impulse() != batched[i].Impulse() {
			t.Errorf("lane %d impulse = %v, want %v", i, batched[i].Impulse(), springs[i].Impulse())
		}
	}
}

func TestSpringBatchAdd(t *testing.T) {
	var b SpringBatch
	plain := func() *SpringJoint { return NewSpring(mgl64.Vec3{}, mgl64.Vec3{}, 1, 1, 0) }

	limited := plain()
	if err := limited.SetLimits(0, 2); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		j      *SpringJoint
		b1, b2 int
		want   bool
	}{
		{"first lane", plain(), 0, 1, true},
		{"shares body", plain(), 1, 2, false},
		{"limits enabled", limited, 2, 3, false},
		{"same body twice", plain(), 4, 4, false},
		{"second lane", plain(), 2, 3, true},
		{"third lane", plain(), 4, 5, true},
		{"fourth lane", plain(), 6, 7, true},
		{"full", plain(), 8, 9, false},
	}
	for _, tt := range tests {
		if got := b.Add(tt.j, tt.b1, tt.b2); got != tt.want {
			t.Errorf("%s: Add = %v, want %v", tt.name, got, tt.want)
		}
	}
	if b.Len() != BatchLanes || !b.Full() {
		t.Errorf("Len = %d, want %d", b.Len(), BatchLanes)
	}
}
