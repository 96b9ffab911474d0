package joint

import "github.com/go-gl/mathgl/mgl64"

// BatchLanes is the number of springs solved together by a SpringBatch.
const BatchLanes = 4

// SpringBatch solves up to BatchLanes limit-free springs whose bodies are
// pairwise disjoint. Lane data is kept in structure-of-arrays form and each
// iteration gathers velocities, computes all lane impulses, then scatters.
// Because lanes never share a body the result is identical to solving the
// lanes one after another.
type SpringBatch struct {
	n      int
	joints [BatchLanes]*SpringJoint
	body1  [BatchLanes]int
	body2  [BatchLanes]int

	dirX, dirY, dirZ [BatchLanes]float64
	softMass         [BatchLanes]float64
	gamma            [BatchLanes]float64
	bias             [BatchLanes]float64
	impulse          [BatchLanes]float64
	active           [BatchLanes]bool
}

func (b *SpringBatch) Len() int   { return b.n }
func (b *SpringBatch) Full() bool { return b.n == BatchLanes }

// Conflicts reports whether either state index is already used by a lane.
func (b *SpringBatch) Conflicts(b1, b2 int) bool {
	for i := 0; i < b.n; i++ {
		if b.body1[i] == b1 || b.body1[i] == b2 || b.body2[i] == b1 || b.body2[i] == b2 {
			return true
		}
	}
	return false
}

// Add places j in the next lane. It returns false when the batch is full,
// the joint is not batchable or its bodies overlap an existing lane.
func (b *SpringBatch) Add(j *SpringJoint, b1, b2 int) bool {
	if b.Full() || !j.SupportsSIMD() || b1 == b2 || b.Conflicts(b1, b2) {
		return false
	}
	b.joints[b.n] = j
	b.body1[b.n] = b1
	b.body2[b.n] = b2
	b.n++
	return true
}

// Joints returns the occupied lanes in lane order.
func (b *SpringBatch) Joints() []*SpringJoint {
	return b.joints[:b.n]
}

// Prepare runs the per-lane prepare and loads the lane arrays.
func (b *SpringBatch) Prepare(step Step, states []BodyState) {
	for i := 0; i < b.n; i++ {
		j := b.joints[i]
		j.Prepare(step, &states[b.body1[i]], &states[b.body2[i]])
		r := &j.row
		b.dirX[i], b.dirY[i], b.dirZ[i] = r.dir[0], r.dir[1], r.dir[2]
		b.softMass[i] = r.softMass
		b.gamma[i] = r.gamma
		b.bias[i] = r.bias
		b.impulse[i] = j.impulse
		b.active[i] = r.active
	}
}

// Solve runs one iteration over every lane and stores the accumulated
// impulses back into the joints.
func (b *SpringBatch) Solve(step Step, states []BodyState) {
	var lambda [BatchLanes]float64

	for i := 0; i < b.n; i++ {
		if !b.active[i] {
			continue
		}
		r := &b.joints[i].row
		cdot := normalVelocity(&states[b.body1[i]], &states[b.body2[i]], r.r1, r.r2, b.dir(i))
		lambda[i] = springDelta(b.softMass[i], cdot, b.bias[i], b.gamma[i], b.impulse[i])
	}

	for i := 0; i < b.n; i++ {
		if !b.active[i] || !isFinite(lambda[i]) {
			continue
		}
		b.impulse[i] += lambda[i]
		r := &b.joints[i].row
		p := b.dir(i).Mul(lambda[i])
		applyPair(&states[b.body1[i]], &states[b.body2[i]], r.r1, r.r2, p)
		b.joints[i].impulse = b.impulse[i]
	}
}

func (b *SpringBatch) dir(i int) mgl64.Vec3 {
	return mgl64.Vec3{b.dirX[i], b.dirY[i], b.dirZ[i]}
}
