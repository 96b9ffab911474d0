// Package joint defines the constraint protocol shared by every joint kind
// and implements the damped spring joint with optional length limits.
//
// A joint never owns body data. The registry ([Set]) stores a pair of body
// handles next to each [Constraint]; every substep the solver resolves the
// handles into [BodyState] scratch values and drives the joint through:
//
//   - [Constraint.Prepare]: world anchors, effective mass, bias terms and
//     the warm-start impulse from the previous substep
//   - [Constraint.Solve]: one sequential-impulse iteration
//
// Accumulated impulses stay inside the joint between substeps.
//
// # Spring law
//
// [SpringJoint] is solved as a soft constraint: stiffness and damping are
// folded into a compliance term gamma and a position bias so that the
// spring behaves like an implicitly integrated Hookean spring. Optional
// limits add two one-sided rows (lower and upper) with their own clamped
// accumulators. Within a substep the spring row is solved first, then the
// lower limit, then the upper limit.
//
// # Batching
//
// Springs without limits report [SpringJoint.SupportsSIMD] and can be
// packed into a [SpringBatch], which solves up to [BatchLanes] springs with
// pairwise disjoint bodies in structure-of-arrays form.
//
//	s := joint.NewSpring(mgl64.Vec3{}, mgl64.Vec3{}, 4, 25, 0)
//	h := joints.Insert(hub, cube, s)
package joint
