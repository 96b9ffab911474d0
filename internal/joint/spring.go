package joint

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/jointsim/internal/body"
)

// LengthEpsilon is the separation below which the spring axis is
// undefined and FallbackDirection is used instead.
const LengthEpsilon = 1e-6

var FallbackDirection = mgl64.Vec3{0, 1, 0}

// SpringJoint is a Hookean spring between an anchor on each body.
type SpringJoint struct {
	localAnchor1 mgl64.Vec3
	localAnchor2 mgl64.Vec3
	restLength   float64
	stiffness    float64
	damping      float64

	limitsEnabled   bool
	limitsMinLength float64
	limitsMaxLength float64

	// solver shared
	impulse      float64
	lowerImpulse float64
	upperImpulse float64

	// solver temp
	row springRow
}

type springRow struct {
	dir      mgl64.Vec3
	r1, r2   mgl64.Vec3
	length   float64
	mass     float64
	softMass float64
	gamma    float64
	bias     float64
	active   bool
}

// NewSpring builds a spring with zero accumulated impulses and limits
// disabled. The arguments are not validated; see SpringBuilder.
func NewSpring(anchor1, anchor2 mgl64.Vec3, restLength, stiffness, damping float64) *SpringJoint {
	return newSpringWithImpulse(anchor1, anchor2, restLength, stiffness, damping, 0)
}

func newSpringWithImpulse(anchor1, anchor2 mgl64.Vec3, restLength, stiffness, damping, impulse float64) *SpringJoint {
	return &SpringJoint{
		localAnchor1:    anchor1,
		localAnchor2:    anchor2,
		restLength:      restLength,
		stiffness:       stiffness,
		damping:         damping,
		impulse:         impulse,
		limitsMinLength: 0,
		limitsMaxLength: math.MaxFloat64,
	}
}

func (j *SpringJoint) Kind() Kind { return KindSpring }

// SupportsSIMD is false while limits are enabled: the limit rows are
// inequality branches that the batched lane path does not implement.
func (j *SpringJoint) SupportsSIMD() bool { return !j.limitsEnabled }

func (j *SpringJoint) LocalAnchor1() mgl64.Vec3 { return j.localAnchor1 }
func (j *SpringJoint) LocalAnchor2() mgl64.Vec3 { return j.localAnchor2 }
func (j *SpringJoint) RestLength() float64      { return j.restLength }
func (j *SpringJoint) Stiffness() float64       { return j.stiffness }
func (j *SpringJoint) Damping() float64         { return j.damping }
func (j *SpringJoint) LimitsEnabled() bool      { return j.limitsEnabled }
func (j *SpringJoint) LimitsMinLength() float64 { return j.limitsMinLength }
func (j *SpringJoint) LimitsMaxLength() float64 { return j.limitsMaxLength }

// Impulse is the accumulated spring impulse; positive pushes the anchors apart.
func (j *SpringJoint) Impulse() float64            { return j.impulse }
func (j *SpringJoint) LimitsLowerImpulse() float64 { return j.lowerImpulse }
func (j *SpringJoint) LimitsUpperImpulse() float64 { return j.upperImpulse }

func (j *SpringJoint) SetAnchors(anchor1, anchor2 mgl64.Vec3) {
	j.localAnchor1 = anchor1
	j.localAnchor2 = anchor2
}

func (j *SpringJoint) SetRestLength(l float64) error {
	if err := checkNonNegative(l, ErrNegativeRestLength); err != nil {
		return err
	}
	j.restLength = l
	return nil
}

func (j *SpringJoint) SetStiffness(k float64) error {
	if err := checkNonNegative(k, ErrNegativeStiffness); err != nil {
		return err
	}
	j.stiffness = k
	return nil
}

func (j *SpringJoint) SetDamping(c float64) error {
	if err := checkNonNegative(c, ErrNegativeDamping); err != nil {
		return err
	}
	j.damping = c
	return nil
}

// SetLimits sets and enables the length limits. Limit accumulators keep
// their values; the next solve relaxes them if the limits no longer bind.
func (j *SpringJoint) SetLimits(minLength, maxLength float64) error {
	if err := validateLimits(minLength, maxLength); err != nil {
		return err
	}
	j.limitsMinLength = minLength
	j.limitsMaxLength = maxLength
	j.limitsEnabled = true
	return nil
}

func (j *SpringJoint) EnableLimits()  { j.limitsEnabled = true }
func (j *SpringJoint) DisableLimits() { j.limitsEnabled = false }

// Validate reports every configuration contract violation.
func (j *SpringJoint) Validate() error {
	var errs []error
	if err := checkNonNegative(j.restLength, ErrNegativeRestLength); err != nil {
		errs = append(errs, err)
	}
	if err := checkNonNegative(j.stiffness, ErrNegativeStiffness); err != nil {
		errs = append(errs, err)
	}
	if err := checkNonNegative(j.damping, ErrNegativeDamping); err != nil {
		errs = append(errs, err)
	}
	if j.limitsEnabled {
		if err := validateLimits(j.limitsMinLength, j.limitsMaxLength); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func checkNonNegative(v float64, sentinel error) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %v", ErrNonFinite, v)
	}
	if v < 0 {
		return fmt.Errorf("%w: got %v", sentinel, v)
	}
	return nil
}

func validateLimits(minLength, maxLength float64) error {
	if math.IsNaN(minLength) || math.IsNaN(maxLength) || math.IsInf(minLength, 0) {
		return fmt.Errorf("%w: [%v, %v]", ErrNonFinite, minLength, maxLength)
	}
	if minLength < 0 || maxLength < 0 {
		return fmt.Errorf("%w: [%v, %v]", ErrNegativeLimit, minLength, maxLength)
	}
	if minLength > maxLength {
		return fmt.Errorf("%w: %v > %v", ErrInvertedLimits, minLength, maxLength)
	}
	return nil
}

// Clone copies configuration and accumulators; solver temporaries are
// recomputed on the next Prepare.
func (j *SpringJoint) Clone() *SpringJoint {
	c := newSpringWithImpulse(j.localAnchor1, j.localAnchor2, j.restLength, j.stiffness, j.damping, j.impulse)
	c.limitsEnabled = j.limitsEnabled
	c.limitsMinLength = j.limitsMinLength
	c.limitsMaxLength = j.limitsMaxLength
	c.lowerImpulse = j.lowerImpulse
	c.upperImpulse = j.upperImpulse
	return c
}

// WorldAnchors returns both anchors in world space.
func (j *SpringJoint) WorldAnchors(b1, b2 *body.Body) (mgl64.Vec3, mgl64.Vec3) {
	return b1.WorldPoint(j.localAnchor1), b2.WorldPoint(j.localAnchor2)
}

// Separation is the current distance between the world anchors.
func (j *SpringJoint) Separation(b1, b2 *body.Body) float64 {
	p1, p2 := j.WorldAnchors(b1, b2)
	return p2.Sub(p1).Len()
}

// PotentialEnergy is the elastic energy stored at the given separation.
func (j *SpringJoint) PotentialEnergy(length float64) float64 {
	x := length - j.restLength
	return 0.5 * j.stiffness * x * x
}

// ReactionForce is the force the joint applied to the second body during
// the last substep.
func (j *SpringJoint) ReactionForce(invDt float64) mgl64.Vec3 {
	total := j.impulse
	if j.limitsEnabled {
		total += j.lowerImpulse - j.upperImpulse
	}
	return j.row.dir.Mul(total * invDt)
}

// C = |p2 - p1| - L
// n = (p2 - p1) / |p2 - p1|
// Cdot = dot(n, v2 + cross(w2, r2) - v1 - cross(w1, r1))
// K = invM1 + invM2 + dot(r1 x n, invI1 (r1 x n)) + dot(r2 x n, invI2 (r2 x n))
//
// soft row: gamma = 1 / (h (c + h k)), bias = C h k gamma
// lambda = -(Cdot + bias + gamma impulse) / (K + gamma)

func (j *SpringJoint) Prepare(step Step, b1, b2 *BodyState) {
	j.sanitize()

	p1 := b1.WorldPoint(j.localAnchor1)
	p2 := b2.WorldPoint(j.localAnchor2)
	r := &j.row
	r.r1 = p1.Sub(b1.Center)
	r.r2 = p2.Sub(b2.Center)

	d := p2.Sub(p1)
	r.length = d.Len()
	if r.length > LengthEpsilon {
		r.dir = d.Mul(1 / r.length)
	} else {
		r.dir = FallbackDirection
	}

	k := effectiveInvMass(b1, b2, r.r1, r.r2, r.dir)
	r.mass = invOrZero(k)

	h := step.Dt
	r.active = h > 0 && (j.stiffness > 0 || j.damping > 0)
	if r.active {
		r.gamma = invOrZero(h * (j.damping + h*j.stiffness))
		r.bias = (r.length - j.restLength) * h * j.stiffness * r.gamma
		r.softMass = invOrZero(k + r.gamma)
	} else {
		r.gamma, r.bias, r.softMass = 0, 0, 0
		j.impulse = 0
	}

	if !step.WarmStarting {
		j.impulse = 0
		j.lowerImpulse = 0
		j.upperImpulse = 0
		return
	}

	j.impulse *= step.DtRatio
	total := j.impulse
	if j.limitsEnabled {
		j.lowerImpulse *= step.DtRatio
		j.upperImpulse *= step.DtRatio
		total += j.lowerImpulse - j.upperImpulse
	}
	applyPair(b1, b2, r.r1, r.r2, r.dir.Mul(total))
}

func (j *SpringJoint) Solve(step Step, b1, b2 *BodyState) {
	r := &j.row

	if r.active {
		cdot := normalVelocity(b1, b2, r.r1, r.r2, r.dir)
		lambda := springDelta(r.softMass, cdot, r.bias, r.gamma, j.impulse)
		if isFinite(lambda) {
			j.impulse += lambda
			applyPair(b1, b2, r.r1, r.r2, r.dir.Mul(lambda))
		}
	}

	if !j.limitsEnabled || r.mass == 0 {
		return
	}

	// lower
	{
		c := r.length - j.limitsMinLength
		cdot := normalVelocity(b1, b2, r.r1, r.r2, r.dir)
		lambda := -r.mass * (cdot + limitBias(c, step))
		lambda = clampAccumulate(&j.lowerImpulse, lambda)
		applyPair(b1, b2, r.r1, r.r2, r.dir.Mul(lambda))
	}

	// upper
	{
		c := j.limitsMaxLength - r.length
		cdot := -normalVelocity(b1, b2, r.r1, r.r2, r.dir)
		lambda := -r.mass * (cdot + limitBias(c, step))
		lambda = clampAccumulate(&j.upperImpulse, lambda)
		applyPair(b1, b2, r.r1, r.r2, r.dir.Mul(-lambda))
	}
}

// sanitize drops accumulators that went non-finite so they cannot feed
// back into the next substep.
func (j *SpringJoint) sanitize() {
	if !isFinite(j.impulse) {
		j.impulse = 0
	}
	if !isFinite(j.lowerImpulse) || j.lowerImpulse < 0 {
		j.lowerImpulse = 0
	}
	if !isFinite(j.upperImpulse) || j.upperImpulse < 0 {
		j.upperImpulse = 0
	}
}

func springDelta(softMass, cdot, bias, gamma, impulse float64) float64 {
	return -softMass * (cdot + bias + gamma*impulse)
}

// limitBias lets a row approach its bound at most by c per substep and
// pushes back a fraction of any violation.
func limitBias(c float64, step Step) float64 {
	if c > 0 {
		return c * step.InvDt
	}
	return step.ErrorReduction * c * step.InvDt
}

// clampAccumulate adds lambda to a non-negative accumulator and returns
// the delta actually applied.
func clampAccumulate(acc *float64, lambda float64) float64 {
	old := *acc
	next := old + lambda
	if !(next > 0) || math.IsInf(next, 1) {
		next = 0
	}
	*acc = next
	return next - old
}

func effectiveInvMass(b1, b2 *BodyState, r1, r2, n mgl64.Vec3) float64 {
	rn1 := r1.Cross(n)
	rn2 := r2.Cross(n)
	return b1.InvMass + b2.InvMass +
		rn1.Dot(b1.InvInertia.Mul3x1(rn1)) +
		rn2.Dot(b2.InvInertia.Mul3x1(rn2))
}

func normalVelocity(b1, b2 *BodyState, r1, r2, n mgl64.Vec3) float64 {
	v1 := b1.LinVel.Add(b1.AngVel.Cross(r1))
	v2 := b2.LinVel.Add(b2.AngVel.Cross(r2))
	return n.Dot(v2.Sub(v1))
}

// applyPair applies p to the second body and -p to the first.
func applyPair(b1, b2 *BodyState, r1, r2, p mgl64.Vec3) {
	b1.ApplyImpulse(p.Mul(-1), r1)
	b2.ApplyImpulse(p, r2)
}

func invOrZero(x float64) float64 {
	if x == 0 || !isFinite(x) {
		return 0
	}
	return 1 / x
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

type springWire struct {
	LocalAnchor1       mgl64.Vec3 `json:"local_anchor1"`
	LocalAnchor2       mgl64.Vec3 `json:"local_anchor2"`
	RestLength         float64    `json:"rest_length"`
	Stiffness          float64    `json:"stiffness"`
	Damping            float64    `json:"damping"`
	Impulse            float64    `json:"impulse"`
	LimitsEnabled      bool       `json:"limits_enabled"`
	LimitsMinLength    float64    `json:"limits_min_length"`
	LimitsMaxLength    float64    `json:"limits_max_length"`
	LimitsLowerImpulse float64    `json:"limits_lower_impulse"`
	LimitsUpperImpulse float64    `json:"limits_upper_impulse"`
}

func (j *SpringJoint) MarshalJSON() ([]byte, error) {
	return json.Marshal(springWire{
		LocalAnchor1:       j.localAnchor1,
		LocalAnchor2:       j.localAnchor2,
		RestLength:         j.restLength,
		Stiffness:          j.stiffness,
		Damping:            j.damping,
		Impulse:            j.impulse,
		LimitsEnabled:      j.limitsEnabled,
		LimitsMinLength:    j.limitsMinLength,
		LimitsMaxLength:    j.limitsMaxLength,
		LimitsLowerImpulse: j.lowerImpulse,
		LimitsUpperImpulse: j.upperImpulse,
	})
}

func (j *SpringJoint) UnmarshalJSON(data []byte) error {
	w := springWire{LimitsMaxLength: math.MaxFloat64}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*j = *newSpringWithImpulse(w.LocalAnchor1, w.LocalAnchor2, w.RestLength, w.Stiffness, w.Damping, w.Impulse)
	j.limitsEnabled = w.LimitsEnabled
	j.limitsMinLength = w.LimitsMinLength
	j.limitsMaxLength = w.LimitsMaxLength
	j.lowerImpulse = w.LimitsLowerImpulse
	j.upperImpulse = w.LimitsUpperImpulse
	return nil
}
