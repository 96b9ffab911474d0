package joint

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// SpringBuilder assembles a validated SpringJoint.
//
//	s, err := joint.NewSpringBuilder().
//		RestLength(4).
//		Stiffness(25).
//		Limits(2, 6).
//		Build()
type SpringBuilder struct {
	anchor1, anchor2 mgl64.Vec3
	restLength       float64
	stiffness        float64
	damping          float64
	limits           bool
	minLength        float64
	maxLength        float64
}

func NewSpringBuilder() *SpringBuilder {
	return &SpringBuilder{maxLength: math.MaxFloat64}
}

func (b *SpringBuilder) Anchors(anchor1, anchor2 mgl64.Vec3) *SpringBuilder {
	b.anchor1, b.anchor2 = anchor1, anchor2
	return b
}

func (b *SpringBuilder) RestLength(l float64) *SpringBuilder {
	b.restLength = l
	return b
}

func (b *SpringBuilder) Stiffness(k float64) *SpringBuilder {
	b.stiffness = k
	return b
}

func (b *SpringBuilder) Damping(c float64) *SpringBuilder {
	b.damping = c
	return b
}

// Limits enables length limits with the given bounds.
func (b *SpringBuilder) Limits(minLength, maxLength float64) *SpringBuilder {
	b.limits = true
	b.minLength, b.maxLength = minLength, maxLength
	return b
}

func (b *SpringBuilder) Build() (*SpringJoint, error) {
	s := NewSpring(b.anchor1, b.anchor2, b.restLength, b.stiffness, b.damping)
	if b.limits {
		s.limitsEnabled = true
		s.limitsMinLength = b.minLength
		s.limitsMaxLength = b.maxLength
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}
