package joint

import (
	"encoding/json"
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/go-cmp/cmp"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
)

func unitState(pos mgl64.Vec3) BodyState {
	return BodyState{
		Position:    pos,
		Orientation: mgl64.QuatIdent(),
		Center:      pos,
		InvMass:     1,
		InvInertia:  mgl64.Ident3(),
	}
}

func fixedState(pos mgl64.Vec3) BodyState {
	return BodyState{
		Position:    pos,
		Orientation: mgl64.QuatIdent(),
		Center:      pos,
	}
}

// substep runs prepare and a number of iterations, like the solver does.
func substep(c Constraint, step Step, b1, b2 *BodyState, iterations int) {
	c.Prepare(step, b1, b2)
	for i := 0; i < iterations; i++ {
		c.Solve(step, b1, b2)
	}
}

var _ = ginkgo.Describe("SpringJoint", func() {
	var step Step

	ginkgo.BeforeEach(func() {
		step = NewStep(0.01, 0, true)
	})

	ginkgo.Describe("construction", func() {
		ginkgo.It("starts with zero accumulators and limits disabled", func() {
			s := NewSpring(mgl64.Vec3{1, 0, 0}, mgl64.Vec3{}, 4, 25, 1)
			gomega.Expect(s.Impulse()).To(gomega.BeZero())
			gomega.Expect(s.LimitsLowerImpulse()).To(gomega.BeZero())
			gomega.Expect(s.LimitsUpperImpulse()).To(gomega.BeZero())
			gomega.Expect(s.LimitsEnabled()).To(gomega.BeFalse())
			gomega.Expect(s.LimitsMinLength()).To(gomega.BeZero())
			gomega.Expect(s.LimitsMaxLength()).To(gomega.Equal(math.MaxFloat64))
			gomega.Expect(s.Kind()).To(gomega.Equal(KindSpring))
		})

		ginkgo.It("is batchable only without limits", func() {
			s := NewSpring(mgl64.Vec3{}, mgl64.Vec3{}, 1, 1, 0)
			gomega.Expect(s.SupportsSIMD()).To(gomega.BeTrue())
			gomega.Expect(s.SetLimits(0.5, 2)).To(gomega.Succeed())
			gomega.Expect(s.SupportsSIMD()).To(gomega.BeFalse())
			s.DisableLimits()
			gomega.Expect(s.SupportsSIMD()).To(gomega.BeTrue())
		})

		ginkgo.DescribeTable("builder rejects invalid configuration",
			func(b *SpringBuilder, want error) {
				s, err := b.Build()
				gomega.Expect(s).To(gomega.BeNil())
				gomega.Expect(errors.Is(err, want)).To(gomega.BeTrue(), "got %v", err)
			},
			ginkgo.Entry("negative rest length", NewSpringBuilder().RestLength(-1), ErrNegativeRestLength),
			ginkgo.Entry("negative stiffness", NewSpringBuilder().Stiffness(-1), ErrNegativeStiffness),
			ginkgo.Entry("negative damping", NewSpringBuilder().Damping(-0.1), ErrNegativeDamping),
			ginkgo.Entry("negative limit", NewSpringBuilder().Limits(-1, 2), ErrNegativeLimit),
			ginkgo.Entry("inverted limits", NewSpringBuilder().Limits(3, 2), ErrInvertedLimits),
			ginkgo.Entry("nan stiffness", NewSpringBuilder().Stiffness(math.NaN()), ErrNonFinite),
		)

		ginkgo.It("builds a valid spring with limits", func() {
			s, err := NewSpringBuilder().
				Anchors(mgl64.Vec3{0.5, 0, 0}, mgl64.Vec3{}).
				RestLength(4).Stiffness(25).Damping(2).
				Limits(2, 6).
				Build()
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(s.LimitsEnabled()).To(gomega.BeTrue())
			gomega.Expect(s.LimitsMinLength()).To(gomega.Equal(2.0))
			gomega.Expect(s.LimitsMaxLength()).To(gomega.Equal(6.0))
			gomega.Expect(s.LocalAnchor1()).To(gomega.Equal(mgl64.Vec3{0.5, 0, 0}))
		})

		ginkgo.It("keeps accumulators when reconfigured", func() {
			s := NewSpring(mgl64.Vec3{}, mgl64.Vec3{}, 4, 25, 0)
			s.impulse = -3
			gomega.Expect(s.SetStiffness(10)).To(gomega.Succeed())
			gomega.Expect(s.SetRestLength(2)).To(gomega.Succeed())
			gomega.Expect(s.SetDamping(-1)).To(gomega.MatchError(ErrNegativeDamping))
			gomega.Expect(s.Impulse()).To(gomega.Equal(-3.0))
			gomega.Expect(s.Damping()).To(gomega.BeZero())
		})
	})

	ginkgo.Describe("solving", func() {
		ginkgo.It("never accumulates impulse with zero coefficients", func() {
			s := NewSpring(mgl64.Vec3{}, mgl64.Vec3{}, 1, 0, 0)
			b1 := unitState(mgl64.Vec3{})
			b2 := unitState(mgl64.Vec3{3, 0, 0})
			b2.LinVel = mgl64.Vec3{2, 1, 0}
			for i := 0; i < 50; i++ {
				substep(s, step, &b1, &b2, 4)
				gomega.Expect(s.Impulse()).To(gomega.BeZero())
			}
			gomega.Expect(b2.LinVel).To(gomega.Equal(mgl64.Vec3{2, 1, 0}))
		})

		ginkgo.It("applies no impulse at rest length", func() {
			s := NewSpring(mgl64.Vec3{}, mgl64.Vec3{}, 4, 25, 3)
			b1 := unitState(mgl64.Vec3{})
			b2 := unitState(mgl64.Vec3{4, 0, 0})
			substep(s, step, &b1, &b2, 8)
			gomega.Expect(s.Impulse()).To(gomega.BeNumerically("~", 0, 1e-12))
			gomega.Expect(b1.LinVel.Len()).To(gomega.BeNumerically("~", 0, 1e-12))
		})

		ginkgo.It("pulls a stretched pair together", func() {
			s := NewSpring(mgl64.Vec3{}, mgl64.Vec3{}, 4, 25, 0)
			b1 := unitState(mgl64.Vec3{})
			b2 := unitState(mgl64.Vec3{5, 0, 0})
			substep(s, step, &b1, &b2, 4)

			gomega.Expect(s.Impulse()).To(gomega.BeNumerically("<", 0))
			gomega.Expect(b1.LinVel.X()).To(gomega.BeNumerically(">", 0))
			gomega.Expect(b2.LinVel.X()).To(gomega.BeNumerically("<", 0))
			// equal masses: momentum stays zero
			gomega.Expect(b1.LinVel.Add(b2.LinVel).Len()).To(gomega.BeNumerically("~", 0, 1e-12))
			// the impulse approximates k * C * h for a stiff-enough step
			gomega.Expect(-s.Impulse()).To(gomega.BeNumerically("~", 25*1*0.01, 0.01))

			f := s.ReactionForce(1 / step.Dt)
			gomega.Expect(f.X()).To(gomega.BeNumerically("~", s.Impulse()/step.Dt, 1e-12))
			gomega.Expect(f.X()).To(gomega.BeNumerically("~", -25, 1))
			gomega.Expect(f.Y()).To(gomega.BeZero())
		})

		ginkgo.It("leaves fixed bodies untouched", func() {
			s := NewSpring(mgl64.Vec3{}, mgl64.Vec3{}, 1, 100, 5)
			hub := fixedState(mgl64.Vec3{})
			hub.LinVel = mgl64.Vec3{0, 0, 1}
			b2 := unitState(mgl64.Vec3{0, 3, 0})
			substep(s, step, &hub, &b2, 4)
			gomega.Expect(hub.LinVel).To(gomega.Equal(mgl64.Vec3{0, 0, 1}))
			gomega.Expect(hub.AngVel).To(gomega.Equal(mgl64.Vec3{}))
			gomega.Expect(b2.LinVel.Y()).To(gomega.BeNumerically("<", 0))
		})

		ginkgo.It("uses the fallback axis for coincident anchors", func() {
			s := NewSpring(mgl64.Vec3{}, mgl64.Vec3{}, 1, 50, 0)
			b1 := unitState(mgl64.Vec3{})
			b2 := unitState(mgl64.Vec3{})
			substep(s, step, &b1, &b2, 1)
			gomega.Expect(s.row.dir).To(gomega.Equal(FallbackDirection))
			gomega.Expect(b2.LinVel.Y()).To(gomega.BeNumerically(">", 0))
			gomega.Expect(b2.LinVel.X()).To(gomega.BeZero())
		})

		ginkgo.It("zeroes non-finite accumulators before warm starting", func() {
			s := NewSpring(mgl64.Vec3{}, mgl64.Vec3{}, 4, 25, 0)
			s.impulse = math.NaN()
			s.lowerImpulse = math.Inf(1)
			s.EnableLimits()
			b1 := unitState(mgl64.Vec3{})
			b2 := unitState(mgl64.Vec3{4, 0, 0})
			substep(s, step, &b1, &b2, 4)
			gomega.Expect(math.IsNaN(s.Impulse())).To(gomega.BeFalse())
			gomega.Expect(s.LimitsLowerImpulse()).To(gomega.BeZero())
			gomega.Expect(b2.LinVel.Len()).To(gomega.BeNumerically("~", 0, 1e-12))
		})

		ginkgo.It("scales the warm-start impulse by the step ratio", func() {
			s := NewSpring(mgl64.Vec3{}, mgl64.Vec3{}, 4, 25, 0)
			s.impulse = -2
			b1 := unitState(mgl64.Vec3{})
			b2 := unitState(mgl64.Vec3{4, 0, 0})
			s.Prepare(NewStep(0.005, 0.01, true), &b1, &b2)
			gomega.Expect(s.Impulse()).To(gomega.Equal(-1.0))
			gomega.Expect(b2.LinVel.X()).To(gomega.Equal(-1.0))
		})

		ginkgo.It("drops accumulators when warm starting is off", func() {
			s := NewSpring(mgl64.Vec3{}, mgl64.Vec3{}, 4, 25, 0)
			s.impulse = -2
			s.upperImpulse = 1
			b1 := unitState(mgl64.Vec3{})
			b2 := unitState(mgl64.Vec3{4, 0, 0})
			s.Prepare(NewStep(0.01, 0.01, false), &b1, &b2)
			gomega.Expect(s.Impulse()).To(gomega.BeZero())
			gomega.Expect(s.LimitsUpperImpulse()).To(gomega.BeZero())
			gomega.Expect(b2.LinVel).To(gomega.Equal(mgl64.Vec3{}))
		})
	})

	ginkgo.Describe("limits", func() {
		ginkgo.It("stops separation beyond the maximum length", func() {
			s := NewSpring(mgl64.Vec3{}, mgl64.Vec3{}, 4, 0, 0)
			gomega.Expect(s.SetLimits(2, 6)).To(gomega.Succeed())
			b1 := unitState(mgl64.Vec3{})
			b2 := unitState(mgl64.Vec3{7, 0, 0})
			b2.LinVel = mgl64.Vec3{1, 0, 0}

			substep(s, step, &b1, &b2, 4)
			gomega.Expect(s.LimitsUpperImpulse()).To(gomega.BeNumerically(">", 0))
			gomega.Expect(s.LimitsLowerImpulse()).To(gomega.BeZero())
			// relative normal velocity now closes the violation
			gomega.Expect(b2.LinVel.X() - b1.LinVel.X()).To(gomega.BeNumerically("<", 0))
		})

		ginkgo.It("allows approach toward the minimum up to the gap", func() {
			s := NewSpring(mgl64.Vec3{}, mgl64.Vec3{}, 4, 0, 0)
			gomega.Expect(s.SetLimits(2, 6)).To(gomega.Succeed())
			b1 := unitState(mgl64.Vec3{})
			b2 := unitState(mgl64.Vec3{3, 0, 0})
			b2.LinVel = mgl64.Vec3{-500, 0, 0}

			substep(s, step, &b1, &b2, 8)
			gomega.Expect(s.LimitsLowerImpulse()).To(gomega.BeNumerically(">", 0))
			closing := b2.LinVel.X() - b1.LinVel.X()
			// at most the 1 unit gap may close in one step
			gomega.Expect(closing * step.Dt).To(gomega.BeNumerically(">=", -1-1e-9))
		})

		ginkgo.It("ignores limit accumulators while disabled", func() {
			s := NewSpring(mgl64.Vec3{}, mgl64.Vec3{}, 4, 0, 0)
			s.lowerImpulse = 5
			b1 := unitState(mgl64.Vec3{})
			b2 := unitState(mgl64.Vec3{4, 0, 0})
			substep(s, step, &b1, &b2, 2)
			gomega.Expect(s.LimitsLowerImpulse()).To(gomega.Equal(5.0))
			gomega.Expect(b2.LinVel).To(gomega.Equal(mgl64.Vec3{}))
		})
	})

	ginkgo.Describe("serialization", func() {
		ginkgo.It("round trips every field", func() {
			s := NewSpring(mgl64.Vec3{0.1, -0.2, 0.3}, mgl64.Vec3{1, 2, 3}, 4.5, 25, 0.7)
			gomega.Expect(s.SetLimits(1.25, 6.5)).To(gomega.Succeed())
			s.impulse = -0.123456789
			s.lowerImpulse = 0.5
			s.upperImpulse = 1e-9

			data, err := json.Marshal(s)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			var back SpringJoint
			gomega.Expect(json.Unmarshal(data, &back)).To(gomega.Succeed())

			diff := cmp.Diff(s, &back, cmp.AllowUnexported(SpringJoint{}, springRow{}))
			gomega.Expect(diff).To(gomega.BeEmpty())
		})

		ginkgo.It("keeps the unbounded default maximum", func() {
			s := NewSpring(mgl64.Vec3{}, mgl64.Vec3{}, 1, 1, 1)
			data, err := json.Marshal(s)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			var back SpringJoint
			gomega.Expect(json.Unmarshal(data, &back)).To(gomega.Succeed())
			gomega.Expect(back.LimitsMaxLength()).To(gomega.Equal(math.MaxFloat64))
		})

		ginkgo.It("clones state without sharing it", func() {
			s := NewSpring(mgl64.Vec3{}, mgl64.Vec3{}, 4, 25, 0)
			s.impulse = 2
			c := s.Clone()
			c.impulse = 3
			gomega.Expect(s.Impulse()).To(gomega.Equal(2.0))
		})
	})
})
