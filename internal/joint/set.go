package joint

import (
	"fmt"

	"github.com/san-kum/jointsim/internal/arena"
	"github.com/san-kum/jointsim/internal/body"
)

// Handle is a generation-checked reference to a joint in a Set.
type Handle struct {
	arena.Index
}

func (h Handle) String() string {
	return fmt.Sprintf("joint(%d:%d)", h.Slot, h.Generation)
}

// Joint pairs a constraint with the bodies it connects.
type Joint struct {
	Body1 body.Handle
	Body2 body.Handle
	Constraint
}

// Set is the joint registry. Removing bodies is the caller's concern: use
// RemoveAttached in the same operation so that no joint outlives its bodies.
type Set struct {
	joints *arena.Arena[Joint]
}

func NewSet() *Set {
	return &Set{joints: arena.New[Joint]()}
}

func (s *Set) Insert(b1, b2 body.Handle, c Constraint) Handle {
	return Handle{s.joints.Insert(Joint{Body1: b1, Body2: b2, Constraint: c})}
}

func (s *Set) Get(h Handle) (*Joint, bool) {
	return s.joints.Get(h.Index)
}

func (s *Set) MustGet(h Handle) (*Joint, error) {
	j, ok := s.Get(h)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStaleHandle, h)
	}
	return j, nil
}

func (s *Set) Contains(h Handle) bool {
	return s.joints.Contains(h.Index)
}

func (s *Set) Remove(h Handle) (Joint, bool) {
	return s.joints.Remove(h.Index)
}

func (s *Set) Len() int   { return s.joints.Len() }
func (s *Set) Slots() int { return s.joints.Cap() }

// Each visits joints in slot order.
func (s *Set) Each(fn func(h Handle, j *Joint) bool) {
	s.joints.Each(func(i arena.Index, j *Joint) bool {
		return fn(Handle{i}, j)
	})
}

// AttachedTo lists the joints that reference b, in slot order.
func (s *Set) AttachedTo(b body.Handle) []Handle {
	var hs []Handle
	s.Each(func(h Handle, j *Joint) bool {
		if j.Body1 == b || j.Body2 == b {
			hs = append(hs, h)
		}
		return true
	})
	return hs
}

// RemoveAttached removes every joint that references b and returns the
// removed handles.
func (s *Set) RemoveAttached(b body.Handle) []Handle {
	hs := s.AttachedTo(b)
	for _, h := range hs {
		s.Remove(h)
	}
	return hs
}

// Springs returns the spring joints with their handles, in slot order.
func (s *Set) Springs() ([]Handle, []*SpringJoint) {
	var hs []Handle
	var out []*SpringJoint
	s.Each(func(h Handle, j *Joint) bool {
		if sp, ok := j.Constraint.(*SpringJoint); ok {
			hs = append(hs, h)
			out = append(out, sp)
		}
		return true
	})
	return hs, out
}
