package body

import (
	"fmt"

	"github.com/san-kum/jointsim/internal/arena"
)

// Handle is a generation-checked reference to a body in a Set.
type Handle struct {
	arena.Index
}

func (h Handle) String() string {
	return fmt.Sprintf("body(%d:%d)", h.Slot, h.Generation)
}

// Set owns bodies and hands out stable handles. It is not safe for
// concurrent mutation; the solver only writes through pointers returned by
// Get, one island per goroutine.
type Set struct {
	bodies *arena.Arena[Body]
}

func NewSet() *Set {
	return &Set{bodies: arena.New[Body]()}
}

func (s *Set) Insert(b Body) Handle {
	return Handle{s.bodies.Insert(b)}
}

func (s *Set) Get(h Handle) (*Body, bool) {
	return s.bodies.Get(h.Index)
}

func (s *Set) MustGet(h Handle) (*Body, error) {
	b, ok := s.Get(h)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStaleHandle, h)
	}
	return b, nil
}

func (s *Set) Contains(h Handle) bool {
	return s.bodies.Contains(h.Index)
}

// Remove deletes the body. Joints referencing it are not touched here; the
// owning world removes them in the same call.
func (s *Set) Remove(h Handle) (Body, bool) {
	return s.bodies.Remove(h.Index)
}

func (s *Set) Len() int { return s.bodies.Len() }

// Slots is one past the highest slot in use, for slot-indexed scratch.
func (s *Set) Slots() int { return s.bodies.Cap() }

// Each visits bodies in slot order.
func (s *Set) Each(fn func(h Handle, b *Body) bool) {
	s.bodies.Each(func(i arena.Index, b *Body) bool {
		return fn(Handle{i}, b)
	})
}

func (s *Set) Handles() []Handle {
	hs := make([]Handle, 0, s.Len())
	s.Each(func(h Handle, _ *Body) bool {
		hs = append(hs, h)
		return true
	})
	return hs
}
