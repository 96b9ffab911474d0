// Package arena implements a slot arena addressed by generation-checked
// indices. Both the body and joint registries are built on it so that a
// handle to a removed element can never alias a newer one.
package arena

// Index addresses one slot. The zero Index is never valid because
// generations start at 1.
type Index struct {
	Slot       uint32
	Generation uint32
}

type slot[T any] struct {
	value      T
	generation uint32
	live       bool
}

type Arena[T any] struct {
	slots []slot[T]
	free  []uint32
	count int
}

func New[T any]() *Arena[T] {
	return &Arena[T]{}
}

// Insert stores v, reusing the lowest freed slot first.
func (a *Arena[T]) Insert(v T) Index {
	if n := len(a.free); n > 0 {
		s := a.free[n-1]
		a.free = a.free[:n-1]
		sl := &a.slots[s]
		sl.value = v
		sl.live = true
		a.count++
		return Index{Slot: s, Generation: sl.generation}
	}
	a.slots = append(a.slots, slot[T]{value: v, generation: 1, live: true})
	a.count++
	return Index{Slot: uint32(len(a.slots) - 1), Generation: 1}
}

func (a *Arena[T]) Get(i Index) (*T, bool) {
	if int(i.Slot) >= len(a.slots) {
		return nil, false
	}
	sl := &a.slots[i.Slot]
	if !sl.live || sl.generation != i.Generation {
		return nil, false
	}
	return &sl.value, true
}

func (a *Arena[T]) Contains(i Index) bool {
	_, ok := a.Get(i)
	return ok
}

// Remove frees the slot and bumps its generation.
func (a *Arena[T]) Remove(i Index) (T, bool) {
	var zero T
	if _, ok := a.Get(i); !ok {
		return zero, false
	}
	sl := &a.slots[i.Slot]
	v := sl.value
	sl.value = zero
	sl.live = false
	sl.generation++
	a.count--

	// keep the free list sorted descending so the lowest slot is reused first
	pos := len(a.free)
	for pos > 0 && a.free[pos-1] < i.Slot {
		pos--
	}
	a.free = append(a.free, 0)
	copy(a.free[pos+1:], a.free[pos:])
	a.free[pos] = i.Slot
	return v, true
}

func (a *Arena[T]) Len() int { return a.count }

// Cap is one past the highest slot ever used.
func (a *Arena[T]) Cap() int { return len(a.slots) }

// Each visits live slots in ascending slot order until fn returns false.
func (a *Arena[T]) Each(fn func(i Index, v *T) bool) {
	for s := range a.slots {
		sl := &a.slots[s]
		if !sl.live {
			continue
		}
		if !fn(Index{Slot: uint32(s), Generation: sl.generation}, &sl.value) {
			return
		}
	}
}
