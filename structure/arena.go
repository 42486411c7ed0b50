package structure

import (
	"errors"
)

// Arena is a growable slab of values addressed by int32 handles.
// Freed slots are chained into a free list and reused by later allocations,
// so handles stay small and stable for the lifetime of the value they name.
//
// Design:
// - Slot 0..cap-1 are pre-allocated; a slot is either live or on the free list
// - Growing copies the slab, so pointers returned by Get are only valid until the next Alloc
// - Handles are never shared between arenas

const (
	NullIndex           int32 = -1
	DefaultGrowthFactor       = 2 // Default expansion factor
)

var ErrMaxCapacityReached = errors.New("arena: max capacity reached")

// ArenaOptions configures the arena behavior.
type ArenaOptions struct {
	// MaxCapacity sets the maximum number of slots allowed.
	// If 0 (default), there is no limit and the arena will grow indefinitely.
	MaxCapacity int32

	// OnGrow is called when the arena expands.
	// Can be used for logging or metrics.
	OnGrow func(oldCap, newCap int32)
}

type slot[T any] struct {
	value    T
	nextFree int32
	live     bool
}

// Arena stores values of type T.
type Arena[T any] struct {
	slots       []slot[T]
	freeHead    int32
	count       int32
	maxCapacity int32
	onGrow      func(int32, int32)
}

// NewArena creates a new arena with pre-allocated capacity.
func NewArena[T any](capacity int32) *Arena[T] {
	return NewArenaWithOptions[T](capacity, ArenaOptions{})
}

// NewArenaWithOptions creates a new arena with custom options.
func NewArenaWithOptions[T any](capacity int32, opts ArenaOptions) *Arena[T] {
	if capacity < 1 {
		capacity = 1
	}
	if opts.MaxCapacity > 0 && capacity > opts.MaxCapacity {
		capacity = opts.MaxCapacity
	}

	a := &Arena[T]{
		slots:       make([]slot[T], capacity),
		freeHead:    0,
		maxCapacity: opts.MaxCapacity,
		onGrow:      opts.OnGrow,
	}
	for i := int32(0); i < capacity-1; i++ {
		a.slots[i].nextFree = i + 1
	}
	a.slots[capacity-1].nextFree = NullIndex

	return a
}

// grow expands the slab.
// Returns error if max capacity would be exceeded.
func (a *Arena[T]) grow() error {
	oldCap := int32(len(a.slots))
	newCap := oldCap * DefaultGrowthFactor

	if a.maxCapacity > 0 && newCap > a.maxCapacity {
		if oldCap >= a.maxCapacity {
			return ErrMaxCapacityReached
		}
		newCap = a.maxCapacity
	}

	if a.onGrow != nil {
		a.onGrow(oldCap, newCap)
	}

	slots := make([]slot[T], newCap)
	copy(slots, a.slots)

	for i := oldCap; i < newCap-1; i++ {
		slots[i].nextFree = i + 1
	}
	slots[newCap-1].nextFree = a.freeHead
	a.freeHead = oldCap

	a.slots = slots
	return nil
}

// Alloc reserves a zeroed slot and returns its handle.
func (a *Arena[T]) Alloc() (int32, error) {
	if a.freeHead == NullIndex {
		if err := a.grow(); err != nil {
			return NullIndex, err
		}
	}

	h := a.freeHead
	s := &a.slots[h]
	a.freeHead = s.nextFree

	var zero T
	s.value = zero
	s.nextFree = NullIndex
	s.live = true
	a.count++
	return h, nil
}

// Free returns the slot to the free list. Freeing a dead handle is a no-op.
func (a *Arena[T]) Free(h int32) {
	if !a.Valid(h) {
		return
	}

	s := &a.slots[h]
	var zero T
	s.value = zero
	s.live = false
	s.nextFree = a.freeHead
	a.freeHead = h
	a.count--
}

// Get returns a pointer to the value behind h, or nil if h is not live.
// The pointer must not be retained across Alloc calls.
func (a *Arena[T]) Get(h int32) *T {
	if !a.Valid(h) {
		return nil
	}
	return &a.slots[h].value
}

// Valid reports whether h names a live slot.
func (a *Arena[T]) Valid(h int32) bool {
	return h >= 0 && h < int32(len(a.slots)) && a.slots[h].live
}

// Len returns the number of live slots.
func (a *Arena[T]) Len() int32 {
	return a.count
}

// Capacity returns the current size of the slab.
func (a *Arena[T]) Capacity() int32 {
	return int32(len(a.slots))
}
