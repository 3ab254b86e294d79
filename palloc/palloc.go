// Package palloc is the physical page allocator collaborator: kalloc/kfree
// over a bounded arena, used here to back kernel stacks.
package palloc

import (
	"errors"
	"sync"
)

// ErrOutOfMemory is returned when an allocation would exceed the arena.
var ErrOutOfMemory = errors.New("palloc: out of memory")

// Allocator is a simple bounded byte-counting allocator. It does not track
// individual pages by address, since nothing in this model dereferences
// physical addresses; it exists to make resource exhaustion (spec error
// class 1) a reachable, testable condition instead of an unlimited
// make([]byte, n).
type Allocator struct {
	mu    sync.Mutex
	inUse int64
	limit int64
}

// New returns an Allocator bounded to limitBytes. A limit of 0 means
// unbounded.
func New(limitBytes int64) *Allocator {
	return &Allocator{limit: limitBytes}
}

// Alloc reserves n bytes, returning ErrOutOfMemory if the arena is exhausted.
func (a *Allocator) Alloc(n int) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.limit > 0 && a.inUse+int64(n) > a.limit {
		return nil, ErrOutOfMemory
	}
	a.inUse += int64(n)
	return make([]byte, n), nil
}

// Free releases the allocation backing b.
func (a *Allocator) Free(b []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.inUse -= int64(len(b))
	if a.inUse < 0 {
		a.inUse = 0
	}
}
