package kernel

import "errors"

// Resource exhaustion, invalid argument, and absent-target failures (spec
// error classes 1-3) are all reported as ordinary errors. Invariant
// violations (class 4) panic instead; see the scheduler, Sleep, the
// lifecycle operations and the CPU registry for the cases that do.
var (
	// ErrNoFreeSlot is returned by allocProc when the process table is full.
	ErrNoFreeSlot = errors.New("kernel: no free process slot")
	// ErrNoMemory is returned when the page allocator or VM collaborator
	// cannot satisfy a request.
	ErrNoMemory = errors.New("kernel: out of memory")
	// ErrInvalidSignal is returned by Kill and Signal for an out-of-range
	// signum.
	ErrInvalidSignal = errors.New("kernel: invalid signal number")
	// ErrNoSuchProcess is returned by Kill when no slot holds the given pid.
	ErrNoSuchProcess = errors.New("kernel: no such process")
	// ErrNoChildren is returned by Wait when the caller has no children
	// left to reap, or was killed while waiting.
	ErrNoChildren = errors.New("kernel: no children")
)
