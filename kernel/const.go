// Package kernel implements the process lifecycle and scheduling core: a
// fixed-size process table, lock-free state transitions, per-CPU scheduling,
// sleep/wakeup synchronization, and POSIX-style signal delivery.
package kernel

// Fixed sizes mirroring the original kernel's compile-time constants.
const (
	// NPROC is the size of the process table. The table never grows or
	// shrinks at runtime.
	NPROC = 64
	// NOFILE is the number of file descriptors a process may hold open.
	NOFILE = 16
	// KSTACKSIZE is the size, in bytes, of a process's kernel stack.
	KSTACKSIZE = 4096
	// DPLUser marks a trap frame's code segment as running in user mode.
	DPLUser = 3
)
