package kernel

import "sync/atomic"

// CPU is one per-CPU scheduler's record: a dense index, a simulated APIC
// id, the slot currently bound to it (if any), and the nestable
// interrupt-disable counter pushcli/popcli manage.
//
// In real hardware mycpu()/myproc() resolve "which CPU am I" from a
// hardware register read at the call site. Go has no equivalent of a
// thread-local hardware register, so miniproc threads a *CPU explicitly
// from the scheduler's dispatch loop into whichever process goroutine it
// is currently running (see Kernel.runScheduler) — the "single kernel
// context record passed explicitly" spec §9's design notes call for.
type CPU struct {
	id     int
	apicID int32

	proc atomic.Pointer[Proc]

	ncli    int
	ieSaved bool
	ieOn    bool
}

// ID returns this CPU's dense index (cpuid()).
func (c *CPU) ID() int { return c.id }

// CurrentProc returns the process bound to this CPU, or nil (myproc()).
func (c *CPU) CurrentProc() *Proc { return c.proc.Load() }

// PushCLI disables interrupts, saving the prior flag on first nesting.
// Matches pushcli: nestable, panics on misuse are left to PopCLI.
func (c *CPU) PushCLI() {
	ie := c.ieOn
	c.ieOn = false
	if c.ncli == 0 {
		c.ieSaved = ie
	}
	c.ncli++
}

// PopCLI restores interrupts on the last unnesting. Mismatched nesting, or
// popping while somehow interruptible, is a fatal invariant violation
// (spec §7 class 4).
func (c *CPU) PopCLI() {
	if c.ieOn {
		panic("kernel: popcli - interruptible")
	}
	c.ncli--
	if c.ncli < 0 {
		panic("kernel: popcli - mismatched nesting")
	}
	if c.ncli == 0 {
		c.ieOn = c.ieSaved
	}
}

// LookupCPU finds the CPU record for a given APIC id. Mirrors mycpu()'s
// literal contract (scan cpus[], panic if the current hardware thread's
// APIC id is not registered) for API fidelity, even though the scheduler's
// hot path uses the cheaper explicit *CPU handle instead of this lookup.
func (k *Kernel) LookupCPU(apicID int32) *CPU {
	for _, c := range k.cpus {
		if c.apicID == apicID {
			return c
		}
	}
	panic("kernel: mycpu called on unknown APIC id")
}
