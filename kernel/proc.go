package kernel

import (
	"sync"
	"sync/atomic"

	"github.com/arctir/miniproc/fsys"
	"github.com/arctir/miniproc/vm"
)

// TrapFrame is the architectural register snapshot captured on every entry
// to the kernel, and the vehicle signal delivery stages a handler
// invocation through. SP/PC are kept so the round-trip and trampoline
// properties (spec §8) have concrete fields to assert against.
type TrapFrame struct {
	CS     int
	SP     uintptr
	PC     uintptr
	Return int32 // cleared to 0 in the child by fork, per spec §4.3

	// Trampoline holds the ABI arguments a real trampoline stub would find
	// on the user stack (signum, saved stack pointer), per spec §9.
	Trampoline TrampolineArgs
}

// TrampolineArgs is the argument layout handle_user_signal lays down for
// the user-space trampoline: the signal number and the stack pointer to
// resume at once the handler returns.
type TrampolineArgs struct {
	Signum  Signal
	SavedSP uintptr
}

// Context is the callee-saved kernel register snapshot a real context
// switch primitive would save/restore. It carries no live state in this
// model (see ContextSwitcher in swtch.go) but is kept so Proc's shape
// matches spec §3 field-for-field.
type Context struct {
	PC uintptr
}

// ProcImage is a process's entry point: the Go-idiomatic stand-in for "the
// program a process runs". A Task handed to a ProcImage is this process's
// explicit kernel context record (spec §9's recommended replacement for
// free statics / thread-local lookups).
type ProcImage func(task *Task)

// Proc is a fixed-identity process-table slot. Its index in Kernel.table is
// constant for the lifetime of the kernel; only its contents are recycled
// between UNUSED and a live process.
type Proc struct {
	state atomic.Int32
	pid   atomic.Int32

	parent atomic.Pointer[Proc]

	kstack []byte
	pgdir  *vm.AddrSpace
	sz     int

	tf      *TrapFrame
	context *Context

	waitChan atomic.Pointer[any] // valid only while SLEEPING / NEG_SLEEPING

	killed atomic.Bool

	ofile [NOFILE]*fsys.File
	cwd   *fsys.Inode

	name [16]byte

	// sigMu guards sigHandlers, which is read by the owning process at
	// HandleSignals time and written by the owning process via Signal; it
	// is also copied by a parent into a freshly allocated (not yet started)
	// child during Fork, which is why it needs a lock rather than relying
	// purely on the owner-only convention.
	sigMu          sync.Mutex
	sigHandlers    [SigSize]SigHandler
	sigMask        atomic.Uint32
	pendingSignals atomic.Uint32
	sigStopped     atomic.Bool
	sigMaskBackup  uint32
	tfBackup       *TrapFrame

	image   ProcImage
	started atomic.Bool
	cpu     *CPU

	runCh  chan *CPU
	doneCh chan struct{}
}

// State returns the slot's current lifecycle state.
func (p *Proc) State() State { return State(p.state.Load()) }

// PID returns the slot's process identifier, or 0 if unused.
func (p *Proc) PID() int32 { return p.pid.Load() }

// Parent returns the slot's parent, or nil for the primordial init process.
func (p *Proc) Parent() *Proc { return p.parent.Load() }

// Killed reports whether SIGKILL (or any other default-fatal signal) has
// been delivered to this process.
func (p *Proc) Killed() bool { return p.killed.Load() }

// SigStopped reports whether this process is currently parked on SIGSTOP,
// awaiting SIGCONT (spec §4.6's handle_signals step 1).
func (p *Proc) SigStopped() bool { return p.sigStopped.Load() }

// Name returns the process's debug label.
func (p *Proc) Name() string {
	n := p.name[:]
	for i, b := range n {
		if b == 0 {
			return string(n[:i])
		}
	}
	return string(n)
}

func (p *Proc) setName(name string) {
	var buf [16]byte
	copy(buf[:], name)
	p.name = buf
}

func (p *Proc) getWaitChan() any {
	v := p.waitChan.Load()
	if v == nil {
		return nil
	}
	return *v
}

func (p *Proc) setWaitChan(ch any) {
	if ch == nil {
		p.waitChan.Store(nil)
		return
	}
	p.waitChan.Store(&ch)
}

// reset clears a slot's contents on the ZOMBIE -> UNUSED transition.
func (p *Proc) reset() {
	p.pid.Store(0)
	p.parent.Store(nil)
	p.kstack = nil
	p.pgdir = nil
	p.sz = 0
	p.tf = nil
	p.context = nil
	p.setWaitChan(nil)
	p.killed.Store(false)
	p.ofile = [NOFILE]*fsys.File{}
	p.cwd = nil
	p.name = [16]byte{}
	p.image = nil
	p.started.Store(false)
	p.runCh = nil
	p.doneCh = nil
	p.sigMu.Lock()
	for i := range p.sigHandlers {
		p.sigHandlers[i] = SigDfl
	}
	p.sigMu.Unlock()
	p.sigMask.Store(0)
	p.pendingSignals.Store(0)
	p.sigStopped.Store(false)
	p.tfBackup = nil
}
