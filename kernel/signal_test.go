package kernel

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
)

func TestSigProcMaskRoundTrip(t *testing.T) {
	k := newTestKernel(1)
	task, err := k.Boot(func(*Task) { select {} })
	if err != nil {
		t.Fatalf("Boot failed: %s", err)
	}

	const x, z uint32 = 0b1010, 0b0101
	task.SigProcMask(x)
	y := task.SigProcMask(z)
	task.SigProcMask(y)

	if got := task.proc.sigMask.Load(); got != x {
		t.Errorf("expected mask %#b after sigprocmask(x); y=sigprocmask(z); sigprocmask(y), got %#b", x, got)
	}
}

// TestKillPendingSignalsSetSemantics is testable property: kill(pid, sig)
// twice leaves pending_signals unchanged after the second call.
func TestKillPendingSignalsSetSemantics(t *testing.T) {
	k := newTestKernel(1)
	task, err := k.Boot(func(*Task) { select {} })
	if err != nil {
		t.Fatalf("Boot failed: %s", err)
	}

	if err := task.Kill(task.PID(), SIGUSR1); err != nil {
		t.Fatalf("first Kill failed: %s", err)
	}
	first := task.proc.pendingSignals.Load()
	if first&(1<<uint(SIGUSR1)) == 0 {
		t.Fatalf("expected SIGUSR1 bit set after first Kill, got %#b", first)
	}

	if err := task.Kill(task.PID(), SIGUSR1); err != nil {
		t.Fatalf("second Kill failed: %s", err)
	}
	second := task.proc.pendingSignals.Load()

	if first != second {
		t.Errorf("expected repeated kill to leave pending_signals unchanged, got %#b then %#b", first, second)
	}
}

func TestSignalInvalidSignumBoundaries(t *testing.T) {
	k := newTestKernel(1)
	task, err := k.Boot(func(*Task) { select {} })
	if err != nil {
		t.Fatalf("Boot failed: %s", err)
	}

	if _, err := task.Signal(-1, SigDfl); err != ErrInvalidSignal {
		t.Errorf("expected ErrInvalidSignal for signum -1, got %v", err)
	}
	if _, err := task.Signal(SigSize, SigDfl); err != ErrInvalidSignal {
		t.Errorf("expected ErrInvalidSignal for signum SigSize, got %v", err)
	}
}

func TestKillBoundaries(t *testing.T) {
	k := newTestKernel(1)
	task, err := k.Boot(func(*Task) { select {} })
	if err != nil {
		t.Fatalf("Boot failed: %s", err)
	}

	if err := task.Kill(task.PID(), -1); err != ErrInvalidSignal {
		t.Errorf("expected ErrInvalidSignal for signum -1, got %v", err)
	}
	if err := task.Kill(99999, SIGKILL); err != ErrNoSuchProcess {
		t.Errorf("expected ErrNoSuchProcess for unknown pid, got %v", err)
	}
}

// TestKillSigStopOnSleepingIsDropped matches spec §4.6/§8: SIGSTOP aimed at
// a SLEEPING process is silently discarded rather than queued.
func TestKillSigStopOnSleepingIsDropped(t *testing.T) {
	k := newTestKernel(1)
	p, err := k.allocProc("victim", func(*Task) {})
	if err != nil {
		t.Fatalf("allocProc failed: %s", err)
	}
	if !p.state.CompareAndSwap(int32(StateEmbryo), int32(StateSleeping)) {
		t.Fatalf("setup: could not move slot to SLEEPING")
	}

	if err := k.Kill(p.PID(), SIGSTOP); err != nil {
		t.Fatalf("Kill returned error: %s", err)
	}
	if got := p.pendingSignals.Load(); got != 0 {
		t.Errorf("expected SIGSTOP to be dropped for a SLEEPING process, pending=%#b\n%s",
			got, spew.Sdump(k.Snapshot()))
	}
}

// TestSigReturnRestoresBackup drives handleUserSignal directly (the
// trampoline stand-in) and checks the round-trip property: sigret restores
// the exact trap frame and mask handle_user_signal backed up.
func TestSigReturnRestoresBackup(t *testing.T) {
	k := newTestKernel(1)
	p, err := k.allocProc("t", func(*Task) {})
	if err != nil {
		t.Fatalf("allocProc failed: %s", err)
	}

	p.tf.PC = 0x1000
	p.tf.SP = 0x2000
	p.sigMask.Store(0x0F)
	origPC, origSP, origMask := p.tf.PC, p.tf.SP, p.sigMask.Load()

	var ranWith Signal = -1
	var maskDuringHandler uint32
	k.handleUserSignal(p, Signal(3), func(tk *Task, signum Signal) {
		ranWith = signum
		maskDuringHandler = p.sigMask.Load()
		// A misbehaving handler mutating tf should still be undone by
		// the implicit sigret that follows handler return.
		p.tf.PC = 0x9999
	})

	if ranWith != 3 {
		t.Errorf("expected handler to run with signum 3, got %d", ranWith)
	}
	if maskDuringHandler != ^uint32(0) {
		t.Errorf("expected mask fully blocked during handler, got %#b", maskDuringHandler)
	}
	if p.tf.PC != origPC || p.tf.SP != origSP {
		t.Errorf("expected trap frame restored after sigret, got PC=%#x SP=%#x, want PC=%#x SP=%#x",
			p.tf.PC, p.tf.SP, origPC, origSP)
	}
	if p.sigMask.Load() != origMask {
		t.Errorf("expected mask restored to %#b, got %#b", origMask, p.sigMask.Load())
	}
}
