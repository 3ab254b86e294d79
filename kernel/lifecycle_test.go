package kernel

import (
	"errors"
	"io"
	"log"
	"testing"

	"github.com/davecgh/go-spew/spew"
)

// TestAllocProcOutOfMemoryWrapsErrNoMemory checks that a page-allocator
// failure surfaces as the kernel-level ErrNoMemory sentinel (spec §7 class
// 1), not the palloc collaborator's own error type leaking through.
func TestAllocProcOutOfMemoryWrapsErrNoMemory(t *testing.T) {
	k := New(Config{NCPU: 1, PageArenaBytes: KSTACKSIZE, Logger: log.New(io.Discard, "", 0)})
	if _, err := k.allocProc("a", func(*Task) {}); err != nil {
		t.Fatalf("expected the first allocProc to fit the arena, got %s", err)
	}
	_, err := k.allocProc("b", func(*Task) {})
	if !errors.Is(err, ErrNoMemory) {
		t.Errorf("expected ErrNoMemory once the kernel-stack arena is exhausted, got %v", err)
	}
}

// TestAllocProcTableExhaustion fills every slot the table has (one taken by
// init, the rest by children that never exit) and checks that the next
// allocation reports ErrNoFreeSlot, per spec §4.2's "no slot" boundary.
func TestAllocProcTableExhaustion(t *testing.T) {
	k := newTestKernel(1)
	task, err := k.Boot(func(*Task) { select {} })
	if err != nil {
		t.Fatalf("Boot failed: %s", err)
	}

	forked := 0
	var lastErr error
	for i := 0; i < NPROC; i++ {
		if _, err := task.Fork(func(*Task) { select {} }); err != nil {
			lastErr = err
			break
		}
		forked++
	}

	if lastErr != ErrNoFreeSlot {
		t.Fatalf("expected ErrNoFreeSlot after filling the table, got %v (forked %d)\n%s",
			lastErr, forked, spew.Sdump(k.Snapshot()))
	}
	if forked != NPROC-1 {
		t.Errorf("expected to fork %d children before exhausting the table (init holds one slot), forked %d",
			NPROC-1, forked)
	}
}

// TestForkInheritsHandlersAndMaskNotPending is testable property 8: a
// child's signal handler table and mask are copies of the parent's at fork
// time, but pending_signals always starts empty.
func TestForkInheritsHandlersAndMaskNotPending(t *testing.T) {
	k := newTestKernel(2)
	task, err := k.Boot(func(*Task) { select {} })
	if err != nil {
		t.Fatalf("Boot failed: %s", err)
	}

	const watched = Signal(9)
	handler := SigHandler{Disposition: SigHandled, Handler: func(*Task, Signal) {}}
	if _, err := task.Signal(watched, handler); err != nil {
		t.Fatalf("Signal failed: %s", err)
	}
	task.SigProcMask(0b1011)
	if err := task.Kill(task.PID(), SIGUSR1); err != nil {
		t.Fatalf("Kill on self failed: %s", err)
	}

	var childPID int32
	childDone := make(chan struct{})
	childPID, err = task.Fork(func(ct *Task) {
		close(childDone)
		select {}
	})
	if err != nil {
		t.Fatalf("Fork failed: %s", err)
	}
	<-childDone

	child := task.Kernel().FindByPID(childPID)
	if child == nil {
		t.Fatalf("could not find forked child pid %d in table", childPID)
	}

	child.sigMu.Lock()
	gotHandler := child.sigHandlers[watched]
	child.sigMu.Unlock()
	if gotHandler.Disposition != SigHandled {
		t.Errorf("expected child to inherit handler disposition for signal %d, got %v", watched, gotHandler.Disposition)
	}

	if got := child.sigMask.Load(); got != 0b1011 {
		t.Errorf("expected child to inherit signal mask %#b, got %#b", 0b1011, got)
	}

	if got := child.pendingSignals.Load(); got != 0 {
		t.Errorf("expected child's pending_signals to start empty, got %#b", got)
	}
}

// TestUserInitBecomesRunnable checks the EMBRYO -> RUNNABLE transition
// userinit performs before any scheduler has touched the slot.
func TestUserInitBecomesRunnable(t *testing.T) {
	k := newTestKernel(0)
	task, err := k.userInit(func(*Task) { select {} })
	if err != nil {
		t.Fatalf("userInit failed: %s", err)
	}
	if got := task.Proc().State(); got != StateRunnable {
		t.Errorf("expected init slot to be RUNNABLE after userInit, got %s", got)
	}
	if task.Proc().Parent() != nil {
		t.Errorf("expected init process to have no parent")
	}
}
