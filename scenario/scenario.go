// Package scenario exercises a live kernel.Kernel against the end-to-end
// scenarios spec §8 describes (S1-S6): fork/exit/wait reaping, the
// sleep/wakeup no-lost-wakeup protocol, signal handler delivery, SIGSTOP/
// SIGCONT, concurrent zombie reaping, and SIGKILL reparenting. Each
// scenario boots its own throwaway kernel instance so they never interfere
// with each other.
package scenario

import (
	"fmt"
	"io"
	"log"
	"time"

	"github.com/arctir/miniproc/bootsrc"
	"github.com/arctir/miniproc/kernel"
)

// Result is the outcome of running one scenario.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Scenario is a named, independently runnable check against a fresh kernel.
type Scenario struct {
	Name string
	Run  func() Result
}

// Registry returns every scenario this package knows how to run, in the
// order spec §8 lists them.
func Registry() []Scenario {
	return []Scenario{
		{Name: "S1", Run: runS1},
		{Name: "S2", Run: runS2},
		{Name: "S3", Run: runS3},
		{Name: "S4", Run: runS4},
		{Name: "S5", Run: runS5},
		{Name: "S6", Run: runS6},
	}
}

const scenarioTimeout = 5 * time.Second

// Each scenario's init image parks on select{} once it has reported its
// result instead of calling Task.Exit (which would panic: init may never
// exit). That leaves its kernel's goroutines blocked forever, which is
// fine here since every scenario builds a fresh, throwaway kernel and the
// whole thing is discarded once Run returns.

func newTestKernel(ncpu int) *kernel.Kernel {
	return kernel.New(kernel.Config{
		NCPU:   ncpu,
		Boot:   bootsrc.BuiltinSource{},
		Logger: log.New(io.Discard, "", 0),
	})
}

func fail(name, format string, args ...any) Result {
	return Result{Name: name, Passed: false, Detail: fmt.Sprintf(format, args...)}
}

func pass(name, format string, args ...any) Result {
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf(format, args...)}
}

// runS1: spawn init, fork a child that immediately exits, parent's wait()
// returns the child's pid and the slot becomes UNUSED.
func runS1() Result {
	const name = "S1"
	k := newTestKernel(1)
	done := make(chan Result, 1)

	init := func(t *kernel.Task) {
		childPID, err := t.Fork(func(*kernel.Task) {})
		if err != nil {
			done <- fail(name, "fork failed: %s", err)
			select {}
		}
		gotPID, err := t.Wait()
		if err != nil {
			done <- fail(name, "wait failed: %s", err)
			select {}
		}
		if gotPID != childPID {
			done <- fail(name, "wait returned pid %d, expected %d", gotPID, childPID)
			select {}
		}
		for _, snap := range t.Kernel().Snapshot() {
			if snap.PID == childPID {
				done <- fail(name, "reaped pid %d still present in table as %s", childPID, snap.State)
				select {}
			}
		}
		done <- pass(name, "child pid %d forked, exited, and reaped", childPID)
		select {}
	}

	if _, err := k.Boot(init); err != nil {
		return fail(name, "boot failed: %s", err)
	}
	return await(name, done)
}

// runS2: parent forks, child sleeps on channel K, parent wakes it, child
// resumes. Repeated 100 times to stress the no-lost-wakeup guarantee
// across concurrent scheduler passes.
func runS2() Result {
	const name = "S2"
	const reps = 100

	for i := 0; i < reps; i++ {
		k := newTestKernel(2)
		done := make(chan Result, 1)
		type wakeChan struct{}
		var ch wakeChan

		init := func(t *kernel.Task) {
			resumed := make(chan struct{}, 1)
			_, err := t.Fork(func(ct *kernel.Task) {
				ct.Sleep(ch)
				resumed <- struct{}{}
			})
			if err != nil {
				done <- fail(name, "rep %d: fork failed: %s", i, err)
				select {}
			}
			// A Wakeup issued before the child reaches Sleep wakes
			// nobody, so keep waking K until the child reports back.
			deadline := time.After(scenarioTimeout)
			tick := time.NewTicker(time.Millisecond)
		wait:
			for {
				select {
				case <-resumed:
					done <- pass(name, "rep %d: child resumed after wakeup", i)
					break wait
				case <-tick.C:
					t.Kernel().Wakeup(ch)
				case <-deadline:
					done <- fail(name, "rep %d: child never resumed (lost wakeup)", i)
					break wait
				}
			}
			tick.Stop()
			select {}
		}

		if _, err := k.Boot(init); err != nil {
			return fail(name, "rep %d: boot failed: %s", i, err)
		}
		r := await(name, done)
		if !r.Passed {
			return r
		}
	}
	return pass(name, "%d repetitions with no lost wakeup", reps)
}

// runS3: a process installs a handler for signal 5, another kill()s it,
// the handler runs with the right signum and the process resumes its
// original context afterward.
func runS3() Result {
	const name = "S3"
	k := newTestKernel(2)
	done := make(chan Result, 1)
	const sig = kernel.Signal(5)

	init := func(t *kernel.Task) {
		handlerRan := make(chan kernel.Signal, 1)
		var targetPID int32
		childReady := make(chan struct{})

		_, err := t.Fork(func(ct *kernel.Task) {
			ct.Signal(sig, kernel.SigHandler{
				Disposition: kernel.SigHandled,
				Handler: func(_ *kernel.Task, signum kernel.Signal) {
					handlerRan <- signum
				},
			})
			close(childReady)
			for i := 0; i < 50; i++ {
				ct.HandleSignals()
				ct.Yield()
			}
		})
		if err != nil {
			done <- fail(name, "fork failed: %s", err)
			select {}
		}
		targetPID = firstChildPID(t)
		<-childReady

		if err := t.Kill(targetPID, sig); err != nil {
			done <- fail(name, "kill failed: %s", err)
			select {}
		}

		select {
		case got := <-handlerRan:
			if got != sig {
				done <- fail(name, "handler ran with signum %d, expected %d", got, sig)
			} else {
				done <- pass(name, "handler for signal %d delivered and returned", sig)
			}
		case <-time.After(scenarioTimeout):
			done <- fail(name, "handler never ran")
		}
		select {}
	}

	if _, err := k.Boot(init); err != nil {
		return fail(name, "boot failed: %s", err)
	}
	return await(name, done)
}

// runS4: a process receiving SIGSTOP yields indefinitely until SIGCONT.
func runS4() Result {
	const name = "S4"
	k := newTestKernel(2)
	done := make(chan Result, 1)

	init := func(t *kernel.Task) {
		stopped := make(chan struct{})
		resumedAfterCont := make(chan struct{}, 1)
		childReady := make(chan struct{})

		_, err := t.Fork(func(ct *kernel.Task) {
			close(childReady)
			for {
				ct.HandleSignals()
				if ct.Proc().SigStopped() {
					select {
					case <-stopped:
					default:
						close(stopped)
					}
				}
				ct.Yield()
				select {
				case <-stopped:
					if !ct.Proc().SigStopped() {
						select {
						case resumedAfterCont <- struct{}{}:
						default:
						}
					}
				default:
				}
			}
		})
		if err != nil {
			done <- fail(name, "fork failed: %s", err)
			select {}
		}
		targetPID := firstChildPID(t)
		<-childReady

		if err := t.Kill(targetPID, kernel.SIGSTOP); err != nil {
			done <- fail(name, "kill SIGSTOP failed: %s", err)
			select {}
		}
		// The child only leaves HandleSignals once it is no longer
		// stopped, so the stop is observed from here instead.
		deadline := time.After(scenarioTimeout)
		for !t.Kernel().FindByPID(targetPID).SigStopped() {
			select {
			case <-deadline:
				done <- fail(name, "process never observed SIGSTOP")
				select {}
			case <-time.After(time.Millisecond):
			}
		}
		close(stopped)

		if err := t.Kill(targetPID, kernel.SIGCONT); err != nil {
			done <- fail(name, "kill SIGCONT failed: %s", err)
			select {}
		}
		select {
		case <-resumedAfterCont:
			done <- pass(name, "process stopped on SIGSTOP and resumed on SIGCONT")
		case <-time.After(scenarioTimeout):
			done <- fail(name, "process never resumed after SIGCONT")
		}
		select {}
	}

	if _, err := k.Boot(init); err != nil {
		return fail(name, "boot failed: %s", err)
	}
	return await(name, done)
}

// runS5: two CPUs race to reap the same zombie child; exactly one
// observes the pid, the reaped slot becomes UNUSED exactly once.
func runS5() Result {
	const name = "S5"
	k := newTestKernel(2)
	done := make(chan Result, 1)

	init := func(t *kernel.Task) {
		childPID, err := t.Fork(func(*kernel.Task) {})
		if err != nil {
			done <- fail(name, "fork failed: %s", err)
			select {}
		}

		type waitOutcome struct {
			pid int32
			err error
		}
		results := make(chan waitOutcome, 2)
		race := func() { pid, err := t.Wait(); results <- waitOutcome{pid, err} }
		go race()
		go race()

		var successes int
		var failures int
		for i := 0; i < 2; i++ {
			o := <-results
			switch {
			case o.err == nil && o.pid == childPID:
				successes++
			case o.err != nil:
				failures++
			default:
				done <- fail(name, "unexpected wait outcome pid=%d err=%v", o.pid, o.err)
				select {}
			}
		}
		if successes != 1 || failures != 1 {
			done <- fail(name, "expected exactly one successful reap and one failure, got %d/%d", successes, failures)
			select {}
		}
		done <- pass(name, "exactly one of two racing waiters reaped pid %d", childPID)
		select {}
	}

	if _, err := k.Boot(init); err != nil {
		return fail(name, "boot failed: %s", err)
	}
	return await(name, done)
}

// runS6: kill(pid, SIGKILL) marks the target killed; it aborts at its next
// user boundary; its children are reparented to init; init's wait() reaps
// the killed child.
func runS6() Result {
	const name = "S6"
	k := newTestKernel(2)
	done := make(chan Result, 1)

	init := func(t *kernel.Task) {
		grandchildForked := make(chan struct{})
		childPID, err := t.Fork(func(ct *kernel.Task) {
			if _, err := ct.Fork(func(gt *kernel.Task) {
				for {
					gt.HandleSignals()
					gt.Yield()
				}
			}); err != nil {
				close(grandchildForked)
				return
			}
			close(grandchildForked)
			for {
				ct.HandleSignals()
				if ct.Killed() {
					return
				}
				ct.Yield()
			}
		})
		if err != nil {
			done <- fail(name, "fork failed: %s", err)
			select {}
		}
		<-grandchildForked

		if err := t.Kill(childPID, kernel.SIGKILL); err != nil {
			done <- fail(name, "kill SIGKILL failed: %s", err)
			select {}
		}

		gotPID, err := t.Wait()
		if err != nil {
			done <- fail(name, "wait for killed child failed: %s", err)
			select {}
		}
		if gotPID != childPID {
			done <- fail(name, "wait returned pid %d, expected killed child %d", gotPID, childPID)
			select {}
		}
		done <- pass(name, "SIGKILL'd child %d reaped after reparenting its own child to init", childPID)
		select {}
	}

	if _, err := k.Boot(init); err != nil {
		return fail(name, "boot failed: %s", err)
	}
	return await(name, done)
}

func await(name string, done chan Result) Result {
	select {
	case r := <-done:
		return r
	case <-time.After(scenarioTimeout):
		return fail(name, "timed out waiting for scenario to complete")
	}
}

// firstChildPID finds t's only child by table scan. Scenarios that fork
// exactly one child use this instead of threading the pid through extra
// plumbing.
func firstChildPID(t *kernel.Task) int32 {
	for _, snap := range t.Kernel().Snapshot() {
		if snap.Parent == t.PID() {
			return snap.PID
		}
	}
	return 0
}
