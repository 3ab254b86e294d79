package kernel

import "sync"

// Task pairs a Kernel with the Proc it is currently acting on behalf of. It
// is the explicit context record process images call kernel operations
// through, replacing the implicit myproc()/mycpu() thread-local lookups a
// real kernel performs (see the CPU doc comment for why).
type Task struct {
	kernel *Kernel
	proc   *Proc
}

// PID returns the task's process id.
func (t *Task) PID() int32 { return t.proc.pid.Load() }

// Killed reports whether this process has been marked for termination.
func (t *Task) Killed() bool { return t.proc.killed.Load() }

// Name returns the process's debug label.
func (t *Task) Name() string { return t.proc.Name() }

// Proc exposes the read-only process record backing this task.
func (t *Task) Proc() *Proc { return t.proc }

// Kernel exposes the kernel this task is running under, for callers (such
// as the scenario runner) that need table-wide introspection a Task's own
// narrow facade doesn't expose.
func (t *Task) Kernel() *Kernel { return t.kernel }

// Yield gives up the CPU, remaining RUNNABLE.
func (t *Task) Yield() { t.kernel.Yield(t) }

// Exit terminates the task. It never returns to the caller.
func (t *Task) Exit() { t.kernel.Exit(t) }

// Wait blocks until a child exits, reaping the first zombie found.
func (t *Task) Wait() (int32, error) { return t.kernel.Wait(t) }

// Fork creates a child process running childEntry. See kernel.Fork's doc
// comment for why childEntry exists instead of a dual fork() return value.
func (t *Task) Fork(childEntry ProcImage) (int32, error) { return t.kernel.Fork(t, childEntry) }

// Sleep blocks the task on wait channel ch until a matching Wakeup. No
// external lock is released (equivalent to passing the ptable sentinel).
func (t *Task) Sleep(ch any) { t.kernel.Sleep(t.proc, ch, nil) }

// SleepLocked blocks the task on wait channel ch, releasing lk for the
// duration of the sleep and reacquiring it before returning.
func (t *Task) SleepLocked(ch any, lk sync.Locker) { t.kernel.Sleep(t.proc, ch, lk) }

// GrowProc grows (n > 0) or shrinks (n < 0) the task's user image.
func (t *Task) GrowProc(n int) error { return t.kernel.GrowProc(t, n) }

// HandleSignals runs the signal-delivery pass normally performed at every
// return to user mode. Process images call this explicitly at points that
// represent such a boundary crossing, since this model has no real trap
// path to hook it into automatically.
func (t *Task) HandleSignals() { t.kernel.HandleSignals(t) }

// SigProcMask atomically replaces the task's signal mask, returning the
// previous value.
func (t *Task) SigProcMask(mask uint32) uint32 { return t.kernel.SigProcMask(t, mask) }

// Signal installs handler for signum, returning the previous handler.
func (t *Task) Signal(signum Signal, handler SigHandler) (SigHandler, error) {
	return t.kernel.Signal(t, signum, handler)
}

// SigReturn restores the trap frame and mask handle_user_signal backed up,
// completing a user-space handler's return.
func (t *Task) SigReturn() { t.kernel.SigReturn(t) }

// Kill delivers signum to pid.
func (t *Task) Kill(pid int32, signum Signal) error { return t.kernel.Kill(pid, signum) }
