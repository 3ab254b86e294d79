package kernel

// Kill validates signum and pid, then sets bit signum in the target's
// pending_signals, matching spec §4.6's kill(). A SIGSTOP aimed at a
// SLEEPING process is silently discarded instead of set: POSIX semantics
// would defer delivery, but this kernel drops it without error, per spec
// §9's open question (noted, not corrected).
func (k *Kernel) Kill(pid int32, signum Signal) error {
	if !validSignum(signum) {
		return ErrInvalidSignal
	}
	p := k.FindByPID(pid)
	if p == nil {
		return ErrNoSuchProcess
	}
	if signum == SIGSTOP && p.State() == StateSleeping {
		return nil
	}
	for {
		old := p.pendingSignals.Load()
		next := old | (1 << uint(signum))
		if p.pendingSignals.CompareAndSwap(old, next) {
			return nil
		}
	}
}

// SigProcMask atomically replaces t's signal mask, returning the prior
// value, matching spec §4.6's sigprocmask().
func (k *Kernel) SigProcMask(t *Task, mask uint32) uint32 {
	return t.proc.sigMask.Swap(mask)
}

// Signal installs handler as t's disposition for signum, returning the
// previous disposition. Matches spec §4.6's signal(); the invalid-signum
// sentinel "-2" becomes ErrInvalidSignal, an idiomatic Go error return in
// place of a magic return value (see DESIGN.md's open question decision).
func (k *Kernel) Signal(t *Task, signum Signal, handler SigHandler) (SigHandler, error) {
	if !validSignum(signum) {
		return SigHandler{}, ErrInvalidSignal
	}
	p := t.proc
	p.sigMu.Lock()
	defer p.sigMu.Unlock()
	prev := p.sigHandlers[signum]
	p.sigHandlers[signum] = handler
	return prev, nil
}

// SigReturn restores t's trap frame and signal mask from the backups
// handle_user_signal staged, completing a user handler's return, matching
// spec §4.6's sigret().
func (k *Kernel) SigReturn(t *Task) {
	p := t.proc
	p.sigMu.Lock()
	defer p.sigMu.Unlock()
	if p.tfBackup != nil {
		*p.tf = *p.tfBackup
		p.tfBackup = nil
	}
	p.sigMask.Store(p.sigMaskBackup)
}

// HandleSignals runs the delivery pass spec §4.6 describes as happening at
// every return to user mode. A process image calls it explicitly at the
// points that represent such a boundary, since this model has no trap path
// to hook it into automatically.
func (k *Kernel) HandleSignals(t *Task) {
	p := t.proc
	for {
		if p.sigStopped.Load() {
			mask := p.pendingSignals.Load()
			if mask&(1<<uint(SIGCONT)) == 0 {
				t.Yield()
				continue
			}
		}

		mask := p.sigMask.Load()
		for i := Signal(0); int(i) < SigSize; i++ {
			pending := p.pendingSignals.Load()
			bit := uint32(1) << uint(i)
			if pending&bit == 0 {
				continue
			}
			if mask&bit != 0 {
				continue
			}

			p.sigMu.Lock()
			h := p.sigHandlers[i]
			p.sigMu.Unlock()
			if h.Disposition == SigIgnore {
				clearPending(p, i)
				continue
			}

			if h.Disposition == SigDefault {
				k.handleKernelDefault(p, i)
				clearPending(p, i)
				continue
			}

			k.handleUserSignal(p, i, h.Handler)
			clearPending(p, i)
			break
		}

		if !p.sigStopped.Load() {
			break
		}
	}
}

func clearPending(p *Proc, i Signal) {
	for {
		old := p.pendingSignals.Load()
		next := old &^ (1 << uint(i))
		if p.pendingSignals.CompareAndSwap(old, next) {
			return
		}
	}
}

// handleKernelDefault runs the built-in action for a SIG_DFL-dispositioned
// signal: SIGSTOP parks the process, SIGCONT releases it, and SIGKILL (or
// any other default signal) marks it killed.
func (k *Kernel) handleKernelDefault(p *Proc, signum Signal) {
	switch signum {
	case SIGSTOP:
		p.sigStopped.Store(true)
	case SIGCONT:
		p.sigStopped.Store(false)
	default:
		p.killed.Store(true)
	}
}

// handleUserSignal stages a user-mode handler invocation: back up the mask
// and trap frame, block all signals for the duration, and invoke handler
// directly in place of copying a trampoline onto a user stack (there is no
// real user stack here). SigReturn plays the trampoline's sigret call,
// restoring the backed-up context once handler returns.
func (k *Kernel) handleUserSignal(p *Proc, signum Signal, handler HandlerFunc) {
	p.sigMu.Lock()
	p.sigMaskBackup = p.sigMask.Load()
	backup := *p.tf
	p.tfBackup = &backup
	p.sigMu.Unlock()

	p.sigMask.Store(^uint32(0))
	p.tf.Trampoline = TrampolineArgs{Signum: signum, SavedSP: p.tf.SP}

	task := &Task{kernel: k, proc: p}
	handler(task, signum)
	k.SigReturn(task)
}
