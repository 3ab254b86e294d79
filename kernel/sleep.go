package kernel

import "sync"

// Sleep blocks p on wait channel ch until a matching Wakeup/wakeup1 call,
// matching spec §4.5's sleep(). If lk is non-nil and is not p's own
// implicit interrupt-disable bracket, it is released for the duration of
// the sleep and reacquired before returning, exactly as the original
// releases any caller-supplied lock other than ptable.lock.
func (k *Kernel) Sleep(p *Proc, ch any, lk sync.Locker) {
	p.cpu.PushCLI()
	if lk != nil {
		lk.Unlock()
	}

	p.setWaitChan(ch)
	if !p.state.CompareAndSwap(int32(StateRunning), int32(StateNegSleeping)) {
		panic("kernel: CAS sleep failed")
	}
	k.sched(p)

	p.setWaitChan(nil)
	p.cpu.PopCLI()
	if lk != nil {
		lk.Lock()
	}
}

// wakeup1 is the interrupts-already-disabled half of wakeup: it scans the
// table for slots sleeping on ch and promotes them to run again. A process
// caught mid-sleep (still NEG_SLEEPING, not yet finalized by its CPU's
// scheduler) is promoted straight to NEG_RUNNABLE instead — the other half
// of the lost-wakeup protocol finalizeState's NEG_SLEEPING case implements,
// per the corrected reading of spec §9's open question. Exit passes a
// process's own pointer as ch to wake a specific waiter (its parent,
// blocked in Wait sleeping on itself), the same convention Wait uses.
func (k *Kernel) wakeup1(ch any) {
	if ch == nil {
		return
	}
	for _, p := range k.table {
		if p.getWaitChan() != ch {
			continue
		}
		if p.state.CompareAndSwap(int32(StateSleeping), int32(StateRunnable)) {
			continue
		}
		p.state.CompareAndSwap(int32(StateNegSleeping), int32(StateNegRunnable))
	}
}

// Wakeup wakes every process sleeping on ch, matching spec §4.5's wakeup().
func (k *Kernel) Wakeup(ch any) {
	k.wakeup1(ch)
}
