package kernel

import (
	"runtime"
	"time"
)

// runScheduler is the per-CPU, non-returning loop described in spec §4.4.
// Each pass briefly "enables interrupts" (here, just a cooperative
// runtime.Gosched, since there is no real hardware interrupt to service),
// then walks the table in index order attempting RUNNABLE -> RUNNING.
//
// Unlike the original, there is no swtch() assembly primitive to jump into
// a slot's saved context. Instead each process owns a goroutine and two
// unbuffered channels; dispatching a slot means sending this CPU on its
// runCh and blocking on its doneCh until the process goroutine parks
// itself again (at yield, sleep, or exit) — the channel rendezvous plays
// the role swtch plays in the original, see ContextSwitcher.
func (k *Kernel) runScheduler(c *CPU) {
	for {
		c.ieOn = true
		runtime.Gosched()
		c.ieOn = false

		ranAny := false
		for _, p := range k.table {
			if !p.state.CompareAndSwap(int32(StateRunnable), int32(StateRunning)) {
				continue
			}
			ranAny = true

			c.proc.Store(p)
			k.vmm.SwitchUVM(p.pgdir)

			p.cpu = c
			// Every dispatch carries exactly one held level of
			// interrupt-disable nesting into the process, mirroring
			// scheduler()'s pushcli: a never-before-run slot releases it
			// in forkret, a resumed one in the PopCLI that follows its
			// sched call. A process that switches out always leaves that
			// one level behind on the CPU it ran on.
			c.ncli = 1
			if !p.started.Swap(true) {
				go k.runProcessGoroutine(p)
			}
			p.runCh <- c
			<-p.doneCh

			k.vmm.SwitchKVM()
			c.proc.Store(nil)
			k.finalizeState(p)
		}
		if !ranAny {
			time.Sleep(time.Millisecond)
		}
	}
}

// runProcessGoroutine is the body every process slot's dedicated goroutine
// runs: park until first dispatched, perform the one-time forkret setup,
// run the process's image to completion, then force an exit if the image
// returned instead of calling Task.Exit itself.
func (k *Kernel) runProcessGoroutine(p *Proc) {
	c := <-p.runCh
	p.cpu = c
	k.forkret(p)

	task := &Task{kernel: k, proc: p}
	image := p.image
	image(task)
	k.Exit(task)
}

// forkret is the entry point of any freshly swtch'ed-in process (spec
// §4.4). It undoes the implicit pushcli the scheduler's dispatch performed,
// and, on the very first invocation across the whole kernel, runs the
// file-subsystem initialization that requires a process context.
func (k *Kernel) forkret(p *Proc) {
	p.cpu.PopCLI()
	if k.firstSched.CompareAndSwap(false, true) {
		k.fsm.Init()
	}
}

// finalizeState implements spec §4.4 step 3f: finalize the intermediate
// state a returning process deposited, exactly once, from the dispatching
// CPU's own scheduler.
func (k *Kernel) finalizeState(p *Proc) {
	switch State(p.state.Load()) {
	case StateNegSleeping:
		if !p.state.CompareAndSwap(int32(StateNegSleeping), int32(StateSleeping)) {
			// A racing wakeup1 already promoted this slot to
			// NEG_RUNNABLE before we could finalize it as SLEEPING;
			// see the lost-wakeup theorem in spec §4.5. Finish the
			// promotion to RUNNABLE instead of leaving it stuck.
			p.state.CompareAndSwap(int32(StateNegRunnable), int32(StateRunnable))
		}
	case StateNegRunnable:
		p.state.CompareAndSwap(int32(StateNegRunnable), int32(StateRunnable))
	case StateNegZombie:
		if p.state.CompareAndSwap(int32(StateNegZombie), int32(StateZombie)) {
			k.wakeup1(p.parent.Load())
		}
	}
}

// sched is the dual of runScheduler's dispatch: called by a process that
// has already deposited its NEG_* state, with interrupts disabled and
// exactly one level of interrupt-disable nesting outstanding. It hands the
// CPU back to the scheduler and parks until redispatched.
func (k *Kernel) sched(p *Proc) {
	if p.cpu.ncli != 1 {
		panic("kernel: sched - locks held")
	}
	if State(p.state.Load()) == StateRunning {
		panic("kernel: sched - still running")
	}
	if p.cpu.ieOn {
		panic("kernel: sched - interruptible")
	}
	savedIE := p.cpu.ieSaved
	p.doneCh <- struct{}{}
	newCPU := <-p.runCh
	p.cpu = newCPU
	p.cpu.ieSaved = savedIE
}

// schedExit is sched's non-returning counterpart for Exit: it hands the CPU
// back for finalization but never expects to be redispatched, so it parks
// the goroutine for good via runtime.Goexit after handing off.
func (k *Kernel) schedExit(p *Proc) {
	if p.cpu.ncli != 1 {
		panic("kernel: sched - locks held")
	}
	if p.cpu.ieOn {
		panic("kernel: sched - interruptible")
	}
	p.doneCh <- struct{}{}
	runtime.Goexit()
}

// Yield transitions RUNNING -> NEG_RUNNABLE and re-enters the scheduler,
// matching spec §4.4's yield().
func (k *Kernel) Yield(t *Task) {
	p := t.proc
	p.cpu.PushCLI()
	if !p.state.CompareAndSwap(int32(StateRunning), int32(StateNegRunnable)) {
		panic("kernel: CAS yield failed")
	}
	k.sched(p)
	p.cpu.PopCLI()
}
