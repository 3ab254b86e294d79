package kernel

import "fmt"

// allocPID atomically claims the next process id. Per the corrected reading
// of the original's allocpid (spec §9 open question), this returns the
// value this call actually claimed, not the post-increment counter value;
// two concurrent callers never observe the same pid.
func (k *Kernel) allocPID() int32 {
	for {
		cur := k.nextPID.Load()
		if k.nextPID.CompareAndSwap(cur, cur+1) {
			return cur
		}
	}
}

// allocProc finds an UNUSED slot, claims it via UNUSED -> EMBRYO, and wires
// up the bookkeeping every live process needs: a pid, a kernel stack, and
// the run/done channels standing in for a saved context plus swtch (spec
// §9, ContextSwitcher). It returns ErrNoFreeSlot if the table is full.
func (k *Kernel) allocProc(name string, image ProcImage) (*Proc, error) {
	for _, p := range k.table {
		if !p.state.CompareAndSwap(int32(StateUnused), int32(StateEmbryo)) {
			continue
		}

		pid := k.allocPID()
		stack, err := k.pages.Alloc(KSTACKSIZE)
		if err != nil {
			p.state.Store(int32(StateUnused))
			return nil, fmt.Errorf("%w: %s", ErrNoMemory, err)
		}

		p.pid.Store(pid)
		p.kstack = stack
		p.tf = &TrapFrame{CS: DPLUser}
		p.context = &Context{}
		p.setName(name)
		p.image = image
		p.started.Store(false)
		p.runCh = make(chan *CPU)
		p.doneCh = make(chan struct{})
		p.sigMu.Lock()
		for i := range p.sigHandlers {
			p.sigHandlers[i] = SigDfl
		}
		p.sigMu.Unlock()
		p.sigMask.Store(0)
		p.pendingSignals.Store(0)
		p.sigStopped.Store(false)
		return p, nil
	}
	return nil, ErrNoFreeSlot
}

// userInit creates the primordial process: the one slot with no parent,
// whose user image comes from the kernel's configured InitImageSource
// instead of a Fork. Matches spec §4.3's userinit.
func (k *Kernel) userInit(image ProcImage) (*Task, error) {
	p, err := k.allocProc("init", image)
	if err != nil {
		return nil, err
	}

	data, _, err := k.boot.ResolveInitImage()
	if err != nil {
		k.pages.Free(p.kstack)
		p.reset()
		p.state.Store(int32(StateUnused))
		return nil, err
	}

	as, err := k.vmm.SetupKVM()
	if err != nil {
		k.pages.Free(p.kstack)
		p.reset()
		p.state.Store(int32(StateUnused))
		return nil, err
	}
	if err := k.vmm.InitUVM(as, data); err != nil {
		k.pages.Free(p.kstack)
		p.reset()
		p.state.Store(int32(StateUnused))
		return nil, err
	}
	p.pgdir = as
	p.sz = len(data)
	p.cwd = k.fsm.Namei("/")

	k.initProc.Store(p)
	if !p.state.CompareAndSwap(int32(StateEmbryo), int32(StateRunnable)) {
		panic("kernel: userinit - unexpected state")
	}
	return &Task{kernel: k, proc: p}, nil
}

// GrowProc grows or shrinks the calling task's user image by n bytes,
// matching spec §4.3's growproc. n == 0 is a no-op.
func (k *Kernel) GrowProc(t *Task, n int) error {
	p := t.proc
	sz := p.sz
	var newSz int
	var err error
	if n > 0 {
		newSz, err = k.vmm.AllocUVM(p.pgdir, sz, sz+n)
	} else if n < 0 {
		newSz, err = k.vmm.DeallocUVM(p.pgdir, sz, sz+n)
	} else {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNoMemory, err)
	}
	p.sz = newSz
	k.vmm.SwitchUVM(p.pgdir)
	return nil
}

// Fork creates a child of t's process, copying its address space, open
// files, and signal handlers, and leaves the child RUNNABLE. Matches spec
// §4.3's fork, except for the entry-point adaptation documented in
// SPEC_FULL.md §E: since Go cannot clone a goroutine's stack the way a real
// fork() duplicates the calling process's image, the caller supplies
// childEntry as the child's body instead of the child resuming at the
// parent's return address with a zeroed return value.
func (k *Kernel) Fork(t *Task, childEntry ProcImage) (int32, error) {
	parent := t.proc

	child, err := k.allocProc(parent.Name(), childEntry)
	if err != nil {
		return -1, err
	}

	as, err := k.vmm.CopyUVM(parent.pgdir, parent.sz)
	if err != nil {
		k.pages.Free(child.kstack)
		child.reset()
		child.state.Store(int32(StateUnused))
		return -1, fmt.Errorf("%w: %s", ErrNoMemory, err)
	}
	child.pgdir = as
	child.sz = parent.sz
	child.parent.Store(parent)
	*child.tf = *parent.tf
	child.tf.Return = 0

	for i, f := range parent.ofile {
		if f != nil {
			child.ofile[i] = k.fsm.FileDup(f)
		}
	}
	child.cwd = k.fsm.IDup(parent.cwd)

	parent.sigMu.Lock()
	child.sigMu.Lock()
	child.sigHandlers = parent.sigHandlers
	child.sigMu.Unlock()
	parent.sigMu.Unlock()
	child.sigMask.Store(parent.sigMask.Load())

	pid := child.PID()
	if !child.state.CompareAndSwap(int32(StateEmbryo), int32(StateRunnable)) {
		panic("kernel: fork - unexpected child state")
	}
	return pid, nil
}

// Exit tears down t's open files and reparents its children to init, then
// deposits NEG_ZOMBIE and never returns to the caller. Matches spec §4.3's
// exit; the parent is woken so a blocked Wait can reap this slot.
func (k *Kernel) Exit(t *Task) {
	p := t.proc
	if p == k.initProc.Load() {
		panic("kernel: init exiting")
	}

	for i, f := range p.ofile {
		if f != nil {
			k.fsm.FileClose(f)
			p.ofile[i] = nil
		}
	}
	k.fsm.BeginOp()
	k.fsm.IPut(p.cwd)
	k.fsm.EndOp()
	p.cwd = nil

	initProc := k.initProc.Load()
	for _, child := range k.table {
		if child.Parent() == p {
			child.parent.Store(initProc)
			if child.State() == StateZombie {
				k.wakeup1(initProc)
			}
		}
	}

	p.cpu.PushCLI()
	k.wakeup1(p.parent.Load())
	if !p.state.CompareAndSwap(int32(StateRunning), int32(StateNegZombie)) {
		panic("kernel: exit - unexpected state")
	}
	k.schedExit(p)
}

// Wait blocks t until one of its children becomes a ZOMBIE, reaps the
// first one found, frees its resources, and returns its pid. It returns
// ErrNoChildren if t has no children at all, matching spec §4.3's wait.
func (k *Kernel) Wait(t *Task) (int32, error) {
	p := t.proc
	for {
		haveKids := false
		for _, child := range k.table {
			if child.Parent() != p {
				continue
			}
			haveKids = true
			if child.State() == StateZombie {
				pid := child.PID()
				k.vmm.FreeVM(child.pgdir)
				k.pages.Free(child.kstack)
				child.reset()
				child.state.Store(int32(StateUnused))
				return pid, nil
			}
		}
		if !haveKids || t.Killed() {
			return -1, ErrNoChildren
		}
		t.Sleep(p)
	}
}
