package kernel

// ContextSwitcher documents the external interface spec §6 describes for
// swtch: save the caller's callee-saved registers into old, restore new's,
// and resume there. The concrete implementation in this kernel is the
// runCh/doneCh channel rendezvous between a CPU's scheduler goroutine and a
// process's goroutine (see runScheduler, sched, schedExit); no assembly
// stub exists to implement this interface because Go goroutines already
// carry their own stacks and the runtime scheduler multiplexes them onto
// OS threads. The interface is kept so the external-interface contract is
// stated explicitly rather than left implicit in the channel handoff.
type ContextSwitcher interface {
	// Switch saves the current context into old and resumes execution at
	// new, returning only once something switches back into old.
	Switch(old, new *Context)
}
