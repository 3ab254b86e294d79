package kernel

// State is a process slot's lifecycle state, stored as an int32 so it can be
// mutated with atomic compare-and-swap instead of a table-wide lock.
type State int32

const (
	// StateUnused marks a slot as free for allocproc to claim.
	StateUnused State = iota
	// StateEmbryo is a slot that has been claimed but not yet made runnable.
	StateEmbryo
	// StateSleeping is a slot parked on a wait channel.
	StateSleeping
	// StateNegSleeping is the intermediate state a running process deposits
	// on its way to StateSleeping; only the owning CPU's scheduler may
	// finalize it after swtch returns.
	StateNegSleeping
	// StateRunnable is eligible to be picked up by any scheduler.
	StateRunnable
	// StateNegRunnable is the intermediate state deposited by yield, or by
	// a wakeup that raced a sleeper still in StateNegSleeping.
	StateNegRunnable
	// StateRunning is bound to exactly one CPU.
	StateRunning
	// StateZombie has exited and is waiting to be reaped by its parent.
	StateZombie
	// StateNegZombie is the intermediate state deposited by exit.
	StateNegZombie
)

func (s State) String() string {
	switch s {
	case StateUnused:
		return "UNUSED"
	case StateEmbryo:
		return "EMBRYO"
	case StateSleeping:
		return "SLEEPING"
	case StateNegSleeping:
		return "NEG_SLEEPING"
	case StateRunnable:
		return "RUNNABLE"
	case StateNegRunnable:
		return "NEG_RUNNABLE"
	case StateRunning:
		return "RUNNING"
	case StateZombie:
		return "ZOMBIE"
	case StateNegZombie:
		return "NEG_ZOMBIE"
	default:
		return "UNKNOWN"
	}
}
