package kernel

import (
	"testing"
	"time"
)

// TestSleepWakeupResumesSleeper is testable property 5: a wakeup issued
// after a sleeper has begun its sleep protocol eventually makes it
// RUNNABLE again, with no lost wakeup.
func TestSleepWakeupResumesSleeper(t *testing.T) {
	k := newTestKernel(2)
	type chanKey struct{}
	var ch chanKey

	resumed := make(chan struct{}, 1)
	task, err := k.Boot(func(t *Task) {
		if _, err := t.Fork(func(ct *Task) {
			ct.Sleep(ch)
			resumed <- struct{}{}
		}); err != nil {
			return
		}
		select {}
	})
	if err != nil {
		t.Fatalf("Boot failed: %s", err)
	}

	// Give the child a chance to reach sleep before waking it; Wakeup on a
	// channel nobody is sleeping on yet is simply a no-op, not a race that
	// loses the eventual wakeup once the child does call Sleep.
	deadline := time.After(2 * time.Second)
	tick := time.NewTicker(time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-resumed:
			return
		case <-tick.C:
			task.Kernel().Wakeup(ch)
		case <-deadline:
			t.Fatal("child never resumed after wakeup (lost wakeup)")
		}
	}
}
