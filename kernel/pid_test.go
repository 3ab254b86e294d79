package kernel

import (
	"io"
	"log"
	"sync"
	"testing"
)

func newTestKernel(ncpu int) *Kernel {
	return New(Config{NCPU: ncpu, Logger: log.New(io.Discard, "", 0)})
}

// TestAllocPIDMonotonicSequential exercises testable property 4: pids
// claimed in program order strictly increase.
func TestAllocPIDMonotonicSequential(t *testing.T) {
	k := newTestKernel(1)
	prev := k.allocPID()
	for i := 0; i < 100; i++ {
		next := k.allocPID()
		if next <= prev {
			t.Fatalf("expected strictly increasing pids, got %d after %d", next, prev)
		}
		prev = next
	}
}

// TestAllocPIDUniqueConcurrent hammers allocPID from many goroutines and
// checks no two callers ever observe the same claimed value.
func TestAllocPIDUniqueConcurrent(t *testing.T) {
	k := newTestKernel(1)
	const n = 200
	pids := make([]int32, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			pids[i] = k.allocPID()
		}(i)
	}
	wg.Wait()

	seen := make(map[int32]bool, n)
	for _, pid := range pids {
		if seen[pid] {
			t.Fatalf("pid %d claimed by more than one caller", pid)
		}
		seen[pid] = true
	}
}
