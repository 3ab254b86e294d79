package kernel

import "testing"

func TestPushPopCLINesting(t *testing.T) {
	c := &CPU{ieOn: true}
	c.PushCLI()
	if c.ieOn {
		t.Fatalf("expected interrupts disabled after PushCLI")
	}
	c.PushCLI()
	if c.ncli != 2 {
		t.Fatalf("expected nesting count 2, got %d", c.ncli)
	}
	c.PopCLI()
	if c.ieOn {
		t.Errorf("expected interrupts to remain disabled until the outermost PopCLI")
	}
	c.PopCLI()
	if !c.ieOn {
		t.Errorf("expected interrupts restored after the outermost PopCLI")
	}
}

func TestPopCLIMismatchedNestingPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected PopCLI on an unheld critical section to panic")
		}
	}()
	c := &CPU{}
	c.PopCLI()
}

func TestLookupCPUUnknownAPICPanics(t *testing.T) {
	k := newTestKernel(1)
	defer func() {
		if recover() == nil {
			t.Fatal("expected LookupCPU to panic on an unknown APIC id")
		}
	}()
	k.LookupCPU(9999)
}

func TestLookupCPUFindsRegisteredCPU(t *testing.T) {
	k := newTestKernel(3)
	for i, c := range k.CPUs() {
		got := k.LookupCPU(c.apicID)
		if got.ID() != i {
			t.Errorf("expected LookupCPU(%d) to return CPU index %d, got %d", c.apicID, i, got.ID())
		}
	}
}
