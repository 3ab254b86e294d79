package scenario

import "testing"

func TestRegistryListsAllScenarios(t *testing.T) {
	names := map[string]bool{}
	for _, s := range Registry() {
		names[s.Name] = true
	}
	for _, want := range []string{"S1", "S2", "S3", "S4", "S5", "S6"} {
		if !names[want] {
			t.Errorf("expected scenario %s in registry", want)
		}
	}
}

func TestS1ForkExitWait(t *testing.T) {
	r := runS1()
	if !r.Passed {
		t.Fatalf("S1 failed: %s", r.Detail)
	}
}

func TestS3SignalDelivery(t *testing.T) {
	r := runS3()
	if !r.Passed {
		t.Fatalf("S3 failed: %s", r.Detail)
	}
}

func TestS6SigkillReparenting(t *testing.T) {
	r := runS6()
	if !r.Passed {
		t.Fatalf("S6 failed: %s", r.Detail)
	}
}
