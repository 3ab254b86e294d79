package bootsrc

import "testing"

func TestBuiltinSourceIsStable(t *testing.T) {
	data1, digest1, err := BuiltinSource{}.ResolveInitImage()
	if err != nil {
		t.Fatalf("ResolveInitImage returned error: %s", err)
	}
	data2, digest2, err := BuiltinSource{}.ResolveInitImage()
	if err != nil {
		t.Fatalf("ResolveInitImage returned error: %s", err)
	}
	if string(data1) != string(data2) {
		t.Errorf("expected stable init image bytes across calls")
	}
	if digest1 != digest2 {
		t.Errorf("expected stable fingerprint across calls, got %q and %q", digest1, digest2)
	}
	if len(data1) == 0 {
		t.Errorf("expected non-empty builtin init image")
	}
}

func TestFingerprintDiffersOnContent(t *testing.T) {
	a := fingerprint([]byte("abc"))
	b := fingerprint([]byte("abd"))
	if a == b {
		t.Errorf("expected different fingerprints for different content")
	}
}

func TestEncodedCacheNameDeterministicAndDistinct(t *testing.T) {
	url := "https://github.com/arctir/miniproc"
	name := encodedCacheName(url)
	if name == "" {
		t.Fatal("expected non-empty encoded cache name")
	}
	if encodedCacheName(url) != name {
		t.Errorf("expected encodedCacheName to be deterministic for the same url")
	}
	if encodedCacheName(url+"x") == name {
		t.Errorf("expected different urls to produce different cache names")
	}
}
