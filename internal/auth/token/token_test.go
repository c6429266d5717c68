package token

import "testing"

func TestNewIsRandomAndURLSafe(t *testing.T) {
	a, err := New(32)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	b, _ := New(32)
	if a.Value == b.Value {
		t.Fatal("expected two tokens to differ")
	}
	if len(a.Value) != 43 {
		t.Fatalf("expected 43 characters for 32 bytes, got %d", len(a.Value))
	}
	if a.Digest != Hash(a.Value) {
		t.Fatal("expected digest to match the value's hash")
	}
}

func TestHashIsStable(t *testing.T) {
	if Hash("abc") != Hash("abc") {
		t.Fatal("expected stable hash")
	}
	if Hash("abc") == Hash("abd") {
		t.Fatal("expected different hashes")
	}
	if len(Hash("abc")) != 64 {
		t.Fatalf("expected hex sha256, got %q", Hash("abc"))
	}
}
