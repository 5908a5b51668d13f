package internal

import (
	"encoding/hex"
	"testing"
)

func TestNewTokenIDIsFixedLengthHex(t *testing.T) {
	seen := make(map[string]struct{}, 64)
	for i := 0; i < 64; i++ {
		id, err := NewTokenID()
		if err != nil {
			t.Fatalf("new token id: %v", err)
		}
		if len(id) != TokenIDBytes*2 {
			t.Fatalf("expected %d chars, got %d", TokenIDBytes*2, len(id))
		}
		if _, err := hex.DecodeString(id); err != nil {
			t.Fatalf("expected hex id, got %q", id)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate token id %q", id)
		}
		seen[id] = struct{}{}
	}
}

func TestNewFingerprintLength(t *testing.T) {
	fp, err := NewFingerprint()
	if err != nil {
		t.Fatalf("new fingerprint: %v", err)
	}
	if len(fp) <= 20 {
		t.Fatalf("fingerprint too short: %q", fp)
	}
}

func TestRandomHexRejectsNonPositiveSize(t *testing.T) {
	if _, err := RandomHex(0); err == nil {
		t.Fatal("expected error for zero size")
	}
}
