package token

import (
	"encoding/base64"
	"testing"
)

func TestNewTokenShape(t *testing.T) {
	tok, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	raw, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil {
		t.Fatalf("token is not URL-safe base64: %v", err)
	}
	if len(raw) != entropyBytes {
		t.Fatalf("expected %d bytes of entropy, got %d", entropyBytes, len(raw))
	}
}

func TestNewTokenUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		tok, err := New()
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		if seen[tok] {
			t.Fatalf("duplicate token after %d draws", i)
		}
		seen[tok] = true
	}
}

func TestValidAction(t *testing.T) {
	if !ValidAction(ActionCancel) || !ValidAction(ActionReschedule) {
		t.Fatal("known actions must validate")
	}
	for _, bad := range []string{"", "delete", "CANCEL", "reschedule "} {
		if ValidAction(bad) {
			t.Fatalf("action %q should be rejected", bad)
		}
	}
}
