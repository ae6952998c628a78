package model

import (
	"strings"
	"testing"
)

func TestNewConfirmationNumber(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		cn, err := NewConfirmationNumber()
		if err != nil {
			t.Fatalf("NewConfirmationNumber failed: %v", err)
		}
		if !strings.HasPrefix(cn, "BB-") || len(cn) != 9 {
			t.Fatalf("unexpected shape %q", cn)
		}
		for _, c := range cn[3:] {
			if !strings.ContainsRune(confirmationAlphabet, c) {
				t.Fatalf("ambiguous character %q in %q", c, cn)
			}
		}
		seen[cn] = true
	}
	// 31^6 codes; 200 draws colliding every time would mean a broken generator.
	if len(seen) < 100 {
		t.Fatalf("suspiciously many collisions: %d unique of 200", len(seen))
	}
}
