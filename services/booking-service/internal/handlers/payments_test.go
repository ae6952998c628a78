package handlers

import "testing"

func TestPaymentMethodNames(t *testing.T) {
	for _, m := range []string{"zelle", "cash_app", "apple_pay", "cash"} {
		if !paymentMethods[m] {
			t.Fatalf("method %q should be accepted", m)
		}
	}
	for _, m := range []string{"cashapp", "applepay", "venmo", ""} {
		if paymentMethods[m] {
			t.Fatalf("method %q should not be accepted", m)
		}
	}
}

func TestNormalizeProofURL(t *testing.T) {
	got, err := normalizeProofURL("  https://img.example.com/receipt.png ")
	if err != nil {
		t.Fatalf("normalizeProofURL failed: %v", err)
	}
	if got != "https://img.example.com/receipt.png" {
		t.Fatalf("normalizeProofURL = %q", got)
	}

	if got, err := normalizeProofURL(""); err != nil || got != "" {
		t.Fatalf("empty proof url is optional, got %q, %v", got, err)
	}

	for _, bad := range []string{"javascript:alert(1)", "ftp://x/receipt", "not a url", "/relative/path"} {
		if _, err := normalizeProofURL(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}
