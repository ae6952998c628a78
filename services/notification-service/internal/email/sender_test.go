package email

import "testing"

func TestSanitizeHeaderStripsLineBreaks(t *testing.T) {
	got := sanitizeHeader("Your cut is booked\r\nBcc: attacker@example.com")
	want := "Your cut is booked Bcc: attacker@example.com"
	if got != want {
		t.Fatalf("sanitizeHeader = %q, want %q", got, want)
	}
}

func TestSanitizeHeaderTrims(t *testing.T) {
	if got := sanitizeHeader("  hello  "); got != "hello" {
		t.Fatalf("sanitizeHeader = %q", got)
	}
}
