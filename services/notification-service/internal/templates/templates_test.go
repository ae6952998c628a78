package templates

import (
	"strings"
	"testing"
	"time"
)

func sampleData() Data {
	return Data{
		CustomerName:       "Jordan",
		ConfirmationNumber: "BB-7KQ2MX",
		ServiceName:        "Haircut",
		StartTime:          time.Date(2026, 9, 7, 14, 30, 0, 0, time.UTC),
		AmountCents:        5500,
		CancelURL:          "https://book.example.com/a/abc/cancel",
		RescheduleURL:      "https://book.example.com/a/def/reschedule",
	}
}

func TestRenderConfirmationEmail(t *testing.T) {
	subject, body, err := Render("confirmation_email", sampleData())
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(subject, "BB-7KQ2MX") {
		t.Fatalf("subject missing confirmation number: %q", subject)
	}
	for _, want := range []string{"Jordan", "Haircut", "BB-7KQ2MX", "/a/abc/cancel", "/a/def/reschedule"} {
		if !strings.Contains(body, want) {
			t.Fatalf("body missing %q:\n%s", want, body)
		}
	}
}

func TestRenderSMSHasNoSubject(t *testing.T) {
	for _, name := range []string{"confirmation_sms", "reminder_sms", "cancelled_sms", "rescheduled_sms"} {
		subject, body, err := Render(name, sampleData())
		if err != nil {
			t.Fatalf("Render(%s) failed: %v", name, err)
		}
		if subject != "" {
			t.Fatalf("%s: sms templates have no subject, got %q", name, subject)
		}
		if body == "" {
			t.Fatalf("%s: empty body", name)
		}
	}
}

func TestRenderPaymentVerified(t *testing.T) {
	_, body, err := Render("payment_verified_email", sampleData())
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(body, "$55.00") {
		t.Fatalf("body missing formatted amount:\n%s", body)
	}
}

func TestRenderDeterministic(t *testing.T) {
	// A retried or admin-resent job must produce the identical message.
	d := sampleData()
	s1, b1, err := Render("reminder_email", d)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	s2, b2, _ := Render("reminder_email", d)
	if s1 != s2 || b1 != b2 {
		t.Fatal("rendering is not deterministic")
	}
}

func TestRenderUnknownTemplate(t *testing.T) {
	if _, _, err := Render("carrier_pigeon", sampleData()); err == nil {
		t.Fatal("expected error for unknown template")
	}
}
