package jobs

import (
	"testing"
	"time"
)

func TestNextStatusRetriesUntilBudgetSpent(t *testing.T) {
	const maxAttempts = 5
	for attempts := 1; attempts < maxAttempts; attempts++ {
		if got := NextStatus(attempts, maxAttempts); got != StatusQueued {
			t.Fatalf("attempt %d of %d should requeue, got %s", attempts, maxAttempts, got)
		}
	}
	if got := NextStatus(maxAttempts, maxAttempts); got != StatusFailed {
		t.Fatalf("final attempt should park the job as failed, got %s", got)
	}
	if got := NextStatus(maxAttempts+1, maxAttempts); got != StatusFailed {
		t.Fatalf("over-budget job must stay failed, got %s", got)
	}
}

func TestBackoffDoublesAndCaps(t *testing.T) {
	base := 1 * time.Minute
	max := 30 * time.Minute
	want := []time.Duration{
		1 * time.Minute,
		2 * time.Minute,
		4 * time.Minute,
		8 * time.Minute,
		16 * time.Minute,
		30 * time.Minute,
		30 * time.Minute,
	}
	for attempts, expect := range want {
		if got := Backoff(base, max, attempts); got != expect {
			t.Fatalf("Backoff(attempts=%d) = %v, want %v", attempts, got, expect)
		}
	}
}

func TestTemplateDataMapping(t *testing.T) {
	job := Job{
		TemplateData: map[string]any{
			"customer_name":       "Jordan",
			"confirmation_number": "BB-7KQ2MX",
			"service_name":        "Haircut",
			"start_time":          "2026-09-07T14:30:00Z",
			"amount_cents":        float64(5500), // json numbers decode as float64
			"cancel_url":          "https://x/a/t/cancel",
		},
	}
	d := templateData(job)
	if d.CustomerName != "Jordan" || d.ConfirmationNumber != "BB-7KQ2MX" {
		t.Fatalf("wrong mapping: %+v", d)
	}
	if d.StartTime.IsZero() || d.StartTime.Hour() != 14 {
		t.Fatalf("start_time not parsed: %v", d.StartTime)
	}
	if d.AmountCents != 5500 {
		t.Fatalf("amount_cents not mapped: %d", d.AmountCents)
	}
	if d.CancelURL != "https://x/a/t/cancel" {
		t.Fatalf("cancel_url not mapped: %q", d.CancelURL)
	}
}

func TestTemplateDataTolerantOfMissingFields(t *testing.T) {
	d := templateData(Job{TemplateData: map[string]any{}})
	if d.CustomerName != "" || d.AmountCents != 0 || !d.StartTime.IsZero() {
		t.Fatalf("expected zero values, got %+v", d)
	}
}
