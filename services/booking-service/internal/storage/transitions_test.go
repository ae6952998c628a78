package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/barberbook/platform/services/booking-service/internal/model"
	"github.com/barberbook/platform/services/booking-service/internal/token"
)

func TestRedeemStateSingleUse(t *testing.T) {
	now := time.Date(2026, 9, 7, 12, 0, 0, 0, time.UTC)
	used := now.Add(-time.Hour)
	live := model.ActionToken{Action: token.ActionCancel, ExpiresAt: now.Add(time.Hour)}

	if err := redeemState(live, token.ActionCancel, now); err != nil {
		t.Fatalf("fresh token should redeem: %v", err)
	}

	burned := live
	burned.UsedAt = &used
	if err := redeemState(burned, token.ActionCancel, now); !errors.Is(err, ErrTokenUsed) {
		t.Fatalf("second redemption must report used, got %v", err)
	}

	// Used wins over expired: the link died because it was spent.
	burned.ExpiresAt = now.Add(-time.Minute)
	if err := redeemState(burned, token.ActionCancel, now); !errors.Is(err, ErrTokenUsed) {
		t.Fatalf("used token must report used even when expired, got %v", err)
	}
}

func TestRedeemStateMismatchAndExpiry(t *testing.T) {
	now := time.Date(2026, 9, 7, 12, 0, 0, 0, time.UTC)
	at := model.ActionToken{Action: token.ActionCancel, ExpiresAt: now.Add(time.Hour)}

	if err := redeemState(at, token.ActionReschedule, now); !errors.Is(err, ErrTokenMismatch) {
		t.Fatalf("cancel token redeemed for reschedule must mismatch, got %v", err)
	}

	at.ExpiresAt = now.Add(-time.Second)
	if err := redeemState(at, token.ActionCancel, now); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expired token must report expired, got %v", err)
	}
}

func TestSettleTransitionMonotonic(t *testing.T) {
	if err := settleTransition(model.PaymentPending, model.PaymentVerified); err != nil {
		t.Fatalf("pending -> verified should settle: %v", err)
	}
	if err := settleTransition(model.PaymentPending, model.PaymentRejected); err != nil {
		t.Fatalf("pending -> rejected should settle: %v", err)
	}

	terminal := []string{model.PaymentVerified, model.PaymentRejected}
	for _, from := range terminal {
		for _, to := range terminal {
			if err := settleTransition(from, to); !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("%s -> %s must be rejected, got %v", from, to, err)
			}
		}
	}
}

func TestSettleTransitionUnknownOutcome(t *testing.T) {
	if err := settleTransition(model.PaymentPending, "refunded"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("unknown outcome must be rejected, got %v", err)
	}
	if err := settleTransition(model.PaymentPending, model.PaymentPending); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("settling back to pending must be rejected, got %v", err)
	}
}
