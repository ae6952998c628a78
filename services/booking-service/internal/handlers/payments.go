package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/barberbook/platform/libs/auth"
	"github.com/barberbook/platform/services/booking-service/internal/model"
	"github.com/barberbook/platform/services/booking-service/internal/outbox"
	"github.com/barberbook/platform/services/booking-service/internal/storage"
)

// Accepted payment methods. Payments happen outside the platform (the
// customer sends money directly); the shop verifies receipts by hand.
// "cash" covers walk-ins who pay at the chair.
var paymentMethods = map[string]bool{
	"zelle":     true,
	"cash_app":  true,
	"apple_pay": true,
	"cash":      true,
}

type PaymentHandler struct {
	payments   *storage.PaymentRepository
	appts      *storage.AppointmentRepository
	outboxRepo *outbox.Repository
	logger     *slog.Logger
}

func NewPaymentHandler(payments *storage.PaymentRepository, appts *storage.AppointmentRepository, outboxRepo *outbox.Repository, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{payments: payments, appts: appts, outboxRepo: outboxRepo, logger: logger}
}

type submitPaymentRequest struct {
	ConfirmationNumber string `json:"confirmation_number"`
	Method             string `json:"method"`
	AmountCents        int64  `json:"amount_cents"`
	Reference          string `json:"reference"`
	ProofURL           string `json:"proof_url"`
}

// Submit records the customer's claim that they paid. The claim sits in
// pending until an admin checks the receiving account and settles it.
func (h *PaymentHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req submitPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.ConfirmationNumber = strings.TrimSpace(req.ConfirmationNumber)
	req.Method = strings.ToLower(strings.TrimSpace(req.Method))
	req.Reference = strings.TrimSpace(req.Reference)
	if req.ConfirmationNumber == "" {
		http.Error(w, "confirmation_number required", http.StatusBadRequest)
		return
	}
	if !paymentMethods[req.Method] {
		http.Error(w, "unsupported payment method", http.StatusUnprocessableEntity)
		return
	}
	if req.AmountCents <= 0 {
		http.Error(w, "amount_cents must be positive", http.StatusUnprocessableEntity)
		return
	}
	proofURL, err := normalizeProofURL(req.ProofURL)
	if err != nil {
		http.Error(w, "proof_url must be an http(s) link", http.StatusUnprocessableEntity)
		return
	}

	ctx := r.Context()
	appt, err := h.appts.GetByConfirmation(ctx, req.ConfirmationNumber)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "appointment not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load appointment", http.StatusInternalServerError)
		return
	}
	if !appt.HoldsSlot() {
		http.Error(w, "appointment is not awaiting payment", http.StatusConflict)
		return
	}

	tx, err := h.payments.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	payment, err := h.payments.Submit(ctx, tx, appt.ID, req.Method, req.AmountCents, req.Reference, proofURL)
	if err != nil {
		http.Error(w, "failed to record payment", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	// A claim against a settled payment changed nothing; report the settled
	// state rather than pretending a new claim was accepted.
	code := http.StatusAccepted
	if payment.Status != model.PaymentPending {
		code = http.StatusOK
	}
	writeJSON(w, code, map[string]any{
		"payment_id": payment.ID,
		"status":     payment.Status,
	})
}

type verifyPaymentRequest struct {
	PaymentID string `json:"payment_id"`
	Outcome   string `json:"outcome"`
	Note      string `json:"note"`
}

// Verify settles a pending payment. Admin-only; re-settling a settled
// payment is rejected rather than overwritten.
func (h *PaymentHandler) Verify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req verifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.PaymentID = strings.TrimSpace(req.PaymentID)
	req.Outcome = strings.ToLower(strings.TrimSpace(req.Outcome))
	if req.PaymentID == "" {
		http.Error(w, "payment_id required", http.StatusBadRequest)
		return
	}
	if req.Outcome != model.PaymentVerified && req.Outcome != model.PaymentRejected {
		http.Error(w, "outcome must be verified or rejected", http.StatusUnprocessableEntity)
		return
	}

	ctx := r.Context()
	tx, err := h.payments.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	payment, err := h.payments.Verify(ctx, tx, req.PaymentID, req.Outcome, req.Note, claims.Sub)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidTransition) {
			http.Error(w, "payment already settled", http.StatusConflict)
			return
		}
		if storage.IsNotFound(err) {
			http.Error(w, "payment not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to settle payment", http.StatusInternalServerError)
		return
	}
	if err := h.payments.MarkAppointmentPaymentStatus(ctx, tx, payment.AppointmentID, payment.Status); err != nil {
		http.Error(w, "failed to update appointment", http.StatusInternalServerError)
		return
	}

	if payment.Status == model.PaymentVerified {
		appt, err := h.appts.GetForUpdate(ctx, tx, payment.AppointmentID)
		if err != nil {
			http.Error(w, "failed to load appointment", http.StatusInternalServerError)
			return
		}
		payload, err := json.Marshal(map[string]any{
			"payment_id":          payment.ID,
			"appointment_id":      appt.ID,
			"confirmation_number": appt.ConfirmationNumber,
			"customer_name":       appt.CustomerName,
			"customer_email":      appt.CustomerEmail,
			"customer_phone":      appt.CustomerPhone,
			"amount_cents":        payment.AmountCents,
			"method":              payment.Method,
		})
		if err != nil {
			http.Error(w, "failed to build event payload", http.StatusInternalServerError)
			return
		}
		if err := h.outboxRepo.Insert(ctx, tx, outbox.Event{
			AggregateType: "payment",
			AggregateID:   appt.ID,
			EventType:     outbox.EventPaymentVerified,
			Payload:       payload,
		}); err != nil {
			http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
			return
		}
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"payment_id": payment.ID,
		"status":     payment.Status,
	})
}

// ListPending feeds the admin verification queue.
func (h *PaymentHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	payments, err := h.payments.ListPending(r.Context(), 100)
	if err != nil {
		http.Error(w, "failed to list payments", http.StatusInternalServerError)
		return
	}
	items := make([]map[string]any, 0, len(payments))
	for _, p := range payments {
		items = append(items, map[string]any{
			"payment_id":     p.ID,
			"appointment_id": p.AppointmentID,
			"method":         p.Method,
			"amount_cents":   p.AmountCents,
			"reference":      p.Reference,
			"proof_url":      p.ProofURL,
			"submitted_at":   p.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, items)
}

// normalizeProofURL trims the optional receipt-screenshot link and insists on
// an absolute http(s) URL so the admin dashboard can link it safely.
func normalizeProofURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", errors.New("invalid proof url")
	}
	return u.String(), nil
}
