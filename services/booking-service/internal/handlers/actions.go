package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/barberbook/platform/services/booking-service/internal/availability"
	"github.com/barberbook/platform/services/booking-service/internal/model"
	"github.com/barberbook/platform/services/booking-service/internal/outbox"
	"github.com/barberbook/platform/services/booking-service/internal/storage"
	"github.com/barberbook/platform/services/booking-service/internal/token"
)

// ActionHandler serves the self-service links embedded in confirmation
// messages: POST /a/{token}/cancel and POST /a/{token}/reschedule. The token
// authenticates the caller; no login involved.
type ActionHandler struct {
	booking *BookingHandler
	logger  *slog.Logger
}

func NewActionHandler(booking *BookingHandler, logger *slog.Logger) *ActionHandler {
	return &ActionHandler{booking: booking, logger: logger}
}

type rescheduleRequest struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	BarberID  string `json:"barber_id"`
}

func (h *ActionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/a/"), "/"), "/")
	if len(parts) != 2 || parts[0] == "" || !token.ValidAction(parts[1]) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	tok, action := parts[0], parts[1]

	switch action {
	case token.ActionCancel:
		h.cancel(w, r, tok)
	case token.ActionReschedule:
		h.reschedule(w, r, tok)
	}
}

func (h *ActionHandler) cancel(w http.ResponseWriter, r *http.Request, tok string) {
	ctx := r.Context()
	b := h.booking

	tx, err := b.appts.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	at, err := b.tokens.Redeem(ctx, tx, tok, token.ActionCancel)
	if err != nil {
		writeTokenError(w, err)
		return
	}

	appt, err := b.appts.GetForUpdate(ctx, tx, at.AppointmentID)
	if err != nil {
		http.Error(w, "failed to load appointment", http.StatusInternalServerError)
		return
	}
	if !appt.HoldsSlot() {
		http.Error(w, "appointment can no longer be cancelled", http.StatusConflict)
		return
	}

	cancelledAt, err := b.appts.Cancel(ctx, tx, appt.ID)
	if err != nil {
		http.Error(w, "failed to cancel appointment", http.StatusInternalServerError)
		return
	}
	// A cancelled appointment has no further self-service actions.
	if err := b.tokens.RevokeForAppointment(ctx, tx, appt.ID); err != nil {
		http.Error(w, "failed to revoke tokens", http.StatusInternalServerError)
		return
	}

	appt.Status = model.StatusCancelled
	if err := b.insertAppointmentEvent(ctx, tx, outbox.EventAppointmentCancelled, appt, map[string]any{
		"cancelled_at": cancelledAt.UTC().Format(time.RFC3339),
	}); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"appointment_id": appt.ID,
		"status":         model.StatusCancelled,
		"cancelled_at":   cancelledAt.UTC().Format(time.RFC3339),
	})
}

func (h *ActionHandler) reschedule(w http.ResponseWriter, r *http.Request, tok string) {
	var req rescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	startMinute, err := parseStartMinute(req.StartTime)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if slotInPast(date, startMinute, time.Now().UTC()) {
		http.Error(w, "requested time is in the past", http.StatusUnprocessableEntity)
		return
	}

	ctx := r.Context()
	b := h.booking

	// The token burn shares the transaction with the move itself. Losing the
	// slot race rolls everything back, so the link stays usable for another
	// attempt.
	tx, err := b.appts.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	at, err := b.tokens.Redeem(ctx, tx, tok, token.ActionReschedule)
	if err != nil {
		writeTokenError(w, err)
		return
	}

	appt, err := b.appts.GetForUpdate(ctx, tx, at.AppointmentID)
	if err != nil {
		http.Error(w, "failed to load appointment", http.StatusInternalServerError)
		return
	}
	if !appt.HoldsSlot() {
		http.Error(w, "appointment can no longer be rescheduled", http.StatusConflict)
		return
	}

	endMinute := startMinute + appt.DurationMinutes
	barberID := strings.TrimSpace(req.BarberID)
	switch barberID {
	case "":
		barberID = appt.BarberID
	case availability.AnyBarber:
		barberID, err = b.appts.FindFreeBarber(ctx, tx, date, startMinute, endMinute)
		if err != nil {
			if errors.Is(err, storage.ErrNoBarberFree) {
				http.Error(w, "no barber free at that time", http.StatusConflict)
				return
			}
			http.Error(w, "failed to pick a barber", http.StatusInternalServerError)
			return
		}
	}
	if ok, err := b.barberCoversSlot(ctx, barberID, date, startMinute, endMinute); err != nil {
		http.Error(w, "failed to check schedule", http.StatusInternalServerError)
		return
	} else if !ok {
		http.Error(w, "requested time is outside the barber's working hours", http.StatusUnprocessableEntity)
		return
	}

	if err := b.appts.Reschedule(ctx, tx, appt.ID, barberID, date, startMinute); err != nil {
		if errors.Is(err, storage.ErrSlotTaken) {
			http.Error(w, "time slot already booked", http.StatusConflict)
			return
		}
		http.Error(w, "failed to reschedule appointment", http.StatusInternalServerError)
		return
	}

	appt.BarberID = barberID
	appt.Date = date
	appt.StartMinute = startMinute

	// The old reschedule token is burnt; mint a replacement so the customer
	// can move the appointment again.
	newTok, err := b.tokens.Issue(ctx, tx, appt.ID, token.ActionReschedule, b.tokenTTL)
	if err != nil {
		http.Error(w, "failed to issue action token", http.StatusInternalServerError)
		return
	}

	if err := b.insertAppointmentEvent(ctx, tx, outbox.EventAppointmentRescheduled, appt, map[string]any{
		"reschedule_url": b.actionURL(newTok, token.ActionReschedule),
	}); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"appointment_id": appt.ID,
		"barber_id":      barberID,
		"date":           date.Format("2006-01-02"),
		"start_time":     minuteToClock(startMinute),
		"reschedule_url": b.actionURL(newTok, token.ActionReschedule),
	})
}

func writeTokenError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrTokenNotFound), errors.Is(err, storage.ErrTokenMismatch):
		http.Error(w, "unknown link", http.StatusNotFound)
	case errors.Is(err, storage.ErrTokenExpired):
		http.Error(w, "this link has expired", http.StatusGone)
	case errors.Is(err, storage.ErrTokenUsed):
		http.Error(w, "this link has already been used", http.StatusGone)
	default:
		http.Error(w, "failed to check link", http.StatusInternalServerError)
	}
}
