package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/barberbook/platform/services/booking-service/internal/availability"
	"github.com/barberbook/platform/services/booking-service/internal/model"
	"github.com/barberbook/platform/services/booking-service/internal/outbox"
	"github.com/barberbook/platform/services/booking-service/internal/pricing"
	"github.com/barberbook/platform/services/booking-service/internal/storage"
	"github.com/barberbook/platform/services/booking-service/internal/token"
	"github.com/jackc/pgx/v5"
)

type BookingHandler struct {
	appts      *storage.AppointmentRepository
	schedule   *storage.ScheduleRepository
	catalog    *storage.CatalogRepository
	tokens     *storage.TokenRepository
	outboxRepo *outbox.Repository
	engine     *availability.Engine
	logger     *slog.Logger
	baseURL    string
	tokenTTL   time.Duration
	vipCodes   map[string]bool
}

func NewBookingHandler(
	appts *storage.AppointmentRepository,
	schedule *storage.ScheduleRepository,
	catalog *storage.CatalogRepository,
	tokens *storage.TokenRepository,
	outboxRepo *outbox.Repository,
	engine *availability.Engine,
	logger *slog.Logger,
	baseURL string,
	tokenTTL time.Duration,
	vipCodes string,
) *BookingHandler {
	if tokenTTL <= 0 {
		tokenTTL = 30 * 24 * time.Hour
	}
	codes := map[string]bool{}
	for _, c := range strings.Split(vipCodes, ",") {
		if c = strings.ToUpper(strings.TrimSpace(c)); c != "" {
			codes[c] = true
		}
	}
	return &BookingHandler{
		appts:      appts,
		schedule:   schedule,
		catalog:    catalog,
		tokens:     tokens,
		outboxRepo: outboxRepo,
		engine:     engine,
		logger:     logger,
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokenTTL:   tokenTTL,
		vipCodes:   codes,
	}
}

type createBookingRequest struct {
	ServiceID     string   `json:"service_id"`
	AddonIDs      []string `json:"addon_ids"`
	BarberID      string   `json:"barber_id"`
	Date          string   `json:"date"`
	StartTime     string   `json:"start_time"`
	CustomerName  string   `json:"customer_name"`
	CustomerEmail string   `json:"customer_email"`
	CustomerPhone string   `json:"customer_phone"`
	VIPCode       string   `json:"vip_code"`
}

type createBookingResponse struct {
	AppointmentID      string        `json:"appointment_id"`
	ConfirmationNumber string        `json:"confirmation_number"`
	BarberID           string        `json:"barber_id"`
	Date               string        `json:"date"`
	StartTime          string        `json:"start_time"`
	DurationMinutes    int           `json:"duration_minutes"`
	Quote              pricing.Quote `json:"quote"`
	CancelURL          string        `json:"cancel_url"`
	RescheduleURL      string        `json:"reschedule_url"`
}

type slotItem struct {
	BarberID  string `json:"barber_id,omitempty"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// Slots lists open start times for a service over a date range.
func (h *BookingHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	serviceID := strings.TrimSpace(q.Get("service_id"))
	barberID := strings.TrimSpace(q.Get("barber_id"))
	if serviceID == "" {
		http.Error(w, "service_id required", http.StatusBadRequest)
		return
	}
	if barberID == "" {
		barberID = availability.AnyBarber
	}

	from, err := parseDate(q.Get("from"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	to := from
	if raw := strings.TrimSpace(q.Get("to")); raw != "" {
		if to, err = parseDate(raw); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	svc, err := h.catalog.GetService(r.Context(), serviceID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "unknown service", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load service", http.StatusInternalServerError)
		return
	}
	if !svc.Active {
		http.Error(w, "service is not bookable", http.StatusUnprocessableEntity)
		return
	}

	limit := 0
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	slots, err := h.engine.FindSlots(r.Context(), availability.Criteria{
		BarberID:        barberID,
		DurationMinutes: svc.DurationMinutes,
		RangeStart:      from,
		RangeEnd:        to,
		Now:             time.Now().UTC(),
		Limit:           limit,
	})
	if err != nil {
		if errors.Is(err, availability.ErrBadCriteria) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "failed to compute slots", http.StatusInternalServerError)
		return
	}

	items := make([]slotItem, 0, len(slots))
	duration := time.Duration(svc.DurationMinutes) * time.Minute
	for _, s := range slots {
		items = append(items, slotItem{
			BarberID:  s.BarberID,
			StartTime: s.Start.UTC().Format(time.RFC3339),
			EndTime:   s.Start.Add(duration).UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, items)
}

// Create books an appointment. The slot is held the moment the transaction
// commits; a concurrent booking of the same slot gets 409 from the unique
// index, never a double booking.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.ServiceID = strings.TrimSpace(req.ServiceID)
	req.BarberID = strings.TrimSpace(req.BarberID)
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.CustomerEmail = strings.TrimSpace(req.CustomerEmail)
	req.CustomerPhone = strings.TrimSpace(req.CustomerPhone)
	if req.BarberID == "" {
		req.BarberID = availability.AnyBarber
	}
	if req.ServiceID == "" || req.CustomerName == "" {
		http.Error(w, "service_id and customer_name required", http.StatusBadRequest)
		return
	}
	if req.CustomerEmail == "" && req.CustomerPhone == "" {
		http.Error(w, "an email or phone number is required for confirmations", http.StatusBadRequest)
		return
	}
	vip := false
	if code := strings.ToUpper(strings.TrimSpace(req.VIPCode)); code != "" {
		if !h.vipCodes[code] {
			http.Error(w, "invalid vip code", http.StatusUnprocessableEntity)
			return
		}
		vip = true
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
	svc, err := h.catalog.GetService(ctx, req.ServiceID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "unknown service", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load service", http.StatusInternalServerError)
		return
	}
	if !svc.Active {
		http.Error(w, "service is not bookable", http.StatusUnprocessableEntity)
		return
	}
	addons, err := h.catalog.GetAddons(ctx, req.AddonIDs)
	if err != nil {
		http.Error(w, "unknown or inactive addon", http.StatusUnprocessableEntity)
		return
	}

	quote := pricing.Price(serviceItem(svc), addonItems(addons), vip)
	endMinute := startMinute + svc.DurationMinutes

	tx, err := h.appts.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	idempotencyKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if idempotencyKey != "" {
		rec, exists, err := h.appts.LockIdempotencyKey(ctx, tx, idempotencyKey)
		if err != nil {
			http.Error(w, "failed to lock idempotency key", http.StatusInternalServerError)
			return
		}
		if exists && rec.StatusCode > 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(rec.StatusCode)
			_, _ = w.Write(rec.ResponsePayload)
			return
		}
	}

	barberID := req.BarberID
	if barberID == availability.AnyBarber {
		barberID, err = h.appts.FindFreeBarber(ctx, tx, date, startMinute, endMinute)
		if err != nil {
			if errors.Is(err, storage.ErrNoBarberFree) {
				http.Error(w, "no barber free at that time", http.StatusConflict)
				return
			}
			http.Error(w, "failed to pick a barber", http.StatusInternalServerError)
			return
		}
	} else if ok, err := h.barberCoversSlot(ctx, barberID, date, startMinute, endMinute); err != nil {
		http.Error(w, "failed to check schedule", http.StatusInternalServerError)
		return
	} else if !ok {
		http.Error(w, "requested time is outside the barber's working hours", http.StatusUnprocessableEntity)
		return
	}

	confirmation, err := model.NewConfirmationNumber()
	if err != nil {
		http.Error(w, "failed to allocate confirmation number", http.StatusInternalServerError)
		return
	}

	appt := &model.Appointment{
		ConfirmationNumber: confirmation,
		CustomerName:       req.CustomerName,
		CustomerEmail:      req.CustomerEmail,
		CustomerPhone:      req.CustomerPhone,
		VIP:                vip,
		BarberID:           barberID,
		ServiceID:          svc.ID,
		AddonIDs:           req.AddonIDs,
		Date:               date,
		StartMinute:        startMinute,
		DurationMinutes:    svc.DurationMinutes,
		Status:             model.StatusPending,
		PaymentStatus:      model.PaymentPending,
		PriceCents:         quote.TotalCents,
	}

	id, err := h.appts.Create(ctx, tx, appt)
	if err != nil {
		if errors.Is(err, storage.ErrSlotTaken) {
			http.Error(w, "time slot already booked", http.StatusConflict)
			return
		}
		http.Error(w, "failed to create appointment", http.StatusInternalServerError)
		return
	}
	appt.ID = id

	cancelTok, err := h.tokens.Issue(ctx, tx, id, token.ActionCancel, h.tokenTTL)
	if err != nil {
		http.Error(w, "failed to issue action token", http.StatusInternalServerError)
		return
	}
	rescheduleTok, err := h.tokens.Issue(ctx, tx, id, token.ActionReschedule, h.tokenTTL)
	if err != nil {
		http.Error(w, "failed to issue action token", http.StatusInternalServerError)
		return
	}

	if err := h.insertAppointmentEvent(ctx, tx, outbox.EventAppointmentCreated, *appt, map[string]any{
		"service_name":   svc.Name,
		"total_cents":    quote.TotalCents,
		"cancel_url":     h.actionURL(cancelTok, token.ActionCancel),
		"reschedule_url": h.actionURL(rescheduleTok, token.ActionReschedule),
	}); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}

	resp := createBookingResponse{
		AppointmentID:      id,
		ConfirmationNumber: confirmation,
		BarberID:           barberID,
		Date:               date.Format("2006-01-02"),
		StartTime:          minuteToClock(startMinute),
		DurationMinutes:    svc.DurationMinutes,
		Quote:              quote,
		CancelURL:          h.actionURL(cancelTok, token.ActionCancel),
		RescheduleURL:      h.actionURL(rescheduleTok, token.ActionReschedule),
	}
	respBody, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	if idempotencyKey != "" {
		if err := h.appts.FinalizeIdempotency(ctx, tx, idempotencyKey, id, http.StatusCreated, respBody); err != nil {
			http.Error(w, "failed to finalize idempotency key", http.StatusInternalServerError)
			return
		}
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(respBody)
}

// Lookup fetches an appointment by confirmation number for the "where's my
// booking" page.
func (h *BookingHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	confirmation := strings.TrimSpace(r.URL.Query().Get("confirmation"))
	if confirmation == "" {
		http.Error(w, "confirmation required", http.StatusBadRequest)
		return
	}
	appt, err := h.appts.GetByConfirmation(r.Context(), confirmation)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "appointment not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load appointment", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, appointmentView(appt))
}

func (h *BookingHandler) barberCoversSlot(ctx context.Context, barberID string, date time.Time, startMinute, endMinute int) (bool, error) {
	windows, err := h.schedule.WeeklyWindows(ctx, barberID)
	if err != nil {
		return false, err
	}
	weekday := int(date.Weekday())
	for _, w := range windows {
		if w.Weekday == weekday && w.Available && w.StartMinute <= startMinute && w.EndMinute >= endMinute {
			return true, nil
		}
	}
	return false, nil
}

func (h *BookingHandler) actionURL(tok, action string) string {
	return h.baseURL + "/a/" + tok + "/" + action
}

func (h *BookingHandler) insertAppointmentEvent(ctx context.Context, tx pgx.Tx, eventType string, appt model.Appointment, extra map[string]any) error {
	payload := appointmentEventPayload(appt)
	for k, v := range extra {
		payload[k] = v
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return h.outboxRepo.Insert(ctx, tx, outbox.Event{
		AggregateType: "appointment",
		AggregateID:   appt.ID,
		EventType:     eventType,
		Payload:       body,
	})
}

func appointmentEventPayload(appt model.Appointment) map[string]any {
	return map[string]any{
		"appointment_id":      appt.ID,
		"confirmation_number": appt.ConfirmationNumber,
		"customer_name":       appt.CustomerName,
		"customer_email":      appt.CustomerEmail,
		"customer_phone":      appt.CustomerPhone,
		"barber_id":           appt.BarberID,
		"service_id":          appt.ServiceID,
		"start_time":          appt.StartTime().UTC().Format(time.RFC3339),
		"duration_minutes":    appt.DurationMinutes,
		"event_time":          time.Now().UTC().Format(time.RFC3339),
	}
}

type appointmentViewBody struct {
	AppointmentID      string `json:"appointment_id"`
	ConfirmationNumber string `json:"confirmation_number"`
	BarberID           string `json:"barber_id"`
	ServiceID          string `json:"service_id"`
	Date               string `json:"date"`
	StartTime          string `json:"start_time"`
	DurationMinutes    int    `json:"duration_minutes"`
	Status             string `json:"status"`
	PaymentStatus      string `json:"payment_status"`
	PriceCents         int64  `json:"price_cents"`
	CancelledAt        string `json:"cancelled_at,omitempty"`
}

func appointmentView(appt model.Appointment) appointmentViewBody {
	v := appointmentViewBody{
		AppointmentID:      appt.ID,
		ConfirmationNumber: appt.ConfirmationNumber,
		BarberID:           appt.BarberID,
		ServiceID:          appt.ServiceID,
		Date:               appt.Date.Format("2006-01-02"),
		StartTime:          minuteToClock(appt.StartMinute),
		DurationMinutes:    appt.DurationMinutes,
		Status:             appt.Status,
		PaymentStatus:      appt.PaymentStatus,
		PriceCents:         appt.PriceCents,
	}
	if appt.CancelledAt != nil {
		v.CancelledAt = appt.CancelledAt.UTC().Format(time.RFC3339)
	}
	return v
}

func serviceItem(s model.Service) pricing.Item {
	return pricing.Item{Name: s.Name, RegularCents: s.RegularCents, VIPCents: s.VIPCents}
}

func addonItems(addons []model.Addon) []pricing.Item {
	items := make([]pricing.Item, 0, len(addons))
	for _, a := range addons {
		items = append(items, pricing.Item{Name: a.Name, RegularCents: a.RegularCents, VIPCents: a.VIPCents})
	}
	return items
}
