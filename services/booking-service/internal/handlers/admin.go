package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/barberbook/platform/libs/auth"
	"github.com/barberbook/platform/services/booking-service/internal/availability"
	"github.com/barberbook/platform/services/booking-service/internal/model"
	"github.com/barberbook/platform/services/booking-service/internal/storage"
)

type AdminHandler struct {
	admins   *storage.AdminRepository
	schedule *storage.ScheduleRepository
	catalog  *storage.CatalogRepository
	appts    *storage.AppointmentRepository
	logger   *slog.Logger
	secret   string
	tokenTTL time.Duration
}

func NewAdminHandler(
	admins *storage.AdminRepository,
	schedule *storage.ScheduleRepository,
	catalog *storage.CatalogRepository,
	appts *storage.AppointmentRepository,
	logger *slog.Logger,
	secret string,
) *AdminHandler {
	return &AdminHandler{
		admins:   admins,
		schedule: schedule,
		catalog:  catalog,
		appts:    appts,
		logger:   logger,
		secret:   secret,
		tokenTTL: 12 * time.Hour,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	admin, err := h.admins.GetByEmail(r.Context(), strings.TrimSpace(req.Email))
	if err != nil || !auth.CheckPassword(admin.PasswordHash, req.Password) {
		// Same answer for unknown email and wrong password.
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	now := time.Now()
	tok, err := auth.SignHS256(auth.Claims{
		Sub:  admin.ID,
		Name: admin.Name,
		Role: admin.Role,
		Iat:  now.Unix(),
		Exp:  now.Add(h.tokenTTL).Unix(),
	}, h.secret)
	if err != nil {
		http.Error(w, "failed to sign token", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":      tok,
		"expires_at": now.Add(h.tokenTTL).UTC().Format(time.RFC3339),
	})
}

type barberRequest struct {
	Name string `json:"name"`
}

func (h *AdminHandler) Barbers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		barbers, err := h.schedule.ListBarbers(r.Context())
		if err != nil {
			http.Error(w, "failed to list barbers", http.StatusInternalServerError)
			return
		}
		items := make([]map[string]any, 0, len(barbers))
		for _, b := range barbers {
			items = append(items, map[string]any{
				"barber_id": b.ID,
				"name":      b.Name,
				"active":    b.Active,
			})
		}
		writeJSON(w, http.StatusOK, items)
	case http.MethodPost:
		var req barberRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Name) == "" {
			http.Error(w, "name required", http.StatusBadRequest)
			return
		}
		b, err := h.schedule.CreateBarber(r.Context(), strings.TrimSpace(req.Name))
		if err != nil {
			http.Error(w, "failed to create barber", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"barber_id": b.ID, "name": b.Name})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type windowRequest struct {
	BarberID    string `json:"barber_id"`
	Weekday     int    `json:"weekday"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	IsAvailable bool   `json:"is_available"`
}

// UpsertWindow sets one weekday of a barber's weekly hours. Takes effect for
// future searches; existing appointments keep their slots.
func (h *AdminHandler) UpsertWindow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut && r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req windowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.BarberID = strings.TrimSpace(req.BarberID)
	if req.BarberID == "" || req.Weekday < 0 || req.Weekday > 6 {
		http.Error(w, "barber_id and weekday 0-6 required", http.StatusBadRequest)
		return
	}

	window := availability.Window{Weekday: req.Weekday, Available: req.IsAvailable}
	if req.IsAvailable {
		start, err := parseStartMinute(req.StartTime)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		end, err := parseStartMinute(req.EndTime)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if end <= start {
			http.Error(w, "end_time must be after start_time", http.StatusUnprocessableEntity)
			return
		}
		window.StartMinute = start
		window.EndMinute = end
	}

	if err := h.schedule.UpsertWindow(r.Context(), req.BarberID, window); err != nil {
		http.Error(w, "failed to save window", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

type serviceRequest struct {
	Name            string `json:"name"`
	DurationMinutes int    `json:"duration_minutes"`
	RegularCents    int64  `json:"regular_cents"`
	VIPCents        int64  `json:"vip_cents"`
}

func (h *AdminHandler) CreateService(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req serviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Name) == "" || req.DurationMinutes <= 0 || req.RegularCents < 0 {
		http.Error(w, "name, positive duration and non-negative price required", http.StatusUnprocessableEntity)
		return
	}
	id, err := h.catalog.CreateService(r.Context(), model.Service{
		Name:            strings.TrimSpace(req.Name),
		DurationMinutes: req.DurationMinutes,
		RegularCents:    req.RegularCents,
		VIPCents:        req.VIPCents,
	})
	if err != nil {
		http.Error(w, "failed to create service", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"service_id": id})
}

type addonRequest struct {
	Name         string `json:"name"`
	RegularCents int64  `json:"regular_cents"`
	VIPCents     int64  `json:"vip_cents"`
}

func (h *AdminHandler) CreateAddon(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req addonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Name) == "" || req.RegularCents < 0 {
		http.Error(w, "name and non-negative price required", http.StatusUnprocessableEntity)
		return
	}
	id, err := h.catalog.CreateAddon(r.Context(), model.Addon{
		Name:         strings.TrimSpace(req.Name),
		RegularCents: req.RegularCents,
		VIPCents:     req.VIPCents,
	})
	if err != nil {
		http.Error(w, "failed to create addon", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"addon_id": id})
}

// Appointments lists recent appointments for the admin dashboard, optionally
// filtered by status.
func (h *AdminHandler) Appointments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	status := strings.TrimSpace(r.URL.Query().Get("status"))
	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	appts, err := h.appts.List(r.Context(), status, limit)
	if err != nil {
		http.Error(w, "failed to list appointments", http.StatusInternalServerError)
		return
	}
	items := make([]appointmentViewBody, 0, len(appts))
	for _, appt := range appts {
		items = append(items, appointmentView(appt))
	}
	writeJSON(w, http.StatusOK, items)
}

type completeRequest struct {
	AppointmentID string `json:"appointment_id"`
}

// Complete marks a confirmed appointment as done after the customer was
// served.
func (h *AdminHandler) Complete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.AppointmentID) == "" {
		http.Error(w, "appointment_id required", http.StatusBadRequest)
		return
	}
	if err := h.appts.Complete(r.Context(), strings.TrimSpace(req.AppointmentID)); err != nil {
		if errors.Is(err, storage.ErrInvalidTransition) {
			http.Error(w, "only confirmed appointments can be completed", http.StatusConflict)
			return
		}
		http.Error(w, "failed to complete appointment", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": model.StatusCompleted})
}
