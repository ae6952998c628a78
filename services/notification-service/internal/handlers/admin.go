package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/barberbook/platform/services/notification-service/internal/jobs"
)

// AdminHandler exposes the delivery queue to the admin dashboard: inspect
// failed jobs and push them back into the queue.
type AdminHandler struct {
	jobs   *jobs.Repository
	logger *slog.Logger
}

func NewAdminHandler(jobsRepo *jobs.Repository, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{jobs: jobsRepo, logger: logger}
}

type jobItem struct {
	JobID         int64  `json:"job_id"`
	AppointmentID string `json:"appointment_id"`
	EventType     string `json:"event_type"`
	Channel       string `json:"channel"`
	Recipient     string `json:"recipient"`
	Template      string `json:"template"`
	ScheduledFor  string `json:"scheduled_for"`
	Attempts      int    `json:"attempts"`
	MaxAttempts   int    `json:"max_attempts"`
	Status        string `json:"status"`
	LastError     string `json:"last_error,omitempty"`
}

// Jobs lists jobs by status, defaulting to the failed ones the dashboard
// cares about.
func (h *AdminHandler) Jobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	status := strings.TrimSpace(r.URL.Query().Get("status"))
	if status == "" {
		status = jobs.StatusFailed
	}
	switch status {
	case jobs.StatusQueued, jobs.StatusSent, jobs.StatusFailed, jobs.StatusCanceled:
	default:
		http.Error(w, "unknown status", http.StatusBadRequest)
		return
	}
	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	list, err := h.jobs.ListByStatus(r.Context(), status, limit)
	if err != nil {
		http.Error(w, "failed to list jobs", http.StatusInternalServerError)
		return
	}
	items := make([]jobItem, 0, len(list))
	for _, j := range list {
		items = append(items, jobItem{
			JobID:         j.ID,
			AppointmentID: j.AppointmentID,
			EventType:     j.EventType,
			Channel:       j.Channel,
			Recipient:     j.Recipient,
			Template:      j.Template,
			ScheduledFor:  j.ScheduledFor.UTC().Format(time.RFC3339),
			Attempts:      j.Attempts,
			MaxAttempts:   j.MaxAttempts,
			Status:        j.Status,
			LastError:     j.LastError,
		})
	}
	writeJSON(w, http.StatusOK, items)
}

type retryRequest struct {
	JobID int64 `json:"job_id"`
}

// Retry requeues a failed job with a fresh attempt budget. The worker picks
// it up on its next tick.
func (h *AdminHandler) Retry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req retryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.JobID <= 0 {
		http.Error(w, "job_id required", http.StatusBadRequest)
		return
	}
	if err := h.jobs.Retry(r.Context(), req.JobID); err != nil {
		if errors.Is(err, jobs.ErrInvalidTransition) {
			http.Error(w, "only failed jobs can be retried", http.StatusConflict)
			return
		}
		http.Error(w, "failed to retry job", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"job_id": req.JobID, "status": jobs.StatusQueued})
}

type cancelRequest struct {
	JobID int64 `json:"job_id"`
}

// Cancel withdraws a queued job before the worker claims it.
func (h *AdminHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.JobID <= 0 {
		http.Error(w, "job_id required", http.StatusBadRequest)
		return
	}
	if err := h.jobs.Cancel(r.Context(), req.JobID); err != nil {
		if errors.Is(err, jobs.ErrInvalidTransition) {
			http.Error(w, "only queued jobs can be canceled", http.StatusConflict)
			return
		}
		http.Error(w, "failed to cancel job", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"job_id": req.JobID, "status": jobs.StatusCanceled})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
