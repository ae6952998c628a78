// Package jobs is the delivery queue: every notification is a row that moves
// through queued -> sent, or queued -> failed after bounded retries. Jobs are
// never deleted, so the admin dashboard can audit and retry them.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/barberbook/platform/libs/db"
	otelx "github.com/barberbook/platform/libs/otel"
	"github.com/jackc/pgx/v5"
)

const (
	StatusQueued   = "queued"
	StatusSent     = "sent"
	StatusFailed   = "failed"
	StatusCanceled = "canceled"
)

var ErrInvalidTransition = errors.New("invalid job state transition")

type Job struct {
	ID             int64
	IdempotencyKey string
	AppointmentID  string
	EventType      string
	Channel        string
	Recipient      string
	Template       string
	ScheduledFor   time.Time
	TemplateData   map[string]any
	Traceparent    string
	Tracestate     string
	Attempts       int
	MaxAttempts    int
	Status         string
	LastError      string
}

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// Insert enqueues a job. The idempotency key makes redelivered events
// harmless: the second insert is a no-op.
func (r *Repository) Insert(ctx context.Context, tx pgx.Tx, job Job) error {
	payload, err := json.Marshal(job.TemplateData)
	if err != nil {
		return err
	}
	traceparent, tracestate := otelx.TraceContextStrings(ctx)
	_, err = tx.Exec(ctx, `
		INSERT INTO notification_jobs
			(idempotency_key, appointment_id, event_type, channel, recipient, template, scheduled_for, template_data, traceparent, tracestate)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (idempotency_key) DO NOTHING
	`, job.IdempotencyKey, job.AppointmentID, job.EventType, job.Channel, job.Recipient, job.Template, job.ScheduledFor, payload, traceparent, tracestate)
	return err
}

const jobColumns = `
	id, idempotency_key, appointment_id, event_type, channel, recipient, template,
	scheduled_for, template_data, traceparent, tracestate, attempts, max_attempts,
	status, COALESCE(last_error, '')`

func scanJob(row pgx.Row) (Job, error) {
	var j Job
	var raw []byte
	err := row.Scan(&j.ID, &j.IdempotencyKey, &j.AppointmentID, &j.EventType, &j.Channel, &j.Recipient, &j.Template,
		&j.ScheduledFor, &raw, &j.Traceparent, &j.Tracestate, &j.Attempts, &j.MaxAttempts, &j.Status, &j.LastError)
	if err != nil {
		return Job{}, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &j.TemplateData); err != nil {
			return Job{}, err
		}
	} else {
		j.TemplateData = map[string]any{}
	}
	return j, nil
}

// ClaimDue locks a batch of due queued jobs. SKIP LOCKED lets several worker
// replicas drain the queue without stepping on each other; canceled and
// failed jobs are never picked up.
func (r *Repository) ClaimDue(ctx context.Context, tx pgx.Tx, limit int) ([]Job, error) {
	rows, err := tx.Query(ctx, `
		SELECT`+jobColumns+`
		FROM notification_jobs
		WHERE status = 'queued' AND scheduled_for <= now()
		ORDER BY scheduled_for
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var due []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		due = append(due, j)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return due, nil
}

func (r *Repository) MarkSent(ctx context.Context, tx pgx.Tx, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `
		UPDATE notification_jobs
		SET status = 'sent', sent_at = now(), updated_at = now()
		WHERE id = ANY($1)
	`, ids)
	return err
}

// MarkFailed records a delivery failure: either requeued for the next
// attempt or parked as failed once attempts run out.
func (r *Repository) MarkFailed(ctx context.Context, tx pgx.Tx, id int64, attempts, maxAttempts int, nextRun time.Time, lastError string) error {
	_, err := tx.Exec(ctx, `
		UPDATE notification_jobs
		SET attempts = $2,
			status = $3,
			scheduled_for = $4,
			last_error = $5,
			updated_at = now()
		WHERE id = $1
	`, id, attempts, NextStatus(attempts, maxAttempts), nextRun, lastError)
	return err
}

// Retry puts a failed job back in the queue with a fresh attempt budget.
// Only failed jobs can be retried.
func (r *Repository) Retry(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE notification_jobs
		SET status = 'queued',
			attempts = 0,
			scheduled_for = now(),
			last_error = NULL,
			updated_at = now()
		WHERE id = $1 AND status = 'failed'
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidTransition
	}
	return nil
}

// Cancel withdraws a single queued job. Anything the worker already touched
// (sent, failed, canceled) stays as the record of what happened.
func (r *Repository) Cancel(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE notification_jobs
		SET status = 'canceled',
			updated_at = now()
		WHERE id = $1 AND status = 'queued'
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidTransition
	}
	return nil
}

// CancelForAppointment drops undelivered jobs when an appointment is
// cancelled or moved, so stale reminders never go out. Sent jobs are history
// and stay sent.
func (r *Repository) CancelForAppointment(ctx context.Context, tx pgx.Tx, appointmentID string) error {
	_, err := tx.Exec(ctx, `
		UPDATE notification_jobs
		SET status = 'canceled', updated_at = now()
		WHERE appointment_id = $1 AND status = 'queued'
	`, appointmentID)
	return err
}

func (r *Repository) ListByStatus(ctx context.Context, status string, limit int) ([]Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT`+jobColumns+`
		FROM notification_jobs
		WHERE status = $1
		ORDER BY updated_at DESC
		LIMIT $2
	`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}
