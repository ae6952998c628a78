package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/barberbook/platform/libs/db"
	otelx "github.com/barberbook/platform/libs/otel"
	"github.com/barberbook/platform/services/notification-service/internal/templates"
)

// Dispatcher hands a rendered message to the actual channel (SMTP, SMS
// webhook). At-least-once: a dispatch that succeeds but fails to commit will
// be dispatched again.
type Dispatcher interface {
	Dispatch(ctx context.Context, job Job, subject, body string) error
}

type Worker struct {
	pool       *db.Pool
	repo       *Repository
	dispatcher Dispatcher
	logger     *slog.Logger
	interval   time.Duration
	batchSize  int
	backoff    time.Duration
	maxBackoff time.Duration
}

type WorkerConfig struct {
	Interval   time.Duration
	BatchSize  int
	Backoff    time.Duration
	MaxBackoff time.Duration
}

func NewWorker(pool *db.Pool, repo *Repository, dispatcher Dispatcher, logger *slog.Logger, cfg WorkerConfig) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 1 * time.Minute
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Minute
	}
	return &Worker{
		pool:       pool,
		repo:       repo,
		dispatcher: dispatcher,
		logger:     logger,
		interval:   cfg.Interval,
		batchSize:  cfg.BatchSize,
		backoff:    cfg.Backoff,
		maxBackoff: cfg.MaxBackoff,
	}
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.processBatch(ctx); err != nil {
				w.logger.Error("notification batch failed", "err", err)
			}
		}
	}
}

func (w *Worker) processBatch(ctx context.Context) error {
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	due, err := w.repo.ClaimDue(ctx, tx, w.batchSize)
	if err != nil {
		return err
	}
	if len(due) == 0 {
		return tx.Commit(ctx)
	}

	var sent []int64
	for _, job := range due {
		jobCtx := otelx.ContextWithTraceContext(ctx, job.Traceparent, job.Tracestate)

		if err := w.deliver(jobCtx, job); err != nil {
			attempts := job.Attempts + 1
			nextRun := time.Now().UTC().Add(Backoff(w.backoff, w.maxBackoff, job.Attempts))
			w.logger.Warn("notification delivery failed",
				"job_id", job.ID, "channel", job.Channel, "attempts", attempts, "err", err)
			if err := w.repo.MarkFailed(ctx, tx, job.ID, attempts, job.MaxAttempts, nextRun, err.Error()); err != nil {
				return err
			}
			continue
		}
		sent = append(sent, job.ID)
	}

	if err := w.repo.MarkSent(ctx, tx, sent); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (w *Worker) deliver(ctx context.Context, job Job) error {
	subject, body, err := templates.Render(job.Template, templateData(job))
	if err != nil {
		return err
	}
	return w.dispatcher.Dispatch(ctx, job, subject, body)
}

func templateData(job Job) templates.Data {
	d := templates.Data{
		CustomerName:       str(job.TemplateData, "customer_name"),
		ConfirmationNumber: str(job.TemplateData, "confirmation_number"),
		ServiceName:        str(job.TemplateData, "service_name"),
		CancelURL:          str(job.TemplateData, "cancel_url"),
		RescheduleURL:      str(job.TemplateData, "reschedule_url"),
	}
	if raw := str(job.TemplateData, "start_time"); raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			d.StartTime = t
		}
	}
	if v, ok := job.TemplateData["amount_cents"].(float64); ok {
		d.AmountCents = int64(v)
	}
	return d
}

func str(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}

// NextStatus decides where a job lands after a failed attempt: back in the
// queue, or failed for good once the budget is spent.
func NextStatus(attempts, maxAttempts int) string {
	if attempts >= maxAttempts {
		return StatusFailed
	}
	return StatusQueued
}

// Backoff doubles per attempt from base, capped at max.
func Backoff(base, max time.Duration, attempts int) time.Duration {
	d := base
	for i := 0; i < attempts; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	return d
}
