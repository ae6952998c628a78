package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/barberbook/platform/libs/auth"
	"github.com/barberbook/platform/libs/config"
	"github.com/barberbook/platform/libs/db"
	"github.com/barberbook/platform/libs/httpx"
	"github.com/barberbook/platform/libs/kafkax"
	otelx "github.com/barberbook/platform/libs/otel"
	"github.com/barberbook/platform/libs/runtime"
	"github.com/barberbook/platform/services/notification-service/internal/consumer"
	"github.com/barberbook/platform/services/notification-service/internal/email"
	"github.com/barberbook/platform/services/notification-service/internal/handlers"
	"github.com/barberbook/platform/services/notification-service/internal/inbox"
	"github.com/barberbook/platform/services/notification-service/internal/jobs"
	"github.com/barberbook/platform/services/notification-service/internal/routing"
	"github.com/barberbook/platform/services/notification-service/internal/sms"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// eventPayload is the shared shape of booking-service events; fields absent
// from a given event type stay zero.
type eventPayload struct {
	AppointmentID      string `json:"appointment_id"`
	ConfirmationNumber string `json:"confirmation_number"`
	CustomerName       string `json:"customer_name"`
	CustomerEmail      string `json:"customer_email"`
	CustomerPhone      string `json:"customer_phone"`
	ServiceName        string `json:"service_name"`
	StartTime          string `json:"start_time"`
	EventTime          string `json:"event_time"`
	AmountCents        int64  `json:"amount_cents"`
	CancelURL          string `json:"cancel_url"`
	RescheduleURL      string `json:"reschedule_url"`
}

type dispatcher struct {
	email email.Sender
	sms   sms.Sender
}

func (d *dispatcher) Dispatch(ctx context.Context, job jobs.Job, subject, body string) error {
	switch job.Channel {
	case routing.ChannelEmail:
		return d.email.Send(job.Recipient, subject, body)
	case routing.ChannelSMS:
		return d.sms.Send(ctx, job.Recipient, body)
	default:
		return fmt.Errorf("unknown channel %q", job.Channel)
	}
}

// routesFromEnv lets an env var override the stock routing per event type,
// e.g. ROUTES_APPOINTMENT_CREATED="email:confirmation_email:0:event".
func routesFromEnv(table routing.Table, logger *slog.Logger) routing.Table {
	overrides := map[string]string{
		routing.EventAppointmentCreated:     "ROUTES_APPOINTMENT_CREATED",
		routing.EventAppointmentCancelled:   "ROUTES_APPOINTMENT_CANCELLED",
		routing.EventAppointmentRescheduled: "ROUTES_APPOINTMENT_RESCHEDULED",
		routing.EventPaymentVerified:        "ROUTES_PAYMENT_VERIFIED",
	}
	for eventType, key := range overrides {
		raw := config.String(key, "")
		if raw == "" {
			continue
		}
		routes, err := routing.Parse(raw)
		if err != nil {
			logger.Warn("invalid routing override; keeping defaults", "env", key, "err", err)
			continue
		}
		table[eventType] = routes
	}
	return table
}

func recipientFor(channel string, payload eventPayload) string {
	switch channel {
	case routing.ChannelEmail:
		return payload.CustomerEmail
	case routing.ChannelSMS:
		return payload.CustomerPhone
	}
	return ""
}

func main() {
	service := config.String("SERVICE_NAME", "notification-service")
	port, err := config.Port("PORT", "8082")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	jwtSecret, err := config.RequiredString("ADMIN_JWT_SECRET")
	if err != nil {
		panic(err)
	}

	jobsRepo := jobs.NewRepository(pool)
	inboxRepo := inbox.NewRepository(pool)
	table := routesFromEnv(routing.Defaults(), logger)

	var smsSender sms.Sender = sms.NewNoopSender()
	if url := config.String("SMS_WEBHOOK_URL", ""); url != "" {
		smsSender = sms.NewWebhookSender(url, config.String("SMS_WEBHOOK_TOKEN", ""))
	} else {
		logger.Warn("SMS_WEBHOOK_URL not set; sms delivery disabled")
	}
	emailSender := email.NewSMTPSender(email.Config{
		Host:     config.String("SMTP_HOST", "localhost"),
		Port:     config.String("SMTP_PORT", "1025"),
		From:     config.String("SMTP_FROM", ""),
		Username: config.String("SMTP_USER", ""),
		Password: config.String("SMTP_PASS", ""),
	})

	worker := jobs.NewWorker(pool, jobsRepo, &dispatcher{email: emailSender, sms: smsSender}, logger, jobs.WorkerConfig{
		Interval:   2 * time.Second,
		BatchSize:  config.Int("WORKER_BATCH_SIZE", 50),
		Backoff:    config.Minutes("RETRY_BACKOFF_MINUTES", 1*time.Minute),
		MaxBackoff: config.Minutes("RETRY_MAX_BACKOFF_MINUTES", 30*time.Minute),
	})
	go worker.Run(ctx)

	handleEvent := func(ctx context.Context, eventID string, msg kafka.Message) error {
		var payload eventPayload
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			logger.Error("invalid event payload", "err", err, "topic", msg.Topic)
			return nil
		}
		if payload.AppointmentID == "" {
			logger.Error("event missing appointment_id", "topic", msg.Topic)
			return nil
		}

		now := time.Now().UTC()
		eventTime := now
		if payload.EventTime != "" {
			if t, err := time.Parse(time.RFC3339, payload.EventTime); err == nil {
				eventTime = t
			}
		}
		startTime := eventTime
		if payload.StartTime != "" {
			if t, err := time.Parse(time.RFC3339, payload.StartTime); err == nil {
				startTime = t
			}
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(ctx) }()

		// A cancel or move makes the old reminders wrong; drop whatever is
		// still queued before fanning out the new messages.
		switch msg.Topic {
		case routing.EventAppointmentCancelled, routing.EventAppointmentRescheduled:
			if err := jobsRepo.CancelForAppointment(ctx, tx, payload.AppointmentID); err != nil {
				return err
			}
		}

		for _, route := range table[msg.Topic] {
			recipient := recipientFor(route.Channel, payload)
			if recipient == "" {
				continue
			}
			job := jobs.Job{
				IdempotencyKey: eventID + ":" + route.Channel + ":" + route.Template,
				AppointmentID:  payload.AppointmentID,
				EventType:      msg.Topic,
				Channel:        route.Channel,
				Recipient:      recipient,
				Template:       route.Template,
				ScheduledFor:   route.ScheduleAt(eventTime, startTime, now),
				TemplateData: map[string]any{
					"customer_name":       payload.CustomerName,
					"confirmation_number": payload.ConfirmationNumber,
					"service_name":        payload.ServiceName,
					"start_time":          payload.StartTime,
					"amount_cents":        payload.AmountCents,
					"cancel_url":          payload.CancelURL,
					"reschedule_url":      payload.RescheduleURL,
				},
			}
			if err := jobsRepo.Insert(ctx, tx, job); err != nil {
				return err
			}
		}
		return tx.Commit(ctx)
	}

	brokers := config.String("KAFKA_BROKERS", "")
	groupID := config.String("KAFKA_GROUP_ID", "notification-service")
	for _, topic := range []string{
		routing.EventAppointmentCreated,
		routing.EventAppointmentCancelled,
		routing.EventAppointmentRescheduled,
		routing.EventPaymentVerified,
	} {
		eventConsumer := consumer.New(logger, inboxRepo, consumer.Config{
			Brokers: brokers,
			GroupID: groupID,
			Topic:   topic,
		}, handleEvent)
		go eventConsumer.Run(ctx)
	}

	adminHandler := handlers.NewAdminHandler(jobsRepo, logger)
	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	adminMux := http.NewServeMux()
	adminMux.HandleFunc("/api/v1/admin/jobs", adminHandler.Jobs)
	adminMux.HandleFunc("/api/v1/admin/jobs/retry", adminHandler.Retry)
	adminMux.HandleFunc("/api/v1/admin/jobs/cancel", adminHandler.Cancel)
	mux.Handle("/api/v1/admin/", auth.RequireAdmin(jwtSecret, adminMux))

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "notification")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
