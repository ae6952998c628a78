package consumer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/barberbook/platform/libs/kafkax"
	"github.com/barberbook/platform/services/notification-service/internal/inbox"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Handler receives the event id alongside the message so downstream inserts
// can derive idempotency keys from it.
type Handler func(ctx context.Context, eventID string, msg kafka.Message) error

type Consumer struct {
	reader  *kafka.Reader
	logger  *slog.Logger
	inbox   *inbox.Repository
	handler Handler
}

type Config struct {
	Brokers string
	GroupID string
	Topic   string
}

func New(logger *slog.Logger, inboxRepo *inbox.Repository, cfg Config, handler Handler) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  kafkax.SplitBrokers(cfg.Brokers),
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Consumer{
		reader:  reader,
		logger:  logger,
		inbox:   inboxRepo,
		handler: handler,
	}
}

func (c *Consumer) Run(ctx context.Context) {
	defer c.reader.Close()

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("kafka read error", "err", err, "topic", c.reader.Config().Topic)
			time.Sleep(1 * time.Second)
			continue
		}
		c.consume(ctx, msg)
	}
}

// consume runs one message through dedupe and the handler. Handler errors are
// logged and the message dropped rather than redelivered: the inbox row is
// already written, and the jobs table (not Kafka) is the retry surface.
func (c *Consumer) consume(ctx context.Context, msg kafka.Message) {
	ctxMsg := kafkax.ExtractTraceContext(ctx, msg)
	ctxSpan, span := otel.Tracer("notification-consumer").Start(ctxMsg, "event.consume",
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination", msg.Topic),
		),
	)
	defer span.End()

	meta := kafkax.ExtractEventMeta(msg)
	eventID := meta.EventID
	if eventID == "" {
		// Producer forgot the header; fall back to the message coordinates
		// so dedupe and job idempotency keys still hold.
		eventID = fmt.Sprintf("%s/%d/%d", msg.Topic, msg.Partition, msg.Offset)
	}

	fresh, err := c.inbox.Record(ctxSpan, eventID, msg.Topic)
	if err != nil {
		c.logger.Error("inbox record failed", "err", err, "event_id", eventID)
		span.RecordError(err)
		return
	}
	if !fresh {
		c.logger.Info("duplicate event ignored", "event_id", eventID, "topic", msg.Topic)
		return
	}

	if err := c.handler(ctxSpan, eventID, msg); err != nil {
		c.logger.Error("event handler failed", "err", err, "event_id", eventID, "topic", msg.Topic)
		span.RecordError(err)
	}
}
