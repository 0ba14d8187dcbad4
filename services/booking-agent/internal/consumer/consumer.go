package consumer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/md-rashed-zaman/slotbooker/libs/kafkax"
)

type Handler func(ctx context.Context, msg kafka.Message) error

// Reader is satisfied by *kafka.Reader.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Inbox deduplicates deliveries. Record reports false for a key it has already stored.
type Inbox interface {
	Record(ctx context.Context, key, eventType string) (bool, error)
}

// Consumer hands each booking request to a Handler once, committing the offset afterwards.
// A message is committed even when its handler fails; only inbox errors hold it back.
type Consumer struct {
	reader  Reader
	logger  *slog.Logger
	inbox   Inbox
	handler Handler
	backoff time.Duration
}

type Config struct {
	Brokers string
	GroupID string
	Topic   string
}

func New(logger *slog.Logger, inbox Inbox, cfg Config, handler Handler) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  kafkax.SplitBrokers(cfg.Brokers),
		GroupID:  cfg.GroupID,
		Topic:    cfg.Topic,
		MinBytes: 1,
		MaxBytes: 1 << 20,
	})
	return NewWithReader(logger, inbox, reader, handler)
}

func NewWithReader(logger *slog.Logger, inbox Inbox, reader Reader, handler Handler) *Consumer {
	return &Consumer{
		reader:  reader,
		logger:  logger,
		inbox:   inbox,
		handler: handler,
		backoff: time.Second,
	}
}

func (c *Consumer) Run(ctx context.Context) {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("kafka fetch failed", "err", err)
			if !c.pause(ctx) {
				return
			}
			continue
		}

		for !c.process(ctx, msg) {
			if !c.pause(ctx) {
				return
			}
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Error("kafka commit failed", "err", err, "partition", msg.Partition, "offset", msg.Offset)
		}
	}
}

func (c *Consumer) pause(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(c.backoff):
		return true
	}
}

// process reports whether msg is finished with and may be committed.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) bool {
	meta := kafkax.ExtractEventMeta(msg)
	key := DeliveryKey(msg, meta)

	ctx, span := otel.Tracer("booking-agent/consumer").Start(kafkax.ExtractTraceContext(ctx, msg), "booking.requested consume",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination.name", msg.Topic),
			attribute.Int("messaging.kafka.partition", msg.Partition),
			attribute.Int64("messaging.kafka.offset", msg.Offset),
			attribute.String("messaging.message.id", key),
		),
	)
	defer span.End()

	if c.inbox != nil {
		fresh, err := c.inbox.Record(ctx, key, meta.EventType)
		if err != nil {
			c.logger.Error("inbox unavailable; retrying delivery", "err", err, "key", key)
			span.RecordError(err)
			span.SetStatus(codes.Error, "inbox")
			return false
		}
		if !fresh {
			c.logger.Info("duplicate delivery skipped", "key", key)
			span.SetAttributes(attribute.Bool("booking.duplicate", true))
			return true
		}
	}

	if err := c.handler(ctx, msg); err != nil {
		c.logger.Error("booking request failed", "err", err, "key", key)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return true
}

// DeliveryKey identifies a message for deduplication: its event id header,
// or its log position when the producer did not set one.
func DeliveryKey(msg kafka.Message, meta kafkax.EventMeta) string {
	if meta.EventID != "" {
		return meta.EventID
	}
	return fmt.Sprintf("%s/%d/%d", msg.Topic, msg.Partition, msg.Offset)
}
