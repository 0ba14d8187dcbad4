package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/segmentio/kafka-go"

	"github.com/md-rashed-zaman/slotbooker/libs/db"
	"github.com/md-rashed-zaman/slotbooker/libs/kafkax"
	otelx "github.com/md-rashed-zaman/slotbooker/libs/otel"
)

// MessageWriter is satisfied by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Publisher relays committed outbox rows to Kafka.
type Publisher struct {
	pool        *db.Pool
	repo        *Repository
	logger      *slog.Logger
	brokers     []string
	pollEvery   time.Duration
	batchSize   int
	maxAttempts int
}

type PublisherConfig struct {
	Brokers     string
	PollEvery   time.Duration
	BatchSize   int
	MaxAttempts int
}

func NewPublisher(pool *db.Pool, repo *Repository, logger *slog.Logger, cfg PublisherConfig) *Publisher {
	if cfg.PollEvery <= 0 {
		cfg.PollEvery = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 10
	}
	return &Publisher{
		pool:        pool,
		repo:        repo,
		logger:      logger,
		brokers:     kafkax.SplitBrokers(cfg.Brokers),
		pollEvery:   cfg.PollEvery,
		batchSize:   cfg.BatchSize,
		maxAttempts: cfg.MaxAttempts,
	}
}

func (p *Publisher) Run(ctx context.Context) {
	if len(p.brokers) == 0 {
		p.logger.Warn("outbox publisher disabled (no kafka brokers configured)")
		return
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(p.brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	defer writer.Close()

	ticker := time.NewTicker(p.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := p.publishBatch(ctx, writer); err != nil {
				p.logger.Error("outbox publish failed", "err", err)
			} else if n > 0 {
				p.logger.Debug("outbox batch published", "count", n)
			}
		}
	}
}

func (p *Publisher) publishBatch(ctx context.Context, writer MessageWriter) (int, error) {
	var (
		claimed  []int64
		writeErr error
	)
	err := db.InTx(ctx, p.pool, func(tx pgx.Tx) error {
		pending, err := p.repo.Claim(ctx, tx, p.batchSize, p.maxAttempts)
		if err != nil || len(pending) == 0 {
			return err
		}
		msgs := make([]kafka.Message, len(pending))
		claimed = make([]int64, len(pending))
		for i, ev := range pending {
			msgs[i] = Message(ctx, ev)
			claimed[i] = ev.Seq
		}
		if writeErr = writer.WriteMessages(ctx, msgs...); writeErr != nil {
			return writeErr
		}
		return p.repo.MarkPublished(ctx, tx, claimed)
	})
	if writeErr != nil {
		// The claim rolled back, so the failure is counted in its own statement.
		if ferr := p.repo.MarkFailed(ctx, p.pool, claimed, writeErr); ferr != nil {
			p.logger.Error("outbox failure not recorded", "err", ferr, "count", len(claimed))
		}
		return 0, writeErr
	}
	if err != nil {
		return 0, err
	}
	return len(claimed), nil
}

// Message turns a pending row into a Kafka message under the trace that produced it.
func Message(ctx context.Context, ev Pending) kafka.Message {
	msgCtx := otelx.ContextWithTraceContext(ctx, ev.Traceparent, ev.Tracestate)
	headers := kafkax.MetaHeaders(kafkax.EventMeta{EventID: ev.EventID, EventType: ev.Topic})
	return kafka.Message{
		Topic:   ev.Topic,
		Key:     []byte(ev.Key),
		Value:   ev.Payload,
		Headers: kafkax.InjectTraceHeaders(msgCtx, headers),
	}
}
