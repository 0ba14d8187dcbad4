package storage

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/md-rashed-zaman/slotbooker/libs/db"
	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/model"
	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/outbox"
)

// OutboxWriter stores an event in the same transaction as the attempt.
type OutboxWriter interface {
	Insert(ctx context.Context, tx pgx.Tx, evt outbox.Event) error
}

// PostgresStore records attempts and their completion events atomically.
type PostgresStore struct {
	attempts *AttemptRepository
	outbox   OutboxWriter
}

func NewPostgresStore(attempts *AttemptRepository, ob OutboxWriter) *PostgresStore {
	return &PostgresStore{attempts: attempts, outbox: ob}
}

func (s *PostgresStore) Record(ctx context.Context, res model.BookingResult) error {
	return db.InTx(ctx, s.attempts, func(tx pgx.Tx) error {
		if err := s.attempts.Insert(ctx, tx, res); err != nil {
			return err
		}
		if s.outbox == nil {
			return nil
		}
		evt, err := outbox.NewAttemptCompleted(res)
		if err != nil {
			return err
		}
		return s.outbox.Insert(ctx, tx, evt)
	})
}

func (s *PostgresStore) Summary(ctx context.Context) (model.SuccessRate, error) {
	return s.attempts.Summary(ctx)
}

func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]model.BookingResult, error) {
	return s.attempts.ListRecent(ctx, limit)
}
