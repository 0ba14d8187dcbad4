package outbox

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	otelx "github.com/md-rashed-zaman/slotbooker/libs/otel"
)

// Pending is a committed event that has not reached Kafka yet.
type Pending struct {
	Seq         int64
	EventID     string
	Topic       string
	Key         string
	Payload     []byte
	Traceparent string
	Tracestate  string
	Attempts    int
}

// Execer is satisfied by pgx.Tx and *db.Pool.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository reads and writes outbox_events through whatever transaction it is handed.
type Repository struct{}

func NewRepository() *Repository {
	return &Repository{}
}

const (
	insertEvent = `
		INSERT INTO outbox_events (topic, message_key, payload, traceparent, tracestate)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''))`

	claimPending = `
		SELECT seq, event_id::text, topic, message_key, payload,
			COALESCE(traceparent, ''), COALESCE(tracestate, ''), attempts
		FROM outbox_events
		WHERE published_at IS NULL AND attempts < $2
		ORDER BY seq
		LIMIT $1
		FOR UPDATE SKIP LOCKED`

	markPublished = `UPDATE outbox_events SET published_at = now(), last_error = NULL WHERE seq = ANY($1)`

	markFailed = `UPDATE outbox_events SET attempts = attempts + 1, last_error = $2 WHERE seq = ANY($1)`
)

// Insert stores evt in tx, stamped with the caller's trace context.
func (r *Repository) Insert(ctx context.Context, tx pgx.Tx, evt Event) error {
	traceparent, tracestate := otelx.TraceContextStrings(ctx)
	_, err := tx.Exec(ctx, insertEvent, evt.Topic, evt.Key, evt.Payload, traceparent, tracestate)
	return err
}

// Claim locks up to limit unpublished rows that have failed fewer than maxAttempts times.
// Rows locked by another relay are skipped.
func (r *Repository) Claim(ctx context.Context, tx pgx.Tx, limit, maxAttempts int) ([]Pending, error) {
	rows, err := tx.Query(ctx, claimPending, limit, maxAttempts)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[Pending])
}

func (r *Repository) MarkPublished(ctx context.Context, q Execer, seqs []int64) error {
	if len(seqs) == 0 {
		return nil
	}
	_, err := q.Exec(ctx, markPublished, seqs)
	return err
}

// MarkFailed bumps the attempt counter so a poison row eventually stops being claimed.
func (r *Repository) MarkFailed(ctx context.Context, q Execer, seqs []int64, cause error) error {
	if len(seqs) == 0 || cause == nil {
		return nil
	}
	_, err := q.Exec(ctx, markFailed, seqs, cause.Error())
	return err
}
