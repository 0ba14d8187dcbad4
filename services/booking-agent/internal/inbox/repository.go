package inbox

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer is satisfied by *db.Pool and pgx.Tx.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository remembers which booking requests have been handled.
type Repository struct {
	db Execer
}

func NewRepository(db Execer) *Repository {
	return &Repository{db: db}
}

var ErrEmptyKey = errors.New("inbox: empty delivery key")

// Record stores key and reports whether it was new.
func (r *Repository) Record(ctx context.Context, key, eventType string) (bool, error) {
	if strings.TrimSpace(key) == "" {
		return false, ErrEmptyKey
	}
	tag, err := r.db.Exec(ctx,
		`INSERT INTO inbox_events (event_id, event_type) VALUES ($1, $2) ON CONFLICT (event_id) DO NOTHING`,
		key, eventType)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
