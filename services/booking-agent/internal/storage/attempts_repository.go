package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/md-rashed-zaman/slotbooker/libs/db"
	"github.com/md-rashed-zaman/slotbooker/services/booking-agent/internal/model"
)

type AttemptRepository struct {
	pool *db.Pool
}

func NewAttemptRepository(pool *db.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

func (r *AttemptRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *AttemptRepository) Insert(ctx context.Context, tx pgx.Tx, res model.BookingResult) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO booking_attempts
			(id, request_id, target_url, booking_url, success, result, suggested_time_iso, suggested_time_local,
			 fell_back, candidate_count, session_id, error, attempted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, res.ID, res.RequestID, res.TargetURL, res.BookingURL, res.Success, res.Result, res.SuggestedTimeISO,
		res.SuggestedTimeLocal, res.FellBack, res.CandidateCount, res.SessionID, res.Error, res.Timestamp)
	return err
}

func (r *AttemptRepository) Get(ctx context.Context, id string) (model.BookingResult, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+attemptColumns+`
		FROM booking_attempts
		WHERE id = $1
	`, id)
	return scanAttempt(row)
}

func (r *AttemptRepository) ListRecent(ctx context.Context, limit int) ([]model.BookingResult, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+attemptColumns+`
		FROM booking_attempts
		ORDER BY attempted_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.BookingResult
	for rows.Next() {
		res, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// Summary aggregates every recorded attempt.
func (r *AttemptRepository) Summary(ctx context.Context) (model.SuccessRate, error) {
	var total, successful int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*), count(*) FILTER (WHERE success)
		FROM booking_attempts
	`).Scan(&total, &successful)
	if err != nil {
		return model.SuccessRate{}, err
	}
	return model.NewSuccessRate(total, successful), nil
}

const attemptColumns = `id::text, request_id, target_url, booking_url, success, result, suggested_time_iso,
			suggested_time_local, fell_back, candidate_count, session_id, error, attempted_at`

func scanAttempt(row pgx.Row) (model.BookingResult, error) {
	var res model.BookingResult
	err := row.Scan(
		&res.ID,
		&res.RequestID,
		&res.TargetURL,
		&res.BookingURL,
		&res.Success,
		&res.Result,
		&res.SuggestedTimeISO,
		&res.SuggestedTimeLocal,
		&res.FellBack,
		&res.CandidateCount,
		&res.SessionID,
		&res.Error,
		&res.Timestamp,
	)
	if err != nil {
		return model.BookingResult{}, err
	}
	return res, nil
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func IsDuplicate(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
