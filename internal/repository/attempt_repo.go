package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"chatbridge/internal/models"
)

// recordTimeout caps how long a fetch waits on the audit insert.
const recordTimeout = 2 * time.Second

type AttemptRepo struct {
	pool *pgxpool.Pool
}

func NewAttemptRepo(pool *pgxpool.Pool) *AttemptRepo {
	return &AttemptRepo{pool: pool}
}

func (r *AttemptRepo) RecordAttempt(ctx context.Context, a *models.FetchAttempt) error {
	ctx, cancel := context.WithTimeout(ctx, recordTimeout)
	defer cancel()

	query := `INSERT INTO fetch_attempts (id, fetch_id, model, attempt, outcome, status_code, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		a.ID, a.FetchID, a.Model, a.Attempt, string(a.Outcome), a.StatusCode, a.Duration.Milliseconds(), a.CreatedAt,
	)
	return err
}

// ModelStats summarises attempts per model since the given time, busiest first.
func (r *AttemptRepo) ModelStats(ctx context.Context, since time.Time) ([]models.ModelStats, error) {
	query := `SELECT model,
			COUNT(*),
			COUNT(*) FILTER (WHERE outcome = 'success'),
			COUNT(*) FILTER (WHERE outcome = 'rate_limited'),
			COUNT(*) FILTER (WHERE outcome = 'failed'),
			COALESCE(AVG(duration_ms), 0)
		FROM fetch_attempts
		WHERE created_at >= $1
		GROUP BY model
		ORDER BY COUNT(*) DESC, model`

	rows, err := r.pool.Query(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []models.ModelStats
	for rows.Next() {
		var s models.ModelStats
		if err := rows.Scan(&s.Model, &s.Attempts, &s.Successes, &s.RateLimited, &s.Failed, &s.AvgDurationMs); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
