package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lonewolfcast/ingestion/internal/models"

	"github.com/jackc/pgx/v5"
)

// UsageRepository persists the per-day API call counter
type UsageRepository struct {
	db *Database
}

// EnsureDay creates the counter row for day if missing and returns its
// calls_made in one round trip
func (r *UsageRepository) EnsureDay(ctx context.Context, day time.Time) (int, error) {
	day = truncateDay(day)

	var calls int
	err := r.db.conn.QueryRow(ctx, `
		WITH ins AS (
			INSERT INTO api_usage (date, calls_made, reset_time)
			VALUES ($1, 0, $2)
			ON CONFLICT (date) DO NOTHING
			RETURNING calls_made
		)
		SELECT calls_made FROM ins
		UNION ALL
		SELECT calls_made FROM api_usage WHERE date = $1
		LIMIT 1
	`, day, day.Add(24*time.Hour)).Scan(&calls)
	if err != nil {
		return 0, fmt.Errorf("failed to ensure usage row: %w", err)
	}

	return calls, nil
}

// IncrementDay atomically adds one call to day's counter unless it already
// reached limit, creating the row on first use. Returns the new count and
// whether the increment happened.
func (r *UsageRepository) IncrementDay(ctx context.Context, day time.Time, limit int) (int, bool, error) {
	day = truncateDay(day)

	var calls int
	err := r.db.conn.QueryRow(ctx, `
		INSERT INTO api_usage (date, calls_made, reset_time)
		VALUES ($1, 1, $2)
		ON CONFLICT (date) DO UPDATE SET calls_made = api_usage.calls_made + 1
		WHERE api_usage.calls_made < $3
		RETURNING calls_made
	`, day, day.Add(24*time.Hour), limit).Scan(&calls)

	if errors.Is(err, pgx.ErrNoRows) {
		current, err := r.EnsureDay(ctx, day)
		return current, false, err
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to increment usage: %w", err)
	}

	return calls, true, nil
}

// Get retrieves the counter row for day
func (r *UsageRepository) Get(ctx context.Context, day time.Time) (*models.APIUsage, error) {
	day = truncateDay(day)

	var u models.APIUsage
	err := r.db.conn.QueryRow(ctx, `
		SELECT id, date, calls_made, reset_time FROM api_usage WHERE date = $1
	`, day).Scan(&u.ID, &u.Date, &u.CallsMade, &u.ResetTime)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("api usage date=%s: %w", day.Format("2006-01-02"), ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get api usage: %w", err)
	}

	return &u, nil
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
