package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"lonewolfcast/ingestion/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// LeagueRepository handles league database operations
type LeagueRepository struct {
	db *Database
}

// Upsert inserts or updates a league keyed by its api-football id.
// Reports whether the row was newly created.
func (r *LeagueRepository) Upsert(ctx context.Context, league *models.League) (bool, error) {
	query := `
		INSERT INTO leagues (api_id, name, country, logo, flag, type, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (api_id) DO UPDATE SET
			name = EXCLUDED.name,
			country = EXCLUDED.country,
			logo = EXCLUDED.logo,
			flag = EXCLUDED.flag,
			type = EXCLUDED.type,
			is_active = EXCLUDED.is_active,
			updated_at = NOW()
		RETURNING id, created_at, updated_at, (xmax = 0) AS inserted
	`

	var inserted bool
	err := r.db.conn.QueryRow(
		ctx, query,
		league.APIID, league.Name, league.Country, league.Logo, league.Flag, league.Type, league.IsActive,
	).Scan(&league.ID, &league.CreatedAt, &league.UpdatedAt, &inserted)

	if err != nil {
		return false, fmt.Errorf("failed to upsert league: %w", err)
	}

	log.Debug().
		Int("id", league.ID).
		Int("api_id", league.APIID).
		Bool("created", inserted).
		Msg("League upserted")

	return inserted, nil
}

// GetByAPIID retrieves a league by its api-football id
func (r *LeagueRepository) GetByAPIID(ctx context.Context, apiID int) (*models.League, error) {
	query := `
		SELECT id, api_id, name, country, logo, flag, type, is_active, created_at, updated_at
		FROM leagues
		WHERE api_id = $1
	`

	var l models.League
	err := r.db.conn.QueryRow(ctx, query, apiID).Scan(
		&l.ID, &l.APIID, &l.Name, &l.Country, &l.Logo, &l.Flag, &l.Type, &l.IsActive, &l.CreatedAt, &l.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("league api_id=%d: %w", apiID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get league: %w", err)
	}

	return &l, nil
}

// Count returns the number of leagues
func (r *LeagueRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.conn.QueryRow(ctx, `SELECT COUNT(*) FROM leagues`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count leagues: %w", err)
	}
	return n, nil
}

// CountWithPredictions returns the number of active leagues with at least one
// season covered by predictions
func (r *LeagueRepository) CountWithPredictions(ctx context.Context) (int, error) {
	query := `
		SELECT COUNT(DISTINCT l.id)
		FROM leagues l
		JOIN seasons s ON s.league_id = l.id
		WHERE l.is_active AND s.has_predictions
	`

	var n int
	if err := r.db.conn.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count leagues with predictions: %w", err)
	}
	return n, nil
}

// LastUpdated returns the most recent league update time, nil when empty
func (r *LeagueRepository) LastUpdated(ctx context.Context) (*time.Time, error) {
	var t sql.NullTime
	if err := r.db.conn.QueryRow(ctx, `SELECT MAX(updated_at) FROM leagues`).Scan(&t); err != nil {
		return nil, fmt.Errorf("failed to get last league update: %w", err)
	}
	return nullTimePtr(t), nil
}

// SeasonRepository handles season database operations
type SeasonRepository struct {
	db *Database
}

// Upsert inserts or updates a season keyed by (league_id, year).
// Reports whether the row was newly created.
func (r *SeasonRepository) Upsert(ctx context.Context, season *models.Season) (bool, error) {
	query := `
		INSERT INTO seasons (league_id, year, start_date, end_date, current, has_predictions, has_odds)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (league_id, year) DO UPDATE SET
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			current = EXCLUDED.current,
			has_predictions = EXCLUDED.has_predictions,
			has_odds = EXCLUDED.has_odds,
			updated_at = NOW()
		RETURNING id, matches_synced, last_match_sync, created_at, updated_at, (xmax = 0) AS inserted
	`

	var inserted bool
	err := r.db.conn.QueryRow(
		ctx, query,
		season.LeagueID, season.Year, season.StartDate, season.EndDate,
		season.Current, season.HasPredictions, season.HasOdds,
	).Scan(&season.ID, &season.MatchesSynced, &season.LastMatchSync, &season.CreatedAt, &season.UpdatedAt, &inserted)

	if err != nil {
		return false, fmt.Errorf("failed to upsert season: %w", err)
	}

	return inserted, nil
}

// ListByLeague retrieves all seasons of a league, newest first
func (r *SeasonRepository) ListByLeague(ctx context.Context, leagueID int) ([]*models.Season, error) {
	query := `
		SELECT id, league_id, year, start_date, end_date, current, has_predictions, has_odds,
		       matches_synced, last_match_sync, created_at, updated_at
		FROM seasons
		WHERE league_id = $1
		ORDER BY year DESC
	`

	rows, err := r.db.conn.Query(ctx, query, leagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to list seasons: %w", err)
	}
	defer rows.Close()

	var seasons []*models.Season
	for rows.Next() {
		s := &models.Season{}
		if err := rows.Scan(
			&s.ID, &s.LeagueID, &s.Year, &s.StartDate, &s.EndDate, &s.Current, &s.HasPredictions, &s.HasOdds,
			&s.MatchesSynced, &s.LastMatchSync, &s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan season row: %w", err)
		}
		seasons = append(seasons, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating season rows: %w", err)
	}

	return seasons, nil
}

// ListSyncable returns the (league, season) pairs the match sync should walk:
// active leagues whose season is covered by predictions
func (r *SeasonRepository) ListSyncable(ctx context.Context, currentOnly bool) ([]models.LeagueSeason, error) {
	query := `
		SELECT l.id, l.api_id, l.name, s.id, s.year
		FROM seasons s
		JOIN leagues l ON l.id = s.league_id
		WHERE l.is_active
		  AND s.has_predictions
		  AND (NOT $1 OR s.current)
		ORDER BY l.api_id, s.year
	`

	rows, err := r.db.conn.Query(ctx, query, currentOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list syncable seasons: %w", err)
	}
	defer rows.Close()

	var pairs []models.LeagueSeason
	for rows.Next() {
		var ls models.LeagueSeason
		if err := rows.Scan(&ls.LeagueID, &ls.LeagueAPIID, &ls.LeagueName, &ls.SeasonID, &ls.Year); err != nil {
			return nil, fmt.Errorf("failed to scan league season row: %w", err)
		}
		pairs = append(pairs, ls)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating league season rows: %w", err)
	}

	log.Debug().Int("count", len(pairs)).Bool("current_only", currentOnly).Msg("Syncable seasons retrieved")
	return pairs, nil
}

// MarkMatchesSynced records a completed match sync for a season
func (r *SeasonRepository) MarkMatchesSynced(ctx context.Context, seasonID int, at time.Time) error {
	tag, err := r.db.conn.Exec(ctx, `
		UPDATE seasons SET matches_synced = TRUE, last_match_sync = $2, updated_at = NOW()
		WHERE id = $1
	`, seasonID, at)
	if err != nil {
		return fmt.Errorf("failed to mark season matches synced: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("season id=%d: %w", seasonID, ErrNotFound)
	}
	return nil
}

func nullTimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
