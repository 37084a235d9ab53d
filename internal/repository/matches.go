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

// MatchRepository handles match database operations
type MatchRepository struct {
	db *Database
}

const matchColumns = `
	m.id, m.api_fixture_id, m.league_id, m.season_year, m.date, m.status,
	m.home_team, m.home_team_id, m.home_team_logo,
	m.away_team, m.away_team_id, m.away_team_logo,
	m.venue, m.round,
	m.predictions_synced, m.last_predictions_sync,
	m.odds_synced, m.last_odds_sync,
	m.stats_synced, m.last_stats_sync,
	m.created_at, m.updated_at`

func scanMatch(row pgx.Row) (*models.Match, error) {
	m := &models.Match{}
	err := row.Scan(
		&m.ID, &m.APIFixtureID, &m.LeagueID, &m.SeasonYear, &m.Date, &m.Status,
		&m.HomeTeam, &m.HomeTeamID, &m.HomeTeamLogo,
		&m.AwayTeam, &m.AwayTeamID, &m.AwayTeamLogo,
		&m.Venue, &m.Round,
		&m.PredictionsSynced, &m.LastPredictionsSync,
		&m.OddsSynced, &m.LastOddsSync,
		&m.StatsSynced, &m.LastStatsSync,
		&m.CreatedAt, &m.UpdatedAt,
	)
	return m, err
}

// Upsert inserts or updates a match keyed by its api-football fixture id.
// Sync flags are left untouched on update. Reports whether the row was newly created.
func (r *MatchRepository) Upsert(ctx context.Context, match *models.Match) (bool, error) {
	query := `
		INSERT INTO matches (
			api_fixture_id, league_id, season_year, date, status,
			home_team, home_team_id, home_team_logo,
			away_team, away_team_id, away_team_logo,
			venue, round
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (api_fixture_id) DO UPDATE SET
			league_id = EXCLUDED.league_id,
			season_year = EXCLUDED.season_year,
			date = EXCLUDED.date,
			status = EXCLUDED.status,
			home_team = EXCLUDED.home_team,
			home_team_id = EXCLUDED.home_team_id,
			home_team_logo = EXCLUDED.home_team_logo,
			away_team = EXCLUDED.away_team,
			away_team_id = EXCLUDED.away_team_id,
			away_team_logo = EXCLUDED.away_team_logo,
			venue = EXCLUDED.venue,
			round = EXCLUDED.round,
			updated_at = NOW()
		RETURNING id, predictions_synced, last_predictions_sync, odds_synced, last_odds_sync,
		          stats_synced, last_stats_sync, created_at, updated_at, (xmax = 0) AS inserted
	`

	var inserted bool
	err := r.db.conn.QueryRow(
		ctx, query,
		match.APIFixtureID, match.LeagueID, match.SeasonYear, match.Date, match.Status,
		match.HomeTeam, match.HomeTeamID, match.HomeTeamLogo,
		match.AwayTeam, match.AwayTeamID, match.AwayTeamLogo,
		match.Venue, match.Round,
	).Scan(
		&match.ID, &match.PredictionsSynced, &match.LastPredictionsSync, &match.OddsSynced, &match.LastOddsSync,
		&match.StatsSynced, &match.LastStatsSync, &match.CreatedAt, &match.UpdatedAt, &inserted,
	)

	if err != nil {
		return false, fmt.Errorf("failed to upsert match: %w", err)
	}

	return inserted, nil
}

// GetByID retrieves a match by its database ID
func (r *MatchRepository) GetByID(ctx context.Context, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches m WHERE m.id = $1`

	match, err := scanMatch(r.db.conn.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("match id=%d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}

	return match, nil
}

// GetByFixtureID retrieves a match by its api-football fixture id
func (r *MatchRepository) GetByFixtureID(ctx context.Context, fixtureID int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches m WHERE m.api_fixture_id = $1`

	match, err := scanMatch(r.db.conn.QueryRow(ctx, query, fixtureID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("match api_fixture_id=%d: %w", fixtureID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}

	return match, nil
}

// ListPendingPredictions retrieves matches whose predictions were never synced
func (r *MatchRepository) ListPendingPredictions(ctx context.Context) ([]*models.Match, error) {
	return r.list(ctx, "pending predictions", `
		SELECT `+matchColumns+`
		FROM matches m
		WHERE NOT m.predictions_synced
		ORDER BY m.date ASC
	`)
}

// ListPendingStats retrieves finished matches with a result but no statistics yet
func (r *MatchRepository) ListPendingStats(ctx context.Context) ([]*models.Match, error) {
	return r.list(ctx, "pending stats", `
		SELECT `+matchColumns+`
		FROM matches m
		JOIN match_results mr ON mr.match_id = m.id
		WHERE NOT m.stats_synced
		  AND m.status IN ('FT', 'AET', 'PEN')
		ORDER BY m.date ASC
	`)
}

// ListPendingOdds retrieves not-started matches in odds-covered seasons whose odds were never synced
func (r *MatchRepository) ListPendingOdds(ctx context.Context) ([]*models.Match, error) {
	return r.list(ctx, "pending odds", `
		SELECT `+matchColumns+`
		FROM matches m
		JOIN seasons s ON s.league_id = m.league_id AND s.year = m.season_year
		WHERE NOT m.odds_synced
		  AND s.has_odds
		  AND m.status = 'NS'
		ORDER BY m.date ASC
	`)
}

func (r *MatchRepository) list(ctx context.Context, what, query string, args ...any) ([]*models.Match, error) {
	rows, err := r.db.conn.Query(ctx, query, args...)
	if err != nil {
		log.Error().Err(err).Str("query", what).Msg("Failed to query matches")
		return nil, fmt.Errorf("failed to list %s matches: %w", what, err)
	}
	defer rows.Close()

	var matches []*models.Match
	for rows.Next() {
		match, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match row: %w", err)
		}
		matches = append(matches, match)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating match rows: %w", err)
	}

	log.Debug().Int("count", len(matches)).Str("query", what).Msg("Matches retrieved")
	return matches, nil
}

// MarkPredictionsSynced flags a match's predictions as synced
func (r *MatchRepository) MarkPredictionsSynced(ctx context.Context, id int, at time.Time) error {
	return r.mark(ctx, id, "predictions_synced", "last_predictions_sync", at)
}

// MarkStatsSynced flags a match's statistics as synced
func (r *MatchRepository) MarkStatsSynced(ctx context.Context, id int, at time.Time) error {
	return r.mark(ctx, id, "stats_synced", "last_stats_sync", at)
}

// MarkOddsSynced flags a match's odds as synced
func (r *MatchRepository) MarkOddsSynced(ctx context.Context, id int, at time.Time) error {
	return r.mark(ctx, id, "odds_synced", "last_odds_sync", at)
}

// mark is only called with the fixed column names above
func (r *MatchRepository) mark(ctx context.Context, id int, flag, stamp string, at time.Time) error {
	query := fmt.Sprintf(`UPDATE matches SET %s = TRUE, %s = $2 WHERE id = $1`, flag, stamp)

	tag, err := r.db.conn.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", flag, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("match id=%d: %w", id, ErrNotFound)
	}
	return nil
}

// CountByStatus returns total, finished (FT) and not-started (NS) match counts
func (r *MatchRepository) CountByStatus(ctx context.Context) (total, finished, upcoming int, err error) {
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'FT'),
		       COUNT(*) FILTER (WHERE status = 'NS')
		FROM matches
	`
	if err = r.db.conn.QueryRow(ctx, query).Scan(&total, &finished, &upcoming); err != nil {
		return 0, 0, 0, fmt.Errorf("failed to count matches: %w", err)
	}
	return total, finished, upcoming, nil
}

// LastUpdated returns the most recent match update time, nil when empty
func (r *MatchRepository) LastUpdated(ctx context.Context) (*time.Time, error) {
	var t sql.NullTime
	if err := r.db.conn.QueryRow(ctx, `SELECT MAX(updated_at) FROM matches`).Scan(&t); err != nil {
		return nil, fmt.Errorf("failed to get last match update: %w", err)
	}
	return nullTimePtr(t), nil
}

// PredictionSyncStatus summarises prediction sync progress over all matches
func (r *MatchRepository) PredictionSyncStatus(ctx context.Context) (*models.PredictionSyncStatus, error) {
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE predictions_synced),
		       MAX(last_predictions_sync)
		FROM matches
	`

	var status models.PredictionSyncStatus
	var last sql.NullTime
	if err := r.db.conn.QueryRow(ctx, query).Scan(&status.TotalMatches, &status.SyncedMatches, &last); err != nil {
		return nil, fmt.Errorf("failed to get prediction sync status: %w", err)
	}
	status.PendingSync = status.TotalMatches - status.SyncedMatches
	status.LastSync = nullTimePtr(last)

	return &status, nil
}
