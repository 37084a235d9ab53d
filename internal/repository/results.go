package repository

import (
	"context"
	"errors"
	"fmt"

	"lonewolfcast/ingestion/internal/models"

	"github.com/jackc/pgx/v5"
)

// ResultRepository handles match result database operations
type ResultRepository struct {
	db *Database
}

// Upsert inserts or updates the score part of a match result keyed by match.
// Detailed statistics are owned by UpdateStatistics and are not touched here.
func (r *ResultRepository) Upsert(ctx context.Context, result *models.MatchResult) (bool, error) {
	query := `
		INSERT INTO match_results (
			match_id, home_score, away_score, home_halftime_score, away_halftime_score,
			winner_id, has_winner, total_goals
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (match_id) DO UPDATE SET
			home_score = EXCLUDED.home_score,
			away_score = EXCLUDED.away_score,
			home_halftime_score = EXCLUDED.home_halftime_score,
			away_halftime_score = EXCLUDED.away_halftime_score,
			winner_id = EXCLUDED.winner_id,
			has_winner = EXCLUDED.has_winner,
			total_goals = EXCLUDED.total_goals,
			updated_at = NOW()
		RETURNING id, created_at, updated_at, (xmax = 0) AS inserted
	`

	var inserted bool
	err := r.db.conn.QueryRow(
		ctx, query,
		result.MatchID, result.HomeScore, result.AwayScore, result.HomeHalftime, result.AwayHalftime,
		result.WinnerID, result.HasWinner, result.TotalGoals,
	).Scan(&result.ID, &result.CreatedAt, &result.UpdatedAt, &inserted)

	if err != nil {
		return false, fmt.Errorf("failed to upsert match result: %w", err)
	}

	return inserted, nil
}

// UpdateStatistics stores both sides' detailed statistics on an existing result
func (r *ResultRepository) UpdateStatistics(ctx context.Context, matchID int, home, away models.TeamStatistics) error {
	query := `
		UPDATE match_results SET
			home_possession = $2, away_possession = $3,
			home_total_passes = $4, away_total_passes = $5,
			home_accurate_passes = $6, away_accurate_passes = $7,
			home_passes_accuracy = $8, away_passes_accuracy = $9,
			home_shots_total = $10, away_shots_total = $11,
			home_shots_on_target = $12, away_shots_on_target = $13,
			home_shots_off_target = $14, away_shots_off_target = $15,
			home_shots_blocked = $16, away_shots_blocked = $17,
			home_shots_inside_box = $18, away_shots_inside_box = $19,
			home_shots_outside_box = $20, away_shots_outside_box = $21,
			home_corners = $22, away_corners = $23,
			home_offsides = $24, away_offsides = $25,
			home_fouls = $26, away_fouls = $27,
			home_yellow_cards = $28, away_yellow_cards = $29,
			home_red_cards = $30, away_red_cards = $31,
			home_goalkeeper_saves = $32, away_goalkeeper_saves = $33,
			updated_at = NOW()
		WHERE match_id = $1
	`

	tag, err := r.db.conn.Exec(
		ctx, query, matchID,
		home.Possession, away.Possession,
		home.TotalPasses, away.TotalPasses,
		home.AccuratePasses, away.AccuratePasses,
		home.PassesAccuracy, away.PassesAccuracy,
		home.ShotsTotal, away.ShotsTotal,
		home.ShotsOnTarget, away.ShotsOnTarget,
		home.ShotsOffTarget, away.ShotsOffTarget,
		home.ShotsBlocked, away.ShotsBlocked,
		home.ShotsInsideBox, away.ShotsInsideBox,
		home.ShotsOutsideBox, away.ShotsOutsideBox,
		home.Corners, away.Corners,
		home.Offsides, away.Offsides,
		home.Fouls, away.Fouls,
		home.YellowCards, away.YellowCards,
		home.RedCards, away.RedCards,
		home.GoalkeeperSaves, away.GoalkeeperSaves,
	)
	if err != nil {
		return fmt.Errorf("failed to update match statistics: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("match result match_id=%d: %w", matchID, ErrNotFound)
	}

	return nil
}

// GetByMatchID retrieves a match result with its statistics
func (r *ResultRepository) GetByMatchID(ctx context.Context, matchID int) (*models.MatchResult, error) {
	query := `
		SELECT id, match_id, home_score, away_score, home_halftime_score, away_halftime_score,
		       home_possession, away_possession, home_total_passes, away_total_passes,
		       home_shots_total, away_shots_total, home_shots_on_target, away_shots_on_target,
		       home_corners, away_corners, home_yellow_cards, away_yellow_cards,
		       winner_id, has_winner, total_goals, created_at, updated_at
		FROM match_results
		WHERE match_id = $1
	`

	var res models.MatchResult
	err := r.db.conn.QueryRow(ctx, query, matchID).Scan(
		&res.ID, &res.MatchID, &res.HomeScore, &res.AwayScore, &res.HomeHalftime, &res.AwayHalftime,
		&res.Home.Possession, &res.Away.Possession, &res.Home.TotalPasses, &res.Away.TotalPasses,
		&res.Home.ShotsTotal, &res.Away.ShotsTotal, &res.Home.ShotsOnTarget, &res.Away.ShotsOnTarget,
		&res.Home.Corners, &res.Away.Corners, &res.Home.YellowCards, &res.Away.YellowCards,
		&res.WinnerID, &res.HasWinner, &res.TotalGoals, &res.CreatedAt, &res.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("match result match_id=%d: %w", matchID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match result: %w", err)
	}

	return &res, nil
}
