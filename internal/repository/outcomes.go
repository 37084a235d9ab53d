package repository

import (
	"context"
	"errors"
	"fmt"

	"lonewolfcast/ingestion/internal/models"

	"github.com/jackc/pgx/v5"
)

// OutcomeRepository handles prediction outcome database operations
type OutcomeRepository struct {
	db *Database
}

// EvaluationTarget is a prediction together with its finished match and result
type EvaluationTarget struct {
	Prediction *models.Prediction
	Match      *models.Match
	Result     *models.MatchResult
}

// ListEvaluable returns up to limit predictions with id > afterID whose match
// is finished (FT) and has a result, ordered by prediction id
func (r *OutcomeRepository) ListEvaluable(ctx context.Context, afterID, limit int) ([]*EvaluationTarget, error) {
	query := `
		SELECT p.id, p.match_id, p.winner_id, p.winner_name, p.winner_comment, p.win_or_draw,
		       p.under_over, p.goals_home, p.goals_away, p.advice,
		       p.percent_home, p.percent_draw, p.percent_away, p.created_at, p.updated_at,
		       m.id, m.api_fixture_id, m.status, m.home_team, m.home_team_id, m.away_team, m.away_team_id,
		       mr.id, mr.home_score, mr.away_score, mr.winner_id, mr.has_winner, mr.total_goals
		FROM predictions p
		JOIN matches m ON m.id = p.match_id
		JOIN match_results mr ON mr.match_id = m.id
		WHERE m.status = 'FT'
		  AND p.id > $1
		ORDER BY p.id
		LIMIT $2
	`

	rows, err := r.db.conn.Query(ctx, query, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluable predictions: %w", err)
	}
	defer rows.Close()

	var targets []*EvaluationTarget
	for rows.Next() {
		p := &models.Prediction{}
		m := &models.Match{}
		res := &models.MatchResult{}
		if err := rows.Scan(
			&p.ID, &p.MatchID, &p.WinnerID, &p.WinnerName, &p.WinnerComment, &p.WinOrDraw,
			&p.UnderOver, &p.GoalsHome, &p.GoalsAway, &p.Advice,
			&p.PercentHome, &p.PercentDraw, &p.PercentAway, &p.CreatedAt, &p.UpdatedAt,
			&m.ID, &m.APIFixtureID, &m.Status, &m.HomeTeam, &m.HomeTeamID, &m.AwayTeam, &m.AwayTeamID,
			&res.ID, &res.HomeScore, &res.AwayScore, &res.WinnerID, &res.HasWinner, &res.TotalGoals,
		); err != nil {
			return nil, fmt.Errorf("failed to scan evaluable prediction row: %w", err)
		}
		res.MatchID = m.ID
		targets = append(targets, &EvaluationTarget{Prediction: p, Match: m, Result: res})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating evaluable prediction rows: %w", err)
	}

	return targets, nil
}

// Upsert creates or refreshes the outcome of a prediction
func (r *OutcomeRepository) Upsert(ctx context.Context, o *models.PredictionOutcome) error {
	query := `
		INSERT INTO prediction_outcomes (
			prediction_id, both_teams_scored, winner_prediction_correct,
			win_or_draw_prediction_correct, under_over_prediction_correct,
			goals_prediction_accuracy, pre_match_confidence, form_difference, historical_accuracy
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (prediction_id) DO UPDATE SET
			both_teams_scored = EXCLUDED.both_teams_scored,
			winner_prediction_correct = EXCLUDED.winner_prediction_correct,
			win_or_draw_prediction_correct = EXCLUDED.win_or_draw_prediction_correct,
			under_over_prediction_correct = EXCLUDED.under_over_prediction_correct,
			goals_prediction_accuracy = EXCLUDED.goals_prediction_accuracy,
			pre_match_confidence = EXCLUDED.pre_match_confidence,
			form_difference = EXCLUDED.form_difference,
			historical_accuracy = EXCLUDED.historical_accuracy,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	err := r.db.conn.QueryRow(
		ctx, query,
		o.PredictionID, o.BothTeamsScored, o.WinnerPredictionCorrect,
		o.WinOrDrawPredictionCorrect, o.UnderOverPredictionCorrect,
		o.GoalsPredictionAccuracy, o.PreMatchConfidence, o.FormDifference, o.HistoricalAccuracy,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert prediction outcome: %w", err)
	}

	return nil
}

// GetByPredictionID retrieves the outcome of a prediction
func (r *OutcomeRepository) GetByPredictionID(ctx context.Context, predictionID int) (*models.PredictionOutcome, error) {
	query := `
		SELECT id, prediction_id, both_teams_scored, winner_prediction_correct,
		       win_or_draw_prediction_correct, under_over_prediction_correct,
		       goals_prediction_accuracy, pre_match_confidence, form_difference, historical_accuracy,
		       created_at, updated_at
		FROM prediction_outcomes
		WHERE prediction_id = $1
	`

	var o models.PredictionOutcome
	err := r.db.conn.QueryRow(ctx, query, predictionID).Scan(
		&o.ID, &o.PredictionID, &o.BothTeamsScored, &o.WinnerPredictionCorrect,
		&o.WinOrDrawPredictionCorrect, &o.UnderOverPredictionCorrect,
		&o.GoalsPredictionAccuracy, &o.PreMatchConfidence, &o.FormDifference, &o.HistoricalAccuracy,
		&o.CreatedAt, &o.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("prediction outcome prediction_id=%d: %w", predictionID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get prediction outcome: %w", err)
	}

	return &o, nil
}

// HistoricalAccuracy returns the percentage of outcomes with a correct winner
// among predictions whose advice contains category, case-insensitively.
// Returns 0 when there are no samples.
func (r *OutcomeRepository) HistoricalAccuracy(ctx context.Context, category string) (float64, error) {
	query := `
		SELECT COUNT(*) FILTER (WHERE o.winner_prediction_correct), COUNT(*)
		FROM prediction_outcomes o
		JOIN predictions p ON p.id = o.prediction_id
		WHERE p.advice ILIKE '%' || $1 || '%'
	`

	var correct, total int
	if err := r.db.conn.QueryRow(ctx, query, category).Scan(&correct, &total); err != nil {
		return 0, fmt.Errorf("failed to compute historical accuracy: %w", err)
	}
	if total == 0 {
		return 0, nil
	}

	return float64(correct) / float64(total) * 100, nil
}

// Count returns the number of evaluated predictions
func (r *OutcomeRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.conn.QueryRow(ctx, `SELECT COUNT(*) FROM prediction_outcomes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count prediction outcomes: %w", err)
	}
	return n, nil
}
