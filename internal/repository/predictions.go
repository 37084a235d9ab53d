package repository

import (
	"context"
	"errors"
	"fmt"

	"lonewolfcast/ingestion/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// PredictionRepository handles prediction database operations.
// Predictions are append-only; the team snapshots and comparison are owned by
// the prediction and removed with it.
type PredictionRepository struct {
	db *Database
}

// Create inserts a new prediction
func (r *PredictionRepository) Create(ctx context.Context, p *models.Prediction) error {
	query := `
		INSERT INTO predictions (
			match_id, winner_id, winner_name, winner_comment, win_or_draw,
			under_over, goals_home, goals_away, advice,
			percent_home, percent_draw, percent_away
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at
	`

	err := r.db.conn.QueryRow(
		ctx, query,
		p.MatchID, p.WinnerID, p.WinnerName, p.WinnerComment, p.WinOrDraw,
		p.UnderOver, p.GoalsHome, p.GoalsAway, p.Advice,
		p.PercentHome, p.PercentDraw, p.PercentAway,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create prediction: %w", err)
	}

	log.Debug().
		Int("id", p.ID).
		Int("match_id", p.MatchID).
		Str("advice", p.Advice.String).
		Msg("Prediction created")

	return nil
}

// CreateTeam inserts a team snapshot for a prediction
func (r *PredictionRepository) CreateTeam(ctx context.Context, t *models.PredictionTeam) error {
	query := `
		INSERT INTO prediction_teams (
			prediction_id, is_home, team_id, team_name, team_logo,
			last_5_played, last_5_form, last_5_att, last_5_def,
			goals_for_total, goals_for_avg, goals_against_total, goals_against_avg,
			league_form, fixtures_played_home, fixtures_played_away, fixtures_played_total,
			clean_sheet_home, clean_sheet_away, clean_sheet_total,
			failed_to_score_home, failed_to_score_away, failed_to_score_total
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
		RETURNING id, created_at
	`

	err := r.db.conn.QueryRow(
		ctx, query,
		t.PredictionID, t.IsHome, t.TeamID, t.TeamName, t.TeamLogo,
		t.Last5Played, t.Last5Form, t.Last5Att, t.Last5Def,
		t.GoalsForTotal, t.GoalsForAvg, t.GoalsAgainstTotal, t.GoalsAgainstAvg,
		t.LeagueForm, t.FixturesPlayedHome, t.FixturesPlayedAway, t.FixturesPlayedTotal,
		t.CleanSheetHome, t.CleanSheetAway, t.CleanSheetTotal,
		t.FailedToScoreHome, t.FailedToScoreAway, t.FailedToScoreTotal,
	).Scan(&t.ID, &t.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create prediction team: %w", err)
	}

	return nil
}

// CreateComparison inserts the comparison block of a prediction
func (r *PredictionRepository) CreateComparison(ctx context.Context, c *models.PredictionComparison) error {
	query := `
		INSERT INTO prediction_comparisons (
			prediction_id, form_home, form_away, att_home, att_away, def_home, def_away,
			poisson_distribution_home, poisson_distribution_away, h2h_home, h2h_away,
			goals_home, goals_away, total_home, total_away
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING id, created_at
	`

	err := r.db.conn.QueryRow(
		ctx, query,
		c.PredictionID, c.FormHome, c.FormAway, c.AttHome, c.AttAway, c.DefHome, c.DefAway,
		c.PoissonHome, c.PoissonAway, c.H2HHome, c.H2HAway,
		c.GoalsHome, c.GoalsAway, c.TotalHome, c.TotalAway,
	).Scan(&c.ID, &c.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create prediction comparison: %w", err)
	}

	return nil
}

// GetTeams retrieves the team snapshots of a prediction, away first then home
func (r *PredictionRepository) GetTeams(ctx context.Context, predictionID int) ([]*models.PredictionTeam, error) {
	query := `
		SELECT id, prediction_id, is_home, team_id, team_name, team_logo,
		       last_5_played, last_5_form, last_5_att, last_5_def,
		       goals_for_total, goals_for_avg, goals_against_total, goals_against_avg,
		       league_form, fixtures_played_home, fixtures_played_away, fixtures_played_total,
		       clean_sheet_home, clean_sheet_away, clean_sheet_total,
		       failed_to_score_home, failed_to_score_away, failed_to_score_total,
		       created_at
		FROM prediction_teams
		WHERE prediction_id = $1
		ORDER BY is_home
	`

	rows, err := r.db.conn.Query(ctx, query, predictionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get prediction teams: %w", err)
	}
	defer rows.Close()

	var teams []*models.PredictionTeam
	for rows.Next() {
		t := &models.PredictionTeam{}
		if err := rows.Scan(
			&t.ID, &t.PredictionID, &t.IsHome, &t.TeamID, &t.TeamName, &t.TeamLogo,
			&t.Last5Played, &t.Last5Form, &t.Last5Att, &t.Last5Def,
			&t.GoalsForTotal, &t.GoalsForAvg, &t.GoalsAgainstTotal, &t.GoalsAgainstAvg,
			&t.LeagueForm, &t.FixturesPlayedHome, &t.FixturesPlayedAway, &t.FixturesPlayedTotal,
			&t.CleanSheetHome, &t.CleanSheetAway, &t.CleanSheetTotal,
			&t.FailedToScoreHome, &t.FailedToScoreAway, &t.FailedToScoreTotal,
			&t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan prediction team row: %w", err)
		}
		teams = append(teams, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prediction team rows: %w", err)
	}

	return teams, nil
}

// GetComparison retrieves the comparison block of a prediction
func (r *PredictionRepository) GetComparison(ctx context.Context, predictionID int) (*models.PredictionComparison, error) {
	query := `
		SELECT id, prediction_id, form_home, form_away, att_home, att_away, def_home, def_away,
		       poisson_distribution_home, poisson_distribution_away, h2h_home, h2h_away,
		       goals_home, goals_away, total_home, total_away, created_at
		FROM prediction_comparisons
		WHERE prediction_id = $1
	`

	var c models.PredictionComparison
	err := r.db.conn.QueryRow(ctx, query, predictionID).Scan(
		&c.ID, &c.PredictionID, &c.FormHome, &c.FormAway, &c.AttHome, &c.AttAway, &c.DefHome, &c.DefAway,
		&c.PoissonHome, &c.PoissonAway, &c.H2HHome, &c.H2HAway,
		&c.GoalsHome, &c.GoalsAway, &c.TotalHome, &c.TotalAway, &c.CreatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil // Older predictions may have no comparison block
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get prediction comparison: %w", err)
	}

	return &c, nil
}

// CountForMatch returns how many predictions were stored for a match
func (r *PredictionRepository) CountForMatch(ctx context.Context, matchID int) (int, error) {
	var n int
	if err := r.db.conn.QueryRow(ctx, `SELECT COUNT(*) FROM predictions WHERE match_id = $1`, matchID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count predictions: %w", err)
	}
	return n, nil
}

// ListAdvice returns every non-empty advice string
func (r *PredictionRepository) ListAdvice(ctx context.Context) ([]string, error) {
	rows, err := r.db.conn.Query(ctx, `SELECT advice FROM predictions WHERE advice IS NOT NULL AND advice <> ''`)
	if err != nil {
		return nil, fmt.Errorf("failed to list advice: %w", err)
	}
	defer rows.Close()

	var advice []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, fmt.Errorf("failed to scan advice row: %w", err)
		}
		advice = append(advice, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating advice rows: %w", err)
	}

	return advice, nil
}
