//go:build integration

package outcome

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"lonewolfcast/ingestion/internal/models"
	"lonewolfcast/ingestion/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run with: go test -v -tags=integration ./internal/outcome/...

func setupTestDB(t *testing.T) (*repository.Database, context.Context) {
	ctx := context.Background()

	db, err := repository.NewDatabase(ctx, repository.Config{
		Host:     "localhost",
		Port:     "5432",
		Database: "lonewolfcast_test",
		User:     "lonewolfcast",
		Password: "lonewolfcast",
		SSLMode:  "disable",
	})
	require.NoError(t, err, "Failed to connect to test database")
	t.Cleanup(db.Close)

	_, err = db.Migrate(ctx)
	require.NoError(t, err)
	_, err = db.Pool.Exec(ctx, `TRUNCATE leagues, matches, predictions RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	return db, ctx
}

func seedFinished(t *testing.T, ctx context.Context, db *repository.Database, fixtureID, home, away int, status string) int {
	t.Helper()

	league, err := db.Leagues.GetByAPIID(ctx, 39)
	if err != nil {
		league = &models.League{APIID: 39, Name: "Premier League", IsActive: true}
		_, err = db.Leagues.Upsert(ctx, league)
		require.NoError(t, err)
	}

	match := &models.Match{
		APIFixtureID: fixtureID, LeagueID: league.ID, SeasonYear: 2024,
		Date: time.Date(2024, 8, 16, 19, 0, 0, 0, time.UTC), Status: status,
		HomeTeam: "Arsenal", HomeTeamID: 42, AwayTeam: "Chelsea", AwayTeamID: 49,
	}
	_, err = db.Matches.Upsert(ctx, match)
	require.NoError(t, err)

	_, err = db.Results.Upsert(ctx, &models.MatchResult{MatchID: match.ID, HomeScore: home, AwayScore: away, TotalGoals: home + away})
	require.NoError(t, err)

	p := &models.Prediction{
		MatchID:    match.ID,
		WinnerID:   sql.NullInt32{Int32: 42, Valid: true},
		WinnerName: sql.NullString{String: "Arsenal", Valid: true},
		UnderOver:  sql.NullString{String: "2.5 over", Valid: true},
		GoalsHome:  sql.NullString{String: "2", Valid: true},
		GoalsAway:  sql.NullString{String: "1", Valid: true},
		Advice:     sql.NullString{String: "Winner : Arsenal", Valid: true},
	}
	require.NoError(t, db.Predictions.Create(ctx, p))
	return p.ID
}

func TestService_EvaluateAll(t *testing.T) {
	db, ctx := setupTestDB(t)

	first := seedFinished(t, ctx, db, 1, 2, 1, models.StatusFinished)
	second := seedFinished(t, ctx, db, 2, 0, 1, models.StatusFinished)
	seedFinished(t, ctx, db, 3, 1, 0, models.StatusAfterExtraTime)

	svc := NewService(db, 1)
	stats, err := svc.EvaluateAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalProcessed, "Only FT matches are evaluated")
	assert.Equal(t, 2, stats.SuccessfulEvaluations)
	assert.Empty(t, stats.Errors)

	o, err := db.Outcomes.GetByPredictionID(ctx, first)
	require.NoError(t, err)
	assert.True(t, o.WinnerPredictionCorrect)
	assert.Equal(t, 100.0, o.GoalsPredictionAccuracy)
	assert.True(t, o.UnderOverPredictionCorrect.Bool)
	assert.Equal(t, 0.0, o.HistoricalAccuracy, "No prior samples")

	o, err = db.Outcomes.GetByPredictionID(ctx, second)
	require.NoError(t, err)
	assert.False(t, o.WinnerPredictionCorrect)
	assert.Equal(t, 100.0, o.HistoricalAccuracy, "First outcome of the category was correct")

	// Re-running refreshes rather than duplicates
	stats, err = svc.EvaluateAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.SuccessfulEvaluations)
	n, err := db.Outcomes.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	categories, err := svc.AdviceCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.AdviceCategoryCount{{Category: "Winner", Count: 3}}, categories)
}

// rejectOutcome makes every outcome write for predictionID fail inside Postgres
func rejectOutcome(t *testing.T, ctx context.Context, db *repository.Database, predictionID int) {
	t.Helper()

	_, err := db.Pool.Exec(ctx, fmt.Sprintf(`
		CREATE OR REPLACE FUNCTION reject_outcome() RETURNS trigger AS $$
		BEGIN
			IF NEW.prediction_id = %d THEN
				RAISE EXCEPTION 'outcome rejected for prediction %%', NEW.prediction_id;
			END IF;
			RETURN NEW;
		END
		$$ LANGUAGE plpgsql;
		DROP TRIGGER IF EXISTS reject_outcome ON prediction_outcomes;
		CREATE TRIGGER reject_outcome BEFORE INSERT OR UPDATE ON prediction_outcomes
			FOR EACH ROW EXECUTE FUNCTION reject_outcome();
	`, predictionID))
	require.NoError(t, err)

	t.Cleanup(func() {
		_, err := db.Pool.Exec(context.Background(), `
			DROP TRIGGER IF EXISTS reject_outcome ON prediction_outcomes;
			DROP FUNCTION IF EXISTS reject_outcome();
		`)
		assert.NoError(t, err)
	})
}

func TestService_EvaluateAllKeepsBatchOnFailure(t *testing.T) {
	db, ctx := setupTestDB(t)

	first := seedFinished(t, ctx, db, 1, 2, 1, models.StatusFinished)
	failing := seedFinished(t, ctx, db, 2, 0, 1, models.StatusFinished)
	third := seedFinished(t, ctx, db, 3, 1, 1, models.StatusFinished)
	rejectOutcome(t, ctx, db, failing)

	// One batch, so the failure happens between two writes of the same transaction
	stats, err := NewService(db, 10).EvaluateAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalProcessed)
	assert.Equal(t, 2, stats.SuccessfulEvaluations)
	require.Len(t, stats.Errors, 1)
	assert.Contains(t, stats.Errors[0], fmt.Sprintf("prediction %d", failing))

	for _, id := range []int{first, third} {
		_, err := db.Outcomes.GetByPredictionID(ctx, id)
		assert.NoError(t, err, "prediction %d", id)
	}
	_, err = db.Outcomes.GetByPredictionID(ctx, failing)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	n, err := db.Outcomes.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
