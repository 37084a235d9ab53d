//go:build integration

package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"lonewolfcast/ingestion/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLeague(apiID int) *models.League {
	return &models.League{
		APIID:    apiID,
		Name:     "Test League",
		Country:  sql.NullString{String: "England", Valid: true},
		Type:     sql.NullString{String: "League", Valid: true},
		IsActive: true,
	}
}

// seedMatch creates a league, a current predictions-covered season and one match
func seedMatch(t *testing.T, ctx context.Context, db *Database, fixtureID int, status string) *models.Match {
	t.Helper()

	league, err := db.Leagues.GetByAPIID(ctx, 39)
	if err != nil {
		league = testLeague(39)
		_, err = db.Leagues.Upsert(ctx, league)
		require.NoError(t, err)
		_, err = db.Seasons.Upsert(ctx, &models.Season{
			LeagueID: league.ID, Year: 2024, Current: true, HasPredictions: true, HasOdds: true,
		})
		require.NoError(t, err)
	}

	match := &models.Match{
		APIFixtureID: fixtureID,
		LeagueID:     league.ID,
		SeasonYear:   2024,
		Date:         time.Date(2024, 8, 16, 19, 0, 0, 0, time.UTC),
		Status:       status,
		HomeTeam:     "Manchester United",
		HomeTeamID:   33,
		AwayTeam:     "Fulham",
		AwayTeamID:   36,
	}
	_, err = db.Matches.Upsert(ctx, match)
	require.NoError(t, err)
	return match
}

func TestLeagueRepository_UpsertIsIdempotent(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	league := testLeague(39)
	created, err := db.Leagues.Upsert(ctx, league)
	require.NoError(t, err)
	assert.True(t, created, "First upsert should create")

	league.Name = "Premier League"
	created, err = db.Leagues.Upsert(ctx, league)
	require.NoError(t, err)
	assert.False(t, created, "Second upsert should update")

	n, err := db.Leagues.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	retrieved, err := db.Leagues.GetByAPIID(ctx, 39)
	require.NoError(t, err)
	assert.Equal(t, "Premier League", retrieved.Name)
}

func TestSeasonRepository_ListSyncable(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	league := testLeague(39)
	_, err := db.Leagues.Upsert(ctx, league)
	require.NoError(t, err)

	for _, s := range []*models.Season{
		{LeagueID: league.ID, Year: 2023, HasPredictions: true},
		{LeagueID: league.ID, Year: 2024, Current: true, HasPredictions: true},
		{LeagueID: league.ID, Year: 2022},
	} {
		_, err := db.Seasons.Upsert(ctx, s)
		require.NoError(t, err)
	}

	current, err := db.Seasons.ListSyncable(ctx, true)
	require.NoError(t, err)
	require.Len(t, current, 1)
	assert.Equal(t, 2024, current[0].Year)
	assert.Equal(t, 39, current[0].LeagueAPIID)

	all, err := db.Seasons.ListSyncable(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2, "Seasons without prediction coverage are skipped")

	withPredictions, err := db.Leagues.CountWithPredictions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, withPredictions)

	require.NoError(t, db.Seasons.MarkMatchesSynced(ctx, current[0].SeasonID, time.Now()))
	seasons, err := db.Seasons.ListByLeague(ctx, league.ID)
	require.NoError(t, err)
	assert.Equal(t, 2024, seasons[0].Year)
	assert.True(t, seasons[0].MatchesSynced)
}

func TestMatchRepository_UpsertKeepsSyncFlags(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	match := seedMatch(t, ctx, db, 1208021, models.StatusNotStarted)
	require.NoError(t, db.Matches.MarkPredictionsSynced(ctx, match.ID, time.Now()))

	match.Status = models.StatusFinished
	created, err := db.Matches.Upsert(ctx, match)
	require.NoError(t, err)
	assert.False(t, created)
	assert.True(t, match.PredictionsSynced, "Re-upsert must not reset the sync flag")

	retrieved, err := db.Matches.GetByFixtureID(ctx, 1208021)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFinished, retrieved.Status)
	assert.True(t, retrieved.PredictionsSynced)

	pending, err := db.Matches.ListPendingPredictions(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	status, err := db.Matches.PredictionSyncStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, status.TotalMatches)
	assert.Equal(t, 1, status.SyncedMatches)
	assert.Equal(t, 0, status.PendingSync)
	assert.NotNil(t, status.LastSync)
}

func TestMatchRepository_GetByIDNotFound(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	_, err := db.Matches.GetByID(ctx, 999999)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, db.Matches.MarkStatsSynced(ctx, 999999, time.Now()), ErrNotFound)
}

func TestMatchRepository_PendingQueues(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	upcoming := seedMatch(t, ctx, db, 1, models.StatusNotStarted)
	finished := seedMatch(t, ctx, db, 2, models.StatusFinished)
	_, err := db.Results.Upsert(ctx, &models.MatchResult{MatchID: finished.ID, HomeScore: 1, AwayScore: 0, TotalGoals: 1})
	require.NoError(t, err)

	odds, err := db.Matches.ListPendingOdds(ctx)
	require.NoError(t, err)
	require.Len(t, odds, 1)
	assert.Equal(t, upcoming.ID, odds[0].ID)

	stats, err := db.Matches.ListPendingStats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, finished.ID, stats[0].ID)

	total, fin, up, err := db.Matches.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, 1, fin)
	assert.Equal(t, 1, up)
}

func TestResultRepository_UpsertAndStatistics(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	match := seedMatch(t, ctx, db, 10, models.StatusFinished)
	result := &models.MatchResult{
		MatchID: match.ID, HomeScore: 1, AwayScore: 0, TotalGoals: 1,
		WinnerID: sql.NullInt32{Int32: 33, Valid: true}, HasWinner: true,
	}
	created, err := db.Results.Upsert(ctx, result)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = db.Results.Upsert(ctx, result)
	require.NoError(t, err)
	assert.False(t, created, "Result is unique per match")

	home := models.TeamStatistics{Possession: sql.NullFloat64{Float64: 55, Valid: true}}
	away := models.TeamStatistics{Possession: sql.NullFloat64{Float64: 45, Valid: true}}
	require.NoError(t, db.Results.UpdateStatistics(ctx, match.ID, home, away))

	retrieved, err := db.Results.GetByMatchID(ctx, match.ID)
	require.NoError(t, err)
	assert.Equal(t, 55.0, retrieved.Home.Possession.Float64)
	assert.Equal(t, 45.0, retrieved.Away.Possession.Float64)
	assert.Equal(t, int32(33), retrieved.WinnerID.Int32)
}

func TestPredictionAndOutcomeRepositories(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	match := seedMatch(t, ctx, db, 20, models.StatusFinished)
	_, err := db.Results.Upsert(ctx, &models.MatchResult{
		MatchID: match.ID, HomeScore: 2, AwayScore: 1, TotalGoals: 3,
		WinnerID: sql.NullInt32{Int32: 33, Valid: true}, HasWinner: true,
	})
	require.NoError(t, err)

	p := &models.Prediction{
		MatchID:     match.ID,
		WinnerID:    sql.NullInt32{Int32: 33, Valid: true},
		Advice:      sql.NullString{String: "Double chance : Manchester United or draw", Valid: true},
		PercentHome: 50, PercentDraw: 25, PercentAway: 25,
	}
	require.NoError(t, db.Predictions.Create(ctx, p))
	require.NoError(t, db.Predictions.CreateTeam(ctx, &models.PredictionTeam{PredictionID: p.ID, IsHome: true, TeamID: 33, TeamName: "Manchester United", Last5Form: 60}))
	require.NoError(t, db.Predictions.CreateTeam(ctx, &models.PredictionTeam{PredictionID: p.ID, IsHome: false, TeamID: 36, TeamName: "Fulham", Last5Form: 40}))

	teams, err := db.Predictions.GetTeams(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, teams, 2)

	comparison, err := db.Predictions.GetComparison(ctx, p.ID)
	require.NoError(t, err)
	assert.Nil(t, comparison)

	targets, err := db.Outcomes.ListEvaluable(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, p.ID, targets[0].Prediction.ID)
	assert.Equal(t, 3, targets[0].Result.TotalGoals)

	outcome := &models.PredictionOutcome{PredictionID: p.ID, WinnerPredictionCorrect: true}
	require.NoError(t, db.Outcomes.Upsert(ctx, outcome))
	require.NoError(t, db.Outcomes.Upsert(ctx, outcome))

	n, err := db.Outcomes.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "Outcome is unique per prediction")

	acc, err := db.Outcomes.HistoricalAccuracy(ctx, "double chance")
	require.NoError(t, err)
	assert.Equal(t, 100.0, acc)

	acc, err = db.Outcomes.HistoricalAccuracy(ctx, "Winner")
	require.NoError(t, err)
	assert.Equal(t, 0.0, acc)

	advice, err := db.Predictions.ListAdvice(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Double chance : Manchester United or draw"}, advice)
}

func TestOddsRepository_ReplaceForMatch(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	match := seedMatch(t, ctx, db, 30, models.StatusNotStarted)
	markets := func(odd float64) []*models.OddsBookmaker {
		return []*models.OddsBookmaker{{
			BookmakerID: 8, BookmakerName: "Bet365", BetType: "Match Winner",
			Values: []*models.OddsValue{{Outcome: "Home", Odd: odd}, {Outcome: "Draw", Odd: 3.4}},
		}}
	}

	n, err := db.Odds.ReplaceForMatch(ctx, match.ID, markets(1.85))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = db.Odds.ReplaceForMatch(ctx, match.ID, markets(1.9))
	require.NoError(t, err)

	stored, err := db.Odds.ListForMatch(ctx, match.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.Len(t, stored[0].Values, 2)
	assert.Equal(t, 1.9, stored[0].Values[0].Odd)
}

func TestUsageRepository_IncrementDay(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	day := time.Date(2024, 9, 1, 15, 30, 0, 0, time.UTC)

	calls, err := db.Usage.EnsureDay(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, 0, calls)

	for i := 1; i <= 2; i++ {
		calls, ok, err := db.Usage.IncrementDay(ctx, day, 2)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, i, calls)
	}

	calls, ok, err := db.Usage.IncrementDay(ctx, day, 2)
	require.NoError(t, err)
	assert.False(t, ok, "Limit reached")
	assert.Equal(t, 2, calls)

	usage, err := db.Usage.Get(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, 2, usage.CallsMade)
	assert.Equal(t, time.Date(2024, 9, 2, 0, 0, 0, 0, time.UTC), usage.ResetTime.UTC())

	_, err = db.Usage.Get(ctx, day.Add(48*time.Hour))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUsageRepository_IncrementCreatesDay(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	day := time.Date(2024, 9, 3, 8, 0, 0, 0, time.UTC)

	calls, ok, err := db.Usage.IncrementDay(ctx, day, 5)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, calls, "First increment of a day creates the row at 1")

	calls, err = db.Usage.EnsureDay(ctx, day)
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "EnsureDay leaves an existing row alone")
}
