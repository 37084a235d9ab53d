package models

import (
	"database/sql"
	"fmt"
	"time"
)

// Fixture status short codes as reported by api-football
const (
	StatusNotStarted     = "NS"
	StatusFinished       = "FT"
	StatusAfterExtraTime = "AET"
	StatusPenalties      = "PEN"
)

// Match represents a football fixture
type Match struct {
	ID           int            `db:"id"`
	APIFixtureID int            `db:"api_fixture_id"`
	LeagueID     int            `db:"league_id"`
	SeasonYear   int            `db:"season_year"`
	Date         time.Time      `db:"date"`
	Status       string         `db:"status"`
	HomeTeam     string         `db:"home_team"`
	HomeTeamID   int            `db:"home_team_id"`
	HomeTeamLogo sql.NullString `db:"home_team_logo"`
	AwayTeam     string         `db:"away_team"`
	AwayTeamID   int            `db:"away_team_id"`
	AwayTeamLogo sql.NullString `db:"away_team_logo"`
	Venue        sql.NullString `db:"venue"`
	Round        sql.NullString `db:"round"`

	// Sync flags
	PredictionsSynced   bool         `db:"predictions_synced"`
	LastPredictionsSync sql.NullTime `db:"last_predictions_sync"`
	OddsSynced          bool         `db:"odds_synced"`
	LastOddsSync        sql.NullTime `db:"last_odds_sync"`
	StatsSynced         bool         `db:"stats_synced"`
	LastStatsSync       sql.NullTime `db:"last_stats_sync"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// IsFinished returns true once the fixture has a final score
func (m *Match) IsFinished() bool {
	return IsFinishedStatus(m.Status)
}

// IsFinishedStatus reports whether a short status code means the match is over
func IsFinishedStatus(status string) bool {
	switch status {
	case StatusFinished, StatusAfterExtraTime, StatusPenalties:
		return true
	}
	return false
}

// MatchResult holds the final score and per-side statistics of a match
type MatchResult struct {
	ID           int           `db:"id"`
	MatchID      int           `db:"match_id"`
	HomeScore    int           `db:"home_score"`
	AwayScore    int           `db:"away_score"`
	HomeHalftime sql.NullInt32 `db:"home_halftime_score"`
	AwayHalftime sql.NullInt32 `db:"away_halftime_score"`

	Home TeamStatistics
	Away TeamStatistics

	WinnerID   sql.NullInt32 `db:"winner_id"`
	HasWinner  bool          `db:"has_winner"`
	TotalGoals int           `db:"total_goals"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// FixtureInput is one entry of the /fixtures endpoint
type FixtureInput struct {
	Fixture FixtureInfo      `json:"fixture"`
	League  FixtureLeague    `json:"league"`
	Teams   FixtureTeams     `json:"teams"`
	Goals   ScorePair        `json:"goals"`
	Score   FixtureScoreInfo `json:"score"`
}

// FixtureInfo is the fixture block of a /fixtures entry
type FixtureInfo struct {
	ID        int           `json:"id"`
	Date      string        `json:"date"`
	Timestamp int64         `json:"timestamp"`
	Venue     FixtureVenue  `json:"venue"`
	Status    FixtureStatus `json:"status"`
}

// FixtureVenue is the stadium a fixture is played at
type FixtureVenue struct {
	ID   *int    `json:"id"`
	Name *string `json:"name"`
	City *string `json:"city"`
}

// FixtureStatus is the status block of a fixture
type FixtureStatus struct {
	Long    string `json:"long"`
	Short   string `json:"short"`
	Elapsed *int   `json:"elapsed"`
}

// FixtureLeague is the league block of a /fixtures entry
type FixtureLeague struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Season int    `json:"season"`
	Round  string `json:"round"`
}

// FixtureTeams holds both sides of a fixture
type FixtureTeams struct {
	Home FixtureTeam `json:"home"`
	Away FixtureTeam `json:"away"`
}

// FixtureTeam is one side of a fixture
type FixtureTeam struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Logo   string `json:"logo"`
	Winner *bool  `json:"winner"`
}

// ScorePair is a home/away goal count, either side may be null before kick-off
type ScorePair struct {
	Home *int `json:"home"`
	Away *int `json:"away"`
}

// FixtureScoreInfo breaks the score down by period
type FixtureScoreInfo struct {
	Halftime  ScorePair `json:"halftime"`
	Fulltime  ScorePair `json:"fulltime"`
	Extratime ScorePair `json:"extratime"`
	Penalty   ScorePair `json:"penalty"`
}

// Validate checks the fields the match sync depends on
func (fi *FixtureInput) Validate() error {
	if fi.Fixture.ID <= 0 {
		return fmt.Errorf("fixture.id missing")
	}
	if fi.Fixture.Status.Short == "" {
		return fmt.Errorf("fixture.status.short missing for fixture %d", fi.Fixture.ID)
	}
	if _, err := time.Parse(time.RFC3339, fi.Fixture.Date); err != nil {
		return fmt.Errorf("fixture.date invalid for fixture %d: %w", fi.Fixture.ID, err)
	}
	if fi.Teams.Home.Name == "" || fi.Teams.Away.Name == "" {
		return fmt.Errorf("team names missing for fixture %d", fi.Fixture.ID)
	}
	return nil
}

// ToMatch converts FixtureInput (from API) to Match model
// Note: leagueID is the database id, not the api-football id
func (fi *FixtureInput) ToMatch(leagueID, seasonYear int) *Match {
	match := &Match{
		APIFixtureID: fi.Fixture.ID,
		LeagueID:     leagueID,
		SeasonYear:   seasonYear,
		Status:       fi.Fixture.Status.Short,
		HomeTeam:     fi.Teams.Home.Name,
		HomeTeamID:   fi.Teams.Home.ID,
		HomeTeamLogo: nullString(fi.Teams.Home.Logo),
		AwayTeam:     fi.Teams.Away.Name,
		AwayTeamID:   fi.Teams.Away.ID,
		AwayTeamLogo: nullString(fi.Teams.Away.Logo),
		Round:        nullString(fi.League.Round),
	}

	if t, err := time.Parse(time.RFC3339, fi.Fixture.Date); err == nil {
		match.Date = t.UTC()
	}

	if fi.Fixture.Venue.Name != nil {
		match.Venue = nullString(*fi.Fixture.Venue.Name)
	}

	return match
}

// ToResult builds the final result once the fixture is finished.
// Returns false while the match is still open or goals are missing.
func (fi *FixtureInput) ToResult(matchID int) (*MatchResult, bool) {
	if !IsFinishedStatus(fi.Fixture.Status.Short) || fi.Goals.Home == nil || fi.Goals.Away == nil {
		return nil, false
	}

	result := &MatchResult{
		MatchID:    matchID,
		HomeScore:  *fi.Goals.Home,
		AwayScore:  *fi.Goals.Away,
		TotalGoals: *fi.Goals.Home + *fi.Goals.Away,
	}

	if fi.Score.Halftime.Home != nil {
		result.HomeHalftime = sql.NullInt32{Int32: int32(*fi.Score.Halftime.Home), Valid: true}
	}
	if fi.Score.Halftime.Away != nil {
		result.AwayHalftime = sql.NullInt32{Int32: int32(*fi.Score.Halftime.Away), Valid: true}
	}

	switch {
	case result.HomeScore > result.AwayScore:
		result.WinnerID = sql.NullInt32{Int32: int32(fi.Teams.Home.ID), Valid: true}
		result.HasWinner = true
	case result.AwayScore > result.HomeScore:
		result.WinnerID = sql.NullInt32{Int32: int32(fi.Teams.Away.ID), Valid: true}
		result.HasWinner = true
	}

	return result, true
}
