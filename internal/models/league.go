package models

import (
	"database/sql"
	"fmt"
	"time"
)

// League represents a football competition
type League struct {
	ID        int            `db:"id"`
	APIID     int            `db:"api_id"`
	Name      string         `db:"name"`
	Country   sql.NullString `db:"country"`
	Logo      sql.NullString `db:"logo"`
	Flag      sql.NullString `db:"flag"`
	Type      sql.NullString `db:"type"`
	IsActive  bool           `db:"is_active"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

// Season represents one year of a league and its API coverage
type Season struct {
	ID             int          `db:"id"`
	LeagueID       int          `db:"league_id"`
	Year           int          `db:"year"`
	StartDate      sql.NullTime `db:"start_date"`
	EndDate        sql.NullTime `db:"end_date"`
	Current        bool         `db:"current"`
	HasPredictions bool         `db:"has_predictions"`
	HasOdds        bool         `db:"has_odds"`
	MatchesSynced  bool         `db:"matches_synced"`
	LastMatchSync  sql.NullTime `db:"last_match_sync"`
	CreatedAt      time.Time    `db:"created_at"`
	UpdatedAt      time.Time    `db:"updated_at"`
}

// LeagueSeason pairs a league's external id with one of its seasons
type LeagueSeason struct {
	LeagueID    int
	LeagueAPIID int
	LeagueName  string
	SeasonID    int
	Year        int
}

// LeagueInput is one entry of the /leagues endpoint
type LeagueInput struct {
	League  LeagueInfo    `json:"league"`
	Country CountryInfo   `json:"country"`
	Seasons []SeasonInput `json:"seasons"`
}

// LeagueInfo is the league block of a /leagues entry
type LeagueInfo struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
	Logo string `json:"logo"`
}

// CountryInfo is the country block of a /leagues entry
type CountryInfo struct {
	Name string  `json:"name"`
	Code *string `json:"code"`
	Flag *string `json:"flag"`
}

// SeasonInput is one season of a /leagues entry
type SeasonInput struct {
	Year     int      `json:"year"`
	Start    string   `json:"start"`
	End      string   `json:"end"`
	Current  bool     `json:"current"`
	Coverage Coverage `json:"coverage"`
}

// Coverage lists which datasets the API offers for a season
type Coverage struct {
	Predictions bool `json:"predictions"`
	Odds        bool `json:"odds"`
}

// Validate checks the fields the league sync depends on
func (li *LeagueInput) Validate() error {
	if li.League.ID <= 0 {
		return fmt.Errorf("league.id missing")
	}
	if li.League.Name == "" {
		return fmt.Errorf("league.name missing for league %d", li.League.ID)
	}
	for _, s := range li.Seasons {
		if s.Year <= 0 {
			return fmt.Errorf("season year missing for league %d", li.League.ID)
		}
	}
	return nil
}

// ToLeague converts LeagueInput (from API) to League model
func (li *LeagueInput) ToLeague(active bool) *League {
	league := &League{
		APIID:    li.League.ID,
		Name:     li.League.Name,
		Country:  nullString(li.Country.Name),
		Logo:     nullString(li.League.Logo),
		Type:     nullString(li.League.Type),
		IsActive: active,
	}
	if li.Country.Flag != nil {
		league.Flag = nullString(*li.Country.Flag)
	}
	return league
}

// ToSeason converts SeasonInput (from API) to Season model
func (si *SeasonInput) ToSeason(leagueID int) *Season {
	return &Season{
		LeagueID:       leagueID,
		Year:           si.Year,
		StartDate:      parseDate(si.Start),
		EndDate:        parseDate(si.End),
		Current:        si.Current,
		HasPredictions: si.Coverage.Predictions,
		HasOdds:        si.Coverage.Odds,
	}
}

func parseDate(s string) sql.NullTime {
	if s == "" {
		return sql.NullTime{}
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
