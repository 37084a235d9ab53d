package models

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"
)

// Prediction is the API's pre-match prediction for a match
type Prediction struct {
	ID      int `db:"id"`
	MatchID int `db:"match_id"`

	// Winner
	WinnerID      sql.NullInt32  `db:"winner_id"`
	WinnerName    sql.NullString `db:"winner_name"`
	WinnerComment sql.NullString `db:"winner_comment"`
	WinOrDraw     bool           `db:"win_or_draw"`

	// Goals, kept as the raw strings the API sends ("-2.5", "1.5", ...)
	UnderOver sql.NullString `db:"under_over"`
	GoalsHome sql.NullString `db:"goals_home"`
	GoalsAway sql.NullString `db:"goals_away"`

	Advice      sql.NullString `db:"advice"`
	PercentHome float64        `db:"percent_home"`
	PercentDraw float64        `db:"percent_draw"`
	PercentAway float64        `db:"percent_away"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// PredictionTeam is a per-side form snapshot taken with the prediction
type PredictionTeam struct {
	ID           int            `db:"id"`
	PredictionID int            `db:"prediction_id"`
	IsHome       bool           `db:"is_home"`
	TeamID       int            `db:"team_id"`
	TeamName     string         `db:"team_name"`
	TeamLogo     sql.NullString `db:"team_logo"`

	// Last five matches
	Last5Played       int     `db:"last_5_played"`
	Last5Form         float64 `db:"last_5_form"`
	Last5Att          float64 `db:"last_5_att"`
	Last5Def          float64 `db:"last_5_def"`
	GoalsForTotal     int     `db:"goals_for_total"`
	GoalsForAvg       float64 `db:"goals_for_avg"`
	GoalsAgainstTotal int     `db:"goals_against_total"`
	GoalsAgainstAvg   float64 `db:"goals_against_avg"`

	// League season
	LeagueForm          sql.NullString `db:"league_form"`
	FixturesPlayedHome  int            `db:"fixtures_played_home"`
	FixturesPlayedAway  int            `db:"fixtures_played_away"`
	FixturesPlayedTotal int            `db:"fixtures_played_total"`
	CleanSheetHome      int            `db:"clean_sheet_home"`
	CleanSheetAway      int            `db:"clean_sheet_away"`
	CleanSheetTotal     int            `db:"clean_sheet_total"`
	FailedToScoreHome   int            `db:"failed_to_score_home"`
	FailedToScoreAway   int            `db:"failed_to_score_away"`
	FailedToScoreTotal  int            `db:"failed_to_score_total"`

	CreatedAt time.Time `db:"created_at"`
}

// PredictionComparison holds paired home/away percentages
type PredictionComparison struct {
	ID           int     `db:"id"`
	PredictionID int     `db:"prediction_id"`
	FormHome     float64 `db:"form_home"`
	FormAway     float64 `db:"form_away"`
	AttHome      float64 `db:"att_home"`
	AttAway      float64 `db:"att_away"`
	DefHome      float64 `db:"def_home"`
	DefAway      float64 `db:"def_away"`
	PoissonHome  float64 `db:"poisson_distribution_home"`
	PoissonAway  float64 `db:"poisson_distribution_away"`
	H2HHome      float64 `db:"h2h_home"`
	H2HAway      float64 `db:"h2h_away"`
	GoalsHome    float64 `db:"goals_home"`
	GoalsAway    float64 `db:"goals_away"`
	TotalHome    float64 `db:"total_home"`
	TotalAway    float64 `db:"total_away"`

	CreatedAt time.Time `db:"created_at"`
}

// PredictionOutcome is the post-match scoring of a prediction
type PredictionOutcome struct {
	ID                         int          `db:"id"`
	PredictionID               int          `db:"prediction_id"`
	BothTeamsScored            bool         `db:"both_teams_scored"`
	WinnerPredictionCorrect    bool         `db:"winner_prediction_correct"`
	WinOrDrawPredictionCorrect sql.NullBool `db:"win_or_draw_prediction_correct"`
	UnderOverPredictionCorrect sql.NullBool `db:"under_over_prediction_correct"`
	GoalsPredictionAccuracy    float64      `db:"goals_prediction_accuracy"`
	PreMatchConfidence         float64      `db:"pre_match_confidence"`
	FormDifference             float64      `db:"form_difference"`
	HistoricalAccuracy         float64      `db:"historical_accuracy"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// PredictionInput is one entry of the /predictions endpoint
type PredictionInput struct {
	Predictions PredictionData       `json:"predictions"`
	Teams       PredictionTeamsInput `json:"teams"`
	Comparison  ComparisonInput      `json:"comparison"`
}

// PredictionData is the predictions block of a /predictions entry
type PredictionData struct {
	Winner    PredictionWinner `json:"winner"`
	WinOrDraw bool             `json:"win_or_draw"`
	UnderOver *string          `json:"under_over"`
	Goals     PredictionGoals  `json:"goals"`
	Advice    *string          `json:"advice"`
	Percent   PercentSplit     `json:"percent"`
}

// PredictionWinner is the predicted winning side, null for a predicted draw
type PredictionWinner struct {
	ID      *int    `json:"id"`
	Name    *string `json:"name"`
	Comment *string `json:"comment"`
}

// PredictionGoals holds the predicted goal ranges
type PredictionGoals struct {
	Home *string `json:"home"`
	Away *string `json:"away"`
}

// PercentSplit is a home/draw/away percentage triple such as "45%"
type PercentSplit struct {
	Home string `json:"home"`
	Draw string `json:"draw"`
	Away string `json:"away"`
}

// PredictionTeamsInput holds both team snapshots
type PredictionTeamsInput struct {
	Home PredictionTeamInput `json:"home"`
	Away PredictionTeamInput `json:"away"`
}

// PredictionTeamInput is one team snapshot of a /predictions entry
type PredictionTeamInput struct {
	ID     int             `json:"id"`
	Name   string          `json:"name"`
	Logo   string          `json:"logo"`
	Last5  LastFiveInput   `json:"last_5"`
	League TeamLeagueInput `json:"league"`
}

// LastFiveInput summarises a team's last five matches
type LastFiveInput struct {
	Played int           `json:"played"`
	Form   string        `json:"form"`
	Att    string        `json:"att"`
	Def    string        `json:"def"`
	Goals  LastFiveGoals `json:"goals"`
}

// LastFiveGoals holds goals scored and conceded over the last five matches
type LastFiveGoals struct {
	For     GoalTotals `json:"for"`
	Against GoalTotals `json:"against"`
}

// GoalTotals is a goal count with its average, the API sends averages as strings
type GoalTotals struct {
	Total   int    `json:"total"`
	Average string `json:"average"`
}

// TeamLeagueInput is the league-season block of a team snapshot
type TeamLeagueInput struct {
	Form          *string        `json:"form"`
	Fixtures      LeagueFixtures `json:"fixtures"`
	CleanSheet    HomeAwayTotal  `json:"clean_sheet"`
	FailedToScore HomeAwayTotal  `json:"failed_to_score"`
}

// LeagueFixtures counts league fixtures by venue
type LeagueFixtures struct {
	Played HomeAwayTotal `json:"played"`
}

// HomeAwayTotal is a home/away/total integer triple
type HomeAwayTotal struct {
	Home  int `json:"home"`
	Away  int `json:"away"`
	Total int `json:"total"`
}

// ComparisonInput is the comparison block of a /predictions entry
type ComparisonInput struct {
	Form                HomeAwayPercent `json:"form"`
	Att                 HomeAwayPercent `json:"att"`
	Def                 HomeAwayPercent `json:"def"`
	PoissonDistribution HomeAwayPercent `json:"poisson_distribution"`
	H2H                 HomeAwayPercent `json:"h2h"`
	Goals               HomeAwayPercent `json:"goals"`
	Total               HomeAwayPercent `json:"total"`
}

// HomeAwayPercent is a home/away percentage pair such as "60%"
type HomeAwayPercent struct {
	Home string `json:"home"`
	Away string `json:"away"`
}

// Validate checks that every percentage and average parses, so that the
// conversions below cannot fail half-way through a transaction
func (pi *PredictionInput) Validate() error {
	for name, s := range map[string]string{
		"percent.home": pi.Predictions.Percent.Home,
		"percent.draw": pi.Predictions.Percent.Draw,
		"percent.away": pi.Predictions.Percent.Away,
	} {
		if _, err := ParsePercent(s); err != nil {
			return fmt.Errorf("predictions.%s %q: %w", name, s, err)
		}
	}

	for side, team := range map[string]PredictionTeamInput{"home": pi.Teams.Home, "away": pi.Teams.Away} {
		if team.ID <= 0 {
			return fmt.Errorf("teams.%s.id missing", side)
		}
		for name, s := range map[string]string{
			"form": team.Last5.Form,
			"att":  team.Last5.Att,
			"def":  team.Last5.Def,
		} {
			if _, err := ParsePercent(s); err != nil {
				return fmt.Errorf("teams.%s.last_5.%s %q: %w", side, name, s, err)
			}
		}
		for name, s := range map[string]string{
			"for":     team.Last5.Goals.For.Average,
			"against": team.Last5.Goals.Against.Average,
		} {
			if _, err := strconv.ParseFloat(s, 64); err != nil {
				return fmt.Errorf("teams.%s.last_5.goals.%s.average %q: %w", side, name, s, err)
			}
		}
	}

	c := pi.Comparison
	for name, pair := range map[string]HomeAwayPercent{
		"form":                 c.Form,
		"att":                  c.Att,
		"def":                  c.Def,
		"poisson_distribution": c.PoissonDistribution,
		"h2h":                  c.H2H,
		"goals":                c.Goals,
		"total":                c.Total,
	} {
		if _, err := ParsePercent(pair.Home); err != nil {
			return fmt.Errorf("comparison.%s.home %q: %w", name, pair.Home, err)
		}
		if _, err := ParsePercent(pair.Away); err != nil {
			return fmt.Errorf("comparison.%s.away %q: %w", name, pair.Away, err)
		}
	}

	return nil
}

// ToPrediction converts PredictionInput (from API) to Prediction model.
// Call Validate first; unparsable percentages become 0.
func (pi *PredictionInput) ToPrediction(matchID int) *Prediction {
	p := pi.Predictions
	pred := &Prediction{
		MatchID:     matchID,
		WinOrDraw:   p.WinOrDraw,
		UnderOver:   nullStringPtr(p.UnderOver),
		GoalsHome:   nullStringPtr(p.Goals.Home),
		GoalsAway:   nullStringPtr(p.Goals.Away),
		Advice:      nullStringPtr(p.Advice),
		WinnerName:  nullStringPtr(p.Winner.Name),
		PercentHome: percent(p.Percent.Home),
		PercentDraw: percent(p.Percent.Draw),
		PercentAway: percent(p.Percent.Away),
	}
	if p.Winner.ID != nil {
		pred.WinnerID = sql.NullInt32{Int32: int32(*p.Winner.ID), Valid: true}
	}
	if p.Winner.Comment != nil {
		pred.WinnerComment = nullString(*p.Winner.Comment)
	}
	return pred
}

// ToTeams converts both team snapshots, home first
func (pi *PredictionInput) ToTeams(predictionID int) []*PredictionTeam {
	return []*PredictionTeam{
		pi.Teams.Home.toTeam(predictionID, true),
		pi.Teams.Away.toTeam(predictionID, false),
	}
}

func (ti *PredictionTeamInput) toTeam(predictionID int, isHome bool) *PredictionTeam {
	return &PredictionTeam{
		PredictionID:        predictionID,
		IsHome:              isHome,
		TeamID:              ti.ID,
		TeamName:            ti.Name,
		TeamLogo:            nullString(ti.Logo),
		Last5Played:         ti.Last5.Played,
		Last5Form:           percent(ti.Last5.Form),
		Last5Att:            percent(ti.Last5.Att),
		Last5Def:            percent(ti.Last5.Def),
		GoalsForTotal:       ti.Last5.Goals.For.Total,
		GoalsForAvg:         average(ti.Last5.Goals.For.Average),
		GoalsAgainstTotal:   ti.Last5.Goals.Against.Total,
		GoalsAgainstAvg:     average(ti.Last5.Goals.Against.Average),
		LeagueForm:          nullStringPtr(ti.League.Form),
		FixturesPlayedHome:  ti.League.Fixtures.Played.Home,
		FixturesPlayedAway:  ti.League.Fixtures.Played.Away,
		FixturesPlayedTotal: ti.League.Fixtures.Played.Total,
		CleanSheetHome:      ti.League.CleanSheet.Home,
		CleanSheetAway:      ti.League.CleanSheet.Away,
		CleanSheetTotal:     ti.League.CleanSheet.Total,
		FailedToScoreHome:   ti.League.FailedToScore.Home,
		FailedToScoreAway:   ti.League.FailedToScore.Away,
		FailedToScoreTotal:  ti.League.FailedToScore.Total,
	}
}

// ToComparison converts the comparison block
func (pi *PredictionInput) ToComparison(predictionID int) *PredictionComparison {
	c := pi.Comparison
	return &PredictionComparison{
		PredictionID: predictionID,
		FormHome:     percent(c.Form.Home),
		FormAway:     percent(c.Form.Away),
		AttHome:      percent(c.Att.Home),
		AttAway:      percent(c.Att.Away),
		DefHome:      percent(c.Def.Home),
		DefAway:      percent(c.Def.Away),
		PoissonHome:  percent(c.PoissonDistribution.Home),
		PoissonAway:  percent(c.PoissonDistribution.Away),
		H2HHome:      percent(c.H2H.Home),
		H2HAway:      percent(c.H2H.Away),
		GoalsHome:    percent(c.Goals.Home),
		GoalsAway:    percent(c.Goals.Away),
		TotalHome:    percent(c.Total.Home),
		TotalAway:    percent(c.Total.Away),
	}
}

func percent(s string) float64 {
	f, err := ParsePercent(s)
	if err != nil {
		return 0
	}
	return f
}

func average(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
