// Package outcome scores stored predictions against final match results.
package outcome

import (
	"database/sql"
	"math"
	"strconv"
	"strings"

	"lonewolfcast/ingestion/internal/models"
)

// Advice categories derived from a prediction's advice text
const (
	CategoryDoubleChance      = "Double chance"
	CategoryComboDoubleChance = "Combo Double chance"
	CategoryWinner            = "Winner"
	CategoryComboWinner       = "Combo Winner"
	CategoryUnknown           = "Unknown"
)

// Pre-match confidence weights over the comparison deltas
const (
	weightForm    = 0.25
	weightAttack  = 0.20
	weightDefense = 0.20
	weightH2H     = 0.15
	weightPoisson = 0.20
)

// Winner is the side that won a match. Decided is false for a draw.
type Winner struct {
	TeamID   int
	TeamName string
	Decided  bool
}

// MatchWinner derives the winning side from the final score
func MatchWinner(match *models.Match, result *models.MatchResult) Winner {
	switch {
	case result.HomeScore > result.AwayScore:
		return Winner{TeamID: match.HomeTeamID, TeamName: match.HomeTeam, Decided: true}
	case result.AwayScore > result.HomeScore:
		return Winner{TeamID: match.AwayTeamID, TeamName: match.AwayTeam, Decided: true}
	}
	return Winner{}
}

// BothTeamsScored reports whether each side scored at least once
func BothTeamsScored(result *models.MatchResult) bool {
	return result.HomeScore > 0 && result.AwayScore > 0
}

// WinnerPredictionCorrect compares the predicted winner with the actual one.
// A predicted draw (no winner) is correct only for a draw; otherwise either the
// team id or the team name must match.
func WinnerPredictionCorrect(p *models.Prediction, actual Winner) bool {
	if !actual.Decided {
		return !p.WinnerID.Valid
	}
	if !p.WinnerID.Valid {
		return false
	}
	return int(p.WinnerID.Int32) == actual.TeamID ||
		(p.WinnerName.Valid && p.WinnerName.String == actual.TeamName)
}

// WinOrDrawCorrect scores a double-chance prediction. The result is null when
// the prediction did not declare one.
func WinOrDrawCorrect(p *models.Prediction, actual Winner, winnerCorrect bool) sql.NullBool {
	if !p.WinOrDraw {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: !actual.Decided || winnerCorrect, Valid: true}
}

// UnderOverCorrect scores "<threshold> over|under" against the total goals.
// Anything that does not match that form is incorrect.
func UnderOverCorrect(prediction string, totalGoals int) bool {
	fields := strings.Fields(prediction)
	if len(fields) != 2 {
		return false
	}

	threshold, err := strconv.ParseFloat(fields[0], 64)
	if err != nil || math.IsNaN(threshold) {
		return false
	}

	switch strings.ToLower(fields[1]) {
	case "over":
		return float64(totalGoals) > threshold
	case "under":
		return float64(totalGoals) < threshold
	}
	return false
}

// GoalsAccuracy scores the predicted goals per side on a 0-100 scale.
// Missing or unparsable predicted values score 0.
func GoalsAccuracy(predHome, predAway sql.NullString, home, away int) float64 {
	if !predHome.Valid || !predAway.Valid {
		return 0
	}
	ph, err := strconv.ParseFloat(strings.TrimSpace(predHome.String), 64)
	if err != nil {
		return 0
	}
	pa, err := strconv.ParseFloat(strings.TrimSpace(predAway.String), 64)
	if err != nil {
		return 0
	}

	maxError := float64(max(home, away, 1))
	diff := math.Abs(ph-float64(home)) + math.Abs(pa-float64(away))
	return clamp((1 - diff/(2*maxError)) * 100)
}

// PreMatchConfidence is a weighted sum of the absolute home/away deltas of the
// comparison block, 0 when the prediction has none
func PreMatchConfidence(c *models.PredictionComparison) float64 {
	if c == nil {
		return 0
	}
	confidence := math.Abs(c.FormHome-c.FormAway)*weightForm +
		math.Abs(c.AttHome-c.AttAway)*weightAttack +
		math.Abs(c.DefHome-c.DefAway)*weightDefense +
		math.Abs(c.H2HHome-c.H2HAway)*weightH2H +
		math.Abs(c.PoissonHome-c.PoissonAway)*weightPoisson
	return clamp(confidence)
}

// FormDifference is the absolute gap between both teams' last-5 form.
// Requires exactly two snapshots.
func FormDifference(teams []*models.PredictionTeam) float64 {
	if len(teams) != 2 {
		return 0
	}
	return math.Abs(teams[0].Last5Form - teams[1].Last5Form)
}

// ClassifyAdvice maps free-text advice onto one of the advice categories
func ClassifyAdvice(advice string) string {
	a := strings.ToLower(advice)
	combo := strings.Contains(a, "combo")

	switch {
	case strings.Contains(a, "double chance"):
		if combo {
			return CategoryComboDoubleChance
		}
		return CategoryDoubleChance
	case strings.Contains(a, "winner"):
		if combo {
			return CategoryComboWinner
		}
		return CategoryWinner
	}
	return CategoryUnknown
}

// AdviceCategory returns the trimmed text before the first colon of advice.
// ok is false when advice has no colon.
func AdviceCategory(advice string) (string, bool) {
	i := strings.Index(advice, ":")
	if i < 0 {
		return "", false
	}
	return strings.TrimSpace(advice[:i]), true
}

// Input is everything needed to score one prediction
type Input struct {
	Prediction *models.Prediction
	Match      *models.Match
	Result     *models.MatchResult
	Teams      []*models.PredictionTeam
	Comparison *models.PredictionComparison
}

// Evaluate scores a prediction. historicalAccuracy is looked up by the caller
// for the prediction's advice category.
func Evaluate(in Input, historicalAccuracy float64) *models.PredictionOutcome {
	p := in.Prediction
	actual := MatchWinner(in.Match, in.Result)
	winnerCorrect := WinnerPredictionCorrect(p, actual)

	o := &models.PredictionOutcome{
		PredictionID:               p.ID,
		BothTeamsScored:            BothTeamsScored(in.Result),
		WinnerPredictionCorrect:    winnerCorrect,
		WinOrDrawPredictionCorrect: WinOrDrawCorrect(p, actual, winnerCorrect),
		GoalsPredictionAccuracy:    GoalsAccuracy(p.GoalsHome, p.GoalsAway, in.Result.HomeScore, in.Result.AwayScore),
		PreMatchConfidence:         PreMatchConfidence(in.Comparison),
		FormDifference:             FormDifference(in.Teams),
		HistoricalAccuracy:         historicalAccuracy,
	}

	if p.UnderOver.Valid && p.UnderOver.String != "" {
		o.UnderOverPredictionCorrect = sql.NullBool{
			Bool:  UnderOverCorrect(p.UnderOver.String, in.Result.HomeScore+in.Result.AwayScore),
			Valid: true,
		}
	}

	return o
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
