package models

import "time"

// APIUsage is the persisted daily call counter
type APIUsage struct {
	ID        int       `db:"id"`
	Date      time.Time `db:"date"`
	CallsMade int       `db:"calls_made"`
	ResetTime time.Time `db:"reset_time"`
}

// DashboardStats is the summary shown on the admin dashboard
type DashboardStats struct {
	LeaguesWithPredictions int        `json:"leagues_count"`
	TotalMatches           int        `json:"total_matches"`
	FinishedMatches        int        `json:"finished_matches"`
	UpcomingMatches        int        `json:"upcoming_matches"`
	PredictionsSynced      int        `json:"predictions_synced"`
	PredictionsPending     int        `json:"predictions_pending"`
	OutcomesEvaluated      int        `json:"outcomes_evaluated"`
	LastLeagueSync         *time.Time `json:"last_league_sync"`
	LastMatchSync          *time.Time `json:"last_match_sync"`
	LastPredictionSync     *time.Time `json:"last_prediction_sync"`
	CallsMadeToday         int        `json:"calls_made_today"`
	MaxCallsPerDay         int        `json:"max_calls_per_day"`
}

// Percent returns part as a percentage of whole rounded to one decimal, 0 when whole is 0
func Percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(int(float64(part)/float64(whole)*1000+0.5)) / 10
}

// FinishedPercent is the share of finished matches
func (d *DashboardStats) FinishedPercent() float64 {
	return Percent(d.FinishedMatches, d.TotalMatches)
}

// UpcomingPercent is the share of not-started matches
func (d *DashboardStats) UpcomingPercent() float64 {
	return Percent(d.UpcomingMatches, d.TotalMatches)
}

// SyncedPercent is the share of matches with synced predictions
func (d *DashboardStats) SyncedPercent() float64 {
	return Percent(d.PredictionsSynced, d.TotalMatches)
}

// PredictionSyncStatus backs GET /api/sync/predictions/status
type PredictionSyncStatus struct {
	TotalMatches  int        `json:"total_matches"`
	SyncedMatches int        `json:"synced_matches"`
	PendingSync   int        `json:"pending_sync"`
	LastSync      *time.Time `json:"last_sync"`
}

// AdviceCategoryCount is one row of the advice category report
type AdviceCategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}
