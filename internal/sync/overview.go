package sync

import (
	"context"
	"fmt"

	"lonewolfcast/ingestion/internal/models"
	"lonewolfcast/ingestion/internal/repository"
)

// UsageReporter reports today's API calls and the daily max.
// ratelimit.Limiter satisfies it.
type UsageReporter interface {
	Usage(ctx context.Context) (int, int, error)
}

// Overview assembles the admin dashboard summary from the database
type Overview struct {
	db      *repository.Database
	leagues *LeagueService
	usage   UsageReporter
}

// NewOverview creates a dashboard summary source
func NewOverview(db *repository.Database, leagues *LeagueService, usage UsageReporter) *Overview {
	return &Overview{db: db, leagues: leagues, usage: usage}
}

// DashboardStats reads the current counts
func (o *Overview) DashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	var stats models.DashboardStats
	var err error

	stats.LeaguesWithPredictions, stats.LastLeagueSync, err = o.leagues.DashboardStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load league stats: %w", err)
	}

	stats.TotalMatches, stats.FinishedMatches, stats.UpcomingMatches, err = o.db.Matches.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	if stats.LastMatchSync, err = o.db.Matches.LastUpdated(ctx); err != nil {
		return nil, err
	}

	status, err := o.db.Matches.PredictionSyncStatus(ctx)
	if err != nil {
		return nil, err
	}
	stats.PredictionsSynced = status.SyncedMatches
	stats.PredictionsPending = status.PendingSync
	stats.LastPredictionSync = status.LastSync

	if stats.OutcomesEvaluated, err = o.db.Outcomes.Count(ctx); err != nil {
		return nil, err
	}

	if stats.CallsMadeToday, stats.MaxCallsPerDay, err = o.usage.Usage(ctx); err != nil {
		return nil, err
	}

	return &stats, nil
}
