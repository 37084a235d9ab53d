package sync

import (
	"context"
	"fmt"
	"time"

	"lonewolfcast/ingestion/internal/metrics"
	"lonewolfcast/ingestion/internal/models"
	"lonewolfcast/ingestion/internal/repository"

	"github.com/rs/zerolog/log"
)

// StatsSyncResult summarises a match statistics sync run
type StatsSyncResult struct {
	TotalMatches  int      `json:"total_matches"`
	SyncedMatches int      `json:"synced_matches"`
	Skipped       int      `json:"skipped"`
	Errors        []string `json:"errors"`
}

// StatsService synchronises detailed statistics of finished matches
type StatsService struct {
	db  *repository.Database
	api Fetcher
}

// NewStatsService creates a statistics sync service
func NewStatsService(db *repository.Database, api Fetcher) *StatsService {
	return &StatsService{db: db, api: api}
}

// SyncStats fetches statistics for every finished match with a result whose
// statistics were never synced
func (s *StatsService) SyncStats(ctx context.Context) (res *StatsSyncResult, err error) {
	start := time.Now()
	defer func() { finish("stats", start, err) }()

	res = &StatsSyncResult{Errors: []string{}}

	matches, err := s.db.Matches.ListPendingStats(ctx)
	if err != nil {
		return res, err
	}
	res.TotalMatches = len(matches)

	for _, match := range matches {
		entries, err := s.api.FetchFixtureStatistics(ctx, match.APIFixtureID)
		if err != nil {
			if isRateLimited(err) {
				return res, err
			}
			res.Errors = append(res.Errors, unitFailed("stats", err, "match %d (fixture %d)", match.ID, match.APIFixtureID))
			continue
		}
		if len(entries) == 0 {
			res.Skipped++
			continue
		}

		home, away, err := splitSides(match, entries)
		if err != nil {
			res.Errors = append(res.Errors, unitFailed("stats", err, "match %d (fixture %d)", match.ID, match.APIFixtureID))
			continue
		}

		err = s.db.WithTx(ctx, func(tx *repository.Database) error {
			if err := tx.Results.UpdateStatistics(ctx, match.ID, home, away); err != nil {
				return err
			}
			return tx.Matches.MarkStatsSynced(ctx, match.ID, time.Now().UTC())
		})
		if err != nil {
			res.Errors = append(res.Errors, unitFailed("stats", err, "match %d (fixture %d)", match.ID, match.APIFixtureID))
			continue
		}
		res.SyncedMatches++
	}

	metrics.RecordSyncedRecords("stats", "updated", res.SyncedMatches)
	log.Info().
		Int("total", res.TotalMatches).
		Int("synced", res.SyncedMatches).
		Int("skipped", res.Skipped).
		Int("errors", len(res.Errors)).
		Dur("duration", time.Since(start)).
		Msg("Statistics sync completed")

	return res, nil
}

// splitSides matches the per-team entries to the match's home and away side
func splitSides(match *models.Match, entries []models.FixtureStatisticsInput) (models.TeamStatistics, models.TeamStatistics, error) {
	var home, away models.TeamStatistics
	var foundHome, foundAway bool

	for i := range entries {
		switch entries[i].Team.ID {
		case match.HomeTeamID:
			home, foundHome = entries[i].ToTeamStatistics(), true
		case match.AwayTeamID:
			away, foundAway = entries[i].ToTeamStatistics(), true
		}
	}

	if !foundHome || !foundAway {
		return home, away, fmt.Errorf("statistics missing for home team %d or away team %d", match.HomeTeamID, match.AwayTeamID)
	}
	return home, away, nil
}
