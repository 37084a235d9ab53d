// Package sync pulls api-football data into the database.
package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lonewolfcast/ingestion/internal/metrics"
	"lonewolfcast/ingestion/internal/models"
	"lonewolfcast/ingestion/internal/ratelimit"

	"github.com/rs/zerolog/log"
)

// Fetcher is the subset of the api-football client used by the sync services
type Fetcher interface {
	FetchLeagues(ctx context.Context) ([]models.LeagueInput, error)
	FetchFixtures(ctx context.Context, leagueID, season int) ([]models.FixtureInput, error)
	FetchPredictions(ctx context.Context, fixtureID int) ([]models.PredictionInput, error)
	FetchFixtureStatistics(ctx context.Context, fixtureID int) ([]models.FixtureStatisticsInput, error)
	FetchOdds(ctx context.Context, fixtureID int) ([]models.OddsInput, error)
}

// isRateLimited reports whether a run must stop because the daily quota is spent
func isRateLimited(err error) bool {
	return errors.Is(err, ratelimit.ErrRateLimitExceeded)
}

// unitFailed logs and records a per-unit failure and returns the message kept in the result
func unitFailed(syncType string, err error, format string, args ...any) string {
	msg := fmt.Sprintf(format, args...) + ": " + err.Error()
	metrics.RecordError("sync_"+syncType, "unit")
	log.Error().Err(err).Str("type", syncType).Msg(fmt.Sprintf(format, args...))
	return msg
}

// finish records the run's metrics
func finish(syncType string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
		if isRateLimited(err) {
			status = "rate_limited"
		}
	}
	metrics.RecordSync(syncType, status, time.Since(start).Seconds())
}
