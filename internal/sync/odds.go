package sync

import (
	"context"
	"time"

	"lonewolfcast/ingestion/internal/metrics"
	"lonewolfcast/ingestion/internal/models"
	"lonewolfcast/ingestion/internal/repository"

	"github.com/rs/zerolog/log"
)

// OddsSyncResult summarises an odds sync run
type OddsSyncResult struct {
	TotalMatches  int      `json:"total_matches"`
	SyncedMatches int      `json:"synced_matches"`
	Skipped       int      `json:"skipped"`
	Values        int      `json:"values"`
	Errors        []string `json:"errors"`
}

// OddsService synchronises pre-match bookmaker odds
type OddsService struct {
	db       *repository.Database
	api      Fetcher
	betTypes []string
}

// NewOddsService creates an odds sync service keeping only betTypes markets.
// An empty betTypes keeps every market.
func NewOddsService(db *repository.Database, api Fetcher, betTypes []string) *OddsService {
	return &OddsService{db: db, api: api, betTypes: betTypes}
}

// SyncOdds replaces the odds of every not-started match in an odds-covered
// season whose odds were never synced
func (s *OddsService) SyncOdds(ctx context.Context) (res *OddsSyncResult, err error) {
	start := time.Now()
	defer func() { finish("odds", start, err) }()

	res = &OddsSyncResult{Errors: []string{}}

	matches, err := s.db.Matches.ListPendingOdds(ctx)
	if err != nil {
		return res, err
	}
	res.TotalMatches = len(matches)

	for _, match := range matches {
		entries, err := s.api.FetchOdds(ctx, match.APIFixtureID)
		if err != nil {
			if isRateLimited(err) {
				return res, err
			}
			res.Errors = append(res.Errors, unitFailed("odds", err, "match %d (fixture %d)", match.ID, match.APIFixtureID))
			continue
		}
		if len(entries) == 0 {
			res.Skipped++
			continue
		}

		var bookmakers []*models.OddsBookmaker
		for i := range entries {
			bookmakers = append(bookmakers, entries[i].ToBookmakers(match.ID, s.betTypes)...)
		}

		var values int
		err = s.db.WithTx(ctx, func(tx *repository.Database) error {
			var err error
			values, err = tx.Odds.ReplaceForMatch(ctx, match.ID, bookmakers)
			if err != nil {
				return err
			}
			return tx.Matches.MarkOddsSynced(ctx, match.ID, time.Now().UTC())
		})
		if err != nil {
			res.Errors = append(res.Errors, unitFailed("odds", err, "match %d (fixture %d)", match.ID, match.APIFixtureID))
			continue
		}

		res.SyncedMatches++
		res.Values += values
	}

	metrics.RecordSyncedRecords("odds", "replaced", res.Values)
	log.Info().
		Int("total", res.TotalMatches).
		Int("synced", res.SyncedMatches).
		Int("skipped", res.Skipped).
		Int("values", res.Values).
		Int("errors", len(res.Errors)).
		Dur("duration", time.Since(start)).
		Msg("Odds sync completed")

	return res, nil
}
