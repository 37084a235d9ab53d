package sync

import (
	"context"
	"time"

	"lonewolfcast/ingestion/internal/metrics"
	"lonewolfcast/ingestion/internal/repository"

	"github.com/rs/zerolog/log"
)

// MatchSyncResult summarises a match sync run
type MatchSyncResult struct {
	TotalSeasons   int      `json:"total_seasons"`
	SyncedSeasons  int      `json:"synced_seasons"`
	TotalMatches   int      `json:"total_matches"`
	SyncedMatches  int      `json:"synced_matches"`
	CreatedMatches int      `json:"created_matches"`
	UpdatedMatches int      `json:"updated_matches"`
	Results        int      `json:"results"`
	Errors         []string `json:"errors"`
}

// MatchService synchronises fixtures and final results
type MatchService struct {
	db          *repository.Database
	api         Fetcher
	currentOnly bool
}

// NewMatchService creates a match sync service. With currentOnly set only
// seasons flagged current are walked.
func NewMatchService(db *repository.Database, api Fetcher, currentOnly bool) *MatchService {
	return &MatchService{db: db, api: api, currentOnly: currentOnly}
}

// SyncMatches walks every active league season with prediction coverage and
// upserts its fixtures, one transaction per season
func (s *MatchService) SyncMatches(ctx context.Context) (res *MatchSyncResult, err error) {
	start := time.Now()
	defer func() { finish("matches", start, err) }()

	res = &MatchSyncResult{Errors: []string{}}

	pairs, err := s.db.Seasons.ListSyncable(ctx, s.currentOnly)
	if err != nil {
		return res, err
	}
	res.TotalSeasons = len(pairs)

	for _, pair := range pairs {
		fixtures, err := s.api.FetchFixtures(ctx, pair.LeagueAPIID, pair.Year)
		if err != nil {
			if isRateLimited(err) {
				return res, err
			}
			res.Errors = append(res.Errors, unitFailed("matches", err, "league %d season %d", pair.LeagueAPIID, pair.Year))
			continue
		}
		res.TotalMatches += len(fixtures)

		var created, updated, results int
		err = s.db.WithTx(ctx, func(tx *repository.Database) error {
			created, updated, results = 0, 0, 0
			for i := range fixtures {
				match := fixtures[i].ToMatch(pair.LeagueID, pair.Year)
				isNew, err := tx.Matches.Upsert(ctx, match)
				if err != nil {
					return err
				}
				if isNew {
					created++
				} else {
					updated++
				}

				if result, ok := fixtures[i].ToResult(match.ID); ok {
					if _, err := tx.Results.Upsert(ctx, result); err != nil {
						return err
					}
					results++
				}
			}
			return tx.Seasons.MarkMatchesSynced(ctx, pair.SeasonID, time.Now().UTC())
		})
		if err != nil {
			res.Errors = append(res.Errors, unitFailed("matches", err, "league %d season %d", pair.LeagueAPIID, pair.Year))
			continue
		}

		res.SyncedSeasons++
		res.SyncedMatches += created + updated
		res.CreatedMatches += created
		res.UpdatedMatches += updated
		res.Results += results

		log.Debug().
			Str("league", pair.LeagueName).
			Int("season", pair.Year).
			Int("fixtures", len(fixtures)).
			Msg("Season matches synced")
	}

	metrics.RecordSyncedRecords("matches", "created", res.CreatedMatches)
	metrics.RecordSyncedRecords("matches", "updated", res.UpdatedMatches)
	metrics.RecordSyncedRecords("results", "upserted", res.Results)
	log.Info().
		Int("seasons", res.SyncedSeasons).
		Int("matches", res.SyncedMatches).
		Int("created", res.CreatedMatches).
		Int("updated", res.UpdatedMatches).
		Int("results", res.Results).
		Int("errors", len(res.Errors)).
		Dur("duration", time.Since(start)).
		Msg("Match sync completed")

	return res, nil
}
