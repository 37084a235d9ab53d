package sync

import (
	"context"
	"time"

	"lonewolfcast/ingestion/internal/config"
	"lonewolfcast/ingestion/internal/metrics"
	"lonewolfcast/ingestion/internal/repository"

	"github.com/rs/zerolog/log"
)

// LeagueResult summarises a league sync run
type LeagueResult struct {
	TotalLeagues   int      `json:"total_leagues"`
	SyncedLeagues  int      `json:"synced_leagues"`
	CreatedLeagues int      `json:"created_leagues"`
	UpdatedLeagues int      `json:"updated_leagues"`
	TotalSeasons   int      `json:"total_seasons"`
	SyncedSeasons  int      `json:"synced_seasons"`
	Errors         []string `json:"errors"`
}

// LeagueService synchronises leagues and their seasons
type LeagueService struct {
	db      *repository.Database
	api     Fetcher
	tracked *config.TrackedLeagues
}

// NewLeagueService creates a league sync service. A nil or empty tracked list
// marks every league active.
func NewLeagueService(db *repository.Database, api Fetcher, tracked *config.TrackedLeagues) *LeagueService {
	return &LeagueService{db: db, api: api, tracked: tracked}
}

// SyncLeagues fetches every league and upserts it with its seasons, one
// transaction per league
func (s *LeagueService) SyncLeagues(ctx context.Context) (res *LeagueResult, err error) {
	start := time.Now()
	defer func() { finish("leagues", start, err) }()

	res = &LeagueResult{Errors: []string{}}

	leagues, err := s.api.FetchLeagues(ctx)
	if err != nil {
		return res, err
	}
	res.TotalLeagues = len(leagues)

	for i := range leagues {
		in := &leagues[i]
		res.TotalSeasons += len(in.Seasons)

		var created bool
		err := s.db.WithTx(ctx, func(tx *repository.Database) error {
			league := in.ToLeague(s.tracked.IsTracked(in.League.ID))
			var err error
			created, err = tx.Leagues.Upsert(ctx, league)
			if err != nil {
				return err
			}

			for j := range in.Seasons {
				if _, err := tx.Seasons.Upsert(ctx, in.Seasons[j].ToSeason(league.ID)); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			res.Errors = append(res.Errors, unitFailed("leagues", err, "league %d (%s)", in.League.ID, in.League.Name))
			continue
		}

		res.SyncedLeagues++
		res.SyncedSeasons += len(in.Seasons)
		if created {
			res.CreatedLeagues++
		} else {
			res.UpdatedLeagues++
		}
	}

	metrics.RecordSyncedRecords("leagues", "created", res.CreatedLeagues)
	metrics.RecordSyncedRecords("leagues", "updated", res.UpdatedLeagues)
	log.Info().
		Int("total", res.TotalLeagues).
		Int("synced", res.SyncedLeagues).
		Int("created", res.CreatedLeagues).
		Int("updated", res.UpdatedLeagues).
		Int("seasons", res.SyncedSeasons).
		Int("errors", len(res.Errors)).
		Dur("duration", time.Since(start)).
		Msg("League sync completed")

	return res, nil
}

// DashboardStats returns the number of active leagues with prediction
// coverage and the time of the last league update
func (s *LeagueService) DashboardStats(ctx context.Context) (int, *time.Time, error) {
	count, err := s.db.Leagues.CountWithPredictions(ctx)
	if err != nil {
		return 0, nil, err
	}
	last, err := s.db.Leagues.LastUpdated(ctx)
	if err != nil {
		return 0, nil, err
	}
	return count, last, nil
}
