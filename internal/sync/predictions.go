package sync

import (
	"context"
	"time"

	"lonewolfcast/ingestion/internal/metrics"
	"lonewolfcast/ingestion/internal/models"
	"lonewolfcast/ingestion/internal/repository"

	"github.com/rs/zerolog/log"
)

// PredictionSyncResult summarises a prediction sync run
type PredictionSyncResult struct {
	TotalMatches  int      `json:"total_matches"`
	SyncedMatches int      `json:"synced_matches"`
	Skipped       int      `json:"skipped"`
	Errors        []string `json:"errors"`
}

// PredictionService synchronises pre-match predictions
type PredictionService struct {
	db  *repository.Database
	api Fetcher
}

// NewPredictionService creates a prediction sync service
func NewPredictionService(db *repository.Database, api Fetcher) *PredictionService {
	return &PredictionService{db: db, api: api}
}

// SyncPredictions fetches predictions for every match not yet synced
func (s *PredictionService) SyncPredictions(ctx context.Context) (res *PredictionSyncResult, err error) {
	start := time.Now()
	defer func() { finish("predictions", start, err) }()

	res = &PredictionSyncResult{Errors: []string{}}

	matches, err := s.db.Matches.ListPendingPredictions(ctx)
	if err != nil {
		return res, err
	}
	res.TotalMatches = len(matches)

	for _, match := range matches {
		if err := s.syncOne(ctx, match, res); err != nil {
			return res, err
		}
	}

	metrics.RecordSyncedRecords("predictions", "created", res.SyncedMatches)
	log.Info().
		Int("total", res.TotalMatches).
		Int("synced", res.SyncedMatches).
		Int("skipped", res.Skipped).
		Int("errors", len(res.Errors)).
		Dur("duration", time.Since(start)).
		Msg("Prediction sync completed")

	return res, nil
}

// SyncMatch fetches predictions for one match by database id.
// An unknown id returns repository.ErrNotFound.
func (s *PredictionService) SyncMatch(ctx context.Context, matchID int) (res *PredictionSyncResult, err error) {
	start := time.Now()
	defer func() { finish("predictions", start, err) }()

	match, err := s.db.Matches.GetByID(ctx, matchID)
	if err != nil {
		return nil, err
	}

	res = &PredictionSyncResult{TotalMatches: 1, Errors: []string{}}
	if err := s.syncOne(ctx, match, res); err != nil {
		return res, err
	}
	return res, nil
}

// syncOne records per-match failures in res and only returns run-stopping errors
func (s *PredictionService) syncOne(ctx context.Context, match *models.Match, res *PredictionSyncResult) error {
	inputs, err := s.api.FetchPredictions(ctx, match.APIFixtureID)
	if err != nil {
		if isRateLimited(err) {
			return err
		}
		res.Errors = append(res.Errors, unitFailed("predictions", err, "match %d (fixture %d)", match.ID, match.APIFixtureID))
		return nil
	}
	if len(inputs) == 0 {
		res.Skipped++
		log.Debug().Int("match_id", match.ID).Msg("No prediction available, match left pending")
		return nil
	}

	in := &inputs[0]
	err = s.db.WithTx(ctx, func(tx *repository.Database) error {
		prediction := in.ToPrediction(match.ID)
		if err := tx.Predictions.Create(ctx, prediction); err != nil {
			return err
		}
		for _, team := range in.ToTeams(prediction.ID) {
			if err := tx.Predictions.CreateTeam(ctx, team); err != nil {
				return err
			}
		}
		if err := tx.Predictions.CreateComparison(ctx, in.ToComparison(prediction.ID)); err != nil {
			return err
		}
		return tx.Matches.MarkPredictionsSynced(ctx, match.ID, time.Now().UTC())
	})
	if err != nil {
		res.Errors = append(res.Errors, unitFailed("predictions", err, "match %d (fixture %d)", match.ID, match.APIFixtureID))
		return nil
	}

	res.SyncedMatches++
	return nil
}

// Status reports prediction sync progress
func (s *PredictionService) Status(ctx context.Context) (*models.PredictionSyncStatus, error) {
	return s.db.Matches.PredictionSyncStatus(ctx)
}
