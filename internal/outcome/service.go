package outcome

import (
	"context"
	"fmt"
	"sort"
	"time"

	"lonewolfcast/ingestion/internal/metrics"
	"lonewolfcast/ingestion/internal/models"
	"lonewolfcast/ingestion/internal/repository"

	"github.com/rs/zerolog/log"
)

// DefaultBatchSize is used when the service is built with a non-positive batch size
const DefaultBatchSize = 100

// Stats summarises one evaluation run
type Stats struct {
	TotalProcessed        int      `json:"total_processed"`
	SuccessfulEvaluations int      `json:"successful_evaluations"`
	Errors                []string `json:"errors"`
}

// Service evaluates predictions of finished matches
type Service struct {
	db        *repository.Database
	batchSize int
}

// NewService creates an evaluation service
func NewService(db *repository.Database, batchSize int) *Service {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Service{db: db, batchSize: batchSize}
}

// EvaluateAll creates or refreshes the outcome of every prediction whose match
// finished (FT) with a stored result. Each batch commits in one transaction;
// each prediction runs in a savepoint so a failure is recorded without
// aborting the batch.
func (s *Service) EvaluateAll(ctx context.Context) (*Stats, error) {
	start := time.Now()
	stats := &Stats{Errors: []string{}}

	afterID := 0
	for {
		targets, err := s.db.Outcomes.ListEvaluable(ctx, afterID, s.batchSize)
		if err != nil {
			metrics.RecordSync("evaluation", "error", time.Since(start).Seconds())
			return stats, err
		}
		if len(targets) == 0 {
			break
		}
		afterID = targets[len(targets)-1].Prediction.ID

		err = s.db.WithTx(ctx, func(tx *repository.Database) error {
			for _, target := range targets {
				stats.TotalProcessed++
				err := tx.WithTx(ctx, func(sp *repository.Database) error {
					return evaluateOne(ctx, sp, target)
				})
				if err != nil {
					msg := fmt.Sprintf("prediction %d: %v", target.Prediction.ID, err)
					stats.Errors = append(stats.Errors, msg)
					metrics.RecordEvaluation("error")
					log.Error().Err(err).Int("prediction_id", target.Prediction.ID).Msg("Failed to evaluate prediction")
					continue
				}
				stats.SuccessfulEvaluations++
				metrics.RecordEvaluation("success")
			}
			return nil
		})
		if err != nil {
			metrics.RecordSync("evaluation", "error", time.Since(start).Seconds())
			return stats, fmt.Errorf("failed to commit evaluation batch: %w", err)
		}

		log.Debug().
			Int("batch", len(targets)).
			Int("processed", stats.TotalProcessed).
			Msg("Evaluation batch committed")

		if len(targets) < s.batchSize {
			break
		}
	}

	metrics.RecordSync("evaluation", "success", time.Since(start).Seconds())
	log.Info().
		Int("total_processed", stats.TotalProcessed).
		Int("successful", stats.SuccessfulEvaluations).
		Int("errors", len(stats.Errors)).
		Dur("duration", time.Since(start)).
		Msg("Prediction evaluation completed")

	return stats, nil
}

func evaluateOne(ctx context.Context, db *repository.Database, target *repository.EvaluationTarget) error {
	p := target.Prediction

	teams, err := db.Predictions.GetTeams(ctx, p.ID)
	if err != nil {
		return err
	}
	comparison, err := db.Predictions.GetComparison(ctx, p.ID)
	if err != nil {
		return err
	}

	historical, err := db.Outcomes.HistoricalAccuracy(ctx, ClassifyAdvice(p.Advice.String))
	if err != nil {
		return err
	}

	outcome := Evaluate(Input{
		Prediction: p,
		Match:      target.Match,
		Result:     target.Result,
		Teams:      teams,
		Comparison: comparison,
	}, historical)

	return db.Outcomes.Upsert(ctx, outcome)
}

// AdviceCategories counts stored predictions per advice category, most
// frequent first. Advice without a colon is not counted.
func (s *Service) AdviceCategories(ctx context.Context) ([]models.AdviceCategoryCount, error) {
	advice, err := s.db.Predictions.ListAdvice(ctx)
	if err != nil {
		return nil, err
	}
	return CountCategories(advice), nil
}

// CountCategories groups advice strings by AdviceCategory
func CountCategories(advice []string) []models.AdviceCategoryCount {
	counts := make(map[string]int)
	for _, a := range advice {
		if cat, ok := AdviceCategory(a); ok {
			counts[cat]++
		}
	}

	out := make([]models.AdviceCategoryCount, 0, len(counts))
	for cat, n := range counts {
		out = append(out, models.AdviceCategoryCount{Category: cat, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	return out
}
