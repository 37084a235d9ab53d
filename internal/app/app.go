// Package app wires configuration, storage, the api-football client and the
// sync services into one value shared by the commands.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"lonewolfcast/ingestion/internal/admin"
	"lonewolfcast/ingestion/internal/cache"
	"lonewolfcast/ingestion/internal/client"
	"lonewolfcast/ingestion/internal/config"
	"lonewolfcast/ingestion/internal/metrics"
	"lonewolfcast/ingestion/internal/outcome"
	"lonewolfcast/ingestion/internal/ratelimit"
	"lonewolfcast/ingestion/internal/repository"
	"lonewolfcast/ingestion/internal/scheduler"
	"lonewolfcast/ingestion/internal/sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Job names accepted by the scheduler and the CLI
const (
	JobLeagues     = "leagues"
	JobMatches     = "matches"
	JobPredictions = "predictions"
	JobStats       = "stats"
	JobOdds        = "odds"
	JobEvaluate    = "evaluate"
)

// App holds every long-lived dependency
type App struct {
	Config    *config.Config
	DB        *repository.Database
	Redis     *redis.Client
	Limiter   *ratelimit.Limiter
	Client    *client.Client
	Dashboard *cache.DashboardCache

	Leagues     *sync.LeagueService
	Matches     *sync.MatchService
	Predictions *sync.PredictionService
	Stats       *sync.StatsService
	Odds        *sync.OddsService
	Evaluator   *outcome.Service
	Overview    *sync.Overview
}

// SetupLogger configures the global zerolog logger
func SetupLogger(env, level string) {
	if env == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	lvl := zerolog.InfoLevel
	if level != "" {
		if parsed, err := zerolog.ParseLevel(level); err == nil {
			lvl = parsed
		}
	}
	zerolog.SetGlobalLevel(lvl)

	log.Info().
		Str("level", lvl.String()).
		Msg("Logger initialized")
}

// New connects to Postgres and Redis and builds the services. Redis is
// optional: when it is unreachable the dashboard reads the database directly.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	tracked, err := config.LoadTrackedLeagues(cfg.TrackedLeaguesFile)
	if err != nil {
		return nil, err
	}

	db, err := repository.NewDatabase(ctx, repository.Config{DSN: cfg.DatabaseDSN()})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.MigrateOnStart {
		applied, err := db.Migrate(ctx)
		if err != nil {
			db.Close()
			return nil, err
		}
		log.Info().Int("applied", applied).Msg("Database migrations up to date")
	}

	a := &App{Config: cfg, DB: db}

	a.Redis, err = cache.Connect(ctx, cfg.RedisAddr(), cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to connect to Redis - continuing without cache")
		a.Redis = nil
	}

	a.Limiter = ratelimit.New(db.Usage, cfg.MaxCallsPerDay, cfg.MaxCallsPerMinute)
	a.Client = client.NewClient(cfg.FootballAPIBaseURL, cfg.FootballAPIKey, cfg.FootballAPITimeout, a.Limiter)
	log.Info().
		Int("max_per_day", cfg.MaxCallsPerDay).
		Int("max_per_minute", cfg.MaxCallsPerMinute).
		Msg("api-football client initialized")

	a.Leagues = sync.NewLeagueService(db, a.Client, tracked)
	a.Matches = sync.NewMatchService(db, a.Client, cfg.MatchSyncCurrentOnly)
	a.Predictions = sync.NewPredictionService(db, a.Client)
	a.Stats = sync.NewStatsService(db, a.Client)
	a.Odds = sync.NewOddsService(db, a.Client, cfg.OddsBetTypes)
	a.Evaluator = outcome.NewService(db, cfg.EvaluationBatchSize)
	a.Overview = sync.NewOverview(db, a.Leagues, a.Limiter)

	// A nil *redis.Client must reach the cache as a nil interface
	var rdb redis.Cmdable
	if a.Redis != nil {
		rdb = a.Redis
	}
	a.Dashboard = cache.NewDashboardCache(rdb, cfg.CacheTTLDashboard, a.Overview.DashboardStats)

	return a, nil
}

// Close releases Redis and the database pool
func (a *App) Close() {
	if a.Redis != nil {
		a.Redis.Close()
	}
	a.DB.Close()
}

// Jobs returns the sync jobs with their configured cron specs
func (a *App) Jobs() []scheduler.Job {
	cfg := a.Config
	return []scheduler.Job{
		{Name: JobLeagues, Spec: cfg.LeagueSyncCron, Run: func(ctx context.Context) error {
			_, err := a.Leagues.SyncLeagues(ctx)
			return err
		}},
		{Name: JobMatches, Spec: cfg.MatchSyncCron, Run: func(ctx context.Context) error {
			_, err := a.Matches.SyncMatches(ctx)
			return err
		}},
		{Name: JobPredictions, Spec: cfg.PredictionCron, Run: func(ctx context.Context) error {
			_, err := a.Predictions.SyncPredictions(ctx)
			return err
		}},
		{Name: JobStats, Spec: cfg.StatsSyncCron, Run: func(ctx context.Context) error {
			_, err := a.Stats.SyncStats(ctx)
			return err
		}},
		{Name: JobOdds, Spec: cfg.OddsSyncCron, Run: func(ctx context.Context) error {
			_, err := a.Odds.SyncOdds(ctx)
			return err
		}},
		{Name: JobEvaluate, Spec: cfg.EvaluationCron, Run: func(ctx context.Context) error {
			_, err := a.Evaluator.EvaluateAll(ctx)
			return err
		}},
	}
}

// Scheduler builds the cron scheduler over Jobs
func (a *App) Scheduler() *scheduler.Scheduler {
	return scheduler.New(a.Jobs(),
		scheduler.WithAfterRun(a.Dashboard.Invalidate),
		scheduler.WithPoller(time.Duration(a.Config.UsagePollSeconds)*time.Second, a.PollUsage),
	)
}

// AdminServer builds the admin HTTP server over the services
func (a *App) AdminServer() *admin.Server {
	return admin.NewServer(a.Config.HTTPPort, admin.Deps{
		Leagues:     a.Leagues,
		Matches:     a.Matches,
		Predictions: a.Predictions,
		Stats:       a.Stats,
		Odds:        a.Odds,
		Evaluator:   a.Evaluator,
		Dashboard:   a.Dashboard,
		Usage:       a.Limiter,
		Health:      a.DB.Health,
		PoolStats:   a.DB.PoolStats,
	})
}

// PollUsage publishes pool and rate limiter gauges
func (a *App) PollUsage(ctx context.Context) {
	stat := a.DB.Pool.Stat()
	metrics.UpdateDBConnectionStats(stat.AcquiredConns(), stat.IdleConns())

	calls, _, err := a.Limiter.Usage(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read API usage")
		return
	}
	metrics.UpdateRateLimitStats(calls, a.Limiter.MinuteCount())
}
