// Command syncctl runs one sync job, the evaluator, or the migrations once
// and exits. It shares the daily quota with the worker through api_usage.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"lonewolfcast/ingestion/internal/app"
	"lonewolfcast/ingestion/internal/config"

	"github.com/rs/zerolog/log"
)

const usage = `usage: syncctl [-match ID] <command>

commands:
  migrate       apply pending database migrations
  leagues       sync leagues and seasons
  matches       sync fixtures and results of syncable seasons
  predictions   sync predictions (all pending, or one match with -match)
  stats         sync statistics of finished matches
  odds          sync pre-match odds
  evaluate      evaluate predictions of finished matches
  categories    print advice category counts
  usage         print today's API usage
`

func main() {
	matchID := flag.Int("match", 0, "database id of a single match for the predictions command")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	command := strings.ToLower(flag.Arg(0))

	cfg := config.MustLoad()
	app.SetupLogger(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if command == "migrate" {
		cfg.MigrateOnStart = true
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize")
	}
	defer a.Close()

	// Validate database connectivity before spending API calls
	if err := a.DB.Health(ctx); err != nil {
		log.Fatal().Err(err).Msg("Database health check failed")
	}

	result, err := run(ctx, a, command, *matchID)
	if err != nil {
		log.Error().Err(err).Str("command", command).Msg("Command failed")
		if result != nil {
			printJSON(result)
		}
		os.Exit(1)
	}

	a.Dashboard.Invalidate(ctx)
	printJSON(result)
}

func run(ctx context.Context, a *app.App, command string, matchID int) (any, error) {
	switch command {
	case "migrate":
		return map[string]string{"status": "up to date"}, nil
	case app.JobLeagues:
		return a.Leagues.SyncLeagues(ctx)
	case app.JobMatches:
		return a.Matches.SyncMatches(ctx)
	case app.JobPredictions:
		if matchID > 0 {
			return a.Predictions.SyncMatch(ctx, matchID)
		}
		return a.Predictions.SyncPredictions(ctx)
	case app.JobStats:
		return a.Stats.SyncStats(ctx)
	case app.JobOdds:
		return a.Odds.SyncOdds(ctx)
	case app.JobEvaluate:
		return a.Evaluator.EvaluateAll(ctx)
	case "categories":
		return a.Evaluator.AdviceCategories(ctx)
	case "usage":
		calls, limit, err := a.Limiter.Usage(ctx)
		return map[string]int{"calls_made_today": calls, "max_calls_per_day": limit}, err
	}
	return nil, fmt.Errorf("unknown command %q", command)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode result")
	}
}
