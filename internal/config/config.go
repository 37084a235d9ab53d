package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	// api-football
	FootballAPIKey     string        `envconfig:"FOOTBALL_API_KEY" required:"true"`
	FootballAPIBaseURL string        `envconfig:"FOOTBALL_API_BASE_URL" default:"https://v3.football.api-sports.io"`
	FootballAPITimeout time.Duration `envconfig:"FOOTBALL_API_TIMEOUT" default:"30s"`

	// API Rate Limiting
	MaxCallsPerDay    int `envconfig:"API_MAX_CALLS_PER_DAY" default:"75000"`
	MaxCallsPerMinute int `envconfig:"API_MAX_CALLS_PER_MINUTE" default:"450"`

	// Database
	DatabaseHost     string `envconfig:"DATABASE_HOST" default:"localhost"`
	DatabasePort     int    `envconfig:"DATABASE_PORT" default:"5432"`
	DatabaseName     string `envconfig:"DATABASE_NAME" default:"lonewolfcast"`
	DatabaseUser     string `envconfig:"DATABASE_USER" default:"lonewolfcast"`
	DatabasePassword string `envconfig:"DATABASE_PASSWORD" required:"true"`
	DatabaseSSLMode  string `envconfig:"DATABASE_SSL_MODE" default:"disable"`
	MigrateOnStart   bool   `envconfig:"MIGRATE_ON_START" default:"true"`

	// Redis
	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// Application
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Admin HTTP server
	HTTPPort int `envconfig:"HTTP_PORT" default:"8000"`

	// Scheduler
	EnableScheduler  bool   `envconfig:"ENABLE_SCHEDULER" default:"true"`
	LeagueSyncCron   string `envconfig:"LEAGUE_SYNC_CRON" default:"0 2 * * *"`
	MatchSyncCron    string `envconfig:"MATCH_SYNC_CRON" default:"0 */6 * * *"`
	PredictionCron   string `envconfig:"PREDICTION_SYNC_CRON" default:"30 */6 * * *"`
	StatsSyncCron    string `envconfig:"STATS_SYNC_CRON" default:"0 4 * * *"`
	OddsSyncCron     string `envconfig:"ODDS_SYNC_CRON" default:"15 */3 * * *"`
	EvaluationCron   string `envconfig:"EVALUATION_CRON" default:"0 5 * * *"`
	UsagePollSeconds int    `envconfig:"USAGE_POLL_INTERVAL" default:"60"`

	// Sync behaviour
	TrackedLeaguesFile   string   `envconfig:"TRACKED_LEAGUES_FILE" default:""`
	MatchSyncCurrentOnly bool     `envconfig:"MATCH_SYNC_CURRENT_ONLY" default:"true"`
	OddsBetTypes         []string `envconfig:"ODDS_BET_TYPES" default:"Match Winner,Double Chance,Goals Over/Under"`
	EvaluationBatchSize  int      `envconfig:"EVALUATION_BATCH_SIZE" default:"100"`

	// Caching TTL
	CacheTTLDashboard time.Duration `envconfig:"CACHE_TTL_DASHBOARD" default:"60s"`

	// Monitoring
	EnableMetrics bool `envconfig:"ENABLE_METRICS" default:"true"`
	MetricsPort   int  `envconfig:"METRICS_PORT" default:"9090"`
}

// Load loads configuration from environment variables
// It first attempts to load from .env file if one exists
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.FootballAPIKey == "" {
		return fmt.Errorf("FOOTBALL_API_KEY is required")
	}

	if c.DatabasePassword == "" {
		return fmt.Errorf("DATABASE_PASSWORD is required")
	}

	if c.MaxCallsPerDay <= 0 {
		return fmt.Errorf("API_MAX_CALLS_PER_DAY must be positive, got %d", c.MaxCallsPerDay)
	}

	if c.MaxCallsPerMinute <= 0 {
		return fmt.Errorf("API_MAX_CALLS_PER_MINUTE must be positive, got %d", c.MaxCallsPerMinute)
	}

	if c.EvaluationBatchSize <= 0 {
		return fmt.Errorf("EVALUATION_BATCH_SIZE must be positive, got %d", c.EvaluationBatchSize)
	}

	return nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DatabaseHost,
		c.DatabasePort,
		c.DatabaseUser,
		c.DatabasePassword,
		c.DatabaseName,
		c.DatabaseSSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// MustLoad loads configuration or exits on error
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
