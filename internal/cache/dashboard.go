package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"lonewolfcast/ingestion/internal/metrics"
	"lonewolfcast/ingestion/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const dashboardKey = "lonewolfcast:dashboard:stats"

// Loader reads the dashboard summary from the source of truth
type Loader func(ctx context.Context) (*models.DashboardStats, error)

// DashboardCache keeps the dashboard summary in Redis for ttl.
// Redis failures fall through to the loader.
type DashboardCache struct {
	client redis.Cmdable
	ttl    time.Duration
	load   Loader
}

// Connect opens a Redis client and pings it
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	log.Info().Str("addr", addr).Msg("Successfully connected to Redis")
	return rdb, nil
}

// NewDashboardCache wraps load with a Redis cache. A nil client disables caching.
func NewDashboardCache(client redis.Cmdable, ttl time.Duration, load Loader) *DashboardCache {
	return &DashboardCache{client: client, ttl: ttl, load: load}
}

// Get returns the cached summary or loads and caches a fresh one
func (c *DashboardCache) Get(ctx context.Context) (*models.DashboardStats, error) {
	if c.client == nil {
		return c.load(ctx)
	}

	start := time.Now()
	b, err := c.client.Get(ctx, dashboardKey).Bytes()
	metrics.RecordCacheOperation("get", time.Since(start).Seconds())

	switch {
	case err == nil:
		var stats models.DashboardStats
		if err := json.Unmarshal(b, &stats); err == nil {
			metrics.RecordCacheHit()
			return &stats, nil
		}
		log.Warn().Msg("Discarding undecodable dashboard cache entry")
	case errors.Is(err, redis.Nil):
	default:
		metrics.RecordError("cache", "get")
		log.Warn().Err(err).Msg("Dashboard cache unavailable, reading database")
	}
	metrics.RecordCacheMiss()

	stats, err := c.load(ctx)
	if err != nil {
		return nil, err
	}

	c.store(ctx, stats)
	return stats, nil
}

func (c *DashboardCache) store(ctx context.Context, stats *models.DashboardStats) {
	b, err := json.Marshal(stats)
	if err != nil {
		return
	}

	start := time.Now()
	if err := c.client.Set(ctx, dashboardKey, b, c.ttl).Err(); err != nil {
		metrics.RecordError("cache", "set")
		log.Warn().Err(err).Msg("Failed to cache dashboard stats")
	}
	metrics.RecordCacheOperation("set", time.Since(start).Seconds())
}

// Invalidate drops the cached summary so the next Get reloads it
func (c *DashboardCache) Invalidate(ctx context.Context) {
	if c.client == nil {
		return
	}
	if err := c.client.Del(ctx, dashboardKey).Err(); err != nil {
		metrics.RecordError("cache", "del")
		log.Warn().Err(err).Msg("Failed to invalidate dashboard cache")
	}
}
