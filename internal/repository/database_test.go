//go:build integration

package repository

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Integration tests for database operations
// Run with: go test -v -tags=integration ./internal/repository/...

func setupTestDB(t *testing.T) (*Database, context.Context) {
	ctx := context.Background()

	cfg := Config{
		Host:     envOr("TEST_DATABASE_HOST", "localhost"),
		Port:     envOr("TEST_DATABASE_PORT", "5432"),
		Database: "lonewolfcast_test",
		User:     envOr("TEST_DATABASE_USER", "lonewolfcast"),
		Password: envOr("TEST_DATABASE_PASSWORD", "lonewolfcast"),
		SSLMode:  "disable",
	}

	db, err := NewDatabase(ctx, cfg)
	require.NoError(t, err, "Failed to connect to test database")

	_, err = db.Migrate(ctx)
	require.NoError(t, err, "Failed to migrate test database")

	_, err = db.Pool.Exec(ctx, `
		TRUNCATE leagues, seasons, matches, match_results, predictions, prediction_teams,
		         prediction_comparisons, prediction_outcomes, odds_bookmakers, odds_values, api_usage
		RESTART IDENTITY CASCADE
	`)
	require.NoError(t, err, "Failed to reset test database")

	return db, ctx
}

func teardownTestDB(t *testing.T, db *Database) {
	db.Close()
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func TestDatabaseConnection(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	// Test health check
	err := db.Health(ctx)
	assert.NoError(t, err, "Database health check should pass")

	// Test stats
	stats := db.PoolStats()
	assert.NotNil(t, stats, "Should return connection pool stats")
	assert.GreaterOrEqual(t, stats["max_conns"].(int32), int32(1), "Should have at least 1 max connection")
}

func TestNewDatabase_DSN(t *testing.T) {
	ctx := context.Background()

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=lonewolfcast_test sslmode=disable",
		envOr("TEST_DATABASE_HOST", "localhost"),
		envOr("TEST_DATABASE_PORT", "5432"),
		envOr("TEST_DATABASE_USER", "lonewolfcast"),
		envOr("TEST_DATABASE_PASSWORD", "lonewolfcast"),
	)

	// The individual fields are ignored once a DSN is given
	db, err := NewDatabase(ctx, Config{DSN: dsn, Host: "unreachable.invalid", Port: "1"})
	require.NoError(t, err)
	defer db.Close()

	assert.NoError(t, db.Health(ctx))
	assert.EqualValues(t, 10, db.PoolStats()["max_conns"])
}

func TestDatabase_MigrateIsIdempotent(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	applied, err := db.Migrate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, applied, "Second run should apply nothing")
}

func TestDatabase_WithTxRollsBack(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	err := db.WithTx(ctx, func(tx *Database) error {
		_, err := tx.Leagues.Upsert(ctx, testLeague(39))
		require.NoError(t, err)
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	_, err = db.Leagues.GetByAPIID(ctx, 39)
	assert.ErrorIs(t, err, ErrNotFound, "Rolled back league should not exist")
}

func TestDatabase_NestedTxUsesSavepoint(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	err := db.WithTx(ctx, func(tx *Database) error {
		_, err := tx.Leagues.Upsert(ctx, testLeague(39))
		require.NoError(t, err)

		inner := tx.WithTx(ctx, func(sp *Database) error {
			_, err := sp.Leagues.Upsert(ctx, testLeague(140))
			require.NoError(t, err)
			return assert.AnError
		})
		assert.ErrorIs(t, inner, assert.AnError)
		return nil
	})
	require.NoError(t, err)

	_, err = db.Leagues.GetByAPIID(ctx, 39)
	assert.NoError(t, err, "Outer work should be committed")
	_, err = db.Leagues.GetByAPIID(ctx, 140)
	assert.ErrorIs(t, err, ErrNotFound, "Savepoint work should be rolled back")
}

func TestDatabasePing(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	// Ping with timeout
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := db.Pool.Ping(ctx)
	assert.NoError(t, err, "Should successfully ping database")
}
