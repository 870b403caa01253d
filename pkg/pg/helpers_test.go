package pg_test

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/featurekit/pkg/logger"
	"github.com/dmitrymomot/featurekit/pkg/pg"
)

// openTestDB connects to FEATUREKIT_TEST_PG_URL, migrates and empties the
// tables. Tests sharing the database must not run in parallel.
func openTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("FEATUREKIT_TEST_PG_URL")
	if url == "" {
		t.Skip("FEATUREKIT_TEST_PG_URL is not set")
	}

	ctx := context.Background()
	cfg := pg.Config{
		ConnectionString:  url,
		MaxOpenConns:      4,
		MaxIdleConns:      1,
		HealthCheckPeriod: time.Minute,
		MaxConnIdleTime:   time.Minute,
		MaxConnLifetime:   time.Hour,
		RetryAttempts:     3,
		RetryInterval:     100 * time.Millisecond,
		MigrationsTable:   "featurekit_migrations",
	}
	pool, err := pg.Connect(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, pg.Migrate(ctx, pool, cfg, logger.New(logger.WithLevel(slog.LevelError))))
	_, err = pool.Exec(ctx, `TRUNCATE feature_records, feature_snapshots, feature_groups CASCADE`)
	require.NoError(t, err)
	return pool
}
