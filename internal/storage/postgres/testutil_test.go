package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"impact-bond-engine/internal/domain"
	"impact-bond-engine/internal/storage/migrations"
)

// setupTestDB creates a PostgreSQL container and applies the embedded
// migrations. Returns a cleanup function that must be called after tests
// complete.
func setupTestDB(t *testing.T) (*Pool, func()) {
	t.Helper()

	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err, "failed to create pool")

	err = migrations.RunPostgresMigrations(ctx, pool)
	require.NoError(t, err, "failed to apply migrations")

	cleanup := func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return pool, cleanup
}

// testBondID parses a ticker or fails the test.
func testBondID(t *testing.T, s string) domain.BondID {
	t.Helper()

	id, err := domain.ParseBondID(s)
	require.NoError(t, err)
	return id
}
