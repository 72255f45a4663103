package clickhouse

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"impact-bond-engine/internal/domain"
	"impact-bond-engine/internal/storage/migrations"
)

// setupTestDB creates a ClickHouse container and applies the embedded
// migrations. Returns a cleanup function that must be called when done.
func setupTestDB(t *testing.T) (*Conn, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "clickhouse/clickhouse-server:24.1-alpine",
		ExposedPorts: []string{"9000/tcp", "8123/tcp"},
		WaitingFor: wait.ForAll(
			wait.ForLog("Application: Ready for connections").
				WithStartupTimeout(60*time.Second),
			wait.ForListeningPort("9000/tcp"),
		),
		Env: map[string]string{
			"CLICKHOUSE_DB":       "test",
			"CLICKHOUSE_USER":     "default",
			"CLICKHOUSE_PASSWORD": "",
		},
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "9000")
	require.NoError(t, err)

	conn, err := NewConn(ctx, fmt.Sprintf("clickhouse://%s:%s/test", host, port.Port()))
	require.NoError(t, err)

	require.NoError(t, migrations.RunClickhouseMigrations(ctx, conn))

	cleanup := func() {
		conn.Close()
		_ = container.Terminate(ctx)
	}

	return conn, cleanup
}

func TestRateHistoryStore_InsertBulkAndGetByBond(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRateHistoryStore(conn)
	ctx := context.Background()

	id, err := domain.ParseBondID("BOND0001")
	require.NoError(t, err)
	other, err := domain.ParseBondID("BOND0002")
	require.NoError(t, err)

	points := []*domain.PeriodRatePoint{
		{BondID: id, Period: 2, Rate: 24_000, Impact: 15_000, Accrued: 200, RecordedAt: 1_700_000_200},
		{BondID: id, Period: 1, Rate: 20_000, Impact: 20_000, Accrued: 100, RecordedAt: 1_700_000_100},
		{BondID: other, Period: 1, Rate: 40_000, Impact: 0, Accrued: 300, RecordedAt: 1_700_000_100},
	}
	require.NoError(t, store.InsertBulk(ctx, points))

	got, err := store.GetByBond(ctx, id)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, uint32(1), got[0].Period)
	assert.Equal(t, uint32(20_000), got[0].Rate)
	assert.Equal(t, uint64(20_000), got[0].Impact)
	assert.Equal(t, uint32(2), got[1].Period)
	assert.Equal(t, uint32(24_000), got[1].Rate)
}

func TestRateHistoryStore_InsertBulkEmpty(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewRateHistoryStore(conn)
	require.NoError(t, store.InsertBulk(context.Background(), nil))
}
