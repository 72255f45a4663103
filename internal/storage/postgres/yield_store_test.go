package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"impact-bond-engine/internal/domain"
	"impact-bond-engine/internal/storage"
)

func TestPeriodYieldStore_AppendOnly(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPeriodYieldStore(pool)
	ctx := context.Background()
	id := testBondID(t, "BOND0020")

	row := &domain.PeriodYield{
		BondID:       id,
		Period:       1,
		Rate:         20_000,
		Accrued:      6_575_342,
		TotalAccrued: 6_575_342,
		FundBefore:   4_000_000_000,
		TotalUnits:   1_000,
	}
	require.NoError(t, store.Insert(ctx, row))

	// The history never rewrites a period.
	err := store.Insert(ctx, row)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	got, err := store.Get(ctx, id, 1)
	require.NoError(t, err)
	assert.Equal(t, row, got)

	_, err = store.Get(ctx, id, 2)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPeriodYieldStore_ListByBond(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewPeriodYieldStore(pool)
	ctx := context.Background()
	id := testBondID(t, "BOND0021")

	for _, period := range []uint32{3, 1, 2} {
		require.NoError(t, store.Insert(ctx, &domain.PeriodYield{
			BondID: id, Period: period, Rate: 20_000, Accrued: uint64(period) * 100,
		}))
	}

	rows, err := store.ListByBond(ctx, id)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for i, row := range rows {
		assert.Equal(t, uint32(i+1), row.Period)
	}
}

func TestAccountYieldStore_Upsert(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewAccountYieldStore(pool)
	ctx := context.Background()
	id := testBondID(t, "BOND0022")

	_, err := store.Get(ctx, id, "alice")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	cursor := &domain.AccountYield{BondID: id, Account: "alice", Paid: 500, LastPeriod: 2}
	require.NoError(t, store.Upsert(ctx, cursor))

	cursor.Paid = 900
	cursor.LastPeriod = 4
	require.NoError(t, store.Upsert(ctx, cursor))

	got, err := store.Get(ctx, id, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(900), got.Paid)
	assert.Equal(t, uint32(4), got.LastPeriod)
}
