package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"impact-bond-engine/internal/domain"
	"impact-bond-engine/internal/storage"
)

const day = 86400

func testBond(t *testing.T, ticker string) *domain.Bond {
	t.Helper()

	return &domain.Bond{
		ID:     testBondID(t, ticker),
		State:  domain.StatePrepare,
		Issuer: "issuer-account",
		Params: domain.BondParameters{
			Metric:              domain.MetricPowerGenerated,
			ImpactBaseline:      20_000,
			ImpactMaxValue:      60_000,
			ImpactMinValue:      4_000,
			InterestBaseRate:    20_000,
			InterestMarginCap:   40_000,
			InterestMarginFloor: 10_000,
			InterestStartRate:   19_000,
			InterestPenalty:     2_000,
			ReportPeriod:        10 * day,
			InterestPayPeriod:   5 * day,
			PaymentPeriod:       30 * day,
			BondDuration:        12,
			BondFinishingPeriod: 30 * day,
			MincapDeadline:      1_700_000_000,
			UnitsMinAmount:      100,
			UnitsMaxAmount:      1_000,
			UnitBasePrice:       4_000_000,
		},
		CreatedAt: 1_690_000_000,
	}
}

func TestBondStore_InsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewBondStore(pool)
	ctx := context.Background()

	bond := testBond(t, "BOND0001")
	require.NoError(t, store.Insert(ctx, bond))

	retrieved, err := store.GetByID(ctx, bond.ID)
	require.NoError(t, err)

	assert.Equal(t, bond.ID, retrieved.ID)
	assert.Equal(t, bond.State, retrieved.State)
	assert.Equal(t, bond.Issuer, retrieved.Issuer)
	assert.Equal(t, bond.Params, retrieved.Params)
	assert.Equal(t, bond.CreatedAt, retrieved.CreatedAt)
	assert.Zero(t, retrieved.IssuedUnits)
	assert.Zero(t, retrieved.Ledger.Debit)
}

func TestBondStore_InsertDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewBondStore(pool)
	ctx := context.Background()

	bond := testBond(t, "BOND0002")
	require.NoError(t, store.Insert(ctx, bond))

	err := store.Insert(ctx, bond)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestBondStore_GetByIDNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewBondStore(pool)

	_, err := store.GetByID(context.Background(), testBondID(t, "NOSUCH00"))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestBondStore_Update(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewBondStore(pool)
	ctx := context.Background()

	bond := testBond(t, "BOND0003")
	require.NoError(t, store.Insert(ctx, bond))

	bond.State = domain.StateActive
	bond.Manager = "manager-account"
	bond.Auditor = "auditor-account"
	bond.ImpactReporter = "reporter-account"
	bond.IssuedUnits = 500
	bond.ActivatedAt = 1_691_000_000
	bond.AccruedPeriods = 3
	bond.Ledger.Debit = 2_000_000_000
	bond.Ledger.Credit = 75_000_000
	bond.Ledger.CouponYield = 50_000_000
	require.NoError(t, store.Update(ctx, bond))

	retrieved, err := store.GetByID(ctx, bond.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.StateActive, retrieved.State)
	assert.Equal(t, bond.Manager, retrieved.Manager)
	assert.Equal(t, uint64(500), retrieved.IssuedUnits)
	assert.Equal(t, uint32(3), retrieved.AccruedPeriods)
	assert.Equal(t, bond.Ledger, retrieved.Ledger)
}

func TestBondStore_UpdateNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewBondStore(pool)

	err := store.Update(context.Background(), testBond(t, "GHOST001"))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestBondStore_List(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewBondStore(pool)
	ctx := context.Background()

	first := testBond(t, "BOND000A")
	first.CreatedAt = 1_690_000_000
	second := testBond(t, "BOND000B")
	second.CreatedAt = 1_690_000_100

	require.NoError(t, store.Insert(ctx, second))
	require.NoError(t, store.Insert(ctx, first))

	bonds, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, bonds, 2)
	assert.Equal(t, first.ID, bonds[0].ID)
	assert.Equal(t, second.ID, bonds[1].ID)
}
