package postgres

import (
	"context"
	"fmt"

	"impact-bond-engine/internal/domain"
	"impact-bond-engine/internal/storage"
)

// PeriodYieldStore implements storage.PeriodYieldStore using PostgreSQL.
// The table is append-only; there is no update path.
type PeriodYieldStore struct {
	pool *Pool
}

// NewPeriodYieldStore creates a new PeriodYieldStore.
func NewPeriodYieldStore(pool *Pool) *PeriodYieldStore {
	return &PeriodYieldStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PeriodYieldStore = (*PeriodYieldStore)(nil)

// Insert appends one accrual row. Returns ErrDuplicateKey if the
// (bond, period) row exists.
func (s *PeriodYieldStore) Insert(ctx context.Context, y *domain.PeriodYield) error {
	query := `
		INSERT INTO period_yields (bond_id, period, rate, accrued, total_accrued, fund_before, total_units)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := s.pool.Exec(ctx, query,
		y.BondID.String(),
		int64(y.Period),
		int64(y.Rate),
		int64(y.Accrued),
		int64(y.TotalAccrued),
		int64(y.FundBefore),
		int64(y.TotalUnits),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert period yield: %w", err)
	}
	return nil
}

// Get retrieves one period's row. Returns ErrNotFound if missing.
func (s *PeriodYieldStore) Get(ctx context.Context, id domain.BondID, period uint32) (*domain.PeriodYield, error) {
	query := `
		SELECT period, rate, accrued, total_accrued, fund_before, total_units
		FROM period_yields
		WHERE bond_id = $1 AND period = $2
	`

	var y domain.PeriodYield
	var periodCol, rate, accrued, total, fund, units int64
	err := s.pool.QueryRow(ctx, query, id.String(), int64(period)).Scan(
		&periodCol, &rate, &accrued, &total, &fund, &units,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get period yield: %w", err)
	}

	y.BondID = id
	y.Period = uint32(periodCol)
	y.Rate = uint32(rate)
	y.Accrued = uint64(accrued)
	y.TotalAccrued = uint64(total)
	y.FundBefore = uint64(fund)
	y.TotalUnits = uint64(units)
	return &y, nil
}

// ListByBond retrieves all rows of a bond ordered by period ASC.
func (s *PeriodYieldStore) ListByBond(ctx context.Context, id domain.BondID) ([]*domain.PeriodYield, error) {
	query := `
		SELECT period, rate, accrued, total_accrued, fund_before, total_units
		FROM period_yields
		WHERE bond_id = $1
		ORDER BY period ASC
	`

	rows, err := s.pool.Query(ctx, query, id.String())
	if err != nil {
		return nil, fmt.Errorf("list period yields: %w", err)
	}
	defer rows.Close()

	var yields []*domain.PeriodYield
	for rows.Next() {
		var y domain.PeriodYield
		var period, rate, accrued, total, fund, units int64

		err := rows.Scan(&period, &rate, &accrued, &total, &fund, &units)
		if err != nil {
			return nil, fmt.Errorf("scan period yield row: %w", err)
		}
		y.BondID = id
		y.Period = uint32(period)
		y.Rate = uint32(rate)
		y.Accrued = uint64(accrued)
		y.TotalAccrued = uint64(total)
		y.FundBefore = uint64(fund)
		y.TotalUnits = uint64(units)
		yields = append(yields, &y)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate period yield rows: %w", err)
	}
	return yields, nil
}

// AccountYieldStore implements storage.AccountYieldStore using PostgreSQL.
type AccountYieldStore struct {
	pool *Pool
}

// NewAccountYieldStore creates a new AccountYieldStore.
func NewAccountYieldStore(pool *Pool) *AccountYieldStore {
	return &AccountYieldStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AccountYieldStore = (*AccountYieldStore)(nil)

// Get retrieves the settlement cursor. Returns ErrNotFound if the account
// has never settled on this bond.
func (s *AccountYieldStore) Get(ctx context.Context, id domain.BondID, acc domain.AccountID) (*domain.AccountYield, error) {
	query := `
		SELECT paid, last_period
		FROM account_yields
		WHERE bond_id = $1 AND account = $2
	`

	var y domain.AccountYield
	var paid, lastPeriod int64
	err := s.pool.QueryRow(ctx, query, id.String(), string(acc)).Scan(&paid, &lastPeriod)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get account yield: %w", err)
	}

	y.BondID = id
	y.Account = acc
	y.Paid = uint64(paid)
	y.LastPeriod = uint32(lastPeriod)
	return &y, nil
}

// Upsert writes the settlement cursor.
func (s *AccountYieldStore) Upsert(ctx context.Context, y *domain.AccountYield) error {
	query := `
		INSERT INTO account_yields (bond_id, account, paid, last_period)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (bond_id, account)
		DO UPDATE SET paid = EXCLUDED.paid, last_period = EXCLUDED.last_period
	`

	_, err := s.pool.Exec(ctx, query,
		y.BondID.String(),
		string(y.Account),
		int64(y.Paid),
		int64(y.LastPeriod),
	)
	if err != nil {
		return fmt.Errorf("upsert account yield: %w", err)
	}
	return nil
}
