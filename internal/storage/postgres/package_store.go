package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"impact-bond-engine/internal/domain"
	"impact-bond-engine/internal/storage"
)

// PackageStore implements storage.PackageStore using PostgreSQL.
type PackageStore struct {
	pool *Pool
}

// NewPackageStore creates a new PackageStore.
func NewPackageStore(pool *Pool) *PackageStore {
	return &PackageStore{pool: pool}
}

// Compile-time interface check.
var _ storage.PackageStore = (*PackageStore)(nil)

// Insert appends a new lot for the account.
func (s *PackageStore) Insert(ctx context.Context, p *domain.UnitPackage) error {
	query := `
		INSERT INTO bond_packages (bond_id, account, units, acquisition_period, coupon_paid, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.pool.Exec(ctx, query,
		p.BondID.String(),
		string(p.Account),
		int64(p.Units),
		int64(p.AcquisitionPeriod),
		int64(p.CouponPaid),
		p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert package: %w", err)
	}
	return nil
}

// GetByAccount retrieves the account's lots for a bond, ordered by
// acquisition period then creation time.
func (s *PackageStore) GetByAccount(ctx context.Context, id domain.BondID, acc domain.AccountID) ([]*domain.UnitPackage, error) {
	query := `
		SELECT bond_id, account, units, acquisition_period, coupon_paid, created_at
		FROM bond_packages
		WHERE bond_id = $1 AND account = $2
		ORDER BY acquisition_period ASC, created_at ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, id.String(), string(acc))
	if err != nil {
		return nil, fmt.Errorf("get packages by account: %w", err)
	}
	defer rows.Close()

	return scanPackages(rows)
}

// GetByBond retrieves every lot of a bond grouped in account order.
func (s *PackageStore) GetByBond(ctx context.Context, id domain.BondID) ([]*domain.UnitPackage, error) {
	query := `
		SELECT bond_id, account, units, acquisition_period, coupon_paid, created_at
		FROM bond_packages
		WHERE bond_id = $1
		ORDER BY account ASC, acquisition_period ASC, created_at ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, id.String())
	if err != nil {
		return nil, fmt.Errorf("get packages by bond: %w", err)
	}
	defer rows.Close()

	return scanPackages(rows)
}

// ReplaceForAccount atomically swaps the account's lots for new ones.
func (s *PackageStore) ReplaceForAccount(ctx context.Context, id domain.BondID, acc domain.AccountID, lots []*domain.UnitPackage) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace packages: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`DELETE FROM bond_packages WHERE bond_id = $1 AND account = $2`,
		id.String(), string(acc),
	)
	if err != nil {
		return fmt.Errorf("delete old packages: %w", err)
	}

	for _, p := range lots {
		_, err = tx.Exec(ctx,
			`INSERT INTO bond_packages (bond_id, account, units, acquisition_period, coupon_paid, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			p.BondID.String(),
			string(p.Account),
			int64(p.Units),
			int64(p.AcquisitionPeriod),
			int64(p.CouponPaid),
			p.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert replacement package: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace packages: %w", err)
	}
	return nil
}

// DeleteByBond drops every lot of a bond.
func (s *PackageStore) DeleteByBond(ctx context.Context, id domain.BondID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM bond_packages WHERE bond_id = $1`, id.String())
	if err != nil {
		return fmt.Errorf("delete packages by bond: %w", err)
	}
	return nil
}

// scanPackages scans multiple rows into a slice of UnitPackage.
func scanPackages(rows pgx.Rows) ([]*domain.UnitPackage, error) {
	var lots []*domain.UnitPackage

	for rows.Next() {
		var p domain.UnitPackage
		var idStr, account string
		var units, period, paid int64

		err := rows.Scan(&idStr, &account, &units, &period, &paid, &p.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan package row: %w", err)
		}

		id, err := domain.ParseBondID(idStr)
		if err != nil {
			return nil, fmt.Errorf("stored package bond id: %w", err)
		}
		p.BondID = id
		p.Account = domain.AccountID(account)
		p.Units = uint64(units)
		p.AcquisitionPeriod = uint32(period)
		p.CouponPaid = uint64(paid)
		lots = append(lots, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate package rows: %w", err)
	}
	return lots, nil
}
