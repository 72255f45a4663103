package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"impact-bond-engine/internal/domain"
	"impact-bond-engine/internal/storage"
)

// BondStore implements storage.BondStore using PostgreSQL. Bond parameters
// are stored as a JSONB blob; the balance-sheet counters get their own
// columns so the ledger invariants can be checked with plain SQL.
type BondStore struct {
	pool *Pool
}

// NewBondStore creates a new BondStore.
func NewBondStore(pool *Pool) *BondStore {
	return &BondStore{pool: pool}
}

// Compile-time interface check.
var _ storage.BondStore = (*BondStore)(nil)

// Insert adds a new bond. Returns ErrDuplicateKey if bond_id exists.
func (s *BondStore) Insert(ctx context.Context, b *domain.Bond) error {
	params, err := json.Marshal(b.Params)
	if err != nil {
		return fmt.Errorf("marshal bond params: %w", err)
	}

	query := `
		INSERT INTO bonds (
			bond_id, state, issuer, manager, auditor, impact_reporter, params,
			issued_units, created_at, booking_open, activated_at, accrued_periods,
			debit, credit, coupon_yield
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err = s.pool.Exec(ctx, query,
		b.ID.String(),
		string(b.State),
		string(b.Issuer),
		string(b.Manager),
		string(b.Auditor),
		string(b.ImpactReporter),
		params,
		int64(b.IssuedUnits),
		b.CreatedAt,
		b.BookingOpen,
		b.ActivatedAt,
		int64(b.AccruedPeriods),
		int64(b.Ledger.Debit),
		int64(b.Ledger.Credit),
		int64(b.Ledger.CouponYield),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert bond: %w", err)
	}
	return nil
}

// GetByID retrieves a bond by ticker. Returns ErrNotFound if not exists.
func (s *BondStore) GetByID(ctx context.Context, id domain.BondID) (*domain.Bond, error) {
	query := `
		SELECT bond_id, state, issuer, manager, auditor, impact_reporter, params,
		       issued_units, created_at, booking_open, activated_at, accrued_periods,
		       debit, credit, coupon_yield
		FROM bonds
		WHERE bond_id = $1
	`

	row := s.pool.QueryRow(ctx, query, id.String())
	b, err := scanBond(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get bond by id: %w", err)
	}
	return b, nil
}

// Update replaces the stored bond record. Returns ErrNotFound if the bond
// was never inserted.
func (s *BondStore) Update(ctx context.Context, b *domain.Bond) error {
	params, err := json.Marshal(b.Params)
	if err != nil {
		return fmt.Errorf("marshal bond params: %w", err)
	}

	query := `
		UPDATE bonds SET
			state = $2, issuer = $3, manager = $4, auditor = $5,
			impact_reporter = $6, params = $7, issued_units = $8,
			created_at = $9, booking_open = $10, activated_at = $11,
			accrued_periods = $12, debit = $13, credit = $14, coupon_yield = $15
		WHERE bond_id = $1
	`

	tag, err := s.pool.Exec(ctx, query,
		b.ID.String(),
		string(b.State),
		string(b.Issuer),
		string(b.Manager),
		string(b.Auditor),
		string(b.ImpactReporter),
		params,
		int64(b.IssuedUnits),
		b.CreatedAt,
		b.BookingOpen,
		b.ActivatedAt,
		int64(b.AccruedPeriods),
		int64(b.Ledger.Debit),
		int64(b.Ledger.Credit),
		int64(b.Ledger.CouponYield),
	)
	if err != nil {
		return fmt.Errorf("update bond: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// List retrieves all bonds ordered by creation time then id.
func (s *BondStore) List(ctx context.Context) ([]*domain.Bond, error) {
	query := `
		SELECT bond_id, state, issuer, manager, auditor, impact_reporter, params,
		       issued_units, created_at, booking_open, activated_at, accrued_periods,
		       debit, credit, coupon_yield
		FROM bonds
		ORDER BY created_at ASC, bond_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list bonds: %w", err)
	}
	defer rows.Close()

	var bonds []*domain.Bond
	for rows.Next() {
		b, err := scanBond(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bond row: %w", err)
		}
		bonds = append(bonds, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bond rows: %w", err)
	}
	return bonds, nil
}

// scanBond scans a single row into a Bond.
func scanBond(row pgx.Row) (*domain.Bond, error) {
	var b domain.Bond
	var idStr, stateStr, issuer, manager, auditor, reporter string
	var params []byte
	var issuedUnits, accruedPeriods, debit, credit, couponYield int64

	err := row.Scan(
		&idStr,
		&stateStr,
		&issuer,
		&manager,
		&auditor,
		&reporter,
		&params,
		&issuedUnits,
		&b.CreatedAt,
		&b.BookingOpen,
		&b.ActivatedAt,
		&accruedPeriods,
		&debit,
		&credit,
		&couponYield,
	)
	if err != nil {
		return nil, err
	}

	id, err := domain.ParseBondID(idStr)
	if err != nil {
		return nil, fmt.Errorf("stored bond id: %w", err)
	}
	if err := json.Unmarshal(params, &b.Params); err != nil {
		return nil, fmt.Errorf("unmarshal bond params: %w", err)
	}

	b.ID = id
	b.State = domain.BondState(stateStr)
	b.Issuer = domain.AccountID(issuer)
	b.Manager = domain.AccountID(manager)
	b.Auditor = domain.AccountID(auditor)
	b.ImpactReporter = domain.AccountID(reporter)
	b.IssuedUnits = uint64(issuedUnits)
	b.AccruedPeriods = uint32(accruedPeriods)
	b.Ledger.Debit = uint64(debit)
	b.Ledger.Credit = uint64(credit)
	b.Ledger.CouponYield = uint64(couponYield)
	return &b, nil
}
