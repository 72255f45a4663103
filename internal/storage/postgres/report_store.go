package postgres

import (
	"context"
	"fmt"

	"impact-bond-engine/internal/domain"
	"impact-bond-engine/internal/storage"
)

// ImpactReportStore implements storage.ImpactReportStore using PostgreSQL.
type ImpactReportStore struct {
	pool *Pool
}

// NewImpactReportStore creates a new ImpactReportStore.
func NewImpactReportStore(pool *Pool) *ImpactReportStore {
	return &ImpactReportStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ImpactReportStore = (*ImpactReportStore)(nil)

// Insert adds a report. Returns ErrDuplicateKey if the (bond, period) slot
// is already reported.
func (s *ImpactReportStore) Insert(ctx context.Context, r *domain.ImpactReport) error {
	query := `
		INSERT INTO impact_reports (bond_id, period, impact, submitted_at, late, signed)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := s.pool.Exec(ctx, query,
		r.BondID.String(),
		int64(r.Period),
		int64(r.Impact),
		r.SubmittedAt,
		r.Late,
		r.Signed,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert impact report: %w", err)
	}
	return nil
}

// Get retrieves one period's report. Returns ErrNotFound if missing.
func (s *ImpactReportStore) Get(ctx context.Context, id domain.BondID, period uint32) (*domain.ImpactReport, error) {
	query := `
		SELECT period, impact, submitted_at, late, signed
		FROM impact_reports
		WHERE bond_id = $1 AND period = $2
	`

	var r domain.ImpactReport
	var periodCol, impact int64
	err := s.pool.QueryRow(ctx, query, id.String(), int64(period)).Scan(
		&periodCol, &impact, &r.SubmittedAt, &r.Late, &r.Signed,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get impact report: %w", err)
	}

	r.BondID = id
	r.Period = uint32(periodCol)
	r.Impact = uint64(impact)
	return &r, nil
}

// Update replaces a stored report. Returns ErrNotFound if it was never
// inserted.
func (s *ImpactReportStore) Update(ctx context.Context, r *domain.ImpactReport) error {
	query := `
		UPDATE impact_reports
		SET impact = $3, submitted_at = $4, late = $5, signed = $6
		WHERE bond_id = $1 AND period = $2
	`

	tag, err := s.pool.Exec(ctx, query,
		r.BondID.String(),
		int64(r.Period),
		int64(r.Impact),
		r.SubmittedAt,
		r.Late,
		r.Signed,
	)
	if err != nil {
		return fmt.Errorf("update impact report: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListByBond retrieves all reports of a bond ordered by period ASC.
func (s *ImpactReportStore) ListByBond(ctx context.Context, id domain.BondID) ([]*domain.ImpactReport, error) {
	query := `
		SELECT period, impact, submitted_at, late, signed
		FROM impact_reports
		WHERE bond_id = $1
		ORDER BY period ASC
	`

	rows, err := s.pool.Query(ctx, query, id.String())
	if err != nil {
		return nil, fmt.Errorf("list impact reports: %w", err)
	}
	defer rows.Close()

	var reports []*domain.ImpactReport
	for rows.Next() {
		var r domain.ImpactReport
		var period, impact int64

		err := rows.Scan(&period, &impact, &r.SubmittedAt, &r.Late, &r.Signed)
		if err != nil {
			return nil, fmt.Errorf("scan impact report row: %w", err)
		}
		r.BondID = id
		r.Period = uint32(period)
		r.Impact = uint64(impact)
		reports = append(reports, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate impact report rows: %w", err)
	}
	return reports, nil
}
