package clickhouse

import (
	"context"
	"fmt"

	"impact-bond-engine/internal/domain"
	"impact-bond-engine/internal/storage"
)

// RateHistoryStore implements storage.RateHistoryStore using ClickHouse.
// MergeTree does not enforce uniqueness; the engine writes each period
// exactly once, and rebuilds from the period yield history if it ever
// needs to start over.
type RateHistoryStore struct {
	conn *Conn
}

// NewRateHistoryStore creates a new RateHistoryStore.
func NewRateHistoryStore(conn *Conn) *RateHistoryStore {
	return &RateHistoryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.RateHistoryStore = (*RateHistoryStore)(nil)

// InsertBulk appends rate points. Fails the entire batch on error.
func (s *RateHistoryStore) InsertBulk(ctx context.Context, points []*domain.PeriodRatePoint) error {
	if len(points) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO bond_rate_history (bond_id, period, rate, impact, accrued, recorded_at)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		err = batch.Append(
			p.BondID.String(), p.Period, p.Rate, p.Impact, p.Accrued, p.RecordedAt,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByBond retrieves all points for a bond ordered by period ASC.
func (s *RateHistoryStore) GetByBond(ctx context.Context, id domain.BondID) ([]*domain.PeriodRatePoint, error) {
	query := `
		SELECT bond_id, period, rate, impact, accrued, recorded_at
		FROM bond_rate_history
		WHERE bond_id = ?
		ORDER BY period ASC
	`

	rows, err := s.conn.Query(ctx, query, id.String())
	if err != nil {
		return nil, fmt.Errorf("query rate history: %w", err)
	}
	defer rows.Close()

	var points []*domain.PeriodRatePoint
	for rows.Next() {
		var p domain.PeriodRatePoint
		var idStr string

		err := rows.Scan(&idStr, &p.Period, &p.Rate, &p.Impact, &p.Accrued, &p.RecordedAt)
		if err != nil {
			return nil, fmt.Errorf("scan rate history row: %w", err)
		}

		parsed, err := domain.ParseBondID(idStr)
		if err != nil {
			return nil, fmt.Errorf("stored rate history bond id: %w", err)
		}
		p.BondID = parsed
		points = append(points, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rate history rows: %w", err)
	}
	return points, nil
}
