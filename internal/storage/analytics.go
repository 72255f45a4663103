package storage

import (
	"context"

	"impact-bond-engine/internal/domain"
)

// RateHistoryStore is the analytics sink for servicing history. Backed by
// ClickHouse in production and memory in tests; losing it never affects the
// financial state.
type RateHistoryStore interface {
	// InsertBulk appends rate points. Fails the entire batch on error.
	InsertBulk(ctx context.Context, points []*domain.PeriodRatePoint) error

	// GetByBond retrieves all points for a bond ordered by period ASC.
	GetByBond(ctx context.Context, id domain.BondID) ([]*domain.PeriodRatePoint, error)
}
