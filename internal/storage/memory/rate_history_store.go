package memory

import (
	"context"
	"sort"
	"sync"

	"impact-bond-engine/internal/domain"
	"impact-bond-engine/internal/storage"
)

// RateHistoryStore is an in-memory implementation of storage.RateHistoryStore.
type RateHistoryStore struct {
	mu   sync.RWMutex
	data []*domain.PeriodRatePoint
}

// NewRateHistoryStore creates a new in-memory rate history store.
func NewRateHistoryStore() *RateHistoryStore {
	return &RateHistoryStore{}
}

// InsertBulk appends rate points.
func (s *RateHistoryStore) InsertBulk(_ context.Context, points []*domain.PeriodRatePoint) error {
	for _, p := range points {
		if p == nil || p.BondID.IsZero() {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range points {
		cp := *p
		s.data = append(s.data, &cp)
	}
	return nil
}

// GetByBond retrieves all points for a bond ordered by period ASC.
func (s *RateHistoryStore) GetByBond(_ context.Context, id domain.BondID) ([]*domain.PeriodRatePoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PeriodRatePoint
	for _, p := range s.data {
		if p.BondID == id {
			cp := *p
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Period < result[j].Period })
	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.RateHistoryStore = (*RateHistoryStore)(nil)
