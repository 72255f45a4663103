package memory

import (
	"context"
	"sort"
	"sync"

	"impact-bond-engine/internal/domain"
	"impact-bond-engine/internal/storage"
)

type periodKey struct {
	bond   domain.BondID
	period uint32
}

// ImpactReportStore is an in-memory implementation of storage.ImpactReportStore.
type ImpactReportStore struct {
	mu   sync.RWMutex
	data map[periodKey]*domain.ImpactReport
}

// NewImpactReportStore creates a new in-memory impact report store.
func NewImpactReportStore() *ImpactReportStore {
	return &ImpactReportStore{data: make(map[periodKey]*domain.ImpactReport)}
}

// Insert adds a report. Returns ErrDuplicateKey if the slot is reported.
func (s *ImpactReportStore) Insert(_ context.Context, r *domain.ImpactReport) error {
	if r == nil || r.BondID.IsZero() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := periodKey{bond: r.BondID, period: r.Period}
	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}
	cp := *r
	s.data[key] = &cp
	return nil
}

// Get retrieves one period's report. Returns ErrNotFound if missing.
func (s *ImpactReportStore) Get(_ context.Context, id domain.BondID, period uint32) (*domain.ImpactReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[periodKey{bond: id, period: period}]
	if !exists {
		return nil, storage.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

// Update replaces a stored report.
func (s *ImpactReportStore) Update(_ context.Context, r *domain.ImpactReport) error {
	if r == nil || r.BondID.IsZero() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := periodKey{bond: r.BondID, period: r.Period}
	if _, exists := s.data[key]; !exists {
		return storage.ErrNotFound
	}
	cp := *r
	s.data[key] = &cp
	return nil
}

// ListByBond retrieves all reports of a bond ordered by period ASC.
func (s *ImpactReportStore) ListByBond(_ context.Context, id domain.BondID) ([]*domain.ImpactReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ImpactReport
	for key, r := range s.data {
		if key.bond == id {
			cp := *r
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Period < result[j].Period })
	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.ImpactReportStore = (*ImpactReportStore)(nil)
