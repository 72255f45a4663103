package memory

import (
	"context"
	"sort"
	"sync"

	"impact-bond-engine/internal/domain"
	"impact-bond-engine/internal/storage"
)

// PeriodYieldStore is an in-memory implementation of storage.PeriodYieldStore.
// Rows are append-only.
type PeriodYieldStore struct {
	mu   sync.RWMutex
	data map[periodKey]*domain.PeriodYield
}

// NewPeriodYieldStore creates a new in-memory period yield store.
func NewPeriodYieldStore() *PeriodYieldStore {
	return &PeriodYieldStore{data: make(map[periodKey]*domain.PeriodYield)}
}

// Insert appends one accrual row. Returns ErrDuplicateKey if the row exists.
func (s *PeriodYieldStore) Insert(_ context.Context, y *domain.PeriodYield) error {
	if y == nil || y.BondID.IsZero() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := periodKey{bond: y.BondID, period: y.Period}
	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}
	cp := *y
	s.data[key] = &cp
	return nil
}

// Get retrieves one period's row. Returns ErrNotFound if missing.
func (s *PeriodYieldStore) Get(_ context.Context, id domain.BondID, period uint32) (*domain.PeriodYield, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	y, exists := s.data[periodKey{bond: id, period: period}]
	if !exists {
		return nil, storage.ErrNotFound
	}
	cp := *y
	return &cp, nil
}

// ListByBond retrieves all rows of a bond ordered by period ASC.
func (s *PeriodYieldStore) ListByBond(_ context.Context, id domain.BondID) ([]*domain.PeriodYield, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PeriodYield
	for key, y := range s.data {
		if key.bond == id {
			cp := *y
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Period < result[j].Period })
	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.PeriodYieldStore = (*PeriodYieldStore)(nil)

type accountKey struct {
	bond    domain.BondID
	account domain.AccountID
}

// AccountYieldStore is an in-memory implementation of storage.AccountYieldStore.
type AccountYieldStore struct {
	mu   sync.RWMutex
	data map[accountKey]*domain.AccountYield
}

// NewAccountYieldStore creates a new in-memory account yield store.
func NewAccountYieldStore() *AccountYieldStore {
	return &AccountYieldStore{data: make(map[accountKey]*domain.AccountYield)}
}

// Get retrieves the cursor. Returns ErrNotFound if never settled.
func (s *AccountYieldStore) Get(_ context.Context, id domain.BondID, acc domain.AccountID) (*domain.AccountYield, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	y, exists := s.data[accountKey{bond: id, account: acc}]
	if !exists {
		return nil, storage.ErrNotFound
	}
	cp := *y
	return &cp, nil
}

// Upsert writes the cursor.
func (s *AccountYieldStore) Upsert(_ context.Context, y *domain.AccountYield) error {
	if y == nil || y.BondID.IsZero() || y.Account == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *y
	s.data[accountKey{bond: y.BondID, account: y.Account}] = &cp
	return nil
}

// Verify interface compliance at compile time.
var _ storage.AccountYieldStore = (*AccountYieldStore)(nil)
