package memory

import (
	"context"
	"sort"
	"sync"

	"impact-bond-engine/internal/domain"
	"impact-bond-engine/internal/storage"
)

type packageKey struct {
	bond    domain.BondID
	account domain.AccountID
}

// PackageStore is an in-memory implementation of storage.PackageStore.
type PackageStore struct {
	mu   sync.RWMutex
	data map[packageKey][]*domain.UnitPackage
}

// NewPackageStore creates a new in-memory package store.
func NewPackageStore() *PackageStore {
	return &PackageStore{data: make(map[packageKey][]*domain.UnitPackage)}
}

// Insert appends a new lot for the account.
func (s *PackageStore) Insert(_ context.Context, p *domain.UnitPackage) error {
	if p == nil || p.BondID.IsZero() || p.Account == "" || p.Units == 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := packageKey{bond: p.BondID, account: p.Account}
	lot := *p
	s.data[key] = append(s.data[key], &lot)
	return nil
}

// GetByAccount retrieves the account's lots for a bond.
func (s *PackageStore) GetByAccount(_ context.Context, id domain.BondID, acc domain.AccountID) ([]*domain.UnitPackage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lots := s.data[packageKey{bond: id, account: acc}]
	result := make([]*domain.UnitPackage, 0, len(lots))
	for _, p := range lots {
		cp := *p
		result = append(result, &cp)
	}
	sortLots(result)
	return result, nil
}

// GetByBond retrieves every lot of a bond grouped in account order.
func (s *PackageStore) GetByBond(_ context.Context, id domain.BondID) ([]*domain.UnitPackage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.UnitPackage
	for key, lots := range s.data {
		if key.bond != id {
			continue
		}
		for _, p := range lots {
			cp := *p
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Account != result[j].Account {
			return result[i].Account < result[j].Account
		}
		return lotLess(result[i], result[j])
	})
	return result, nil
}

// ReplaceForAccount atomically swaps the account's lots for new ones.
func (s *PackageStore) ReplaceForAccount(_ context.Context, id domain.BondID, acc domain.AccountID, lots []*domain.UnitPackage) error {
	if id.IsZero() || acc == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := packageKey{bond: id, account: acc}
	if len(lots) == 0 {
		delete(s.data, key)
		return nil
	}
	replaced := make([]*domain.UnitPackage, 0, len(lots))
	for _, p := range lots {
		cp := *p
		replaced = append(replaced, &cp)
	}
	s.data[key] = replaced
	return nil
}

// DeleteByBond drops every lot of a bond.
func (s *PackageStore) DeleteByBond(_ context.Context, id domain.BondID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.data {
		if key.bond == id {
			delete(s.data, key)
		}
	}
	return nil
}

func sortLots(lots []*domain.UnitPackage) {
	sort.Slice(lots, func(i, j int) bool { return lotLess(lots[i], lots[j]) })
}

func lotLess(a, b *domain.UnitPackage) bool {
	if a.AcquisitionPeriod != b.AcquisitionPeriod {
		return a.AcquisitionPeriod < b.AcquisitionPeriod
	}
	return a.CreatedAt < b.CreatedAt
}

// Verify interface compliance at compile time.
var _ storage.PackageStore = (*PackageStore)(nil)
