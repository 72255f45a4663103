package memory

import (
	"context"
	"sort"
	"sync"

	"impact-bond-engine/internal/domain"
	"impact-bond-engine/internal/storage"
)

// BondStore is an in-memory implementation of storage.BondStore.
type BondStore struct {
	mu   sync.RWMutex
	data map[domain.BondID]*domain.Bond
}

// NewBondStore creates a new in-memory bond store.
func NewBondStore() *BondStore {
	return &BondStore{data: make(map[domain.BondID]*domain.Bond)}
}

// Insert adds a new bond. Returns ErrDuplicateKey if the id exists.
func (s *BondStore) Insert(_ context.Context, b *domain.Bond) error {
	if b == nil || b.ID.IsZero() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[b.ID]; exists {
		return storage.ErrDuplicateKey
	}
	s.data[b.ID] = b.Clone()
	return nil
}

// GetByID retrieves a bond. Returns ErrNotFound if not exists.
func (s *BondStore) GetByID(_ context.Context, id domain.BondID) (*domain.Bond, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return b.Clone(), nil
}

// Update replaces the stored bond record as one atomic write.
func (s *BondStore) Update(_ context.Context, b *domain.Bond) error {
	if b == nil || b.ID.IsZero() {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[b.ID]; !exists {
		return storage.ErrNotFound
	}
	s.data[b.ID] = b.Clone()
	return nil
}

// List retrieves all bonds ordered by creation time then id.
func (s *BondStore) List(_ context.Context) ([]*domain.Bond, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Bond, 0, len(s.data))
	for _, b := range s.data {
		result = append(result, b.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt < result[j].CreatedAt
		}
		return result[i].ID.String() < result[j].ID.String()
	})
	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.BondStore = (*BondStore)(nil)
