package memory

import (
	"context"
	"sort"
	"sync"

	"impact-bond-engine/internal/domain"
	"impact-bond-engine/internal/storage"
)

// RoleStore is an in-memory implementation of storage.RoleStore.
type RoleStore struct {
	mu   sync.RWMutex
	data map[domain.AccountID]domain.RoleMask
}

// NewRoleStore creates a new in-memory role store.
func NewRoleStore() *RoleStore {
	return &RoleStore{data: make(map[domain.AccountID]domain.RoleMask)}
}

// Get retrieves an account's role mask; an unknown account holds none.
func (s *RoleStore) Get(_ context.Context, acc domain.AccountID) (domain.RoleMask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data[acc], nil
}

// Set writes an account's role mask.
func (s *RoleStore) Set(_ context.Context, acc domain.AccountID, mask domain.RoleMask) error {
	if acc == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[acc] = mask
	return nil
}

// Verify interface compliance at compile time.
var _ storage.RoleStore = (*RoleStore)(nil)

// BalanceStore is an in-memory implementation of storage.BalanceStore.
type BalanceStore struct {
	mu   sync.RWMutex
	data map[domain.AccountID]uint64
}

// NewBalanceStore creates a new in-memory balance store.
func NewBalanceStore() *BalanceStore {
	return &BalanceStore{data: make(map[domain.AccountID]uint64)}
}

// Get retrieves a balance; an unknown account holds zero.
func (s *BalanceStore) Get(_ context.Context, acc domain.AccountID) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data[acc], nil
}

// Set writes a balance.
func (s *BalanceStore) Set(_ context.Context, acc domain.AccountID, amount uint64) error {
	if acc == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if amount == 0 {
		delete(s.data, acc)
		return nil
	}
	s.data[acc] = amount
	return nil
}

// Verify interface compliance at compile time.
var _ storage.BalanceStore = (*BalanceStore)(nil)

type requestKey struct {
	kind    domain.TokenRequestKind
	account domain.AccountID
}

// TokenRequestStore is an in-memory implementation of storage.TokenRequestStore.
type TokenRequestStore struct {
	mu   sync.RWMutex
	data map[requestKey]*domain.TokenRequest
}

// NewTokenRequestStore creates a new in-memory token request store.
func NewTokenRequestStore() *TokenRequestStore {
	return &TokenRequestStore{data: make(map[requestKey]*domain.TokenRequest)}
}

// Insert files a request. Returns ErrDuplicateKey if one is already open.
func (s *TokenRequestStore) Insert(_ context.Context, r *domain.TokenRequest) error {
	if r == nil || r.Account == "" || r.Amount == 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := requestKey{kind: r.Kind, account: r.Account}
	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}
	cp := *r
	s.data[key] = &cp
	return nil
}

// Get retrieves an open request. Returns ErrNotFound if none.
func (s *TokenRequestStore) Get(_ context.Context, kind domain.TokenRequestKind, acc domain.AccountID) (*domain.TokenRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[requestKey{kind: kind, account: acc}]
	if !exists {
		return nil, storage.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

// Delete removes an open request.
func (s *TokenRequestStore) Delete(_ context.Context, kind domain.TokenRequestKind, acc domain.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := requestKey{kind: kind, account: acc}
	if _, exists := s.data[key]; !exists {
		return storage.ErrNotFound
	}
	delete(s.data, key)
	return nil
}

// List retrieves all open requests of a kind ordered by creation time.
func (s *TokenRequestStore) List(_ context.Context, kind domain.TokenRequestKind) ([]*domain.TokenRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TokenRequest
	for key, r := range s.data {
		if key.kind == kind {
			cp := *r
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt < result[j].CreatedAt
		}
		return result[i].Account < result[j].Account
	})
	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.TokenRequestStore = (*TokenRequestStore)(nil)
