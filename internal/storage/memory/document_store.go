package memory

import (
	"context"
	"sort"
	"sync"

	"impact-bond-engine/internal/domain"
	"impact-bond-engine/internal/storage"
)

type signatureKey struct {
	hash   domain.Hash
	signer domain.AccountID
}

// DocumentStore is an in-memory implementation of storage.DocumentStore.
type DocumentStore struct {
	mu   sync.RWMutex
	docs map[domain.Hash]*domain.Document
	sigs map[signatureKey]*domain.DocumentSignature
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		docs: make(map[domain.Hash]*domain.Document),
		sigs: make(map[signatureKey]*domain.DocumentSignature),
	}
}

// Insert files a document. Returns ErrDuplicateKey if the hash exists.
func (s *DocumentStore) Insert(_ context.Context, d *domain.Document) error {
	if d == nil || d.Hash == (domain.Hash{}) || d.Filer == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.docs[d.Hash]; exists {
		return storage.ErrDuplicateKey
	}
	cp := *d
	s.docs[d.Hash] = &cp
	return nil
}

// Get retrieves a document by content hash.
func (s *DocumentStore) Get(_ context.Context, hash domain.Hash) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, exists := s.docs[hash]
	if !exists {
		return nil, storage.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

// AddSignature appends a signature record.
func (s *DocumentStore) AddSignature(_ context.Context, sig *domain.DocumentSignature) error {
	if sig == nil || sig.Signer == "" || len(sig.Sig) == 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.docs[sig.DocHash]; !exists {
		return storage.ErrNotFound
	}
	key := signatureKey{hash: sig.DocHash, signer: sig.Signer}
	if _, exists := s.sigs[key]; exists {
		return storage.ErrDuplicateKey
	}
	cp := *sig
	cp.Sig = append([]byte(nil), sig.Sig...)
	s.sigs[key] = &cp
	return nil
}

// Signatures retrieves a document's signatures ordered by signing time.
func (s *DocumentStore) Signatures(_ context.Context, hash domain.Hash) ([]*domain.DocumentSignature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DocumentSignature
	for key, sig := range s.sigs {
		if key.hash != hash {
			continue
		}
		cp := *sig
		cp.Sig = append([]byte(nil), sig.Sig...)
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].SignedAt != result[j].SignedAt {
			return result[i].SignedAt < result[j].SignedAt
		}
		return result[i].Signer < result[j].Signer
	})
	return result, nil
}

// Verify interface compliance at compile time.
var _ storage.DocumentStore = (*DocumentStore)(nil)
