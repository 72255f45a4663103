package engine

import (
	"context"
	"fmt"

	"impact-bond-engine/internal/docsign"
	"impact-bond-engine/internal/domain"
	"impact-bond-engine/internal/events"
)

// FileDocument records a document by its content hash. The file itself
// lives off-system; bond parameter commitments point at these hashes.
func (s *Service) FileDocument(ctx context.Context, filer domain.AccountID, hash domain.Hash, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := &domain.Document{
		Hash:    hash,
		Title:   title,
		Filer:   filer,
		FiledAt: s.clock.Now(),
	}
	if err := s.documents.Insert(ctx, doc); err != nil {
		return fmt.Errorf("insert document: %w", err)
	}

	s.emit(events.TypeDocumentFiled, func(e *events.Event) {
		e.Account = filer
	})
	return nil
}

// SignDocument verifies and records an ed25519 signature over a filed
// document's hash. The signer's address is the public key.
func (s *Service) SignDocument(ctx context.Context, signer domain.AccountID, hash domain.Hash, sig []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.documents.Get(ctx, hash); err != nil {
		return err
	}
	if err := docsign.Verify(signer, hash, sig); err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	record := &domain.DocumentSignature{
		DocHash:  hash,
		Signer:   signer,
		Sig:      sig,
		SignedAt: s.clock.Now(),
	}
	if err := s.documents.AddSignature(ctx, record); err != nil {
		return fmt.Errorf("add signature: %w", err)
	}

	s.emit(events.TypeDocumentSigned, func(e *events.Event) {
		e.Account = signer
	})
	return nil
}

// DocumentSignatures lists the recorded signatures of a document.
func (s *Service) DocumentSignatures(ctx context.Context, hash domain.Hash) ([]*domain.DocumentSignature, error) {
	return s.documents.Signatures(ctx, hash)
}
