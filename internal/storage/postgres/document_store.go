package postgres

import (
	"context"
	"fmt"

	"impact-bond-engine/internal/domain"
	"impact-bond-engine/internal/storage"
)

// DocumentStore implements storage.DocumentStore using PostgreSQL.
type DocumentStore struct {
	pool *Pool
}

// NewDocumentStore creates a new DocumentStore.
func NewDocumentStore(pool *Pool) *DocumentStore {
	return &DocumentStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DocumentStore = (*DocumentStore)(nil)

// Insert files a document. Returns ErrDuplicateKey if the hash exists.
func (s *DocumentStore) Insert(ctx context.Context, d *domain.Document) error {
	query := `
		INSERT INTO documents (hash, title, filer, filed_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := s.pool.Exec(ctx, query,
		d.Hash.String(),
		d.Title,
		string(d.Filer),
		d.FiledAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// Get retrieves a document by content hash. Returns ErrNotFound if missing.
func (s *DocumentStore) Get(ctx context.Context, hash domain.Hash) (*domain.Document, error) {
	query := `
		SELECT title, filer, filed_at
		FROM documents
		WHERE hash = $1
	`

	var d domain.Document
	var filer string
	err := s.pool.QueryRow(ctx, query, hash.String()).Scan(&d.Title, &filer, &d.FiledAt)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get document: %w", err)
	}

	d.Hash = hash
	d.Filer = domain.AccountID(filer)
	return &d, nil
}

// AddSignature appends a signature record. Returns ErrDuplicateKey if the
// signer already signed this document.
func (s *DocumentStore) AddSignature(ctx context.Context, sig *domain.DocumentSignature) error {
	query := `
		INSERT INTO document_signatures (doc_hash, signer, sig, signed_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := s.pool.Exec(ctx, query,
		sig.DocHash.String(),
		string(sig.Signer),
		sig.Sig,
		sig.SignedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert document signature: %w", err)
	}
	return nil
}

// Signatures retrieves a document's signatures ordered by signing time.
func (s *DocumentStore) Signatures(ctx context.Context, hash domain.Hash) ([]*domain.DocumentSignature, error) {
	query := `
		SELECT signer, sig, signed_at
		FROM document_signatures
		WHERE doc_hash = $1
		ORDER BY signed_at ASC, signer ASC
	`

	rows, err := s.pool.Query(ctx, query, hash.String())
	if err != nil {
		return nil, fmt.Errorf("get document signatures: %w", err)
	}
	defer rows.Close()

	var sigs []*domain.DocumentSignature
	for rows.Next() {
		var sig domain.DocumentSignature
		var signer string

		err := rows.Scan(&signer, &sig.Sig, &sig.SignedAt)
		if err != nil {
			return nil, fmt.Errorf("scan document signature row: %w", err)
		}
		sig.DocHash = hash
		sig.Signer = domain.AccountID(signer)
		sigs = append(sigs, &sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate document signature rows: %w", err)
	}
	return sigs, nil
}
