package postgres

import (
	"context"
	"fmt"

	"impact-bond-engine/internal/domain"
	"impact-bond-engine/internal/storage"
)

// RoleStore implements storage.RoleStore using PostgreSQL.
type RoleStore struct {
	pool *Pool
}

// NewRoleStore creates a new RoleStore.
func NewRoleStore(pool *Pool) *RoleStore {
	return &RoleStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RoleStore = (*RoleStore)(nil)

// Get retrieves an account's role mask; an unknown account holds none.
func (s *RoleStore) Get(ctx context.Context, acc domain.AccountID) (domain.RoleMask, error) {
	var mask int16
	err := s.pool.QueryRow(ctx,
		`SELECT mask FROM account_roles WHERE account = $1`,
		string(acc),
	).Scan(&mask)
	if err != nil {
		if isNotFoundError(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("get roles: %w", err)
	}
	return domain.RoleMask(mask), nil
}

// Set writes an account's role mask.
func (s *RoleStore) Set(ctx context.Context, acc domain.AccountID, mask domain.RoleMask) error {
	query := `
		INSERT INTO account_roles (account, mask)
		VALUES ($1, $2)
		ON CONFLICT (account) DO UPDATE SET mask = EXCLUDED.mask
	`

	_, err := s.pool.Exec(ctx, query, string(acc), int16(mask))
	if err != nil {
		return fmt.Errorf("set roles: %w", err)
	}
	return nil
}

// BalanceStore implements storage.BalanceStore using PostgreSQL.
type BalanceStore struct {
	pool *Pool
}

// NewBalanceStore creates a new BalanceStore.
func NewBalanceStore(pool *Pool) *BalanceStore {
	return &BalanceStore{pool: pool}
}

// Compile-time interface check.
var _ storage.BalanceStore = (*BalanceStore)(nil)

// Get retrieves a balance; an unknown account holds zero.
func (s *BalanceStore) Get(ctx context.Context, acc domain.AccountID) (uint64, error) {
	var amount int64
	err := s.pool.QueryRow(ctx,
		`SELECT amount FROM token_balances WHERE account = $1`,
		string(acc),
	).Scan(&amount)
	if err != nil {
		if isNotFoundError(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return uint64(amount), nil
}

// Set writes a balance.
func (s *BalanceStore) Set(ctx context.Context, acc domain.AccountID, amount uint64) error {
	query := `
		INSERT INTO token_balances (account, amount)
		VALUES ($1, $2)
		ON CONFLICT (account) DO UPDATE SET amount = EXCLUDED.amount
	`

	_, err := s.pool.Exec(ctx, query, string(acc), int64(amount))
	if err != nil {
		return fmt.Errorf("set balance: %w", err)
	}
	return nil
}

// TokenRequestStore implements storage.TokenRequestStore using PostgreSQL.
type TokenRequestStore struct {
	pool *Pool
}

// NewTokenRequestStore creates a new TokenRequestStore.
func NewTokenRequestStore(pool *Pool) *TokenRequestStore {
	return &TokenRequestStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TokenRequestStore = (*TokenRequestStore)(nil)

// Insert files a request. Returns ErrDuplicateKey if the account already
// has an open request of that kind.
func (s *TokenRequestStore) Insert(ctx context.Context, r *domain.TokenRequest) error {
	query := `
		INSERT INTO token_requests (kind, account, amount, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := s.pool.Exec(ctx, query,
		string(r.Kind),
		string(r.Account),
		int64(r.Amount),
		r.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert token request: %w", err)
	}
	return nil
}

// Get retrieves an open request. Returns ErrNotFound if none.
func (s *TokenRequestStore) Get(ctx context.Context, kind domain.TokenRequestKind, acc domain.AccountID) (*domain.TokenRequest, error) {
	query := `
		SELECT amount, created_at
		FROM token_requests
		WHERE kind = $1 AND account = $2
	`

	var r domain.TokenRequest
	var amount int64
	err := s.pool.QueryRow(ctx, query, string(kind), string(acc)).Scan(&amount, &r.CreatedAt)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get token request: %w", err)
	}

	r.Kind = kind
	r.Account = acc
	r.Amount = uint64(amount)
	return &r, nil
}

// Delete removes an open request. Returns ErrNotFound if none.
func (s *TokenRequestStore) Delete(ctx context.Context, kind domain.TokenRequestKind, acc domain.AccountID) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM token_requests WHERE kind = $1 AND account = $2`,
		string(kind), string(acc),
	)
	if err != nil {
		return fmt.Errorf("delete token request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// List retrieves all open requests of a kind ordered by creation time.
func (s *TokenRequestStore) List(ctx context.Context, kind domain.TokenRequestKind) ([]*domain.TokenRequest, error) {
	query := `
		SELECT account, amount, created_at
		FROM token_requests
		WHERE kind = $1
		ORDER BY created_at ASC, account ASC
	`

	rows, err := s.pool.Query(ctx, query, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list token requests: %w", err)
	}
	defer rows.Close()

	var requests []*domain.TokenRequest
	for rows.Next() {
		var r domain.TokenRequest
		var account string
		var amount int64

		err := rows.Scan(&account, &amount, &r.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan token request row: %w", err)
		}
		r.Kind = kind
		r.Account = domain.AccountID(account)
		r.Amount = uint64(amount)
		requests = append(requests, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate token request rows: %w", err)
	}
	return requests, nil
}
