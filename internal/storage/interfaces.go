package storage

import (
	"context"

	"impact-bond-engine/internal/domain"
)

// BondStore holds the bond records. Bonds are never deleted: they are
// retained permanently as financial records.
type BondStore interface {
	// Insert adds a new bond. Returns ErrDuplicateKey if the id exists.
	Insert(ctx context.Context, b *domain.Bond) error

	// GetByID retrieves a bond. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id domain.BondID) (*domain.Bond, error)

	// Update replaces the stored bond record as one atomic write.
	// Returns ErrNotFound if the bond was never inserted.
	Update(ctx context.Context, b *domain.Bond) error

	// List retrieves all bonds ordered by creation time then id.
	List(ctx context.Context) ([]*domain.Bond, error)
}

// PackageStore holds bondholder acquisition lots keyed by (bond, account).
type PackageStore interface {
	// Insert appends a new lot for the account.
	Insert(ctx context.Context, p *domain.UnitPackage) error

	// GetByAccount retrieves the account's lots for a bond, ordered by
	// acquisition period then creation time.
	GetByAccount(ctx context.Context, id domain.BondID, acc domain.AccountID) ([]*domain.UnitPackage, error)

	// GetByBond retrieves every lot of a bond grouped in account order.
	GetByBond(ctx context.Context, id domain.BondID) ([]*domain.UnitPackage, error)

	// ReplaceForAccount atomically swaps the account's lots for new ones.
	// Settlement produces new packages rather than mutating old ones.
	ReplaceForAccount(ctx context.Context, id domain.BondID, acc domain.AccountID, lots []*domain.UnitPackage) error

	// DeleteByBond drops every lot of a bond (booking revert).
	DeleteByBond(ctx context.Context, id domain.BondID) error
}

// ImpactReportStore holds per-period impact reports.
type ImpactReportStore interface {
	// Insert adds a report. Returns ErrDuplicateKey if the (bond, period)
	// slot is already reported.
	Insert(ctx context.Context, r *domain.ImpactReport) error

	// Get retrieves one period's report. Returns ErrNotFound if missing.
	Get(ctx context.Context, id domain.BondID, period uint32) (*domain.ImpactReport, error)

	// Update replaces a stored report (auditor sign-off).
	Update(ctx context.Context, r *domain.ImpactReport) error

	// ListByBond retrieves all reports of a bond ordered by period ASC.
	ListByBond(ctx context.Context, id domain.BondID) ([]*domain.ImpactReport, error)
}

// PeriodYieldStore is the append-only coupon accrual history.
type PeriodYieldStore interface {
	// Insert appends one accrual row. Returns ErrDuplicateKey if the
	// (bond, period) row exists; rows are never updated.
	Insert(ctx context.Context, y *domain.PeriodYield) error

	// Get retrieves one period's row. Returns ErrNotFound if missing.
	Get(ctx context.Context, id domain.BondID, period uint32) (*domain.PeriodYield, error)

	// ListByBond retrieves all rows of a bond ordered by period ASC.
	ListByBond(ctx context.Context, id domain.BondID) ([]*domain.PeriodYield, error)
}

// AccountYieldStore holds per-bondholder settlement cursors.
type AccountYieldStore interface {
	// Get retrieves the cursor. Returns ErrNotFound if never settled.
	Get(ctx context.Context, id domain.BondID, acc domain.AccountID) (*domain.AccountYield, error)

	// Upsert writes the cursor.
	Upsert(ctx context.Context, y *domain.AccountYield) error
}

// RoleStore holds the account role registry.
type RoleStore interface {
	// Get retrieves an account's role mask; an unknown account holds none.
	Get(ctx context.Context, acc domain.AccountID) (domain.RoleMask, error)

	// Set writes an account's role mask.
	Set(ctx context.Context, acc domain.AccountID, mask domain.RoleMask) error
}

// BalanceStore holds EverUSD balances, including bond treasury accounts.
type BalanceStore interface {
	// Get retrieves a balance; an unknown account holds zero.
	Get(ctx context.Context, acc domain.AccountID) (uint64, error)

	// Set writes a balance.
	Set(ctx context.Context, acc domain.AccountID, amount uint64) error
}

// TokenRequestStore holds the custodian mint/burn request queues.
type TokenRequestStore interface {
	// Insert files a request. Returns ErrDuplicateKey if the account
	// already has an open request of that kind.
	Insert(ctx context.Context, r *domain.TokenRequest) error

	// Get retrieves an open request. Returns ErrNotFound if none.
	Get(ctx context.Context, kind domain.TokenRequestKind, acc domain.AccountID) (*domain.TokenRequest, error)

	// Delete removes an open request (confirmed or declined).
	Delete(ctx context.Context, kind domain.TokenRequestKind, acc domain.AccountID) error

	// List retrieves all open requests of a kind ordered by creation time.
	List(ctx context.Context, kind domain.TokenRequestKind) ([]*domain.TokenRequest, error)
}

// DocumentStore holds filed documents and their signature records.
type DocumentStore interface {
	// Insert files a document. Returns ErrDuplicateKey if the hash exists.
	Insert(ctx context.Context, d *domain.Document) error

	// Get retrieves a document by content hash.
	Get(ctx context.Context, hash domain.Hash) (*domain.Document, error)

	// AddSignature appends a signature record. Returns ErrDuplicateKey if
	// the signer already signed this document.
	AddSignature(ctx context.Context, s *domain.DocumentSignature) error

	// Signatures retrieves a document's signatures ordered by signing time.
	Signatures(ctx context.Context, hash domain.Hash) ([]*domain.DocumentSignature, error)
}
