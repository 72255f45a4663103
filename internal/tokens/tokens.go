// Package tokens implements the EverUSD ledger: account balances, direct
// transfers, and the custodian-settled mint/burn request queues. EverUSD is
// an integer stablecoin in minor units; balances never go negative and the
// total supply only changes through confirmed custodian requests.
package tokens

import (
	"context"
	"errors"
	"fmt"

	"impact-bond-engine/internal/arith"
	"impact-bond-engine/internal/clock"
	"impact-bond-engine/internal/domain"
	"impact-bond-engine/internal/roles"
	"impact-bond-engine/internal/storage"
)

var (
	// ErrInsufficientFunds is reported when a transfer or burn exceeds the
	// payer's balance.
	ErrInsufficientFunds = errors.New("tokens: insufficient funds")

	// ErrOverflow is reported when a credit would wrap the recipient's
	// balance or the supply counter.
	ErrOverflow = errors.New("tokens: balance overflow")

	// ErrZeroAmount is reported for zero-amount operations; they are
	// always mistakes upstream.
	ErrZeroAmount = errors.New("tokens: amount must be positive")

	// ErrNotCustodian is reported when an account without the custodian
	// role tries to settle a mint or burn request.
	ErrNotCustodian = errors.New("tokens: caller is not a custodian")
)

// Ledger is the EverUSD token ledger.
type Ledger struct {
	balances storage.BalanceStore
	requests storage.TokenRequestStore
	registry *roles.Registry
	clock    clock.Clock
}

// NewLedger creates a Ledger over the given stores.
func NewLedger(balances storage.BalanceStore, requests storage.TokenRequestStore, registry *roles.Registry, clk clock.Clock) *Ledger {
	return &Ledger{balances: balances, requests: requests, registry: registry, clock: clk}
}

// Balance returns an account's balance. Unknown accounts hold zero.
func (l *Ledger) Balance(ctx context.Context, acc domain.AccountID) (uint64, error) {
	return l.balances.Get(ctx, acc)
}

// Transfer moves amount from one account to another. Both writes happen or
// neither does; the self-transfer short-circuits so the double write cannot
// corrupt the balance.
func (l *Ledger) Transfer(ctx context.Context, from, to domain.AccountID, amount uint64) error {
	if amount == 0 {
		return ErrZeroAmount
	}
	if from == to {
		return nil
	}

	src, err := l.balances.Get(ctx, from)
	if err != nil {
		return fmt.Errorf("get balance of %s: %w", from, err)
	}
	if src < amount {
		return ErrInsufficientFunds
	}

	dst, err := l.balances.Get(ctx, to)
	if err != nil {
		return fmt.Errorf("get balance of %s: %w", to, err)
	}
	credited, ok := arith.CheckedAdd64(dst, amount)
	if !ok {
		return ErrOverflow
	}

	if err := l.balances.Set(ctx, from, src-amount); err != nil {
		return fmt.Errorf("debit %s: %w", from, err)
	}
	if err := l.balances.Set(ctx, to, credited); err != nil {
		return fmt.Errorf("credit %s: %w", to, err)
	}
	return nil
}

// RequestMint files a mint request for the caller. One open request per
// account; a second request replaces nothing and fails.
func (l *Ledger) RequestMint(ctx context.Context, acc domain.AccountID, amount uint64) error {
	return l.fileRequest(ctx, domain.RequestMint, acc, amount)
}

// RequestBurn files a burn request for the caller. The balance check happens
// at confirmation, not filing, because the balance may change in between.
func (l *Ledger) RequestBurn(ctx context.Context, acc domain.AccountID, amount uint64) error {
	return l.fileRequest(ctx, domain.RequestBurn, acc, amount)
}

func (l *Ledger) fileRequest(ctx context.Context, kind domain.TokenRequestKind, acc domain.AccountID, amount uint64) error {
	if amount == 0 {
		return ErrZeroAmount
	}
	err := l.requests.Insert(ctx, &domain.TokenRequest{
		Kind:      kind,
		Account:   acc,
		Amount:    amount,
		CreatedAt: l.clock.Now(),
	})
	if err != nil {
		return fmt.Errorf("file %s request for %s: %w", kind, acc, err)
	}
	return nil
}

// ConfirmMint settles a mint request: the custodian has received the fiat
// backing and the tokens come into existence.
func (l *Ledger) ConfirmMint(ctx context.Context, custodian, acc domain.AccountID) error {
	if err := l.requireCustodian(ctx, custodian); err != nil {
		return err
	}

	req, err := l.requests.Get(ctx, domain.RequestMint, acc)
	if err != nil {
		return fmt.Errorf("get mint request for %s: %w", acc, err)
	}

	balance, err := l.balances.Get(ctx, acc)
	if err != nil {
		return fmt.Errorf("get balance of %s: %w", acc, err)
	}
	credited, ok := arith.CheckedAdd64(balance, req.Amount)
	if !ok {
		return ErrOverflow
	}

	if err := l.balances.Set(ctx, acc, credited); err != nil {
		return fmt.Errorf("credit %s: %w", acc, err)
	}
	if err := l.requests.Delete(ctx, domain.RequestMint, acc); err != nil {
		return fmt.Errorf("close mint request for %s: %w", acc, err)
	}
	return nil
}

// ConfirmBurn settles a burn request: tokens leave circulation against a
// fiat payout.
func (l *Ledger) ConfirmBurn(ctx context.Context, custodian, acc domain.AccountID) error {
	if err := l.requireCustodian(ctx, custodian); err != nil {
		return err
	}

	req, err := l.requests.Get(ctx, domain.RequestBurn, acc)
	if err != nil {
		return fmt.Errorf("get burn request for %s: %w", acc, err)
	}

	balance, err := l.balances.Get(ctx, acc)
	if err != nil {
		return fmt.Errorf("get balance of %s: %w", acc, err)
	}
	if balance < req.Amount {
		return ErrInsufficientFunds
	}

	if err := l.balances.Set(ctx, acc, balance-req.Amount); err != nil {
		return fmt.Errorf("debit %s: %w", acc, err)
	}
	if err := l.requests.Delete(ctx, domain.RequestBurn, acc); err != nil {
		return fmt.Errorf("close burn request for %s: %w", acc, err)
	}
	return nil
}

// Decline drops an open request without settling it.
func (l *Ledger) Decline(ctx context.Context, custodian domain.AccountID, kind domain.TokenRequestKind, acc domain.AccountID) error {
	if err := l.requireCustodian(ctx, custodian); err != nil {
		return err
	}
	if err := l.requests.Delete(ctx, kind, acc); err != nil {
		return fmt.Errorf("decline %s request for %s: %w", kind, acc, err)
	}
	return nil
}

// PendingRequests lists open requests of a kind in filing order.
func (l *Ledger) PendingRequests(ctx context.Context, kind domain.TokenRequestKind) ([]*domain.TokenRequest, error) {
	return l.requests.List(ctx, kind)
}

func (l *Ledger) requireCustodian(ctx context.Context, acc domain.AccountID) error {
	ok, err := l.registry.Has(ctx, acc, domain.RoleCustodian)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotCustodian
	}
	return nil
}
