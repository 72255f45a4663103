package tokens

import (
	"context"
	"errors"
	"math"
	"testing"

	"impact-bond-engine/internal/clock"
	"impact-bond-engine/internal/domain"
	"impact-bond-engine/internal/roles"
	"impact-bond-engine/internal/storage"
	"impact-bond-engine/internal/storage/memory"
)

func newTestLedger(t *testing.T) (*Ledger, storage.BalanceStore) {
	t.Helper()

	ctx := context.Background()
	balances := memory.NewBalanceStore()
	registry := roles.NewRegistry(memory.NewRoleStore())
	if err := registry.Bootstrap(ctx, "master"); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if err := registry.Grant(ctx, "master", "custodian", domain.RoleCustodian); err != nil {
		t.Fatalf("Grant custodian: %v", err)
	}

	ledger := NewLedger(balances, memory.NewTokenRequestStore(), registry, clock.NewManual(1_700_000_000))
	return ledger, balances
}

func TestLedger_Transfer(t *testing.T) {
	ctx := context.Background()
	ledger, balances := newTestLedger(t)

	if err := balances.Set(ctx, "alice", 1_000); err != nil {
		t.Fatal(err)
	}

	if err := ledger.Transfer(ctx, "alice", "bob", 300); err != nil {
		t.Fatalf("Transfer: %v", err)
	}

	got, _ := ledger.Balance(ctx, "alice")
	if got != 700 {
		t.Fatalf("alice balance = %d, want 700", got)
	}
	got, _ = ledger.Balance(ctx, "bob")
	if got != 300 {
		t.Fatalf("bob balance = %d, want 300", got)
	}
}

func TestLedger_TransferInsufficient(t *testing.T) {
	ctx := context.Background()
	ledger, balances := newTestLedger(t)

	if err := balances.Set(ctx, "alice", 100); err != nil {
		t.Fatal(err)
	}

	err := ledger.Transfer(ctx, "alice", "bob", 101)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("Transfer = %v, want ErrInsufficientFunds", err)
	}

	// No partial movement.
	got, _ := ledger.Balance(ctx, "alice")
	if got != 100 {
		t.Fatalf("alice balance mutated to %d", got)
	}
}

func TestLedger_TransferOverflowLeavesPayerIntact(t *testing.T) {
	ctx := context.Background()
	ledger, balances := newTestLedger(t)

	balances.Set(ctx, "alice", 10)
	balances.Set(ctx, "bob", math.MaxUint64)

	err := ledger.Transfer(ctx, "alice", "bob", 5)
	if !errors.Is(err, ErrOverflow) {
		t.Fatalf("Transfer = %v, want ErrOverflow", err)
	}
	got, _ := ledger.Balance(ctx, "alice")
	if got != 10 {
		t.Fatalf("alice balance mutated to %d", got)
	}
}

func TestLedger_SelfTransferIsNoop(t *testing.T) {
	ctx := context.Background()
	ledger, balances := newTestLedger(t)

	balances.Set(ctx, "alice", 500)
	if err := ledger.Transfer(ctx, "alice", "alice", 200); err != nil {
		t.Fatalf("self transfer: %v", err)
	}
	got, _ := ledger.Balance(ctx, "alice")
	if got != 500 {
		t.Fatalf("alice balance = %d, want 500", got)
	}
}

func TestLedger_MintLifecycle(t *testing.T) {
	ctx := context.Background()
	ledger, _ := newTestLedger(t)

	if err := ledger.RequestMint(ctx, "alice", 1_000); err != nil {
		t.Fatalf("RequestMint: %v", err)
	}

	// Second open request of the same kind is rejected.
	if err := ledger.RequestMint(ctx, "alice", 2_000); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("second RequestMint = %v, want ErrDuplicateKey", err)
	}

	// Only a custodian settles.
	if err := ledger.ConfirmMint(ctx, "alice", "alice"); !errors.Is(err, ErrNotCustodian) {
		t.Fatalf("ConfirmMint by non-custodian = %v, want ErrNotCustodian", err)
	}

	if err := ledger.ConfirmMint(ctx, "custodian", "alice"); err != nil {
		t.Fatalf("ConfirmMint: %v", err)
	}

	got, _ := ledger.Balance(ctx, "alice")
	if got != 1_000 {
		t.Fatalf("alice balance = %d, want 1000", got)
	}

	// The request queue is drained.
	if err := ledger.ConfirmMint(ctx, "custodian", "alice"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("ConfirmMint on empty queue = %v, want ErrNotFound", err)
	}
}

func TestLedger_BurnChecksBalanceAtConfirmation(t *testing.T) {
	ctx := context.Background()
	ledger, balances := newTestLedger(t)

	balances.Set(ctx, "alice", 500)

	// Filing succeeds even above the current balance.
	if err := ledger.RequestBurn(ctx, "alice", 800); err != nil {
		t.Fatalf("RequestBurn: %v", err)
	}

	err := ledger.ConfirmBurn(ctx, "custodian", "alice")
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("ConfirmBurn = %v, want ErrInsufficientFunds", err)
	}

	// Funding the account lets the same request settle.
	balances.Set(ctx, "alice", 800)
	if err := ledger.ConfirmBurn(ctx, "custodian", "alice"); err != nil {
		t.Fatalf("ConfirmBurn after funding: %v", err)
	}
	got, _ := ledger.Balance(ctx, "alice")
	if got != 0 {
		t.Fatalf("alice balance = %d, want 0", got)
	}
}

func TestLedger_Decline(t *testing.T) {
	ctx := context.Background()
	ledger, _ := newTestLedger(t)

	if err := ledger.RequestMint(ctx, "alice", 100); err != nil {
		t.Fatal(err)
	}
	if err := ledger.Decline(ctx, "custodian", domain.RequestMint, "alice"); err != nil {
		t.Fatalf("Decline: %v", err)
	}

	got, _ := ledger.Balance(ctx, "alice")
	if got != 0 {
		t.Fatalf("declined mint credited %d", got)
	}

	pending, err := ledger.PendingRequests(ctx, domain.RequestMint)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Fatalf("pending queue has %d entries, want 0", len(pending))
	}
}

func TestLedger_ZeroAmount(t *testing.T) {
	ctx := context.Background()
	ledger, _ := newTestLedger(t)

	if err := ledger.Transfer(ctx, "alice", "bob", 0); !errors.Is(err, ErrZeroAmount) {
		t.Fatalf("zero transfer = %v, want ErrZeroAmount", err)
	}
	if err := ledger.RequestMint(ctx, "alice", 0); !errors.Is(err, ErrZeroAmount) {
		t.Fatalf("zero mint = %v, want ErrZeroAmount", err)
	}
}
