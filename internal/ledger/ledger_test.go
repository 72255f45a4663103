package ledger

import (
	"errors"
	"math"
	"testing"
)

func TestIncreaseDecreaseRoundTrip(t *testing.T) {
	l := Ledger{Debit: 700, Credit: 300}
	orig := l

	if err := l.Increase(500); err != nil {
		t.Fatalf("Increase failed: %v", err)
	}
	if l.Debit != 1200 || l.Credit != 800 {
		t.Fatalf("unexpected balances after increase: %+v", l)
	}
	if err := l.Decrease(500); err != nil {
		t.Fatalf("Decrease failed: %v", err)
	}
	if l != orig {
		t.Fatalf("round trip did not restore ledger: got %+v, want %+v", l, orig)
	}
}

func TestDecreaseUnderflowLeavesStateUnchanged(t *testing.T) {
	l := Ledger{Debit: 100, Credit: 50}
	before := l

	err := l.Decrease(60) // exceeds credit but not debit
	if !errors.Is(err, ErrUnderflow) {
		t.Fatalf("expected ErrUnderflow, got %v", err)
	}
	if l != before {
		t.Fatalf("failed decrease mutated ledger: %+v", l)
	}
}

func TestIncreaseOverflowLeavesStateUnchanged(t *testing.T) {
	l := Ledger{Debit: math.MaxUint64 - 1, Credit: 10}
	before := l

	if err := l.Increase(5); !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
	if l != before {
		t.Fatalf("failed increase mutated ledger: %+v", l)
	}
}

func TestDebtAndFreeBalanceAreExclusive(t *testing.T) {
	cases := []Ledger{
		{},
		{Debit: 100, Credit: 100},
		{Debit: 300, Credit: 100},
		{Debit: 100, Credit: 300},
		{Debit: math.MaxUint64, Credit: 0},
	}
	for _, l := range cases {
		if l.Debt() != 0 && l.FreeBalance() != 0 {
			t.Fatalf("debt=%d and free=%d both non-zero for %+v", l.Debt(), l.FreeBalance(), l)
		}
	}
}

func TestConservationAcrossMutations(t *testing.T) {
	var l Ledger

	steps := []func() error{
		func() error { return l.Increase(1000) },   // units sold
		func() error { return l.AddLiability(90) }, // coupon accrues
		func() error { return l.Deposit(90) },      // issuer covers it
		func() error { return l.PayYield(90) },     // investor paid
		func() error { return l.Decrease(1000) },   // units redeemed
	}
	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d failed: %v", i, err)
		}
		if l.Debt() != 0 && l.FreeBalance() != 0 {
			t.Fatalf("conservation broken after step %d: %+v", i, l)
		}
	}

	if l.Debit != 0 || l.Credit != 0 {
		t.Fatalf("expected settled ledger, got %+v", l)
	}
	if l.CouponYield != 90 {
		t.Fatalf("expected coupon yield 90, got %d", l.CouponYield)
	}
}

func TestWithdrawOnlyFreeBalance(t *testing.T) {
	l := Ledger{Debit: 500, Credit: 400}

	if err := l.Withdraw(101); !errors.Is(err, ErrUnderflow) {
		t.Fatalf("expected ErrUnderflow withdrawing past free balance, got %v", err)
	}
	if err := l.Withdraw(100); err != nil {
		t.Fatalf("Withdraw failed: %v", err)
	}
	if l.FreeBalance() != 0 || l.Debt() != 0 {
		t.Fatalf("expected balanced ledger, got %+v", l)
	}
}

func TestPayYieldRequiresFunds(t *testing.T) {
	l := Ledger{Debit: 10, Credit: 50}
	before := l

	if err := l.PayYield(20); !errors.Is(err, ErrUnderflow) {
		t.Fatalf("expected ErrUnderflow, got %v", err)
	}
	if l != before {
		t.Fatalf("failed payout mutated ledger: %+v", l)
	}
}
