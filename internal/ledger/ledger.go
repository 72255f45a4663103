// Package ledger implements bond-local fund accounting. Three unsigned
// counters move together under a strict conservation rule: at most one of
// Debt and FreeBalance is non-zero at any time.
package ledger

import (
	"errors"

	"impact-bond-engine/internal/arith"
)

// ErrUnderflow is reported when a decrease exceeds either counter. The
// ledger is left untouched.
var ErrUnderflow = errors.New("ledger: amount exceeds balance")

// ErrOverflow is reported when an increase would wrap a counter.
var ErrOverflow = errors.New("ledger: balance overflow")

// Ledger tracks funds received into a bond (Debit), liabilities owed to
// bondholders (Credit), and the yield already distributed (CouponYield).
type Ledger struct {
	Debit       uint64
	Credit      uint64
	CouponYield uint64
}

// Increase books newly raised funds and the matching liability, e.g. a unit
// purchase. Applied to both counters or neither.
func (l *Ledger) Increase(amount uint64) error {
	d, ok := arith.CheckedAdd64(l.Debit, amount)
	if !ok {
		return ErrOverflow
	}
	c, ok := arith.CheckedAdd64(l.Credit, amount)
	if !ok {
		return ErrOverflow
	}
	l.Debit, l.Credit = d, c
	return nil
}

// Decrease is the inverse of Increase, used when units are returned or
// redeemed. Fails without mutation if amount exceeds either counter.
func (l *Ledger) Decrease(amount uint64) error {
	d, ok := arith.CheckedSub64(l.Debit, amount)
	if !ok {
		return ErrUnderflow
	}
	c, ok := arith.CheckedSub64(l.Credit, amount)
	if !ok {
		return ErrUnderflow
	}
	l.Debit, l.Credit = d, c
	return nil
}

// AddLiability books an obligation with no matching inflow: coupon accrual.
func (l *Ledger) AddLiability(amount uint64) error {
	c, ok := arith.CheckedAdd64(l.Credit, amount)
	if !ok {
		return ErrOverflow
	}
	l.Credit = c
	return nil
}

// Deposit books an inflow with no new obligation: issuer funding.
func (l *Ledger) Deposit(amount uint64) error {
	d, ok := arith.CheckedAdd64(l.Debit, amount)
	if !ok {
		return ErrOverflow
	}
	l.Debit = d
	return nil
}

// Withdraw books an outflow of free balance back to the issuer.
func (l *Ledger) Withdraw(amount uint64) error {
	if amount > l.FreeBalance() {
		return ErrUnderflow
	}
	l.Debit -= amount
	return nil
}

// PayYield settles distributed coupon: funds leave, the liability is
// extinguished, and the cumulative distribution counter advances.
func (l *Ledger) PayYield(amount uint64) error {
	y, ok := arith.CheckedAdd64(l.CouponYield, amount)
	if !ok {
		return ErrOverflow
	}
	if err := l.Decrease(amount); err != nil {
		return err
	}
	l.CouponYield = y
	return nil
}

// Debt is the unfunded liability: max(credit-debit, 0).
func (l *Ledger) Debt() uint64 {
	if l.Credit > l.Debit {
		return l.Credit - l.Debit
	}
	return 0
}

// FreeBalance is the surplus over liabilities: max(debit-credit, 0).
func (l *Ledger) FreeBalance() uint64 {
	if l.Debit > l.Credit {
		return l.Debit - l.Credit
	}
	return 0
}
