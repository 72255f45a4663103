package engine

import (
	"context"
	"fmt"

	"impact-bond-engine/internal/arith"
	"impact-bond-engine/internal/domain"
	"impact-bond-engine/internal/events"
	"impact-bond-engine/internal/schedule"
)

// BuyUnits sells n units to an investor during BOOKING or on the secondary
// window while ACTIVE. The par value moves investor -> treasury, the ledger
// books matching debit and credit, and a new acquisition lot records the
// period the purchase lands in.
func (s *Service) BuyUnits(ctx context.Context, investor domain.AccountID, id domain.BondID, n uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireRole(ctx, investor, domain.RoleInvestor); err != nil {
		return err
	}
	bond, err := s.bonds.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := requireState(bond, domain.StateBooking, domain.StateActive); err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: zero units", ErrInvalidParameters)
	}
	if bond.IssuedUnits+n < bond.IssuedUnits || bond.IssuedUnits+n > bond.Params.UnitsMaxAmount {
		return fmt.Errorf("%w: %d issued + %d requested > maxcap %d", ErrCapacityExceeded, bond.IssuedUnits, n, bond.Params.UnitsMaxAmount)
	}

	par, ok := bond.Params.ParValue(n)
	if !ok {
		return fmt.Errorf("%w: par value of %d units", ErrArithmeticOverflow, n)
	}

	// A lot bought mid-life starts earning coupon in the period after the
	// one it lands in; booking-time lots carry period 0.
	var acquisition uint32
	if bond.State == domain.StateActive {
		if err := s.accrueAndCommit(ctx, bond); err != nil {
			return err
		}
		elapsed, ok := schedule.Elapsed(bond.ActivatedAt, s.clock.Now())
		if !ok {
			return fmt.Errorf("%w: bond %s is past its schedule", ErrDeadlineExceeded, id)
		}
		acquisition = schedule.PeriodIndex(&bond.Params, elapsed)
	}

	if err := s.transferIn(ctx, investor, id, par); err != nil {
		return err
	}
	if err := mapLedgerErr(bond.Ledger.Increase(par)); err != nil {
		return err
	}
	bond.IssuedUnits += n

	pkg := &domain.UnitPackage{
		BondID:            id,
		Account:           investor,
		Units:             n,
		AcquisitionPeriod: acquisition,
		CreatedAt:         s.clock.Now(),
	}
	if err := s.packages.Insert(ctx, pkg); err != nil {
		return fmt.Errorf("insert package: %w", err)
	}
	if err := s.bonds.Update(ctx, bond); err != nil {
		return fmt.Errorf("update bond %s: %w", id, err)
	}

	s.emit(events.TypeUnitsBought, func(e *events.Event) {
		e.BondID = id.String()
		e.Account = investor
		e.Units = n
		e.Amount = par
	})
	return nil
}

// ReturnUnits lets an investor back out of n units while the book is still
// open: the ledger shrinks and the par value flows back.
func (s *Service) ReturnUnits(ctx context.Context, investor domain.AccountID, id domain.BondID, n uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bond, err := s.bonds.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := requireState(bond, domain.StateBooking); err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: zero units", ErrInvalidParameters)
	}

	lots, err := s.packages.GetByAccount(ctx, id, investor)
	if err != nil {
		return err
	}
	var held uint64
	for _, lot := range lots {
		held += lot.Units
	}
	if held < n {
		return fmt.Errorf("%w: holds %d units, returning %d", ErrInsufficientBalance, held, n)
	}

	par, ok := bond.Params.ParValue(n)
	if !ok {
		return fmt.Errorf("%w: par value of %d units", ErrArithmeticOverflow, n)
	}

	// Consume most recent lots first; settlement writes replacement lots
	// rather than mutating the old ones.
	remaining := n
	var kept []*domain.UnitPackage
	for i := len(lots) - 1; i >= 0; i-- {
		lot := lots[i]
		if remaining == 0 {
			kept = append([]*domain.UnitPackage{lot}, kept...)
			continue
		}
		if lot.Units <= remaining {
			remaining -= lot.Units
			continue
		}
		shrunk := *lot
		shrunk.Units -= remaining
		remaining = 0
		kept = append([]*domain.UnitPackage{&shrunk}, kept...)
	}

	if err := s.transferOut(ctx, id, investor, par); err != nil {
		return err
	}
	if err := mapLedgerErr(bond.Ledger.Decrease(par)); err != nil {
		return err
	}
	bond.IssuedUnits -= n

	if err := s.packages.ReplaceForAccount(ctx, id, investor, kept); err != nil {
		return fmt.Errorf("replace packages: %w", err)
	}
	if err := s.bonds.Update(ctx, bond); err != nil {
		return fmt.Errorf("update bond %s: %w", id, err)
	}

	s.emit(events.TypeUnitsReturned, func(e *events.Event) {
		e.BondID = id.String()
		e.Account = investor
		e.Units = n
		e.Amount = par
	})
	return nil
}

// CancelAfterDeadline reverts a failed raise: once the mincap deadline has
// passed with issued units below mincap, anyone may trigger the revert to
// PREPARE that refunds every package. Funds must never stay stranded behind
// a raise that cannot activate.
func (s *Service) CancelAfterDeadline(ctx context.Context, caller domain.AccountID, id domain.BondID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bond, err := s.bonds.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := requireState(bond, domain.StateBooking); err != nil {
		return err
	}
	now := s.clock.Now()
	if now <= bond.Params.MincapDeadline {
		return fmt.Errorf("%w: mincap deadline not reached", ErrDeadlineExceeded)
	}
	if bond.IssuedUnits >= bond.Params.UnitsMinAmount {
		return fmt.Errorf("%w: mincap reached, bond can activate", ErrStateMismatch)
	}

	lots, err := s.packages.GetByBond(ctx, id)
	if err != nil {
		return err
	}
	for _, lot := range lots {
		par, ok := bond.Params.ParValue(lot.Units)
		if !ok {
			return fmt.Errorf("%w: par value of %d units", ErrArithmeticOverflow, lot.Units)
		}
		if err := s.transferOut(ctx, id, lot.Account, par); err != nil {
			return err
		}
		if err := mapLedgerErr(bond.Ledger.Decrease(par)); err != nil {
			return err
		}
	}
	if err := s.packages.DeleteByBond(ctx, id); err != nil {
		return fmt.Errorf("delete packages: %w", err)
	}

	bond.IssuedUnits = 0
	bond.State = domain.StatePrepare
	bond.BookingOpen = 0
	if err := s.bonds.Update(ctx, bond); err != nil {
		return fmt.Errorf("update bond %s: %w", id, err)
	}

	s.logger.Printf("bond %s booking reverted by %s", id, caller)
	s.emit(events.TypeBookingReverted, func(e *events.Event) {
		e.BondID = id.String()
		e.Account = caller
	})
	return nil
}

// Redeem settles a FINISHED bond for one investor: par value plus any
// residual coupon the lots are still owed, lots removed.
func (s *Service) Redeem(ctx context.Context, investor domain.AccountID, id domain.BondID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bond, err := s.bonds.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := requireState(bond, domain.StateFinished); err != nil {
		return err
	}

	lots, err := s.packages.GetByAccount(ctx, id, investor)
	if err != nil {
		return err
	}
	if len(lots) == 0 {
		return fmt.Errorf("%w: %s holds no units of %s", ErrInsufficientBalance, investor, id)
	}

	yields, err := s.periodYields.ListByBond(ctx, id)
	if err != nil {
		return err
	}

	var units, residual uint64
	for _, lot := range lots {
		units += lot.Units
		entitled, err := lotEntitlement(lot, yields)
		if err != nil {
			return err
		}
		sum, ok := arith.CheckedAdd64(residual, entitled-lot.CouponPaid)
		if !ok {
			return fmt.Errorf("%w: residual entitlement", ErrArithmeticOverflow)
		}
		residual = sum
	}
	par, ok := bond.Params.ParValue(units)
	if !ok {
		return fmt.Errorf("%w: par value of %d units", ErrArithmeticOverflow, units)
	}
	payout, ok := arith.CheckedAdd64(par, residual)
	if !ok {
		return fmt.Errorf("%w: redemption payout", ErrArithmeticOverflow)
	}

	if err := s.transferOut(ctx, id, investor, payout); err != nil {
		return err
	}
	if residual > 0 {
		if err := mapLedgerErr(bond.Ledger.PayYield(residual)); err != nil {
			return err
		}
	}
	if err := mapLedgerErr(bond.Ledger.Decrease(par)); err != nil {
		return err
	}
	bond.IssuedUnits -= units

	if err := s.packages.ReplaceForAccount(ctx, id, investor, nil); err != nil {
		return fmt.Errorf("remove packages: %w", err)
	}
	if err := s.bonds.Update(ctx, bond); err != nil {
		return fmt.Errorf("update bond %s: %w", id, err)
	}

	s.emit(events.TypeUnitsRedeemed, func(e *events.Event) {
		e.BondID = id.String()
		e.Account = investor
		e.Units = units
		e.Amount = payout
	})
	return nil
}
