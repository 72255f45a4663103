package engine

import (
	"context"
	"fmt"

	"impact-bond-engine/internal/domain"
	"impact-bond-engine/internal/events"
	"impact-bond-engine/internal/schedule"
)

// CreateBond registers a new bond in PREPARE. The issuer keeps editing
// parameters until booking opens; validation still must pass up front so a
// broken parameter set is caught at the door.
func (s *Service) CreateBond(ctx context.Context, issuer domain.AccountID, id domain.BondID, params domain.BondParameters) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireRole(ctx, issuer, domain.RoleIssuer); err != nil {
		return err
	}
	if err := params.Validate(s.cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParameters, err)
	}

	bond := &domain.Bond{
		ID:        id,
		Params:    params,
		State:     domain.StatePrepare,
		Issuer:    issuer,
		CreatedAt: s.clock.Now(),
	}
	if err := s.bonds.Insert(ctx, bond); err != nil {
		return fmt.Errorf("insert bond %s: %w", id, err)
	}

	s.logger.Printf("bond %s created by %s", id, issuer)
	s.emit(events.TypeBondCreated, func(e *events.Event) {
		e.BondID = id.String()
		e.Account = issuer
	})
	return nil
}

// UpdateBond replaces the parameter set. In PREPARE any valid set is
// accepted; in BOOKING only financially-equivalent edits (document hash
// corrections) may land, because investors have already priced the terms.
func (s *Service) UpdateBond(ctx context.Context, issuer domain.AccountID, id domain.BondID, params domain.BondParameters) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bond, err := s.bonds.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if bond.Issuer != issuer {
		return fmt.Errorf("%w: %s is not the issuer of %s", ErrUnauthorized, issuer, id)
	}
	if err := requireState(bond, domain.StatePrepare, domain.StateBooking); err != nil {
		return err
	}
	if err := params.Validate(s.cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParameters, err)
	}
	if bond.State == domain.StateBooking && !domain.FinanciallyEquivalent(&bond.Params, &params) {
		return fmt.Errorf("%w: booking-stage edit changes investor economics", ErrInvalidParameters)
	}

	bond.Params = params
	if err := s.bonds.Update(ctx, bond); err != nil {
		return fmt.Errorf("update bond %s: %w", id, err)
	}

	s.emit(events.TypeBondUpdated, func(e *events.Event) {
		e.BondID = id.String()
		e.Account = issuer
	})
	return nil
}

// AssignRoles sets the bond's manager, auditor, and impact reporter. Each
// assignee must already hold the matching registry role; the issuer cannot
// appoint arbitrary accounts into positions of trust.
func (s *Service) AssignRoles(ctx context.Context, caller domain.AccountID, id domain.BondID, manager, auditor, reporter domain.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bond, err := s.bonds.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if bond.Issuer != caller {
		return fmt.Errorf("%w: %s is not the issuer of %s", ErrUnauthorized, caller, id)
	}
	if err := requireState(bond, domain.StatePrepare); err != nil {
		return err
	}

	for _, a := range []struct {
		acc  domain.AccountID
		role domain.RoleMask
	}{
		{manager, domain.RoleManager},
		{auditor, domain.RoleAuditor},
		{reporter, domain.RoleImpactReporter},
	} {
		if err := s.requireRole(ctx, a.acc, a.role); err != nil {
			return err
		}
	}

	bond.Manager = manager
	bond.Auditor = auditor
	bond.ImpactReporter = reporter
	if err := s.bonds.Update(ctx, bond); err != nil {
		return fmt.Errorf("update bond %s: %w", id, err)
	}

	s.emit(events.TypeRolesAssigned, func(e *events.Event) {
		e.BondID = id.String()
		e.Account = caller
	})
	return nil
}

// OpenBooking moves PREPARE -> BOOKING. Requires a master caller, a valid
// parameter set, all three service roles assigned, and a mincap deadline
// still in the future.
func (s *Service) OpenBooking(ctx context.Context, master domain.AccountID, id domain.BondID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireRole(ctx, master, domain.RoleMaster); err != nil {
		return err
	}
	bond, err := s.bonds.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := requireState(bond, domain.StatePrepare); err != nil {
		return err
	}
	if err := bond.Params.Validate(s.cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParameters, err)
	}
	if !bond.RolesAssigned() {
		return fmt.Errorf("%w: bond %s has unassigned service roles", ErrStateMismatch, id)
	}

	now := s.clock.Now()
	if now >= bond.Params.MincapDeadline {
		return fmt.Errorf("%w: mincap deadline already passed", ErrDeadlineExceeded)
	}

	bond.State = domain.StateBooking
	bond.BookingOpen = now
	if err := s.bonds.Update(ctx, bond); err != nil {
		return fmt.Errorf("update bond %s: %w", id, err)
	}

	s.logger.Printf("bond %s booking opened", id)
	s.emit(events.TypeBookingOpened, func(e *events.Event) {
		e.BondID = id.String()
	})
	return nil
}

// Activate moves BOOKING -> ACTIVE once the minimum raise is reached. From
// this moment the parameter set is immutable and the period clock starts.
func (s *Service) Activate(ctx context.Context, master domain.AccountID, id domain.BondID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireRole(ctx, master, domain.RoleMaster); err != nil {
		return err
	}
	bond, err := s.bonds.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := requireState(bond, domain.StateBooking); err != nil {
		return err
	}
	if bond.IssuedUnits < bond.Params.UnitsMinAmount {
		return fmt.Errorf("%w: issued %d units below mincap %d", ErrStateMismatch, bond.IssuedUnits, bond.Params.UnitsMinAmount)
	}

	bond.State = domain.StateActive
	bond.ActivatedAt = s.clock.Now()
	bond.AccruedPeriods = 0
	if err := s.bonds.Update(ctx, bond); err != nil {
		return fmt.Errorf("update bond %s: %w", id, err)
	}

	s.logger.Printf("bond %s activated with %d units", id, bond.IssuedUnits)
	s.emit(events.TypeBondActivated, func(e *events.Event) {
		e.BondID = id.String()
		e.Units = bond.IssuedUnits
	})
	return nil
}

// Finish resolves a matured bond. Callable by anyone once the final
// period's wind-down deadline has passed: with no outstanding debt the bond
// is FINISHED; remaining debt leaves it eligible only for DeclareBankrupt.
// A BANKRUPT bond whose debt has since been serviced also finishes here.
func (s *Service) Finish(ctx context.Context, caller domain.AccountID, id domain.BondID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bond, err := s.bonds.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := requireState(bond, domain.StateActive, domain.StateBankrupt); err != nil {
		return err
	}
	if err := s.requireMatured(bond); err != nil {
		return err
	}
	if bond.State == domain.StateActive {
		if err := s.accrueAndCommit(ctx, bond); err != nil {
			return err
		}
	}
	if bond.Ledger.Debt() > 0 {
		return fmt.Errorf("%w: %d debt outstanding", ErrInsufficientBalance, bond.Ledger.Debt())
	}

	bond.State = domain.StateFinished
	if err := s.bonds.Update(ctx, bond); err != nil {
		return fmt.Errorf("update bond %s: %w", id, err)
	}

	s.logger.Printf("bond %s finished", id)
	s.emit(events.TypeBondFinished, func(e *events.Event) {
		e.BondID = id.String()
		e.Account = caller
	})
	return nil
}

// DeclareBankrupt moves ACTIVE -> BANKRUPT when the wind-down deadline has
// passed with debt outstanding. No new periods accrue afterwards; the
// remaining debt stays exposed for external recovery.
func (s *Service) DeclareBankrupt(ctx context.Context, master domain.AccountID, id domain.BondID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireRole(ctx, master, domain.RoleMaster); err != nil {
		return err
	}
	bond, err := s.bonds.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := requireState(bond, domain.StateActive); err != nil {
		return err
	}
	if err := s.requireMatured(bond); err != nil {
		return err
	}
	if err := s.accrueAndCommit(ctx, bond); err != nil {
		return err
	}
	if bond.Ledger.Debt() == 0 {
		return fmt.Errorf("%w: no outstanding debt, bond should finish", ErrStateMismatch)
	}

	bond.State = domain.StateBankrupt
	if err := s.bonds.Update(ctx, bond); err != nil {
		return fmt.Errorf("update bond %s: %w", id, err)
	}

	s.logger.Printf("bond %s bankrupt with %d debt", id, bond.Ledger.Debt())
	s.emit(events.TypeBondBankrupt, func(e *events.Event) {
		e.BondID = id.String()
		e.Amount = bond.Ledger.Debt()
	})
	return nil
}

// requireMatured rejects until the final period's interest-pay deadline
// (the wind-down grace) has elapsed.
func (s *Service) requireMatured(bond *domain.Bond) error {
	now := s.clock.Now()
	elapsed, ok := schedule.Elapsed(bond.ActivatedAt, now)
	if !ok {
		if now < bond.ActivatedAt {
			return fmt.Errorf("%w: bond %s has not matured", ErrDeadlineExceeded, bond.ID)
		}
		// Past the representable range is necessarily past maturity.
		return nil
	}
	if uint64(elapsed) <= schedule.MaturityDeadline(&bond.Params) {
		return fmt.Errorf("%w: bond %s has not matured", ErrDeadlineExceeded, bond.ID)
	}
	return nil
}
