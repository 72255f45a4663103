package engine

import (
	"context"
	"errors"
	"fmt"

	"impact-bond-engine/internal/arith"
	"impact-bond-engine/internal/domain"
	"impact-bond-engine/internal/events"
	"impact-bond-engine/internal/rates"
	"impact-bond-engine/internal/schedule"
	"impact-bond-engine/internal/storage"
)

// ppm is the rate denominator.
const ppm = 1_000_000

// SubmitImpactReport records one period's impact measurement. The first
// report stored for a period freezes its rate input. Reports landing after
// the report deadline are accepted while the period is still unpriced, but
// carry the late flag and with it the miss penalty.
func (s *Service) SubmitImpactReport(ctx context.Context, reporter domain.AccountID, id domain.BondID, period uint32, impact uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bond, err := s.bonds.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if bond.ImpactReporter != reporter {
		return fmt.Errorf("%w: %s is not the impact reporter of %s", ErrUnauthorized, reporter, id)
	}
	if err := requireState(bond, domain.StateActive); err != nil {
		return err
	}
	if period < 1 || period > bond.Params.BondDuration {
		return fmt.Errorf("%w: period %d outside 1..%d", ErrInvalidParameters, period, bond.Params.BondDuration)
	}
	if period < schedule.FirstIndex(&bond.Params)+bond.AccruedPeriods {
		return fmt.Errorf("%w: period %d already priced", ErrDeadlineExceeded, period)
	}

	elapsed, ok := schedule.Elapsed(bond.ActivatedAt, s.clock.Now())
	if !ok {
		return fmt.Errorf("%w: bond %s is past its schedule", ErrDeadlineExceeded, id)
	}
	d := schedule.Describe(&bond.Params, period)
	if uint64(elapsed) < d.Start {
		return fmt.Errorf("%w: period %d has not started", ErrDeadlineExceeded, period)
	}

	report := &domain.ImpactReport{
		BondID:      id,
		Period:      period,
		Impact:      impact,
		SubmittedAt: s.clock.Now(),
		Late:        uint64(elapsed) > d.ReportDeadline,
	}
	if err := s.reports.Insert(ctx, report); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return fmt.Errorf("%w: period %d of %s", ErrDuplicateReport, period, id)
		}
		return fmt.Errorf("insert report: %w", err)
	}

	s.emit(events.TypeReportSubmitted, func(e *events.Event) {
		e.BondID = id.String()
		e.Account = reporter
		e.Period = period
		e.Amount = impact
	})
	return nil
}

// ApproveImpactReport records the auditor's sign-off on a period report.
func (s *Service) ApproveImpactReport(ctx context.Context, auditor domain.AccountID, id domain.BondID, period uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bond, err := s.bonds.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if bond.Auditor != auditor {
		return fmt.Errorf("%w: %s is not the auditor of %s", ErrUnauthorized, auditor, id)
	}

	report, err := s.reports.Get(ctx, id, period)
	if err != nil {
		return err
	}
	if report.Signed {
		return fmt.Errorf("%w: period %d already approved", ErrDuplicateReport, period)
	}
	report.Signed = true
	if err := s.reports.Update(ctx, report); err != nil {
		return fmt.Errorf("update report: %w", err)
	}

	s.emit(events.TypeReportApproved, func(e *events.Event) {
		e.BondID = id.String()
		e.Account = auditor
		e.Period = period
	})
	return nil
}

// Deposit moves issuer funds into the bond treasury. Works in ACTIVE and
// BANKRUPT: a bankrupt bond still services its ledger, it just accrues no
// new periods.
func (s *Service) Deposit(ctx context.Context, issuer domain.AccountID, id domain.BondID, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bond, err := s.bonds.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if bond.Issuer != issuer {
		return fmt.Errorf("%w: %s is not the issuer of %s", ErrUnauthorized, issuer, id)
	}
	if err := requireState(bond, domain.StateActive, domain.StateBankrupt); err != nil {
		return err
	}
	if amount == 0 {
		return fmt.Errorf("%w: zero amount", ErrInvalidParameters)
	}
	if bond.State == domain.StateActive {
		if err := s.accrueAndCommit(ctx, bond); err != nil {
			return err
		}
	}

	if err := s.transferIn(ctx, issuer, id, amount); err != nil {
		return err
	}
	if err := mapLedgerErr(bond.Ledger.Deposit(amount)); err != nil {
		return err
	}
	if err := s.bonds.Update(ctx, bond); err != nil {
		return fmt.Errorf("update bond %s: %w", id, err)
	}

	s.emit(events.TypeDeposit, func(e *events.Event) {
		e.BondID = id.String()
		e.Account = issuer
		e.Amount = amount
	})
	return nil
}

// WithdrawFreeBalance returns the surplus over liabilities to the issuer.
// Accrual runs first so a stale liability can never be skimmed.
func (s *Service) WithdrawFreeBalance(ctx context.Context, issuer domain.AccountID, id domain.BondID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bond, err := s.bonds.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if bond.Issuer != issuer {
		return fmt.Errorf("%w: %s is not the issuer of %s", ErrUnauthorized, issuer, id)
	}
	if err := requireState(bond, domain.StateActive); err != nil {
		return err
	}
	if err := s.accrueAndCommit(ctx, bond); err != nil {
		return err
	}

	free := bond.Ledger.FreeBalance()
	if free == 0 {
		return fmt.Errorf("%w: no free balance", ErrInsufficientBalance)
	}

	if err := s.transferOut(ctx, id, issuer, free); err != nil {
		return err
	}
	if err := mapLedgerErr(bond.Ledger.Withdraw(free)); err != nil {
		return err
	}
	if err := s.bonds.Update(ctx, bond); err != nil {
		return fmt.Errorf("update bond %s: %w", id, err)
	}

	s.emit(events.TypeWithdrawal, func(e *events.Event) {
		e.BondID = id.String()
		e.Account = issuer
		e.Amount = free
	})
	return nil
}

// AccrueCoupon books the coupon liability of every completed, unaccrued
// period. The engine also runs this lazily at the start of fund-moving
// operations; this entry point exists for external servicing ticks.
func (s *Service) AccrueCoupon(ctx context.Context, id domain.BondID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bond, err := s.bonds.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := requireState(bond, domain.StateActive); err != nil {
		return err
	}
	return s.accrueAndCommit(ctx, bond)
}

// WithdrawCouponYield pays an investor the coupon their lots have earned
// but not yet received, limited by the funds actually in the treasury.
// Lots settle oldest first; settled lots are rewritten, not mutated.
func (s *Service) WithdrawCouponYield(ctx context.Context, investor domain.AccountID, id domain.BondID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bond, err := s.bonds.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := requireState(bond, domain.StateActive, domain.StateBankrupt, domain.StateFinished); err != nil {
		return err
	}
	if bond.State == domain.StateActive {
		if err := s.accrueAndCommit(ctx, bond); err != nil {
			return err
		}
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

	// Per-lot unpaid entitlement, then a fund-limited greedy pass.
	unpaid := make([]uint64, len(lots))
	var payable uint64
	for i, lot := range lots {
		entitled, err := lotEntitlement(lot, yields)
		if err != nil {
			return err
		}
		unpaid[i] = entitled - lot.CouponPaid
		sum, ok := arith.CheckedAdd64(payable, unpaid[i])
		if !ok {
			return fmt.Errorf("%w: total entitlement", ErrArithmeticOverflow)
		}
		payable = sum
	}
	if payable == 0 {
		return fmt.Errorf("%w: nothing to withdraw", ErrInsufficientBalance)
	}

	pay := payable
	if funds := bond.Ledger.Debit; pay > funds {
		pay = funds
	}
	if pay == 0 {
		return fmt.Errorf("%w: treasury is unfunded", ErrInsufficientBalance)
	}

	settled := make([]*domain.UnitPackage, len(lots))
	left := pay
	for i, lot := range lots {
		cp := *lot
		take := unpaid[i]
		if take > left {
			take = left
		}
		cp.CouponPaid += take
		left -= take
		settled[i] = &cp
	}

	if err := s.transferOut(ctx, id, investor, pay); err != nil {
		return err
	}
	if err := mapLedgerErr(bond.Ledger.PayYield(pay)); err != nil {
		return err
	}
	if err := s.packages.ReplaceForAccount(ctx, id, investor, settled); err != nil {
		return fmt.Errorf("replace packages: %w", err)
	}

	cursor := &domain.AccountYield{BondID: id, Account: investor}
	if prev, err := s.accountYields.Get(ctx, id, investor); err == nil {
		cursor = prev
	} else if !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	cursor.Paid += pay
	if bond.AccruedPeriods > 0 {
		cursor.LastPeriod = schedule.FirstIndex(&bond.Params) + bond.AccruedPeriods - 1
	}
	if err := s.accountYields.Upsert(ctx, cursor); err != nil {
		return fmt.Errorf("upsert account yield: %w", err)
	}
	if err := s.bonds.Update(ctx, bond); err != nil {
		return fmt.Errorf("update bond %s: %w", id, err)
	}

	s.emit(events.TypeYieldWithdrawn, func(e *events.Event) {
		e.BondID = id.String()
		e.Account = investor
		e.Amount = pay
	})
	return nil
}

// accrueAndCommit books any completed periods and persists the bond before
// the caller proceeds. Accrual commits on its own: a rejection or transfer
// failure later in the operation must not strand inserted yield rows behind
// a stale accrual counter.
func (s *Service) accrueAndCommit(ctx context.Context, bond *domain.Bond) error {
	before := bond.AccruedPeriods
	if err := s.accrue(ctx, bond); err != nil {
		return err
	}
	if bond.AccruedPeriods == before {
		return nil
	}
	if err := s.bonds.Update(ctx, bond); err != nil {
		return fmt.Errorf("update bond %s: %w", bond.ID, err)
	}
	return nil
}

// accrue walks every period whose payment deadline has passed and books its
// coupon liability. A yield row already present for a period is adopted as
// written, so a partially persisted earlier walk replays cleanly. Idempotent
// for a given clock reading.
func (s *Service) accrue(ctx context.Context, bond *domain.Bond) error {
	p := &bond.Params
	now := s.clock.Now()

	var elapsed uint64
	if e, ok := schedule.Elapsed(bond.ActivatedAt, now); ok {
		elapsed = uint64(e)
	} else {
		if now < bond.ActivatedAt {
			return nil
		}
		// Past the representable range: every period has completed.
		elapsed = schedule.MaturityDeadline(p) + 1
	}

	first := schedule.FirstIndex(p)
	next := first + bond.AccruedPeriods
	if next > p.BondDuration {
		return nil
	}

	// The fallback rate when a period has no report: the previous period's
	// frozen rate, or the opening rate before any period has priced.
	prevRate := p.InterestBaseRate
	if p.StartPeriod > 0 {
		prevRate = p.InterestStartRate
	}
	var prevTotal uint64
	if bond.AccruedPeriods > 0 {
		last, err := s.periodYields.Get(ctx, bond.ID, next-1)
		if err != nil {
			return fmt.Errorf("load last accrual: %w", err)
		}
		prevRate = last.Rate
		prevTotal = last.TotalAccrued
	}

	par, ok := p.ParValue(bond.IssuedUnits)
	if !ok {
		return fmt.Errorf("%w: par value of %d units", ErrArithmeticOverflow, bond.IssuedUnits)
	}
	year := 365 * uint64(s.cfg.DayDuration)

	var points []*domain.PeriodRatePoint
	for idx := next; idx <= p.BondDuration; idx++ {
		d := schedule.Describe(p, idx)
		if elapsed < d.PaymentDeadline {
			break
		}

		rate := p.InterestStartRate
		var impact uint64
		if idx > 0 {
			report, err := s.reports.Get(ctx, bond.ID, idx)
			switch {
			case err == nil:
				rate = rates.EffectiveRate(p, report.Impact)
				if report.Late {
					rate = rates.Penalized(p, rate)
				}
				impact = report.Impact
			case errors.Is(err, storage.ErrNotFound):
				rate = rates.Penalized(p, prevRate)
			default:
				return fmt.Errorf("load report for period %d: %w", idx, err)
			}
		}

		accrued, err := couponFor(par, rate, d.Length(), year)
		if err != nil {
			return err
		}
		total, ok := arith.CheckedAdd64(prevTotal, accrued)
		if !ok {
			return fmt.Errorf("%w: cumulative accrual", ErrArithmeticOverflow)
		}

		row := &domain.PeriodYield{
			BondID:       bond.ID,
			Period:       idx,
			Rate:         rate,
			Accrued:      accrued,
			TotalAccrued: total,
			FundBefore:   bond.Ledger.Debit,
			TotalUnits:   bond.IssuedUnits,
		}
		fresh := true
		if err := s.periodYields.Insert(ctx, row); err != nil {
			if !errors.Is(err, storage.ErrDuplicateKey) {
				return fmt.Errorf("insert period yield: %w", err)
			}
			// A prior accrual wrote this row but the bond update behind it
			// never landed. Adopt the stored figures instead of double-booking.
			stored, gerr := s.periodYields.Get(ctx, bond.ID, idx)
			if gerr != nil {
				return fmt.Errorf("reload period yield %d: %w", idx, gerr)
			}
			rate = stored.Rate
			accrued = stored.Accrued
			total = stored.TotalAccrued
			fresh = false
		}
		if err := mapLedgerErr(bond.Ledger.AddLiability(accrued)); err != nil {
			return err
		}

		if fresh {
			points = append(points, &domain.PeriodRatePoint{
				BondID:     bond.ID,
				Period:     idx,
				Rate:       rate,
				Impact:     impact,
				Accrued:    accrued,
				RecordedAt: now,
			})
			s.emit(events.TypeCouponAccrued, func(e *events.Event) {
				e.BondID = bond.ID.String()
				e.Period = idx
				e.Rate = rate
				e.Amount = accrued
			})
		}
		bond.AccruedPeriods++
		prevRate = rate
		prevTotal = total
	}

	if len(points) > 0 && s.rateHistory != nil {
		if err := s.rateHistory.InsertBulk(ctx, points); err != nil {
			// Analytics only; the financial state is already consistent.
			s.logger.Printf("bond %s: rate history write failed: %v", bond.ID, err)
		}
	}
	return nil
}

// couponFor is one period's accrual: par * rate[ppm] * length / year,
// truncating, with 128-bit intermediates.
func couponFor(par uint64, rate uint32, length, year uint64) (uint64, error) {
	base, ok := arith.MulDiv64(par, uint64(rate), ppm)
	if !ok {
		return 0, fmt.Errorf("%w: coupon base", ErrArithmeticOverflow)
	}
	accrued, ok := arith.MulDiv64(base, length, year)
	if !ok {
		return 0, fmt.Errorf("%w: coupon accrual", ErrArithmeticOverflow)
	}
	return accrued, nil
}

// lotEntitlement is the coupon a lot has earned across the accrued periods:
// its unit share of each period strictly after its acquisition period.
// Booking-time lots (acquisition 0) also earn the initial window's accrual.
func lotEntitlement(lot *domain.UnitPackage, yields []*domain.PeriodYield) (uint64, error) {
	var total uint64
	for _, y := range yields {
		if y.Period <= lot.AcquisitionPeriod && !(lot.AcquisitionPeriod == 0 && y.Period == 0) {
			continue
		}
		if y.TotalUnits == 0 {
			continue
		}
		share, ok := arith.MulDiv64(y.Accrued, lot.Units, y.TotalUnits)
		if !ok {
			return 0, fmt.Errorf("%w: yield share", ErrArithmeticOverflow)
		}
		sum, ok := arith.CheckedAdd64(total, share)
		if !ok {
			return 0, fmt.Errorf("%w: yield entitlement", ErrArithmeticOverflow)
		}
		total = sum
	}
	return total, nil
}
