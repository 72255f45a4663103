package reporting

import (
	"context"
	"errors"
	"sort"
	"time"

	"impact-bond-engine/internal/arith"
	"impact-bond-engine/internal/domain"
	"impact-bond-engine/internal/schedule"
	"impact-bond-engine/internal/storage"
)

// Generator produces servicing reports from stored data.
type Generator struct {
	bonds    storage.BondStore
	packages storage.PackageStore
	reports  storage.ImpactReportStore
	yields   storage.PeriodYieldStore
	accounts storage.AccountYieldStore
	now      func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(
	bonds storage.BondStore,
	packages storage.PackageStore,
	reports storage.ImpactReportStore,
	yields storage.PeriodYieldStore,
	accounts storage.AccountYieldStore,
) *Generator {
	return &Generator{
		bonds:    bonds,
		packages: packages,
		reports:  reports,
		yields:   yields,
		accounts: accounts,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a complete servicing report for one bond.
func (g *Generator) Generate(ctx context.Context, id domain.BondID) (*Report, error) {
	bond, err := g.bonds.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	yields, err := g.yields.ListByBond(ctx, id)
	if err != nil {
		return nil, err
	}

	reports, err := g.reports.ListByBond(ctx, id)
	if err != nil {
		return nil, err
	}

	periods := g.generatePeriods(yields, reports)

	holders, err := g.generateHolders(ctx, bond, yields)
	if err != nil {
		return nil, err
	}

	return &Report{
		GeneratedAt: g.now(),
		Ticker:      bond.ID.String(),
		State:       bond.State,
		Summary:     g.generateSummary(bond, yields),
		Periods:     periods,
		Compliance:  generateCompliance(periods),
		Holders:     holders,
	}, nil
}

// generateSummary computes the issue summary from the bond record and the
// accrual history.
func (g *Generator) generateSummary(bond *domain.Bond, yields []*domain.PeriodYield) IssueSummary {
	s := IssueSummary{
		IssuedUnits:    bond.IssuedUnits,
		UnitBasePrice:  bond.Params.UnitBasePrice,
		AccruedPeriods: bond.AccruedPeriods,
		CouponPaid:     bond.Ledger.CouponYield,
		CouponDebt:     bond.Ledger.Debt(),
		FundBalance:    bond.Ledger.Debit,
		ActivatedAt:    bond.ActivatedAt,
	}

	if par, ok := bond.Params.ParValue(bond.IssuedUnits); ok {
		s.ParValue = par
	}
	if len(yields) > 0 {
		s.CouponAccrued = yields[len(yields)-1].TotalAccrued
	}
	if bond.ActivatedAt != 0 {
		s.MaturityAt = bond.ActivatedAt + int64(schedule.MaturityDeadline(&bond.Params))
	}
	return s
}

// generatePeriods joins accrual rows with impact reports. The initial window
// (period 0) carries no report obligation.
func (g *Generator) generatePeriods(yields []*domain.PeriodYield, reports []*domain.ImpactReport) []PeriodRow {
	byPeriod := make(map[uint32]*domain.ImpactReport, len(reports))
	for _, r := range reports {
		byPeriod[r.Period] = r
	}

	rows := make([]PeriodRow, len(yields))
	for i, y := range yields {
		row := PeriodRow{
			Period:     y.Period,
			Rate:       y.Rate,
			Accrued:    y.Accrued,
			FundBefore: y.FundBefore,
			TotalUnits: y.TotalUnits,
		}
		if r, ok := byPeriod[y.Period]; ok {
			row.ReportValue = r.Impact
			row.ReportSigned = r.Signed
			row.ReportLate = r.Late
		} else if y.Period > 0 {
			row.ReportMissing = true
		}
		rows[i] = row
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Period < rows[j].Period })
	return rows
}

// generateCompliance summarizes reporting discipline over settled periods.
func generateCompliance(periods []PeriodRow) ComplianceSection {
	var c ComplianceSection
	for _, p := range periods {
		if p.Period == 0 {
			continue
		}
		if p.ReportMissing {
			c.Missing++
			continue
		}
		c.Submitted++
		if p.ReportSigned {
			c.Approved++
		}
		if p.ReportLate {
			c.Late++
		}
	}
	c.AllOnTime = c.Missing == 0 && c.Late == 0
	return c
}

// generateHolders aggregates lots per account and computes the coupon each
// holder has earned but not yet withdrawn. A lot's share of a period is its
// unit fraction of the period's accrual; lots earn only periods strictly
// after their acquisition period, except booking-time lots which also earn
// the initial window.
func (g *Generator) generateHolders(ctx context.Context, bond *domain.Bond, yields []*domain.PeriodYield) ([]HolderRow, error) {
	lots, err := g.packages.GetByBond(ctx, bond.ID)
	if err != nil {
		return nil, err
	}

	groups := make(map[domain.AccountID][]*domain.UnitPackage)
	for _, lot := range lots {
		groups[lot.Account] = append(groups[lot.Account], lot)
	}

	rows := make([]HolderRow, 0, len(groups))
	for acc, accLots := range groups {
		row := HolderRow{Account: acc, Lots: len(accLots)}
		for _, lot := range accLots {
			row.Units += lot.Units
			earned, ok := lotEarned(lot, yields)
			if !ok {
				return nil, ErrEntitlementOverflow
			}
			if earned > lot.CouponPaid {
				row.Unpaid += earned - lot.CouponPaid
			}
		}

		cursor, err := g.accounts.Get(ctx, bond.ID, acc)
		switch {
		case err == nil:
			row.Paid = cursor.Paid
		case errors.Is(err, storage.ErrNotFound):
			// never settled
		default:
			return nil, err
		}

		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Account < rows[j].Account })
	return rows, nil
}

// ErrEntitlementOverflow is reported when a holder's accumulated coupon
// entitlement does not fit in uint64.
var ErrEntitlementOverflow = errors.New("reporting: entitlement overflow")

func lotEarned(lot *domain.UnitPackage, yields []*domain.PeriodYield) (uint64, bool) {
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
			return 0, false
		}
		total, ok = arith.CheckedAdd64(total, share)
		if !ok {
			return 0, false
		}
	}
	return total, true
}
