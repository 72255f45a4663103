package reporting

import (
	"context"
	"strings"
	"testing"
	"time"

	"impact-bond-engine/internal/domain"
	"impact-bond-engine/internal/ledger"
	"impact-bond-engine/internal/storage/memory"
)

const day = 86400

const (
	alice = domain.AccountID("4vJ9JU1bJJE96FWSJKvHsmmFADCg4gpZQff4P3bkLKi")
	bob   = domain.AccountID("8qbHbw2BbbTHBW1sbeqakYXVKRQM8Ne7pLK7m6CVfeR")
)

func setupTestData(t *testing.T) (domain.BondID, *memory.BondStore, *memory.PackageStore, *memory.ImpactReportStore, *memory.PeriodYieldStore, *memory.AccountYieldStore) {
	t.Helper()
	ctx := context.Background()

	bonds := memory.NewBondStore()
	packages := memory.NewPackageStore()
	reports := memory.NewImpactReportStore()
	yields := memory.NewPeriodYieldStore()
	accounts := memory.NewAccountYieldStore()

	id, err := domain.ParseBondID("GREEN001")
	if err != nil {
		t.Fatalf("ParseBondID failed: %v", err)
	}

	bond := &domain.Bond{
		ID: id,
		Params: domain.BondParameters{
			Metric:              domain.MetricPowerGenerated,
			ImpactBaseline:      20_000,
			ImpactMaxValue:      60_000,
			ImpactMinValue:      4_000,
			InterestBaseRate:    20_000,
			InterestMarginCap:   40_000,
			InterestMarginFloor: 10_000,
			InterestStartRate:   19_000,
			InterestPenalty:     2_000,
			ReportPeriod:        10 * day,
			InterestPayPeriod:   5 * day,
			PaymentPeriod:       30 * day,
			BondDuration:        12,
			BondFinishingPeriod: 30 * day,
			MincapDeadline:      1_700_000_000 + 20*day,
			UnitsMinAmount:      100,
			UnitsMaxAmount:      1_000,
			UnitBasePrice:       10,
		},
		State:          domain.StateActive,
		IssuedUnits:    300,
		ActivatedAt:    1_700_000_000,
		AccruedPeriods: 2,
		Ledger:         ledger.Ledger{Debit: 3_050, Credit: 3_090, CouponYield: 40},
	}
	if err := bonds.Insert(ctx, bond); err != nil {
		t.Fatalf("Insert bond failed: %v", err)
	}

	// Two settled periods: one reported on time, one missed.
	rows := []*domain.PeriodYield{
		{BondID: id, Period: 1, Rate: 20_000, Accrued: 49, TotalAccrued: 49, FundBefore: 3_000, TotalUnits: 300},
		{BondID: id, Period: 2, Rate: 22_000, Accrued: 54, TotalAccrued: 103, FundBefore: 3_000, TotalUnits: 300},
	}
	for _, y := range rows {
		if err := yields.Insert(ctx, y); err != nil {
			t.Fatalf("Insert yield failed: %v", err)
		}
	}

	if err := reports.Insert(ctx, &domain.ImpactReport{
		BondID: id, Period: 1, Impact: 20_000, SubmittedAt: 1_700_000_000 + 25*day, Signed: true,
	}); err != nil {
		t.Fatalf("Insert report failed: %v", err)
	}

	lots := []*domain.UnitPackage{
		{BondID: id, Account: alice, Units: 200, AcquisitionPeriod: 0, CouponPaid: 40, CreatedAt: 1_700_000_000 - day},
		{BondID: id, Account: bob, Units: 100, AcquisitionPeriod: 1, CouponPaid: 0, CreatedAt: 1_700_000_000 + 35*day},
	}
	for _, lot := range lots {
		if err := packages.Insert(ctx, lot); err != nil {
			t.Fatalf("Insert package failed: %v", err)
		}
	}

	if err := accounts.Upsert(ctx, &domain.AccountYield{
		BondID: id, Account: alice, Paid: 40, LastPeriod: 1,
	}); err != nil {
		t.Fatalf("Upsert account yield failed: %v", err)
	}

	return id, bonds, packages, reports, yields, accounts
}

func TestGenerate(t *testing.T) {
	id, bonds, packages, reports, yields, accounts := setupTestData(t)

	gen := NewGenerator(bonds, packages, reports, yields, accounts).
		WithClock(func() time.Time { return time.Unix(1_705_000_000, 0).UTC() })

	r, err := gen.Generate(context.Background(), id)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if r.Ticker != "GREEN001" {
		t.Errorf("Ticker = %q, want GREEN001", r.Ticker)
	}
	if r.State != domain.StateActive {
		t.Errorf("State = %s, want ACTIVE", r.State)
	}
	if !r.GeneratedAt.Equal(time.Unix(1_705_000_000, 0).UTC()) {
		t.Errorf("GeneratedAt = %v, want injected clock value", r.GeneratedAt)
	}

	// Summary reflects the ledger and accrual history.
	if r.Summary.ParValue != 3_000 {
		t.Errorf("ParValue = %d, want 3000", r.Summary.ParValue)
	}
	if r.Summary.CouponAccrued != 103 {
		t.Errorf("CouponAccrued = %d, want 103", r.Summary.CouponAccrued)
	}
	if r.Summary.CouponDebt != 40 {
		t.Errorf("CouponDebt = %d, want 40", r.Summary.CouponDebt)
	}
	if r.Summary.CouponPaid != 40 {
		t.Errorf("CouponPaid = %d, want 40", r.Summary.CouponPaid)
	}
}

func TestGeneratePeriods(t *testing.T) {
	id, bonds, packages, reports, yields, accounts := setupTestData(t)

	gen := NewGenerator(bonds, packages, reports, yields, accounts)
	r, err := gen.Generate(context.Background(), id)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if len(r.Periods) != 2 {
		t.Fatalf("len(Periods) = %d, want 2", len(r.Periods))
	}

	p1 := r.Periods[0]
	if p1.Period != 1 || p1.Rate != 20_000 || p1.Accrued != 49 {
		t.Errorf("period 1 row mismatch: %+v", p1)
	}
	if p1.ReportValue != 20_000 || !p1.ReportSigned || p1.ReportMissing {
		t.Errorf("period 1 report join mismatch: %+v", p1)
	}

	p2 := r.Periods[1]
	if !p2.ReportMissing {
		t.Errorf("period 2 should be marked missing: %+v", p2)
	}

	if r.Compliance.Submitted != 1 || r.Compliance.Approved != 1 || r.Compliance.Missing != 1 {
		t.Errorf("compliance mismatch: %+v", r.Compliance)
	}
	if r.Compliance.AllOnTime {
		t.Error("AllOnTime should be false with a missing report")
	}
}

func TestGenerateHolders(t *testing.T) {
	id, bonds, packages, reports, yields, accounts := setupTestData(t)

	gen := NewGenerator(bonds, packages, reports, yields, accounts)
	r, err := gen.Generate(context.Background(), id)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if len(r.Holders) != 2 {
		t.Fatalf("len(Holders) = %d, want 2", len(r.Holders))
	}

	// Sorted by account: alice's key starts with '4', bob's with '8'.
	a := r.Holders[0]
	if a.Account != alice || a.Units != 200 {
		t.Fatalf("holder 0 mismatch: %+v", a)
	}
	// alice holds 200/300 of both periods: 49*200/300 + 54*200/300 = 32 + 36.
	if a.Paid != 40 {
		t.Errorf("alice Paid = %d, want 40", a.Paid)
	}
	if a.Unpaid != 28 {
		t.Errorf("alice Unpaid = %d, want 28", a.Unpaid)
	}

	b := r.Holders[1]
	if b.Account != bob || b.Units != 100 {
		t.Fatalf("holder 1 mismatch: %+v", b)
	}
	// bob acquired during period 1, so only period 2 counts: 54*100/300 = 18.
	if b.Unpaid != 18 {
		t.Errorf("bob Unpaid = %d, want 18", b.Unpaid)
	}
	if b.Paid != 0 {
		t.Errorf("bob Paid = %d, want 0", b.Paid)
	}
}

func TestRenderMarkdown(t *testing.T) {
	id, bonds, packages, reports, yields, accounts := setupTestData(t)

	gen := NewGenerator(bonds, packages, reports, yields, accounts)
	r, err := gen.Generate(context.Background(), id)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	md := RenderMarkdown(r)

	for _, want := range []string{
		"# Servicing Report: GREEN001",
		"## Issue Summary",
		"## Coupon Periods",
		"| 2 | 22000 |",
		"MISSING",
		"## Impact Reporting Compliance",
		"Reporting lapses detected",
		"## Holders",
		string(alice),
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestRenderCSV(t *testing.T) {
	id, bonds, packages, reports, yields, accounts := setupTestData(t)

	gen := NewGenerator(bonds, packages, reports, yields, accounts)
	r, err := gen.Generate(context.Background(), id)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	csv := RenderCSV(r.Periods)
	lines := strings.Split(strings.TrimSpace(csv), "\n")
	if len(lines) != 3 {
		t.Fatalf("csv lines = %d, want header + 2 rows", len(lines))
	}
	if !strings.HasPrefix(lines[0], "period,rate_ppm,accrued") {
		t.Errorf("unexpected csv header: %q", lines[0])
	}
	if lines[1] != "1,20000,49,3000,300,20000,true,false,false" {
		t.Errorf("unexpected csv row 1: %q", lines[1])
	}
	if lines[2] != "2,22000,54,3000,300,0,false,false,true" {
		t.Errorf("unexpected csv row 2: %q", lines[2])
	}
}

func TestGenerateEmptyBond(t *testing.T) {
	ctx := context.Background()
	bonds := memory.NewBondStore()
	id, _ := domain.ParseBondID("EMPTY01")
	if err := bonds.Insert(ctx, &domain.Bond{ID: id, State: domain.StatePrepare}); err != nil {
		t.Fatalf("Insert bond failed: %v", err)
	}

	gen := NewGenerator(bonds, memory.NewPackageStore(), memory.NewImpactReportStore(),
		memory.NewPeriodYieldStore(), memory.NewAccountYieldStore())

	r, err := gen.Generate(ctx, id)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if len(r.Periods) != 0 || len(r.Holders) != 0 {
		t.Errorf("expected empty sections, got %d periods, %d holders", len(r.Periods), len(r.Holders))
	}
	if !r.Compliance.AllOnTime {
		t.Error("empty bond should report AllOnTime")
	}
	if !strings.Contains(RenderMarkdown(r), "No coupon periods accrued yet.") {
		t.Error("markdown should note the empty period history")
	}
}
