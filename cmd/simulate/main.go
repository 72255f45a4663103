// Package main runs a deterministic end-to-end bond lifecycle against
// in-memory storage and prints the resulting servicing report. Useful for
// demos and for eyeballing rate behavior under different impact values.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"impact-bond-engine/internal/clock"
	"impact-bond-engine/internal/domain"
	"impact-bond-engine/internal/engine"
	"impact-bond-engine/internal/events"
	"impact-bond-engine/internal/reporting"
	"impact-bond-engine/internal/roles"
	"impact-bond-engine/internal/storage/memory"
	"impact-bond-engine/internal/tokens"
)

const day = 86400

// Deterministic base58 account ids for the simulated parties.
const (
	master   = domain.AccountID("11111111111111111111111111111111")
	issuer   = domain.AccountID("4vJ9JU1bJJE96FWSJKvHsmmFADCg4gpZQff4P3bkLKi")
	investor = domain.AccountID("8qbHbw2BbbTHBW1sbeqakYXVKRQM8Ne7pLK7m6CVfeR")
	reporter = domain.AccountID("FDKJvWcJNae5wViQqkbMVKYPBvrEmcGdRdX9wUE2UPCh")
	auditor  = domain.AccountID("3yFwqXBfZY4jBVUafQ1YEXw189y2dN3V5KQq9uzBDy1E")
	manager  = domain.AccountID("6c3ez3QMfsNLy4DLbQkn5qPiQrA23Wpy2HHJhBVCYfUz")
)

func main() {
	periods := flag.Uint("periods", 4, "Number of payment periods")
	units := flag.Uint64("units", 400, "Units the investor buys at booking")
	impact := flag.Uint64("impact", 26_000, "Impact value reported every period")
	skipPeriod := flag.Uint("skip-period", 3, "Period whose report is skipped (0 = none)")
	format := flag.String("format", "markdown", "Output format: markdown or csv")
	flag.Parse()

	logger := log.New(os.Stderr, "[simulate] ", log.LstdFlags)

	if err := run(uint32(*periods), *units, *impact, uint32(*skipPeriod), *format, logger); err != nil {
		logger.Fatalf("Simulation failed: %v", err)
	}
}

func run(periods uint32, units, impact uint64, skipPeriod uint32, format string, logger *log.Logger) error {
	ctx := context.Background()

	bonds := memory.NewBondStore()
	packages := memory.NewPackageStore()
	reports := memory.NewImpactReportStore()
	periodYields := memory.NewPeriodYieldStore()
	accountYields := memory.NewAccountYieldStore()
	balances := memory.NewBalanceStore()
	tokenRequests := memory.NewTokenRequestStore()
	roleStore := memory.NewRoleStore()

	registry := roles.NewRegistry(roleStore)
	if err := registry.Bootstrap(ctx, master); err != nil {
		return err
	}
	grants := map[domain.AccountID]domain.RoleMask{
		master:   domain.RoleCustodian,
		issuer:   domain.RoleIssuer,
		investor: domain.RoleInvestor,
		reporter: domain.RoleImpactReporter,
		auditor:  domain.RoleAuditor,
		manager:  domain.RoleManager,
	}
	for acc, mask := range grants {
		if err := registry.Grant(ctx, master, acc, mask); err != nil {
			return err
		}
	}

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Unix()
	clk := clock.NewManual(start)
	ledger := tokens.NewLedger(balances, tokenRequests, registry, clk)

	// Fund the parties through the custodian mint queue.
	for acc, amount := range map[domain.AccountID]uint64{issuer: 1_000_000, investor: 1_000_000} {
		if err := ledger.RequestMint(ctx, acc, amount); err != nil {
			return err
		}
		if err := ledger.ConfirmMint(ctx, master, acc); err != nil {
			return err
		}
	}

	svc := engine.NewService(engine.Deps{
		Bonds:         bonds,
		Packages:      packages,
		Reports:       reports,
		PeriodYields:  periodYields,
		AccountYields: accountYields,
		Documents:     memory.NewDocumentStore(),
		RateHistory:   memory.NewRateHistoryStore(),
		Tokens:        ledger,
		Registry:      registry,
		Clock:         clk,
		Emitter: events.EmitterFunc(func(e events.Event) {
			logger.Printf("event %s bond=%s amount=%d period=%d", e.Type, e.BondID, e.Amount, e.Period)
		}),
		Logger: logger,
	})

	id, err := domain.ParseBondID("SIM00001")
	if err != nil {
		return err
	}
	params := domain.BondParameters{
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
		BondDuration:        periods,
		BondFinishingPeriod: 30 * day,
		MincapDeadline:      start + 20*day,
		UnitsMinAmount:      100,
		UnitsMaxAmount:      1_000,
		UnitBasePrice:       10,
	}

	// PREPARE -> BOOKING -> ACTIVE.
	if err := svc.CreateBond(ctx, issuer, id, params); err != nil {
		return err
	}
	if err := svc.AssignRoles(ctx, issuer, id, manager, auditor, reporter); err != nil {
		return err
	}
	if err := svc.OpenBooking(ctx, master, id); err != nil {
		return err
	}
	if err := svc.BuyUnits(ctx, investor, id, units); err != nil {
		return err
	}
	if err := svc.Activate(ctx, master, id); err != nil {
		return err
	}
	logger.Printf("Bond %s active: %d units at price %d", id, units, params.UnitBasePrice)

	// Walk the payment periods: report inside the window, approve, fund at
	// the payment deadline, settle yield.
	for p := uint32(1); p <= periods; p++ {
		clk.Advance(int64(params.PaymentPeriod - params.ReportPeriod))
		if p != skipPeriod {
			if err := svc.SubmitImpactReport(ctx, reporter, id, p, impact); err != nil {
				return fmt.Errorf("period %d report: %w", p, err)
			}
			if err := svc.ApproveImpactReport(ctx, auditor, id, p); err != nil {
				return fmt.Errorf("period %d approval: %w", p, err)
			}
		} else {
			logger.Printf("Skipping impact report for period %d", p)
		}
		clk.Advance(int64(params.ReportPeriod))
		if err := svc.Deposit(ctx, issuer, id, 2_000); err != nil {
			return fmt.Errorf("period %d deposit: %w", p, err)
		}
		if err := svc.WithdrawCouponYield(ctx, investor, id); err != nil {
			return fmt.Errorf("period %d yield: %w", p, err)
		}
	}

	// Run out the finishing window and resolve maturity.
	clk.Advance(int64(params.PaymentPeriod + params.BondFinishingPeriod))
	if err := svc.Finish(ctx, investor, id); err != nil {
		return fmt.Errorf("finish: %w", err)
	}
	if err := svc.WithdrawCouponYield(ctx, investor, id); err != nil {
		return fmt.Errorf("final yield: %w", err)
	}
	if err := svc.Redeem(ctx, investor, id); err != nil {
		return fmt.Errorf("redeem: %w", err)
	}

	balance, err := ledger.Balance(ctx, investor)
	if err != nil {
		return err
	}
	logger.Printf("Investor balance after redemption: %d", balance)

	gen := reporting.NewGenerator(bonds, packages, reports, periodYields, accountYields).
		WithClock(func() time.Time { return time.Unix(clk.Now(), 0).UTC() })
	report, err := gen.Generate(ctx, id)
	if err != nil {
		return err
	}

	switch format {
	case "csv":
		fmt.Print(reporting.RenderCSV(report.Periods))
	default:
		fmt.Print(reporting.RenderMarkdown(report))
	}
	return nil
}
