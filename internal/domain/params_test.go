package domain

import (
	"math"
	"testing"
)

const day = 86400

func validParams() BondParameters {
	return BondParameters{
		Metric:         MetricPowerGenerated,
		ImpactBaseline: 20_000,
		ImpactMaxValue: 30_000,
		ImpactMinValue: 10_000,

		InterestBaseRate:    30_000,
		InterestMarginCap:   90_000,
		InterestMarginFloor: 10_000,
		InterestStartRate:   20_000,
		InterestPenalty:     20_000,

		ReportPeriod:        7 * day,
		InterestPayPeriod:   5 * day,
		StartPeriod:         60 * day,
		PaymentPeriod:       30 * day,
		BondDuration:        12,
		BondFinishingPeriod: 10 * day,

		MincapDeadline: 1_700_000_000,

		UnitsMinAmount: 100,
		UnitsMaxAmount: 1_000,
		UnitBasePrice:  4_000_000_000, // 4000 EverUSD in 10^-6 units
	}
}

func TestValidateAcceptsAndIsIdempotent(t *testing.T) {
	p := validParams()
	cfg := DefaultValidationConfig()

	for i := 0; i < 3; i++ {
		if err := p.Validate(cfg); err != nil {
			t.Fatalf("pass %d: valid parameters rejected: %v", i, err)
		}
	}
}

func TestValidateRejectsSingleFieldViolations(t *testing.T) {
	cfg := DefaultValidationConfig()

	cases := []struct {
		name   string
		mutate func(*BondParameters)
	}{
		{"zero unit price", func(p *BondParameters) { p.UnitBasePrice = 0 }},
		{"zero min units", func(p *BondParameters) { p.UnitsMinAmount = 0 }},
		{"max below min units", func(p *BondParameters) { p.UnitsMaxAmount = p.UnitsMinAmount - 1 }},
		{"price times max overflow", func(p *BondParameters) {
			p.UnitBasePrice = math.MaxUint64 / 2
			p.UnitsMaxAmount = 3
		}},
		{"payment period not day multiple", func(p *BondParameters) { p.PaymentPeriod += 1 }},
		{"report period not day multiple", func(p *BondParameters) { p.ReportPeriod += 30 }},
		{"zero payment period", func(p *BondParameters) { p.PaymentPeriod = 0 }},
		{"report window exceeds payment period", func(p *BondParameters) { p.ReportPeriod = p.PaymentPeriod + day }},
		{"pay window exceeds payment period", func(p *BondParameters) { p.InterestPayPeriod = p.PaymentPeriod + day }},
		{"start window below one payment period", func(p *BondParameters) { p.StartPeriod = p.PaymentPeriod - day }},
		{"duration below minimum", func(p *BondParameters) { p.BondDuration = 0 }},
		{"base rate above cap", func(p *BondParameters) { p.InterestBaseRate = p.InterestMarginCap + 1 }},
		{"base rate below floor", func(p *BondParameters) { p.InterestBaseRate = p.InterestMarginFloor - 1 }},
		{"start rate outside margins", func(p *BondParameters) { p.InterestStartRate = p.InterestMarginCap + 1 }},
		{"impact baseline above cap", func(p *BondParameters) { p.ImpactBaseline = p.ImpactMaxValue + 1 }},
		{"impact baseline below floor", func(p *BondParameters) { p.ImpactBaseline = p.ImpactMinValue - 1 }},
		{"unknown metric", func(p *BondParameters) { p.Metric = "WIND_SPEED" }},
		{"missing mincap deadline", func(p *BondParameters) { p.MincapDeadline = 0 }},
	}

	for _, tc := range cases {
		p := validParams()
		tc.mutate(&p)
		if err := p.Validate(cfg); err == nil {
			t.Errorf("%s: expected rejection, got nil", tc.name)
		}
	}
}

func TestValidateAllowsZeroStartWindow(t *testing.T) {
	p := validParams()
	p.StartPeriod = 0
	if err := p.Validate(DefaultValidationConfig()); err != nil {
		t.Fatalf("zero start window should validate: %v", err)
	}
}

func TestFinanciallyEquivalentIgnoresDocumentHashes(t *testing.T) {
	a := validParams()
	b := validParams()
	b.Docs.Legal[0] = 0xff

	if !FinanciallyEquivalent(&a, &b) {
		t.Fatal("document hash edit flagged as financially material")
	}

	b.UnitBasePrice++
	if FinanciallyEquivalent(&a, &b) {
		t.Fatal("price change not flagged as financially material")
	}
}

func TestParValue(t *testing.T) {
	p := validParams()
	v, ok := p.ParValue(250)
	if !ok || v != 250*p.UnitBasePrice {
		t.Fatalf("ParValue(250) = %d ok=%v", v, ok)
	}

	p.UnitBasePrice = math.MaxUint64 / 2
	if _, ok := p.ParValue(3); ok {
		t.Fatal("expected overflow to be reported")
	}
}
