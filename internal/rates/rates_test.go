package rates

import (
	"testing"

	"impact-bond-engine/internal/domain"
)

func testParams() *domain.BondParameters {
	return &domain.BondParameters{
		ImpactBaseline: 20_000,
		ImpactMaxValue: 30_000,
		ImpactMinValue: 10_000,

		InterestBaseRate:    30_000, // 3%
		InterestMarginCap:   90_000, // 9%
		InterestMarginFloor: 10_000, // 1%
		InterestPenalty:     20_000, // 2%
	}
}

func TestEffectiveRateBoundaries(t *testing.T) {
	p := testParams()

	cases := []struct {
		name   string
		impact uint64
		want   uint32
	}{
		{"at cap", p.ImpactMaxValue, p.InterestMarginFloor},
		{"above cap", p.ImpactMaxValue + 123_456, p.InterestMarginFloor},
		{"at floor", p.ImpactMinValue, p.InterestMarginCap},
		{"below floor", p.ImpactMinValue - 1, p.InterestMarginCap},
		{"at zero", 0, p.InterestMarginCap},
		{"at baseline", p.ImpactBaseline, p.InterestBaseRate},
	}
	for _, tc := range cases {
		if got := EffectiveRate(p, tc.impact); got != tc.want {
			t.Errorf("%s: EffectiveRate(%d) = %d, want %d", tc.name, tc.impact, got, tc.want)
		}
	}
}

func TestEffectiveRateInterpolation(t *testing.T) {
	p := testParams()

	// Halfway between baseline and cap: base - (base-floor)/2.
	if got := EffectiveRate(p, 25_000); got != 20_000 {
		t.Errorf("above baseline midpoint: got %d, want 20000", got)
	}

	// Halfway between floor and baseline: base + (cap-base)/2.
	if got := EffectiveRate(p, 15_000); got != 60_000 {
		t.Errorf("below baseline midpoint: got %d, want 60000", got)
	}

	// Truncation toward the base value: one unit above baseline must not
	// move a full rate step.
	got := EffectiveRate(p, p.ImpactBaseline+1)
	if got > p.InterestBaseRate || got < p.InterestBaseRate-2 {
		t.Errorf("truncation: got %d, want just below base %d", got, p.InterestBaseRate)
	}
}

func TestEffectiveRateMonotoneNonIncreasing(t *testing.T) {
	p := testParams()

	prev := EffectiveRate(p, 0)
	for impact := uint64(1); impact <= p.ImpactMaxValue+5_000; impact += 37 {
		got := EffectiveRate(p, impact)
		if got > prev {
			t.Fatalf("rate increased with impact: f(%d)=%d > previous %d", impact, got, prev)
		}
		prev = got
	}
}

func TestEffectiveRateDegenerateThresholds(t *testing.T) {
	// cap == baseline: everything at or above baseline is the floor rate,
	// the interpolation divisor is never touched.
	p := testParams()
	p.ImpactMaxValue = p.ImpactBaseline
	if got := EffectiveRate(p, p.ImpactBaseline); got != p.InterestMarginFloor {
		t.Errorf("cap==baseline at baseline: got %d, want floor %d", got, p.InterestMarginFloor)
	}
	if got := EffectiveRate(p, p.ImpactBaseline+1); got != p.InterestMarginFloor {
		t.Errorf("cap==baseline above: got %d, want floor %d", got, p.InterestMarginFloor)
	}

	// baseline == floor on the other side.
	p = testParams()
	p.ImpactMinValue = p.ImpactBaseline
	if got := EffectiveRate(p, p.ImpactBaseline); got != p.InterestMarginCap {
		t.Errorf("baseline==floor at baseline: got %d, want cap %d", got, p.InterestMarginCap)
	}
}

func TestPenalizedClampsAtMarginCap(t *testing.T) {
	p := testParams()

	// Well below the cap: plain addition.
	if got := Penalized(p, 30_000); got != 50_000 {
		t.Errorf("Penalized(30000) = %d, want 50000", got)
	}

	// Sum would exceed the margin cap: clamped.
	if got := Penalized(p, 80_000); got != p.InterestMarginCap {
		t.Errorf("Penalized(80000) = %d, want clamp at %d", got, p.InterestMarginCap)
	}

	// Already at the cap stays at the cap.
	if got := Penalized(p, p.InterestMarginCap); got != p.InterestMarginCap {
		t.Errorf("Penalized(cap) = %d, want %d", got, p.InterestMarginCap)
	}
}
