// Package rates maps reported impact values to effective coupon rates.
// The mapping is a pure, monotone non-increasing piecewise function: more
// impact means a lower cost of capital.
package rates

import (
	"impact-bond-engine/internal/arith"
	"impact-bond-engine/internal/domain"
)

// EffectiveRate returns the coupon rate (PPM) for one reported impact value.
//
//   - impact >= cap      -> margin floor
//   - impact <= floor    -> margin cap
//   - impact == baseline -> base rate
//   - otherwise linear interpolation toward the nearer bound, truncating
//     toward the base value.
//
// The interpolation divisors are non-zero whenever a branch is reached: a
// degenerate cap==baseline or baseline==floor forces the impact into one of
// the boundary branches first.
func EffectiveRate(p *domain.BondParameters, impact uint64) uint32 {
	switch {
	case impact >= p.ImpactMaxValue:
		return p.InterestMarginFloor
	case impact <= p.ImpactMinValue:
		return p.InterestMarginCap
	case impact == p.ImpactBaseline:
		return p.InterestBaseRate
	case impact > p.ImpactBaseline:
		// Between (baseline, base) and (cap, floor); rate falls.
		span := impact - p.ImpactBaseline
		div := p.ImpactMaxValue - p.ImpactBaseline
		delta, _ := arith.MulDiv64(uint64(p.InterestBaseRate-p.InterestMarginFloor), span, div)
		return p.InterestBaseRate - uint32(delta)
	default:
		// Between (floor, cap) and (baseline, base); rate rises.
		span := p.ImpactBaseline - impact
		div := p.ImpactBaseline - p.ImpactMinValue
		delta, _ := arith.MulDiv64(uint64(p.InterestMarginCap-p.InterestBaseRate), span, div)
		return p.InterestBaseRate + uint32(delta)
	}
}

// Penalized adds the report-miss penalty to rate, clamped to the margin cap.
// The cap applies deliberately: a string of missed reports must not push the
// coupon past the worst rate investors priced at issuance.
func Penalized(p *domain.BondParameters, rate uint32) uint32 {
	sum := uint64(rate) + uint64(p.InterestPenalty)
	if sum > uint64(p.InterestMarginCap) {
		return p.InterestMarginCap
	}
	return uint32(sum)
}
