// Package arith provides overflow-checked integer helpers for balance and
// rate math. Balances are uint64, rates are parts-per-million; intermediate
// products are widened to 128 bits via math/bits.
package arith

import "math/bits"

// CheckedMul64 returns a*b and reports whether the product fits in uint64.
func CheckedMul64(a, b uint64) (uint64, bool) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, false
	}
	return lo, true
}

// CheckedAdd64 returns a+b and reports whether the sum fits in uint64.
func CheckedAdd64(a, b uint64) (uint64, bool) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, false
	}
	return sum, true
}

// CheckedSub64 returns a-b and reports whether the difference is non-negative.
func CheckedSub64(a, b uint64) (uint64, bool) {
	if b > a {
		return 0, false
	}
	return a - b, true
}

// MulDiv64 computes (a*b)/div with a 128-bit intermediate, truncating.
// Reports false when div is zero or the quotient does not fit in uint64.
func MulDiv64(a, b, div uint64) (uint64, bool) {
	if div == 0 {
		return 0, false
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= div {
		return 0, false
	}
	q, _ := bits.Div64(hi, lo, div)
	return q, true
}
