// Package schedule derives the payment/reporting sub-period structure of a
// bond from its parameters and activation timestamp. Everything here is pure
// computation; descriptors are produced on demand and never persisted.
package schedule

import (
	"math"

	"impact-bond-engine/internal/domain"
)

// Descriptor locates one period's boundaries, in seconds since activation.
type Descriptor struct {
	Index uint32

	Start               uint64
	ReportDeadline      uint64
	PaymentDeadline     uint64
	InterestPayDeadline uint64
}

// Length is the accrual length of the period in seconds.
func (d Descriptor) Length() uint64 {
	return d.PaymentDeadline - d.Start
}

// Elapsed converts now-activation to whole seconds. A span beyond the
// representable uint32 range yields ok=false: the bond is simply past any
// defined period boundary, not in error.
func Elapsed(activation, now int64) (uint32, bool) {
	if now < activation {
		return 0, false
	}
	diff := now - activation
	if diff > math.MaxUint32 {
		return 0, false
	}
	return uint32(diff), true
}

// FirstIndex is 0 when the bond has an initial fixed-rate window, else 1.
func FirstIndex(p *domain.BondParameters) uint32 {
	if p.StartPeriod > 0 {
		return 0
	}
	return 1
}

// PeriodCount is how many periods the bond has in total, counting the
// initial window when present.
func PeriodCount(p *domain.BondParameters) uint32 {
	if p.StartPeriod > 0 {
		return p.BondDuration + 1
	}
	return p.BondDuration
}

// PeriodIndex resolves an elapsed time to the period being serviced.
// Index 0 is the initial fixed-rate window when one exists; payment periods
// run 1..BondDuration and the index saturates at BondDuration. The instant
// of a payment deadline still belongs to the period being settled, so with
// no initial window both elapsed 0 and one full payment period map to 1.
func PeriodIndex(p *domain.BondParameters, elapsed uint32) uint32 {
	if p.StartPeriod > 0 && elapsed < p.StartPeriod {
		return 0
	}
	t := uint64(elapsed) - uint64(p.StartPeriod)
	idx := uint64(1)
	if t > 0 {
		idx = 1 + (t-1)/uint64(p.PaymentPeriod)
	}
	if idx > uint64(p.BondDuration) {
		idx = uint64(p.BondDuration)
	}
	return uint32(idx)
}

// Describe reconstructs the absolute deadlines for one period index. The
// final period uses the wind-down grace window instead of the ordinary
// interest-pay window; crossing its interest-pay deadline is what triggers
// the FINISHED/BANKRUPT decision.
func Describe(p *domain.BondParameters, index uint32) Descriptor {
	d := Descriptor{Index: index}

	if index == 0 {
		d.Start = 0
		d.PaymentDeadline = uint64(p.StartPeriod)
	} else {
		d.PaymentDeadline = uint64(p.StartPeriod) + uint64(index)*uint64(p.PaymentPeriod)
		d.Start = d.PaymentDeadline - uint64(p.PaymentPeriod)
	}

	d.ReportDeadline = d.PaymentDeadline - uint64(p.ReportPeriod)

	if index == p.BondDuration {
		d.InterestPayDeadline = d.PaymentDeadline + uint64(p.BondFinishingPeriod)
	} else {
		d.InterestPayDeadline = d.PaymentDeadline + uint64(p.InterestPayPeriod)
	}
	return d
}

// MaturityDeadline is the elapsed offset after which the bond must resolve
// to FINISHED or BANKRUPT.
func MaturityDeadline(p *domain.BondParameters) uint64 {
	return Describe(p, p.BondDuration).InterestPayDeadline
}

// Iterator walks period descriptors index-ascending, from the first index
// through BondDuration. It is finite and restartable and keeps no state
// beyond the next index; each element is computed purely from the
// parameters.
type Iterator struct {
	params *domain.BondParameters
	next   uint32
}

// NewIterator positions a fresh iterator at the bond's first period.
func NewIterator(p *domain.BondParameters) *Iterator {
	return &Iterator{params: p, next: FirstIndex(p)}
}

// Next returns the next descriptor, or ok=false when exhausted.
func (it *Iterator) Next() (Descriptor, bool) {
	if it.next > it.params.BondDuration {
		return Descriptor{}, false
	}
	d := Describe(it.params, it.next)
	it.next++
	return d, true
}

// Reset rewinds the iterator to the first period.
func (it *Iterator) Reset() {
	it.next = FirstIndex(it.params)
}
