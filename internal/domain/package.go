package domain

// UnitPackage is one acquisition lot of bond units. Packages are immutable
// once created: settlement writes new packages instead of mutating old ones,
// preserving the audit trail of acquisition cost and yield basis.
type UnitPackage struct {
	BondID  BondID
	Account AccountID

	Units uint64

	// AcquisitionPeriod is the period index active when the lot was bought.
	// Booking-time lots carry 0; a lot earns coupon for periods strictly
	// after its acquisition period.
	AcquisitionPeriod uint32

	// CouponPaid is the yield already distributed on this lot.
	CouponPaid uint64

	CreatedAt int64 // unix seconds
}
