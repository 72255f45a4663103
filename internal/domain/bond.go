package domain

import "impact-bond-engine/internal/ledger"

// BondState is the lifecycle state of a bond.
type BondState string

const (
	StatePrepare  BondState = "PREPARE"
	StateBooking  BondState = "BOOKING"
	StateActive   BondState = "ACTIVE"
	StateBankrupt BondState = "BANKRUPT"
	StateFinished BondState = "FINISHED"
)

// Bond is the mutable instrument record. Created at PREPARE by the issuer,
// mutated only by engine operations, never deleted.
type Bond struct {
	ID     BondID
	Params BondParameters
	State  BondState

	Issuer         AccountID
	Manager        AccountID
	Auditor        AccountID
	ImpactReporter AccountID

	IssuedUnits uint64 // units currently sold

	CreatedAt   int64 // unix seconds
	BookingOpen int64 // set on PREPARE -> BOOKING
	ActivatedAt int64 // set on BOOKING -> ACTIVE

	// AccruedPeriods is how many payment periods have had their coupon
	// liability booked. The next accrual walk starts here.
	AccruedPeriods uint32

	Ledger ledger.Ledger
}

// RolesAssigned reports whether all three service roles are set.
func (b *Bond) RolesAssigned() bool {
	return b.Manager != "" && b.Auditor != "" && b.ImpactReporter != ""
}

// Clone returns a deep copy; Bond has no reference fields today but stores
// copy defensively through this method.
func (b *Bond) Clone() *Bond {
	cp := *b
	return &cp
}
