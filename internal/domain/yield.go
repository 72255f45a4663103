package domain

// PeriodYield is one row of the append-only coupon accrual history, written
// when a payment period's liability is booked.
type PeriodYield struct {
	BondID BondID
	Period uint32

	// Rate is the effective interest rate frozen for the period, PPM.
	Rate uint32
	// Accrued is the coupon liability booked for this period alone.
	Accrued uint64
	// TotalAccrued is the cumulative liability through this period.
	TotalAccrued uint64
	// FundBefore is the bond's debit balance when the row was written.
	FundBefore uint64
	// TotalUnits is the issued unit count the accrual was computed on;
	// investor shares for the period are taken against it.
	TotalUnits uint64
}

// AccountYield is the per-bondholder settlement cursor: how much coupon has
// been paid out and through which period, to prevent double payment.
type AccountYield struct {
	BondID  BondID
	Account AccountID

	Paid       uint64
	LastPeriod uint32 // last period index already settled for this account
}
