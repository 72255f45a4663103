package domain

// PeriodRatePoint is one analytics row of the servicing history, written
// alongside each coupon accrual. Unlike PeriodYield this is reporting data:
// it may be rebuilt from the yield history at any time.
type PeriodRatePoint struct {
	BondID     BondID
	Period     uint32
	Rate       uint32 // effective rate, PPM
	Impact     uint64 // reported impact the rate was derived from (0 if missed)
	Accrued    uint64
	RecordedAt int64 // unix seconds
}
