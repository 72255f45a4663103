package reporting

import (
	"time"

	"impact-bond-engine/internal/domain"
)

// Report represents a servicing report for a single bond.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	Ticker      string
	State       domain.BondState

	// Issue Summary
	Summary IssueSummary

	// Period rows (sorted by period)
	Periods []PeriodRow

	// Impact reporting compliance
	Compliance ComplianceSection

	// Holder positions (sorted by account)
	Holders []HolderRow
}

// IssueSummary describes the size and standing of the issue.
type IssueSummary struct {
	IssuedUnits    uint64
	UnitBasePrice  uint64
	ParValue       uint64
	AccruedPeriods uint32
	CouponAccrued  uint64 // total liability accrued to date
	CouponPaid     uint64 // portion already withdrawn by holders
	CouponDebt     uint64 // accrued minus funded
	FundBalance    uint64 // current debit balance of the bond fund
	ActivatedAt    int64  // Unix seconds, 0 if never activated
	MaturityAt     int64  // Unix seconds, 0 if never activated
}

// PeriodRow represents one settled coupon period.
type PeriodRow struct {
	Period        uint32
	Rate          uint32 // parts per million
	Accrued       uint64
	FundBefore    uint64
	TotalUnits    uint64
	ReportValue   uint64
	ReportSigned  bool
	ReportLate    bool
	ReportMissing bool
}

// ComplianceSection summarizes impact reporting discipline.
type ComplianceSection struct {
	Submitted int
	Approved  int
	Late      int
	Missing   int
	AllOnTime bool
}

// HolderRow represents one investor's aggregate position.
type HolderRow struct {
	Account domain.AccountID
	Units   uint64
	Lots    int
	Paid    uint64 // coupon yield withdrawn so far
	Unpaid  uint64 // entitlement accrued but not yet withdrawn
}
