package domain

// ImpactReport is the once-per-period impact measurement submitted by the
// bond's impact reporter. The first report stored for a period freezes that
// period's rate input; duplicates are rejected upstream.
type ImpactReport struct {
	BondID BondID
	Period uint32

	Impact uint64

	SubmittedAt int64 // unix seconds
	// Late marks a report that arrived after the period's report deadline.
	// Late reports still price the period but carry the miss penalty.
	Late bool
	// Signed is set once the auditor has approved the report.
	Signed bool
}
