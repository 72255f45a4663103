package domain

import (
	"fmt"

	"impact-bond-engine/internal/arith"
)

// ImpactMetric identifies the reported impact measurement a bond's coupon
// is linked to.
type ImpactMetric string

const (
	MetricPowerGenerated        ImpactMetric = "POWER_GENERATED"
	MetricCO2EmissionsReduction ImpactMetric = "CO2_EMISSIONS_REDUCTION"
)

// Hash is a 32-byte document commitment (merkle root).
type Hash [32]byte

// DocumentHashes are the four document commitments fixed at issuance.
type DocumentHashes struct {
	General   Hash
	Legal     Hash
	Financial Hash
	Technical Hash
}

// BondParameters is the immutable issuance parameter set. All period lengths
// are in seconds, all rates in parts-per-million, all balances in EverUSD
// minor units.
type BondParameters struct {
	Docs DocumentHashes

	Metric         ImpactMetric
	ImpactBaseline uint64 // per-period expected impact value
	ImpactMaxValue uint64 // cap: at or above, the floor rate applies
	ImpactMinValue uint64 // floor: at or below, the cap rate applies

	InterestBaseRate    uint32 // rate at baseline impact
	InterestMarginCap   uint32 // worst rate for the issuer
	InterestMarginFloor uint32 // best rate for the issuer
	InterestStartRate   uint32 // fixed rate during the start window
	InterestPenalty     uint32 // added when a period's report is late or missing

	ReportPeriod        uint32 // report-submission window before each payment deadline
	InterestPayPeriod   uint32 // grace after a payment deadline to settle the coupon
	StartPeriod         uint32 // initial fixed-rate window; zero or >= one payment period
	PaymentPeriod       uint32
	BondDuration        uint32 // number of payment periods
	BondFinishingPeriod uint32 // wind-down grace after the final payment deadline

	MincapDeadline int64 // unix seconds; booking must reach mincap by then

	UnitsMinAmount uint64
	UnitsMaxAmount uint64
	UnitBasePrice  uint64 // par price of one unit
}

// ValidationConfig carries the host-level constants the validator needs.
type ValidationConfig struct {
	DayDuration     uint32 // calendar day length in seconds
	MinBondDuration uint32 // minimum number of payment periods
}

// DefaultValidationConfig matches production deployments: 86400-second days,
// at least one payment period.
func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{DayDuration: 86400, MinBondDuration: 1}
}

// Validate checks the parameter set for internal consistency. It is pure and
// total; a bond may not leave the PREPARE state while it fails.
func (p *BondParameters) Validate(cfg ValidationConfig) error {
	if cfg.DayDuration == 0 {
		return fmt.Errorf("day duration must be positive")
	}
	if p.Metric != MetricPowerGenerated && p.Metric != MetricCO2EmissionsReduction {
		return fmt.Errorf("unknown impact metric %q", p.Metric)
	}

	if p.UnitBasePrice == 0 {
		return fmt.Errorf("unit base price must be positive")
	}
	if p.UnitsMinAmount == 0 || p.UnitsMaxAmount < p.UnitsMinAmount {
		return fmt.Errorf("unit caps: need max >= min > 0, got min=%d max=%d", p.UnitsMinAmount, p.UnitsMaxAmount)
	}
	if _, ok := arith.CheckedMul64(p.UnitsMaxAmount, p.UnitBasePrice); !ok {
		return fmt.Errorf("unit price %d times max units %d overflows the balance type", p.UnitBasePrice, p.UnitsMaxAmount)
	}

	day := cfg.DayDuration
	for _, f := range []struct {
		name string
		v    uint32
	}{
		{"payment period", p.PaymentPeriod},
		{"report period", p.ReportPeriod},
		{"interest pay period", p.InterestPayPeriod},
		{"start period", p.StartPeriod},
		{"finishing period", p.BondFinishingPeriod},
	} {
		if f.v%day != 0 {
			return fmt.Errorf("%s %ds is not a multiple of the %ds day", f.name, f.v, day)
		}
	}
	if p.PaymentPeriod == 0 {
		return fmt.Errorf("payment period must be positive")
	}
	if p.ReportPeriod == 0 || p.ReportPeriod > p.PaymentPeriod {
		return fmt.Errorf("report period %ds must be within (0, payment period %ds]", p.ReportPeriod, p.PaymentPeriod)
	}
	if p.InterestPayPeriod > p.PaymentPeriod {
		return fmt.Errorf("interest pay period %ds exceeds payment period %ds", p.InterestPayPeriod, p.PaymentPeriod)
	}
	if p.StartPeriod != 0 && p.StartPeriod < p.PaymentPeriod {
		return fmt.Errorf("start period %ds must be zero or at least one payment period", p.StartPeriod)
	}
	if p.BondDuration < cfg.MinBondDuration {
		return fmt.Errorf("bond duration %d is below the minimum %d", p.BondDuration, cfg.MinBondDuration)
	}

	if p.InterestMarginCap < p.InterestBaseRate || p.InterestBaseRate < p.InterestMarginFloor {
		return fmt.Errorf("interest rates: need cap >= base >= floor, got cap=%d base=%d floor=%d",
			p.InterestMarginCap, p.InterestBaseRate, p.InterestMarginFloor)
	}
	if p.InterestStartRate < p.InterestMarginFloor || p.InterestStartRate > p.InterestMarginCap {
		return fmt.Errorf("interest start rate %d is outside [floor %d, cap %d]",
			p.InterestStartRate, p.InterestMarginFloor, p.InterestMarginCap)
	}
	if p.ImpactMaxValue < p.ImpactBaseline || p.ImpactBaseline < p.ImpactMinValue {
		return fmt.Errorf("impact thresholds: need cap >= baseline >= floor, got cap=%d baseline=%d floor=%d",
			p.ImpactMaxValue, p.ImpactBaseline, p.ImpactMinValue)
	}

	if p.MincapDeadline <= 0 {
		return fmt.Errorf("mincap deadline must be set")
	}

	return nil
}

// FinanciallyEquivalent reports whether two parameter sets agree on every
// economically material field. Document hashes are deliberately excluded, so
// issuers can fix document commitments without changing investor economics.
func FinanciallyEquivalent(a, b *BondParameters) bool {
	return a.Metric == b.Metric &&
		a.ImpactBaseline == b.ImpactBaseline &&
		a.ImpactMaxValue == b.ImpactMaxValue &&
		a.ImpactMinValue == b.ImpactMinValue &&
		a.InterestBaseRate == b.InterestBaseRate &&
		a.InterestMarginCap == b.InterestMarginCap &&
		a.InterestMarginFloor == b.InterestMarginFloor &&
		a.InterestStartRate == b.InterestStartRate &&
		a.InterestPenalty == b.InterestPenalty &&
		a.ReportPeriod == b.ReportPeriod &&
		a.InterestPayPeriod == b.InterestPayPeriod &&
		a.StartPeriod == b.StartPeriod &&
		a.PaymentPeriod == b.PaymentPeriod &&
		a.BondDuration == b.BondDuration &&
		a.BondFinishingPeriod == b.BondFinishingPeriod &&
		a.MincapDeadline == b.MincapDeadline &&
		a.UnitsMinAmount == b.UnitsMinAmount &&
		a.UnitsMaxAmount == b.UnitsMaxAmount &&
		a.UnitBasePrice == b.UnitBasePrice
}

// ParValue is the nominal price of count units. Overflow is precluded for
// any count within the unit cap by Validate's price check.
func (p *BondParameters) ParValue(count uint64) (uint64, bool) {
	return arith.CheckedMul64(count, p.UnitBasePrice)
}
