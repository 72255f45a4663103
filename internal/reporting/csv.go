package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders the coupon period history as CSV string.
func RenderCSV(periods []PeriodRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("period,rate_ppm,accrued,fund_before,total_units,")
	sb.WriteString("impact_value,report_signed,report_late,report_missing\n")

	// Rows
	for _, p := range periods {
		sb.WriteString(fmt.Sprintf("%d,%d,%d,%d,%d,%d,%t,%t,%t\n",
			p.Period,
			p.Rate,
			p.Accrued,
			p.FundBefore,
			p.TotalUnits,
			p.ReportValue,
			p.ReportSigned,
			p.ReportLate,
			p.ReportMissing,
		))
	}

	return sb.String()
}
