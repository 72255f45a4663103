package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString(fmt.Sprintf("# Servicing Report: %s\n\n", r.Ticker))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("State: %s\n\n", r.State))

	// Issue Summary
	sb.WriteString("## Issue Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Issued Units | %d |\n", r.Summary.IssuedUnits))
	sb.WriteString(fmt.Sprintf("| Unit Base Price | %d |\n", r.Summary.UnitBasePrice))
	sb.WriteString(fmt.Sprintf("| Par Value | %d |\n", r.Summary.ParValue))
	sb.WriteString(fmt.Sprintf("| Accrued Periods | %d |\n", r.Summary.AccruedPeriods))
	sb.WriteString(fmt.Sprintf("| Coupon Accrued | %d |\n", r.Summary.CouponAccrued))
	sb.WriteString(fmt.Sprintf("| Coupon Paid | %d |\n", r.Summary.CouponPaid))
	sb.WriteString(fmt.Sprintf("| Coupon Debt | %d |\n", r.Summary.CouponDebt))
	sb.WriteString(fmt.Sprintf("| Fund Balance | %d |\n", r.Summary.FundBalance))
	if r.Summary.ActivatedAt != 0 {
		sb.WriteString(fmt.Sprintf("| Activated | %s |\n", time.Unix(r.Summary.ActivatedAt, 0).UTC().Format(time.RFC3339)))
		sb.WriteString(fmt.Sprintf("| Maturity | %s |\n", time.Unix(r.Summary.MaturityAt, 0).UTC().Format(time.RFC3339)))
	}
	sb.WriteString("\n")

	// Coupon Periods
	sb.WriteString("## Coupon Periods\n\n")
	if len(r.Periods) > 0 {
		sb.WriteString("| Period | Rate (PPM) | Accrued | Fund Before | Units | Impact | Report |\n")
		sb.WriteString("|--------|-----------|---------|-------------|-------|--------|--------|\n")
		for _, p := range r.Periods {
			sb.WriteString(fmt.Sprintf("| %d | %d | %d | %d | %d | %d | %s |\n",
				p.Period, p.Rate, p.Accrued, p.FundBefore, p.TotalUnits,
				p.ReportValue, reportStatus(p)))
		}
	} else {
		sb.WriteString("No coupon periods accrued yet.\n")
	}
	sb.WriteString("\n")

	// Reporting Compliance
	sb.WriteString("## Impact Reporting Compliance\n\n")
	sb.WriteString("| Submitted | Approved | Late | Missing |\n")
	sb.WriteString("|-----------|----------|------|--------|\n")
	sb.WriteString(fmt.Sprintf("| %d | %d | %d | %d |\n\n",
		r.Compliance.Submitted, r.Compliance.Approved, r.Compliance.Late, r.Compliance.Missing))
	if r.Compliance.AllOnTime {
		sb.WriteString("All periods reported on time.\n\n")
	} else {
		sb.WriteString("**Reporting lapses detected.** Affected periods are priced at the penalized rate.\n\n")
	}

	// Holders
	sb.WriteString("## Holders\n\n")
	if len(r.Holders) > 0 {
		sb.WriteString("| Account | Units | Lots | Coupon Paid | Coupon Unpaid |\n")
		sb.WriteString("|---------|-------|------|-------------|---------------|\n")
		for _, h := range r.Holders {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %d |\n",
				h.Account, h.Units, h.Lots, h.Paid, h.Unpaid))
		}
	} else {
		sb.WriteString("No units outstanding.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

func reportStatus(p PeriodRow) string {
	switch {
	case p.Period == 0:
		return "n/a"
	case p.ReportMissing:
		return "MISSING"
	case p.ReportLate && p.ReportSigned:
		return "LATE, signed"
	case p.ReportLate:
		return "LATE"
	case p.ReportSigned:
		return "signed"
	default:
		return "submitted"
	}
}
