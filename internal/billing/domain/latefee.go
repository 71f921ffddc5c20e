package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// LateFeeQuote is the result of a late fee calculation.
type LateFeeQuote struct {
	DaysOverdue  int
	WeeksOverdue int
	Percentage   decimal.Decimal
	Fee          int64
}

var hundred = decimal.NewFromInt(100)

// CalculateLateFee derives the late fee for an invoice from scratch.
// Days are counted from the end of the grace period; every started week adds
// the weekly percentage, capped at the configured maximum.
func CalculateLateFee(totalAmount int64, dueDate, today time.Time, cfg Config) LateFeeQuote {
	graceEnd := dueDate.AddDate(0, 0, cfg.GracePeriodDays)
	days := DaysBetween(graceEnd, today)
	if days <= 0 {
		return LateFeeQuote{Percentage: decimal.Zero}
	}
	weeks := (days + 6) / 7
	pct := decimal.NewFromFloat(cfg.LateFeePercentagePerWeek).Mul(decimal.NewFromInt(int64(weeks)))
	maxPct := decimal.NewFromFloat(cfg.MaxLateFeePercentage)
	if pct.GreaterThan(maxPct) {
		pct = maxPct
	}
	fee := RoundAmount(decimal.NewFromInt(totalAmount).Mul(pct).Div(hundred))
	return LateFeeQuote{
		DaysOverdue:  days,
		WeeksOverdue: weeks,
		Percentage:   pct,
		Fee:          fee,
	}
}
