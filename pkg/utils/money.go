package utils

import (
	"github.com/shopspring/decimal"
)

// Currency scale is fixed at two decimal places (minor units).
const CurrencyScale = 2

var (
	// CentTolerance is the largest difference treated as "equal" when
	// comparing settled amounts. One minor unit.
	CentTolerance = decimal.New(1, -CurrencyScale)

	daysInYear     = decimal.NewFromInt(365)
	monthsInYear   = decimal.NewFromInt(12)
	percentDivisor = decimal.NewFromInt(100)
)

// TruncateMinor truncates an amount to the minor currency unit.
// Interest portions use truncation so a schedule never over-charges;
// the residual is absorbed into the final installment.
func TruncateMinor(d decimal.Decimal) decimal.Decimal {
	return d.Truncate(CurrencyScale)
}

// RoundMinor rounds an amount half-up to the minor currency unit.
func RoundMinor(d decimal.Decimal) decimal.Decimal {
	return d.Round(CurrencyScale)
}

// MonthlyRate converts an annual percentage rate to a monthly fraction.
// e.g. 12 (percent) -> 0.01.
func MonthlyRate(annualRatePercent decimal.Decimal) decimal.Decimal {
	return annualRatePercent.Div(monthsInYear).Div(percentDivisor)
}

// DailyRate converts an annual percentage rate to a daily fraction
// on a 365-day basis. Used for late-fee accrual.
func DailyRate(annualRatePercent decimal.Decimal) decimal.Decimal {
	return annualRatePercent.Div(daysInYear).Div(percentDivisor)
}

// IsSettled reports whether an outstanding amount is zero within
// the cent tolerance.
func IsSettled(outstanding decimal.Decimal) bool {
	return outstanding.Abs().LessThanOrEqual(CentTolerance)
}

// CoversWithinTolerance reports whether paid covers owed, allowing the
// cent tolerance for rounding drift on the final installment.
func CoversWithinTolerance(paid, owed decimal.Decimal) bool {
	return paid.GreaterThanOrEqual(owed.Sub(CentTolerance))
}
