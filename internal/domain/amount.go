package domain

import (
	"math"

	"github.com/shopspring/decimal"
)

// Amounts are stored as BIGINT micros (10^-6) to avoid floating point errors.
// The ledger is currency-agnostic: a single fixed-point unit throughout.
const microsPerUnit = 1_000_000

// maxAmount is the largest amount whose micros still fit in an int64.
// decimal.IntPart wraps silently past that, so ParseAmount must bound-check
// before converting.
var maxAmount = decimal.NewFromInt(math.MaxInt64).Div(decimal.NewFromInt(microsPerUnit))

// ToDecimal converts int64 micros to a shopspring/decimal.Decimal.
func ToDecimal(micros int64) decimal.Decimal {
	return decimal.NewFromInt(micros).Div(decimal.NewFromInt(microsPerUnit))
}

// FromDecimal converts a decimal.Decimal to int64 micros, truncating
// anything below micro precision.
func FromDecimal(d decimal.Decimal) int64 {
	return d.Mul(decimal.NewFromInt(microsPerUnit)).IntPart()
}

// ParseAmount parses a decimal amount string into micros.
// It rejects non-numeric input, non-positive values, values with more
// precision than the ledger can represent, and values too large for int64
// micros.
func ParseAmount(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if !d.IsPositive() {
		return 0, ErrInvalidAmount
	}
	if d.Exponent() < -6 {
		return 0, ErrInvalidAmount
	}
	if d.Cmp(maxAmount) > 0 {
		return 0, ErrInvalidAmount
	}
	return FromDecimal(d), nil
}

// FormatAmount renders micros as a decimal string for API responses.
func FormatAmount(micros int64) string {
	return ToDecimal(micros).String()
}
