package domain

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDecimal(t *testing.T) {
	d := ToDecimal(10_500_000) // 10.50
	assert.Equal(t, "10.5", d.String())
}

func TestFromDecimal(t *testing.T) {
	d := decimal.NewFromFloat(10.50)
	micros := FromDecimal(d)
	assert.Equal(t, int64(10_500_000), micros)
}

func TestParseAmount(t *testing.T) {
	micros, err := ParseAmount("2.5")
	require.NoError(t, err)
	assert.Equal(t, int64(2_500_000), micros)
}

func TestParseAmount_Invalid(t *testing.T) {
	for _, input := range []string{"0", "-1", "abc", "", "0.0000001"} {
		_, err := ParseAmount(input)
		assert.ErrorIs(t, err, ErrInvalidAmount, "input %q", input)
	}
}

func TestParseAmount_Int64Bound(t *testing.T) {
	// math.MaxInt64 micros is the largest representable amount.
	micros, err := ParseAmount("9223372036854.775807")
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), micros)

	// Anything past the bound must be rejected, not wrapped into a
	// plausible-looking positive value.
	for _, input := range []string{"9223372036854.775808", "20000000000000", "1e30"} {
		_, err := ParseAmount(input)
		assert.ErrorIs(t, err, ErrInvalidAmount, "input %q", input)
	}
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "2.5", FormatAmount(2_500_000))
	assert.Equal(t, "0.000001", FormatAmount(1))
}
