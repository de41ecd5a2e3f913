package utils

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToBaseUnits(t *testing.T) {
	tests := []struct {
		amount   string
		decimals uint8
		want     string
	}{
		{"1.0", 18, "1000000000000000000"},
		{"1.5", 6, "1500000"},
		{"0.0000001", 6, "0"},
		{"123.456789", 2, "12345"},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			units, err := ToBaseUnits(decimal.RequireFromString(tt.amount), tt.decimals)
			require.NoError(t, err)
			assert.Equal(t, tt.want, units.String())
		})
	}

	_, err := ToBaseUnits(decimal.RequireFromString("-1"), 18)
	assert.Error(t, err)
}

func TestFromBaseUnits(t *testing.T) {
	units, _ := new(big.Int).SetString("1500000", 10)
	assert.Equal(t, "1.5", FromBaseUnits(units, 6).String())
	assert.True(t, FromBaseUnits(nil, 6).IsZero())
}

func TestApplySlippage(t *testing.T) {
	lower, upper := ApplySlippage(decimal.RequireFromString("1.0"), decimal.RequireFromString("0.005"))
	assert.True(t, lower.Equal(decimal.RequireFromString("0.995")))
	assert.True(t, upper.Equal(decimal.RequireFromString("1.005")))

	lo, hi := ApplySlippageUnits(big.NewInt(1001), decimal.RequireFromString("0.005"))
	assert.Equal(t, "995", lo.String())
	assert.Equal(t, "1007", hi.String())
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, "25", Percentage(decimal.NewFromInt(1), decimal.NewFromInt(4)).String())
	assert.True(t, Percentage(decimal.NewFromInt(1), decimal.Zero).IsZero())
	assert.Equal(t, "33.33", Percentage(decimal.NewFromInt(1), decimal.NewFromInt(3)).String())
	assert.Equal(t, "66.66", Percentage(decimal.NewFromInt(2), decimal.NewFromInt(3)).String())
}
