package utils

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// ToBaseUnits converts a human amount into integer token units, truncating digits past the token's precision.
func ToBaseUnits(amount decimal.Decimal, decimals uint8) (*big.Int, error) {
	if amount.IsNegative() {
		return nil, fmt.Errorf("amount must not be negative: %s", amount)
	}
	return amount.Shift(int32(decimals)).Truncate(0).BigInt(), nil
}

func FromBaseUnits(units *big.Int, decimals uint8) decimal.Decimal {
	if units == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(units, -int32(decimals))
}

// Rescale moves a human amount between token precisions, truncating what the target cannot represent.
func Rescale(amount decimal.Decimal, to uint8) decimal.Decimal {
	return amount.Truncate(int32(to))
}

// ApplySlippage returns amount*(1-fraction) and amount*(1+fraction).
func ApplySlippage(amount, fraction decimal.Decimal) (lower, upper decimal.Decimal) {
	one := decimal.NewFromInt(1)
	return amount.Mul(one.Sub(fraction)), amount.Mul(one.Add(fraction))
}

// ApplySlippageUnits is ApplySlippage over base units, rounding the lower bound down and the upper bound up.
func ApplySlippageUnits(units *big.Int, fraction decimal.Decimal) (lower, upper *big.Int) {
	lo, hi := ApplySlippage(decimal.NewFromBigInt(units, 0), fraction)
	return lo.Floor().BigInt(), hi.Ceil().BigInt()
}

// Percentage truncates to two places so that shares of one total never add up past 100.
func Percentage(part, total decimal.Decimal) decimal.Decimal {
	if total.IsZero() {
		return decimal.Zero
	}
	return part.Mul(decimal.NewFromInt(100)).Div(total).Truncate(2)
}
