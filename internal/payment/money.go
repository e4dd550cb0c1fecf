package payment

import "github.com/shopspring/decimal"

// ToMinor converts a major-unit amount to the gateway's minor units (x100), rounding half away from zero.
func ToMinor(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

func FromMinor(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}
