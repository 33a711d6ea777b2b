package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

// GatewayAmountScale is the factor the payment gateway applies to amounts on
// the wire (VND has no fractional unit, the gateway still expects ×100).
const GatewayAmountScale = 100

// ErrInvalidAmount is returned when a decimal amount is not a positive whole
// number of VND.
var ErrInvalidAmount = errors.New("amount must be a positive whole number")

// AmountFromDecimal converts a decimal to integer VND minor units, rejecting
// fractions, zero, negative values and amounts whose gateway wire form would
// overflow int64.
func AmountFromDecimal(d decimal.Decimal) (int64, error) {
	if !d.IsPositive() || !d.IsInteger() || d.GreaterThan(decimal.NewFromInt(maxAmount)) {
		return 0, ErrInvalidAmount
	}
	return d.IntPart(), nil
}

// AmountDecimal renders integer minor units as a decimal for API responses.
func AmountDecimal(amount int64) decimal.Decimal {
	return decimal.NewFromInt(amount)
}

// GatewayAmount returns the wire amount the gateway expects for amount.
func GatewayAmount(amount int64) int64 {
	return amount * GatewayAmountScale
}

// maxAmount keeps amount*GatewayAmountScale inside int64.
const maxAmount = int64(1<<63-1) / GatewayAmountScale
