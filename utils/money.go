package utils

import (
	"github.com/shopspring/decimal"
)

// AmountScale is the number of decimal places money carries
const AmountScale = 2

var ErrInvalidAmount = InvalidError("common.invalid_amount", "amount must be positive with at most two decimal places")

// ValidateAmount checks that d is strictly positive with at most two decimals
func ValidateAmount(d decimal.Decimal) error {
	if !d.IsPositive() {
		return ErrInvalidAmount
	}
	if !d.Equal(d.Round(AmountScale)) {
		return ErrInvalidAmount
	}
	return nil
}

// FormatAmount renders d with two decimal places
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(AmountScale)
}
