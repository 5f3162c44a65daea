package domain

import (
	"github.com/shopspring/decimal"
)

// All monetary fields are fixed-point with 2 decimal places. Amounts coming
// in from the API are normalized with RoundMoney before any arithmetic.

func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ValidateAmount rejects negative or unset amounts for the given field.
func ValidateAmount(field string, d decimal.Decimal) error {
	if d.IsNegative() {
		return &ValidationError{Field: field, Message: field + " must not be negative"}
	}
	return nil
}

// ValidatePositiveAmount rejects zero and negative amounts.
func ValidatePositiveAmount(field string, d decimal.Decimal) error {
	if !d.IsPositive() {
		return &ValidationError{Field: field, Message: field + " must be greater than zero"}
	}
	return nil
}
