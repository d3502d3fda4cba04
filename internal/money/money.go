// Package money provides exact decimal arithmetic for currency amounts.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// Tolerance is the comparison tolerance for currency amounts: two figures
// within 0.01 of each other are considered equal, absorbing rounding noise.
var Tolerance = decimal.New(1, -2)

// Zero is the zero amount.
var Zero = decimal.Zero

// Round2 rounds an amount to two decimal places, half up.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Equal reports whether a and b are equal within Tolerance.
func Equal(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Tolerance)
}

// Settled reports whether a balance is paid in full: at or below zero
// within Tolerance.
func Settled(balance decimal.Decimal) bool {
	return balance.LessThanOrEqual(Tolerance)
}

// Exceeds reports whether amount overshoots bound: at or past bound plus
// Tolerance. A payment of exactly bound+0.01 is already an overpayment.
func Exceeds(amount, bound decimal.Decimal) bool {
	return amount.GreaterThanOrEqual(bound.Add(Tolerance))
}

// Parse converts a decimal string into an amount.
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("money: parse %q: %w", s, err)
	}
	return d, nil
}

// MustParse is Parse for constants in tests and seeds.
func MustParse(s string) decimal.Decimal {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// ValidateCurrency checks that code is a well-formed ISO 4217 currency code.
func ValidateCurrency(code string) error {
	if _, err := currency.ParseISO(code); err != nil {
		return fmt.Errorf("money: invalid currency %q: %w", code, err)
	}
	return nil
}
