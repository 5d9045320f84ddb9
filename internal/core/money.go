// Package core provides money parsing and handling utilities.
//
// Amounts are stored as float64 with full precision; rounding to two
// decimal places happens only when an amount is rendered.
package core

import (
	"errors"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCurrencySymbol is prefixed to rendered amounts.
const DefaultCurrencySymbol = "₹"

var ErrInvalidAmount = errors.New("invalid amount")

// ParseAmount converts a decimal string to a non-negative float64.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators.
// Negative values, malformed numbers and values that overflow a float64
// are rejected.
//
// Examples:
//
//	ParseAmount("12.5")  -> 12.5, nil
//	ParseAmount("12,5")  -> 12.5, nil
//	ParseAmount("-1")    -> 0, ErrInvalidAmount
//	ParseAmount("1e400") -> 0, ErrInvalidAmount
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if d.IsNegative() {
		return 0, ErrInvalidAmount
	}
	v := d.InexactFloat64()
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, ErrInvalidAmount
	}
	return v, nil
}

// FormatAmount renders amount rounded to two decimals behind symbol, e.g. "₹12.50".
func FormatAmount(symbol string, amount float64) string {
	return symbol + decimal.NewFromFloat(amount).StringFixed(2)
}
