// Package amount converts between the decimal amounts people type and the
// integer minor units the ledger stores.
package amount

import (
	"fmt"
	"math"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

var (
	maxMinor = decimal.NewFromInt(math.MaxInt64)
	minMinor = decimal.NewFromInt(math.MinInt64)
)

// Fraction returns the number of minor-unit digits of an ISO 4217 currency.
func Fraction(currency string) (int, error) {
	cur := money.GetCurrency(strings.ToUpper(currency))
	if cur == nil {
		return 0, fmt.Errorf("unknown currency %q", currency)
	}
	return cur.Fraction, nil
}

// ParseMinor parses a decimal amount such as "-12.34" into minor units.
// More decimal places than the currency allows is an error, never rounded.
func ParseMinor(s, currency string) (int64, error) {
	fraction, err := Fraction(currency)
	if err != nil {
		return 0, err
	}

	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}

	minor := d.Shift(int32(fraction))
	if !minor.IsInteger() {
		return 0, fmt.Errorf("amount %q has more than %d decimal places for %s", s, fraction, currency)
	}
	if minor.GreaterThan(maxMinor) || minor.LessThan(minMinor) {
		return 0, fmt.Errorf("amount %q is out of range", s)
	}
	return minor.IntPart(), nil
}

// Format renders minor units with the currency's symbol and separators,
// e.g. "$1,234.56". Unknown currencies fall back to a plain decimal.
func Format(minor int64, currency string) string {
	code := strings.ToUpper(currency)
	if money.GetCurrency(code) == nil {
		return Plain(minor, 2) + " " + currency
	}
	return money.New(minor, code).Display()
}

// Plain renders minor units as a bare decimal with fraction digits.
func Plain(minor int64, fraction int) string {
	return decimal.New(minor, -int32(fraction)).StringFixed(int32(fraction))
}
