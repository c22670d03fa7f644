// Package core provides the ledger domain types and the parsers that turn raw
// table cells into them.
//
// This file contains amount parsing and formatting.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a raw cell into a non-negative decimal.
//
// It tolerates surrounding whitespace, a leading currency sign and comma
// thousands separators ("$1,250.50"). Empty, non-numeric and negative input
// is rejected; callers decide what a rejection turns into.
//
// Examples:
//
//	ParseAmount("500")       -> 500, nil
//	ParseAmount("$1,250.50") -> 1250.5, nil
//	ParseAmount("abc")       -> 0, ErrInvalidAmount
//	ParseAmount("-3")        -> 0, ErrNegativeAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimPrefix(s, "NT$")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if d.IsNegative() {
		return decimal.Zero, ErrNegativeAmount
	}
	return d, nil
}

// FormatAmount renders an amount for storage: plain decimal, no grouping.
func FormatAmount(d decimal.Decimal) string {
	return d.String()
}

// FormatMoney renders an amount for display, e.g. "$1,250" or "-$40.50".
func FormatMoney(d decimal.Decimal) string {
	neg := d.IsNegative()
	s := d.Abs().StringFixed(2)
	s = strings.TrimSuffix(s, ".00")
	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := "$" + b.String()
	if frac != "" {
		out += "." + frac
	}
	if neg {
		return "-" + out
	}
	return out
}
