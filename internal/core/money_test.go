package core

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		err error
	}{
		{"500", "500", nil},
		{"0", "0", nil},
		{" 12.50 ", "12.5", nil},
		{"$1,250.50", "1250.5", nil},
		{"NT$3,000", "3000", nil},
		{"abc", "0", ErrInvalidAmount},
		{"", "0", ErrInvalidAmount},
		{"1.2.3", "0", ErrInvalidAmount},
		{"-3", "0", ErrNegativeAmount},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if !errors.Is(err, tc.err) {
			t.Fatalf("%q: expected err %v, got %v", tc.in, tc.err, err)
		}
		if got.String() != tc.out {
			t.Fatalf("%q: expected %s, got %s", tc.in, tc.out, got)
		}
	}
}

func TestFormatMoney(t *testing.T) {
	cases := map[string]string{
		"0":        "$0",
		"300":      "$300",
		"1250.5":   "$1,250.50",
		"-100":     "-$100",
		"1234567":  "$1,234,567",
		"-40.25":   "-$40.25",
		"999.999":  "$1,000",
		"100000.1": "$100,000.10",
	}
	for in, want := range cases {
		if got := FormatMoney(decimal.RequireFromString(in)); got != want {
			t.Errorf("FormatMoney(%s) = %q, want %q", in, got, want)
		}
	}
}
