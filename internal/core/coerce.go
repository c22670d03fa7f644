package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// CoercionPolicy decides what a cell that fails to parse contributes.
type CoercionPolicy string

const (
	// PolicyZero substitutes 0 for numbers and null for dates and keeps the row.
	PolicyZero CoercionPolicy = "zero"
	// PolicySkip drops any row with at least one unparseable typed cell.
	PolicySkip CoercionPolicy = "skip"
)

func (p CoercionPolicy) Valid() bool {
	return p == PolicyZero || p == PolicySkip
}

// ParseCoercionPolicy returns PolicyZero for an empty string.
func ParseCoercionPolicy(s string) (CoercionPolicy, error) {
	switch p := CoercionPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyZero, nil
	case PolicyZero, PolicySkip:
		return p, nil
	default:
		return "", fmt.Errorf("unknown coercion policy %q", s)
	}
}

// Issue records a cell that failed to parse. Issues are never shown to users.
type Issue struct {
	Table  string
	Row    int
	Column string
	Value  string
	Err    error
}

func (i Issue) String() string {
	return fmt.Sprintf("%s row %d column %s: %q: %v", i.Table, i.Row, i.Column, i.Value, i.Err)
}

var dateLayouts = []string{
	DateLayout,
	"2006/01/02",
	"2006-1-2",
	"2006/1/2",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999",
	time.RFC3339,
}

// ParseDate parses a calendar date. Time-of-day, if present, is dropped.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrInvalidDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	return Date{}, ErrInvalidDate
}

// ParseTimestamp parses created_at. Unparseable values return the zero time.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{TimestampLayout, "2006-01-02 15:04:05.999999", "2006-01-02 15:04:05", time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

// ParseProgress parses a percentage, accepting "40", "40.0" and "40%".
// Values outside 0..100 are clamped.
func ParseProgress(s string) (int, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) {
		return 0, ErrInvalidProgress
	}
	return ClampProgress(int(f)), nil
}

func ClampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
