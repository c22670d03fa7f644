package google

import (
	"fmt"
	"strings"
)

// quoteSheet quotes a tab title for A1 notation: 'My Tab' with embedded quotes doubled.
func quoteSheet(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

// columnLetter converts a 1-based column index into its letters: 1 -> A, 27 -> AA.
func columnLetter(col int) string {
	var b []byte
	for col > 0 {
		col--
		b = append([]byte{byte('A' + col%26)}, b...)
		col /= 26
	}
	return string(b)
}

// a1Range builds a single-row range such as 'Transactions'!A4:E4.
func a1Range(table string, row, fromCol, toCol int) string {
	return fmt.Sprintf("%s!%s%d:%s%d", quoteSheet(table), columnLetter(fromCol), row, columnLetter(toCol), row)
}

// toStrings keeps cell text as stored; names are matched exactly downstream.
func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = fmt.Sprint(v)
	}
	return out
}

func toCells(in []string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
