package core

import "fmt"

// HeaderRow is the physical row holding column names.
const HeaderRow = 1

// FirstDataRow is the physical row of the first record.
const FirstDataRow = HeaderRow + 1

// PhysicalRow maps a record's zero-based position among data rows to its
// 1-based row in the store. Positions shift whenever an earlier row is
// deleted, so a row number is only meaningful against the read it came from.
func PhysicalRow(index int) int {
	return index + FirstDataRow
}

// DataIndex is the inverse of PhysicalRow.
func DataIndex(row int) int {
	return row - FirstDataRow
}

// RowLabel is the user-facing handle for a record, e.g. "Row 4: Alpha".
func RowLabel(row int, summary string) string {
	return fmt.Sprintf("Row %d: %s", row, summary)
}
