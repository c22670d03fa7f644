package sheets

import (
	"context"
	"errors"
)

var (
	ErrNoSuchTable      = errors.New("no such table")
	ErrRowOutOfRange    = errors.New("row out of range")
	ErrColumnOutOfRange = errors.New("column out of range")
)

// Ports for outbound adapters. Rows and columns are 1-based and row 1 holds
// the header, matching spreadsheet addressing.
type (
	// TableReader returns a whole table, header first, as raw cells.
	// Rows may be ragged; the reader does not pad, filter or sort.
	TableReader interface {
		ReadAll(ctx context.Context, table string) ([][]string, error)
	}

	TableWriter interface {
		AppendRow(ctx context.Context, table string, row []string) error
		UpdateCell(ctx context.Context, table string, row, col int, value string) error
		// UpdateRange overwrites len(values) contiguous cells starting at fromCol.
		UpdateRange(ctx context.Context, table string, row, fromCol int, values []string) error
		// DeleteRow removes a row; every later row moves up by one.
		DeleteRow(ctx context.Context, table string, row int) error
	}

	TableProvisioner interface {
		// EnsureTable creates the table with the given header when absent.
		// It reports whether it created anything. Existing tables are untouched.
		EnsureTable(ctx context.Context, table string, header []string) (bool, error)
	}

	// TableStore is everything the ledger needs from a store.
	TableStore interface {
		TableReader
		TableWriter
		TableProvisioner
	}

	// TableReplacer swaps a table's full contents in one step. Used by the mirror.
	TableReplacer interface {
		ReplaceTable(ctx context.Context, table string, rows [][]string) error
	}
)
