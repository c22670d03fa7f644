package metrics

import (
	"context"
	"errors"
	"time"

	"bizledger/internal/sheets"
)

// ErrReplaceUnsupported is returned by ReplaceTable when the wrapped store
// cannot replace tables.
var ErrReplaceUnsupported = errors.New("store does not support table replacement")

// InstrumentedStore times every call to the wrapped store.
type InstrumentedStore struct {
	next sheets.TableStore
	rec  Recorder
}

var (
	_ sheets.TableStore    = (*InstrumentedStore)(nil)
	_ sheets.TableReplacer = (*InstrumentedStore)(nil)
)

func Instrument(next sheets.TableStore, rec Recorder) *InstrumentedStore {
	if rec == nil {
		rec = Noop{}
	}
	return &InstrumentedStore{next: next, rec: rec}
}

// Unwrap returns the underlying store.
func (s *InstrumentedStore) Unwrap() sheets.TableStore { return s.next }

func (s *InstrumentedStore) observe(op, table string, start time.Time, err error) {
	s.rec.ObserveStore(op, table, time.Since(start), err)
}

func (s *InstrumentedStore) ReadAll(ctx context.Context, table string) ([][]string, error) {
	start := time.Now()
	rows, err := s.next.ReadAll(ctx, table)
	s.observe("read_all", table, start, err)
	return rows, err
}

func (s *InstrumentedStore) AppendRow(ctx context.Context, table string, row []string) error {
	start := time.Now()
	err := s.next.AppendRow(ctx, table, row)
	s.observe("append_row", table, start, err)
	return err
}

func (s *InstrumentedStore) UpdateCell(ctx context.Context, table string, row, col int, value string) error {
	start := time.Now()
	err := s.next.UpdateCell(ctx, table, row, col, value)
	s.observe("update_cell", table, start, err)
	return err
}

func (s *InstrumentedStore) UpdateRange(ctx context.Context, table string, row, fromCol int, values []string) error {
	start := time.Now()
	err := s.next.UpdateRange(ctx, table, row, fromCol, values)
	s.observe("update_range", table, start, err)
	return err
}

func (s *InstrumentedStore) DeleteRow(ctx context.Context, table string, row int) error {
	start := time.Now()
	err := s.next.DeleteRow(ctx, table, row)
	s.observe("delete_row", table, start, err)
	return err
}

func (s *InstrumentedStore) EnsureTable(ctx context.Context, table string, header []string) (bool, error) {
	start := time.Now()
	created, err := s.next.EnsureTable(ctx, table, header)
	s.observe("ensure_table", table, start, err)
	return created, err
}

func (s *InstrumentedStore) ReplaceTable(ctx context.Context, table string, rows [][]string) error {
	r, ok := s.next.(sheets.TableReplacer)
	if !ok {
		return ErrReplaceUnsupported
	}
	start := time.Now()
	err := r.ReplaceTable(ctx, table, rows)
	s.observe("replace_table", table, start, err)
	return err
}
