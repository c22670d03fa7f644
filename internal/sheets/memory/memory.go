package memory

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"bizledger/internal/core"
	"bizledger/internal/sheets"
)

// Store keeps tables in process memory. It behaves like a spreadsheet: rows
// are ragged, updates past the end of a row widen it, deletes shift rows up.
type Store struct {
	mu     sync.Mutex
	tables map[string][][]string
}

var (
	_ sheets.TableStore    = (*Store)(nil)
	_ sheets.TableReplacer = (*Store)(nil)
)

func New() *Store {
	return &Store{tables: make(map[string][][]string)}
}

// NewFromFiles seeds tables from <base>/transactions.csv and <base>/projects.csv.
// A missing file leaves the table absent so the ledger bootstrap creates it;
// a file that exists but cannot be read or parsed is an error.
func NewFromFiles(base string) (*Store, error) {
	s := New()
	seeds := map[string]string{
		core.TransactionsTable: "transactions.csv",
		core.ProjectsTable:     "projects.csv",
	}
	for table, file := range seeds {
		rows, err := readCSV(filepath.Join(base, file))
		if err != nil {
			return nil, fmt.Errorf("seed %s: %w", table, err)
		}
		if len(rows) > 0 {
			s.tables[table] = rows
		}
	}
	return s, nil
}

// ReadAll returns a deep copy of the table.
func (s *Store) ReadAll(_ context.Context, table string) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.tables[table]
	if !ok {
		return nil, fmt.Errorf("read %s: %w", table, sheets.ErrNoSuchTable)
	}
	return cloneRows(rows), nil
}

func (s *Store) AppendRow(_ context.Context, table string, row []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.tables[table]
	if !ok {
		return fmt.Errorf("append %s: %w", table, sheets.ErrNoSuchTable)
	}
	s.tables[table] = append(rows, append([]string(nil), row...))
	return nil
}

func (s *Store) UpdateCell(ctx context.Context, table string, row, col int, value string) error {
	return s.UpdateRange(ctx, table, row, col, []string{value})
}

func (s *Store) UpdateRange(_ context.Context, table string, row, fromCol int, values []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.tables[table]
	if !ok {
		return fmt.Errorf("update %s: %w", table, sheets.ErrNoSuchTable)
	}
	if row < 1 || row > len(rows) {
		return fmt.Errorf("update %s row %d: %w", table, row, sheets.ErrRowOutOfRange)
	}
	if fromCol < 1 {
		return fmt.Errorf("update %s col %d: %w", table, fromCol, sheets.ErrColumnOutOfRange)
	}
	cells := rows[row-1]
	if need := fromCol - 1 + len(values); need > len(cells) {
		cells = append(cells, make([]string, need-len(cells))...)
	}
	copy(cells[fromCol-1:], values)
	rows[row-1] = cells
	return nil
}

func (s *Store) DeleteRow(_ context.Context, table string, row int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.tables[table]
	if !ok {
		return fmt.Errorf("delete %s: %w", table, sheets.ErrNoSuchTable)
	}
	if row < 1 || row > len(rows) {
		return fmt.Errorf("delete %s row %d: %w", table, row, sheets.ErrRowOutOfRange)
	}
	s.tables[table] = append(rows[:row-1], rows[row:]...)
	return nil
}

func (s *Store) EnsureTable(_ context.Context, table string, header []string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tables[table]; ok {
		return false, nil
	}
	s.tables[table] = [][]string{append([]string(nil), header...)}
	return true, nil
}

// ReplaceTable implements sheets.TableReplacer.
func (s *Store) ReplaceTable(_ context.Context, table string, rows [][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[table] = cloneRows(rows)
	return nil
}

func cloneRows(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return rows, nil
}
