// Package storage keeps ledger tables in SQLite with spreadsheet semantics.
// Each row is stored as a JSON array of cells at a 1-based position, so the
// ledger adapter cannot tell it apart from a sheet.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"bizledger/internal/log"
	"bizledger/internal/sheets"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	db *sql.DB
}

var (
	_ sheets.TableStore    = (*SQLiteStore)(nil)
	_ sheets.TableReplacer = (*SQLiteStore)(nil)
)

// NewSQLiteStore opens dbPath and migrates it. A nil logger falls back to
// the process logger.
func NewSQLiteStore(dbPath string, logger *log.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = log.Default(log.ComponentStorage)
	} else {
		logger = logger.WithComponent(log.ComponentStorage)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// Row shifts must not interleave across connections.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	version, err := RunMigrations(dbPath, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	logger.Info("SQLite store ready", log.FieldPath, dbPath, "schema_version", version)
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) ReadAll(ctx context.Context, table string) ([][]string, error) {
	if err := s.requireTable(ctx, s.db, table); err != nil {
		return nil, fmt.Errorf("read %s: %w", table, err)
	}
	rs, err := s.db.QueryContext(ctx,
		`SELECT cells FROM ledger_rows WHERE table_name = ? ORDER BY position`, table)
	if err != nil {
		return nil, fmt.Errorf("query rows of %s: %w", table, err)
	}
	defer rs.Close()

	var out [][]string
	for rs.Next() {
		var raw string
		if err := rs.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan row of %s: %w", table, err)
		}
		cells, err := decodeCells(raw)
		if err != nil {
			return nil, fmt.Errorf("decode row of %s: %w", table, err)
		}
		out = append(out, cells)
	}
	if err := rs.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows of %s: %w", table, err)
	}
	return out, nil
}

func (s *SQLiteStore) AppendRow(ctx context.Context, table string, row []string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.requireTable(ctx, tx, table); err != nil {
			return fmt.Errorf("append %s: %w", table, err)
		}
		var next int
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(position), 0) + 1 FROM ledger_rows WHERE table_name = ?`, table).Scan(&next); err != nil {
			return fmt.Errorf("next position of %s: %w", table, err)
		}
		return insertRow(ctx, tx, table, next, row)
	})
}

func (s *SQLiteStore) UpdateCell(ctx context.Context, table string, row, col int, value string) error {
	return s.UpdateRange(ctx, table, row, col, []string{value})
}

func (s *SQLiteStore) UpdateRange(ctx context.Context, table string, row, fromCol int, values []string) error {
	if fromCol < 1 {
		return fmt.Errorf("update %s col %d: %w", table, fromCol, sheets.ErrColumnOutOfRange)
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.requireTable(ctx, tx, table); err != nil {
			return fmt.Errorf("update %s: %w", table, err)
		}
		var raw string
		err := tx.QueryRowContext(ctx,
			`SELECT cells FROM ledger_rows WHERE table_name = ? AND position = ?`, table, row).Scan(&raw)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("update %s row %d: %w", table, row, sheets.ErrRowOutOfRange)
		}
		if err != nil {
			return fmt.Errorf("load %s row %d: %w", table, row, err)
		}
		cells, err := decodeCells(raw)
		if err != nil {
			return fmt.Errorf("decode %s row %d: %w", table, row, err)
		}
		if need := fromCol - 1 + len(values); need > len(cells) {
			cells = append(cells, make([]string, need-len(cells))...)
		}
		copy(cells[fromCol-1:], values)

		enc, err := encodeCells(cells)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE ledger_rows SET cells = ? WHERE table_name = ? AND position = ?`, enc, table, row)
		if err != nil {
			return fmt.Errorf("update %s row %d: %w", table, row, err)
		}
		return nil
	})
}

// DeleteRow removes the row and moves every later row up by one.
func (s *SQLiteStore) DeleteRow(ctx context.Context, table string, row int) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.requireTable(ctx, tx, table); err != nil {
			return fmt.Errorf("delete %s: %w", table, err)
		}
		res, err := tx.ExecContext(ctx,
			`DELETE FROM ledger_rows WHERE table_name = ? AND position = ?`, table, row)
		if err != nil {
			return fmt.Errorf("delete %s row %d: %w", table, row, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("delete %s row %d: %w", table, row, sheets.ErrRowOutOfRange)
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE ledger_rows SET position = position - 1 WHERE table_name = ? AND position > ?`, table, row)
		if err != nil {
			return fmt.Errorf("shift %s rows after %d: %w", table, row, err)
		}
		return nil
	})
}

func (s *SQLiteStore) EnsureTable(ctx context.Context, table string, header []string) (bool, error) {
	created := false
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO ledger_tables(name) VALUES (?) ON CONFLICT(name) DO NOTHING`, table)
		if err != nil {
			return fmt.Errorf("create table %s: %w", table, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil
		}
		created = true
		return insertRow(ctx, tx, table, 1, header)
	})
	return created, err
}

// ReplaceTable drops the table's rows and writes rows at positions 1..n.
func (s *SQLiteStore) ReplaceTable(ctx context.Context, table string, rows [][]string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO ledger_tables(name) VALUES (?) ON CONFLICT(name) DO NOTHING`, table); err != nil {
			return fmt.Errorf("create table %s: %w", table, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM ledger_rows WHERE table_name = ?`, table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
		for i, r := range rows {
			if err := insertRow(ctx, tx, table, i+1, r); err != nil {
				return err
			}
		}
		return nil
	})
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLiteStore) requireTable(ctx context.Context, q querier, table string) error {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM ledger_tables WHERE name = ?`, table).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return sheets.ErrNoSuchTable
	}
	return err
}

func (s *SQLiteStore) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func insertRow(ctx context.Context, tx *sql.Tx, table string, position int, row []string) error {
	enc, err := encodeCells(row)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO ledger_rows(table_name, position, cells) VALUES (?, ?, ?)`, table, position, enc)
	if err != nil {
		return fmt.Errorf("insert %s row %d: %w", table, position, err)
	}
	return nil
}

func encodeCells(cells []string) (string, error) {
	if cells == nil {
		cells = []string{}
	}
	b, err := json.Marshal(cells)
	if err != nil {
		return "", fmt.Errorf("encode cells: %w", err)
	}
	return string(b), nil
}

func decodeCells(raw string) ([]string, error) {
	var cells []string
	if err := json.Unmarshal([]byte(raw), &cells); err != nil {
		return nil, err
	}
	return cells, nil
}
