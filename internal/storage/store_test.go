package storage

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizledger/internal/log"
	"bizledger/internal/sheets"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "ledger.db"), log.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestEnsureTableWritesHeaderOnce(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	created, err := s.EnsureTable(ctx, "Projects", []string{"name", "total_budget"})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.EnsureTable(ctx, "Projects", []string{"other"})
	require.NoError(t, err)
	assert.False(t, created)

	rows, err := s.ReadAll(ctx, "Projects")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"name", "total_budget"}}, rows)
}

func TestAppendUpdateDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_, err := s.EnsureTable(ctx, "T", []string{"h1", "h2"})
	require.NoError(t, err)

	for _, v := range []string{"a", "b", "c"} {
		require.NoError(t, s.AppendRow(ctx, "T", []string{v}))
	}
	require.NoError(t, s.UpdateRange(ctx, "T", 3, 2, []string{"x", "y"}))
	require.NoError(t, s.DeleteRow(ctx, "T", 2))

	rows, err := s.ReadAll(ctx, "T")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"h1", "h2"}, {"b", "x", "y"}, {"c"}}, rows)

	// Positions are dense after the shift, so row 3 now holds "c".
	require.NoError(t, s.UpdateCell(ctx, "T", 3, 1, "C"))
	rows, _ = s.ReadAll(ctx, "T")
	assert.Equal(t, []string{"C"}, rows[2])
}

func TestErrors(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.ReadAll(ctx, "missing")
	assert.ErrorIs(t, err, sheets.ErrNoSuchTable)
	assert.ErrorIs(t, s.AppendRow(ctx, "missing", []string{"a"}), sheets.ErrNoSuchTable)

	_, _ = s.EnsureTable(ctx, "T", []string{"h"})
	assert.ErrorIs(t, s.DeleteRow(ctx, "T", 5), sheets.ErrRowOutOfRange)
	assert.ErrorIs(t, s.UpdateCell(ctx, "T", 5, 1, "v"), sheets.ErrRowOutOfRange)
	assert.ErrorIs(t, s.UpdateCell(ctx, "T", 1, 0, "v"), sheets.ErrColumnOutOfRange)
}

func TestReplaceTable(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_, _ = s.EnsureTable(ctx, "T", []string{"old"})
	require.NoError(t, s.AppendRow(ctx, "T", []string{"stale"}))

	require.NoError(t, s.ReplaceTable(ctx, "T", [][]string{{"h"}, {"1", "2"}}))
	rows, err := s.ReadAll(ctx, "T")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"h"}, {"1", "2"}}, rows)

	require.NoError(t, s.ReplaceTable(ctx, "New", [][]string{{"h"}}))
	rows, err = s.ReadAll(ctx, "New")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestMigrationsAreRepeatable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	var buf bytes.Buffer
	logger := log.New(log.Config{Output: &buf, Component: log.ComponentStorage})

	first, err := RunMigrations(path, logger)
	require.NoError(t, err)
	assert.EqualValues(t, 1, first)
	assert.Contains(t, buf.String(), "Cell schema migrated")

	buf.Reset()
	second, err := RunMigrations(path, logger)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.NotContains(t, buf.String(), "Cell schema migrated", "nothing to apply the second time")
}

func TestStoreLogsUnderStorageComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Output: &buf})

	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "ledger.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	assert.Contains(t, buf.String(), "SQLite store ready")
	assert.Contains(t, buf.String(), "component=storage")
}
