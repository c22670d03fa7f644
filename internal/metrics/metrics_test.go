package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizledger/internal/sheets"
	"bizledger/internal/sheets/memory"
)

func TestInstrumentedStoreCountsCalls(t *testing.T) {
	ctx := context.Background()
	p := NewPrometheus()
	s := Instrument(memory.New(), p)

	_, err := s.EnsureTable(ctx, "T", []string{"h"})
	require.NoError(t, err)
	require.NoError(t, s.AppendRow(ctx, "T", []string{"v"}))
	_, err = s.ReadAll(ctx, "T")
	require.NoError(t, err)
	_, err = s.ReadAll(ctx, "missing")
	assert.ErrorIs(t, err, sheets.ErrNoSuchTable)

	assert.Equal(t, 1.0, testutil.ToFloat64(p.storeCalls.WithLabelValues("read_all", "T", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.storeCalls.WithLabelValues("read_all", "missing", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.storeCalls.WithLabelValues("append_row", "T", "ok")))
}

func TestReplaceTablePassThrough(t *testing.T) {
	ctx := context.Background()
	s := Instrument(memory.New(), nil)
	require.NoError(t, s.ReplaceTable(ctx, "T", [][]string{{"h"}}))
	rows, err := s.ReadAll(ctx, "T")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestLedgerOpsAndHandler(t *testing.T) {
	p := NewPrometheus()
	p.ObserveLedgerOp("submit_transaction", nil)
	p.ObserveLedgerOp("submit_transaction", errors.New("boom"))
	p.SetCoercionIssues("Transactions", 3)

	assert.Equal(t, 1.0, testutil.ToFloat64(p.ledgerOps.WithLabelValues("submit_transaction", "error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(p.coercionIssues.WithLabelValues("Transactions")))

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "bizledger_ledger_operations_total"))
}
