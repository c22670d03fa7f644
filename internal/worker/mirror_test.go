package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizledger/internal/amqp"
	"bizledger/internal/core"
	"bizledger/internal/log"
	"bizledger/internal/sheets/memory"
)

var tables = []string{core.TransactionsTable, core.ProjectsTable}

func seededSource(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	src := memory.New()
	require.NoError(t, src.ReplaceTable(ctx, core.TransactionsTable, [][]string{core.TransactionHeader, {"2024-01-01", "income"}}))
	require.NoError(t, src.ReplaceTable(ctx, core.ProjectsTable, [][]string{core.ProjectHeader}))
	return src
}

func TestSyncCopiesAllTables(t *testing.T) {
	ctx := context.Background()
	src, dst := seededSource(t), memory.New()
	m := NewMirror(src, dst, tables, nil, log.Discard())

	require.NoError(t, m.Sync(ctx))

	rows, err := dst.ReadAll(ctx, core.TransactionsTable)
	require.NoError(t, err)
	assert.Equal(t, [][]string{core.TransactionHeader, {"2024-01-01", "income"}}, rows)
	rows, err = dst.ReadAll(ctx, core.ProjectsTable)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestSyncWritesNothingWhenAReadFails(t *testing.T) {
	ctx := context.Background()
	src, dst := memory.New(), memory.New()
	require.NoError(t, src.ReplaceTable(ctx, core.TransactionsTable, [][]string{core.TransactionHeader}))
	m := NewMirror(src, dst, tables, nil, log.Discard())

	require.Error(t, m.Sync(ctx))
	_, err := dst.ReadAll(ctx, core.TransactionsTable)
	assert.Error(t, err)
}

func TestHandleLedgerChangeMirrorsOneTable(t *testing.T) {
	ctx := context.Background()
	src, dst := seededSource(t), memory.New()
	m := NewMirror(src, dst, tables, nil, log.Discard())

	msg := amqp.NewLedgerChangeMessage(core.ProjectsTable, amqp.OpCreate, 0, "p1", time.Now())
	require.NoError(t, m.HandleLedgerChange(ctx, msg))

	_, err := dst.ReadAll(ctx, core.ProjectsTable)
	require.NoError(t, err)
	_, err = dst.ReadAll(ctx, core.TransactionsTable)
	assert.Error(t, err, "only the changed table is copied")
}

type fakeConsumer struct {
	msgs []*amqp.LedgerChangeMessage
	errs []error
}

func (f *fakeConsumer) ConsumeLedgerChanges(ctx context.Context, h amqp.Handler) error {
	for _, m := range f.msgs {
		f.errs = append(f.errs, h(ctx, m))
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestRunConsumesUntilCancelled(t *testing.T) {
	src, dst := seededSource(t), memory.New()
	m := NewMirror(src, dst, tables, nil, log.Discard())
	consumer := &fakeConsumer{msgs: []*amqp.LedgerChangeMessage{
		amqp.NewLedgerChangeMessage("Unknown", amqp.OpUpdate, 2, "", time.Now()),
	}}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, m.Run(ctx, consumer, 10*time.Millisecond))

	require.Len(t, consumer.errs, 1)
	assert.NoError(t, consumer.errs[0])
	rows, err := dst.ReadAll(context.Background(), core.TransactionsTable)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

type failingConsumer struct{}

func (failingConsumer) ConsumeLedgerChanges(context.Context, amqp.Handler) error {
	return errors.New("broker gone")
}

func TestRunReturnsConsumerError(t *testing.T) {
	m := NewMirror(seededSource(t), memory.New(), tables, nil, log.Discard())
	err := m.Run(context.Background(), failingConsumer{}, 0)
	assert.EqualError(t, err, "broker gone")
}
