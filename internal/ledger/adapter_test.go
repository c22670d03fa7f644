package ledger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizledger/internal/core"
	"bizledger/internal/log"
	"bizledger/internal/report"
	"bizledger/internal/sheets/memory"
)

var fixedNow = time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newTestAdapter(t *testing.T, store *memory.Store, opts ...Option) *Adapter {
	t.Helper()
	base := []Option{WithClock(func() time.Time { return fixedNow }), WithIDs(seqIDs()), WithLogger(log.Discard())}
	a := New(store, append(base, opts...)...)
	_, err := a.Bootstrap(context.Background())
	require.NoError(t, err)
	return a
}

func expense(date core.Date, amount int64, project string) core.Transaction {
	return core.Transaction{Date: date, Type: core.Expense, Category: "Rent", Amount: decimal.NewFromInt(amount), ProjectName: project}
}

func TestBootstrapCreatesTables(t *testing.T) {
	store := memory.New()
	newTestAdapter(t, store)

	rows, err := store.ReadAll(context.Background(), core.TransactionsTable)
	require.NoError(t, err)
	assert.Equal(t, [][]string{core.TransactionHeader}, rows)

	rows, err = store.ReadAll(context.Background(), core.ProjectsTable)
	require.NoError(t, err)
	assert.Equal(t, [][]string{core.ProjectHeader}, rows)
}

func TestAppendStampsIDAndCreatedAt(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t, memory.New())

	tx, err := a.AppendTransaction(ctx, expense(core.NewDate(2024, 1, 15), 100, core.OverheadBucket))
	require.NoError(t, err)
	assert.Equal(t, "id-1", tx.ID)
	assert.Equal(t, fixedNow, tx.CreatedAt)

	snap, err := a.Load(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Transactions, 1)
	rec := snap.Transactions[0]
	assert.Equal(t, 2, rec.Row)
	assert.Equal(t, "Row 2: 2024-01-15 expense Rent $100", rec.Label)
	assert.Equal(t, "id-1", rec.ID)
	assert.True(t, rec.Amount.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, fixedNow, rec.CreatedAt)

	row, ok := snap.TransactionRow("id-1")
	assert.True(t, ok)
	assert.Equal(t, 2, row)
}

func TestAppendRejectsInvalid(t *testing.T) {
	a := newTestAdapter(t, memory.New())
	_, err := a.AppendTransaction(context.Background(), core.Transaction{Type: "gift"})
	assert.ErrorIs(t, err, core.ErrInvalidType)

	_, err = a.AppendProject(context.Background(), core.Project{Status: core.Active})
	assert.ErrorIs(t, err, core.ErrEmptyName)
}

func TestProjectEndDateDefaults(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t, memory.New())

	_, err := a.AppendProject(ctx, core.Project{Name: "Alpha", TotalBudget: decimal.NewFromInt(1000),
		StartDate: core.NewDate(2024, 1, 1), Status: core.Active})
	require.NoError(t, err)

	snap, err := a.Load(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Projects, 1)
	assert.Equal(t, "2024-01-31", snap.Projects[0].EndDate.String())
	assert.Equal(t, "Row 2: Alpha", snap.Projects[0].Label)
	assert.True(t, snap.HasProject("Alpha"))
	assert.False(t, snap.HasProject("alpha"))
}

func TestCoercionPolicyZero(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.ReplaceTable(ctx, core.TransactionsTable, [][]string{
		core.TransactionHeader,
		{"not-a-date", "expense", "Rent", "abc", "", "", "", "t1"},
		{"2024-01-15", "收入", "Salary", "$1,200", "", "", "", "t2"},
	}))
	a := newTestAdapter(t, store)

	snap, err := a.Load(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Transactions, 2)
	assert.True(t, snap.Transactions[0].Date.IsEmpty())
	assert.True(t, snap.Transactions[0].Amount.IsZero())
	assert.Equal(t, core.Income, snap.Transactions[1].Type)
	assert.True(t, snap.Transactions[1].Amount.Equal(decimal.NewFromInt(1200)))
	assert.Len(t, snap.Issues, 2)
}

func TestCoercionPolicySkip(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.ReplaceTable(ctx, core.TransactionsTable, [][]string{
		core.TransactionHeader,
		{"2024-01-15", "expense", "Rent", "abc", "", "", "", "t1"},
		{"2024-01-16", "expense", "Rent", "10", "", "", "", "t2"},
	}))
	a := newTestAdapter(t, store, WithPolicy(core.PolicySkip))

	snap, err := a.Load(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Transactions, 1)
	assert.Equal(t, "t2", snap.Transactions[0].ID)
	// The skipped row still occupies its physical row.
	assert.Equal(t, 3, snap.Transactions[0].Row)
	assert.Len(t, snap.Issues, 1)
}

func TestRowAddressingAndDeleteShift(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t, memory.New())
	for i := 1; i <= 3; i++ {
		_, err := a.AppendTransaction(ctx, expense(core.NewDate(2024, 1, i), int64(i), ""))
		require.NoError(t, err)
	}

	snap, err := a.Load(ctx)
	require.NoError(t, err)
	// Second data row lives at physical row 4.
	assert.Equal(t, 4, snap.Transactions[2].Row)
	assert.Equal(t, core.PhysicalRow(2), snap.Transactions[2].Row)
	formerRow3 := snap.Transactions[1].ID

	require.NoError(t, a.DeleteTransactionAt(ctx, 2))

	snap, err = a.Load(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Transactions, 2)
	assert.Equal(t, formerRow3, snap.Transactions[0].ID)
	assert.Equal(t, 2, snap.Transactions[0].Row)
}

func TestRowOutOfRange(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t, memory.New())
	_, err := a.AppendTransaction(ctx, expense(core.NewDate(2024, 1, 1), 1, ""))
	require.NoError(t, err)

	assert.ErrorIs(t, a.DeleteTransactionAt(ctx, 1), ErrRowOutOfRange)
	assert.ErrorIs(t, a.DeleteTransactionAt(ctx, 3), ErrRowOutOfRange)
	assert.ErrorIs(t, a.UpdateProjectAt(ctx, 2, ProjectUpdate{Status: core.Closed}), ErrRowOutOfRange)
}

func TestUpdateTransactionAtKeepsTypeProjectAndID(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	a := newTestAdapter(t, store)
	_, err := a.AppendTransaction(ctx, expense(core.NewDate(2024, 1, 1), 50, "Alpha"))
	require.NoError(t, err)

	edit := TransactionEdit{Date: core.NewDate(2024, 1, 2), Category: "Project payment",
		Amount: decimal.NewFromInt(75), Note: "fixed"}
	require.NoError(t, a.UpdateTransactionAt(ctx, 2, edit))

	snap, err := a.Load(ctx)
	require.NoError(t, err)
	got := snap.Transactions[0]
	assert.Equal(t, core.Expense, got.Type)
	assert.Equal(t, "2024-01-02", got.Date.String())
	assert.Equal(t, "Project payment", got.Category)
	assert.Equal(t, "fixed", got.Note)
	assert.Equal(t, "Alpha", got.ProjectName)
	assert.Equal(t, "id-1", got.ID)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(75)))

	rows, err := store.ReadAll(ctx, core.TransactionsTable)
	require.NoError(t, err)
	assert.Equal(t, "expense", rows[1][core.TxColType-1])
}

func TestUpdateTransactionByIDKeepsType(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t, memory.New())
	_, err := a.AppendTransaction(ctx, core.Transaction{Date: core.NewDate(2024, 1, 1), Type: core.Income,
		Category: "Project payment", Amount: decimal.NewFromInt(500), ProjectName: "Alpha"})
	require.NoError(t, err)

	row, err := a.UpdateTransaction(ctx, "id-1", TransactionEdit{Category: "Project payment", Amount: decimal.NewFromInt(600)})
	require.NoError(t, err)
	assert.Equal(t, 2, row)

	snap, err := a.Load(ctx)
	require.NoError(t, err)
	got := snap.Transactions[0]
	assert.Equal(t, core.Income, got.Type)
	assert.Equal(t, "2024-01-01", got.Date.String(), "empty date keeps the stored one")
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(600)))
}

func TestUpdateTransactionRejectsNegativeAmount(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t, memory.New())
	_, err := a.AppendTransaction(ctx, expense(core.NewDate(2024, 1, 1), 50, ""))
	require.NoError(t, err)

	err = a.UpdateTransactionAt(ctx, 2, TransactionEdit{Amount: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, core.ErrNegativeAmount)
}

func TestProjectNamesMatchExactly(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.ReplaceTable(ctx, core.ProjectsTable, [][]string{
		core.ProjectHeader,
		{"Alpha", "1000", "2024-01-01", "active", "0", "", "", "p1"},
	}))
	require.NoError(t, store.ReplaceTable(ctx, core.TransactionsTable, [][]string{
		core.TransactionHeader,
		{"2024-01-05", "income", "Project payment", "500", "", "Alpha ", "", "t1"},
		{"2024-01-06", "expense", "Materials", "200", " kept ", "Alpha ", "", "t2"},
	}))
	a := newTestAdapter(t, store)

	snap, err := a.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Alpha ", snap.Transactions[0].ProjectName)
	assert.Equal(t, " kept ", snap.Transactions[1].Note)

	profits := report.ProjectProfitability(snap.ProjectList(), snap.TransactionList())
	require.Len(t, profits, 1)
	assert.Equal(t, "Alpha", profits[0].Name)
	assert.True(t, profits[0].Profit.IsZero(), "got %s", profits[0].Profit)
	assert.True(t, profits[0].Revenue.IsZero())
}

func TestUpdateProjectAtWritesTargetedFields(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t, memory.New())
	_, err := a.AppendProject(ctx, core.Project{Name: "Alpha", TotalBudget: decimal.NewFromInt(1000),
		StartDate: core.NewDate(2024, 1, 1), Status: core.Active})
	require.NoError(t, err)

	require.NoError(t, a.UpdateProjectAt(ctx, 2, ProjectUpdate{Status: core.Paused, Progress: 100}))

	snap, err := a.Load(ctx)
	require.NoError(t, err)
	p := snap.Projects[0]
	assert.Equal(t, core.Paused, p.Status)
	assert.Equal(t, 100, p.Progress)
	assert.Equal(t, "2024-01-31", p.EndDate.String())

	require.NoError(t, a.UpdateProjectAt(ctx, 2, ProjectUpdate{Status: core.Closed, Progress: 100, EndDate: core.NewDate(2024, 6, 30)}))
	snap, _ = a.Load(ctx)
	assert.Equal(t, "2024-06-30", snap.Projects[0].EndDate.String())

	assert.ErrorIs(t, a.UpdateProjectAt(ctx, 2, ProjectUpdate{Status: "done"}), core.ErrInvalidStatus)
	assert.ErrorIs(t, a.UpdateProjectAt(ctx, 2, ProjectUpdate{Status: core.Active, Progress: 101}), core.ErrInvalidProgress)
}

func TestIDAddressedOpsFollowShifts(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t, memory.New())
	for i := 1; i <= 3; i++ {
		_, err := a.AppendTransaction(ctx, expense(core.NewDate(2024, 1, i), int64(i), ""))
		require.NoError(t, err)
	}

	// A stale view would address id-3 at row 4; after this delete it is at row 3.
	require.NoError(t, a.DeleteTransactionAt(ctx, 2))

	row, err := a.UpdateTransaction(ctx, "id-3", TransactionEdit{Date: core.NewDate(2024, 2, 1), Category: "Rent", Amount: decimal.NewFromInt(99)})
	require.NoError(t, err)
	assert.Equal(t, 3, row)

	snap, _ := a.Load(ctx)
	assert.True(t, snap.Transactions[1].Amount.Equal(decimal.NewFromInt(99)))
	assert.True(t, snap.Transactions[0].Amount.Equal(decimal.NewFromInt(2)))

	row, err = a.DeleteTransaction(ctx, "id-2")
	require.NoError(t, err)
	assert.Equal(t, 2, row)

	_, err = a.DeleteTransaction(ctx, "id-2")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = a.UpdateProject(ctx, "nope", ProjectUpdate{Status: core.Active})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = a.DeleteProject(ctx, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBlankRowsKeepPositions(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.ReplaceTable(ctx, core.ProjectsTable, [][]string{
		core.ProjectHeader,
		{},
		{"Beta", "10", "2024-01-01", "active", "5", "", "2024-02-01", "p1"},
	}))
	a := newTestAdapter(t, store)

	snap, err := a.Load(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Projects, 1)
	assert.Equal(t, 3, snap.Projects[0].Row)
}

func TestCustomTableNames(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	a := newTestAdapter(t, store, WithTables(Tables{Transactions: "Tx", Projects: "Proj"}))
	_, err := a.AppendTransaction(ctx, expense(core.NewDate(2024, 1, 1), 1, ""))
	require.NoError(t, err)

	rows, err := store.ReadAll(ctx, "Tx")
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
