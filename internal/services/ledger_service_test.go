package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizledger/internal/amqp"
	"bizledger/internal/core"
	"bizledger/internal/ledger"
	"bizledger/internal/log"
	"bizledger/internal/sheets/memory"
)

var fixedNow = time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)

type recordingPublisher struct {
	msgs []*amqp.LedgerChangeMessage
	err  error
}

func (p *recordingPublisher) PublishLedgerChange(_ context.Context, msg *amqp.LedgerChangeMessage) error {
	p.msgs = append(p.msgs, msg)
	return p.err
}

func newTestService(t *testing.T, pub EventPublisher) (*LedgerService, *memory.Store) {
	t.Helper()
	store := memory.New()
	n := 0
	l := ledger.New(store,
		ledger.WithClock(func() time.Time { return fixedNow }),
		ledger.WithIDs(func() string { n++; return fmt.Sprintf("id-%d", n) }),
		ledger.WithLogger(log.Discard()),
	)
	_, err := l.Bootstrap(context.Background())
	require.NoError(t, err)
	opts := []Option{WithLogger(log.Discard()), WithClock(func() time.Time { return fixedNow })}
	if pub != nil {
		opts = append(opts, WithPublisher(pub))
	}
	return NewLedgerService(l, opts...), store
}

func TestSubmitTransactionDefaultsToOverhead(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc, _ := newTestService(t, pub)

	tx, err := svc.SubmitTransaction(ctx, TransactionInput{Date: "2024-01-15", Type: "expense", Category: "Rent", Amount: "1,200"})
	require.NoError(t, err)
	assert.Equal(t, core.OverheadBucket, tx.ProjectName)
	assert.True(t, decimal.NewFromInt(1200).Equal(tx.Amount))

	require.Len(t, pub.msgs, 1)
	assert.Equal(t, core.TransactionsTable, pub.msgs[0].Table)
	assert.Equal(t, amqp.OpCreate, pub.msgs[0].Op)
	assert.Equal(t, tx.ID, pub.msgs[0].ID)
}

func TestSubmitTransactionValidation(t *testing.T) {
	svc, store := newTestService(t, nil)

	_, err := svc.SubmitTransaction(context.Background(), TransactionInput{Date: "soon", Type: "gift", Amount: "-5"})
	require.ErrorIs(t, err, ErrValidation)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "date")
	assert.Contains(t, verr.Fields, "type")
	assert.Contains(t, verr.Fields, "amount")

	rows, _ := store.ReadAll(context.Background(), core.TransactionsTable)
	assert.Len(t, rows, 1, "nothing written")
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, &recordingPublisher{err: errors.New("broker down")})

	_, err := svc.SubmitTransaction(ctx, TransactionInput{Type: "income", Amount: "10"})
	require.NoError(t, err)

	txs, err := svc.ListTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.True(t, txs[0].Date.IsEmpty())
}

func TestSubmitProjectRejectsDuplicateName(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil)

	p, err := svc.SubmitProject(ctx, ProjectInput{Name: "Alpha", TotalBudget: "1000", StartDate: "2024-01-01"})
	require.NoError(t, err)
	assert.Equal(t, core.Active, p.Status)
	assert.Equal(t, core.NewDate(2024, 1, 31), p.EndDate)

	_, err = svc.SubmitProject(ctx, ProjectInput{Name: "Alpha", TotalBudget: "5", StartDate: "2024-02-01"})
	assert.ErrorIs(t, err, ErrDuplicateProject)

	_, err = svc.SubmitProject(ctx, ProjectInput{Name: "alpha", TotalBudget: "5", StartDate: "2024-02-01"})
	assert.NoError(t, err, "names match exactly")
}

func TestDashboardFromOneRead(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil)

	_, err := svc.SubmitProject(ctx, ProjectInput{Name: "Alpha", TotalBudget: "1000", StartDate: "2024-01-01", Progress: 40})
	require.NoError(t, err)
	for _, in := range []TransactionInput{
		{Date: "2024-01-05", Type: "income", Amount: "800", ProjectName: "Alpha"},
		{Date: "2024-01-20", Type: "expense", Amount: "300", ProjectName: "Alpha"},
		{Date: "2024-03-01", Type: "expense", Amount: "50"},
	} {
		_, err := svc.SubmitTransaction(ctx, in)
		require.NoError(t, err)
	}

	d, err := svc.GetDashboard(ctx, fixedNow)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(450).Equal(d.KPIs.AllTimeBalance))
	assert.True(t, decimal.NewFromInt(50).Equal(d.KPIs.MonthlyExpense))
	assert.Len(t, d.Series, 2)
	require.Len(t, d.Profitability, 1)
	assert.True(t, decimal.NewFromInt(500).Equal(d.Profitability[0].Profit))
	assert.Len(t, d.Timeline, 1)
	assert.Len(t, d.Transactions, 3)
	assert.Equal(t, 2, d.Transactions[0].Row)

	kpis, err := svc.GetKPIs(ctx, fixedNow)
	require.NoError(t, err)
	assert.True(t, d.KPIs.MonthlyNet.Equal(kpis.MonthlyNet))
}

func TestUpdateAndDeleteByRow(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	svc, _ := newTestService(t, pub)

	for _, amt := range []string{"1", "2", "3"} {
		_, err := svc.SubmitTransaction(ctx, TransactionInput{Type: "expense", Amount: amt})
		require.NoError(t, err)
	}
	require.NoError(t, svc.DeleteTransaction(ctx, 3))
	require.NoError(t, svc.UpdateTransaction(ctx, 3, TransactionEditInput{Amount: "30", Note: "corrected"}))

	txs, err := svc.ListTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, core.Expense, txs[1].Type)
	assert.Equal(t, "corrected", txs[1].Note)
	assert.True(t, decimal.NewFromInt(30).Equal(txs[1].Amount))
	assert.Equal(t, "id-3", txs[1].ID)

	err = svc.DeleteTransaction(ctx, 9)
	assert.ErrorIs(t, err, ledger.ErrRowOutOfRange)

	last := pub.msgs[len(pub.msgs)-1]
	assert.Equal(t, amqp.OpUpdate, last.Op)
	assert.Equal(t, 3, last.Row)
}

func TestProjectFieldUpdates(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil)

	p, err := svc.SubmitProject(ctx, ProjectInput{Name: "Alpha", TotalBudget: "1000", StartDate: "2024-01-01"})
	require.NoError(t, err)

	err = svc.UpdateProject(ctx, 2, ProjectFieldsInput{Status: "done", Progress: 120})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "status")
	assert.Contains(t, verr.Fields, "progress")

	require.NoError(t, svc.UpdateProjectByID(ctx, p.ID, ProjectFieldsInput{Status: "closed", Progress: 100, EndDate: "2024-02-15"}))
	projects, err := svc.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, core.Closed, projects[0].Status)
	assert.Equal(t, 100, projects[0].Progress)
	assert.Equal(t, core.NewDate(2024, 2, 15), projects[0].EndDate)

	require.NoError(t, svc.DeleteProjectByID(ctx, p.ID))
	assert.ErrorIs(t, svc.DeleteProjectByID(ctx, p.ID), ledger.ErrNotFound)
}

func TestAlphaProfitabilityEndToEnd(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil)

	p, err := svc.SubmitProject(ctx, ProjectInput{Name: "Alpha", TotalBudget: "1000", Status: "active", Progress: 0})
	require.NoError(t, err)
	assert.Equal(t, core.DateOf(fixedNow), p.StartDate, "start date defaults to today")

	_, err = svc.SubmitTransaction(ctx, TransactionInput{Type: "income", Amount: "500", ProjectName: "Alpha"})
	require.NoError(t, err)
	_, err = svc.SubmitTransaction(ctx, TransactionInput{Type: "expense", Amount: "200", ProjectName: "Alpha"})
	require.NoError(t, err)

	got, err := svc.GetProjectProfitability(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Alpha", got[0].Name)
	assert.True(t, decimal.NewFromInt(200).Equal(got[0].Cost))
	assert.True(t, decimal.NewFromInt(500).Equal(got[0].Revenue))
	assert.True(t, decimal.NewFromInt(300).Equal(got[0].Profit))
}

func TestSubmitProjectTrimsName(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil)

	p, err := svc.SubmitProject(ctx, ProjectInput{Name: " Alpha ", TotalBudget: "10"})
	require.NoError(t, err)
	assert.Equal(t, "Alpha", p.Name)

	_, err = svc.SubmitProject(ctx, ProjectInput{Name: "Alpha", TotalBudget: "10"})
	assert.ErrorIs(t, err, ErrDuplicateProject)
}

func TestUpdateTransactionKeepsType(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil)

	tx, err := svc.SubmitTransaction(ctx, TransactionInput{Date: "2024-01-05", Type: "income", Category: "Project payment",
		Amount: "500", ProjectName: "Alpha"})
	require.NoError(t, err)

	require.NoError(t, svc.UpdateTransaction(ctx, 2, TransactionEditInput{Date: "2024-01-06", Category: "Project payment", Amount: "550"}))
	require.NoError(t, svc.UpdateTransactionByID(ctx, tx.ID, TransactionEditInput{Amount: "600", Note: "final"}))

	txs, err := svc.ListTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, core.Income, txs[0].Type)
	assert.Equal(t, "Alpha", txs[0].ProjectName)
	assert.Equal(t, core.NewDate(2024, 1, 6), txs[0].Date)
	assert.Equal(t, "final", txs[0].Note)
	assert.True(t, decimal.NewFromInt(600).Equal(txs[0].Amount))

	err = svc.UpdateTransaction(ctx, 2, TransactionEditInput{Amount: "-1"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "amount")
}
