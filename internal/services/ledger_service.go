package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"bizledger/internal/amqp"
	"bizledger/internal/core"
	"bizledger/internal/ledger"
	"bizledger/internal/log"
	"bizledger/internal/metrics"
	"bizledger/internal/report"
)

// EventPublisher announces successful writes. *amqp.Client implements it.
type EventPublisher interface {
	PublishLedgerChange(ctx context.Context, msg *amqp.LedgerChangeMessage) error
}

// Dashboard is every view of the ledger computed from a single read.
type Dashboard struct {
	KPIs          report.KPIs                `json:"kpis"`
	Series        []report.MonthPoint        `json:"series"`
	Profitability []report.ProjectProfit     `json:"profitability"`
	Timeline      []report.TimelineEntry     `json:"timeline"`
	Overview      []report.ProjectOverviewRow `json:"overview"`
	Transactions  []ledger.TransactionRecord `json:"transactions"`
	Projects      []ledger.ProjectRecord     `json:"projects"`
}

// LedgerService is the presentation-facing API. Every call reads the store
// afresh; writes are validated first and announced afterwards.
type LedgerService struct {
	ledger    *ledger.Adapter
	publisher EventPublisher
	rec       metrics.Recorder
	logger    *log.Logger
	now       func() time.Time
	validate  *validator.Validate
}

type Option func(*LedgerService)

func WithPublisher(p EventPublisher) Option {
	return func(s *LedgerService) { s.publisher = p }
}

func WithRecorder(r metrics.Recorder) Option {
	return func(s *LedgerService) {
		if r != nil {
			s.rec = r
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *LedgerService) { s.logger = l.WithComponent(log.ComponentLedger) }
}

func WithClock(now func() time.Time) Option {
	return func(s *LedgerService) { s.now = now }
}

func NewLedgerService(l *ledger.Adapter, opts ...Option) *LedgerService {
	s := &LedgerService{
		ledger:   l,
		rec:      metrics.Noop{},
		logger:   log.Default(log.ComponentLedger),
		now:      time.Now,
		validate: newValidator(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *LedgerService) load(ctx context.Context) (*ledger.Snapshot, error) {
	snap, err := s.ledger.Load(ctx)
	if err != nil {
		return nil, err
	}
	counts := map[string]int{s.ledger.Tables().Transactions: 0, s.ledger.Tables().Projects: 0}
	for _, is := range snap.Issues {
		counts[is.Table]++
	}
	for table, n := range counts {
		s.rec.SetCoercionIssues(table, n)
	}
	return snap, nil
}

func (s *LedgerService) observe(op string, err error) error {
	s.rec.ObserveLedgerOp(op, err)
	return err
}

func (s *LedgerService) GetKPIs(ctx context.Context, now time.Time) (report.KPIs, error) {
	snap, err := s.load(ctx)
	if err != nil {
		return report.KPIs{}, s.observe("get_kpis", err)
	}
	return report.ComputeKPIs(snap.TransactionList(), now), s.observe("get_kpis", nil)
}

func (s *LedgerService) GetMonthlySeries(ctx context.Context) ([]report.MonthPoint, error) {
	snap, err := s.load(ctx)
	if err != nil {
		return nil, s.observe("get_monthly_series", err)
	}
	return report.MonthlySeries(snap.TransactionList()), s.observe("get_monthly_series", nil)
}

func (s *LedgerService) GetProjectProfitability(ctx context.Context) ([]report.ProjectProfit, error) {
	snap, err := s.load(ctx)
	if err != nil {
		return nil, s.observe("get_project_profitability", err)
	}
	return report.ProjectProfitability(snap.ProjectList(), snap.TransactionList()),
		s.observe("get_project_profitability", nil)
}

func (s *LedgerService) GetProjectTimeline(ctx context.Context) ([]report.TimelineEntry, error) {
	snap, err := s.load(ctx)
	if err != nil {
		return nil, s.observe("get_project_timeline", err)
	}
	return report.ProjectTimeline(snap.ProjectList()), s.observe("get_project_timeline", nil)
}

func (s *LedgerService) GetProjectOverview(ctx context.Context) ([]report.ProjectOverviewRow, error) {
	snap, err := s.load(ctx)
	if err != nil {
		return nil, s.observe("get_project_overview", err)
	}
	return report.ProjectOverview(snap.ProjectList(), snap.TransactionList()),
		s.observe("get_project_overview", nil)
}

// ListTransactions returns records in store order, each with its row label.
func (s *LedgerService) ListTransactions(ctx context.Context) ([]ledger.TransactionRecord, error) {
	snap, err := s.load(ctx)
	if err != nil {
		return nil, s.observe("list_transactions", err)
	}
	return snap.Transactions, s.observe("list_transactions", nil)
}

func (s *LedgerService) ListProjects(ctx context.Context) ([]ledger.ProjectRecord, error) {
	snap, err := s.load(ctx)
	if err != nil {
		return nil, s.observe("list_projects", err)
	}
	return snap.Projects, s.observe("list_projects", nil)
}

// GetDashboard computes every view from one read.
func (s *LedgerService) GetDashboard(ctx context.Context, now time.Time) (Dashboard, error) {
	snap, err := s.load(ctx)
	if err != nil {
		return Dashboard{}, s.observe("get_dashboard", err)
	}
	txs, projects := snap.TransactionList(), snap.ProjectList()
	return Dashboard{
		KPIs:          report.ComputeKPIs(txs, now),
		Series:        report.MonthlySeries(txs),
		Profitability: report.ProjectProfitability(projects, txs),
		Timeline:      report.ProjectTimeline(projects),
		Overview:      report.ProjectOverview(projects, txs),
		Transactions:  snap.Transactions,
		Projects:      snap.Projects,
	}, s.observe("get_dashboard", nil)
}

func (s *LedgerService) check(in any) error {
	if err := s.validate.Struct(in); err != nil {
		return validationError(err)
	}
	return nil
}

func (s *LedgerService) SubmitTransaction(ctx context.Context, in TransactionInput) (core.Transaction, error) {
	const op = "submit_transaction"
	if err := s.check(in); err != nil {
		return core.Transaction{}, s.observe(op, err)
	}
	tx, err := s.ledger.AppendTransaction(ctx, in.toTransaction())
	if err != nil {
		return core.Transaction{}, s.observe(op, err)
	}
	s.publish(ctx, s.ledger.Tables().Transactions, amqp.OpCreate, 0, tx.ID)
	return tx, s.observe(op, nil)
}

// UpdateTransaction overwrites the editable fields of the transaction at row;
// its type and project stay as stored. The caller must hold a row number from
// a read taken after the last delete.
func (s *LedgerService) UpdateTransaction(ctx context.Context, row int, in TransactionEditInput) error {
	const op = "update_transaction"
	if err := s.check(in); err != nil {
		return s.observe(op, err)
	}
	if err := s.ledger.UpdateTransactionAt(ctx, row, in.toEdit()); err != nil {
		return s.observe(op, err)
	}
	s.publish(ctx, s.ledger.Tables().Transactions, amqp.OpUpdate, row, "")
	return s.observe(op, nil)
}

func (s *LedgerService) DeleteTransaction(ctx context.Context, row int) error {
	const op = "delete_transaction"
	if err := s.ledger.DeleteTransactionAt(ctx, row); err != nil {
		return s.observe(op, err)
	}
	s.publish(ctx, s.ledger.Tables().Transactions, amqp.OpDelete, row, "")
	return s.observe(op, nil)
}

func (s *LedgerService) UpdateTransactionByID(ctx context.Context, id string, in TransactionEditInput) error {
	const op = "update_transaction_by_id"
	if err := s.check(in); err != nil {
		return s.observe(op, err)
	}
	row, err := s.ledger.UpdateTransaction(ctx, id, in.toEdit())
	if err != nil {
		return s.observe(op, err)
	}
	s.publish(ctx, s.ledger.Tables().Transactions, amqp.OpUpdate, row, id)
	return s.observe(op, nil)
}

func (s *LedgerService) DeleteTransactionByID(ctx context.Context, id string) error {
	const op = "delete_transaction_by_id"
	row, err := s.ledger.DeleteTransaction(ctx, id)
	if err != nil {
		return s.observe(op, err)
	}
	s.publish(ctx, s.ledger.Tables().Transactions, amqp.OpDelete, row, id)
	return s.observe(op, nil)
}

// SubmitProject rejects a name already present in the Projects table, since
// aggregation joins on the name.
func (s *LedgerService) SubmitProject(ctx context.Context, in ProjectInput) (core.Project, error) {
	const op = "submit_project"
	if err := s.check(in); err != nil {
		return core.Project{}, s.observe(op, err)
	}
	p := in.toProject(s.now())
	snap, err := s.load(ctx)
	if err != nil {
		return core.Project{}, s.observe(op, err)
	}
	if snap.HasProject(p.Name) {
		return core.Project{}, s.observe(op, fmt.Errorf("%q: %w", p.Name, ErrDuplicateProject))
	}
	p, err = s.ledger.AppendProject(ctx, p)
	if err != nil {
		return core.Project{}, s.observe(op, err)
	}
	s.publish(ctx, s.ledger.Tables().Projects, amqp.OpCreate, 0, p.ID)
	return p, s.observe(op, nil)
}

func (s *LedgerService) UpdateProject(ctx context.Context, row int, in ProjectFieldsInput) error {
	const op = "update_project"
	if err := s.check(in); err != nil {
		return s.observe(op, err)
	}
	if err := s.ledger.UpdateProjectAt(ctx, row, in.toUpdate()); err != nil {
		return s.observe(op, err)
	}
	s.publish(ctx, s.ledger.Tables().Projects, amqp.OpUpdate, row, "")
	return s.observe(op, nil)
}

func (s *LedgerService) DeleteProject(ctx context.Context, row int) error {
	const op = "delete_project"
	if err := s.ledger.DeleteProjectAt(ctx, row); err != nil {
		return s.observe(op, err)
	}
	s.publish(ctx, s.ledger.Tables().Projects, amqp.OpDelete, row, "")
	return s.observe(op, nil)
}

func (s *LedgerService) UpdateProjectByID(ctx context.Context, id string, in ProjectFieldsInput) error {
	const op = "update_project_by_id"
	if err := s.check(in); err != nil {
		return s.observe(op, err)
	}
	row, err := s.ledger.UpdateProject(ctx, id, in.toUpdate())
	if err != nil {
		return s.observe(op, err)
	}
	s.publish(ctx, s.ledger.Tables().Projects, amqp.OpUpdate, row, id)
	return s.observe(op, nil)
}

func (s *LedgerService) DeleteProjectByID(ctx context.Context, id string) error {
	const op = "delete_project_by_id"
	row, err := s.ledger.DeleteProject(ctx, id)
	if err != nil {
		return s.observe(op, err)
	}
	s.publish(ctx, s.ledger.Tables().Projects, amqp.OpDelete, row, id)
	return s.observe(op, nil)
}

// publish never fails the write; the store is the source of truth and the
// mirror worker resyncs periodically.
func (s *LedgerService) publish(ctx context.Context, table, op string, row int, id string) {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "AMQP publisher not configured, skipping change event", log.FieldTable, table)
		return
	}
	msg := amqp.NewLedgerChangeMessage(table, op, row, id, s.now())
	if err := s.publisher.PublishLedgerChange(ctx, msg); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish ledger change",
			log.NewFields().WithRecord(table, row, id).WithOperation(op).WithError(err).ToSlice()...)
	}
}
