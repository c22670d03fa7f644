// Package ledger adapts a raw table store into typed transactions and
// projects. It owns schema bootstrap, the versioned upgrade, coercion of raw
// cells and the mapping between records and physical rows.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"bizledger/internal/core"
	"bizledger/internal/log"
	"bizledger/internal/sheets"
)

var (
	// ErrNotFound is returned when an id no longer resolves to a row.
	ErrNotFound = errors.New("record not found")
	// ErrRowOutOfRange is the same sentinel the stores use, so either matches.
	ErrRowOutOfRange = sheets.ErrRowOutOfRange
	// ErrUnknownSchema means a stored header matches no known layout.
	ErrUnknownSchema = errors.New("unrecognized table header")
)

// Tables names the two tables in the store.
type Tables struct {
	Transactions string
	Projects     string
}

func DefaultTables() Tables {
	return Tables{Transactions: core.TransactionsTable, Projects: core.ProjectsTable}
}

type Adapter struct {
	store  sheets.TableStore
	tables Tables
	policy core.CoercionPolicy
	now    func() time.Time
	newID  func() string
	logger *log.Logger
}

type Option func(*Adapter)

func WithTables(t Tables) Option {
	return func(a *Adapter) {
		if t.Transactions != "" {
			a.tables.Transactions = t.Transactions
		}
		if t.Projects != "" {
			a.tables.Projects = t.Projects
		}
	}
}

func WithPolicy(p core.CoercionPolicy) Option {
	return func(a *Adapter) {
		if p.Valid() {
			a.policy = p
		}
	}
}

// WithClock overrides the clock used for created_at.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) { a.now = now }
}

// WithIDs overrides the surrogate id generator.
func WithIDs(newID func() string) Option {
	return func(a *Adapter) { a.newID = newID }
}

func WithLogger(l *log.Logger) Option {
	return func(a *Adapter) { a.logger = l.WithComponent(log.ComponentLedger) }
}

func New(store sheets.TableStore, opts ...Option) *Adapter {
	a := &Adapter{
		store:  store,
		tables: DefaultTables(),
		policy: core.PolicyZero,
		now:    time.Now,
		newID:  uuid.NewString,
		logger: log.Default(log.ComponentLedger),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) Tables() Tables { return a.tables }

func (a *Adapter) Policy() core.CoercionPolicy { return a.policy }

// Bootstrap creates missing tables and upgrades existing ones to the current
// schema. It is safe to call on every start.
func (a *Adapter) Bootstrap(ctx context.Context) ([]UpgradeResult, error) {
	for _, t := range []struct {
		name   string
		header []string
	}{
		{a.tables.Transactions, core.TransactionHeader},
		{a.tables.Projects, core.ProjectHeader},
	} {
		created, err := a.store.EnsureTable(ctx, t.name, t.header)
		if err != nil {
			return nil, fmt.Errorf("ensure table %s: %w", t.name, err)
		}
		if created {
			a.logger.InfoContext(ctx, "Created table", log.FieldTable, t.name)
		}
	}
	return a.Upgrade(ctx)
}

// Load reads both tables and returns their typed view. Every call is a fresh
// read; nothing is cached between calls.
func (a *Adapter) Load(ctx context.Context) (*Snapshot, error) {
	var txRows, projRows [][]string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := a.store.ReadAll(gctx, a.tables.Transactions)
		if err != nil {
			return fmt.Errorf("read %s: %w", a.tables.Transactions, err)
		}
		txRows = rows
		return nil
	})
	g.Go(func() error {
		rows, err := a.store.ReadAll(gctx, a.tables.Projects)
		if err != nil {
			return fmt.Errorf("read %s: %w", a.tables.Projects, err)
		}
		projRows = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap := newSnapshot()
	for i, row := range dataRows(txRows) {
		if isBlank(row) {
			continue
		}
		phys := core.PhysicalRow(i)
		tx, issues := decodeTransaction(a.tables.Transactions, phys, row)
		snap.Issues = append(snap.Issues, issues...)
		if len(issues) > 0 && a.policy == core.PolicySkip {
			continue
		}
		snap.addTransaction(TransactionRecord{Row: phys, Label: core.RowLabel(phys, txSummary(tx)), Transaction: tx})
	}
	for i, row := range dataRows(projRows) {
		if isBlank(row) {
			continue
		}
		phys := core.PhysicalRow(i)
		p, issues := decodeProject(a.tables.Projects, phys, row)
		snap.Issues = append(snap.Issues, issues...)
		if len(issues) > 0 && a.policy == core.PolicySkip {
			continue
		}
		snap.addProject(ProjectRecord{Row: phys, Label: core.RowLabel(phys, p.Name), Project: p})
	}

	for _, is := range snap.Issues {
		a.logger.DebugContext(ctx, "Coercion issue", log.FieldTable, is.Table, log.FieldRow, is.Row,
			"column", is.Column, "value", is.Value, log.FieldError, is.Err)
	}
	return snap, nil
}

func dataRows(rows [][]string) [][]string {
	if len(rows) <= 1 {
		return nil
	}
	return rows[1:]
}

func isBlank(row []string) bool {
	for _, c := range row {
		if c != "" {
			return false
		}
	}
	return true
}

func txSummary(t core.Transaction) string {
	return fmt.Sprintf("%s %s %s %s", t.Date, t.Type, t.Category, core.FormatMoney(t.Amount))
}
