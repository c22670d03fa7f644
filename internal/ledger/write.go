package ledger

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"bizledger/internal/core"
	"bizledger/internal/log"
)

// ProjectUpdate is the set of project fields editable in place. EndDate is
// written only when non-empty.
type ProjectUpdate struct {
	Status   core.ProjectStatus
	Progress int
	EndDate  core.Date
}

// TransactionEdit is the set of transaction fields editable in place. The
// stored type and project are written back unchanged. An empty Date keeps the
// stored date.
type TransactionEdit struct {
	Date     core.Date
	Category string
	Amount   decimal.Decimal
	Note     string
}

func (e TransactionEdit) validate() error {
	if e.Amount.IsNegative() {
		return core.ErrNegativeAmount
	}
	return nil
}

func (u ProjectUpdate) validate() error {
	if !u.Status.Valid() {
		return core.ErrInvalidStatus
	}
	if u.Progress < 0 || u.Progress > 100 {
		return core.ErrInvalidProgress
	}
	return nil
}

// AppendTransaction stores a new transaction with a fresh id and created_at.
func (a *Adapter) AppendTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if err := tx.Validate(); err != nil {
		return tx, err
	}
	tx.ID = a.newID()
	tx.CreatedAt = a.now()
	if err := a.store.AppendRow(ctx, a.tables.Transactions, encodeTransaction(tx)); err != nil {
		return tx, fmt.Errorf("append transaction: %w", err)
	}
	a.logger.InfoContext(ctx, "Transaction appended",
		log.NewFields().WithRecord(a.tables.Transactions, 0, tx.ID).WithOperation(log.OpCreate).ToSlice()...)
	return tx, nil
}

func (a *Adapter) AppendProject(ctx context.Context, p core.Project) (core.Project, error) {
	if err := p.Validate(); err != nil {
		return p, err
	}
	p.ID = a.newID()
	p.CreatedAt = a.now()
	p.EndDate = p.EffectiveEnd()
	if err := a.store.AppendRow(ctx, a.tables.Projects, encodeProject(p)); err != nil {
		return p, fmt.Errorf("append project: %w", err)
	}
	a.logger.InfoContext(ctx, "Project appended",
		log.NewFields().WithRecord(a.tables.Projects, 0, p.ID).WithOperation(log.OpCreate).ToSlice()...)
	return p, nil
}

// UpdateTransactionAt overwrites date, category, amount and note of the row.
// The type cell is rewritten with its stored value; project_name, created_at
// and id are left untouched.
func (a *Adapter) UpdateTransactionAt(ctx context.Context, row int, e TransactionEdit) error {
	if err := e.validate(); err != nil {
		return err
	}
	rows, err := a.checkRow(ctx, a.tables.Transactions, row)
	if err != nil {
		return err
	}
	return a.writeTransaction(ctx, row, rows[row-1], e)
}

func (a *Adapter) UpdateProjectAt(ctx context.Context, row int, u ProjectUpdate) error {
	if err := u.validate(); err != nil {
		return err
	}
	if _, err := a.checkRow(ctx, a.tables.Projects, row); err != nil {
		return err
	}
	return a.writeProject(ctx, row, u)
}

func (a *Adapter) DeleteTransactionAt(ctx context.Context, row int) error {
	if _, err := a.checkRow(ctx, a.tables.Transactions, row); err != nil {
		return err
	}
	return a.deleteRow(ctx, a.tables.Transactions, row)
}

func (a *Adapter) DeleteProjectAt(ctx context.Context, row int) error {
	if _, err := a.checkRow(ctx, a.tables.Projects, row); err != nil {
		return err
	}
	return a.deleteRow(ctx, a.tables.Projects, row)
}

// UpdateTransaction resolves id to its current row and updates it there.
// It returns the row written.
func (a *Adapter) UpdateTransaction(ctx context.Context, id string, e TransactionEdit) (int, error) {
	if err := e.validate(); err != nil {
		return 0, err
	}
	row, stored, err := a.resolve(ctx, a.tables.Transactions, core.TxColID, id)
	if err != nil {
		return 0, err
	}
	return row, a.writeTransaction(ctx, row, stored, e)
}

func (a *Adapter) DeleteTransaction(ctx context.Context, id string) (int, error) {
	row, _, err := a.resolve(ctx, a.tables.Transactions, core.TxColID, id)
	if err != nil {
		return 0, err
	}
	return row, a.deleteRow(ctx, a.tables.Transactions, row)
}

func (a *Adapter) UpdateProject(ctx context.Context, id string, u ProjectUpdate) (int, error) {
	if err := u.validate(); err != nil {
		return 0, err
	}
	row, _, err := a.resolve(ctx, a.tables.Projects, core.ProjColID, id)
	if err != nil {
		return 0, err
	}
	return row, a.writeProject(ctx, row, u)
}

func (a *Adapter) DeleteProject(ctx context.Context, id string) (int, error) {
	row, _, err := a.resolve(ctx, a.tables.Projects, core.ProjColID, id)
	if err != nil {
		return 0, err
	}
	return row, a.deleteRow(ctx, a.tables.Projects, row)
}

func (a *Adapter) writeTransaction(ctx context.Context, row int, stored []string, e TransactionEdit) error {
	values := make([]string, core.TxColNote-core.TxColDate+1)
	values[core.TxColDate-1] = text(stored, core.TxColDate)
	if !e.Date.IsEmpty() {
		values[core.TxColDate-1] = e.Date.String()
	}
	values[core.TxColType-1] = text(stored, core.TxColType)
	values[core.TxColCategory-1] = e.Category
	values[core.TxColAmount-1] = core.FormatAmount(e.Amount)
	values[core.TxColNote-1] = e.Note
	if err := a.store.UpdateRange(ctx, a.tables.Transactions, row, core.TxColDate, values); err != nil {
		return fmt.Errorf("update transaction row %d: %w", row, err)
	}
	a.logger.InfoContext(ctx, "Transaction updated",
		log.NewFields().WithRecord(a.tables.Transactions, row, "").WithOperation(log.OpUpdate).ToSlice()...)
	return nil
}

func (a *Adapter) writeProject(ctx context.Context, row int, u ProjectUpdate) error {
	table := a.tables.Projects
	if err := a.store.UpdateRange(ctx, table, row, core.ProjColStatus,
		[]string{string(u.Status), strconv.Itoa(u.Progress)}); err != nil {
		return fmt.Errorf("update project row %d: %w", row, err)
	}
	if !u.EndDate.IsEmpty() {
		if err := a.store.UpdateCell(ctx, table, row, core.ProjColEnd, u.EndDate.String()); err != nil {
			return fmt.Errorf("update project row %d end date: %w", row, err)
		}
	}
	a.logger.InfoContext(ctx, "Project updated",
		log.NewFields().WithRecord(table, row, "").WithOperation(log.OpUpdate).ToSlice()...)
	return nil
}

func (a *Adapter) deleteRow(ctx context.Context, table string, row int) error {
	if err := a.store.DeleteRow(ctx, table, row); err != nil {
		return fmt.Errorf("delete %s row %d: %w", table, row, err)
	}
	a.logger.InfoContext(ctx, "Row deleted",
		log.NewFields().WithRecord(table, row, "").WithOperation(log.OpDelete).ToSlice()...)
	return nil
}

// checkRow reads the table and verifies row addresses a data row.
func (a *Adapter) checkRow(ctx context.Context, table string, row int) ([][]string, error) {
	rows, err := a.store.ReadAll(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", table, err)
	}
	if row < core.FirstDataRow || row > len(rows) {
		return nil, fmt.Errorf("%s row %d: %w", table, row, ErrRowOutOfRange)
	}
	return rows, nil
}

// resolve finds the physical row currently holding id and returns its cells.
func (a *Adapter) resolve(ctx context.Context, table string, idCol int, id string) (int, []string, error) {
	if id == "" {
		return 0, nil, fmt.Errorf("%s id %q: %w", table, id, ErrNotFound)
	}
	rows, err := a.store.ReadAll(ctx, table)
	if err != nil {
		return 0, nil, fmt.Errorf("read %s: %w", table, err)
	}
	for i, r := range dataRows(rows) {
		if cell(r, idCol) == id {
			return core.PhysicalRow(i), r, nil
		}
	}
	return 0, nil, fmt.Errorf("%s id %s: %w", table, id, ErrNotFound)
}
