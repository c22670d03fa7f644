package ledger

import (
	"context"
	"fmt"
	"strings"

	"bizledger/internal/core"
	"bizledger/internal/log"
)

// UpgradeResult describes what the upgrade did to one table.
type UpgradeResult struct {
	Table           string `json:"table"`
	From            int    `json:"from"`
	To              int    `json:"to"`
	HeaderRewritten bool   `json:"header_rewritten"`
	RowsRewritten   int    `json:"rows_rewritten"`
}

// Upgrade brings both tables to core.SchemaCurrent. The header is rewritten
// when it is older than current, and every non-blank row that is short, lacks
// an id or (for projects) lacks an end date is rewritten full width. Running
// it again on an upgraded store changes nothing.
func (a *Adapter) Upgrade(ctx context.Context) ([]UpgradeResult, error) {
	txRes, err := a.upgradeTable(ctx, a.tables.Transactions, core.TransactionsTable, a.fixTransactionRow)
	if err != nil {
		return nil, err
	}
	projRes, err := a.upgradeTable(ctx, a.tables.Projects, core.ProjectsTable, a.fixProjectRow)
	if err != nil {
		return nil, err
	}
	return []UpgradeResult{txRes, projRes}, nil
}

func (a *Adapter) upgradeTable(ctx context.Context, table, kind string, fix func([]string) ([]string, bool)) (UpgradeResult, error) {
	header := core.HeaderFor(kind)
	res := UpgradeResult{Table: table, To: core.SchemaCurrent}

	rows, err := a.store.ReadAll(ctx, table)
	if err != nil {
		return res, fmt.Errorf("read %s: %w", table, err)
	}
	if len(rows) == 0 {
		if err := a.store.AppendRow(ctx, table, header); err != nil {
			return res, fmt.Errorf("write header of %s: %w", table, err)
		}
		res.From, res.HeaderRewritten = core.SchemaCurrent, true
		return res, nil
	}

	stored := trimTrailing(rows[0])
	res.From = core.SchemaVersion(kind, stored)
	if res.From == 0 {
		return res, fmt.Errorf("%s header %q: %w", table, strings.Join(stored, ","), ErrUnknownSchema)
	}
	if res.From < core.SchemaCurrent {
		if err := a.store.UpdateRange(ctx, table, core.HeaderRow, 1, header); err != nil {
			return res, fmt.Errorf("rewrite header of %s: %w", table, err)
		}
		res.HeaderRewritten = true
	}

	for i, row := range dataRows(rows) {
		if isBlank(row) {
			continue
		}
		fixed, changed := fix(row)
		if !changed {
			continue
		}
		phys := core.PhysicalRow(i)
		if err := a.store.UpdateRange(ctx, table, phys, 1, fixed); err != nil {
			return res, fmt.Errorf("rewrite %s row %d: %w", table, phys, err)
		}
		res.RowsRewritten++
	}

	if res.HeaderRewritten || res.RowsRewritten > 0 {
		a.logger.InfoContext(ctx, "Upgraded table schema",
			log.FieldTable, table, log.FieldOperation, log.OpUpgrade,
			"from", res.From, "to", res.To, "rows_rewritten", res.RowsRewritten)
	}
	return res, nil
}

func (a *Adapter) fixTransactionRow(row []string) ([]string, bool) {
	out, changed := pad(row, len(core.TransactionHeader))
	if strings.TrimSpace(out[core.TxColID-1]) == "" {
		out[core.TxColID-1] = a.newID()
		changed = true
	}
	return out, changed
}

func (a *Adapter) fixProjectRow(row []string) ([]string, bool) {
	out, changed := pad(row, len(core.ProjectHeader))
	if strings.TrimSpace(out[core.ProjColEnd-1]) == "" {
		if start, err := core.ParseDate(out[core.ProjColStart-1]); err == nil {
			p := core.Project{StartDate: start}
			out[core.ProjColEnd-1] = p.EffectiveEnd().String()
			changed = true
		}
	}
	if strings.TrimSpace(out[core.ProjColID-1]) == "" {
		out[core.ProjColID-1] = a.newID()
		changed = true
	}
	return out, changed
}

func pad(row []string, width int) ([]string, bool) {
	out := make([]string, max(width, len(row)))
	copy(out, row)
	return out, len(row) < width
}

func trimTrailing(row []string) []string {
	out := make([]string, 0, len(row))
	for _, c := range row {
		out = append(out, strings.TrimSpace(c))
	}
	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return out
}
