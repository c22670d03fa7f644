package ledger

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"bizledger/internal/core"
)

// text returns the 1-based column of a ragged row exactly as stored, or "".
// Names join by exact match, so free-text columns are never trimmed.
func text(row []string, col int) string {
	if col < 1 || col > len(row) {
		return ""
	}
	return row[col-1]
}

// cell is text trimmed, for columns that are parsed rather than compared.
func cell(row []string, col int) string {
	return strings.TrimSpace(text(row, col))
}

type issueSink struct {
	table  string
	row    int
	issues []core.Issue
}

func (s *issueSink) add(column, value string, err error) {
	s.issues = append(s.issues, core.Issue{Table: s.table, Row: s.row, Column: column, Value: value, Err: err})
}

func (s *issueSink) amount(column, raw string) decimal.Decimal {
	d, err := core.ParseAmount(raw)
	if err != nil {
		s.add(column, raw, err)
		return decimal.Zero
	}
	return d
}

// date treats an empty cell as null without recording an issue.
func (s *issueSink) date(column, raw string) core.Date {
	if raw == "" {
		return core.Date{}
	}
	d, err := core.ParseDate(raw)
	if err != nil {
		s.add(column, raw, err)
	}
	return d
}

func decodeTransaction(table string, phys int, row []string) (core.Transaction, []core.Issue) {
	sink := &issueSink{table: table, row: phys}
	tx := core.Transaction{
		Date:        sink.date("date", cell(row, core.TxColDate)),
		Category:    text(row, core.TxColCategory),
		Amount:      sink.amount("amount", cell(row, core.TxColAmount)),
		Note:        text(row, core.TxColNote),
		ProjectName: text(row, core.TxColProject),
		ID:          cell(row, core.TxColID),
	}
	raw := cell(row, core.TxColType)
	typ, err := core.ParseTxType(raw)
	if err != nil {
		// An unknown type contributes to neither income nor expense.
		sink.add("type", raw, err)
	}
	tx.Type = typ
	tx.CreatedAt, _ = core.ParseTimestamp(cell(row, core.TxColCreatedAt))
	return tx, sink.issues
}

func decodeProject(table string, phys int, row []string) (core.Project, []core.Issue) {
	sink := &issueSink{table: table, row: phys}
	p := core.Project{
		Name:        text(row, core.ProjColName),
		TotalBudget: sink.amount("total_budget", cell(row, core.ProjColBudget)),
		StartDate:   sink.date("start_date", cell(row, core.ProjColStart)),
		EndDate:     sink.date("end_date", cell(row, core.ProjColEnd)),
		ID:          cell(row, core.ProjColID),
	}
	raw := cell(row, core.ProjColStatus)
	st, err := core.ParseProjectStatus(raw)
	if err != nil {
		sink.add("status", raw, err)
	}
	p.Status = st

	if raw := cell(row, core.ProjColProgress); raw != "" {
		prog, err := core.ParseProgress(raw)
		if err != nil {
			sink.add("progress", raw, err)
		}
		p.Progress = prog
	}
	p.CreatedAt, _ = core.ParseTimestamp(cell(row, core.ProjColCreatedAt))
	p.EndDate = p.EffectiveEnd()
	return p, sink.issues
}

func encodeTransaction(t core.Transaction) []string {
	row := make([]string, len(core.TransactionHeader))
	row[core.TxColDate-1] = t.Date.String()
	row[core.TxColType-1] = string(t.Type)
	row[core.TxColCategory-1] = t.Category
	row[core.TxColAmount-1] = core.FormatAmount(t.Amount)
	row[core.TxColNote-1] = t.Note
	row[core.TxColProject-1] = t.ProjectName
	row[core.TxColCreatedAt-1] = formatTimestamp(t.CreatedAt)
	row[core.TxColID-1] = t.ID
	return row
}

func encodeProject(p core.Project) []string {
	row := make([]string, len(core.ProjectHeader))
	row[core.ProjColName-1] = p.Name
	row[core.ProjColBudget-1] = core.FormatAmount(p.TotalBudget)
	row[core.ProjColStart-1] = p.StartDate.String()
	row[core.ProjColStatus-1] = string(p.Status)
	row[core.ProjColProgress-1] = strconv.Itoa(p.Progress)
	row[core.ProjColCreatedAt-1] = formatTimestamp(p.CreatedAt)
	row[core.ProjColEnd-1] = p.EffectiveEnd().String()
	row[core.ProjColID-1] = p.ID
	return row
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(core.TimestampLayout)
}
