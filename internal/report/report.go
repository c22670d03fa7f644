// Package report aggregates typed ledger tables into KPIs and chart series.
// Every function is pure: the same input always yields the same output.
package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"bizledger/internal/core"
)

type KPIs struct {
	MonthlyIncome  decimal.Decimal `json:"monthly_income"`
	MonthlyExpense decimal.Decimal `json:"monthly_expense"`
	MonthlyNet     decimal.Decimal `json:"monthly_net"`
	AllTimeBalance decimal.Decimal `json:"all_time_balance"`
}

type MonthPoint struct {
	Month      string          `json:"month"`
	Income     decimal.Decimal `json:"income"`
	Expense    decimal.Decimal `json:"expense"`
	Net        decimal.Decimal `json:"net"`
	Cumulative decimal.Decimal `json:"cumulative"`
}

type ProjectProfit struct {
	Name    string          `json:"name"`
	Cost    decimal.Decimal `json:"cost"`
	Revenue decimal.Decimal `json:"revenue"`
	Profit  decimal.Decimal `json:"profit"`
}

type TimelineEntry struct {
	Name      string             `json:"name"`
	StartDate core.Date          `json:"start_date"`
	EndDate   core.Date          `json:"end_date"`
	Status    core.ProjectStatus `json:"status"`
}

// ProjectOverviewRow is one line of the project table view.
type ProjectOverviewRow struct {
	Name        string             `json:"name"`
	TotalBudget decimal.Decimal    `json:"total_budget"`
	Status      core.ProjectStatus `json:"status"`
	Progress    int                `json:"progress"`
	Cost        decimal.Decimal    `json:"cost"`
	Revenue     decimal.Decimal    `json:"revenue"`
	Profit      decimal.Decimal    `json:"profit"`
	// BudgetUsed is cost as a percentage of budget, zero when there is no budget.
	BudgetUsed decimal.Decimal `json:"budget_used"`
}

// ComputeKPIs sums the calendar month containing now and the whole table.
// Undated transactions count toward the all-time balance only.
func ComputeKPIs(txs []core.Transaction, now time.Time) KPIs {
	k := KPIs{
		MonthlyIncome:  decimal.Zero,
		MonthlyExpense: decimal.Zero,
		AllTimeBalance: decimal.Zero,
	}
	year, month := now.Year(), now.Month()
	for _, t := range txs {
		if !t.Type.Valid() {
			continue
		}
		k.AllTimeBalance = k.AllTimeBalance.Add(t.Signed())
		if t.Date.IsEmpty() || t.Date.Year() != year || t.Date.Month() != month {
			continue
		}
		switch t.Type {
		case core.Income:
			k.MonthlyIncome = k.MonthlyIncome.Add(t.Amount)
		case core.Expense:
			k.MonthlyExpense = k.MonthlyExpense.Add(t.Amount)
		}
	}
	k.MonthlyNet = k.MonthlyIncome.Sub(k.MonthlyExpense)
	return k
}

// MonthlySeries groups dated transactions by YYYY-MM in ascending order and
// carries a running balance. Months with no transactions are not emitted.
func MonthlySeries(txs []core.Transaction) []MonthPoint {
	buckets := map[string]*MonthPoint{}
	for _, t := range txs {
		key := t.Date.MonthKey()
		if key == "" || !t.Type.Valid() {
			continue
		}
		p, ok := buckets[key]
		if !ok {
			p = &MonthPoint{Month: key, Income: decimal.Zero, Expense: decimal.Zero}
			buckets[key] = p
		}
		if t.Type == core.Income {
			p.Income = p.Income.Add(t.Amount)
		} else {
			p.Expense = p.Expense.Add(t.Amount)
		}
	}

	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	// Zero-padded keys sort chronologically.
	sort.Strings(keys)

	out := make([]MonthPoint, 0, len(keys))
	running := decimal.Zero
	for _, k := range keys {
		p := *buckets[k]
		p.Net = p.Income.Sub(p.Expense)
		running = running.Add(p.Net)
		p.Cumulative = running
		out = append(out, p)
	}
	return out
}

type costRevenue struct {
	cost, revenue decimal.Decimal
}

// byProject sums cost and revenue per exact project_name.
func byProject(txs []core.Transaction) map[string]costRevenue {
	out := map[string]costRevenue{}
	for _, t := range txs {
		cr, ok := out[t.ProjectName]
		if !ok {
			cr = costRevenue{cost: decimal.Zero, revenue: decimal.Zero}
		}
		switch t.Type {
		case core.Income:
			cr.revenue = cr.revenue.Add(t.Amount)
		case core.Expense:
			cr.cost = cr.cost.Add(t.Amount)
		}
		out[t.ProjectName] = cr
	}
	return out
}

// ProjectProfitability returns one entry per project ranked by ascending
// profit, ties broken by name. Matching on project_name is exact.
func ProjectProfitability(projects []core.Project, txs []core.Transaction) []ProjectProfit {
	sums := byProject(txs)
	out := make([]ProjectProfit, 0, len(projects))
	for _, p := range projects {
		cr, ok := sums[p.Name]
		if !ok {
			cr = costRevenue{cost: decimal.Zero, revenue: decimal.Zero}
		}
		out = append(out, ProjectProfit{
			Name:    p.Name,
			Cost:    cr.cost,
			Revenue: cr.revenue,
			Profit:  cr.revenue.Sub(cr.cost),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Profit.Cmp(out[j].Profit); c != 0 {
			return c < 0
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// ProjectTimeline lists each project's span in table order.
func ProjectTimeline(projects []core.Project) []TimelineEntry {
	out := make([]TimelineEntry, 0, len(projects))
	for _, p := range projects {
		out = append(out, TimelineEntry{
			Name:      p.Name,
			StartDate: p.StartDate,
			EndDate:   p.EffectiveEnd(),
			Status:    p.Status,
		})
	}
	return out
}

var hundred = decimal.NewFromInt(100)

// ProjectOverview joins each project with its cost and revenue, in table order.
func ProjectOverview(projects []core.Project, txs []core.Transaction) []ProjectOverviewRow {
	sums := byProject(txs)
	out := make([]ProjectOverviewRow, 0, len(projects))
	for _, p := range projects {
		cr, ok := sums[p.Name]
		if !ok {
			cr = costRevenue{cost: decimal.Zero, revenue: decimal.Zero}
		}
		used := decimal.Zero
		if p.TotalBudget.IsPositive() {
			used = cr.cost.Mul(hundred).Div(p.TotalBudget).Round(1)
		}
		out = append(out, ProjectOverviewRow{
			Name:        p.Name,
			TotalBudget: p.TotalBudget,
			Status:      p.Status,
			Progress:    p.Progress,
			Cost:        cr.cost,
			Revenue:     cr.revenue,
			Profit:      cr.revenue.Sub(cr.cost),
			BudgetUsed:  used,
		})
	}
	return out
}
