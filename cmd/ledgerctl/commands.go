package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"bizledger/internal/core"
	"bizledger/internal/ledger"
	"bizledger/internal/services"
)

// appContext is handed to every command's Run.
type appContext struct {
	ctx     context.Context
	adapter *ledger.Adapter
	svc     *services.LedgerService
	out     io.Writer
	now     func() time.Time
}

func (a *appContext) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type ledgerCLI struct {
	Timeout time.Duration `default:"30s" help:"Deadline for the whole command."`

	Bootstrap     bootstrapCmd     `cmd help:"Create missing tables and upgrade the schema."`
	KPIs          kpisCmd          `cmd name:"kpis" help:"Show current-month and all-time KPIs."`
	Series        seriesCmd        `cmd help:"Show the monthly income, expense, net and cumulative series."`
	Profitability profitabilityCmd `cmd help:"Rank projects by profit."`
	Timeline      timelineCmd      `cmd help:"Show project start and end dates."`
	Overview      overviewCmd      `cmd help:"Show the project overview table."`
	List          listCmd          `cmd help:"List transactions or projects with their row numbers."`
	AddTx         addTxCmd         `cmd name:"add-tx" help:"Record a transaction."`
	AddProject    addProjectCmd    `cmd name:"add-project" help:"Create a project."`
	Update        updateCmd        `cmd help:"Edit a record by row or id."`
	Delete        deleteCmd        `cmd help:"Delete a record by row or id."`
}

type bootstrapCmd struct{}

func (bootstrapCmd) Run(app *appContext) error {
	results, err := app.adapter.Bootstrap(app.ctx)
	if err != nil {
		return err
	}
	return app.print(results)
}

type kpisCmd struct {
	At string `help:"Reference date (YYYY-MM-DD) for the current month. Defaults to today."`
}

func (c kpisCmd) Run(app *appContext) error {
	at := app.now()
	if c.At != "" {
		d, err := core.ParseDate(c.At)
		if err != nil {
			return fmt.Errorf("--at: %w", err)
		}
		at = d.Time
	}
	kpis, err := app.svc.GetKPIs(app.ctx, at)
	if err != nil {
		return err
	}
	return app.print(kpis)
}

type seriesCmd struct{}

func (seriesCmd) Run(app *appContext) error {
	series, err := app.svc.GetMonthlySeries(app.ctx)
	if err != nil {
		return err
	}
	return app.print(series)
}

type profitabilityCmd struct{}

func (profitabilityCmd) Run(app *appContext) error {
	ranking, err := app.svc.GetProjectProfitability(app.ctx)
	if err != nil {
		return err
	}
	return app.print(ranking)
}

type timelineCmd struct{}

func (timelineCmd) Run(app *appContext) error {
	timeline, err := app.svc.GetProjectTimeline(app.ctx)
	if err != nil {
		return err
	}
	return app.print(timeline)
}

type overviewCmd struct{}

func (overviewCmd) Run(app *appContext) error {
	overview, err := app.svc.GetProjectOverview(app.ctx)
	if err != nil {
		return err
	}
	return app.print(overview)
}

type listCmd struct {
	Table string `arg enum:"transactions,projects" help:"transactions or projects."`
}

func (c listCmd) Run(app *appContext) error {
	if c.Table == "projects" {
		projects, err := app.svc.ListProjects(app.ctx)
		if err != nil {
			return err
		}
		return app.print(projects)
	}
	txs, err := app.svc.ListTransactions(app.ctx)
	if err != nil {
		return err
	}
	return app.print(txs)
}

type txFlags struct {
	Date     string `help:"Transaction date, YYYY-MM-DD. Empty leaves it undated."`
	Type     string `required help:"income or expense."`
	Category string `help:"Free-form category."`
	Amount   string `required help:"Non-negative amount."`
	Note     string `help:"Free-form note."`
	Project  string `help:"Project name. Empty books it as company overhead."`
}

func (f txFlags) input() services.TransactionInput {
	return services.TransactionInput{
		Date:        f.Date,
		Type:        f.Type,
		Category:    f.Category,
		Amount:      f.Amount,
		Note:        f.Note,
		ProjectName: f.Project,
	}
}

// editTxFlags are the fields update tx may change.
type editTxFlags struct {
	Date     string `help:"Transaction date, YYYY-MM-DD. Empty keeps the current one."`
	Category string `help:"Free-form category."`
	Amount   string `required help:"Non-negative amount."`
	Note     string `help:"Free-form note."`
}

func (f editTxFlags) input() services.TransactionEditInput {
	return services.TransactionEditInput{Date: f.Date, Category: f.Category, Amount: f.Amount, Note: f.Note}
}

type addTxCmd struct {
	Fields txFlags `embed:""`
}

func (c addTxCmd) Run(app *appContext) error {
	tx, err := app.svc.SubmitTransaction(app.ctx, c.Fields.input())
	if err != nil {
		return err
	}
	return app.print(tx)
}

type addProjectCmd struct {
	Name     string `required help:"Unique project name."`
	Budget   string `required help:"Total budget."`
	Start    string `help:"Start date, YYYY-MM-DD. Defaults to today."`
	End      string `help:"End date, YYYY-MM-DD. Defaults to start plus 30 days."`
	Status   string `help:"active, paused or closed. Defaults to active."`
	Progress int    `help:"Completion percentage, 0 to 100."`
}

func (c addProjectCmd) Run(app *appContext) error {
	p, err := app.svc.SubmitProject(app.ctx, services.ProjectInput{
		Name:        c.Name,
		TotalBudget: c.Budget,
		StartDate:   c.Start,
		EndDate:     c.End,
		Status:      c.Status,
		Progress:    c.Progress,
	})
	if err != nil {
		return err
	}
	return app.print(p)
}

// target addresses a record by physical row or by id; exactly one is set.
type target struct {
	Row int    `arg optional help:"Physical row number as shown by list."`
	ID  string `name:"id" help:"Record id instead of a row number."`
}

func (t target) validate() error {
	switch {
	case t.Row == 0 && t.ID == "":
		return errors.New("give a row number or --id")
	case t.Row != 0 && t.ID != "":
		return errors.New("give either a row number or --id, not both")
	}
	return nil
}

type updateCmd struct {
	Tx      updateTxCmd      `cmd name:"tx" help:"Edit a transaction. Type and project are kept."`
	Project updateProjectCmd `cmd help:"Change a project's status, progress or end date."`
}

type updateTxCmd struct {
	Target target      `embed:""`
	Fields editTxFlags `embed:""`
}

func (c updateTxCmd) Run(app *appContext) error {
	if err := c.Target.validate(); err != nil {
		return err
	}
	var err error
	if c.Target.ID != "" {
		err = app.svc.UpdateTransactionByID(app.ctx, c.Target.ID, c.Fields.input())
	} else {
		err = app.svc.UpdateTransaction(app.ctx, c.Target.Row, c.Fields.input())
	}
	if err != nil {
		return err
	}
	return app.print(map[string]string{"status": "updated"})
}

type updateProjectCmd struct {
	Target   target `embed:""`
	Status   string `required help:"active, paused or closed."`
	Progress int    `help:"Completion percentage, clamped to 0..100."`
	End      string `help:"New end date, YYYY-MM-DD. Empty keeps the current one."`
}

func (c updateProjectCmd) Run(app *appContext) error {
	if err := c.Target.validate(); err != nil {
		return err
	}
	in := services.ProjectFieldsInput{Status: c.Status, Progress: core.ClampProgress(c.Progress), EndDate: c.End}
	var err error
	if c.Target.ID != "" {
		err = app.svc.UpdateProjectByID(app.ctx, c.Target.ID, in)
	} else {
		err = app.svc.UpdateProject(app.ctx, c.Target.Row, in)
	}
	if err != nil {
		return err
	}
	return app.print(map[string]string{"status": "updated"})
}

type deleteCmd struct {
	Tx      deleteTxCmd      `cmd name:"tx" help:"Delete a transaction."`
	Project deleteProjectCmd `cmd help:"Delete a project. Its transactions are kept."`
}

type deleteTxCmd struct {
	Target target `embed:""`
}

func (c deleteTxCmd) Run(app *appContext) error {
	if err := c.Target.validate(); err != nil {
		return err
	}
	var err error
	if c.Target.ID != "" {
		err = app.svc.DeleteTransactionByID(app.ctx, c.Target.ID)
	} else {
		err = app.svc.DeleteTransaction(app.ctx, c.Target.Row)
	}
	if err != nil {
		return err
	}
	return app.print(map[string]string{"status": "deleted"})
}

type deleteProjectCmd struct {
	Target target `embed:""`
}

func (c deleteProjectCmd) Run(app *appContext) error {
	if err := c.Target.validate(); err != nil {
		return err
	}
	var err error
	if c.Target.ID != "" {
		err = app.svc.DeleteProjectByID(app.ctx, c.Target.ID)
	} else {
		err = app.svc.DeleteProject(app.ctx, c.Target.Row)
	}
	if err != nil {
		return err
	}
	return app.print(map[string]string{"status": "deleted"})
}
