package http

import (
	"net/http"

	"bizledger/internal/amqp"
	"bizledger/internal/core"
	"bizledger/internal/log"
	"bizledger/internal/session"
)

// Read-side handlers. Each one triggers a fresh load of both tables.

func (s *Server) handleKPIs(w http.ResponseWriter, r *http.Request) {
	at, err := parseAt(r.URL.Query(), s.now())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	kpis, err := s.svc.GetKPIs(r.Context(), at)
	if err != nil {
		s.fail(w, r, "get kpis", err)
		return
	}
	NewResponse().JSON(kpis).Write(w)
}

func (s *Server) handleMonthlySeries(w http.ResponseWriter, r *http.Request) {
	series, err := s.svc.GetMonthlySeries(r.Context())
	if err != nil {
		s.fail(w, r, "get monthly series", err)
		return
	}
	NewResponse().JSON(series).Write(w)
}

func (s *Server) handleProfitability(w http.ResponseWriter, r *http.Request) {
	ranking, err := s.svc.GetProjectProfitability(r.Context())
	if err != nil {
		s.fail(w, r, "get project profitability", err)
		return
	}
	NewResponse().JSON(ranking).Write(w)
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	timeline, err := s.svc.GetProjectTimeline(r.Context())
	if err != nil {
		s.fail(w, r, "get project timeline", err)
		return
	}
	NewResponse().JSON(timeline).Write(w)
}

func (s *Server) handleProjectOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := s.svc.GetProjectOverview(r.Context())
	if err != nil {
		s.fail(w, r, "get project overview", err)
		return
	}
	NewResponse().JSON(overview).Write(w)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	at, err := parseAt(r.URL.Query(), s.now())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	d, err := s.svc.GetDashboard(r.Context(), at)
	if err != nil {
		s.fail(w, r, "get dashboard", err)
		return
	}
	NewResponse().JSON(d).Write(w)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.svc.ListTransactions(r.Context())
	if err != nil {
		s.fail(w, r, "list transactions", err)
		return
	}
	NewResponse().JSON(txs).Write(w)
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.svc.ListProjects(r.Context())
	if err != nil {
		s.fail(w, r, "list projects", err)
		return
	}
	NewResponse().JSON(projects).Write(w)
}

// Transactions.

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	p, ok := parseBody(w, r)
	if !ok {
		return
	}
	in := p.TransactionInput()
	// Blank fields are filled from the session's quick-entry template.
	form := s.sessions.Apply(s.sessionID(w, r), session.Form{Type: in.Type, Category: in.Category, Note: in.Note})
	in.Type, in.Category, in.Note = form.Type, form.Category, form.Note

	tx, err := s.svc.SubmitTransaction(r.Context(), in)
	if err != nil {
		s.fail(w, r, "submit transaction", err)
		return
	}
	NewResponse().Status(http.StatusCreated).
		TriggerLedgerChanged(core.TransactionsTable, amqp.OpCreate).
		TriggerSuccessNotification("Transaction saved").
		JSON(tx).Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	row, err := parseRow(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	p, ok := parseBody(w, r)
	if !ok {
		return
	}
	if err := s.svc.UpdateTransaction(r.Context(), row, p.TransactionEditInput()); err != nil {
		s.fail(w, r, "update transaction", err)
		return
	}
	s.changed(w, core.TransactionsTable, amqp.OpUpdate, "Transaction updated")
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	row, err := parseRow(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if err := s.svc.DeleteTransaction(r.Context(), row); err != nil {
		s.fail(w, r, "delete transaction", err)
		return
	}
	s.changed(w, core.TransactionsTable, amqp.OpDelete, "Transaction deleted")
}

func (s *Server) handleUpdateTransactionByID(w http.ResponseWriter, r *http.Request) {
	p, ok := parseBody(w, r)
	if !ok {
		return
	}
	if err := s.svc.UpdateTransactionByID(r.Context(), r.PathValue("id"), p.TransactionEditInput()); err != nil {
		s.fail(w, r, "update transaction by id", err)
		return
	}
	s.changed(w, core.TransactionsTable, amqp.OpUpdate, "Transaction updated")
}

func (s *Server) handleDeleteTransactionByID(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteTransactionByID(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, r, "delete transaction by id", err)
		return
	}
	s.changed(w, core.TransactionsTable, amqp.OpDelete, "Transaction deleted")
}

// Projects.

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	p, ok := parseBody(w, r)
	if !ok {
		return
	}
	project, err := s.svc.SubmitProject(r.Context(), p.ProjectInput())
	if err != nil {
		s.fail(w, r, "submit project", err)
		return
	}
	NewResponse().Status(http.StatusCreated).
		TriggerLedgerChanged(core.ProjectsTable, amqp.OpCreate).
		TriggerSuccessNotification("Project created").
		JSON(project).Write(w)
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	row, err := parseRow(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	p, ok := parseBody(w, r)
	if !ok {
		return
	}
	if err := s.svc.UpdateProject(r.Context(), row, p.ProjectFieldsInput()); err != nil {
		s.fail(w, r, "update project", err)
		return
	}
	s.changed(w, core.ProjectsTable, amqp.OpUpdate, "Project updated")
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	row, err := parseRow(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	if err := s.svc.DeleteProject(r.Context(), row); err != nil {
		s.fail(w, r, "delete project", err)
		return
	}
	s.changed(w, core.ProjectsTable, amqp.OpDelete, "Project deleted")
}

func (s *Server) handleUpdateProjectByID(w http.ResponseWriter, r *http.Request) {
	p, ok := parseBody(w, r)
	if !ok {
		return
	}
	if err := s.svc.UpdateProjectByID(r.Context(), r.PathValue("id"), p.ProjectFieldsInput()); err != nil {
		s.fail(w, r, "update project by id", err)
		return
	}
	s.changed(w, core.ProjectsTable, amqp.OpUpdate, "Project updated")
}

func (s *Server) handleDeleteProjectByID(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteProjectByID(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, r, "delete project by id", err)
		return
	}
	s.changed(w, core.ProjectsTable, amqp.OpDelete, "Project deleted")
}

func parseBody(w http.ResponseWriter, r *http.Request) (*RequestBodyParser, bool) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("malformed request body").Write(w)
		return nil, false
	}
	return p, true
}

func (s *Server) changed(w http.ResponseWriter, table, op, message string) {
	NewResponse().Status(http.StatusOK).
		TriggerLedgerChanged(table, op).
		TriggerSuccessNotification(message).
		JSON(map[string]string{"status": "ok"}).Write(w)
}

// fail logs and renders an error. Client errors log at warn, store failures
// at error.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, what string, err error) {
	resp := ErrorFor(err)
	fields := log.NewFields().WithError(err).WithHTTPRequest(r.Method, r.URL.Path, "", "").ToSlice()
	if resp.statusCode >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "Failed to "+what, fields...)
	} else {
		s.logger.WarnContext(r.Context(), "Rejected "+what, fields...)
	}
	resp.Write(w)
}
