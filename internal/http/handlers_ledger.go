package http

import (
	"net/http"

	"budgetlens/internal/core"
	applog "budgetlens/internal/log"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	p, ok := s.reportParams(w, r)
	if !ok {
		return
	}
	txs, err := s.ledger.ListTransactions(r.Context(), p.Year)
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	NewResponse().JSON(txs).Write(w)
}

// handleCreateTransaction records one ledger entry from a JSON or form body.
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	body := NewRequestBodyParser(r)
	if err := body.Parse(); err != nil {
		writeError(w, r, applog.OpParse, err)
		return
	}
	t, err := transactionFromBody(body, dateOf(s.now()))
	if err != nil {
		writeError(w, r, applog.OpParse, err)
		return
	}

	saved, err := s.ledger.AddTransaction(r.Context(), t)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	s.logger.LogTransactionCreated(r.Context(), saved.ID, saved.Category, core.FormatAmount(saved.Amount),
		saved.Date.Year(), saved.Date.Month())

	NewResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/transactions/"+saved.ID).
		Changed(saved.Date.Year(), saved.Date.Month()).
		JSON(saved).
		Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.ledger.DeleteTransaction(r.Context(), id); err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Transaction deleted",
		applog.FieldTransactionID, id,
		applog.FieldOperation, applog.OpDelete)
	NewResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.ledger.ListBudgets(r.Context())
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	if budgets == nil {
		budgets = []core.BudgetDefinition{}
	}
	NewResponse().JSON(budgets).Write(w)
}

// handlePutBudget creates a budget (POST) or replaces the one named in the
// path (PUT).
func (s *Server) handlePutBudget(w http.ResponseWriter, r *http.Request) {
	body := NewRequestBodyParser(r)
	if err := body.Parse(); err != nil {
		writeError(w, r, applog.OpParse, err)
		return
	}
	b, err := budgetFromBody(body, dateOf(s.now()))
	if err != nil {
		writeError(w, r, applog.OpParse, err)
		return
	}

	status := http.StatusCreated
	if id := chi.URLParam(r, "id"); id != "" {
		b.ID = id
		status = http.StatusOK
	}

	saved, err := s.ledger.PutBudget(r.Context(), b)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Budget saved",
		applog.FieldBudgetID, saved.ID,
		applog.FieldCategory, saved.Category,
		applog.FieldAmount, core.FormatAmount(saved.Amount))

	NewResponse().
		Status(status).
		Changed(saved.StartDate.Year(), 0).
		JSON(saved).
		Write(w)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.ledger.DeleteBudget(r.Context(), id); err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Budget deleted",
		applog.FieldBudgetID, id,
		applog.FieldOperation, applog.OpDelete)
	NewResponse().Status(http.StatusNoContent).Write(w)
}
