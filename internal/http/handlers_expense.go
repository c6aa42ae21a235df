package http

import (
	"net/http"

	"budgetwise/internal/core"
)

const expenseNotFound = "Expense not found"

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMsg(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	e, err := s.deps.Expenses.Create(r.Context(), userID(r), req.input())
	if err != nil {
		s.ledgerError(w, r, err, expenseNotFound)
		return
	}
	writeJSON(w, http.StatusCreated, newExpenseView(e))
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	s.listExpenses(w, r, core.PeriodFilter{})
}

func (s *Server) handleMonthlyExpenses(w http.ResponseWriter, r *http.Request) {
	f, err := parsePeriodFilter(r.URL.Query())
	if err != nil {
		writeMsg(w, http.StatusBadRequest, err.Error())
		return
	}
	s.listExpenses(w, r, f)
}

func (s *Server) listExpenses(w http.ResponseWriter, r *http.Request, f core.PeriodFilter) {
	list, err := s.deps.Expenses.List(r.Context(), userID(r), f)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, expenseViews(list))
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeMsg(w, http.StatusNotFound, expenseNotFound)
		return
	}
	var req expenseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMsg(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	e, err := s.deps.Expenses.Update(r.Context(), userID(r), id, req.patch())
	if err != nil {
		s.ledgerError(w, r, err, expenseNotFound)
		return
	}
	writeJSON(w, http.StatusOK, newExpenseView(e))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeMsg(w, http.StatusNotFound, expenseNotFound)
		return
	}
	if err := s.deps.Expenses.Delete(r.Context(), userID(r), id); err != nil {
		s.ledgerError(w, r, err, expenseNotFound)
		return
	}
	writeMsg(w, http.StatusOK, "Expense deleted successfully")
}
