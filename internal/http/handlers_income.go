package http

import (
	"net/http"

	"budgetwise/internal/core"
)

const incomeNotFound = "Income not found"

func (s *Server) handleCreateIncome(w http.ResponseWriter, r *http.Request) {
	var req incomeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMsg(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	i, err := s.deps.Incomes.Create(r.Context(), userID(r), req.input())
	if err != nil {
		s.ledgerError(w, r, err, incomeNotFound)
		return
	}
	writeJSON(w, http.StatusCreated, newIncomeView(i))
}

func (s *Server) handleListIncomes(w http.ResponseWriter, r *http.Request) {
	s.listIncomes(w, r, core.PeriodFilter{})
}

func (s *Server) handleMonthlyIncomes(w http.ResponseWriter, r *http.Request) {
	f, err := parsePeriodFilter(r.URL.Query())
	if err != nil {
		writeMsg(w, http.StatusBadRequest, err.Error())
		return
	}
	s.listIncomes(w, r, f)
}

func (s *Server) listIncomes(w http.ResponseWriter, r *http.Request, f core.PeriodFilter) {
	list, err := s.deps.Incomes.List(r.Context(), userID(r), f)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, incomeViews(list))
}

func (s *Server) handleUpdateIncome(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeMsg(w, http.StatusNotFound, incomeNotFound)
		return
	}
	var req incomeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMsg(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	i, err := s.deps.Incomes.Update(r.Context(), userID(r), id, req.patch())
	if err != nil {
		s.ledgerError(w, r, err, incomeNotFound)
		return
	}
	writeJSON(w, http.StatusOK, newIncomeView(i))
}

func (s *Server) handleDeleteIncome(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeMsg(w, http.StatusNotFound, incomeNotFound)
		return
	}
	if err := s.deps.Incomes.Delete(r.Context(), userID(r), id); err != nil {
		s.ledgerError(w, r, err, incomeNotFound)
		return
	}
	writeMsg(w, http.StatusOK, "Income deleted successfully")
}
