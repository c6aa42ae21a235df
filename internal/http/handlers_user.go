package http

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"budgetwise/internal/core"
)

const invalidLimitMsg = "Please provide a valid positive number"

func (s *Server) handleSetExpenseLimit(w http.ResponseWriter, r *http.Request) {
	limit, ok := decodeLimit(r)
	if !ok {
		writeMsg(w, http.StatusBadRequest, invalidLimitMsg)
		return
	}
	saved, err := s.deps.Users.SetExpenseLimit(r.Context(), userID(r), limit)
	if isValidation(err) {
		writeMsg(w, http.StatusBadRequest, invalidLimitMsg)
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, limitResponse{
		Success: true,
		Limit:   saved,
		Message: "Expense limit updated successfully",
	})
}

// decodeLimit accepts only a JSON number that is zero or more.
func decodeLimit(r *http.Request) (core.Money, bool) {
	var body struct {
		Limit any `json:"limit"`
	}
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return core.Money{}, false
	}
	n, ok := body.Limit.(json.Number)
	if !ok {
		return core.Money{}, false
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil || d.IsNegative() {
		return core.Money{}, false
	}
	m, err := core.MoneyFromDecimal(d)
	if err != nil {
		return core.Money{}, false
	}
	return m, true
}

func (s *Server) handleGetExpenseLimit(w http.ResponseWriter, r *http.Request) {
	limit, err := s.deps.Users.ExpenseLimit(r.Context(), userID(r))
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, limitResponse{
		Limit:   limit,
		Message: "Expense limit retrieved successfully",
	})
}
