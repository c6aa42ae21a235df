package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"budgetwise/internal/budget"
	"budgetwise/internal/core"
	applog "budgetwise/internal/log"
)

const (
	msgOptimizeMissing = "Month, year and budget are required parameters"
	msgOptimizeInvalid = "Month, year and budget must be valid numbers"
	msgOptimizeFailed  = "Failed to optimize budget"
)

// handleOptimize allocates ?budget= for ?month=&year= from the previous
// month's spending of the authenticated user.
func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	monthStr := strings.TrimSpace(q.Get("month"))
	yearStr := strings.TrimSpace(q.Get("year"))
	budgetStr := strings.TrimSpace(q.Get("budget"))
	if monthStr == "" || yearStr == "" || budgetStr == "" {
		writeJSON(w, http.StatusBadRequest, optimizeFailure{Message: msgOptimizeMissing})
		return
	}

	month, errMonth := strconv.Atoi(monthStr)
	year, errYear := strconv.Atoi(yearStr)
	total, errBudget := core.ParseMoney(budgetStr)
	if errMonth != nil || errYear != nil || errBudget != nil {
		writeJSON(w, http.StatusBadRequest, optimizeFailure{Message: msgOptimizeInvalid})
		return
	}
	period, err := core.NewPeriod(year, month)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, optimizeFailure{Message: msgOptimizeInvalid})
		return
	}

	method := budget.Method(strings.TrimSpace(q.Get("method")))
	plan, err := s.deps.Planner.Optimize(r.Context(), userID(r), period, total, method)
	if err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).
			Str(applog.FieldOptimMethod, string(method)).
			Str(applog.FieldPeriod, period.String()).
			Msg("Budget optimization failed")
		writeJSON(w, http.StatusInternalServerError, optimizeFailure{
			Message: msgOptimizeFailed,
			Error:   err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, newOptimizeResponse(plan))
}
