package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"budgetwise/internal/export"
	applog "budgetwise/internal/log"
	"budgetwise/internal/services"
)

func (s *Server) handleMonthlySummary(w http.ResponseWriter, r *http.Request) {
	p, err := parsePeriod(r.URL.Query(), s.now())
	if err != nil {
		writeMsg(w, http.StatusBadRequest, err.Error())
		return
	}
	sum, err := s.deps.Reports.MonthlySummary(r.Context(), userID(r), p)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newSummaryView(sum))
}

// handleStats reports per-category spending statistics over ?months= months
// ending at ?month=&year=.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	end, err := parsePeriod(q, s.now())
	if err != nil {
		writeMsg(w, http.StatusBadRequest, err.Error())
		return
	}
	months := services.DefaultStatsMonths
	if v := strings.TrimSpace(q.Get("months")); v != "" {
		months, err = strconv.Atoi(v)
		if err != nil || months < 1 || months > services.MaxStatsMonths {
			writeMsg(w, http.StatusBadRequest, fmt.Sprintf("months must be between 1 and %d", services.MaxStatsMonths))
			return
		}
	}

	stats, err := s.deps.Reports.Stats(r.Context(), userID(r), end, months)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	view := statsView{
		Month:      end.Month,
		Year:       end.Year,
		Months:     months,
		Categories: make([]categoryStatsView, 0, len(stats)),
	}
	for _, c := range stats {
		view.Categories = append(view.Categories, categoryStatsView{
			Category: c.Category,
			Mean:     c.Mean,
			StdDev:   c.StdDev,
			Latest:   c.Latest,
			ZScore:   c.ZScore,
		})
	}
	writeJSON(w, http.StatusOK, view)
}

// handleMonthlyReport streams the month as an XLSX workbook.
func (s *Server) handleMonthlyReport(w http.ResponseWriter, r *http.Request) {
	p, err := parsePeriod(r.URL.Query(), s.now())
	if err != nil {
		writeMsg(w, http.StatusBadRequest, err.Error())
		return
	}
	report, err := s.deps.Reports.Monthly(r.Context(), userID(r), p)
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteMonthlyReport(&buf, report); err != nil {
		s.serverError(w, r, err)
		return
	}
	zerolog.Ctx(r.Context()).Info().
		Str(applog.FieldOperation, applog.OpExport).
		Str(applog.FieldPeriod, p.String()).
		Int("bytes", buf.Len()).
		Msg("Monthly report exported")

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="budgetwise-%s.xlsx"`, p))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
