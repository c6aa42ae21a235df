package http

// Request decoding: JSON bodies, path ids and month/year query parameters.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"budgetwise/internal/core"
	"budgetwise/internal/services"
)

var errBadRequestBody = errors.New("invalid request body")

// decodeJSON reads a single JSON object from the request body.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errBadRequestBody
		}
		return fmt.Errorf("%w: %v", errBadRequestBody, err)
	}
	return nil
}

type expenseRequest struct {
	Amount      *core.Money `json:"amount"`
	Category    *string     `json:"category"`
	Description *string     `json:"description"`
	Utility     *int        `json:"utility"`
	Date        *string     `json:"date"`
}

func (req expenseRequest) input() services.ExpenseInput {
	in := services.ExpenseInput{
		Category:    sanitizeInput(deref(req.Category)),
		Description: sanitizeInput(deref(req.Description)),
		Date:        parseDate(deref(req.Date)),
	}
	if req.Amount != nil {
		in.Amount = *req.Amount
	}
	if req.Utility != nil {
		in.Utility = *req.Utility
	}
	return in
}

func (req expenseRequest) patch() services.ExpensePatch {
	p := services.ExpensePatch{
		Amount:      req.Amount,
		Category:    sanitized(req.Category),
		Description: sanitized(req.Description),
		Utility:     req.Utility,
	}
	// A zero utility keeps the stored priority.
	if p.Utility != nil && *p.Utility == 0 {
		p.Utility = nil
	}
	if d := parseDate(deref(req.Date)); !d.IsZero() {
		p.Date = &d
	}
	return p
}

type incomeRequest struct {
	Amount      *core.Money `json:"amount"`
	Source      *string     `json:"source"`
	Description *string     `json:"description"`
	Date        *string     `json:"date"`
}

func (req incomeRequest) input() services.IncomeInput {
	in := services.IncomeInput{
		Source:      sanitizeInput(deref(req.Source)),
		Description: sanitizeInput(deref(req.Description)),
		Date:        parseDate(deref(req.Date)),
	}
	if req.Amount != nil {
		in.Amount = *req.Amount
	}
	return in
}

func (req incomeRequest) patch() services.IncomePatch {
	p := services.IncomePatch{
		Amount:      req.Amount,
		Source:      sanitized(req.Source),
		Description: sanitized(req.Description),
	}
	if d := parseDate(deref(req.Date)); !d.IsZero() {
		p.Date = &d
	}
	return p
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04", "2006-01-02"}

// parseDate accepts an RFC 3339 timestamp or a plain YYYY-MM-DD day. Anything
// else yields the zero time, which the services treat as "now" or "unchanged".
func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", chi.URLParam(r, "id"))
	}
	return id, nil
}

// parsePeriodFilter reads the optional month and year query parameters.
func parsePeriodFilter(q url.Values) (core.PeriodFilter, error) {
	var f core.PeriodFilter
	if v := strings.TrimSpace(q.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return f, core.ErrInvalidMonth
		}
		f.Month = m
	}
	if v := strings.TrimSpace(q.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 || y > 9999 {
			return f, core.ErrInvalidYear
		}
		f.Year = y
	}
	return f, nil
}

// parsePeriod reads month and year, defaulting each to the current UTC month.
func parsePeriod(q url.Values, now time.Time) (core.Period, error) {
	f, err := parsePeriodFilter(q)
	if err != nil {
		return core.Period{}, err
	}
	p := core.PeriodOf(now)
	if f.Month != 0 {
		p.Month = f.Month
	}
	if f.Year != 0 {
		p.Year = f.Year
	}
	return p, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

func sanitized(s *string) *string {
	if s == nil {
		return nil
	}
	v := sanitizeInput(*s)
	return &v
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
