package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"budgetwise/internal/core"
)

type msgResponse struct {
	Msg string `json:"msg"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMsg(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, msgResponse{Msg: msg})
}

// serverError logs err against the request and answers 500 without leaking it.
func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	zerolog.Ctx(r.Context()).Error().Err(err).Msg("Request failed")
	writeMsg(w, http.StatusInternalServerError, "Server error")
}

var validationErrors = []error{
	core.ErrInvalidAmount,
	core.ErrInvalidLimit,
	core.ErrInvalidUtility,
	core.ErrInvalidMonth,
	core.ErrInvalidYear,
	core.ErrEmptyCategory,
	core.ErrEmptySource,
	core.ErrEmptyName,
	core.ErrInvalidEmail,
	core.ErrWeakPassword,
	core.ErrZeroDate,
	core.ErrDescriptionLong,
	core.ErrLabelLong,
}

func isValidation(err error) bool {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// ledgerError maps an expense or income service error onto the response.
// notFound is the message for a missing record.
func (s *Server) ledgerError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeMsg(w, http.StatusNotFound, notFound)
	case errors.Is(err, core.ErrNotAuthorized):
		writeMsg(w, http.StatusUnauthorized, "Not authorized")
	case isValidation(err):
		writeMsg(w, http.StatusBadRequest, err.Error())
	default:
		s.serverError(w, r, err)
	}
}
