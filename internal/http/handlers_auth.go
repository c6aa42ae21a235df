package http

import (
	"errors"
	"net/http"

	"budgetwise/internal/auth"
	"budgetwise/internal/core"
	"budgetwise/internal/services"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMsg(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	token, err := s.deps.Users.Register(r.Context(), sanitizeInput(req.Name), req.Email, req.Password)
	switch {
	case errors.Is(err, core.ErrEmailTaken):
		writeMsg(w, http.StatusBadRequest, "User already exists")
	case isValidation(err):
		writeMsg(w, http.StatusBadRequest, err.Error())
	case err != nil:
		s.serverError(w, r, err)
	default:
		writeJSON(w, http.StatusCreated, tokenResponse{Token: token})
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMsg(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	token, err := s.deps.Users.Login(r.Context(), req.Email, req.Password)
	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		writeMsg(w, http.StatusBadRequest, "Invalid credentials")
	case err != nil:
		s.serverError(w, r, err)
	default:
		writeJSON(w, http.StatusOK, tokenResponse{Token: token})
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Users.Logout(r.Context(), r.Header.Get(auth.HeaderToken)); err != nil {
		s.serverError(w, r, err)
		return
	}
	writeMsg(w, http.StatusOK, "Logged out")
}
