package server

import (
	"net/http"

	errs "github.com/jrsteele09/storyforge/internal/errors"
	"github.com/rs/zerolog/log"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// RegisterHandler creates an account. It does not log the account in.
func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeJSONError(w, "invalid request body", http.StatusBadRequest)
			return
		}

		user, err := s.accounts.Register(req.Email, req.Password, req.Name)
		switch {
		case errs.Is(err, errs.ErrValidation):
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		case errs.Is(err, errs.ErrUserExists):
			writeJSONError(w, "an account with this email already exists", http.StatusConflict)
			return
		case err != nil:
			log.Err(err).Msg("register failed")
			writeJSONError(w, "could not create account", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"message": "registered", "user": user})
	}
}

// LoginHandler exchanges email and password for a token pair.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeJSONError(w, "invalid request body", http.StatusBadRequest)
			return
		}

		resp, err := s.accounts.Login(req.Email, req.Password)
		switch {
		case errs.Is(err, errs.ErrInvalidCredentials):
			writeJSONError(w, err.Error(), http.StatusUnauthorized)
			return
		case errs.Is(err, errs.ErrUserBlocked):
			writeJSONError(w, err.Error(), http.StatusForbidden)
			return
		case err != nil:
			log.Err(err).Msg("login failed")
			writeJSONError(w, "could not issue tokens", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// RefreshTokenHandler rotates a refresh token.
func (s *Server) RefreshTokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshRequest
		if err := decodeJSON(w, r, &req); err != nil || req.RefreshToken == "" {
			writeJSONError(w, "refreshToken is required", http.StatusBadRequest)
			return
		}

		resp, err := s.accounts.Refresh(req.RefreshToken)
		switch {
		case errs.Is(err, errs.ErrInvalidRefreshToken), errs.Is(err, errs.ErrRefreshTokenExpired):
			writeUnauthorized(w, err.Error())
			return
		case err != nil:
			log.Err(err).Msg("refresh failed")
			writeJSONError(w, "could not refresh token", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// RevokeHandler revokes the access token the request carries.
func (s *Server) RevokeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, _ := r.Context().Value(ContextKeyRawToken).(string)
		if err := s.accounts.RevokeToken(raw); err != nil {
			writeUnauthorized(w, "Invalid token")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
