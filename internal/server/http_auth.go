package server

import (
	"errors"
	"net/http"

	"github.com/groblegark/tangle/internal/auth"
	"github.com/groblegark/tangle/internal/model"
	"github.com/groblegark/tangle/internal/store"
)

type registerInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// sessionResponse is returned by register and login.
type sessionResponse struct {
	User      *model.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt string      `json:"expires_at"`
}

func newSessionResponse(user *model.User, session *model.Session) sessionResponse {
	return sessionResponse{
		User:      user,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

// handleRegister handles POST /v1/auth/register.
func (s *TangleServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in registerInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, session, err := s.auth.Register(r.Context(), in.Username, in.Email, in.Password)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			writeError(w, http.StatusConflict, "username or email already taken")
			return
		}
		s.writeStoreError(w, err, "user")
		return
	}

	writeJSON(w, http.StatusCreated, newSessionResponse(user, session))
}

// handleLogin handles POST /v1/auth/login.
func (s *TangleServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginInput
	if err := decodeBody(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, session, err := s.auth.Login(r.Context(), in.Username, in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		s.writeStoreError(w, err, "session")
		return
	}

	writeJSON(w, http.StatusOK, newSessionResponse(user, session))
}

// handleLogout handles POST /v1/auth/logout. Deleting an already-deleted
// session is not an error.
func (s *TangleServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	token, err := bearerToken(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	if err := s.auth.Logout(r.Context(), token); err != nil {
		s.writeStoreError(w, err, "session")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleMe handles GET /v1/auth/me.
func (s *TangleServer) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userFrom(r.Context()))
}
