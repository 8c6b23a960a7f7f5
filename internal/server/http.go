package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/groblegark/tangle/internal/model"
	"github.com/groblegark/tangle/internal/store"
)

// NewHTTPHandler returns an http.Handler with all routes registered. Every
// route except health and the register/login pair requires a valid
// Authorization: Bearer <session token> header.
func (s *TangleServer) NewHTTPHandler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/auth/register", s.handleRegister)
	mux.HandleFunc("POST /v1/auth/login", s.handleLogin)
	mux.HandleFunc("POST /v1/auth/logout", s.handleLogout)
	mux.HandleFunc("GET /v1/auth/me", s.handleMe)

	mux.HandleFunc("POST /v1/tasks", s.handleCreateTask)
	mux.HandleFunc("GET /v1/tasks", s.handleListTasks)
	mux.HandleFunc("GET /v1/tasks/{id}", s.handleGetTask)
	mux.HandleFunc("PATCH /v1/tasks/{id}", s.handleUpdateTask)
	mux.HandleFunc("DELETE /v1/tasks/{id}", s.handleDeleteTask)
	mux.HandleFunc("POST /v1/tasks/{id}/toggle", s.handleToggleTask)
	mux.HandleFunc("GET /v1/tasks/{id}/related", s.handleRelatedTasks)
	mux.HandleFunc("PUT /v1/tasks/{id}/tags", s.handleSetTaskTags)
	mux.HandleFunc("POST /v1/tasks/{id}/tags/{tagID}", s.handleAddTaskTag)
	mux.HandleFunc("DELETE /v1/tasks/{id}/tags/{tagID}", s.handleRemoveTaskTag)

	mux.HandleFunc("POST /v1/tags", s.handleCreateTag)
	mux.HandleFunc("GET /v1/tags", s.handleListTags)
	mux.HandleFunc("GET /v1/tags/autocomplete", s.handleAutocompleteTags)
	mux.HandleFunc("GET /v1/tags/{id}", s.handleGetTag)
	mux.HandleFunc("PATCH /v1/tags/{id}", s.handleUpdateTag)
	mux.HandleFunc("DELETE /v1/tags/{id}", s.handleDeleteTag)
	mux.HandleFunc("POST /v1/tags/{id}/merge", s.handleMergeTags)
	mux.HandleFunc("GET /v1/tags/{id}/related", s.handleRelatedTags)

	mux.HandleFunc("GET /api/graph/data/{$}", s.handleGraphData)
	mux.HandleFunc("GET /v1/stats", s.handleGetStats)
	mux.HandleFunc("GET /v1/events", s.handleListEvents)
	mux.HandleFunc("GET /v1/events/stream", s.handleEventStream)

	mux.HandleFunc("GET /v1/health", s.handleHealth)

	return s.sessionMiddleware(mux)
}

// handleHealth handles GET /v1/health.
func (s *TangleServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeStoreError maps service and store errors onto HTTP statuses. Internal
// errors are logged server-side and returned as an opaque message.
func (s *TangleServer) writeStoreError(w http.ResponseWriter, err error, noun string) {
	var ie inputError
	var ve *model.ValidationError
	switch {
	case errors.As(err, &ie):
		writeError(w, http.StatusBadRequest, ie.Error())
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  ve.Error(),
			"fields": ve.Errors,
		})
	case errors.Is(err, sql.ErrNoRows):
		writeError(w, http.StatusNotFound, noun+" not found")
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, noun+" already exists")
	default:
		s.logger.Error("request failed", "noun", noun, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// decodeBody decodes a JSON request body into dst.
func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return inputError("invalid JSON body")
	}
	return nil
}

type ctxKey int

const userKey ctxKey = iota

// userFrom returns the authenticated user attached by sessionMiddleware.
func userFrom(ctx context.Context) *model.User {
	u, _ := ctx.Value(userKey).(*model.User)
	return u
}
