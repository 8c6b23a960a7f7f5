package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/groblegark/tangle/internal/auth"
)

// exemptRoutes are reachable without a session: health and the two endpoints
// that exist to obtain a session in the first place.
var exemptRoutes = map[string]string{
	"/v1/health":        http.MethodGet,
	"/v1/auth/register": http.MethodPost,
	"/v1/auth/login":    http.MethodPost,
}

// sessionMiddleware resolves the Authorization: Bearer <token> header to a
// user via the session service and attaches the user to the request context.
// An unknown or expired token gets 401, same as a missing one.
func (s *TangleServer) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if method, ok := exemptRoutes[r.URL.Path]; ok && r.Method == method {
			next.ServeHTTP(w, r)
			return
		}

		token, err := bearerToken(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}

		user, err := s.auth.Authenticate(r.Context(), token)
		if err != nil {
			if errors.Is(err, auth.ErrUnauthenticated) {
				writeError(w, http.StatusUnauthorized, "invalid or expired session")
				return
			}
			s.logger.Error("session lookup failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		ctx := context.WithValue(r.Context(), userKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errors.New("missing authorization header")
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimPrefix(header, "Bearer ")
	if token == "" {
		return "", errors.New("empty bearer token")
	}
	return token, nil
}
