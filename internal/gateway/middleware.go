package gateway

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// withAuth wraps a handler with bearer token authentication. When no token
// is configured, authentication is disabled and requests pass through.
func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(responseWriter http.ResponseWriter, request *http.Request) {
		if s.cfg.AuthDisabled() {
			next(responseWriter, request)

			return
		}

		authHeader := request.Header.Get("Authorization")
		if authHeader == "" {
			s.log.Warn("Missing authorization header from %s", request.RemoteAddr)
			writeError(responseWriter, http.StatusUnauthorized, "missing authorization header")

			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			s.log.Warn("Invalid authorization format from %s", request.RemoteAddr)
			writeError(responseWriter, http.StatusUnauthorized, "invalid authorization format")

			return
		}

		if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(s.cfg.HTTP.BearerToken)) != 1 {
			s.log.Warn("Invalid bearer token from %s", request.RemoteAddr)
			writeError(responseWriter, http.StatusUnauthorized, "invalid token")

			return
		}

		next(responseWriter, request)
	}
}
