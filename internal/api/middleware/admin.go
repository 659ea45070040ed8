package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/a506488043/custom-card/internal/api/handlers"
)

// AdminAuthMiddleware guards administrative routes with a static bearer token
type AdminAuthMiddleware struct {
	token []byte
}

// NewAdminAuthMiddleware creates the middleware. An empty token rejects
// every request, so admin routes are closed unless a token is configured.
func NewAdminAuthMiddleware(token string) *AdminAuthMiddleware {
	return &AdminAuthMiddleware{token: []byte(token)}
}

// RequireAdmin returns 401 unless the request carries the configured token
func (m *AdminAuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(m.token) == 0 {
			handlers.WriteError(w, http.StatusUnauthorized, "AuthRequired", "Admin access is not configured")
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			handlers.WriteError(w, http.StatusUnauthorized, "AuthRequired", "Missing Authorization header")
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			handlers.WriteError(w, http.StatusUnauthorized, "AuthRequired", "Invalid Authorization header format. Expected: Bearer <token>")
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if subtle.ConstantTimeCompare([]byte(token), m.token) != 1 {
			slog.Warn("[CARDS-API] rejected admin request", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
			handlers.WriteError(w, http.StatusUnauthorized, "AuthRequired", "Invalid token")
			return
		}

		next.ServeHTTP(w, r)
	})
}
