package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/cloo-solutions/financelm/internal/api"
	"github.com/cloo-solutions/financelm/internal/domain"
)

// BearerToken requires "Authorization: Bearer <token>". An empty token
// disables the check.
func BearerToken(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				api.ErrorWithCode(w, http.StatusUnauthorized, domain.ErrCodeUnauthorized, "missing authorization header")
				return
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				api.ErrorWithCode(w, http.StatusUnauthorized, domain.ErrCodeUnauthorized, "invalid authorization format")
				return
			}

			presented := strings.TrimPrefix(authHeader, "Bearer ")
			if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
				api.ErrorWithCode(w, http.StatusUnauthorized, domain.ErrCodeUnauthorized, "invalid api token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
