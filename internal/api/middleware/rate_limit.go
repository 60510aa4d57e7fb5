package middleware

import (
	"net/http"

	"github.com/cloo-solutions/financelm/internal/api"
	"github.com/cloo-solutions/financelm/internal/domain"
	"golang.org/x/time/rate"
)

// RateLimit applies one token bucket to every request it wraps. A
// non-positive rps disables limiting.
func RateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if rps <= 0 {
			return next
		}
		if burst < 1 {
			burst = 1
		}
		limiter := rate.NewLimiter(rate.Limit(rps), burst)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Retry-After", "1")
				api.ErrorWithCode(w, http.StatusTooManyRequests, domain.ErrCodeRateLimited, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
