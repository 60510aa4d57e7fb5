package middleware

import (
	"net/http"

	"github.com/cloo-solutions/financelm/internal/telemetry"
)

// Metrics counts responses by status class.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &responseRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		telemetry.RecordHTTPRequest(rec.statusCode())
	})
}
