package server

import (
	"net/http"

	"github.com/cloo-solutions/financelm/internal/api/handlers"
	"github.com/cloo-solutions/financelm/internal/api/middleware"
	"github.com/cloo-solutions/financelm/internal/telemetry"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes int64 = 5 * 1024 * 1024

type RouterConfig struct {
	HealthHandler   *handlers.HealthHandler
	DocumentHandler *handlers.DocumentHandler
	QAHandler       *handlers.QAHandler

	// APIToken protects the document and QA routes when set.
	APIToken       string
	RateLimitRPS   float64
	RateLimitBurst int
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.Metrics)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health/live", cfg.HealthHandler.Live)
	r.Get("/health/ready", cfg.HealthHandler.Ready)
	r.Get("/version", cfg.HealthHandler.Version)
	r.Method(http.MethodGet, "/metrics", telemetry.MetricsHandler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.BearerToken(cfg.APIToken))
		r.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))

		r.Route("/documents", func(r chi.Router) {
			r.Post("/ingest", cfg.DocumentHandler.Ingest)
			r.Get("/", cfg.DocumentHandler.List)
			r.Get("/{id}", cfg.DocumentHandler.Get)
		})

		r.Post("/qa", cfg.QAHandler.Ask)
	})

	return r
}
