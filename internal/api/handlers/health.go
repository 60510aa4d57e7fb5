package handlers

import (
	"context"
	"log"
	"net/http"
	"runtime/debug"

	"github.com/cloo-solutions/financelm/internal/api"
	"github.com/cloo-solutions/financelm/internal/domain"
)

// Pinger checks that the backing store answers queries.
type Pinger interface {
	Ping(ctx context.Context) error
}

// VersionInfo identifies the running build.
type VersionInfo struct {
	AppName     string `json:"app_name"`
	AppVersion  string `json:"app_version"`
	GitSHA      string `json:"git_sha"`
	Environment string `json:"environment"`
}

type HealthHandler struct {
	db   Pinger
	info VersionInfo
}

// NewHealthHandler creates a HealthHandler. An empty GitSHA is filled from
// the binary's VCS build info.
func NewHealthHandler(db Pinger, info VersionInfo) *HealthHandler {
	if info.GitSHA == "" {
		info.GitSHA = buildRevision()
	}
	return &HealthHandler{db: db, info: info}
}

func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		log.Printf("readiness check failed: %v", err)
		api.HandleError(w, domain.ErrStoreUnavailable)
		return
	}
	api.Success(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *HealthHandler) Version(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, h.info)
}

func buildRevision() string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	for _, s := range bi.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			if len(s.Value) > 7 {
				return s.Value[:7]
			}
			return s.Value
		}
	}
	return "unknown"
}
