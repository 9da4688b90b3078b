// Package http assembles the full HTTP surface from the per-domain handlers.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"docket/internal/admin"
	"docket/internal/audit"
	"docket/internal/catalog"
	docHandler "docket/internal/documents/handler"
	"docket/internal/platform/middleware"
	"docket/internal/platform/ratelimit"
	verifHandler "docket/internal/verification/handler"
	"docket/internal/workspace"
	wsHandler "docket/internal/workspace/handler"
)

// Deps is everything the router needs to mount.
type Deps struct {
	Logger         *slog.Logger
	Manager        *workspace.Manager
	Catalog        *catalog.Catalog
	AuditStore     audit.Store
	RequestTimeout time.Duration
	RateLimiter    *ratelimit.Middleware
}

// NewRouter wires the middleware chain and every handler onto one chi mux.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.Timeout(deps.RequestTimeout))
	if deps.RateLimiter != nil {
		r.Use(deps.RateLimiter.Limit)
	}
	r.Use(middleware.ContentTypeJSON)

	wsHandler.New(deps.Manager, deps.Logger).Register(r)
	docHandler.New(deps.Manager, deps.Logger).Register(r)
	verifHandler.New(deps.Manager, deps.Logger).Register(r)
	admin.New(deps.Catalog, deps.AuditStore, deps.Logger).Register(r)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}
