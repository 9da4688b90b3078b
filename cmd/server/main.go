package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"docket/internal/audit"
	"docket/internal/catalog"
	docmetrics "docket/internal/documents/metrics"
	"docket/internal/platform/config"
	"docket/internal/platform/httpserver"
	"docket/internal/platform/logger"
	"docket/internal/platform/ratelimit"
	httptransport "docket/internal/transport/http"
	vmetrics "docket/internal/verification/metrics"
	"docket/internal/workspace"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	cat := catalog.New()
	catalog.Seed(cat)

	auditStore := audit.NewInMemoryStore()
	inbox := make(chan audit.Event, cfg.AuditBuffer)
	worker := audit.NewWorker(auditStore, inbox)
	publisher := audit.NewPublisher(inbox, log)

	workerCtx, stopWorker := context.WithCancel(context.Background())
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		worker.Run(workerCtx)
	}()

	manager := workspace.NewManager(cat, workspace.Deps{
		Logger:       log,
		Auditor:      publisher,
		DocMetrics:   docmetrics.New(),
		VerifMetrics: vmetrics.New(),
	})

	limiter := ratelimit.NewMiddleware(ratelimit.NewStore(cfg.RateWindow), cfg.RateLimit, log)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:         log,
		Manager:        manager,
		Catalog:        cat,
		AuditStore:     auditStore,
		RequestTimeout: cfg.RequestTimeout,
		RateLimiter:    limiter,
	})

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting docket server", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err.Error())
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err.Error())
	}

	stopWorker()
	<-workerDone
}
