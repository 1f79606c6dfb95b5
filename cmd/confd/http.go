package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yangconf/confd/internal/logger"
)

// newHTTPRouter builds the observability-only HTTP surface: Prometheus
// scraping and a liveness probe. Grounded on the teacher's
// pkg/controlplane/api/router.go chi middleware stack (RequestID,
// RealIP, Recoverer, Timeout), trimmed to the two unauthenticated
// routes this agent exposes — it has no REST API of its own, only the
// framed IPC/NETCONF RPC surface in rpc.go.
func (a *agent) newHTTPRouter(metricsPath string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get(metricsPath, promhttp.HandlerFor(a.metrics.Registry(), promhttp.HandlerOpts{}).ServeHTTP)
	r.Get("/healthz", a.healthz)
	return r
}

func (a *agent) healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// serveHTTP starts the metrics/health listener in the background and
// returns a shutdown func honouring ctx's deadline.
func serveHTTP(addr string, handler http.Handler) (shutdown func(context.Context) error) {
	srv := &http.Server{Addr: addr, Handler: handler}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server failed", "addr", addr, "error", err)
		}
	}()
	return srv.Shutdown
}
