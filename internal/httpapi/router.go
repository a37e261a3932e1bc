// Package httpapi is the SPEC_FULL.md diagnostics surface: a thin
// read-only chi-routed HTTP API exposing /healthz, /metrics, /stations,
// and /control/history, grounded on control-plane/cmd/server's chi router
// setup (chi middleware stack, promhttp.Handler mounted at /metrics).
// This is deliberately not the out-of-scope "UI dashboard" named in §1 —
// it returns JSON, never rendered HTML.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/evstack/stationsim/internal/control"
	"github.com/evstack/stationsim/internal/worker"
)

// PoolView is the subset of worker.Pool the router needs, kept as an
// interface so this package never imports internal/station directly
// (§9's constructor-injected-seam pattern, applied to the HTTP layer).
type PoolView interface {
	Stations() []worker.StationHandle
}

// HistoryView is the subset of control.Plane the router needs.
type HistoryView interface {
	History(limit int) []control.Response
}

// NewRouter builds the diagnostics chi.Router. pool and history may be
// nil (the routes they back return an empty list rather than panicking),
// matching a harness started before any station or control-plane traffic
// exists yet.
func NewRouter(pool PoolView, history HistoryView, log *slog.Logger) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET"},
	}))
	r.Use(chimiddleware.Timeout(10 * time.Second))

	r.Get("/healthz", healthHandler())
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/stations", stationsHandler(pool))
	r.Get("/control/history", controlHistoryHandler(history))

	return r
}

func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			log.Info("http request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
		})
	}
}

func healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func stationsHandler(pool PoolView) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if pool == nil {
			writeJSON(w, http.StatusOK, []any{})
			return
		}
		handles := pool.Stations()
		snapshots := make([]any, 0, len(handles))
		for _, h := range handles {
			snapshots = append(snapshots, h.Snapshot())
		}
		writeJSON(w, http.StatusOK, snapshots)
	}
}

func controlHistoryHandler(history HistoryView) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if history == nil {
			writeJSON(w, http.StatusOK, []control.Response{})
			return
		}
		writeJSON(w, http.StatusOK, history.History(100))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
