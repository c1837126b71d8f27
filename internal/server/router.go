// Package server builds the HTTP surface over the API handlers.
package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/duynguyen020304/pz-manager-sub001/internal/handlers"
	"github.com/duynguyen020304/pz-manager-sub001/internal/middleware"
)

// NewRouter constructs a ServeMux with the API routes registered.
func NewRouter(h *handlers.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", h.HealthCheck)
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/v1/logs", h.GetLogs)
	mux.HandleFunc("GET /api/v1/logs/since", h.GetLogsSince)
	mux.HandleFunc("GET /api/v1/logs/stream", h.DrainStream)

	mux.HandleFunc("GET /api/v1/monitor/metrics", h.GetMetrics)
	mux.HandleFunc("GET /api/v1/monitor/rollup", h.GetMetricRollup)
	mux.HandleFunc("GET /api/v1/monitor/spikes", h.GetSpikes)
	mux.HandleFunc("GET /api/v1/monitor/config", h.GetMonitorConfig)
	mux.HandleFunc("PATCH /api/v1/monitor/config", h.PatchMonitorConfig)
	mux.HandleFunc("GET /api/v1/monitor/status", h.GetMonitorStatus)

	cors := middleware.CORS(middleware.DefaultCORSConfig())
	return middleware.RequestID(cors(mux))
}
