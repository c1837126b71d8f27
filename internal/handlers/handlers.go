// Package handlers implements the JSON API over the core managers.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/duynguyen020304/pz-manager-sub001/internal/httputil"
	"github.com/duynguyen020304/pz-manager-sub001/internal/ingest"
	"github.com/duynguyen020304/pz-manager-sub001/internal/models"
	"github.com/duynguyen020304/pz-manager-sub001/internal/monitor"
	"github.com/duynguyen020304/pz-manager-sub001/internal/stream"
)

const (
	defaultPageSize = 50
	maxPageSize     = 1000
)

type Handler struct {
	logs       *ingest.Manager
	streams    *stream.Manager
	monitor    *monitor.Manager
	monitorSvc *monitor.Service
}

func NewHandler(logs *ingest.Manager, streams *stream.Manager, mon *monitor.Manager, svc *monitor.Service) *Handler {
	return &Handler{logs: logs, streams: streams, monitor: mon, monitorSvc: svc}
}

// HealthCheck handles health check requests
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// GetLogs handles GET /api/v1/logs: the unified, filtered, paginated view
// over one source (default backup).
func (h *Handler) GetLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var source models.Source
	if s := q.Get("source"); s != "" {
		parsed, err := models.ParseSource(s)
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		source = parsed
	}

	pagination := httputil.ParsePagination(r, defaultPageSize, maxPageSize)
	logQuery := models.LogQuery{
		Server:    q.Get("server"),
		EventType: q.Get("event_type"),
		Username:  q.Get("username"),
		Level:     q.Get("level"),
		Limit:     pagination.Limit,
		Offset:    pagination.Offset(),
	}

	var err error
	if logQuery.From, err = parseTimeParam(q.Get("from")); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid from timestamp")
		return
	}
	if logQuery.To, err = parseTimeParam(q.Get("to")); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid to timestamp")
		return
	}

	entries, total, err := h.logs.GetUnifiedLogs(r.Context(), models.UnifiedQuery{LogQuery: logQuery, Source: source})
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to query logs")
		return
	}

	pagination.Total = total
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"data":       entries,
		"pagination": pagination,
	})
}

// GetLogsSince handles GET /api/v1/logs/since: entries newer than a
// timestamp across sources for one server, for near-real-time polling.
func (h *Handler) GetLogsSince(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	server := q.Get("server")
	if server == "" {
		httputil.WriteError(w, http.StatusBadRequest, "server is required")
		return
	}

	sources := models.AllSources()
	if raw := q.Get("sources"); raw != "" {
		sources = sources[:0]
		for _, s := range strings.Split(raw, ",") {
			parsed, err := models.ParseSource(strings.TrimSpace(s))
			if err != nil {
				httputil.WriteError(w, http.StatusBadRequest, err.Error())
				return
			}
			sources = append(sources, parsed)
		}
	}

	since, err := parseTimeParam(q.Get("since"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid since timestamp")
		return
	}
	limit := httputil.ParseIntParam(q.Get("limit"), 100)

	entries, err := h.logs.GetUnifiedLogsSince(r.Context(), server, sources, since, limit)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to query logs")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"data": entries})
}

// DrainStream handles GET /api/v1/logs/stream: returns and clears the
// server's buffered entries.
func (h *Handler) DrainStream(w http.ResponseWriter, r *http.Request) {
	server := r.URL.Query().Get("server")
	if server == "" {
		httputil.WriteError(w, http.StatusBadRequest, "server is required")
		return
	}

	entries := h.streams.Drain(server)
	if entries == nil {
		entries = []*models.UnifiedLogEntry{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"data": entries})
}

// GetMetrics handles GET /api/v1/monitor/metrics.
func (h *Handler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	from, to, err := parseRange(q.Get("from"), q.Get("to"), time.Hour)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit := httputil.ParseIntParam(q.Get("limit"), 1000)

	samples, err := h.monitor.Metrics(r.Context(), from, to, limit)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to query metrics")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"data": samples})
}

// GetMetricRollup handles GET /api/v1/monitor/rollup with a bucket size
// like "1m" or "5m".
func (h *Handler) GetMetricRollup(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	from, to, err := parseRange(q.Get("from"), q.Get("to"), 24*time.Hour)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	bucket := time.Minute
	if raw := q.Get("bucket"); raw != "" {
		bucket, err = time.ParseDuration(raw)
		if err != nil || bucket <= 0 {
			httputil.WriteError(w, http.StatusBadRequest, "invalid bucket duration")
			return
		}
	}

	buckets, err := h.monitor.MetricRollup(r.Context(), from, to, bucket)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to query rollup")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"data": buckets})
}

// GetSpikes handles GET /api/v1/monitor/spikes.
func (h *Handler) GetSpikes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	since := time.Now().Add(-24 * time.Hour)
	if s, err := parseTimeParam(q.Get("since")); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid since timestamp")
		return
	} else if s != nil {
		since = *s
	}

	var metric *models.MetricType
	if raw := q.Get("metric"); raw != "" {
		parsed, err := models.ParseMetricType(raw)
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		metric = &parsed
	}
	limit := httputil.ParseIntParam(q.Get("limit"), 100)

	spikes, err := h.monitor.Spikes(r.Context(), since, metric, limit)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to query spikes")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"data": spikes})
}

// GetMonitorConfig handles GET /api/v1/monitor/config.
func (h *Handler) GetMonitorConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.monitor.Config(r.Context())
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "failed to load config")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, cfg)
}

// PatchMonitorConfig handles PATCH /api/v1/monitor/config. Only supplied
// fields change; the running monitor picks the change up immediately.
func (h *Handler) PatchMonitorConfig(w http.ResponseWriter, r *http.Request) {
	var patch models.MonitorConfigPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.monitorSvc.UpdateConfig(r.Context(), patch)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

// GetMonitorStatus handles GET /api/v1/monitor/status.
func (h *Handler) GetMonitorStatus(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.monitorSvc.Status())
}

func parseTimeParam(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// parseRange resolves a from/to pair, defaulting to the trailing span
// ending now.
func parseRange(fromRaw, toRaw string, span time.Duration) (time.Time, time.Time, error) {
	to := time.Now()
	if t, err := parseTimeParam(toRaw); err != nil {
		return time.Time{}, time.Time{}, err
	} else if t != nil {
		to = *t
	}

	from := to.Add(-span)
	if t, err := parseTimeParam(fromRaw); err != nil {
		return time.Time{}, time.Time{}, err
	} else if t != nil {
		from = *t
	}

	if from.After(to) {
		return time.Time{}, time.Time{}, errInvalidRange
	}
	return from, to, nil
}

var errInvalidRange = errors.New("from must be before to")
