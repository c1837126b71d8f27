package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duynguyen020304/pz-manager-sub001/internal/ingest"
	"github.com/duynguyen020304/pz-manager-sub001/internal/logging"
	"github.com/duynguyen020304/pz-manager-sub001/internal/models"
	"github.com/duynguyen020304/pz-manager-sub001/internal/monitor"
	"github.com/duynguyen020304/pz-manager-sub001/internal/repository"
	"github.com/duynguyen020304/pz-manager-sub001/internal/stream"
)

// fakeLogStore serves canned rows; the handler layer only cares about the
// read side.
type fakeLogStore struct {
	backupLogs   []*models.BackupLogEntry
	chatMessages []*models.PZChatMessage
	unified      []*models.UnifiedLogEntry

	lastQuery models.LogQuery
}

func (f *fakeLogStore) GetPosition(ctx context.Context, filePath string) (*models.LogFilePosition, error) {
	return nil, repository.ErrNotFound
}

func (f *fakeLogStore) UpsertPosition(ctx context.Context, pos *models.LogFilePosition) error {
	return nil
}

func (f *fakeLogStore) InsertBackupLog(ctx context.Context, e *models.BackupLogEntry) error { return nil }
func (f *fakeLogStore) InsertPlayerEvent(ctx context.Context, e *models.PZPlayerEvent) error {
	return nil
}
func (f *fakeLogStore) InsertServerEvent(ctx context.Context, e *models.PZServerEvent) error {
	return nil
}
func (f *fakeLogStore) InsertChatMessage(ctx context.Context, e *models.PZChatMessage) error {
	return nil
}
func (f *fakeLogStore) InsertPVPEvent(ctx context.Context, e *models.PZPVPEvent) error { return nil }
func (f *fakeLogStore) InsertSkillSnapshot(ctx context.Context, e *models.PZSkillSnapshot) error {
	return nil
}

func (f *fakeLogStore) BackupLogs(ctx context.Context, q models.LogQuery) ([]*models.BackupLogEntry, int, error) {
	f.lastQuery = q
	return f.backupLogs, len(f.backupLogs), nil
}

func (f *fakeLogStore) PlayerEvents(ctx context.Context, q models.LogQuery) ([]*models.PZPlayerEvent, int, error) {
	f.lastQuery = q
	return nil, 0, nil
}

func (f *fakeLogStore) ServerEvents(ctx context.Context, q models.LogQuery) ([]*models.PZServerEvent, int, error) {
	f.lastQuery = q
	return nil, 0, nil
}

func (f *fakeLogStore) ChatMessages(ctx context.Context, q models.LogQuery) ([]*models.PZChatMessage, int, error) {
	f.lastQuery = q
	return f.chatMessages, len(f.chatMessages), nil
}

func (f *fakeLogStore) PVPEvents(ctx context.Context, q models.LogQuery) ([]*models.PZPVPEvent, int, error) {
	f.lastQuery = q
	return nil, 0, nil
}

func (f *fakeLogStore) SkillSnapshots(ctx context.Context, q models.LogQuery) ([]*models.PZSkillSnapshot, int, error) {
	f.lastQuery = q
	return nil, 0, nil
}

func (f *fakeLogStore) UnifiedSince(ctx context.Context, server string, sources []models.Source, since *time.Time, limit int) ([]*models.UnifiedLogEntry, error) {
	return f.unified, nil
}

func (f *fakeLogStore) Close() error { return nil }

type fakeMonitorStore struct {
	cfg     *models.MonitorConfig
	metrics []*models.SystemMetric
	spikes  []*models.SystemSpike
}

func (f *fakeMonitorStore) GetMonitorConfig(ctx context.Context) (*models.MonitorConfig, error) {
	if f.cfg == nil {
		return nil, repository.ErrNotFound
	}
	return f.cfg, nil
}

func (f *fakeMonitorStore) SaveMonitorConfig(ctx context.Context, cfg *models.MonitorConfig) error {
	f.cfg = cfg
	return nil
}

func (f *fakeMonitorStore) InsertMetric(ctx context.Context, m *models.SystemMetric) error {
	return nil
}

func (f *fakeMonitorStore) Metrics(ctx context.Context, from, to time.Time, limit int) ([]*models.SystemMetric, error) {
	return f.metrics, nil
}

func (f *fakeMonitorStore) MetricRollup(ctx context.Context, from, to time.Time, bucket time.Duration) ([]*models.MetricRollupBucket, error) {
	return nil, nil
}

func (f *fakeMonitorStore) InsertSpike(ctx context.Context, s *models.SystemSpike) error { return nil }

func (f *fakeMonitorStore) Spikes(ctx context.Context, since time.Time, metric *models.MetricType, limit int) ([]*models.SystemSpike, error) {
	return f.spikes, nil
}

func (f *fakeMonitorStore) CleanupOldMetrics(ctx context.Context, retentionDays int) (int64, error) {
	return 0, nil
}

func (f *fakeMonitorStore) Close() error { return nil }

type stubSampler struct{}

func (stubSampler) Sample(ctx context.Context) (*models.SystemMetric, error) {
	return &models.SystemMetric{Time: time.Now()}, nil
}

type fixture struct {
	logStore *fakeLogStore
	monStore *fakeMonitorStore
	streams  *stream.Manager
	handler  *Handler
	svc      *monitor.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logStore := &fakeLogStore{}
	monStore := &fakeMonitorStore{}

	log := logging.Default()
	logs := ingest.NewManager(logStore, log)
	streams := stream.NewManager(100, nil, log)
	mon := monitor.NewManager(monStore, models.DefaultMonitorConfig(), log)
	svc := monitor.NewService(mon, stubSampler{}, log)
	t.Cleanup(svc.Stop)

	return &fixture{
		logStore: logStore,
		monStore: monStore,
		streams:  streams,
		handler:  NewHandler(logs, streams, mon, svc),
		svc:      svc,
	}
}

func doJSON(t *testing.T, h http.HandlerFunc, method, target, body string) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h(rec, req)

	out := map[string]json.RawMessage{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestHealthCheck(t *testing.T) {
	fx := newFixture(t)

	rec, body := doJSON(t, fx.handler.HealthCheck, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `"healthy"`, string(body["status"]))
}

func TestGetLogsDefaults(t *testing.T) {
	fx := newFixture(t)
	fx.logStore.backupLogs = []*models.BackupLogEntry{
		{Time: time.Now(), Server: "alpha", LogType: "backup", Level: models.LevelInfo, Message: "snapshot completed"},
	}

	rec, body := doJSON(t, fx.handler.GetLogs, http.MethodGet, "/api/v1/logs", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []*models.UnifiedLogEntry
	require.NoError(t, json.Unmarshal(body["data"], &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, models.SourceBackup, entries[0].Source)

	var pagination struct {
		Page  int `json:"page"`
		Limit int `json:"limit"`
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(body["pagination"], &pagination))
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, defaultPageSize, pagination.Limit)
	assert.Equal(t, 1, pagination.Total)
}

func TestGetLogsFiltersReachStore(t *testing.T) {
	fx := newFixture(t)

	rec, _ := doJSON(t, fx.handler.GetLogs, http.MethodGet,
		"/api/v1/logs?source=chat&server=alpha&username=Alice&page=2&limit=25", "")
	require.Equal(t, http.StatusOK, rec.Code)

	q := fx.logStore.lastQuery
	assert.Equal(t, "alpha", q.Server)
	assert.Equal(t, "Alice", q.Username)
	assert.Equal(t, 25, q.Limit)
	assert.Equal(t, 25, q.Offset)
}

func TestGetLogsRejectsBadInput(t *testing.T) {
	fx := newFixture(t)

	rec, _ := doJSON(t, fx.handler.GetLogs, http.MethodGet, "/api/v1/logs?source=bogus", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = doJSON(t, fx.handler.GetLogs, http.MethodGet, "/api/v1/logs?from=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetLogsSinceRequiresServer(t *testing.T) {
	fx := newFixture(t)

	rec, body := doJSON(t, fx.handler.GetLogsSince, http.MethodGet, "/api/v1/logs/since", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, string(body["error"]), "server is required")
}

func TestGetLogsSinceParsesSources(t *testing.T) {
	fx := newFixture(t)
	fx.logStore.unified = []*models.UnifiedLogEntry{
		{ID: "u1", Source: models.SourceChat, Server: "alpha", Message: "hello"},
	}

	rec, body := doJSON(t, fx.handler.GetLogsSince, http.MethodGet,
		"/api/v1/logs/since?server=alpha&sources=chat,player&since=2026-08-30T12:00:00Z", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []*models.UnifiedLogEntry
	require.NoError(t, json.Unmarshal(body["data"], &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "u1", entries[0].ID)

	rec, _ = doJSON(t, fx.handler.GetLogsSince, http.MethodGet,
		"/api/v1/logs/since?server=alpha&sources=bogus", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDrainStream(t *testing.T) {
	fx := newFixture(t)
	fx.streams.Queue("alpha", []*models.UnifiedLogEntry{
		{ID: "s1", Server: "alpha", Message: "live"},
	})

	rec, body := doJSON(t, fx.handler.DrainStream, http.MethodGet, "/api/v1/logs/stream?server=alpha", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []*models.UnifiedLogEntry
	require.NoError(t, json.Unmarshal(body["data"], &entries))
	require.Len(t, entries, 1)

	// A second drain returns an empty array, never null.
	rec, body = doJSON(t, fx.handler.DrainStream, http.MethodGet, "/api/v1/logs/stream?server=alpha", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, string(body["data"]))
}

func TestDrainStreamRequiresServer(t *testing.T) {
	fx := newFixture(t)

	rec, _ := doJSON(t, fx.handler.DrainStream, http.MethodGet, "/api/v1/logs/stream", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetMetrics(t *testing.T) {
	fx := newFixture(t)
	fx.monStore.metrics = []*models.SystemMetric{
		{Time: time.Now(), CPUPercent: 42.5},
	}

	rec, body := doJSON(t, fx.handler.GetMetrics, http.MethodGet, "/api/v1/monitor/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var samples []*models.SystemMetric
	require.NoError(t, json.Unmarshal(body["data"], &samples))
	require.Len(t, samples, 1)
	assert.Equal(t, 42.5, samples[0].CPUPercent)
}

func TestGetMetricsRejectsInvertedRange(t *testing.T) {
	fx := newFixture(t)

	rec, _ := doJSON(t, fx.handler.GetMetrics, http.MethodGet,
		"/api/v1/monitor/metrics?from=2026-08-30T12:00:00Z&to=2026-08-30T10:00:00Z", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetMetricRollupRejectsBadBucket(t *testing.T) {
	fx := newFixture(t)

	rec, _ := doJSON(t, fx.handler.GetMetricRollup, http.MethodGet,
		"/api/v1/monitor/rollup?bucket=huge", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetSpikes(t *testing.T) {
	fx := newFixture(t)
	fx.monStore.spikes = []*models.SystemSpike{
		{Time: time.Now(), MetricType: models.MetricCPU, Severity: models.SeverityWarning},
	}

	rec, body := doJSON(t, fx.handler.GetSpikes, http.MethodGet, "/api/v1/monitor/spikes?metric=cpu", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var spikes []*models.SystemSpike
	require.NoError(t, json.Unmarshal(body["data"], &spikes))
	require.Len(t, spikes, 1)

	rec, _ = doJSON(t, fx.handler.GetSpikes, http.MethodGet, "/api/v1/monitor/spikes?metric=bogus", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetMonitorConfigFallsBackToDefaults(t *testing.T) {
	fx := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/monitor/config", nil)
	rec := httptest.NewRecorder()
	fx.handler.GetMonitorConfig(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var cfg models.MonitorConfig
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cfg))
	assert.Equal(t, models.DefaultMonitorConfig(), cfg)
}

func TestPatchMonitorConfig(t *testing.T) {
	fx := newFixture(t)

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/monitor/config",
		strings.NewReader(`{"enabled": false, "retention_days": 14}`))
	rec := httptest.NewRecorder()
	fx.handler.PatchMonitorConfig(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var cfg models.MonitorConfig
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cfg))
	assert.False(t, cfg.Enabled)
	assert.Equal(t, 14, cfg.RetentionDays)

	require.NotNil(t, fx.monStore.cfg)
	assert.Equal(t, 14, fx.monStore.cfg.RetentionDays)
}

func TestPatchMonitorConfigRejectsBadBody(t *testing.T) {
	fx := newFixture(t)

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/monitor/config",
		strings.NewReader(`{"retention_days": "fourteen"}`))
	rec := httptest.NewRecorder()
	fx.handler.PatchMonitorConfig(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPatch, "/api/v1/monitor/config",
		strings.NewReader(`{"polling_interval_seconds": 0}`))
	rec = httptest.NewRecorder()
	fx.handler.PatchMonitorConfig(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetMonitorStatus(t *testing.T) {
	fx := newFixture(t)

	rec, _ := doJSON(t, fx.handler.GetMonitorStatus, http.MethodGet, "/api/v1/monitor/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var status monitor.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.False(t, status.Running)
}
