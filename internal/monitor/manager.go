package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/duynguyen020304/pz-manager-sub001/internal/logging"
	"github.com/duynguyen020304/pz-manager-sub001/internal/models"
	"github.com/duynguyen020304/pz-manager-sub001/internal/repository"
)

// Manager owns the monitor configuration lifecycle and read access to
// stored telemetry.
type Manager struct {
	store    repository.MonitorStore
	defaults models.MonitorConfig
	log      *logging.Logger
}

// NewManager creates a monitor manager. defaults is what Config returns
// before any row has been saved.
func NewManager(store repository.MonitorStore, defaults models.MonitorConfig, log *logging.Logger) *Manager {
	return &Manager{store: store, defaults: defaults, log: log.Component("monitor")}
}

// Config returns the stored configuration, falling back to defaults when
// no row exists yet. The fallback is not persisted.
func (m *Manager) Config(ctx context.Context) (models.MonitorConfig, error) {
	cfg, err := m.store.GetMonitorConfig(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return m.defaults, nil
		}
		return models.MonitorConfig{}, fmt.Errorf("failed to load monitor config: %w", err)
	}
	return *cfg, nil
}

// UpdateConfig overlays the patch on the current configuration and persists
// the result. Returns the effective config.
func (m *Manager) UpdateConfig(ctx context.Context, patch models.MonitorConfigPatch) (models.MonitorConfig, error) {
	current, err := m.Config(ctx)
	if err != nil {
		return models.MonitorConfig{}, err
	}

	updated := patch.Apply(current)
	if updated.PollingIntervalSeconds <= 0 {
		return models.MonitorConfig{}, fmt.Errorf("polling interval must be positive, got %d", updated.PollingIntervalSeconds)
	}
	if updated.RetentionDays <= 0 {
		return models.MonitorConfig{}, fmt.Errorf("retention days must be positive, got %d", updated.RetentionDays)
	}

	if err := m.store.SaveMonitorConfig(ctx, &updated); err != nil {
		return models.MonitorConfig{}, fmt.Errorf("failed to save monitor config: %w", err)
	}
	m.log.Info("monitor config updated",
		"enabled", updated.Enabled, "interval_seconds", updated.PollingIntervalSeconds)
	return updated, nil
}

// Metrics returns raw samples inside the time range, newest first.
func (m *Manager) Metrics(ctx context.Context, from, to time.Time, limit int) ([]*models.SystemMetric, error) {
	return m.store.Metrics(ctx, from, to, limit)
}

// MetricRollup returns bucketed aggregates for charting.
func (m *Manager) MetricRollup(ctx context.Context, from, to time.Time, bucket time.Duration) ([]*models.MetricRollupBucket, error) {
	return m.store.MetricRollup(ctx, from, to, bucket)
}

// Spikes returns spikes since the given time, optionally filtered by metric.
func (m *Manager) Spikes(ctx context.Context, since time.Time, metric *models.MetricType, limit int) ([]*models.SystemSpike, error) {
	return m.store.Spikes(ctx, since, metric, limit)
}

// CleanupOldMetrics deletes samples older than the retention window. A
// non-positive retentionDays falls back to the configured retention.
func (m *Manager) CleanupOldMetrics(ctx context.Context, retentionDays int) (int64, error) {
	retention := retentionDays
	if retention <= 0 {
		cfg, err := m.Config(ctx)
		if err != nil {
			return 0, err
		}
		retention = cfg.RetentionDays
	}
	if retention <= 0 {
		retention = m.defaults.RetentionDays
	}

	deleted, err := m.store.CleanupOldMetrics(ctx, retention)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		m.log.Info("pruned old metrics", "deleted", deleted, "retention_days", retention)
	}
	return deleted, nil
}
