// Package repository holds the PostgreSQL persistence layer. The log store
// exclusively owns the per-source tables plus the file-position table; the
// monitor store exclusively owns the telemetry, spike and config tables.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/duynguyen020304/pz-manager-sub001/internal/models"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")
)

// LogStore persists typed log rows and ingestion watermarks.
type LogStore interface {
	GetPosition(ctx context.Context, filePath string) (*models.LogFilePosition, error)
	UpsertPosition(ctx context.Context, pos *models.LogFilePosition) error

	InsertBackupLog(ctx context.Context, e *models.BackupLogEntry) error
	InsertPlayerEvent(ctx context.Context, e *models.PZPlayerEvent) error
	InsertServerEvent(ctx context.Context, e *models.PZServerEvent) error
	InsertChatMessage(ctx context.Context, e *models.PZChatMessage) error
	InsertPVPEvent(ctx context.Context, e *models.PZPVPEvent) error
	InsertSkillSnapshot(ctx context.Context, e *models.PZSkillSnapshot) error

	BackupLogs(ctx context.Context, q models.LogQuery) ([]*models.BackupLogEntry, int, error)
	PlayerEvents(ctx context.Context, q models.LogQuery) ([]*models.PZPlayerEvent, int, error)
	ServerEvents(ctx context.Context, q models.LogQuery) ([]*models.PZServerEvent, int, error)
	ChatMessages(ctx context.Context, q models.LogQuery) ([]*models.PZChatMessage, int, error)
	PVPEvents(ctx context.Context, q models.LogQuery) ([]*models.PZPVPEvent, int, error)
	SkillSnapshots(ctx context.Context, q models.LogQuery) ([]*models.PZSkillSnapshot, int, error)

	// UnifiedSince issues one unioned, time-ordered query across the
	// requested per-source tables for a single server.
	UnifiedSince(ctx context.Context, server string, sources []models.Source, since *time.Time, limit int) ([]*models.UnifiedLogEntry, error)

	Close() error
}

// MonitorStore persists telemetry samples, spikes and the singleton config.
type MonitorStore interface {
	GetMonitorConfig(ctx context.Context) (*models.MonitorConfig, error)
	SaveMonitorConfig(ctx context.Context, cfg *models.MonitorConfig) error

	InsertMetric(ctx context.Context, m *models.SystemMetric) error
	Metrics(ctx context.Context, from, to time.Time, limit int) ([]*models.SystemMetric, error)
	MetricRollup(ctx context.Context, from, to time.Time, bucket time.Duration) ([]*models.MetricRollupBucket, error)

	InsertSpike(ctx context.Context, s *models.SystemSpike) error
	Spikes(ctx context.Context, since time.Time, metric *models.MetricType, limit int) ([]*models.SystemSpike, error)

	// CleanupOldMetrics deletes samples older than the retention window and
	// returns the number of rows removed.
	CleanupOldMetrics(ctx context.Context, retentionDays int) (int64, error)

	Close() error
}
