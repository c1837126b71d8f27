package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/duynguyen020304/pz-manager-sub001/internal/models"
)

// MonitorPostgres implements MonitorStore using PostgreSQL.
type MonitorPostgres struct {
	pool *pgxpool.Pool
}

// NewMonitorPostgres creates the monitor repository on an existing pool.
func NewMonitorPostgres(pool *pgxpool.Pool) *MonitorPostgres {
	return &MonitorPostgres{pool: pool}
}

// Close releases the underlying pool.
func (r *MonitorPostgres) Close() error {
	r.pool.Close()
	return nil
}

// The config row is a singleton at id=1, stored as one JSONB document so
// threshold shape changes never need a migration.
func (r *MonitorPostgres) GetMonitorConfig(ctx context.Context) (*models.MonitorConfig, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, `SELECT config FROM monitor_config WHERE id = 1`).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get monitor config: %w", err)
	}

	cfg := &models.MonitorConfig{}
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode monitor config: %w", err)
	}
	return cfg, nil
}

func (r *MonitorPostgres) SaveMonitorConfig(ctx context.Context, cfg *models.MonitorConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode monitor config: %w", err)
	}

	query := `
		INSERT INTO monitor_config (id, config, updated_at)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET config = EXCLUDED.config, updated_at = EXCLUDED.updated_at
	`
	if _, err := r.pool.Exec(ctx, query, raw, time.Now()); err != nil {
		return fmt.Errorf("failed to save monitor config: %w", err)
	}
	return nil
}

func (r *MonitorPostgres) InsertMetric(ctx context.Context, m *models.SystemMetric) error {
	var cores []byte
	if len(m.CPUCores) > 0 {
		var err error
		cores, err = json.Marshal(m.CPUCores)
		if err != nil {
			return fmt.Errorf("failed to encode cpu cores: %w", err)
		}
	}

	query := `
		INSERT INTO system_metrics (
			time, cpu_percent, cpu_cores,
			memory_used_bytes, memory_total_bytes, memory_percent,
			swap_used_bytes, swap_total_bytes, swap_percent,
			network_interface, network_rx_bytes, network_tx_bytes,
			network_rx_sec, network_tx_sec
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id
	`
	if err := r.pool.QueryRow(ctx, query,
		m.Time, m.CPUPercent, cores,
		m.MemoryUsedBytes, m.MemoryTotalBytes, m.MemoryPercent,
		m.SwapUsedBytes, m.SwapTotalBytes, m.SwapPercent,
		m.NetworkInterface, m.NetworkRxBytes, m.NetworkTxBytes,
		m.NetworkRxSec, m.NetworkTxSec,
	).Scan(&m.ID); err != nil {
		return fmt.Errorf("failed to insert metric: %w", err)
	}
	return nil
}

func (r *MonitorPostgres) Metrics(ctx context.Context, from, to time.Time, limit int) ([]*models.SystemMetric, error) {
	if limit <= 0 || limit > 10000 {
		limit = 1000
	}

	query := `
		SELECT id, time, cpu_percent, cpu_cores,
			memory_used_bytes, memory_total_bytes, memory_percent,
			swap_used_bytes, swap_total_bytes, swap_percent,
			network_interface, network_rx_bytes, network_tx_bytes,
			network_rx_sec, network_tx_sec
		FROM system_metrics
		WHERE time >= $1 AND time <= $2
		ORDER BY time DESC
		LIMIT $3
	`
	rows, err := r.pool.Query(ctx, query, from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query metrics: %w", err)
	}
	defer rows.Close()

	metrics := []*models.SystemMetric{}
	for rows.Next() {
		m := &models.SystemMetric{}
		var cores []byte
		if err := rows.Scan(
			&m.ID, &m.Time, &m.CPUPercent, &cores,
			&m.MemoryUsedBytes, &m.MemoryTotalBytes, &m.MemoryPercent,
			&m.SwapUsedBytes, &m.SwapTotalBytes, &m.SwapPercent,
			&m.NetworkInterface, &m.NetworkRxBytes, &m.NetworkTxBytes,
			&m.NetworkRxSec, &m.NetworkTxSec,
		); err != nil {
			return nil, fmt.Errorf("failed to scan metric: %w", err)
		}
		if len(cores) > 0 {
			_ = json.Unmarshal(cores, &m.CPUCores)
		}
		metrics = append(metrics, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return metrics, nil
}

func (r *MonitorPostgres) MetricRollup(ctx context.Context, from, to time.Time, bucket time.Duration) ([]*models.MetricRollupBucket, error) {
	if bucket <= 0 {
		bucket = time.Minute
	}

	query := `
		SELECT
			date_bin($1::interval, time, $2::timestamptz) AS bucket,
			AVG(cpu_percent), MAX(cpu_percent),
			AVG(memory_percent), MAX(memory_percent),
			AVG(swap_percent), MAX(swap_percent),
			COALESCE(AVG(network_rx_sec), 0), COALESCE(AVG(network_tx_sec), 0),
			COUNT(*)
		FROM system_metrics
		WHERE time >= $2 AND time <= $3
		GROUP BY bucket
		ORDER BY bucket
	`
	rows, err := r.pool.Query(ctx, query, bucket, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query metric rollup: %w", err)
	}
	defer rows.Close()

	buckets := []*models.MetricRollupBucket{}
	for rows.Next() {
		b := &models.MetricRollupBucket{}
		if err := rows.Scan(
			&b.Bucket,
			&b.AvgCPU, &b.MaxCPU,
			&b.AvgMemory, &b.MaxMemory,
			&b.AvgSwap, &b.MaxSwap,
			&b.AvgRxSec, &b.AvgTxSec,
			&b.SampleSize,
		); err != nil {
			return nil, fmt.Errorf("failed to scan rollup bucket: %w", err)
		}
		buckets = append(buckets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return buckets, nil
}

func (r *MonitorPostgres) InsertSpike(ctx context.Context, s *models.SystemSpike) error {
	details, err := marshalDetails(s.Details)
	if err != nil {
		return fmt.Errorf("failed to encode details: %w", err)
	}

	query := `
		INSERT INTO system_spikes (
			time, metric_type, severity, previous_value, current_value,
			change_percent, sustained_for_seconds, details
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	if err := r.pool.QueryRow(ctx, query,
		s.Time, string(s.MetricType), s.Severity, s.PreviousValue, s.CurrentValue,
		s.ChangePercent, s.SustainedForSeconds, details,
	).Scan(&s.ID); err != nil {
		return fmt.Errorf("failed to insert spike: %w", err)
	}
	return nil
}

func (r *MonitorPostgres) Spikes(ctx context.Context, since time.Time, metric *models.MetricType, limit int) ([]*models.SystemSpike, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	whereClause := "WHERE time >= $1"
	args := []interface{}{since}
	argPos := 2
	if metric != nil {
		whereClause += fmt.Sprintf(" AND metric_type = $%d", argPos)
		args = append(args, string(*metric))
		argPos++
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT id, time, metric_type, severity, previous_value, current_value,
			change_percent, sustained_for_seconds, details
		FROM system_spikes
		%s
		ORDER BY time DESC
		LIMIT $%d
	`, whereClause, argPos)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query spikes: %w", err)
	}
	defer rows.Close()

	spikes := []*models.SystemSpike{}
	for rows.Next() {
		s := &models.SystemSpike{}
		var metricType string
		var details []byte
		if err := rows.Scan(
			&s.ID, &s.Time, &metricType, &s.Severity, &s.PreviousValue, &s.CurrentValue,
			&s.ChangePercent, &s.SustainedForSeconds, &details,
		); err != nil {
			return nil, fmt.Errorf("failed to scan spike: %w", err)
		}
		s.MetricType = models.MetricType(metricType)
		s.Details = unmarshalDetails(details)
		spikes = append(spikes, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return spikes, nil
}

func (r *MonitorPostgres) CleanupOldMetrics(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, fmt.Errorf("retention days must be positive, got %d", retentionDays)
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	result, err := r.pool.Exec(ctx, `DELETE FROM system_metrics WHERE time < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old metrics: %w", err)
	}

	return result.RowsAffected(), nil
}
