package models

import (
	"fmt"
	"time"
)

// MetricType identifies which telemetry series a value or spike belongs to.
type MetricType string

const (
	MetricCPU     MetricType = "cpu"
	MetricMemory  MetricType = "memory"
	MetricSwap    MetricType = "swap"
	MetricNetwork MetricType = "network"
)

// AllMetricTypes lists every telemetry series in a stable order.
func AllMetricTypes() []MetricType {
	return []MetricType{MetricCPU, MetricMemory, MetricSwap, MetricNetwork}
}

// ParseMetricType validates a metric discriminant from an external caller.
func ParseMetricType(s string) (MetricType, error) {
	switch MetricType(s) {
	case MetricCPU, MetricMemory, MetricSwap, MetricNetwork:
		return MetricType(s), nil
	}
	return "", fmt.Errorf("unknown metric type %q", s)
}

// Spike severities.
const (
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// CoreLoad is the per-core CPU load recorded with a sample.
type CoreLoad struct {
	Core int     `json:"core"`
	Load float64 `json:"load"`
}

// SystemMetric is one OS telemetry sample. Network counters are cumulative;
// the Rx/Tx rates are derived from the previous sample and are nil on the
// first sample when no baseline exists.
type SystemMetric struct {
	ID               int64      `json:"id"`
	Time             time.Time  `json:"time"`
	CPUPercent       float64    `json:"cpu_percent"`
	CPUCores         []CoreLoad `json:"cpu_cores,omitempty"`
	MemoryUsedBytes  uint64     `json:"memory_used_bytes"`
	MemoryTotalBytes uint64     `json:"memory_total_bytes"`
	MemoryPercent    float64    `json:"memory_percent"`
	SwapUsedBytes    uint64     `json:"swap_used_bytes"`
	SwapTotalBytes   uint64     `json:"swap_total_bytes"`
	SwapPercent      float64    `json:"swap_percent"`
	NetworkInterface string     `json:"network_interface"`
	NetworkRxBytes   uint64     `json:"network_rx_bytes"`
	NetworkTxBytes   uint64     `json:"network_tx_bytes"`
	NetworkRxSec     *float64   `json:"network_rx_sec,omitempty"`
	NetworkTxSec     *float64   `json:"network_tx_sec,omitempty"`
}

// Value returns the series value used by the spike detector for one metric type.
func (m *SystemMetric) Value(t MetricType) float64 {
	switch t {
	case MetricCPU:
		return m.CPUPercent
	case MetricMemory:
		return m.MemoryPercent
	case MetricSwap:
		return m.SwapPercent
	case MetricNetwork:
		var rx, tx float64
		if m.NetworkRxSec != nil {
			rx = *m.NetworkRxSec
		}
		if m.NetworkTxSec != nil {
			tx = *m.NetworkTxSec
		}
		return rx + tx
	}
	return 0
}

// SystemSpike is an emitted anomaly record. Append-only, never mutated.
type SystemSpike struct {
	ID                  int64      `json:"id"`
	Time                time.Time  `json:"time"`
	MetricType          MetricType `json:"metric_type"`
	Severity            string     `json:"severity"`
	PreviousValue       float64    `json:"previous_value"`
	CurrentValue        float64    `json:"current_value"`
	ChangePercent       float64    `json:"change_percent"`
	SustainedForSeconds int        `json:"sustained_for_seconds"`
	Details             Details    `json:"details,omitempty"`
}

// MetricThreshold is the per-metric spike configuration.
type MetricThreshold struct {
	SpikeThresholdPercent float64 `json:"spike_threshold_percent" mapstructure:"spike_threshold_percent"`
	SustainedSeconds      int     `json:"sustained_seconds" mapstructure:"sustained_seconds"`
	CriticalThreshold     float64 `json:"critical_threshold" mapstructure:"critical_threshold"`
}

// MonitorConfig is the singleton (id=1) monitoring configuration row.
type MonitorConfig struct {
	Enabled                bool            `json:"enabled"`
	PollingIntervalSeconds int             `json:"polling_interval_seconds"`
	RetentionDays          int             `json:"retention_days"`
	CPU                    MetricThreshold `json:"cpu"`
	Memory                 MetricThreshold `json:"memory"`
	Swap                   MetricThreshold `json:"swap"`
	Network                MetricThreshold `json:"network"`
}

// Threshold returns the configured threshold for one metric type.
func (c *MonitorConfig) Threshold(t MetricType) MetricThreshold {
	switch t {
	case MetricCPU:
		return c.CPU
	case MetricMemory:
		return c.Memory
	case MetricSwap:
		return c.Swap
	case MetricNetwork:
		return c.Network
	}
	return MetricThreshold{}
}

// DefaultMonitorConfig supplies the in-code fallback when the config row is
// absent from storage.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		Enabled:                true,
		PollingIntervalSeconds: 5,
		RetentionDays:          7,
		CPU:                    MetricThreshold{SpikeThresholdPercent: 50, SustainedSeconds: 15, CriticalThreshold: 95},
		Memory:                 MetricThreshold{SpikeThresholdPercent: 30, SustainedSeconds: 30, CriticalThreshold: 95},
		Swap:                   MetricThreshold{SpikeThresholdPercent: 30, SustainedSeconds: 30, CriticalThreshold: 90},
		// Network rates swing hard during world saves; require a bigger jump.
		Network: MetricThreshold{SpikeThresholdPercent: 200, SustainedSeconds: 20, CriticalThreshold: 0},
	}
}

// MonitorConfigPatch is a partial update to the singleton config row.
// Last writer wins; this is operator-driven config, not contended state.
type MonitorConfigPatch struct {
	Enabled                *bool            `json:"enabled,omitempty"`
	PollingIntervalSeconds *int             `json:"polling_interval_seconds,omitempty"`
	RetentionDays          *int             `json:"retention_days,omitempty"`
	CPU                    *MetricThreshold `json:"cpu,omitempty"`
	Memory                 *MetricThreshold `json:"memory,omitempty"`
	Swap                   *MetricThreshold `json:"swap,omitempty"`
	Network                *MetricThreshold `json:"network,omitempty"`
}

// Apply overlays the patch on top of a config value.
func (p *MonitorConfigPatch) Apply(c MonitorConfig) MonitorConfig {
	if p.Enabled != nil {
		c.Enabled = *p.Enabled
	}
	if p.PollingIntervalSeconds != nil {
		c.PollingIntervalSeconds = *p.PollingIntervalSeconds
	}
	if p.RetentionDays != nil {
		c.RetentionDays = *p.RetentionDays
	}
	if p.CPU != nil {
		c.CPU = *p.CPU
	}
	if p.Memory != nil {
		c.Memory = *p.Memory
	}
	if p.Swap != nil {
		c.Swap = *p.Swap
	}
	if p.Network != nil {
		c.Network = *p.Network
	}
	return c
}

// MetricRollupBucket is one time bucket of the charting aggregation.
type MetricRollupBucket struct {
	Bucket     time.Time `json:"bucket"`
	AvgCPU     float64   `json:"avg_cpu"`
	MaxCPU     float64   `json:"max_cpu"`
	AvgMemory  float64   `json:"avg_memory"`
	MaxMemory  float64   `json:"max_memory"`
	AvgSwap    float64   `json:"avg_swap"`
	MaxSwap    float64   `json:"max_swap"`
	AvgRxSec   float64   `json:"avg_rx_sec"`
	AvgTxSec   float64   `json:"avg_tx_sec"`
	SampleSize int       `json:"sample_size"`
}
