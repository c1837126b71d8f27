package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingestion metrics
	LinesParsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pzlog_ingest_lines_parsed_total",
			Help: "Total number of log lines successfully parsed",
		},
		[]string{"parser"},
	)

	ParseErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pzlog_ingest_parse_errors_total",
			Help: "Total number of malformed lines skipped",
		},
		[]string{"parser"},
	)

	RowsInserted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pzlog_ingest_rows_inserted_total",
			Help: "Total number of typed rows inserted",
		},
		[]string{"source"},
	)

	InsertErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pzlog_ingest_insert_errors_total",
			Help: "Total number of per-row insert failures",
		},
		[]string{"source"},
	)

	IngestCycles = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pzlog_ingest_cycles_total",
			Help: "Total number of parse-and-ingest cycles",
		},
	)

	IngestBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pzlog_ingest_bytes_total",
			Help: "Total bytes of log data processed",
		},
	)

	// Watcher metrics
	WatchedFiles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pzlog_watcher_files",
			Help: "Number of files currently watched",
		},
	)

	RotationsDetected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pzlog_watcher_rotations_total",
			Help: "Total number of log rotations handled",
		},
	)

	// Stream metrics
	StreamQueued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pzlog_stream_entries_queued_total",
			Help: "Total entries queued for streaming",
		},
	)

	StreamDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pzlog_stream_entries_dropped_total",
			Help: "Total entries dropped on buffer overflow",
		},
	)

	// Monitor metrics
	SamplesTaken = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pzlog_monitor_samples_total",
			Help: "Total telemetry samples collected",
		},
	)

	SampleErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pzlog_monitor_sample_errors_total",
			Help: "Total sampling errors",
		},
	)

	SpikesEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pzlog_monitor_spikes_total",
			Help: "Total spikes emitted by the detector",
		},
		[]string{"metric", "severity"},
	)
)
