// Package metrics defines the exporter abstraction used to publish
// cache statistics to observability systems.
package metrics

import (
	"time"
)

// Exporter publishes cache statistics and operation timings.
type Exporter interface {
	// ExportStats publishes the current statistics snapshot.
	ExportStats(stats Stats, labels Labels) error

	// RecordOperation records a single cache operation with timing.
	RecordOperation(op Operation, duration time.Duration, labels Labels) error

	// Close shuts down the exporter and flushes pending metrics.
	Close() error
}

// Labels are key-value pairs attached to every published metric.
type Labels map[string]string

// Stats is the statistics surface the exporters read. Keeping this an
// interface lets the package avoid importing the cache itself.
type Stats interface {
	Hits() int64
	Misses() int64
	Requests() int64
	Evictions() int64
	Invalidations() int64
	SerializationErrors() int64
	DeserializationErrors() int64
	DiskReadErrors() int64
	DiskWriteErrors() int64
	MemoryEntries() int64
	DiskBytes() int64
	HitRate() float64
}

// Operation identifies a cache operation for timing metrics.
type Operation string

const (
	OperationGet         Operation = "get"
	OperationPut         Operation = "put"
	OperationInvalidate  Operation = "invalidate"
	OperationClear       Operation = "clear"
	OperationMaintenance Operation = "maintenance"
)

// ErrorKind labels the errors_total counter.
type ErrorKind string

const (
	ErrorKindSerialization   ErrorKind = "serialization"
	ErrorKindDeserialization ErrorKind = "deserialization"
	ErrorKindDiskRead        ErrorKind = "disk_read"
	ErrorKindDiskWrite       ErrorKind = "disk_write"
)

// MetricNames holds the metric names shared by all exporters.
type MetricNames struct {
	HitsTotal          string
	MissesTotal        string
	RequestsTotal      string
	EvictionsTotal     string
	InvalidationsTotal string
	ErrorsTotal        string
	OperationDuration  string
	MemoryEntries      string
	DiskBytes          string
	HitRate            string
}

// DefaultMetricNames returns the default, namespaced metric names.
func DefaultMetricNames() MetricNames {
	return MetricNames{
		HitsTotal:          "browsecache_hits_total",
		MissesTotal:        "browsecache_misses_total",
		RequestsTotal:      "browsecache_requests_total",
		EvictionsTotal:     "browsecache_evictions_total",
		InvalidationsTotal: "browsecache_invalidations_total",
		ErrorsTotal:        "browsecache_errors_total",
		OperationDuration:  "browsecache_operation_duration_seconds",
		MemoryEntries:      "browsecache_memory_entries",
		DiskBytes:          "browsecache_disk_bytes",
		HitRate:            "browsecache_hit_rate",
	}
}

// Config holds configuration shared by exporters.
type Config struct {
	// Enabled determines whether metrics collection is on.
	Enabled bool

	// Labels are default labels applied to all metrics.
	Labels Labels

	// MetricNames allows customizing metric names.
	MetricNames MetricNames

	// ReportingInterval is how often the cache pushes its stats.
	ReportingInterval time.Duration

	// IncludeTimings enables per-operation duration histograms.
	IncludeTimings bool
}

// NewDefaultConfig creates a default metrics configuration.
func NewDefaultConfig() *Config {
	return &Config{
		Enabled:           true,
		Labels:            make(Labels),
		MetricNames:       DefaultMetricNames(),
		ReportingInterval: 30 * time.Second,
		IncludeTimings:    false,
	}
}

// MultiExporter fans out to several exporters.
type MultiExporter struct {
	exporters []Exporter
}

// NewMultiExporter creates an exporter that writes to multiple backends.
func NewMultiExporter(exporters ...Exporter) *MultiExporter {
	return &MultiExporter{exporters: exporters}
}

// ExportStats exports to all configured exporters.
func (m *MultiExporter) ExportStats(stats Stats, labels Labels) error {
	for _, e := range m.exporters {
		if err := e.ExportStats(stats, labels); err != nil {
			return err
		}
	}
	return nil
}

// RecordOperation records to all configured exporters.
func (m *MultiExporter) RecordOperation(op Operation, duration time.Duration, labels Labels) error {
	for _, e := range m.exporters {
		if err := e.RecordOperation(op, duration, labels); err != nil {
			return err
		}
	}
	return nil
}

// Close closes all configured exporters.
func (m *MultiExporter) Close() error {
	for _, e := range m.exporters {
		if err := e.Close(); err != nil {
			return err
		}
	}
	return nil
}

// NoOpExporter is used when metrics are disabled.
type NoOpExporter struct{}

// NewNoOpExporter creates a no-op exporter.
func NewNoOpExporter() *NoOpExporter {
	return &NoOpExporter{}
}

// ExportStats does nothing.
func (NoOpExporter) ExportStats(Stats, Labels) error { return nil }

// RecordOperation does nothing.
func (NoOpExporter) RecordOperation(Operation, time.Duration, Labels) error { return nil }

// Close does nothing.
func (NoOpExporter) Close() error { return nil }

var (
	_ Exporter = (*MultiExporter)(nil)
	_ Exporter = (*NoOpExporter)(nil)
)
