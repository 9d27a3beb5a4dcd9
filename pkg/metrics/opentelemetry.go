package metrics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OpenTelemetryExporter implements Exporter on top of an OTel meter.
// Like the Prometheus exporter, monotonic counters are published as
// deltas against the last snapshot.
type OpenTelemetryExporter struct {
	config *Config
	meter  metric.Meter
	ctx    context.Context

	hitsCounter          metric.Int64Counter
	missesCounter        metric.Int64Counter
	requestsCounter      metric.Int64Counter
	evictionsCounter     metric.Int64Counter
	invalidationsCounter metric.Int64Counter
	errorsCounter        metric.Int64Counter

	operationDuration metric.Float64Histogram

	memoryEntriesGauge metric.Int64Gauge
	diskBytesGauge     metric.Int64Gauge
	hitRateGauge       metric.Float64Gauge

	mu   sync.Mutex
	last snapshot
}

// OpenTelemetryConfig holds OTel-specific configuration.
type OpenTelemetryConfig struct {
	// Meter is the OpenTelemetry meter to use. Required.
	Meter metric.Meter

	// Context is used for metric operations.
	Context context.Context
}

// NewOpenTelemetryExporter creates an OpenTelemetry metrics exporter.
func NewOpenTelemetryExporter(config *Config, otelConfig *OpenTelemetryConfig) (*OpenTelemetryExporter, error) {
	if config == nil {
		config = NewDefaultConfig()
	}
	if otelConfig == nil || otelConfig.Meter == nil {
		return nil, fmt.Errorf("an OpenTelemetry meter is required")
	}

	ctx := otelConfig.Context
	if ctx == nil {
		ctx = context.Background()
	}

	o := &OpenTelemetryExporter{config: config, meter: otelConfig.Meter, ctx: ctx}
	if err := o.createMetrics(); err != nil {
		return nil, fmt.Errorf("create metrics: %w", err)
	}
	return o, nil
}

func (o *OpenTelemetryExporter) createMetrics() error {
	names := o.config.MetricNames
	var err error

	counter := func(name, desc string) metric.Int64Counter {
		if err != nil {
			return nil
		}
		var c metric.Int64Counter
		c, err = o.meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit("1"))
		return c
	}

	o.hitsCounter = counter(names.HitsTotal, "Total number of cache hits")
	o.missesCounter = counter(names.MissesTotal, "Total number of cache misses")
	o.requestsCounter = counter(names.RequestsTotal, "Total number of cache lookups")
	o.evictionsCounter = counter(names.EvictionsTotal, "Total number of evicted entries")
	o.invalidationsCounter = counter(names.InvalidationsTotal, "Total number of invalidated entries")
	o.errorsCounter = counter(names.ErrorsTotal, "Total number of swallowed cache faults")
	if err != nil {
		return err
	}

	if o.config.IncludeTimings {
		o.operationDuration, err = o.meter.Float64Histogram(
			names.OperationDuration,
			metric.WithDescription("Cache operation duration"),
			metric.WithUnit("s"),
		)
		if err != nil {
			return err
		}
	}

	o.memoryEntriesGauge, err = o.meter.Int64Gauge(
		names.MemoryEntries,
		metric.WithDescription("Current number of entries in the memory tier"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return err
	}

	o.diskBytesGauge, err = o.meter.Int64Gauge(
		names.DiskBytes,
		metric.WithDescription("Current byte usage of the persisted tier"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return err
	}

	o.hitRateGauge, err = o.meter.Float64Gauge(
		names.HitRate,
		metric.WithDescription("Cache hit rate as a percentage"),
		metric.WithUnit("%"),
	)
	return err
}

// ExportStats publishes the statistics snapshot.
func (o *OpenTelemetryExporter) ExportStats(stats Stats, labels Labels) error {
	attrs := o.convertLabels(labels)

	cur := snapshot{
		hits:          stats.Hits(),
		misses:        stats.Misses(),
		requests:      stats.Requests(),
		evictions:     stats.Evictions(),
		invalidations: stats.Invalidations(),
		serErrs:       stats.SerializationErrors(),
		deserErrs:     stats.DeserializationErrors(),
		diskReadErrs:  stats.DiskReadErrors(),
		diskWriteErrs: stats.DiskWriteErrors(),
	}

	o.mu.Lock()
	prev := o.last
	o.last = cur
	o.mu.Unlock()

	addDelta := func(c metric.Int64Counter, cur, prev int64, extra ...attribute.KeyValue) {
		if d := cur - prev; d > 0 {
			c.Add(o.ctx, d, metric.WithAttributes(append(attrs, extra...)...))
		}
	}

	addDelta(o.hitsCounter, cur.hits, prev.hits)
	addDelta(o.missesCounter, cur.misses, prev.misses)
	addDelta(o.requestsCounter, cur.requests, prev.requests)
	addDelta(o.evictionsCounter, cur.evictions, prev.evictions)
	addDelta(o.invalidationsCounter, cur.invalidations, prev.invalidations)

	kind := func(k ErrorKind) attribute.KeyValue { return attribute.String("kind", string(k)) }
	addDelta(o.errorsCounter, cur.serErrs, prev.serErrs, kind(ErrorKindSerialization))
	addDelta(o.errorsCounter, cur.deserErrs, prev.deserErrs, kind(ErrorKindDeserialization))
	addDelta(o.errorsCounter, cur.diskReadErrs, prev.diskReadErrs, kind(ErrorKindDiskRead))
	addDelta(o.errorsCounter, cur.diskWriteErrs, prev.diskWriteErrs, kind(ErrorKindDiskWrite))

	o.memoryEntriesGauge.Record(o.ctx, stats.MemoryEntries(), metric.WithAttributes(attrs...))
	o.diskBytesGauge.Record(o.ctx, stats.DiskBytes(), metric.WithAttributes(attrs...))
	o.hitRateGauge.Record(o.ctx, stats.HitRate(), metric.WithAttributes(attrs...))

	return nil
}

// RecordOperation records a cache operation duration.
func (o *OpenTelemetryExporter) RecordOperation(op Operation, duration time.Duration, labels Labels) error {
	if o.operationDuration == nil {
		return nil
	}
	attrs := append(o.convertLabels(labels), attribute.String("operation", string(op)))
	o.operationDuration.Record(o.ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	return nil
}

// Close shuts down the exporter.
func (o *OpenTelemetryExporter) Close() error {
	return nil
}

func (o *OpenTelemetryExporter) convertLabels(labels Labels) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(labels)+len(o.config.Labels))
	for k, v := range o.config.Labels {
		attrs = append(attrs, attribute.String(k, v))
	}
	for k, v := range labels {
		attrs = append(attrs, attribute.String(k, v))
	}
	return attrs
}

var _ Exporter = (*OpenTelemetryExporter)(nil)
