package metrics

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusExporter implements Exporter on top of a Prometheus
// registry. Counters are exported as deltas against the last published
// snapshot so repeated ExportStats calls do not inflate totals.
type PrometheusExporter struct {
	config   *Config
	registry prometheus.Registerer

	hitsTotal          *prometheus.CounterVec
	missesTotal        *prometheus.CounterVec
	requestsTotal      *prometheus.CounterVec
	evictionsTotal     *prometheus.CounterVec
	invalidationsTotal *prometheus.CounterVec
	errorsTotal        *prometheus.CounterVec

	operationDuration *prometheus.HistogramVec

	memoryEntries *prometheus.GaugeVec
	diskBytes     *prometheus.GaugeVec
	hitRate       *prometheus.GaugeVec

	mu   sync.Mutex
	last snapshot
}

type snapshot struct {
	hits, misses, requests, evictions, invalidations int64
	serErrs, deserErrs, diskReadErrs, diskWriteErrs  int64
}

// PrometheusConfig holds Prometheus-specific configuration.
type PrometheusConfig struct {
	// Registry is the registry to use; defaults to the global one.
	Registry prometheus.Registerer

	// DurationBuckets overrides the operation-duration buckets.
	DurationBuckets []float64
}

// NewPrometheusExporter creates a Prometheus metrics exporter.
func NewPrometheusExporter(config *Config, promConfig *PrometheusConfig) (*PrometheusExporter, error) {
	if config == nil {
		config = NewDefaultConfig()
	}
	if promConfig == nil {
		promConfig = &PrometheusConfig{}
	}

	registry := promConfig.Registry
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	buckets := promConfig.DurationBuckets
	if buckets == nil {
		buckets = []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1}
	}

	constLabels := make(prometheus.Labels, len(config.Labels))
	for k, v := range config.Labels {
		constLabels[k] = v
	}

	p := &PrometheusExporter{config: config, registry: registry}
	if err := p.createMetrics(constLabels, buckets); err != nil {
		return nil, fmt.Errorf("create metrics: %w", err)
	}
	return p, nil
}

func (p *PrometheusExporter) createMetrics(constLabels prometheus.Labels, buckets []float64) error {
	base := []string{"cache_name"}
	names := p.config.MetricNames

	var err error
	newCounter := func(name, help string, labels []string) *prometheus.CounterVec {
		if err != nil {
			return nil
		}
		c := prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: name, Help: help, ConstLabels: constLabels,
		}, labels)
		err = p.registry.Register(c)
		return c
	}
	newGauge := func(name, help string) *prometheus.GaugeVec {
		if err != nil {
			return nil
		}
		g := prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: name, Help: help, ConstLabels: constLabels,
		}, base)
		err = p.registry.Register(g)
		return g
	}

	p.hitsTotal = newCounter(names.HitsTotal, "Total number of cache hits", base)
	p.missesTotal = newCounter(names.MissesTotal, "Total number of cache misses", base)
	p.requestsTotal = newCounter(names.RequestsTotal, "Total number of cache lookups", base)
	p.evictionsTotal = newCounter(names.EvictionsTotal, "Total number of evicted entries", base)
	p.invalidationsTotal = newCounter(names.InvalidationsTotal, "Total number of invalidated entries", base)
	p.errorsTotal = newCounter(names.ErrorsTotal, "Total number of swallowed cache faults", append(base, "kind"))

	p.memoryEntries = newGauge(names.MemoryEntries, "Current number of entries in the memory tier")
	p.diskBytes = newGauge(names.DiskBytes, "Current byte usage of the persisted tier")
	p.hitRate = newGauge(names.HitRate, "Cache hit rate as a percentage")

	if p.config.IncludeTimings && err == nil {
		p.operationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        names.OperationDuration,
			Help:        "Cache operation duration in seconds",
			ConstLabels: constLabels,
			Buckets:     buckets,
		}, append(base, "operation"))
		err = p.registry.Register(p.operationDuration)
	}
	return err
}

// ExportStats publishes the statistics snapshot.
func (p *PrometheusExporter) ExportStats(stats Stats, labels Labels) error {
	base := prometheus.Labels{"cache_name": labels["cache_name"]}

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

	p.mu.Lock()
	prev := p.last
	p.last = cur
	p.mu.Unlock()

	addDelta := func(c *prometheus.CounterVec, labels prometheus.Labels, cur, prev int64) {
		if d := cur - prev; d > 0 {
			c.With(labels).Add(float64(d))
		}
	}

	addDelta(p.hitsTotal, base, cur.hits, prev.hits)
	addDelta(p.missesTotal, base, cur.misses, prev.misses)
	addDelta(p.requestsTotal, base, cur.requests, prev.requests)
	addDelta(p.evictionsTotal, base, cur.evictions, prev.evictions)
	addDelta(p.invalidationsTotal, base, cur.invalidations, prev.invalidations)

	errLabels := func(kind ErrorKind) prometheus.Labels {
		return prometheus.Labels{"cache_name": labels["cache_name"], "kind": string(kind)}
	}
	addDelta(p.errorsTotal, errLabels(ErrorKindSerialization), cur.serErrs, prev.serErrs)
	addDelta(p.errorsTotal, errLabels(ErrorKindDeserialization), cur.deserErrs, prev.deserErrs)
	addDelta(p.errorsTotal, errLabels(ErrorKindDiskRead), cur.diskReadErrs, prev.diskReadErrs)
	addDelta(p.errorsTotal, errLabels(ErrorKindDiskWrite), cur.diskWriteErrs, prev.diskWriteErrs)

	p.memoryEntries.With(base).Set(float64(stats.MemoryEntries()))
	p.diskBytes.With(base).Set(float64(stats.DiskBytes()))
	p.hitRate.With(base).Set(stats.HitRate())

	return nil
}

// RecordOperation records a cache operation duration.
func (p *PrometheusExporter) RecordOperation(op Operation, duration time.Duration, labels Labels) error {
	if p.operationDuration == nil {
		return nil
	}
	p.operationDuration.With(prometheus.Labels{
		"cache_name": labels["cache_name"],
		"operation":  string(op),
	}).Observe(duration.Seconds())
	return nil
}

// Close shuts down the exporter. Prometheus metrics need no explicit
// cleanup.
func (p *PrometheusExporter) Close() error {
	return nil
}

var _ Exporter = (*PrometheusExporter)(nil)
