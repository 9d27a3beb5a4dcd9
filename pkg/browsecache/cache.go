package browsecache

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/apatil/browsecache-go/internal/codec"
	"github.com/apatil/browsecache-go/internal/entry"
	"github.com/apatil/browsecache-go/internal/store"
	"github.com/apatil/browsecache-go/internal/store/disk"
	"github.com/apatil/browsecache-go/internal/store/hybrid"
	"github.com/apatil/browsecache-go/internal/store/memory"
	redisstore "github.com/apatil/browsecache-go/internal/store/redis"
	"github.com/apatil/browsecache-go/pkg/metrics"
)

// ErrCacheClosed is returned by operations on a shut-down cache.
var ErrCacheClosed = errors.New("browsecache: cache is closed")

// ErrEmptyKey is returned when a caller passes an empty key.
var ErrEmptyKey = errors.New("browsecache: key must not be empty")

// Cache is a two-tier read-through cache: a bounded in-memory LRU tier
// backed by an optional size-bounded persisted tier. Lookups hit memory
// first; persisted hits are promoted into memory. Writes go through to both
// tiers, with the persisted write applied asynchronously.
//
// Cache-management faults (corruption, disk I/O, serialization rejection)
// never surface as errors; they degrade to misses or skipped writes and are
// visible only through Stats, logs, and fault hooks.
type Cache struct {
	config *Config
	tiers  *hybrid.Store
	disk   *disk.Store

	stats  *Stats
	guard  *faultGuard
	keygen *KeyGenerator
	logger Logger
	hooks  *Hooks
	maint  *maintenanceManager

	exporter    metrics.Exporter
	exporterCfg *metrics.Config
	metricsStop chan struct{}
	metricsWG   sync.WaitGroup

	closed atomic.Bool
}

// New creates a cache from the given configuration. A nil config uses
// defaults, which require no persisted tier setup only when Backend is
// changed from disk; the default disk backend needs CacheDir set.
func New(config *Config) (*Cache, error) {
	if config == nil {
		config = NewDefaultConfig().WithoutPersistence()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	logger := config.Logger
	if logger == nil {
		logger = NoOpLogger{}
	}
	hooks := config.Hooks
	if hooks == nil {
		hooks = NewHooks()
	}

	stats := &Stats{}
	guard := newFaultGuard(stats, logger, hooks)

	mem, err := memory.New(config.MaxEntries)
	if err != nil {
		return nil, err
	}
	mem.SetEvictCallback(func(key string, _ any) {
		stats.incEvictions()
		hooks.invokeEvict(key, EvictReasonCapacity)
	})

	var persisted store.Store
	var diskStore *disk.Store
	switch config.Backend {
	case BackendDisk:
		diskStore, err = disk.New(disk.Config{
			Directory:   config.CacheDir,
			MaxBytes:    config.MaxDiskBytes,
			Compression: config.Compression,
		}, guard)
		if err != nil {
			return nil, err
		}
		persisted = diskStore
	case BackendRedis:
		persisted, err = redisstore.New(&redisstore.Config{
			Client:    config.RedisClient,
			KeyPrefix: config.RedisKeyPrefix,
		}, guard)
		if err != nil {
			return nil, err
		}
	case BackendNone:
	}

	tiers := hybrid.New(mem, persisted)

	c := &Cache{
		config: config,
		tiers:  tiers,
		disk:   diskStore,
		stats:  stats,
		guard:  guard,
		keygen: NewKeyGenerator(stats, logger),
		logger: logger,
		hooks:  hooks,
	}
	c.maint = newMaintenanceManager(tiers, tiers.Len, c.maintenanceCompleted, logger, hooks)
	c.maint.start(config.MaintenanceInterval)

	if config.Metrics != nil && config.Metrics.Enabled && config.MetricsExporter != nil {
		c.exporter = config.MetricsExporter
		c.exporterCfg = config.Metrics
		c.startMetricsReporter()
	}

	logger.Info("cache initialized",
		F("maxEntries", config.MaxEntries),
		F("backend", string(config.Backend)),
		F("defaultTTL", config.DefaultTTL),
	)
	return c, nil
}

// Put stores a value under key with the default TTL.
func (c *Cache) Put(key string, value any) error {
	return c.PutWithTTL(key, value, c.config.DefaultTTL)
}

// PutWithTTL stores a value under key. A zero ttl means the entry never
// expires. Values that cannot be durably serialized are rejected: the write
// is skipped, a serialization fault is recorded, and nil is returned.
func (c *Cache) PutWithTTL(key string, value any, ttl time.Duration) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}
	if key == "" {
		return ErrEmptyKey
	}

	if err := codec.CanPersist(value); err != nil {
		c.guard.record(FaultSerialization, key, err)
		return nil
	}

	start := time.Now()
	e := entry.New(value, ttl)
	if err := c.tiers.Set(key, e); err != nil {
		return err
	}
	c.stats.incPuts()
	c.recordOperation(metrics.OperationPut, time.Since(start))
	return nil
}

// Get returns the cached value for key, or (nil, false) on miss. Expired
// entries and corrupt persisted payloads count as misses. Values restored
// from the persisted tier come back as raw JSON; use DecodeValue to map
// them onto a typed destination.
func (c *Cache) Get(key string) (any, bool) {
	if c.closed.Load() || key == "" {
		return nil, false
	}

	start := time.Now()
	e, ok := c.tiers.Get(key)
	c.recordOperation(metrics.OperationGet, time.Since(start))
	if !ok {
		c.stats.incMisses()
		c.hooks.invokeMiss(key)
		return nil, false
	}
	c.stats.incHits()
	c.hooks.invokeHit(key)
	return e.Value, true
}

// DecodeValue maps a value returned by Get onto out when the value came back
// from the persisted tier as raw JSON. It returns (false, nil) when the value
// is not raw JSON, in which case the caller should type-assert it directly.
func (c *Cache) DecodeValue(value any, out any) (bool, error) {
	return codec.DecodeValue(value, out)
}

// Invalidate removes key from both tiers. Invalidating an absent key is a
// no-op.
func (c *Cache) Invalidate(key string) error {
	if c.closed.Load() {
		return ErrCacheClosed
	}
	if key == "" {
		return ErrEmptyKey
	}
	start := time.Now()
	err := c.tiers.Delete(key)
	c.stats.incRemoves()
	c.stats.addInvalidations(1)
	c.hooks.invokeEvict(key, EvictReasonDeleted)
	c.recordOperation(metrics.OperationInvalidate, time.Since(start))
	return err
}

// InvalidatePattern removes every key containing pattern as a substring from
// both tiers and returns the memory-tier removal count, falling back to the
// persisted-tier count when memory held no match. A pattern matching nothing
// is a no-op.
func (c *Cache) InvalidatePattern(pattern string) int {
	if c.closed.Load() || pattern == "" {
		return 0
	}
	start := time.Now()
	removed := c.tiers.DeletePattern(pattern)
	c.stats.addInvalidations(int64(removed))
	c.hooks.invokeInvalidate(pattern, removed)
	c.recordOperation(metrics.OperationInvalidate, time.Since(start))
	return removed
}

// Clear removes every entry from both tiers and resets the statistics, the
// only operation that does.
func (c *Cache) Clear() error {
	if c.closed.Load() {
		return ErrCacheClosed
	}
	start := time.Now()
	err := c.tiers.Clear()
	c.stats.Reset()
	c.refreshGauges()
	c.recordOperation(metrics.OperationClear, time.Since(start))
	return err
}

// Size returns the summed entry count of both tiers. A key present in both
// tiers counts twice; treat the result as a load indicator, not an exact
// distinct-key count.
func (c *Cache) Size() int {
	return c.tiers.Len()
}

// Keys returns the union of both tiers' keys.
func (c *Cache) Keys() []string {
	return c.tiers.Keys()
}

// KeyGen returns the cache's key generator.
func (c *Cache) KeyGen() *KeyGenerator {
	return c.keygen
}

// Stats returns the live statistics, with the tier gauges refreshed.
func (c *Cache) Stats() *Stats {
	c.refreshGauges()
	return c.stats
}

// PerformMaintenance runs one maintenance cycle immediately, sweeping both
// tiers for expired and corrupt entries. If a cycle is already running the
// call is skipped and the returned report says so.
func (c *Cache) PerformMaintenance() MaintenanceReport {
	if c.closed.Load() {
		return MaintenanceReport{Skipped: true}
	}
	return c.maint.perform()
}

// PerformDeepCleanup clears both tiers under the maintenance exclusivity
// discipline, resetting the statistics like Clear does.
func (c *Cache) PerformDeepCleanup() error {
	if c.closed.Load() {
		return ErrCacheClosed
	}
	return c.maint.deepCleanup(func() error {
		err := c.tiers.Clear()
		c.stats.Reset()
		c.refreshGauges()
		return err
	})
}

// maintenanceCompleted publishes sweep results into the statistics. The
// manager calls it for scheduled and explicit cycles alike.
func (c *Cache) maintenanceCompleted(report MaintenanceReport) {
	c.stats.setValidEntries(int64(report.Valid))
	c.stats.addExpiredEntries(int64(report.RemovedExpired))
	c.refreshGauges()
	c.recordOperation(metrics.OperationMaintenance, report.Duration)
}

// Shutdown stops the maintenance scheduler and metrics reporter, drains
// pending persisted writes, and releases both tiers. The cache must not be
// used afterwards.
func (c *Cache) Shutdown() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.maint.stop()
	c.stopMetricsReporter()
	err := c.tiers.Close()
	c.logger.Info("cache shut down")
	return err
}

func (c *Cache) refreshGauges() {
	c.stats.setMemoryEntries(int64(c.tiers.Memory().Len()))
	if c.disk != nil {
		c.stats.setDiskBytes(c.disk.Bytes())
	}
}

func (c *Cache) startMetricsReporter() {
	interval := c.exporterCfg.ReportingInterval
	if interval <= 0 {
		return
	}
	c.metricsStop = make(chan struct{})
	c.metricsWG.Add(1)
	go func() {
		defer c.metricsWG.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.exportStats()
			case <-c.metricsStop:
				c.exportStats()
				return
			}
		}
	}()
}

func (c *Cache) stopMetricsReporter() {
	if c.metricsStop == nil {
		return
	}
	close(c.metricsStop)
	c.metricsWG.Wait()
}

func (c *Cache) exportStats() {
	c.refreshGauges()
	if err := c.exporter.ExportStats(c.stats, nil); err != nil {
		c.logger.Warn("metrics export failed", F("error", err))
	}
}

func (c *Cache) recordOperation(op metrics.Operation, d time.Duration) {
	if c.exporter == nil || !c.exporterCfg.IncludeTimings {
		return
	}
	if err := c.exporter.RecordOperation(op, d, nil); err != nil {
		c.logger.Debug("operation metric failed", F("error", err))
	}
}

var _ metrics.Stats = (*Stats)(nil)
