package browsecache

import (
	"fmt"
	"testing"
	"time"
)

func newMemoryOnlyCache(t *testing.T, mutate func(*Config)) *Cache {
	t.Helper()
	cfg := NewDefaultConfig().
		WithoutPersistence().
		WithLogger(NoOpLogger{}).
		WithMaintenanceInterval(0)
	if mutate != nil {
		mutate(cfg)
	}
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { c.Shutdown() })
	return c
}

func newDiskCache(t *testing.T, dir string) *Cache {
	t.Helper()
	cfg := NewDefaultConfig().
		WithCacheDir(dir).
		WithLogger(NoOpLogger{}).
		WithMaintenanceInterval(0)
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { c.Shutdown() })
	return c
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestPutGetRoundTrip(t *testing.T) {
	c := newMemoryOnlyCache(t, nil)

	if err := c.Put("k", "value"); err != nil {
		t.Fatalf("Put: %v", err)
	}

	v, ok := c.Get("k")
	if !ok {
		t.Fatal("expected hit")
	}
	if v != "value" {
		t.Fatalf("v = %v, want value", v)
	}

	stats := c.Stats()
	if stats.Hits() != 1 || stats.Misses() != 0 {
		t.Fatalf("Hits = %d, Misses = %d, want 1, 0", stats.Hits(), stats.Misses())
	}
}

func TestMissCounting(t *testing.T) {
	c := newMemoryOnlyCache(t, nil)

	if _, ok := c.Get("absent"); ok {
		t.Fatal("expected miss")
	}

	stats := c.Stats()
	if stats.Misses() != 1 || stats.Requests() != 1 {
		t.Fatalf("Misses = %d, Requests = %d, want 1, 1", stats.Misses(), stats.Requests())
	}
}

func TestExpiredEntryIsMiss(t *testing.T) {
	c := newMemoryOnlyCache(t, nil)

	c.PutWithTTL("short", "v", 20*time.Millisecond)
	if _, ok := c.Get("short"); !ok {
		t.Fatal("entry should be valid immediately after put")
	}

	time.Sleep(40 * time.Millisecond)
	if _, ok := c.Get("short"); ok {
		t.Fatal("expired entry must be a miss")
	}
}

func TestNonSerializableValueSkipsWrite(t *testing.T) {
	c := newMemoryOnlyCache(t, nil)

	if err := c.Put("bad", func() {}); err != nil {
		t.Fatalf("Put must degrade, not fail: %v", err)
	}

	if _, ok := c.Get("bad"); ok {
		t.Fatal("rejected value must not be cached")
	}
	if got := c.Stats().SerializationErrors(); got != 1 {
		t.Fatalf("SerializationErrors = %d, want 1", got)
	}
}

func TestEmptyKeyRejected(t *testing.T) {
	c := newMemoryOnlyCache(t, nil)

	if err := c.Put("", "v"); err != ErrEmptyKey {
		t.Fatalf("Put with empty key = %v, want ErrEmptyKey", err)
	}
	if err := c.Invalidate(""); err != ErrEmptyKey {
		t.Fatalf("Invalidate with empty key = %v, want ErrEmptyKey", err)
	}
}

func TestIdempotentInvalidation(t *testing.T) {
	c := newMemoryOnlyCache(t, nil)

	c.Put("k", "v")
	if err := c.Invalidate("k"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if err := c.Invalidate("k"); err != nil {
		t.Fatalf("second Invalidate: %v", err)
	}
	if _, ok := c.Get("k"); ok {
		t.Fatal("invalidated key must be a miss")
	}

	if removed := c.InvalidatePattern("matches_nothing"); removed != 0 {
		t.Fatalf("removed = %d for non-matching pattern, want 0", removed)
	}
}

func TestScopedPatternInvalidation(t *testing.T) {
	c := newMemoryOnlyCache(t, nil)
	g := c.KeyGen()

	c.Put(g.FileListKey("C1", "docs"), []string{"a.txt"})
	c.Put(g.SearchKey("C1", "docs", "report", SearchTypeAll, false), []string{"r.txt"})
	c.Put(g.FileListKey("C2", "docs"), []string{"b.txt"})

	removed := c.InvalidatePattern(g.InvalidationPattern("C1", "docs"))
	if removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}
	if _, ok := c.Get(g.FileListKey("C2", "docs")); !ok {
		t.Fatal("other connection's entry must survive")
	}
	if c.Stats().Invalidations() != 2 {
		t.Fatalf("Invalidations = %d, want 2", c.Stats().Invalidations())
	}
}

func TestLRUEvictionAtCapacity(t *testing.T) {
	evicted := make([]string, 0, 1)
	hooks := NewHooks()
	hooks.AddOnEvict(func(key string, reason EvictReason) {
		if reason == EvictReasonCapacity {
			evicted = append(evicted, key)
		}
	})

	c := newMemoryOnlyCache(t, func(cfg *Config) {
		cfg.WithMaxEntries(3).WithHooks(hooks)
	})

	for i := 1; i <= 3; i++ {
		c.Put(fmt.Sprintf("k%d", i), i)
	}
	c.Get("k1") // k2 becomes least recently used
	c.Put("k4", 4)

	if len(evicted) != 1 || evicted[0] != "k2" {
		t.Fatalf("evicted = %v, want [k2]", evicted)
	}
	if c.Stats().Evictions() != 1 {
		t.Fatalf("Evictions = %d, want 1", c.Stats().Evictions())
	}
	if _, ok := c.Get("k1"); !ok {
		t.Fatal("recently used key must survive")
	}
}

func TestClear(t *testing.T) {
	c := newMemoryOnlyCache(t, nil)

	c.Put("k1", 1)
	c.Put("k2", 2)
	if err := c.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if c.Size() != 0 {
		t.Fatalf("Size = %d after Clear, want 0", c.Size())
	}
}

func TestSizeCountsBothTiers(t *testing.T) {
	c := newDiskCache(t, t.TempDir())

	c.Put("k", "v")
	waitFor(t, func() bool { return c.Size() == 2 })
}

func TestDiskEntrySurvivesRestartAndPromotes(t *testing.T) {
	dir := t.TempDir()

	c := newDiskCache(t, dir)
	c.Put("k", []string{"a.txt"})
	waitFor(t, func() bool { return c.tiers.Persisted().Len() == 1 })
	if err := c.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	reopened := newDiskCache(t, dir)
	v, ok := reopened.Get("k")
	if !ok {
		t.Fatal("entry must survive a restart")
	}
	var files []string
	wasRaw, err := reopened.DecodeValue(v, &files)
	if err != nil || !wasRaw {
		t.Fatalf("DecodeValue: wasRaw=%v err=%v", wasRaw, err)
	}
	if len(files) != 1 || files[0] != "a.txt" {
		t.Fatalf("unexpected value: %v", files)
	}

	// The restart hit was persisted-tier only; it must now be memory-fast.
	if reopened.tiers.Memory().Len() != 1 {
		t.Fatal("persisted hit was not promoted into memory")
	}
}

func TestHitMissHooks(t *testing.T) {
	hooks := NewHooks()
	var hits, misses int
	hooks.AddOnHit(func(string) { hits++ })
	hooks.AddOnMiss(func(string) { misses++ })

	c := newMemoryOnlyCache(t, func(cfg *Config) { cfg.WithHooks(hooks) })

	c.Put("k", "v")
	c.Get("k")
	c.Get("absent")

	if hits != 1 || misses != 1 {
		t.Fatalf("hits = %d, misses = %d, want 1, 1", hits, misses)
	}
}

func TestOperationsAfterShutdown(t *testing.T) {
	c := newMemoryOnlyCache(t, nil)
	if err := c.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	if err := c.Put("k", "v"); err != ErrCacheClosed {
		t.Fatalf("Put after shutdown = %v, want ErrCacheClosed", err)
	}
	if _, ok := c.Get("k"); ok {
		t.Fatal("Get after shutdown must miss")
	}
	if err := c.Shutdown(); err != nil {
		t.Fatalf("second Shutdown must be a no-op, got %v", err)
	}
}

func TestPerformMaintenanceRemovesExpired(t *testing.T) {
	c := newMemoryOnlyCache(t, nil)

	c.PutWithTTL("stale", "v", 20*time.Millisecond)
	c.Put("fresh", "v")
	time.Sleep(40 * time.Millisecond)

	report := c.PerformMaintenance()
	if report.Skipped {
		t.Fatal("cycle should have run")
	}
	if report.RemovedExpired != 1 {
		t.Fatalf("RemovedExpired = %d, want 1", report.RemovedExpired)
	}
	if report.Valid != 1 {
		t.Fatalf("Valid = %d, want 1", report.Valid)
	}
}

func TestMaintenancePublishesEntryCounts(t *testing.T) {
	c := newMemoryOnlyCache(t, nil)

	c.PutWithTTL("stale", "v", 20*time.Millisecond)
	c.Put("fresh", "v")
	time.Sleep(40 * time.Millisecond)

	report := c.PerformMaintenance()
	if report.EntriesBefore != 2 || report.EntriesAfter != 1 {
		t.Fatalf("entry counts = %d/%d, want 2/1", report.EntriesBefore, report.EntriesAfter)
	}

	stats := c.Stats()
	if stats.ValidEntries() != 1 {
		t.Fatalf("ValidEntries = %d, want 1", stats.ValidEntries())
	}
	if stats.ExpiredEntries() != 1 {
		t.Fatalf("ExpiredEntries = %d, want 1", stats.ExpiredEntries())
	}
}

func TestScheduledMaintenancePublishesStats(t *testing.T) {
	c := newMemoryOnlyCache(t, func(cfg *Config) {
		cfg.WithMaintenanceInterval(10 * time.Millisecond)
	})

	c.PutWithTTL("stale", "v", time.Millisecond)
	waitFor(t, func() bool { return c.Stats().ExpiredEntries() >= 1 })
}

func TestClearResetsStatistics(t *testing.T) {
	c := newMemoryOnlyCache(t, nil)

	c.Put("k", "v")
	c.Get("k")
	c.Get("absent")
	if c.Stats().Requests() == 0 {
		t.Fatal("expected recorded requests before Clear")
	}

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	stats := c.Stats()
	if stats.Requests() != 0 || stats.Puts() != 0 || stats.Misses() != 0 {
		t.Fatalf("statistics survived Clear: %+v", stats.Snapshot())
	}
}

func TestDeepCleanupResetsStatistics(t *testing.T) {
	c := newMemoryOnlyCache(t, nil)

	c.Put("k", "v")
	c.Get("k")

	if err := c.PerformDeepCleanup(); err != nil {
		t.Fatalf("PerformDeepCleanup: %v", err)
	}
	if c.Size() != 0 {
		t.Fatalf("Size = %d after deep cleanup, want 0", c.Size())
	}
	if got := c.Stats().Requests(); got != 0 {
		t.Fatalf("Requests = %d after deep cleanup, want 0", got)
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero entries", func(c *Config) { c.MaxEntries = 0 }},
		{"negative ttl", func(c *Config) { c.DefaultTTL = -time.Second }},
		{"disk without dir", func(c *Config) { c.Backend = BackendDisk; c.CacheDir = "" }},
		{"redis without client", func(c *Config) { c.Backend = BackendRedis }},
		{"unknown backend", func(c *Config) { c.Backend = "tape" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig().WithoutPersistence()
			tt.mutate(cfg)
			if _, err := New(cfg); err == nil {
				t.Fatal("expected config validation error")
			}
		})
	}
}
