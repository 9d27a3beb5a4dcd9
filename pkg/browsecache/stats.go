package browsecache

import "sync/atomic"

// Stats tracks cache statistics using atomic counters plus gauges refreshed
// from the live tiers on read and from maintenance sweeps. All methods are
// safe for concurrent use.
type Stats struct {
	hits          int64
	misses        int64
	puts          int64
	removes       int64
	evictions     int64
	invalidations int64

	serializationErrors   int64
	deserializationErrors int64
	diskReadErrors        int64
	diskWriteErrors       int64
	keyGenFallbacks       int64

	validEntries   int64
	expiredEntries int64
	memoryEntries  int64
	diskBytes      int64
}

// Hits returns the number of cache hits.
func (s *Stats) Hits() int64 { return atomic.LoadInt64(&s.hits) }

// Misses returns the number of cache misses.
func (s *Stats) Misses() int64 { return atomic.LoadInt64(&s.misses) }

// Requests returns the total number of lookups.
func (s *Stats) Requests() int64 { return s.Hits() + s.Misses() }

// Puts returns the number of stored entries.
func (s *Stats) Puts() int64 { return atomic.LoadInt64(&s.puts) }

// Removes returns the number of explicitly removed entries.
func (s *Stats) Removes() int64 { return atomic.LoadInt64(&s.removes) }

// Evictions returns the number of capacity evictions.
func (s *Stats) Evictions() int64 { return atomic.LoadInt64(&s.evictions) }

// Invalidations returns the number of entries removed by invalidation calls.
func (s *Stats) Invalidations() int64 { return atomic.LoadInt64(&s.invalidations) }

// SerializationErrors returns the number of values rejected or failed on encode.
func (s *Stats) SerializationErrors() int64 { return atomic.LoadInt64(&s.serializationErrors) }

// DeserializationErrors returns the number of stored payloads that failed to decode.
func (s *Stats) DeserializationErrors() int64 { return atomic.LoadInt64(&s.deserializationErrors) }

// DiskReadErrors returns the number of persisted-tier read failures.
func (s *Stats) DiskReadErrors() int64 { return atomic.LoadInt64(&s.diskReadErrors) }

// DiskWriteErrors returns the number of persisted-tier write failures.
func (s *Stats) DiskWriteErrors() int64 { return atomic.LoadInt64(&s.diskWriteErrors) }

// KeyGenFallbacks returns the number of times key generation fell back to a
// unique non-deterministic key.
func (s *Stats) KeyGenFallbacks() int64 { return atomic.LoadInt64(&s.keyGenFallbacks) }

// ValidEntries returns the number of unexpired entries found by the last
// maintenance sweep.
func (s *Stats) ValidEntries() int64 { return atomic.LoadInt64(&s.validEntries) }

// ExpiredEntries returns the total number of expired entries removed by
// maintenance sweeps.
func (s *Stats) ExpiredEntries() int64 { return atomic.LoadInt64(&s.expiredEntries) }

// MemoryEntries returns the entry count of the memory tier at the last refresh.
func (s *Stats) MemoryEntries() int64 { return atomic.LoadInt64(&s.memoryEntries) }

// DiskBytes returns the byte usage of the persisted tier at the last refresh.
func (s *Stats) DiskBytes() int64 { return atomic.LoadInt64(&s.diskBytes) }

// HitRate returns the hit rate as a percentage (0-100).
func (s *Stats) HitRate() float64 {
	total := s.Requests()
	if total == 0 {
		return 0
	}
	return float64(s.Hits()) / float64(total) * 100
}

func (s *Stats) incHits()                  { atomic.AddInt64(&s.hits, 1) }
func (s *Stats) incMisses()                { atomic.AddInt64(&s.misses, 1) }
func (s *Stats) incPuts()                  { atomic.AddInt64(&s.puts, 1) }
func (s *Stats) incRemoves()               { atomic.AddInt64(&s.removes, 1) }
func (s *Stats) incEvictions()             { atomic.AddInt64(&s.evictions, 1) }
func (s *Stats) addInvalidations(n int64)  { atomic.AddInt64(&s.invalidations, n) }
func (s *Stats) incSerializationErrors()   { atomic.AddInt64(&s.serializationErrors, 1) }
func (s *Stats) incDeserializationErrors() { atomic.AddInt64(&s.deserializationErrors, 1) }
func (s *Stats) incDiskReadErrors()        { atomic.AddInt64(&s.diskReadErrors, 1) }
func (s *Stats) incDiskWriteErrors()       { atomic.AddInt64(&s.diskWriteErrors, 1) }
func (s *Stats) incKeyGenFallbacks()       { atomic.AddInt64(&s.keyGenFallbacks, 1) }

func (s *Stats) setValidEntries(n int64)   { atomic.StoreInt64(&s.validEntries, n) }
func (s *Stats) addExpiredEntries(n int64) { atomic.AddInt64(&s.expiredEntries, n) }
func (s *Stats) setMemoryEntries(n int64)  { atomic.StoreInt64(&s.memoryEntries, n) }
func (s *Stats) setDiskBytes(n int64)      { atomic.StoreInt64(&s.diskBytes, n) }

// Reset zeroes every counter and gauge. Called only when the cache is
// explicitly cleared.
func (s *Stats) Reset() {
	for _, p := range []*int64{
		&s.hits, &s.misses, &s.puts, &s.removes, &s.evictions, &s.invalidations,
		&s.serializationErrors, &s.deserializationErrors,
		&s.diskReadErrors, &s.diskWriteErrors, &s.keyGenFallbacks,
		&s.validEntries, &s.expiredEntries, &s.memoryEntries, &s.diskBytes,
	} {
		atomic.StoreInt64(p, 0)
	}
}

// StatsSnapshot is a point-in-time copy of the statistics, suitable for
// serialization or diffing.
type StatsSnapshot struct {
	Hits          int64 `json:"hits"`
	Misses        int64 `json:"misses"`
	Requests      int64 `json:"requests"`
	Puts          int64 `json:"puts"`
	Removes       int64 `json:"removes"`
	Evictions     int64 `json:"evictions"`
	Invalidations int64 `json:"invalidations"`

	SerializationErrors   int64 `json:"serializationErrors"`
	DeserializationErrors int64 `json:"deserializationErrors"`
	DiskReadErrors        int64 `json:"diskReadErrors"`
	DiskWriteErrors       int64 `json:"diskWriteErrors"`
	KeyGenFallbacks       int64 `json:"keyGenFallbacks"`

	ValidEntries   int64   `json:"validEntries"`
	ExpiredEntries int64   `json:"expiredEntries"`
	MemoryEntries  int64   `json:"memoryEntries"`
	DiskBytes      int64   `json:"diskBytes"`
	HitRate        float64 `json:"hitRate"`
}

// Snapshot returns a point-in-time copy of the statistics.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Hits:                  s.Hits(),
		Misses:                s.Misses(),
		Requests:              s.Requests(),
		Puts:                  s.Puts(),
		Removes:               s.Removes(),
		Evictions:             s.Evictions(),
		Invalidations:         s.Invalidations(),
		SerializationErrors:   s.SerializationErrors(),
		DeserializationErrors: s.DeserializationErrors(),
		DiskReadErrors:        s.DiskReadErrors(),
		DiskWriteErrors:       s.DiskWriteErrors(),
		KeyGenFallbacks:       s.KeyGenFallbacks(),
		ValidEntries:          s.ValidEntries(),
		ExpiredEntries:        s.ExpiredEntries(),
		MemoryEntries:         s.MemoryEntries(),
		DiskBytes:             s.DiskBytes(),
		HitRate:               s.HitRate(),
	}
}
