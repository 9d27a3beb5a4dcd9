// Package hybrid composes the memory and persisted tiers into one
// read-through, write-through store.
package hybrid

import (
	"github.com/apatil/browsecache-go/internal/entry"
	"github.com/apatil/browsecache-go/internal/store"
)

// Store queries memory first and falls back to the persisted tier,
// promoting lower-tier hits into memory so subsequent reads are
// memory-fast. Writes go to both tiers unconditionally; the persisted
// tier applies them asynchronously.
type Store struct {
	memory    store.LRUStore
	persisted store.Store
}

// New composes the two tiers. The persisted tier may be nil, leaving a
// memory-only cache.
func New(memory store.LRUStore, persisted store.Store) *Store {
	return &Store{memory: memory, persisted: persisted}
}

// Get checks memory, then the persisted tier. A persisted hit is
// promoted into memory before returning.
func (s *Store) Get(key string) (*entry.Entry, bool) {
	if e, ok := s.memory.Get(key); ok {
		return e, true
	}
	if s.persisted == nil {
		return nil, false
	}
	e, ok := s.persisted.Get(key)
	if !ok {
		return nil, false
	}
	// Promote the same entry, keeping its original expiration.
	_ = s.memory.Set(key, e)
	return e, true
}

// Set writes through to both tiers.
func (s *Store) Set(key string, e *entry.Entry) error {
	if err := s.memory.Set(key, e); err != nil {
		return err
	}
	if s.persisted != nil {
		return s.persisted.Set(key, e)
	}
	return nil
}

// Delete removes the key from both tiers. The memory-tier error is
// reported preferentially when both fail.
func (s *Store) Delete(key string) error {
	memErr := s.memory.Delete(key)
	if s.persisted != nil {
		if err := s.persisted.Delete(key); err != nil && memErr == nil {
			memErr = err
		}
	}
	return memErr
}

// DeletePattern applies the pattern to both tiers. The memory-tier count is
// returned whenever memory held matches, since keys usually live in both
// tiers and summing would double count; the persisted count is reported
// only when memory held none.
func (s *Store) DeletePattern(substr string) int {
	memRemoved := s.memory.DeletePattern(substr)
	diskRemoved := 0
	if s.persisted != nil {
		diskRemoved = s.persisted.DeletePattern(substr)
	}
	if memRemoved > 0 {
		return memRemoved
	}
	return diskRemoved
}

// Keys returns the union of both tiers' keys.
func (s *Store) Keys() []string {
	keys := s.memory.Keys()
	if s.persisted == nil {
		return keys
	}
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		seen[k] = struct{}{}
	}
	for _, k := range s.persisted.Keys() {
		if _, dup := seen[k]; !dup {
			keys = append(keys, k)
		}
	}
	return keys
}

// Len returns the sum of both tiers' sizes. A key held in both tiers
// counts twice; treat this as a capacity indicator, not a precise
// global entry count.
func (s *Store) Len() int {
	n := s.memory.Len()
	if s.persisted != nil {
		n += s.persisted.Len()
	}
	return n
}

// Clear wipes both tiers.
func (s *Store) Clear() error {
	memErr := s.memory.Clear()
	if s.persisted != nil {
		if err := s.persisted.Clear(); err != nil && memErr == nil {
			memErr = err
		}
	}
	return memErr
}

// Close closes both tiers.
func (s *Store) Close() error {
	memErr := s.memory.Close()
	if s.persisted != nil {
		if err := s.persisted.Close(); err != nil && memErr == nil {
			memErr = err
		}
	}
	return memErr
}

// PerformMaintenance sweeps both tiers sequentially and merges their
// reports.
func (s *Store) PerformMaintenance() store.MaintenanceReport {
	var report store.MaintenanceReport
	if m, ok := s.memory.(store.MaintainableStore); ok {
		report.Merge(m.PerformMaintenance())
	}
	if m, ok := s.persisted.(store.MaintainableStore); ok {
		report.Merge(m.PerformMaintenance())
	}
	return report
}

// Memory exposes the memory tier for capacity introspection.
func (s *Store) Memory() store.LRUStore {
	return s.memory
}

// Persisted exposes the persisted tier, or nil when none is configured.
func (s *Store) Persisted() store.Store {
	return s.persisted
}

var (
	_ store.Store             = (*Store)(nil)
	_ store.MaintainableStore = (*Store)(nil)
)
