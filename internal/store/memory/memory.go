// Package memory implements the bounded in-memory LRU tier.
package memory

import (
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/apatil/browsecache-go/internal/entry"
	"github.com/apatil/browsecache-go/internal/store"
)

// DefaultCapacity is the entry bound applied when none is configured.
const DefaultCapacity = 100

// Store is the in-memory LRU tier. The outer RWMutex guards the key
// set against concurrent scans; the LRU's own internal lock serializes
// recency-order mutation separately, so an eviction of the oldest key
// cannot race a concurrent insert.
type Store struct {
	cache         *lru.Cache[string, *entry.Entry]
	mutex         sync.RWMutex
	evictCallback store.EvictCallback
	capacity      int

	// suppressEvict silences the eviction callback while an explicit
	// removal holds the write lock. The underlying LRU invokes the
	// callback for Remove and Purge too, but only capacity evictions
	// should be reported. Mutated only under mutex.
	suppressEvict bool
}

// New creates a memory store bounded to capacity entries. A
// non-positive capacity falls back to DefaultCapacity.
func New(capacity int) (*Store, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	s := &Store{capacity: capacity}

	cache, err := lru.NewWithEvict[string, *entry.Entry](capacity, func(key string, e *entry.Entry) {
		if s.suppressEvict {
			return
		}
		if s.evictCallback != nil {
			s.evictCallback(key, e.Value)
		}
	})
	if err != nil {
		return nil, err
	}

	s.cache = cache
	return s, nil
}

// Get retrieves an entry by key. A hit refreshes both the recency order
// and the entry's last-access time. An expired entry is removed and
// reported as a miss.
func (s *Store) Get(key string) (*entry.Entry, bool) {
	s.mutex.RLock()
	e, found := s.cache.Get(key)
	s.mutex.RUnlock()

	if !found {
		return nil, false
	}

	if !e.IsValid() {
		s.mutex.Lock()
		s.removeLocked(key)
		s.mutex.Unlock()
		return nil, false
	}

	e.Touch()
	return e, true
}

// Set inserts or overwrites an entry. When the insert pushes the store
// past capacity, the least-recently-used entry is evicted.
func (s *Store) Set(key string, e *entry.Entry) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.cache.Add(key, e)
	return nil
}

// Delete removes an entry by key.
func (s *Store) Delete(key string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.removeLocked(key)
	return nil
}

// DeletePattern removes every entry whose key contains substr and
// returns the number removed.
func (s *Store) DeletePattern(substr string) int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	removed := 0
	for _, key := range s.cache.Keys() {
		if strings.Contains(key, substr) {
			s.removeLocked(key)
			removed++
		}
	}
	return removed
}

// Keys returns all non-expired keys.
func (s *Store) Keys() []string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	keys := s.cache.Keys()
	valid := make([]string, 0, len(keys))
	for _, key := range keys {
		if e, found := s.cache.Peek(key); found && e.IsValid() {
			valid = append(valid, key)
		}
	}
	return valid
}

// Len returns the number of entries currently held, expired included;
// expired entries are dropped lazily on read or by maintenance.
func (s *Store) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.cache.Len()
}

// Clear removes all entries.
func (s *Store) Clear() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.suppressEvict = true
	s.cache.Purge()
	s.suppressEvict = false
	return nil
}

// Close releases the store.
func (s *Store) Close() error {
	return s.Clear()
}

// removeLocked removes a key without reporting it as an eviction.
// Caller must hold the write lock.
func (s *Store) removeLocked(key string) {
	s.suppressEvict = true
	s.cache.Remove(key)
	s.suppressEvict = false
}

// SetEvictCallback registers a callback for capacity evictions.
func (s *Store) SetEvictCallback(cb store.EvictCallback) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.evictCallback = cb
}

// Capacity returns the configured entry bound.
func (s *Store) Capacity() int {
	return s.capacity
}

// PerformMaintenance scans all entries and removes the expired ones.
func (s *Store) PerformMaintenance() store.MaintenanceReport {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var report store.MaintenanceReport
	for _, key := range s.cache.Keys() {
		e, found := s.cache.Peek(key)
		if !found {
			continue
		}
		report.Scanned++
		if e.IsValid() {
			report.Valid++
			continue
		}
		s.removeLocked(key)
		report.RemovedExpired++
	}
	return report
}

var (
	_ store.Store             = (*Store)(nil)
	_ store.LRUStore          = (*Store)(nil)
	_ store.MaintainableStore = (*Store)(nil)
)
