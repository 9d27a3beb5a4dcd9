package browsecache

import (
	"strings"
	"sync"
	"time"
)

// TTL tiers the optimizer assigns from observed query frequency.
const (
	ShortSearchTTL  = 5 * time.Minute
	MediumSearchTTL = 15 * time.Minute
	LongSearchTTL   = 30 * time.Minute

	// MaxCacheableResults bounds the result sets worth caching. Larger
	// sets are cheap to refetch relative to the memory and disk pressure
	// of holding them.
	MaxCacheableResults = 1000

	mediumTTLUses = 5
	longTTLUses   = 10
)

// SearchOptimizer adapts caching decisions from observed query behavior.
// Per connection it counts how often each distinct query has been issued;
// frequently repeated queries earn longer TTLs. A simple frequency policy,
// not a predictive model.
type SearchOptimizer struct {
	mu    sync.Mutex
	usage map[string]map[string]int
}

// NewSearchOptimizer creates an empty optimizer.
func NewSearchOptimizer() *SearchOptimizer {
	return &SearchOptimizer{usage: make(map[string]map[string]int)}
}

// RecordQuery notes one use of a query on a connection and returns the
// updated use count.
func (o *SearchOptimizer) RecordQuery(connectionID, query string) int {
	norm := normalizeQuery(query)
	o.mu.Lock()
	defer o.mu.Unlock()
	byQuery := o.usage[connectionID]
	if byQuery == nil {
		byQuery = make(map[string]int)
		o.usage[connectionID] = byQuery
	}
	byQuery[norm]++
	return byQuery[norm]
}

// QueryUses returns how often the query has been issued on the connection.
func (o *SearchOptimizer) QueryUses(connectionID, query string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.usage[connectionID][normalizeQuery(query)]
}

// ShouldCache reports whether a result set of the given size is worth
// caching at all.
func (o *SearchOptimizer) ShouldCache(resultCount int) bool {
	return resultCount <= MaxCacheableResults
}

// TTLFor returns the adaptive TTL for a query on a connection.
func (o *SearchOptimizer) TTLFor(connectionID, query string) time.Duration {
	uses := o.QueryUses(connectionID, query)
	switch {
	case uses >= longTTLUses:
		return LongSearchTTL
	case uses >= mediumTTLUses:
		return MediumSearchTTL
	default:
		return ShortSearchTTL
	}
}

// ForgetConnection drops all usage history for a connection.
func (o *SearchOptimizer) ForgetConnection(connectionID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.usage, connectionID)
}

func normalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

// SearchQuery identifies one search invocation.
type SearchQuery struct {
	ConnectionID      string
	Path              string
	Query             string
	Type              SearchType
	IncludeSubfolders bool
}

// SearchCache caches search results per query, with TTLs adapted by a
// SearchOptimizer. Result slices are defensively copied on put.
type SearchCache struct {
	cache     *Cache
	optimizer *SearchOptimizer
}

// NewSearchCache creates a search cache with a fresh optimizer.
func NewSearchCache(cache *Cache) *SearchCache {
	return &SearchCache{cache: cache, optimizer: NewSearchOptimizer()}
}

// Optimizer returns the cache's optimizer, for usage inspection.
func (s *SearchCache) Optimizer() *SearchOptimizer {
	return s.optimizer
}

// Put caches a search result set. Oversized result sets are not cached; the
// call is a no-op and returns nil.
func (s *SearchCache) Put(q SearchQuery, results []FileInfo) error {
	if !s.optimizer.ShouldCache(len(results)) {
		return nil
	}
	s.optimizer.RecordQuery(q.ConnectionID, q.Query)
	key := s.key(q)
	ttl := s.optimizer.TTLFor(q.ConnectionID, q.Query)
	return s.cache.PutWithTTL(key, copyFileList(results), ttl)
}

// Get returns cached results for a query, or (nil, false) on miss. A hit
// also counts as a use toward the query's adaptive TTL.
func (s *SearchCache) Get(q SearchQuery) ([]FileInfo, bool) {
	key := s.key(q)
	raw, ok := s.cache.Get(key)
	if !ok {
		return nil, false
	}
	s.optimizer.RecordQuery(q.ConnectionID, q.Query)

	var decoded []FileInfo
	wasRaw, err := s.cache.DecodeValue(raw, &decoded)
	if err != nil {
		return nil, false
	}
	if wasRaw {
		return decoded, true
	}
	results, ok := raw.([]FileInfo)
	if !ok {
		return nil, false
	}
	return copyFileList(results), true
}

// Invalidate drops the cached results for one query.
func (s *SearchCache) Invalidate(q SearchQuery) error {
	return s.cache.Invalidate(s.key(q))
}

// InvalidatePath drops every cached entry scoped to the connection and path.
func (s *SearchCache) InvalidatePath(connectionID, path string) int {
	pattern := s.cache.KeyGen().InvalidationPattern(connectionID, path)
	return s.cache.InvalidatePattern(pattern)
}

func (s *SearchCache) key(q SearchQuery) string {
	return s.cache.KeyGen().SearchKey(q.ConnectionID, q.Path, q.Query, q.Type, q.IncludeSubfolders)
}
