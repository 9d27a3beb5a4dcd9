package browsecache

import (
	"time"

	"github.com/apatil/browsecache-go/internal/singleflight"
)

// FileInfo describes one remote file or folder in a directory listing.
type FileInfo struct {
	Name        string    `json:"name"`
	Path        string    `json:"path"`
	Size        int64     `json:"size"`
	IsDirectory bool      `json:"isDirectory"`
	ModifiedAt  time.Time `json:"modifiedAt"`
}

// FetchFunc produces a fresh directory listing on a cache miss.
type FetchFunc func(connectionID, path string) ([]FileInfo, error)

// FileListCache caches directory listings per connection and path. It is a
// thin policy layer over the cache: it generates keys, picks TTLs, and stores
// defensive copies so callers mutating their slices cannot corrupt cached
// state.
type FileListCache struct {
	cache  *Cache
	ttl    time.Duration
	flight singleflight.Group[string, []FileInfo]
}

// NewFileListCache creates a file-list cache with the given TTL. A zero ttl
// uses the cache default.
func NewFileListCache(cache *Cache, ttl time.Duration) *FileListCache {
	if ttl <= 0 {
		ttl = cache.config.DefaultTTL
	}
	return &FileListCache{cache: cache, ttl: ttl}
}

// Put caches a directory listing.
func (f *FileListCache) Put(connectionID, path string, files []FileInfo) error {
	key := f.cache.KeyGen().FileListKey(connectionID, path)
	return f.cache.PutWithTTL(key, copyFileList(files), f.ttl)
}

// Get returns the cached listing for a connection and path, or
// (nil, false) on miss. The returned slice is the caller's to keep.
func (f *FileListCache) Get(connectionID, path string) ([]FileInfo, bool) {
	key := f.cache.KeyGen().FileListKey(connectionID, path)
	return f.get(key)
}

func (f *FileListCache) get(key string) ([]FileInfo, bool) {
	raw, ok := f.cache.Get(key)
	if !ok {
		return nil, false
	}
	var decoded []FileInfo
	wasRaw, err := f.cache.DecodeValue(raw, &decoded)
	if err != nil {
		return nil, false
	}
	if wasRaw {
		return decoded, true
	}
	files, ok := raw.([]FileInfo)
	if !ok {
		return nil, false
	}
	return copyFileList(files), true
}

// GetOrFetch returns the cached listing, or fetches, caches, and returns a
// fresh one. Concurrent calls for the same key share one fetch.
func (f *FileListCache) GetOrFetch(connectionID, path string, fetch FetchFunc) ([]FileInfo, error) {
	key := f.cache.KeyGen().FileListKey(connectionID, path)
	if files, ok := f.get(key); ok {
		return files, nil
	}
	files, err, _ := f.flight.Do(key, func() ([]FileInfo, error) {
		if files, ok := f.get(key); ok {
			return files, nil
		}
		fresh, err := fetch(connectionID, path)
		if err != nil {
			return nil, err
		}
		if err := f.cache.PutWithTTL(key, copyFileList(fresh), f.ttl); err != nil {
			return nil, err
		}
		return fresh, nil
	})
	return files, err
}

// Invalidate drops the cached listing for one connection and path. Called
// after a create, delete, or rename touches that directory.
func (f *FileListCache) Invalidate(connectionID, path string) error {
	key := f.cache.KeyGen().FileListKey(connectionID, path)
	return f.cache.Invalidate(key)
}

// InvalidatePath drops every cached entry scoped to the connection and path,
// file listings and search results alike.
func (f *FileListCache) InvalidatePath(connectionID, path string) int {
	pattern := f.cache.KeyGen().InvalidationPattern(connectionID, path)
	return f.cache.InvalidatePattern(pattern)
}

// InvalidateConnection drops every cached entry for the connection.
func (f *FileListCache) InvalidateConnection(connectionID string) int {
	pattern := f.cache.KeyGen().ConnectionPattern(connectionID)
	return f.cache.InvalidatePattern(pattern)
}

func copyFileList(files []FileInfo) []FileInfo {
	if files == nil {
		return nil
	}
	out := make([]FileInfo, len(files))
	copy(out, files)
	return out
}
