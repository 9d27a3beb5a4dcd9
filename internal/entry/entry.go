package entry

import (
	"sync"
	"time"
)

// Entry wraps a cached value with its expiration and access metadata.
// The value and ExpiresAt are fixed at creation; only the last-access
// timestamp is mutated afterwards.
type Entry struct {
	// Value is the cached value. A nil value is a legal cacheable
	// absence marker; callers decide what it means.
	Value any `json:"value"`

	// CreatedAt is when this entry was created.
	CreatedAt time.Time `json:"created_at"`

	// ExpiresAt is the fixed expiration instant. The zero value means
	// the entry never expires.
	ExpiresAt time.Time `json:"expires_at"`

	// AccessedAt is when this entry was last read.
	// Protected by mu for concurrent access.
	AccessedAt time.Time `json:"accessed_at"`
	mu         sync.RWMutex
}

// New creates an entry whose expiration is fixed ttl from now.
// A non-positive ttl yields an entry without expiration.
func New(value any, ttl time.Duration) *Entry {
	now := time.Now()
	e := &Entry{
		Value:      value,
		CreatedAt:  now,
		AccessedAt: now,
	}
	if ttl > 0 {
		e.ExpiresAt = now.Add(ttl)
	}
	return e
}

// Restore rebuilds an entry from persisted metadata, preserving the
// original timestamps.
func Restore(value any, createdAt, expiresAt, accessedAt time.Time) *Entry {
	return &Entry{
		Value:      value,
		CreatedAt:  createdAt,
		ExpiresAt:  expiresAt,
		AccessedAt: accessedAt,
	}
}

// IsValid reports whether the entry has not yet expired.
func (e *Entry) IsValid() bool {
	if e.ExpiresAt.IsZero() {
		return true
	}
	return time.Now().Before(e.ExpiresAt)
}

// Remaining returns the time until expiration, or 0 if the entry has
// no expiration or is already expired.
func (e *Entry) Remaining() time.Duration {
	if e.ExpiresAt.IsZero() {
		return 0
	}
	remaining := time.Until(e.ExpiresAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Age returns how long ago this entry was created.
func (e *Entry) Age() time.Duration {
	return time.Since(e.CreatedAt)
}

// Touch updates the last-access time to now.
func (e *Entry) Touch() {
	e.mu.Lock()
	e.AccessedAt = time.Now()
	e.mu.Unlock()
}

// LastAccessed returns the last-access time.
func (e *Entry) LastAccessed() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.AccessedAt
}
