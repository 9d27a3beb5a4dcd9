// Package redis implements an optional persisted-tier backend for
// deployments that already run a local Redis. It satisfies the same
// Store contract as the disk tier; TTL handling is delegated to Redis.
package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/apatil/browsecache-go/internal/codec"
	"github.com/apatil/browsecache-go/internal/entry"
	"github.com/apatil/browsecache-go/internal/store"
)

// DefaultKeyPrefix namespaces cache keys inside a shared Redis.
const DefaultKeyPrefix = "browsecache:"

// Config holds Redis store configuration.
type Config struct {
	// Client is the Redis client to use. Required.
	Client redis.Cmdable

	// KeyPrefix is prepended to all cache keys. Default:
	// DefaultKeyPrefix.
	KeyPrefix string

	// Context for Redis operations.
	Context context.Context
}

// Store is a Redis-backed persisted tier.
type Store struct {
	client    redis.Cmdable
	keyPrefix string
	ctx       context.Context
	recorder  store.FaultRecorder
}

// New creates a Redis store.
func New(cfg *Config, recorder store.FaultRecorder) (*Store, error) {
	if cfg == nil || cfg.Client == nil {
		return nil, fmt.Errorf("redis store requires a client")
	}
	ctx := cfg.Context
	if ctx == nil {
		ctx = context.Background()
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if recorder == nil {
		recorder = store.NoOpFaultRecorder{}
	}
	return &Store{
		client:    cfg.Client,
		keyPrefix: prefix,
		ctx:       ctx,
		recorder:  recorder,
	}, nil
}

// Get retrieves and decodes an entry. A corrupt value is deleted and
// reported as a miss.
func (s *Store) Get(key string) (*entry.Entry, bool) {
	result := s.client.Get(s.ctx, s.buildKey(key))
	if err := result.Err(); err != nil {
		if err != redis.Nil {
			s.recorder.RecordFault(store.OpDiskRead, key, err)
		}
		return nil, false
	}

	data, err := result.Bytes()
	if err != nil {
		s.recorder.RecordFault(store.OpDiskRead, key, err)
		return nil, false
	}

	storedKey, e, err := codec.Decode(data)
	if err != nil || storedKey != key {
		if err != nil {
			s.recorder.RecordFault(store.OpDeserialize, key, err)
		}
		s.client.Del(s.ctx, s.buildKey(key))
		return nil, false
	}

	if !e.IsValid() {
		s.client.Del(s.ctx, s.buildKey(key))
		return nil, false
	}

	e.Touch()
	return e, true
}

// Set encodes and stores the entry, letting Redis expire it.
func (s *Store) Set(key string, e *entry.Entry) error {
	data, err := codec.Encode(key, e)
	if err != nil {
		s.recorder.RecordFault(store.OpSerialize, key, err)
		return nil
	}

	var ttl time.Duration
	if !e.ExpiresAt.IsZero() {
		ttl = e.Remaining()
		if ttl <= 0 {
			return s.client.Del(s.ctx, s.buildKey(key)).Err()
		}
	}

	if err := s.client.Set(s.ctx, s.buildKey(key), data, ttl).Err(); err != nil {
		s.recorder.RecordFault(store.OpDiskWrite, key, err)
	}
	return nil
}

// Delete removes an entry by key.
func (s *Store) Delete(key string) error {
	return s.client.Del(s.ctx, s.buildKey(key)).Err()
}

// DeletePattern removes every entry whose key contains substr.
func (s *Store) DeletePattern(substr string) int {
	removed := 0
	for _, key := range s.Keys() {
		if strings.Contains(key, substr) {
			if s.client.Del(s.ctx, s.buildKey(key)).Err() == nil {
				removed++
			}
		}
	}
	return removed
}

// Keys returns all cache keys under the configured prefix.
func (s *Store) Keys() []string {
	result := s.client.Keys(s.ctx, s.keyPrefix+"*")
	redisKeys, err := result.Result()
	if err != nil {
		return nil
	}

	keys := make([]string, 0, len(redisKeys))
	for _, rk := range redisKeys {
		if key := strings.TrimPrefix(rk, s.keyPrefix); key != rk {
			keys = append(keys, key)
		}
	}
	return keys
}

// Len returns the current number of entries.
func (s *Store) Len() int {
	return len(s.Keys())
}

// Clear removes all entries under the prefix.
func (s *Store) Clear() error {
	result := s.client.Keys(s.ctx, s.keyPrefix+"*")
	keys, err := result.Result()
	if err != nil {
		return err
	}
	if len(keys) > 0 {
		return s.client.Del(s.ctx, keys...).Err()
	}
	return nil
}

// Close clears cache data; client lifecycle is owned by the caller.
func (s *Store) Close() error {
	return s.Clear()
}

// PerformMaintenance decodes every stored entry and deletes expired or
// corrupt ones. Redis expires entries on its own; this pass exists so
// the scheduled sweep reports the same counters for every backend.
func (s *Store) PerformMaintenance() store.MaintenanceReport {
	var report store.MaintenanceReport
	for _, key := range s.Keys() {
		report.Scanned++
		if _, ok := s.Get(key); ok {
			report.Valid++
		} else {
			report.RemovedExpired++
		}
	}
	return report
}

func (s *Store) buildKey(key string) string {
	return s.keyPrefix + key
}

var (
	_ store.Store             = (*Store)(nil)
	_ store.MaintainableStore = (*Store)(nil)
)
