// Package disk implements the size-bounded persisted tier. Each key
// maps to one file containing a serialized entry envelope; total
// directory size is held under a byte budget by evicting oldest files
// first.
package disk

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/apatil/browsecache-go/internal/codec"
	"github.com/apatil/browsecache-go/internal/entry"
	"github.com/apatil/browsecache-go/internal/store"
)

const (
	// DefaultMaxBytes is the default disk budget (~50 MB).
	DefaultMaxBytes = 50 * 1024 * 1024

	// DefaultQueueSize bounds the background write queue.
	DefaultQueueSize = 256

	// evictWatermark is the fraction of the budget eviction shrinks
	// usage down to, so a single over-budget write does not trigger
	// eviction on every subsequent write.
	evictWatermark = 0.8

	fileSuffix = ".cache"

	// maxFileNameLen bounds the sanitized-key portion of a file name;
	// longer keys collapse to a fixed-width digest.
	maxFileNameLen = 100
)

// ErrClosed is returned by Set after the store has been closed.
var ErrClosed = errors.New("disk store is closed")

// Config holds disk tier configuration.
type Config struct {
	// Directory is where entry files live. Created lazily before the
	// first write if it does not exist.
	Directory string

	// MaxBytes is the total byte budget. Default: DefaultMaxBytes.
	MaxBytes int64

	// Compression enables gzip compression of entry files.
	Compression bool

	// QueueSize bounds the background write queue.
	// Default: DefaultQueueSize.
	QueueSize int
}

type record struct {
	path    string
	size    int64
	modTime time.Time
}

type writeTask struct {
	key string
	e   *entry.Entry
}

// Store is the disk tier. Writes are handed to a single background
// worker so producers never block on I/O; the single worker also
// serializes writes for any one key in submission order. Reads are
// synchronous.
type Store struct {
	dir      string
	maxBytes int64
	compress bool
	recorder store.FaultRecorder

	// curBytes is updated atomically: the write worker, Delete and the
	// eviction pass may all adjust it concurrently.
	curBytes atomic.Int64

	mu    sync.RWMutex
	index map[string]*record

	writeCh   chan writeTask
	wg        sync.WaitGroup
	closeOnce sync.Once
	closedMu  sync.RWMutex
	closed    bool
}

// New creates a disk store, rebuilds the key index from any files
// already in the directory and starts the write worker.
func New(cfg Config, recorder store.FaultRecorder) (*Store, error) {
	if cfg.Directory == "" {
		return nil, fmt.Errorf("disk store requires a directory")
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if recorder == nil {
		recorder = store.NoOpFaultRecorder{}
	}

	s := &Store{
		dir:      cfg.Directory,
		maxBytes: cfg.MaxBytes,
		compress: cfg.Compression,
		recorder: recorder,
		index:    make(map[string]*record),
		writeCh:  make(chan writeTask, cfg.QueueSize),
	}

	s.recoverIndex()

	s.wg.Add(1)
	go s.writeWorker()

	return s, nil
}

// Get reads and deserializes an entry. Decode failures delete the
// offending file and surface as a miss, never as an error.
func (s *Store) Get(key string) (*entry.Entry, bool) {
	s.mu.RLock()
	rec, ok := s.index[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}

	data, err := os.ReadFile(rec.path)
	if err != nil {
		s.recorder.RecordFault(store.OpDiskRead, key, err)
		s.dropIndexEntry(key)
		return nil, false
	}

	storedKey, e, err := s.decode(data)
	if err != nil {
		s.recorder.RecordFault(store.OpDeserialize, key, err)
		s.removeFile(key)
		return nil, false
	}
	if storedKey != key {
		// File belongs to a colliding key; only the index entry is stale.
		s.dropIndexEntry(key)
		return nil, false
	}

	if !e.IsValid() {
		s.removeFile(key)
		return nil, false
	}

	e.Touch()
	return e, true
}

// Set enqueues the entry for the background write worker. The caller
// is never blocked by disk I/O; when the queue is full the write is
// dropped and reported as a disk-write fault.
func (s *Store) Set(key string, e *entry.Entry) error {
	s.closedMu.RLock()
	defer s.closedMu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	select {
	case s.writeCh <- writeTask{key: key, e: e}:
	default:
		s.recorder.RecordFault(store.OpDiskWrite, key, fmt.Errorf("write queue full, entry dropped"))
	}
	return nil
}

// Delete removes the entry's file and index record.
func (s *Store) Delete(key string) error {
	s.removeFile(key)
	return nil
}

// DeletePattern removes every entry whose key contains substr.
func (s *Store) DeletePattern(substr string) int {
	s.mu.RLock()
	var matched []string
	for key := range s.index {
		if strings.Contains(key, substr) {
			matched = append(matched, key)
		}
	}
	s.mu.RUnlock()

	for _, key := range matched {
		s.removeFile(key)
	}
	return len(matched)
}

// Keys returns all indexed keys.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.index))
	for key := range s.index {
		keys = append(keys, key)
	}
	return keys
}

// Len returns the number of indexed entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.index)
}

// Bytes returns the current total size of stored files.
func (s *Store) Bytes() int64 {
	return s.curBytes.Load()
}

// MaxBytes returns the configured byte budget.
func (s *Store) MaxBytes() int64 {
	return s.maxBytes
}

// Clear removes every stored file and resets the index.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for _, rec := range s.index {
		if err := os.Remove(rec.path); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = err
		}
	}
	s.index = make(map[string]*record)
	s.curBytes.Store(0)
	return firstErr
}

// Close drains the write queue and stops the worker. Entries already
// queued are still written; new writes are rejected.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		s.closedMu.Lock()
		s.closed = true
		s.closedMu.Unlock()
		close(s.writeCh)
	})
	s.wg.Wait()
	return nil
}

// PerformMaintenance deserializes every stored entry, deleting expired
// and corrupt ones, then recomputes counters and re-applies the byte
// budget. O(entries); meant for the scheduled background sweep, not the
// request path.
func (s *Store) PerformMaintenance() store.MaintenanceReport {
	var report store.MaintenanceReport

	for _, key := range s.Keys() {
		s.mu.RLock()
		rec, ok := s.index[key]
		s.mu.RUnlock()
		if !ok {
			continue
		}
		report.Scanned++

		data, err := os.ReadFile(rec.path)
		if err != nil {
			s.recorder.RecordFault(store.OpDiskRead, key, err)
			s.dropIndexEntry(key)
			report.RemovedCorrupt++
			continue
		}
		storedKey, e, err := s.decode(data)
		if err != nil || storedKey != key {
			if err != nil {
				s.recorder.RecordFault(store.OpDeserialize, key, err)
			}
			s.removeFile(key)
			report.RemovedCorrupt++
			continue
		}
		if !e.IsValid() {
			s.removeFile(key)
			report.RemovedExpired++
			continue
		}
		report.Valid++
	}

	if s.curBytes.Load() > s.maxBytes {
		s.evictToWatermark()
	}
	return report
}

// writeWorker applies queued writes in submission order.
func (s *Store) writeWorker() {
	defer s.wg.Done()
	for task := range s.writeCh {
		s.write(task.key, task.e)
	}
}

func (s *Store) write(key string, e *entry.Entry) {
	data, err := codec.Encode(key, e)
	if err != nil {
		s.recorder.RecordFault(store.OpSerialize, key, err)
		return
	}
	if s.compress {
		data, err = gzipBytes(data)
		if err != nil {
			s.recorder.RecordFault(store.OpSerialize, key, err)
			return
		}
	}

	// The directory may not exist yet, or may have vanished since the
	// last write; recreate it rather than failing the caller.
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		s.recorder.RecordFault(store.OpDiskWrite, key, err)
		return
	}

	path := filepath.Join(s.dir, fileName(key))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		// Drop any partially-written file so a later read cannot see
		// truncated content.
		_ = os.Remove(path)
		s.recorder.RecordFault(store.OpDiskWrite, key, err)
		return
	}

	size := int64(len(data))
	now := time.Now()

	s.mu.Lock()
	if old, ok := s.index[key]; ok {
		s.curBytes.Add(-old.size)
	}
	s.index[key] = &record{path: path, size: size, modTime: now}
	s.mu.Unlock()
	s.curBytes.Add(size)

	if s.curBytes.Load() > s.maxBytes {
		s.evictToWatermark()
	}
}

// evictToWatermark deletes stored files oldest-first (by last modified
// time) until usage falls to the eviction watermark below the budget.
func (s *Store) evictToWatermark() {
	target := int64(float64(s.maxBytes) * evictWatermark)

	type aged struct {
		key     string
		modTime time.Time
	}

	s.mu.RLock()
	files := make([]aged, 0, len(s.index))
	for key, rec := range s.index {
		files = append(files, aged{key: key, modTime: rec.modTime})
	}
	s.mu.RUnlock()

	sort.Slice(files, func(i, j int) bool {
		return files[i].modTime.Before(files[j].modTime)
	})

	for _, f := range files {
		if s.curBytes.Load() <= target {
			break
		}
		s.removeFile(f.key)
	}
}

// removeFile deletes a key's file and index record, adjusting the byte
// counter.
func (s *Store) removeFile(key string) {
	s.mu.Lock()
	rec, ok := s.index[key]
	if ok {
		delete(s.index, key)
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	s.curBytes.Add(-rec.size)
	if err := os.Remove(rec.path); err != nil && !os.IsNotExist(err) {
		s.recorder.RecordFault(store.OpDiskWrite, key, err)
	}
}

// dropIndexEntry forgets a key without touching its file.
func (s *Store) dropIndexEntry(key string) {
	s.mu.Lock()
	if rec, ok := s.index[key]; ok {
		delete(s.index, key)
		s.mu.Unlock()
		s.curBytes.Add(-rec.size)
		return
	}
	s.mu.Unlock()
}

// recoverIndex rebuilds the key index by scanning the cache directory.
// The envelope carries its own key, so no separate index file is kept.
// Unreadable files are deleted as corruption.
func (s *Store) recoverIndex() {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		// Missing directory is the fresh-start case; it is created
		// lazily before the first write.
		return
	}

	for _, de := range entries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), fileSuffix) {
			continue
		}
		path := filepath.Join(s.dir, de.Name())

		info, err := de.Info()
		if err != nil {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			s.recorder.RecordFault(store.OpDiskRead, de.Name(), err)
			continue
		}
		key, _, err := s.decode(data)
		if err != nil {
			s.recorder.RecordFault(store.OpDeserialize, de.Name(), err)
			_ = os.Remove(path)
			continue
		}

		s.index[key] = &record{path: path, size: info.Size(), modTime: info.ModTime()}
		s.curBytes.Add(info.Size())
	}
}

func (s *Store) decode(data []byte) (string, *entry.Entry, error) {
	if s.compress {
		plain, err := gunzipBytes(data)
		if err != nil {
			return "", nil, err
		}
		data = plain
	}
	return codec.Decode(data)
}

func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gunzipBytes(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// fileName derives a file name from a cache key: characters outside the
// allow-list become underscores, and over-long keys collapse to a
// fixed-width digest to bound path length.
func fileName(key string) string {
	var b strings.Builder
	b.Grow(len(key))
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	name := b.String()
	if len(name) > maxFileNameLen {
		sum := sha256.Sum256([]byte(key))
		name = hex.EncodeToString(sum[:20])
	}
	return name + fileSuffix
}

var (
	_ store.Store             = (*Store)(nil)
	_ store.MaintainableStore = (*Store)(nil)
)
