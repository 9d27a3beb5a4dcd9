package store

import (
	"github.com/apatil/browsecache-go/internal/entry"
)

// Store defines the contract shared by all cache tiers (memory, disk,
// redis, hybrid).
type Store interface {
	// Get retrieves an entry by key. An expired or corrupt entry is
	// removed and reported as a miss, never as an error.
	Get(key string) (*entry.Entry, bool)

	// Set stores an entry under key, overwriting any previous entry.
	Set(key string, e *entry.Entry) error

	// Delete removes an entry by key. Deleting an absent key is a no-op.
	Delete(key string) error

	// DeletePattern removes every entry whose key contains substr
	// (plain substring containment, not glob or regex) and returns the
	// number of entries removed.
	DeletePattern(substr string) int

	// Keys returns all keys currently held.
	Keys() []string

	// Len returns the current number of entries.
	Len() int

	// Clear removes all entries.
	Clear() error

	// Close releases resources. The store must not be used afterwards.
	Close() error
}

// EvictCallback is invoked when an entry leaves a store for a reason
// other than an explicit Delete (capacity eviction, expiry sweep).
type EvictCallback func(key string, value any)

// LRUStore is a bounded store that evicts by recency.
type LRUStore interface {
	Store

	// SetEvictCallback registers a callback for capacity evictions.
	SetEvictCallback(cb EvictCallback)

	// Capacity returns the maximum number of entries the store holds.
	Capacity() int
}

// MaintenanceReport summarizes one maintenance pass over a store.
type MaintenanceReport struct {
	Scanned        int
	RemovedExpired int
	RemovedCorrupt int
	Valid          int
}

// Merge folds another report into r.
func (r *MaintenanceReport) Merge(other MaintenanceReport) {
	r.Scanned += other.Scanned
	r.RemovedExpired += other.RemovedExpired
	r.RemovedCorrupt += other.RemovedCorrupt
	r.Valid += other.Valid
}

// MaintainableStore supports full expiry/corruption sweeps.
type MaintainableStore interface {
	Store

	// PerformMaintenance scans every entry, removes expired and corrupt
	// ones, and reports what it found. Safe to abandon mid-sweep.
	PerformMaintenance() MaintenanceReport
}

// Op identifies the kind of storage operation a fault occurred in.
// Carrying the operation kind explicitly keeps fault classification
// independent of error message contents.
type Op int

const (
	OpSerialize Op = iota
	OpDeserialize
	OpDiskRead
	OpDiskWrite
)

// String returns the operation name for logs.
func (o Op) String() string {
	switch o {
	case OpSerialize:
		return "serialize"
	case OpDeserialize:
		return "deserialize"
	case OpDiskRead:
		return "disk-read"
	case OpDiskWrite:
		return "disk-write"
	default:
		return "unknown"
	}
}

// FaultRecorder receives storage faults that the tiers swallow. Stores
// never surface these to callers; they degrade to a miss or a skipped
// write and hand the fault here for statistics and logging.
type FaultRecorder interface {
	RecordFault(op Op, key string, err error)
}

// NoOpFaultRecorder discards faults. Used when no recorder is wired.
type NoOpFaultRecorder struct{}

// RecordFault does nothing.
func (NoOpFaultRecorder) RecordFault(Op, string, error) {}
