package browsecache

import (
	"errors"
	"fmt"

	"github.com/apatil/browsecache-go/internal/store"
)

// FaultKind classifies a swallowed cache fault.
type FaultKind int

const (
	// FaultUnclassified covers faults with no specific category.
	FaultUnclassified FaultKind = iota
	// FaultSerialization indicates a value could not be encoded for storage.
	FaultSerialization
	// FaultDeserialization indicates a stored payload could not be decoded.
	FaultDeserialization
	// FaultDiskRead indicates a persisted-tier read failure.
	FaultDiskRead
	// FaultDiskWrite indicates a persisted-tier write failure.
	FaultDiskWrite
	// FaultKeyGeneration indicates key generation fell back to a unique key.
	FaultKeyGeneration
)

// String returns a human-readable name for the fault kind.
func (k FaultKind) String() string {
	switch k {
	case FaultSerialization:
		return "serialization"
	case FaultDeserialization:
		return "deserialization"
	case FaultDiskRead:
		return "disk-read"
	case FaultDiskWrite:
		return "disk-write"
	case FaultKeyGeneration:
		return "key-generation"
	default:
		return "unclassified"
	}
}

// CacheError is a classified cache fault. The cache never returns these from
// its operations; they surface only through fault hooks and logs.
type CacheError struct {
	Kind    FaultKind
	Key     string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *CacheError) Error() string {
	if e.Key != "" {
		if e.Cause != nil {
			return fmt.Sprintf("%s fault for key %q: %s: %v", e.Kind, e.Key, e.Message, e.Cause)
		}
		return fmt.Sprintf("%s fault for key %q: %s", e.Kind, e.Key, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s fault: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s fault: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *CacheError) Unwrap() error { return e.Cause }

// Is reports whether target is a CacheError of the same kind.
func (e *CacheError) Is(target error) bool {
	var ce *CacheError
	if !errors.As(target, &ce) {
		return false
	}
	return e.Kind == ce.Kind
}

// NewCacheError creates a classified cache fault.
func NewCacheError(kind FaultKind, key, message string, cause error) *CacheError {
	return &CacheError{Kind: kind, Key: key, Message: message, Cause: cause}
}

// faultGuard receives store-level faults, maps them onto statistics and logs,
// and keeps them from ever reaching callers.
type faultGuard struct {
	stats  *Stats
	logger Logger
	hooks  *Hooks
}

func newFaultGuard(stats *Stats, logger Logger, hooks *Hooks) *faultGuard {
	return &faultGuard{stats: stats, logger: logger, hooks: hooks}
}

// RecordFault implements store.FaultRecorder.
func (g *faultGuard) RecordFault(op store.Op, key string, err error) {
	kind := kindForOp(op)
	g.record(kind, key, err)
}

func (g *faultGuard) record(kind FaultKind, key string, err error) {
	switch kind {
	case FaultSerialization:
		g.stats.incSerializationErrors()
	case FaultDeserialization:
		g.stats.incDeserializationErrors()
	case FaultDiskRead:
		g.stats.incDiskReadErrors()
	case FaultDiskWrite:
		g.stats.incDiskWriteErrors()
	case FaultKeyGeneration:
		g.stats.incKeyGenFallbacks()
	}
	g.logger.Warn("cache fault",
		F("kind", kind.String()),
		F("key", key),
		F("error", err),
	)
	if g.hooks != nil {
		g.hooks.invokeFault(kind, key, err)
	}
}

func kindForOp(op store.Op) FaultKind {
	switch op {
	case store.OpSerialize:
		return FaultSerialization
	case store.OpDeserialize:
		return FaultDeserialization
	case store.OpDiskRead:
		return FaultDiskRead
	case store.OpDiskWrite:
		return FaultDiskWrite
	default:
		return FaultUnclassified
	}
}

var _ store.FaultRecorder = (*faultGuard)(nil)
