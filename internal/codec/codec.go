// Package codec defines the persisted entry envelope and the pre-flight
// serialization check used before any durable write.
//
// The on-disk format is a single JSON document per entry. There is no
// format versioning: a document that fails to decode is treated as
// corruption and deleted by the reading tier.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/apatil/browsecache-go/internal/entry"
)

// sampleLimit bounds how many elements of a list-valued candidate are
// inspected by CanPersist. Cheap approximation, not an exhaustive check.
const sampleLimit = 5

// Envelope is the persisted form of a cache entry. The key is stored in
// the envelope so a directory scan can rebuild the key index without a
// separate index file.
type Envelope struct {
	Key        string          `json:"key"`
	Value      json.RawMessage `json:"value"`
	CreatedAt  time.Time       `json:"created_at"`
	ExpiresAt  time.Time       `json:"expires_at,omitempty"`
	AccessedAt time.Time       `json:"accessed_at"`
}

// Encode serializes an entry into its envelope form.
func Encode(key string, e *entry.Entry) ([]byte, error) {
	value, err := json.Marshal(e.Value)
	if err != nil {
		return nil, fmt.Errorf("marshal value for %q: %w", key, err)
	}
	env := Envelope{
		Key:        key,
		Value:      value,
		CreatedAt:  e.CreatedAt,
		ExpiresAt:  e.ExpiresAt,
		AccessedAt: e.LastAccessed(),
	}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope for %q: %w", key, err)
	}
	return data, nil
}

// Decode rebuilds an entry from its envelope form. The entry value is
// the raw JSON payload; callers that know the concrete type decode it
// with DecodeValue.
func Decode(data []byte) (string, *entry.Entry, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	if env.Key == "" {
		return "", nil, fmt.Errorf("envelope has empty key")
	}
	e := entry.Restore(json.RawMessage(env.Value), env.CreatedAt, env.ExpiresAt, env.AccessedAt)
	return env.Key, e, nil
}

// DecodeValue decodes a value that came back from a persisted tier.
// Values served from the memory tier keep their live Go type and are
// returned as-is; values loaded from disk arrive as raw JSON and are
// unmarshaled into out.
func DecodeValue(value any, out any) (bool, error) {
	raw, ok := value.(json.RawMessage)
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("decode persisted value: %w", err)
	}
	return true, nil
}

// CanPersist reports whether value survives a durable serialization
// round trip. The reflective kind check rejects the obvious
// non-serializable shapes cheaply; the trial encode into a throwaway
// buffer is the authoritative answer. For list values only the first
// few elements are sampled before the trial.
func CanPersist(value any) error {
	if value == nil {
		return nil
	}
	if err := checkKind(reflect.ValueOf(value)); err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(value); err != nil {
		return fmt.Errorf("trial serialization: %w", err)
	}
	return nil
}

func checkKind(v reflect.Value) error {
	switch v.Kind() {
	case reflect.Func, reflect.Chan, reflect.Complex64, reflect.Complex128, reflect.UnsafePointer:
		return fmt.Errorf("type %s is not serializable", v.Type())
	case reflect.Ptr, reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return checkKind(v.Elem())
	case reflect.Slice, reflect.Array:
		n := v.Len()
		if n > sampleLimit {
			n = sampleLimit
		}
		for i := 0; i < n; i++ {
			if err := checkKind(v.Index(i)); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
		return nil
	default:
		return nil
	}
}
