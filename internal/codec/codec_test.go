package codec

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/apatil/browsecache-go/internal/entry"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	e := entry.New(map[string]any{"name": "report.txt", "size": float64(1024)}, time.Hour)

	data, err := Encode("files_conn_C1_path_docs", e)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	key, restored, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if key != "files_conn_C1_path_docs" {
		t.Fatalf("key = %q, want %q", key, "files_conn_C1_path_docs")
	}
	if !restored.ExpiresAt.Equal(e.ExpiresAt.Truncate(0)) && !restored.ExpiresAt.Equal(e.ExpiresAt) {
		t.Fatalf("ExpiresAt = %v, want %v", restored.ExpiresAt, e.ExpiresAt)
	}
	if !restored.IsValid() {
		t.Fatal("restored entry should still be valid")
	}

	var value map[string]any
	wasRaw, err := DecodeValue(restored.Value, &value)
	if err != nil {
		t.Fatalf("DecodeValue: %v", err)
	}
	if !wasRaw {
		t.Fatal("decoded entry value should be raw JSON")
	}
	if value["name"] != "report.txt" || value["size"] != float64(1024) {
		t.Fatalf("unexpected decoded value: %v", value)
	}
}

func TestDecodeRejectsCorruptData(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"truncated", []byte(`{"key":"k","va`)},
		{"not json", []byte("garbage bytes")},
		{"empty key", []byte(`{"value":"1","created_at":"2026-01-01T00:00:00Z"}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := Decode(tt.data); err == nil {
				t.Fatal("expected decode error")
			}
		})
	}
}

func TestDecodeValuePassesThroughLiveValues(t *testing.T) {
	var out []string
	wasRaw, err := DecodeValue([]string{"a"}, &out)
	if err != nil {
		t.Fatalf("DecodeValue: %v", err)
	}
	if wasRaw {
		t.Fatal("live Go value should not be treated as raw JSON")
	}
}

func TestDecodeValueCorruptPayload(t *testing.T) {
	var out []string
	if _, err := DecodeValue(json.RawMessage(`{"not":"a list"`), &out); err == nil {
		t.Fatal("expected error for corrupt raw payload")
	}
}

func TestCanPersist(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		wantErr bool
	}{
		{"nil", nil, false},
		{"string", "hello", false},
		{"struct slice", []struct{ Name string }{{"a"}, {"b"}}, false},
		{"map", map[string]int{"a": 1}, false},
		{"func", func() {}, true},
		{"chan", make(chan int), true},
		{"complex", complex(1, 2), true},
		{"slice of funcs", []func(){func() {}}, true},
		{"unmarshalable map key", map[complex128]string{complex(1, 2): "x"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanPersist(tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CanPersist(%v) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
		})
	}
}

func TestCanPersistSamplesListElements(t *testing.T) {
	// Bad element inside the sample window is caught.
	bad := []any{"ok", "ok", func() {}}
	if err := CanPersist(bad); err == nil {
		t.Fatal("expected rejection of sampled bad element")
	}

	// The trial serialization still catches bad elements past the sample
	// window.
	tail := []any{"a", "b", "c", "d", "e", func() {}}
	if err := CanPersist(tail); err == nil {
		t.Fatal("expected trial serialization to reject bad tail element")
	}
}
