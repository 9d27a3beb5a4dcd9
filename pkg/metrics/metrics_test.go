package metrics

import (
	"errors"
	"testing"
	"time"
)

// fakeStats is a fixed statistics snapshot for exporter tests.
type fakeStats struct {
	hits, misses, evictions, invalidations  int64
	serErrs, deserErrs, readErrs, writeErrs int64
	memEntries, diskBytes                   int64
}

func (f fakeStats) Hits() int64                  { return f.hits }
func (f fakeStats) Misses() int64                { return f.misses }
func (f fakeStats) Requests() int64              { return f.hits + f.misses }
func (f fakeStats) Evictions() int64             { return f.evictions }
func (f fakeStats) Invalidations() int64         { return f.invalidations }
func (f fakeStats) SerializationErrors() int64   { return f.serErrs }
func (f fakeStats) DeserializationErrors() int64 { return f.deserErrs }
func (f fakeStats) DiskReadErrors() int64        { return f.readErrs }
func (f fakeStats) DiskWriteErrors() int64       { return f.writeErrs }
func (f fakeStats) MemoryEntries() int64         { return f.memEntries }
func (f fakeStats) DiskBytes() int64             { return f.diskBytes }
func (f fakeStats) HitRate() float64 {
	if f.hits+f.misses == 0 {
		return 0
	}
	return float64(f.hits) / float64(f.hits+f.misses) * 100
}

type recordingExporter struct {
	exports    int
	operations int
	closed     bool
	err        error
}

func (r *recordingExporter) ExportStats(Stats, Labels) error {
	r.exports++
	return r.err
}

func (r *recordingExporter) RecordOperation(Operation, time.Duration, Labels) error {
	r.operations++
	return r.err
}

func (r *recordingExporter) Close() error {
	r.closed = true
	return r.err
}

func TestDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	if !cfg.Enabled {
		t.Fatal("default config should be enabled")
	}
	if cfg.ReportingInterval != 30*time.Second {
		t.Fatalf("ReportingInterval = %v, want 30s", cfg.ReportingInterval)
	}
	if cfg.MetricNames.HitsTotal != "browsecache_hits_total" {
		t.Fatalf("HitsTotal = %q", cfg.MetricNames.HitsTotal)
	}
}

func TestMultiExporterFansOut(t *testing.T) {
	a := &recordingExporter{}
	b := &recordingExporter{}
	m := NewMultiExporter(a, b)

	if err := m.ExportStats(fakeStats{hits: 1}, nil); err != nil {
		t.Fatalf("ExportStats: %v", err)
	}
	if err := m.RecordOperation(OperationGet, time.Millisecond, nil); err != nil {
		t.Fatalf("RecordOperation: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	for i, e := range []*recordingExporter{a, b} {
		if e.exports != 1 || e.operations != 1 || !e.closed {
			t.Fatalf("exporter %d not fully driven: %+v", i, e)
		}
	}
}

func TestMultiExporterPropagatesError(t *testing.T) {
	boom := errors.New("sink unavailable")
	m := NewMultiExporter(&recordingExporter{err: boom}, &recordingExporter{})

	if err := m.ExportStats(fakeStats{}, nil); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}

func TestNoOpExporter(t *testing.T) {
	e := NewNoOpExporter()
	if err := e.ExportStats(fakeStats{}, nil); err != nil {
		t.Fatalf("ExportStats: %v", err)
	}
	if err := e.RecordOperation(OperationPut, time.Second, nil); err != nil {
		t.Fatalf("RecordOperation: %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
