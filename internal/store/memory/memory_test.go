package memory

import (
	"fmt"
	"testing"
	"time"

	"github.com/apatil/browsecache-go/internal/entry"
)

func TestSetGet(t *testing.T) {
	s, err := New(10)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	if err := s.Set("k1", entry.New("v1", time.Hour)); err != nil {
		t.Fatalf("Set: %v", err)
	}

	e, ok := s.Get("k1")
	if !ok {
		t.Fatal("expected hit")
	}
	if e.Value != "v1" {
		t.Fatalf("Value = %v, want v1", e.Value)
	}

	if _, ok := s.Get("absent"); ok {
		t.Fatal("expected miss for absent key")
	}
}

func TestCapacityEvictsLeastRecentlyUsed(t *testing.T) {
	s, err := New(3)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	var evicted []string
	s.SetEvictCallback(func(key string, _ any) {
		evicted = append(evicted, key)
	})

	for i := 1; i <= 3; i++ {
		s.Set(fmt.Sprintf("k%d", i), entry.New(i, time.Hour))
	}

	// Touch k1 so k2 becomes least recently used.
	if _, ok := s.Get("k1"); !ok {
		t.Fatal("expected hit for k1")
	}

	s.Set("k4", entry.New(4, time.Hour))

	if len(evicted) != 1 || evicted[0] != "k2" {
		t.Fatalf("evicted = %v, want [k2]", evicted)
	}
	if _, ok := s.Get("k1"); !ok {
		t.Fatal("recently used k1 must survive the eviction")
	}
	if _, ok := s.Get("k2"); ok {
		t.Fatal("k2 should have been evicted")
	}
}

func TestExplicitRemovalDoesNotReportEviction(t *testing.T) {
	s, err := New(3)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	evictions := 0
	s.SetEvictCallback(func(string, any) { evictions++ })

	s.Set("k1", entry.New(1, time.Hour))
	s.Set("k2", entry.New(2, time.Hour))
	s.Delete("k1")
	s.Clear()

	if evictions != 0 {
		t.Fatalf("evictions = %d, want 0 for explicit removals", evictions)
	}
}

func TestExpiredEntryIsMissAndRemoved(t *testing.T) {
	s, err := New(10)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	past := time.Now().Add(-time.Second)
	s.Set("stale", entry.Restore("v", past.Add(-time.Minute), past, past))

	if _, ok := s.Get("stale"); ok {
		t.Fatal("expired entry must be a miss")
	}
	if s.Len() != 0 {
		t.Fatalf("Len = %d after expired read, want 0", s.Len())
	}
}

func TestDeletePattern(t *testing.T) {
	s, err := New(10)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	keys := []string{
		"files_conn_C1_path_docs",
		"search_conn_C1_path_docs_q_report",
		"files_conn_C2_path_docs",
	}
	for _, k := range keys {
		s.Set(k, entry.New("v", time.Hour))
	}

	removed := s.DeletePattern("conn_C1")
	if removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}
	if _, ok := s.Get("files_conn_C2_path_docs"); !ok {
		t.Fatal("non-matching key must survive")
	}

	if got := s.DeletePattern("no_such_pattern"); got != 0 {
		t.Fatalf("removed = %d for non-matching pattern, want 0", got)
	}
}

func TestKeysExcludesExpired(t *testing.T) {
	s, err := New(10)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	s.Set("fresh", entry.New("v", time.Hour))
	past := time.Now().Add(-time.Second)
	s.Set("stale", entry.Restore("v", past, past, past))

	keys := s.Keys()
	if len(keys) != 1 || keys[0] != "fresh" {
		t.Fatalf("Keys = %v, want [fresh]", keys)
	}
}

func TestPerformMaintenance(t *testing.T) {
	s, err := New(10)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	s.Set("fresh", entry.New("v", time.Hour))
	past := time.Now().Add(-time.Second)
	s.Set("stale1", entry.Restore("v", past, past, past))
	s.Set("stale2", entry.Restore("v", past, past, past))

	report := s.PerformMaintenance()
	if report.Scanned != 3 {
		t.Fatalf("Scanned = %d, want 3", report.Scanned)
	}
	if report.RemovedExpired != 2 {
		t.Fatalf("RemovedExpired = %d, want 2", report.RemovedExpired)
	}
	if report.Valid != 1 {
		t.Fatalf("Valid = %d, want 1", report.Valid)
	}
	if s.Len() != 1 {
		t.Fatalf("Len = %d after maintenance, want 1", s.Len())
	}
}

func TestConcurrentAccess(t *testing.T) {
	s, err := New(50)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()

	done := make(chan struct{})
	for g := 0; g < 4; g++ {
		go func(g int) {
			defer func() { done <- struct{}{} }()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", i%20)
				s.Set(key, entry.New(g, time.Hour))
				s.Get(key)
			}
		}(g)
	}
	for g := 0; g < 4; g++ {
		<-done
	}

	if s.Len() > 50 {
		t.Fatalf("Len = %d exceeds capacity", s.Len())
	}
}
