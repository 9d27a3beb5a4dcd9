package entry

import (
	"testing"
	"time"
)

func TestNewSetsTimestamps(t *testing.T) {
	before := time.Now()
	e := New("value", time.Minute)
	after := time.Now()

	if e.CreatedAt.Before(before) || e.CreatedAt.After(after) {
		t.Fatalf("CreatedAt %v outside [%v, %v]", e.CreatedAt, before, after)
	}
	if !e.ExpiresAt.Equal(e.CreatedAt.Add(time.Minute)) {
		t.Fatalf("ExpiresAt = %v, want CreatedAt+1m", e.ExpiresAt)
	}
	if e.Value != "value" {
		t.Fatalf("Value = %v, want %q", e.Value, "value")
	}
}

func TestZeroTTLNeverExpires(t *testing.T) {
	e := New(42, 0)
	if !e.ExpiresAt.IsZero() {
		t.Fatalf("ExpiresAt = %v, want zero", e.ExpiresAt)
	}
	if !e.IsValid() {
		t.Fatal("entry with zero TTL should always be valid")
	}
	if e.Remaining() != 0 {
		t.Fatalf("Remaining = %v, want 0 for non-expiring entry", e.Remaining())
	}
}

func TestIsValid(t *testing.T) {
	valid := New("v", time.Hour)
	if !valid.IsValid() {
		t.Fatal("fresh entry should be valid")
	}

	past := time.Now().Add(-time.Second)
	expired := Restore("v", past.Add(-time.Minute), past, past)
	if expired.IsValid() {
		t.Fatal("entry past its expiration should be invalid")
	}
}

func TestRemaining(t *testing.T) {
	e := New("v", time.Hour)
	r := e.Remaining()
	if r <= 59*time.Minute || r > time.Hour {
		t.Fatalf("Remaining = %v, want just under 1h", r)
	}

	past := time.Now().Add(-time.Second)
	expired := Restore("v", past.Add(-time.Minute), past, past)
	if expired.Remaining() != 0 {
		t.Fatalf("Remaining = %v for expired entry, want 0", expired.Remaining())
	}
}

func TestTouchUpdatesAccessTime(t *testing.T) {
	e := New("v", time.Hour)
	first := e.LastAccessed()
	time.Sleep(5 * time.Millisecond)
	e.Touch()
	if !e.LastAccessed().After(first) {
		t.Fatalf("LastAccessed %v not after %v", e.LastAccessed(), first)
	}
}

func TestRestore(t *testing.T) {
	created := time.Now().Add(-time.Hour)
	expires := time.Now().Add(time.Hour)
	accessed := time.Now().Add(-time.Minute)

	e := Restore("v", created, expires, accessed)
	if !e.CreatedAt.Equal(created) {
		t.Fatalf("CreatedAt = %v, want %v", e.CreatedAt, created)
	}
	if !e.ExpiresAt.Equal(expires) {
		t.Fatalf("ExpiresAt = %v, want %v", e.ExpiresAt, expires)
	}
	if !e.LastAccessed().Equal(accessed) {
		t.Fatalf("LastAccessed = %v, want %v", e.LastAccessed(), accessed)
	}
	if !e.IsValid() {
		t.Fatal("restored entry with future expiry should be valid")
	}
	if e.Age() < 59*time.Minute {
		t.Fatalf("Age = %v, want about 1h", e.Age())
	}
}
