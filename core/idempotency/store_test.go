package idempotency

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/rosterd/core/model"
)

func TestKeyScoping(t *testing.T) {
	id := uuid.MustParse("a2c5cb64-9b1a-4671-b2a4-0f7b86ea0b97")
	if got := Key("repair.apply", id); got != "repair.apply:"+id.String() {
		t.Fatalf("unexpected key %q", got)
	}
	if Key("solve", id) == Key("repair.apply", id) {
		t.Fatalf("actions must scope keys apart")
	}
}

func TestCheckNewThenHit(t *testing.T) {
	s := NewStore(0)
	body := []byte(`{"driver_id":"d1"}`)

	status, _, err := s.Check("repair.apply:k1", body)
	if err != nil || status != StatusNew {
		t.Fatalf("expected NEW, got %s %v", status, err)
	}
	s.Save("repair.apply:k1", body, []byte(`{"ok":true}`))

	status, cached, err := s.Check("repair.apply:k1", body)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if status != StatusHit {
		t.Fatalf("expected HIT, got %s", status)
	}
	if string(cached) != `{"ok":true}` {
		t.Fatalf("unexpected cached response %s", cached)
	}
}

func TestCheckMismatch(t *testing.T) {
	s := NewStore(0)
	s.Save("k1", []byte("body-a"), []byte("resp"))
	_, _, err := s.Check("k1", []byte("body-b"))
	if !model.IsCode(err, model.CodeIdempotencyMismatch) {
		t.Fatalf("expected IDEMPOTENCY_MISMATCH, got %v", err)
	}
}

func TestEntriesExpire(t *testing.T) {
	s := NewStore(time.Hour)
	clock := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	s.Save("k1", []byte("body"), []byte("resp"))
	clock = clock.Add(30 * time.Minute)
	if status, _, _ := s.Check("k1", []byte("body")); status != StatusHit {
		t.Fatalf("entry expired early")
	}
	clock = clock.Add(31 * time.Minute)
	if status, _, _ := s.Check("k1", []byte("body")); status != StatusNew {
		t.Fatalf("entry outlived its TTL")
	}
	// After expiry the key is free for a different body.
	if _, _, err := s.Check("k1", []byte("other")); err != nil {
		t.Fatalf("expired key must not conflict: %v", err)
	}
}
