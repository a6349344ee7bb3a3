package lock

import (
	"sync"
	"testing"

	"github.com/kilianp07/rosterd/core/model"
)

func TestComposeRoundTrip(t *testing.T) {
	k := Compose(7, 42)
	if k.TenantID() != 7 || k.SchedulingUnitID() != 42 {
		t.Fatalf("key halves corrupted: tenant=%d unit=%d", k.TenantID(), k.SchedulingUnitID())
	}
	if Compose(7, 42) == Compose(42, 7) {
		t.Fatalf("key halves must not be symmetric")
	}
}

func TestTryAcquireConflict(t *testing.T) {
	a := NewAdvisory()
	k := Compose(1, 1)

	release, err := a.TryAcquire(k, "solve:p1")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if _, err := a.TryAcquire(k, "repair:p2"); !model.IsCode(err, model.CodeLockHeld) {
		t.Fatalf("expected LOCK_HELD, got %v", err)
	}
	if holder, ok := a.Holder(k); !ok || holder != "solve:p1" {
		t.Fatalf("unexpected holder %q", holder)
	}

	release()
	if _, ok := a.Holder(k); ok {
		t.Fatalf("lock not released")
	}
	release2, err := a.TryAcquire(k, "repair:p2")
	if err != nil {
		t.Fatalf("reacquire after release: %v", err)
	}
	release2()
}

func TestReleaseIsIdempotent(t *testing.T) {
	a := NewAdvisory()
	k := Compose(1, 1)
	release, err := a.TryAcquire(k, "a")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	release()
	r2, err := a.TryAcquire(k, "b")
	if err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	// A stale double release must not free the new holder's lock.
	release()
	if holder, ok := a.Holder(k); !ok || holder != "b" {
		t.Fatalf("stale release freed the lock, holder=%q ok=%v", holder, ok)
	}
	r2()
}

func TestDifferentUnitsDoNotContend(t *testing.T) {
	a := NewAdvisory()
	r1, err := a.TryAcquire(Compose(1, 1), "a")
	if err != nil {
		t.Fatalf("acquire 1: %v", err)
	}
	r2, err := a.TryAcquire(Compose(1, 2), "b")
	if err != nil {
		t.Fatalf("acquire 2: %v", err)
	}
	r3, err := a.TryAcquire(Compose(2, 1), "c")
	if err != nil {
		t.Fatalf("acquire 3: %v", err)
	}
	r1()
	r2()
	r3()
}

func TestConcurrentAcquireExactlyOneWinner(t *testing.T) {
	a := NewAdvisory()
	k := Compose(1, 1)
	const n = 32
	var wg sync.WaitGroup
	wins := make(chan func(), n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if release, err := a.TryAcquire(k, "racer"); err == nil {
				wins <- release
			}
		}()
	}
	wg.Wait()
	close(wins)
	var releases []func()
	for r := range wins {
		releases = append(releases, r)
	}
	if len(releases) != 1 {
		t.Fatalf("expected exactly one winner, got %d", len(releases))
	}
	releases[0]()
}
