package eventbus

import (
	"sync"
	"testing"
)

func TestPublishPreservesOrder(t *testing.T) {
	b := New[int](8)
	sub := b.Subscribe()

	for i := 0; i < 8; i++ {
		b.Publish(i)
	}
	for i := 0; i < 8; i++ {
		if got := <-sub; got != i {
			t.Fatalf("event %d delivered as %d", i, got)
		}
	}
}

func TestPublishFansOut(t *testing.T) {
	b := New[string](4)
	a := b.Subscribe()
	c := b.Subscribe()

	b.Publish("x")
	if got := <-a; got != "x" {
		t.Fatalf("subscriber a got %q", got)
	}
	if got := <-c; got != "x" {
		t.Fatalf("subscriber c got %q", got)
	}
}

func TestTryPublishReportsFullBuffer(t *testing.T) {
	b := New[int](1)
	sub := b.Subscribe()

	if !b.TryPublish(1) {
		t.Fatal("first event should fit the buffer")
	}
	if b.TryPublish(2) {
		t.Fatal("second event should overflow the buffer")
	}
	if got := <-sub; got != 1 {
		t.Fatalf("got %d, want 1", got)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := New[int](1)
	sub := b.Subscribe()
	b.Unsubscribe(sub)

	if _, ok := <-sub; ok {
		t.Fatal("unsubscribed channel should be closed")
	}
	// Publishing to the remaining empty subscriber set must not block.
	b.Publish(1)
}

func TestCloseIsIdempotent(t *testing.T) {
	b := New[int](1)
	sub := b.Subscribe()
	b.Close()
	b.Close()

	if _, ok := <-sub; ok {
		t.Fatal("subscriber channel should be closed")
	}
	b.Publish(1) // dropped, not a panic
	if b.TryPublish(1) {
		t.Fatal("closed bus accepted an event")
	}
	if _, ok := <-b.Subscribe(); ok {
		t.Fatal("subscribing to a closed bus should yield a closed channel")
	}
}

func TestConcurrentPublishersDeliverEverything(t *testing.T) {
	const publishers, perPublisher = 8, 50
	b := New[int](publishers * perPublisher)
	sub := b.Subscribe()

	var wg sync.WaitGroup
	for p := 0; p < publishers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perPublisher; i++ {
				b.Publish(1)
			}
		}()
	}
	wg.Wait()

	for i := 0; i < publishers*perPublisher; i++ {
		<-sub
	}
	select {
	case e := <-sub:
		t.Fatalf("unexpected extra event %v", e)
	default:
	}
}
