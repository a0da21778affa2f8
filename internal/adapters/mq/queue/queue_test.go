package queue

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func testEvent(id string) Event {
	return Event{
		EventID:  id,
		TeamA:    "hawks",
		TeamB:    "owls",
		ScoreA:   90,
		ScoreB:   85,
		PlayedAt: time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestEnqueueDequeue(t *testing.T) {
	ctx := context.Background()
	q := NewInMemoryQueue(WithCapacity(4))

	for i := 0; i < 3; i++ {
		if !q.Enqueue(ctx, testEvent(fmt.Sprintf("e-%d", i))) {
			t.Fatalf("enqueue %d refused on a non-full queue", i)
		}
	}
	if got := q.Len(ctx); got != 3 {
		t.Fatalf("Len = %d, want 3", got)
	}

	out := q.Dequeue(ctx)
	for i := 0; i < 3; i++ {
		select {
		case e := <-out:
			if want := fmt.Sprintf("e-%d", i); e.EventID != want {
				t.Fatalf("dequeue order: got %s, want %s", e.EventID, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for event %d", i)
		}
	}
}

func TestEnqueueFull(t *testing.T) {
	ctx := context.Background()
	q := NewInMemoryQueue(WithCapacity(2))

	if !q.Enqueue(ctx, testEvent("a")) || !q.Enqueue(ctx, testEvent("b")) {
		t.Fatal("enqueue refused below capacity")
	}
	if q.Enqueue(ctx, testEvent("c")) {
		t.Fatal("enqueue accepted on a full queue")
	}
	if got := q.Len(ctx); got != 2 {
		t.Fatalf("Len = %d, want 2", got)
	}
}

func TestEnqueueCancelledContext(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A cancelled context on a queue with room: the non-blocking send wins
	// the select or the context branch refuses; either way no panic and the
	// queue stays consistent.
	_ = q.Enqueue(ctx, testEvent("a"))
	if got := q.Len(context.Background()); got > 1 {
		t.Fatalf("Len = %d, want at most 1", got)
	}
}

func TestCloseDrains(t *testing.T) {
	ctx := context.Background()
	q := NewInMemoryQueue(WithCapacity(4))

	q.Enqueue(ctx, testEvent("a"))
	q.Enqueue(ctx, testEvent("b"))

	if err := q.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !q.IsClosed() {
		t.Fatal("IsClosed = false after Close")
	}
	if q.Enqueue(ctx, testEvent("late")) {
		t.Fatal("enqueue accepted after Close")
	}

	// Queued events still drain, then the consumer channel closes.
	out := q.Dequeue(ctx)
	var drained []string
	for e := range out {
		drained = append(drained, e.EventID)
	}
	if len(drained) != 2 || drained[0] != "a" || drained[1] != "b" {
		t.Fatalf("drained %v, want [a b]", drained)
	}
}

func TestCloseIdempotent(t *testing.T) {
	q := NewInMemoryQueue()
	if err := q.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestDefaultCapacity(t *testing.T) {
	q := NewInMemoryQueue()
	if q.capacity != defaultCapacity {
		t.Fatalf("capacity = %d, want %d", q.capacity, defaultCapacity)
	}
	if q = NewInMemoryQueue(WithCapacity(-5)); q.capacity != defaultCapacity {
		t.Fatalf("negative capacity not rejected: %d", q.capacity)
	}
}
