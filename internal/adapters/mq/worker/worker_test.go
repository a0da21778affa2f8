package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/courtline/ratings/internal/adapters/mq/queue"
	"github.com/courtline/ratings/internal/domain/model"
)

type fakeIngestor struct {
	mu     sync.Mutex
	added  []string
	reject map[string]error
}

func (f *fakeIngestor) Add(ctx context.Context, g model.GameRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.reject[g.EventID]; ok {
		return err
	}
	f.added = append(f.added, g.EventID)
	return nil
}

func (f *fakeIngestor) ids() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.added))
	copy(out, f.added)
	return out
}

type fakeDeduper struct {
	mu       sync.Mutex
	released []string
}

func (f *fakeDeduper) Unrecord(ctx context.Context, id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = append(f.released, id)
}

func gameEvent(id string) Event {
	return Event{
		EventID:  id,
		TeamA:    "hawks",
		TeamB:    "owls",
		ScoreA:   90,
		ScoreB:   85,
		PlayedAt: time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestWorkerIngestsInOrder(t *testing.T) {
	ctx := context.Background()
	q := queue.NewInMemoryQueue(queue.WithCapacity(8))
	ing := &fakeIngestor{}

	pool := NewPool(1, q, ing, &fakeDeduper{})
	pool.Start(ctx)

	for _, id := range []string{"a", "b", "c"} {
		if !q.Enqueue(ctx, gameEvent(id)) {
			t.Fatalf("enqueue %s refused", id)
		}
	}

	if err := pool.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	got := ing.ids()
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("ingested %v, want [a b c]", got)
	}
}

func TestRejectedEventReleasesDedupeSlot(t *testing.T) {
	ctx := context.Background()
	q := queue.NewInMemoryQueue(queue.WithCapacity(8))
	ing := &fakeIngestor{reject: map[string]error{"bad": errors.New("unknown team")}}
	ded := &fakeDeduper{}

	pool := NewPool(1, q, ing, ded)
	pool.Start(ctx)

	q.Enqueue(ctx, gameEvent("good"))
	q.Enqueue(ctx, gameEvent("bad"))

	if err := pool.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	if got := ing.ids(); len(got) != 1 || got[0] != "good" {
		t.Fatalf("ingested %v, want [good]", got)
	}
	ded.mu.Lock()
	defer ded.mu.Unlock()
	if len(ded.released) != 1 || ded.released[0] != "bad" {
		t.Fatalf("released %v, want [bad]", ded.released)
	}
}

func TestProcessEventNilDeduper(t *testing.T) {
	ctx := context.Background()
	q := queue.NewInMemoryQueue()
	ing := &fakeIngestor{reject: map[string]error{"bad": errors.New("rejected")}}
	w := NewIngestWorker(q, ing, nil)

	if err := w.processEvent(ctx, gameEvent("bad")); err == nil {
		t.Fatal("processEvent returned nil for a rejected game")
	}
}

func TestPoolSizeFloor(t *testing.T) {
	q := queue.NewInMemoryQueue()
	pool := NewPool(0, q, &fakeIngestor{}, nil)
	if got := len(pool.workers); got != 1 {
		t.Fatalf("pool size = %d, want the single ordered writer", got)
	}
}

func TestWorkerShutdownStopsRun(t *testing.T) {
	ctx := context.Background()
	q := queue.NewInMemoryQueue()
	w := NewIngestWorker(q, &fakeIngestor{}, nil, WithName("stop-test"))

	go w.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := w.Shutdown(shutdownCtx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}
