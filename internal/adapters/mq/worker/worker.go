// Package worker drains the feed queue into the game store.
//
// The default pool size is one: the store serializes writers anyway, so a
// single ingest worker gives strictly ordered appends, which the sequential
// Elo rating depends on. More workers are allowed for feeds where arrival
// order does not matter.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/courtline/ratings/internal/adapters/mq/queue"
	"github.com/courtline/ratings/internal/domain/model"
	"github.com/courtline/ratings/pkg/logger"
	"github.com/courtline/ratings/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerCount  = 1
	poolShutdownTimeout = 30 * time.Second
)

// Event is what workers read off the queue.
type Event = model.GameRecord

// Ingestor appends a validated game to the store.
type Ingestor interface {
	Add(ctx context.Context, g model.GameRecord) error
}

// Deduper releases event ids whose processing failed, so a corrected
// event with the same id can be retried.
type Deduper interface {
	Unrecord(ctx context.Context, id string)
}

// Queue defines how workers receive events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Event
}

// Worker processes game events from the queue.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// IngestWorker implements Worker for the game feed.
type IngestWorker struct {
	queue    Queue
	ingestor Ingestor
	deduper  Deduper
	name     string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewIngestWorker creates a worker with configuration options.
func NewIngestWorker(q Queue, ingestor Ingestor, deduper Deduper, opts ...Option) *IngestWorker {
	w := &IngestWorker{
		queue:    q,
		ingestor: ingestor,
		deduper:  deduper,
		name:     "ingest",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "ingest" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *IngestWorker) Run(ctx context.Context) {
	defer close(w.done)

	events := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := w.processEvent(ctx, event); err != nil {
				w.logger.Error(ctx, "error processing game event", logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *IngestWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processEvent appends a single game to the store. A rejected game releases
// its dedupe slot so a corrected resend with the same id is not dropped.
func (w *IngestWorker) processEvent(ctx context.Context, event queue.Event) error {
	if err := w.ingestor.Add(ctx, event); err != nil {
		metrics.RecordGameRejected()
		metrics.RecordIngestionError("store_rejected")
		if w.deduper != nil {
			w.deduper.Unrecord(ctx, event.EventID)
		}
		w.logger.Error(ctx, "game rejected by store",
			logger.String("event_id", event.EventID),
			logger.String("team_a", event.TeamA),
			logger.String("team_b", event.TeamB),
			logger.Error(err),
		)
		return fmt.Errorf("ingest event %s: %w", event.EventID, err)
	}
	return nil
}

// Pool manages the ingest workers.
type Pool struct {
	workers []*IngestWorker
	queue   Queue

	logger logger.Logger
}

// NewPool creates a worker pool. A count below one falls back to the single
// ordered writer.
func NewPool(workerCount int, q Queue, ingestor Ingestor, deduper Deduper) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}

	pool := &Pool{
		workers: make([]*IngestWorker, workerCount),
		queue:   q,
		logger:  logger.Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewIngestWorker(
			q,
			ingestor,
			deduper,
			WithName(fmt.Sprintf("ingest-%d", i)),
		)
	}

	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue and waits for the workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	return nil
}
