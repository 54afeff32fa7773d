// Package worker runs background replay jobs off a queue.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/f1replay/internal/adapters/mq/queue"
	"github.com/okian/f1replay/pkg/logger"
	"github.com/okian/f1replay/pkg/metrics"
)

// Default worker configuration constants.
const (
	poolShutdownTimeout = 30 * time.Second
)

// Warmer loads whatever a replay needs before it is first queried.
type Warmer interface {
	Warm(ctx context.Context, replayID string) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// InMemoryWorker processes jobs until the queue closes or it is shut down.
type InMemoryWorker struct {
	queue  Queue
	warmer Warmer
	name   string

	// Shutdown control
	shutdown chan struct{}
	done     chan struct{}

	processed *atomic.Int64
	failed    *atomic.Int64

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, warmer Warmer, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		warmer:    warmer,
		name:      "worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		processed: new(atomic.Int64),
		failed:    new(atomic.Int64),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.process(ctx, job); err != nil {
				w.logger.Warn(ctx, "job failed", logger.String("replay", job.ReplayID), logger.Error(err))
			}
		}
	}
}

// Shutdown stops the worker without waiting for the queue to drain.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) process(ctx context.Context, job queue.Job) error {
	if err := w.warmer.Warm(ctx, job.ReplayID); err != nil {
		w.failed.Add(1)
		metrics.RecordPrewarmJob("error")
		metrics.RecordErrorByComponent("worker", "prewarm_error")
		return fmt.Errorf("warm %s: %w", job.ReplayID, err)
	}
	w.processed.Add(1)
	metrics.RecordPrewarmJob("ok")
	return nil
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	processed atomic.Int64
	failed    atomic.Int64

	stopOnce sync.Once

	logger logger.Logger
}

// NewPool creates a pool of workerCount workers. A non-positive count uses
// one worker per CPU.
func NewPool(workerCount int, q Queue, warmer Warmer) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		w := NewInMemoryWorker(q, warmer, WithName("worker-"+strconv.Itoa(i)))
		w.processed, w.failed = &p.processed, &p.failed
		p.workers[i] = w
	}
	return p
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Wait blocks until every worker has returned, which happens once the
// queue is closed and drained.
func (p *Pool) Wait(ctx context.Context) error {
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Processed returns the number of jobs completed and failed so far.
func (p *Pool) Processed() (ok, failed int64) {
	return p.processed.Load(), p.failed.Load()
}

// Shutdown closes the queue if it can be closed and stops every worker.
func (p *Pool) Shutdown(ctx context.Context) error {
	var err error
	p.stopOnce.Do(func() {
		if closer, ok := p.queue.(interface{ Close() error }); ok {
			if cerr := closer.Close(); cerr != nil {
				p.logger.Error(ctx, "error closing queue", logger.Error(cerr))
			}
		}

		shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
		defer cancel()

		for i, w := range p.workers {
			if serr := w.Shutdown(shutdownCtx); serr != nil {
				p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
				err = serr
			}
		}
	})
	return err
}
