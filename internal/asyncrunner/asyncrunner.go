// Package asyncrunner implements the Async Task Runner: best-effort,
// bounded-retry background work (embedding writeback, document ingest)
// that must never block the request path it was queued from.
package asyncrunner

import (
	"context"
	"sync"
	"time"

	"github.com/agentcore/orchestrator/graph"
	"github.com/agentcore/orchestrator/log"
)

// Task is one unit of background work.
type Task func(ctx context.Context) error

// Runner submits tasks to a bounded worker pool. Submit never blocks the
// caller past the pool's queue capacity; tasks beyond that are dropped
// and logged, since this work is explicitly best-effort.
type Runner struct {
	queue       chan Task
	logger      log.Logger
	maxAttempts int
	baseDelay   time.Duration
	wg          sync.WaitGroup
}

// Options configures a Runner.
type Options struct {
	Workers     int
	QueueSize   int
	MaxAttempts int
	BaseDelay   time.Duration
	Logger      log.Logger
}

// New starts opts.Workers goroutines draining a bounded queue. Call Stop
// to let in-flight tasks finish and release the workers.
func New(opts Options) *Runner {
	if opts.Workers <= 0 {
		opts.Workers = 2
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = 200 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = log.NewDefaultLogger(log.LogLevelInfo)
	}

	r := &Runner{
		queue:       make(chan Task, opts.QueueSize),
		logger:      opts.Logger,
		maxAttempts: opts.MaxAttempts,
		baseDelay:   opts.BaseDelay,
	}
	r.wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go r.worker()
	}
	return r
}

func (r *Runner) worker() {
	defer r.wg.Done()
	for task := range r.queue {
		r.run(task)
	}
}

// run executes task with bounded exponential-backoff retries, grounded on
// graph.ExponentialBackoffRetry — the same retry primitive the graph
// package exposes for node-level retries, reused here for task-level
// retries since the shape (attempt, err, backoff, give up) is identical.
func (r *Runner) run(task Task) {
	_, err := graph.ExponentialBackoffRetry(context.Background(), func() (any, error) {
		return nil, task(context.Background())
	}, r.maxAttempts, r.baseDelay)
	if err != nil {
		r.logger.Warn("async task failed after retries: %v", err)
	}
}

// Submit enqueues task. If the queue is full, the task is dropped and
// logged rather than blocking the caller — the request path this is
// queued from (e.g. a chat turn finishing) must not wait on it.
func (r *Runner) Submit(task Task) {
	select {
	case r.queue <- task:
	default:
		r.logger.Warn("async task queue full, dropping task")
	}
}

// Stop closes the queue and waits for in-flight/queued tasks to drain.
func (r *Runner) Stop() {
	close(r.queue)
	r.wg.Wait()
}
