// Package worker provides the job execution layer: a bounded Pool of
// reusable worker goroutines, and a Runner that drives one job's business
// logic through middleware while keeping its record alive.
package worker

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jobward/jobward"
)

// Pool manages a fixed set of worker goroutines executing submitted tasks.
// Submission never blocks the caller: when all workers are busy and the
// queue is full, Submit fails fast instead of queueing unboundedly.
type Pool struct {
	concurrency int
	queueDepth  int
	logger      *slog.Logger

	tasks  chan func()
	stopCh chan struct{}
	wg     sync.WaitGroup

	mu      sync.Mutex
	running bool
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithPoolConcurrency sets the number of concurrent worker goroutines.
func WithPoolConcurrency(n int) PoolOption {
	return func(p *Pool) { p.concurrency = n }
}

// WithPoolQueueDepth sets how many submitted tasks may wait for a free
// worker before Submit reports saturation.
func WithPoolQueueDepth(n int) PoolOption {
	return func(p *Pool) { p.queueDepth = n }
}

// NewPool creates a worker pool.
func NewPool(logger *slog.Logger, opts ...PoolOption) *Pool {
	p := &Pool{
		concurrency: 10,
		queueDepth:  32,
		logger:      logger,
		stopCh:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.tasks = make(chan func(), p.queueDepth)
	return p
}

// Start launches the worker goroutines. It returns immediately.
func (p *Pool) Start(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return nil
	}
	p.running = true

	p.logger.Info("worker pool starting",
		slog.Int("concurrency", p.concurrency),
		slog.Int("queue_depth", p.queueDepth),
	)

	for range p.concurrency {
		p.wg.Add(1)
		go p.workLoop()
	}

	return nil
}

// Submit hands a task to the pool. It fails with jobward.ErrPoolStopped
// when the pool is not running and jobward.ErrPoolSaturated when all
// workers are busy and the queue is full.
func (p *Pool) Submit(task func()) error {
	p.mu.Lock()
	running := p.running
	p.mu.Unlock()

	if !running {
		return jobward.ErrPoolStopped
	}

	select {
	case p.tasks <- task:
		return nil
	default:
		return jobward.ErrPoolSaturated
	}
}

// Stop signals all workers to stop and waits for in-flight tasks to
// finish. Running tasks are never cancelled; a stopping pool lets them
// run to completion, bounded only by the context deadline on the wait.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	p.mu.Unlock()

	p.logger.Info("worker pool stopping")

	close(p.stopCh)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool stopped gracefully")
		return nil
	case <-ctx.Done():
		p.logger.Warn("worker pool shutdown timed out with tasks still running")
		return ctx.Err()
	}
}

// workLoop is run by each worker goroutine. Queued tasks are drained
// before the stop signal is honored so accepted work is not dropped.
func (p *Pool) workLoop() {
	defer p.wg.Done()

	for {
		select {
		case task := <-p.tasks:
			task()
		case <-p.stopCh:
			for {
				select {
				case task := <-p.tasks:
					task()
				default:
					return
				}
			}
		}
	}
}
