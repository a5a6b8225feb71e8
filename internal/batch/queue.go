package batch

import (
	"context"
	"log/slog"
	"sync"
)

// IntakeQueue is a bounded FIFO drained by exactly one worker, so essays go
// through the pipeline one at a time in intake order.
type IntakeQueue struct {
	run     func(ctx context.Context, tempID string)
	logger  *slog.Logger
	metrics *Metrics

	ch     chan string
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
	done   chan struct{}

	mu       sync.Mutex
	closed   bool
	inflight int
	idle     chan struct{}
}

type QueueOption func(*IntakeQueue)

func WithQueueSize(n int) QueueOption {
	return func(q *IntakeQueue) {
		if n > 0 {
			q.ch = make(chan string, n)
		}
	}
}

func WithQueueMetrics(m *Metrics) QueueOption {
	return func(q *IntakeQueue) { q.metrics = m }
}

// NewIntakeQueue returns a stopped queue; call Start to begin draining.
func NewIntakeQueue(run func(ctx context.Context, tempID string), logger *slog.Logger, opts ...QueueOption) *IntakeQueue {
	if logger == nil {
		logger = slog.Default()
	}
	idle := make(chan struct{})
	close(idle)
	ctx, cancel := context.WithCancel(context.Background())
	q := &IntakeQueue{
		run:    run,
		logger: logger,
		ch:     make(chan string, 64),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		idle:   idle,
	}
	for _, o := range opts {
		o(q)
	}
	return q
}

// Start launches the worker. Calling it again is a no-op.
func (q *IntakeQueue) Start() {
	q.once.Do(func() {
		go q.work()
	})
}

func (q *IntakeQueue) work() {
	defer close(q.done)
	q.logger.Debug("batch.queue.worker_started")
	for tempID := range q.ch {
		q.metrics.queueDelta(-1)
		q.run(q.ctx, tempID)
		q.finish()
	}
	q.logger.Debug("batch.queue.worker_stopped")
}

// Enqueue appends tempID without blocking.
func (q *IntakeQueue) Enqueue(tempID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.ch <- tempID:
	default:
		q.logger.Warn("batch.queue.full", "temp_id", tempID, "capacity", cap(q.ch))
		return ErrQueueFull
	}
	q.inflight++
	if q.inflight == 1 {
		q.idle = make(chan struct{})
	}
	q.metrics.queueDelta(1)
	return nil
}

func (q *IntakeQueue) finish() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.inflight--
	if q.inflight == 0 {
		close(q.idle)
	}
}

// Pending is the number of accepted items not yet finished.
func (q *IntakeQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.inflight
}

// Wait blocks until every accepted item has finished or ctx is done.
func (q *IntakeQueue) Wait(ctx context.Context) error {
	q.mu.Lock()
	idle := q.idle
	q.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops intake, cancels in-flight work and waits for the worker to
// exit. Items still queued are run with a cancelled context, which fails them fast.
func (q *IntakeQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	q.cancel()
	q.Start() // drain even if never started
	select {
	case <-ctx.Done():
		q.logger.Warn("batch.queue.shutdown_interrupted")
	case <-q.done:
		q.logger.Debug("batch.queue.drained")
	}
}
