// Package worker applies queued grade events to the store.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fausterrex/gradegoal/internal/adapters/mq/queue"
	"github.com/fausterrex/gradegoal/pkg/logger"
	"github.com/fausterrex/gradegoal/pkg/metrics"
)

const (
	metricsUpdateInterval = 5 * time.Second
	stopTimeout           = 5 * time.Second
)

// Applier folds one grade event into the store.
type Applier interface {
	Apply(ctx context.Context, e queue.Event) error
}

// Queue is where workers read events from.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Event
}

// Worker processes events from a Queue.
type Worker interface {
	// Run consumes events until ctx is done, the queue is drained after
	// close, or Shutdown is called.
	Run(ctx context.Context)

	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue   Queue
	applier Applier
	name    string
	logger  logger.Logger
	active  *atomic.Int64

	stopOnce sync.Once
	shutdown chan struct{}
	done     chan struct{}
}

// NewInMemoryWorker creates a worker.
func NewInMemoryWorker(q Queue, applier Applier, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		applier:  applier,
		name:     "worker",
		logger:   logger.Nop(),
		active:   new(atomic.Int64),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	events := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := w.process(ctx, e); err != nil {
				w.logger.Error(ctx, "error applying grade event", logger.Error(err))
			}
		}
	}
}

// Shutdown stops the worker after its current event.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.stopOnce.Do(func() { close(w.shutdown) })
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed when Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} {
	return w.done
}

func (w *InMemoryWorker) process(ctx context.Context, e queue.Event) error { //nolint:gocritic // hugeParam: events travel by value
	w.active.Add(1)
	defer w.active.Add(-1)

	start := time.Now()
	err := w.applier.Apply(ctx, e)
	metrics.RecordApplyLatency(float64(time.Since(start).Microseconds()) / 1000)

	if err != nil {
		metrics.RecordApplyError()
		metrics.RecordErrorByComponent("worker", "apply_error")
		return fmt.Errorf("apply %s event %s: %w", e.Kind, e.EventID, err)
	}
	metrics.RecordEventApplied(string(e.Kind))
	w.logger.Debug(ctx, "grade event applied",
		logger.String("event_id", e.EventID),
		logger.String("student_id", e.StudentID),
		logger.String("course_id", e.CourseID),
	)
	return nil
}

// Pool runs a fixed number of workers over one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	active  atomic.Int64
	logger  logger.Logger

	stopOnce sync.Once
	stop     chan struct{}
}

// NewPool creates workerCount workers; values below 1 use runtime.NumCPU().
func NewPool(workerCount int, q Queue, applier Applier, opts ...PoolOption) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Nop(),
		stop:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	for i := range p.workers {
		p.workers[i] = NewInMemoryWorker(q, applier,
			WithName("worker-"+strconv.Itoa(i)),
			WithLogger(p.logger),
			withActiveCounter(&p.active),
		)
	}
	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Active returns how many workers are applying an event right now.
func (p *Pool) Active() int {
	return int(p.active.Load())
}

// Start launches every worker and the gauge updater.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	go p.publishMetrics(ctx)
}

func (p *Pool) publishMetrics(ctx context.Context) {
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		case <-ticker.C:
			metrics.UpdateWorkerActiveCount(p.Active())
		}
	}
}

// Stop interrupts every worker without draining the queue.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() { close(p.stop) })
	for _, w := range p.workers {
		ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		_ = w.Shutdown(ctx)
		cancel()
	}
}

// Shutdown closes the queue and waits for the workers to drain it. Workers
// still running when ctx ends are interrupted.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}
	defer p.stopOnce.Do(func() { close(p.stop) })

	for i, w := range p.workers {
		select {
		case <-w.Done():
		case <-ctx.Done():
			p.logger.Warn(ctx, "worker did not drain in time", logger.Int("worker_id", i))
			for _, rest := range p.workers[i:] {
				rest.stopOnce.Do(func() { close(rest.shutdown) })
			}
			return fmt.Errorf("%w: %w", ErrStopped, ctx.Err())
		}
	}
	return nil
}
