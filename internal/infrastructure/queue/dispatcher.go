package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/backpine/users-service/internal/pkg/metrics"
)

const (
	defaultWorkers     = 4
	defaultTaskTimeout = 10 * time.Second
	channelBuffer      = 256
)

type task struct {
	name string
	run  func(ctx context.Context) error
}

// Dispatcher runs post-response work on a fixed set of workers. It is the
// Background binding handed to request scopes.
type Dispatcher struct {
	tasks   chan task
	workers int
	timeout time.Duration
	log     zerolog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers workers.
// If numWorkers <= 0, defaultWorkers is used; if taskTimeout <= 0,
// defaultTaskTimeout is used.
func NewDispatcher(numWorkers int, taskTimeout time.Duration, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	if taskTimeout <= 0 {
		taskTimeout = defaultTaskTimeout
	}
	return &Dispatcher{
		tasks:   make(chan task, channelBuffer),
		workers: numWorkers,
		timeout: taskTimeout,
		log:     log,
	}
}

// Start launches the worker goroutines. Tasks keep ctx's values but not its
// cancellation, so queued work still drains during Shutdown.
func (d *Dispatcher) Start(ctx context.Context) {
	base := context.WithoutCancel(ctx)
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.runWorker(base, i)
	}
}

// WaitUntil enqueues fn without blocking the request. When the buffer is full
// or the dispatcher is shut down the task is dropped and logged.
func (d *Dispatcher) WaitUntil(name string, fn func(ctx context.Context) error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(name, "dispatcher closed")
		return
	}
	select {
	case d.tasks <- task{name: name, run: fn}:
		metrics.BackgroundQueueDepth.Inc()
	default:
		d.drop(name, "queue full")
	}
}

// Shutdown stops accepting work and waits for queued tasks to finish or for
// ctx to expire.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.tasks)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("background drain: %w", ctx.Err())
	}
}

func (d *Dispatcher) drop(name, reason string) {
	metrics.BackgroundTasksTotal.WithLabelValues(name, "dropped").Inc()
	d.log.Warn().Str("task", name).Str("reason", reason).Msg("background task dropped")
}

func (d *Dispatcher) runWorker(ctx context.Context, id int) {
	defer d.wg.Done()
	for t := range d.tasks {
		metrics.BackgroundQueueDepth.Dec()
		d.execute(ctx, id, t)
	}
}

func (d *Dispatcher) execute(ctx context.Context, id int, t task) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return t.run(ctx)
	}()
	metrics.BackgroundTaskDuration.WithLabelValues(t.name).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.BackgroundTasksTotal.WithLabelValues(t.name, "error").Inc()
		d.log.Error().Err(err).
			Str("task", t.name).
			Int("worker_id", id).
			Msg("background task failed")
		return
	}
	metrics.BackgroundTasksTotal.WithLabelValues(t.name, "ok").Inc()
}
