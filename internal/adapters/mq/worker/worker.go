// Package worker runs image generation jobs off the render queue.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/bethegolf/internal/adapters/mq/queue"
	"github.com/okian/bethegolf/internal/domain/share"
	"github.com/okian/bethegolf/pkg/logger"
	"github.com/okian/bethegolf/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Queue is what workers read from and the pool writes to.
type Queue interface {
	Enqueue(ctx context.Context, j queue.Job) bool
	Dequeue(ctx context.Context) (queue.Job, bool)
}

// Worker processes render jobs.
type Worker interface {
	// Run processes jobs until the queue is drained or ctx is canceled.
	Run(ctx context.Context)

	// Shutdown waits for Run to return.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker renders jobs with a rasterizer.
type InMemoryWorker struct {
	queue      Queue
	rasterizer share.Rasterizer
	name       string
	done       chan struct{}
	logger     logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, r share.Rasterizer, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:      q,
		rasterizer: r,
		name:       "worker",
		done:       make(chan struct{}),
		logger:     logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	for {
		j, ok := w.queue.Dequeue(ctx)
		if !ok {
			return
		}
		w.process(ctx, j)
	}
}

// Shutdown waits for the worker loop to end.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) process(ctx context.Context, j queue.Job) {
	start := time.Now()
	metrics.AddWorkerActive(1)
	defer func() {
		metrics.AddWorkerActive(-1)
		metrics.RecordWorkerProcessingLatency(metrics.Since(start))
	}()

	done := j.Done
	j.Done = func(img share.Image, err error) {
		if err != nil {
			metrics.RecordWorkerError()
			metrics.RecordErrorByComponent("worker", "generation_error")
			w.logger.Error(ctx, "image generation failed", logger.String("job", j.ID), logger.Error(err))
		}
		if done != nil {
			done(img, err)
		}
	}
	j.Run(ctx, w.rasterizer)
}

// Pool runs a fixed set of workers over one queue and accepts jobs for them.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	cancel  context.CancelFunc
	started bool
	once    sync.Once
	logger  logger.Logger
}

// NewPool creates a pool of workerCount workers. workerCount < 1 uses one
// worker per CPU.
func NewPool(workerCount int, q Queue, r share.Rasterizer) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := range p.workers {
		p.workers[i] = NewInMemoryWorker(q, r, WithName("worker-"+strconv.Itoa(i)))
	}
	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers. They stop when ctx is canceled or on Shutdown.
func (p *Pool) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	p.started = true
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Dispatch queues a job. It implements share.Dispatcher.
func (p *Pool) Dispatch(ctx context.Context, j share.Job) bool {
	return p.queue.Enqueue(ctx, j)
}

// Shutdown closes the queue, lets workers drain it, and cancels whatever is
// still running when ctx or the pool timeout expires.
func (p *Pool) Shutdown(ctx context.Context) error {
	var err error
	p.once.Do(func() {
		if closer, ok := p.queue.(interface{ Close() error }); ok {
			if cerr := closer.Close(); cerr != nil {
				p.logger.Error(ctx, "error closing queue", logger.Error(cerr))
			}
		}

		if !p.started {
			return
		}

		shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
		defer cancel()

		var errs []error
		for i, w := range p.workers {
			if werr := w.Shutdown(shutdownCtx); werr != nil {
				p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
				errs = append(errs, werr)
			}
		}
		if p.cancel != nil {
			p.cancel()
		}
		err = errors.Join(errs...)
	})
	return err
}
