// Package queue is the bounded hand-off between image requests and the
// render workers.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/okian/bethegolf/internal/domain/share"
	"github.com/okian/bethegolf/pkg/metrics"
)

// defaultQueueCapacity bounds pending render jobs.
const defaultQueueCapacity = 256

// Job is the payload flowing through the queue.
type Job = share.Job

// Queue provides non-blocking enqueue and blocking dequeue.
type Queue interface {
	// Enqueue adds a job. Returns false if the queue is full or closed.
	Enqueue(ctx context.Context, j Job) bool

	// Dequeue waits for the next job. It returns false once the queue is
	// closed and drained, or when ctx is done.
	Dequeue(ctx context.Context) (Job, bool)

	// Len returns the current number of queued jobs.
	Len(ctx context.Context) int

	// Close stops accepting jobs. Queued jobs can still be dequeued.
	Close() error

	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	jobs     chan queued
	capacity int

	mu     sync.RWMutex
	closed bool
}

type queued struct {
	job Job
	at  time.Time
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.jobs = make(chan queued, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0.0)
	return q
}

// Enqueue adds a job without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, j Job) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return false
	}

	select {
	case q.jobs <- queued{job: j, at: time.Now()}:
		metrics.RecordQueueEnqueue()
		q.updateSize()
		return true
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return false
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return false
	}
}

// Dequeue waits for the next job.
func (q *InMemoryQueue) Dequeue(ctx context.Context) (Job, bool) {
	select {
	case item, ok := <-q.jobs:
		if !ok {
			return Job{}, false
		}
		metrics.RecordQueueDequeue()
		metrics.RecordQueueProcessingLatency(metrics.Since(item.at))
		q.updateSize()
		return item.job, true
	case <-ctx.Done():
		return Job{}, false
	}
}

// Len returns the current number of queued jobs.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return q.updateSize()
}

func (q *InMemoryQueue) updateSize() int {
	size := len(q.jobs)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
	return size
}

// Close stops accepting jobs.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.jobs)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
