// internal/infra/queue/memory_queue.go
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"outreach_automation/internal/domain/delivery"

	"github.com/sirupsen/logrus"
)

const memoryQueueBuffer = 1024

// DeadLetterFunc is invoked when a job exhausts its delivery attempts.
type DeadLetterFunc func(job delivery.DispatchJob, cause error)

// MemoryDispatchQueue is an in-process at-least-once queue with retry and
// backoff, used in development and tests. Job ids are deduplicated while a job
// is pending; once a job is acknowledged the id becomes enqueuable again.
type MemoryDispatchQueue struct {
	mu          sync.Mutex
	pending     map[string]struct{}
	jobs        chan delivery.DispatchJob
	maxAttempts int
	backoff     time.Duration
	deadLetter  DeadLetterFunc
	logger      *logrus.Logger
}

func NewMemoryDispatchQueue(maxAttempts int, backoff time.Duration, deadLetter DeadLetterFunc, logger *logrus.Logger) *MemoryDispatchQueue {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &MemoryDispatchQueue{
		pending:     make(map[string]struct{}),
		jobs:        make(chan delivery.DispatchJob, memoryQueueBuffer),
		maxAttempts: maxAttempts,
		backoff:     backoff,
		deadLetter:  deadLetter,
		logger:      logger,
	}
}

// Enqueue adds a job unless the same job id is already pending.
func (q *MemoryDispatchQueue) Enqueue(ctx context.Context, job delivery.DispatchJob) error {
	id := job.ID()
	q.mu.Lock()
	if _, exists := q.pending[id]; exists {
		q.mu.Unlock()
		return nil
	}
	q.pending[id] = struct{}{}
	q.mu.Unlock()

	select {
	case q.jobs <- job:
		return nil
	default:
		q.forget(id)
		return fmt.Errorf("dispatch queue is full, dropping job %s", id)
	}
}

// Consume delivers jobs to h until ctx is cancelled. Several goroutines may
// call Consume to share the channel.
func (q *MemoryDispatchQueue) Consume(ctx context.Context, h delivery.Handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case job := <-q.jobs:
			q.process(ctx, job, h)
		}
	}
}

func (q *MemoryDispatchQueue) process(ctx context.Context, job delivery.DispatchJob, h delivery.Handler) {
	defer q.forget(job.ID())

	var err error
	for attempt := 1; attempt <= q.maxAttempts; attempt++ {
		err = h(ctx, job)
		if err == nil || delivery.IsPermanent(err) {
			return
		}
		q.logger.Warnf("queue: job %s failed (attempt %d/%d): %v", job.ID(), attempt, q.maxAttempts, err)
		if attempt == q.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(q.backoff * time.Duration(attempt)):
		}
	}

	q.logger.Errorf("queue: job %s dead-lettered after %d attempts: %v", job.ID(), q.maxAttempts, err)
	if q.deadLetter != nil {
		q.deadLetter(job, err)
	}
}

func (q *MemoryDispatchQueue) forget(id string) {
	q.mu.Lock()
	delete(q.pending, id)
	q.mu.Unlock()
}
