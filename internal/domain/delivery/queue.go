// internal/domain/delivery/queue.go
package delivery

import (
	"context"
	"errors"
)

// Handler processes one dispatched job. A nil return or a PermanentError
// acknowledges the job; any other error requests redelivery with backoff.
type Handler func(ctx context.Context, job DispatchJob) error

// Queue is a durable at-least-once job channel between the scheduler and the
// delivery workers, deduplicated by DispatchJob.ID while a job is pending.
type Queue interface {
	Enqueue(ctx context.Context, job DispatchJob) error
	// Consume blocks delivering jobs to h until ctx is cancelled. It may be
	// called from several goroutines to process with bounded parallelism.
	Consume(ctx context.Context, h Handler) error
}

// DedupStore tracks pending job ids for queue implementations whose broker
// cannot deduplicate on its own. Reserve claims an id, Release frees it once
// the job has been acknowledged so a later scheduler pass can enqueue the same
// slot again.
type DedupStore interface {
	Reserve(ctx context.Context, jobID string) (bool, error)
	Release(ctx context.Context, jobID string) error
}

// PermanentError marks a job failure that must not be retried. The queue
// acknowledges the job without redelivery or dead-lettering.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return "permanent delivery failure: " + e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err as non-retryable.
func Permanent(err error) error {
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err (or anything it wraps) is non-retryable.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}
