// internal/infra/queue/amqp_queue.go
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"outreach_automation/internal/domain/delivery"

	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

const retryCountHeader = "x-retry-count"

// AmqpDispatchQueue is the durable dispatch queue. Messages are published
// persistently and acknowledged manually; retryable failures are republished
// with an incremented retry header until maxAttempts, then moved to the
// "<queue>.dead" dead-letter queue. AMQP cannot deduplicate by message id on
// its own, so enqueue dedup is delegated to a DedupStore.
type AmqpDispatchQueue struct {
	ch          *amqp.Channel
	queueName   string
	deadName    string
	dedup       delivery.DedupStore
	maxAttempts int
	deadLetter  DeadLetterFunc
	logger      *logrus.Logger
}

func NewAmqpDispatchQueue(
	conn *amqp.Connection,
	queueName string,
	dedup delivery.DedupStore,
	maxAttempts int,
	deadLetter DeadLetterFunc,
	logger *logrus.Logger,
) (*AmqpDispatchQueue, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open AMQP channel: %w", err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return nil, fmt.Errorf("failed to set AMQP prefetch: %w", err)
	}

	deadName := queueName + ".dead"
	for _, name := range []string{queueName, deadName} {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return nil, fmt.Errorf("failed to declare queue %s: %w", name, err)
		}
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	return &AmqpDispatchQueue{
		ch:          ch,
		queueName:   queueName,
		deadName:    deadName,
		dedup:       dedup,
		maxAttempts: maxAttempts,
		deadLetter:  deadLetter,
		logger:      logger,
	}, nil
}

// Enqueue reserves the job id in the dedup store and publishes the job. A job
// whose id is already pending is silently skipped.
func (q *AmqpDispatchQueue) Enqueue(ctx context.Context, job delivery.DispatchJob) error {
	fresh, err := q.dedup.Reserve(ctx, job.ID())
	if err != nil {
		return fmt.Errorf("failed to reserve job id %s: %w", job.ID(), err)
	}
	if !fresh {
		return nil
	}

	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job %s: %w", job.ID(), err)
	}
	err = q.ch.Publish("", q.queueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		MessageId:    job.ID(),
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		if relErr := q.dedup.Release(ctx, job.ID()); relErr != nil {
			q.logger.Errorf("queue: failed to release job id %s after publish error: %v", job.ID(), relErr)
		}
		return fmt.Errorf("failed to publish job %s: %w", job.ID(), err)
	}
	return nil
}

// Consume delivers jobs to h until ctx is cancelled. Each call registers its
// own consumer, so several goroutines can share the channel.
func (q *AmqpDispatchQueue) Consume(ctx context.Context, h delivery.Handler) error {
	msgs, err := q.ch.Consume(q.queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to register AMQP consumer: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("AMQP delivery channel closed")
			}
			q.handleDelivery(ctx, d, h)
		}
	}
}

func (q *AmqpDispatchQueue) handleDelivery(ctx context.Context, d amqp.Delivery, h delivery.Handler) {
	var job delivery.DispatchJob
	if err := json.Unmarshal(d.Body, &job); err != nil {
		q.logger.Errorf("queue: invalid job payload, discarding: %v", err)
		// The reservation still holds the message id; free it or the slot can
		// never be re-enqueued.
		if d.MessageId != "" {
			if relErr := q.dedup.Release(ctx, d.MessageId); relErr != nil {
				q.logger.Errorf("queue: failed to release job id %s: %v", d.MessageId, relErr)
			}
		}
		_ = d.Ack(false)
		return
	}

	err := h(ctx, job)
	if err == nil || delivery.IsPermanent(err) {
		q.ack(ctx, d, job)
		return
	}

	attempts := retryCount(d.Headers) + 1
	if attempts < q.maxAttempts {
		q.logger.Warnf("queue: job %s failed (attempt %d/%d), requeueing: %v", job.ID(), attempts, q.maxAttempts, err)
		q.republish(d, job, attempts)
		return
	}

	q.logger.Errorf("queue: job %s dead-lettered after %d attempts: %v", job.ID(), attempts, err)
	pub := amqp.Publishing{ContentType: "application/json", MessageId: job.ID(), DeliveryMode: amqp.Persistent, Body: d.Body}
	if pubErr := q.ch.Publish("", q.deadName, false, false, pub); pubErr != nil {
		q.logger.Errorf("queue: failed to publish job %s to dead-letter queue: %v", job.ID(), pubErr)
	}
	if q.deadLetter != nil {
		q.deadLetter(job, err)
	}
	q.ack(ctx, d, job)
}

func (q *AmqpDispatchQueue) republish(d amqp.Delivery, job delivery.DispatchJob, attempts int) {
	pub := amqp.Publishing{
		ContentType:  "application/json",
		MessageId:    job.ID(),
		DeliveryMode: amqp.Persistent,
		Headers:      amqp.Table{retryCountHeader: int32(attempts)},
		Body:         d.Body,
	}
	if err := q.ch.Publish("", q.queueName, false, false, pub); err != nil {
		q.logger.Errorf("queue: failed to republish job %s, nacking for broker requeue: %v", job.ID(), err)
		_ = d.Nack(false, true)
		return
	}
	_ = d.Ack(false)
}

func (q *AmqpDispatchQueue) ack(ctx context.Context, d amqp.Delivery, job delivery.DispatchJob) {
	if err := q.dedup.Release(ctx, job.ID()); err != nil {
		q.logger.Errorf("queue: failed to release job id %s: %v", job.ID(), err)
	}
	if err := d.Ack(false); err != nil {
		q.logger.Errorf("queue: failed to ack job %s: %v", job.ID(), err)
	}
}

func retryCount(headers amqp.Table) int {
	if headers == nil {
		return 0
	}
	switch v := headers[retryCountHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	}
	return 0
}
