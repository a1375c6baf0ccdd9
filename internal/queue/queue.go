package queue

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Queue interface
type Queue interface {
	Publish(topic string, payload any) error
	Subscribe(topic string, handler func(payload any) error) error
}

// InMemoryQueue delivers jobs to in-process subscribers with retry. It backs
// the local dispatch mode when no broker is configured.
type InMemoryQueue struct {
	// Backoff is multiplied by the attempt number between retries.
	Backoff    time.Duration
	MaxRetries int

	mu       sync.Mutex
	handlers map[string][]func(payload any) error
	wg       sync.WaitGroup
}

// NewInMemoryQueue creates a new queue
func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{
		Backoff:    500 * time.Millisecond,
		MaxRetries: 3,
		handlers:   make(map[string][]func(payload any) error),
	}
}

// JobPayload wraps a message payload with retry info
type JobPayload struct {
	Topic      string
	Payload    any
	RetryCount int
	MaxRetries int
}

// Publish sends a message to all subscribers
func (q *InMemoryQueue) Publish(topic string, payload any) error {
	q.mu.Lock()
	handlers := q.handlers[topic]
	maxRetries := q.MaxRetries
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	for _, handler := range handlers {
		job := JobPayload{Topic: topic, Payload: payload, MaxRetries: maxRetries}
		q.wg.Add(1)
		go q.processJob(handler, job)
	}

	return nil
}

// processJob handles retries and errors
func (q *InMemoryQueue) processJob(handler func(payload any) error, job JobPayload) {
	defer q.wg.Done()
	q.runJob(handler, job)
}

// runJob retries handler until it succeeds or the job runs out of attempts,
// and returns the last failure.
func (q *InMemoryQueue) runJob(handler func(payload any) error, job JobPayload) error {
	for {
		err := handler(job.Payload)
		if err == nil {
			return nil // ACK
		}

		job.RetryCount++
		if job.RetryCount > job.MaxRetries {
			log.Error().Err(err).Str("topic", job.Topic).Int("attempts", job.RetryCount).Msg("Job permanently failed")
			return err // No requeue
		}
		log.Warn().Err(err).Str("topic", job.Topic).Int("attempt", job.RetryCount).Int("max_retries", job.MaxRetries).Msg("Job failed, retrying")

		// Linear backoff before retry
		time.Sleep(time.Duration(job.RetryCount) * q.Backoff)
	}
}

// Deliver runs every subscriber of topic in the caller's goroutine, retries
// included. It returns once all of them acknowledged, or with the first
// permanent failure.
func (q *InMemoryQueue) Deliver(topic string, payload any) error {
	q.mu.Lock()
	handlers := q.handlers[topic]
	maxRetries := q.MaxRetries
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}
	for _, handler := range handlers {
		job := JobPayload{Topic: topic, Payload: payload, MaxRetries: maxRetries}
		if err := q.runJob(handler, job); err != nil {
			return err
		}
	}
	return nil
}

// Subscribe adds a handler for a topic
func (q *InMemoryQueue) Subscribe(topic string, handler func(payload any) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

// Wait blocks until every published job finished, retries included.
func (q *InMemoryQueue) Wait() {
	q.wg.Wait()
}
