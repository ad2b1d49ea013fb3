// Package queue provides the in-process delivery channel between the
// event-intake boundary and the calculation processor. Publish never
// blocks; a single consumer drains envelopes in FIFO order.
package queue

import (
	"context"
	"sync"

	"github.com/heartmarshall/nba-backend/internal/domain"
)

// Envelope carries one calculation event together with the request id it
// arrived under, so worker logs can be correlated with the intake request.
type Envelope struct {
	Event     domain.CalculationEvent
	RequestID string
}

// Queue is an unbounded FIFO queue of calculation events.
//
// Unbounded growth under sustained overload is a known risk carried over
// from the reference design; capacity and backpressure are an open
// question, not solved here.
type Queue struct {
	mu     sync.Mutex
	items  []Envelope
	notify chan struct{}
}

// New creates an empty queue.
func New() *Queue {
	return &Queue{
		notify: make(chan struct{}, 1),
	}
}

// Publish appends an envelope. It never blocks.
func (q *Queue) Publish(env Envelope) {
	q.mu.Lock()
	q.items = append(q.items, env)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Consume returns the oldest envelope, blocking until one is available or
// the context is cancelled. Intended for a single consumer; the wait is
// unbounded.
func (q *Queue) Consume(ctx context.Context) (Envelope, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			env := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return env, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return Envelope{}, ctx.Err()
		case <-q.notify:
		}
	}
}

// Len returns the number of queued envelopes.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
