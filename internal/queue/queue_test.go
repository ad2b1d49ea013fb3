package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/nba-backend/internal/domain"
)

func envelope(eventID string) Envelope {
	return Envelope{
		Event:     domain.CalculationEvent{EventID: eventID},
		RequestID: "req-" + eventID,
	}
}

func TestQueue_FIFOOrder(t *testing.T) {
	t.Parallel()

	q := New()
	q.Publish(envelope("e1"))
	q.Publish(envelope("e2"))
	q.Publish(envelope("e3"))

	assert.Equal(t, 3, q.Len())

	ctx := context.Background()
	for _, want := range []string{"e1", "e2", "e3"} {
		env, err := q.Consume(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, env.Event.EventID)
	}
	assert.Equal(t, 0, q.Len())
}

func TestQueue_ConsumeBlocksUntilPublish(t *testing.T) {
	t.Parallel()

	q := New()
	got := make(chan Envelope, 1)

	go func() {
		env, err := q.Consume(context.Background())
		if err != nil {
			return
		}
		got <- env
	}()

	// Consumer should be parked; give it a moment to reach the wait.
	select {
	case <-got:
		t.Fatal("Consume returned before anything was published")
	case <-time.After(20 * time.Millisecond):
	}

	q.Publish(envelope("late"))

	select {
	case env := <-got:
		assert.Equal(t, "late", env.Event.EventID)
	case <-time.After(time.Second):
		t.Fatal("consumer did not wake up after publish")
	}
}

func TestQueue_ConsumeCancelled(t *testing.T) {
	t.Parallel()

	q := New()
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		_, err := q.Consume(ctx)
		errCh <- err
	}()

	cancel()

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Consume did not return after cancellation")
	}
}

func TestQueue_PublishDoesNotBlockWithoutConsumer(t *testing.T) {
	t.Parallel()

	q := New()
	for i := 0; i < 10_000; i++ {
		q.Publish(envelope("e"))
	}
	assert.Equal(t, 10_000, q.Len())
}
