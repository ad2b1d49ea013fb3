package calc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/nba-backend/internal/domain"
	"github.com/heartmarshall/nba-backend/internal/queue"
)

func TestWorker_DrainsQueueSerially(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	q := queue.New()
	w := NewWorker(testLogger(), q, f.svc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()

	events := []domain.CalculationEvent{createEvent("111"), createEvent("222"), createEvent("333")}
	for i, ev := range events {
		q.Publish(queue.Envelope{Event: ev, RequestID: "req-" + ev.EventID})
		_ = i
	}

	require.Eventually(t, func() bool {
		for _, ev := range events {
			ok, err := f.processed.IsProcessed(context.Background(), ev.EventID)
			if err != nil || !ok {
				return false
			}
		}
		return true
	}, 2*time.Second, 10*time.Millisecond, "worker should process every queued event")

	_, total, err := f.nbas.List(context.Background(), domain.NbaFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancellation")
	}
}

func TestWorker_ContinuesAfterDuplicate(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	q := queue.New()
	w := NewWorker(testLogger(), q, f.svc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	ev := createEvent("111")
	follow := createEvent("222")

	q.Publish(queue.Envelope{Event: ev})
	q.Publish(queue.Envelope{Event: ev}) // redelivery
	q.Publish(queue.Envelope{Event: follow})

	require.Eventually(t, func() bool {
		ok, err := f.processed.IsProcessed(context.Background(), follow.EventID)
		return err == nil && ok
	}, 2*time.Second, 10*time.Millisecond)

	_, total, err := f.nbas.List(context.Background(), domain.NbaFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total, "redelivered event must not create a second record")
}
