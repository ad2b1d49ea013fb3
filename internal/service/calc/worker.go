package calc

import (
	"context"
	"errors"
	"log/slog"

	"github.com/heartmarshall/nba-backend/internal/queue"
	"github.com/heartmarshall/nba-backend/pkg/ctxutil"
)

// Worker is the single queue consumer. It drains envelopes one at a time,
// serially; there is no parallel event processing and no retry inside the
// worker — redelivery is the producer's responsibility.
type Worker struct {
	queue *queue.Queue
	svc   *Service
	log   *slog.Logger
}

// NewWorker creates the queue consumer.
func NewWorker(log *slog.Logger, q *queue.Queue, svc *Service) *Worker {
	return &Worker{
		queue: q,
		svc:   svc,
		log:   log.With("component", "calc_worker"),
	}
}

// Run consumes until the context is cancelled. A processing failure is
// logged and the loop moves on; a crash before the event was marked
// processed is recovered by redelivery plus the processor's idempotency.
func (w *Worker) Run(ctx context.Context) error {
	w.log.InfoContext(ctx, "worker started")

	for {
		env, err := w.queue.Consume(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				w.log.InfoContext(ctx, "worker stopped")
				return nil
			}
			return err
		}

		evCtx := ctxutil.WithRequestID(ctx, env.RequestID)
		result, err := w.svc.Process(evCtx, env.Event)
		if err != nil {
			w.log.ErrorContext(evCtx, "event processing failed",
				slog.String("event_id", env.Event.EventID),
				slog.String("request_id", env.RequestID),
				slog.String("error", err.Error()),
			)
			continue
		}

		w.log.InfoContext(evCtx, "event consumed",
			slog.String("event_id", env.Event.EventID),
			slog.String("request_id", env.RequestID),
			slog.String("action", string(result.Action)),
		)
	}
}
