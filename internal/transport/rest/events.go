package rest

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/heartmarshall/nba-backend/internal/domain"
	"github.com/heartmarshall/nba-backend/internal/queue"
	"github.com/heartmarshall/nba-backend/pkg/ctxutil"
)

// EventsHandler accepts calculation events from internal producers.
type EventsHandler struct {
	queue *queue.Queue
	log   *slog.Logger
}

// NewEventsHandler creates an EventsHandler.
func NewEventsHandler(q *queue.Queue, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{
		queue: q,
		log:   logger.With("handler", "events"),
	}
}

// eventRequest is one calculation event on the wire. create_nba defaults
// to true when omitted.
type eventRequest struct {
	EventID          string         `json:"event_id"`
	OccurredAt       string         `json:"occurred_at"`
	Source           string         `json:"source"`
	NbaDefinitionID  string         `json:"nba_definition_id"`
	EnterpriseNumber *string        `json:"enterprise_number"`
	AccountID        *string        `json:"account_id"`
	ContactID        *string        `json:"contact_id"`
	CreateNba        *bool          `json:"create_nba"`
	DeactivateNbaIDs []string       `json:"deactivate_nba_ids"`
	Context          map[string]any `json:"context"`
}

type eventAccepted struct {
	Status  string `json:"status"`
	EventID string `json:"event_id"`
}

// Ingest validates an event and enqueues it for asynchronous processing.
// POST /api/v1/internal/events/nba-calculation
//
// 202 only promises the event was accepted; processing happens on the
// worker, and redeliveries of an already-processed event are dropped there.
func (h *EventsHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	ev := domain.CalculationEvent{
		EventID:          req.EventID,
		Source:           req.Source,
		NbaDefinitionID:  req.NbaDefinitionID,
		EnterpriseNumber: req.EnterpriseNumber,
		AccountID:        req.AccountID,
		ContactID:        req.ContactID,
		CreateNba:        true,
		DeactivateNbaIDs: req.DeactivateNbaIDs,
		Context:          req.Context,
	}
	if req.CreateNba != nil {
		ev.CreateNba = *req.CreateNba
	}
	if req.OccurredAt != "" {
		at, err := parseTimestamp(req.OccurredAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "occurred_at: must be an RFC 3339 timestamp")
			return
		}
		ev.OccurredAt = at
	}

	if err := ev.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	h.queue.Publish(queue.Envelope{
		Event:     ev,
		RequestID: ctxutil.RequestIDFromCtx(r.Context()),
	})

	h.log.InfoContext(r.Context(), "event accepted",
		slog.String("event_id", ev.EventID),
		slog.String("nba_definition_id", ev.NbaDefinitionID),
	)

	writeJSON(w, http.StatusAccepted, eventAccepted{Status: "accepted", EventID: ev.EventID})
}

// parseTimestamp accepts RFC 3339 and the bare "2006-01-02T15:04:05"
// form some producers send; the latter is taken as UTC. Everything is
// normalized to UTC.
func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02T15:04:05", s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
