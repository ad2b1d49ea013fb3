package rest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/heartmarshall/nba-backend/internal/domain"
	"github.com/heartmarshall/nba-backend/internal/service/action"
	"github.com/heartmarshall/nba-backend/pkg/ctxutil"
)

type queryService interface {
	ListForUser(ctx context.Context, user domain.UserContext, filter domain.NbaFilter) ([]*domain.NbaRecord, int, error)
}

type actionService interface {
	Register(ctx context.Context, user domain.UserContext, in action.Input) (domain.NbaEventLogRecord, error)
}

// NbaHandler serves the operator-facing NBA endpoints.
type NbaHandler struct {
	query   queryService
	actions actionService
	log     *slog.Logger
}

// NewNbaHandler creates an NbaHandler.
func NewNbaHandler(query queryService, actions actionService, logger *slog.Logger) *NbaHandler {
	return &NbaHandler{
		query:   query,
		actions: actions,
		log:     logger.With("handler", "nba"),
	}
}

// nbaResponse is the JSON shape of one recommendation.
type nbaResponse struct {
	ID               string         `json:"id"`
	NbaDefinitionID  string         `json:"nba_definition_id"`
	EnterpriseNumber *string        `json:"enterprise_number"`
	AccountID        *string        `json:"account_id"`
	ContactID        *string        `json:"contact_id"`
	Active           bool           `json:"active"`
	Status           string         `json:"status"`
	Priority         int            `json:"priority"`
	Context          map[string]any `json:"context"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

type listResponse struct {
	Items  []nbaResponse `json:"items"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// List returns active recommendations for the caller.
// GET /api/v1/nba?account_id=...&enterprise_number=...&status=new&limit=50&offset=0
func (h *NbaHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseFilter(w, r)
	if !ok {
		return
	}
	filter.Normalize()

	items, total, err := h.query.ListForUser(r.Context(), userFromCtx(r.Context()), filter)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	resp := listResponse{
		Items:  make([]nbaResponse, 0, len(items)),
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}
	for _, item := range items {
		resp.Items = append(resp.Items, toNbaResponse(item))
	}

	writeJSON(w, http.StatusOK, resp)
}

// actionRequest is the body of an operator decision.
type actionRequest struct {
	Status   string  `json:"status"`
	ActionAt *string `json:"action_at"`
	Comment  *string `json:"comment"`
}

// actionResponse is returned for both fresh and resubmitted decisions.
type actionResponse struct {
	EventID  string    `json:"event_id"`
	NbaID    string    `json:"nba_id"`
	Status   string    `json:"status"`
	ActedBy  *string   `json:"acted_by"`
	ActionAt time.Time `json:"action_at"`
}

// Action registers an accept or reject decision on a recommendation.
// POST /api/v1/nba/{id}/actions
func (h *NbaHandler) Action(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	in := action.Input{
		NbaID:   r.PathValue("id"),
		Status:  domain.Status(req.Status),
		Comment: req.Comment,
	}
	if req.ActionAt != nil {
		at, err := parseTimestamp(*req.ActionAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "action_at: must be an RFC 3339 timestamp")
			return
		}
		in.ActionAt = &at
	}

	entry, err := h.actions.Register(r.Context(), userFromCtx(r.Context()), in)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, actionResponse{
		EventID:  entry.ID,
		NbaID:    entry.NbaID,
		Status:   entry.Status.String(),
		ActedBy:  entry.ActedBy,
		ActionAt: entry.ActionAt,
	})
}

func parseFilter(w http.ResponseWriter, r *http.Request) (domain.NbaFilter, bool) {
	var filter domain.NbaFilter

	q := r.URL.Query()
	if v := q.Get("account_id"); v != "" {
		filter.AccountID = &v
	}
	if v := q.Get("enterprise_number"); v != "" {
		filter.EnterpriseNumber = &v
	}
	if v := q.Get("status"); v != "" {
		status := domain.Status(v)
		filter.Status = &status
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "limit: must be an integer")
			return filter, false
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "offset: must be an integer")
			return filter, false
		}
		filter.Offset = n
	}

	return filter, true
}

func userFromCtx(ctx context.Context) domain.UserContext {
	username, ok := ctxutil.UsernameFromCtx(ctx)
	if !ok || username == "" {
		username = domain.DefaultUsername
	}
	return domain.UserContext{Username: username}
}

func toNbaResponse(rec *domain.NbaRecord) nbaResponse {
	return nbaResponse{
		ID:               rec.ID,
		NbaDefinitionID:  rec.NbaDefinitionID,
		EnterpriseNumber: rec.EnterpriseNumber,
		AccountID:        rec.AccountID,
		ContactID:        rec.ContactID,
		Active:           rec.Active,
		Status:           rec.Status.String(),
		Priority:         rec.Priority,
		Context:          rec.Context,
		CreatedAt:        rec.CreatedAt,
		UpdatedAt:        rec.UpdatedAt,
	}
}
