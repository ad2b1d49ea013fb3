package rest

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/nba-backend/internal/adapter/memory"
	"github.com/heartmarshall/nba-backend/internal/domain"
	"github.com/heartmarshall/nba-backend/internal/queue"
	"github.com/heartmarshall/nba-backend/internal/service/access"
	"github.com/heartmarshall/nba-backend/internal/service/action"
	"github.com/heartmarshall/nba-backend/internal/service/query"
	"github.com/heartmarshall/nba-backend/pkg/ctxutil"
)

type apiFixture struct {
	nbas   *memory.NbaStore
	events *memory.EventLogStore
	mux    *http.ServeMux
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	nbas := memory.NewNbaStore()
	events := memory.NewEventLogStore()
	q := queue.New()

	nbaHandler := NewNbaHandler(
		query.NewService(logger, nbas, access.NewAllowAll()),
		action.NewService(logger, nbas, events, access.NewAllowAll()),
		logger,
	)
	eventsHandler := NewEventsHandler(q, logger)
	healthHandler := NewHealthHandler(nil, q, "test")

	return &apiFixture{
		nbas:   nbas,
		events: events,
		mux:    NewRouter(nbaHandler, eventsHandler, healthHandler),
	}
}

func (f *apiFixture) seedNba(t *testing.T, eventID, account string) *domain.NbaRecord {
	t.Helper()

	rec, err := f.nbas.UpsertFromEvent(t.Context(), eventID, domain.Scope{
		NbaDefinitionID: "def-churn",
		AccountID:       &account,
	}, map[string]any{"reason": "churn_risk"})
	require.NoError(t, err)
	return rec
}

func (f *apiFixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func TestListNbas(t *testing.T) {
	f := newAPIFixture(t)
	f.seedNba(t, "11111111-1111-4111-8111-111111111111", "acc-1")
	f.seedNba(t, "22222222-2222-4222-8222-222222222222", "acc-2")

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/nba?account_id=acc-1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp listResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "acc-1", *resp.Items[0].AccountID)
	assert.Equal(t, "new", resp.Items[0].Status)
	assert.Equal(t, 50, resp.Limit)
}

func TestListNbas_PaginationMetadata(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int
	}{
		{name: "defaults applied", query: "", wantLimit: 50, wantOffset: 0},
		{name: "explicit values echoed", query: "?limit=10&offset=5", wantLimit: 10, wantOffset: 5},
		{name: "limit clamped to max", query: "?limit=1000", wantLimit: 200, wantOffset: 0},
		{name: "negative offset reset", query: "?offset=-3", wantLimit: 50, wantOffset: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAPIFixture(t)
			f.seedNba(t, "11111111-1111-4111-8111-111111111111", "acc-1")

			rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/nba"+tt.query, nil))
			require.Equal(t, http.StatusOK, rec.Code)

			var resp listResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantLimit, resp.Limit)
			assert.Equal(t, tt.wantOffset, resp.Offset)
		})
	}
}

func TestListNbas_BadLimit(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/nba?limit=abc", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "bad_request", resp.Code)
}

func TestListNbas_InvalidStatus(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/nba?status=bogus", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAction_Accept(t *testing.T) {
	f := newAPIFixture(t)
	nba := f.seedNba(t, "11111111-1111-4111-8111-111111111111", "acc-1")

	body := bytes.NewBufferString(`{"status":"accepted","comment":"took the offer"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/nba/"+nba.ID+"/actions", body)
	req = req.WithContext(ctxutil.WithUsername(req.Context(), "j.doe"))

	rec := f.do(req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp actionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, nba.ID, resp.NbaID)
	assert.Equal(t, "accepted", resp.Status)
	require.NotNil(t, resp.ActedBy)
	assert.Equal(t, "j.doe", *resp.ActedBy)

	updated, err := f.nbas.Get(t.Context(), nba.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAccepted, updated.Status)
}

func TestAction_ResubmissionReturnsSameEvent(t *testing.T) {
	f := newAPIFixture(t)
	nba := f.seedNba(t, "11111111-1111-4111-8111-111111111111", "acc-1")

	submit := func() actionResponse {
		body := bytes.NewBufferString(`{"status":"rejected"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/nba/"+nba.ID+"/actions", body)
		req = req.WithContext(ctxutil.WithUsername(req.Context(), "j.doe"))
		rec := f.do(req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var resp actionResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return resp
	}

	first := submit()
	second := submit()
	assert.Equal(t, first.EventID, second.EventID)
}

func TestAction_ConflictOnContradiction(t *testing.T) {
	f := newAPIFixture(t)
	nba := f.seedNba(t, "11111111-1111-4111-8111-111111111111", "acc-1")

	accept := bytes.NewBufferString(`{"status":"accepted"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/nba/"+nba.ID+"/actions", accept)
	req = req.WithContext(ctxutil.WithUsername(req.Context(), "j.doe"))
	require.Equal(t, http.StatusCreated, f.do(req).Code)

	reject := bytes.NewBufferString(`{"status":"rejected"}`)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/nba/"+nba.ID+"/actions", reject)
	req = req.WithContext(ctxutil.WithUsername(req.Context(), "j.doe"))
	rec := f.do(req)
	require.Equal(t, http.StatusConflict, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "conflict", resp.Code)
}

func TestAction_UnknownNba(t *testing.T) {
	f := newAPIFixture(t)

	body := bytes.NewBufferString(`{"status":"accepted"}`)
	rec := f.do(httptest.NewRequest(http.MethodPost, "/api/v1/nba/nba_missing000/actions", body))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAction_BadBody(t *testing.T) {
	f := newAPIFixture(t)
	nba := f.seedNba(t, "11111111-1111-4111-8111-111111111111", "acc-1")

	tests := []struct {
		name string
		body string
	}{
		{name: "invalid json", body: `{`},
		{name: "invalid status", body: `{"status":"maybe"}`},
		{name: "bad action_at", body: `{"status":"accepted","action_at":"yesterday"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/nba/"+nba.ID+"/actions",
				bytes.NewBufferString(tt.body))
			rec := f.do(req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestAction_DefaultsToSystemUser(t *testing.T) {
	f := newAPIFixture(t)
	nba := f.seedNba(t, "11111111-1111-4111-8111-111111111111", "acc-1")

	body := bytes.NewBufferString(`{"status":"accepted"}`)
	rec := f.do(httptest.NewRequest(http.MethodPost, "/api/v1/nba/"+nba.ID+"/actions", body))
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp actionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.ActedBy)
	assert.Equal(t, domain.DefaultUsername, *resp.ActedBy)
}
