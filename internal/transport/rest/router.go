package rest

import "net/http"

// NewRouter registers all routes on a fresh mux. Middleware is applied by
// the caller so tests can exercise handlers directly.
func NewRouter(nba *NbaHandler, events *EventsHandler, health *HealthHandler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/nba", nba.List)
	mux.HandleFunc("POST /api/v1/nba/{id}/actions", nba.Action)
	mux.HandleFunc("POST /api/v1/internal/events/nba-calculation", events.Ingest)

	mux.HandleFunc("GET /health", health.Health)
	mux.HandleFunc("GET /health/live", health.Live)
	mux.HandleFunc("GET /health/ready", health.Ready)

	return mux
}
