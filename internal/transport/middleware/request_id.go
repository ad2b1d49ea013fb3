package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/heartmarshall/nba-backend/pkg/ctxutil"
)

// RequestIDHeader is the header carrying the correlation id. Incoming
// values are reused so a caller can trace an event through the logs.
const RequestIDHeader = "X-Request-Id"

// RequestID returns middleware that puts a request id into the context
// and echoes it back in the response headers.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = uuid.New().String()
			}
			ctx := ctxutil.WithRequestID(r.Context(), id)
			w.Header().Set(RequestIDHeader, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
