package middleware

import (
	"net/http"
	"strings"

	"github.com/heartmarshall/nba-backend/internal/domain"
	"github.com/heartmarshall/nba-backend/pkg/ctxutil"
)

// UserHeader names the acting operator. The gateway in front of this
// service authenticates the caller and forwards the username.
const UserHeader = "X-User"

// Identity returns middleware that puts the caller's username into the
// context. A missing or blank header falls back to the system user.
func Identity() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username := strings.TrimSpace(r.Header.Get(UserHeader))
			if username == "" {
				username = domain.DefaultUsername
			}
			ctx := ctxutil.WithUsername(r.Context(), username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
