package middleware

import (
	"net/http"
	"strings"

	"github.com/travelmarket/tourism-backend/pkg/logger"
)

// Actor copies the caller identity headers set by the upstream gateway into
// the request context. Authentication happens before this service.
func Actor(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if userID := strings.TrimSpace(r.Header.Get(userIDHeader)); userID != "" {
				ctx = WithUserID(ctx, userID)
				if logg != nil {
					ctx = logg.WithUserID(ctx, userID)
				}
			}
			if sessionID := strings.TrimSpace(r.Header.Get(sessionIDHeader)); sessionID != "" {
				ctx = WithSessionID(ctx, sessionID)
				if logg != nil {
					ctx = logg.WithSessionID(ctx, sessionID)
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
