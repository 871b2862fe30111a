package middleware

import (
	"context"
	"net/http"
	"time"
)

// Timeout caps every request's context so a slow store or media-host
// call cannot hold a request open indefinitely. Handlers map the
// resulting context.DeadlineExceeded to 504.
func Timeout(d time.Duration, next http.Handler) http.Handler {
	if d <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), d)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
