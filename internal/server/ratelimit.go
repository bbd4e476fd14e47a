package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// ConnectRateLimit limits connect attempts per client IP to perMinute.
// Zero disables the limit.
func ConnectRateLimit(perMinute int) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(
		perMinute,
		time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", fmt.Sprintf("%d", int(time.Minute.Seconds())))
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"status":"error","message":"Too many connection attempts. Please try again later."}`))
		}),
	)
}
