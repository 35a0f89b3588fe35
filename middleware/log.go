package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Log stamps every request with a log_id and logs method, path and latency.
// The stamped logger rides the request context, so handler and repo logs of
// the same request share the log_id.
func Log(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		logger := log.Ctx(r.Context()).With().
			Str("log_id", uuid.New().String()).
			Logger()
		ctx := logger.WithContext(r.Context())

		next.ServeHTTP(w, r.WithContext(ctx))

		logger.Info().Msgf("%s %s, took: %v", r.Method, r.URL.Path, time.Since(start))
	})
}
