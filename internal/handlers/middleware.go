package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"climbing-stats/pkg/logging"
)

// RequestIDHeader carries the request ID in both directions
const RequestIDHeader = "X-Request-ID"

// RequestID assigns every request an ID, reusing a well-formed one sent by
// the client, and logs the completed request
func RequestID(logger *logging.StructuredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if _, err := uuid.Parse(id); err != nil {
				id = uuid.NewString()
			}

			ctx := logging.WithRequestID(r.Context(), id)
			w.Header().Set(RequestIDHeader, id)

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(rec, r.WithContext(ctx))

			logger.Debug(ctx, "[API_REQUEST] Request served", logging.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      strconv.Itoa(rec.status),
				"duration_ms": time.Since(start).Milliseconds(),
			})
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
