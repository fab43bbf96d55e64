package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Mist3s/leaf-flow-notifications-worker/internal/logger"
)

// RequestLogging tags each request on the ops server with a request id and
// logs its completion. Scrapes and probes are logged at debug level.
func RequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		w.Header().Set("X-Request-ID", requestID)
		ctx := logger.WithRequestID(r.Context(), requestID)
		r = r.WithContext(ctx)

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(wrapped, r)

		fields := logger.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status_code": wrapped.statusCode,
			"duration_ms": time.Since(start).Milliseconds(),
		}
		if r.URL.Path == "/metrics" || r.URL.Path == "/healthz" {
			logger.Debug(ctx, "request completed", fields)
			return
		}
		logger.Info(ctx, "request completed", fields)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode    int
	headerWritten bool
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.headerWritten = true
	rw.ResponseWriter.WriteHeader(code)
}

// Write implicitly commits a 200 if WriteHeader was not called
func (rw *responseWriter) Write(data []byte) (int, error) {
	if !rw.headerWritten {
		rw.statusCode = http.StatusOK
		rw.headerWritten = true
	}
	return rw.ResponseWriter.Write(data)
}
