package index

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/oshokin/relcut/internal/logger"
)

// statusRecorder captures the response status for access logging.
type statusRecorder struct {
	http.ResponseWriter

	// status is the first status code written to the response.
	status int
}

// WriteHeader records the status before delegating to the wrapped writer.
func (rec *statusRecorder) WriteHeader(status int) {
	if rec.status == 0 {
		rec.status = status
	}

	rec.ResponseWriter.WriteHeader(status)
}

// Write defaults the status to 200 when the handler never set one.
func (rec *statusRecorder) Write(p []byte) (int, error) {
	if rec.status == 0 {
		rec.status = http.StatusOK
	}

	return rec.ResponseWriter.Write(p)
}

// withRequestLogging tags every request with a correlation ID and logs
// method, path, status and duration on completion.
func withRequestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := logger.WithKV(r.Context(), "request_id", uuid.NewString())
		rec := &statusRecorder{ResponseWriter: w}

		next.ServeHTTP(rec, r.WithContext(ctx))

		if rec.status == 0 {
			rec.status = http.StatusOK
		}

		logger.InfoKV(ctx, "Request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start).String())
	})
}
