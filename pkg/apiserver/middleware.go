package apiserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ripesense/ripesense/pkg/observability/logging"
	"github.com/ripesense/ripesense/pkg/observability/metrics"
	"github.com/ripesense/ripesense/pkg/observability/tracing"
)

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

// withMiddleware wraps the route handler with request correlation, trace
// propagation, access logging and HTTP metrics.
func (s *ClassificationAPIServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, requestID)

		ctx := tracing.ExtractHTTPContext(r.Context(), r.Header)
		ctx, span := tracing.StartSpan(ctx, tracing.SpanRequestReceived,
			attribute.String(tracing.AttrHTTPMethod, r.Method),
			attribute.String(tracing.AttrHTTPPath, r.URL.Path),
			attribute.String(tracing.AttrRequestID, requestID),
		)
		defer span.End()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		elapsed := time.Since(start)
		metrics.RecordHTTPRequest(r.Method, metricPath(r.URL.Path), rec.status, elapsed.Seconds())
		logging.LogEvent("http_request", map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rec.status,
			"duration_ms": elapsed.Milliseconds(),
			"request_id":  requestID,
			"remote_addr": r.RemoteAddr,
		})
	})
}

// metricPath collapses per-record history paths so record IDs never become
// metric label values.
func metricPath(path string) string {
	if strings.HasPrefix(path, "/api/v1/history/") && len(path) > len("/api/v1/history/") {
		return "/api/v1/history/{id}"
	}
	return path
}
