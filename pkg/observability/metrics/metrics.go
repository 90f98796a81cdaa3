package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values shared by the recording helpers
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

var (
	// ClassificationsTotal counts classify calls by produce kind, serving
	// backend (model, synthetic, remote) and outcome
	ClassificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ripesense_classifications_total",
			Help: "The total number of classification calls by produce type, backend and outcome",
		},
		[]string{"produce_type", "backend", "outcome"},
	)

	// ClassificationDuration tracks classify latency by produce kind and backend
	ClassificationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ripesense_classification_duration_seconds",
			Help:    "The duration of classification calls in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"produce_type", "backend"},
	)

	// ModelLoadDuration tracks backend load latency by produce kind and mode
	ModelLoadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ripesense_model_load_duration_seconds",
			Help:    "The duration of backend model loads in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"produce_type", "mode"},
	)

	// SyntheticModeActive flags produce kinds served by the synthetic
	// fallback instead of a real model (1 active, 0 not)
	SyntheticModeActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ripesense_synthetic_mode_active",
			Help: "Whether the embedded backend is serving synthetic predictions for a produce type (1 = active)",
		},
		[]string{"produce_type"},
	)

	// HTTPRequestsTotal counts API requests by method, path and status code
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ripesense_http_requests_total",
			Help: "The total number of API requests by method, path and status code",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration tracks API request latency by method and path
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ripesense_http_request_duration_seconds",
			Help:    "The duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// HistoryOperationsTotal counts scan history store operations by
	// backend, operation and outcome
	HistoryOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ripesense_history_operations_total",
			Help: "The total number of scan history store operations by backend, operation and outcome",
		},
		[]string{"backend", "operation", "outcome"},
	)
)

// RecordClassification records one classify call
func RecordClassification(produceType, backend, outcome string, seconds float64) {
	ClassificationsTotal.WithLabelValues(produceType, backend, outcome).Inc()
	ClassificationDuration.WithLabelValues(produceType, backend).Observe(seconds)
}

// RecordModelLoad records one backend load
func RecordModelLoad(produceType, mode string, seconds float64) {
	ModelLoadDuration.WithLabelValues(produceType, mode).Observe(seconds)
}

// SetSyntheticMode flags or clears synthetic serving for a produce kind
func SetSyntheticMode(produceType string, active bool) {
	value := 0.0
	if active {
		value = 1.0
	}
	SyntheticModeActive.WithLabelValues(produceType).Set(value)
}

// RecordHTTPRequest records one API request
func RecordHTTPRequest(method, path string, status int, seconds float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(seconds)
}

// RecordHistoryOperation records one scan history store operation
func RecordHistoryOperation(backend, operation string, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	HistoryOperationsTotal.WithLabelValues(backend, operation, outcome).Inc()
}
