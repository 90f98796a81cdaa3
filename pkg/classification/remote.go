package classification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ripesense/ripesense/pkg/observability/logging"
	"github.com/ripesense/ripesense/pkg/observability/metrics"
	"github.com/ripesense/ripesense/pkg/observability/tracing"
	"github.com/ripesense/ripesense/pkg/taxonomy"
)

// remoteClassifyRequest is the wire request of the classification service
type remoteClassifyRequest struct {
	Image       string `json:"image"`
	ProduceType string `json:"produce_type"`
}

// remotePrediction is one entry of the service's all_predictions array
type remotePrediction struct {
	ClassName  string  `json:"class_name"`
	ClassLabel string  `json:"class_label"`
	Confidence float64 `json:"confidence"`
}

// remoteClassifyResponse is the wire response of the classification service
type remoteClassifyResponse struct {
	Success        bool               `json:"success"`
	ProduceType    string             `json:"produce_type"`
	PredictedClass string             `json:"predicted_class"`
	PredictedLabel string             `json:"predicted_label"`
	Confidence     float64            `json:"confidence"`
	AllPredictions []remotePrediction `json:"all_predictions"`
}

// remoteErrorResponse is the service's failure body
type remoteErrorResponse struct {
	Detail string `json:"detail"`
}

// RemoteBackend delegates classification to a network service speaking the
// /classify wire contract. Unlike the embedded variant it never degrades
// to synthetic output: transport, server, and payload failures surface as
// distinct error kinds.
type RemoteBackend struct {
	registry    *taxonomy.Registry
	baseURL     string
	healthCheck bool
	client      *http.Client

	loaded bool
	kind   taxonomy.ProduceKind
	table  *LabelTable
}

// RemoteOption configures a RemoteBackend
type RemoteOption func(*RemoteBackend)

// WithHTTPClient overrides the HTTP client, mainly for tests
func WithHTTPClient(client *http.Client) RemoteOption {
	return func(b *RemoteBackend) {
		b.client = client
	}
}

// WithHealthCheck toggles the best-effort health probe during Load
func WithHealthCheck(enabled bool) RemoteOption {
	return func(b *RemoteBackend) {
		b.healthCheck = enabled
	}
}

// NewRemoteBackend creates a remote backend for the service at baseURL.
// The default client carries no timeout: the pipeline imposes no latency
// bound of its own, callers cancel through the context.
func NewRemoteBackend(registry *taxonomy.Registry, baseURL string, opts ...RemoteOption) *RemoteBackend {
	b := &RemoteBackend{
		registry:    registry,
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		healthCheck: true,
		client:      &http.Client{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Load validates the kind and probes the service health. The probe is
// best-effort: a failing probe logs a warning and never fails the load,
// classification is attempted optimistically regardless.
func (b *RemoteBackend) Load(ctx context.Context, kind taxonomy.ProduceKind) error {
	_, span := tracing.StartSpan(ctx, tracing.SpanBackendLoad,
		tracing.ProduceKindAttr(string(kind)),
		tracing.BackendAttr("remote"),
	)
	defer span.End()

	if b.loaded && b.kind == kind {
		logging.Debugf("Remote backend already bound to %q", kind)
		return nil
	}
	b.Unload()

	if !b.registry.HasKind(kind) {
		return fmt.Errorf("%w: %w: %q", ErrLoadFailed, taxonomy.ErrUnknownKind, kind)
	}
	table, err := TableFor(b.registry, kind)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}

	if b.healthCheck {
		if err := b.Health(ctx); err != nil {
			logging.Warnf("Classification service health probe failed (continuing anyway): %v", err)
		}
	}

	b.table = table
	b.kind = kind
	b.loaded = true
	logging.Infof("Remote backend bound to %q at %s", kind, b.baseURL)
	return nil
}

// Health probes GET /health on the service
func (b *RemoteBackend) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: health probe returned status %d", ErrServer, resp.StatusCode)
	}
	return nil
}

// Classify ships the image to the service and maps the response into the
// canonical prediction set.
func (b *RemoteBackend) Classify(ctx context.Context, image []byte) (*ClassificationResult, error) {
	if !b.loaded {
		return nil, ErrNotLoaded
	}
	ctx, span := tracing.StartSpan(ctx, tracing.SpanRemoteClassify,
		tracing.ProduceKindAttr(string(b.kind)),
		tracing.BackendAttr("remote"),
	)
	defer span.End()
	start := time.Now()

	result, err := b.classify(ctx, image)
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeError
		tracing.RecordError(span, err)
	}
	metrics.RecordClassification(string(b.kind), "remote", outcome, time.Since(start).Seconds())
	return result, err
}

func (b *RemoteBackend) classify(ctx context.Context, image []byte) (*ClassificationResult, error) {
	payload := image
	if resized, err := resizeForTransport(image); err != nil {
		// Fidelity traded for availability: ship the original bytes.
		logging.Warnf("Transport resize failed, sending original image: %v", err)
	} else {
		payload = resized
	}

	body, err := json.Marshal(remoteClassifyRequest{
		Image:       EncodeImagePayload(payload),
		ProduceType: string(b.kind),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode classify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/classify", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	req.Header.Set("Content-Type", "application/json")
	tracing.InjectHTTPContext(ctx, req.Header)

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := strings.TrimSpace(string(respBody))
		var errResp remoteErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Detail != "" {
			detail = errResp.Detail
		}
		return nil, fmt.Errorf("%w: status %d: %s", ErrServer, resp.StatusCode, detail)
	}

	var parsed remoteClassifyResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if !parsed.Success {
		return nil, fmt.Errorf("%w: service reported success=false", ErrServer)
	}
	return b.mapResponse(&parsed)
}

// mapResponse validates the service payload against the registry and
// builds the ranked result. Labels are accepted in canonical or raw form;
// anything else is a data-integrity error, never dropped.
func (b *RemoteBackend) mapResponse(resp *remoteClassifyResponse) (*ClassificationResult, error) {
	if len(resp.AllPredictions) == 0 {
		return nil, fmt.Errorf("%w: response carries no predictions", ErrMalformedResponse)
	}

	scores := make(map[string]float64, len(resp.AllPredictions))
	for _, p := range resp.AllPredictions {
		canonical, ok := b.table.Resolve(p.ClassName)
		if !ok {
			return nil, fmt.Errorf("%w: %q for produce kind %q", ErrUnknownLabel, p.ClassName, b.kind)
		}
		if _, dup := scores[canonical]; dup {
			return nil, fmt.Errorf("%w: duplicate prediction for %q", ErrMalformedResponse, canonical)
		}
		scores[canonical] = p.Confidence
	}

	result, err := buildResult(b.registry, b.kind, scores)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	if resp.PredictedClass != "" {
		if canonical, ok := b.table.Resolve(resp.PredictedClass); !ok {
			return nil, fmt.Errorf("%w: %q for produce kind %q", ErrUnknownLabel, resp.PredictedClass, b.kind)
		} else if canonical != result.TopLabel {
			logging.Debugf("Service predicted_class %q differs from ranked top %q", resp.PredictedClass, result.TopLabel)
		}
	}
	return result, nil
}

// Unload releases the binding. Safe to call repeatedly.
func (b *RemoteBackend) Unload() {
	b.loaded = false
	b.kind = ""
	b.table = nil
}

// Loaded reports whether a kind is currently bound
func (b *RemoteBackend) Loaded() bool {
	return b.loaded
}

// Kind returns the bound produce kind, empty when unloaded
func (b *RemoteBackend) Kind() taxonomy.ProduceKind {
	return b.kind
}
