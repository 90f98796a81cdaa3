package tracing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/credentials/insecure"
)

const tracerName = "ripesense"

// Config holds the tracing configuration
type Config struct {
	Enabled               bool
	ExporterType          string
	ExporterEndpoint      string
	ExporterInsecure      bool
	SamplingType          string
	SamplingRate          float64
	ServiceName           string
	ServiceVersion        string
	DeploymentEnvironment string
}

var (
	tracerProvider *sdktrace.TracerProvider
	tracer         trace.Tracer
)

// InitTracing initializes the OpenTelemetry tracing provider
func InitTracing(ctx context.Context, cfg Config) error {
	if !cfg.Enabled {
		return nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.ServiceVersion),
			semconv.DeploymentEnvironmentKey.String(cfg.DeploymentEnvironment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	var exporter sdktrace.SpanExporter
	switch cfg.ExporterType {
	case "otlp":
		exporter, err = createOTLPExporter(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
	case "stdout":
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return fmt.Errorf("failed to create stdout exporter: %w", err)
		}
	default:
		return fmt.Errorf("unsupported exporter type: %s", cfg.ExporterType)
	}

	var sampler sdktrace.Sampler
	switch cfg.SamplingType {
	case "always_on":
		sampler = sdktrace.AlwaysSample()
	case "always_off":
		sampler = sdktrace.NeverSample()
	case "probabilistic":
		sampler = sdktrace.TraceIDRatioBased(cfg.SamplingRate)
	default:
		sampler = sdktrace.AlwaysSample()
	}

	tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sampler),
	)
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	tracer = tracerProvider.Tracer(tracerName)
	return nil
}

// createOTLPExporter creates an OTLP gRPC exporter. The connection is
// established asynchronously so a temporarily unavailable collector does
// not block startup.
func createOTLPExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.ExporterEndpoint),
	}
	if cfg.ExporterInsecure {
		opts = append(opts, otlptracegrpc.WithTLSCredentials(insecure.NewCredentials()))
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return otlptracegrpc.New(ctxWithTimeout, opts...)
}

// ShutdownTracing gracefully shuts down the tracing provider
func ShutdownTracing(ctx context.Context) error {
	if tracerProvider != nil {
		return tracerProvider.Shutdown(ctx)
	}
	return nil
}

// GetTracer returns the global tracer instance
func GetTracer() trace.Tracer {
	if tracer == nil {
		// Noop tracer when tracing is not initialized.
		return otel.Tracer(tracerName)
	}
	return tracer
}

// StartSpan starts a new span with the given name and initial attributes
func StartSpan(ctx context.Context, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	spanCtx, span := GetTracer().Start(ctx, spanName)
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	return spanCtx, span
}

// SetSpanAttributes sets attributes on a span if it exists
func SetSpanAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	if span != nil {
		span.SetAttributes(attrs...)
	}
}

// RecordError records an error on a span if it exists
func RecordError(span trace.Span, err error) {
	if span != nil && err != nil {
		span.RecordError(err)
	}
}

// ProduceKindAttr builds the produce kind span attribute
func ProduceKindAttr(kind string) attribute.KeyValue {
	return attribute.String(AttrProduceKind, kind)
}

// BackendAttr builds the backend variant span attribute
func BackendAttr(backend string) attribute.KeyValue {
	return attribute.String(AttrBackend, backend)
}

// EndClassificationSpan annotates a span with the ranked outcome before
// ending it.
func EndClassificationSpan(span trace.Span, topLabel string, topConfidence float64) {
	if span == nil {
		return
	}
	SetSpanAttributes(span,
		attribute.String(AttrTopLabel, topLabel),
		attribute.Float64(AttrTopConfidence, topConfidence),
	)
	span.End()
}

// Span attribute keys
const (
	AttrRequestID     = "request.id"
	AttrHTTPMethod    = "http.method"
	AttrHTTPPath      = "http.path"
	AttrProduceKind   = "produce.kind"
	AttrBackend       = "backend.variant"
	AttrTopLabel      = "classification.top_label"
	AttrTopConfidence = "classification.top_confidence"
	AttrHistoryID     = "history.record_id"
)

// Span names
const (
	SpanRequestReceived = "ripesense.request.received"
	SpanBackendLoad     = "ripesense.backend.load"
	SpanInference       = "ripesense.inference"
	SpanRemoteClassify  = "ripesense.remote.classify"
	SpanSessionClassify = "ripesense.session.classify"
	SpanHistorySave     = "ripesense.history.save"
)
