package classification

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ripesense/ripesense/pkg/observability/logging"
	"github.com/ripesense/ripesense/pkg/observability/metrics"
	"github.com/ripesense/ripesense/pkg/observability/tracing"
	"github.com/ripesense/ripesense/pkg/taxonomy"
)

// InferenceMode distinguishes real model inference from the synthetic
// fallback inside the embedded backend. It is an internal flag of the
// variant, not a third backend.
type InferenceMode string

const (
	// ModeModel means predictions come from the bundled model artifact.
	ModeModel InferenceMode = "model"
	// ModeSynthetic means the model could not be acquired and predictions
	// are randomly generated. Flagged loudly wherever it is active.
	ModeSynthetic InferenceMode = "synthetic"
)

// EmbeddedBackend runs inference in-process against a bundled model
// artifact. When the artifact is missing or unusable it degrades to
// synthetic predictions unless strict mode is on, so the rest of the
// system stays exercisable without a trained model.
type EmbeddedBackend struct {
	registry     *taxonomy.Registry
	modelsDir    string
	requireModel bool

	loaded  bool
	kind    taxonomy.ProduceKind
	mode    InferenceMode
	table   *LabelTable
	network *Network
	synth   *syntheticGenerator
}

// EmbeddedOption configures an EmbeddedBackend
type EmbeddedOption func(*EmbeddedBackend)

// WithRequireModel makes a missing or unusable model artifact fail the
// load instead of degrading to synthetic predictions.
func WithRequireModel(require bool) EmbeddedOption {
	return func(b *EmbeddedBackend) {
		b.requireModel = require
	}
}

// NewEmbeddedBackend creates an embedded backend reading model artifacts
// from modelsDir, one <kind>.json per produce kind.
func NewEmbeddedBackend(registry *taxonomy.Registry, modelsDir string, opts ...EmbeddedOption) *EmbeddedBackend {
	b := &EmbeddedBackend{
		registry:  registry,
		modelsDir: modelsDir,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Load acquires the model artifact for a kind. Loading the held kind again
// re-validates and returns; loading a different kind releases the prior
// model first. The label table is checked against the registry and the
// artifact's declared label order before anything is served.
func (b *EmbeddedBackend) Load(ctx context.Context, kind taxonomy.ProduceKind) error {
	_, span := tracing.StartSpan(ctx, tracing.SpanBackendLoad,
		tracing.ProduceKindAttr(string(kind)),
		tracing.BackendAttr("embedded"),
	)
	defer span.End()
	start := time.Now()

	if b.loaded && b.kind == kind {
		if err := b.table.Validate(b.registry); err != nil {
			return fmt.Errorf("%w: %w", ErrLoadFailed, err)
		}
		logging.Debugf("Embedded backend already loaded for %q, revalidated", kind)
		return nil
	}
	b.Unload()

	table, err := TableFor(b.registry, kind)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}
	if err := table.Validate(b.registry); err != nil {
		return fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}

	artifactPath := filepath.Join(b.modelsDir, string(kind)+".json")
	network, loadErr := LoadNetwork(artifactPath)
	if loadErr == nil {
		if err := table.MatchesDeclaredOrder(network.Labels); err != nil {
			// A wrong label order would bind confidences to wrong labels,
			// so this never degrades to synthetic mode.
			return fmt.Errorf("%w: %w", ErrLoadFailed, err)
		}
		if dim := network.FeatureDim(); dim != colorFeatureDim && dim != network.InputSize*network.InputSize*network.Channels {
			loadErr = fmt.Errorf("model expects %d inputs, runtime provides %d or %d",
				dim, colorFeatureDim, network.InputSize*network.InputSize*network.Channels)
			network = nil
		}
	}

	if loadErr != nil {
		if b.requireModel {
			return fmt.Errorf("%w: %w", ErrLoadFailed, loadErr)
		}
		logging.Warnf("No usable model for %q (%v), serving SYNTHETIC predictions", kind, loadErr)
		b.mode = ModeSynthetic
		b.synth = newSyntheticGenerator()
		metrics.SetSyntheticMode(string(kind), true)
	} else {
		b.mode = ModeModel
		b.network = network
		metrics.SetSyntheticMode(string(kind), false)
		logging.Infof("Loaded model for %q from %s (%d labels)", kind, artifactPath, len(network.Labels))
	}

	b.table = table
	b.kind = kind
	b.loaded = true
	metrics.RecordModelLoad(string(kind), string(b.mode), time.Since(start).Seconds())
	return nil
}

// Classify runs one image through the loaded model or the synthetic
// generator and returns the ranked result.
func (b *EmbeddedBackend) Classify(ctx context.Context, image []byte) (*ClassificationResult, error) {
	if !b.loaded {
		return nil, ErrNotLoaded
	}
	ctx, span := tracing.StartSpan(ctx, tracing.SpanInference,
		tracing.ProduceKindAttr(string(b.kind)),
		tracing.BackendAttr(string(b.mode)),
	)
	defer span.End()
	start := time.Now()

	result, err := b.classify(ctx, image)
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeError
		tracing.RecordError(span, err)
	}
	metrics.RecordClassification(string(b.kind), string(b.mode), outcome, time.Since(start).Seconds())
	return result, err
}

func (b *EmbeddedBackend) classify(ctx context.Context, image []byte) (*ClassificationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stages, err := b.registry.Stages(b.kind)
	if err != nil {
		return nil, err
	}

	if b.mode == ModeSynthetic {
		return buildResult(b.registry, b.kind, b.synth.predictions(stages))
	}

	pixels, err := preprocessImage(image)
	if err != nil {
		return nil, err
	}
	features := pixels
	if b.network.FeatureDim() == colorFeatureDim {
		features = colorFeatures(pixels)
	}
	vector, err := b.network.Scores(features)
	if err != nil {
		return nil, err
	}

	scores := make(map[string]float64, len(vector))
	for i, confidence := range vector {
		canonical, ok := b.table.CanonicalAt(i)
		if !ok {
			return nil, fmt.Errorf("%w: model output index %d has no label table row", ErrUnknownLabel, i)
		}
		scores[canonical] = confidence
	}
	return buildResult(b.registry, b.kind, scores)
}

// Unload releases the model. Safe to call repeatedly.
func (b *EmbeddedBackend) Unload() {
	if b.loaded && b.mode == ModeSynthetic {
		metrics.SetSyntheticMode(string(b.kind), false)
	}
	b.loaded = false
	b.kind = ""
	b.mode = ""
	b.table = nil
	b.network = nil
	b.synth = nil
}

// Loaded reports whether a kind is currently loaded
func (b *EmbeddedBackend) Loaded() bool {
	return b.loaded
}

// Kind returns the loaded produce kind, empty when unloaded
func (b *EmbeddedBackend) Kind() taxonomy.ProduceKind {
	return b.kind
}

// Mode returns the active inference mode, empty when unloaded
func (b *EmbeddedBackend) Mode() InferenceMode {
	return b.mode
}
