package classification

import (
	"context"

	"github.com/ripesense/ripesense/pkg/taxonomy"
)

// Backend is the uniform contract over the inference variants. A backend
// holds no caller-visible state beyond its own loadedness.
//
// Load is idempotent: loading the kind already held re-validates and
// returns without re-acquiring; loading a different kind releases the prior
// resource first. Classify requires a prior successful Load and fails with
// ErrNotLoaded otherwise. Unload is always safe and idempotent.
//
// Backends do not serialize calls internally. Callers own the single-flight
// contract: at most one in-flight Load or Classify per backend at a time.
// Operations take a context for caller-layered cancellation; the pipeline
// itself imposes no timeout.
type Backend interface {
	Load(ctx context.Context, kind taxonomy.ProduceKind) error
	Classify(ctx context.Context, image []byte) (*ClassificationResult, error)
	Unload()
	Loaded() bool
}
