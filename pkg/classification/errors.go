package classification

import (
	"errors"

	"github.com/ripesense/ripesense/pkg/taxonomy"
)

// Error kinds surfaced by the classification pipeline. Callers match them
// with errors.Is; wrapped causes carry the detail.
var (
	// ErrLoadFailed marks a backend that could not acquire its model or
	// endpoint. Terminal for a session until the next Load.
	ErrLoadFailed = errors.New("failed to load classification backend")

	// ErrNotReady is returned by a session when Classify is called from any
	// state other than Ready. A caller ordering bug, never retried internally.
	ErrNotReady = errors.New("classification session is not ready")

	// ErrNotLoaded is the backend-level equivalent of ErrNotReady.
	ErrNotLoaded = errors.New("classification backend is not loaded")

	// ErrNetwork marks a remote request that could not be sent or completed
	// at the transport layer.
	ErrNetwork = errors.New("classification service unreachable")

	// ErrServer marks a non-success status or success=false body from the
	// remote service.
	ErrServer = errors.New("classification service returned an error")

	// ErrMalformedResponse marks a remote payload that did not match the
	// wire contract.
	ErrMalformedResponse = errors.New("malformed classification service response")

	// ErrPreprocessing marks an image that could not be decoded or resized.
	ErrPreprocessing = errors.New("image preprocessing failed")

	// ErrLabelTableMismatch marks a label table that disagrees with the
	// registry or with the model's declared output order. Always fails the
	// load; binding confidences to wrong labels silently is never acceptable.
	ErrLabelTableMismatch = errors.New("label table does not match model output order")
)

// ErrUnknownLabel marks a raw label with no canonical mapping, a
// data-integrity failure between the inference side and the registry.
// Shared with the taxonomy package so either layer can raise it.
var ErrUnknownLabel = taxonomy.ErrUnknownLabel
