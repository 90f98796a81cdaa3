// Package services wires the classification pipeline together for the API
// surface: one backend and session per registered produce kind, serialized
// per kind, with finished scans recorded in the history store.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ripesense/ripesense/pkg/classification"
	"github.com/ripesense/ripesense/pkg/config"
	"github.com/ripesense/ripesense/pkg/history"
	"github.com/ripesense/ripesense/pkg/observability/logging"
	"github.com/ripesense/ripesense/pkg/observability/metrics"
	"github.com/ripesense/ripesense/pkg/observability/tracing"
	"github.com/ripesense/ripesense/pkg/taxonomy"
)

// Source values reported with classification outcomes and stored on scan
// records.
const (
	SourceEmbedded  = "embedded"
	SourceSynthetic = "synthetic"
	SourceRemote    = "remote"
)

// ErrUnknownKind is returned when a request names a produce kind the
// registry does not contain.
var ErrUnknownKind = taxonomy.ErrUnknownKind

// kindSlot pairs one backend with its session. The mutex serializes every
// backend-touching operation for the kind, so a session never observes a
// second Classify while one is in flight.
type kindSlot struct {
	mu      sync.Mutex
	backend classification.Backend
	session *classification.Session
}

// ClassificationService owns the per-kind sessions behind the API server and
// the CLI. Callers address kinds by name; the service routes the call to the
// right session and keeps the history store up to date.
type ClassificationService struct {
	cfg      *config.Config
	registry *taxonomy.Registry
	store    history.Store
	slots    map[taxonomy.ProduceKind]*kindSlot
	kinds    []taxonomy.ProduceKind
}

// KindStatus is a point-in-time view of one kind's session, used by health
// reporting.
type KindStatus struct {
	Kind   taxonomy.ProduceKind
	State  classification.SessionState
	Source string
	Error  string
}

// NewClassificationService builds a backend and session for every kind in
// the registry. Nothing is loaded yet; call LoadAll before serving.
func NewClassificationService(cfg *config.Config, registry *taxonomy.Registry, store history.Store) (*ClassificationService, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if registry == nil {
		registry = taxonomy.Default()
	}
	if store == nil {
		disabled, err := history.NewStore(history.StoreConfig{Enabled: false})
		if err != nil {
			return nil, fmt.Errorf("failed to create disabled history store: %w", err)
		}
		store = disabled
	}

	svc := &ClassificationService{
		cfg:      cfg,
		registry: registry,
		store:    store,
		slots:    make(map[taxonomy.ProduceKind]*kindSlot),
		kinds:    registry.Kinds(),
	}
	for _, kind := range svc.kinds {
		backend, err := NewBackend(cfg, registry)
		if err != nil {
			return nil, fmt.Errorf("failed to create backend for %s: %w", kind, err)
		}
		svc.slots[kind] = &kindSlot{
			backend: backend,
			session: classification.NewSession(backend),
		}
	}
	return svc, nil
}

// NewBackend constructs the inference backend selected by the configuration.
func NewBackend(cfg *config.Config, registry *taxonomy.Registry) (classification.Backend, error) {
	switch cfg.Backend.Type {
	case config.BackendEmbedded, "":
		return classification.NewEmbeddedBackend(registry, cfg.Backend.Embedded.ModelsDir,
			classification.WithRequireModel(cfg.Backend.Embedded.RequireModel)), nil
	case config.BackendRemote:
		return classification.NewRemoteBackend(registry, cfg.Backend.Remote.URL,
			classification.WithHealthCheck(cfg.Backend.Remote.HealthCheckEnabled())), nil
	default:
		return nil, fmt.Errorf("unknown backend type: %q", cfg.Backend.Type)
	}
}

// Kinds lists the produce kinds the service hosts, in registry order.
func (s *ClassificationService) Kinds() []taxonomy.ProduceKind {
	return s.kinds
}

// Registry exposes the taxonomy the service was built with.
func (s *ClassificationService) Registry() *taxonomy.Registry {
	return s.registry
}

// Store exposes the scan history store.
func (s *ClassificationService) Store() history.Store {
	return s.store
}

// LoadAll eagerly loads every kind's session. Load failures are logged and
// leave the session in its error state; the kind stays unavailable until a
// later Reload succeeds.
func (s *ClassificationService) LoadAll(ctx context.Context) {
	for _, kind := range s.kinds {
		if err := s.Reload(ctx, kind); err != nil {
			logging.Errorf("Failed to load classification backend for %s: %v", kind, err)
		}
	}
}

// Reload (re)loads the session for one kind. Safe to call from any session
// state; a kind stuck in an error state becomes usable again once this
// succeeds.
func (s *ClassificationService) Reload(ctx context.Context, kind taxonomy.ProduceKind) error {
	slot, err := s.slot(kind)
	if err != nil {
		return err
	}

	slot.mu.Lock()
	defer slot.mu.Unlock()

	start := time.Now()
	if err := slot.session.Load(ctx, kind); err != nil {
		return err
	}
	logging.LogEvent("backend_loaded", map[string]interface{}{
		"produce_kind": string(kind),
		"source":       s.slotSource(slot),
		"duration_ms":  time.Since(start).Milliseconds(),
	})
	return nil
}

// Classify runs one classification for the kind and returns the result plus
// the source that produced it. Calls for the same kind are serialized; a
// successful outcome is recorded in the history store on a best-effort
// basis.
func (s *ClassificationService) Classify(ctx context.Context, kind taxonomy.ProduceKind, image []byte) (*classification.ClassificationResult, string, error) {
	slot, err := s.slot(kind)
	if err != nil {
		return nil, "", err
	}

	slot.mu.Lock()
	defer slot.mu.Unlock()

	ctx, span := tracing.StartSpan(ctx, tracing.SpanSessionClassify,
		tracing.ProduceKindAttr(string(kind)))
	defer span.End()

	// The backend records its own classification metrics; this layer only
	// wraps the call in a span and persists the outcome.
	source := s.slotSource(slot)
	result, err := slot.session.Classify(ctx, image)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, source, err
	}

	tracing.EndClassificationSpan(span, result.TopLabel, result.TopConfidence)

	s.recordScan(ctx, result, source)
	return result, source, nil
}

// Status reports every hosted session's state, source and last error, in
// registry order.
func (s *ClassificationService) Status() []KindStatus {
	statuses := make([]KindStatus, 0, len(s.kinds))
	for _, kind := range s.kinds {
		slot := s.slots[kind]
		snap := slot.session.Snapshot()
		status := KindStatus{
			Kind:   kind,
			State:  snap.State,
			Source: s.slotSource(slot),
		}
		if snap.Err != nil {
			status.Error = snap.Err.Error()
		}
		statuses = append(statuses, status)
	}
	return statuses
}

// Session exposes the session for a kind, mainly for tests and the CLI.
func (s *ClassificationService) Session(kind taxonomy.ProduceKind) (*classification.Session, error) {
	slot, err := s.slot(kind)
	if err != nil {
		return nil, err
	}
	return slot.session, nil
}

// Close unloads every backend and closes the history store.
func (s *ClassificationService) Close() error {
	for _, kind := range s.kinds {
		slot := s.slots[kind]
		slot.mu.Lock()
		slot.backend.Unload()
		slot.mu.Unlock()
	}
	return s.store.Close()
}

func (s *ClassificationService) slot(kind taxonomy.ProduceKind) (*kindSlot, error) {
	slot, ok := s.slots[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	return slot, nil
}

// slotSource names what is actually serving predictions for a slot.
func (s *ClassificationService) slotSource(slot *kindSlot) string {
	switch b := slot.backend.(type) {
	case *classification.EmbeddedBackend:
		if b.Mode() == classification.ModeSynthetic {
			return SourceSynthetic
		}
		return SourceEmbedded
	case *classification.RemoteBackend:
		return SourceRemote
	default:
		return s.cfg.Backend.Type
	}
}

// recordScan persists a finished classification. History problems are logged
// and never fail the classification itself.
func (s *ClassificationService) recordScan(ctx context.Context, result *classification.ClassificationResult, source string) {
	if !s.store.IsEnabled() {
		return
	}

	ctx, span := tracing.StartSpan(ctx, tracing.SpanHistorySave)
	defer span.End()

	record := &history.ScanRecord{
		ID:            history.NewScanID(),
		ProduceKind:   result.ProduceKind,
		TopLabel:      result.TopLabel,
		TopConfidence: result.TopConfidence,
		Predictions:   result.Predictions,
		Source:        source,
		CreatedAt:     time.Now().UTC(),
	}
	err := s.store.Save(ctx, record)
	metrics.RecordHistoryOperation(s.cfg.History.BackendType, "save", err)
	if err != nil && !errors.Is(err, history.ErrStoreDisabled) {
		tracing.RecordError(span, err)
		logging.Warnf("Failed to record scan %s in history: %v", record.ID, err)
	}
}
