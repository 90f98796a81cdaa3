package taxonomy

import (
	"errors"
	"fmt"
	"sync"
)

// ProduceKind identifies the produce subject being classified
type ProduceKind string

// Built-in produce kinds
const (
	KindAvocado ProduceKind = "avocado"
	KindBanana  ProduceKind = "banana"
)

// Sentinel errors for registry lookups. An unknown label is a
// data-integrity failure (the inference side and the registry disagree),
// not a low-confidence outcome.
var (
	ErrUnknownKind  = errors.New("unknown produce kind")
	ErrUnknownLabel = errors.New("unknown ripeness label")
)

// RipenessStage is one discrete point on a kind's ordered ripeness scale
type RipenessStage struct {
	CanonicalLabel string `json:"canonical_label" yaml:"canonical_label"`
	StageIndex     int    `json:"stage_index" yaml:"stage_index"`
	DisplayLabel   string `json:"display_label" yaml:"display_label"`
	Description    string `json:"description,omitempty" yaml:"description,omitempty"`
	ColorHint      string `json:"color_hint,omitempty" yaml:"color_hint,omitempty"`
}

// KindStages pairs a produce kind with its ordered stage sequence
type KindStages struct {
	Kind   ProduceKind     `json:"kind" yaml:"kind"`
	Stages []RipenessStage `json:"stages" yaml:"stages"`
}

// Registry holds the process-wide produce taxonomy. It is built once at
// startup and never mutated afterwards, so lookups need no locking.
type Registry struct {
	kinds  []ProduceKind
	stages map[ProduceKind][]RipenessStage
}

// NewRegistry builds a registry from kind definitions and validates the
// stage invariants: indices contiguous starting at 1, canonical labels
// unique within each kind.
func NewRegistry(defs []KindStages) (*Registry, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("taxonomy requires at least one produce kind")
	}

	r := &Registry{
		stages: make(map[ProduceKind][]RipenessStage, len(defs)),
	}
	for _, def := range defs {
		if def.Kind == "" {
			return nil, fmt.Errorf("taxonomy entry with empty produce kind")
		}
		if _, exists := r.stages[def.Kind]; exists {
			return nil, fmt.Errorf("duplicate produce kind %q", def.Kind)
		}
		if err := validateStages(def.Kind, def.Stages); err != nil {
			return nil, err
		}
		// Copy so later mutation of the input slice cannot leak in.
		stages := make([]RipenessStage, len(def.Stages))
		copy(stages, def.Stages)
		r.kinds = append(r.kinds, def.Kind)
		r.stages[def.Kind] = stages
	}
	return r, nil
}

func validateStages(kind ProduceKind, stages []RipenessStage) error {
	if len(stages) == 0 {
		return fmt.Errorf("produce kind %q has no ripeness stages", kind)
	}
	seen := make(map[string]bool, len(stages))
	for i, stage := range stages {
		if stage.CanonicalLabel == "" {
			return fmt.Errorf("produce kind %q: stage %d has empty canonical label", kind, i+1)
		}
		if seen[stage.CanonicalLabel] {
			return fmt.Errorf("produce kind %q: duplicate canonical label %q", kind, stage.CanonicalLabel)
		}
		seen[stage.CanonicalLabel] = true
		// Stage indices must be contiguous starting at 1.
		if stage.StageIndex != i+1 {
			return fmt.Errorf("produce kind %q: stage %q has index %d, want %d",
				kind, stage.CanonicalLabel, stage.StageIndex, i+1)
		}
		if stage.DisplayLabel == "" {
			return fmt.Errorf("produce kind %q: stage %q has empty display label", kind, stage.CanonicalLabel)
		}
	}
	return nil
}

// Kinds returns the registered produce kinds in registration order
func (r *Registry) Kinds() []ProduceKind {
	out := make([]ProduceKind, len(r.kinds))
	copy(out, r.kinds)
	return out
}

// HasKind reports whether the kind is registered
func (r *Registry) HasKind(kind ProduceKind) bool {
	_, ok := r.stages[kind]
	return ok
}

// Stages returns the ordered ripeness stages for a kind
func (r *Registry) Stages(kind ProduceKind) ([]RipenessStage, error) {
	stages, ok := r.stages[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	out := make([]RipenessStage, len(stages))
	copy(out, stages)
	return out, nil
}

// StageCount returns the number of stages for a kind, 0 when unknown
func (r *Registry) StageCount(kind ProduceKind) int {
	return len(r.stages[kind])
}

// Stage resolves a canonical label to its stage within a kind
func (r *Registry) Stage(kind ProduceKind, canonicalLabel string) (RipenessStage, error) {
	stages, ok := r.stages[kind]
	if !ok {
		return RipenessStage{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	for _, stage := range stages {
		if stage.CanonicalLabel == canonicalLabel {
			return stage, nil
		}
	}
	return RipenessStage{}, fmt.Errorf("%w: %q for produce kind %q", ErrUnknownLabel, canonicalLabel, kind)
}

// DisplayLabel returns the human-readable label for a canonical label,
// falling back to the canonical label itself when the lookup fails.
func (r *Registry) DisplayLabel(kind ProduceKind, canonicalLabel string) string {
	stage, err := r.Stage(kind, canonicalLabel)
	if err != nil {
		return canonicalLabel
	}
	return stage.DisplayLabel
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// Default returns the registry built from the built-in produce taxonomy
func Default() *Registry {
	defaultRegistryOnce.Do(func() {
		r, err := NewRegistry(builtinKinds())
		if err != nil {
			// The built-in tables are fixed at compile time; failing to
			// validate them is a programming error.
			panic(fmt.Sprintf("built-in taxonomy invalid: %v", err))
		}
		defaultRegistry = r
	})
	return defaultRegistry
}
