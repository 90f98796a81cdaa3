package classification

import (
	"fmt"

	"github.com/ripesense/ripesense/pkg/taxonomy"
)

// LabelRow binds one raw model output label to its canonical counterpart
type LabelRow struct {
	Raw       string
	Canonical string
}

// LabelTable maps a model's raw output vocabulary onto the canonical
// ripeness labels of one produce kind. Row order is load-bearing: the
// model's output vector index i binds to Rows[i]. Tables are validated
// against the registry and the model artifact at load time so a wrong
// order fails loudly instead of silently mislabeling confidences.
type LabelTable struct {
	Kind taxonomy.ProduceKind
	Rows []LabelRow
}

// builtinLabelTables holds the translation tables for the bundled models.
// Raw labels follow the training tool's prefixed export vocabulary.
func builtinLabelTables() map[taxonomy.ProduceKind]*LabelTable {
	return map[taxonomy.ProduceKind]*LabelTable{
		taxonomy.KindAvocado: {
			Kind: taxonomy.KindAvocado,
			Rows: []LabelRow{
				{Raw: "avocado_underripe", Canonical: "underripe"},
				{Raw: "avocado_breaking", Canonical: "breaking"},
				{Raw: "avocado_ripe1", Canonical: "ripe_stage_1"},
				{Raw: "avocado_ripe2", Canonical: "ripe_stage_2"},
				{Raw: "avocado_overripe", Canonical: "overripe"},
			},
		},
		taxonomy.KindBanana: {
			Kind: taxonomy.KindBanana,
			Rows: []LabelRow{
				{Raw: "banana_unripe", Canonical: "unripe"},
				{Raw: "banana_ripe", Canonical: "ripe"},
				{Raw: "banana_overripe", Canonical: "overripe"},
			},
		},
	}
}

// TableFor returns the label table for a kind. Kinds without a bundled
// model fall back to an identity table derived from the registry, so a
// taxonomy override can still run through the pipeline.
func TableFor(registry *taxonomy.Registry, kind taxonomy.ProduceKind) (*LabelTable, error) {
	if table, ok := builtinLabelTables()[kind]; ok {
		return table, nil
	}
	stages, err := registry.Stages(kind)
	if err != nil {
		return nil, err
	}
	table := &LabelTable{Kind: kind, Rows: make([]LabelRow, 0, len(stages))}
	for _, stage := range stages {
		table.Rows = append(table.Rows, LabelRow{Raw: stage.CanonicalLabel, Canonical: stage.CanonicalLabel})
	}
	return table, nil
}

// Validate checks the table against the registry: one row per stage, every
// canonical label known, raw labels unique. A row count or coverage
// disagreement is a label table mismatch, an unknown canonical label is a
// data-integrity error.
func (t *LabelTable) Validate(registry *taxonomy.Registry) error {
	count := registry.StageCount(t.Kind)
	if count == 0 {
		return fmt.Errorf("%w: %q", taxonomy.ErrUnknownKind, t.Kind)
	}
	if len(t.Rows) != count {
		return fmt.Errorf("%w: table for %q has %d rows, registry has %d stages",
			ErrLabelTableMismatch, t.Kind, len(t.Rows), count)
	}

	rawSeen := make(map[string]bool, len(t.Rows))
	canonicalSeen := make(map[string]bool, len(t.Rows))
	for i, row := range t.Rows {
		if row.Raw == "" {
			return fmt.Errorf("%w: table for %q row %d has empty raw label", ErrLabelTableMismatch, t.Kind, i)
		}
		if rawSeen[row.Raw] {
			return fmt.Errorf("%w: table for %q repeats raw label %q", ErrLabelTableMismatch, t.Kind, row.Raw)
		}
		rawSeen[row.Raw] = true
		if canonicalSeen[row.Canonical] {
			return fmt.Errorf("%w: table for %q repeats canonical label %q", ErrLabelTableMismatch, t.Kind, row.Canonical)
		}
		canonicalSeen[row.Canonical] = true
		if _, err := registry.Stage(t.Kind, row.Canonical); err != nil {
			return fmt.Errorf("table for %q row %q: %w", t.Kind, row.Raw, err)
		}
	}
	return nil
}

// MatchesDeclaredOrder checks the model artifact's declared label order
// against the table rows. Any disagreement means the output vector would
// bind to wrong labels, so it fails the load.
func (t *LabelTable) MatchesDeclaredOrder(labels []string) error {
	if len(labels) != len(t.Rows) {
		return fmt.Errorf("%w: model declares %d labels, table for %q has %d rows",
			ErrLabelTableMismatch, len(labels), t.Kind, len(t.Rows))
	}
	for i, label := range labels {
		if label != t.Rows[i].Raw {
			return fmt.Errorf("%w: model label %q at index %d, table for %q expects %q",
				ErrLabelTableMismatch, label, i, t.Kind, t.Rows[i].Raw)
		}
	}
	return nil
}

// CanonicalAt returns the canonical label bound to output vector index i
func (t *LabelTable) CanonicalAt(i int) (string, bool) {
	if i < 0 || i >= len(t.Rows) {
		return "", false
	}
	return t.Rows[i].Canonical, true
}

// Resolve maps a label that may be raw or already canonical onto its
// canonical form. Used by the remote variant, whose responses carry
// canonical-shaped labels but may also echo the raw vocabulary.
func (t *LabelTable) Resolve(label string) (string, bool) {
	for _, row := range t.Rows {
		if row.Canonical == label || row.Raw == label {
			return row.Canonical, true
		}
	}
	return "", false
}
