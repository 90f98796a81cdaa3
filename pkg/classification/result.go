package classification

import (
	"fmt"
	"sort"

	"github.com/ripesense/ripesense/pkg/taxonomy"
)

// PredictionScore is one canonical label with its confidence in [0,1]
type PredictionScore struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// ClassificationResult is the ranked outcome of one classify call. It is a
// value object owned by the caller; the pipeline never caches it.
type ClassificationResult struct {
	ProduceKind   taxonomy.ProduceKind `json:"produce_kind"`
	TopLabel      string               `json:"top_label"`
	TopConfidence float64              `json:"top_confidence"`
	Predictions   []PredictionScore    `json:"predictions"`
}

// buildResult assembles the ranked result for a kind from per-label
// confidences. The scores map must hold exactly one entry per stage of the
// kind. Predictions are sorted by descending confidence with a stable sort,
// so equal confidences keep the registry stage order.
func buildResult(registry *taxonomy.Registry, kind taxonomy.ProduceKind, scores map[string]float64) (*ClassificationResult, error) {
	stages, err := registry.Stages(kind)
	if err != nil {
		return nil, err
	}
	if len(scores) != len(stages) {
		return nil, fmt.Errorf("prediction set has %d entries, want one per stage (%d)", len(scores), len(stages))
	}

	predictions := make([]PredictionScore, 0, len(stages))
	for _, stage := range stages {
		confidence, ok := scores[stage.CanonicalLabel]
		if !ok {
			return nil, fmt.Errorf("prediction set missing stage %q", stage.CanonicalLabel)
		}
		if confidence < 0 || confidence > 1 {
			return nil, fmt.Errorf("confidence %.6f for %q outside [0,1]", confidence, stage.CanonicalLabel)
		}
		predictions = append(predictions, PredictionScore{
			Label:      stage.CanonicalLabel,
			Confidence: confidence,
		})
	}

	sort.SliceStable(predictions, func(i, j int) bool {
		return predictions[i].Confidence > predictions[j].Confidence
	})

	return &ClassificationResult{
		ProduceKind:   kind,
		TopLabel:      predictions[0].Label,
		TopConfidence: predictions[0].Confidence,
		Predictions:   predictions,
	}, nil
}
