package apiserver

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/ripesense/ripesense/pkg/classification"
	"github.com/ripesense/ripesense/pkg/taxonomy"
)

// handleClassify classifies one base64-encoded produce image against the
// requested kind's session.
func (s *ClassificationAPIServer) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	if err := s.parseJSONRequest(r, &req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Image == "" {
		s.writeErrorResponse(w, http.StatusBadRequest, "image is required")
		return
	}

	kind, err := s.resolveKind(req.ProduceType)
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	image, err := classification.DecodeImagePayload(req.Image)
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("Invalid image data: %v", err))
		return
	}

	result, _, err := s.classificationSvc.Classify(r.Context(), kind, image)
	if err != nil {
		if errors.Is(err, classification.ErrNotReady) {
			s.writeErrorResponse(w, http.StatusServiceUnavailable,
				fmt.Sprintf("Classifier for %q is not ready: %v", kind, err))
			return
		}
		s.writeErrorResponse(w, http.StatusInternalServerError, fmt.Sprintf("Classification failed: %v", err))
		return
	}

	s.writeJSONResponse(w, http.StatusOK, s.buildClassifyResponse(result))
}

// handleLoad reloads the backend for one produce kind, bringing a failed
// session back into service.
func (s *ClassificationAPIServer) handleLoad(w http.ResponseWriter, r *http.Request) {
	var req LoadRequest
	if err := s.parseJSONRequest(r, &req); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	kind, err := s.resolveKind(req.ProduceType)
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.classificationSvc.Reload(r.Context(), kind); err != nil {
		s.writeErrorResponse(w, http.StatusInternalServerError, fmt.Sprintf("Load failed: %v", err))
		return
	}

	for _, status := range s.classificationSvc.Status() {
		if status.Kind == kind {
			s.writeJSONResponse(w, http.StatusOK, LoadResponse{
				Success:     true,
				ProduceType: string(kind),
				State:       string(status.State),
				Source:      status.Source,
			})
			return
		}
	}
	s.writeJSONResponse(w, http.StatusOK, LoadResponse{Success: true, ProduceType: string(kind)})
}

// resolveKind maps the wire produce_type to a registered kind. An empty
// value selects the first registered kind.
func (s *ClassificationAPIServer) resolveKind(produceType string) (taxonomy.ProduceKind, error) {
	if produceType == "" {
		kinds := s.registry.Kinds()
		if len(kinds) == 0 {
			return "", fmt.Errorf("no produce kinds registered")
		}
		return kinds[0], nil
	}
	kind := taxonomy.ProduceKind(produceType)
	if !s.registry.HasKind(kind) {
		return "", fmt.Errorf("unknown produce type: %q", produceType)
	}
	return kind, nil
}

// buildClassifyResponse renders a ranked result in the public wire shape,
// attaching display labels from the taxonomy.
func (s *ClassificationAPIServer) buildClassifyResponse(result *classification.ClassificationResult) ClassifyResponse {
	predictions := make([]PredictionItem, 0, len(result.Predictions))
	for _, p := range result.Predictions {
		predictions = append(predictions, PredictionItem{
			ClassName:  p.Label,
			ClassLabel: s.registry.DisplayLabel(result.ProduceKind, p.Label),
			Confidence: p.Confidence,
		})
	}
	return ClassifyResponse{
		Success:        true,
		ProduceType:    string(result.ProduceKind),
		PredictedClass: result.TopLabel,
		PredictedLabel: s.registry.DisplayLabel(result.ProduceKind, result.TopLabel),
		Confidence:     result.TopConfidence,
		AllPredictions: predictions,
	}
}
