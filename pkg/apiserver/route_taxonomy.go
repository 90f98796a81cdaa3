package apiserver

import (
	"net/http"
)

// handleTaxonomy lists every registered produce kind with its ordered
// ripeness stages.
func (s *ClassificationAPIServer) handleTaxonomy(w http.ResponseWriter, _ *http.Request) {
	kinds := s.registry.Kinds()
	produceTypes := make([]KindTaxonomy, 0, len(kinds))
	for _, kind := range kinds {
		stages, err := s.registry.Stages(kind)
		if err != nil {
			s.writeErrorResponse(w, http.StatusInternalServerError, err.Error())
			return
		}
		infos := make([]StageInfo, 0, len(stages))
		for _, stage := range stages {
			infos = append(infos, StageInfo{
				CanonicalLabel: stage.CanonicalLabel,
				StageIndex:     stage.StageIndex,
				DisplayLabel:   stage.DisplayLabel,
				Description:    stage.Description,
				ColorHint:      stage.ColorHint,
			})
		}
		produceTypes = append(produceTypes, KindTaxonomy{
			ProduceType: string(kind),
			StageCount:  len(stages),
			Stages:      infos,
		})
	}
	s.writeJSONResponse(w, http.StatusOK, TaxonomyResponse{ProduceTypes: produceTypes})
}
