package apiserver

import (
	"context"
	"net/http"
	"time"

	"github.com/ripesense/ripesense/pkg/classification"
)

// handleRoot serves the service banner.
func (s *ClassificationAPIServer) handleRoot(w http.ResponseWriter, _ *http.Request) {
	s.writeJSONResponse(w, http.StatusOK, RootResponse{
		Status:    "online",
		Service:   ServiceName,
		Version:   ServiceVersion,
		Endpoints: apiEndpoints,
	})
}

// handleHealth reports overall service health plus the per-kind session
// states. The service is "healthy" when every session is ready and
// "degraded" when any kind is still unavailable.
func (s *ClassificationAPIServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	statuses := s.classificationSvc.Status()

	kinds := make([]KindHealth, 0, len(statuses))
	types := make([]string, 0, len(statuses))
	healthy := true
	for _, status := range statuses {
		types = append(types, string(status.Kind))
		kinds = append(kinds, KindHealth{
			ProduceType: string(status.Kind),
			State:       string(status.State),
			Source:      status.Source,
			Error:       status.Error,
		})
		if status.State == classification.StateError || status.State == classification.StateUnloaded {
			healthy = false
		}
	}

	overall := "healthy"
	if !healthy {
		overall = "degraded"
	}

	s.writeJSONResponse(w, http.StatusOK, HealthResponse{
		Status:                overall,
		AvailableProduceTypes: types,
		Kinds:                 kinds,
		History:               s.historyHealth(r.Context()),
	})
}

// historyHealth summarizes the scan store for the health payload.
func (s *ClassificationAPIServer) historyHealth(ctx context.Context) string {
	if !s.store.IsEnabled() {
		return "disabled"
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.store.CheckConnection(ctx); err != nil {
		return "unreachable"
	}
	return "connected"
}
