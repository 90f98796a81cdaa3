package apiserver

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ripesense/ripesense/pkg/history"
	"github.com/ripesense/ripesense/pkg/taxonomy"
)

// HistoryPurgeResponse is the body of DELETE /api/v1/history.
type HistoryPurgeResponse struct {
	Deleted int `json:"deleted"`
}

// requireHistory rejects history requests when scan persistence is off.
func (s *ClassificationAPIServer) requireHistory(w http.ResponseWriter) bool {
	if !s.store.IsEnabled() {
		s.writeErrorResponse(w, http.StatusNotImplemented, "scan history is disabled")
		return false
	}
	return true
}

// handleHistoryList lists recorded scans, newest first. An optional
// produce_type narrows the listing to one kind.
func (s *ClassificationAPIServer) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	if !s.requireHistory(w) {
		return
	}

	kind, err := s.historyKind(r.URL.Query().Get("produce_type"))
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	opts := history.ListOptions{Order: r.URL.Query().Get("order")}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			s.writeErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("invalid limit: %q", raw))
			return
		}
		opts.Limit = limit
	}

	records, err := s.store.List(r.Context(), kind, opts)
	if err != nil {
		s.writeHistoryError(w, err)
		return
	}

	out := make([]HistoryRecord, 0, len(records))
	for _, record := range records {
		out = append(out, s.historyRecordResponse(record))
	}
	s.writeJSONResponse(w, http.StatusOK, HistoryListResponse{Records: out, Count: len(out)})
}

// handleHistoryGet fetches one recorded scan by ID.
func (s *ClassificationAPIServer) handleHistoryGet(w http.ResponseWriter, r *http.Request) {
	if !s.requireHistory(w) {
		return
	}

	record, err := s.store.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeHistoryError(w, err)
		return
	}
	s.writeJSONResponse(w, http.StatusOK, s.historyRecordResponse(record))
}

// handleHistoryDelete removes one recorded scan by ID.
func (s *ClassificationAPIServer) handleHistoryDelete(w http.ResponseWriter, r *http.Request) {
	if !s.requireHistory(w) {
		return
	}

	if err := s.store.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeHistoryError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleHistoryPurge removes every recorded scan, optionally narrowed to
// one produce kind.
func (s *ClassificationAPIServer) handleHistoryPurge(w http.ResponseWriter, r *http.Request) {
	if !s.requireHistory(w) {
		return
	}

	kind, err := s.historyKind(r.URL.Query().Get("produce_type"))
	if err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	deleted, err := s.store.Purge(r.Context(), kind)
	if err != nil {
		s.writeHistoryError(w, err)
		return
	}
	s.writeJSONResponse(w, http.StatusOK, HistoryPurgeResponse{Deleted: deleted})
}

// historyKind validates an optional produce_type filter. Empty means all
// kinds.
func (s *ClassificationAPIServer) historyKind(produceType string) (taxonomy.ProduceKind, error) {
	if produceType == "" {
		return "", nil
	}
	kind := taxonomy.ProduceKind(produceType)
	if !s.registry.HasKind(kind) {
		return "", fmt.Errorf("unknown produce type: %q", produceType)
	}
	return kind, nil
}

// writeHistoryError maps store errors to HTTP statuses.
func (s *ClassificationAPIServer) writeHistoryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, history.ErrNotFound):
		s.writeErrorResponse(w, http.StatusNotFound, "scan record not found")
	case errors.Is(err, history.ErrInvalidID), errors.Is(err, history.ErrInvalidInput):
		s.writeErrorResponse(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, history.ErrStoreDisabled):
		s.writeErrorResponse(w, http.StatusNotImplemented, "scan history is disabled")
	default:
		s.writeErrorResponse(w, http.StatusInternalServerError, fmt.Sprintf("history operation failed: %v", err))
	}
}

// historyRecordResponse renders a stored scan in the wire shape.
func (s *ClassificationAPIServer) historyRecordResponse(record *history.ScanRecord) HistoryRecord {
	predictions := make([]PredictionItem, 0, len(record.Predictions))
	for _, p := range record.Predictions {
		predictions = append(predictions, PredictionItem{
			ClassName:  p.Label,
			ClassLabel: s.registry.DisplayLabel(record.ProduceKind, p.Label),
			Confidence: p.Confidence,
		})
	}
	return HistoryRecord{
		ID:            record.ID,
		ProduceType:   string(record.ProduceKind),
		TopLabel:      record.TopLabel,
		TopConfidence: record.TopConfidence,
		Predictions:   predictions,
		Source:        record.Source,
		CreatedAt:     record.CreatedAt.UTC().Format(time.RFC3339),
	}
}
