package apiserver

// ServiceName identifies the API in banners and health payloads.
const ServiceName = "RipeSense API"

// ServiceVersion is the wire-visible API version.
const ServiceVersion = "1.0.0"

// HeaderRequestID carries the per-request correlation ID.
const HeaderRequestID = "X-Request-ID"

// ClassifyRequest is the body of POST /classify. Image carries base64 data,
// with or without a data URL prefix.
type ClassifyRequest struct {
	Image       string `json:"image"`
	ProduceType string `json:"produce_type"`
}

// PredictionItem is one ranked stage prediction in a classify response.
type PredictionItem struct {
	ClassName  string  `json:"class_name"`
	ClassLabel string  `json:"class_label"`
	Confidence float64 `json:"confidence"`
}

// ClassifyResponse is the success body of POST /classify.
type ClassifyResponse struct {
	Success        bool             `json:"success"`
	ProduceType    string           `json:"produce_type"`
	PredictedClass string           `json:"predicted_class"`
	PredictedLabel string           `json:"predicted_label"`
	Confidence     float64          `json:"confidence"`
	AllPredictions []PredictionItem `json:"all_predictions"`
}

// ErrorResponse is the failure body used across all endpoints.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// LoadRequest is the body of POST /load.
type LoadRequest struct {
	ProduceType string `json:"produce_type"`
}

// LoadResponse is the success body of POST /load.
type LoadResponse struct {
	Success     bool   `json:"success"`
	ProduceType string `json:"produce_type"`
	State       string `json:"state"`
	Source      string `json:"source"`
}

// KindHealth reports one produce kind's serving state in GET /health.
type KindHealth struct {
	ProduceType string `json:"produce_type"`
	State       string `json:"state"`
	Source      string `json:"source,omitempty"`
	Error       string `json:"error,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status                string       `json:"status"`
	AvailableProduceTypes []string     `json:"available_produce_types"`
	Kinds                 []KindHealth `json:"kinds"`
	History               string       `json:"history"`
}

// EndpointInfo describes one route in the service banner.
type EndpointInfo struct {
	Path        string `json:"path"`
	Method      string `json:"method"`
	Description string `json:"description"`
}

// RootResponse is the body of GET /.
type RootResponse struct {
	Status    string         `json:"status"`
	Service   string         `json:"service"`
	Version   string         `json:"version"`
	Endpoints []EndpointInfo `json:"endpoints"`
}

// StageInfo is one ripeness stage in the taxonomy listing.
type StageInfo struct {
	CanonicalLabel string `json:"canonical_label"`
	StageIndex     int    `json:"stage_index"`
	DisplayLabel   string `json:"display_label"`
	Description    string `json:"description,omitempty"`
	ColorHint      string `json:"color_hint,omitempty"`
}

// KindTaxonomy is one produce kind's stage list in the taxonomy listing.
type KindTaxonomy struct {
	ProduceType string      `json:"produce_type"`
	StageCount  int         `json:"stage_count"`
	Stages      []StageInfo `json:"stages"`
}

// TaxonomyResponse is the body of GET /info/taxonomy.
type TaxonomyResponse struct {
	ProduceTypes []KindTaxonomy `json:"produce_types"`
}

// HistoryListResponse is the body of GET /api/v1/history.
type HistoryListResponse struct {
	Records []HistoryRecord `json:"records"`
	Count   int             `json:"count"`
}

// HistoryRecord is one persisted scan in history responses.
type HistoryRecord struct {
	ID            string           `json:"id"`
	ProduceType   string           `json:"produce_type"`
	TopLabel      string           `json:"top_label"`
	TopConfidence float64          `json:"top_confidence"`
	Predictions   []PredictionItem `json:"predictions"`
	Source        string           `json:"source"`
	CreatedAt     string           `json:"created_at"`
}

// apiEndpoints is the route table published by the service banner.
var apiEndpoints = []EndpointInfo{
	{Path: "/", Method: "GET", Description: "Service banner"},
	{Path: "/health", Method: "GET", Description: "Service and per-kind session health"},
	{Path: "/classify", Method: "POST", Description: "Classify a produce image"},
	{Path: "/load", Method: "POST", Description: "Reload the backend for a produce kind"},
	{Path: "/info/taxonomy", Method: "GET", Description: "Ripeness taxonomy per produce kind"},
	{Path: "/api/v1/history", Method: "GET", Description: "List recorded scans"},
	{Path: "/api/v1/history/{id}", Method: "GET", Description: "Fetch one recorded scan"},
	{Path: "/api/v1/history/{id}", Method: "DELETE", Description: "Delete one recorded scan"},
	{Path: "/api/v1/history", Method: "DELETE", Description: "Purge recorded scans"},
}
