// Package apiserver exposes the classification pipeline over HTTP: image
// classification, backend reloads, taxonomy discovery, scan history and
// health reporting.
package apiserver

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ripesense/ripesense/pkg/config"
	"github.com/ripesense/ripesense/pkg/history"
	"github.com/ripesense/ripesense/pkg/observability/logging"
	"github.com/ripesense/ripesense/pkg/services"
	"github.com/ripesense/ripesense/pkg/taxonomy"
	tlsutil "github.com/ripesense/ripesense/pkg/utils/tls"
)

// ClassificationAPIServer holds the server state and dependencies
type ClassificationAPIServer struct {
	classificationSvc *services.ClassificationService
	registry          *taxonomy.Registry
	store             history.Store
	cfg               *config.Config
	httpServer        *http.Server
	secure            bool
}

// New assembles the API server from configuration: taxonomy registry,
// history store and one classification session per produce kind. Sessions
// are created here and loaded in Start.
func New(cfg *config.Config, port int, secure bool) (*ClassificationAPIServer, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if port == 0 {
		port = cfg.API.Port
	}

	registry, err := taxonomy.Load(cfg.Taxonomy.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load taxonomy: %w", err)
	}

	store, err := history.NewStore(storeConfigFrom(cfg))
	if err != nil {
		// A broken history backend degrades persistence, never serving.
		logging.Errorf("Failed to create history store (%v), scan history disabled", err)
		store, err = history.NewStore(history.StoreConfig{Enabled: false})
		if err != nil {
			return nil, err
		}
	}

	svc, err := services.NewClassificationService(cfg, registry, store)
	if err != nil {
		return nil, err
	}

	s := &ClassificationAPIServer{
		classificationSvc: svc,
		registry:          registry,
		store:             store,
		cfg:               cfg,
		secure:            secure,
	}
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// Handler returns the full route handler including middleware, for serving
// and for tests.
func (s *ClassificationAPIServer) Handler() http.Handler {
	return s.withMiddleware(s.setupRoutes())
}

// Start eagerly loads every classification session and serves until
// Shutdown. Kinds whose load failed answer 503 until a later reload
// succeeds.
func (s *ClassificationAPIServer) Start(ctx context.Context) error {
	s.classificationSvc.LoadAll(ctx)

	if s.secure {
		cert, err := tlsutil.CreateSelfSignedTLSCertificate()
		if err != nil {
			return fmt.Errorf("failed to create TLS certificate: %w", err)
		}
		s.httpServer.TLSConfig = &tls.Config{Certificates: []tls.Certificate{cert}}
		logging.Infof("RipeSense API server listening on %s (TLS)", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServeTLS("", ""); err != http.ErrServerClosed {
			return err
		}
		return nil
	}

	logging.Infof("RipeSense API server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, unloads the backends and closes the
// history store.
func (s *ClassificationAPIServer) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if closeErr := s.classificationSvc.Close(); err == nil {
		err = closeErr
	}
	return err
}

// setupRoutes configures all API routes
func (s *ClassificationAPIServer) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Service banner and health
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)

	// Classification endpoints
	mux.HandleFunc("POST /classify", s.handleClassify)
	mux.HandleFunc("POST /load", s.handleLoad)

	// Information endpoints
	mux.HandleFunc("GET /info/taxonomy", s.handleTaxonomy)

	// Scan history endpoints
	mux.HandleFunc("GET /api/v1/history", s.handleHistoryList)
	mux.HandleFunc("DELETE /api/v1/history", s.handleHistoryPurge)
	mux.HandleFunc("GET /api/v1/history/{id}", s.handleHistoryGet)
	mux.HandleFunc("DELETE /api/v1/history/{id}", s.handleHistoryDelete)

	return mux
}

// storeConfigFrom maps the history section of the service configuration to
// a store configuration.
func storeConfigFrom(cfg *config.Config) history.StoreConfig {
	return history.StoreConfig{
		BackendType: history.StoreBackendType(cfg.History.BackendType),
		Enabled:     cfg.History.Enabled,
		TTLSeconds:  cfg.History.TTLSeconds,
		MaxRecords:  cfg.History.MaxRecords,
		SQLite: history.SQLiteStoreConfig{
			Path: cfg.History.SQLite.Path,
		},
		Redis: history.RedisStoreConfig{
			ConfigPath:       cfg.History.Redis.ConfigPath,
			Address:          cfg.History.Redis.Address,
			DB:               cfg.History.Redis.DB,
			Password:         cfg.History.Redis.Password,
			ClusterMode:      cfg.History.Redis.ClusterMode,
			ClusterAddresses: cfg.History.Redis.ClusterAddresses,
		},
	}
}

// Helper methods for JSON handling
func (s *ClassificationAPIServer) parseJSONRequest(r *http.Request, v interface{}) error {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return fmt.Errorf("failed to read request body: %w", err)
	}
	defer r.Body.Close()

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}

	return nil
}

func (s *ClassificationAPIServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.Errorf("Failed to encode JSON response: %v", err)
	}
}

// writeErrorResponse renders the {"detail": ...} failure body shared by all
// endpoints.
func (s *ClassificationAPIServer) writeErrorResponse(w http.ResponseWriter, statusCode int, detail string) {
	s.writeJSONResponse(w, statusCode, ErrorResponse{Detail: detail})
}
