package config

import (
	"fmt"
)

// Config is the top-level service configuration
type Config struct {
	Backend       BackendConfig       `yaml:"backend"`
	Taxonomy      TaxonomyConfig      `yaml:"taxonomy"`
	History       HistoryConfig       `yaml:"history"`
	Observability ObservabilityConfig `yaml:"observability"`
	API           APIConfig           `yaml:"api"`
	Metrics       MetricsConfig       `yaml:"metrics"`
}

// Backend type identifiers
const (
	BackendEmbedded = "embedded"
	BackendRemote   = "remote"
)

// BackendConfig selects and configures the inference backend
type BackendConfig struct {
	// Type is "embedded" or "remote"
	Type     string                `yaml:"type"`
	Embedded EmbeddedBackendConfig `yaml:"embedded"`
	Remote   RemoteBackendConfig   `yaml:"remote"`
}

// EmbeddedBackendConfig configures in-process inference
type EmbeddedBackendConfig struct {
	// ModelsDir holds one <kind>.json model artifact per produce kind
	ModelsDir string `yaml:"models_dir"`
	// RequireModel fails the load when no usable artifact exists instead
	// of degrading to synthetic predictions
	RequireModel bool `yaml:"require_model"`
}

// RemoteBackendConfig configures delegation to a classification service
type RemoteBackendConfig struct {
	URL string `yaml:"url"`
	// HealthCheck toggles the best-effort /health probe at load time.
	// Defaults to on when unset.
	HealthCheck *bool `yaml:"health_check,omitempty"`
}

// HealthCheckEnabled resolves the health check default
func (r *RemoteBackendConfig) HealthCheckEnabled() bool {
	if r.HealthCheck == nil {
		return true
	}
	return *r.HealthCheck
}

// TaxonomyConfig points at an optional taxonomy override file. Empty means
// the built-in taxonomy.
type TaxonomyConfig struct {
	Path string `yaml:"path"`
}

// History backend type identifiers
const (
	HistoryMemory = "memory"
	HistoryRedis  = "redis"
	HistorySQLite = "sqlite"
)

// HistoryConfig configures the scan history store
type HistoryConfig struct {
	Enabled     bool                `yaml:"enabled"`
	BackendType string              `yaml:"backend_type"`
	MaxRecords  int                 `yaml:"max_records"`
	TTLSeconds  int                 `yaml:"ttl_seconds"`
	Redis       HistoryRedisConfig  `yaml:"redis"`
	SQLite      HistorySQLiteConfig `yaml:"sqlite"`
}

// HistoryRedisConfig configures the Redis history backend. ConfigPath, when
// set, points at an external Redis config file that overrides the inline
// fields.
type HistoryRedisConfig struct {
	Address          string   `yaml:"address"`
	DB               int      `yaml:"db"`
	Password         string   `yaml:"password"`
	ConfigPath       string   `yaml:"config_path"`
	ClusterMode      bool     `yaml:"cluster_mode"`
	ClusterAddresses []string `yaml:"cluster_addresses"`
}

// HistorySQLiteConfig configures the SQLite history backend
type HistorySQLiteConfig struct {
	Path string `yaml:"path"`
}

// ObservabilityConfig groups tracing configuration
type ObservabilityConfig struct {
	Tracing TracingConfig `yaml:"tracing"`
}

// TracingConfig configures OpenTelemetry tracing
type TracingConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Exporter ExporterConfig `yaml:"exporter"`
	Sampling SamplingConfig `yaml:"sampling"`
}

// ExporterConfig selects the span exporter
type ExporterConfig struct {
	// Type is "stdout" or "otlp"
	Type     string `yaml:"type"`
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
}

// SamplingConfig selects the trace sampler
type SamplingConfig struct {
	// Type is "always_on", "always_off" or "probabilistic"
	Type string  `yaml:"type"`
	Rate float64 `yaml:"rate"`
}

// APIConfig configures the classification API server
type APIConfig struct {
	Port int `yaml:"port"`
}

// MetricsConfig configures the Prometheus endpoint
type MetricsConfig struct {
	Port int `yaml:"port"`
}

// applyDefaults fills unset fields with their defaults
func (c *Config) applyDefaults() {
	if c.Backend.Type == "" {
		c.Backend.Type = BackendEmbedded
	}
	if c.Backend.Embedded.ModelsDir == "" {
		c.Backend.Embedded.ModelsDir = "models"
	}
	if c.History.BackendType == "" {
		c.History.BackendType = HistoryMemory
	}
	if c.History.MaxRecords == 0 {
		c.History.MaxRecords = 500
	}
	if c.History.SQLite.Path == "" {
		c.History.SQLite.Path = "ripesense_history.db"
	}
	if c.Observability.Tracing.Exporter.Type == "" {
		c.Observability.Tracing.Exporter.Type = "stdout"
	}
	if c.Observability.Tracing.Sampling.Type == "" {
		c.Observability.Tracing.Sampling.Type = "always_on"
	}
	if c.API.Port == 0 {
		c.API.Port = 8080
	}
	if c.Metrics.Port == 0 {
		c.Metrics.Port = 9190
	}
}

// Validate checks structural validity after defaults are applied
func (c *Config) Validate() error {
	switch c.Backend.Type {
	case BackendEmbedded, BackendRemote:
	default:
		return fmt.Errorf("backend.type must be %q or %q, got %q", BackendEmbedded, BackendRemote, c.Backend.Type)
	}
	if c.Backend.Type == BackendRemote && c.Backend.Remote.URL == "" {
		return fmt.Errorf("backend.remote.url is required when backend.type is %q", BackendRemote)
	}

	switch c.History.BackendType {
	case HistoryMemory, HistoryRedis, HistorySQLite:
	default:
		return fmt.Errorf("history.backend_type must be %q, %q or %q, got %q",
			HistoryMemory, HistoryRedis, HistorySQLite, c.History.BackendType)
	}
	if c.History.Enabled && c.History.BackendType == HistoryRedis {
		r := c.History.Redis
		if r.Address == "" && r.ConfigPath == "" && len(r.ClusterAddresses) == 0 {
			return fmt.Errorf("history.redis requires address, cluster_addresses or config_path")
		}
		if r.ClusterMode && r.DB != 0 {
			return fmt.Errorf("history.redis cluster mode only supports db 0")
		}
	}
	if c.History.MaxRecords < 0 {
		return fmt.Errorf("history.max_records must not be negative")
	}
	if c.History.TTLSeconds < 0 {
		return fmt.Errorf("history.ttl_seconds must not be negative")
	}

	if t := c.Observability.Tracing; t.Enabled {
		switch t.Exporter.Type {
		case "stdout":
		case "otlp":
			if t.Exporter.Endpoint == "" {
				return fmt.Errorf("observability.tracing.exporter.endpoint is required for the otlp exporter")
			}
		default:
			return fmt.Errorf("observability.tracing.exporter.type must be \"stdout\" or \"otlp\", got %q", t.Exporter.Type)
		}
		switch t.Sampling.Type {
		case "always_on", "always_off":
		case "probabilistic":
			if t.Sampling.Rate < 0 || t.Sampling.Rate > 1 {
				return fmt.Errorf("observability.tracing.sampling.rate must be in [0,1], got %v", t.Sampling.Rate)
			}
		default:
			return fmt.Errorf("observability.tracing.sampling.type must be \"always_on\", \"always_off\" or \"probabilistic\", got %q", t.Sampling.Type)
		}
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		return fmt.Errorf("api.port must be in [1,65535], got %d", c.API.Port)
	}
	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be in [1,65535], got %d", c.Metrics.Port)
	}
	if c.API.Port == c.Metrics.Port {
		return fmt.Errorf("api.port and metrics.port must differ, both are %d", c.API.Port)
	}
	return nil
}
