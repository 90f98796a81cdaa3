// Package history provides storage interfaces and implementations for
// classification scan records. It supports pluggable backends including
// memory, SQLite, and Redis.
package history

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ripesense/ripesense/pkg/classification"
	"github.com/ripesense/ripesense/pkg/taxonomy"
)

// ScanRecord is a persisted classification outcome.
type ScanRecord struct {
	// ID uniquely identifies the record, e.g. "scan_9f3c...".
	ID string `json:"id"`

	// ProduceKind is the produce kind that was classified.
	ProduceKind taxonomy.ProduceKind `json:"produce_kind"`

	// TopLabel is the winning canonical stage label.
	TopLabel string `json:"top_label"`

	// TopConfidence is the winning score.
	TopConfidence float64 `json:"top_confidence"`

	// Predictions holds the full per-stage score list, best first.
	Predictions []classification.PredictionScore `json:"predictions"`

	// Source names the backend that produced the result ("embedded",
	// "synthetic" or "remote").
	Source string `json:"source"`

	// CreatedAt is when the scan was recorded.
	CreatedAt time.Time `json:"created_at"`

	// ExpiresAt is when the record stops being returned by reads.
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Store defines the interface for persisting scan records.
// Implementations must be thread-safe.
type Store interface {
	// Save persists a new scan record.
	// Returns ErrAlreadyExists if the record ID is already present.
	Save(ctx context.Context, record *ScanRecord) error

	// Get retrieves a scan record by ID.
	// Returns ErrNotFound if the record doesn't exist or has expired.
	Get(ctx context.Context, id string) (*ScanRecord, error)

	// List returns records for a produce kind, newest first by default.
	// An empty kind returns records across all kinds.
	List(ctx context.Context, kind taxonomy.ProduceKind, opts ListOptions) ([]*ScanRecord, error)

	// Delete removes a scan record by ID.
	// Returns ErrNotFound if the record doesn't exist.
	Delete(ctx context.Context, id string) error

	// Purge removes every record for a produce kind and reports how many
	// were removed. An empty kind purges all kinds.
	Purge(ctx context.Context, kind taxonomy.ProduceKind) (int, error)

	// Count reports the number of live records for a produce kind.
	// An empty kind counts records across all kinds.
	Count(ctx context.Context, kind taxonomy.ProduceKind) (int, error)

	// Close releases resources held by the store.
	Close() error

	// IsEnabled returns whether the store is enabled.
	IsEnabled() bool

	// CheckConnection verifies the store connection is healthy.
	CheckConnection(ctx context.Context) error
}

// ListOptions contains pagination options for list operations.
type ListOptions struct {
	// Limit is the maximum number of records to return.
	Limit int

	// Order is the sort order by creation time: "asc" or "desc"
	// (default: "desc").
	Order string
}

// StoreConfig contains configuration for creating a store.
type StoreConfig struct {
	// BackendType specifies which store implementation to use.
	BackendType StoreBackendType `yaml:"backend_type"`

	// Enabled controls whether scan persistence is active.
	Enabled bool `yaml:"enabled"`

	// TTLSeconds is the retention period for stored records.
	// Zero applies DefaultTTL.
	TTLSeconds int `yaml:"ttl_seconds"`

	// MaxRecords bounds the number of records kept per produce kind.
	// Zero applies DefaultMaxRecords. The Redis backend relies on TTL
	// expiry instead of a record cap.
	MaxRecords int `yaml:"max_records"`

	// SQLite backend configuration
	SQLite SQLiteStoreConfig `yaml:"sqlite,omitempty"`

	// Redis backend configuration
	Redis RedisStoreConfig `yaml:"redis,omitempty"`
}

// StoreBackendType defines available store backends.
type StoreBackendType string

const (
	// MemoryStoreType is the in-memory store backend.
	MemoryStoreType StoreBackendType = "memory"

	// SQLiteStoreType is the SQLite store backend.
	SQLiteStoreType StoreBackendType = "sqlite"

	// RedisStoreType is the Redis store backend.
	RedisStoreType StoreBackendType = "redis"
)

// SQLiteStoreConfig contains configuration for the SQLite store.
type SQLiteStoreConfig struct {
	// Path is the SQLite database file location.
	Path string `yaml:"path" json:"path"`
}

// RedisStoreConfig contains configuration for the Redis store.
// sigs.k8s.io/yaml resolves fields through the json tags, so external
// config files use the same key names as the inline YAML.
type RedisStoreConfig struct {
	// ConfigPath is the path to an external Redis configuration file.
	// When set, the file contents take precedence over inline settings.
	ConfigPath string `yaml:"config_path" json:"config_path"`

	// Address is the Redis server address for standalone mode.
	Address string `yaml:"address" json:"address"`

	// DB is the Redis database number (standalone only).
	DB int `yaml:"db" json:"db"`

	// Password is the Redis password.
	Password string `yaml:"password" json:"password"`

	// KeyPrefix is prepended to every key written by the store.
	KeyPrefix string `yaml:"key_prefix" json:"key_prefix"`

	// ClusterMode enables Redis Cluster support.
	ClusterMode bool `yaml:"cluster_mode" json:"cluster_mode"`

	// ClusterAddresses lists the cluster node addresses.
	ClusterAddresses []string `yaml:"cluster_addresses" json:"cluster_addresses"`

	// Connection pool and timeout settings (seconds).
	PoolSize     int `yaml:"pool_size" json:"pool_size"`
	MinIdleConns int `yaml:"min_idle_conns" json:"min_idle_conns"`
	MaxRetries   int `yaml:"max_retries" json:"max_retries"`
	DialTimeout  int `yaml:"dial_timeout" json:"dial_timeout"`
	ReadTimeout  int `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout int `yaml:"write_timeout" json:"write_timeout"`

	// TLS settings.
	TLSEnabled  bool   `yaml:"tls_enabled" json:"tls_enabled"`
	TLSCertPath string `yaml:"tls_cert_path" json:"tls_cert_path"`
	TLSKeyPath  string `yaml:"tls_key_path" json:"tls_key_path"`
	TLSCAPath   string `yaml:"tls_ca_path" json:"tls_ca_path"`
}

// DefaultTTL is the default retention period for scan records (7 days).
const DefaultTTL = 7 * 24 * time.Hour

// DefaultMaxRecords is the default per-kind record cap for bounded backends.
const DefaultMaxRecords = 500

// DefaultSQLitePath is where the SQLite backend stores its database when no
// path is configured.
const DefaultSQLitePath = "ripesense_history.db"

// DefaultListLimit is the default limit for list operations.
const DefaultListLimit = 20

// MaxListLimit is the maximum limit for list operations.
const MaxListLimit = 100

// NewScanID returns a unique identifier for a scan record.
func NewScanID() string {
	return "scan_" + uuid.NewString()
}
