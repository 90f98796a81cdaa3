package history

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"sigs.k8s.io/yaml"

	"github.com/ripesense/ripesense/pkg/observability/logging"
	"github.com/ripesense/ripesense/pkg/taxonomy"
)

// RedisStore implements the Store interface using Redis as the backend.
// It supports both standalone Redis and Redis Cluster deployments. Retention
// is handled by Redis key TTLs rather than a record cap.
type RedisStore struct {
	client    redis.UniversalClient // works with both standalone and cluster
	config    RedisStoreConfig
	keyPrefix string
	ttl       time.Duration
	enabled   bool
}

// ScanKeyPrefix for scan record keys.
// Combined with key_prefix (default "ripesense:"): ripesense:scan:scan_xxxxx
const ScanKeyPrefix = "scan:"

// NewRedisStore validates configuration, establishes the connection, and
// tests connectivity.
func NewRedisStore(config StoreConfig) (*RedisStore, error) {
	logging.Debugf("RedisStore: initializing with cluster_mode=%v, config_path=%s",
		config.Redis.ClusterMode, config.Redis.ConfigPath)

	ttl := DefaultTTL
	if config.TTLSeconds > 0 {
		ttl = time.Duration(config.TTLSeconds) * time.Second
	}

	finalCfg, err := loadRedisStoreConfig(config.Redis)
	if err != nil {
		return nil, fmt.Errorf("failed to load Redis config: %w", err)
	}

	if validateErr := validateRedisConfig(finalCfg); validateErr != nil {
		return nil, fmt.Errorf("invalid Redis config: %w", validateErr)
	}

	applyRedisConfigDefaults(&finalCfg)

	keyPrefix := finalCfg.KeyPrefix
	if !strings.HasSuffix(keyPrefix, ":") {
		keyPrefix += ":"
	}

	client, err := createRedisClient(finalCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis client: %w", err)
	}

	store := &RedisStore{
		client:    client,
		config:    finalCfg,
		keyPrefix: keyPrefix,
		ttl:       ttl,
		enabled:   true,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := store.CheckConnection(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logging.Infof("RedisStore: initialized successfully (cluster_mode=%v, key_prefix=%s, ttl=%s)",
		finalCfg.ClusterMode, keyPrefix, ttl)

	return store, nil
}

func loadRedisStoreConfig(cfg RedisStoreConfig) (RedisStoreConfig, error) {
	// If no external config, return inline config as-is
	if cfg.ConfigPath == "" {
		logging.Debugf("RedisStore: using inline configuration")
		return cfg, nil
	}

	logging.Debugf("RedisStore: loading config from file: %s", cfg.ConfigPath)

	data, err := os.ReadFile(cfg.ConfigPath)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file %s: %w", cfg.ConfigPath, err)
	}

	var fileCfg RedisStoreConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", cfg.ConfigPath, err)
	}

	logging.Debugf("RedisStore: external config loaded (address=%s, cluster_mode=%v)",
		fileCfg.Address, fileCfg.ClusterMode)

	// External file takes precedence
	return fileCfg, nil
}

func validateRedisConfig(cfg RedisStoreConfig) error {
	if cfg.ClusterMode {
		// Cluster requires ClusterAddresses
		if len(cfg.ClusterAddresses) == 0 {
			return fmt.Errorf("cluster_mode is true but cluster_addresses is empty")
		}
		// Cluster only supports DB 0
		if cfg.DB != 0 {
			return fmt.Errorf("redis cluster only supports db 0, got db: %d", cfg.DB)
		}
	} else if cfg.Address == "" {
		// Standalone requires Address
		return fmt.Errorf("address is required for standalone Redis")
	}

	// DB range validation (0-15 for standalone)
	if cfg.DB < 0 || cfg.DB > 15 {
		return fmt.Errorf("invalid DB number %d (must be 0-15)", cfg.DB)
	}

	if cfg.TLSEnabled {
		if cfg.TLSCertPath == "" || cfg.TLSKeyPath == "" {
			return fmt.Errorf("tls_cert_path and tls_key_path are required when TLS is enabled")
		}
		if _, err := os.Stat(cfg.TLSCertPath); os.IsNotExist(err) {
			return fmt.Errorf("TLS cert file not found: %s", cfg.TLSCertPath)
		}
		if _, err := os.Stat(cfg.TLSKeyPath); os.IsNotExist(err) {
			return fmt.Errorf("TLS key file not found: %s", cfg.TLSKeyPath)
		}
	}

	return nil
}

func applyRedisConfigDefaults(cfg *RedisStoreConfig) {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "ripesense:" // Base prefix only, types are added by constants
	}
	if cfg.PoolSize == 0 {
		cfg.PoolSize = 10
	}
	if cfg.MinIdleConns == 0 {
		cfg.MinIdleConns = 2
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = 5
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 3
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 3
	}
}

// createRedisClient creates a Redis client (standalone or cluster) based on
// configuration.
func createRedisClient(cfg RedisStoreConfig) (redis.UniversalClient, error) {
	var tlsConfig *tls.Config
	if cfg.TLSEnabled {
		cert, err := tls.LoadX509KeyPair(cfg.TLSCertPath, cfg.TLSKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load TLS certificate: %w", err)
		}

		tlsConfig = &tls.Config{
			Certificates: []tls.Certificate{cert},
		}

		if cfg.TLSCAPath != "" {
			caCert, err := os.ReadFile(cfg.TLSCAPath)
			if err != nil {
				return nil, fmt.Errorf("failed to read CA certificate: %w", err)
			}
			caCertPool := x509.NewCertPool()
			if !caCertPool.AppendCertsFromPEM(caCert) {
				return nil, fmt.Errorf("failed to parse CA certificate")
			}
			tlsConfig.RootCAs = caCertPool
		}

		logging.Debugf("RedisStore: TLS enabled")
	}

	if cfg.ClusterMode {
		logging.Infof("RedisStore: creating cluster client (nodes=%d, pool_size=%d)",
			len(cfg.ClusterAddresses), cfg.PoolSize)

		return redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:        cfg.ClusterAddresses,
			Password:     cfg.Password,
			PoolSize:     cfg.PoolSize,
			MinIdleConns: cfg.MinIdleConns,
			MaxRetries:   cfg.MaxRetries,
			DialTimeout:  time.Duration(cfg.DialTimeout) * time.Second,
			ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
			WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
			TLSConfig:    tlsConfig,
		}), nil
	}

	logging.Infof("RedisStore: creating standalone client (address=%s, db=%d, pool_size=%d)",
		cfg.Address, cfg.DB, cfg.PoolSize)

	return redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  time.Duration(cfg.DialTimeout) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		TLSConfig:    tlsConfig,
	}), nil
}

// buildKey constructs a Redis key with the proper prefix.
func (s *RedisStore) buildKey(suffix string) string {
	return s.keyPrefix + suffix
}

func (s *RedisStore) IsEnabled() bool {
	return s.enabled
}

func (s *RedisStore) CheckConnection(ctx context.Context) error {
	if !s.enabled {
		return ErrStoreDisabled
	}

	// Use PING command to test connection
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: redis ping failed: %w", ErrConnectionFailed, err)
	}

	logging.Debugf("RedisStore: connection check passed")
	return nil
}

func (s *RedisStore) Close() error {
	if s.client != nil {
		logging.Infof("RedisStore: closing connection")
		return s.client.Close()
	}
	return nil
}

func (s *RedisStore) Save(ctx context.Context, record *ScanRecord) error {
	if !s.enabled {
		return ErrStoreDisabled
	}
	if record == nil || record.ID == "" {
		return ErrInvalidInput
	}

	stored := copyRecord(record)
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	if stored.ExpiresAt.IsZero() {
		stored.ExpiresAt = stored.CreatedAt.Add(s.ttl)
	}

	key := s.buildKey(ScanKeyPrefix + stored.ID)

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to check record existence: %w", err)
	}
	if exists > 0 {
		return ErrAlreadyExists
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to serialize scan record: %w", err)
	}

	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store scan record in Redis: %w", err)
	}

	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*ScanRecord, error) {
	if !s.enabled {
		return nil, ErrStoreDisabled
	}
	if id == "" {
		return nil, ErrInvalidID
	}

	key := s.buildKey(ScanKeyPrefix + id)

	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get scan record from Redis: %w", err)
	}

	var record ScanRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to deserialize scan record: %w", err)
	}

	return &record, nil
}

func (s *RedisStore) List(ctx context.Context, kind taxonomy.ProduceKind, opts ListOptions) ([]*ScanRecord, error) {
	if !s.enabled {
		return nil, ErrStoreDisabled
	}

	records, err := s.scanRecords(ctx, kind)
	if err != nil {
		return nil, err
	}
	return applyListOptions(records, opts), nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if !s.enabled {
		return ErrStoreDisabled
	}
	if id == "" {
		return ErrInvalidID
	}

	key := s.buildKey(ScanKeyPrefix + id)

	deleted, err := s.client.Del(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("failed to delete scan record from Redis: %w", err)
	}
	if deleted == 0 {
		return ErrNotFound
	}

	return nil
}

func (s *RedisStore) Purge(ctx context.Context, kind taxonomy.ProduceKind) (int, error) {
	if !s.enabled {
		return 0, ErrStoreDisabled
	}

	records, err := s.scanRecords(ctx, kind)
	if err != nil {
		return 0, err
	}

	purged := 0
	for _, record := range records {
		key := s.buildKey(ScanKeyPrefix + record.ID)
		deleted, err := s.client.Del(ctx, key).Result()
		if err != nil {
			return purged, fmt.Errorf("failed to purge scan record %s: %w", record.ID, err)
		}
		purged += int(deleted)
	}
	return purged, nil
}

func (s *RedisStore) Count(ctx context.Context, kind taxonomy.ProduceKind) (int, error) {
	if !s.enabled {
		return 0, ErrStoreDisabled
	}

	records, err := s.scanRecords(ctx, kind)
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// scanRecords walks all record keys with SCAN and filters by kind. Expired
// keys drop out of the keyspace on their own, so no liveness check is needed.
func (s *RedisStore) scanRecords(ctx context.Context, kind taxonomy.ProduceKind) ([]*ScanRecord, error) {
	pattern := s.buildKey(ScanKeyPrefix + "*")
	var records []*ScanRecord

	iter := s.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()

		data, err := s.client.Get(ctx, key).Bytes()
		if err != nil {
			continue // Skip errors (key might have expired)
		}

		var record ScanRecord
		if err := json.Unmarshal(data, &record); err != nil {
			continue
		}

		if kind == "" || record.ProduceKind == kind {
			records = append(records, &record)
		}
	}

	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan records: %w", err)
	}
	return records, nil
}
