package history

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ripesense/ripesense/pkg/observability/logging"
	"github.com/ripesense/ripesense/pkg/taxonomy"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteStore implements the Store interface on a local SQLite database.
// Records survive process restarts, which makes this the default durable
// choice for single-node deployments that don't run Redis.
type SQLiteStore struct {
	db         *sql.DB
	path       string
	ttl        time.Duration
	maxRecords int
	enabled    bool
}

// NewSQLiteStore opens (or creates) the database at the configured path and
// ensures the schema exists.
func NewSQLiteStore(config StoreConfig) (*SQLiteStore, error) {
	path := config.SQLite.Path
	if path == "" {
		path = DefaultSQLitePath
	}
	ttl := DefaultTTL
	if config.TTLSeconds > 0 {
		ttl = time.Duration(config.TTLSeconds) * time.Second
	}
	maxRecords := config.MaxRecords
	if maxRecords <= 0 {
		maxRecords = DefaultMaxRecords
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize SQLite schema: %w", err)
	}

	logging.Infof("SQLiteStore: initialized (path=%s, ttl=%s, max_records=%d)", path, ttl, maxRecords)

	return &SQLiteStore{
		db:         db,
		path:       path,
		ttl:        ttl,
		maxRecords: maxRecords,
		enabled:    config.Enabled,
	}, nil
}

func (s *SQLiteStore) IsEnabled() bool { return s.enabled }

func (s *SQLiteStore) CheckConnection(ctx context.Context) error {
	if !s.enabled {
		return ErrStoreDisabled
	}
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		logging.Infof("SQLiteStore: closing database (path=%s)", s.path)
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) Save(ctx context.Context, record *ScanRecord) error {
	if !s.enabled {
		return ErrStoreDisabled
	}
	if record == nil || record.ID == "" {
		return ErrInvalidInput
	}

	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	expiresAt := record.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = createdAt.Add(s.ttl)
	}

	predictions, err := json.Marshal(record.Predictions)
	if err != nil {
		return fmt.Errorf("failed to serialize predictions: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO scan_records
		 (id, produce_kind, top_label, top_confidence, predictions, source, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, string(record.ProduceKind), record.TopLabel, record.TopConfidence,
		string(predictions), record.Source, createdAt.Unix(), expiresAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to insert scan record: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read insert result: %w", err)
	}
	if inserted == 0 {
		return ErrAlreadyExists
	}

	if err := s.trim(ctx, record.ProduceKind); err != nil {
		logging.Warnf("SQLiteStore: failed to trim history for %s: %v", record.ProduceKind, err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*ScanRecord, error) {
	if !s.enabled {
		return nil, ErrStoreDisabled
	}
	if id == "" {
		return nil, ErrInvalidID
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, produce_kind, top_label, top_confidence, predictions, source, created_at, expires_at
		 FROM scan_records WHERE id = ?`, id)
	record, err := scanRecordRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !record.ExpiresAt.IsZero() && time.Now().After(record.ExpiresAt) {
		return nil, ErrNotFound
	}
	return record, nil
}

func (s *SQLiteStore) List(ctx context.Context, kind taxonomy.ProduceKind, opts ListOptions) ([]*ScanRecord, error) {
	if !s.enabled {
		return nil, ErrStoreDisabled
	}
	order := "DESC"
	if opts.Order == "asc" {
		order = "ASC"
	}
	query := fmt.Sprintf(
		`SELECT id, produce_kind, top_label, top_confidence, predictions, source, created_at, expires_at
		 FROM scan_records
		 WHERE (? = '' OR produce_kind = ?) AND (expires_at = 0 OR expires_at > ?)
		 ORDER BY created_at %s, id %s
		 LIMIT ?`, order, order)
	rows, err := s.db.QueryContext(ctx, query,
		string(kind), string(kind), time.Now().Unix(), normalizeLimit(opts.Limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query scan records: %w", err)
	}
	defer rows.Close()

	var records []*ScanRecord
	for rows.Next() {
		record, err := scanRecordRow(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate scan records: %w", err)
	}
	return records, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if !s.enabled {
		return ErrStoreDisabled
	}
	if id == "" {
		return ErrInvalidID
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM scan_records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete scan record: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if deleted == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Purge(ctx context.Context, kind taxonomy.ProduceKind) (int, error) {
	if !s.enabled {
		return 0, ErrStoreDisabled
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM scan_records WHERE (? = '' OR produce_kind = ?)`,
		string(kind), string(kind))
	if err != nil {
		return 0, fmt.Errorf("failed to purge scan records: %w", err)
	}
	purged, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read purge result: %w", err)
	}
	return int(purged), nil
}

func (s *SQLiteStore) Count(ctx context.Context, kind taxonomy.ProduceKind) (int, error) {
	if !s.enabled {
		return 0, ErrStoreDisabled
	}
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM scan_records
		 WHERE (? = '' OR produce_kind = ?) AND (expires_at = 0 OR expires_at > ?)`,
		string(kind), string(kind), time.Now().Unix()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count scan records: %w", err)
	}
	return count, nil
}

// trim drops the oldest rows for a kind once the per-kind cap is exceeded.
func (s *SQLiteStore) trim(ctx context.Context, kind taxonomy.ProduceKind) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM scan_records
		 WHERE produce_kind = ?
		   AND id NOT IN (
			SELECT id FROM scan_records
			WHERE produce_kind = ?
			ORDER BY created_at DESC, id DESC
			LIMIT ?)`,
		string(kind), string(kind), s.maxRecords)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecordRow(row rowScanner) (*ScanRecord, error) {
	var (
		record      ScanRecord
		kind        string
		predictions string
		createdAt   int64
		expiresAt   int64
	)
	if err := row.Scan(&record.ID, &kind, &record.TopLabel, &record.TopConfidence,
		&predictions, &record.Source, &createdAt, &expiresAt); err != nil {
		return nil, err
	}
	record.ProduceKind = taxonomy.ProduceKind(kind)
	if predictions != "" {
		if err := json.Unmarshal([]byte(predictions), &record.Predictions); err != nil {
			return nil, fmt.Errorf("failed to deserialize predictions: %w", err)
		}
	}
	record.CreatedAt = time.Unix(createdAt, 0)
	if expiresAt > 0 {
		record.ExpiresAt = time.Unix(expiresAt, 0)
	}
	return &record, nil
}
