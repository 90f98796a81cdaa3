package history

import (
	"context"
	"sync"
	"time"

	"github.com/ripesense/ripesense/pkg/taxonomy"
)

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	mu         sync.RWMutex
	records    map[string]*ScanRecord
	enabled    bool
	ttl        time.Duration
	maxRecords int
	done       chan struct{}
	closeOnce  sync.Once
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore(config StoreConfig) (*MemoryStore, error) {
	ttl := DefaultTTL
	if config.TTLSeconds > 0 {
		ttl = time.Duration(config.TTLSeconds) * time.Second
	}
	maxRecords := config.MaxRecords
	if maxRecords <= 0 {
		maxRecords = DefaultMaxRecords
	}
	store := &MemoryStore{
		records:    make(map[string]*ScanRecord),
		enabled:    config.Enabled,
		ttl:        ttl,
		maxRecords: maxRecords,
		done:       make(chan struct{}),
	}
	go store.cleanupExpired()
	return store, nil
}

func (m *MemoryStore) IsEnabled() bool { return m.enabled }

func (m *MemoryStore) CheckConnection(ctx context.Context) error {
	if !m.enabled {
		return ErrStoreDisabled
	}
	return nil
}

func (m *MemoryStore) Close() error {
	m.closeOnce.Do(func() { close(m.done) })
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = nil
	return nil
}

func (m *MemoryStore) Save(ctx context.Context, record *ScanRecord) error {
	if !m.enabled {
		return ErrStoreDisabled
	}
	if record == nil || record.ID == "" {
		return ErrInvalidInput
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.records[record.ID]; exists {
		return ErrAlreadyExists
	}
	if m.countKindLocked(record.ProduceKind) >= m.maxRecords {
		m.evictOldestLocked(record.ProduceKind)
	}
	stored := copyRecord(record)
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	if stored.ExpiresAt.IsZero() {
		stored.ExpiresAt = stored.CreatedAt.Add(m.ttl)
	}
	m.records[stored.ID] = stored
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*ScanRecord, error) {
	if !m.enabled {
		return nil, ErrStoreDisabled
	}
	if id == "" {
		return nil, ErrInvalidID
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	record, exists := m.records[id]
	if !exists {
		return nil, ErrNotFound
	}
	if !record.ExpiresAt.IsZero() && time.Now().After(record.ExpiresAt) {
		return nil, ErrNotFound
	}
	return copyRecord(record), nil
}

func (m *MemoryStore) List(ctx context.Context, kind taxonomy.ProduceKind, opts ListOptions) ([]*ScanRecord, error) {
	if !m.enabled {
		return nil, ErrStoreDisabled
	}
	m.mu.RLock()
	now := time.Now()
	var records []*ScanRecord
	for _, record := range m.records {
		if kind != "" && record.ProduceKind != kind {
			continue
		}
		if !record.ExpiresAt.IsZero() && now.After(record.ExpiresAt) {
			continue
		}
		records = append(records, copyRecord(record))
	}
	m.mu.RUnlock()
	return applyListOptions(records, opts), nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	if !m.enabled {
		return ErrStoreDisabled
	}
	if id == "" {
		return ErrInvalidID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.records[id]; !exists {
		return ErrNotFound
	}
	delete(m.records, id)
	return nil
}

func (m *MemoryStore) Purge(ctx context.Context, kind taxonomy.ProduceKind) (int, error) {
	if !m.enabled {
		return 0, ErrStoreDisabled
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	purged := 0
	for id, record := range m.records {
		if kind != "" && record.ProduceKind != kind {
			continue
		}
		delete(m.records, id)
		purged++
	}
	return purged, nil
}

func (m *MemoryStore) Count(ctx context.Context, kind taxonomy.ProduceKind) (int, error) {
	if !m.enabled {
		return 0, ErrStoreDisabled
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := time.Now()
	count := 0
	for _, record := range m.records {
		if kind != "" && record.ProduceKind != kind {
			continue
		}
		if !record.ExpiresAt.IsZero() && now.After(record.ExpiresAt) {
			continue
		}
		count++
	}
	return count, nil
}

// Helper methods

func (m *MemoryStore) countKindLocked(kind taxonomy.ProduceKind) int {
	count := 0
	for _, record := range m.records {
		if record.ProduceKind == kind {
			count++
		}
	}
	return count
}

func (m *MemoryStore) evictOldestLocked(kind taxonomy.ProduceKind) {
	var oldestID string
	var oldestTime time.Time
	for id, record := range m.records {
		if record.ProduceKind != kind {
			continue
		}
		if oldestID == "" || record.CreatedAt.Before(oldestTime) {
			oldestTime = record.CreatedAt
			oldestID = id
		}
	}
	if oldestID != "" {
		delete(m.records, oldestID)
	}
}

func (m *MemoryStore) cleanupExpired() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.mu.Lock()
			now := time.Now()
			for id, record := range m.records {
				if !record.ExpiresAt.IsZero() && now.After(record.ExpiresAt) {
					delete(m.records, id)
				}
			}
			m.mu.Unlock()
		}
	}
}
