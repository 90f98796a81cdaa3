package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ripesense/ripesense/pkg/taxonomy"
)

func sqliteConfig(t *testing.T) StoreConfig {
	t.Helper()
	return StoreConfig{
		Enabled:     true,
		BackendType: SQLiteStoreType,
		SQLite:      SQLiteStoreConfig{Path: filepath.Join(t.TempDir(), "history.db")},
	}
}

func newTestSQLiteStore(t *testing.T, cfg StoreConfig) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStoreSaveAndGet(t *testing.T) {
	store := newTestSQLiteStore(t, sqliteConfig(t))
	ctx := context.Background()

	created := time.Now().Truncate(time.Second)
	record := testRecord("scan_1", taxonomy.KindAvocado, created)
	require.NoError(t, store.Save(ctx, record))

	got, err := store.Get(ctx, "scan_1")
	require.NoError(t, err)
	assert.Equal(t, record.ID, got.ID)
	assert.Equal(t, taxonomy.KindAvocado, got.ProduceKind)
	assert.Equal(t, record.TopLabel, got.TopLabel)
	assert.InDelta(t, record.TopConfidence, got.TopConfidence, 1e-9)
	assert.Equal(t, record.Predictions, got.Predictions)
	assert.Equal(t, record.Source, got.Source)
	// Timestamps survive at second precision.
	assert.Equal(t, created.Unix(), got.CreatedAt.Unix())
	assert.False(t, got.ExpiresAt.IsZero())
}

func TestSQLiteStoreCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "history.db")
	cfg := StoreConfig{
		Enabled:     true,
		BackendType: SQLiteStoreType,
		SQLite:      SQLiteStoreConfig{Path: path},
	}

	store := newTestSQLiteStore(t, cfg)
	require.NoError(t, store.CheckConnection(context.Background()))
}

func TestSQLiteStoreSaveValidation(t *testing.T) {
	store := newTestSQLiteStore(t, sqliteConfig(t))
	ctx := context.Background()

	assert.ErrorIs(t, store.Save(ctx, nil), ErrInvalidInput)
	assert.ErrorIs(t, store.Save(ctx, &ScanRecord{}), ErrInvalidInput)

	record := testRecord("scan_dup", taxonomy.KindBanana, time.Now())
	require.NoError(t, store.Save(ctx, record))
	assert.ErrorIs(t, store.Save(ctx, record), ErrAlreadyExists)
}

func TestSQLiteStoreDisabled(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.Enabled = false
	store := newTestSQLiteStore(t, cfg)
	ctx := context.Background()

	assert.False(t, store.IsEnabled())
	assert.ErrorIs(t, store.CheckConnection(ctx), ErrStoreDisabled)
	assert.ErrorIs(t, store.Save(ctx, testRecord("scan_1", taxonomy.KindBanana, time.Now())), ErrStoreDisabled)

	_, err := store.Get(ctx, "scan_1")
	assert.ErrorIs(t, err, ErrStoreDisabled)
	_, err = store.List(ctx, "", ListOptions{})
	assert.ErrorIs(t, err, ErrStoreDisabled)
	_, err = store.Count(ctx, "")
	assert.ErrorIs(t, err, ErrStoreDisabled)
}

func TestSQLiteStoreGetErrors(t *testing.T) {
	store := newTestSQLiteStore(t, sqliteConfig(t))
	ctx := context.Background()

	_, err := store.Get(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidID)

	_, err = store.Get(ctx, "scan_missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStoreListOrderAndLimit(t *testing.T) {
	store := newTestSQLiteStore(t, sqliteConfig(t))
	ctx := context.Background()
	now := time.Now().Truncate(time.Second)

	require.NoError(t, store.Save(ctx, testRecord("scan_old", taxonomy.KindBanana, now.Add(-3*time.Minute))))
	require.NoError(t, store.Save(ctx, testRecord("scan_mid", taxonomy.KindAvocado, now.Add(-2*time.Minute))))
	require.NoError(t, store.Save(ctx, testRecord("scan_new", taxonomy.KindBanana, now.Add(-time.Minute))))

	records, err := store.List(ctx, "", ListOptions{})
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "scan_new", records[0].ID)
	assert.Equal(t, "scan_old", records[2].ID)

	records, err = store.List(ctx, taxonomy.KindBanana, ListOptions{})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "scan_new", records[0].ID)
	assert.Equal(t, "scan_old", records[1].ID)

	records, err = store.List(ctx, "", ListOptions{Order: "asc"})
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "scan_old", records[0].ID)

	records, err = store.List(ctx, "", ListOptions{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestSQLiteStoreExpiry(t *testing.T) {
	store := newTestSQLiteStore(t, sqliteConfig(t))
	ctx := context.Background()

	expired := testRecord("scan_expired", taxonomy.KindBanana, time.Now().Add(-2*time.Hour))
	expired.ExpiresAt = time.Now().Add(-time.Hour)
	require.NoError(t, store.Save(ctx, expired))
	require.NoError(t, store.Save(ctx, testRecord("scan_live", taxonomy.KindBanana, time.Now())))

	_, err := store.Get(ctx, "scan_expired")
	assert.ErrorIs(t, err, ErrNotFound)

	records, err := store.List(ctx, taxonomy.KindBanana, ListOptions{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "scan_live", records[0].ID)

	count, err := store.Count(ctx, taxonomy.KindBanana)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSQLiteStoreDeleteAndPurge(t *testing.T) {
	store := newTestSQLiteStore(t, sqliteConfig(t))
	ctx := context.Background()
	now := time.Now().Truncate(time.Second)

	require.NoError(t, store.Save(ctx, testRecord("scan_b1", taxonomy.KindBanana, now)))
	require.NoError(t, store.Save(ctx, testRecord("scan_b2", taxonomy.KindBanana, now.Add(time.Second))))
	require.NoError(t, store.Save(ctx, testRecord("scan_a1", taxonomy.KindAvocado, now)))

	require.NoError(t, store.Delete(ctx, "scan_b1"))
	assert.ErrorIs(t, store.Delete(ctx, "scan_b1"), ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, ""), ErrInvalidID)

	purged, err := store.Purge(ctx, taxonomy.KindBanana)
	require.NoError(t, err)
	assert.Equal(t, 1, purged)

	purged, err = store.Purge(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 1, purged)

	count, err := store.Count(ctx, "")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSQLiteStoreTrimsAtCap(t *testing.T) {
	cfg := sqliteConfig(t)
	cfg.MaxRecords = 2
	store := newTestSQLiteStore(t, cfg)
	ctx := context.Background()
	now := time.Now().Truncate(time.Second)

	require.NoError(t, store.Save(ctx, testRecord("scan_oldest", taxonomy.KindBanana, now.Add(-3*time.Minute))))
	require.NoError(t, store.Save(ctx, testRecord("scan_mid", taxonomy.KindBanana, now.Add(-2*time.Minute))))
	require.NoError(t, store.Save(ctx, testRecord("scan_new", taxonomy.KindBanana, now.Add(-time.Minute))))

	count, err := store.Count(ctx, taxonomy.KindBanana)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	_, err = store.Get(ctx, "scan_oldest")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Get(ctx, "scan_new")
	assert.NoError(t, err)
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	cfg := sqliteConfig(t)
	ctx := context.Background()

	first, err := NewSQLiteStore(cfg)
	require.NoError(t, err)
	require.NoError(t, first.Save(ctx, testRecord("scan_durable", taxonomy.KindAvocado, time.Now())))
	require.NoError(t, first.Close())

	second := newTestSQLiteStore(t, cfg)
	got, err := second.Get(ctx, "scan_durable")
	require.NoError(t, err)
	assert.Equal(t, "scan_durable", got.ID)
	assert.Equal(t, taxonomy.KindAvocado, got.ProduceKind)
}
