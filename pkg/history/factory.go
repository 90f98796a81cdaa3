package history

import (
	"fmt"
)

// NewStore creates a new store based on the configuration. A disabled config
// yields a store whose operations return ErrStoreDisabled.
func NewStore(config StoreConfig) (Store, error) {
	if !config.Enabled {
		// Return a disabled memory store
		return NewMemoryStore(StoreConfig{Enabled: false})
	}

	switch config.BackendType {
	case MemoryStoreType, "":
		return NewMemoryStore(config)
	case SQLiteStoreType:
		return NewSQLiteStore(config)
	case RedisStoreType:
		return NewRedisStore(config)
	default:
		return nil, fmt.Errorf("unknown store backend type: %s", config.BackendType)
	}
}
