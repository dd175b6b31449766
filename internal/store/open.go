package store

import (
	"fmt"

	"github.com/rcliao/profile-memory/internal/config"
)

// Open returns a handle for subject on the backend selected by cfg. cache is
// only used by the JSON backend and may be nil.
func Open(cfg *config.Config, subject string, cache *RecordCache) (Store, error) {
	switch cfg.Backend {
	case config.BackendJSON, "":
		return NewJSONStore(cfg.MemoriesDir(), subject, WithCache(cache))
	case config.BackendSQLite:
		return NewSQLiteStore(cfg.SQLitePath(), subject)
	default:
		return nil, fmt.Errorf("unsupported backend %q", cfg.Backend)
	}
}
