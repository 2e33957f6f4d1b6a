package memory

import (
	"log"
	"time"

	"github.com/voxforge/voxcraft/internal/storage"
	"github.com/voxforge/voxcraft/internal/storage/memkv"
	"github.com/voxforge/voxcraft/internal/storage/sqlite"
)

// OpenShortTerm opens the short-term log against the SQLite backing store
// at dsn. When the store cannot be opened the component falls back
// transparently to a bounded in-process log: volatile, no TTL, surfaced via
// the log line below and the store's Degraded() accessor rather than failing
// session creation.
func OpenShortTerm(dsn string, ttl time.Duration) storage.ShortTermStore {
	db, err := sqlite.Open(dsn)
	if err != nil {
		log.Printf("memory: short-term backing store unavailable, using in-process fallback (volatile, no TTL): %v", err)
		return memkv.New(0)
	}
	return sqlite.NewShortTermLog(db, ttl)
}
