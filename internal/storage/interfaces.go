// Package storage defines the two memory-tier interfaces of the VoxCraft
// system and the shared option and error types their implementations use.
//
// The tiers are deliberately small, focused interfaces that can be
// implemented independently: a TTL-bounded short-term conversation log and
// an append-only, similarity-searchable long-term archive. Both back onto
// externally shared services, so implementations must not assume exclusive
// ownership of the underlying data.
package storage

import (
	"context"

	"github.com/voxforge/voxcraft/pkg/types"
)

// ShortTermStore is the per-session bounded-lifetime message log.
//
// Entries expire after a fixed TTL that is a property of the backing store,
// not of in-process state: a session's log can vanish between calls even
// while the session itself is still registered. Within one session, appends
// must be observed in call order by subsequent List calls (read-your-writes).
type ShortTermStore interface {
	// Append adds one message to the session's log.
	Append(ctx context.Context, sessionID string, role types.Role, content string) error

	// List returns the session's messages in insertion order. An expired or
	// unknown session yields an empty slice, not an error.
	List(ctx context.Context, sessionID string) ([]types.ChatMessage, error)

	// Clear removes the session's log.
	Clear(ctx context.Context, sessionID string) error

	// Degraded reports whether the store is running in its volatile
	// in-process fallback mode rather than against the real backing store.
	Degraded() bool

	// Close releases any resources held by the store.
	Close() error
}

// Embedder turns text into a fixed-length vector. It is an external
// collaborator (typically an LLM service); long-term stores only index and
// compare the vectors it produces.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// LongTermStore is the durable, similarity-searchable archive of memory
// records. It is append-only: no deletion or update path exists.
type LongTermStore interface {
	// Add embeds text and appends it as a new record, returning the record ID.
	Add(ctx context.Context, text string, meta types.RecordMetadata) (string, error)

	// Search returns up to k records most similar to query, nearest first.
	// When filter is non-nil, only records whose metadata matches every set
	// filter key exactly are considered; zero matches yields an empty slice,
	// not an error.
	Search(ctx context.Context, query string, k int, filter *SearchFilter) ([]types.MemoryRecord, error)

	// Close releases any resources held by the store.
	Close() error
}
