// Package memkv provides a volatile in-process fallback for the short-term
// conversation log, used when the real backing store cannot be opened.
//
// The fallback carries no TTL and is lost on process restart. This is a
// known degraded mode, not silent data loss: constructors that hand out a
// memkv store log the degradation and Degraded() reports it to callers.
package memkv

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/voxforge/voxcraft/internal/storage"
	"github.com/voxforge/voxcraft/pkg/types"
)

// Ensure *Store implements storage.ShortTermStore at compile time.
var _ storage.ShortTermStore = (*Store)(nil)

// DefaultMaxPerSession bounds each session's in-process log so a long-lived
// degraded process cannot grow without limit. Oldest entries are dropped
// first once the cap is reached.
const DefaultMaxPerSession = 256

// Store is a mutex-guarded per-session message log.
type Store struct {
	mu            sync.RWMutex
	sessions      map[string][]types.ChatMessage
	maxPerSession int
}

// New creates an empty in-process store. maxPerSession <= 0 uses
// DefaultMaxPerSession.
func New(maxPerSession int) *Store {
	if maxPerSession <= 0 {
		maxPerSession = DefaultMaxPerSession
	}
	return &Store{
		sessions:      make(map[string][]types.ChatMessage),
		maxPerSession: maxPerSession,
	}
}

// Append adds one message to the session's log, evicting the oldest entry
// when the per-session cap is reached.
func (s *Store) Append(_ context.Context, sessionID string, role types.Role, content string) error {
	if sessionID == "" {
		return fmt.Errorf("%w: session ID is required", storage.ErrInvalidInput)
	}
	if !role.Valid() {
		return fmt.Errorf("%w: unknown role %q", storage.ErrInvalidInput, role)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.sessions[sessionID]
	if len(log) >= s.maxPerSession {
		log = log[1:]
	}
	s.sessions[sessionID] = append(log, types.ChatMessage{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	})
	return nil
}

// List returns a copy of the session's messages in insertion order.
func (s *Store) List(_ context.Context, sessionID string) ([]types.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := s.sessions[sessionID]
	out := make([]types.ChatMessage, len(log))
	copy(out, log)
	return out, nil
}

// Clear removes the session's log.
func (s *Store) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

// Degraded always reports true: this store only exists because the real
// backing store was unavailable.
func (s *Store) Degraded() bool { return true }

// Close releases the in-process state.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[string][]types.ChatMessage)
	return nil
}
