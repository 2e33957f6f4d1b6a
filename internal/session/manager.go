package session

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/voxforge/voxcraft/internal/memory"
	"github.com/voxforge/voxcraft/internal/storage"
)

// DefaultTimeout is the idle duration after which a session is considered
// timed out.
const DefaultTimeout = 30 * time.Minute

// Manager is the concurrency-safe session registry. Alongside the primary
// sessionID→Session map it maintains a userID→sessionID secondary index so
// the active session for a user is a single authoritative lookup, not a
// scan over the registry.
//
// Timeout detection is lazy: there is no background sweeper, and a session
// that is never accessed again stays registered until ReapIdle or EndSession
// removes it.
type Manager struct {
	mu        sync.RWMutex
	sessions  map[string]*Session
	userIndex map[string]string

	timeout   time.Duration
	shortTerm storage.ShortTermStore
	longTerm  storage.LongTermStore
}

// NewManager creates an empty registry. A zero timeout uses DefaultTimeout.
func NewManager(shortTerm storage.ShortTermStore, longTerm storage.LongTermStore, timeout time.Duration) *Manager {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Manager{
		sessions:  make(map[string]*Session),
		userIndex: make(map[string]string),
		timeout:   timeout,
		shortTerm: shortTerm,
		longTerm:  longTerm,
	}
}

// Timeout returns the configured idle timeout.
func (m *Manager) Timeout() time.Duration { return m.timeout }

// CreateSession allocates a new active session for userID (which may be
// empty), registers it, and points the user index at it. It always
// succeeds and performs no duplicate pre-check; callers wanting one active
// session per user consult GetUserSession first.
func (m *Manager) CreateSession(userID string) *Session {
	now := time.Now()
	s := &Session{
		SessionID:    newSessionID(userID),
		UserID:       userID,
		StartTime:    now,
		lastActivity: now,
		active:       true,
	}
	s.Memory = memory.NewManager(s.SessionID, userID, m.shortTerm, m.longTerm)

	m.mu.Lock()
	m.sessions[s.SessionID] = s
	if userID != "" {
		m.userIndex[userID] = s.SessionID
	}
	m.mu.Unlock()

	log.Printf("session: created %s (user %q)", s.SessionID, userID)
	return s
}

// GetSession returns the session for id when it is present and active,
// otherwise nil. Inactive sessions are indistinguishable from absent ones.
func (m *Manager) GetSession(id string) *Session {
	m.mu.RLock()
	s := m.sessions[id]
	m.mu.RUnlock()

	if s == nil || !s.IsActive() {
		return nil
	}
	return s
}

// GetUserSession returns the user's active session via the secondary index,
// or nil. At most one active session per user is reachable through this
// path.
func (m *Manager) GetUserSession(userID string) *Session {
	if userID == "" {
		return nil
	}
	m.mu.RLock()
	id := m.userIndex[userID]
	m.mu.RUnlock()

	if id == "" {
		return nil
	}
	return m.GetSession(id)
}

// CheckSessionTimeout reports whether the session has been idle longer than
// the configured timeout. A missing or inactive session is treated as timed
// out, so callers fail safe into creating a new one.
func (m *Manager) CheckSessionTimeout(id string) bool {
	s := m.GetSession(id)
	if s == nil {
		return true
	}
	return s.timedOut(m.timeout)
}

// EndSession tears the session down: its short-term log is compacted into a
// long-term summary (best-effort; failures are logged by the memory layer
// and never block teardown), the session is marked inactive, and it is
// removed from the registry and user index. Ending an absent session is a
// no-op, which makes the call idempotent.
func (m *Manager) EndSession(ctx context.Context, id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
		if s.UserID != "" && m.userIndex[s.UserID] == id {
			delete(m.userIndex, s.UserID)
		}
	}
	m.mu.Unlock()

	if !ok {
		return
	}

	// Summarize before deactivation so the snapshot happens while the log
	// is still reachable.
	s.Memory.StoreSummary(ctx)
	s.deactivate()
	log.Printf("session: ended %s (user %q, %d messages)", s.SessionID, s.UserID, s.MessageCount())
}

// ActiveCount returns the number of registered sessions.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// ReapIdle ends every session that has exceeded the idle timeout. It is a
// manual sweep for operators; nothing starts it automatically.
func (m *Manager) ReapIdle(ctx context.Context) int {
	m.mu.RLock()
	var idle []string
	for id, s := range m.sessions {
		if s.timedOut(m.timeout) {
			idle = append(idle, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range idle {
		m.EndSession(ctx, id)
	}
	return len(idle)
}
