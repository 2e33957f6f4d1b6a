// Package session manages the registry of live conversational sessions:
// creation, lookup, lazy timeout detection, and teardown with
// summarize-on-eviction. The registry is the only in-process shared mutable
// structure in the system and is guarded by a single mutex; expected
// contention is low.
package session

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voxforge/voxcraft/internal/memory"
)

// Session is a bounded-lifetime conversational context identified by a
// unique token, tied optionally to a user identifier. Once ended it is
// terminal and must not be resurrected.
type Session struct {
	SessionID string
	UserID    string
	StartTime time.Time

	// Memory is the session's exclusively owned memory manager, scoped to
	// SessionID.
	Memory *memory.Manager

	mu           sync.RWMutex
	lastActivity time.Time
	messageCount int
	active       bool
}

// newSessionID derives an ID from the user plus a random suffix, or a pure
// random token when no user is given.
func newSessionID(userID string) string {
	token := strings.ReplaceAll(uuid.New().String(), "-", "")
	if userID == "" {
		return token
	}
	return userID + "_" + token[:8]
}

// UpdateActivity refreshes the session's last-activity time. Called once
// per turn.
func (s *Session) UpdateActivity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = time.Now()
	s.messageCount++
}

// LastActivity returns the time of the most recent turn.
func (s *Session) LastActivity() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActivity
}

// MessageCount returns the number of turns handled by this session.
func (s *Session) MessageCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.messageCount
}

// IsActive reports whether the session has not been ended.
func (s *Session) IsActive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// timedOut reports whether the session has been idle longer than timeout.
func (s *Session) timedOut(timeout time.Duration) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Since(s.lastActivity) > timeout
}

// deactivate marks the session terminal.
func (s *Session) deactivate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
}

// setLastActivity backdates the activity clock. Exposed for timeout tests.
func (s *Session) setLastActivity(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = t
}
