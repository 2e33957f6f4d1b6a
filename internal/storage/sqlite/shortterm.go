package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/voxforge/voxcraft/internal/storage"
	"github.com/voxforge/voxcraft/pkg/types"
)

// Ensure *ShortTermLog implements storage.ShortTermStore at compile time.
var _ storage.ShortTermStore = (*ShortTermLog)(nil)

// ShortTermLog implements storage.ShortTermStore on SQLite.
//
// TTL is enforced at read time: List filters on expires_at and each Append
// opportunistically purges expired rows, so entries disappear after their
// lifetime even though no sweeper runs. The database is externally shared;
// other process instances may append to the same session log.
type ShortTermLog struct {
	db  *sql.DB
	ttl time.Duration

	// now is swappable for expiry tests.
	now func() time.Time
}

// NewShortTermLog creates a short-term log with the given entry TTL.
// A zero ttl uses the default 1800-second conversational window.
func NewShortTermLog(db *sql.DB, ttl time.Duration) *ShortTermLog {
	if ttl <= 0 {
		ttl = storage.DefaultShortTermTTLSeconds * time.Second
	}
	return &ShortTermLog{db: db, ttl: ttl, now: time.Now}
}

// Append adds one message to the session's log with a fresh TTL.
func (s *ShortTermLog) Append(ctx context.Context, sessionID string, role types.Role, content string) error {
	if sessionID == "" {
		return fmt.Errorf("%w: session ID is required", storage.ErrInvalidInput)
	}
	if !role.Valid() {
		return fmt.Errorf("%w: unknown role %q", storage.ErrInvalidInput, role)
	}

	now := s.now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO short_term_messages (session_id, role, content, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)`,
		sessionID, string(role), content, now, now.Add(s.ttl))
	if err != nil {
		return fmt.Errorf("sqlite: failed to append message: %w", err)
	}

	// Piggyback expired-row cleanup on the write path.
	_, _ = s.db.ExecContext(ctx,
		`DELETE FROM short_term_messages WHERE expires_at <= ?`, now)

	return nil
}

// List returns the session's unexpired messages in insertion order.
// An unknown or fully expired session yields an empty slice.
func (s *ShortTermLog) List(ctx context.Context, sessionID string) ([]types.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT role, content, created_at
		FROM short_term_messages
		WHERE session_id = ? AND expires_at > ?
		ORDER BY id ASC`,
		sessionID, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to list messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var msgs []types.ChatMessage
	for rows.Next() {
		var role, content string
		var createdAt time.Time
		if err := rows.Scan(&role, &content, &createdAt); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan message: %w", err)
		}
		msgs = append(msgs, types.ChatMessage{
			Role:      types.Role(role),
			Content:   content,
			Timestamp: createdAt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: error iterating messages: %w", err)
	}

	return msgs, nil
}

// Clear removes the session's log.
func (s *ShortTermLog) Clear(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM short_term_messages WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("sqlite: failed to clear session log: %w", err)
	}
	return nil
}

// Degraded always reports false: this is the real backing store.
func (s *ShortTermLog) Degraded() bool { return false }

// Close releases the underlying database handle.
func (s *ShortTermLog) Close() error { return s.db.Close() }
