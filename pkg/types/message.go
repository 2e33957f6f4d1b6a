// Package types defines the core domain types shared across the VoxCraft
// system: conversation messages, long-term memory records, and their
// metadata. These are the atomic units the memory subsystem stores,
// retrieves, and ranks.
package types

import "time"

// Role identifies the author of a conversation message.
type Role string

const (
	// RoleUser marks a message written by the human user.
	RoleUser Role = "user"

	// RoleAssistant marks a message produced by the system (LLM response,
	// pipeline status, or a long-term record surfaced as context).
	RoleAssistant Role = "assistant"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// ChatMessage is a single turn in a session's short-term conversation log.
// Messages are append-only and ordered by insertion within a session.
type ChatMessage struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// RecordType classifies a long-term memory record.
type RecordType string

const (
	// RecordChat is a raw conversational exchange archived directly.
	RecordChat RecordType = "chat"

	// RecordSummary is a compacted session transcript written at session end.
	RecordSummary RecordType = "summary"
)

// RecordMetadata is the attached key/value attributes of a long-term record.
// Date uses the YYYY-MM-DD format; UserID may be empty for anonymous
// sessions.
type RecordMetadata struct {
	Date      string     `json:"date"`
	Type      RecordType `json:"type"`
	SessionID string     `json:"session_id"`
	UserID    string     `json:"user_id,omitempty"`
}

// MemoryRecord is a durable, similarity-searchable archive entry. Records
// are immutable once stored: the long-term store only appends and queries,
// it never mutates.
type MemoryRecord struct {
	ID        string         `json:"id"`
	Text      string         `json:"text"`
	Metadata  RecordMetadata `json:"metadata"`
	CreatedAt time.Time      `json:"created_at"`

	// Score is the similarity of this record to the search query that
	// returned it (cosine similarity, higher is closer). Zero for records
	// that were not produced by a search.
	Score float64 `json:"score,omitempty"`
}

// AsMessage converts a retrieved record into an assistant-role message so
// it can be concatenated onto a short-term context window.
func (r MemoryRecord) AsMessage() ChatMessage {
	return ChatMessage{
		Role:      RoleAssistant,
		Content:   r.Text,
		Timestamp: r.CreatedAt,
	}
}
