package storage

import (
	"errors"

	"github.com/voxforge/voxcraft/pkg/types"
)

var (
	// ErrNotFound indicates that the requested record was not found.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidInput indicates that the input parameters are invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrDimensionMismatch indicates an embedding whose length does not match
	// the dimension the store was initialized with.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrStoreUnavailable indicates the backing store could not be reached.
	ErrStoreUnavailable = errors.New("backing store unavailable")
)

// SearchFilter is an exact-match constraint applied to record metadata
// during long-term search. Only set (non-zero) fields participate; a record
// matches when every set field equals the record's corresponding metadata
// value.
type SearchFilter struct {
	Date      string
	Type      types.RecordType
	SessionID string
	UserID    string
}

// Matches reports whether the record metadata satisfies every set filter key.
func (f *SearchFilter) Matches(meta types.RecordMetadata) bool {
	if f == nil {
		return true
	}
	if f.Date != "" && meta.Date != f.Date {
		return false
	}
	if f.Type != "" && meta.Type != f.Type {
		return false
	}
	if f.SessionID != "" && meta.SessionID != f.SessionID {
		return false
	}
	if f.UserID != "" && meta.UserID != f.UserID {
		return false
	}
	return true
}

// DefaultShortTermTTLSeconds is the fixed lifetime of a session's short-term
// log, counted from store creation of each entry. Matches the backing
// store's 30-minute conversational window.
const DefaultShortTermTTLSeconds = 1800
