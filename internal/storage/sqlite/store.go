// Package sqlite implements both memory tiers on a single SQLite database:
// a TTL-bounded short-term conversation log and an append-only long-term
// vector archive with in-Go cosine ranking.
package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver
)

// Schema defines the tables for both memory tiers.
//
// Short-term rows carry an explicit expires_at; expired rows are invisible
// to List and purged opportunistically, which gives the log its fixed-TTL
// semantics without a background sweeper.
//
// Long-term rows are append-only. Embeddings are serialized as little-endian
// float32 BLOBs; similarity ranking happens in Go over the candidate set.
const Schema = `
CREATE TABLE IF NOT EXISTS short_term_messages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	expires_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_short_term_session ON short_term_messages(session_id, id);
CREATE INDEX IF NOT EXISTS idx_short_term_expiry  ON short_term_messages(expires_at);

CREATE TABLE IF NOT EXISTS long_term_records (
	id         TEXT PRIMARY KEY,
	text       TEXT NOT NULL,
	date       TEXT NOT NULL,
	record_type TEXT NOT NULL,
	session_id TEXT NOT NULL,
	user_id    TEXT NOT NULL DEFAULT '',
	embedding  BLOB NOT NULL,
	dimension  INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_long_term_date ON long_term_records(date);
CREATE INDEX IF NOT EXISTS idx_long_term_session ON long_term_records(session_id);
`

// Open opens a SQLite database, configures WAL mode, and creates the schema.
// SQLite only supports one concurrent writer, so the pool is pinned to a
// single open connection: writes serialize without SQLITE_BUSY errors and
// reads on the same connection observe prior writes in call order.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: failed to set busy timeout: %w", err)
	}

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: failed to create schema: %w", err)
	}

	return db, nil
}
