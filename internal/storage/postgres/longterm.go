// Package postgres implements the long-term memory tier on PostgreSQL with
// the pgvector extension, for deployments whose archive outgrows the
// in-process cosine ranking of the SQLite backend.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq" // PostgreSQL driver
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/voxforge/voxcraft/internal/storage"
	"github.com/voxforge/voxcraft/pkg/types"
)

// Ensure *LongTermIndex implements storage.LongTermStore at compile time.
var _ storage.LongTermStore = (*LongTermIndex)(nil)

// LongTermIndex implements storage.LongTermStore on PostgreSQL + pgvector.
// Records are append-only; Search delegates similarity ranking to the
// database's cosine-distance operator.
type LongTermIndex struct {
	db        *sql.DB
	embedder  storage.Embedder
	dimension int
}

// NewLongTermIndex opens a connection, probes the embedder to fix the
// vector dimension, and creates the schema with a matching vector column.
func NewLongTermIndex(ctx context.Context, dsn string, embedder storage.Embedder) (*LongTermIndex, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", storage.ErrInvalidInput)
	}

	probe, err := embedder.Embed(ctx, "dimension probe")
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to probe embedding dimension: %w", err)
	}
	if len(probe) == 0 {
		return nil, fmt.Errorf("%w: embedder returned an empty vector", storage.ErrInvalidInput)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", storage.ErrStoreUnavailable, err)
	}

	idx := &LongTermIndex{db: db, embedder: embedder, dimension: len(probe)}
	if err := idx.createSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return idx, nil
}

func (l *LongTermIndex) createSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS long_term_records (
			id          TEXT PRIMARY KEY,
			text        TEXT NOT NULL,
			date        TEXT NOT NULL,
			record_type TEXT NOT NULL,
			session_id  TEXT NOT NULL,
			user_id     TEXT NOT NULL DEFAULT '',
			embedding   vector(%d) NOT NULL,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`, l.dimension),
		`CREATE INDEX IF NOT EXISTS idx_long_term_date ON long_term_records(date)`,
		`CREATE INDEX IF NOT EXISTS idx_long_term_session ON long_term_records(session_id)`,
	}
	for _, stmt := range stmts {
		if _, err := l.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: failed to create schema: %w", err)
		}
	}
	return nil
}

// Dimension returns the fixed embedding dimension of the index.
func (l *LongTermIndex) Dimension() int { return l.dimension }

// Add embeds text and appends it as a new immutable record.
func (l *LongTermIndex) Add(ctx context.Context, text string, meta types.RecordMetadata) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: record text is required", storage.ErrInvalidInput)
	}
	if meta.Date == "" {
		meta.Date = time.Now().UTC().Format("2006-01-02")
	}
	if meta.Type == "" {
		meta.Type = types.RecordChat
	}

	embedding, err := l.embedder.Embed(ctx, text)
	if err != nil {
		return "", fmt.Errorf("postgres: failed to embed record: %w", err)
	}
	if len(embedding) != l.dimension {
		return "", fmt.Errorf("%w: got %d, index dimension is %d",
			storage.ErrDimensionMismatch, len(embedding), l.dimension)
	}

	id := uuid.New().String()
	_, err = l.db.ExecContext(ctx, `
		INSERT INTO long_term_records
			(id, text, date, record_type, session_id, user_id, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, text, meta.Date, string(meta.Type), meta.SessionID, meta.UserID,
		pgvector.NewVector(embedding))
	if err != nil {
		return "", fmt.Errorf("postgres: failed to insert record: %w", err)
	}

	return id, nil
}

// Search returns up to k records most similar to query, nearest first,
// ordered by pgvector cosine distance.
func (l *LongTermIndex) Search(ctx context.Context, query string, k int, filter *storage.SearchFilter) ([]types.MemoryRecord, error) {
	if k <= 0 {
		return []types.MemoryRecord{}, nil
	}

	queryVec, err := l.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to embed query: %w", err)
	}

	where, args := buildFilterClause(filter)
	vecArg := len(args) + 1
	limitArg := len(args) + 2
	args = append(args, pgvector.NewVector(queryVec), k)

	querySQL := fmt.Sprintf(`
		SELECT id, text, date, record_type, session_id, user_id, created_at,
		       1 - (embedding <=> $%d) AS score
		FROM long_term_records
		%s
		ORDER BY embedding <=> $%d
		LIMIT $%d`, vecArg, where, vecArg, limitArg)

	rows, err := l.db.QueryContext(ctx, querySQL, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: search query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := []types.MemoryRecord{}
	for rows.Next() {
		var rec types.MemoryRecord
		var recordType string
		if err := rows.Scan(&rec.ID, &rec.Text, &rec.Metadata.Date, &recordType,
			&rec.Metadata.SessionID, &rec.Metadata.UserID, &rec.CreatedAt, &rec.Score); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan record: %w", err)
		}
		rec.Metadata.Type = types.RecordType(recordType)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: error iterating records: %w", err)
	}

	return records, nil
}

// Close closes the underlying connection pool.
func (l *LongTermIndex) Close() error { return l.db.Close() }

// buildFilterClause renders the exact-match metadata filter as a WHERE
// clause with $1..$n placeholders.
func buildFilterClause(filter *storage.SearchFilter) (string, []interface{}) {
	if filter == nil {
		return "", nil
	}

	var conds []string
	var args []interface{}
	add := func(col, val string) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if filter.Date != "" {
		add("date", filter.Date)
	}
	if filter.Type != "" {
		add("record_type", string(filter.Type))
	}
	if filter.SessionID != "" {
		add("session_id", filter.SessionID)
	}
	if filter.UserID != "" {
		add("user_id", filter.UserID)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}
