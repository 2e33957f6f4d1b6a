package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/voxforge/voxcraft/internal/storage"
	"github.com/voxforge/voxcraft/pkg/types"
)

// Ensure *LongTermIndex implements storage.LongTermStore at compile time.
var _ storage.LongTermStore = (*LongTermIndex)(nil)

// searchMaxCandidates caps the number of embeddings loaded into memory per
// search. Candidates are selected newest first, so recent records are always
// considered. For typical conversational archives (< 10k records) this limit
// is never hit; larger deployments should use the pgvector backend instead.
const searchMaxCandidates = 10_000

// LongTermIndex implements storage.LongTermStore on SQLite. Records are
// append-only; Add embeds the text through the configured Embedder and
// Search ranks candidates by cosine similarity in Go.
//
// The embedding dimension is fixed at construction from the embedder's
// output size; vectors of any other length are rejected.
type LongTermIndex struct {
	db        *sql.DB
	embedder  storage.Embedder
	dimension int
}

// NewLongTermIndex creates a long-term index, probing the embedder once to
// fix the vector dimension for the lifetime of the store.
func NewLongTermIndex(ctx context.Context, db *sql.DB, embedder storage.Embedder) (*LongTermIndex, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", storage.ErrInvalidInput)
	}

	probe, err := embedder.Embed(ctx, "dimension probe")
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to probe embedding dimension: %w", err)
	}
	if len(probe) == 0 {
		return nil, fmt.Errorf("%w: embedder returned an empty vector", storage.ErrInvalidInput)
	}

	return &LongTermIndex{db: db, embedder: embedder, dimension: len(probe)}, nil
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
		return "", fmt.Errorf("sqlite: failed to embed record: %w", err)
	}
	if len(embedding) != l.dimension {
		return "", fmt.Errorf("%w: got %d, index dimension is %d",
			storage.ErrDimensionMismatch, len(embedding), l.dimension)
	}

	id := uuid.New().String()
	_, err = l.db.ExecContext(ctx, `
		INSERT INTO long_term_records
			(id, text, date, record_type, session_id, user_id, embedding, dimension, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, text, meta.Date, string(meta.Type), meta.SessionID, meta.UserID,
		serializeEmbedding(embedding), l.dimension, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("sqlite: failed to insert record: %w", err)
	}

	return id, nil
}

// Search returns up to k records most similar to query, nearest first.
// The metadata filter is applied in SQL so non-matching records never enter
// the ranking pool; zero matches yields an empty slice, not an error.
func (l *LongTermIndex) Search(ctx context.Context, query string, k int, filter *storage.SearchFilter) ([]types.MemoryRecord, error) {
	if k <= 0 {
		return []types.MemoryRecord{}, nil
	}

	queryVec, err := l.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to embed query: %w", err)
	}

	where, args := buildFilterClause(filter)
	args = append(args, searchMaxCandidates)

	rows, err := l.db.QueryContext(ctx, `
		SELECT id, text, date, record_type, session_id, user_id, embedding, dimension, created_at
		FROM long_term_records
		`+where+`
		ORDER BY created_at DESC
		LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to load candidates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var candidates []types.MemoryRecord
	for rows.Next() {
		var rec types.MemoryRecord
		var recordType string
		var blob []byte
		var dim int
		if err := rows.Scan(&rec.ID, &rec.Text, &rec.Metadata.Date, &recordType,
			&rec.Metadata.SessionID, &rec.Metadata.UserID, &blob, &dim, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan record: %w", err)
		}
		rec.Metadata.Type = types.RecordType(recordType)

		embedding, err := deserializeEmbedding(blob, dim)
		if err != nil {
			// A single corrupt row should not fail the whole search.
			continue
		}
		rec.Score = cosineSimilarity(queryVec, embedding)
		candidates = append(candidates, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: error iterating records: %w", err)
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}
	if candidates == nil {
		candidates = []types.MemoryRecord{}
	}
	return candidates, nil
}

// Close closes the underlying database handle.
func (l *LongTermIndex) Close() error { return l.db.Close() }

// buildFilterClause renders the exact-match metadata filter as a WHERE
// clause with positional args.
func buildFilterClause(filter *storage.SearchFilter) (string, []interface{}) {
	if filter == nil {
		return "", nil
	}

	var conds []string
	var args []interface{}
	if filter.Date != "" {
		conds = append(conds, "date = ?")
		args = append(args, filter.Date)
	}
	if filter.Type != "" {
		conds = append(conds, "record_type = ?")
		args = append(args, string(filter.Type))
	}
	if filter.SessionID != "" {
		conds = append(conds, "session_id = ?")
		args = append(args, filter.SessionID)
	}
	if filter.UserID != "" {
		conds = append(conds, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}
