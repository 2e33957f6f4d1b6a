package sqlite

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/voxforge/voxcraft/internal/storage"
	"github.com/voxforge/voxcraft/pkg/types"
)

// stubEmbedder produces deterministic 4-dimensional vectors keyed on
// keywords, so similarity ranking in tests is predictable.
type stubEmbedder struct {
	calls int
}

func (e *stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.calls++
	vec := make([]float32, 4)
	lower := strings.ToLower(text)
	if strings.Contains(lower, "food") || strings.Contains(lower, "pizza") {
		vec[0] = 1
	}
	if strings.Contains(lower, "weather") {
		vec[1] = 1
	}
	if strings.Contains(lower, "travel") {
		vec[2] = 1
	}
	vec[3] = 0.1
	return vec, nil
}

func newTestIndex(t *testing.T) (*LongTermIndex, *stubEmbedder) {
	t.Helper()
	embedder := &stubEmbedder{}
	idx, err := NewLongTermIndex(context.Background(), newTestDB(t), embedder)
	if err != nil {
		t.Fatalf("NewLongTermIndex() failed: %v", err)
	}
	return idx, embedder
}

func TestLongTermDimensionFixedAtInit(t *testing.T) {
	idx, _ := newTestIndex(t)
	if idx.Dimension() != 4 {
		t.Errorf("Dimension() = %d, want 4", idx.Dimension())
	}
}

func TestLongTermAddAndSearchRanking(t *testing.T) {
	idx, _ := newTestIndex(t)
	ctx := context.Background()

	for _, text := range []string{
		"we talked about pizza and favorite food",
		"the weather was stormy all week",
		"travel plans for the summer",
	} {
		if _, err := idx.Add(ctx, text, types.RecordMetadata{SessionID: "s1"}); err != nil {
			t.Fatalf("Add(%q) failed: %v", text, err)
		}
	}

	records, err := idx.Search(ctx, "what food does the user like", 2, nil)
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Search() returned %d records, want 2", len(records))
	}
	// Nearest first: the food record must outrank the others.
	if !strings.Contains(records[0].Text, "pizza") {
		t.Errorf("nearest record = %q, want the food record first", records[0].Text)
	}
	if records[0].Score < records[1].Score {
		t.Errorf("results not ranked by descending similarity: %f < %f",
			records[0].Score, records[1].Score)
	}
}

func TestLongTermMetadataFilterExactMatch(t *testing.T) {
	idx, _ := newTestIndex(t)
	ctx := context.Background()

	meta := types.RecordMetadata{Date: "2026-08-27", Type: types.RecordSummary, SessionID: "s1", UserID: "alice"}
	if _, err := idx.Add(ctx, "pizza conversation from yesterday", meta); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}
	other := types.RecordMetadata{Date: "2026-08-01", Type: types.RecordSummary, SessionID: "s2"}
	if _, err := idx.Add(ctx, "older pizza conversation", other); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}

	records, err := idx.Search(ctx, "pizza", 5, &storage.SearchFilter{Date: "2026-08-27"})
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("filtered search returned %d records, want 1", len(records))
	}
	if records[0].Metadata.Date != "2026-08-27" || records[0].Metadata.UserID != "alice" {
		t.Errorf("wrong record passed the filter: %+v", records[0].Metadata)
	}
}

func TestLongTermFilterNoMatchReturnsEmpty(t *testing.T) {
	idx, _ := newTestIndex(t)
	ctx := context.Background()

	if _, err := idx.Add(ctx, "pizza conversation", types.RecordMetadata{Date: "2026-08-27"}); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}

	records, err := idx.Search(ctx, "pizza", 5, &storage.SearchFilter{Date: "1999-01-01"})
	if err != nil {
		t.Fatalf("Search() with non-matching filter must not error: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Search() returned %d records, want 0", len(records))
	}
}

func TestLongTermRejectsEmptyText(t *testing.T) {
	idx, _ := newTestIndex(t)

	_, err := idx.Add(context.Background(), "   ", types.RecordMetadata{})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Add() with blank text: got %v, want ErrInvalidInput", err)
	}
}

func TestLongTermDefaultsMetadata(t *testing.T) {
	idx, _ := newTestIndex(t)
	ctx := context.Background()

	if _, err := idx.Add(ctx, "pizza for dinner", types.RecordMetadata{SessionID: "s1"}); err != nil {
		t.Fatalf("Add() failed: %v", err)
	}

	records, err := idx.Search(ctx, "pizza", 1, nil)
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Search() returned %d records, want 1", len(records))
	}
	if records[0].Metadata.Type != types.RecordChat {
		t.Errorf("record type defaulted to %q, want %q", records[0].Metadata.Type, types.RecordChat)
	}
	if records[0].Metadata.Date == "" {
		t.Error("record date was not defaulted")
	}
}

func TestEmbeddingRoundTrip(t *testing.T) {
	vec := []float32{0.25, -1.5, 3.75, 0}
	got, err := deserializeEmbedding(serializeEmbedding(vec), len(vec))
	if err != nil {
		t.Fatalf("deserializeEmbedding() failed: %v", err)
	}
	for i := range vec {
		if got[i] != vec[i] {
			t.Errorf("component %d: got %f, want %f", i, got[i], vec[i])
		}
	}

	if _, err := deserializeEmbedding([]byte{1, 2, 3}, 4); err == nil {
		t.Error("deserializeEmbedding() with truncated blob should fail")
	}
}

func TestCosineSimilarity(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{1, 0}
	c := []float32{0, 1}

	if sim := cosineSimilarity(a, b); sim < 0.999 {
		t.Errorf("identical vectors: similarity %f, want ~1", sim)
	}
	if sim := cosineSimilarity(a, c); sim > 0.001 {
		t.Errorf("orthogonal vectors: similarity %f, want ~0", sim)
	}
	if sim := cosineSimilarity(a, []float32{1}); sim != 0 {
		t.Errorf("mismatched lengths: similarity %f, want 0", sim)
	}
}
