// Package memory implements the hybrid two-tier retrieval policy: a
// TTL-bounded short-term conversation log consulted first, with fallback
// into the similarity-searchable long-term archive, and
// summarize-and-archive compaction at session end.
package memory

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/voxforge/voxcraft/internal/storage"
	"github.com/voxforge/voxcraft/pkg/types"
)

// Tier identifies which retrieval path produced a context result, so tests
// and callers can assert the path taken rather than inspecting shapes.
type Tier string

const (
	// TierShortTerm means the last-5 relevance heuristic matched and the
	// long-term store was not consulted.
	TierShortTerm Tier = "short_term"

	// TierHybrid means short-term context was extended with long-term
	// similarity results.
	TierHybrid Tier = "hybrid"

	// DegradedShortTerm means the short-term store failed and retrieval
	// proceeded with an empty conversation log.
	DegradedShortTerm Tier = "degraded_short_term"

	// DegradedLongTerm means the long-term search failed and only the
	// short-term log was returned.
	DegradedLongTerm Tier = "degraded_long_term"
)

// Provenance describes how a FetchContext result was assembled.
type Provenance struct {
	Tier Tier

	// ShortTermCount and LongTermCount break down the returned sequence.
	// Short-term messages always precede long-term results.
	ShortTermCount int
	LongTermCount  int

	// DegradedReason carries the underlying store error text when Tier is
	// one of the degraded values.
	DegradedReason string
}

// recentWindow is the number of trailing short-term entries inspected by
// the relevance heuristic.
const recentWindow = 5

// summaryMinChars is the minimum concatenated transcript length worth
// archiving. Below it, StoreSummary is a silent no-op so trivial sessions
// do not pollute long-term memory.
const summaryMinChars = 100

// longTermK is the number of long-term records retrieved per query.
const longTermK = 2

// Manager composes the two memory tiers for a single session. It is owned
// exclusively by that session; the stores behind it are externally shared.
type Manager struct {
	sessionID string
	userID    string

	shortTerm storage.ShortTermStore
	longTerm  storage.LongTermStore
	dates     *DateExtractor

	// now is swappable for deterministic summary dates in tests.
	now func() time.Time
}

// NewManager creates a memory manager scoped to sessionID. userID may be
// empty for anonymous sessions.
func NewManager(sessionID, userID string, shortTerm storage.ShortTermStore, longTerm storage.LongTermStore) *Manager {
	return &Manager{
		sessionID: sessionID,
		userID:    userID,
		shortTerm: shortTerm,
		longTerm:  longTerm,
		dates:     NewDateExtractor(),
		now:       time.Now,
	}
}

// SessionID returns the session this manager is scoped to.
func (m *Manager) SessionID() string { return m.sessionID }

// FetchContext assembles the conversational context for query.
//
// The short-term log is consulted first. When the query appears as a
// case-insensitive substring in any of the last 5 entries, the full
// short-term list is returned as-is and the long-term store is skipped
// entirely; the heuristic is cheap relevance, not semantic matching, and
// trades recall for zero extra latency. Otherwise the long-term archive is
// searched for the 2 nearest records, filtered by a date extracted from the
// query when one is present, and the results are appended after the
// short-term messages as assistant-role context.
//
// Backing-store failures degrade instead of failing the caller: a broken
// short-term tier yields an empty log, a broken long-term tier yields
// short-term context only. The Provenance return reports which path ran.
func (m *Manager) FetchContext(ctx context.Context, query string) ([]types.ChatMessage, Provenance) {
	prov := Provenance{}

	shortMsgs, err := m.shortTerm.List(ctx, m.sessionID)
	if err != nil {
		log.Printf("memory: short-term list failed for session %s, degrading to empty: %v", m.sessionID, err)
		shortMsgs = nil
		prov.Tier = DegradedShortTerm
		prov.DegradedReason = err.Error()
	} else if m.recentlyRelevant(shortMsgs, query) {
		prov.Tier = TierShortTerm
		prov.ShortTermCount = len(shortMsgs)
		return shortMsgs, prov
	}

	filter := m.buildDateFilter(query)

	records, err := m.longTerm.Search(ctx, query, longTermK, filter)
	if err != nil {
		log.Printf("memory: long-term search failed for session %s, returning short-term only: %v", m.sessionID, err)
		prov.Tier = DegradedLongTerm
		prov.DegradedReason = err.Error()
		prov.ShortTermCount = len(shortMsgs)
		return shortMsgs, prov
	}

	out := make([]types.ChatMessage, 0, len(shortMsgs)+len(records))
	out = append(out, shortMsgs...)
	for _, rec := range records {
		out = append(out, rec.AsMessage())
	}

	if prov.Tier != DegradedShortTerm {
		prov.Tier = TierHybrid
	}
	prov.ShortTermCount = len(shortMsgs)
	prov.LongTermCount = len(records)
	return out, prov
}

// AppendExchange records one user/assistant turn in the short-term log.
// Appends are synchronous so a subsequent FetchContext on the same session
// observes them in call order.
func (m *Manager) AppendExchange(ctx context.Context, userText, assistantText string) error {
	if err := m.shortTerm.Append(ctx, m.sessionID, types.RoleUser, userText); err != nil {
		return err
	}
	return m.shortTerm.Append(ctx, m.sessionID, types.RoleAssistant, assistantText)
}

// AppendAssistant records a single assistant-role message (pipeline status
// or error text) in the short-term log.
func (m *Manager) AppendAssistant(ctx context.Context, text string) error {
	return m.shortTerm.Append(ctx, m.sessionID, types.RoleAssistant, text)
}

// StoreSummary compacts the session's short-term log into one long-term
// record. The log is snapshotted first so compaction cannot race TTL
// expiry or a concurrent Clear. Transcripts of 100 characters or fewer are
// skipped silently. Failures are logged and never propagated: summarization
// must not block session teardown.
func (m *Manager) StoreSummary(ctx context.Context) {
	msgs, err := m.shortTerm.List(ctx, m.sessionID)
	if err != nil {
		log.Printf("memory: failed to read short-term log for summary of session %s: %v", m.sessionID, err)
		return
	}

	var parts []string
	for _, msg := range msgs {
		if msg.Content == "" {
			continue
		}
		parts = append(parts, msg.Content)
	}
	fullText := strings.Join(parts, "\n")

	if len(strings.TrimSpace(fullText)) <= summaryMinChars {
		return
	}

	meta := types.RecordMetadata{
		Date:      m.now().UTC().Format("2006-01-02"),
		Type:      types.RecordSummary,
		SessionID: m.sessionID,
		UserID:    m.userID,
	}
	if _, err := m.longTerm.Add(ctx, fullText, meta); err != nil {
		log.Printf("memory: failed to store summary for session %s: %v", m.sessionID, err)
	}
}

// recentlyRelevant reports whether query is a case-insensitive substring of
// any of the last recentWindow short-term entries.
func (m *Manager) recentlyRelevant(msgs []types.ChatMessage, query string) bool {
	if query == "" || len(msgs) == 0 {
		return false
	}
	q := strings.ToLower(query)

	start := len(msgs) - recentWindow
	if start < 0 {
		start = 0
	}
	for _, msg := range msgs[start:] {
		if strings.Contains(strings.ToLower(msg.Content), q) {
			return true
		}
	}
	return false
}

// buildDateFilter extracts a normalized date from the query, when present,
// as an exact-match metadata filter.
func (m *Manager) buildDateFilter(query string) *storage.SearchFilter {
	date, ok := m.dates.Extract(query)
	if !ok {
		return nil
	}
	return &storage.SearchFilter{Date: date}
}
