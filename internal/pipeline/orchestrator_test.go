package pipeline

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxforge/voxcraft/internal/session"
	"github.com/voxforge/voxcraft/internal/storage"
	"github.com/voxforge/voxcraft/pkg/types"
)

type fakeShortTerm struct {
	logs map[string][]types.ChatMessage
}

func newFakeShortTerm() *fakeShortTerm {
	return &fakeShortTerm{logs: make(map[string][]types.ChatMessage)}
}

func (f *fakeShortTerm) Append(_ context.Context, sessionID string, role types.Role, content string) error {
	f.logs[sessionID] = append(f.logs[sessionID], types.ChatMessage{Role: role, Content: content, Timestamp: time.Now()})
	return nil
}

func (f *fakeShortTerm) List(_ context.Context, sessionID string) ([]types.ChatMessage, error) {
	return f.logs[sessionID], nil
}

func (f *fakeShortTerm) Clear(_ context.Context, sessionID string) error {
	delete(f.logs, sessionID)
	return nil
}

func (f *fakeShortTerm) Degraded() bool { return false }
func (f *fakeShortTerm) Close() error   { return nil }

type fakeLongTerm struct{}

func (f *fakeLongTerm) Add(_ context.Context, _ string, _ types.RecordMetadata) (string, error) {
	return "rec", nil
}

func (f *fakeLongTerm) Search(_ context.Context, _ string, _ int, _ *storage.SearchFilter) ([]types.MemoryRecord, error) {
	return []types.MemoryRecord{}, nil
}

func (f *fakeLongTerm) Close() error { return nil }

type fakeEnhancer struct {
	err error
}

func (f *fakeEnhancer) Enhance(_ context.Context, prompt string, _ []types.ChatMessage) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "enhanced: " + prompt, nil
}

type fakeImages struct {
	err   error
	calls int
}

func (f *fakeImages) GenerateImage(_ context.Context, _ string) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []byte("png-bytes"), nil
}

type fakeModels struct {
	err     error
	preview bool
}

func (f *fakeModels) GenerateModel(_ context.Context, _ string) (*Model3D, error) {
	if f.err != nil {
		return nil, f.err
	}
	m := &Model3D{Object: []byte("glb-bytes")}
	if f.preview {
		m.PreviewVideo = []byte("mp4-bytes")
	}
	return m, nil
}

type fixture struct {
	orchestrator *Orchestrator
	sessions     *session.Manager
	shortTerm    *fakeShortTerm
	images       *fakeImages
	models       *fakeModels
	enhancer     *fakeEnhancer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := newFakeShortTerm()
	sessions := session.NewManager(st, &fakeLongTerm{}, 30*time.Minute)
	images := &fakeImages{}
	models := &fakeModels{}
	enhancer := &fakeEnhancer{}
	return &fixture{
		orchestrator: NewOrchestrator(sessions, enhancer, images, models, nil),
		sessions:     sessions,
		shortTerm:    st,
		images:       images,
		models:       models,
		enhancer:     enhancer,
	}
}

func TestRunTurnSuccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result := f.orchestrator.RunTurn(ctx, "alice", "glowing dragon on a cliff")

	require.NoError(t, result.Err)
	assert.Contains(t, result.Message, "Successfully generated 3D model")
	assert.Contains(t, result.Message, result.SessionID)

	s := f.sessions.GetUserSession("alice")
	require.NotNil(t, s, "session must survive a successful turn")
	assert.Equal(t, result.SessionID, s.SessionID)

	// The raw exchange and the success message are all in short-term memory.
	log := f.shortTerm.logs[result.SessionID]
	require.Len(t, log, 3)
	assert.Equal(t, types.RoleUser, log[0].Role)
	assert.Equal(t, "glowing dragon on a cliff", log[0].Content)
	assert.Equal(t, "enhanced: glowing dragon on a cliff", log[1].Content)
	assert.Contains(t, log[2].Content, "Successfully generated")
}

func TestRunTurnReusesSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.orchestrator.RunTurn(ctx, "alice", "a red cube")
	second := f.orchestrator.RunTurn(ctx, "alice", "make it shinier")

	assert.Equal(t, first.SessionID, second.SessionID, "turns by the same user share a session")
}

func TestRunTurnAnonymousUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.orchestrator.RunTurn(ctx, "", "a blue sphere")
	second := f.orchestrator.RunTurn(ctx, "", "and a cone")

	assert.Equal(t, first.SessionID, second.SessionID, "anonymous turns share the default identity")
}

func TestRunTurnUpstreamFailureEndsSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.images.err = fmt.Errorf("%w: text-to-image: connection refused", ErrUpstream)

	result := f.orchestrator.RunTurn(ctx, "alice", "a dragon")

	assert.True(t, strings.HasPrefix(result.Message, "Error:"))
	assert.ErrorIs(t, result.Err, ErrUpstream)
	assert.Nil(t, f.sessions.GetUserSession("alice"), "upstream API failure must end the session")

	// The error message is still recorded for the (now ended) session's log.
	log := f.shortTerm.logs[result.SessionID]
	require.NotEmpty(t, log)
	assert.Contains(t, log[len(log)-1].Content, "Error:")
}

func TestRunTurnEmptyResultKeepsSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.models.err = fmt.Errorf("%w: no 3D model was generated", ErrEmptyResult)

	result := f.orchestrator.RunTurn(ctx, "alice", "a dragon")

	assert.True(t, strings.HasPrefix(result.Message, "Error:"))
	assert.ErrorIs(t, result.Err, ErrEmptyResult)
	assert.NotNil(t, f.sessions.GetUserSession("alice"),
		"a missing payload is fatal to the turn but must not end the session")
}

func TestRunTurnEnhancementFailureKeepsSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.enhancer.err = fmt.Errorf("model overloaded")

	result := f.orchestrator.RunTurn(ctx, "alice", "a dragon")

	assert.True(t, strings.HasPrefix(result.Message, "Error:"))
	assert.NotNil(t, f.sessions.GetUserSession("alice"))
	assert.Zero(t, f.images.calls, "generation must not run when enhancement fails")
}

func TestRunTurnTimedOutSession(t *testing.T) {
	st := newFakeShortTerm()
	sessions := session.NewManager(st, &fakeLongTerm{}, time.Millisecond)
	orchestrator := NewOrchestrator(sessions, &fakeEnhancer{}, &fakeImages{}, &fakeModels{}, nil)
	ctx := context.Background()

	s := sessions.CreateSession("alice")
	time.Sleep(5 * time.Millisecond)

	result := orchestrator.RunTurn(ctx, "alice", "a dragon")

	assert.Contains(t, result.Message, "timed out")
	assert.Equal(t, s.SessionID, result.SessionID)
	assert.Nil(t, sessions.GetUserSession("alice"), "timed-out session must be ended")

	// The next turn starts fresh.
	next := orchestrator.RunTurn(ctx, "alice", "a dragon")
	assert.NotEqual(t, s.SessionID, next.SessionID)
	assert.Contains(t, next.Message, "Successfully generated")
}

func TestRunTurnAlwaysAnswers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.images.err = fmt.Errorf("%w: boom", ErrUpstream)

	result := f.orchestrator.RunTurn(ctx, "alice", "a dragon")
	assert.NotEmpty(t, result.Message, "every turn must return a message")
}
