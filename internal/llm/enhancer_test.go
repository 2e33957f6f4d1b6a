package llm

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxforge/voxcraft/pkg/types"
)

type stubGenerator struct {
	response   string
	err        error
	lastPrompt string
}

func (s *stubGenerator) Complete(_ context.Context, prompt string) (string, error) {
	s.lastPrompt = prompt
	return s.response, s.err
}

func (s *stubGenerator) GetModel() string { return "stub-model" }

func TestEnhanceTrimsCompletion(t *testing.T) {
	gen := &stubGenerator{response: "  A majestic glowing dragon.  \n"}
	e := NewPromptEnhancer(gen)

	out, err := e.Enhance(context.Background(), "glowing dragon", nil)
	require.NoError(t, err)
	assert.Equal(t, "A majestic glowing dragon.", out)
}

func TestEnhanceEmptyCompletionIsError(t *testing.T) {
	gen := &stubGenerator{response: "   \n"}
	e := NewPromptEnhancer(gen)

	_, err := e.Enhance(context.Background(), "glowing dragon", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestEnhanceWrapsGeneratorError(t *testing.T) {
	gen := &stubGenerator{err: fmt.Errorf("model overloaded")}
	e := NewPromptEnhancer(gen)

	_, err := e.Enhance(context.Background(), "glowing dragon", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prompt enhancement failed")
}

func TestEnhanceIncludesHistoryAndInstruction(t *testing.T) {
	gen := &stubGenerator{response: "ok"}
	e := NewPromptEnhancer(gen)
	history := []types.ChatMessage{
		{Role: types.RoleUser, Content: "I like pizza"},
		{Role: types.RoleAssistant, Content: "Noted."},
	}

	_, err := e.Enhance(context.Background(), "my favorite food as a sculpture", history)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(gen.lastPrompt, DefaultEnhancerInstruction))
	assert.Contains(t, gen.lastPrompt, "User: I like pizza")
	assert.Contains(t, gen.lastPrompt, "Assistant: Noted.")
	assert.Contains(t, gen.lastPrompt, "User request: my favorite food as a sculpture")
}

func TestSetInstruction(t *testing.T) {
	gen := &stubGenerator{response: "ok"}
	e := NewPromptEnhancer(gen)

	e.SetInstruction("Custom instruction.")
	assert.Equal(t, "Custom instruction.", e.Instruction())

	_, err := e.Enhance(context.Background(), "a cube", nil)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(gen.lastPrompt, "Custom instruction."))

	// Blank input restores the built-in default.
	e.SetInstruction("   ")
	assert.Equal(t, DefaultEnhancerInstruction, e.Instruction())
}

func TestBuildEnhancePromptNoHistory(t *testing.T) {
	out := BuildEnhancePrompt("Instr.", nil, "a red cube")
	assert.Equal(t, "Instr.\n\nUser request: a red cube\n", out)
	assert.NotContains(t, out, "Conversation so far")
}

func TestCircuitBreakerTripsAfterConsecutiveFailures(t *testing.T) {
	cb := NewCircuitBreakerWithConfig(CircuitBreakerConfig{
		Name:                 "test",
		MaxFailures:          3,
		Timeout:              time.Minute,
		HalfOpenMaxSuccesses: 1,
	})
	ctx := context.Background()
	boom := fmt.Errorf("boom")
	fail := func() (interface{}, error) { return nil, boom }

	for i := 0; i < 3; i++ {
		_, err := cb.Execute(ctx, fail)
		assert.ErrorIs(t, err, boom, "call %d passes through while closed", i)
	}

	// The circuit is now open: the function must not run.
	called := false
	_, err := cb.Execute(ctx, func() (interface{}, error) {
		called = true
		return nil, nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)

	m := cb.Metrics()
	assert.Equal(t, uint64(4), m.TotalRequests)
	assert.Equal(t, uint64(4), m.TotalFailures)
}

func TestCircuitBreakerSuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreakerWithConfig(CircuitBreakerConfig{
		Name:                 "test",
		MaxFailures:          3,
		Timeout:              time.Minute,
		HalfOpenMaxSuccesses: 1,
	})
	ctx := context.Background()
	boom := fmt.Errorf("boom")

	for i := 0; i < 2; i++ {
		_, _ = cb.Execute(ctx, func() (interface{}, error) { return nil, boom })
	}
	result, err := cb.Execute(ctx, func() (interface{}, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", result)

	// Two more failures still do not reach the trip threshold.
	for i := 0; i < 2; i++ {
		_, err := cb.Execute(ctx, func() (interface{}, error) { return nil, boom })
		assert.ErrorIs(t, err, boom)
	}
}

func TestCircuitBreakerCancelledContext(t *testing.T) {
	cb := NewCircuitBreaker("test")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	_, err := cb.Execute(ctx, func() (interface{}, error) {
		called = true
		return nil, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
