package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/voxforge/voxcraft/pkg/types"
)

// Ensure *PromptEnhancer implements Enhancer at compile time.
var _ Enhancer = (*PromptEnhancer)(nil)

// PromptEnhancer expands a user's concise image request into a detailed
// text-to-image prompt using a TextGenerator. The system instruction is
// swappable at runtime so the template file can be hot-reloaded.
type PromptEnhancer struct {
	gen TextGenerator

	mu          sync.RWMutex
	instruction string
}

// NewPromptEnhancer creates an enhancer with the built-in instruction.
func NewPromptEnhancer(gen TextGenerator) *PromptEnhancer {
	return &PromptEnhancer{gen: gen, instruction: DefaultEnhancerInstruction}
}

// SetInstruction replaces the system instruction. Blank input restores the
// built-in default.
func (e *PromptEnhancer) SetInstruction(instruction string) {
	if strings.TrimSpace(instruction) == "" {
		instruction = DefaultEnhancerInstruction
	}
	e.mu.Lock()
	e.instruction = instruction
	e.mu.Unlock()
}

// Instruction returns the current system instruction.
func (e *PromptEnhancer) Instruction() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.instruction
}

// Enhance completes the enhancement prompt and returns the trimmed result.
// An empty completion is an error: the pipeline cannot generate an image
// from nothing.
func (e *PromptEnhancer) Enhance(ctx context.Context, prompt string, history []types.ChatMessage) (string, error) {
	full := BuildEnhancePrompt(e.Instruction(), history, prompt)

	enhanced, err := e.gen.Complete(ctx, full)
	if err != nil {
		return "", fmt.Errorf("prompt enhancement failed: %w", err)
	}

	enhanced = strings.TrimSpace(enhanced)
	if enhanced == "" {
		return "", fmt.Errorf("prompt enhancement returned empty output")
	}
	return enhanced, nil
}
