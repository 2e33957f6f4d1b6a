// Package llm provides the language-model collaborators of the generation
// pipeline: prompt-enhancement completion and text embedding. Both are
// opaque external services reached over HTTP; all calls are wrapped with
// circuit breaker protection.
package llm

import (
	"context"

	"github.com/voxforge/voxcraft/pkg/types"
)

// TextGenerator is the interface for LLM text completion.
// Prompt enhancement uses single-string completion style (not chat); the
// conversational history is rendered into the prompt by BuildEnhancePrompt.
type TextGenerator interface {
	Complete(ctx context.Context, prompt string) (string, error)
	GetModel() string
}

// EmbeddingGenerator is the interface for generating vector embeddings.
// The output length is fixed per model; long-term stores pin their
// dimension to it at construction.
type EmbeddingGenerator interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	GetModel() string
}

// Enhancer turns a raw user prompt plus conversational context into an
// enhanced text-to-image prompt.
type Enhancer interface {
	Enhance(ctx context.Context, prompt string, history []types.ChatMessage) (string, error)
}
