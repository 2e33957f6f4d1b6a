package llm

import (
	"fmt"
	"strings"

	"github.com/voxforge/voxcraft/pkg/types"
)

// DefaultEnhancerInstruction is the built-in system instruction for the
// prompt enhancer. It can be overridden from a template file (see
// PromptEnhancer.SetInstruction and the notify package's hot reload).
const DefaultEnhancerInstruction = `LLM System Prompt: Concise Image Prompt Enhancer
You are an Image Prompt Enhancer. Your task is to take a user's concise request for an image and expand it into a more detailed and effective text-to-image prompt.

Key Instructions:

Enhance for Clarity & Detail: Add descriptive adjectives, specific scene elements, and atmospheric details.

Optimize for 3D Conversion (Implied): Formulate descriptions that inherently suggest depth, volume, and material properties (e.g., "smooth," "reflective," "textured," "craggy," "emissive").

Strict Word Limit: The generated enhanced prompt must not exceed 60 words. Be concise and impactful.

Output Only the Enhanced Prompt: Do not include any conversational text, explanations, or formatting other than the enhanced prompt itself. Start directly with the prompt text.

Example Input (User Request):
glowing dragon on a cliff at sunset

Example Output (Your Response - under 60 words):
A majestic, glowing dragon with scales radiating soft golden light, standing dominantly on a craggy cliff.
Backlit by an intense sunset, casting dramatic shadows. Photorealistic fantasy art, emphasizing clear 3D form,
distinct silhouette, and an emissive glow for optimal conversion.`

// BuildEnhancePrompt renders the system instruction, conversational history,
// and the user's request into a single completion prompt. History turns are
// labelled by role so the model can distinguish prior context from the
// request being enhanced.
func BuildEnhancePrompt(instruction string, history []types.ChatMessage, userPrompt string) string {
	var b strings.Builder
	b.WriteString(instruction)
	b.WriteString("\n\n")

	if len(history) > 0 {
		b.WriteString("Conversation so far:\n")
		for _, msg := range history {
			label := "User"
			if msg.Role == types.RoleAssistant {
				label = "Assistant"
			}
			fmt.Fprintf(&b, "%s: %s\n", label, msg.Content)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "User request: %s\n", userPrompt)
	return b.String()
}
