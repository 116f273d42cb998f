package driven

import "context"

// LLMService is the black-box text completion service used for follow-up
// question generation, model-based scope classification, and final note
// synthesis. No structured-output guarantee is assumed; callers validate
// defensively.
type LLMService interface {
	// Generate produces a completion for a single prompt under a system
	// instruction.
	Generate(ctx context.Context, system, prompt string, opts GenerateOptions) (string, error)

	// Chat conducts a multi-turn conversation.
	Chat(ctx context.Context, messages []ChatMessage, opts GenerateOptions) (string, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Close releases resources.
	Close() error
}

// GenerateOptions configures text generation behaviour.
type GenerateOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic).
	Temperature float64
}

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the message text.
	Content string
}
