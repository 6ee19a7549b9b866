package llm

import (
	"context"
	"errors"
)

// Message roles understood by the chat completions API.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var (
	// ErrContextLengthExceeded is returned when the provider rejects a request
	// because the prompt does not fit the model's context window.
	ErrContextLengthExceeded = errors.New("context length exceeded")

	// ErrRateLimited is returned for provider 429 responses.
	ErrRateLimited = errors.New("rate limited")
)

// Config holds LLM client configuration.
type Config struct {
	APIKey     string // Required: API key for the provider
	BaseURL    string // Optional: custom API endpoint
	Model      string // Model name (e.g., "gpt-4.1")
	MaxTokens  int    // Optional: completion token cap for streamed replies
	MaxRetries *int   // Optional: SDK retry count, nil keeps the SDK default
}

// StreamClient is the narrow surface the reply path depends on.
type StreamClient interface {
	Stream(ctx context.Context, messages []Message) (<-chan Chunk, error)
}

// Client is the model client used by the reply path (Stream), the intent
// classifier (Chat) and the reaction translator (Complete).
type Client interface {
	StreamClient
	Chat(ctx context.Context, req Request, result any) (*Response, error)
	Complete(ctx context.Context, messages []Message) (string, error)
	Model() string
}

// Request is a structured-output request answered with JSON matching Schema.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	SchemaName   string
	Schema       any
	MaxTokens    int
	Temperature  *float64 // nil = model default, explicit 0 = deterministic
}

type Response struct {
	PromptTokens     int
	CompletionTokens int
}

// PartType distinguishes text from image parts in a multimodal message.
type PartType string

const (
	PartText  PartType = "text"
	PartImage PartType = "image"
)

// Part is one element of a multimodal user message.
type Part struct {
	Type     PartType
	Text     string
	ImageURL string // https or data: URL
}

// Message represents a conversation message.
type Message struct {
	Role    string // "system", "user", "assistant"
	Content string // Text content, ignored when Parts is set
	Parts   []Part // Multimodal content (user messages only)
}

// Chunk is one element of a streamed completion. A chunk with Err set is the
// last value sent before the channel closes; a clean end of stream just closes.
type Chunk struct {
	Text string
	Err  error
}
