package provider

import "context"

// Request is a single completion request sent to a provider.
type Request struct {
	// SystemPrompt sets the system-level instructions
	SystemPrompt string

	// Prompt is the user message
	Prompt string

	// MaxTokens limits the response length. Zero uses the provider default.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic)
	Temperature float64
}

// Response is the text a provider returned for a Request.
type Response struct {
	Content      string
	Model        string
	FinishReason string
	InputTokens  int
	OutputTokens int
}

// Client is implemented by every LLM provider adapter.
// Implementations must be safe for concurrent use.
type Client interface {
	// Name is the provider identifier ("openai", "anthropic", "gemini").
	Name() string

	// Model is the model the provider sends requests to.
	Model() string

	// Complete sends one request and returns the full response.
	// Errors should be *Failure values where the adapter can classify them.
	Complete(ctx context.Context, req *Request) (*Response, error)
}

// Info describes a registered provider for listing endpoints.
type Info struct {
	Name  string `json:"name"`
	Model string `json:"model"`
}
