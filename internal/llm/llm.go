// Package llm provides a single chat abstraction over multiple model
// providers. Callers talk to the Client interface; the factory resolves
// provider implementations and API keys.
package llm

import "context"

// Role constants for chat messages
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a conversation
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ThinkingConfig enables extended thinking on providers that support it
type ThinkingConfig struct {
	BudgetTokens int `json:"budget_tokens"`
}

// ChatOptions carries the per-call knobs of the gateway
type ChatOptions struct {
	Model         string
	MaxTokens     int
	SystemPrompt  string
	Temperature   *float64
	TopP          *float64
	TopK          *int
	StopSequences []string
	Thinking      *ThinkingConfig
	Metadata      map[string]string
}

// Response is the normalised chat result across providers
type Response struct {
	Content      string `json:"content"`
	Model        string `json:"model"`
	Provider     string `json:"provider"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
	TotalTokens  int    `json:"total_tokens"`
	StopReason   string `json:"stop_reason"`
	Thinking     string `json:"thinking,omitempty"`
}

// Stream chunk types
const (
	ChunkTextDelta   = "text_delta"
	ChunkMessageStop = "message_stop"
)

// StreamChunk is one element of a streaming chat response. The terminal
// chunk has Type == ChunkMessageStop and carries the full Response with
// token totals.
type StreamChunk struct {
	Type     string
	Text     string
	Response *Response
}

// Client is the chat capability implemented per provider
type Client interface {
	Chat(ctx context.Context, messages []Message, opts ChatOptions) (*Response, error)
	ChatStream(ctx context.Context, messages []Message, opts ChatOptions) (<-chan StreamChunk, <-chan error)
}
