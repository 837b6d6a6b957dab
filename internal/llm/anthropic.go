package llm

import (
	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicClient implements Client against the Anthropic Messages API
type AnthropicClient struct {
	client anthropic.Client
}

// NewAnthropicClient creates an Anthropic-backed chat client
func NewAnthropicClient(apiKey string) *AnthropicClient {
	return &AnthropicClient{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
	}
}

func (c *AnthropicClient) buildParams(messages []Message, opts ChatOptions) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(opts.Model),
		MaxTokens: int64(opts.MaxTokens),
	}

	var history []anthropic.MessageParam
	for _, m := range messages {
		switch m.Role {
		case RoleAssistant:
			history = append(history, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			history = append(history, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	params.Messages = history

	if opts.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: opts.SystemPrompt}}
	}
	if opts.Temperature != nil {
		params.Temperature = anthropic.Float(*opts.Temperature)
	}
	if opts.TopP != nil {
		params.TopP = anthropic.Float(*opts.TopP)
	}
	if opts.TopK != nil {
		params.TopK = anthropic.Int(int64(*opts.TopK))
	}
	if len(opts.StopSequences) > 0 {
		params.StopSequences = opts.StopSequences
	}
	if opts.Thinking != nil {
		params.Thinking = anthropic.ThinkingConfigParamOfEnabled(int64(opts.Thinking.BudgetTokens))
		// extended thinking requires temperature 1.0
		params.Temperature = anthropic.Float(1.0)
	}

	return params
}

// Chat sends a single chat request
func (c *AnthropicClient) Chat(ctx context.Context, messages []Message, opts ChatOptions) (*Response, error) {
	params := c.buildParams(messages, opts)

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, &ProviderError{Provider: "anthropic", Message: err.Error()}
	}

	resp := &Response{
		Model:      string(msg.Model),
		Provider:   "anthropic",
		StopReason: string(msg.StopReason),
	}
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			resp.Content += block.Text
		case "thinking":
			resp.Thinking += block.Thinking
		}
	}
	resp.InputTokens = int(msg.Usage.InputTokens)
	resp.OutputTokens = int(msg.Usage.OutputTokens)
	resp.TotalTokens = resp.InputTokens + resp.OutputTokens

	return resp, nil
}

// ChatStream streams text deltas, terminated by a message_stop chunk with totals
func (c *AnthropicClient) ChatStream(ctx context.Context, messages []Message, opts ChatOptions) (<-chan StreamChunk, <-chan error) {
	chunks := make(chan StreamChunk, 16)
	errs := make(chan error, 1)

	go func() {
		defer close(chunks)
		defer close(errs)

		stream := c.client.Messages.NewStreaming(ctx, c.buildParams(messages, opts))
		acc := anthropic.Message{}

		for stream.Next() {
			event := stream.Current()
			if err := acc.Accumulate(event); err != nil {
				errs <- &ProviderError{Provider: "anthropic", Message: err.Error()}
				return
			}

			if event.Type == "content_block_delta" && event.Delta.Type == "text_delta" {
				select {
				case chunks <- StreamChunk{Type: ChunkTextDelta, Text: event.Delta.Text}:
				case <-ctx.Done():
					errs <- ctx.Err()
					return
				}
			}
		}

		if err := stream.Err(); err != nil {
			errs <- &ProviderError{Provider: "anthropic", Message: err.Error()}
			return
		}

		final := &Response{
			Model:        string(acc.Model),
			Provider:     "anthropic",
			StopReason:   string(acc.StopReason),
			InputTokens:  int(acc.Usage.InputTokens),
			OutputTokens: int(acc.Usage.OutputTokens),
		}
		final.TotalTokens = final.InputTokens + final.OutputTokens
		for _, block := range acc.Content {
			if block.Type == "text" {
				final.Content += block.Text
			}
		}

		chunks <- StreamChunk{Type: ChunkMessageStop, Response: final}
	}()

	return chunks, errs
}
