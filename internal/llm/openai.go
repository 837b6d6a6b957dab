package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const openAIBaseURL = "https://api.openai.com/v1"

// OpenAIClient implements Client against an OpenAI-style chat completions API
type OpenAIClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
	TopP        *float64        `json:"top_p,omitempty"`
	Stop        []string        `json:"stop,omitempty"`
}

type openAIResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      openAIMessage `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewOpenAIClient creates an OpenAI-style chat client
func NewOpenAIClient(apiKey string) *OpenAIClient {
	return &OpenAIClient{
		apiKey:  apiKey,
		baseURL: openAIBaseURL,
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        50,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
			Timeout: 120 * time.Second,
		},
	}
}

// Chat sends a single chat request. The system prompt is prepended as a
// system-role message.
func (c *OpenAIClient) Chat(ctx context.Context, messages []Message, opts ChatOptions) (*Response, error) {
	reqBody := openAIRequest{
		Model:       opts.Model,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		TopP:        opts.TopP,
		Stop:        opts.StopSequences,
	}

	if opts.SystemPrompt != "" {
		reqBody.Messages = append(reqBody.Messages, openAIMessage{Role: RoleSystem, Content: opts.SystemPrompt})
	}
	for _, m := range messages {
		reqBody.Messages = append(reqBody.Messages, openAIMessage{Role: m.Role, Content: m.Content})
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	httpResp, err := c.client.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: "openai", Message: err.Error()}
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &ProviderError{Provider: "openai", Message: err.Error()}
	}

	var parsed openAIResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &ProviderError{Provider: "openai", Status: httpResp.StatusCode, Message: "invalid response body"}
	}

	if httpResp.StatusCode != http.StatusOK {
		msg := string(body)
		if parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return nil, &ProviderError{Provider: "openai", Status: httpResp.StatusCode, Message: msg}
	}

	if len(parsed.Choices) == 0 {
		return nil, &ProviderError{Provider: "openai", Message: "empty choices"}
	}

	return &Response{
		Content:      parsed.Choices[0].Message.Content,
		Model:        parsed.Model,
		Provider:     "openai",
		InputTokens:  parsed.Usage.PromptTokens,
		OutputTokens: parsed.Usage.CompletionTokens,
		TotalTokens:  parsed.Usage.TotalTokens,
		StopReason:   parsed.Choices[0].FinishReason,
	}, nil
}

// ChatStream satisfies the streaming contract by performing a single
// request and emitting its content as one delta.
func (c *OpenAIClient) ChatStream(ctx context.Context, messages []Message, opts ChatOptions) (<-chan StreamChunk, <-chan error) {
	chunks := make(chan StreamChunk, 2)
	errs := make(chan error, 1)

	go func() {
		defer close(chunks)
		defer close(errs)

		resp, err := c.Chat(ctx, messages, opts)
		if err != nil {
			errs <- err
			return
		}
		chunks <- StreamChunk{Type: ChunkTextDelta, Text: resp.Content}
		chunks <- StreamChunk{Type: ChunkMessageStop, Response: resp}
	}()

	return chunks, errs
}
