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

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GoogleClient implements Client against the Gemini generateContent API.
// The system prompt travels as systemInstruction; history uses the
// user/model role pair.
type GoogleClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents          []geminiContent `json:"contents"`
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	GenerationConfig  struct {
		MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
		Temperature     *float64 `json:"temperature,omitempty"`
		TopP            *float64 `json:"topP,omitempty"`
		TopK            *int     `json:"topK,omitempty"`
		StopSequences   []string `json:"stopSequences,omitempty"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewGoogleClient creates a Gemini-backed chat client
func NewGoogleClient(apiKey string) *GoogleClient {
	return &GoogleClient{
		apiKey:  apiKey,
		baseURL: geminiBaseURL,
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

// Chat sends a single chat request
func (c *GoogleClient) Chat(ctx context.Context, messages []Message, opts ChatOptions) (*Response, error) {
	reqBody := geminiRequest{}
	if opts.SystemPrompt != "" {
		reqBody.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: opts.SystemPrompt}}}
	}
	for _, m := range messages {
		role := "user"
		if m.Role == RoleAssistant {
			role = "model"
		}
		reqBody.Contents = append(reqBody.Contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: m.Content}},
		})
	}
	reqBody.GenerationConfig.MaxOutputTokens = opts.MaxTokens
	reqBody.GenerationConfig.Temperature = opts.Temperature
	reqBody.GenerationConfig.TopP = opts.TopP
	reqBody.GenerationConfig.TopK = opts.TopK
	reqBody.GenerationConfig.StopSequences = opts.StopSequences

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, opts.Model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.client.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: "google", Message: err.Error()}
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &ProviderError{Provider: "google", Message: err.Error()}
	}

	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &ProviderError{Provider: "google", Status: httpResp.StatusCode, Message: "invalid response body"}
	}

	if httpResp.StatusCode != http.StatusOK {
		msg := string(body)
		if parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return nil, &ProviderError{Provider: "google", Status: httpResp.StatusCode, Message: msg}
	}

	if len(parsed.Candidates) == 0 {
		return nil, &ProviderError{Provider: "google", Message: "empty candidates"}
	}

	var content string
	for _, part := range parsed.Candidates[0].Content.Parts {
		content += part.Text
	}

	return &Response{
		Content:      content,
		Model:        opts.Model,
		Provider:     "google",
		InputTokens:  parsed.UsageMetadata.PromptTokenCount,
		OutputTokens: parsed.UsageMetadata.CandidatesTokenCount,
		TotalTokens:  parsed.UsageMetadata.TotalTokenCount,
		StopReason:   parsed.Candidates[0].FinishReason,
	}, nil
}

// ChatStream satisfies the streaming contract by performing a single
// request and emitting its content as one delta.
func (c *GoogleClient) ChatStream(ctx context.Context, messages []Message, opts ChatOptions) (<-chan StreamChunk, <-chan error) {
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
