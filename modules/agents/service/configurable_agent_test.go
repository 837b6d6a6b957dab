package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hweber/secondbrain/internal/llm"
	"github.com/hweber/secondbrain/internal/platform/logger"
	"github.com/hweber/secondbrain/modules/agents/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockAgentConfigRepository implements ports.AgentConfigRepository
type MockAgentConfigRepository struct {
	GetByNameFunc func(ctx context.Context, agentName string) (*model.AgentConfig, error)
	TrackCalls    []bool
}

func (m *MockAgentConfigRepository) GetByName(ctx context.Context, agentName string) (*model.AgentConfig, error) {
	if m.GetByNameFunc != nil {
		return m.GetByNameFunc(ctx, agentName)
	}
	return nil, model.ErrAgentConfigNotFound
}

func (m *MockAgentConfigRepository) TrackCall(ctx context.Context, agentName string, success bool) error {
	m.TrackCalls = append(m.TrackCalls, success)
	return nil
}

func (m *MockAgentConfigRepository) Upsert(ctx context.Context, config *model.AgentConfig) error {
	return nil
}

// MockClient implements llm.Client
type MockClient struct {
	ChatFunc func(ctx context.Context, messages []llm.Message, opts llm.ChatOptions) (*llm.Response, error)
}

func (m *MockClient) Chat(ctx context.Context, messages []llm.Message, opts llm.ChatOptions) (*llm.Response, error) {
	return m.ChatFunc(ctx, messages, opts)
}

func (m *MockClient) ChatStream(ctx context.Context, messages []llm.Message, opts llm.ChatOptions) (<-chan llm.StreamChunk, <-chan error) {
	chunks := make(chan llm.StreamChunk)
	errs := make(chan error)
	close(chunks)
	close(errs)
	return chunks, errs
}

// MockFactory implements ClientFactory
type MockFactory struct {
	NewFunc func(ctx context.Context, provider, explicitKey string) (llm.Client, error)
}

func (m *MockFactory) New(ctx context.Context, provider, explicitKey string) (llm.Client, error) {
	return m.NewFunc(ctx, provider, explicitKey)
}

func testConfig() *model.AgentConfig {
	schema, _ := json.Marshal(map[string]interface{}{
		"intent": map[string]interface{}{"type": "string", "required": true},
	})
	return &model.AgentConfig{
		AgentName:          "intent_agent",
		Provider:           "anthropic",
		Model:              "claude-sonnet-4-20250514",
		SystemPrompt:       "classify",
		UserPromptTemplate: "Input: {text}",
		OutputSchema:       schema,
		RetryCount:         2,
		TimeoutSeconds:     5,
		MaxTokens:          256,
		Temperature:        0.2,
		IsActive:           true,
	}
}

func testLogger(t *testing.T) *logger.Logger {
	log, err := logger.New("error", "console")
	require.NoError(t, err)
	return log
}

func TestRenderTemplate(t *testing.T) {
	t.Run("simple substitution", func(t *testing.T) {
		result := RenderTemplate("Hallo {name}!", map[string]interface{}{"name": "Anna"})
		assert.Equal(t, "Hallo Anna!", result)
	})

	t.Run("maps and slices become JSON", func(t *testing.T) {
		result := RenderTemplate("Matches: {matches}", map[string]interface{}{
			"matches": []interface{}{map[string]interface{}{"id": 1}},
		})
		assert.Equal(t, `Matches: [{"id":1}]`, result)
	})

	t.Run("nil becomes null", func(t *testing.T) {
		result := RenderTemplate("Wert: {value}", map[string]interface{}{"value": nil})
		assert.Equal(t, "Wert: null", result)
	})

	t.Run("escaped braces survive", func(t *testing.T) {
		result := RenderTemplate(`Antworte als {{"intent": ...}} mit {text}`, map[string]interface{}{"text": "x"})
		assert.Equal(t, `Antworte als {"intent": ...} mit x`, result)
	})

	t.Run("numbers are stringified", func(t *testing.T) {
		result := RenderTemplate("Prio {p}", map[string]interface{}{"p": 2})
		assert.Equal(t, "Prio 2", result)
	})
}

func TestAgentExecute(t *testing.T) {
	newAgent := func(t *testing.T, client llm.Client, repo *MockAgentConfigRepository) *Agent {
		factory := &MockFactory{
			NewFunc: func(ctx context.Context, provider, explicitKey string) (llm.Client, error) {
				return client, nil
			},
		}
		agent, err := NewAgent(context.Background(), "intent_agent", repo, factory, testLogger(t))
		require.NoError(t, err)
		return agent
	}

	t.Run("parses and coerces the response", func(t *testing.T) {
		repo := &MockAgentConfigRepository{
			GetByNameFunc: func(ctx context.Context, name string) (*model.AgentConfig, error) {
				return testConfig(), nil
			},
		}
		client := &MockClient{
			ChatFunc: func(ctx context.Context, messages []llm.Message, opts llm.ChatOptions) (*llm.Response, error) {
				assert.Equal(t, "Input: Milch kaufen", messages[0].Content)
				return &llm.Response{Content: `{"intent": "create", "confidence": 0.9}`}, nil
			},
		}

		result, agentErr := newAgent(t, client, repo).Execute(context.Background(), map[string]interface{}{"text": "Milch kaufen"})
		require.Nil(t, agentErr)
		assert.Equal(t, "create", result["intent"])
		assert.Equal(t, []bool{true}, repo.TrackCalls)
	})

	t.Run("retries then succeeds", func(t *testing.T) {
		repo := &MockAgentConfigRepository{
			GetByNameFunc: func(ctx context.Context, name string) (*model.AgentConfig, error) {
				return testConfig(), nil
			},
		}
		calls := 0
		client := &MockClient{
			ChatFunc: func(ctx context.Context, messages []llm.Message, opts llm.ChatOptions) (*llm.Response, error) {
				calls++
				if calls == 1 {
					return nil, errors.New("transient")
				}
				return &llm.Response{Content: `{"intent": "update"}`}, nil
			},
		}

		result, agentErr := newAgent(t, client, repo).Execute(context.Background(), map[string]interface{}{"text": "x"})
		require.Nil(t, agentErr)
		assert.Equal(t, 2, calls)
		assert.Equal(t, "update", result["intent"])
	})

	t.Run("unparseable output returns PARSE_ERROR", func(t *testing.T) {
		repo := &MockAgentConfigRepository{
			GetByNameFunc: func(ctx context.Context, name string) (*model.AgentConfig, error) {
				return testConfig(), nil
			},
		}
		client := &MockClient{
			ChatFunc: func(ctx context.Context, messages []llm.Message, opts llm.ChatOptions) (*llm.Response, error) {
				return &llm.Response{Content: "Sorry, I cannot do that."}, nil
			},
		}

		result, agentErr := newAgent(t, client, repo).Execute(context.Background(), map[string]interface{}{"text": "x"})
		assert.Nil(t, result)
		require.NotNil(t, agentErr)
		assert.Equal(t, model.CodeParseError, agentErr.ErrorCode)
		assert.Equal(t, "intent_agent", agentErr.AgentName)
		assert.NotEmpty(t, agentErr.RawResponse)
	})

	t.Run("exhausted retries return AGENT_ERROR", func(t *testing.T) {
		repo := &MockAgentConfigRepository{
			GetByNameFunc: func(ctx context.Context, name string) (*model.AgentConfig, error) {
				cfg := testConfig()
				cfg.RetryCount = 1
				return cfg, nil
			},
		}
		client := &MockClient{
			ChatFunc: func(ctx context.Context, messages []llm.Message, opts llm.ChatOptions) (*llm.Response, error) {
				return nil, errors.New("provider down")
			},
		}

		result, agentErr := newAgent(t, client, repo).Execute(context.Background(), map[string]interface{}{"text": "x"})
		assert.Nil(t, result)
		require.NotNil(t, agentErr)
		assert.Equal(t, model.CodeAgentError, agentErr.ErrorCode)
		assert.Equal(t, []bool{false}, repo.TrackCalls)
	})

	t.Run("fallback provider rescues the call", func(t *testing.T) {
		fallbackProvider := "openai"
		fallbackModel := "gpt-4o"

		repo := &MockAgentConfigRepository{
			GetByNameFunc: func(ctx context.Context, name string) (*model.AgentConfig, error) {
				cfg := testConfig()
				cfg.RetryCount = 1
				cfg.FallbackProvider = &fallbackProvider
				cfg.FallbackModel = &fallbackModel
				return cfg, nil
			},
		}

		var providers []string
		factory := &MockFactory{
			NewFunc: func(ctx context.Context, provider, explicitKey string) (llm.Client, error) {
				providers = append(providers, provider)
				if provider == "anthropic" {
					return &MockClient{ChatFunc: func(ctx context.Context, m []llm.Message, o llm.ChatOptions) (*llm.Response, error) {
						return nil, errors.New("primary down")
					}}, nil
				}
				return &MockClient{ChatFunc: func(ctx context.Context, m []llm.Message, o llm.ChatOptions) (*llm.Response, error) {
					assert.Equal(t, "gpt-4o", o.Model)
					return &llm.Response{Content: `{"intent": "create"}`}, nil
				}}, nil
			},
		}

		agent, err := NewAgent(context.Background(), "intent_agent", repo, factory, testLogger(t))
		require.NoError(t, err)

		result, agentErr := agent.Execute(context.Background(), map[string]interface{}{"text": "x"})
		require.Nil(t, agentErr)
		assert.Equal(t, "create", result["intent"])
		assert.Equal(t, []string{"anthropic", "openai"}, providers)
	})
}
