package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hweber/secondbrain/internal/llm"
	"github.com/hweber/secondbrain/internal/platform/logger"
	"github.com/hweber/secondbrain/modules/agents/model"
	"github.com/hweber/secondbrain/modules/agents/parser"
	"github.com/hweber/secondbrain/modules/agents/ports"
	"go.uber.org/zap"
)

// ClientFactory builds chat clients per provider
type ClientFactory interface {
	New(ctx context.Context, provider, explicitKey string) (llm.Client, error)
}

// Agent binds a DB-stored prompt template, schema and retry policy to an
// LLM call. Configuration is loaded at construction and hot-reloadable.
type Agent struct {
	name    string
	repo    ports.AgentConfigRepository
	factory ClientFactory
	log     *logger.Logger

	mu     sync.RWMutex
	cfg    *model.AgentConfig
	schema parser.Schema
}

// NewAgent loads the named agent's configuration and returns the agent
func NewAgent(ctx context.Context, name string, repo ports.AgentConfigRepository, factory ClientFactory, log *logger.Logger) (*Agent, error) {
	a := &Agent{
		name:    name,
		repo:    repo,
		factory: factory,
		log:     log.WithAgent(name),
	}
	if err := a.Reload(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

// Name returns the agent's configured name
func (a *Agent) Name() string {
	return a.name
}

// Reload re-reads the configuration from the database
func (a *Agent) Reload(ctx context.Context) error {
	cfg, err := a.repo.GetByName(ctx, a.name)
	if err != nil {
		return err
	}
	schema, err := cfg.ParsedOutputSchema()
	if err != nil {
		return fmt.Errorf("invalid output schema for %s: %w", a.name, err)
	}

	a.mu.Lock()
	a.cfg = cfg
	a.schema = schema
	a.mu.Unlock()
	return nil
}

// RenderTemplate substitutes {placeholder} occurrences with context values.
// Maps and slices are serialised as JSON, nil becomes the literal null, and
// escaped braces {{ }} survive as { }.
func RenderTemplate(template string, context map[string]interface{}) string {
	result := template

	for key, value := range context {
		placeholder := "{" + key + "}"

		var replacement string
		switch v := value.(type) {
		case nil:
			replacement = "null"
		case string:
			replacement = v
		case map[string]interface{}, []interface{}, []string, []map[string]interface{}:
			encoded, err := json.Marshal(v)
			if err != nil {
				replacement = fmt.Sprintf("%v", v)
			} else {
				replacement = string(encoded)
			}
		default:
			replacement = fmt.Sprintf("%v", v)
		}

		result = strings.ReplaceAll(result, placeholder, replacement)
	}

	result = strings.ReplaceAll(result, "{{", "{")
	result = strings.ReplaceAll(result, "}}", "}")
	return result
}

// Execute runs the agent with the given template context. The returned
// map is the parsed, schema-coerced output; a non-nil AgentError reports
// a structured failure instead.
func (a *Agent) Execute(ctx context.Context, templateContext map[string]interface{}) (map[string]interface{}, *model.AgentError) {
	a.mu.RLock()
	cfg := a.cfg
	schema := a.schema
	a.mu.RUnlock()

	if cfg.UserPromptTemplate == "" {
		return nil, &model.AgentError{
			Error:        model.ErrNoPromptTemplate.Error(),
			ErrorCode:    model.CodeAgentError,
			ErrorMessage: model.ErrNoPromptTemplate.Error(),
			AgentName:    a.name,
		}
	}

	userPrompt := RenderTemplate(cfg.UserPromptTemplate, templateContext)

	response, err := a.callWithRetry(ctx, cfg, userPrompt)
	if err != nil && cfg.FallbackProvider != nil && cfg.FallbackModel != nil {
		a.log.Warn("primary model failed, trying fallback",
			zap.String("fallback_provider", *cfg.FallbackProvider),
			zap.String("fallback_model", *cfg.FallbackModel),
			zap.Error(err),
		)
		response, err = a.callOnce(ctx, cfg, *cfg.FallbackProvider, *cfg.FallbackModel, userPrompt)
	}

	a.track(ctx, err == nil)

	if err != nil {
		return nil, &model.AgentError{
			Error:        "Agent execution failed",
			ErrorCode:    model.CodeAgentError,
			ErrorMessage: err.Error(),
			AgentName:    a.name,
		}
	}

	parsed := parser.ParseJSON(response.Content, schema)
	if !parsed.Success || parsed.Object() == nil {
		return nil, &model.AgentError{
			Error:        "JSON parsing failed",
			ErrorCode:    model.CodeParseError,
			ErrorMessage: fmt.Sprintf("JSON parsing failed: %v", parsed.Errors),
			RawResponse:  truncate(response.Content, 500),
			AgentName:    a.name,
		}
	}

	return parsed.Object(), nil
}

func (a *Agent) callWithRetry(ctx context.Context, cfg *model.AgentConfig, userPrompt string) (*llm.Response, error) {
	var lastErr error

	attempts := cfg.RetryCount
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		response, err := a.callOnce(ctx, cfg, cfg.Provider, cfg.Model, userPrompt)
		if err == nil {
			return response, nil
		}
		lastErr = err

		if attempt < attempts {
			// linear backoff
			select {
			case <-time.After(time.Duration(attempt) * time.Second):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return nil, lastErr
}

func (a *Agent) callOnce(ctx context.Context, cfg *model.AgentConfig, provider, modelName, userPrompt string) (*llm.Response, error) {
	client, err := a.factory.New(ctx, provider, "")
	if err != nil {
		return nil, err
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	temperature := cfg.Temperature
	return client.Chat(callCtx,
		[]llm.Message{{Role: llm.RoleUser, Content: userPrompt}},
		llm.ChatOptions{
			Model:        modelName,
			MaxTokens:    cfg.MaxTokens,
			SystemPrompt: cfg.SystemPrompt,
			Temperature:  &temperature,
		},
	)
}

func (a *Agent) track(ctx context.Context, success bool) {
	if err := a.repo.TrackCall(ctx, a.name, success); err != nil {
		a.log.Warn("agent call tracking failed", zap.Error(err))
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
