package repository

import (
	"context"
	"errors"

	"github.com/hweber/secondbrain/modules/agents/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AgentConfigRepository implements ports.AgentConfigRepository
type AgentConfigRepository struct {
	pool *pgxpool.Pool
}

// NewAgentConfigRepository creates a new agent config repository
func NewAgentConfigRepository(pool *pgxpool.Pool) *AgentConfigRepository {
	return &AgentConfigRepository{pool: pool}
}

// GetByName loads an active agent config
func (r *AgentConfigRepository) GetByName(ctx context.Context, agentName string) (*model.AgentConfig, error) {
	query := `
		SELECT id, agent_name, provider, model, system_prompt, COALESCE(user_prompt_template, ''),
			input_schema, output_schema, retry_count, timeout_seconds, max_tokens, temperature,
			fallback_provider, fallback_model, is_active, total_calls, error_count, last_used_at,
			created_at, updated_at
		FROM agent_configs
		WHERE agent_name = $1 AND is_active = TRUE
	`

	cfg := &model.AgentConfig{}
	err := r.pool.QueryRow(ctx, query, agentName).Scan(
		&cfg.ID, &cfg.AgentName, &cfg.Provider, &cfg.Model, &cfg.SystemPrompt, &cfg.UserPromptTemplate,
		&cfg.InputSchema, &cfg.OutputSchema, &cfg.RetryCount, &cfg.TimeoutSeconds, &cfg.MaxTokens,
		&cfg.Temperature, &cfg.FallbackProvider, &cfg.FallbackModel, &cfg.IsActive,
		&cfg.TotalCalls, &cfg.ErrorCount, &cfg.LastUsedAt, &cfg.CreatedAt, &cfg.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrAgentConfigNotFound
		}
		return nil, err
	}
	return cfg, nil
}

// TrackCall bumps the call counters. Failures here never matter to callers.
func (r *AgentConfigRepository) TrackCall(ctx context.Context, agentName string, success bool) error {
	query := `
		UPDATE agent_configs
		SET total_calls = total_calls + 1,
			last_used_at = NOW(),
			updated_at = NOW()
		WHERE agent_name = $1
	`
	if !success {
		query = `
		UPDATE agent_configs
		SET total_calls = total_calls + 1,
			error_count = error_count + 1,
			last_used_at = NOW(),
			updated_at = NOW()
		WHERE agent_name = $1
	`
	}

	_, err := r.pool.Exec(ctx, query, agentName)
	return err
}

// Upsert inserts or replaces an agent config by name
func (r *AgentConfigRepository) Upsert(ctx context.Context, config *model.AgentConfig) error {
	query := `
		INSERT INTO agent_configs (agent_name, provider, model, system_prompt, user_prompt_template,
			input_schema, output_schema, retry_count, timeout_seconds, max_tokens, temperature,
			fallback_provider, fallback_model, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW(), NOW())
		ON CONFLICT (agent_name) DO UPDATE SET
			provider = EXCLUDED.provider,
			model = EXCLUDED.model,
			system_prompt = EXCLUDED.system_prompt,
			user_prompt_template = EXCLUDED.user_prompt_template,
			input_schema = EXCLUDED.input_schema,
			output_schema = EXCLUDED.output_schema,
			retry_count = EXCLUDED.retry_count,
			timeout_seconds = EXCLUDED.timeout_seconds,
			max_tokens = EXCLUDED.max_tokens,
			temperature = EXCLUDED.temperature,
			fallback_provider = EXCLUDED.fallback_provider,
			fallback_model = EXCLUDED.fallback_model,
			is_active = EXCLUDED.is_active,
			updated_at = NOW()
		RETURNING id
	`

	return r.pool.QueryRow(ctx, query,
		config.AgentName, config.Provider, config.Model, config.SystemPrompt, config.UserPromptTemplate,
		config.InputSchema, config.OutputSchema, config.RetryCount, config.TimeoutSeconds,
		config.MaxTokens, config.Temperature, config.FallbackProvider, config.FallbackModel,
		config.IsActive,
	).Scan(&config.ID)
}
