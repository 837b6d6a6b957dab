package model

import (
	"encoding/json"
	"time"

	"github.com/hweber/secondbrain/modules/agents/parser"
)

// Well-known agent names
const (
	AgentIntent          = "intent_agent"
	AgentStructure       = "structure_agent"
	AgentQueryClassifier = "query_classifier"
	AgentQuery           = "query_agent"
	AgentEdit            = "edit_agent"
	AgentDailyReport     = "daily_report_agent"
	AgentWeeklyReport    = "weekly_report_agent"
)

// AgentConfig is the DB-stored configuration of one named agent
type AgentConfig struct {
	ID                 int64           `json:"id"`
	AgentName          string          `json:"agent_name"`
	Provider           string          `json:"provider"`
	Model              string          `json:"model"`
	SystemPrompt       string          `json:"system_prompt"`
	UserPromptTemplate string          `json:"user_prompt_template"`
	InputSchema        json.RawMessage `json:"input_schema,omitempty"`
	OutputSchema       json.RawMessage `json:"output_schema,omitempty"`
	RetryCount         int             `json:"retry_count"`
	TimeoutSeconds     int             `json:"timeout_seconds"`
	MaxTokens          int             `json:"max_tokens"`
	Temperature        float64         `json:"temperature"`
	FallbackProvider   *string         `json:"fallback_provider,omitempty"`
	FallbackModel      *string         `json:"fallback_model,omitempty"`
	IsActive           bool            `json:"is_active"`
	TotalCalls         int64           `json:"total_calls"`
	ErrorCount         int64           `json:"error_count"`
	LastUsedAt         *time.Time      `json:"last_used_at,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// ParsedOutputSchema decodes the stored output schema into parser rules
func (c *AgentConfig) ParsedOutputSchema() (parser.Schema, error) {
	if len(c.OutputSchema) == 0 {
		return nil, nil
	}
	var schema parser.Schema
	if err := json.Unmarshal(c.OutputSchema, &schema); err != nil {
		return nil, err
	}
	return schema, nil
}

// AgentError is the structured failure an agent returns instead of data
type AgentError struct {
	Error        string `json:"error"`
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message,omitempty"`
	RawResponse  string `json:"raw_response,omitempty"`
	AgentName    string `json:"agent_name"`
}

// Agent error codes
const (
	CodeAgentError = "AGENT_ERROR"
	CodeParseError = "PARSE_ERROR"
)
