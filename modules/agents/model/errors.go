package model

import "errors"

var (
	// ErrAgentConfigNotFound is returned for unknown or inactive agents
	ErrAgentConfigNotFound = errors.New("agent config not found or inactive")

	// ErrNoPromptTemplate is returned when an agent has no user prompt template
	ErrNoPromptTemplate = errors.New("no user_prompt_template configured")
)
