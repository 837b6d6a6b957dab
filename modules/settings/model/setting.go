package model

import (
	"encoding/json"
	"time"
)

// Language mapping types
const (
	MappingStopwords  = "stopwords"
	MappingPriority   = "priority"
	MappingCompletion = "completion"
	MappingDeletion   = "deletion"
	MappingDate       = "date"
)

// SystemSetting is one key/value pair of runtime configuration
type SystemSetting struct {
	Key         string          `json:"setting_key"`
	Value       json.RawMessage `json:"setting_value"`
	Description *string         `json:"description,omitempty"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// LanguageMapping binds a mapping key to a JSON value per language
type LanguageMapping struct {
	ID        int64           `json:"id"`
	Type      string          `json:"mapping_type"`
	Key       string          `json:"mapping_key"`
	Language  string          `json:"language"`
	Value     json.RawMessage `json:"mapping_value"`
	IsActive  bool            `json:"is_active"`
	UpdatedAt time.Time       `json:"updated_at"`
}
