package ports

import (
	"context"
	"encoding/json"
)

// SettingsRepository defines the interface for settings data access
type SettingsRepository interface {
	GetSetting(ctx context.Context, key string) (json.RawMessage, error)
	SetSetting(ctx context.Context, key string, value json.RawMessage, description string) error
	GetMapping(ctx context.Context, mappingType, mappingKey, language string) (json.RawMessage, error)
	GetAllMappings(ctx context.Context, mappingType, language string) (map[string]json.RawMessage, error)
}
