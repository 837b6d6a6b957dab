package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	platformredis "github.com/hweber/secondbrain/internal/platform/redis"
	"github.com/hweber/secondbrain/modules/settings/ports"
	"github.com/hweber/secondbrain/modules/settings/repository"
)

const (
	settingsCachePrefix = "settings:"
	settingsCacheTTL    = 60 * time.Second
	defaultLanguage     = "de"
)

// ConfigManager provides typed access to system settings and language
// mappings. Setting reads go through a Redis cache; writes update the DB and
// invalidate the key. Language mapping reads go to the repository uncached.
type ConfigManager struct {
	repo  ports.SettingsRepository
	cache *platformredis.Client
}

// NewConfigManager creates a new config manager. The cache may be nil, in
// which case every read hits the database.
func NewConfigManager(repo ports.SettingsRepository, cache *platformredis.Client) *ConfigManager {
	return &ConfigManager{repo: repo, cache: cache}
}

func (m *ConfigManager) cachedSetting(ctx context.Context, key string) (json.RawMessage, error) {
	cacheKey := settingsCachePrefix + key

	if m.cache != nil {
		cached, err := m.cache.Get(ctx, cacheKey).Bytes()
		if err == nil {
			return cached, nil
		}
		// redis.Nil means a plain miss; anything else falls through to the DB
	}

	value, err := m.repo.GetSetting(ctx, key)
	if err != nil {
		return nil, err
	}

	if m.cache != nil {
		m.cache.Set(ctx, cacheKey, []byte(value), settingsCacheTTL)
	}
	return value, nil
}

// GetString returns a string setting, or the default when missing
func (m *ConfigManager) GetString(ctx context.Context, key, defaultValue string) string {
	raw, err := m.cachedSetting(ctx, key)
	if err != nil {
		return defaultValue
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return defaultValue
	}
	return s
}

// GetFloat returns a numeric setting, or the default when missing
func (m *ConfigManager) GetFloat(ctx context.Context, key string, defaultValue float64) float64 {
	raw, err := m.cachedSetting(ctx, key)
	if err != nil {
		return defaultValue
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return defaultValue
	}
	return f
}

// GetInt returns an integer setting, or the default when missing
func (m *ConfigManager) GetInt(ctx context.Context, key string, defaultValue int) int {
	raw, err := m.cachedSetting(ctx, key)
	if err != nil {
		return defaultValue
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return defaultValue
	}
	return int(f)
}

// Set stores a setting and invalidates its cache entry
func (m *ConfigManager) Set(ctx context.Context, key string, value interface{}, description string) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if err := m.repo.SetSetting(ctx, key, raw, description); err != nil {
		return err
	}
	m.Invalidate(ctx, key)
	return nil
}

// Invalidate drops a setting from the cache
func (m *ConfigManager) Invalidate(ctx context.Context, key string) {
	if m.cache != nil {
		m.cache.Del(ctx, settingsCachePrefix+key)
	}
}

// Stopwords returns the stopword list for a language
func (m *ConfigManager) Stopwords(ctx context.Context) []string {
	raw, err := m.repo.GetMapping(ctx, "stopwords", "default", defaultLanguage)
	if err != nil {
		return nil
	}
	var words []string
	if err := json.Unmarshal(raw, &words); err != nil {
		return nil
	}
	return words
}

// CompletionKeywords returns the completion keyword list
func (m *ConfigManager) CompletionKeywords(ctx context.Context) []string {
	return m.keywordList(ctx, "completion")
}

// DeletionKeywords returns the deletion keyword list
func (m *ConfigManager) DeletionKeywords(ctx context.Context) []string {
	return m.keywordList(ctx, "deletion")
}

func (m *ConfigManager) keywordList(ctx context.Context, mappingType string) []string {
	raw, err := m.repo.GetMapping(ctx, mappingType, "default", defaultLanguage)
	if err != nil {
		return nil
	}
	var words []string
	if err := json.Unmarshal(raw, &words); err != nil {
		return nil
	}
	return words
}

// PriorityKeywords returns keyword lists keyed by priority bucket (high, low)
func (m *ConfigManager) PriorityKeywords(ctx context.Context) map[string][]string {
	raw, err := m.repo.GetAllMappings(ctx, "priority", defaultLanguage)
	if err != nil {
		return nil
	}
	result := make(map[string][]string, len(raw))
	for key, value := range raw {
		var words []string
		if err := json.Unmarshal(value, &words); err == nil {
			result[key] = words
		}
	}
	return result
}

// StatusKeywords returns per-status keyword lists for a category
func (m *ConfigManager) StatusKeywords(ctx context.Context, category string) map[string][]string {
	raw, err := m.repo.GetMapping(ctx, "status", category, defaultLanguage)
	if err != nil {
		return nil
	}
	var result map[string][]string
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil
	}
	return result
}

// IsMissing reports whether the error is the settings not-found sentinel
func IsMissing(err error) bool {
	return errors.Is(err, repository.ErrSettingNotFound)
}
