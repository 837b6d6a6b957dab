package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrSettingNotFound is returned when a setting or mapping does not exist
var ErrSettingNotFound = errors.New("setting not found")

// SettingsRepository implements ports.SettingsRepository
type SettingsRepository struct {
	pool *pgxpool.Pool
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(pool *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

// GetSetting returns the raw JSON value of a system setting
func (r *SettingsRepository) GetSetting(ctx context.Context, key string) (json.RawMessage, error) {
	var value []byte
	err := r.pool.QueryRow(ctx,
		`SELECT setting_value FROM system_settings WHERE setting_key = $1`,
		key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSettingNotFound
		}
		return nil, err
	}
	return value, nil
}

// SetSetting upserts a system setting
func (r *SettingsRepository) SetSetting(ctx context.Context, key string, value json.RawMessage, description string) error {
	query := `
		INSERT INTO system_settings (setting_key, setting_value, description, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (setting_key)
		DO UPDATE SET setting_value = $2, updated_at = NOW()
	`

	_, err := r.pool.Exec(ctx, query, key, value, description)
	return err
}

// GetMapping returns the raw JSON value of one active language mapping
func (r *SettingsRepository) GetMapping(ctx context.Context, mappingType, mappingKey, language string) (json.RawMessage, error) {
	var value []byte
	err := r.pool.QueryRow(ctx, `
		SELECT mapping_value FROM language_mappings
		WHERE mapping_type = $1 AND mapping_key = $2 AND language = $3 AND is_active = TRUE
	`, mappingType, mappingKey, language).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSettingNotFound
		}
		return nil, err
	}
	return value, nil
}

// GetAllMappings returns all active mappings of a type keyed by mapping_key
func (r *SettingsRepository) GetAllMappings(ctx context.Context, mappingType, language string) (map[string]json.RawMessage, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT mapping_key, mapping_value FROM language_mappings
		WHERE mapping_type = $1 AND language = $2 AND is_active = TRUE
	`, mappingType, language)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	mappings := make(map[string]json.RawMessage)
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		mappings[key] = value
	}
	return mappings, rows.Err()
}
