package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hweber/secondbrain/modules/sync/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SyncRepository provides sync_config and sync_log data access
type SyncRepository struct {
	pool *pgxpool.Pool
}

// NewSyncRepository creates a new sync repository
func NewSyncRepository(pool *pgxpool.Pool) *SyncRepository {
	return &SyncRepository{pool: pool}
}

func decodeCredentials(raw []byte) map[string]string {
	var generic map[string]interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return map[string]string{}
	}

	credentials := make(map[string]string, len(generic))
	for key, value := range generic {
		switch v := value.(type) {
		case string:
			credentials[key] = v
		case nil:
		default:
			credentials[key] = fmt.Sprintf("%v", v)
		}
	}
	return credentials
}

func scanConfig(row pgx.Row) (*model.Config, error) {
	cfg := &model.Config{}
	var credentials []byte
	err := row.Scan(&cfg.ID, &cfg.Provider, &cfg.Enabled, &cfg.SyncInterval, &credentials, &cfg.LastSync, &cfg.WriteCalendarID)
	if err != nil {
		return nil, err
	}
	cfg.Credentials = decodeCredentials(credentials)
	return cfg, nil
}

const configColumns = `id, provider, enabled, sync_interval, credentials, last_sync, write_calendar_id`

// GetConfig returns the enabled config of a provider
func (r *SyncRepository) GetConfig(ctx context.Context, provider string) (*model.Config, error) {
	cfg, err := scanConfig(r.pool.QueryRow(ctx,
		`SELECT `+configColumns+` FROM sync_config WHERE provider = $1 AND enabled = TRUE`, provider))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrProviderNotConfigured
		}
		return nil, err
	}
	return cfg, nil
}

// ListAll returns every provider config
func (r *SyncRepository) ListAll(ctx context.Context) ([]*model.Config, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+configColumns+` FROM sync_config ORDER BY provider`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []*model.Config
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}

// ListEnabled returns the enabled provider configs
func (r *SyncRepository) ListEnabled(ctx context.Context) ([]*model.Config, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+configColumns+` FROM sync_config WHERE enabled = TRUE ORDER BY provider`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []*model.Config
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}

// SaveSyncToken stores the token inside the provider's credentials
func (r *SyncRepository) SaveSyncToken(ctx context.Context, provider, token string) error {
	encoded, err := json.Marshal(token)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		UPDATE sync_config
		SET credentials = jsonb_set(credentials, '{sync_token}', $2::jsonb, true), updated_at = NOW()
		WHERE provider = $1
	`, provider, encoded)
	return err
}

// MarkSynced stamps the provider's last sync time
func (r *SyncRepository) MarkSynced(ctx context.Context, provider string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE sync_config SET last_sync = NOW(), updated_at = NOW() WHERE provider = $1`, provider)
	return err
}

// WriteLog records one sync log entry
func (r *SyncRepository) WriteLog(ctx context.Context, provider, direction, action, status string, details interface{}) error {
	var payload []byte
	if details != nil {
		encoded, err := json.Marshal(details)
		if err != nil {
			return err
		}
		payload = encoded
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO sync_log (provider, direction, action, status, details)
		VALUES ($1, $2, $3, $4, $5)
	`, provider, direction, action, status, payload)
	return err
}
