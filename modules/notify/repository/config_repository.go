package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hweber/secondbrain/modules/notify/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrTelegramNotConfigured is returned when no active bot config exists
var ErrTelegramNotConfigured = errors.New("telegram not configured")

// ConfigRepository implements ports.ConfigRepository
type ConfigRepository struct {
	pool *pgxpool.Pool
}

// NewConfigRepository creates a new notification config repository
func NewConfigRepository(pool *pgxpool.Pool) *ConfigRepository {
	return &ConfigRepository{pool: pool}
}

// GetTelegramConfig returns the active bot configuration
func (r *ConfigRepository) GetTelegramConfig(ctx context.Context) (*model.TelegramConfig, error) {
	query := `
		SELECT id, bot_token, chat_id, webhook_secret, is_active, updated_at
		FROM telegram_config
		WHERE is_active = TRUE
		ORDER BY id LIMIT 1
	`

	cfg := &model.TelegramConfig{}
	err := r.pool.QueryRow(ctx, query).Scan(
		&cfg.ID, &cfg.BotToken, &cfg.ChatID, &cfg.WebhookSecret, &cfg.IsActive, &cfg.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTelegramNotConfigured
		}
		return nil, err
	}
	return cfg, nil
}

// ListReportChannels returns the active channels for a report type
func (r *ConfigRepository) ListReportChannels(ctx context.Context, reportType string) ([]*model.ReportChannel, error) {
	query := `
		SELECT id, report_type, channel_type, recipients, is_active
		FROM report_channels
		WHERE report_type = $1 AND is_active = TRUE
	`

	rows, err := r.pool.Query(ctx, query, reportType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []*model.ReportChannel
	for rows.Next() {
		ch := &model.ReportChannel{}
		var recipients []byte
		if err := rows.Scan(&ch.ID, &ch.ReportType, &ch.ChannelType, &recipients, &ch.IsActive); err != nil {
			return nil, err
		}
		if len(recipients) > 0 {
			if err := json.Unmarshal(recipients, &ch.Recipients); err != nil {
				return nil, fmt.Errorf("decode recipients: %w", err)
			}
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}
