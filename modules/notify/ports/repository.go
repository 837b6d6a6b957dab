package ports

import (
	"context"

	"github.com/hweber/secondbrain/modules/notify/model"
)

// ConfigRepository defines data access for notification configuration
type ConfigRepository interface {
	GetTelegramConfig(ctx context.Context) (*model.TelegramConfig, error)
	ListReportChannels(ctx context.Context, reportType string) ([]*model.ReportChannel, error)
}
