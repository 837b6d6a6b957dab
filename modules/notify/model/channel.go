package model

import "time"

// Channel types
const (
	ChannelWeb      = "web"
	ChannelTelegram = "telegram"
	ChannelEmail    = "email"
)

// ChannelContext identifies where a request came from. Responses are only
// ever routed back to the originating channel.
type ChannelContext struct {
	Channel   string                 `json:"channel"`
	ChannelID string                 `json:"channel_id"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// IsTelegram reports whether this is a Telegram context
func (c ChannelContext) IsTelegram() bool {
	return c.Channel == ChannelTelegram
}

// IsWeb reports whether this is a web context
func (c ChannelContext) IsWeb() bool {
	return c.Channel == ChannelWeb
}

// NotificationResult reports the outcome of one delivery attempt.
// Delivery failures are returned, never raised into caller paths.
type NotificationResult struct {
	Success bool   `json:"success"`
	Channel string `json:"channel"`
	Error   string `json:"error,omitempty"`
}

// TelegramConfig is the DB-stored bot configuration
type TelegramConfig struct {
	ID            int64     `json:"id"`
	BotToken      string    `json:"bot_token"`
	ChatID        string    `json:"chat_id"`
	WebhookSecret *string   `json:"webhook_secret,omitempty"`
	IsActive      bool      `json:"is_active"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ReportChannel binds a report type to recipients on one channel
type ReportChannel struct {
	ID          int64    `json:"id"`
	ReportType  string   `json:"report_type"`
	ChannelType string   `json:"channel_type"`
	Recipients  []string `json:"recipients"`
	IsActive    bool     `json:"is_active"`
}
