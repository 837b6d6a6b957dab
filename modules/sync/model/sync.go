package model

import (
	"errors"
	"time"
)

// Sync directions
const (
	DirectionPull = "pull"
	DirectionPush = "push"
)

// ErrProviderNotConfigured is returned when no enabled config row exists
var ErrProviderNotConfigured = errors.New("sync provider not configured")

// Config is one provider's sync configuration. The credentials carry the
// provider-specific secrets plus the optional sync token.
type Config struct {
	ID              int64             `json:"id"`
	Provider        string            `json:"provider"`
	Enabled         bool              `json:"enabled"`
	SyncInterval    int               `json:"sync_interval"`
	Credentials     map[string]string `json:"-"`
	LastSync        *time.Time        `json:"last_sync,omitempty"`
	WriteCalendarID *string           `json:"write_calendar_id,omitempty"`
}

// SyncToken returns the token stored inside the credentials
func (c *Config) SyncToken() string {
	return c.Credentials["sync_token"]
}

// Stats counts the outcome of one sync run
type Stats struct {
	Pulled    int `json:"pulled"`
	Pushed    int `json:"pushed"`
	Deleted   int `json:"deleted"`
	Conflicts int `json:"conflicts"`
	Errors    int `json:"errors"`
}

// ProviderStatus is the admin view of one provider
type ProviderStatus struct {
	Provider string     `json:"provider"`
	Enabled  bool       `json:"enabled"`
	LastSync *time.Time `json:"last_sync,omitempty"`
	Interval int        `json:"interval"`
}
