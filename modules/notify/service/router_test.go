package service

import (
	"context"
	"testing"

	"github.com/hweber/secondbrain/modules/notify/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockConfigRepository implements ports.ConfigRepository
type MockConfigRepository struct {
	Config   *model.TelegramConfig
	GetCalls int
	Channels []*model.ReportChannel
}

func (m *MockConfigRepository) GetTelegramConfig(ctx context.Context) (*model.TelegramConfig, error) {
	m.GetCalls++
	return m.Config, nil
}

func (m *MockConfigRepository) ListReportChannels(ctx context.Context, reportType string) ([]*model.ReportChannel, error) {
	return m.Channels, nil
}

func TestShouldSendToChannel(t *testing.T) {
	router := NewRouter(&MockConfigRepository{}, nil)

	telegram := router.NewContext(model.ChannelTelegram, "chat-1", nil)
	web := router.NewContext(model.ChannelWeb, "session-1", nil)

	// where asked, there answered
	assert.True(t, router.ShouldSendToChannel(telegram, model.ChannelTelegram))
	assert.False(t, router.ShouldSendToChannel(telegram, model.ChannelWeb))
	assert.True(t, router.ShouldSendToChannel(web, model.ChannelWeb))
	assert.False(t, router.ShouldSendToChannel(web, model.ChannelTelegram))
}

func TestNewContextDefaultsToWeb(t *testing.T) {
	router := NewRouter(&MockConfigRepository{}, nil)

	ctx := router.NewContext("", "id", nil)
	assert.Equal(t, model.ChannelWeb, ctx.Channel)
	assert.True(t, ctx.IsWeb())
}

func TestTelegramConfigCaching(t *testing.T) {
	repo := &MockConfigRepository{
		Config: &model.TelegramConfig{BotToken: "token", ChatID: "42", IsActive: true},
	}
	router := NewRouter(repo, nil)
	ctx := context.Background()

	first, err := router.TelegramConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, "42", first.ChatID)
	assert.Equal(t, 1, repo.GetCalls)

	// second read is served from the in-process cache
	_, err = router.TelegramConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.GetCalls)

	// invalidation forces a reload
	router.InvalidateCache(ctx)
	_, err = router.TelegramConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.GetCalls)
}
