package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hweber/secondbrain/internal/platform/logger"
	"github.com/hweber/secondbrain/modules/notify/model"
	"go.uber.org/zap"
)

const telegramAPIBase = "https://api.telegram.org"

// NotificationService delivers messages to Telegram and generic webhooks.
// Failures come back as a NotificationResult, never as an error the caller
// has to handle.
type NotificationService struct {
	router *Router
	client *http.Client
	log    *logger.Logger

	apiBase string
}

// NewNotificationService creates a notification service
func NewNotificationService(router *Router, log *logger.Logger) *NotificationService {
	return &NotificationService{
		router:  router,
		client:  &http.Client{Timeout: 15 * time.Second},
		log:     log,
		apiBase: telegramAPIBase,
	}
}

type telegramSendRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type telegramSendResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description,omitempty"`
}

// SendTelegram posts an HTML-formatted message to a chat. An empty chatID
// falls back to the configured default chat.
func (s *NotificationService) SendTelegram(ctx context.Context, chatID, text string) model.NotificationResult {
	cfg, err := s.router.TelegramConfig(ctx)
	if err != nil {
		return s.failure(model.ChannelTelegram, err)
	}
	if chatID == "" {
		chatID = cfg.ChatID
	}

	payload, err := json.Marshal(telegramSendRequest{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "HTML",
	})
	if err != nil {
		return s.failure(model.ChannelTelegram, err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.apiBase, cfg.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return s.failure(model.ChannelTelegram, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return s.failure(model.ChannelTelegram, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	var parsed telegramSendResponse
	_ = json.Unmarshal(body, &parsed)

	if resp.StatusCode != http.StatusOK || !parsed.OK {
		return s.failure(model.ChannelTelegram,
			fmt.Errorf("telegram sendMessage: status %d: %s", resp.StatusCode, parsed.Description))
	}

	return model.NotificationResult{Success: true, Channel: model.ChannelTelegram}
}

// SendWebhook posts a JSON payload to an arbitrary URL
func (s *NotificationService) SendWebhook(ctx context.Context, url string, payload interface{}) model.NotificationResult {
	body, err := json.Marshal(payload)
	if err != nil {
		return s.failure("webhook", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return s.failure("webhook", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return s.failure("webhook", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return s.failure("webhook", fmt.Errorf("webhook returned status %d", resp.StatusCode))
	}

	return model.NotificationResult{Success: true, Channel: "webhook"}
}

// NotifyChannel routes a message to the origin channel of the context.
// Web contexts get no push delivery; their response travels inline.
func (s *NotificationService) NotifyChannel(ctx context.Context, channel model.ChannelContext, text string) model.NotificationResult {
	if channel.IsTelegram() {
		return s.SendTelegram(ctx, channel.ChannelID, text)
	}
	return model.NotificationResult{Success: true, Channel: channel.Channel}
}

func (s *NotificationService) failure(channel string, err error) model.NotificationResult {
	s.log.Warn("notification delivery failed",
		zap.String("channel", channel),
		zap.Error(err),
	)
	return model.NotificationResult{Success: false, Channel: channel, Error: err.Error()}
}
