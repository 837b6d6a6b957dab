package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	httpPlatform "github.com/hweber/secondbrain/internal/platform/http"
	notifyservice "github.com/hweber/secondbrain/modules/notify/service"
	"github.com/hweber/secondbrain/modules/telegram/service"
)

// WebhookHandler consumes Telegram bot updates
type WebhookHandler struct {
	commands *service.CommandService
	router   *notifyservice.Router
	notifier *notifyservice.NotificationService
}

// NewWebhookHandler creates a Telegram webhook handler
func NewWebhookHandler(commands *service.CommandService, router *notifyservice.Router, notifier *notifyservice.NotificationService) *WebhookHandler {
	return &WebhookHandler{commands: commands, router: router, notifier: notifier}
}

// RegisterRoutes registers the webhook route
func (h *WebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/telegram/webhook", h.Receive)
}

type update struct {
	Message struct {
		Text string `json:"text"`
		Chat struct {
			ID int64 `json:"id"`
		} `json:"chat"`
	} `json:"message"`
}

// Receive handles one bot update. The secret token header must match the
// configured webhook secret when one is set. Telegram expects a 200
// regardless of processing outcome.
func (h *WebhookHandler) Receive(c *gin.Context) {
	cfg, err := h.router.TelegramConfig(c.Request.Context())
	if err != nil {
		httpPlatform.RespondWithError(c, http.StatusServiceUnavailable, "TELEGRAM_NOT_CONFIGURED", "Telegram is not configured")
		return
	}

	if cfg.WebhookSecret != nil && *cfg.WebhookSecret != "" {
		if c.GetHeader("X-Telegram-Bot-Api-Secret-Token") != *cfg.WebhookSecret {
			httpPlatform.RespondWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid webhook secret")
			return
		}
	}

	var upd update
	if err := c.ShouldBindJSON(&upd); err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid update payload")
		return
	}

	if upd.Message.Text == "" || upd.Message.Chat.ID == 0 {
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	chatID := strconv.FormatInt(upd.Message.Chat.ID, 10)
	response := h.commands.Handle(c.Request.Context(), upd.Message.Text, chatID)

	if response != "" {
		h.notifier.SendTelegram(c.Request.Context(), chatID, response)
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
