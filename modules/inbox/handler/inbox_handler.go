package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	httpPlatform "github.com/hweber/secondbrain/internal/platform/http"
	hitlmodel "github.com/hweber/secondbrain/modules/hitl/model"
	"github.com/hweber/secondbrain/modules/inbox/repository"
	"github.com/hweber/secondbrain/modules/inbox/service"
	notifyservice "github.com/hweber/secondbrain/modules/notify/service"
)

// InboxHandler exposes the intent pipeline over HTTP
type InboxHandler struct {
	orchestrator *service.Orchestrator
	router       *notifyservice.Router
	logs         *repository.InboxLogRepository
}

// NewInboxHandler creates a new inbox handler
func NewInboxHandler(orchestrator *service.Orchestrator, router *notifyservice.Router, logs *repository.InboxLogRepository) *InboxHandler {
	return &InboxHandler{orchestrator: orchestrator, router: router, logs: logs}
}

// RegisterRoutes registers the inbox routes
func (h *InboxHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/inbox", h.Process)
	rg.POST("/clarifications/:id", h.RespondToClarification)
	rg.GET("/logs", h.ListLogs)
}

type processRequest struct {
	Text          string                 `json:"text" binding:"required"`
	Channel       string                 `json:"channel"`
	ChannelID     string                 `json:"channel_id"`
	Confirmed     bool                   `json:"confirmed"`
	PendingAction map[string]interface{} `json:"pending_action"`
}

// Process runs one input through the pipeline
func (h *InboxHandler) Process(c *gin.Context) {
	var req processRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request payload")
		return
	}

	channel := h.router.NewContext(req.Channel, req.ChannelID, nil)
	result := h.orchestrator.Process(c.Request.Context(), req.Text, channel, req.Confirmed, req.PendingAction)

	httpPlatform.RespondWithData(c, http.StatusOK, result)
}

type clarificationRequest struct {
	Choice string `json:"choice" binding:"required"`
}

// RespondToClarification resolves a pending clarification and resumes the
// pipeline
func (h *InboxHandler) RespondToClarification(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request id")
		return
	}

	var req clarificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request payload")
		return
	}

	result := h.orchestrator.RespondToClarification(c.Request.Context(), id, req.Choice)
	if !result.Success {
		switch result.Error {
		case hitlmodel.ErrRequestNotFound.Error():
			httpPlatform.RespondWithError(c, http.StatusNotFound, "REQUEST_NOT_FOUND", "Clarification request not found")
			return
		case hitlmodel.ErrTerminalRequest.Error():
			httpPlatform.RespondWithError(c, http.StatusConflict, "REQUEST_RESOLVED", "Clarification request already resolved")
			return
		}
	}

	httpPlatform.RespondWithData(c, http.StatusOK, result)
}

// ListLogs returns the newest inbox audit records
func (h *InboxHandler) ListLogs(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid limit")
			return
		}
		limit = parsed
	}

	entries, err := h.logs.ListRecent(c.Request.Context(), limit)
	if err != nil {
		httpPlatform.RespondWithError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list logs")
		return
	}

	httpPlatform.RespondWithData(c, http.StatusOK, gin.H{"items": entries})
}
