package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	httpPlatform "github.com/hweber/secondbrain/internal/platform/http"
	"github.com/hweber/secondbrain/modules/hitl/model"
	"github.com/hweber/secondbrain/modules/hitl/service"
)

// HitlHandler exposes pending human requests for the admin UI
type HitlHandler struct {
	service *service.Service
}

// NewHitlHandler creates a new human-in-the-loop handler
func NewHitlHandler(service *service.Service) *HitlHandler {
	return &HitlHandler{service: service}
}

// RegisterRoutes registers the clarification admin routes
func (h *HitlHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/clarifications", h.ListPending)
	rg.DELETE("/clarifications/:id", h.Cancel)
}

// ListPending returns the open requests
func (h *HitlHandler) ListPending(c *gin.Context) {
	requests, err := h.service.GetPending(c.Request.Context())
	if err != nil {
		httpPlatform.RespondWithError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list requests")
		return
	}
	httpPlatform.RespondWithData(c, http.StatusOK, gin.H{"items": requests})
}

// Cancel aborts a pending request
func (h *HitlHandler) Cancel(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request id")
		return
	}

	if err := h.service.Cancel(c.Request.Context(), id); err != nil {
		switch {
		case errors.Is(err, model.ErrRequestNotFound):
			httpPlatform.RespondWithError(c, http.StatusNotFound, "REQUEST_NOT_FOUND", "Request not found")
		case errors.Is(err, model.ErrTerminalRequest):
			httpPlatform.RespondWithError(c, http.StatusConflict, "REQUEST_RESOLVED", "Request already resolved")
		default:
			httpPlatform.RespondWithError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to cancel request")
		}
		return
	}

	c.Status(http.StatusNoContent)
}
