package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	httpPlatform "github.com/hweber/secondbrain/internal/platform/http"
	schedulerservice "github.com/hweber/secondbrain/modules/scheduler/service"
	"github.com/hweber/secondbrain/modules/sync/service"
)

// SyncHandler exposes sync status over HTTP
type SyncHandler struct {
	sync   *service.Service
	runner *schedulerservice.Runner
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(sync *service.Service, runner *schedulerservice.Runner) *SyncHandler {
	return &SyncHandler{sync: sync, runner: runner}
}

// RegisterRoutes registers the sync routes
func (h *SyncHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/sync/status", h.Status)
}

// Status returns per-provider sync state plus scheduler liveness
func (h *SyncHandler) Status(c *gin.Context) {
	statuses, err := h.sync.Status(c.Request.Context())
	if err != nil {
		httpPlatform.RespondWithError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load sync status")
		return
	}

	httpPlatform.RespondWithData(c, http.StatusOK, gin.H{
		"providers": statuses,
		"contact_sync_running": h.runner.IsRunning("contact_sync"),
		"calendar_sync_running": h.runner.IsRunning("calendar_sync"),
	})
}
