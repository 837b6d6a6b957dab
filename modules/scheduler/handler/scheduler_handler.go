package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	httpPlatform "github.com/hweber/secondbrain/internal/platform/http"
	"github.com/hweber/secondbrain/modules/scheduler/model"
	"github.com/hweber/secondbrain/modules/scheduler/ports"
	"github.com/hweber/secondbrain/modules/scheduler/service"
)

// SchedulerHandler exposes the scheduler admin API
type SchedulerHandler struct {
	schedules ports.ScheduleRepository
	jobs      ports.JobRepository
	runner    *service.Runner
}

// NewSchedulerHandler creates a new scheduler handler
func NewSchedulerHandler(schedules ports.ScheduleRepository, jobs ports.JobRepository, runner *service.Runner) *SchedulerHandler {
	return &SchedulerHandler{schedules: schedules, jobs: jobs, runner: runner}
}

// RegisterRoutes registers the scheduler routes
func (h *SchedulerHandler) RegisterRoutes(rg *gin.RouterGroup) {
	scheduler := rg.Group("/scheduler")
	{
		scheduler.GET("/schedules", h.ListSchedules)
		scheduler.POST("/schedules", h.CreateSchedule)
		scheduler.PUT("/schedules/:id", h.UpdateSchedule)
		scheduler.DELETE("/schedules/:id", h.DeleteSchedule)
		scheduler.GET("/jobs", h.ListJobs)
		scheduler.PUT("/jobs/:id", h.UpdateJob)
		scheduler.POST("/jobs/:id/run", h.RunJob)
	}
}

type scheduleRequest struct {
	Name            string  `json:"name" binding:"required"`
	Type            string  `json:"type" binding:"required"`
	IntervalMinutes *int    `json:"interval_minutes"`
	TimeOfDay       *string `json:"time_of_day"`
	DayOfWeek       *int    `json:"day_of_week"`
	DayOfMonth      *int    `json:"day_of_month"`
	Enabled         *bool   `json:"enabled"`
}

func (req *scheduleRequest) toModel() *model.Schedule {
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	return &model.Schedule{
		Name:            req.Name,
		Type:            req.Type,
		IntervalMinutes: req.IntervalMinutes,
		TimeOfDay:       req.TimeOfDay,
		DayOfWeek:       req.DayOfWeek,
		DayOfMonth:      req.DayOfMonth,
		Enabled:         enabled,
	}
}

// validateSchedule checks that the schedule's fields fit its type by
// running the next-run calculus once.
func validateSchedule(schedule *model.Schedule) error {
	_, err := service.NextRun(schedule, time.Now())
	return err
}

// ListSchedules returns all schedules
func (h *SchedulerHandler) ListSchedules(c *gin.Context) {
	schedules, err := h.schedules.List(c.Request.Context())
	if err != nil {
		httpPlatform.RespondWithError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list schedules")
		return
	}
	httpPlatform.RespondWithData(c, http.StatusOK, schedules)
}

// CreateSchedule creates a schedule
func (h *SchedulerHandler) CreateSchedule(c *gin.Context) {
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request payload")
		return
	}

	schedule := req.toModel()
	if err := validateSchedule(schedule); err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	if err := h.schedules.Create(c.Request.Context(), schedule); err != nil {
		httpPlatform.RespondWithError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create schedule")
		return
	}
	httpPlatform.RespondWithData(c, http.StatusCreated, schedule)
}

// UpdateSchedule updates a schedule
func (h *SchedulerHandler) UpdateSchedule(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid schedule id")
		return
	}

	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request payload")
		return
	}

	schedule := req.toModel()
	schedule.ID = id
	if err := validateSchedule(schedule); err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	if err := h.schedules.Update(c.Request.Context(), schedule); err != nil {
		if errors.Is(err, model.ErrScheduleNotFound) {
			httpPlatform.RespondWithError(c, http.StatusNotFound, "SCHEDULE_NOT_FOUND", "Schedule not found")
			return
		}
		httpPlatform.RespondWithError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update schedule")
		return
	}

	updated, err := h.schedules.GetByID(c.Request.Context(), id)
	if err != nil {
		httpPlatform.RespondWithError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load schedule")
		return
	}
	httpPlatform.RespondWithData(c, http.StatusOK, updated)
}

// DeleteSchedule removes a schedule
func (h *SchedulerHandler) DeleteSchedule(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid schedule id")
		return
	}

	if err := h.schedules.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, model.ErrScheduleNotFound) {
			httpPlatform.RespondWithError(c, http.StatusNotFound, "SCHEDULE_NOT_FOUND", "Schedule not found")
			return
		}
		httpPlatform.RespondWithError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to delete schedule")
		return
	}

	c.Status(http.StatusNoContent)
}

// ListJobs returns all jobs with their joined schedule name
func (h *SchedulerHandler) ListJobs(c *gin.Context) {
	jobs, err := h.jobs.ListWithSchedule(c.Request.Context())
	if err != nil {
		httpPlatform.RespondWithError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list jobs")
		return
	}
	httpPlatform.RespondWithData(c, http.StatusOK, jobs)
}

type jobUpdateRequest struct {
	Enabled    *bool  `json:"enabled"`
	ScheduleID *int64 `json:"schedule_id"`
}

// UpdateJob patches a job's enabled flag or schedule binding
func (h *SchedulerHandler) UpdateJob(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid job id")
		return
	}

	var req jobUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request payload")
		return
	}

	job, err := h.jobs.Update(c.Request.Context(), id, req.Enabled, req.ScheduleID)
	if err != nil {
		if errors.Is(err, model.ErrJobNotFound) {
			httpPlatform.RespondWithError(c, http.StatusNotFound, "JOB_NOT_FOUND", "Job not found")
			return
		}
		httpPlatform.RespondWithError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update job")
		return
	}
	httpPlatform.RespondWithData(c, http.StatusOK, job)
}

// RunJob submits a manual one-shot execution
func (h *SchedulerHandler) RunJob(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		httpPlatform.RespondWithError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid job id")
		return
	}

	job, err := h.jobs.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, model.ErrJobNotFound) {
			httpPlatform.RespondWithError(c, http.StatusNotFound, "JOB_NOT_FOUND", "Job not found")
			return
		}
		httpPlatform.RespondWithError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load job")
		return
	}

	submission, err := h.runner.RunNow(c.Request.Context(), job.JobName)
	if err != nil {
		httpPlatform.RespondWithError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to submit job run")
		return
	}
	httpPlatform.RespondWithData(c, http.StatusAccepted, submission)
}
