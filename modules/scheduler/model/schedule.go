package model

import (
	"errors"
	"time"
)

// Schedule types
const (
	TypeInterval = "interval"
	TypeDaily    = "daily"
	TypeWeekly   = "weekly"
	TypeMonthly  = "monthly"
)

// Built-in job names
const (
	JobCalendarSync = "calendar_sync"
	JobContactSync  = "contact_sync"
	JobDailyReport  = "daily_report"
	JobWeeklyReport = "weekly_report"
)

var (
	// ErrScheduleNotFound is returned when a schedule does not exist
	ErrScheduleNotFound = errors.New("schedule not found")

	// ErrJobNotFound is returned when a scheduled job does not exist
	ErrJobNotFound = errors.New("scheduled job not found")

	// ErrInvalidSchedule is returned for schedules whose fields do not fit
	// their type
	ErrInvalidSchedule = errors.New("invalid schedule")
)

// Schedule describes when a job fires. day_of_week counts Monday as 0.
type Schedule struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Type            string    `json:"type"`
	IntervalMinutes *int      `json:"interval_minutes,omitempty"`
	TimeOfDay       *string   `json:"time_of_day,omitempty"`
	DayOfWeek       *int      `json:"day_of_week,omitempty"`
	DayOfMonth      *int      `json:"day_of_month,omitempty"`
	Enabled         bool      `json:"enabled"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ScheduledJob binds a job name to a schedule and tracks its runs
type ScheduledJob struct {
	ID           int64      `json:"id"`
	JobName      string     `json:"job_name"`
	ScheduleID   *int64     `json:"schedule_id,omitempty"`
	ScheduleName *string    `json:"schedule_name,omitempty"`
	Enabled      bool       `json:"enabled"`
	LastRun      *time.Time `json:"last_run,omitempty"`
	NextRun      *time.Time `json:"next_run,omitempty"`
	RunCount     int64      `json:"run_count"`
	ErrorCount   int64      `json:"error_count"`
	LastError    *string    `json:"last_error,omitempty"`
	Schedule     *Schedule  `json:"-"`
}

// RunSubmission is the response to a manual run request
type RunSubmission struct {
	ExecutionID string `json:"execution_id"`
	Status      string `json:"status"`
}

// Run submission statuses
const (
	RunStatusQueued  = "queued"
	RunStatusRunning = "running"
)
