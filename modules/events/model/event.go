package model

import (
	"errors"
	"time"
)

// ErrEventNotFound is returned when a calendar event is not found
var ErrEventNotFound = errors.New("calendar event not found")

// CalendarEvent represents a calendar entry, local or pulled from CalDAV
type CalendarEvent struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	Location    *string    `json:"location,omitempty"`
	StartTime   *time.Time `json:"start_time,omitempty"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	AllDay      bool       `json:"all_day"`
	Recurrence  *string    `json:"recurrence,omitempty"`
	PersonID    *int64     `json:"person_id,omitempty"`
	CalendarID  *string    `json:"calendar_id,omitempty"`
	ICloudUID   *string    `json:"icloud_uid,omitempty"`
	Etag        *string    `json:"etag,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
