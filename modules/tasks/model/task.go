package model

import (
	"errors"
	"time"
)

// Task status values
const (
	StatusInbox   = "inbox"
	StatusNext    = "next"
	StatusWaiting = "waiting"
	StatusSomeday = "someday"
	StatusDone    = "done"
)

// ErrTaskNotFound is returned when a task is not found
var ErrTaskNotFound = errors.New("task not found")

// Task represents a single actionable item
type Task struct {
	ID        int64      `json:"id"`
	Title     string     `json:"title"`
	Status    string     `json:"status"`
	Priority  int        `json:"priority"`
	DueDate   *time.Time `json:"due_date,omitempty"`
	ProjectID *int64     `json:"project_id,omitempty"`
	PersonID  *int64     `json:"person_id,omitempty"`
	Tags      []string   `json:"tags"`
	Notes     *string    `json:"notes,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}
