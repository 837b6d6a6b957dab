package model

import (
	"errors"
	"time"
)

// Idea status values
const (
	StatusInbox = "inbox"
	StatusDone  = "done"
)

// ErrIdeaNotFound is returned when an idea is not found
var ErrIdeaNotFound = errors.New("idea not found")

// Idea represents a captured idea
type Idea struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	OneLiner  *string    `json:"one_liner,omitempty"`
	Status    string     `json:"status"`
	Priority  int        `json:"priority"`
	Tags      []string   `json:"tags"`
	Notes     *string    `json:"notes,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}
