package model

import (
	"encoding/json"
	"errors"
	"time"
)

// Request types
const (
	TypeApproval = "approval"
	TypeChoice   = "choice"
	TypeInput    = "input"
)

// Request statuses. Only pending requests may transition; every other
// status is terminal.
const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusAnswered  = "answered"
	StatusTimeout   = "timeout"
	StatusCancelled = "cancelled"
)

var (
	// ErrRequestNotFound is returned when a request does not exist
	ErrRequestNotFound = errors.New("human request not found")

	// ErrTerminalRequest is returned when mutating a non-pending request
	ErrTerminalRequest = errors.New("human request already resolved")
)

// HumanRequest is one pending human decision
type HumanRequest struct {
	ID          int64           `json:"id"`
	Automation  string          `json:"automation"`
	RequestType string          `json:"request_type"`
	Question    string          `json:"question"`
	Options     []string        `json:"options,omitempty"`
	Status      string          `json:"status"`
	Response    *string         `json:"response,omitempty"`
	Context     json.RawMessage `json:"context,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	AnsweredAt  *time.Time      `json:"answered_at,omitempty"`
}

// IsTerminal reports whether the request can no longer change
func (r *HumanRequest) IsTerminal() bool {
	return r.Status != StatusPending
}
