package model

import "errors"

var (
	// ErrPersonNotFound is returned when a person is not found
	ErrPersonNotFound = errors.New("person not found")

	// ErrPersonNameRequired is returned when the name is empty
	ErrPersonNameRequired = errors.New("person name is required")

	// ErrUnknownProvider is returned for a provider outside the known trio
	ErrUnknownProvider = errors.New("unknown sync provider")
)

// ErrorCode represents error codes
type ErrorCode string

const (
	CodePersonNotFound     ErrorCode = "PERSON_NOT_FOUND"
	CodePersonNameRequired ErrorCode = "PERSON_NAME_REQUIRED"
	CodeInternalError      ErrorCode = "INTERNAL_ERROR"
)

// GetErrorCode maps errors to error codes
func GetErrorCode(err error) ErrorCode {
	switch {
	case errors.Is(err, ErrPersonNotFound):
		return CodePersonNotFound
	case errors.Is(err, ErrPersonNameRequired):
		return CodePersonNameRequired
	default:
		return CodeInternalError
	}
}
