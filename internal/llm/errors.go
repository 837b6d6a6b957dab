package llm

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownProvider is returned for providers the factory does not know
	ErrUnknownProvider = errors.New("unknown llm provider")

	// ErrMissingAPIKey is returned when no key could be resolved for a provider
	ErrMissingAPIKey = errors.New("no api key configured for provider")
)

// ProviderError wraps a transport or provider-side failure
type ProviderError struct {
	Provider string
	Status   int
	Message  string
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Provider, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}
