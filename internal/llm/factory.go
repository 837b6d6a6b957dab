package llm

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Supported providers
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGoogle    = "google"
)

// Factory builds provider clients with resolved API keys
type Factory struct {
	keys *KeyResolver
}

// NewFactory creates a client factory. The pool backs the api_keys lookup.
func NewFactory(pool *pgxpool.Pool) *Factory {
	return &Factory{keys: NewKeyResolver(pool)}
}

// New returns a chat client for the given provider. explicitKey overrides
// the DB and environment lookups when non-empty.
func (f *Factory) New(ctx context.Context, provider, explicitKey string) (Client, error) {
	switch provider {
	case ProviderAnthropic, ProviderOpenAI, ProviderGoogle:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}

	key, err := f.keys.Resolve(ctx, provider, explicitKey)
	if err != nil {
		return nil, err
	}

	switch provider {
	case ProviderAnthropic:
		return NewAnthropicClient(key), nil
	case ProviderOpenAI:
		return NewOpenAIClient(key), nil
	default:
		return NewGoogleClient(key), nil
	}
}
