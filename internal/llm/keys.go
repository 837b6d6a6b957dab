package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// KeyResolver resolves provider API keys. Order: explicit argument,
// api_keys table (valid rows only), environment variable.
type KeyResolver struct {
	pool *pgxpool.Pool
}

// NewKeyResolver creates a key resolver backed by the given pool. A nil
// pool skips the database lookup.
func NewKeyResolver(pool *pgxpool.Pool) *KeyResolver {
	return &KeyResolver{pool: pool}
}

// Resolve returns the API key for a provider
func (r *KeyResolver) Resolve(ctx context.Context, provider, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}

	if r.pool != nil {
		var key string
		err := r.pool.QueryRow(ctx,
			`SELECT api_key FROM api_keys WHERE provider = $1 AND valid = TRUE`,
			provider,
		).Scan(&key)
		if err == nil && key != "" {
			return key, nil
		}
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("api key lookup failed: %w", err)
		}
	}

	if key := os.Getenv(envKeyName(provider)); key != "" {
		return key, nil
	}

	return "", fmt.Errorf("%w: %s", ErrMissingAPIKey, provider)
}

func envKeyName(provider string) string {
	return strings.ToUpper(provider) + "_API_KEY"
}
