package domain

import "context"

// SecretsProvider reads secrets from one backend (env, mounted files, a vault)
type SecretsProvider interface {
	Provider

	// Get returns the value for key, or a NotFound error
	Get(ctx context.Context, key string) (string, error)

	// List returns every key the backend exposes, without values
	List(ctx context.Context) ([]string, error)
}

// SecretKeys is the safe listing view of a secrets backend (no values)
type SecretKeys struct {
	Keys  []string `json:"keys" yaml:"keys"`
	Count int      `json:"count" yaml:"count"`
}

// NewSecretKeys builds a listing from keys
func NewSecretKeys(keys []string) SecretKeys {
	if keys == nil {
		keys = []string{}
	}
	return SecretKeys{Keys: keys, Count: len(keys)}
}
