package service

import (
	"context"
	"path"
	"slices"

	"pai/internal/domain"
	"pai/internal/provider"
)

// SecretFilter narrows a key listing
type SecretFilter struct {
	// Pattern is a shell glob ("API_*"); empty matches everything
	Pattern string
	// Limit caps the result; zero means no limit
	Limit int
}

// GetSecret returns the value of key
func (s *Service) GetSecret(ctx context.Context, key string, opts provider.Options) (string, error) {
	c := Call{Domain: domain.Secrets, Operation: "get", Target: key, Options: opts}
	return run(ctx, s, c, func(p domain.SecretsProvider) (string, error) {
		return p.Get(ctx, key)
	})
}

// ListSecrets returns the keys matching f, sorted. Values are never returned.
func (s *Service) ListSecrets(ctx context.Context, f SecretFilter, opts provider.Options) (domain.SecretKeys, error) {
	if f.Pattern != "" {
		if _, err := path.Match(f.Pattern, ""); err != nil {
			return domain.SecretKeys{}, domain.ConfigurationError(domain.Secrets, "invalid pattern %q: %v", f.Pattern, err)
		}
	}

	c := Call{Domain: domain.Secrets, Operation: "list", Target: f.Pattern, Options: opts}
	keys, err := run(ctx, s, c, func(p domain.SecretsProvider) ([]string, error) {
		return p.List(ctx)
	})
	if err != nil {
		return domain.SecretKeys{}, err
	}
	return domain.NewSecretKeys(filterKeys(keys, f)), nil
}

func filterKeys(keys []string, f SecretFilter) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if f.Pattern != "" {
			if ok, _ := path.Match(f.Pattern, k); !ok {
				continue
			}
		}
		out = append(out, k)
	}
	slices.Sort(out)
	out = slices.Compact(out)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}
