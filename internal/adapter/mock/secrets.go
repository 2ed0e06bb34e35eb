package mock

import (
	"context"
	"maps"
	"slices"
	"sync"

	"pai/internal/adapter"
	"pai/internal/domain"
)

// Secrets serves secrets from the "secrets" option map
type Secrets struct {
	base
	mu     sync.RWMutex
	values map[string]string
}

// NewSecrets builds a Secrets mock
func NewSecrets(p adapter.Params) (*Secrets, error) {
	return &Secrets{base: newBase(p), values: p.Options.StringMap("secrets")}, nil
}

// Set stores a value
func (s *Secrets) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

func (s *Secrets) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	if !ok {
		return "", domain.NotFound(domain.Secrets, "secret", key)
	}
	return v, nil
}

func (s *Secrets) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.values)), nil
}
