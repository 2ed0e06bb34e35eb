// Package localsecrets reads secrets from the local process environment
// and from mounted secret directories (Kubernetes/Docker secrets).
package localsecrets

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"pai/internal/adapter"
	"pai/internal/domain"
)

// Register adds the env and file adapters to c
func Register(c *adapter.Catalog) {
	c.MustRegister(adapter.Manifest{
		Name:         "env",
		Domain:       domain.Secrets,
		Description:  "process environment variables",
		Capabilities: []string{"get", "list"},
	}, adapter.Typed(NewEnv))
	c.MustRegister(adapter.Manifest{
		Name:         "file",
		Domain:       domain.Secrets,
		Description:  "mounted secret files",
		Capabilities: []string{"get", "list"},
	}, adapter.Typed(NewFile))
}

// Env exposes environment variables as secrets.
//
//	prefix: APP_     # only APP_* variables, keys without the prefix
//	keys: [A, B]     # optional allow-list
type Env struct {
	name    string
	prefix  string
	allowed []string
	environ func() []string
	lookup  func(string) (string, bool)
}

// NewEnv builds an Env adapter
func NewEnv(p adapter.Params) (*Env, error) {
	return &Env{
		name:    p.Name("env"),
		prefix:  p.Options.String("prefix", ""),
		allowed: p.Options.StringSlice("keys"),
		environ: os.Environ,
		lookup:  os.LookupEnv,
	}, nil
}

func (e *Env) Name() string { return e.name }

func (e *Env) HealthCheck(ctx context.Context) domain.HealthStatus {
	keys, _ := e.List(ctx)
	if e.prefix != "" && len(keys) == 0 {
		return domain.Unhealthy("no environment variables with prefix %s", e.prefix)
	}
	return domain.Healthy(fmt.Sprintf("%d variables", len(keys)))
}

func (e *Env) Get(ctx context.Context, key string) (string, error) {
	if !e.permitted(key) {
		return "", domain.NotFound(domain.Secrets, "secret", key)
	}
	v, ok := e.lookup(e.prefix + key)
	if !ok {
		return "", domain.NotFound(domain.Secrets, "secret", key)
	}
	return v, nil
}

func (e *Env) List(ctx context.Context) ([]string, error) {
	var keys []string
	for _, kv := range e.environ() {
		name, _, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, e.prefix) {
			continue
		}
		key := strings.TrimPrefix(name, e.prefix)
		if key == "" || !e.permitted(key) {
			continue
		}
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return slices.Compact(keys), nil
}

func (e *Env) permitted(key string) bool {
	return len(e.allowed) == 0 || slices.Contains(e.allowed, key)
}
