package adapter

import (
	"fmt"
	"log/slog"

	"pai/internal/domain"
)

// Params is what a Factory receives
type Params struct {
	// Manifest that selected this factory; its Name is the adapter name
	// providers should report
	Manifest Manifest
	// Options are the manifest defaults overlaid with configured options
	Options Options
	Logger  *slog.Logger
}

// Factory builds a provider from merged options
type Factory func(Params) (domain.Provider, error)

// Name returns the adapter name, falling back to the entry's default
func (p Params) Name(def string) string {
	if p.Manifest.Name != "" {
		return p.Manifest.Name
	}
	return def
}

// Log returns the params logger, never nil
func (p Params) Log() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}

// RequireString returns a mandatory string option
func (p Params) RequireString(key string) (string, error) {
	v := p.Options.String(key, "")
	if v == "" {
		return "", domain.ConfigurationError(p.Manifest.Domain, "adapter %s: option %q is required", p.Name("?"), key)
	}
	return v, nil
}

// Typed wraps a constructor returning a concrete provider type as a Factory
func Typed[T domain.Provider](build func(Params) (T, error)) Factory {
	return func(p Params) (domain.Provider, error) {
		v, err := build(p)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
}

// Expect asserts that p provides capability T
func Expect[T any](d domain.Domain, p domain.Provider) (T, error) {
	v, ok := p.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("adapter %s does not implement the %s interface", p.Name(), d)
	}
	return v, nil
}
