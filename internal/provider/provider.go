// Package provider selects and builds domain providers. For each domain it
// reads the configured primary and fallback adapter names, resolves each
// through the adapter registry, and builds it with its option block.
// GetProviderWithFallback returns the first candidate that builds and
// reports healthy; candidates are probed one at a time, in order.
package provider

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"pai/internal/adapter"
	"pai/internal/config"
	"pai/internal/domain"
)

// Options adjusts a single provider request
type Options struct {
	// Adapter replaces the configured primary; the fallback still applies
	Adapter string
	// Config is layered over the adapter's configured options
	Config map[string]any
}

// Observer is told about candidate outcomes
type Observer interface {
	CandidateProbed(d domain.Domain, adapterName string, status domain.HealthStatus)
	CandidateFailed(d domain.Domain, adapterName string, err error)
	ProviderSelected(d domain.Domain, adapterName string, fallback bool)
}

// Factory builds providers from configuration and the adapter registry
type Factory struct {
	resolver *config.Resolver
	registry *adapter.Registry
	observer Observer
	logger   *slog.Logger
}

// FactoryOption configures a Factory
type FactoryOption func(*Factory)

// WithObserver reports candidate outcomes to o
func WithObserver(o Observer) FactoryOption {
	return func(f *Factory) { f.observer = o }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) FactoryOption {
	return func(f *Factory) { f.logger = l }
}

// NewFactory creates a Factory
func NewFactory(resolver *config.Resolver, registry *adapter.Registry, opts ...FactoryOption) *Factory {
	f := &Factory{resolver: resolver, registry: registry, logger: slog.Default()}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	return f
}

// Resolver returns the config resolver
func (f *Factory) Resolver() *config.Resolver { return f.resolver }

// Registry returns the adapter registry
func (f *Factory) Registry() *adapter.Registry { return f.registry }

// Invalidate drops cached configuration and discovery results
func (f *Factory) Invalidate() {
	f.resolver.Invalidate()
	f.registry.Invalidate()
}

// GetProvider builds the primary adapter for d (or opts.Adapter) without a
// health check. Configuration, discovery and load errors are returned as is.
func (f *Factory) GetProvider(ctx context.Context, d domain.Domain, opts Options) (domain.Provider, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dc, err := f.resolver.DomainConfig(d)
	if err != nil {
		return nil, err
	}

	name := opts.Adapter
	if name == "" && dc != nil {
		name = dc.Primary
	}
	if name == "" {
		return nil, noAdapterConfigured(d)
	}
	return f.build(d, dc, name, opts)
}

// GetProviderWithFallback walks the candidate chain (primary or
// opts.Adapter, then fallback) and returns the first provider that builds
// and reports healthy. Later candidates are not built once one succeeds.
// When every candidate fails the result is a ConfigurationError wrapping
// the last failure.
func (f *Factory) GetProviderWithFallback(ctx context.Context, d domain.Domain, opts Options) (domain.Provider, error) {
	return f.selectProvider(ctx, d, opts, nil)
}

// selectProvider implements the fallback walk; accept, when set, rejects
// candidates that lack a required capability
func (f *Factory) selectProvider(ctx context.Context, d domain.Domain, opts Options, accept func(domain.Provider) error) (domain.Provider, error) {
	dc, err := f.resolver.DomainConfig(d)
	if err != nil {
		return nil, err
	}
	chain := dc.Chain(opts.Adapter)
	if len(chain) == 0 {
		return nil, noAdapterConfigured(d)
	}

	var lastErr error
	for i, name := range chain {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		p, err := f.build(d, dc, name, opts)
		if err == nil && accept != nil {
			err = accept(p)
		}
		if err != nil {
			lastErr = err
			f.candidateFailed(d, name, err)
			continue
		}

		status := f.probe(ctx, d, name, p)
		if !status.Healthy {
			lastErr = fmt.Errorf("adapter %s unhealthy: %s", name, status.Message)
			f.candidateFailed(d, name, lastErr)
			continue
		}

		if i > 0 {
			f.logger.Info("using fallback adapter", "domain", d, "adapter", name)
		}
		if f.observer != nil {
			f.observer.ProviderSelected(d, name, i > 0)
		}
		return p, nil
	}

	return nil, &domain.Error{
		Kind:   domain.KindConfiguration,
		Domain: d,
		Msg:    fmt.Sprintf("no healthy adapter (tried %s)", strings.Join(chain, ", ")),
		Err:    lastErr,
	}
}

// Get is GetProvider asserting capability T
func Get[T domain.Provider](ctx context.Context, f *Factory, d domain.Domain, opts Options) (T, error) {
	p, err := f.GetProvider(ctx, d, opts)
	if err != nil {
		var zero T
		return zero, err
	}
	v, err := adapter.Expect[T](d, p)
	if err != nil {
		return v, domain.AdapterLoadError(d, p.Name(), err)
	}
	return v, nil
}

// WithFallback is GetProviderWithFallback asserting capability T. A
// candidate lacking T counts as a failed candidate.
func WithFallback[T domain.Provider](ctx context.Context, f *Factory, d domain.Domain, opts Options) (T, error) {
	var zero T
	p, err := f.selectProvider(ctx, d, opts, func(p domain.Provider) error {
		if _, err := adapter.Expect[T](d, p); err != nil {
			return domain.AdapterLoadError(d, p.Name(), err)
		}
		return nil
	})
	if err != nil {
		return zero, err
	}
	return p.(T), nil
}

// build resolves name through discovery and loads it with its options
func (f *Factory) build(d domain.Domain, dc *config.DomainConfig, name string, opts Options) (domain.Provider, error) {
	m, err := f.registry.Lookup(d, name)
	if err != nil {
		return nil, err
	}
	options := adapter.MergeOptions(dc.AdapterOptions(name), opts.Config)
	return f.registry.Load(m, options)
}

func (f *Factory) probe(ctx context.Context, d domain.Domain, name string, p domain.Provider) domain.HealthStatus {
	start := time.Now()
	status := p.HealthCheck(ctx)
	if status.Latency == 0 {
		status.Latency = time.Since(start)
	}
	if f.observer != nil {
		f.observer.CandidateProbed(d, name, status)
	}
	return status
}

func (f *Factory) candidateFailed(d domain.Domain, name string, err error) {
	f.logger.Warn("adapter unavailable", "domain", d, "adapter", name, "error", err)
	if f.observer != nil {
		f.observer.CandidateFailed(d, name, err)
	}
}

func noAdapterConfigured(d domain.Domain) error {
	return domain.ConfigurationError(d, "no adapter configured for domain %s", d)
}
