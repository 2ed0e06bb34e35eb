package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"pai/internal/audit"
	"pai/internal/domain"
	"pai/internal/provider"
)

// Service runs audited provider operations
type Service struct {
	factory *provider.Factory
	audit   audit.Logger
	store   audit.Store
	events  Publisher
	logger  *slog.Logger
}

// Option configures a Service
type Option func(*Service)

// WithAudit sends audit entries to l
func WithAudit(l audit.Logger) Option {
	return func(s *Service) { s.audit = l }
}

// WithAuditStore makes stored entries readable through RecentAudit. The
// store is not written to unless it is also part of the WithAudit logger.
func WithAuditStore(st audit.Store) Option {
	return func(s *Service) { s.store = st }
}

// WithEvents publishes operation and health events to p
func WithEvents(p Publisher) Option {
	return func(s *Service) { s.events = p }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates a Service over factory
func New(factory *provider.Factory, opts ...Option) *Service {
	s := &Service{factory: factory, audit: audit.Nop, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	if s.audit == nil {
		s.audit = audit.Nop
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Factory returns the provider factory
func (s *Service) Factory() *provider.Factory { return s.factory }

// Reload drops cached configuration and discovery results
func (s *Service) Reload() {
	s.factory.Invalidate()
	s.publish(Event{Type: EventConfigReloaded})
	s.logger.Info("configuration reloaded")
}

// RecentAudit reads stored audit entries, newest first
func (s *Service) RecentAudit(ctx context.Context, q audit.Query) ([]audit.Entry, error) {
	if s.store == nil {
		return nil, domain.ConfigurationError("", "audit database not configured (set audit.database)")
	}
	return s.store.Recent(ctx, q)
}

// Call describes one audited operation
type Call struct {
	Domain    domain.Domain
	Operation string
	Target    string
	Options   provider.Options
}

// run selects a provider with capability P, calls fn and audits the outcome
func run[P domain.Provider, R any](ctx context.Context, s *Service, c Call, fn func(P) (R, error)) (R, error) {
	start := time.Now()

	var (
		result R
		name   string
	)
	p, err := provider.WithFallback[P](ctx, s.factory, c.Domain, c.Options)
	if err == nil {
		name = p.Name()
		result, err = fn(p)
	}

	s.record(ctx, audit.NewEntry(c.Domain, c.Operation, name, c.Target, start, err))
	return result, err
}

// exec is run for operations without a result
func exec[P domain.Provider](ctx context.Context, s *Service, c Call, fn func(P) error) error {
	_, err := run(ctx, s, c, func(p P) (struct{}, error) {
		return struct{}{}, fn(p)
	})
	return err
}

func (s *Service) record(ctx context.Context, e audit.Entry) {
	// audit failures never fail the operation
	if err := s.audit.Log(context.WithoutCancel(ctx), e); err != nil {
		s.logger.Error("audit write failed", "operation", e.Operation, "error", err)
	}
	s.publish(operationEvent(e))
}

func (s *Service) publish(e Event) {
	if s.events != nil {
		s.events.Broadcast(e)
	}
}

// Health probes every candidate of d
func (s *Service) Health(ctx context.Context, d domain.Domain, opts provider.Options) ([]provider.CandidateHealth, error) {
	results, err := s.factory.Health(ctx, d, opts)
	if err != nil {
		return nil, err
	}
	s.publish(healthEvent(results))
	return results, nil
}

// HealthAll probes every configured domain. Domains without configuration
// are skipped; other errors abort.
func (s *Service) HealthAll(ctx context.Context) ([]provider.CandidateHealth, error) {
	var all []provider.CandidateHealth
	for _, d := range domain.Domains() {
		results, err := s.factory.Health(ctx, d, provider.Options{})
		if errors.Is(err, domain.ErrConfiguration) {
			var derr *domain.Error
			if errors.As(err, &derr) && derr.Domain == d {
				continue
			}
		}
		if err != nil {
			return nil, err
		}
		all = append(all, results...)
	}
	s.publish(healthEvent(all))
	return all, nil
}

// Adapters lists the adapters discovered for d
func (s *Service) Adapters(d domain.Domain) ([]provider.AdapterInfo, error) {
	return s.factory.ListAvailableAdapters(d)
}
