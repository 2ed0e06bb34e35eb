package service

import (
	"context"
	"time"

	"pai/internal/domain"
	"pai/internal/provider"
)

// Query runs an instant query; a zero at means now
func (s *Service) Query(ctx context.Context, query string, at time.Time, opts provider.Options) (*domain.QueryResult, error) {
	if at.IsZero() {
		at = time.Now()
	}
	c := Call{Domain: domain.Observability, Operation: "query", Target: query, Options: opts}
	return run(ctx, s, c, func(p domain.ObservabilityProvider) (*domain.QueryResult, error) {
		return p.InstantQuery(ctx, query, at)
	})
}

// QueryRange runs a range query
func (s *Service) QueryRange(ctx context.Context, query string, r domain.QueryRange, opts provider.Options) (*domain.QueryResult, error) {
	if r.End.Before(r.Start) {
		return nil, domain.ConfigurationError(domain.Observability, "range end %s is before start %s",
			r.End.Format(time.RFC3339), r.Start.Format(time.RFC3339))
	}
	if r.Step <= 0 {
		return nil, domain.ConfigurationError(domain.Observability, "range step must be positive")
	}
	c := Call{Domain: domain.Observability, Operation: "query_range", Target: query, Options: opts}
	return run(ctx, s, c, func(p domain.ObservabilityProvider) (*domain.QueryResult, error) {
		return p.RangeQuery(ctx, query, r)
	})
}

// Alerts lists alerts, optionally only those in state
func (s *Service) Alerts(ctx context.Context, state domain.AlertState, opts provider.Options) ([]domain.Alert, error) {
	c := Call{Domain: domain.Observability, Operation: "alerts", Target: string(state), Options: opts}
	alerts, err := run(ctx, s, c, func(p domain.ObservabilityProvider) ([]domain.Alert, error) {
		return p.ListAlerts(ctx)
	})
	if err != nil || state == "" {
		return alerts, err
	}
	out := alerts[:0:0]
	for _, a := range alerts {
		if a.State == state {
			out = append(out, a)
		}
	}
	return out, nil
}

// Targets lists monitored targets
func (s *Service) Targets(ctx context.Context, opts provider.Options) ([]domain.Target, error) {
	c := Call{Domain: domain.Observability, Operation: "targets", Options: opts}
	return run(ctx, s, c, func(p domain.ObservabilityProvider) ([]domain.Target, error) {
		return p.ListTargets(ctx)
	})
}
