// Package prometheus implements the observability domain on the
// Prometheus HTTP API.
//
//	url: http://localhost:9090       # required
//	token: env:PROMETHEUS_TOKEN       # optional bearer token
//	timeout: 30s
//	retries: 3
//	retry_delay: 200ms
package prometheus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"

	"pai/internal/adapter"
	"pai/internal/adapter/httpx"
	"pai/internal/domain"
	"pai/internal/retry"
)

// Name is the adapter name
const Name = "prometheus"

// Register adds the adapter to c
func Register(c *adapter.Catalog) {
	c.MustRegister(adapter.Manifest{
		Name:         Name,
		Domain:       domain.Observability,
		Description:  "Prometheus HTTP API",
		Capabilities: []string{"query", "alerts", "targets"},
	}, adapter.Typed(New))
}

// Provider talks to one Prometheus server
type Provider struct {
	name    string
	url     string
	api     v1.API
	timeout time.Duration
	retry   retry.Options
	logger  *slog.Logger
}

// New builds a Provider from options
func New(p adapter.Params) (*Provider, error) {
	url, err := p.RequireString("url")
	if err != nil {
		return nil, err
	}
	token, err := p.Options.Secret("token")
	if err != nil {
		return nil, domain.ConfigurationError(domain.Observability, "%v", err)
	}

	name := p.Name(Name)
	timeout := p.Options.Duration("timeout", httpx.DefaultTimeout)
	tr := &httpx.Transport{
		Domain:  domain.Observability,
		Adapter: name,
		Token:   token,
		Header:  http.Header{"User-Agent": {"pai"}},
		Logger:  p.Log(),
	}

	client, err := api.NewClient(api.Config{Address: url, Client: httpx.NewClient(tr, timeout)})
	if err != nil {
		return nil, fmt.Errorf("prometheus client: %w", err)
	}

	opts := httpx.RetryOptions(p.Log())
	opts.MaxAttempts = p.Options.Int("retries", retry.DefaultMaxAttempts)
	opts.InitialDelay = p.Options.Duration("retry_delay", retry.DefaultInitialDelay)
	opts.Retryable = retryable

	return &Provider{
		name:    name,
		url:     url,
		api:     v1.NewAPI(client),
		timeout: timeout,
		retry:   opts,
		logger:  p.Log(),
	}, nil
}

func (p *Provider) Name() string { return p.name }

// HealthCheck asks the server for its build info
func (p *Provider) HealthCheck(ctx context.Context) domain.HealthStatus {
	start := time.Now()
	info, err := p.api.Buildinfo(ctx)
	if err != nil {
		return domain.Unhealthy("%s unreachable: %v", p.url, err)
	}
	status := domain.Healthy(fmt.Sprintf("prometheus %s", info.Version))
	status.Latency = time.Since(start)
	return status
}

func (p *Provider) InstantQuery(ctx context.Context, query string, at time.Time) (*domain.QueryResult, error) {
	if at.IsZero() {
		at = time.Now()
	}
	var warnings v1.Warnings
	value, err := retry.Value(ctx, func(ctx context.Context) (model.Value, error) {
		v, w, err := p.api.Query(ctx, query, at, v1.WithTimeout(p.timeout))
		warnings = w
		return v, err
	}, p.retry)
	if err != nil {
		return nil, p.wrap(err)
	}
	return convertValue(value, warnings), nil
}

func (p *Provider) RangeQuery(ctx context.Context, query string, r domain.QueryRange) (*domain.QueryResult, error) {
	if r.Step <= 0 {
		return nil, domain.ProviderFailed(domain.Observability, p.name, errors.New("range query step must be positive"))
	}
	var warnings v1.Warnings
	value, err := retry.Value(ctx, func(ctx context.Context) (model.Value, error) {
		v, w, err := p.api.QueryRange(ctx, query, v1.Range{Start: r.Start, End: r.End, Step: r.Step}, v1.WithTimeout(p.timeout))
		warnings = w
		return v, err
	}, p.retry)
	if err != nil {
		return nil, p.wrap(err)
	}
	return convertValue(value, warnings), nil
}

func (p *Provider) ListAlerts(ctx context.Context) ([]domain.Alert, error) {
	res, err := retry.Value(ctx, p.api.Alerts, p.retry)
	if err != nil {
		return nil, p.wrap(err)
	}

	alerts := make([]domain.Alert, 0, len(res.Alerts))
	for _, a := range res.Alerts {
		alert := domain.Alert{
			Name:        string(a.Labels[model.AlertNameLabel]),
			State:       domain.AlertState(a.State),
			Severity:    string(a.Labels["severity"]),
			Labels:      labelMap(a.Labels),
			Annotations: labelMap(a.Annotations),
			Value:       a.Value,
		}
		if !a.ActiveAt.IsZero() {
			activeAt := a.ActiveAt
			alert.ActiveAt = &activeAt
		}
		alerts = append(alerts, alert)
	}
	sort.SliceStable(alerts, func(i, j int) bool { return alerts[i].Name < alerts[j].Name })
	return alerts, nil
}

func (p *Provider) ListTargets(ctx context.Context) ([]domain.Target, error) {
	res, err := retry.Value(ctx, p.api.Targets, p.retry)
	if err != nil {
		return nil, p.wrap(err)
	}

	targets := make([]domain.Target, 0, len(res.Active))
	for _, t := range res.Active {
		targets = append(targets, domain.Target{
			Job:        string(t.Labels[model.JobLabel]),
			URL:        t.ScrapeURL,
			Health:     convertHealth(t.Health),
			Labels:     labelMap(t.Labels),
			LastError:  t.LastError,
			LastScrape: t.LastScrape,
		})
	}
	sort.SliceStable(targets, func(i, j int) bool {
		if targets[i].Job != targets[j].Job {
			return targets[i].Job < targets[j].Job
		}
		return targets[i].URL < targets[j].URL
	})
	return targets, nil
}

// wrap keeps domain errors and turns everything else into a provider error
func (p *Provider) wrap(err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return de
	}
	return domain.ProviderFailed(domain.Observability, p.name, err)
}

// retryable retries transport failures and server-side API errors, never
// bad queries
func retryable(err error) bool {
	var apiErr *v1.Error
	if errors.As(err, &apiErr) {
		return apiErr.Type == v1.ErrServer || apiErr.Type == v1.ErrTimeout
	}
	return httpx.Retryable(err)
}

func convertHealth(h v1.HealthStatus) domain.TargetHealth {
	switch h {
	case v1.HealthGood:
		return domain.TargetUp
	case v1.HealthBad:
		return domain.TargetDown
	default:
		return domain.TargetUnknown
	}
}
