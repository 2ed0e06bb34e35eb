package mock

import (
	"context"
	"maps"
	"slices"
	"time"

	"github.com/spf13/cast"

	"pai/internal/adapter"
	"pai/internal/domain"
)

// Observability answers queries from fixed values.
//
//	metrics: {up: 1, http_requests_total: 42}
//	alerts:  {HighLatency: firing}
//	targets: {node: http://localhost:9100/metrics}
type Observability struct {
	base
	metrics map[string]float64
	alerts  map[string]string
	targets map[string]string
}

// NewObservability builds an Observability mock
func NewObservability(p adapter.Params) (*Observability, error) {
	metrics := make(map[string]float64)
	for k, v := range cast.ToStringMap(p.Options["metrics"]) {
		metrics[k] = cast.ToFloat64(v)
	}
	return &Observability{
		base:    newBase(p),
		metrics: metrics,
		alerts:  p.Options.StringMap("alerts"),
		targets: p.Options.StringMap("targets"),
	}, nil
}

func (o *Observability) InstantQuery(ctx context.Context, query string, at time.Time) (*domain.QueryResult, error) {
	res := &domain.QueryResult{Type: domain.ResultVector, Series: []domain.Series{}}
	if v, ok := o.metrics[query]; ok {
		res.Series = append(res.Series, domain.Series{
			Labels:  map[string]string{"__name__": query},
			Samples: []domain.Sample{{Time: at, Value: v}},
		})
	}
	return res, nil
}

func (o *Observability) RangeQuery(ctx context.Context, query string, r domain.QueryRange) (*domain.QueryResult, error) {
	res := &domain.QueryResult{Type: domain.ResultMatrix, Series: []domain.Series{}}
	v, ok := o.metrics[query]
	if !ok || r.Step <= 0 || r.End.Before(r.Start) {
		return res, nil
	}
	series := domain.Series{Labels: map[string]string{"__name__": query}}
	for t := r.Start; !t.After(r.End); t = t.Add(r.Step) {
		series.Samples = append(series.Samples, domain.Sample{Time: t, Value: v})
	}
	res.Series = append(res.Series, series)
	return res, nil
}

func (o *Observability) ListAlerts(ctx context.Context) ([]domain.Alert, error) {
	alerts := make([]domain.Alert, 0, len(o.alerts))
	for _, name := range slices.Sorted(maps.Keys(o.alerts)) {
		alerts = append(alerts, domain.Alert{Name: name, State: domain.AlertState(o.alerts[name])})
	}
	return alerts, nil
}

func (o *Observability) ListTargets(ctx context.Context) ([]domain.Target, error) {
	targets := make([]domain.Target, 0, len(o.targets))
	for _, job := range slices.Sorted(maps.Keys(o.targets)) {
		targets = append(targets, domain.Target{Job: job, URL: o.targets[job], Health: domain.TargetUp})
	}
	return targets, nil
}
