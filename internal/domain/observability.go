package domain

import (
	"context"
	"time"
)

// ObservabilityProvider queries a metrics and alerting backend
type ObservabilityProvider interface {
	Provider

	InstantQuery(ctx context.Context, query string, at time.Time) (*QueryResult, error)
	RangeQuery(ctx context.Context, query string, r QueryRange) (*QueryResult, error)
	ListAlerts(ctx context.Context) ([]Alert, error)
	ListTargets(ctx context.Context) ([]Target, error)
}

// QueryRange bounds a range query
type QueryRange struct {
	Start time.Time     `json:"start"`
	End   time.Time     `json:"end"`
	Step  time.Duration `json:"step"`
}

// ResultType names the shape of a query result
type ResultType string

const (
	ResultVector ResultType = "vector"
	ResultMatrix ResultType = "matrix"
	ResultScalar ResultType = "scalar"
	ResultString ResultType = "string"
)

// QueryResult is a backend-neutral query result
type QueryResult struct {
	Type     ResultType `json:"resultType" yaml:"resultType"`
	Series   []Series   `json:"series" yaml:"series"`
	Warnings []string   `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Series is one labelled time series
type Series struct {
	Labels  map[string]string `json:"labels" yaml:"labels"`
	Samples []Sample          `json:"samples" yaml:"samples"`
}

// Sample is one point of a series
type Sample struct {
	Time  time.Time `json:"time" yaml:"time"`
	Value float64   `json:"value" yaml:"value"`
}

// AlertState is the lifecycle state of an alert
type AlertState string

const (
	AlertFiring   AlertState = "firing"
	AlertPending  AlertState = "pending"
	AlertInactive AlertState = "inactive"
)

// Alert is an active or pending alert
type Alert struct {
	Name        string            `json:"name" yaml:"name"`
	State       AlertState        `json:"state" yaml:"state"`
	Severity    string            `json:"severity,omitempty" yaml:"severity,omitempty"`
	Labels      map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
	Annotations map[string]string `json:"annotations,omitempty" yaml:"annotations,omitempty"`
	ActiveAt    *time.Time        `json:"activeAt,omitempty" yaml:"activeAt,omitempty"`
	Value       string            `json:"value,omitempty" yaml:"value,omitempty"`
}

// TargetHealth is the scrape health of a target
type TargetHealth string

const (
	TargetUp      TargetHealth = "up"
	TargetDown    TargetHealth = "down"
	TargetUnknown TargetHealth = "unknown"
)

// Target is a monitored endpoint
type Target struct {
	Job        string            `json:"job" yaml:"job"`
	URL        string            `json:"url" yaml:"url"`
	Health     TargetHealth      `json:"health" yaml:"health"`
	Labels     map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
	LastError  string            `json:"lastError,omitempty" yaml:"lastError,omitempty"`
	LastScrape time.Time         `json:"lastScrape" yaml:"lastScrape"`
}
