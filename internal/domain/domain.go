package domain

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Domain is a category of capability with its own interface and config section
type Domain string

const (
	Secrets       Domain = "secrets"
	Observability Domain = "observability"
	CICD          Domain = "cicd"
	Issues        Domain = "issues"
	Containers    Domain = "containers"
	Network       Domain = "network"
)

// Domains lists every known domain in display order
func Domains() []Domain {
	return []Domain{Secrets, Observability, CICD, Issues, Containers, Network}
}

// ParseDomain converts a string to a known Domain
func ParseDomain(s string) (Domain, error) {
	d := Domain(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Domains() {
		if d == known {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown domain %q", s)
}

// Label returns the upper-case tag used in audit lines
func (d Domain) Label() string {
	return strings.ToUpper(string(d))
}

// Provider is implemented by every adapter of every domain
type Provider interface {
	// Name returns the adapter name the provider was loaded as
	Name() string

	// HealthCheck performs a lightweight probe of the backing platform
	HealthCheck(ctx context.Context) HealthStatus
}

// HealthStatus is the transient result of one health check
type HealthStatus struct {
	Healthy bool          `json:"healthy" yaml:"healthy"`
	Message string        `json:"message,omitempty" yaml:"message,omitempty"`
	Latency time.Duration `json:"-" yaml:"-"`
}

// LatencyMs reports latency in whole milliseconds
func (h HealthStatus) LatencyMs() int64 {
	return h.Latency.Milliseconds()
}

// Healthy builds a healthy status
func Healthy(message string) HealthStatus {
	return HealthStatus{Healthy: true, Message: message}
}

// Unhealthy builds an unhealthy status from a message or error
func Unhealthy(format string, args ...any) HealthStatus {
	return HealthStatus{Healthy: false, Message: fmt.Sprintf(format, args...)}
}
