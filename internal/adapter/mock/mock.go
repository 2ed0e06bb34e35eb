// Package mock provides in-memory adapters for every domain.
//
// Mocks are always installed. They serve as a last-resort fallback and
// as fixtures for tests. Every mock honours two options:
//
//	healthy: false        # report unhealthy
//	message: "..."        # health message
//
// Each domain adds its own seed options (secrets, metrics, hosts, ...).
package mock

import (
	"context"
	"errors"
	"time"

	"pai/internal/adapter"
	"pai/internal/domain"
)

// Name is the adapter name mocks register under
const Name = "mock"

// Register adds the mock adapter of every domain to c
func Register(c *adapter.Catalog) {
	register := func(d domain.Domain, caps []string, f adapter.Factory) {
		c.MustRegister(adapter.Manifest{
			Name:         Name,
			Domain:       d,
			Description:  "in-memory " + string(d) + " adapter",
			Capabilities: caps,
		}, f)
	}
	register(domain.Secrets, []string{"get", "list"}, adapter.Typed(NewSecrets))
	register(domain.Observability, []string{"query", "alerts", "targets"}, adapter.Typed(NewObservability))
	register(domain.CICD, []string{"pipelines", "runs", "trigger", "cancel", "logs", "artifacts"}, adapter.Typed(NewCICD))
	register(domain.Issues, []string{"list", "get", "create", "update"}, adapter.Typed(NewIssues))
	register(domain.Containers, []string{"list", "deployments", "scale", "logs"}, adapter.Typed(NewContainers))
	register(domain.Network, []string{"hosts", "probe"}, adapter.Typed(NewNetwork))
}

var errTitleRequired = errors.New("title is required")

// base carries the name and health behaviour shared by all mocks
type base struct {
	name    string
	healthy bool
	message string
}

func newBase(p adapter.Params) base {
	return base{
		name:    p.Name(Name),
		healthy: p.Options.Bool("healthy", true),
		message: p.Options.String("message", "mock adapter"),
	}
}

func (b base) Name() string { return b.name }

func (b base) HealthCheck(ctx context.Context) domain.HealthStatus {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return domain.Unhealthy("%v", err)
	}
	status := domain.HealthStatus{Healthy: b.healthy, Message: b.message}
	status.Latency = time.Since(start)
	return status
}
