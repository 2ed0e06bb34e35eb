package provider

import (
	"context"
	"time"

	"pai/internal/adapter"
	"pai/internal/domain"
)

// Role is a configured adapter's place in the candidate chain
type Role string

const (
	RolePrimary  Role = "primary"
	RoleFallback Role = "fallback"
	RoleNone     Role = ""
)

// AdapterInfo is a discovered adapter and its configured role
type AdapterInfo struct {
	adapter.Manifest
	Role       Role `json:"role,omitempty" yaml:"role,omitempty"`
	Configured bool `json:"configured" yaml:"configured"`
}

// ListAvailableAdapters returns the adapters discovered for d, sorted by
// name, with the role each plays in the configuration
func (f *Factory) ListAvailableAdapters(d domain.Domain) ([]AdapterInfo, error) {
	manifests, err := f.registry.Discover(d)
	if err != nil {
		return nil, err
	}
	dc, err := f.resolver.DomainConfig(d)
	if err != nil {
		return nil, err
	}

	out := make([]AdapterInfo, 0, len(manifests))
	for _, m := range manifests {
		info := AdapterInfo{Manifest: m}
		if dc != nil {
			switch m.Name {
			case dc.Primary:
				info.Role = RolePrimary
			case dc.Fallback:
				info.Role = RoleFallback
			}
			_, info.Configured = dc.Adapters[m.Name]
		}
		out = append(out, info)
	}
	return out, nil
}

// CandidateHealth is the probe result for one chain candidate
type CandidateHealth struct {
	Domain    domain.Domain `json:"domain" yaml:"domain"`
	Adapter   string        `json:"adapter" yaml:"adapter"`
	Role      Role          `json:"role" yaml:"role"`
	Healthy   bool          `json:"healthy" yaml:"healthy"`
	Message   string        `json:"message,omitempty" yaml:"message,omitempty"`
	LatencyMs int64         `json:"latencyMs" yaml:"latencyMs"`
	CheckedAt time.Time     `json:"checkedAt" yaml:"checkedAt"`
}

// Health builds and probes every candidate in d's chain. Unlike
// GetProviderWithFallback it does not stop at the first healthy one.
// Build failures are reported as unhealthy candidates.
func (f *Factory) Health(ctx context.Context, d domain.Domain, opts Options) ([]CandidateHealth, error) {
	dc, err := f.resolver.DomainConfig(d)
	if err != nil {
		return nil, err
	}
	chain := dc.Chain(opts.Adapter)
	if len(chain) == 0 {
		return nil, noAdapterConfigured(d)
	}

	out := make([]CandidateHealth, 0, len(chain))
	for i, name := range chain {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		h := CandidateHealth{Domain: d, Adapter: name, Role: RolePrimary, CheckedAt: time.Now().UTC()}
		if i > 0 {
			h.Role = RoleFallback
		}

		p, err := f.build(d, dc, name, opts)
		if err != nil {
			f.candidateFailed(d, name, err)
			h.Message = err.Error()
			out = append(out, h)
			continue
		}
		status := f.probe(ctx, d, name, p)
		h.Healthy = status.Healthy
		h.Message = status.Message
		h.LatencyMs = status.LatencyMs()
		out = append(out, h)
	}
	return out, nil
}
