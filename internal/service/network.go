package service

import (
	"context"
	"net"
	"strconv"

	"pai/internal/domain"
	"pai/internal/provider"
)

// Scan discovers live hosts in target
func (s *Service) Scan(ctx context.Context, target string, opts provider.Options) ([]domain.Host, error) {
	c := Call{Domain: domain.Network, Operation: "scan", Target: target, Options: opts}
	return run(ctx, s, c, func(p domain.NetworkProvider) ([]domain.Host, error) {
		return p.ListHosts(ctx, target)
	})
}

// Probe checks one port on host
func (s *Service) Probe(ctx context.Context, host string, port int, opts provider.Options) (*domain.ProbeResult, error) {
	if port < 0 || port > 65535 {
		return nil, domain.ConfigurationError(domain.Network, "invalid port %d", port)
	}
	c := Call{Domain: domain.Network, Operation: "probe", Target: net.JoinHostPort(host, strconv.Itoa(port)), Options: opts}
	return run(ctx, s, c, func(p domain.NetworkProvider) (*domain.ProbeResult, error) {
		return p.Probe(ctx, host, port)
	})
}
