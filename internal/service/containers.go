package service

import (
	"context"

	"pai/internal/domain"
	"pai/internal/provider"
)

// Containers lists containers matching q
func (s *Service) Containers(ctx context.Context, q domain.ContainerQuery, opts provider.Options) ([]domain.Container, error) {
	c := Call{Domain: domain.Containers, Operation: "list", Target: q.Selector, Options: opts}
	return run(ctx, s, c, func(p domain.ContainersProvider) ([]domain.Container, error) {
		return p.ListContainers(ctx, q)
	})
}

// Deployments lists deployments in namespace
func (s *Service) Deployments(ctx context.Context, namespace string, opts provider.Options) ([]domain.Deployment, error) {
	c := Call{Domain: domain.Containers, Operation: "deployments", Target: namespace, Options: opts}
	return run(ctx, s, c, func(p domain.ContainersProvider) ([]domain.Deployment, error) {
		return p.ListDeployments(ctx, namespace)
	})
}

// Scale sets the replica count of a deployment
func (s *Service) Scale(ctx context.Context, namespace, name string, replicas int32, opts provider.Options) error {
	if replicas < 0 {
		return domain.ConfigurationError(domain.Containers, "replicas must not be negative")
	}
	c := Call{Domain: domain.Containers, Operation: "scale", Target: name, Options: opts}
	return exec(ctx, s, c, func(p domain.ContainersProvider) error {
		return p.ScaleDeployment(ctx, namespace, name, replicas)
	})
}

// ContainerLogs returns the last tail lines of a container's log
func (s *Service) ContainerLogs(ctx context.Context, namespace, container string, tail int64, opts provider.Options) (string, error) {
	c := Call{Domain: domain.Containers, Operation: "logs", Target: container, Options: opts}
	return run(ctx, s, c, func(p domain.ContainersProvider) (string, error) {
		return p.GetLogs(ctx, namespace, container, tail)
	})
}
