package mock

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"k8s.io/apimachinery/pkg/labels"

	"pai/internal/adapter"
	"pai/internal/domain"
)

// Containers simulates deployments in the "default" namespace, seeded from
// the "deployments" option (name to replica count). Each replica is one
// running container labelled app=<name>.
type Containers struct {
	base
	mu          sync.Mutex
	deployments map[string]int32
}

// NewContainers builds a Containers mock
func NewContainers(p adapter.Params) (*Containers, error) {
	deployments := make(map[string]int32)
	for name, replicas := range p.Options.StringMap("deployments") {
		var n int32
		if _, err := fmt.Sscan(replicas, &n); err != nil || n < 0 {
			return nil, fmt.Errorf("deployments.%s: invalid replica count %q", name, replicas)
		}
		deployments[name] = n
	}
	return &Containers{base: newBase(p), deployments: deployments}, nil
}

const mockNamespace = "default"

func (c *Containers) ListContainers(ctx context.Context, q domain.ContainerQuery) ([]domain.Container, error) {
	selector, err := labels.Parse(q.Selector)
	if err != nil {
		return nil, domain.ProviderFailed(domain.Containers, c.name, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	out := []domain.Container{}
	if q.Namespace != "" && q.Namespace != mockNamespace {
		return out, nil
	}
	for _, name := range slices.Sorted(maps.Keys(c.deployments)) {
		lbls := map[string]string{"app": name}
		if !selector.Matches(labels.Set(lbls)) {
			continue
		}
		for i := range c.deployments[name] {
			out = append(out, domain.Container{
				ID:        fmt.Sprintf("%s-%d", name, i),
				Name:      fmt.Sprintf("%s-%d", name, i),
				Namespace: mockNamespace,
				Image:     name + ":latest",
				State:     "running",
				Ready:     true,
				Labels:    lbls,
			})
		}
	}
	return out, nil
}

func (c *Containers) ListDeployments(ctx context.Context, namespace string) ([]domain.Deployment, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := []domain.Deployment{}
	if namespace != "" && namespace != mockNamespace {
		return out, nil
	}
	for _, name := range slices.Sorted(maps.Keys(c.deployments)) {
		n := c.deployments[name]
		out = append(out, domain.Deployment{
			Name:      name,
			Namespace: mockNamespace,
			Replicas:  n,
			Ready:     n,
			Available: n,
			Image:     name + ":latest",
		})
	}
	return out, nil
}

func (c *Containers) ScaleDeployment(ctx context.Context, namespace, name string, replicas int32) error {
	if replicas < 0 {
		return domain.ProviderFailed(domain.Containers, c.name, fmt.Errorf("replicas must be >= 0, got %d", replicas))
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.deployments[name]; !ok || (namespace != "" && namespace != mockNamespace) {
		return domain.NotFound(domain.Containers, "deployment", name)
	}
	c.deployments[name] = replicas
	return nil
}

func (c *Containers) GetLogs(ctx context.Context, namespace, container string, tail int64) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := strings.LastIndex(container, "-")
	if i < 0 {
		return "", domain.NotFound(domain.Containers, "container", container)
	}
	if _, ok := c.deployments[container[:i]]; !ok {
		return "", domain.NotFound(domain.Containers, "container", container)
	}
	lines := []string{
		container + " starting",
		container + " listening on :8080",
		container + " ready",
	}
	if tail > 0 && int(tail) < len(lines) {
		lines = lines[len(lines)-int(tail):]
	}
	return strings.Join(lines, "\n") + "\n", nil
}
