package domain

import (
	"context"
	"time"
)

// ContainersProvider inspects and manages workloads on a container platform
type ContainersProvider interface {
	Provider

	ListContainers(ctx context.Context, q ContainerQuery) ([]Container, error)
	ListDeployments(ctx context.Context, namespace string) ([]Deployment, error)
	ScaleDeployment(ctx context.Context, namespace, name string, replicas int32) error
	GetLogs(ctx context.Context, namespace, container string, tail int64) (string, error)
}

// ContainerQuery filters ListContainers
type ContainerQuery struct {
	Namespace string
	Selector  string // label selector, e.g. "app=web"
}

// Container is a running or stopped container
type Container struct {
	ID        string            `json:"id" yaml:"id"`
	Name      string            `json:"name" yaml:"name"`
	Namespace string            `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	Image     string            `json:"image" yaml:"image"`
	State     string            `json:"state" yaml:"state"`
	Ready     bool              `json:"ready" yaml:"ready"`
	Restarts  int32             `json:"restarts" yaml:"restarts"`
	Labels    map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
	StartedAt *time.Time        `json:"startedAt,omitempty" yaml:"startedAt,omitempty"`
}

// Deployment is a replicated workload
type Deployment struct {
	Name      string `json:"name" yaml:"name"`
	Namespace string `json:"namespace" yaml:"namespace"`
	Replicas  int32  `json:"replicas" yaml:"replicas"`
	Ready     int32  `json:"ready" yaml:"ready"`
	Available int32  `json:"available" yaml:"available"`
	Image     string `json:"image,omitempty" yaml:"image,omitempty"`
}
