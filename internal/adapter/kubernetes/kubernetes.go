// Package kubernetes implements the containers domain on a Kubernetes
// cluster through client-go.
//
//	kubeconfig: ~/.kube/config   # default: $KUBECONFIG, ~/.kube/config, in-cluster
//	context: prod                # default: current context
//	namespace: apps              # default: the context's namespace
//	timeout: 30s
package kubernetes

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/retry"

	"pai/internal/adapter"
	"pai/internal/domain"
)

// Name is the adapter name
const Name = "kubernetes"

// maxLogBytes caps a single GetLogs response
const maxLogBytes = 4 << 20

// Register adds the containers adapter to c
func Register(c *adapter.Catalog) {
	c.MustRegister(adapter.Manifest{
		Name:         Name,
		Domain:       domain.Containers,
		Description:  "Kubernetes pods and deployments",
		Capabilities: []string{"containers", "deployments", "scale", "logs"},
	}, adapter.Typed(New))
}

// Cluster is the Kubernetes containers provider
type Cluster struct {
	name      string
	client    kubernetes.Interface
	namespace string
	logger    *slog.Logger
}

// New loads a client configuration from kubeconfig (or the in-cluster
// service account) and builds a Cluster
func New(p adapter.Params) (*Cluster, error) {
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if path := p.Options.String("kubeconfig", ""); path != "" {
		rules.ExplicitPath = path
	}
	overrides := &clientcmd.ConfigOverrides{CurrentContext: p.Options.String("context", "")}
	loader := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, overrides)

	cfg, err := loader.ClientConfig()
	if err != nil {
		return nil, domain.ConfigurationError(domain.Containers, "adapter %s: load kubeconfig: %v", p.Name(Name), err)
	}
	cfg.Timeout = p.Options.Duration("timeout", 30*time.Second)
	cfg.UserAgent = "pai"

	namespace := p.Options.String("namespace", "")
	if namespace == "" {
		if namespace, _, err = loader.Namespace(); err != nil || namespace == "" {
			namespace = metav1.NamespaceDefault
		}
	}

	clientset, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, domain.ConfigurationError(domain.Containers, "adapter %s: %v", p.Name(Name), err)
	}
	return NewWithClient(p.Name(Name), clientset, namespace, p.Log()), nil
}

// NewWithClient wraps an existing clientset
func NewWithClient(name string, client kubernetes.Interface, namespace string, logger *slog.Logger) *Cluster {
	if namespace == "" {
		namespace = metav1.NamespaceDefault
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Cluster{name: name, client: client, namespace: namespace, logger: logger}
}

func (c *Cluster) Name() string { return c.name }

// HealthCheck asks the API server for its version
func (c *Cluster) HealthCheck(ctx context.Context) domain.HealthStatus {
	if err := ctx.Err(); err != nil {
		return domain.Unhealthy("%v", err)
	}
	start := time.Now()
	v, err := c.client.Discovery().ServerVersion()
	if err != nil {
		return domain.Unhealthy("api server: %v", c.wrap(err, "", ""))
	}
	status := domain.Healthy(strings.TrimSpace("kubernetes " + v.GitVersion))
	status.Latency = time.Since(start)
	return status
}

func (c *Cluster) ns(namespace string) string {
	if namespace == "" {
		return c.namespace
	}
	if namespace == "*" {
		return metav1.NamespaceAll
	}
	return namespace
}

// ListContainers returns one entry per container of each matching pod,
// named <pod>/<container>
func (c *Cluster) ListContainers(ctx context.Context, q domain.ContainerQuery) ([]domain.Container, error) {
	if _, err := labels.Parse(q.Selector); err != nil {
		return nil, domain.ProviderFailed(domain.Containers, c.name, err)
	}
	pods, err := c.client.CoreV1().Pods(c.ns(q.Namespace)).List(ctx, metav1.ListOptions{LabelSelector: q.Selector})
	if err != nil {
		return nil, c.wrap(err, "", "")
	}

	out := []domain.Container{}
	for _, pod := range pods.Items {
		statuses := make(map[string]corev1.ContainerStatus, len(pod.Status.ContainerStatuses))
		for _, s := range pod.Status.ContainerStatuses {
			statuses[s.Name] = s
		}
		for _, spec := range pod.Spec.Containers {
			out = append(out, convertContainer(&pod, spec, statuses[spec.Name]))
		}
	}
	slices.SortFunc(out, func(a, b domain.Container) int {
		return cmp.Or(cmp.Compare(a.Namespace, b.Namespace), cmp.Compare(a.Name, b.Name))
	})
	return out, nil
}

func (c *Cluster) ListDeployments(ctx context.Context, namespace string) ([]domain.Deployment, error) {
	list, err := c.client.AppsV1().Deployments(c.ns(namespace)).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, c.wrap(err, "", "")
	}
	out := make([]domain.Deployment, 0, len(list.Items))
	for i := range list.Items {
		out = append(out, convertDeployment(&list.Items[i]))
	}
	slices.SortFunc(out, func(a, b domain.Deployment) int {
		return cmp.Or(cmp.Compare(a.Namespace, b.Namespace), cmp.Compare(a.Name, b.Name))
	})
	return out, nil
}

// ScaleDeployment sets spec.replicas, retrying on update conflicts
func (c *Cluster) ScaleDeployment(ctx context.Context, namespace, name string, replicas int32) error {
	if replicas < 0 {
		return domain.ProviderFailed(domain.Containers, c.name, fmt.Errorf("replicas must be >= 0, got %d", replicas))
	}
	deployments := c.client.AppsV1().Deployments(c.ns(namespace))
	err := retry.RetryOnConflict(retry.DefaultRetry, func() error {
		d, err := deployments.Get(ctx, name, metav1.GetOptions{})
		if err != nil {
			return err
		}
		d.Spec.Replicas = &replicas
		_, err = deployments.Update(ctx, d, metav1.UpdateOptions{})
		return err
	})
	if err != nil {
		return c.wrap(err, "deployment", name)
	}
	c.logger.Info("scaled deployment", "namespace", c.ns(namespace), "name", name, "replicas", replicas)
	return nil
}

// GetLogs returns the last tail lines (all when tail <= 0) of container,
// given as <pod> or <pod>/<container>
func (c *Cluster) GetLogs(ctx context.Context, namespace, container string, tail int64) (string, error) {
	pod, name, _ := strings.Cut(container, "/")
	opts := &corev1.PodLogOptions{Container: name}
	if tail > 0 {
		opts.TailLines = &tail
	}

	stream, err := c.client.CoreV1().Pods(c.ns(namespace)).GetLogs(pod, opts).Stream(ctx)
	if err != nil {
		return "", c.wrap(err, "container", container)
	}
	defer stream.Close()

	var b strings.Builder
	if _, err := io.Copy(&b, io.LimitReader(stream, maxLogBytes)); err != nil {
		return "", domain.ProviderFailed(domain.Containers, c.name, err)
	}
	return b.String(), nil
}

// wrap maps API status errors onto the domain taxonomy
func (c *Cluster) wrap(err error, entity, id string) error {
	var de *domain.Error
	switch {
	case errors.As(err, &de):
		return de
	case apierrors.IsNotFound(err) && entity != "":
		return domain.NotFound(domain.Containers, entity, id)
	case apierrors.IsUnauthorized(err), apierrors.IsForbidden(err):
		return domain.AuthenticationFailed(domain.Containers, c.name, err)
	case apierrors.IsTooManyRequests(err):
		delay, _ := apierrors.SuggestsClientDelay(err)
		return domain.RateLimited(domain.Containers, c.name, time.Duration(delay)*time.Second)
	default:
		return domain.ProviderFailed(domain.Containers, c.name, err)
	}
}

func convertContainer(pod *corev1.Pod, spec corev1.Container, status corev1.ContainerStatus) domain.Container {
	out := domain.Container{
		ID:        status.ContainerID,
		Name:      pod.Name + "/" + spec.Name,
		Namespace: pod.Namespace,
		Image:     spec.Image,
		State:     "waiting",
		Ready:     status.Ready,
		Restarts:  status.RestartCount,
		Labels:    pod.Labels,
	}
	if out.ID == "" {
		out.ID = string(pod.UID) + "/" + spec.Name
	}
	switch s := status.State; {
	case s.Running != nil:
		out.State = "running"
		started := s.Running.StartedAt.UTC()
		out.StartedAt = &started
	case s.Terminated != nil:
		out.State = "terminated"
		if s.Terminated.Reason != "" {
			out.State += ": " + s.Terminated.Reason
		}
	case s.Waiting != nil && s.Waiting.Reason != "":
		out.State = "waiting: " + s.Waiting.Reason
	}
	return out
}

func convertDeployment(d *appsv1.Deployment) domain.Deployment {
	out := domain.Deployment{
		Name:      d.Name,
		Namespace: d.Namespace,
		Replicas:  1,
		Ready:     d.Status.ReadyReplicas,
		Available: d.Status.AvailableReplicas,
	}
	if d.Spec.Replicas != nil {
		out.Replicas = *d.Spec.Replicas
	}
	if len(d.Spec.Template.Spec.Containers) > 0 {
		out.Image = d.Spec.Template.Spec.Containers[0].Image
	}
	return out
}
