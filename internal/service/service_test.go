package service

import (
	"context"
	"encoding/json"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pai/internal/adapter"
	"pai/internal/adapter/mock"
	"pai/internal/audit"
	"pai/internal/config"
	"pai/internal/domain"
	"pai/internal/provider"
)

type mapFS fstest.MapFS

func (m mapFS) key(name string) string {
	return strings.TrimPrefix(filepath.ToSlash(filepath.Clean(name)), "/")
}

func (m mapFS) Stat(name string) (fs.FileInfo, error) {
	return fstest.MapFS(m).Stat(m.key(name))
}

func (m mapFS) ReadFile(name string) ([]byte, error) {
	return fstest.MapFS(m).ReadFile(m.key(name))
}

type auditLog struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (l *auditLog) Log(_ context.Context, e audit.Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
	return nil
}

func (l *auditLog) Recent(_ context.Context, q audit.Query) ([]audit.Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []audit.Entry
	for i := len(l.entries) - 1; i >= 0; i-- {
		out = append(out, l.entries[i])
	}
	return out, nil
}

func (l *auditLog) last(t *testing.T) audit.Entry {
	t.Helper()
	l.mu.Lock()
	defer l.mu.Unlock()
	require.NotEmpty(t, l.entries)
	return l.entries[len(l.entries)-1]
}

type events struct {
	mu   sync.Mutex
	seen []Event
}

func (e *events) Broadcast(ev any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seen = append(e.seen, ev.(Event))
}

func (e *events) types() []EventType {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []EventType
	for _, ev := range e.seen {
		out = append(out, ev.Type)
	}
	return out
}

const mockDoc = `
domains:
  secrets:
    primary: keychain
    fallback: mock
    adapters:
      mock:
        secrets:
          API_KEY: x
          API_SECRET: y
          DATABASE_URL: postgres://db
  observability:
    primary: mock
    adapters:
      mock:
        metrics: {up: 1}
        alerts: {HighLatency: firing, DiskFull: pending}
        targets: {node: "http://localhost:9100/metrics"}
  cicd:
    primary: mock
    adapters:
      mock:
        pipelines: [ci, deploy]
  issues:
    primary: mock
    adapters:
      mock:
        issues: [first, second]
  containers:
    primary: mock
    adapters:
      mock:
        deployments: {web: "2"}
`

type fixture struct {
	svc    *Service
	audit  *auditLog
	events *events
}

func newFixture(t *testing.T, doc string) *fixture {
	t.Helper()
	c := adapter.NewCatalog()
	mock.Register(c)

	fsys := mapFS{}
	if doc != "" {
		fsys["etc/pai/providers.yaml"] = &fstest.MapFile{Data: []byte(doc)}
	}
	resolver := config.NewResolver(
		config.WithPath("/etc/pai/providers.yaml"),
		config.WithFileSystem(fsys),
		config.WithEnv(func(string) string { return "" }),
	)

	fx := &fixture{audit: &auditLog{}, events: &events{}}
	fx.svc = New(provider.NewFactory(resolver, adapter.NewRegistry(c)),
		WithAudit(fx.audit),
		WithAuditStore(fx.audit),
		WithEvents(fx.events),
	)
	return fx
}

func TestListSecretsPattern(t *testing.T) {
	fx := newFixture(t, `
domains:
  secrets:
    primary: mock
    adapters:
      mock:
        secrets:
          API_KEY: x
          DATABASE_URL: postgres://db
`)

	keys, err := fx.svc.ListSecrets(context.Background(), SecretFilter{Pattern: "API_*"}, provider.Options{})
	require.NoError(t, err)

	data, err := json.Marshal(keys)
	require.NoError(t, err)
	assert.JSONEq(t, `{"keys":["API_KEY"],"count":1}`, string(data))

	e := fx.audit.last(t)
	assert.Equal(t, "LIST", e.Operation)
	assert.Equal(t, "mock", e.Provider)
	assert.Equal(t, "API_*", e.Target)
	assert.True(t, e.Success)
}

func TestListSecretsUsesFallback(t *testing.T) {
	fx := newFixture(t, mockDoc)

	keys, err := fx.svc.ListSecrets(context.Background(), SecretFilter{Pattern: "API_*", Limit: 1}, provider.Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"API_KEY"}, keys.Keys)
	assert.Equal(t, 1, keys.Count)

	all, err := fx.svc.ListSecrets(context.Background(), SecretFilter{}, provider.Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"API_KEY", "API_SECRET", "DATABASE_URL"}, all.Keys)
}

func TestListSecretsBadPattern(t *testing.T) {
	fx := newFixture(t, mockDoc)

	_, err := fx.svc.ListSecrets(context.Background(), SecretFilter{Pattern: "API_["}, provider.Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.Empty(t, fx.audit.entries, "rejected before any provider call")
}

func TestFilterKeys(t *testing.T) {
	keys := []string{"b", "API_KEY", "a", "API_KEY", "API_TOKEN"}

	tests := []struct {
		name   string
		filter SecretFilter
		want   []string
	}{
		{"all sorted and unique", SecretFilter{}, []string{"API_KEY", "API_TOKEN", "a", "b"}},
		{"glob", SecretFilter{Pattern: "API_*"}, []string{"API_KEY", "API_TOKEN"}},
		{"single char", SecretFilter{Pattern: "?"}, []string{"a", "b"}},
		{"limit", SecretFilter{Limit: 2}, []string{"API_KEY", "API_TOKEN"}},
		{"no match", SecretFilter{Pattern: "DB_*"}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, filterKeys(keys, tt.filter))
		})
	}
}

func TestGetSecretAudit(t *testing.T) {
	fx := newFixture(t, mockDoc)
	ctx := context.Background()

	v, err := fx.svc.GetSecret(ctx, "API_KEY", provider.Options{})
	require.NoError(t, err)
	assert.Equal(t, "x", v)
	assert.Contains(t, fx.audit.last(t).String(), "GET provider=mock target=API_KEY status=SUCCESS")

	_, err = fx.svc.GetSecret(ctx, "MISSING", provider.Options{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, fx.audit.last(t).String(), "target=MISSING status=FAILED(NOT_FOUND)")

	assert.Equal(t, []EventType{EventOperation, EventOperation}, fx.events.types())
}

func TestUnconfiguredDomainAudit(t *testing.T) {
	fx := newFixture(t, "")

	_, err := fx.svc.Scan(context.Background(), "10.0.0.0/24", provider.Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	line := fx.audit.last(t).String()
	assert.True(t, strings.HasPrefix(line, "[NETWORK] "))
	assert.Contains(t, line, "SCAN provider=- target=10.0.0.0/24 status=FAILED(CONFIGURATION)")
}

func TestObservability(t *testing.T) {
	fx := newFixture(t, mockDoc)
	ctx := context.Background()

	res, err := fx.svc.Query(ctx, "up", time.Time{}, provider.Options{})
	require.NoError(t, err)
	require.Len(t, res.Series, 1)
	assert.Equal(t, 1.0, res.Series[0].Samples[0].Value)
	assert.False(t, res.Series[0].Samples[0].Time.IsZero())

	now := time.Now()
	r := domain.QueryRange{Start: now.Add(-time.Minute), End: now, Step: 30 * time.Second}
	res, err = fx.svc.QueryRange(ctx, "up", r, provider.Options{})
	require.NoError(t, err)
	assert.Len(t, res.Series[0].Samples, 3)

	_, err = fx.svc.QueryRange(ctx, "up", domain.QueryRange{Start: now, End: now.Add(-time.Hour), Step: time.Second}, provider.Options{})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	_, err = fx.svc.QueryRange(ctx, "up", domain.QueryRange{Start: now, End: now}, provider.Options{})
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	alerts, err := fx.svc.Alerts(ctx, domain.AlertFiring, provider.Options{})
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "HighLatency", alerts[0].Name)

	alerts, err = fx.svc.Alerts(ctx, "", provider.Options{})
	require.NoError(t, err)
	assert.Len(t, alerts, 2)

	targets, err := fx.svc.Targets(ctx, provider.Options{})
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, "node", targets[0].Job)
}

func TestCICD(t *testing.T) {
	fx := newFixture(t, mockDoc)
	ctx := context.Background()

	pipelines, err := fx.svc.Pipelines(ctx, "me/app", provider.Options{})
	require.NoError(t, err)
	assert.Len(t, pipelines, 2)

	run, err := fx.svc.Trigger(ctx, "me/app", "deploy", domain.TriggerOptions{Ref: "v1"}, provider.Options{})
	require.NoError(t, err)
	assert.Equal(t, "v1", run.Branch)
	assert.Contains(t, fx.audit.last(t).String(), "TRIGGER provider=mock target=me/app/deploy status=SUCCESS")

	// every call builds a fresh provider; runs do not survive between calls
	_, err = fx.svc.JobLogs(ctx, "me/app", run.ID, 0, provider.Options{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, "FAILED(NOT_FOUND)", fx.audit.last(t).Status())

	err = fx.svc.Cancel(ctx, "me/app", "99", provider.Options{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, "CANCEL", fx.audit.last(t).Operation)
}

func TestTailLines(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"a\nb\nc\n", 2, "b\nc\n"},
		{"a\nb\nc", 2, "b\nc"},
		{"a\nb\nc\n", 0, "a\nb\nc\n"},
		{"a\nb\n", 5, "a\nb\n"},
		{"", 3, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TailLines(tt.in, tt.n), "%q tail %d", tt.in, tt.n)
	}
}

func TestIssues(t *testing.T) {
	fx := newFixture(t, mockDoc)
	ctx := context.Background()

	issues, err := fx.svc.Issues(ctx, "me/app", domain.IssueQuery{}, provider.Options{})
	require.NoError(t, err)
	assert.Len(t, issues, 2)

	issue, err := fx.svc.Issue(ctx, "me/app", "2", provider.Options{})
	require.NoError(t, err)
	assert.Equal(t, "second", issue.Title)

	created, err := fx.svc.CreateIssue(ctx, "me/app", domain.NewIssue{Title: "third"}, provider.Options{})
	require.NoError(t, err)
	assert.Equal(t, "3", created.ID)

	_, err = fx.svc.CreateIssue(ctx, "me/app", domain.NewIssue{Title: "  "}, provider.Options{})
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	closed := domain.IssueClosed
	updated, err := fx.svc.UpdateIssue(ctx, "me/app", "1", domain.IssueUpdate{State: &closed}, provider.Options{})
	require.NoError(t, err)
	assert.Equal(t, domain.IssueClosed, updated.State)
}

func TestContainers(t *testing.T) {
	fx := newFixture(t, mockDoc)
	ctx := context.Background()

	containers, err := fx.svc.Containers(ctx, domain.ContainerQuery{Selector: "app=web"}, provider.Options{})
	require.NoError(t, err)
	assert.Len(t, containers, 2)

	deployments, err := fx.svc.Deployments(ctx, "", provider.Options{})
	require.NoError(t, err)
	require.Len(t, deployments, 1)
	assert.Equal(t, int32(2), deployments[0].Replicas)

	require.NoError(t, fx.svc.Scale(ctx, "default", "web", 3, provider.Options{}))
	assert.Contains(t, fx.audit.last(t).String(), "SCALE provider=mock target=web status=SUCCESS")

	err = fx.svc.Scale(ctx, "default", "web", -1, provider.Options{})
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	logs, err := fx.svc.ContainerLogs(ctx, "default", "web-0", 1, provider.Options{})
	require.NoError(t, err)
	assert.Equal(t, "web-0 ready\n", logs)
}

func TestNetworkOverride(t *testing.T) {
	fx := newFixture(t, "")
	ctx := context.Background()
	opts := provider.Options{
		Adapter: "mock",
		Config:  map[string]any{"hosts": map[string]any{"10.0.0.5": []any{22, 80}}},
	}

	hosts, err := fx.svc.Scan(ctx, "10.0.0.0/24", opts)
	require.NoError(t, err)
	require.Len(t, hosts, 1)
	assert.Equal(t, []int{22, 80}, hosts[0].OpenPorts)

	res, err := fx.svc.Probe(ctx, "10.0.0.5", 22, opts)
	require.NoError(t, err)
	assert.True(t, res.Open)
	assert.Equal(t, "10.0.0.5:22", fx.audit.last(t).Target)

	_, err = fx.svc.Probe(ctx, "10.0.0.5", 70000, opts)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestHealthAll(t *testing.T) {
	fx := newFixture(t, mockDoc)

	results, err := fx.svc.HealthAll(context.Background())
	require.NoError(t, err)

	var got []string
	for _, r := range results {
		got = append(got, string(r.Domain)+"/"+r.Adapter)
	}
	// network has no configuration and is skipped
	assert.Equal(t, []string{
		"secrets/keychain", "secrets/mock",
		"observability/mock", "cicd/mock", "issues/mock", "containers/mock",
	}, got)
	assert.False(t, results[0].Healthy)
	assert.Equal(t, []EventType{EventHealthChecked}, fx.events.types())
}

func TestHealthDomain(t *testing.T) {
	fx := newFixture(t, mockDoc)

	results, err := fx.svc.Health(context.Background(), domain.Secrets, provider.Options{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, provider.RoleFallback, results[1].Role)
	assert.True(t, results[1].Healthy)

	_, err = fx.svc.Health(context.Background(), domain.Network, provider.Options{})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestAdapters(t *testing.T) {
	fx := newFixture(t, mockDoc)

	infos, err := fx.svc.Adapters(domain.Secrets)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, provider.RoleFallback, infos[0].Role)
}

func TestRecentAudit(t *testing.T) {
	fx := newFixture(t, mockDoc)
	ctx := context.Background()

	_, err := fx.svc.GetSecret(ctx, "API_KEY", provider.Options{})
	require.NoError(t, err)

	entries, err := fx.svc.RecentAudit(ctx, audit.Query{})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	bare := New(fx.svc.Factory())
	_, err = bare.RecentAudit(ctx, audit.Query{})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestReload(t *testing.T) {
	fx := newFixture(t, mockDoc)
	fx.svc.Reload()
	assert.Equal(t, []EventType{EventConfigReloaded}, fx.events.types())
}
