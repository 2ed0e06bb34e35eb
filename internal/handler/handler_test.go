package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
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
	"pai/internal/metrics"
	"pai/internal/provider"
	"pai/internal/repository/sqlite"
	"pai/internal/service"
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

const testDoc = `
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
  issues:
    primary: mock
    adapters:
      mock:
        healthy: false
        message: tracker offline
`

func setupTestServer(t *testing.T, withStore bool) (*httptest.Server, *sqlite.Repository) {
	t.Helper()

	c := adapter.NewCatalog()
	mock.Register(c)
	resolver := config.NewResolver(
		config.WithPath("/etc/pai/providers.yaml"),
		config.WithFileSystem(mapFS{"etc/pai/providers.yaml": &fstest.MapFile{Data: []byte(testDoc)}}),
		config.WithEnv(func(string) string { return "" }),
	)

	m := metrics.New()
	opts := []service.Option{}
	var repo *sqlite.Repository
	if withStore {
		var err error
		repo, err = sqlite.New(":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { repo.Close() })
		opts = append(opts, service.WithAudit(audit.Multi(repo, m)), service.WithAuditStore(repo))
	}

	factory := provider.NewFactory(resolver, adapter.NewRegistry(c), provider.WithObserver(m))
	h := New(service.New(factory, opts...), WithMetrics(m.Handler()))

	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)
	return srv, repo
}

func getJSON(t *testing.T, url string, v any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	return resp
}

func TestHealthz(t *testing.T) {
	srv, _ := setupTestServer(t, false)

	var body map[string]string
	resp := getJSON(t, srv.URL+"/healthz", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestListDomains(t *testing.T) {
	srv, _ := setupTestServer(t, false)

	var out []DomainSummary
	resp := getJSON(t, srv.URL+"/api/domains", &out)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, out, len(domain.Domains()))
	assert.Equal(t, DomainSummary{Domain: domain.Secrets, Primary: "keychain", Fallback: "mock"}, out[0])
	assert.Equal(t, DomainSummary{Domain: domain.Network}, out[5])
}

func TestDomainHealth(t *testing.T) {
	srv, _ := setupTestServer(t, false)

	t.Run("fallback healthy", func(t *testing.T) {
		var out []provider.CandidateHealth
		resp := getJSON(t, srv.URL+"/api/domains/secrets/health", &out)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		require.Len(t, out, 2)
		assert.False(t, out[0].Healthy)
		assert.Contains(t, out[0].Message, `adapter "keychain" not found`)
		assert.True(t, out[1].Healthy)
		assert.Equal(t, provider.RoleFallback, out[1].Role)
	})

	t.Run("nothing healthy", func(t *testing.T) {
		var out []provider.CandidateHealth
		resp := getJSON(t, srv.URL+"/api/domains/issues/health", &out)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		require.Len(t, out, 1)
		assert.Equal(t, "tracker offline", out[0].Message)
	})

	t.Run("unconfigured", func(t *testing.T) {
		var out ErrorResponse
		resp := getJSON(t, srv.URL+"/api/domains/cicd/health", &out)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, "Health check failed", out.Error)
		assert.Contains(t, out.Details, "cicd")
	})

	t.Run("unknown domain", func(t *testing.T) {
		var out ErrorResponse
		resp := getJSON(t, srv.URL+"/api/domains/mail/health", &out)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "Unknown domain", out.Error)
	})
}

func TestDomainAdapters(t *testing.T) {
	srv, _ := setupTestServer(t, false)

	var out []provider.AdapterInfo
	resp := getJSON(t, srv.URL+"/api/domains/secrets/adapters", &out)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, out, 1)
	assert.Equal(t, "mock", out[0].Name)
	assert.Equal(t, provider.RoleFallback, out[0].Role)
}

func TestListSecrets(t *testing.T) {
	srv, repo := setupTestServer(t, true)

	var keys domain.SecretKeys
	resp := getJSON(t, srv.URL+"/api/secrets?pattern=API_*", &keys)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"API_KEY", "API_SECRET"}, keys.Keys)
	assert.Equal(t, 2, keys.Count)

	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	t.Run("limit", func(t *testing.T) {
		var keys domain.SecretKeys
		getJSON(t, srv.URL+"/api/secrets?limit=1", &keys)
		assert.Equal(t, []string{"API_KEY"}, keys.Keys)
	})

	t.Run("bad limit", func(t *testing.T) {
		var out ErrorResponse
		resp := getJSON(t, srv.URL+"/api/secrets?limit=-1", &out)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("bad pattern", func(t *testing.T) {
		var out ErrorResponse
		resp := getJSON(t, srv.URL+"/api/secrets?pattern=API_%5B", &out)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "Invalid pattern", out.Error)
	})
}

func TestListAudit(t *testing.T) {
	srv, _ := setupTestServer(t, true)

	var keys domain.SecretKeys
	getJSON(t, srv.URL+"/api/secrets", &keys)

	var entries []audit.Entry
	resp := getJSON(t, srv.URL+"/api/audit?domain=secrets", &entries)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, entries, 1)
	assert.Equal(t, "mock", entries[0].Provider)
	assert.True(t, entries[0].Success)

	var failed []audit.Entry
	getJSON(t, srv.URL+"/api/audit?failed=true", &failed)
	assert.Empty(t, failed)

	var out ErrorResponse
	resp = getJSON(t, srv.URL+"/api/audit?failed=maybe", &out)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListAuditWithoutStore(t *testing.T) {
	srv, _ := setupTestServer(t, false)

	var out ErrorResponse
	resp := getJSON(t, srv.URL+"/api/audit", &out)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, out.Details, "audit.database")
}

func TestReload(t *testing.T) {
	srv, _ := setupTestServer(t, false)

	resp, err := http.Post(srv.URL+"/api/reload", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := setupTestServer(t, false)

	var out []provider.CandidateHealth
	getJSON(t, srv.URL+"/api/domains/secrets/health", &out)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "pai_adapter_healthy")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.NotFound(domain.Issues, "issue", "7"), http.StatusNotFound},
		{domain.AdapterNotFound(domain.Secrets, "vault"), http.StatusNotFound},
		{domain.RateLimited(domain.CICD, "github", time.Minute), http.StatusTooManyRequests},
		{domain.AuthenticationFailed(domain.CICD, "github", nil), http.StatusBadGateway},
		{domain.ProviderFailed(domain.CICD, "github", errors.New("boom")), http.StatusBadGateway},
		{domain.ConfigurationError(domain.CICD, "no adapter"), http.StatusServiceUnavailable},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestRateLimitedSetsRetryAfter(t *testing.T) {
	rec := httptest.NewRecorder()
	writeDomainError(rec, "Failed", domain.RateLimited(domain.CICD, "github", 90*time.Second))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "90", rec.Header().Get("Retry-After"))
}
