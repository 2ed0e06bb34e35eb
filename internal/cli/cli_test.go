package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pai/internal/audit"
	"pai/internal/domain"
)

const testConfig = `
domains:
  secrets:
    primary: keychain
    fallback: mock
    adapters:
      mock:
        secrets:
          API_KEY: x
          DATABASE_URL: postgres://db
  issues:
    primary: mock
    adapters:
      mock:
        healthy: false
        message: tracker offline
audit:
  log: audit.log
  database: audit.db
`

type result struct {
	code   int
	stdout string
	stderr string
}

// run executes one pai invocation against the config in dir
func run(t *testing.T, dir string, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	env := map[string]string{"HOME": dir}
	app := New(
		WithOutput(&stdout, &stderr),
		WithEnv(func(k string) string { return env[k] }),
		WithVersion("1.2.3"),
	)
	code := app.Run(context.Background(), args)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func writeConfig(t *testing.T, doc string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "providers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	return dir, path
}

func TestSecretsListJSON(t *testing.T) {
	dir, cfg := writeConfig(t, testConfig)

	res := run(t, dir, "--config", cfg, "secrets", "list", "--pattern", "API_*", "--json")
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.JSONEq(t, `{"keys":["API_KEY"],"count":1}`, res.stdout)
}

func TestSecretsListTable(t *testing.T) {
	dir, cfg := writeConfig(t, testConfig)

	res := run(t, dir, "--config", cfg, "secrets", "list")
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Equal(t, "KEY\nAPI_KEY\nDATABASE_URL\n", res.stdout)
}

func TestSecretsGet(t *testing.T) {
	dir, cfg := writeConfig(t, testConfig)

	res := run(t, dir, "--config", cfg, "secrets", "get", "API_KEY")
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Equal(t, "x\n", res.stdout)

	res = run(t, dir, "--config", cfg, "secrets", "get", "API_KEY", "--json")
	assert.JSONEq(t, `{"key":"API_KEY","value":"x"}`, res.stdout)
}

func TestSecretNotFoundExitCode(t *testing.T) {
	dir, cfg := writeConfig(t, testConfig)

	res := run(t, dir, "--config", cfg, "secrets", "get", "MISSING")
	assert.Equal(t, ExitNotFound, res.code)
	assert.Empty(t, res.stdout)
	assert.True(t, strings.HasSuffix(res.stderr, "Error: secrets: secret \"MISSING\" not found\n"), res.stderr)
}

func TestUnconfiguredDomain(t *testing.T) {
	dir, cfg := writeConfig(t, testConfig)

	res := run(t, dir, "--config", cfg, "cicd", "runs", "me/pai")
	assert.Equal(t, ExitError, res.code)
	assert.Contains(t, res.stderr, "Error: cicd: ")
}

func TestInvalidConfig(t *testing.T) {
	dir, cfg := writeConfig(t, "domains: [not, a, map]\n")

	res := run(t, dir, "--config", cfg, "secrets", "list")
	assert.Equal(t, ExitError, res.code)
	assert.True(t, strings.HasPrefix(res.stderr, "Error: "), res.stderr)
}

func TestHealth(t *testing.T) {
	dir, cfg := writeConfig(t, testConfig)

	res := run(t, dir, "--config", cfg, "health", "secrets", "--json")
	require.Equal(t, ExitOK, res.code, res.stderr)
	var out []map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &out))
	require.Len(t, out, 2)
	assert.Equal(t, "keychain", out[0]["adapter"])
	assert.Equal(t, true, out[1]["healthy"])

	res = run(t, dir, "--config", cfg, "health")
	assert.Equal(t, ExitError, res.code)
	assert.Contains(t, res.stdout, "tracker offline")
	assert.True(t, strings.HasSuffix(res.stderr, "Error: no healthy adapter for issues\n"), res.stderr)
}

func TestAdaptersList(t *testing.T) {
	dir, cfg := writeConfig(t, testConfig)

	res := run(t, dir, "--config", cfg, "adapters", "list", "secrets", "--json")
	require.Equal(t, ExitOK, res.code, res.stderr)
	var out []map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &out))

	roles := make(map[string]any)
	for _, info := range out {
		roles[info["name"].(string)] = info["role"]
	}
	assert.Equal(t, "fallback", roles["mock"])
	assert.Contains(t, roles, "env")
	assert.Contains(t, roles, "file")

	res = run(t, dir, "--config", cfg, "adapters", "list", "mail")
	assert.Equal(t, ExitError, res.code)
}

func TestAuditSinks(t *testing.T) {
	dir, cfg := writeConfig(t, testConfig)

	require.Equal(t, ExitOK, run(t, dir, "--config", cfg, "secrets", "list").code)
	require.Equal(t, ExitNotFound, run(t, dir, "--config", cfg, "secrets", "get", "NOPE").code)

	data, err := os.ReadFile(filepath.Join(dir, "audit.log"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Regexp(t, `^\[SECRETS\] \S+ LIST provider=mock target=- status=SUCCESS latency=\d+ms$`, lines[0])
	assert.Regexp(t, `^\[SECRETS\] \S+ GET provider=mock target=NOPE status=FAILED\(NOT_FOUND\) latency=\d+ms$`, lines[1])

	res := run(t, dir, "--config", cfg, "audit", "tail", "--json")
	require.Equal(t, ExitOK, res.code, res.stderr)
	var entries []audit.Entry
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "GET", entries[0].Operation)
	assert.Equal(t, domain.Secrets, entries[0].Domain)

	res = run(t, dir, "--config", cfg, "audit", "tail", "--failed", "--lines")
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "status=FAILED(NOT_FOUND)")
	assert.NotContains(t, res.stdout, "LIST")

	res = run(t, dir, "--config", cfg, "audit", "prune", "--older-than", "1h")
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Equal(t, "pruned 0 entries\n", res.stdout)
}

func TestAuditTailWithoutDatabase(t *testing.T) {
	dir, cfg := writeConfig(t, "domains: {}\n")

	res := run(t, dir, "--config", cfg, "audit", "tail")
	assert.Equal(t, ExitError, res.code)
	assert.Contains(t, res.stderr, "audit.database")
}

func TestConfigInitAndPath(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "conf", "providers.yaml")

	res := run(t, dir, "--config", dest, "config", "init")
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.FileExists(t, dest)

	res = run(t, dir, "--config", dest, "config", "init")
	assert.Equal(t, ExitError, res.code)
	assert.Contains(t, res.stderr, "already exists")

	res = run(t, dir, "--config", dest, "config", "path")
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.True(t, strings.HasPrefix(res.stdout, dest+"\n"), res.stdout)

	res = run(t, dir, "--config", dest, "config", "show")
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Contains(t, res.stdout, "primary: env")
}

func TestOutputFormats(t *testing.T) {
	dir, cfg := writeConfig(t, testConfig)

	res := run(t, dir, "--config", cfg, "-o", "yaml", "secrets", "list", "--pattern", "API_*")
	require.Equal(t, ExitOK, res.code, res.stderr)
	assert.Equal(t, "keys:\n  - API_KEY\ncount: 1\n", res.stdout)

	res = run(t, dir, "--config", cfg, "-o", "xml", "secrets", "list")
	assert.Equal(t, ExitError, res.code)
	assert.Contains(t, res.stderr, "unknown output format")
}

func TestBadLogLevel(t *testing.T) {
	res := run(t, t.TempDir(), "--log-level", "loud", "version")
	assert.Equal(t, ExitError, res.code)
	assert.Contains(t, res.stderr, "invalid --log-level")
}

func TestVersion(t *testing.T) {
	res := run(t, t.TempDir(), "version")
	require.Equal(t, ExitOK, res.code)
	assert.Equal(t, "pai 1.2.3\n", res.stdout)
}

func TestServeStopsOnCancel(t *testing.T) {
	_, cfg := writeConfig(t, testConfig)
	var stdout, stderr bytes.Buffer
	app := New(WithOutput(&stdout, &stderr), WithEnv(func(string) string { return "" }))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan int, 1)
	go func() {
		done <- app.Run(ctx, []string{"--config", cfg, "serve", "--addr", "127.0.0.1:0", "--watch=false", "--probe-schedule", ""})
	}()

	time.Sleep(200 * time.Millisecond)
	cancel()
	select {
	case code := <-done:
		assert.Equal(t, ExitOK, code, stderr.String())
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitOK},
		{errors.New("boom"), ExitError},
		{domain.ConfigurationError(domain.Secrets, "no adapter"), ExitError},
		{domain.AdapterNotFound(domain.Secrets, "vault"), ExitError},
		{domain.AuthenticationFailed(domain.CICD, "github", nil), ExitAuth},
		{domain.ProviderFailed(domain.CICD, "github", errors.New("502")), ExitProvider},
		{domain.RateLimited(domain.CICD, "github", time.Second), ExitProvider},
		{domain.NotFound(domain.Issues, "issue", "9"), ExitNotFound},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExitCode(tt.err), "%v", tt.err)
	}
}

func TestParseTime(t *testing.T) {
	def := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	got, err := parseTime("", def)
	require.NoError(t, err)
	assert.Equal(t, def, got)

	got, err = parseTime("2025-06-01T12:00:00Z", def)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), got)

	got, err = parseTime("1h", def)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(-time.Hour), got, time.Minute)

	_, err = parseTime("yesterday", def)
	assert.Error(t, err)
}

func TestParsePairs(t *testing.T) {
	got, err := parsePairs([]string{"env=prod", "dry_run="})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"env": "prod", "dry_run": ""}, got)

	_, err = parsePairs([]string{"novalue"})
	assert.Error(t, err)
}
