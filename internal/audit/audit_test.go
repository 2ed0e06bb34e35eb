package audit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pai/internal/domain"
)

var ts = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

func TestEntryString(t *testing.T) {
	tests := []struct {
		name  string
		entry Entry
		want  string
	}{
		{
			name: "success",
			entry: Entry{
				Timestamp: ts, Domain: domain.Secrets, Operation: "GET",
				Provider: "mock", Target: "API_KEY", Success: true, Latency: 3 * time.Millisecond,
			},
			want: "[SECRETS] 2026-03-04T05:06:07Z GET provider=mock target=API_KEY status=SUCCESS latency=3ms",
		},
		{
			name: "failure without target",
			entry: Entry{
				Timestamp: ts, Domain: domain.CICD, Operation: "LIST_RUNS",
				Provider: "github", ErrorCode: "RATE_LIMITED", Latency: 1500 * time.Millisecond,
			},
			want: "[CICD] 2026-03-04T05:06:07Z LIST_RUNS provider=github target=- status=FAILED(RATE_LIMITED) latency=1500ms",
		},
		{
			name:  "failure without code or provider",
			entry: Entry{Timestamp: ts.In(time.FixedZone("x", 3600)), Domain: domain.Network, Operation: "SCAN"},
			want:  "[NETWORK] 2026-03-04T05:06:07Z SCAN provider=- target=- status=FAILED(ERROR) latency=0ms",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.entry.String())
		})
	}
}

func TestNewEntry(t *testing.T) {
	start := time.Now().Add(-20 * time.Millisecond)

	e := NewEntry(domain.Issues, "get", "github", "12", start, domain.NotFound(domain.Issues, "issue", "12"))
	assert.NoError(t, uuid.Validate(e.ID))
	assert.Equal(t, "GET", e.Operation)
	assert.False(t, e.Success)
	assert.Equal(t, "NOT_FOUND", e.ErrorCode)
	assert.GreaterOrEqual(t, e.LatencyMs(), int64(20))
	assert.Equal(t, time.UTC, e.Timestamp.Location())

	ok := NewEntry(domain.Issues, "list", "mock", "", start, nil)
	assert.True(t, ok.Success)
	assert.Empty(t, ok.ErrorCode)
	assert.NotEqual(t, e.ID, ok.ID)
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{domain.AuthenticationFailed(domain.CICD, "github", nil), "AUTHENTICATION"},
		{fmt.Errorf("wrapped: %w", domain.RateLimited(domain.CICD, "github", time.Minute)), "RATE_LIMITED"},
		{domain.ConfigurationError(domain.Secrets, "no adapter"), "CONFIGURATION"},
		{context.DeadlineExceeded, "TIMEOUT"},
		{fmt.Errorf("probe: %w", context.Canceled), "CANCELED"},
		{errors.New("boom"), "ERROR"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorCode(tt.err), "%v", tt.err)
	}
}

func TestLineLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewLineLogger(&buf)
	ctx := context.Background()

	require.NoError(t, l.Log(ctx, Entry{Timestamp: ts, Domain: domain.Secrets, Operation: "LIST", Provider: "env", Success: true}))
	require.NoError(t, l.Log(ctx, Entry{Timestamp: ts, Domain: domain.Secrets, Operation: "GET", Provider: "env", Target: "X", ErrorCode: "NOT_FOUND"}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasSuffix(lines[0], "status=SUCCESS latency=0ms"))
	assert.Contains(t, lines[1], "target=X status=FAILED(NOT_FOUND)")
	assert.NoError(t, l.Close())
}

func TestOpenFileAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "audit.log")
	ctx := context.Background()

	for i := range 2 {
		l, err := OpenFile(path)
		require.NoError(t, err)
		require.NoError(t, l.Log(ctx, Entry{Timestamp: ts, Domain: domain.Network, Operation: "PROBE", Target: fmt.Sprint(i), Success: true}))
		require.NoError(t, l.Close())
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "\n"))
	assert.Contains(t, string(data), "target=0")
	assert.Contains(t, string(data), "target=1")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestSlogLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewSlogLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	require.NoError(t, l.Log(context.Background(), Entry{Domain: domain.Containers, Operation: "SCALE", Provider: "kubernetes", Target: "web", ErrorCode: "PROVIDER"}))
	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "operation=SCALE")
	assert.Contains(t, out, `status=FAILED(PROVIDER)`)
}

type failing struct{ err error }

func (f failing) Log(context.Context, Entry) error { return f.err }

func TestMulti(t *testing.T) {
	var a, b bytes.Buffer
	boom := errors.New("disk full")

	m := Multi(NewLineLogger(&a), nil, failing{boom}, NewLineLogger(&b), Nop)
	err := m.Log(context.Background(), Entry{Timestamp: ts, Domain: domain.Secrets, Operation: "GET", Success: true})

	assert.ErrorIs(t, err, boom)
	assert.NotEmpty(t, a.String())
	assert.Equal(t, a.String(), b.String())
}
