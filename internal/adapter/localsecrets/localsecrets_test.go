package localsecrets

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pai/internal/adapter"
	"pai/internal/domain"
)

func newEnv(t *testing.T, opts map[string]any, vars map[string]string) *Env {
	t.Helper()
	e, err := NewEnv(adapter.Params{Options: opts})
	require.NoError(t, err)
	e.environ = func() []string {
		var out []string
		for k, v := range vars {
			out = append(out, k+"="+v)
		}
		return out
	}
	e.lookup = func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
	return e
}

func TestEnv(t *testing.T) {
	ctx := context.Background()
	vars := map[string]string{"APP_TOKEN": "t", "APP_DB": "d", "HOME": "/root", "APP_": "empty"}

	e := newEnv(t, map[string]any{"prefix": "APP_"}, vars)
	assert.Equal(t, "env", e.Name())

	keys, err := e.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"DB", "TOKEN"}, keys)

	v, err := e.Get(ctx, "TOKEN")
	require.NoError(t, err)
	assert.Equal(t, "t", v)

	_, err = e.Get(ctx, "HOME")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.True(t, e.HealthCheck(ctx).Healthy)

	allow := newEnv(t, map[string]any{"keys": "HOME"}, vars)
	keys, err = allow.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"HOME"}, keys)
	_, err = allow.Get(ctx, "APP_TOKEN")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	none := newEnv(t, map[string]any{"prefix": "NOPE_"}, vars)
	assert.False(t, none.HealthCheck(ctx).Healthy)
}

func TestFile(t *testing.T) {
	ctx := context.Background()
	first := t.TempDir()
	second := t.TempDir()

	write := func(root, rel, content string) {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	}
	write(first, "api_token.txt", "abc\n")
	write(first, "db/password", "hunter2")
	write(first, "..data/api_token", "hidden")
	write(first, ".hidden", "hidden")
	write(second, "api_token", "shadowed")
	write(second, "big", string(make([]byte, 64)))

	f, err := NewFile(adapter.Params{Options: map[string]any{
		"paths":    []any{filepath.Join(first, "missing"), first, second},
		"max_size": 32,
	}})
	require.NoError(t, err)

	keys, err := f.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"api_token", "db.password"}, keys)

	v, err := f.Get(ctx, "api_token")
	require.NoError(t, err)
	assert.Equal(t, "abc", v)

	v, err = f.Get(ctx, "db.password")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", v)

	_, err = f.Get(ctx, "big")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	h := f.HealthCheck(ctx)
	assert.True(t, h.Healthy)
	assert.Contains(t, h.Message, first)
}

func TestFileUnhealthyWithoutDirs(t *testing.T) {
	f, err := NewFile(adapter.Params{Options: map[string]any{"paths": filepath.Join(t.TempDir(), "none")}})
	require.NoError(t, err)

	h := f.HealthCheck(context.Background())
	assert.False(t, h.Healthy)
	assert.Contains(t, h.Message, "no secrets directory")

	keys, err := f.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, keys)
}
