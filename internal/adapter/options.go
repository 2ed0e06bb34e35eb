package adapter

import (
	"fmt"
	"maps"
	"os"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Options is an adapter's opaque option bag with typed getters
type Options map[string]any

// MergeOptions layers bags left to right; later keys win
func MergeOptions(layers ...map[string]any) Options {
	out := make(Options)
	for _, layer := range layers {
		maps.Copy(out, layer)
	}
	return out
}

// Has reports whether key is set
func (o Options) Has(key string) bool {
	_, ok := o[key]
	return ok
}

// String returns key as a string, or def when unset or empty
func (o Options) String(key, def string) string {
	if s := cast.ToString(o[key]); s != "" {
		return s
	}
	return def
}

// Int returns key as an int, or def when unset or not numeric
func (o Options) Int(key string, def int) int {
	if !o.Has(key) {
		return def
	}
	v, err := cast.ToIntE(o[key])
	if err != nil {
		return def
	}
	return v
}

// Bool returns key as a bool, or def when unset or invalid
func (o Options) Bool(key string, def bool) bool {
	if !o.Has(key) {
		return def
	}
	v, err := cast.ToBoolE(o[key])
	if err != nil {
		return def
	}
	return v
}

// Duration accepts "30s" style strings or integer seconds
func (o Options) Duration(key string, def time.Duration) time.Duration {
	if !o.Has(key) {
		return def
	}
	switch v := o[key].(type) {
	case int, int64, uint64, float64:
		return time.Duration(cast.ToFloat64(v) * float64(time.Second))
	}
	d, err := cast.ToDurationE(o[key])
	if err != nil {
		return def
	}
	return d
}

// StringSlice returns key as a list; a single string is split on commas
func (o Options) StringSlice(key string) []string {
	switch v := o[key].(type) {
	case nil:
		return nil
	case string:
		var out []string
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	default:
		return cast.ToStringSlice(v)
	}
}

// StringMap returns key as a string map
func (o Options) StringMap(key string) map[string]string {
	return cast.ToStringMapString(o[key])
}

// Secret returns a credential option. Values of the form "env:NAME" read
// an environment variable and "file:PATH" read a file; anything else is
// taken literally. Returns "" with no error when the key is unset.
func (o Options) Secret(key string) (string, error) {
	raw := o.String(key, "")
	switch {
	case raw == "":
		return "", nil
	case strings.HasPrefix(raw, "env:"):
		name := strings.TrimPrefix(raw, "env:")
		v, ok := os.LookupEnv(name)
		if !ok {
			return "", fmt.Errorf("option %s: environment variable %s not set", key, name)
		}
		return v, nil
	case strings.HasPrefix(raw, "file:"):
		data, err := os.ReadFile(strings.TrimPrefix(raw, "file:"))
		if err != nil {
			return "", fmt.Errorf("option %s: %w", key, err)
		}
		return strings.TrimSpace(string(data)), nil
	default:
		return raw, nil
	}
}
