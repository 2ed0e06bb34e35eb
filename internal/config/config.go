// Package config loads the provider configuration document.
//
// One document declares, per domain, a primary adapter, an optional fallback
// and opaque option blocks per adapter. It is located by a precedence chain
// (first existing file wins, nothing is merged):
//  1. explicit path ($PAI_CONFIG or --config)
//  2. ${CONFIG_HOME}/providers.yaml (.yml, .toml)
//  3. ./providers.yaml (.yml, .toml)
//
// The Resolver caches the parsed document until Invalidate is called.
// Caches are plain values so several resolvers can coexist in one process.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"pai/internal/domain"
)

// Cache holds the last document loaded by a Resolver
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	cfg  *ProvidersConfig
	path string
}

// NewCache creates an empty cache
func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry)}
}

func (c *Cache) get(key string) (cacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return e, ok
}

func (c *Cache) put(key string, e cacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = e
}

// Invalidate drops every cached document
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

// Resolver loads and caches the configuration document
type Resolver struct {
	explicit string
	fs       FileSystem
	getenv   func(string) string
	cache    *Cache
	logger   *slog.Logger
}

// Option configures a Resolver
type Option func(*Resolver)

// WithPath sets the explicit config path
func WithPath(path string) Option {
	return func(r *Resolver) { r.explicit = path }
}

// WithFileSystem replaces the filesystem the resolver reads from
func WithFileSystem(fsys FileSystem) Option {
	return func(r *Resolver) { r.fs = fsys }
}

// WithEnv replaces the environment lookup
func WithEnv(getenv func(string) string) Option {
	return func(r *Resolver) { r.getenv = getenv }
}

// WithCache shares a cache between resolvers
func WithCache(c *Cache) Option {
	return func(r *Resolver) { r.cache = c }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// NewResolver creates a Resolver reading from the OS filesystem and environment
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		fs:     OSFileSystem{},
		getenv: os.Getenv,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cache == nil {
		r.cache = NewCache()
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Load returns the configuration document. An empty path means the
// resolver's explicit path. When no file exists an empty document is
// returned. Parse failures are configuration errors.
func (r *Resolver) Load(path string) (*ProvidersConfig, error) {
	if path == "" {
		path = r.explicit
	}
	if e, ok := r.cache.get(path); ok {
		return e.cfg, nil
	}

	found := FindConfigPath(r.fs, path, r.getenv)
	if path != "" && found != "" && !samePath(path, found) {
		r.logger.Debug("explicit config path not found, using next candidate",
			"requested", path, "path", found)
	}

	cfg := &ProvidersConfig{}
	if found == "" {
		r.logger.Debug("no config file found, using empty configuration")
	} else {
		loaded, err := r.read(found)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	cfg.normalize()
	if err := r.validate(cfg); err != nil {
		return nil, err
	}

	r.cache.put(path, cacheEntry{cfg: cfg, path: found})
	return cfg, nil
}

// Path returns the file the cached document came from, loading it if needed.
// Empty when no file was found.
func (r *Resolver) Path() (string, error) {
	if _, err := r.Load(""); err != nil {
		return "", err
	}
	e, _ := r.cache.get(r.explicit)
	return e.path, nil
}

// DomainConfig returns the config for d, or nil when the document has none
func (r *Resolver) DomainConfig(d domain.Domain) (*DomainConfig, error) {
	cfg, err := r.Load("")
	if err != nil {
		return nil, err
	}
	return cfg.Domain(d), nil
}

// AdapterConfig returns the options declared for an adapter, or an empty map
func (r *Resolver) AdapterConfig(d domain.Domain, adapterName string) (map[string]any, error) {
	dc, err := r.DomainConfig(d)
	if err != nil {
		return nil, err
	}
	return dc.AdapterOptions(adapterName), nil
}

// Invalidate forces the next Load to re-read from disk
func (r *Resolver) Invalidate() {
	r.cache.Invalidate()
}

// AdapterDirs returns the manifest directories: defaults first, then the
// document's adapter_dirs resolved against the config file's directory
func (r *Resolver) AdapterDirs() ([]string, error) {
	cfg, err := r.Load("")
	if err != nil {
		return nil, err
	}
	path, _ := r.Path()

	dirs := AdapterDirs(r.getenv)
	for _, dir := range cfg.AdapterDirs {
		if !filepath.IsAbs(dir) && path != "" {
			dir = filepath.Join(filepath.Dir(path), dir)
		}
		dirs = append(dirs, dir)
	}
	return dirs, nil
}

func (r *Resolver) read(path string) (*ProvidersConfig, error) {
	data, err := r.fs.ReadFile(path)
	if err != nil {
		return nil, domain.ConfigurationError("", "read config %s: %v", path, err)
	}

	cfg, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, domain.ConfigurationError("", "parse config %s: %v", path, err)
	}
	r.logger.Debug("loaded config", "path", path, "domains", len(cfg.Domains))
	return cfg, nil
}

// Parse decodes a document; ext selects TOML (".toml") or YAML (anything else)
func Parse(data []byte, ext string) (*ProvidersConfig, error) {
	var cfg ProvidersConfig
	if strings.EqualFold(ext, ".toml") {
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate rejects unknown domains and empty adapter names. A fallback equal
// to the primary is dropped with a warning.
func (r *Resolver) validate(cfg *ProvidersConfig) error {
	for key, dc := range cfg.Domains {
		d, err := domain.ParseDomain(key)
		if err != nil {
			return domain.ConfigurationError("", "invalid config: %v", err)
		}
		for name := range dc.Adapters {
			if strings.TrimSpace(name) == "" {
				return domain.ConfigurationError(d, "invalid config: empty adapter name in adapters")
			}
		}
		if dc.Fallback != "" && dc.Fallback == dc.Primary {
			r.logger.Warn("fallback adapter equals primary, ignoring fallback",
				"domain", d, "adapter", dc.Primary)
			dc.Fallback = ""
		}
	}
	return nil
}

// Save writes cfg as YAML to path
func (c *ProvidersConfig) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns a starter document wiring every domain to its
// local or mock adapters
func DefaultConfig() *ProvidersConfig {
	return &ProvidersConfig{
		Domains: map[string]*DomainConfig{
			string(domain.Secrets):       {Primary: "env", Fallback: "mock", Adapters: map[string]map[string]any{"env": {"prefix": ""}}},
			string(domain.Observability): {Primary: "prometheus", Fallback: "mock", Adapters: map[string]map[string]any{"prometheus": {"url": "http://localhost:9090"}}},
			string(domain.CICD):          {Primary: "github", Fallback: "mock"},
			string(domain.Issues):        {Primary: "github", Fallback: "mock"},
			string(domain.Containers):    {Primary: "kubernetes", Fallback: "mock"},
			string(domain.Network):       {Primary: "tcp", Fallback: "mock"},
		},
	}
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	return errA == nil && errB == nil && absA == absB
}
