package adapter

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"pai/internal/domain"
)

// DirSource returns the directories scanned for manifests
type DirSource func() ([]string, error)

// DiscoveryCache holds discovery results per domain
type DiscoveryCache struct {
	mu       sync.RWMutex
	byDomain map[domain.Domain][]Manifest
}

// NewDiscoveryCache creates an empty cache
func NewDiscoveryCache() *DiscoveryCache {
	return &DiscoveryCache{byDomain: make(map[domain.Domain][]Manifest)}
}

func (c *DiscoveryCache) get(d domain.Domain) ([]Manifest, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.byDomain[d]
	return m, ok
}

func (c *DiscoveryCache) put(d domain.Domain, m []Manifest) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byDomain[d] = m
}

// Invalidate clears the given domains, or every domain when none is given
func (c *DiscoveryCache) Invalidate(domains ...domain.Domain) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(domains) == 0 {
		clear(c.byDomain)
		return
	}
	for _, d := range domains {
		delete(c.byDomain, d)
	}
}

// Registry discovers manifests and loads adapters from a Catalog
type Registry struct {
	catalog *Catalog
	dirs    DirSource
	cache   *DiscoveryCache
	logger  *slog.Logger
}

// RegistryOption configures a Registry
type RegistryOption func(*Registry)

// WithDirs scans a fixed list of manifest directories
func WithDirs(dirs ...string) RegistryOption {
	return func(r *Registry) {
		r.dirs = func() ([]string, error) { return dirs, nil }
	}
}

// WithDirSource scans the directories returned by fn at each discovery
func WithDirSource(fn DirSource) RegistryOption {
	return func(r *Registry) { r.dirs = fn }
}

// WithDiscoveryCache shares a discovery cache
func WithDiscoveryCache(c *DiscoveryCache) RegistryOption {
	return func(r *Registry) { r.cache = c }
}

// WithRegistryLogger sets the logger
func WithRegistryLogger(l *slog.Logger) RegistryOption {
	return func(r *Registry) { r.logger = l }
}

// NewRegistry creates a registry over catalog
func NewRegistry(catalog *Catalog, opts ...RegistryOption) *Registry {
	r := &Registry{
		catalog: catalog,
		dirs:    func() ([]string, error) { return nil, nil },
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cache == nil {
		r.cache = NewDiscoveryCache()
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Discover returns the manifests installed for d sorted by name; empty when
// none are installed. Results are cached until Invalidate.
func (r *Registry) Discover(d domain.Domain) ([]Manifest, error) {
	if cached, ok := r.cache.get(d); ok {
		return slices.Clone(cached), nil
	}

	byName := make(map[string]Manifest)
	add := func(m Manifest) {
		existing, ok := byName[m.Name]
		if !ok || m.supersedes(existing) {
			byName[m.Name] = m
		}
	}

	for _, m := range r.catalog.Manifests(d) {
		add(m)
	}

	dirs, err := r.dirs()
	if err != nil {
		return nil, domain.ConfigurationError(d, "adapter dirs: %v", err)
	}
	for _, dir := range dirs {
		for _, m := range r.scanDir(dir) {
			if m.Domain == d {
				add(m)
			}
		}
	}

	manifests := make([]Manifest, 0, len(byName))
	for _, m := range byName {
		manifests = append(manifests, m)
	}
	slices.SortFunc(manifests, func(a, b Manifest) int { return strings.Compare(a.Name, b.Name) })

	r.cache.put(d, manifests)
	r.logger.Debug("discovered adapters", "domain", d, "count", len(manifests))
	return slices.Clone(manifests), nil
}

// Lookup returns the manifest named name in d
func (r *Registry) Lookup(d domain.Domain, name string) (Manifest, error) {
	manifests, err := r.Discover(d)
	if err != nil {
		return Manifest{}, err
	}
	for _, m := range manifests {
		if m.Name == name {
			return m, nil
		}
	}
	return Manifest{}, domain.AdapterNotFound(d, name)
}

// Load builds the adapter described by m. Options are layered over the
// manifest defaults key by key. A missing entry or a failing (or panicking)
// factory is an adapter load error.
func (r *Registry) Load(m Manifest, options map[string]any) (p domain.Provider, err error) {
	factory, ok := r.catalog.Factory(m.Entry)
	if !ok {
		return nil, domain.AdapterLoadError(m.Domain, m.Name, fmt.Errorf("entry %q is not a compiled-in adapter", m.Entry))
	}

	defer func() {
		if rec := recover(); rec != nil {
			p = nil
			err = domain.AdapterLoadError(m.Domain, m.Name, fmt.Errorf("panic: %v", rec))
		}
	}()

	p, err = factory(Params{
		Manifest: m,
		Options:  MergeOptions(m.Defaults, options),
		Logger:   r.logger.With("domain", m.Domain, "adapter", m.Name),
	})
	if err != nil {
		return nil, domain.AdapterLoadError(m.Domain, m.Name, err)
	}
	if p == nil {
		return nil, domain.AdapterLoadError(m.Domain, m.Name, errors.New("factory returned no provider"))
	}
	return p, nil
}

// Invalidate clears cached discovery results for the given domains, or for
// all domains when none is given
func (r *Registry) Invalidate(domains ...domain.Domain) {
	r.cache.Invalidate(domains...)
}

// Dirs returns the directories scanned for manifests
func (r *Registry) Dirs() ([]string, error) {
	return r.dirs()
}

// scanDir reads <dir>/*/adapter.yaml. Unreadable or invalid manifests are
// skipped with a warning; a missing dir is skipped silently.
func (r *Registry) scanDir(dir string) []Manifest {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			r.logger.Warn("cannot read adapter dir", "dir", dir, "error", err)
		}
		return nil
	}

	var manifests []Manifest
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		for _, file := range manifestFiles {
			path := filepath.Join(dir, entry.Name(), file)
			data, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			m, err := ParseManifest(data, path)
			if err != nil {
				r.logger.Warn("skipping invalid adapter manifest", "path", path, "error", err)
				break
			}
			manifests = append(manifests, m)
			break
		}
	}
	return manifests
}
