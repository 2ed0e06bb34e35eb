package adapter

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	"pai/internal/domain"
)

type catalogEntry struct {
	manifest Manifest
	factory  Factory
}

// Catalog maps entry keys to compiled-in factories
type Catalog struct {
	mu      sync.RWMutex
	entries map[string]catalogEntry
}

// NewCatalog creates an empty catalog
func NewCatalog() *Catalog {
	return &Catalog{entries: make(map[string]catalogEntry)}
}

// Register adds a compiled-in adapter. The manifest's version defaults to
// BuiltinVersion and its entry to "<domain>/<name>".
func (c *Catalog) Register(m Manifest, factory Factory) error {
	if factory == nil {
		return fmt.Errorf("register %s: nil factory", m.Name)
	}
	if m.Version == "" {
		m.Version = BuiltinVersion
	}
	m.Source = SourceBuiltin
	if err := m.normalize(); err != nil {
		return fmt.Errorf("register: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[m.Entry]; exists {
		return fmt.Errorf("adapter %s already registered", m.Entry)
	}
	c.entries[m.Entry] = catalogEntry{manifest: m, factory: factory}
	return nil
}

// MustRegister is Register that panics on error
func (c *Catalog) MustRegister(m Manifest, factory Factory) {
	if err := c.Register(m, factory); err != nil {
		panic(err)
	}
}

// Factory returns the factory registered under entry
func (c *Catalog) Factory(entry string) (Factory, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[strings.TrimSpace(entry)]
	return e.factory, ok
}

// Manifests returns the builtin manifests for a domain sorted by name
func (c *Catalog) Manifests(d domain.Domain) []Manifest {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []Manifest
	for _, e := range c.entries {
		if e.manifest.Domain == d {
			out = append(out, e.manifest)
		}
	}
	slices.SortFunc(out, func(a, b Manifest) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Entries returns every registered entry key, sorted
func (c *Catalog) Entries() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
