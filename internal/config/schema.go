package config

import (
	"maps"
	"strings"

	"pai/internal/domain"
)

// ProvidersConfig is the root of the configuration document
type ProvidersConfig struct {
	Domains map[string]*DomainConfig `yaml:"domains" toml:"domains" json:"domains"`

	// AdapterDirs lists extra directories scanned for adapter manifests
	AdapterDirs []string `yaml:"adapter_dirs,omitempty" toml:"adapter_dirs,omitempty" json:"adapter_dirs,omitempty"`

	Audit AuditConfig `yaml:"audit,omitempty" toml:"audit,omitempty" json:"audit"`
}

// DomainConfig selects the adapters for one domain
type DomainConfig struct {
	Primary  string                    `yaml:"primary,omitempty" toml:"primary,omitempty" json:"primary,omitempty"`
	Fallback string                    `yaml:"fallback,omitempty" toml:"fallback,omitempty" json:"fallback,omitempty"`
	Adapters map[string]map[string]any `yaml:"adapters,omitempty" toml:"adapters,omitempty" json:"adapters,omitempty"`
}

// AuditConfig configures where audit entries go
type AuditConfig struct {
	// Log is an append-only file receiving audit lines ("-" for stderr)
	Log string `yaml:"log,omitempty" toml:"log,omitempty" json:"log,omitempty"`
	// Database is a sqlite file receiving audit entries
	Database string `yaml:"database,omitempty" toml:"database,omitempty" json:"database,omitempty"`
}

// Domain returns the config for d, or nil if the document has none
func (c *ProvidersConfig) Domain(d domain.Domain) *DomainConfig {
	if c == nil || c.Domains == nil {
		return nil
	}
	return c.Domains[string(d)]
}

// AdapterOptions returns a copy of the options declared for name, never nil
func (dc *DomainConfig) AdapterOptions(name string) map[string]any {
	out := make(map[string]any)
	if dc == nil {
		return out
	}
	maps.Copy(out, dc.Adapters[name])
	return out
}

// Chain returns the ordered candidate adapter names: override or primary,
// then the fallback when it differs
func (dc *DomainConfig) Chain(override string) []string {
	first := override
	if first == "" && dc != nil {
		first = dc.Primary
	}

	var chain []string
	if first != "" {
		chain = append(chain, first)
	}
	if dc != nil && dc.Fallback != "" && dc.Fallback != first {
		chain = append(chain, dc.Fallback)
	}
	return chain
}

// normalize lower-cases domain keys and trims adapter names
func (c *ProvidersConfig) normalize() {
	if c.Domains == nil {
		c.Domains = make(map[string]*DomainConfig)
	}
	normalized := make(map[string]*DomainConfig, len(c.Domains))
	for key, dc := range c.Domains {
		if dc == nil {
			dc = &DomainConfig{}
		}
		dc.Primary = strings.TrimSpace(dc.Primary)
		dc.Fallback = strings.TrimSpace(dc.Fallback)
		normalized[strings.ToLower(strings.TrimSpace(key))] = dc
	}
	c.Domains = normalized
}
