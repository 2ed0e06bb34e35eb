package adapter

import (
	"fmt"
	"slices"
	"strings"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"pai/internal/domain"
)

// BuiltinVersion is the version carried by compiled-in manifests
const BuiltinVersion = "1.0.0"

// SourceBuiltin marks manifests registered in code
const SourceBuiltin = "builtin"

// Manifest file names looked up in each adapter directory
var manifestFiles = []string{"adapter.yaml", "adapter.yml"}

// Manifest describes an installed adapter. Immutable once discovered.
type Manifest struct {
	Name         string         `yaml:"name" json:"name"`
	Domain       domain.Domain  `yaml:"domain" json:"domain"`
	Version      string         `yaml:"version" json:"version"`
	Entry        string         `yaml:"entry,omitempty" json:"entry"`
	Description  string         `yaml:"description,omitempty" json:"description,omitempty"`
	Capabilities []string       `yaml:"capabilities,omitempty" json:"capabilities,omitempty"`
	Defaults     map[string]any `yaml:"defaults,omitempty" json:"-"`

	// Source is SourceBuiltin or the manifest file path
	Source string `yaml:"-" json:"source"`

	version *semver.Version
}

// EntryKey returns the catalog key for a domain and adapter name
func EntryKey(d domain.Domain, name string) string {
	return string(d) + "/" + name
}

// ParseManifest decodes and validates a manifest file
func ParseManifest(data []byte, source string) (Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest: %w", err)
	}
	m.Source = source
	if err := m.normalize(); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// normalize validates required fields, parses the version and fills
// the default entry key
func (m *Manifest) normalize() error {
	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" {
		return fmt.Errorf("manifest: name is required")
	}
	d, err := domain.ParseDomain(string(m.Domain))
	if err != nil {
		return fmt.Errorf("manifest %s: %w", m.Name, err)
	}
	m.Domain = d

	if m.Version == "" {
		return fmt.Errorf("manifest %s: version is required", m.Name)
	}
	v, err := semver.StrictNewVersion(strings.TrimPrefix(m.Version, "v"))
	if err != nil {
		return fmt.Errorf("manifest %s: invalid version %q: %w", m.Name, m.Version, err)
	}
	m.version = v

	if m.Entry == "" {
		m.Entry = EntryKey(m.Domain, m.Name)
	}
	slices.Sort(m.Capabilities)
	return nil
}

// SemVer returns the parsed version
func (m Manifest) SemVer() *semver.Version {
	if m.version == nil {
		if v, err := semver.NewVersion(m.Version); err == nil {
			return v
		}
		return semver.New(0, 0, 0, "", "")
	}
	return m.version
}

// Builtin reports whether the manifest was registered in code
func (m Manifest) Builtin() bool {
	return m.Source == SourceBuiltin
}

// HasCapability reports whether the adapter declares capability c
func (m Manifest) HasCapability(c string) bool {
	_, found := slices.BinarySearch(m.Capabilities, c)
	return found
}

// supersedes reports whether m should replace other for the same name
func (m Manifest) supersedes(other Manifest) bool {
	switch m.SemVer().Compare(other.SemVer()) {
	case 1:
		return true
	case 0:
		return other.Builtin() && !m.Builtin()
	default:
		return false
	}
}
