package config

import (
	"io/fs"
	"os"
	"path/filepath"
)

const (
	// EnvConfigPath is the environment variable for an explicit config path
	EnvConfigPath = "PAI_CONFIG"
	// EnvConfigHome overrides the per-user config directory
	EnvConfigHome = "PAI_CONFIG_HOME"
	// ConfigBaseName is the config file name without extension
	ConfigBaseName = "providers"
	// ConfigDirName is the config directory name under XDG
	ConfigDirName = "pai"
)

// configExtensions are tried in order at each search location
var configExtensions = []string{".yaml", ".yml", ".toml"}

// FileSystem is the slice of the filesystem the resolver touches
type FileSystem interface {
	Stat(name string) (fs.FileInfo, error)
	ReadFile(name string) ([]byte, error)
}

// OSFileSystem reads from the real filesystem
type OSFileSystem struct{}

func (OSFileSystem) Stat(name string) (fs.FileInfo, error) { return os.Stat(name) }
func (OSFileSystem) ReadFile(name string) ([]byte, error)  { return os.ReadFile(name) }

// ConfigHome returns the per-user config directory:
// 1. $PAI_CONFIG_HOME
// 2. $XDG_CONFIG_HOME/pai
// 3. ~/.config/pai
//
// Returns empty string if none can be determined
func ConfigHome(getenv func(string) string) string {
	if dir := getenv(EnvConfigHome); dir != "" {
		return dir
	}
	if xdgHome := getenv("XDG_CONFIG_HOME"); xdgHome != "" {
		return filepath.Join(xdgHome, ConfigDirName)
	}
	if home := getenv("HOME"); home != "" {
		return filepath.Join(home, ".config", ConfigDirName)
	}
	return ""
}

// SearchPaths lists candidate config files in precedence order:
// 1. explicit path (argument, else $PAI_CONFIG)
// 2. ${CONFIG_HOME}/providers.yaml (.yml, .toml)
// 3. ./providers.yaml (.yml, .toml)
func SearchPaths(explicit string, getenv func(string) string) []string {
	var paths []string

	if explicit == "" {
		explicit = getenv(EnvConfigPath)
	}
	if explicit != "" {
		paths = append(paths, explicit)
	}

	if home := ConfigHome(getenv); home != "" {
		for _, ext := range configExtensions {
			paths = append(paths, filepath.Join(home, ConfigBaseName+ext))
		}
	}

	for _, ext := range configExtensions {
		paths = append(paths, ConfigBaseName+ext)
	}

	return paths
}

// FindConfigPath returns the first existing candidate from SearchPaths, or
// empty string if no config file exists. This is a precedence chain, not a merge.
func FindConfigPath(fsys FileSystem, explicit string, getenv func(string) string) string {
	for _, path := range SearchPaths(explicit, getenv) {
		if fileExists(fsys, path) {
			if abs, err := filepath.Abs(path); err == nil {
				return abs
			}
			return path
		}
	}
	return ""
}

// DefaultConfigPath returns the preferred location for a new config file
func DefaultConfigPath(getenv func(string) string) string {
	if home := ConfigHome(getenv); home != "" {
		return filepath.Join(home, ConfigBaseName+".yaml")
	}
	return ConfigBaseName + ".yaml"
}

// AdapterDirs returns the default directories scanned for adapter manifests
func AdapterDirs(getenv func(string) string) []string {
	var dirs []string
	if home := ConfigHome(getenv); home != "" {
		dirs = append(dirs, filepath.Join(home, "adapters"))
	}
	return append(dirs, "adapters")
}

// EnsureConfigDir creates the config directory if it doesn't exist
func EnsureConfigDir(configPath string) error {
	dir := filepath.Dir(configPath)
	return os.MkdirAll(dir, 0755)
}

func fileExists(fsys FileSystem, path string) bool {
	info, err := fsys.Stat(path)
	return err == nil && !info.IsDir()
}
