package localsecrets

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"pai/internal/adapter"
	"pai/internal/domain"
)

// DefaultPaths are scanned when the paths option is unset
var DefaultPaths = []string{"/secrets", "/run/secrets"}

const defaultMaxSize = 1 << 20

// File serves secrets mounted as files. A file at <root>/db/password is
// exposed as key "db.password" with its extension dropped. Hidden entries
// (such as the ..data links Kubernetes creates) are skipped. The first root
// holding a key wins.
//
//	paths: [/run/secrets]
//	max_size: 65536
type File struct {
	name    string
	paths   []string
	maxSize int64
	logger  *slog.Logger
}

// NewFile builds a File adapter
func NewFile(p adapter.Params) (*File, error) {
	paths := p.Options.StringSlice("paths")
	if len(paths) == 0 {
		paths = DefaultPaths
	}
	return &File{
		name:    p.Name("file"),
		paths:   paths,
		maxSize: int64(p.Options.Int("max_size", defaultMaxSize)),
		logger:  p.Log(),
	}, nil
}

func (f *File) Name() string { return f.name }

// HealthCheck reports unhealthy when no configured root exists
func (f *File) HealthCheck(ctx context.Context) domain.HealthStatus {
	start := time.Now()
	var found []string
	for _, root := range f.paths {
		if info, err := os.Stat(root); err == nil && info.IsDir() {
			found = append(found, root)
		}
	}
	if len(found) == 0 {
		return domain.Unhealthy("no secrets directory among %s", strings.Join(f.paths, ", "))
	}
	status := domain.Healthy(fmt.Sprintf("reading %s", strings.Join(found, ", ")))
	status.Latency = time.Since(start)
	return status
}

func (f *File) Get(ctx context.Context, key string) (string, error) {
	index, err := f.scan(ctx)
	if err != nil {
		return "", err
	}
	path, ok := index[key]
	if !ok {
		return "", domain.NotFound(domain.Secrets, "secret", key)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", domain.ProviderFailed(domain.Secrets, f.name, err)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

func (f *File) List(ctx context.Context) ([]string, error) {
	index, err := f.scan(ctx)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(index))
	for k := range index {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys, nil
}

// scan walks every root and maps keys to file paths
func (f *File) scan(ctx context.Context) (map[string]string, error) {
	index := make(map[string]string)
	for _, root := range f.paths {
		if _, err := os.Stat(root); err != nil {
			continue
		}
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if strings.HasPrefix(d.Name(), ".") && path != root {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}

			info, err := os.Stat(path)
			if err != nil || !info.Mode().IsRegular() {
				return nil
			}
			if info.Size() > f.maxSize {
				f.logger.Debug("skipping oversized secret file", "path", path, "size", info.Size())
				return nil
			}

			key := secretKey(root, path)
			if _, exists := index[key]; !exists {
				index[key] = path
			}
			return nil
		})
		if err != nil {
			return nil, domain.ProviderFailed(domain.Secrets, f.name, err)
		}
	}
	return index, nil
}

// secretKey derives a dotted key from a path relative to root
func secretKey(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	return strings.ReplaceAll(filepath.ToSlash(rel), "/", ".")
}
