// Package watcher triggers a reload when the provider configuration or an
// adapter manifest changes on disk. Adapter directories are watched one
// level deep, matching the <dir>/<name>/adapter.yaml layout.
package watcher

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches files and directories for changes. Bursts of events
// are coalesced into one onChange call.
type Watcher struct {
	files    map[string]bool
	dirs     map[string]bool
	onChange func(path string)
	debounce time.Duration
	logger   *slog.Logger
}

// Option configures a Watcher
type Option func(*Watcher)

// WithDebounce sets the quiet period before onChange fires
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithDirs also watches every entry of dirs. Missing directories are skipped.
func WithDirs(dirs ...string) Option {
	return func(w *Watcher) {
		for _, d := range dirs {
			if abs, err := filepath.Abs(d); err == nil {
				w.dirs[abs] = true
			}
		}
	}
}

// New creates a watcher for files. onChange receives the last changed path.
func New(files []string, onChange func(path string), opts ...Option) *Watcher {
	w := &Watcher{
		files:    make(map[string]bool),
		dirs:     make(map[string]bool),
		onChange: onChange,
		debounce: 500 * time.Millisecond,
		logger:   slog.Default(),
	}
	for _, f := range files {
		if abs, err := filepath.Abs(f); err == nil {
			w.files[abs] = true
		}
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Watch blocks until ctx is cancelled or the underlying watcher fails
func (w *Watcher) Watch(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	// parent directories are watched so editors that replace files are seen
	added := make(map[string]bool)
	add := func(dir string) {
		if added[dir] {
			return
		}
		if err := fw.Add(dir); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				w.logger.Warn("failed to watch directory", "dir", dir, "error", err)
			}
			return
		}
		added[dir] = true
	}
	for f := range w.files {
		add(filepath.Dir(f))
		w.logger.Debug("watching file", "path", f)
	}
	// manifests live one level down (<dir>/<name>/adapter.yaml) and fsnotify
	// is not recursive
	for d := range w.dirs {
		add(d)
		w.logger.Debug("watching directory", "path", d)
		entries, err := os.ReadDir(d)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() {
				add(filepath.Join(d, e.Name()))
			}
		}
	}
	if len(added) == 0 {
		return errors.New("watcher: nothing to watch")
	}

	var (
		mu      sync.Mutex
		timer   *time.Timer
		pending string
	)
	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
	}()

	for {
		select {
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			switch {
			case event.Has(fsnotify.Create) && w.isAdapterDir(event.Name):
				if abs, err := filepath.Abs(event.Name); err == nil {
					add(abs)
				}
			case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
				// fsnotify drops the watch with the directory
				if abs, err := filepath.Abs(event.Name); err == nil && !w.dirs[abs] {
					delete(added, abs)
				}
			}

			mu.Lock()
			pending = event.Name
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				mu.Lock()
				path := pending
				mu.Unlock()
				w.logger.Info("configuration changed", "path", path)
				w.onChange(path)
			})
			mu.Unlock()

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	parent := filepath.Dir(abs)
	return w.files[abs] || w.dirs[parent] || w.dirs[filepath.Dir(parent)]
}

// isAdapterDir reports whether path is a directory directly under a watched dir
func (w *Watcher) isAdapterDir(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil || !w.dirs[filepath.Dir(abs)] {
		return false
	}
	info, err := os.Stat(abs)
	return err == nil && info.IsDir()
}
