package audit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// LineLogger writes one audit line per entry to w
type LineLogger struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
}

// NewLineLogger creates a LineLogger over w
func NewLineLogger(w io.Writer) *LineLogger {
	return &LineLogger{w: w}
}

// OpenFile opens path for appending, creating it (and its directory) if
// needed. "-" writes to stderr.
func OpenFile(path string) (*LineLogger, error) {
	if path == "-" {
		return NewLineLogger(os.Stderr), nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	return &LineLogger{w: f, closer: f}, nil
}

func (l *LineLogger) Log(_ context.Context, e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := fmt.Fprintln(l.w, e.String())
	return err
}

// Close closes the underlying file, if OpenFile created one
func (l *LineLogger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// SlogLogger emits entries as structured log records. Failures log at warn.
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger creates a SlogLogger; nil means slog.Default()
func NewSlogLogger(l *slog.Logger) *SlogLogger {
	if l == nil {
		l = slog.Default()
	}
	return &SlogLogger{logger: l}
}

func (l *SlogLogger) Log(ctx context.Context, e Entry) error {
	level := slog.LevelInfo
	if !e.Success {
		level = slog.LevelWarn
	}
	l.logger.LogAttrs(ctx, level, "audit",
		slog.String("id", e.ID),
		slog.String("domain", string(e.Domain)),
		slog.String("operation", e.Operation),
		slog.String("provider", e.Provider),
		slog.String("target", e.Target),
		slog.String("status", e.Status()),
		slog.Int64("latency_ms", e.LatencyMs()),
	)
	return nil
}

type multi []Logger

// Multi fans an entry out to every logger. Every logger is called even
// when an earlier one fails; the errors are joined.
func Multi(loggers ...Logger) Logger {
	var m multi
	for _, l := range loggers {
		if l != nil {
			m = append(m, l)
		}
	}
	return m
}

func (m multi) Log(ctx context.Context, e Entry) error {
	var errs []error
	for _, l := range m {
		if err := l.Log(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type nop struct{}

// Nop discards entries
var Nop Logger = nop{}

func (nop) Log(context.Context, Entry) error { return nil }
