// Package cli implements the pai command tree.
//
// Every command resolves providers through the same service, so audit,
// fallback and error handling behave identically across front-ends.
// Failures print "Error: <message>" on stderr and exit with a code chosen
// by the error kind (see ExitCode).
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"pai/internal/adapter"
	"pai/internal/adapter/builtin"
	"pai/internal/audit"
	"pai/internal/codec"
	"pai/internal/config"
	"pai/internal/metrics"
	"pai/internal/provider"
	"pai/internal/repository"
	"pai/internal/repository/sqlite"
	"pai/internal/service"
)

// App holds the state shared by all commands of one invocation
type App struct {
	stdout  io.Writer
	stderr  io.Writer
	getenv  func(string) string
	catalog *adapter.Catalog
	version string

	// global flags
	configPath  string
	adapterName string
	output      string
	logLevel    string
	jsonOut     bool

	logger   *slog.Logger
	resolver *config.Resolver
	metrics  *metrics.Metrics
	events   service.Publisher
	store    repository.AuditRepository
	svc      *service.Service
	closers  []io.Closer
}

// Option configures an App
type Option func(*App)

// WithOutput redirects stdout and stderr
func WithOutput(stdout, stderr io.Writer) Option {
	return func(a *App) { a.stdout, a.stderr = stdout, stderr }
}

// WithEnv replaces the environment lookup
func WithEnv(getenv func(string) string) Option {
	return func(a *App) { a.getenv = getenv }
}

// WithCatalog replaces the built-in adapter catalog
func WithCatalog(c *adapter.Catalog) Option {
	return func(a *App) { a.catalog = c }
}

// WithVersion sets the version reported by `pai version` and the MCP server
func WithVersion(v string) Option {
	return func(a *App) { a.version = v }
}

// New creates an App
func New(opts ...Option) *App {
	a := &App{
		stdout:  os.Stdout,
		stderr:  os.Stderr,
		getenv:  os.Getenv,
		version: "dev",
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.catalog == nil {
		a.catalog = builtin.NewCatalog()
	}
	return a
}

// Run executes args and returns the process exit code
func (a *App) Run(ctx context.Context, args []string) int {
	cmd := a.rootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)

	err := cmd.ExecuteContext(ctx)
	a.close()
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return ExitCode(err)
	}
	return ExitOK
}

func (a *App) setupLogger() error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(a.logLevel)); err != nil {
		return fmt.Errorf("invalid --log-level %q", a.logLevel)
	}
	a.logger = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))
	return nil
}

func (a *App) configResolver() *config.Resolver {
	if a.resolver == nil {
		a.resolver = config.NewResolver(
			config.WithPath(a.configPath),
			config.WithEnv(a.getenv),
			config.WithLogger(a.logger),
		)
	}
	return a.resolver
}

// service builds the service on first use. Audit sinks come from the
// document's audit section.
func (a *App) service() (*service.Service, error) {
	if a.svc != nil {
		return a.svc, nil
	}

	resolver := a.configResolver()
	cfg, err := resolver.Load("")
	if err != nil {
		return nil, err
	}

	registry := adapter.NewRegistry(a.catalog,
		adapter.WithDirSource(resolver.AdapterDirs),
		adapter.WithRegistryLogger(a.logger),
	)
	factoryOpts := []provider.FactoryOption{provider.WithLogger(a.logger)}
	if a.metrics != nil {
		factoryOpts = append(factoryOpts, provider.WithObserver(a.metrics))
	}
	factory := provider.NewFactory(resolver, registry, factoryOpts...)

	var loggers []audit.Logger
	if a.logger.Enabled(context.Background(), slog.LevelInfo) {
		loggers = append(loggers, audit.NewSlogLogger(a.logger))
	}
	if cfg.Audit.Log != "" {
		l, err := audit.OpenFile(a.relativeToConfig(cfg.Audit.Log))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, l)
		loggers = append(loggers, l)
	}
	if cfg.Audit.Database != "" {
		repo, err := sqlite.New(a.relativeToConfig(cfg.Audit.Database))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, repo)
		a.store = repo
		loggers = append(loggers, repo)
	}
	if a.metrics != nil {
		loggers = append(loggers, a.metrics)
	}

	opts := []service.Option{
		service.WithAudit(audit.Multi(loggers...)),
		service.WithLogger(a.logger),
	}
	if a.store != nil {
		opts = append(opts, service.WithAuditStore(a.store))
	}
	if a.events != nil {
		opts = append(opts, service.WithEvents(a.events))
	}
	a.svc = service.New(factory, opts...)
	return a.svc, nil
}

// relativeToConfig resolves p against the config file's directory
func (a *App) relativeToConfig(p string) string {
	if p == "-" || filepath.IsAbs(p) {
		return p
	}
	if strings.HasPrefix(p, "~/") {
		if home := a.getenv("HOME"); home != "" {
			return filepath.Join(home, p[2:])
		}
	}
	path, err := a.configResolver().Path()
	if err != nil || path == "" {
		return p
	}
	return filepath.Join(filepath.Dir(path), p)
}

func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}

func (a *App) opts() provider.Options {
	return provider.Options{Adapter: a.adapterName}
}

// render writes v in the selected output format. --json wins over --output.
func (a *App) render(v any) error {
	format := a.output
	if a.jsonOut {
		format = "json"
	}
	enc, err := codec.ForFormat(format)
	if err != nil {
		return err
	}
	if err := enc.Encode(a.stdout, v); err != nil {
		if errors.Is(err, codec.ErrUnsupported) {
			return fmt.Errorf("output format %q cannot render this result", format)
		}
		return err
	}
	return nil
}

// printf writes a status line for commands without a result value
func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.stdout, format+"\n", args...)
}
