package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"pai/internal/config"
	"pai/internal/handler"
	"pai/internal/hub"
	"pai/internal/metrics"
	"pai/internal/watcher"
)

func (a *App) serveCommand() *cobra.Command {
	var (
		addr     string
		schedule string
		watch    bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the status API, metrics and live events over HTTP",
		Long: `Serve the status API on --addr. Domain health is re-probed on
--probe-schedule (cron syntax or @every <duration>), and the configuration
and adapter directories are watched so edits take effect without a restart.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			a.metrics = metrics.New()
			events := hub.New(a.logger)
			a.events = events
			go events.Run(ctx)

			svc, err := a.service()
			if err != nil {
				return err
			}

			if schedule != "" {
				c := cron.New()
				if _, err := c.AddFunc(schedule, func() {
					if _, err := svc.HealthAll(ctx); err != nil {
						a.logger.Warn("scheduled health probe failed", "error", err)
					}
				}); err != nil {
					return err
				}
				c.Start()
				defer c.Stop()
			}

			if watch {
				go a.watchConfig(ctx, svc.Reload)
			}

			h := handler.New(svc,
				handler.WithEvents(events),
				handler.WithMetrics(a.metrics.Handler()),
				handler.WithLogger(a.logger),
			)
			server := &http.Server{
				Addr:              addr,
				Handler:           h.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
				IdleTimeout:       60 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("server listening", "addr", addr)
				if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			a.logger.Info("shutting down server")
			shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
			defer stop()
			return server.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:7420", "listen address")
	cmd.Flags().StringVar(&schedule, "probe-schedule", "@every 5m", "health probe schedule (empty to disable)")
	cmd.Flags().BoolVar(&watch, "watch", true, "reload when the configuration changes")
	return cmd
}

// watchConfig calls reload whenever the config file or an adapter
// directory changes. A missing config file is watched at its default
// location so creating it takes effect.
func (a *App) watchConfig(ctx context.Context, reload func()) {
	resolver := a.configResolver()
	path, _ := resolver.Path()
	if path == "" {
		path = config.DefaultConfigPath(a.getenv)
	}
	dirs, err := resolver.AdapterDirs()
	if err != nil {
		a.logger.Warn("adapter directories unavailable", "error", err)
	}

	w := watcher.New([]string{path}, func(changed string) { reload() },
		watcher.WithDirs(dirs...),
		watcher.WithLogger(a.logger),
	)
	if err := w.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
		a.logger.Warn("config watcher stopped", "error", err)
	}
}
