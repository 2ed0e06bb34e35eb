package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"pai/internal/domain"
)

func (a *App) obsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "obs",
		Aliases: []string{"observability"},
		Short:   "Query the observability backend",
	}

	var at string
	query := &cobra.Command{
		Use:   "query <expr>",
		Short: "Run an instant query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := parseTime(at, time.Now())
			if err != nil {
				return err
			}
			svc, err := a.service()
			if err != nil {
				return err
			}
			res, err := svc.Query(cmd.Context(), args[0], t, a.opts())
			if err != nil {
				return err
			}
			return a.render(res)
		},
	}
	query.Flags().StringVar(&at, "time", "", "evaluation time, RFC3339 or a duration ago (default: now)")
	a.addJSONFlag(query)

	var start, end string
	var step time.Duration
	rng := &cobra.Command{
		Use:   "range <expr>",
		Short: "Run a range query",
		Example: `  pai obs range 'rate(http_requests_total[5m])' --start 1h --step 1m
  pai obs range up --start 2025-01-01T00:00:00Z --end 2025-01-01T06:00:00Z --step 5m`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			s, err := parseTime(start, now.Add(-time.Hour))
			if err != nil {
				return err
			}
			e, err := parseTime(end, now)
			if err != nil {
				return err
			}
			svc, err := a.service()
			if err != nil {
				return err
			}
			res, err := svc.QueryRange(cmd.Context(), args[0], domain.QueryRange{Start: s, End: e, Step: step}, a.opts())
			if err != nil {
				return err
			}
			return a.render(res)
		},
	}
	rng.Flags().StringVar(&start, "start", "", "range start, RFC3339 or a duration ago (default: 1h)")
	rng.Flags().StringVar(&end, "end", "", "range end, RFC3339 or a duration ago (default: now)")
	rng.Flags().DurationVar(&step, "step", time.Minute, "resolution")
	a.addJSONFlag(rng)

	var state string
	alerts := &cobra.Command{
		Use:   "alerts",
		Short: "List alerts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			list, err := svc.Alerts(cmd.Context(), domain.AlertState(state), a.opts())
			if err != nil {
				return err
			}
			return a.render(list)
		},
	}
	alerts.Flags().StringVar(&state, "state", "", "filter by state: firing, pending, inactive")
	a.addJSONFlag(alerts)

	targets := &cobra.Command{
		Use:   "targets",
		Short: "List scrape targets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			list, err := svc.Targets(cmd.Context(), a.opts())
			if err != nil {
				return err
			}
			return a.render(list)
		},
	}
	a.addJSONFlag(targets)

	cmd.AddCommand(query, rng, alerts, targets)
	return cmd
}

// parseTime accepts RFC3339 or a duration meaning that long before now.
// Empty returns def.
func parseTime(s string, def time.Time) (time.Time, error) {
	if s == "" {
		return def.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		return time.Now().Add(-d).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid time %q: want RFC3339 or a duration", s)
}
