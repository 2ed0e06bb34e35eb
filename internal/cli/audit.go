package cli

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"pai/internal/audit"
	"pai/internal/domain"
)

var errNoAuditDatabase = domain.ConfigurationError("", "audit database not configured (set audit.database)")

func (a *App) auditCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Read the audit store",
	}

	var (
		domainName string
		failed     bool
		since      time.Duration
		limit      int
		lines      bool
	)
	tail := &cobra.Command{
		Use:   "tail",
		Short: "Show recent audit entries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := audit.Query{FailedOnly: failed, Limit: limit}
			if domainName != "" {
				d, err := domain.ParseDomain(domainName)
				if err != nil {
					return err
				}
				q.Domain = d
			}
			if since > 0 {
				q.Since = time.Now().Add(-since).UTC()
			}

			svc, err := a.service()
			if err != nil {
				return err
			}
			entries, err := svc.RecentAudit(cmd.Context(), q)
			if err != nil {
				return err
			}
			if entries == nil {
				entries = []audit.Entry{}
			}
			if lines {
				for _, e := range entries {
					a.printf("%s", e.String())
				}
				return nil
			}
			return a.render(entries)
		},
	}
	tail.Flags().StringVar(&domainName, "domain", "", "only this domain")
	tail.Flags().BoolVar(&failed, "failed", false, "only failures")
	tail.Flags().DurationVar(&since, "since", 0, "only entries newer than this, e.g. 24h")
	tail.Flags().IntVar(&limit, "limit", 50, "max entries")
	tail.Flags().BoolVar(&lines, "lines", false, "print entries in audit log line format")
	a.addJSONFlag(tail)

	var olderThan time.Duration
	prune := &cobra.Command{
		Use:   "prune",
		Short: "Delete audit entries older than --older-than",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return errors.New("--older-than must be positive")
			}
			if _, err := a.service(); err != nil {
				return err
			}
			if a.store == nil {
				return errNoAuditDatabase
			}
			n, err := a.store.Prune(cmd.Context(), time.Now().Add(-olderThan).UTC())
			if err != nil {
				return err
			}
			a.printf("pruned %d entries", n)
			return nil
		},
	}
	prune.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "age threshold")

	cmd.AddCommand(tail, prune)
	return cmd
}
