package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"pai/internal/domain"
	"pai/internal/provider"
)

func (a *App) adaptersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "adapters",
		Short: "Inspect installed adapters",
	}

	list := &cobra.Command{
		Use:   "list [domain...]",
		Short: "List the adapters discovered for each domain",
		Long:  "List the adapters discovered for each domain and their configured role.\nDomains: " + domainNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			domains, err := domainsArg(args)
			if err != nil {
				return err
			}
			svc, err := a.service()
			if err != nil {
				return err
			}
			var all []provider.AdapterInfo
			for _, d := range domains {
				infos, err := svc.Adapters(d)
				if err != nil {
					return err
				}
				all = append(all, infos...)
			}
			if all == nil {
				all = []provider.AdapterInfo{}
			}
			return a.render(all)
		},
	}
	a.addJSONFlag(list)
	cmd.AddCommand(list)
	return cmd
}

func (a *App) healthCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health [domain...]",
		Short: "Probe the configured adapters",
		Long: `Probe the primary and fallback adapter of each domain. Without arguments
every configured domain is probed. Exits non-zero when a probed domain has
no healthy candidate.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}

			var results []provider.CandidateHealth
			if len(args) == 0 {
				results, err = svc.HealthAll(cmd.Context())
				if err != nil {
					return err
				}
			} else {
				domains, err := domainsArg(args)
				if err != nil {
					return err
				}
				for _, d := range domains {
					r, err := svc.Health(cmd.Context(), d, a.opts())
					if err != nil {
						return err
					}
					results = append(results, r...)
				}
			}
			if results == nil {
				results = []provider.CandidateHealth{}
			}
			if err := a.render(results); err != nil {
				return err
			}
			return unhealthyDomains(results)
		},
	}
	a.addJSONFlag(cmd)
	return cmd
}

// unhealthyDomains reports the domains without a single healthy candidate
func unhealthyDomains(results []provider.CandidateHealth) error {
	healthy := make(map[domain.Domain]bool)
	var order []domain.Domain
	for _, r := range results {
		if _, seen := healthy[r.Domain]; !seen {
			order = append(order, r.Domain)
		}
		healthy[r.Domain] = healthy[r.Domain] || r.Healthy
	}

	var down []string
	for _, d := range order {
		if !healthy[d] {
			down = append(down, string(d))
		}
	}
	if len(down) == 0 {
		return nil
	}
	return fmt.Errorf("no healthy adapter for %s", strings.Join(down, ", "))
}
