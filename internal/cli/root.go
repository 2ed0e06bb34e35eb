package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"pai/internal/codec"
	"pai/internal/domain"
)

func (a *App) rootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pai",
		Short: "pai reaches personal infrastructure through pluggable provider adapters",
		Long: `pai talks to secrets stores, observability backends, CI/CD platforms, issue
trackers, container orchestrators and the local network through adapters.
Each domain is configured with a primary adapter and an optional fallback in
providers.yaml; when the primary is unhealthy the fallback serves instead.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setupLogger()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default: $PAI_CONFIG, then the search path)")
	flags.StringVar(&a.adapterName, "adapter", "", "use this adapter instead of the configured primary")
	flags.StringVarP(&a.output, "output", "o", "table", "output format: "+strings.Join(codec.Formats(), ", "))
	flags.StringVar(&a.logLevel, "log-level", "warn", "log level: debug, info, warn, error")

	cmd.AddCommand(
		a.adaptersCommand(),
		a.healthCommand(),
		a.secretsCommand(),
		a.obsCommand(),
		a.cicdCommand(),
		a.issuesCommand(),
		a.containersCommand(),
		a.networkCommand(),
		a.auditCommand(),
		a.configCommand(),
		a.serveCommand(),
		a.mcpCommand(),
		a.versionCommand(),
	)
	return cmd
}

// addJSONFlag adds --json, a shorthand for --output json
func (a *App) addJSONFlag(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&a.jsonOut, "json", false, "print JSON (same as --output json)")
}

func (a *App) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			a.printf("pai %s", a.version)
		},
	}
}

// domainsArg parses domain names, or returns every domain when args is empty
func domainsArg(args []string) ([]domain.Domain, error) {
	if len(args) == 0 {
		return domain.Domains(), nil
	}
	out := make([]domain.Domain, 0, len(args))
	for _, s := range args {
		d, err := domain.ParseDomain(s)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func domainNames() string {
	names := make([]string, 0, len(domain.Domains()))
	for _, d := range domain.Domains() {
		names = append(names, string(d))
	}
	return strings.Join(names, ", ")
}

// parsePairs parses key=value arguments
func parsePairs(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("expected key=value, got %q", p)
		}
		out[k] = v
	}
	return out, nil
}
