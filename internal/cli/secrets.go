package cli

import (
	"github.com/spf13/cobra"

	"pai/internal/service"
)

func (a *App) secretsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secrets",
		Short: "Read secrets from the configured secrets backend",
	}

	get := &cobra.Command{
		Use:   "get <key>",
		Short: "Print a secret value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			value, err := svc.GetSecret(cmd.Context(), args[0], a.opts())
			if err != nil {
				return err
			}
			if a.jsonOut || a.output == "json" || a.output == "yaml" {
				return a.render(map[string]string{"key": args[0], "value": value})
			}
			a.printf("%s", value)
			return nil
		},
	}
	a.addJSONFlag(get)

	var filter service.SecretFilter
	list := &cobra.Command{
		Use:   "list",
		Short: "List secret keys (never values)",
		Example: `  pai secrets list --pattern "API_*" --json
  pai secrets list --limit 10`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			keys, err := svc.ListSecrets(cmd.Context(), filter, a.opts())
			if err != nil {
				return err
			}
			return a.render(keys)
		},
	}
	list.Flags().StringVar(&filter.Pattern, "pattern", "", "shell glob filter, e.g. API_*")
	list.Flags().IntVar(&filter.Limit, "limit", 0, "max keys (0 for all)")
	a.addJSONFlag(list)

	cmd.AddCommand(get, list)
	return cmd
}
