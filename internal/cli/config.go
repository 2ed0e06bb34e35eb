package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pai/internal/config"
)

func (a *App) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Locate, create or print the provider configuration",
	}

	path := &cobra.Command{
		Use:   "path",
		Short: "Print the config file in use and the search path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			found, err := a.configResolver().Path()
			if err != nil {
				return err
			}
			if found == "" {
				a.printf("no config file found; searched:")
			} else {
				a.printf("%s", found)
				a.printf("searched:")
			}
			for _, p := range config.SearchPaths(a.configPath, a.getenv) {
				a.printf("  %s", p)
			}
			return nil
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter providers.yaml",
		Long: `Write a starter providers.yaml wiring every domain to a local adapter with
the mock adapter as fallback. The file goes to --config when given, else to
the per-user config directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dest := a.configPath
			if dest == "" {
				dest = config.DefaultConfigPath(a.getenv)
			}
			if _, err := os.Stat(dest); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", dest)
			}
			if err := config.DefaultConfig().Save(dest); err != nil {
				return err
			}
			a.printf("wrote %s", dest)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.configResolver().Load("")
			if err != nil {
				return err
			}
			if a.output == "table" && !a.jsonOut {
				a.output = "yaml"
			}
			return a.render(cfg)
		},
	}
	a.addJSONFlag(show)

	cmd.AddCommand(path, initCmd, show)
	return cmd
}
