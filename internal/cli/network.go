package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func (a *App) networkCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "network",
		Short: "Discover hosts and probe services on the local network",
	}

	scan := &cobra.Command{
		Use:   "scan <target>",
		Short: "Discover live hosts in a host, address or CIDR range",
		Example: `  pai network scan 192.168.1.0/24
  pai network scan 192.168.1.0/24 -o ansible-inventory > hosts.yml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			hosts, err := svc.Scan(cmd.Context(), args[0], a.opts())
			if err != nil {
				return err
			}
			return a.render(hosts)
		},
	}
	a.addJSONFlag(scan)

	probe := &cobra.Command{
		Use:   "probe <host> <port>",
		Short: "Check one TCP port",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			port, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid port %q", args[1])
			}
			svc, err := a.service()
			if err != nil {
				return err
			}
			res, err := svc.Probe(cmd.Context(), args[0], port, a.opts())
			if err != nil {
				return err
			}
			return a.render(res)
		},
	}
	a.addJSONFlag(probe)

	cmd.AddCommand(scan, probe)
	return cmd
}
