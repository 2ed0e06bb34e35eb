package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"pai/internal/domain"
)

func (a *App) containersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "containers",
		Short: "Inspect and scale workloads on the container platform",
	}

	var namespace string
	cmd.PersistentFlags().StringVarP(&namespace, "namespace", "n", "", "namespace (default: the adapter's)")

	var selector string
	list := &cobra.Command{
		Use:   "list",
		Short: "List containers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			q := domain.ContainerQuery{Namespace: namespace, Selector: selector}
			list, err := svc.Containers(cmd.Context(), q, a.opts())
			if err != nil {
				return err
			}
			return a.render(list)
		},
	}
	list.Flags().StringVarP(&selector, "selector", "l", "", "label selector, e.g. app=web")
	a.addJSONFlag(list)

	deployments := &cobra.Command{
		Use:   "deployments",
		Short: "List deployments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			list, err := svc.Deployments(cmd.Context(), namespace, a.opts())
			if err != nil {
				return err
			}
			return a.render(list)
		},
	}
	a.addJSONFlag(deployments)

	scale := &cobra.Command{
		Use:   "scale <deployment> <replicas>",
		Short: "Set the replica count of a deployment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.ParseInt(args[1], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid replica count %q", args[1])
			}
			svc, err := a.service()
			if err != nil {
				return err
			}
			if err := svc.Scale(cmd.Context(), namespace, args[0], int32(n), a.opts()); err != nil {
				return err
			}
			a.printf("scaled %s to %d replicas", args[0], n)
			return nil
		},
	}

	var tail int64
	logs := &cobra.Command{
		Use:   "logs <container>",
		Short: "Print a container's log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			out, err := svc.ContainerLogs(cmd.Context(), namespace, args[0], tail, a.opts())
			if err != nil {
				return err
			}
			_, err = io.WriteString(a.stdout, out)
			return err
		},
	}
	logs.Flags().Int64Var(&tail, "tail", 100, "only the last N lines (0 for all)")

	cmd.AddCommand(list, deployments, scale, logs)
	return cmd
}
