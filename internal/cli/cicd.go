package cli

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"pai/internal/domain"
)

func (a *App) cicdCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cicd",
		Short: "Drive pipelines on the CI/CD platform",
	}

	pipelines := &cobra.Command{
		Use:   "pipelines <repo>",
		Short: "List pipelines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			list, err := svc.Pipelines(cmd.Context(), args[0], a.opts())
			if err != nil {
				return err
			}
			return a.render(list)
		},
	}
	a.addJSONFlag(pipelines)

	var q domain.RunQuery
	var status string
	runs := &cobra.Command{
		Use:   "runs <repo>",
		Short: "List recent runs, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q.Status = domain.RunStatus(status)
			svc, err := a.service()
			if err != nil {
				return err
			}
			list, err := svc.Runs(cmd.Context(), args[0], q, a.opts())
			if err != nil {
				return err
			}
			return a.render(list)
		},
	}
	runs.Flags().StringVar(&q.PipelineID, "pipeline", "", "only runs of this pipeline")
	runs.Flags().StringVar(&q.Branch, "branch", "", "only runs on this branch")
	runs.Flags().StringVar(&status, "status", "", "queued, in_progress or completed")
	runs.Flags().IntVar(&q.Limit, "limit", 20, "max runs")
	a.addJSONFlag(runs)

	var ref string
	var inputs []string
	trigger := &cobra.Command{
		Use:   "trigger <repo> <pipeline>",
		Short: "Start a pipeline run",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := parsePairs(inputs)
			if err != nil {
				return err
			}
			svc, err := a.service()
			if err != nil {
				return err
			}
			run, err := svc.Trigger(cmd.Context(), args[0], args[1], domain.TriggerOptions{Ref: ref, Inputs: in}, a.opts())
			if err != nil {
				return err
			}
			return a.render(run)
		},
	}
	trigger.Flags().StringVar(&ref, "ref", "", "branch or tag to run on")
	trigger.Flags().StringArrayVar(&inputs, "input", nil, "pipeline input as key=value (repeatable)")
	a.addJSONFlag(trigger)

	cancel := &cobra.Command{
		Use:   "cancel <repo> <run-id>",
		Short: "Cancel a run",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			if err := svc.Cancel(cmd.Context(), args[0], args[1], a.opts()); err != nil {
				return err
			}
			a.printf("cancelled run %s", args[1])
			return nil
		},
	}

	var tail int
	logs := &cobra.Command{
		Use:   "logs <repo> <job-id>",
		Short: "Print a job's log",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			out, err := svc.JobLogs(cmd.Context(), args[0], args[1], tail, a.opts())
			if err != nil {
				return err
			}
			_, err = io.WriteString(a.stdout, out)
			return err
		},
	}
	logs.Flags().IntVar(&tail, "tail", 0, "only the last N lines")

	artifacts := &cobra.Command{
		Use:   "artifacts <repo> <run-id>",
		Short: "List the artifacts of a run",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			list, err := svc.Artifacts(cmd.Context(), args[0], args[1], a.opts())
			if err != nil {
				return err
			}
			return a.render(list)
		},
	}
	a.addJSONFlag(artifacts)

	var dest string
	download := &cobra.Command{
		Use:   "download <repo> <artifact-id>",
		Short: "Download an artifact",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			w := a.stdout
			if dest != "" && dest != "-" {
				f, err := os.Create(dest)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			n, err := svc.DownloadArtifact(cmd.Context(), args[0], args[1], w, a.opts())
			if err != nil {
				return err
			}
			if w != a.stdout {
				a.printf("wrote %d bytes to %s", n, dest)
			}
			return nil
		},
	}
	download.Flags().StringVarP(&dest, "file", "f", "", "write to this file instead of stdout")

	cmd.AddCommand(pipelines, runs, trigger, cancel, logs, artifacts, download)
	return cmd
}
