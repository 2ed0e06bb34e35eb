package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"pai/internal/domain"
)

func (a *App) issuesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "issues",
		Short: "Manage issues in the tracker",
	}

	var q domain.IssueQuery
	var state string
	list := &cobra.Command{
		Use:   "list <project>",
		Short: "List issues",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q.State = domain.IssueState(state)
			svc, err := a.service()
			if err != nil {
				return err
			}
			list, err := svc.Issues(cmd.Context(), args[0], q, a.opts())
			if err != nil {
				return err
			}
			return a.render(list)
		},
	}
	list.Flags().StringVar(&state, "state", "open", "open, closed or all")
	list.Flags().StringSliceVar(&q.Labels, "label", nil, "required label (repeatable)")
	list.Flags().IntVar(&q.Limit, "limit", 30, "max issues")
	a.addJSONFlag(list)

	get := &cobra.Command{
		Use:   "get <project> <id>",
		Short: "Show one issue",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			issue, err := svc.Issue(cmd.Context(), args[0], args[1], a.opts())
			if err != nil {
				return err
			}
			return a.render(issue)
		},
	}
	a.addJSONFlag(get)

	var in domain.NewIssue
	create := &cobra.Command{
		Use:   "create <project>",
		Short: "Open an issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.service()
			if err != nil {
				return err
			}
			issue, err := svc.CreateIssue(cmd.Context(), args[0], in, a.opts())
			if err != nil {
				return err
			}
			return a.render(issue)
		},
	}
	create.Flags().StringVar(&in.Title, "title", "", "issue title")
	create.Flags().StringVar(&in.Body, "body", "", "issue body")
	create.Flags().StringSliceVar(&in.Labels, "label", nil, "label (repeatable)")
	create.Flags().StringSliceVar(&in.Assignees, "assignee", nil, "assignee (repeatable)")
	a.addJSONFlag(create)

	var title, body, newState string
	var labels []string
	update := &cobra.Command{
		Use:   "update <project> <id>",
		Short: "Change an issue; only the given flags are applied",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var u domain.IssueUpdate
			flags := cmd.Flags()
			if flags.Changed("title") {
				u.Title = &title
			}
			if flags.Changed("body") {
				u.Body = &body
			}
			if flags.Changed("state") {
				s := domain.IssueState(newState)
				if s != domain.IssueOpen && s != domain.IssueClosed {
					return errors.New("--state must be open or closed")
				}
				u.State = &s
			}
			if flags.Changed("label") {
				u.Labels = labels
			}

			svc, err := a.service()
			if err != nil {
				return err
			}
			issue, err := svc.UpdateIssue(cmd.Context(), args[0], args[1], u, a.opts())
			if err != nil {
				return err
			}
			return a.render(issue)
		},
	}
	update.Flags().StringVar(&title, "title", "", "new title")
	update.Flags().StringVar(&body, "body", "", "new body")
	update.Flags().StringVar(&newState, "state", "", "open or closed")
	update.Flags().StringSliceVar(&labels, "label", nil, "replace labels (repeatable)")
	a.addJSONFlag(update)

	cmd.AddCommand(list, get, create, update)
	return cmd
}
