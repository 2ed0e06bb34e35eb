package mcptools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"pai/internal/domain"
	"pai/internal/service"
)

// CICDRunsTool handles cicd_runs
type CICDRunsTool struct {
	svc *service.Service
}

// NewCICDRunsTool creates a CICDRunsTool
func NewCICDRunsTool(svc *service.Service) *CICDRunsTool {
	return &CICDRunsTool{svc: svc}
}

// Definition returns the tool definition for cicd_runs
func (t *CICDRunsTool) Definition() mcp.Tool {
	return mcp.NewTool("cicd_runs",
		mcp.WithDescription("List recent pipeline runs of a repository, newest first."),
		mcp.WithString("repo",
			mcp.Required(),
			mcp.Description("Repository identifier, e.g. owner/name"),
		),
		mcp.WithString("pipeline",
			mcp.Description("Only runs of this pipeline id"),
		),
		mcp.WithString("branch",
			mcp.Description("Only runs on this branch"),
		),
		mcp.WithString("status",
			mcp.Description("Filter by status: queued, in_progress or completed"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max runs (default: 20)"),
		),
		adapterParam,
	)
}

// Handle processes the cicd_runs call
func (t *CICDRunsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	repo := req.GetString("repo", "")
	if repo == "" {
		return mcp.NewToolResultError("'repo' is required"), nil
	}
	q := domain.RunQuery{
		PipelineID: req.GetString("pipeline", ""),
		Branch:     req.GetString("branch", ""),
		Status:     domain.RunStatus(req.GetString("status", "")),
		Limit:      intArg(req, "limit", 20),
	}
	runs, err := t.svc.Runs(ctx, repo, q, options(req))
	if err != nil {
		return failed("runs list", err), nil
	}
	return jsonResult(runs)
}

// IssuesListTool handles issues_list
type IssuesListTool struct {
	svc *service.Service
}

// NewIssuesListTool creates an IssuesListTool
func NewIssuesListTool(svc *service.Service) *IssuesListTool {
	return &IssuesListTool{svc: svc}
}

// Definition returns the tool definition for issues_list
func (t *IssuesListTool) Definition() mcp.Tool {
	return mcp.NewTool("issues_list",
		mcp.WithDescription("List issues of a project from the issue tracker."),
		mcp.WithString("project",
			mcp.Required(),
			mcp.Description("Project identifier, e.g. owner/name"),
		),
		mcp.WithString("state",
			mcp.Description("open (default), closed or all"),
		),
		mcp.WithString("labels",
			mcp.Description("Comma separated labels; issues must carry all of them"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max issues (default: 30)"),
		),
		adapterParam,
	)
}

// Handle processes the issues_list call
func (t *IssuesListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	project := req.GetString("project", "")
	if project == "" {
		return mcp.NewToolResultError("'project' is required"), nil
	}
	q := domain.IssueQuery{
		State:  domain.IssueState(req.GetString("state", "")),
		Labels: listArg(req, "labels"),
		Limit:  intArg(req, "limit", 30),
	}
	issues, err := t.svc.Issues(ctx, project, q, options(req))
	if err != nil {
		return failed("issues list", err), nil
	}
	return jsonResult(issues)
}
