package service

import (
	"context"
	"strings"

	"pai/internal/domain"
	"pai/internal/provider"
)

// Issues lists issues of project
func (s *Service) Issues(ctx context.Context, project string, q domain.IssueQuery, opts provider.Options) ([]domain.Issue, error) {
	c := Call{Domain: domain.Issues, Operation: "list", Target: project, Options: opts}
	return run(ctx, s, c, func(p domain.IssuesProvider) ([]domain.Issue, error) {
		return p.ListIssues(ctx, project, q)
	})
}

// Issue returns one issue
func (s *Service) Issue(ctx context.Context, project, id string, opts provider.Options) (*domain.Issue, error) {
	c := Call{Domain: domain.Issues, Operation: "get", Target: id, Options: opts}
	return run(ctx, s, c, func(p domain.IssuesProvider) (*domain.Issue, error) {
		return p.GetIssue(ctx, project, id)
	})
}

// CreateIssue files a new issue; a title is required
func (s *Service) CreateIssue(ctx context.Context, project string, in domain.NewIssue, opts provider.Options) (*domain.Issue, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, domain.ConfigurationError(domain.Issues, "issue title is required")
	}
	c := Call{Domain: domain.Issues, Operation: "create", Target: project, Options: opts}
	return run(ctx, s, c, func(p domain.IssuesProvider) (*domain.Issue, error) {
		return p.CreateIssue(ctx, project, in)
	})
}

// UpdateIssue applies in to an issue
func (s *Service) UpdateIssue(ctx context.Context, project, id string, in domain.IssueUpdate, opts provider.Options) (*domain.Issue, error) {
	c := Call{Domain: domain.Issues, Operation: "update", Target: id, Options: opts}
	return run(ctx, s, c, func(p domain.IssuesProvider) (*domain.Issue, error) {
		return p.UpdateIssue(ctx, project, id, in)
	})
}
