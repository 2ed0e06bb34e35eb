package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"pai/internal/adapter"
	"pai/internal/domain"
)

// Issues is the GitHub Issues provider. Projects are repositories and
// issue IDs are issue numbers. Pull requests are filtered out of listings.
type Issues struct {
	*client
}

// NewIssues builds an Issues provider
func NewIssues(p adapter.Params) (*Issues, error) {
	c, err := newClient(p, domain.Issues)
	if err != nil {
		return nil, err
	}
	return &Issues{client: c}, nil
}

func (i *Issues) Name() string { return i.name }

func (i *Issues) HealthCheck(ctx context.Context) domain.HealthStatus {
	return i.health(ctx)
}

type ghIssue struct {
	Number int64  `json:"number"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	State  string `json:"state"`
	Labels []struct {
		Name string `json:"name"`
	} `json:"labels"`
	Assignees []struct {
		Login string `json:"login"`
	} `json:"assignees"`
	User struct {
		Login string `json:"login"`
	} `json:"user"`
	HTMLURL     string          `json:"html_url"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	PullRequest json.RawMessage `json:"pull_request,omitempty"`
}

func (g ghIssue) convert() domain.Issue {
	issue := domain.Issue{
		ID:        strconv.FormatInt(g.Number, 10),
		Title:     g.Title,
		Body:      g.Body,
		State:     domain.IssueState(g.State),
		Author:    g.User.Login,
		URL:       g.HTMLURL,
		CreatedAt: g.CreatedAt,
		UpdatedAt: g.UpdatedAt,
	}
	for _, l := range g.Labels {
		issue.Labels = append(issue.Labels, l.Name)
	}
	for _, a := range g.Assignees {
		issue.Assignees = append(issue.Assignees, a.Login)
	}
	return issue
}

func (i *Issues) ListIssues(ctx context.Context, project string, q domain.IssueQuery) ([]domain.Issue, error) {
	base, err := i.repoPath(project)
	if err != nil {
		return nil, err
	}
	query := url.Values{}
	state := q.State
	if state == "" {
		state = domain.IssueOpen
	}
	query.Set("state", string(state))
	if len(q.Labels) > 0 {
		query.Set("labels", strings.Join(q.Labels, ","))
	}

	raw, err := list(ctx, i.client, call{
		method: http.MethodGet,
		path:   base + "/issues",
		query:  query,
		entity: "project",
		id:     project,
	}, q.Limit, func(page []byte) ([]ghIssue, error) {
		var out []ghIssue
		err := json.Unmarshal(page, &out)
		return out, err
	})
	if err != nil {
		return nil, err
	}

	issues := make([]domain.Issue, 0, len(raw))
	for _, g := range raw {
		if len(g.PullRequest) > 0 {
			continue
		}
		issues = append(issues, g.convert())
	}
	return issues, nil
}

func (i *Issues) GetIssue(ctx context.Context, project, id string) (*domain.Issue, error) {
	base, err := i.repoPath(project)
	if err != nil {
		return nil, err
	}
	var g ghIssue
	if _, err := i.do(ctx, call{
		method: http.MethodGet,
		path:   base + "/issues/" + url.PathEscape(id),
		out:    &g,
		entity: "issue",
		id:     id,
	}); err != nil {
		return nil, err
	}
	issue := g.convert()
	return &issue, nil
}

func (i *Issues) CreateIssue(ctx context.Context, project string, in domain.NewIssue) (*domain.Issue, error) {
	base, err := i.repoPath(project)
	if err != nil {
		return nil, err
	}
	body := map[string]any{"title": in.Title}
	if in.Body != "" {
		body["body"] = in.Body
	}
	if len(in.Labels) > 0 {
		body["labels"] = in.Labels
	}
	if len(in.Assignees) > 0 {
		body["assignees"] = in.Assignees
	}

	var g ghIssue
	if _, err := i.do(ctx, call{
		method: http.MethodPost,
		path:   base + "/issues",
		body:   body,
		out:    &g,
		entity: "project",
		id:     project,
	}); err != nil {
		return nil, err
	}
	issue := g.convert()
	return &issue, nil
}

func (i *Issues) UpdateIssue(ctx context.Context, project, id string, in domain.IssueUpdate) (*domain.Issue, error) {
	base, err := i.repoPath(project)
	if err != nil {
		return nil, err
	}
	body := map[string]any{}
	if in.Title != nil {
		body["title"] = *in.Title
	}
	if in.Body != nil {
		body["body"] = *in.Body
	}
	if in.State != nil {
		body["state"] = string(*in.State)
	}
	if in.Labels != nil {
		body["labels"] = in.Labels
	}

	var g ghIssue
	if _, err := i.do(ctx, call{
		method: http.MethodPatch,
		path:   base + "/issues/" + url.PathEscape(id),
		body:   body,
		out:    &g,
		entity: "issue",
		id:     id,
	}); err != nil {
		return nil, err
	}
	issue := g.convert()
	return &issue, nil
}
