package mock

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"pai/internal/adapter"
	"pai/internal/domain"
)

// Issues is an in-memory tracker seeded from the "issues" option (titles)
type Issues struct {
	base
	mu     sync.Mutex
	issues []domain.Issue
}

// NewIssues builds an Issues mock
func NewIssues(p adapter.Params) (*Issues, error) {
	m := &Issues{base: newBase(p)}
	now := time.Now().UTC()
	for _, title := range p.Options.StringSlice("issues") {
		m.add(domain.NewIssue{Title: title}, now)
	}
	return m, nil
}

func (m *Issues) add(in domain.NewIssue, now time.Time) domain.Issue {
	issue := domain.Issue{
		ID:        strconv.Itoa(len(m.issues) + 1),
		Title:     in.Title,
		Body:      in.Body,
		State:     domain.IssueOpen,
		Labels:    in.Labels,
		Assignees: in.Assignees,
		Author:    "mock",
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.issues = append(m.issues, issue)
	return issue
}

func (m *Issues) ListIssues(ctx context.Context, project string, q domain.IssueQuery) ([]domain.Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state := q.State
	if state == "" {
		state = domain.IssueOpen
	}
	out := []domain.Issue{}
	for _, issue := range m.issues {
		if state != domain.IssueAll && issue.State != state {
			continue
		}
		if !hasLabels(issue.Labels, q.Labels) {
			continue
		}
		out = append(out, issue)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

func (m *Issues) GetIssue(ctx context.Context, project, id string) (*domain.Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, err := m.find(id)
	if err != nil {
		return nil, err
	}
	issue := m.issues[i]
	return &issue, nil
}

func (m *Issues) CreateIssue(ctx context.Context, project string, in domain.NewIssue) (*domain.Issue, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, domain.ProviderFailed(domain.Issues, m.name, errTitleRequired)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	issue := m.add(in, time.Now().UTC())
	return &issue, nil
}

func (m *Issues) UpdateIssue(ctx context.Context, project, id string, in domain.IssueUpdate) (*domain.Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, err := m.find(id)
	if err != nil {
		return nil, err
	}
	issue := &m.issues[i]
	if in.Title != nil {
		issue.Title = *in.Title
	}
	if in.Body != nil {
		issue.Body = *in.Body
	}
	if in.State != nil {
		issue.State = *in.State
	}
	if in.Labels != nil {
		issue.Labels = in.Labels
	}
	issue.UpdatedAt = time.Now().UTC()
	out := *issue
	return &out, nil
}

func (m *Issues) find(id string) (int, error) {
	for i := range m.issues {
		if m.issues[i].ID == id {
			return i, nil
		}
	}
	return -1, domain.NotFound(domain.Issues, "issue", id)
}

func hasLabels(have, want []string) bool {
	for _, l := range want {
		if !slices.Contains(have, l) {
			return false
		}
	}
	return true
}
