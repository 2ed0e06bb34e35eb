package domain

import (
	"context"
	"time"
)

// IssuesProvider manages issues in a tracker.
// project is the tracker's project identifier (e.g. "owner/name" on GitHub).
type IssuesProvider interface {
	Provider

	ListIssues(ctx context.Context, project string, q IssueQuery) ([]Issue, error)
	GetIssue(ctx context.Context, project, id string) (*Issue, error)
	CreateIssue(ctx context.Context, project string, in NewIssue) (*Issue, error)
	UpdateIssue(ctx context.Context, project, id string, in IssueUpdate) (*Issue, error)
}

// IssueState is open or closed
type IssueState string

const (
	IssueOpen   IssueState = "open"
	IssueClosed IssueState = "closed"
	IssueAll    IssueState = "all"
)

// Issue is a tracker entry
type Issue struct {
	ID        string     `json:"id" yaml:"id"`
	Title     string     `json:"title" yaml:"title"`
	Body      string     `json:"body,omitempty" yaml:"body,omitempty"`
	State     IssueState `json:"state" yaml:"state"`
	Labels    []string   `json:"labels,omitempty" yaml:"labels,omitempty"`
	Assignees []string   `json:"assignees,omitempty" yaml:"assignees,omitempty"`
	Author    string     `json:"author,omitempty" yaml:"author,omitempty"`
	URL       string     `json:"url,omitempty" yaml:"url,omitempty"`
	CreatedAt time.Time  `json:"createdAt" yaml:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt" yaml:"updatedAt"`
}

// IssueQuery filters ListIssues
type IssueQuery struct {
	State  IssueState
	Labels []string
	Limit  int
}

// NewIssue is the input to CreateIssue
type NewIssue struct {
	Title     string
	Body      string
	Labels    []string
	Assignees []string
}

// IssueUpdate carries optional changes; nil fields are left untouched
type IssueUpdate struct {
	Title  *string
	Body   *string
	State  *IssueState
	Labels []string
}
