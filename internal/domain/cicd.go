package domain

import (
	"context"
	"io"
	"time"
)

// CICDProvider drives pipelines on a CI/CD platform.
// repo is the platform's repository identifier (e.g. "owner/name").
type CICDProvider interface {
	Provider

	ListPipelines(ctx context.Context, repo string) ([]Pipeline, error)
	ListRuns(ctx context.Context, repo string, q RunQuery) ([]Run, error)
	TriggerRun(ctx context.Context, repo, pipelineID string, opts TriggerOptions) (*Run, error)
	CancelRun(ctx context.Context, repo, runID string) error
	GetJobLogs(ctx context.Context, repo, jobID string) (string, error)
	ListArtifacts(ctx context.Context, repo, runID string) ([]Artifact, error)
	DownloadArtifact(ctx context.Context, repo, artifactID string, w io.Writer) (int64, error)
}

// Pipeline is a workflow definition
type Pipeline struct {
	ID    string `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Path  string `json:"path,omitempty" yaml:"path,omitempty"`
	State string `json:"state,omitempty" yaml:"state,omitempty"`
}

// RunStatus is the normalized state of a run
type RunStatus string

const (
	RunQueued     RunStatus = "queued"
	RunInProgress RunStatus = "in_progress"
	RunCompleted  RunStatus = "completed"
)

// Run is one execution of a pipeline
type Run struct {
	ID         string    `json:"id" yaml:"id"`
	PipelineID string    `json:"pipelineId,omitempty" yaml:"pipelineId,omitempty"`
	Name       string    `json:"name" yaml:"name"`
	Status     RunStatus `json:"status" yaml:"status"`
	Conclusion string    `json:"conclusion,omitempty" yaml:"conclusion,omitempty"`
	Branch     string    `json:"branch,omitempty" yaml:"branch,omitempty"`
	Event      string    `json:"event,omitempty" yaml:"event,omitempty"`
	URL        string    `json:"url,omitempty" yaml:"url,omitempty"`
	CreatedAt  time.Time `json:"createdAt" yaml:"createdAt"`
}

// RunQuery filters ListRuns
type RunQuery struct {
	PipelineID string
	Branch     string
	Status     RunStatus
	Limit      int
}

// TriggerOptions parameterizes TriggerRun
type TriggerOptions struct {
	Ref    string
	Inputs map[string]string
}

// Artifact is a file produced by a run
type Artifact struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	SizeBytes int64     `json:"sizeBytes" yaml:"sizeBytes"`
	Expired   bool      `json:"expired" yaml:"expired"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
}
