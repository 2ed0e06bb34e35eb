package github

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"pai/internal/adapter"
	"pai/internal/domain"
)

// Actions is the GitHub Actions CI/CD provider. Pipelines are workflows,
// pipeline IDs are workflow IDs or file names (ci.yml).
type Actions struct {
	*client
}

// NewActions builds an Actions provider
func NewActions(p adapter.Params) (*Actions, error) {
	c, err := newClient(p, domain.CICD)
	if err != nil {
		return nil, err
	}
	return &Actions{client: c}, nil
}

func (a *Actions) Name() string { return a.name }

func (a *Actions) HealthCheck(ctx context.Context) domain.HealthStatus {
	return a.health(ctx)
}

type workflow struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Path  string `json:"path"`
	State string `json:"state"`
}

type workflowRun struct {
	ID         int64     `json:"id"`
	WorkflowID int64     `json:"workflow_id"`
	Name       string    `json:"name"`
	Status     string    `json:"status"`
	Conclusion string    `json:"conclusion"`
	HeadBranch string    `json:"head_branch"`
	Event      string    `json:"event"`
	HTMLURL    string    `json:"html_url"`
	CreatedAt  time.Time `json:"created_at"`
}

type artifact struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	SizeInBytes int64     `json:"size_in_bytes"`
	Expired     bool      `json:"expired"`
	CreatedAt   time.Time `json:"created_at"`
}

func (a *Actions) ListPipelines(ctx context.Context, repo string) ([]domain.Pipeline, error) {
	base, err := a.repoPath(repo)
	if err != nil {
		return nil, err
	}
	workflows, err := list(ctx, a.client, call{
		method: http.MethodGet,
		path:   base + "/actions/workflows",
		entity: "repository",
		id:     repo,
	}, 0, func(page []byte) ([]workflow, error) {
		var out struct {
			Workflows []workflow `json:"workflows"`
		}
		err := json.Unmarshal(page, &out)
		return out.Workflows, err
	})
	if err != nil {
		return nil, err
	}

	pipelines := make([]domain.Pipeline, 0, len(workflows))
	for _, w := range workflows {
		pipelines = append(pipelines, domain.Pipeline{
			ID:    strconv.FormatInt(w.ID, 10),
			Name:  w.Name,
			Path:  w.Path,
			State: w.State,
		})
	}
	return pipelines, nil
}

func (a *Actions) ListRuns(ctx context.Context, repo string, q domain.RunQuery) ([]domain.Run, error) {
	base, err := a.repoPath(repo)
	if err != nil {
		return nil, err
	}

	path := base + "/actions/runs"
	if q.PipelineID != "" {
		path = base + "/actions/workflows/" + url.PathEscape(q.PipelineID) + "/runs"
	}
	query := url.Values{}
	if q.Branch != "" {
		query.Set("branch", q.Branch)
	}
	if q.Status != "" {
		query.Set("status", string(q.Status))
	}

	runs, err := list(ctx, a.client, call{
		method: http.MethodGet,
		path:   path,
		query:  query,
		entity: "pipeline",
		id:     q.PipelineID,
	}, q.Limit, func(page []byte) ([]workflowRun, error) {
		var out struct {
			WorkflowRuns []workflowRun `json:"workflow_runs"`
		}
		err := json.Unmarshal(page, &out)
		return out.WorkflowRuns, err
	})
	if err != nil {
		return nil, err
	}

	out := make([]domain.Run, 0, len(runs))
	for _, r := range runs {
		out = append(out, convertRun(r))
	}
	return out, nil
}

// TriggerRun dispatches a workflow_dispatch event. GitHub does not return
// the created run, so the result carries no ID.
func (a *Actions) TriggerRun(ctx context.Context, repo, pipelineID string, opts domain.TriggerOptions) (*domain.Run, error) {
	base, err := a.repoPath(repo)
	if err != nil {
		return nil, err
	}
	ref := opts.Ref
	if ref == "" {
		ref = "main"
	}
	body := map[string]any{"ref": ref}
	if len(opts.Inputs) > 0 {
		body["inputs"] = opts.Inputs
	}

	if _, err := a.do(ctx, call{
		method: http.MethodPost,
		path:   base + "/actions/workflows/" + url.PathEscape(pipelineID) + "/dispatches",
		body:   body,
		entity: "pipeline",
		id:     pipelineID,
	}); err != nil {
		return nil, err
	}

	return &domain.Run{
		PipelineID: pipelineID,
		Status:     domain.RunQueued,
		Branch:     ref,
		Event:      "workflow_dispatch",
		CreatedAt:  time.Now().UTC(),
	}, nil
}

func (a *Actions) CancelRun(ctx context.Context, repo, runID string) error {
	base, err := a.repoPath(repo)
	if err != nil {
		return err
	}
	_, err = a.do(ctx, call{
		method: http.MethodPost,
		path:   base + "/actions/runs/" + url.PathEscape(runID) + "/cancel",
		entity: "run",
		id:     runID,
	})
	return err
}

// GetJobLogs follows GitHub's redirect to the signed log URL
func (a *Actions) GetJobLogs(ctx context.Context, repo, jobID string) (string, error) {
	base, err := a.repoPath(repo)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := a.stream(ctx, base+"/actions/jobs/"+url.PathEscape(jobID)+"/logs", "job", jobID, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (a *Actions) ListArtifacts(ctx context.Context, repo, runID string) ([]domain.Artifact, error) {
	base, err := a.repoPath(repo)
	if err != nil {
		return nil, err
	}
	artifacts, err := list(ctx, a.client, call{
		method: http.MethodGet,
		path:   base + "/actions/runs/" + url.PathEscape(runID) + "/artifacts",
		entity: "run",
		id:     runID,
	}, 0, func(page []byte) ([]artifact, error) {
		var out struct {
			Artifacts []artifact `json:"artifacts"`
		}
		err := json.Unmarshal(page, &out)
		return out.Artifacts, err
	})
	if err != nil {
		return nil, err
	}

	out := make([]domain.Artifact, 0, len(artifacts))
	for _, art := range artifacts {
		out = append(out, domain.Artifact{
			ID:        strconv.FormatInt(art.ID, 10),
			Name:      art.Name,
			SizeBytes: art.SizeInBytes,
			Expired:   art.Expired,
			CreatedAt: art.CreatedAt,
		})
	}
	return out, nil
}

// DownloadArtifact writes the artifact's zip archive to w
func (a *Actions) DownloadArtifact(ctx context.Context, repo, artifactID string, w io.Writer) (int64, error) {
	base, err := a.repoPath(repo)
	if err != nil {
		return 0, err
	}
	return a.stream(ctx, base+"/actions/artifacts/"+url.PathEscape(artifactID)+"/zip", "artifact", artifactID, w)
}

func convertRun(r workflowRun) domain.Run {
	return domain.Run{
		ID:         strconv.FormatInt(r.ID, 10),
		PipelineID: strconv.FormatInt(r.WorkflowID, 10),
		Name:       r.Name,
		Status:     convertStatus(r.Status),
		Conclusion: r.Conclusion,
		Branch:     r.HeadBranch,
		Event:      r.Event,
		URL:        r.HTMLURL,
		CreatedAt:  r.CreatedAt,
	}
}

// convertStatus folds GitHub's run states onto queued, in_progress, completed
func convertStatus(s string) domain.RunStatus {
	switch s {
	case "completed":
		return domain.RunCompleted
	case "in_progress":
		return domain.RunInProgress
	case "queued", "requested", "waiting", "pending":
		return domain.RunQueued
	default:
		return domain.RunStatus(s)
	}
}
