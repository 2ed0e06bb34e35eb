package mock

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"pai/internal/adapter"
	"pai/internal/domain"
)

// CICD keeps pipelines and runs in memory. Pipelines are seeded from the
// "pipelines" option (a list of names); artifacts from "artifacts"
// (name to content). Every triggered run gets one artifact per entry.
type CICD struct {
	base
	mu        sync.Mutex
	pipelines []domain.Pipeline
	runs      []domain.Run
	artifacts map[string]string
	nextID    int
}

// NewCICD builds a CICD mock
func NewCICD(p adapter.Params) (*CICD, error) {
	c := &CICD{base: newBase(p), artifacts: p.Options.StringMap("artifacts")}
	for i, name := range p.Options.StringSlice("pipelines") {
		c.pipelines = append(c.pipelines, domain.Pipeline{
			ID:    strconv.Itoa(i + 1),
			Name:  name,
			Path:  ".ci/" + name + ".yml",
			State: "active",
		})
	}
	return c, nil
}

func (c *CICD) ListPipelines(ctx context.Context, repo string) ([]domain.Pipeline, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Pipeline{}, c.pipelines...), nil
}

func (c *CICD) ListRuns(ctx context.Context, repo string, q domain.RunQuery) ([]domain.Run, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	runs := []domain.Run{}
	for i := len(c.runs) - 1; i >= 0; i-- {
		r := c.runs[i]
		if q.PipelineID != "" && r.PipelineID != q.PipelineID {
			continue
		}
		if q.Branch != "" && r.Branch != q.Branch {
			continue
		}
		if q.Status != "" && r.Status != q.Status {
			continue
		}
		runs = append(runs, r)
		if q.Limit > 0 && len(runs) == q.Limit {
			break
		}
	}
	return runs, nil
}

func (c *CICD) TriggerRun(ctx context.Context, repo, pipelineID string, opts domain.TriggerOptions) (*domain.Run, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var pipeline *domain.Pipeline
	for i := range c.pipelines {
		if c.pipelines[i].ID == pipelineID || c.pipelines[i].Name == pipelineID {
			pipeline = &c.pipelines[i]
			break
		}
	}
	if pipeline == nil {
		return nil, domain.NotFound(domain.CICD, "pipeline", pipelineID)
	}

	c.nextID++
	ref := opts.Ref
	if ref == "" {
		ref = "main"
	}
	run := domain.Run{
		ID:         strconv.Itoa(c.nextID),
		PipelineID: pipeline.ID,
		Name:       pipeline.Name,
		Status:     domain.RunQueued,
		Branch:     ref,
		Event:      "workflow_dispatch",
		CreatedAt:  time.Now().UTC(),
	}
	c.runs = append(c.runs, run)
	return &run, nil
}

func (c *CICD) CancelRun(ctx context.Context, repo, runID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.runs {
		if c.runs[i].ID != runID {
			continue
		}
		if c.runs[i].Status == domain.RunCompleted {
			return domain.ProviderFailed(domain.CICD, c.name, fmt.Errorf("run %s already completed", runID))
		}
		c.runs[i].Status = domain.RunCompleted
		c.runs[i].Conclusion = "cancelled"
		return nil
	}
	return domain.NotFound(domain.CICD, "run", runID)
}

// GetJobLogs returns synthetic logs; job IDs equal run IDs
func (c *CICD) GetJobLogs(ctx context.Context, repo, jobID string) (string, error) {
	run, err := c.run(jobID)
	if err != nil {
		return "", domain.NotFound(domain.CICD, "job", jobID)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "job %s (%s) on %s\n", run.ID, run.Name, run.Branch)
	fmt.Fprintf(&b, "status: %s\n", run.Status)
	return b.String(), nil
}

// ListArtifacts returns one artifact per configured entry; artifact IDs
// are "<run>-<name>"
func (c *CICD) ListArtifacts(ctx context.Context, repo, runID string) ([]domain.Artifact, error) {
	run, err := c.run(runID)
	if err != nil {
		return nil, err
	}
	artifacts := []domain.Artifact{}
	for name, content := range c.artifacts {
		artifacts = append(artifacts, domain.Artifact{
			ID:        run.ID + "-" + name,
			Name:      name,
			SizeBytes: int64(len(content)),
			CreatedAt: run.CreatedAt,
		})
	}
	slices.SortFunc(artifacts, func(a, b domain.Artifact) int { return strings.Compare(a.Name, b.Name) })
	return artifacts, nil
}

func (c *CICD) DownloadArtifact(ctx context.Context, repo, artifactID string, w io.Writer) (int64, error) {
	runID, name, ok := strings.Cut(artifactID, "-")
	if !ok {
		return 0, domain.NotFound(domain.CICD, "artifact", artifactID)
	}
	if _, err := c.run(runID); err != nil {
		return 0, domain.NotFound(domain.CICD, "artifact", artifactID)
	}
	content, ok := c.artifacts[name]
	if !ok {
		return 0, domain.NotFound(domain.CICD, "artifact", artifactID)
	}
	n, err := io.WriteString(w, content)
	return int64(n), err
}

func (c *CICD) run(id string) (domain.Run, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.runs {
		if r.ID == id {
			return r, nil
		}
	}
	return domain.Run{}, domain.NotFound(domain.CICD, "run", id)
}
