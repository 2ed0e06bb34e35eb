package service

import (
	"context"
	"io"
	"strings"

	"pai/internal/domain"
	"pai/internal/provider"
)

// Pipelines lists the pipelines of repo
func (s *Service) Pipelines(ctx context.Context, repo string, opts provider.Options) ([]domain.Pipeline, error) {
	c := Call{Domain: domain.CICD, Operation: "pipelines", Target: repo, Options: opts}
	return run(ctx, s, c, func(p domain.CICDProvider) ([]domain.Pipeline, error) {
		return p.ListPipelines(ctx, repo)
	})
}

// Runs lists runs of repo, newest first
func (s *Service) Runs(ctx context.Context, repo string, q domain.RunQuery, opts provider.Options) ([]domain.Run, error) {
	c := Call{Domain: domain.CICD, Operation: "runs", Target: repo, Options: opts}
	return run(ctx, s, c, func(p domain.CICDProvider) ([]domain.Run, error) {
		return p.ListRuns(ctx, repo, q)
	})
}

// Trigger starts pipelineID on repo
func (s *Service) Trigger(ctx context.Context, repo, pipelineID string, in domain.TriggerOptions, opts provider.Options) (*domain.Run, error) {
	c := Call{Domain: domain.CICD, Operation: "trigger", Target: repo + "/" + pipelineID, Options: opts}
	return run(ctx, s, c, func(p domain.CICDProvider) (*domain.Run, error) {
		return p.TriggerRun(ctx, repo, pipelineID, in)
	})
}

// Cancel stops a run
func (s *Service) Cancel(ctx context.Context, repo, runID string, opts provider.Options) error {
	c := Call{Domain: domain.CICD, Operation: "cancel", Target: runID, Options: opts}
	return exec(ctx, s, c, func(p domain.CICDProvider) error {
		return p.CancelRun(ctx, repo, runID)
	})
}

// JobLogs returns a job's log; tail > 0 keeps only the last tail lines
func (s *Service) JobLogs(ctx context.Context, repo, jobID string, tail int, opts provider.Options) (string, error) {
	c := Call{Domain: domain.CICD, Operation: "logs", Target: jobID, Options: opts}
	logs, err := run(ctx, s, c, func(p domain.CICDProvider) (string, error) {
		return p.GetJobLogs(ctx, repo, jobID)
	})
	if err != nil {
		return "", err
	}
	return TailLines(logs, tail), nil
}

// Artifacts lists the artifacts of a run
func (s *Service) Artifacts(ctx context.Context, repo, runID string, opts provider.Options) ([]domain.Artifact, error) {
	c := Call{Domain: domain.CICD, Operation: "artifacts", Target: runID, Options: opts}
	return run(ctx, s, c, func(p domain.CICDProvider) ([]domain.Artifact, error) {
		return p.ListArtifacts(ctx, repo, runID)
	})
}

// DownloadArtifact writes an artifact to w and returns the bytes written
func (s *Service) DownloadArtifact(ctx context.Context, repo, artifactID string, w io.Writer, opts provider.Options) (int64, error) {
	c := Call{Domain: domain.CICD, Operation: "download", Target: artifactID, Options: opts}
	return run(ctx, s, c, func(p domain.CICDProvider) (int64, error) {
		return p.DownloadArtifact(ctx, repo, artifactID, w)
	})
}

// TailLines returns the last n lines of s; n <= 0 returns s unchanged
func TailLines(s string, n int) string {
	if n <= 0 {
		return s
	}
	trimmed := strings.TrimSuffix(s, "\n")
	lines := strings.Split(trimmed, "\n")
	if len(lines) <= n {
		return s
	}
	out := strings.Join(lines[len(lines)-n:], "\n")
	if len(trimmed) != len(s) {
		out += "\n"
	}
	return out
}
