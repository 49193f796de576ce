package prsource

import (
	"context"
	"log/slog"

	"kanban/internal/models"
)

// API is the part of the GitHub client the remote source uses.
type API interface {
	PullRequests(ctx context.Context) ([]models.GitHubPR, error)
	PullRequest(ctx context.Context, number int) (*models.GitHubPR, error)
	CreatePullRequest(ctx context.Context, title, branch string) (models.GitHubPR, error)
	Branches(ctx context.Context) ([]string, error)
	RateLimit(ctx context.Context) (models.RateLimit, error)
}

// Remote serves pull requests from the GitHub API. Errors are returned to
// the caller, except for branch listing which falls back to DefaultBranches.
type Remote struct {
	api    API
	logger *slog.Logger
}

// NewRemote wraps a GitHub client.
func NewRemote(api API, logger *slog.Logger) *Remote {
	if logger == nil {
		logger = slog.Default()
	}
	return &Remote{api: api, logger: logger}
}

// SearchPRs lists repository pull requests matching query.
func (r *Remote) SearchPRs(ctx context.Context, query string) ([]models.GitHubPR, error) {
	prs, err := r.api.PullRequests(ctx)
	if err != nil {
		return nil, err
	}
	return filter(prs, query, true), nil
}

// GetPR fetches one pull request. Unknown numbers return nil.
func (r *Remote) GetPR(ctx context.Context, number int) (*models.GitHubPR, error) {
	return r.api.PullRequest(ctx, number)
}

// CreatePR opens a pull request from the task branch.
func (r *Remote) CreatePR(ctx context.Context, pr models.NewPR) (models.GitHubPR, error) {
	return r.api.CreatePullRequest(ctx, pr.Title, pr.Branch)
}

// Branches lists repository branches, falling back to the defaults on error.
func (r *Remote) Branches(ctx context.Context) ([]string, error) {
	branches, err := r.api.Branches(ctx)
	if err != nil {
		r.logger.Warn("list branches failed, using defaults", slog.String("error", err.Error()))
		return append([]string(nil), DefaultBranches...), nil
	}
	return branches, nil
}

// RateLimit reports the remaining API allowance.
func (r *Remote) RateLimit(ctx context.Context) (models.RateLimit, error) {
	return r.api.RateLimit(ctx)
}
