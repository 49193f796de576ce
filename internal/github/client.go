// Package github talks to the GitHub REST API for one repository: pull
// requests, branches, rate limits and the contributors that seed the board's
// users.
package github

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v66/github"

	"kanban/internal/models"
)

const (
	pullsPerPage    = 50
	branchesPerPage = 100
)

// Config identifies the repository and credentials.
type Config struct {
	Owner      string
	Repo       string
	Token      string
	BaseURL    string
	BaseBranch string
	HTTPClient *http.Client
}

// Client is a repository-scoped GitHub API client.
type Client struct {
	gh         *gh.Client
	owner      string
	repo       string
	baseBranch string
	hasToken   bool
	logger     *slog.Logger
	now        func() time.Time
}

// New builds a client. Without a token requests are unauthenticated and get
// a lower rate limit.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.Owner == "" || cfg.Repo == "" {
		return nil, errors.New("github: owner and repo are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	client := gh.NewClient(cfg.HTTPClient)
	if cfg.Token != "" {
		client = client.WithAuthToken(cfg.Token)
	}
	if cfg.BaseURL != "" {
		base := cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("github: parse base url: %w", err)
		}
		client.BaseURL = u
	}
	baseBranch := cfg.BaseBranch
	if baseBranch == "" {
		baseBranch = "main"
	}
	if cfg.Token == "" {
		logger.Warn("github token not set, rate limit is low",
			slog.String("repository", cfg.Owner+"/"+cfg.Repo))
	}
	return &Client{
		gh:         client,
		owner:      cfg.Owner,
		repo:       cfg.Repo,
		baseBranch: baseBranch,
		hasToken:   cfg.Token != "",
		logger:     logger,
		now:        time.Now,
	}, nil
}

// Owner returns the repository owner.
func (c *Client) Owner() string { return c.owner }

// Repo returns the repository name.
func (c *Client) Repo() string { return c.repo }

// PullRequests lists the most recent pull requests in every state.
func (c *Client) PullRequests(ctx context.Context) ([]models.GitHubPR, error) {
	prs, _, err := c.gh.PullRequests.List(ctx, c.owner, c.repo, &gh.PullRequestListOptions{
		State:       "all",
		ListOptions: gh.ListOptions{PerPage: pullsPerPage},
	})
	if err != nil {
		return nil, fmt.Errorf("list pull requests: %w", err)
	}
	out := make([]models.GitHubPR, 0, len(prs))
	for _, pr := range prs {
		out = append(out, c.mapPR(pr))
	}
	return out, nil
}

// PullRequest returns one pull request, or nil when it does not exist.
func (c *Client) PullRequest(ctx context.Context, number int) (*models.GitHubPR, error) {
	pr, resp, err := c.gh.PullRequests.Get(ctx, c.owner, c.repo, number)
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pull request #%d: %w", number, err)
	}
	out := c.mapPR(pr)
	return &out, nil
}

// CreatePullRequest opens a pull request from branch into the base branch.
func (c *Client) CreatePullRequest(ctx context.Context, title, branch string) (models.GitHubPR, error) {
	if !c.hasToken {
		return models.GitHubPR{}, fmt.Errorf("create pull request: %w", models.ErrTokenRequired)
	}
	pr, _, err := c.gh.PullRequests.Create(ctx, c.owner, c.repo, &gh.NewPullRequest{
		Title: gh.String(title),
		Head:  gh.String(branch),
		Base:  gh.String(c.baseBranch),
		Body:  gh.String("Task created from the kanban board\n\nBranch: " + branch),
	})
	if err != nil {
		return models.GitHubPR{}, fmt.Errorf("create pull request: %w", err)
	}
	c.logger.Info("pull request created", slog.Int("number", pr.GetNumber()), slog.String("branch", branch))
	return c.mapPR(pr), nil
}

// Branches lists the repository branch names.
func (c *Client) Branches(ctx context.Context) ([]string, error) {
	branches, _, err := c.gh.Repositories.ListBranches(ctx, c.owner, c.repo, &gh.BranchListOptions{
		ListOptions: gh.ListOptions{PerPage: branchesPerPage},
	})
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	out := make([]string, 0, len(branches))
	for _, b := range branches {
		out = append(out, b.GetName())
	}
	return out, nil
}

// RateLimit reports the core API allowance.
func (c *Client) RateLimit(ctx context.Context) (models.RateLimit, error) {
	limits, _, err := c.gh.RateLimit.Get(ctx)
	if err != nil {
		return models.RateLimit{}, fmt.Errorf("get rate limit: %w", err)
	}
	core := limits.GetCore()
	if core == nil {
		return models.RateLimit{}, errors.New("get rate limit: no core limit in response")
	}
	return models.RateLimit{
		Remaining: core.Remaining,
		Limit:     core.Limit,
		Reset:     core.Reset.Time,
	}, nil
}

// mapPR converts the wire pull request to the board shape.
func (c *Client) mapPR(pr *gh.PullRequest) models.GitHubPR {
	return models.GitHubPR{
		Number:     pr.GetNumber(),
		Title:      pr.GetTitle(),
		URL:        pr.GetHTMLURL(),
		Status:     prStatus(pr),
		Author:     pr.GetUser().GetLogin(),
		CreatedAt:  formatTime(pr.CreatedAt),
		UpdatedAt:  formatTime(pr.UpdatedAt),
		Branch:     pr.GetHead().GetRef(),
		Repository: c.owner + "/" + c.repo,
	}
}

// prStatus derives the board status from state and merge time.
func prStatus(pr *gh.PullRequest) models.PRStatus {
	switch {
	case pr.GetState() == "open":
		return models.PRStatusOpen
	case pr.MergedAt != nil:
		return models.PRStatusMerged
	}
	return models.PRStatusClosed
}

// formatTime renders ts as RFC 3339 UTC, or "" when unset.
func formatTime(ts *gh.Timestamp) string {
	if ts == nil {
		return ""
	}
	return ts.UTC().Format(time.RFC3339)
}
