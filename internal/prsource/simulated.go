package prsource

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"kanban/internal/models"
)

//go:embed fixtures.yaml
var defaultFixtures []byte

// SimulatedOptions configures the simulated source.
type SimulatedOptions struct {
	// Latency delays every call. Zero disables the delay.
	Latency time.Duration
	// FixturesPath points at a YAML list of pull requests. Empty uses the
	// built-in fixtures.
	FixturesPath string
	// Repository is recorded on created pull requests.
	Repository string
	Now        func() time.Time
}

// Simulated serves pull requests from an in-memory fixture list.
type Simulated struct {
	mu      sync.Mutex
	prs     []models.GitHubPR
	latency time.Duration
	repo    string
	now     func() time.Time
}

// NewSimulated loads the fixtures into a new simulated source.
func NewSimulated(opts SimulatedOptions) (*Simulated, error) {
	data := defaultFixtures
	if opts.FixturesPath != "" {
		var err error
		data, err = os.ReadFile(opts.FixturesPath)
		if err != nil {
			return nil, fmt.Errorf("read pr fixtures: %w", err)
		}
	}
	var prs []models.GitHubPR
	if err := yaml.Unmarshal(data, &prs); err != nil {
		return nil, fmt.Errorf("decode pr fixtures: %w", err)
	}
	for _, pr := range prs {
		if !pr.Status.Valid() {
			return nil, fmt.Errorf("decode pr fixtures: #%d has unknown status %q", pr.Number, pr.Status)
		}
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	repo := opts.Repository
	if repo == "" {
		repo = "user/kanban-project"
	}
	return &Simulated{prs: prs, latency: opts.Latency, repo: repo, now: now}, nil
}

// SearchPRs lists fixture pull requests matching query.
func (s *Simulated) SearchPRs(ctx context.Context, query string) ([]models.GitHubPR, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.GitHubPR(nil), filter(s.prs, query, false)...), nil
}

// GetPR returns a fixture pull request, or nil when the number is unknown.
func (s *Simulated) GetPR(ctx context.Context, number int) (*models.GitHubPR, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(number); i >= 0 {
		pr := s.prs[i]
		return &pr, nil
	}
	return nil, nil
}

// CreatePR appends an open pull request numbered after the highest fixture.
func (s *Simulated) CreatePR(ctx context.Context, in models.NewPR) (models.GitHubPR, error) {
	if err := s.wait(ctx); err != nil {
		return models.GitHubPR{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	number := 1
	for _, pr := range s.prs {
		if pr.Number >= number {
			number = pr.Number + 1
		}
	}
	ts := s.now().Format(time.RFC3339)
	pr := models.GitHubPR{
		Number:     number,
		Title:      in.Title,
		URL:        fmt.Sprintf("https://github.com/%s/pull/%d", s.repo, number),
		Status:     models.PRStatusOpen,
		Author:     "current-user",
		CreatedAt:  ts,
		UpdatedAt:  ts,
		Branch:     in.Branch,
		Repository: s.repo,
	}
	s.prs = append(s.prs, pr)
	return pr, nil
}

// Branches has no fixture data and always returns the default set.
func (s *Simulated) Branches(ctx context.Context) ([]string, error) {
	return append([]string(nil), DefaultBranches...), nil
}

// UpdatePRStatus changes a fixture's status, standing in for activity on the
// remote repository. It returns nil for an unknown number.
func (s *Simulated) UpdatePRStatus(ctx context.Context, number int, status models.PRStatus) (*models.GitHubPR, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("update pr #%d: unknown status %q", number, status)
	}
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(number)
	if i < 0 {
		return nil, nil
	}
	s.prs[i].Status = status
	s.prs[i].UpdatedAt = s.now().Format(time.RFC3339)
	pr := s.prs[i]
	return &pr, nil
}

// indexOf returns the position of number, or -1. Callers hold the lock.
func (s *Simulated) indexOf(number int) int {
	for i := range s.prs {
		if s.prs[i].Number == number {
			return i
		}
	}
	return -1
}

// wait sleeps for the configured latency or until ctx is done.
func (s *Simulated) wait(ctx context.Context) error {
	if s.latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(s.latency)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
