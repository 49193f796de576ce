package prsource

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"kanban/internal/cache"
	"kanban/internal/github"
	"kanban/internal/metrics"
	"kanban/internal/models"
)

const (
	keyPRs      = "prs"
	keyBranches = "branches"

	// DefaultCacheTTL applies when Options.CacheTTL is zero.
	DefaultCacheTTL = 5 * time.Minute
)

// Options selects and configures the source variant.
type Options struct {
	Mode       Mode
	Owner      string
	Repo       string
	Token      string
	APIURL     string
	BaseBranch string

	Latency      time.Duration
	FixturesPath string

	Cache    cache.Cache
	CacheTTL time.Duration
	Logger   *slog.Logger
}

// Service fronts one source variant with a TTL cache for the unfiltered pull
// request list and the branch list.
type Service struct {
	src    Source
	mode   Mode
	info   models.RepoInfo
	remote *Remote
	sim    *Simulated
	gh     *github.Client

	cache  cache.Cache
	ttl    time.Duration
	logger *slog.Logger
}

// New builds the variant named by opts.Mode.
func New(opts Options) (*Service, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		mode:   opts.Mode,
		info:   models.RepoInfo{Owner: opts.Owner, Repo: opts.Repo, Mode: string(opts.Mode)},
		cache:  opts.Cache,
		ttl:    opts.CacheTTL,
		logger: logger,
	}
	if s.cache == nil {
		s.cache = cache.NewMemory()
	}
	if s.ttl <= 0 {
		s.ttl = DefaultCacheTTL
	}

	switch opts.Mode {
	case ModeAPI:
		client, err := github.New(github.Config{
			Owner:      opts.Owner,
			Repo:       opts.Repo,
			Token:      opts.Token,
			BaseURL:    opts.APIURL,
			BaseBranch: opts.BaseBranch,
		}, logger)
		if err != nil {
			return nil, err
		}
		s.gh = client
		s.remote = NewRemote(client, logger)
		s.src = s.remote
		logger.Info("using github api", slog.String("repository", opts.Owner+"/"+opts.Repo),
			slog.Bool("authenticated", opts.Token != ""))
	case ModeMock:
		sim, err := NewSimulated(SimulatedOptions{
			Latency:      opts.Latency,
			FixturesPath: opts.FixturesPath,
			Repository:   opts.Owner + "/" + opts.Repo,
		})
		if err != nil {
			return nil, err
		}
		s.sim = sim
		s.src = sim
		logger.Info("using simulated github data")
	default:
		return nil, fmt.Errorf("unknown github mode %q", opts.Mode)
	}
	return s, nil
}

// NewWithSource wraps an existing source. Used by tests and tools that
// supply their own variant.
func NewWithSource(src Source, info models.RepoInfo, c cache.Cache, ttl time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if c == nil {
		c = cache.NewMemory()
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	s := &Service{src: src, mode: Mode(info.Mode), info: info, cache: c, ttl: ttl, logger: logger}
	switch v := src.(type) {
	case *Simulated:
		s.sim = v
	case *Remote:
		s.remote = v
	}
	return s
}

// Mode returns the selected variant.
func (s *Service) Mode() Mode { return s.mode }

// Info describes the configured repository.
func (s *Service) Info() models.RepoInfo { return s.info }

// Simulated returns the simulated variant, if selected.
func (s *Service) Simulated() (*Simulated, bool) { return s.sim, s.sim != nil }

// GitHub returns the API client backing the remote variant.
func (s *Service) GitHub() (*github.Client, bool) { return s.gh, s.gh != nil }

// SearchPRs lists pull requests. Only the unfiltered list is cached.
func (s *Service) SearchPRs(ctx context.Context, query string) ([]models.GitHubPR, error) {
	query = strings.TrimSpace(query)
	if query != "" {
		return s.src.SearchPRs(ctx, query)
	}
	var prs []models.GitHubPR
	if s.cached(ctx, keyPRs, &prs) {
		return prs, nil
	}
	prs, err := s.src.SearchPRs(ctx, "")
	if err != nil {
		return nil, err
	}
	s.store(ctx, keyPRs, prs)
	return prs, nil
}

// GetPR always reads through to the source.
func (s *Service) GetPR(ctx context.Context, number int) (*models.GitHubPR, error) {
	return s.src.GetPR(ctx, number)
}

// CreatePR opens a pull request and invalidates the cached list.
func (s *Service) CreatePR(ctx context.Context, in models.NewPR) (models.GitHubPR, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Branch = strings.TrimSpace(in.Branch)
	if in.Title == "" || in.Branch == "" {
		return models.GitHubPR{}, fmt.Errorf("%w: title and branch are required", models.ErrInvalidPR)
	}
	pr, err := s.src.CreatePR(ctx, in)
	if err != nil {
		return models.GitHubPR{}, err
	}
	if err := s.cache.Delete(ctx, keyPRs); err != nil {
		s.logger.Warn("invalidate pr cache failed", slog.String("error", err.Error()))
	}
	return pr, nil
}

// Branches lists branch names through the cache.
func (s *Service) Branches(ctx context.Context) ([]string, error) {
	var branches []string
	if s.cached(ctx, keyBranches, &branches) {
		return branches, nil
	}
	branches, err := s.src.Branches(ctx)
	if err != nil {
		return nil, err
	}
	s.store(ctx, keyBranches, branches)
	return branches, nil
}

// RateLimit returns nil for the simulated variant.
func (s *Service) RateLimit(ctx context.Context) (*models.RateLimit, error) {
	if s.remote == nil {
		return nil, nil
	}
	rl, err := s.remote.RateLimit(ctx)
	if err != nil {
		return nil, err
	}
	return &rl, nil
}

// ClearCache drops the cached pull request and branch lists.
func (s *Service) ClearCache(ctx context.Context) error {
	return s.cache.Delete(ctx, keyPRs, keyBranches)
}

// cached reads key from the cache and counts hits.
func (s *Service) cached(ctx context.Context, key string, dst any) bool {
	hit, err := s.cache.Get(ctx, key, dst)
	if err != nil {
		s.logger.Warn("pr cache read failed", slog.String("key", key), slog.String("error", err.Error()))
		return false
	}
	if hit {
		metrics.PRCacheHits.WithLabelValues(key).Inc()
	}
	return hit
}

// store caches v under key. Failures are only logged.
func (s *Service) store(ctx context.Context, key string, v any) {
	if err := s.cache.Set(ctx, key, v, s.ttl); err != nil {
		s.logger.Warn("pr cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}
