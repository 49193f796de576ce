package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"kanban/internal/board"
	"kanban/internal/cache"
	"kanban/internal/config"
	"kanban/internal/github"
	"kanban/internal/prsource"
	"kanban/internal/storage/sqlite"
)

// app holds the components every command needs.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	store  *sqlite.Store
	prs    *prsource.Service
	board  *board.Board
	closer []func() error
}

// newApp loads configuration and opens the store, PR source and board.
func newApp(ctx context.Context, flags *rootFlags) (*app, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	if flags.addr != "" {
		cfg.Addr = flags.addr
	}
	if flags.dbPath != "" {
		cfg.DBPath = flags.dbPath
	}
	level, _ := config.ParseLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	a := &app{cfg: cfg, logger: logger}

	var prCache cache.Cache = cache.NewMemory()
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedis(ctx, cfg.RedisAddr, "kanban:")
		if err != nil {
			return nil, err
		}
		a.closer = append(a.closer, rc.Close)
		prCache = rc
		logger.Info("using redis pr cache", slog.String("addr", cfg.RedisAddr))
	}

	a.prs, err = prsource.New(prsource.Options{
		Mode:         prsource.Mode(cfg.GitHub.Mode),
		Owner:        cfg.GitHub.Owner,
		Repo:         cfg.GitHub.Repo,
		Token:        cfg.GitHub.Token,
		APIURL:       cfg.GitHub.APIURL,
		BaseBranch:   cfg.GitHub.BaseBranch,
		Latency:      cfg.GitHub.MockLatency,
		FixturesPath: cfg.GitHub.Fixtures,
		Cache:        prCache,
		CacheTTL:     cfg.GitHub.CacheTTL,
		Logger:       logger,
	})
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.store, err = sqlite.Open(cfg.DBPath, logger)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("unable to open database: %w", err)
	}
	a.closer = append(a.closer, a.store.Close)

	opts := board.Options{Logger: logger}
	if src := contributorSource(cfg.GitHub, a.prs, logger); src != nil {
		opts.Contributors = src
	}
	a.board = board.New(a.store, opts)
	if err := a.board.Load(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	var first error
	for i := len(a.closer) - 1; i >= 0; i-- {
		if err := a.closer[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closer = nil
	return first
}

// contributorSource returns the GitHub client that seeds board users. Users
// always come from the configured repository, whichever PR source mode is
// selected. It returns nil when no repository is configured.
func contributorSource(cfg config.GitHubConfig, prs *prsource.Service, logger *slog.Logger) *github.Client {
	if client, ok := prs.GitHub(); ok {
		return client
	}
	client, err := github.New(github.Config{
		Owner:      cfg.Owner,
		Repo:       cfg.Repo,
		Token:      cfg.Token,
		BaseURL:    cfg.APIURL,
		BaseBranch: cfg.BaseBranch,
	}, logger)
	if err != nil {
		logger.Warn("contributor source disabled", slog.String("error", err.Error()))
		return nil
	}
	return client
}
