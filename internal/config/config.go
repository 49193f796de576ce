// Package config loads service settings from the environment and an optional
// YAML file.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// GitHubConfig selects the pull request source and the repository.
type GitHubConfig struct {
	Mode         string        `yaml:"mode" env:"GITHUB_MODE" env-default:"mock"`
	Owner        string        `yaml:"owner" env:"GITHUB_OWNER" env-default:"facebook"`
	Repo         string        `yaml:"repo" env:"GITHUB_REPO" env-default:"react"`
	Token        string        `yaml:"token" env:"GITHUB_TOKEN"`
	APIURL       string        `yaml:"api_url" env:"GITHUB_API_URL"`
	BaseBranch   string        `yaml:"base_branch" env:"GITHUB_BASE_BRANCH" env-default:"main"`
	CacheTTL     time.Duration `yaml:"cache_ttl" env:"GITHUB_CACHE_TTL" env-default:"5m"`
	PollInterval time.Duration `yaml:"poll_interval" env:"GITHUB_POLL_INTERVAL" env-default:"30s"`
	MockLatency  time.Duration `yaml:"mock_latency" env:"GITHUB_MOCK_LATENCY" env-default:"300ms"`
	Fixtures     string        `yaml:"fixtures" env:"GITHUB_FIXTURES"`
}

// Config holds every service setting.
type Config struct {
	Addr      string       `yaml:"addr" env:"KANBAN_ADDR" env-default:":8080"`
	DBPath    string       `yaml:"db_path" env:"KANBAN_DB_PATH" env-default:"data/kanban.db"`
	StaticDir string       `yaml:"static_dir" env:"KANBAN_STATIC_DIR" env-default:"web/dist"`
	LogLevel  string       `yaml:"log_level" env:"KANBAN_LOG_LEVEL" env-default:"info"`
	RedisAddr string       `yaml:"redis_addr" env:"KANBAN_REDIS_ADDR"`
	GitHub    GitHubConfig `yaml:"github"`
}

// Load reads path when it is not empty, then applies the environment.
func Load(path string) (Config, error) {
	var cfg Config
	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, &cfg)
	} else {
		err = cleanenv.ReadEnv(&cfg)
	}
	if err != nil {
		return Config{}, fmt.Errorf("read config %q: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c Config) Validate() error {
	switch c.GitHub.Mode {
	case "mock":
	case "api":
		if c.GitHub.Owner == "" || c.GitHub.Repo == "" {
			return fmt.Errorf("config: github api mode needs owner and repo")
		}
	default:
		return fmt.Errorf("config: unknown github mode %q", c.GitHub.Mode)
	}
	if c.GitHub.PollInterval <= 0 {
		return fmt.Errorf("config: github poll interval must be positive")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("config: unknown log level %q", s)
}
