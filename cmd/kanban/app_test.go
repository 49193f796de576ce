package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kanban/internal/config"
	"kanban/internal/prsource"
)

func serveRepository(t *testing.T) string {
	t.Helper()
	writeJSON := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/board/contributors", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []map[string]any{{"id": 1, "login": "ana", "contributions": 4}})
	})
	mux.HandleFunc("/repos/acme/board/commits", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []map[string]any{{"sha": "a", "author": map[string]any{"id": 2, "login": "bo"}}})
	})
	mux.HandleFunc("/users/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestNewAppSeedsUsersInMockMode(t *testing.T) {
	t.Setenv("GITHUB_MODE", "mock")
	t.Setenv("GITHUB_OWNER", "acme")
	t.Setenv("GITHUB_REPO", "board")
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("GITHUB_API_URL", serveRepository(t))
	t.Setenv("KANBAN_REDIS_ADDR", "")
	t.Setenv("KANBAN_LOG_LEVEL", "error")

	ctx := context.Background()
	a, err := newApp(ctx, &rootFlags{dbPath: filepath.Join(t.TempDir(), "kanban.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	assert.Equal(t, prsource.ModeMock, a.prs.Mode())
	users := a.board.Users.List()
	require.Len(t, users, 2)
	assert.Equal(t, "ana", users[0].Login)

	n, err := a.board.Users.RefreshFromGitHub(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestContributorSourceNeedsRepository(t *testing.T) {
	prs, err := prsource.New(prsource.Options{Mode: prsource.ModeMock})
	require.NoError(t, err)

	assert.Nil(t, contributorSource(config.GitHubConfig{Owner: "acme"}, prs, slog.Default()))
	assert.NotNil(t, contributorSource(config.GitHubConfig{Owner: "acme", Repo: "board"}, prs, slog.Default()))
}
