package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kanban/internal/board"
	"kanban/internal/confirm"
	"kanban/internal/metrics"
	"kanban/internal/models"
	"kanban/internal/prsource"
	"kanban/internal/reconcile"
	"kanban/internal/storage/sqlite"
)

type testEnv struct {
	srv   *Server
	board *board.Board
}

func newTestEnv(t *testing.T, staticDir string) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "kanban.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	b := board.New(store, board.Options{Logger: logger})
	require.NoError(t, b.Load(context.Background()))

	sim, err := prsource.NewSimulated(prsource.SimulatedOptions{Repository: "acme/board"})
	require.NoError(t, err)
	prs := prsource.NewWithSource(sim, models.RepoInfo{Owner: "acme", Repo: "board", Mode: "mock"}, nil, 0, logger)
	broker := confirm.NewBroker(logger)
	engine := reconcile.New(b.Tasks, prs, broker, reconcile.Options{Settings: store, Logger: logger})

	srv := New(Deps{Board: b, PRs: prs, Sync: engine, Confirm: broker, Settings: store}, logger, staticDir)
	return &testEnv{srv: srv, board: b}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, ok := body.(string)
		if !ok {
			data, err := json.Marshal(body)
			require.NoError(t, err)
			raw = string(data)
		}
		reader = bytes.NewBufferString(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.srv.Engine().ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &out)
	}
	return rec, out
}

func field(t *testing.T, m map[string]any, key string) map[string]any {
	t.Helper()
	v, ok := m[key].(map[string]any)
	require.True(t, ok, "missing object %q in %v", key, m)
	return v
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, "")
	rec, body := env.do(t, http.MethodGet, "/api/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestTaskLifecycle(t *testing.T) {
	env := newTestEnv(t, "")

	rec, body := env.do(t, http.MethodPost, "/api/tasks", map[string]any{"title": "Write docs", "storyPoints": 3})
	require.Equal(t, http.StatusCreated, rec.Code)
	task := field(t, body, "task")
	id := task["id"].(string)
	assert.Equal(t, "backlog", task["status"])

	rec, body = env.do(t, http.MethodPost, "/api/tasks/"+id+"/move", map[string]any{"status": "completed"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, field(t, body, "task")["completedAt"])

	rec, body = env.do(t, http.MethodPatch, "/api/tasks/"+id, `{"completedAt": null, "description": "now with docs"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	task = field(t, body, "task")
	assert.Nil(t, task["completedAt"])
	assert.Equal(t, "now with docs", task["description"])

	rec, body = env.do(t, http.MethodGet, "/api/tasks?q=DOCS", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["tasks"], 1)
	rec, body = env.do(t, http.MethodGet, "/api/tasks?status=backlog", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["tasks"], 0)

	rec, _ = env.do(t, http.MethodDelete, "/api/tasks/"+id, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = env.do(t, http.MethodDelete, "/api/tasks/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = env.do(t, http.MethodGet, "/api/tasks/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTaskValidation(t *testing.T) {
	env := newTestEnv(t, "")
	rec, body := env.do(t, http.MethodPost, "/api/tasks", map[string]any{"title": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["error"], "invalid task")

	rec, _ = env.do(t, http.MethodPost, "/api/tasks", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = env.do(t, http.MethodPost, "/api/tasks/x/move", map[string]any{"status": "archived"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTaskFiltersAndSharedSearch(t *testing.T) {
	env := newTestEnv(t, "")
	sprint, ok := env.board.Sprints.Current()
	require.True(t, ok)
	_, err := env.board.Tasks.Add(models.TaskInput{Title: "Sprint work", Status: models.TaskStatusInProgress, SprintID: &sprint.ID})
	require.NoError(t, err)
	_, err = env.board.Tasks.Add(models.TaskInput{Title: "Loose work", Status: models.TaskStatusInProgress})
	require.NoError(t, err)
	_, err = env.board.Tasks.Add(models.TaskInput{Title: "Sprint backlog", SprintID: &sprint.ID})
	require.NoError(t, err)

	_, body := env.do(t, http.MethodGet, "/api/tasks?status=in-progress", nil)
	assert.Len(t, body["tasks"], 2)
	_, body = env.do(t, http.MethodGet, "/api/tasks?status=in-progress&sprint="+sprint.ID, nil)
	assert.Len(t, body["tasks"], 1)
	_, body = env.do(t, http.MethodGet, "/api/tasks?sprint="+sprint.ID, nil)
	assert.Len(t, body["tasks"], 2)

	rec, body := env.do(t, http.MethodPut, "/api/search", map[string]any{"term": "loose"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "loose", body["term"])
	assert.Len(t, body["tasks"], 1)

	rec, body = env.do(t, http.MethodDelete, "/api/search", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "", body["term"])
	assert.Len(t, body["tasks"], 3)
	assert.Empty(t, env.board.Search.Term())
}

func TestSprintRoutes(t *testing.T) {
	env := newTestEnv(t, "")

	rec, body := env.do(t, http.MethodGet, "/api/sprints/current", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	current := field(t, body, "sprint")
	assert.Equal(t, "Sprint 1", current["name"])
	sprintID := current["id"].(string)

	rec, _ = env.do(t, http.MethodPost, "/api/tasks", map[string]any{"title": "a", "storyPoints": 5, "sprintId": sprintID})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, body = env.do(t, http.MethodGet, "/api/sprints/"+sprintID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 5, field(t, body, "sprint")["totalStoryPoints"])

	rec, body = env.do(t, http.MethodGet, "/api/sprints/"+sprintID+"/burndown", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, body["burndown"])

	rec, body = env.do(t, http.MethodGet, "/api/sprints/"+sprintID+"/progress", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 10, field(t, body, "progress")["totalDays"])

	rec, body = env.do(t, http.MethodPost, "/api/sprints", map[string]any{"name": "Sprint 2", "workingDays": 5})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "planning", field(t, body, "sprint")["status"])

	rec, _ = env.do(t, http.MethodPost, "/api/sprints", map[string]any{"name": "no length"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = env.do(t, http.MethodPut, "/api/sprints/current", map[string]any{"id": nil})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, body["sprint"])

	rec, _ = env.do(t, http.MethodDelete, "/api/sprints/"+sprintID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec, body = env.do(t, http.MethodGet, "/api/tasks", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	tasks := body["tasks"].([]any)
	require.Len(t, tasks, 1)
	assert.NotContains(t, tasks[0].(map[string]any), "sprintId")
}

func TestUserRoutes(t *testing.T) {
	env := newTestEnv(t, "")
	rec, body := env.do(t, http.MethodPost, "/api/users", map[string]any{"name": "Ana"})
	require.Equal(t, http.StatusCreated, rec.Code)
	user := field(t, body, "user")
	assert.Equal(t, "developer", user["role"])

	rec, body = env.do(t, http.MethodPut, "/api/users/"+user["id"].(string), map[string]any{"role": "qa"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "qa", field(t, body, "user")["role"])

	rec, _ = env.do(t, http.MethodDelete, "/api/users/"+user["id"].(string), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = env.do(t, http.MethodPost, "/api/users/refresh", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code, "no contributor source in mock mode")
}

func TestGitHubRoutesAndSync(t *testing.T) {
	env := newTestEnv(t, "")

	rec, body := env.do(t, http.MethodGet, "/api/github/prs?q=search", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["prs"], 1)

	rec, body = env.do(t, http.MethodGet, "/api/github/rate-limit", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, body["rateLimit"])

	rec, _ = env.do(t, http.MethodGet, "/api/github/prs/999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, body = env.do(t, http.MethodPost, "/api/github/prs", map[string]any{"title": "feat: x", "branch": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["error"], "title and branch are required")

	rec, body = env.do(t, http.MethodGet, "/api/github/prs/124", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	pr := field(t, body, "pr")

	rec, body = env.do(t, http.MethodPost, "/api/tasks", map[string]any{
		"title": "Search", "status": "in-progress", "githubPR": pr,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	taskID := field(t, body, "task")["id"].(string)

	rec, body = env.do(t, http.MethodPost, "/api/github/sync", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no changes", body["message"])

	rec, _ = env.do(t, http.MethodPut, "/api/github/prs/124/status", map[string]any{"status": "merged"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body = env.do(t, http.MethodPost, "/api/github/sync", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1 updated", body["message"])
	assert.Equal(t, float64(1), body["queued"])
	moves := field(t, body, "report")["moves"].([]any)
	require.Len(t, moves, 1)
	assert.Equal(t, "completed", moves[0].(map[string]any)["to"])

	task, ok := env.board.Tasks.Get(taskID)
	require.True(t, ok)
	assert.Equal(t, models.PRStatusMerged, task.GitHubPR.Status)
	assert.Equal(t, models.TaskStatusInProgress, task.Status, "move waits for confirmation")

	rec, body = env.do(t, http.MethodGet, "/api/settings/"+reconcile.LastSyncKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, body["value"])
}

func TestConfirmationRoutes(t *testing.T) {
	env := newTestEnv(t, "")
	rec, body := env.do(t, http.MethodGet, "/api/confirmations/pending", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, body["confirmation"])

	answer := make(chan bool, 1)
	go func() {
		ok, _ := env.srv.confirm.Show(context.Background(), confirm.Prompt{Title: "Move?"})
		answer <- ok
	}()
	var id string
	require.Eventually(t, func() bool {
		_, body := env.do(t, http.MethodGet, "/api/confirmations/pending", nil)
		c, ok := body["confirmation"].(map[string]any)
		if ok {
			id = c["id"].(string)
		}
		return ok
	}, 2*time.Second, time.Millisecond)

	rec, _ = env.do(t, http.MethodPost, "/api/confirmations/"+id, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = env.do(t, http.MethodPost, "/api/confirmations/nope", map[string]any{"confirmed": true})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = env.do(t, http.MethodPost, "/api/confirmations/"+id, map[string]any{"confirmed": true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, <-answer)
}

func TestSettingsRoutes(t *testing.T) {
	env := newTestEnv(t, "")
	rec, _ := env.do(t, http.MethodGet, "/api/settings/theme", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = env.do(t, http.MethodPut, "/api/settings/theme", map[string]any{"dark": true})
	require.Equal(t, http.StatusOK, rec.Code)
	rec, body := env.do(t, http.MethodGet, "/api/settings/theme", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"dark": true}, body["value"])
}

func TestRequestDurationKeepsSubMillisecondPrecision(t *testing.T) {
	env := newTestEnv(t, "")
	observer := metrics.RequestDuration.WithLabelValues(http.MethodGet, "/api/healthz", "200")
	before := histogramSum(t, observer)

	env.do(t, http.MethodGet, "/api/healthz", nil)

	delta := histogramSum(t, observer) - before
	assert.Greater(t, delta, 0.0)
	assert.Less(t, delta, 1.0, "recorded in seconds")
}

func histogramSum(t *testing.T, o prometheus.Observer) float64 {
	t.Helper()
	m, ok := o.(prometheus.Metric)
	require.True(t, ok)
	var out dto.Metric
	require.NoError(t, m.Write(&out))
	return out.GetHistogram().GetSampleSum()
}

func TestMetricsAndFallbacks(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>board</html>"), 0o644))
	env := newTestEnv(t, dir)
	env.do(t, http.MethodGet, "/api/healthz", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	env.srv.Engine().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "kanban_http_request_duration_seconds")

	rec, body := env.do(t, http.MethodGet, "/api/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "endpoint not found", body["error"])

	req = httptest.NewRequest(http.MethodGet, "/sprints/42", nil)
	rec = httptest.NewRecorder()
	env.srv.Engine().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "board")
}
