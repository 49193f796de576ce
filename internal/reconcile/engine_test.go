package reconcile

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kanban/internal/board"
	"kanban/internal/confirm"
	"kanban/internal/models"
	"kanban/internal/storage/sqlite"
)

type fakePRs struct {
	mu   sync.Mutex
	prs  map[int]models.GitHubPR
	errs map[int]error
}

func (f *fakePRs) GetPR(_ context.Context, number int) (*models.GitHubPR, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[number]; err != nil {
		return nil, err
	}
	pr, ok := f.prs[number]
	if !ok {
		return nil, nil
	}
	return &pr, nil
}

func (f *fakePRs) set(pr models.GitHubPR) {
	f.mu.Lock()
	f.prs[pr.Number] = pr
	f.mu.Unlock()
}

type scriptedConfirmer struct {
	mu      sync.Mutex
	answer  bool
	err     error
	prompts []confirm.Prompt
}

func (c *scriptedConfirmer) Show(_ context.Context, p confirm.Prompt) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts = append(c.prompts, p)
	return c.answer, c.err
}

func (c *scriptedConfirmer) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.prompts)
}

type fixture struct {
	board   *board.Board
	store   *sqlite.Store
	prs     *fakePRs
	confirm *scriptedConfirmer
	engine  *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "kanban.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	b := board.New(store, board.Options{})
	require.NoError(t, b.Load(context.Background()))

	f := &fixture{
		board:   b,
		store:   store,
		prs:     &fakePRs{prs: map[int]models.GitHubPR{}, errs: map[int]error{}},
		confirm: &scriptedConfirmer{},
	}
	f.engine = New(b.Tasks, f.prs, f.confirm, Options{Settings: store})
	return f
}

func (f *fixture) addLinked(t *testing.T, title string, status models.TaskStatus, pr models.GitHubPR) models.Task {
	t.Helper()
	task, err := f.board.Tasks.Add(models.TaskInput{Title: title, Status: status, StoryPoints: 3, GitHubPR: &pr})
	require.NoError(t, err)
	return task
}

func prWith(number int, status models.PRStatus) models.GitHubPR {
	return models.GitHubPR{Number: number, Title: "pr", Status: status, Branch: "feat/x"}
}

func TestSyncMergedPullRequestAndConfirmMove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.addLinked(t, "Drag and drop", models.TaskStatusInProgress, prWith(123, models.PRStatusOpen))
	f.prs.set(prWith(123, models.PRStatusMerged))
	f.confirm.answer = true

	report, err := f.engine.SyncNow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Checked)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 1, report.Moved)
	require.Len(t, report.Moves, 1)
	assert.Equal(t, models.TaskStatusCompleted, report.Moves[0].To)
	assert.Equal(t, "1 updated", report.Message())

	got, ok := f.board.Tasks.Get(task.ID)
	require.True(t, ok)
	assert.Equal(t, models.PRStatusMerged, got.GitHubPR.Status)
	assert.Equal(t, models.TaskStatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)
	assert.Equal(t, 1, f.confirm.count())
	assert.Contains(t, f.confirm.prompts[0].Message, "Merged")

	var last time.Time
	found, err := f.store.Setting(ctx, LastSyncKey, &last)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestSyncDeclinedMoveKeepsColumn(t *testing.T) {
	f := newFixture(t)
	task := f.addLinked(t, "Search", models.TaskStatusInProgress, prWith(124, models.PRStatusOpen))
	f.prs.set(prWith(124, models.PRStatusClosed))
	f.confirm.answer = false

	report, err := f.engine.SyncNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 0, report.Moved)

	got, _ := f.board.Tasks.Get(task.ID)
	assert.Equal(t, models.PRStatusClosed, got.GitHubPR.Status)
	assert.Equal(t, models.TaskStatusInProgress, got.Status)
}

func TestSyncWithoutDrift(t *testing.T) {
	f := newFixture(t)
	f.addLinked(t, "Theme", models.TaskStatusInProgress, prWith(125, models.PRStatusOpen))
	f.prs.set(prWith(125, models.PRStatusOpen))
	_, err := f.board.Tasks.Add(models.TaskInput{Title: "unlinked"})
	require.NoError(t, err)

	report, err := f.engine.SyncNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Checked)
	assert.Equal(t, 0, report.Updated)
	assert.Empty(t, report.Moves)
	assert.Equal(t, "no changes", report.Message())
	assert.Zero(t, f.confirm.count())
}

func TestSyncContinuesPastLookupFailure(t *testing.T) {
	f := newFixture(t)
	f.addLinked(t, "broken", models.TaskStatusInProgress, prWith(1, models.PRStatusOpen))
	ok := f.addLinked(t, "fine", models.TaskStatusInProgress, prWith(2, models.PRStatusOpen))
	f.prs.errs[1] = errors.New("boom")
	f.prs.set(prWith(2, models.PRStatusMerged))
	f.confirm.answer = false

	report, err := f.engine.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Checked)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Updated)
	got, _ := f.board.Tasks.Get(ok.ID)
	assert.Equal(t, models.PRStatusMerged, got.GitHubPR.Status)
}

func TestCheckOnceWritesImmediatelyWhenColumnMatches(t *testing.T) {
	f := newFixture(t)
	task := f.addLinked(t, "done already", models.TaskStatusCompleted, prWith(7, models.PRStatusOpen))
	f.prs.set(prWith(7, models.PRStatusMerged))

	n, err := f.engine.CheckOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Zero(t, f.confirm.count())
	got, _ := f.board.Tasks.Get(task.ID)
	assert.Equal(t, models.PRStatusMerged, got.GitHubPR.Status)
}

func TestCheckOnceAsksBeforeMoving(t *testing.T) {
	f := newFixture(t)
	task := f.addLinked(t, "reopened", models.TaskStatusCompleted, prWith(8, models.PRStatusMerged))
	f.prs.set(prWith(8, models.PRStatusOpen))
	f.confirm.answer = true

	n, err := f.engine.CheckOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, f.confirm.count())
	got, _ := f.board.Tasks.Get(task.ID)
	assert.Equal(t, models.TaskStatusInProgress, got.Status)
	assert.Nil(t, got.CompletedAt)
}

func TestCheckOnceStopsWhenConfirmationFails(t *testing.T) {
	f := newFixture(t)
	task := f.addLinked(t, "t", models.TaskStatusBacklog, prWith(9, models.PRStatusClosed))
	f.prs.set(prWith(9, models.PRStatusOpen))
	f.confirm.err = context.Canceled

	_, err := f.engine.CheckOnce(context.Background())
	assert.ErrorIs(t, err, context.Canceled)
	got, _ := f.board.Tasks.Get(task.ID)
	assert.Equal(t, models.PRStatusClosed, got.GitHubPR.Status, "nothing is written without an answer")
}

func TestConfirmMovesSkipsSettledTasks(t *testing.T) {
	f := newFixture(t)
	task := f.addLinked(t, "t", models.TaskStatusCompleted, prWith(10, models.PRStatusMerged))
	moved, err := f.engine.ConfirmMoves(context.Background(), []Move{
		{TaskID: task.ID, To: models.TaskStatusCompleted},
		{TaskID: "missing", To: models.TaskStatusBacklog},
	})
	require.NoError(t, err)
	assert.Zero(t, moved)
	assert.Zero(t, f.confirm.count())
}

func TestRunPollsAndConfirmsQueuedMoves(t *testing.T) {
	f := newFixture(t)
	task := f.addLinked(t, "t", models.TaskStatusCompleted, prWith(11, models.PRStatusOpen))
	f.prs.set(prWith(11, models.PRStatusMerged))
	f.confirm.answer = true

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.engine.Run(ctx, time.Hour)
		close(done)
	}()

	require.Eventually(t, func() bool {
		got, _ := f.board.Tasks.Get(task.ID)
		return got.GitHubPR.Status == models.PRStatusMerged
	}, 2*time.Second, 5*time.Millisecond)

	other, err := f.board.Tasks.Add(models.TaskInput{Title: "queued"})
	require.NoError(t, err)
	f.engine.Enqueue([]Move{{TaskID: other.ID, To: models.TaskStatusInProgress}})
	require.Eventually(t, func() bool {
		got, _ := f.board.Tasks.Get(other.ID)
		return got.Status == models.TaskStatusInProgress
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestEnqueueMergesPendingMoves(t *testing.T) {
	f := newFixture(t)
	f.confirm.answer = true

	var ids []string
	for i := 0; i < 20; i++ {
		task, err := f.board.Tasks.Add(models.TaskInput{Title: "t"})
		require.NoError(t, err)
		ids = append(ids, task.ID)
		f.engine.Enqueue([]Move{{TaskID: task.ID, To: models.TaskStatusCompleted}})
	}
	f.engine.Enqueue([]Move{{TaskID: ids[0], To: models.TaskStatusInProgress}})
	assert.Equal(t, 20, f.engine.Pending(), "a later move for the same task replaces the earlier one")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.engine.Run(ctx, time.Hour)
		close(done)
	}()

	require.Eventually(t, func() bool { return f.engine.Pending() == 0 && f.confirm.count() == 20 },
		2*time.Second, 5*time.Millisecond)
	cancel()
	<-done

	first, _ := f.board.Tasks.Get(ids[0])
	assert.Equal(t, models.TaskStatusInProgress, first.Status)
	for _, id := range ids[1:] {
		got, _ := f.board.Tasks.Get(id)
		assert.Equal(t, models.TaskStatusCompleted, got.Status)
	}
}
