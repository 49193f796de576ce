// Package reconcile keeps the pull request snapshots embedded in tasks in
// step with the PR source and proposes column moves when a pull request
// changes state.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"kanban/internal/confirm"
	"kanban/internal/metrics"
	"kanban/internal/models"
)

// LastSyncKey is the setting holding the time of the last completed sweep.
const LastSyncKey = "github.lastSync"

const (
	modePoll   = "poll"
	modeManual = "manual"
)

// Tasks is the task store surface the engine reads and writes.
type Tasks interface {
	List() []models.Task
	Len() int
	Get(id string) (models.Task, bool)
	Update(id string, u models.TaskUpdate) (models.Task, bool)
}

// PRs looks up the current state of a pull request.
type PRs interface {
	GetPR(ctx context.Context, number int) (*models.GitHubPR, error)
}

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Show(ctx context.Context, p confirm.Prompt) (bool, error)
}

// Settings persists the last sync time.
type Settings interface {
	SaveSetting(ctx context.Context, key string, value any) error
}

// Move is a column change suggested by a pull request state change.
type Move struct {
	TaskID string            `json:"taskId"`
	Title  string            `json:"title"`
	From   models.TaskStatus `json:"from"`
	To     models.TaskStatus `json:"to"`
	PR     models.GitHubPR   `json:"pr"`
}

// SyncReport summarizes one manual sweep.
type SyncReport struct {
	Checked int    `json:"checked"`
	Updated int    `json:"updated"`
	Failed  int    `json:"failed"`
	Moved   int    `json:"moved"`
	Moves   []Move `json:"moves"`
}

// Message is the summary shown after a manual sync.
func (r SyncReport) Message() string {
	if r.Updated == 0 {
		return "no changes"
	}
	return fmt.Sprintf("%d updated", r.Updated)
}

// Options configures an Engine. Settings may be nil.
type Options struct {
	Settings Settings
	Logger   *slog.Logger
	Now      func() time.Time
}

// Engine compares stored pull request snapshots against the source.
type Engine struct {
	tasks    Tasks
	prs      PRs
	confirm  Confirmer
	settings Settings
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	pending []Move
	signal  chan struct{}
}

// New builds an engine.
func New(tasks Tasks, prs PRs, c Confirmer, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Engine{
		tasks:    tasks,
		prs:      prs,
		confirm:  c,
		settings: opts.Settings,
		logger:   logger,
		now:      now,
		signal:   make(chan struct{}, 1),
	}
}

// drift is a task whose stored pull request differs from the source.
type drift struct {
	task    models.Task
	current models.GitHubPR
}

// scan fetches every linked pull request and returns those whose status
// changed. Lookup failures are logged and skipped.
func (e *Engine) scan(ctx context.Context, mode string) (drifted []drift, checked, failed int, err error) {
	for _, task := range e.tasks.List() {
		if task.GitHubPR == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return drifted, checked, failed, err
		}
		checked++
		metrics.PRChecks.WithLabelValues(mode).Inc()
		current, err := e.prs.GetPR(ctx, task.GitHubPR.Number)
		if err != nil {
			failed++
			metrics.PRCheckErrors.WithLabelValues(mode).Inc()
			e.logger.Warn("check pull request failed",
				slog.String("task_id", task.ID),
				slog.Int("number", task.GitHubPR.Number),
				slog.String("error", err.Error()))
			continue
		}
		if current == nil || current.Status == task.GitHubPR.Status {
			continue
		}
		metrics.PRDrift.WithLabelValues(mode).Inc()
		e.logger.Info("pull request status changed",
			slog.Int("number", current.Number),
			slog.String("from", string(task.GitHubPR.Status)),
			slog.String("to", string(current.Status)))
		drifted = append(drifted, drift{task: task, current: *current})
	}
	return drifted, checked, failed, nil
}

// CheckOnce runs one background sweep. A drifted task whose suggested column
// differs from its current one is only written after the user answers; the
// answer decides whether the column changes too. It returns the number of
// tasks written.
func (e *Engine) CheckOnce(ctx context.Context) (int, error) {
	drifted, _, _, err := e.scan(ctx, modePoll)
	if err != nil {
		return 0, err
	}
	updated := 0
	for _, d := range drifted {
		u := models.TaskUpdate{GitHubPR: models.Some(d.current)}
		suggested := d.current.Status.SuggestedTaskStatus()
		if suggested != d.task.Status {
			ok, err := e.confirm.Show(ctx, movePrompt(d.task, d.current, suggested))
			if err != nil {
				return updated, err
			}
			if ok {
				u.Status = &suggested
			}
		}
		if _, found := e.tasks.Update(d.task.ID, u); found {
			updated++
		}
	}
	e.recordSync(ctx)
	return updated, nil
}

// Sync runs one manual sweep: every drifted task gets the fresh pull
// request written immediately. Column changes are returned as moves for the
// caller to confirm.
func (e *Engine) Sync(ctx context.Context) (SyncReport, error) {
	drifted, checked, failed, err := e.scan(ctx, modeManual)
	report := SyncReport{Checked: checked, Failed: failed, Moves: []Move{}}
	if err != nil {
		return report, err
	}
	for _, d := range drifted {
		if _, ok := e.tasks.Update(d.task.ID, models.TaskUpdate{GitHubPR: models.Some(d.current)}); !ok {
			continue
		}
		report.Updated++
		if suggested := d.current.Status.SuggestedTaskStatus(); suggested != d.task.Status {
			report.Moves = append(report.Moves, Move{
				TaskID: d.task.ID,
				Title:  d.task.Title,
				From:   d.task.Status,
				To:     suggested,
				PR:     d.current,
			})
		}
	}
	e.recordSync(ctx)
	e.logger.Info("github sync finished",
		slog.Int("checked", report.Checked),
		slog.Int("updated", report.Updated),
		slog.Int("failed", report.Failed),
		slog.Int("moves", len(report.Moves)))
	return report, nil
}

// ConfirmMoves asks about each move in turn and applies the confirmed ones.
// A move whose task is gone or already in the target column is skipped.
func (e *Engine) ConfirmMoves(ctx context.Context, moves []Move) (int, error) {
	moved := 0
	for _, m := range moves {
		task, ok := e.tasks.Get(m.TaskID)
		if !ok || task.Status == m.To {
			continue
		}
		yes, err := e.confirm.Show(ctx, movePrompt(task, m.PR, m.To))
		if err != nil {
			return moved, err
		}
		if !yes {
			continue
		}
		to := m.To
		if _, ok := e.tasks.Update(m.TaskID, models.TaskUpdate{Status: &to}); ok {
			moved++
		}
	}
	return moved, nil
}

// SyncNow runs a manual sweep and then confirms its moves in place.
func (e *Engine) SyncNow(ctx context.Context) (SyncReport, error) {
	report, err := e.Sync(ctx)
	if err != nil {
		return report, err
	}
	report.Moved, err = e.ConfirmMoves(ctx, report.Moves)
	return report, err
}

// Enqueue hands moves to the Run loop, which confirms them between sweeps.
// Moves merge into the pending batch; a later move for the same task
// replaces the earlier one.
func (e *Engine) Enqueue(moves []Move) {
	if len(moves) == 0 {
		return
	}
	e.mu.Lock()
	for _, m := range moves {
		replaced := false
		for i := range e.pending {
			if e.pending[i].TaskID == m.TaskID {
				e.pending[i] = m
				replaced = true
				break
			}
		}
		if !replaced {
			e.pending = append(e.pending, m)
		}
	}
	e.mu.Unlock()

	select {
	case e.signal <- struct{}{}:
	default:
	}
}

// Pending returns the number of moves waiting for the Run loop.
func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

// takePending removes and returns the pending batch.
func (e *Engine) takePending() []Move {
	e.mu.Lock()
	defer e.mu.Unlock()
	moves := e.pending
	e.pending = nil
	return moves
}

// Run sweeps immediately and then every interval until ctx is done. Sweeps
// are skipped while the board has no tasks. Queued moves are confirmed on
// the same goroutine so prompts never overlap with a sweep.
func (e *Engine) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.poll(ctx)
		case <-e.signal:
			if _, err := e.ConfirmMoves(ctx, e.takePending()); err != nil && ctx.Err() == nil {
				e.logger.Warn("confirm moves failed", slog.String("error", err.Error()))
			}
		}
	}
}

// poll runs one background sweep when the board has tasks.
func (e *Engine) poll(ctx context.Context) {
	if e.tasks.Len() == 0 {
		return
	}
	n, err := e.CheckOnce(ctx)
	if err != nil {
		if ctx.Err() == nil {
			e.logger.Warn("pull request check interrupted", slog.String("error", err.Error()))
		}
		return
	}
	if n > 0 {
		e.logger.Info("pull request check updated tasks", slog.Int("updated", n))
	}
}

// recordSync stores the time of the finished sweep.
func (e *Engine) recordSync(ctx context.Context) {
	if e.settings == nil {
		return
	}
	if err := e.settings.SaveSetting(ctx, LastSyncKey, e.now()); err != nil {
		e.logger.Warn("save last sync failed", slog.String("error", err.Error()))
	}
}

// movePrompt builds the question asked before moving a task.
func movePrompt(task models.Task, pr models.GitHubPR, to models.TaskStatus) confirm.Prompt {
	return confirm.Prompt{
		Title: fmt.Sprintf("PR #%d status changed", pr.Number),
		Message: fmt.Sprintf("PR #%d is now %s. Move %q to %s?",
			pr.Number, pr.Status.Label(), task.Title, to.Label()),
		Type:        "info",
		ConfirmText: "Confirm",
		CancelText:  "Cancel",
	}
}
