package board

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"kanban/internal/models"
)

// sprintInvalidator is told which sprints a task mutation touched.
type sprintInvalidator interface {
	invalidate(sprintIDs ...string)
}

// TaskStore owns the task collection.
type TaskStore struct {
	mu    sync.RWMutex
	tasks []models.Task

	repo    Repository
	persist *persister
	sprints sprintInvalidator
	now     func() time.Time
	newID   func() string
	logger  *slog.Logger
}

// List returns a copy of every task in collection order.
func (s *TaskStore) List() []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneTasks(s.tasks)
}

// Len returns the number of tasks.
func (s *TaskStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// Get returns the task with the given id.
func (s *TaskStore) Get(id string) (models.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.tasks[i].Clone(), true
	}
	return models.Task{}, false
}

// ByStatus returns the tasks in one board column.
func (s *TaskStore) ByStatus(status models.TaskStatus) []models.Task {
	return s.filter(func(t models.Task) bool { return t.Status == status })
}

// BySprint returns the tasks assigned to a sprint.
func (s *TaskStore) BySprint(sprintID string) []models.Task {
	return s.filter(func(t models.Task) bool { return t.InSprint(sprintID) })
}

// filter returns copies of the tasks keep accepts.
func (s *TaskStore) filter(keep func(models.Task) bool) []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Task, 0)
	for _, t := range s.tasks {
		if keep(t) {
			out = append(out, t.Clone())
		}
	}
	return out
}

// Add creates a task with a fresh id. A missing or unknown status defaults to
// backlog; a completed task without an explicit completion time is stamped now.
func (s *TaskStore) Add(in models.TaskInput) (models.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return models.Task{}, fmt.Errorf("%w: title must not be empty", models.ErrInvalidTask)
	}
	if in.StoryPoints < 0 {
		return models.Task{}, fmt.Errorf("%w: story points must not be negative", models.ErrInvalidTask)
	}
	status := in.Status
	if !status.Valid() {
		status = models.TaskStatusBacklog
	}

	now := s.now()
	task := models.Task{
		ID:          s.newID(),
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Status:      status,
		StoryPoints: in.StoryPoints,
		AssignedTo:  in.AssignedTo,
		SprintID:    normalizeSprintID(in.SprintID),
		CreatedAt:   now,
		UpdatedAt:   now,
		CompletedAt: in.CompletedAt,
		GitHubPR:    in.GitHubPR,
	}
	if status == models.TaskStatusCompleted && task.CompletedAt == nil {
		task.CompletedAt = &now
	}
	task = task.Clone()

	s.mu.Lock()
	s.tasks = append(s.tasks, task)
	s.mu.Unlock()

	s.changed(sprintKey(task.SprintID))
	s.upsert(context.Background(), task)
	s.logger.Info("task created", slog.String("id", task.ID), slog.String("title", task.Title))
	return task.Clone(), nil
}

// upsert writes one task straight to the repository. The queued collection
// flush still runs; both writes hold the I/O lock so the later one wins.
func (s *TaskStore) upsert(ctx context.Context, task models.Task) {
	err := s.persist.writeUnlessLoading(ctx, func(ctx context.Context) error {
		return s.repo.SaveTask(ctx, task)
	})
	if err != nil {
		s.logger.Error("save task to store failed", slog.String("id", task.ID), slog.String("error", err.Error()))
	}
}

// Update merges u into the task. Unknown ids are ignored and reported as
// false. Invalid values (blank title, unknown status, negative points) are
// skipped field by field.
func (s *TaskStore) Update(id string, u models.TaskUpdate) (models.Task, bool) {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return models.Task{}, false
	}
	task := &s.tasks[i]
	prevSprint := sprintKey(task.SprintID)
	applyUpdate(task, u, s.now())
	out := task.Clone()
	s.mu.Unlock()

	s.changed(prevSprint, sprintKey(out.SprintID))
	s.logger.Info("task updated", slog.String("id", id))
	return out, true
}

// Move changes the column of a task. It reports false for unknown ids and
// invalid statuses.
func (s *TaskStore) Move(id string, status models.TaskStatus) (models.Task, bool) {
	if !status.Valid() {
		return models.Task{}, false
	}
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return models.Task{}, false
	}
	task := &s.tasks[i]
	now := s.now()
	applyStatus(task, status, models.Optional[time.Time]{}, now)
	task.UpdatedAt = now
	out := task.Clone()
	s.mu.Unlock()

	s.changed(sprintKey(out.SprintID))
	s.logger.Info("task moved", slog.String("id", id), slog.String("status", string(status)))
	return out, true
}

// Delete removes a task and deletes it from the repository directly, in
// addition to the queued collection flush.
func (s *TaskStore) Delete(ctx context.Context, id string) bool {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	removed := s.tasks[i]
	s.tasks = append(s.tasks[:i:i], s.tasks[i+1:]...)
	s.mu.Unlock()

	s.changed(sprintKey(removed.SprintID))
	err := s.persist.writeUnlessLoading(ctx, func(ctx context.Context) error {
		return s.repo.DeleteTask(ctx, id)
	})
	if err != nil {
		s.logger.Error("delete task from store failed", slog.String("id", id), slog.String("error", err.Error()))
	}
	s.logger.Info("task removed", slog.String("id", id))
	return true
}

// clearSprint detaches every task from a deleted sprint.
func (s *TaskStore) clearSprint(sprintID string) int {
	return s.rewrite(func(t *models.Task) bool {
		if !t.InSprint(sprintID) {
			return false
		}
		t.SprintID = nil
		return true
	})
}

// clearAssignee unassigns every task held by a deleted user.
func (s *TaskStore) clearAssignee(userID string) int {
	return s.rewrite(func(t *models.Task) bool {
		if t.AssignedTo == nil || t.AssignedTo.ID != userID {
			return false
		}
		t.AssignedTo = nil
		return true
	})
}

// rewrite applies fn to every task and returns how many it changed.
func (s *TaskStore) rewrite(fn func(*models.Task) bool) int {
	now := s.now()
	var touched []string
	s.mu.Lock()
	for i := range s.tasks {
		prev := sprintKey(s.tasks[i].SprintID)
		if fn(&s.tasks[i]) {
			s.tasks[i].UpdatedAt = now
			touched = append(touched, prev)
		}
	}
	s.mu.Unlock()

	if len(touched) > 0 {
		s.changed(touched...)
	}
	return len(touched)
}

// replace swaps in a loaded collection without scheduling a flush.
func (s *TaskStore) replace(tasks []models.Task) {
	s.mu.Lock()
	s.tasks = cloneTasks(tasks)
	s.mu.Unlock()
}

// save writes a snapshot of every task.
func (s *TaskStore) save(ctx context.Context) error {
	return s.repo.SaveTasks(ctx, s.List())
}

// changed runs after a mutation has committed and the lock is released.
func (s *TaskStore) changed(sprintIDs ...string) {
	s.persist.mark(collTasks)
	if s.sprints != nil {
		s.sprints.invalidate(sprintIDs...)
	}
}

// indexOf returns the position of id, or -1. Callers hold the lock.
func (s *TaskStore) indexOf(id string) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// applyUpdate merges a partial update into task.
func applyUpdate(task *models.Task, u models.TaskUpdate, now time.Time) {
	if u.Title != nil {
		if title := strings.TrimSpace(*u.Title); title != "" {
			task.Title = title
		}
	}
	if u.Description != nil {
		task.Description = strings.TrimSpace(*u.Description)
	}
	if u.StoryPoints != nil && *u.StoryPoints >= 0 {
		task.StoryPoints = *u.StoryPoints
	}
	if u.AssignedTo.IsSet() {
		task.AssignedTo = u.AssignedTo.Ptr()
	}
	if u.SprintID.IsSet() {
		task.SprintID = normalizeSprintID(u.SprintID.Ptr())
	}
	if u.GitHubPR.IsSet() {
		task.GitHubPR = u.GitHubPR.Ptr()
	}
	if u.CompletedAt.IsSet() {
		task.CompletedAt = u.CompletedAt.Ptr()
	}
	if u.Status != nil && u.Status.Valid() {
		applyStatus(task, *u.Status, u.CompletedAt, now)
	}
	task.UpdatedAt = now
}

// applyStatus sets the status and keeps completedAt consistent with it.
// Entering completed stamps now unless a time was supplied; leaving completed
// clears the stamp unless completedAt was part of the update.
func applyStatus(task *models.Task, next models.TaskStatus, completedAt models.Optional[time.Time], now time.Time) {
	prev := task.Status
	task.Status = next
	switch {
	case next == models.TaskStatusCompleted && prev != models.TaskStatusCompleted:
		if at := completedAt.Ptr(); at != nil {
			task.CompletedAt = at
		} else {
			stamp := now
			task.CompletedAt = &stamp
		}
	case next != models.TaskStatusCompleted:
		if !completedAt.IsSet() {
			task.CompletedAt = nil
		}
	}
}

// normalizeSprintID treats an empty sprint id as no sprint.
func normalizeSprintID(id *string) *string {
	if id == nil || *id == "" {
		return nil
	}
	v := *id
	return &v
}

// sprintKey returns the sprint id, or "" for none.
func sprintKey(id *string) string {
	if id == nil {
		return ""
	}
	return *id
}

// cloneTasks deep copies a task slice.
func cloneTasks(tasks []models.Task) []models.Task {
	out := make([]models.Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.Clone()
	}
	return out
}
