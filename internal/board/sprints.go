package board

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"kanban/internal/calendar"
	"kanban/internal/models"
)

const (
	defaultSprintName        = "Sprint 1"
	defaultSprintDescription = "Default sprint for organizing tasks"
	defaultSprintDays        = 10
)

// taskSource is the part of the task store the sprint store reads from.
type taskSource interface {
	List() []models.Task
	BySprint(sprintID string) []models.Task
	clearSprint(sprintID string) int
}

// SprintStore owns the sprint collection and the current sprint selection.
// Story point totals are recomputed lazily: task mutations mark sprints
// dirty and every read refreshes dirty sprints first.
type SprintStore struct {
	mu        sync.Mutex
	sprints   []models.Sprint
	currentID string
	dirty     map[string]struct{}

	repo    Repository
	persist *persister
	tasks   taskSource
	now     func() time.Time
	newID   func() string
	logger  *slog.Logger
}

// List returns every sprint with fresh aggregates.
func (s *SprintStore) List() []models.Sprint {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshLocked()
	return cloneSprints(s.sprints)
}

// Get returns one sprint with fresh aggregates.
func (s *SprintStore) Get(id string) (models.Sprint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshLocked()
	if i := s.indexOf(id); i >= 0 {
		return s.sprints[i].Clone(), true
	}
	return models.Sprint{}, false
}

// Current returns the selected sprint, if any.
func (s *SprintStore) Current() (models.Sprint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshLocked()
	if i := s.indexOf(s.currentID); i >= 0 {
		return s.sprints[i].Clone(), true
	}
	return models.Sprint{}, false
}

// SetCurrent selects a sprint by id. An empty or unknown id clears the
// selection.
func (s *SprintStore) SetCurrent(id string) (models.Sprint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshLocked()
	i := s.indexOf(id)
	if i < 0 {
		s.currentID = ""
		return models.Sprint{}, false
	}
	s.currentID = id
	return s.sprints[i].Clone(), true
}

// Add creates a sprint with zeroed aggregates. When only one of end date and
// working days is given the other is derived from the calendar.
func (s *SprintStore) Add(in models.SprintInput) (models.Sprint, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.Sprint{}, fmt.Errorf("%w: name must not be empty", models.ErrInvalidSprint)
	}
	if in.WorkingDays < 0 {
		return models.Sprint{}, fmt.Errorf("%w: working days must not be negative", models.ErrInvalidSprint)
	}
	now := s.now()
	start := in.StartDate
	if start.IsZero() {
		start = now
	}
	end := in.EndDate
	days := in.WorkingDays
	switch {
	case end.IsZero() && days > 0:
		end = calendar.AddWorkingDays(start, days)
	case !end.IsZero() && days == 0:
		days = calendar.CountWorkingDays(start, end)
	case end.IsZero():
		return models.Sprint{}, fmt.Errorf("%w: end date or working days required", models.ErrInvalidSprint)
	}
	if end.Before(start) {
		return models.Sprint{}, fmt.Errorf("%w: end date before start date", models.ErrInvalidSprint)
	}
	status := in.Status
	if !status.Valid() {
		status = models.SprintStatusPlanning
	}

	sprint := models.Sprint{
		ID:          s.newID(),
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		StartDate:   start,
		EndDate:     end,
		WorkingDays: days,
		Status:      status,
		TaskIDs:     []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	s.mu.Lock()
	s.sprints = append(s.sprints, sprint)
	s.mu.Unlock()

	s.persist.mark(collSprints)
	s.logger.Info("sprint created", slog.String("id", sprint.ID), slog.String("name", sprint.Name))
	return sprint.Clone(), nil
}

// Update merges u into the sprint. Unknown ids are ignored.
func (s *SprintStore) Update(id string, u models.SprintUpdate) (models.Sprint, bool) {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return models.Sprint{}, false
	}
	sp := &s.sprints[i]
	if u.Name != nil {
		if name := strings.TrimSpace(*u.Name); name != "" {
			sp.Name = name
		}
	}
	if u.Description != nil {
		sp.Description = strings.TrimSpace(*u.Description)
	}
	if u.StartDate != nil {
		sp.StartDate = *u.StartDate
	}
	if u.EndDate != nil {
		sp.EndDate = *u.EndDate
	}
	if u.WorkingDays != nil && *u.WorkingDays >= 0 {
		sp.WorkingDays = *u.WorkingDays
	}
	if u.Status != nil && u.Status.Valid() {
		sp.Status = *u.Status
	}
	sp.UpdatedAt = s.now()
	s.refreshLocked()
	out := sp.Clone()
	s.mu.Unlock()

	s.persist.mark(collSprints)
	s.logger.Info("sprint updated", slog.String("id", id))
	return out, true
}

// Delete removes a sprint and detaches its tasks. When the deleted sprint
// was selected the selection falls back to the load-time policy.
func (s *SprintStore) Delete(id string) bool {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	s.sprints = append(s.sprints[:i:i], s.sprints[i+1:]...)
	delete(s.dirty, id)
	if s.currentID == id {
		s.currentID = pickCurrent(s.sprints)
	}
	s.mu.Unlock()

	// Task lock is taken only after the sprint lock is released.
	detached := s.tasks.clearSprint(id)
	s.persist.mark(collSprints)
	s.logger.Info("sprint removed", slog.String("id", id), slog.Int("detached_tasks", detached))
	return true
}

// UpdateStoryPoints recomputes the derived fields of one sprint immediately.
func (s *SprintStore) UpdateStoryPoints(id string) (models.Sprint, bool) {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return models.Sprint{}, false
	}
	delete(s.dirty, id)
	changed := s.recomputeLocked(i)
	out := s.sprints[i].Clone()
	s.mu.Unlock()

	if changed {
		s.persist.mark(collSprints)
	}
	return out, true
}

// Burndown returns the chart series for a sprint.
func (s *SprintStore) Burndown(id string) ([]BurndownPoint, bool) {
	sp, ok := s.Get(id)
	if !ok {
		return nil, false
	}
	return Burndown(sp, s.tasks.BySprint(id)), true
}

// invalidate marks sprints whose aggregates must be recomputed before the
// next read.
func (s *SprintStore) invalidate(ids ...string) {
	s.mu.Lock()
	for _, id := range ids {
		if id != "" {
			s.dirty[id] = struct{}{}
		}
	}
	s.mu.Unlock()
}

// refreshLocked recomputes every dirty sprint. Callers hold the sprint lock.
func (s *SprintStore) refreshLocked() {
	if len(s.dirty) == 0 {
		return
	}
	changed := false
	for id := range s.dirty {
		if i := s.indexOf(id); i >= 0 && s.recomputeLocked(i) {
			changed = true
		}
	}
	s.dirty = make(map[string]struct{})
	if changed {
		s.persist.mark(collSprints)
	}
}

// recomputeLocked derives totals and membership from the live task list and
// reports whether anything changed.
func (s *SprintStore) recomputeLocked(i int) bool {
	sp := &s.sprints[i]
	total, completed, ids := aggregate(s.tasks.BySprint(sp.ID))
	if total == sp.TotalStoryPoints && completed == sp.CompletedStoryPoints && equalIDs(ids, sp.TaskIDs) {
		return false
	}
	sp.TotalStoryPoints = total
	sp.CompletedStoryPoints = completed
	sp.TaskIDs = ids
	sp.UpdatedAt = s.now()
	return true
}

// aggregate sums the points of tasks and lists their ids.
func aggregate(tasks []models.Task) (total, completed int, ids []string) {
	ids = make([]string, 0, len(tasks))
	for _, t := range tasks {
		total += t.StoryPoints
		if t.Status == models.TaskStatusCompleted {
			completed += t.StoryPoints
		}
		ids = append(ids, t.ID)
	}
	return total, completed, ids
}

// load installs persisted sprints, creating and saving a default sprint
// when there are none.
func (s *SprintStore) load(ctx context.Context) error {
	sprints, err := s.repo.Sprints(ctx)
	if err != nil {
		return fmt.Errorf("load sprints: %w", err)
	}

	if len(sprints) == 0 {
		now := s.now()
		def := models.Sprint{
			ID:          s.newID(),
			Name:        defaultSprintName,
			Description: defaultSprintDescription,
			StartDate:   now,
			EndDate:     calendar.AddWorkingDays(now, defaultSprintDays),
			WorkingDays: defaultSprintDays,
			Status:      models.SprintStatusActive,
			TaskIDs:     []string{},
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		err := s.persist.write(ctx, func(ctx context.Context) error {
			return s.repo.SaveSprint(ctx, def)
		})
		if err != nil {
			s.logger.Error("save default sprint failed", slog.String("error", err.Error()))
		}
		s.logger.Info("default sprint created", slog.String("id", def.ID))
		sprints = []models.Sprint{def}
	}

	s.mu.Lock()
	s.sprints = cloneSprints(sprints)
	s.currentID = pickCurrent(s.sprints)
	// Persisted totals may lag the task collection; recompute on first read.
	for _, sp := range s.sprints {
		s.dirty[sp.ID] = struct{}{}
	}
	s.mu.Unlock()
	return nil
}

// save writes a snapshot of every sprint.
func (s *SprintStore) save(ctx context.Context) error {
	return s.repo.SaveSprints(ctx, s.List())
}

// indexOf returns the position of id, or -1. Callers hold the lock.
func (s *SprintStore) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.sprints {
		if s.sprints[i].ID == id {
			return i
		}
	}
	return -1
}

// pickCurrent prefers the first active sprint, then the first sprint.
func pickCurrent(sprints []models.Sprint) string {
	for _, sp := range sprints {
		if sp.Status == models.SprintStatusActive {
			return sp.ID
		}
	}
	if len(sprints) > 0 {
		return sprints[0].ID
	}
	return ""
}

// equalIDs reports whether both id lists hold the same ids in order.
func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// cloneSprints deep copies a sprint slice.
func cloneSprints(sprints []models.Sprint) []models.Sprint {
	out := make([]models.Sprint, len(sprints))
	for i, sp := range sprints {
		out[i] = sp.Clone()
	}
	return out
}
