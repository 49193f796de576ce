package board

import (
	"strings"
	"sync"

	"kanban/internal/models"
)

// taskLister is the task store surface the search view reads.
type taskLister interface {
	List() []models.Task
}

// Search holds the live search term and derives the filtered task view from
// the current task collection on every read.
type Search struct {
	mu    sync.RWMutex
	term  string
	tasks taskLister
}

// SetTerm replaces the search term.
func (s *Search) SetTerm(term string) {
	s.mu.Lock()
	s.term = term
	s.mu.Unlock()
}

// Clear resets the search term.
func (s *Search) Clear() { s.SetTerm("") }

// Term returns the current search term.
func (s *Search) Term() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.term
}

// Results filters the live task collection by the current term.
func (s *Search) Results() []models.Task {
	return FilterTasks(s.tasks.List(), s.Term())
}

// FilterTasks returns the tasks whose title, description or assignee name
// contains term, ignoring case. A blank term returns tasks unchanged.
func FilterTasks(tasks []models.Task, term string) []models.Task {
	if strings.TrimSpace(term) == "" {
		return tasks
	}
	needle := strings.ToLower(term)
	out := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if matches(t, needle) {
			out = append(out, t)
		}
	}
	return out
}

// matches reports whether needle, already lower-cased, occurs in the task.
func matches(t models.Task, needle string) bool {
	if strings.Contains(strings.ToLower(t.Title), needle) ||
		strings.Contains(strings.ToLower(t.Description), needle) {
		return true
	}
	return t.AssignedTo != nil && strings.Contains(strings.ToLower(t.AssignedTo.Name), needle)
}
