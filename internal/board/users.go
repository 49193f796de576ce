package board

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"kanban/internal/models"
)

// ContributorSource provides board members from an external repository
// host.
type ContributorSource interface {
	AllUsers(ctx context.Context) ([]models.User, error)
}

// assigneeClearer unassigns tasks held by a removed user.
type assigneeClearer interface {
	clearAssignee(userID string) int
}

// UserStore owns the user collection.
type UserStore struct {
	mu    sync.RWMutex
	users []models.User

	repo         Repository
	persist      *persister
	tasks        assigneeClearer
	contributors ContributorSource
	newID        func() string
	logger       *slog.Logger
}

// List returns a copy of every user.
func (s *UserStore) List() []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.User(nil), s.users...)
}

// Get returns the user with the given id.
func (s *UserStore) Get(id string) (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.users[i], true
	}
	return models.User{}, false
}

// Add creates a user with a fresh id. The role defaults to developer.
func (s *UserStore) Add(u models.User) (models.User, error) {
	u.Name = strings.TrimSpace(u.Name)
	if u.Name == "" {
		return models.User{}, fmt.Errorf("%w: name must not be empty", models.ErrInvalidUser)
	}
	if !u.Role.Valid() {
		u.Role = models.RoleDeveloper
	}
	u.ID = s.newID()

	s.mu.Lock()
	s.users = append(s.users, u)
	s.mu.Unlock()

	s.persist.mark(collUsers)
	err := s.persist.writeUnlessLoading(context.Background(), func(ctx context.Context) error {
		return s.repo.SaveUser(ctx, u)
	})
	if err != nil {
		s.logger.Error("save user to store failed", slog.String("id", u.ID), slog.String("error", err.Error()))
	}
	s.logger.Info("user added", slog.String("id", u.ID), slog.String("name", u.Name))
	return u, nil
}

// Update merges u into the user. Copies already embedded in tasks keep their
// old values.
func (s *UserStore) Update(id string, u models.UserUpdate) (models.User, bool) {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return models.User{}, false
	}
	user := &s.users[i]
	if u.Name != nil {
		if name := strings.TrimSpace(*u.Name); name != "" {
			user.Name = name
		}
	}
	setString(&user.Email, u.Email)
	setString(&user.Avatar, u.Avatar)
	setString(&user.Login, u.Login)
	setString(&user.Bio, u.Bio)
	setString(&user.Company, u.Company)
	setString(&user.Location, u.Location)
	setString(&user.GitHubURL, u.GitHubURL)
	if u.Role != nil && u.Role.Valid() {
		user.Role = *u.Role
	}
	if u.Contributions != nil {
		user.Contributions = *u.Contributions
	}
	out := *user
	s.mu.Unlock()

	s.persist.mark(collUsers)
	s.logger.Info("user updated", slog.String("id", id))
	return out, true
}

// Delete removes a user and unassigns their tasks.
func (s *UserStore) Delete(id string) bool {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	s.users = append(s.users[:i:i], s.users[i+1:]...)
	s.mu.Unlock()

	unassigned := s.tasks.clearAssignee(id)
	s.persist.mark(collUsers)
	s.logger.Info("user removed", slog.String("id", id), slog.Int("unassigned_tasks", unassigned))
	return true
}

// RefreshFromGitHub replaces the collection with the contributor source.
// Unlike the startup bootstrap, failures are returned to the caller. An empty
// result leaves the current users in place.
func (s *UserStore) RefreshFromGitHub(ctx context.Context) (int, error) {
	if s.contributors == nil {
		return 0, fmt.Errorf("refresh users: no contributor source configured")
	}
	users, err := s.contributors.AllUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("refresh users: %w", err)
	}
	if len(users) == 0 {
		return 0, nil
	}
	err = s.persist.write(ctx, func(ctx context.Context) error {
		return s.repo.SaveUsers(ctx, users)
	})
	if err != nil {
		return 0, fmt.Errorf("refresh users: %w", err)
	}
	s.replace(users)
	s.logger.Info("users refreshed from github", slog.Int("count", len(users)))
	return len(users), nil
}

// load installs persisted users, seeding from the contributor source when
// the collection is empty. Seeding failures are logged and leave the
// collection empty.
func (s *UserStore) load(ctx context.Context) error {
	users, err := s.repo.Users(ctx)
	if err != nil {
		return fmt.Errorf("load users: %w", err)
	}
	if len(users) > 0 || s.contributors == nil {
		s.replace(users)
		return nil
	}

	s.logger.Info("no users stored, fetching contributors")
	fetched, err := s.contributors.AllUsers(ctx)
	if err != nil {
		s.logger.Warn("fetch contributors failed", slog.String("error", err.Error()))
		return nil
	}
	if len(fetched) == 0 {
		s.logger.Warn("no contributors found")
		return nil
	}
	err = s.persist.write(ctx, func(ctx context.Context) error {
		return s.repo.SaveUsers(ctx, fetched)
	})
	if err != nil {
		s.logger.Error("save contributors failed", slog.String("error", err.Error()))
	}
	s.replace(fetched)
	return nil
}

// replace swaps in a user collection without scheduling a flush.
func (s *UserStore) replace(users []models.User) {
	s.mu.Lock()
	s.users = append([]models.User(nil), users...)
	s.mu.Unlock()
}

// save writes a snapshot of every user.
func (s *UserStore) save(ctx context.Context) error {
	return s.repo.SaveUsers(ctx, s.List())
}

// indexOf returns the position of id, or -1. Callers hold the lock.
func (s *UserStore) indexOf(id string) int {
	for i := range s.users {
		if s.users[i].ID == id {
			return i
		}
	}
	return -1
}

// setString copies the trimmed v into dst when v is set.
func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}
