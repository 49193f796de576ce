// Package board holds the in-memory kanban state: tasks, sprints, users and
// the search view. Every collection is owned by one store, mutated only
// through its methods, and written back to a Repository in the background.
package board

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"kanban/internal/models"
)

// Repository is the persistent store the board loads from and flushes to.
type Repository interface {
	Init(ctx context.Context) error

	Tasks(ctx context.Context) ([]models.Task, error)
	SaveTasks(ctx context.Context, tasks []models.Task) error
	SaveTask(ctx context.Context, task models.Task) error
	DeleteTask(ctx context.Context, id string) error

	Users(ctx context.Context) ([]models.User, error)
	SaveUsers(ctx context.Context, users []models.User) error
	SaveUser(ctx context.Context, user models.User) error

	Sprints(ctx context.Context) ([]models.Sprint, error)
	SaveSprints(ctx context.Context, sprints []models.Sprint) error
	SaveSprint(ctx context.Context, sprint models.Sprint) error
}

// Options configures a Board. Zero values select the defaults.
type Options struct {
	Logger       *slog.Logger
	Contributors ContributorSource
	Now          func() time.Time
	NewID        func() string
}

// Board wires the stores together around one repository.
type Board struct {
	Tasks   *TaskStore
	Sprints *SprintStore
	Users   *UserStore
	Search  *Search

	repo    Repository
	persist *persister
	logger  *slog.Logger
}

// New builds a board in the loading state. Call Load before serving.
func New(repo Repository, opts Options) *Board {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	p := newPersister(logger)
	tasks := &TaskStore{repo: repo, persist: p, now: now, newID: newID, logger: logger}
	sprints := &SprintStore{
		repo: repo, persist: p, tasks: tasks, dirty: make(map[string]struct{}),
		now: now, newID: newID, logger: logger,
	}
	tasks.sprints = sprints
	users := &UserStore{
		repo: repo, persist: p, tasks: tasks, contributors: opts.Contributors,
		newID: newID, logger: logger,
	}

	p.register(collTasks, tasks.save)
	p.register(collSprints, sprints.save)
	p.register(collUsers, users.save)

	return &Board{
		Tasks:   tasks,
		Sprints: sprints,
		Users:   users,
		Search:  &Search{tasks: tasks},
		repo:    repo,
		persist: p,
		logger:  logger,
	}
}

// Load opens the repository and installs every collection. Flushes stay
// suppressed until Load succeeds.
func (b *Board) Load(ctx context.Context) error {
	b.persist.setLoading(true)
	if err := b.repo.Init(ctx); err != nil {
		return fmt.Errorf("init store: %w", err)
	}

	tasks, err := b.repo.Tasks(ctx)
	if err != nil {
		return fmt.Errorf("load tasks: %w", err)
	}
	b.Tasks.replace(tasks)

	if err := b.Sprints.load(ctx); err != nil {
		return err
	}
	if err := b.Users.load(ctx); err != nil {
		return err
	}

	b.persist.setLoading(false)
	// Listing sprints here refreshes stale totals and queues their flush.
	b.logger.Info("board loaded",
		slog.Int("tasks", len(tasks)),
		slog.Int("sprints", len(b.Sprints.List())),
		slog.Int("users", len(b.Users.List())))
	return nil
}

// Loading reports whether the initial load is still in progress.
func (b *Board) Loading() bool {
	return b.persist.loading.Load()
}

// Run writes queued flushes until ctx is cancelled.
func (b *Board) Run(ctx context.Context) {
	b.persist.run(ctx)
}

// Flush writes every pending collection now.
func (b *Board) Flush(ctx context.Context) error {
	return b.persist.flush(ctx)
}
