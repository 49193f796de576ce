package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"kanban/internal/models"
)

// ErrNotInitialized is returned by every collection operation before Init.
var ErrNotInitialized = errors.New("store not initialized")

// Store persists the board collections in a single SQLite file. Each record
// is kept as a JSON document next to the columns used for ordering and lookup.
type Store struct {
	db     *sqlx.DB
	logger *slog.Logger
	ready  atomic.Bool
}

// Open connects to the database file. Init must be called before use.
func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("empty database path")
	}
	if logger == nil {
		logger = slog.Default()
	}

	if err := ensureDir(dbPath); err != nil {
		return nil, err
	}

	conn, err := sqlx.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=ON", dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)

	return &Store{db: conn, logger: logger}, nil
}

// Close releases the database resources.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ensureDir creates the parent directory of dbPath.
func ensureDir(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// Init creates the collections. It is safe to call more than once.
func (s *Store) Init(ctx context.Context) error {
	if s.ready.Load() {
		return nil
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
            id TEXT PRIMARY KEY,
            position INTEGER NOT NULL DEFAULT 0,
            status TEXT NOT NULL,
            sprint_id TEXT,
            data TEXT NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_sprint ON tasks(sprint_id);`,
		`CREATE TABLE IF NOT EXISTS users (
            id TEXT PRIMARY KEY,
            position INTEGER NOT NULL DEFAULT 0,
            login TEXT,
            data TEXT NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_users_login ON users(login);`,
		`CREATE TABLE IF NOT EXISTS sprints (
            id TEXT PRIMARY KEY,
            position INTEGER NOT NULL DEFAULT 0,
            status TEXT NOT NULL,
            data TEXT NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_sprints_status ON sprints(status);`,
		`CREATE TABLE IF NOT EXISTS settings (
            key TEXT PRIMARY KEY,
            value TEXT NOT NULL
        );`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	s.ready.Store(true)
	s.logger.Debug("store initialized")
	return nil
}

// checkReady fails until Init has run.
func (s *Store) checkReady() error {
	if !s.ready.Load() {
		return ErrNotInitialized
	}
	return nil
}

// taskRow is the stored form of a task.
type taskRow struct {
	ID       string         `db:"id"`
	Position int            `db:"position"`
	Status   string         `db:"status"`
	SprintID sql.NullString `db:"sprint_id"`
	Data     string         `db:"data"`
}

// userRow is the stored form of a user.
type userRow struct {
	ID       string         `db:"id"`
	Position int            `db:"position"`
	Login    sql.NullString `db:"login"`
	Data     string         `db:"data"`
}

// sprintRow is the stored form of a sprint.
type sprintRow struct {
	ID       string `db:"id"`
	Position int    `db:"position"`
	Status   string `db:"status"`
	Data     string `db:"data"`
}

const (
	insertTask   = `INSERT INTO tasks(id, position, status, sprint_id, data) VALUES(:id, :position, :status, :sprint_id, :data)`
	insertUser   = `INSERT INTO users(id, position, login, data) VALUES(:id, :position, :login, :data)`
	insertSprint = `INSERT INTO sprints(id, position, status, data) VALUES(:id, :position, :status, :data)`
)

// newTaskRow encodes a task as a table row.
func newTaskRow(t models.Task, position int) (taskRow, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return taskRow{}, fmt.Errorf("encode task %s: %w", t.ID, err)
	}
	row := taskRow{ID: t.ID, Position: position, Status: string(t.Status), Data: string(data)}
	if t.SprintID != nil {
		row.SprintID = sql.NullString{String: *t.SprintID, Valid: true}
	}
	return row, nil
}

// newUserRow encodes a user as a table row.
func newUserRow(u models.User, position int) (userRow, error) {
	data, err := json.Marshal(u)
	if err != nil {
		return userRow{}, fmt.Errorf("encode user %s: %w", u.ID, err)
	}
	return userRow{
		ID:       u.ID,
		Position: position,
		Login:    sql.NullString{String: u.Login, Valid: u.Login != ""},
		Data:     string(data),
	}, nil
}

// newSprintRow encodes a sprint as a table row.
func newSprintRow(sp models.Sprint, position int) (sprintRow, error) {
	data, err := json.Marshal(sp)
	if err != nil {
		return sprintRow{}, fmt.Errorf("encode sprint %s: %w", sp.ID, err)
	}
	return sprintRow{ID: sp.ID, Position: position, Status: string(sp.Status), Data: string(data)}, nil
}

// replaceAll clears a collection and inserts rows in one transaction.
func (s *Store) replaceAll(ctx context.Context, table, insert string, rows []any) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin %s: %w", table, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
		return fmt.Errorf("clear %s: %w", table, err)
	}
	for _, row := range rows {
		if _, err := tx.NamedExecContext(ctx, insert, row); err != nil {
			return fmt.Errorf("insert into %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", table, err)
	}
	return nil
}

// nextPosition returns the position after the last row of table.
func (s *Store) nextPosition(ctx context.Context, table string) (int, error) {
	var position sql.NullInt64
	if err := s.db.GetContext(ctx, &position, `SELECT MAX(position) FROM `+table); err != nil {
		return 0, fmt.Errorf("select position: %w", err)
	}
	if position.Valid {
		return int(position.Int64) + 1, nil
	}
	return 0, nil
}

// loadDocs decodes every JSON document of table in position order.
func loadDocs[T any](ctx context.Context, s *Store, table string) ([]T, error) {
	var docs []string
	if err := s.db.SelectContext(ctx, &docs, `SELECT data FROM `+table+` ORDER BY position, id`); err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	out := make([]T, 0, len(docs))
	for _, doc := range docs {
		var v T
		if err := json.Unmarshal([]byte(doc), &v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", table, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// SaveTasks replaces the whole task collection.
func (s *Store) SaveTasks(ctx context.Context, tasks []models.Task) error {
	if err := s.checkReady(); err != nil {
		return err
	}
	rows := make([]any, 0, len(tasks))
	for i, t := range tasks {
		row, err := newTaskRow(t, i)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}
	if err := s.replaceAll(ctx, "tasks", insertTask, rows); err != nil {
		return err
	}
	s.logger.Debug("tasks saved", slog.Int("count", len(tasks)))
	return nil
}

// SaveTask inserts or replaces a single task, keeping its position.
func (s *Store) SaveTask(ctx context.Context, t models.Task) error {
	if err := s.checkReady(); err != nil {
		return err
	}
	pos, err := s.nextPosition(ctx, "tasks")
	if err != nil {
		return err
	}
	row, err := newTaskRow(t, pos)
	if err != nil {
		return err
	}
	_, err = s.db.NamedExecContext(ctx, insertTask+` ON CONFLICT(id) DO UPDATE SET
        status = excluded.status, sprint_id = excluded.sprint_id, data = excluded.data`, row)
	if err != nil {
		return fmt.Errorf("upsert task: %w", err)
	}
	return nil
}

// Tasks returns every stored task in save order.
func (s *Store) Tasks(ctx context.Context) ([]models.Task, error) {
	if err := s.checkReady(); err != nil {
		return nil, err
	}
	return loadDocs[models.Task](ctx, s, "tasks")
}

// DeleteTask removes a task. Deleting a missing id is not an error.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	if err := s.checkReady(); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	s.logger.Debug("task deleted", slog.String("id", id))
	return nil
}

// SaveUsers replaces the whole user collection.
func (s *Store) SaveUsers(ctx context.Context, users []models.User) error {
	if err := s.checkReady(); err != nil {
		return err
	}
	rows := make([]any, 0, len(users))
	for i, u := range users {
		row, err := newUserRow(u, i)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}
	if err := s.replaceAll(ctx, "users", insertUser, rows); err != nil {
		return err
	}
	s.logger.Debug("users saved", slog.Int("count", len(users)))
	return nil
}

// SaveUser inserts or replaces a single user.
func (s *Store) SaveUser(ctx context.Context, u models.User) error {
	if err := s.checkReady(); err != nil {
		return err
	}
	pos, err := s.nextPosition(ctx, "users")
	if err != nil {
		return err
	}
	row, err := newUserRow(u, pos)
	if err != nil {
		return err
	}
	_, err = s.db.NamedExecContext(ctx, insertUser+` ON CONFLICT(id) DO UPDATE SET
        login = excluded.login, data = excluded.data`, row)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// Users returns every stored user in save order.
func (s *Store) Users(ctx context.Context) ([]models.User, error) {
	if err := s.checkReady(); err != nil {
		return nil, err
	}
	return loadDocs[models.User](ctx, s, "users")
}

// SaveSprints replaces the whole sprint collection.
func (s *Store) SaveSprints(ctx context.Context, sprints []models.Sprint) error {
	if err := s.checkReady(); err != nil {
		return err
	}
	rows := make([]any, 0, len(sprints))
	for i, sp := range sprints {
		row, err := newSprintRow(sp, i)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}
	if err := s.replaceAll(ctx, "sprints", insertSprint, rows); err != nil {
		return err
	}
	s.logger.Debug("sprints saved", slog.Int("count", len(sprints)))
	return nil
}

// SaveSprint inserts or replaces a single sprint.
func (s *Store) SaveSprint(ctx context.Context, sp models.Sprint) error {
	if err := s.checkReady(); err != nil {
		return err
	}
	pos, err := s.nextPosition(ctx, "sprints")
	if err != nil {
		return err
	}
	row, err := newSprintRow(sp, pos)
	if err != nil {
		return err
	}
	_, err = s.db.NamedExecContext(ctx, insertSprint+` ON CONFLICT(id) DO UPDATE SET
        status = excluded.status, data = excluded.data`, row)
	if err != nil {
		return fmt.Errorf("upsert sprint: %w", err)
	}
	return nil
}

// Sprints returns every stored sprint in save order.
func (s *Store) Sprints(ctx context.Context) ([]models.Sprint, error) {
	if err := s.checkReady(); err != nil {
		return nil, err
	}
	return loadDocs[models.Sprint](ctx, s, "sprints")
}

// SaveSetting stores value as JSON under key.
func (s *Store) SaveSetting(ctx context.Context, key string, value any) error {
	if err := s.checkReady(); err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode setting %q: %w", key, err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO settings(key, value) VALUES(?, ?)
        ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, string(data))
	if err != nil {
		return fmt.Errorf("save setting: %w", err)
	}
	return nil
}

// Setting decodes the value stored under key into dst. It reports false when
// the key has never been saved.
func (s *Store) Setting(ctx context.Context, key string, dst any) (bool, error) {
	if err := s.checkReady(); err != nil {
		return false, err
	}
	var raw string
	err := s.db.GetContext(ctx, &raw, `SELECT value FROM settings WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get setting: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return false, fmt.Errorf("decode setting %q: %w", key, err)
	}
	return true, nil
}

// ClearAll empties every collection, settings included.
func (s *Store) ClearAll(ctx context.Context) error {
	if err := s.checkReady(); err != nil {
		return err
	}
	for _, table := range []string{"tasks", "users", "sprints", "settings"} {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	s.logger.Info("all collections cleared")
	return nil
}
