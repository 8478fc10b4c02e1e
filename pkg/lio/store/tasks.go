// Package store – tasks.go persists user tasks.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TaskStore persists user tasks.
type TaskStore interface {
	GetTasksByUserID(ctx context.Context, userID string) ([]Task, error)
	CreateTask(ctx context.Context, task *Task) error
	CreateTasks(ctx context.Context, tasks []*Task) error
	UpdateTaskByID(ctx context.Context, userID, id string, update TaskUpdate) (*Task, error)
	DeleteTaskByID(ctx context.Context, userID, id string) error
}

// SQLiteTaskStore implements TaskStore on the shared database.
type SQLiteTaskStore struct {
	db *sql.DB
}

// NewTaskStore creates a SQLite-backed task store.
func NewTaskStore(db *sql.DB) *SQLiteTaskStore {
	return &SQLiteTaskStore{db: db}
}

// GetTasksByUserID returns all tasks for the user, newest first.
func (s *SQLiteTaskStore) GetTasksByUserID(ctx context.Context, userID string) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, title, description, due_at, priority, completed, created_at
		FROM tasks WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("load tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// CreateTask stores one task. A missing ID is generated and an unset
// priority defaults to medium.
func (s *SQLiteTaskStore) CreateTask(ctx context.Context, task *Task) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.Priority == "" {
		task.Priority = PriorityMedium
	}
	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now()
	}

	var dueAt sql.NullString
	if task.DueAt != nil {
		dueAt = sql.NullString{String: task.DueAt.UTC().Format(time.RFC3339), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, user_id, title, description, due_at, priority, completed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.UserID, task.Title, task.Description, dueAt,
		string(task.Priority), boolToInt(task.Completed),
		task.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("create task %q: %w", task.Title, err)
	}
	return nil
}

// CreateTasks stores several tasks in one transaction.
func (s *SQLiteTaskStore) CreateTasks(ctx context.Context, tasks []*Task) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, task := range tasks {
		if task.ID == "" {
			task.ID = uuid.NewString()
		}
		if task.Priority == "" {
			task.Priority = PriorityMedium
		}
		if task.CreatedAt.IsZero() {
			task.CreatedAt = time.Now()
		}
		var dueAt sql.NullString
		if task.DueAt != nil {
			dueAt = sql.NullString{String: task.DueAt.UTC().Format(time.RFC3339), Valid: true}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO tasks (id, user_id, title, description, due_at, priority, completed, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			task.ID, task.UserID, task.Title, task.Description, dueAt,
			string(task.Priority), boolToInt(task.Completed),
			task.CreatedAt.UTC().Format(time.RFC3339),
		); err != nil {
			return fmt.Errorf("create task %q: %w", task.Title, err)
		}
	}
	return tx.Commit()
}

// UpdateTaskByID applies a partial update and returns the updated task.
// Returns sql.ErrNoRows when the task does not exist for the user.
func (s *SQLiteTaskStore) UpdateTaskByID(ctx context.Context, userID, id string, update TaskUpdate) (*Task, error) {
	current, err := s.getTask(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if update.Title != nil {
		current.Title = *update.Title
	}
	if update.Description != nil {
		current.Description = *update.Description
	}
	if update.DueAt != nil {
		current.DueAt = update.DueAt
	}
	if update.Priority != nil {
		current.Priority = *update.Priority
	}
	if update.Completed != nil {
		current.Completed = *update.Completed
	}

	var dueAt sql.NullString
	if current.DueAt != nil {
		dueAt = sql.NullString{String: current.DueAt.UTC().Format(time.RFC3339), Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE tasks SET title = ?, description = ?, due_at = ?, priority = ?, completed = ?
		WHERE id = ? AND user_id = ?`,
		current.Title, current.Description, dueAt, string(current.Priority),
		boolToInt(current.Completed), id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("update task %q: %w", id, err)
	}
	return current, nil
}

// DeleteTaskByID removes a task. Missing rows are not an error.
func (s *SQLiteTaskStore) DeleteTaskByID(ctx context.Context, userID, id string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM tasks WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("delete task %q: %w", id, err)
	}
	return nil
}

func (s *SQLiteTaskStore) getTask(ctx context.Context, userID, id string) (*Task, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, description, due_at, priority, completed, created_at
		FROM tasks WHERE id = ? AND user_id = ?`, id, userID)
	return scanTask(row)
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*Task, error) {
	var (
		t         Task
		dueAt     sql.NullString
		priority  string
		completed int
		createdAt string
	)
	if err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &dueAt,
		&priority, &completed, &createdAt); err != nil {
		return nil, err
	}
	if dueAt.Valid {
		if parsed, err := time.Parse(time.RFC3339, dueAt.String); err == nil {
			t.DueAt = &parsed
		}
	}
	t.Priority = Priority(priority)
	t.Completed = completed != 0
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
