// Package store – jobs.go persists scheduled reminder jobs.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobStore persists scheduled reminder jobs.
type JobStore interface {
	CreateJob(ctx context.Context, job *Job) error
	DeleteJobByID(ctx context.Context, userID, id string) error
	GetJobsByUserID(ctx context.Context, userID string) ([]Job, error)

	// GetAllJobs returns every job across users. Used by the reminder runner.
	GetAllJobs(ctx context.Context) ([]Job, error)

	// MarkJobRun records a job's last firing time.
	MarkJobRun(ctx context.Context, id string, at time.Time) error
}

// SQLiteJobStore implements JobStore on the shared database.
type SQLiteJobStore struct {
	db *sql.DB
}

// NewJobStore creates a SQLite-backed job store.
func NewJobStore(db *sql.DB) *SQLiteJobStore {
	return &SQLiteJobStore{db: db}
}

// CreateJob stores one job. A missing ID is generated.
func (s *SQLiteJobStore) CreateJob(ctx context.Context, job *Job) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (id, user_id, name, schedule, type, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.UserID, job.Name, job.Schedule, string(job.Type),
		job.Message, job.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("create job %q: %w", job.Name, err)
	}
	return nil
}

// DeleteJobByID removes a job.
func (s *SQLiteJobStore) DeleteJobByID(ctx context.Context, userID, id string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM jobs WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("delete job %q: %w", id, err)
	}
	return nil
}

// GetJobsByUserID returns the user's jobs, newest first.
func (s *SQLiteJobStore) GetJobsByUserID(ctx context.Context, userID string) ([]Job, error) {
	return s.queryJobs(ctx,
		"SELECT id, user_id, name, schedule, type, message, created_at, last_run_at FROM jobs WHERE user_id = ? ORDER BY created_at DESC",
		userID)
}

// GetAllJobs returns every job across users.
func (s *SQLiteJobStore) GetAllJobs(ctx context.Context) ([]Job, error) {
	return s.queryJobs(ctx,
		"SELECT id, user_id, name, schedule, type, message, created_at, last_run_at FROM jobs")
}

// MarkJobRun records the job's last firing time.
func (s *SQLiteJobStore) MarkJobRun(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE jobs SET last_run_at = ? WHERE id = ?",
		at.UTC().Format(time.RFC3339), id)
	if err != nil {
		return fmt.Errorf("mark job run %q: %w", id, err)
	}
	return nil
}

func (s *SQLiteJobStore) queryJobs(ctx context.Context, query string, args ...any) ([]Job, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var (
			j         Job
			jobType   string
			createdAt string
			lastRunAt sql.NullString
		)
		if err := rows.Scan(&j.ID, &j.UserID, &j.Name, &j.Schedule, &jobType,
			&j.Message, &createdAt, &lastRunAt); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		j.Type = JobType(jobType)
		j.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		if lastRunAt.Valid {
			if t, err := time.Parse(time.RFC3339, lastRunAt.String); err == nil {
				j.LastRunAt = &t
			}
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}
