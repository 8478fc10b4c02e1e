// Package scheduler runs reminder jobs: a polling loop that fires one-time
// reminders at their timestamp and cron reminders whenever their expression
// matches, pushing the reminder text to the owning user.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/YouMingYeh/lio/pkg/lio/store"
)

// Pusher delivers a reminder message to a user outside a reply window.
type Pusher interface {
	Push(ctx context.Context, lineUserID, text string) error
}

// Scheduler polls the job table and fires due reminders.
type Scheduler struct {
	jobs     store.JobStore
	users    store.UserStore
	pusher   Pusher
	location *time.Location
	interval time.Duration
	logger   *slog.Logger

	// now is swappable in tests.
	now func() time.Time
}

// New creates a scheduler. interval is how often jobs are polled; it should
// divide the minimum reminder granularity.
func New(jobs store.JobStore, users store.UserStore, pusher Pusher, timezone string, interval time.Duration, logger *slog.Logger) *Scheduler {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		jobs:     jobs,
		users:    users,
		pusher:   pusher,
		location: loc,
		interval: interval,
		logger:   logger.With("component", "scheduler"),
		now:      time.Now,
	}
}

// Run polls until the context is cancelled. One pass runs immediately so
// reminders missed during a short restart fire without waiting a full tick.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("scheduler started", "interval", s.interval.String())
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick fires every due job once.
func (s *Scheduler) tick(ctx context.Context) {
	jobs, err := s.jobs.GetAllJobs(ctx)
	if err != nil {
		s.logger.Error("loading jobs failed", "error", err)
		return
	}

	now := s.now().In(s.location)
	for _, job := range jobs {
		due, err := s.isDue(job, now)
		if err != nil {
			s.logger.Warn("unreadable job schedule, skipping",
				"job_id", job.ID, "schedule", job.Schedule, "error", err)
			continue
		}
		if !due {
			continue
		}
		s.fire(ctx, job, now)
	}
}

// isDue reports whether the job should fire in the window ending at now.
func (s *Scheduler) isDue(job store.Job, now time.Time) (bool, error) {
	switch job.Type {
	case store.JobOneTime:
		at, err := time.ParseInLocation(time.RFC3339, job.Schedule, s.location)
		if err != nil {
			return false, fmt.Errorf("parsing timestamp: %w", err)
		}
		return !now.Before(at), nil

	case store.JobCron:
		expr, err := cron.ParseStandard(job.Schedule)
		if err != nil {
			return false, fmt.Errorf("parsing cron expression: %w", err)
		}
		// Fire when a scheduled instant fell inside the last poll window.
		// LastRunAt guards against double firing within one window.
		next := expr.Next(now.Add(-s.interval))
		if next.After(now) {
			return false, nil
		}
		if job.LastRunAt != nil && !job.LastRunAt.Before(next) {
			return false, nil
		}
		return true, nil

	default:
		return false, fmt.Errorf("unknown job type %q", job.Type)
	}
}

// fire pushes the reminder and updates job state. One-time jobs are removed
// after a successful push; cron jobs record the run.
func (s *Scheduler) fire(ctx context.Context, job store.Job, now time.Time) {
	user, err := s.users.GetByID(ctx, job.UserID)
	if err != nil {
		s.logger.Error("resolving job owner failed", "job_id", job.ID, "error", err)
		return
	}
	if !user.Active {
		s.logger.Debug("owner inactive, dropping reminder", "job_id", job.ID)
		if job.Type == store.JobOneTime {
			if err := s.jobs.DeleteJobByID(ctx, job.UserID, job.ID); err != nil {
				s.logger.Error("deleting fired job failed", "job_id", job.ID, "error", err)
			}
		}
		return
	}

	text := reminderText(job)
	if err := s.pusher.Push(ctx, user.LineUserID, text); err != nil {
		s.logger.Error("pushing reminder failed", "job_id", job.ID, "error", err)
		return
	}
	s.logger.Info("reminder fired", "job_id", job.ID, "name", job.Name, "type", string(job.Type))

	switch job.Type {
	case store.JobOneTime:
		if err := s.jobs.DeleteJobByID(ctx, job.UserID, job.ID); err != nil {
			s.logger.Error("deleting fired job failed", "job_id", job.ID, "error", err)
		}
	case store.JobCron:
		if err := s.jobs.MarkJobRun(ctx, job.ID, now); err != nil {
			s.logger.Error("recording job run failed", "job_id", job.ID, "error", err)
		}
	}
}

// reminderText formats the outgoing reminder.
func reminderText(job store.Job) string {
	if job.Message != "" {
		return fmt.Sprintf("⏰ 提醒：%s", job.Message)
	}
	return fmt.Sprintf("⏰ 提醒：%s", job.Name)
}
