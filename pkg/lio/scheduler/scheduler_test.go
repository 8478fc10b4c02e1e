package scheduler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/YouMingYeh/lio/pkg/lio/store"
)

type fakeJobs struct {
	jobs    []*store.Job
	deleted []string
	marked  []string
}

func (f *fakeJobs) CreateJob(_ context.Context, job *store.Job) error {
	f.jobs = append(f.jobs, job)
	return nil
}

func (f *fakeJobs) DeleteJobByID(_ context.Context, userID, id string) error {
	f.deleted = append(f.deleted, id)
	for i, j := range f.jobs {
		if j.ID == id && j.UserID == userID {
			f.jobs = append(f.jobs[:i], f.jobs[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeJobs) GetJobsByUserID(_ context.Context, userID string) ([]store.Job, error) {
	var out []store.Job
	for _, j := range f.jobs {
		if j.UserID == userID {
			out = append(out, *j)
		}
	}
	return out, nil
}

func (f *fakeJobs) GetAllJobs(_ context.Context) ([]store.Job, error) {
	out := make([]store.Job, 0, len(f.jobs))
	for _, j := range f.jobs {
		out = append(out, *j)
	}
	return out, nil
}

func (f *fakeJobs) MarkJobRun(_ context.Context, id string, at time.Time) error {
	f.marked = append(f.marked, id)
	for _, j := range f.jobs {
		if j.ID == id {
			t := at
			j.LastRunAt = &t
		}
	}
	return nil
}

type fakeUsers struct {
	users map[string]*store.User
}

func (f *fakeUsers) GetOrCreateByLineID(_ context.Context, lineUserID, _ string) (*store.User, error) {
	for _, u := range f.users {
		if u.LineUserID == lineUserID {
			return u, nil
		}
	}
	return nil, fmt.Errorf("no such user")
}

func (f *fakeUsers) GetByID(_ context.Context, userID string) (*store.User, error) {
	u, ok := f.users[userID]
	if !ok {
		return nil, fmt.Errorf("no such user %q", userID)
	}
	return u, nil
}

func (f *fakeUsers) Deactivate(_ context.Context, _ string) error { return nil }

func (f *fakeUsers) SetVoice(_ context.Context, _, _ string) error { return nil }

type fakePusher struct {
	pushed []string
	err    error
}

func (f *fakePusher) Push(_ context.Context, lineUserID, text string) error {
	if f.err != nil {
		return f.err
	}
	f.pushed = append(f.pushed, lineUserID+": "+text)
	return nil
}

func testScheduler(jobs *fakeJobs, users *fakeUsers, pusher *fakePusher, now time.Time) *Scheduler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := New(jobs, users, pusher, "Asia/Taipei", time.Minute, logger)
	s.now = func() time.Time { return now }
	return s
}

func activeUsers() *fakeUsers {
	return &fakeUsers{users: map[string]*store.User{
		"u1": {ID: "u1", LineUserID: "U123", Active: true},
	}}
}

func TestOneTimeJobFiresAndIsDeleted(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	jobs := &fakeJobs{jobs: []*store.Job{{
		ID:       "j1",
		UserID:   "u1",
		Name:     "吃藥",
		Schedule: now.Add(-time.Second).Format(time.RFC3339),
		Type:     store.JobOneTime,
		Message:  "該吃藥了",
	}}}
	pusher := &fakePusher{}
	s := testScheduler(jobs, activeUsers(), pusher, now)

	s.tick(context.Background())

	if len(pusher.pushed) != 1 {
		t.Fatalf("pushed %d, want 1: %v", len(pusher.pushed), pusher.pushed)
	}
	if pusher.pushed[0] != "U123: ⏰ 提醒：該吃藥了" {
		t.Errorf("pushed = %q", pusher.pushed[0])
	}
	if len(jobs.deleted) != 1 || jobs.deleted[0] != "j1" {
		t.Errorf("fired one-time job must be deleted: %v", jobs.deleted)
	}
}

func TestOneTimeJobFromLocalInputFires(t *testing.T) {
	// scheduleJob accepts "YYYY-MM-DD HH:MM" in the user's timezone and
	// stores the RFC 3339 form; the runner must fire that stored form.
	taipei, _ := time.LoadLocation("Asia/Taipei")
	at, err := time.ParseInLocation("2006-01-02 15:04", "2026-03-14 18:00", taipei)
	if err != nil {
		t.Fatalf("parsing local input: %v", err)
	}

	now := at.Add(30 * time.Second)
	jobs := &fakeJobs{jobs: []*store.Job{{
		ID:       "j1",
		UserID:   "u1",
		Name:     "晚餐",
		Schedule: at.Format(time.RFC3339),
		Type:     store.JobOneTime,
		Message:  "吃飯",
	}}}
	pusher := &fakePusher{}
	s := testScheduler(jobs, activeUsers(), pusher, now)

	s.tick(context.Background())

	if len(pusher.pushed) != 1 {
		t.Fatalf("pushed %d, want 1: %v", len(pusher.pushed), pusher.pushed)
	}
	if len(jobs.deleted) != 1 || jobs.deleted[0] != "j1" {
		t.Errorf("fired one-time job must be deleted: %v", jobs.deleted)
	}
}

func TestOneTimeJobWithUnparseableScheduleIsSkipped(t *testing.T) {
	now := time.Date(2026, 3, 14, 18, 0, 30, 0, time.UTC)
	jobs := &fakeJobs{jobs: []*store.Job{{
		ID:       "j1",
		UserID:   "u1",
		Schedule: "2026-03-14 18:00",
		Type:     store.JobOneTime,
	}}}
	pusher := &fakePusher{}
	s := testScheduler(jobs, activeUsers(), pusher, now)

	s.tick(context.Background())

	if len(pusher.pushed) != 0 {
		t.Errorf("unparseable schedule fired: %v", pusher.pushed)
	}
	if len(jobs.deleted) != 0 {
		t.Errorf("unparseable schedule deleted: %v", jobs.deleted)
	}
}

func TestFutureOneTimeJobDoesNotFire(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	jobs := &fakeJobs{jobs: []*store.Job{{
		ID:       "j1",
		UserID:   "u1",
		Schedule: now.Add(10 * time.Minute).Format(time.RFC3339),
		Type:     store.JobOneTime,
	}}}
	pusher := &fakePusher{}
	s := testScheduler(jobs, activeUsers(), pusher, now)

	s.tick(context.Background())

	if len(pusher.pushed) != 0 {
		t.Errorf("future job fired: %v", pusher.pushed)
	}
	if len(jobs.deleted) != 0 {
		t.Errorf("future job deleted: %v", jobs.deleted)
	}
}

func TestCronJobFiresInWindowOnce(t *testing.T) {
	// 08:00 Taipei matches "0 8 * * *"; the poll lands seconds after.
	loc, _ := time.LoadLocation("Asia/Taipei")
	now := time.Date(2026, 3, 14, 8, 0, 30, 0, loc)
	jobs := &fakeJobs{jobs: []*store.Job{{
		ID:       "j1",
		UserID:   "u1",
		Name:     "早安",
		Schedule: "0 8 * * *",
		Type:     store.JobCron,
		Message:  "早安！",
	}}}
	pusher := &fakePusher{}
	s := testScheduler(jobs, activeUsers(), pusher, now)

	s.tick(context.Background())
	if len(pusher.pushed) != 1 {
		t.Fatalf("pushed %d, want 1", len(pusher.pushed))
	}
	if len(jobs.marked) != 1 {
		t.Errorf("cron job run not recorded: %v", jobs.marked)
	}
	if len(jobs.deleted) != 0 {
		t.Errorf("cron job must not be deleted: %v", jobs.deleted)
	}

	// The next poll in the same window must not fire again.
	s.now = func() time.Time { return now.Add(time.Minute) }
	s.tick(context.Background())
	if len(pusher.pushed) != 1 {
		t.Errorf("cron job double fired: %v", pusher.pushed)
	}
}

func TestCronJobOffWindowDoesNotFire(t *testing.T) {
	loc, _ := time.LoadLocation("Asia/Taipei")
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, loc)
	jobs := &fakeJobs{jobs: []*store.Job{{
		ID:       "j1",
		UserID:   "u1",
		Schedule: "0 8 * * *",
		Type:     store.JobCron,
	}}}
	pusher := &fakePusher{}
	s := testScheduler(jobs, activeUsers(), pusher, now)

	s.tick(context.Background())
	if len(pusher.pushed) != 0 {
		t.Errorf("off-window cron fired: %v", pusher.pushed)
	}
}

func TestPushFailureKeepsOneTimeJob(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	jobs := &fakeJobs{jobs: []*store.Job{{
		ID:       "j1",
		UserID:   "u1",
		Schedule: now.Format(time.RFC3339),
		Type:     store.JobOneTime,
	}}}
	pusher := &fakePusher{err: fmt.Errorf("push down")}
	s := testScheduler(jobs, activeUsers(), pusher, now)

	s.tick(context.Background())
	if len(jobs.deleted) != 0 {
		t.Errorf("undelivered one-time job deleted: %v", jobs.deleted)
	}
}

func TestInactiveUserReminderDropped(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	jobs := &fakeJobs{jobs: []*store.Job{{
		ID:       "j1",
		UserID:   "u1",
		Schedule: now.Format(time.RFC3339),
		Type:     store.JobOneTime,
	}}}
	users := &fakeUsers{users: map[string]*store.User{
		"u1": {ID: "u1", LineUserID: "U123", Active: false},
	}}
	pusher := &fakePusher{}
	s := testScheduler(jobs, users, pusher, now)

	s.tick(context.Background())
	if len(pusher.pushed) != 0 {
		t.Errorf("inactive user got a push: %v", pusher.pushed)
	}
	if len(jobs.deleted) != 1 {
		t.Errorf("stale one-time job should still be cleaned up: %v", jobs.deleted)
	}
}

func TestUnreadableScheduleSkipped(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	jobs := &fakeJobs{jobs: []*store.Job{{
		ID:       "j1",
		UserID:   "u1",
		Schedule: "whenever",
		Type:     store.JobOneTime,
	}}}
	pusher := &fakePusher{}
	s := testScheduler(jobs, activeUsers(), pusher, now)

	s.tick(context.Background())
	if len(pusher.pushed) != 0 || len(jobs.deleted) != 0 {
		t.Errorf("unreadable schedule acted on: pushed=%v deleted=%v",
			pusher.pushed, jobs.deleted)
	}
}
