package assistant

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/YouMingYeh/lio/pkg/lio/store"
)

// In-memory store fakes shared across the package tests. They are not
// concurrency-safe; tests drive them from a single goroutine.

type memTasks struct {
	tasks  []*store.Task
	nextID int
}

func (m *memTasks) id() string {
	m.nextID++
	return "task-" + strconv.Itoa(m.nextID)
}

func (m *memTasks) GetTasksByUserID(_ context.Context, userID string) ([]store.Task, error) {
	var out []store.Task
	for _, t := range m.tasks {
		if t.UserID == userID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (m *memTasks) CreateTask(_ context.Context, task *store.Task) error {
	if task.ID == "" {
		task.ID = m.id()
	}
	m.tasks = append(m.tasks, task)
	return nil
}

func (m *memTasks) CreateTasks(ctx context.Context, tasks []*store.Task) error {
	for _, t := range tasks {
		if err := m.CreateTask(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

func (m *memTasks) UpdateTaskByID(_ context.Context, userID, id string, update store.TaskUpdate) (*store.Task, error) {
	for _, t := range m.tasks {
		if t.ID != id || t.UserID != userID {
			continue
		}
		if update.Title != nil {
			t.Title = *update.Title
		}
		if update.Description != nil {
			t.Description = *update.Description
		}
		if update.DueAt != nil {
			t.DueAt = update.DueAt
		}
		if update.Priority != nil {
			t.Priority = *update.Priority
		}
		if update.Completed != nil {
			t.Completed = *update.Completed
		}
		copied := *t
		return &copied, nil
	}
	return nil, fmt.Errorf("task %q not found", id)
}

func (m *memTasks) DeleteTaskByID(_ context.Context, userID, id string) error {
	for i, t := range m.tasks {
		if t.ID == id && t.UserID == userID {
			m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("task %q not found", id)
}

type memJobs struct {
	jobs   []*store.Job
	nextID int
}

func (m *memJobs) CreateJob(_ context.Context, job *store.Job) error {
	if job.ID == "" {
		m.nextID++
		job.ID = "job-" + strconv.Itoa(m.nextID)
	}
	m.jobs = append(m.jobs, job)
	return nil
}

func (m *memJobs) DeleteJobByID(_ context.Context, userID, id string) error {
	for i, j := range m.jobs {
		if j.ID == id && j.UserID == userID {
			m.jobs = append(m.jobs[:i], m.jobs[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("job %q not found", id)
}

func (m *memJobs) GetJobsByUserID(_ context.Context, userID string) ([]store.Job, error) {
	var out []store.Job
	for _, j := range m.jobs {
		if j.UserID == userID {
			out = append(out, *j)
		}
	}
	return out, nil
}

func (m *memJobs) GetAllJobs(_ context.Context) ([]store.Job, error) {
	out := make([]store.Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		out = append(out, *j)
	}
	return out, nil
}

func (m *memJobs) MarkJobRun(_ context.Context, id string, at time.Time) error {
	for _, j := range m.jobs {
		if j.ID == id {
			t := at
			j.LastRunAt = &t
			return nil
		}
	}
	return fmt.Errorf("job %q not found", id)
}

type memMemories struct {
	memories []*store.Memory
	nextID   int
}

func (m *memMemories) CreateMemory(_ context.Context, memory *store.Memory) error {
	if memory.ID == "" {
		m.nextID++
		memory.ID = "mem-" + strconv.Itoa(m.nextID)
	}
	m.memories = append(m.memories, memory)
	return nil
}

func (m *memMemories) GetMemoriesByUserID(_ context.Context, userID string) ([]store.Memory, error) {
	var out []store.Memory
	for _, mem := range m.memories {
		if mem.UserID == userID {
			out = append(out, *mem)
		}
	}
	return out, nil
}

func (m *memMemories) SearchMemoriesByUserID(_ context.Context, userID, query string) ([]store.Memory, error) {
	var out []store.Memory
	for _, mem := range m.memories {
		if mem.UserID == userID && strings.Contains(mem.Content, query) {
			out = append(out, *mem)
		}
	}
	return out, nil
}

func (m *memMemories) DeleteMemoryByID(_ context.Context, userID, id string) error {
	for i, mem := range m.memories {
		if mem.ID == id && mem.UserID == userID {
			m.memories = append(m.memories[:i], m.memories[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("memory %q not found", id)
}

type memFeedback struct {
	entries []*store.Feedback
}

func (m *memFeedback) CreateFeedback(_ context.Context, fb *store.Feedback) error {
	m.entries = append(m.entries, fb)
	return nil
}

type memMessages struct {
	rows []*store.ConversationMessage
}

func (m *memMessages) CreateMessage(_ context.Context, msg *store.ConversationMessage) error {
	m.rows = append(m.rows, msg)
	return nil
}

func (m *memMessages) GetMessagesByUserID(_ context.Context, userID string, limit int) ([]store.ConversationMessage, error) {
	var out []store.ConversationMessage
	for _, r := range m.rows {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

type fakeSearcher struct {
	answer string
}

func (f *fakeSearcher) SearchCompletion(_ context.Context, _ string) (string, error) {
	return f.answer, nil
}
