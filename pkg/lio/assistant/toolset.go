// Package assistant – toolset.go builds the capability registry for one
// generation run, with every executor bound to the current user and the
// injected stores. Tool effects are at-least-once: a retried generation
// run re-executes tools without rolling back the first run's effects.
package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/YouMingYeh/lio/pkg/lio/store"
)

// minReminderGranularity is the finest reminder spacing scheduleJob accepts.
const minReminderGranularity = 5 * time.Minute

// Toolset bundles the collaborators tool executors need.
type Toolset struct {
	tasks    store.TaskStore
	jobs     store.JobStore
	memories store.MemoryStore
	feedback store.FeedbackStore
	searcher WebSearcher
	loader   *WebLoader
	location *time.Location
	now      func() time.Time
	logger   *slog.Logger
}

// NewToolset creates a toolset over the given stores and services.
func NewToolset(
	tasks store.TaskStore,
	jobs store.JobStore,
	memories store.MemoryStore,
	feedback store.FeedbackStore,
	searcher WebSearcher,
	loader *WebLoader,
	location *time.Location,
	logger *slog.Logger,
) *Toolset {
	if location == nil {
		location = time.UTC
	}
	return &Toolset{
		tasks:    tasks,
		jobs:     jobs,
		memories: memories,
		feedback: feedback,
		searcher: searcher,
		loader:   loader,
		location: location,
		now:      time.Now,
		logger:   logger,
	}
}

// Registry builds the full capability registry bound to one user.
func (ts *Toolset) Registry(user *store.User) *Registry {
	r := NewRegistry(ts.logger)
	uid := user.ID

	taskProps := map[string]any{
		"title":       prop("string", "任務標題"),
		"description": prop("string", "任務說明"),
		"dueAt":       prop("string", "期限，RFC 3339 或 YYYY-MM-DD"),
		"priority":    prop("string", "low、medium、high 或 urgent"),
	}

	r.Register(Tool{
		Name:        "getTasks",
		Description: "列出使用者的所有任務",
		Parameters:  objectSchema(map[string]any{}),
		Handler: func(ctx context.Context, _ map[string]any) (any, error) {
			return ts.tasks.GetTasksByUserID(ctx, uid)
		},
	})

	r.Register(Tool{
		Name:        "addTask",
		Description: "建立一個任務",
		Parameters:  objectSchema(taskProps, "title"),
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			task, err := ts.taskFromArgs(uid, args)
			if err != nil {
				return nil, err
			}
			if err := ts.tasks.CreateTask(ctx, task); err != nil {
				return nil, err
			}
			return task, nil
		},
	})

	r.Register(Tool{
		Name:        "addTasks",
		Description: "一次建立多個任務",
		Parameters: objectSchema(map[string]any{
			"tasks": map[string]any{
				"type":        "array",
				"description": "要建立的任務清單",
				"items":       objectSchema(taskProps, "title"),
			},
		}, "tasks"),
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			items, _ := args["tasks"].([]any)
			if len(items) == 0 {
				return nil, fmt.Errorf("tasks must be a non-empty array")
			}
			tasks := make([]*store.Task, 0, len(items))
			for _, item := range items {
				obj, ok := item.(map[string]any)
				if !ok {
					return nil, fmt.Errorf("each task must be an object")
				}
				task, err := ts.taskFromArgs(uid, obj)
				if err != nil {
					return nil, err
				}
				tasks = append(tasks, task)
			}
			if err := ts.tasks.CreateTasks(ctx, tasks); err != nil {
				return nil, err
			}
			return tasks, nil
		},
	})

	r.Register(Tool{
		Name:        "updateTask",
		Description: "部分更新一個任務",
		Parameters: objectSchema(map[string]any{
			"id":          prop("string", "任務 ID"),
			"title":       prop("string", "新標題"),
			"description": prop("string", "新說明"),
			"dueAt":       prop("string", "新期限，RFC 3339 或 YYYY-MM-DD"),
			"priority":    prop("string", "low、medium、high 或 urgent"),
			"completed":   prop("boolean", "是否已完成"),
		}, "id"),
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			id, _ := args["id"].(string)
			update := store.TaskUpdate{}
			if v, ok := args["title"].(string); ok {
				update.Title = &v
			}
			if v, ok := args["description"].(string); ok {
				update.Description = &v
			}
			if v, ok := args["dueAt"].(string); ok {
				due, err := ts.parseWhen(v)
				if err != nil {
					return nil, err
				}
				update.DueAt = &due
			}
			if v, ok := args["priority"].(string); ok {
				p := store.Priority(v)
				if !store.ValidPriority(p) {
					return nil, fmt.Errorf("invalid priority %q", v)
				}
				update.Priority = &p
			}
			if v, ok := args["completed"].(bool); ok {
				update.Completed = &v
			}
			return ts.tasks.UpdateTaskByID(ctx, uid, id, update)
		},
	})

	r.Register(Tool{
		Name:        "deleteTask",
		Description: "刪除一個任務",
		Parameters: objectSchema(map[string]any{
			"id": prop("string", "任務 ID"),
		}, "id"),
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			id, _ := args["id"].(string)
			if err := ts.tasks.DeleteTaskByID(ctx, uid, id); err != nil {
				return nil, err
			}
			return "deleted", nil
		},
	})

	r.Register(Tool{
		Name:        "scheduleJob",
		Description: "建立提醒。type 為 one-time（schedule 為 RFC 3339 時間）或 cron（schedule 為 5 欄 cron 表達式），最小間隔 5 分鐘",
		Parameters: objectSchema(map[string]any{
			"name":     prop("string", "提醒名稱"),
			"schedule": prop("string", "RFC 3339 時間或 cron 表達式"),
			"type":     prop("string", "one-time 或 cron"),
			"message":  prop("string", "提醒時要送出的訊息"),
		}, "name", "schedule", "type", "message"),
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			job := &store.Job{
				UserID:   uid,
				Name:     args["name"].(string),
				Schedule: args["schedule"].(string),
				Type:     store.JobType(args["type"].(string)),
				Message:  args["message"].(string),
			}
			if err := ts.validateSchedule(job); err != nil {
				return nil, err
			}
			if err := ts.jobs.CreateJob(ctx, job); err != nil {
				return nil, err
			}
			return job, nil
		},
	})

	r.Register(Tool{
		Name:        "removeJob",
		Description: "刪除一個提醒",
		Parameters: objectSchema(map[string]any{
			"id": prop("string", "提醒 ID"),
		}, "id"),
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			id, _ := args["id"].(string)
			if err := ts.jobs.DeleteJobByID(ctx, uid, id); err != nil {
				return nil, err
			}
			return "deleted", nil
		},
	})

	r.Register(Tool{
		Name:        "getJobs",
		Description: "列出使用者的提醒",
		Parameters:  objectSchema(map[string]any{}),
		Handler: func(ctx context.Context, _ map[string]any) (any, error) {
			return ts.jobs.GetJobsByUserID(ctx, uid)
		},
	})

	r.Register(Tool{
		Name:        "createMemory",
		Description: "記住一件關於使用者的事",
		Parameters: objectSchema(map[string]any{
			"content": prop("string", "要記住的內容"),
		}, "content"),
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			memory := &store.Memory{UserID: uid, Content: args["content"].(string)}
			if err := ts.memories.CreateMemory(ctx, memory); err != nil {
				return nil, err
			}
			return memory, nil
		},
	})

	r.Register(Tool{
		Name:        "retrieveMemories",
		Description: "搜尋或列出記憶",
		Parameters: objectSchema(map[string]any{
			"query": prop("string", "搜尋關鍵字，留空則列出全部"),
		}),
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			query, _ := args["query"].(string)
			if query == "" {
				return ts.memories.GetMemoriesByUserID(ctx, uid)
			}
			return ts.memories.SearchMemoriesByUserID(ctx, uid, query)
		},
	})

	r.Register(Tool{
		Name:        "deleteMemory",
		Description: "刪除一則記憶",
		Parameters: objectSchema(map[string]any{
			"id": prop("string", "記憶 ID"),
		}, "id"),
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			id, _ := args["id"].(string)
			if err := ts.memories.DeleteMemoryByID(ctx, uid, id); err != nil {
				return nil, err
			}
			return "deleted", nil
		},
	})

	r.Register(Tool{
		Name:        "userFeedback",
		Description: "記錄使用者對助理的回饋",
		Parameters: objectSchema(map[string]any{
			"feedback": prop("string", "回饋內容"),
		}, "feedback"),
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			fb := &store.Feedback{UserID: uid, Content: args["feedback"].(string)}
			if err := ts.feedback.CreateFeedback(ctx, fb); err != nil {
				return nil, err
			}
			return "recorded", nil
		},
	})

	r.Register(Tool{
		Name:        "searchWeb",
		Description: "搜尋網路並回傳整理過的答案",
		Parameters: objectSchema(map[string]any{
			"query": prop("string", "搜尋內容"),
		}, "query"),
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return ts.searcher.SearchCompletion(ctx, args["query"].(string))
		},
	})

	r.Register(Tool{
		Name:        "loadWebContent",
		Description: "抓取網頁並回傳其文字內容",
		Parameters: objectSchema(map[string]any{
			"url": prop("string", "網頁網址"),
		}, "url"),
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return ts.loader.LoadWebContent(ctx, args["url"].(string))
		},
	})

	r.Register(Tool{
		Name:        "loadFileContent",
		Description: "下載檔案並回傳其文字內容",
		Parameters: objectSchema(map[string]any{
			"url": prop("string", "檔案網址"),
		}, "url"),
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return ts.loader.LoadFileContent(ctx, args["url"].(string))
		},
	})

	return r
}

// taskFromArgs builds a task from validated tool arguments.
func (ts *Toolset) taskFromArgs(userID string, args map[string]any) (*store.Task, error) {
	title, _ := args["title"].(string)
	if title == "" {
		return nil, fmt.Errorf("title is required")
	}
	task := &store.Task{UserID: userID, Title: title}
	if v, ok := args["description"].(string); ok {
		task.Description = v
	}
	if v, ok := args["dueAt"].(string); ok && v != "" {
		due, err := ts.parseWhen(v)
		if err != nil {
			return nil, err
		}
		task.DueAt = &due
	}
	if v, ok := args["priority"].(string); ok && v != "" {
		p := store.Priority(v)
		if !store.ValidPriority(p) {
			return nil, fmt.Errorf("invalid priority %q", v)
		}
		task.Priority = p
	}
	return task, nil
}

// parseWhen parses RFC 3339, "YYYY-MM-DD HH:MM", or date-only timestamps
// in the user's timezone.
func (ts *Toolset) parseWhen(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02 15:04", s, ts.location); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, ts.location); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid time %q (use RFC 3339 or YYYY-MM-DD)", s)
}

// validateSchedule enforces the job type grammar and the 5-minute floor.
// One-time schedules are rewritten to RFC 3339 before storage.
func (ts *Toolset) validateSchedule(job *store.Job) error {
	switch job.Type {
	case store.JobOneTime:
		at, err := ts.parseWhen(job.Schedule)
		if err != nil {
			return err
		}
		if at.Before(ts.now().Add(minReminderGranularity)) {
			return fmt.Errorf("one-time reminders must be at least %s in the future", minReminderGranularity)
		}
		// The runner parses one-time schedules as RFC 3339; store that
		// form no matter which input format the model used.
		job.Schedule = at.Format(time.RFC3339)
	case store.JobCron:
		sched, err := cron.ParseStandard(job.Schedule)
		if err != nil {
			return fmt.Errorf("invalid cron expression %q: %w", job.Schedule, err)
		}
		next := sched.Next(ts.now())
		if sched.Next(next).Sub(next) < minReminderGranularity {
			return fmt.Errorf("cron reminders may not fire more often than every %s", minReminderGranularity)
		}
	default:
		return fmt.Errorf("invalid job type %q (use one-time or cron)", job.Type)
	}
	return nil
}
