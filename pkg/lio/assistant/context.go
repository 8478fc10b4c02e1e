// Package assistant – context.go assembles the system prompt and the
// LLM-ready message history for one incoming message. Pure data shaping:
// missing fields render as explicit placeholders, nothing here fails.
package assistant

import (
	"fmt"
	"strings"
	"time"

	"github.com/YouMingYeh/lio/pkg/lio/llm"
	"github.com/YouMingYeh/lio/pkg/lio/store"
)

// ContextBuilder shapes prompts from the user's profile, open tasks, and
// the wall clock.
type ContextBuilder struct {
	// Name is the assistant persona name.
	Name string

	// Language is the preferred response language.
	Language string

	// Location renders timestamps in the user's timezone.
	Location *time.Location

	// Now supplies the wall clock; defaults to time.Now.
	Now func() time.Time
}

// NewContextBuilder creates a builder for the given persona and timezone.
func NewContextBuilder(name, language, timezone string) *ContextBuilder {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}
	return &ContextBuilder{
		Name:     name,
		Language: language,
		Location: loc,
		Now:      time.Now,
	}
}

// SystemPrompt builds the system prompt from the user's profile, their open
// tasks, and the current time.
func (b *ContextBuilder) SystemPrompt(user *store.User, tasks []store.Task) string {
	now := b.Now().In(b.Location)

	var sb strings.Builder
	fmt.Fprintf(&sb, "你是 %s，一位貼心的個人助理，透過 LINE 陪伴使用者。\n", b.Name)
	fmt.Fprintf(&sb, "請使用%s回覆，語氣自然、簡潔、友善。\n\n", languageName(b.Language))

	sb.WriteString("回覆格式：\n")
	sb.WriteString("- 一般內容直接輸出文字，不要使用 Markdown 標題或表格。\n")
	sb.WriteString("- 想用語音說的內容包在 <voice>...</voice> 中。\n")
	sb.WriteString("- 想生成圖片時，把圖片描述包在 <image>...</image> 中。\n")
	sb.WriteString("- 需要查資料或操作任務、提醒、記憶時，使用提供的工具。\n\n")

	fmt.Fprintf(&sb, "目前時間：%s\n", now.Format("2006-01-02 15:04 (Mon)"))
	fmt.Fprintf(&sb, "使用者：%s\n\n", placeholder(user.DisplayName))

	sb.WriteString("使用者未完成的任務：\n")
	open := openTasks(tasks)
	if len(open) == 0 {
		sb.WriteString("（目前沒有未完成的任務）\n")
	} else {
		for _, t := range open {
			sb.WriteString(formatTask(t, b.Location))
		}
	}
	return sb.String()
}

// History converts stored conversation rows plus the new incoming content
// into the LLM message array, oldest-first.
func (b *ContextBuilder) History(messages []store.ConversationMessage, incoming store.Content) []llm.Message {
	out := make([]llm.Message, 0, len(messages)+1)
	for _, m := range messages {
		out = append(out, llm.Message{
			Role:    string(m.Role),
			Content: m.Content.PlainText(),
		})
	}
	out = append(out, llm.Message{
		Role:    string(store.RoleUser),
		Content: incoming.PlainText(),
	})
	return out
}

// openTasks filters to incomplete tasks; only those enter the prompt.
func openTasks(tasks []store.Task) []store.Task {
	var open []store.Task
	for _, t := range tasks {
		if !t.Completed {
			open = append(open, t)
		}
	}
	return open
}

// formatTask renders one task line for the prompt.
func formatTask(t store.Task, loc *time.Location) string {
	due := "無"
	if t.DueAt != nil {
		due = t.DueAt.In(loc).Format("2006-01-02 15:04")
	}
	desc := placeholder(t.Description)
	return fmt.Sprintf("- [%s] %s（說明：%s，期限：%s，優先度：%s）\n",
		t.ID, t.Title, desc, due, t.Priority)
}

// placeholder substitutes an explicit "none" marker for empty fields.
func placeholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return "無"
	}
	return s
}

// languageName maps a language code onto its prompt-friendly name.
func languageName(code string) string {
	switch code {
	case "zh-TW", "":
		return "繁體中文"
	case "en":
		return "English"
	default:
		return code
	}
}
