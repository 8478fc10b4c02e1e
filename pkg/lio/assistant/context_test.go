package assistant

import (
	"strings"
	"testing"
	"time"

	"github.com/YouMingYeh/lio/pkg/lio/store"
)

func fixedClock() time.Time {
	return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
}

func testBuilder() *ContextBuilder {
	b := NewContextBuilder("Lio", "zh-TW", "Asia/Taipei")
	b.Now = fixedClock
	return b
}

func TestSystemPromptBasics(t *testing.T) {
	b := testBuilder()
	user := &store.User{ID: "u1", DisplayName: "小明"}

	prompt := b.SystemPrompt(user, nil)

	if !strings.Contains(prompt, "Lio") {
		t.Error("prompt missing persona name")
	}
	if !strings.Contains(prompt, "繁體中文") {
		t.Error("prompt missing language instruction")
	}
	if !strings.Contains(prompt, "小明") {
		t.Error("prompt missing user name")
	}
	// 09:30 UTC is 17:30 in Taipei.
	if !strings.Contains(prompt, "2026-03-14 17:30") {
		t.Errorf("prompt missing localized time:\n%s", prompt)
	}
	if !strings.Contains(prompt, "<voice>") || !strings.Contains(prompt, "<image>") {
		t.Error("prompt missing tag instructions")
	}
	if !strings.Contains(prompt, "（目前沒有未完成的任務）") {
		t.Error("prompt missing empty-task placeholder")
	}
}

func TestSystemPromptPlaceholders(t *testing.T) {
	b := testBuilder()
	user := &store.User{ID: "u1"}

	prompt := b.SystemPrompt(user, nil)
	if !strings.Contains(prompt, "使用者：無") {
		t.Errorf("empty display name should render as 無:\n%s", prompt)
	}
}

func TestSystemPromptListsOnlyOpenTasks(t *testing.T) {
	b := testBuilder()
	due := time.Date(2026, 3, 20, 4, 0, 0, 0, time.UTC)
	tasks := []store.Task{
		{ID: "t1", Title: "買牛奶", Priority: store.PriorityMedium},
		{ID: "t2", Title: "交報告", Completed: true, Priority: store.PriorityHigh},
		{ID: "t3", Title: "訂餐廳", DueAt: &due, Priority: store.PriorityLow},
	}

	prompt := b.SystemPrompt(&store.User{ID: "u1"}, tasks)

	if !strings.Contains(prompt, "買牛奶") || !strings.Contains(prompt, "訂餐廳") {
		t.Error("open tasks missing from prompt")
	}
	if strings.Contains(prompt, "交報告") {
		t.Error("completed task leaked into prompt")
	}
	// Due time renders in Taipei.
	if !strings.Contains(prompt, "2026-03-20 12:00") {
		t.Errorf("due time not localized:\n%s", prompt)
	}
}

func TestHistoryShapesMessages(t *testing.T) {
	b := testBuilder()
	stored := []store.ConversationMessage{
		{Role: store.RoleUser, Content: store.Content{store.TextPart("昨天的問題")}},
		{Role: store.RoleAssistant, Content: store.Content{store.TextPart("昨天的回答")}},
	}
	incoming := store.Content{store.TextPart("今天的問題")}

	msgs := b.History(stored, incoming)

	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	if msgs[0].Role != "user" || msgs[1].Role != "assistant" || msgs[2].Role != "user" {
		t.Errorf("roles = %s %s %s", msgs[0].Role, msgs[1].Role, msgs[2].Role)
	}
	if msgs[2].Content != "今天的問題" {
		t.Errorf("incoming content = %q", msgs[2].Content)
	}
}

func TestReasoningBlock(t *testing.T) {
	if got := ReasoningBlock("base", nil); got != "base" {
		t.Errorf("no thoughts should leave the prompt unchanged: %q", got)
	}

	got := ReasoningBlock("base", []string{"先查任務", "再排提醒"})
	if !strings.HasPrefix(got, "<reasoning>\n1. 先查任務\n2. 再排提醒\n</reasoning>") {
		t.Errorf("reasoning block malformed:\n%s", got)
	}
	if !strings.HasSuffix(got, "base") {
		t.Error("original prompt must follow the reasoning block")
	}
}
