// Package assistant – planner.go issues the single schema-constrained
// planning call. The plan is a list of reasoning steps that seeds the
// generation prompt; it is never persisted and never shown to the user.
package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/YouMingYeh/lio/pkg/lio/llm"
)

// thoughtsSchema constrains the planning call to {thoughts: string[]}.
var thoughtsSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"thoughts": {
			"type": "array",
			"items": {"type": "string"}
		}
	},
	"required": ["thoughts"],
	"additionalProperties": false
}`)

// Planner produces an ordered list of reasoning steps for one message.
type Planner struct {
	chat   ChatModel
	logger *slog.Logger
}

// NewPlanner creates a planner over the given chat model.
func NewPlanner(chat ChatModel, logger *slog.Logger) *Planner {
	return &Planner{
		chat:   chat,
		logger: logger.With("component", "planner"),
	}
}

// Plan runs one structured-output call and returns the thoughts. The call
// is schema-constrained, so the output is either valid or the call fails;
// there is no repair pass for planning.
func (p *Planner) Plan(ctx context.Context, systemPrompt string, history []llm.Message) ([]string, error) {
	messages := append([]llm.Message{{
		Role: "system",
		Content: systemPrompt + "\n\n" +
			"先不要回覆使用者。請規劃回覆這則訊息的步驟（要不要用工具、要不要語音或圖片），" +
			"以 JSON 輸出 {\"thoughts\": [...]}。",
	}}, history...)

	raw, err := p.chat.CompleteStructured(ctx, messages, "plan", thoughtsSchema)
	if err != nil {
		return nil, fmt.Errorf("planning call: %w", err)
	}

	var parsed struct {
		Thoughts []string `json:"thoughts"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parsing plan: %w", err)
	}

	p.logger.Debug("plan produced", "thoughts", len(parsed.Thoughts))
	return parsed.Thoughts, nil
}

// ReasoningBlock wraps the thoughts into the hidden reasoning block that is
// prepended to the generation system prompt.
func ReasoningBlock(systemPrompt string, thoughts []string) string {
	if len(thoughts) == 0 {
		return systemPrompt
	}
	var sb strings.Builder
	sb.WriteString("<reasoning>\n")
	for i, t := range thoughts {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, t)
	}
	sb.WriteString("</reasoning>\n\n")
	sb.WriteString(systemPrompt)
	return sb.String()
}
