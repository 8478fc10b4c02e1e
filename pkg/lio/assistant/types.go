// Package assistant implements the reply orchestration pipeline: context
// assembly, two-phase generation (plan, then tool-augmented execution),
// retry policy, inline-tag segmentation, media synthesis, reply batching,
// and turn persistence.
package assistant

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/YouMingYeh/lio/pkg/lio/llm"
)

// ChatModel is the language model surface used by the planner and generator.
// Satisfied by *llm.Client.
type ChatModel interface {
	Complete(ctx context.Context, messages []llm.Message, tools []llm.ToolDefinition) (*llm.Response, error)
	CompleteStructured(ctx context.Context, messages []llm.Message, schemaName string, schema json.RawMessage) (json.RawMessage, error)
}

// SpeechSynthesizer converts narration text into audio bytes.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}

// ImageGenerator renders an image for a prompt.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}

// WebSearcher answers a query with a search-grounded completion.
type WebSearcher interface {
	SearchCompletion(ctx context.Context, query string) (string, error)
}

// ToolResult holds the output of a single tool execution.
type ToolResult struct {
	ToolCallID string
	Name       string
	Content    string
	Err        error
}

// Step is one unit of model output within a generation run, tagged with any
// tool calls issued and their results during that turn.
type Step struct {
	Text        string
	ToolCalls   []llm.ToolCall
	ToolResults []ToolResult
}

// DedupSteps removes steps whose trimmed text exactly matches an earlier
// step's; the first occurrence wins. Steps with empty trimmed text are
// dropped. The operation is idempotent.
func DedupSteps(steps []Step) []Step {
	seen := make(map[string]bool, len(steps))
	out := make([]Step, 0, len(steps))
	for _, s := range steps {
		key := strings.TrimSpace(s.Text)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

// MessageType discriminates outbound platform messages.
type MessageType string

const (
	MessageText  MessageType = "text"
	MessageAudio MessageType = "audio"
	MessageImage MessageType = "image"
)

// OutMessage is one platform message in a reply batch.
type OutMessage struct {
	Type MessageType

	// Text is set for text messages.
	Text string

	// URL is the content URL for audio and image messages.
	URL string

	// PreviewURL is the image preview URL.
	PreviewURL string

	// DurationMS is the audio playback duration in milliseconds.
	DurationMS int64
}

// Replier is the single-use reply handle issued by the platform for one
// inbound event. Exactly one successful Reply call consumes it.
type Replier interface {
	Reply(ctx context.Context, messages []OutMessage) error
}
