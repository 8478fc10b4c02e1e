// Package assistant – agent.go implements the tool-augmented generation
// loop: call the LLM, execute requested tools, feed results back, and
// repeat until the model produces final text or the turn ceiling is hit.
// Malformed tool arguments get one corrective re-emission against the
// declared schema; an unknown tool name is unrecoverable and the call is
// dropped.
package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/YouMingYeh/lio/pkg/lio/llm"
)

// DefaultMaxTurns is the generation loop ceiling.
const DefaultMaxTurns = 20

// DefaultTurnTimeout bounds a single LLM call within the loop.
const DefaultTurnTimeout = 60 * time.Second

// EndCause records how a generation run terminated.
type EndCause string

const (
	// EndFinalText means the model produced a final text response.
	EndFinalText EndCause = "final_text"

	// EndCeiling means the turn ceiling cut the loop short.
	EndCeiling EndCause = "ceiling"
)

// RunResult is the outcome of one generation run.
type RunResult struct {
	Steps []Step
	End   EndCause
}

// Generator runs the tool-augmented generation loop.
type Generator struct {
	chat        ChatModel
	maxTurns    int
	turnTimeout time.Duration
	logger      *slog.Logger
}

// NewGenerator creates a generator. Non-positive knobs take defaults.
func NewGenerator(chat ChatModel, maxTurns int, turnTimeout time.Duration, logger *slog.Logger) *Generator {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	if turnTimeout <= 0 {
		turnTimeout = DefaultTurnTimeout
	}
	return &Generator{
		chat:        chat,
		maxTurns:    maxTurns,
		turnTimeout: turnTimeout,
		logger:      logger.With("component", "generator"),
	}
}

// Run executes the loop and returns the steps accumulated across turns.
// Tool executors may mutate external state; those effects are not rolled
// back if the caller later discards the run.
func (g *Generator) Run(ctx context.Context, systemPrompt string, history []llm.Message, registry *Registry) (*RunResult, error) {
	messages := make([]llm.Message, 0, len(history)+1)
	messages = append(messages, llm.Message{Role: "system", Content: systemPrompt})
	messages = append(messages, history...)

	tools := registry.Definitions()
	result := &RunResult{End: EndCeiling}

	g.logger.Debug("generation run started",
		"history", len(history),
		"tools", len(tools),
		"max_turns", g.maxTurns,
	)

	for turn := 1; turn <= g.maxTurns; turn++ {
		turnStart := time.Now()

		turnCtx, cancel := context.WithTimeout(ctx, g.turnTimeout)
		resp, err := g.chat.Complete(turnCtx, messages, tools)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("LLM call failed (turn %d): %w", turn, err)
		}

		step := Step{Text: resp.Content, ToolCalls: resp.ToolCalls}

		if len(resp.ToolCalls) == 0 {
			result.Steps = append(result.Steps, step)
			result.End = EndFinalText
			g.logger.Info("generation completed",
				"turns", turn,
				"steps", len(result.Steps),
				"turn_ms", time.Since(turnStart).Milliseconds(),
			)
			return result, nil
		}

		messages = append(messages, llm.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		for _, call := range resp.ToolCalls {
			toolResult := g.executeCall(ctx, registry, call)
			step.ToolResults = append(step.ToolResults, toolResult)
			messages = append(messages, llm.Message{
				Role:       "tool",
				Content:    toolResult.Content,
				ToolCallID: call.ID,
			})
		}

		result.Steps = append(result.Steps, step)

		g.logger.Info("generation turn done",
			"turn", turn,
			"tool_calls", len(resp.ToolCalls),
			"turn_ms", time.Since(turnStart).Milliseconds(),
		)
	}

	g.logger.Warn("generation hit turn ceiling", "max_turns", g.maxTurns)
	return result, nil
}

// executeCall validates, repairs if needed, and runs one tool call.
func (g *Generator) executeCall(ctx context.Context, registry *Registry, call llm.ToolCall) ToolResult {
	name := call.Function.Name

	// Unknown tool: unrecoverable, skip repair, drop the call.
	tool, known := registry.Get(name)
	if !known {
		g.logger.Warn("unknown tool called, dropping", "name", name)
		return ToolResult{
			ToolCallID: call.ID,
			Name:       name,
			Content:    fmt.Sprintf("Error: unknown tool %q", name),
			Err:        fmt.Errorf("unknown tool: %s", name),
		}
	}

	args, err := ParseArgs(call.Function.Arguments)
	if err == nil {
		err = ValidateArgs(tool.Parameters, args)
	}
	if err != nil {
		g.logger.Warn("tool arguments invalid, attempting repair",
			"name", name,
			"error", err,
		)
		repaired, repairErr := g.repairArguments(ctx, registry, call, err)
		if repairErr != nil {
			// Second failure: surface an unusable result to the model
			// instead of crashing the turn.
			g.logger.Warn("argument repair failed", "name", name, "error", repairErr)
			return ToolResult{
				ToolCallID: call.ID,
				Name:       name,
				Content:    fmt.Sprintf("Error: invalid arguments for %q: %v", name, err),
				Err:        repairErr,
			}
		}
		args = repaired
	}

	return registry.Execute(ctx, call, args)
}

// repairArguments asks the model to re-emit the offending arguments as a
// schema-constrained completion against the tool's declared schema.
func (g *Generator) repairArguments(ctx context.Context, registry *Registry, call llm.ToolCall, cause error) (map[string]any, error) {
	name := call.Function.Name
	schema := registry.SchemaJSON(name)

	prompt := fmt.Sprintf(
		"The arguments you produced for tool %q are invalid.\n"+
			"Arguments: %s\nError: %v\nSchema: %s\n"+
			"Re-emit corrected arguments as JSON matching the schema exactly.",
		name, call.Function.Arguments, cause, schema,
	)

	repairCtx, cancel := context.WithTimeout(ctx, g.turnTimeout)
	defer cancel()

	raw, err := g.chat.CompleteStructured(repairCtx,
		[]llm.Message{{Role: "user", Content: prompt}},
		name+"_arguments", schema)
	if err != nil {
		return nil, fmt.Errorf("repair call: %w", err)
	}

	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("parsing repaired arguments: %w", err)
	}

	tool, _ := registry.Get(name)
	if err := ValidateArgs(tool.Parameters, args); err != nil {
		return nil, fmt.Errorf("repaired arguments still invalid: %w", err)
	}
	return args, nil
}
