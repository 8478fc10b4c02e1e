// Package assistant – assistant.go is the pipeline orchestrator for one
// incoming message event: persist the inbound message, assemble context,
// plan, generate with retry, segment, synthesize media, send the reply
// batch, and record the assistant steps.
package assistant

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/YouMingYeh/lio/pkg/lio/llm"
	"github.com/YouMingYeh/lio/pkg/lio/store"
)

// Deps holds the orchestrator's collaborators. Everything is injected so
// the pipeline runs against fakes in tests.
type Deps struct {
	Context   *ContextBuilder
	Planner   *Planner
	Generator *Generator
	Toolset   *Toolset
	Media     *Synthesizer
	Messages  store.MessageStore
	Tasks     store.TaskStore

	// Retry decides when a generation run is re-issued. Zero value takes
	// DefaultRetryPolicy.
	Retry RetryPolicy

	// HistoryWindow is how many stored rows enter the LLM context.
	HistoryWindow int
}

// Assistant orchestrates the reply pipeline.
type Assistant struct {
	deps   Deps
	logger *slog.Logger
}

// New creates the orchestrator.
func New(deps Deps, logger *slog.Logger) *Assistant {
	if deps.Retry.IsRetryable == nil {
		deps.Retry = DefaultRetryPolicy()
	}
	if deps.HistoryWindow <= 0 {
		deps.HistoryWindow = 30
	}
	return &Assistant{
		deps:   deps,
		logger: logger.With("component", "assistant"),
	}
}

// HandleMessage processes one inbound event end to end. The reply handle is
// consumed at most once regardless of upstream fallbacks; every failure
// path resolves to either a fallback message or a log line.
func (a *Assistant) HandleMessage(ctx context.Context, user *store.User, content store.Content, replier Replier) {
	start := time.Now()
	logger := a.logger.With("user_id", user.ID)

	// History is loaded before the inbound row is written so the new
	// message appears exactly once in the LLM context.
	history, err := a.deps.Messages.GetMessagesByUserID(ctx, user.ID, a.deps.HistoryWindow)
	if err != nil {
		logger.Warn("loading history failed, continuing without it", "error", err)
	}

	if err := a.deps.Messages.CreateMessage(ctx, &store.ConversationMessage{
		UserID:  user.ID,
		Role:    store.RoleUser,
		Content: content,
	}); err != nil {
		logger.Error("persisting inbound message failed", "error", err)
	}

	tasks, err := a.deps.Tasks.GetTasksByUserID(ctx, user.ID)
	if err != nil {
		logger.Warn("loading tasks failed, continuing without them", "error", err)
	}

	systemPrompt := a.deps.Context.SystemPrompt(user, tasks)
	llmHistory := a.deps.Context.History(history, content)

	// Phase one: plan. A failed plan degrades to planless generation.
	thoughts, err := a.deps.Planner.Plan(ctx, systemPrompt, llmHistory)
	if err != nil {
		logger.Warn("planning failed, generating without a plan", "error", err)
	}
	generationPrompt := ReasoningBlock(systemPrompt, thoughts)

	// Phase two: tool-augmented generation, re-issued per the retry policy.
	registry := a.deps.Toolset.Registry(user)
	rawSteps, steps, attempts := a.generate(ctx, generationPrompt, llmHistory, registry, logger)

	// Segment, synthesize, assemble, send.
	combined := Combine(steps)

	var voiceMsg *OutMessage
	if combined.Voice != "" {
		msg := a.deps.Media.SynthesizeVoice(ctx, combined.Voice, user.Voice)
		voiceMsg = &msg
	}
	imageMsgs := a.deps.Media.GenerateImages(ctx, combined.Images)

	batch := AssembleBatch(combined.Text, voiceMsg, imageMsgs)
	if err := SendReply(ctx, replier, batch, logger); err != nil {
		logger.Error("sending reply failed", "error", err)
		return
	}

	// The reply is out; store failures from here on are log-only. One row
	// per non-empty raw step, pre-dedup: display-side dedup must never
	// suppress persistence.
	a.persistSteps(ctx, user.ID, rawSteps, logger)

	logger.Info("message processed",
		"attempts", attempts,
		"raw_steps", len(rawSteps),
		"sent_messages", len(batch),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// generate runs the generator under the retry policy and returns the final
// run's raw steps, its deduplicated steps, and how many runs were issued.
func (a *Assistant) generate(ctx context.Context, systemPrompt string, history []llm.Message, registry *Registry, logger *slog.Logger) (raw []Step, usable []Step, attempts int) {
	policy := a.deps.Retry

	for attempts = 1; attempts <= policy.MaxAttempts; attempts++ {
		result, err := a.deps.Generator.Run(ctx, systemPrompt, history, registry)
		if err != nil {
			// A thrown LLM call counts as an unusable run.
			logger.Warn("generation run failed",
				"attempt", attempts,
				"error", err,
			)
			raw, usable = nil, nil
			continue
		}

		raw = result.Steps
		usable = DedupSteps(result.Steps)

		if !policy.IsRetryable(usable) {
			return raw, usable, attempts
		}
		logger.Warn("generation run unusable, retrying",
			"attempt", attempts,
			"end", result.End,
			"steps", len(result.Steps),
		)
	}

	// Every attempt came up empty: install the hard-coded apology.
	apology := []Step{ApologyStep()}
	return apology, apology, policy.MaxAttempts
}

// persistSteps writes one assistant row per non-empty raw step.
func (a *Assistant) persistSteps(ctx context.Context, userID string, steps []Step, logger *slog.Logger) {
	for _, step := range steps {
		if strings.TrimSpace(step.Text) == "" {
			continue
		}
		if err := a.deps.Messages.CreateMessage(ctx, &store.ConversationMessage{
			UserID:  userID,
			Role:    store.RoleAssistant,
			Content: store.Content{store.TextPart(step.Text)},
		}); err != nil {
			logger.Error("persisting assistant step failed", "error", err)
		}
	}
}
