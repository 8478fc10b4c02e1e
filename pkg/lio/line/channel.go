// Package line connects the assistant to the LINE Messaging API: it serves
// the webhook, converts inbound events into content parts, issues the
// single-use reply handle per event, and pushes reminder messages.
package line

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"

	"github.com/YouMingYeh/lio/pkg/lio/assistant"
	"github.com/YouMingYeh/lio/pkg/lio/blob"
	"github.com/YouMingYeh/lio/pkg/lio/config"
	"github.com/YouMingYeh/lio/pkg/lio/store"
)

// welcomeText greets a user who just added (or re-added) the assistant.
const welcomeText = "嗨，我是 Lio！我可以幫你記任務、設提醒、查資料，也記得你告訴我的事。直接跟我說話就可以囉 😊"

// Channel is the LINE webhook channel.
type Channel struct {
	bot       *messaging_api.MessagingApiAPI
	blobAPI   *messaging_api.MessagingApiBlobAPI
	secret    string
	assistant *assistant.Assistant
	users     store.UserStore
	uploader  blob.Uploader
	logger    *slog.Logger
}

// NewChannel creates the channel with its Messaging API clients.
func NewChannel(cfg config.LINEConfig, asst *assistant.Assistant, users store.UserStore, uploader blob.Uploader, logger *slog.Logger) (*Channel, error) {
	bot, err := messaging_api.NewMessagingApiAPI(cfg.ChannelToken)
	if err != nil {
		return nil, fmt.Errorf("line: creating messaging client: %w", err)
	}
	blobAPI, err := messaging_api.NewMessagingApiBlobAPI(cfg.ChannelToken)
	if err != nil {
		return nil, fmt.Errorf("line: creating blob client: %w", err)
	}
	return &Channel{
		bot:       bot,
		blobAPI:   blobAPI,
		secret:    cfg.ChannelSecret,
		assistant: asst,
		users:     users,
		uploader:  uploader,
		logger:    logger.With("component", "line"),
	}, nil
}

// ServeHTTP handles webhook deliveries. Signature verification happens in
// the SDK's request parser; each event runs in its own goroutine so the
// webhook can be acknowledged immediately.
func (c *Channel) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cb, err := webhook.ParseRequest(c.secret, r)
	if err != nil {
		c.logger.Warn("webhook parse failed", "error", err)
		if err == webhook.ErrInvalidSignature {
			w.WriteHeader(http.StatusBadRequest)
		} else {
			w.WriteHeader(http.StatusInternalServerError)
		}
		return
	}

	for _, event := range cb.Events {
		go c.handleEvent(context.Background(), event)
	}
	w.WriteHeader(http.StatusOK)
}

// handleEvent dispatches one webhook event. A panic here must not take
// down the webhook server, so it is caught and logged.
func (c *Channel) handleEvent(ctx context.Context, event webhook.EventInterface) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("panic while handling event",
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
	}()

	switch e := event.(type) {
	case webhook.MessageEvent:
		c.handleMessage(ctx, e)
	case webhook.FollowEvent:
		c.handleFollow(ctx, e)
	case webhook.UnfollowEvent:
		c.handleUnfollow(ctx, e)
	default:
		c.logger.Debug("ignoring event", "type", fmt.Sprintf("%T", event))
	}
}

// handleMessage runs the reply pipeline for one inbound message.
func (c *Channel) handleMessage(ctx context.Context, event webhook.MessageEvent) {
	lineUserID := sourceUserID(event.Source)
	if lineUserID == "" {
		c.logger.Debug("message without user source, ignoring")
		return
	}

	user, err := c.users.GetOrCreateByLineID(ctx, lineUserID, c.fetchDisplayName(lineUserID))
	if err != nil {
		c.logger.Error("resolving user failed", "error", err)
		return
	}

	content := c.contentFromMessage(ctx, event.Message)
	if len(content) == 0 {
		c.logger.Debug("unsupported message content, ignoring",
			"type", fmt.Sprintf("%T", event.Message))
		return
	}

	handle := newReplyHandle(c.bot, event.ReplyToken, c.logger)
	c.assistant.HandleMessage(ctx, user, content, handle)
}

// handleFollow greets and (re)activates the user.
func (c *Channel) handleFollow(ctx context.Context, event webhook.FollowEvent) {
	lineUserID := sourceUserID(event.Source)
	if lineUserID == "" {
		return
	}
	if _, err := c.users.GetOrCreateByLineID(ctx, lineUserID, c.fetchDisplayName(lineUserID)); err != nil {
		c.logger.Error("creating followed user failed", "error", err)
	}

	handle := newReplyHandle(c.bot, event.ReplyToken, c.logger)
	if err := handle.Reply(ctx, []assistant.OutMessage{{
		Type: assistant.MessageText,
		Text: welcomeText,
	}}); err != nil {
		c.logger.Error("sending welcome failed", "error", err)
	}
}

// handleUnfollow deactivates the user; history is kept.
func (c *Channel) handleUnfollow(ctx context.Context, event webhook.UnfollowEvent) {
	lineUserID := sourceUserID(event.Source)
	if lineUserID == "" {
		return
	}
	if err := c.users.Deactivate(ctx, lineUserID); err != nil {
		c.logger.Error("deactivating user failed", "error", err)
	}
}

// Push sends a reminder text to a user outside any reply window.
func (c *Channel) Push(_ context.Context, lineUserID, text string) error {
	_, err := c.bot.PushMessage(&messaging_api.PushMessageRequest{
		To: lineUserID,
		Messages: []messaging_api.MessageInterface{
			messaging_api.TextMessage{Text: text},
		},
	}, "")
	if err != nil {
		return fmt.Errorf("line: push to %s: %w", lineUserID, err)
	}
	return nil
}

// fetchDisplayName looks up the user's profile name; empty on failure.
func (c *Channel) fetchDisplayName(lineUserID string) string {
	profile, err := c.bot.GetProfile(lineUserID)
	if err != nil {
		c.logger.Debug("profile lookup failed", "error", err)
		return ""
	}
	return profile.DisplayName
}

// sourceUserID extracts the LINE user ID from an event source.
func sourceUserID(source webhook.SourceInterface) string {
	if s, ok := source.(webhook.UserSource); ok {
		return s.UserId
	}
	return ""
}
