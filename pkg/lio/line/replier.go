package line

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/YouMingYeh/lio/pkg/lio/assistant"
)

// replyHandle wraps a LINE reply token. The token is good for one call, so
// the handle refuses a second use instead of letting the API reject it.
type replyHandle struct {
	bot        *messaging_api.MessagingApiAPI
	replyToken string
	used       atomic.Bool
	logger     *slog.Logger
}

func newReplyHandle(bot *messaging_api.MessagingApiAPI, replyToken string, logger *slog.Logger) *replyHandle {
	return &replyHandle{bot: bot, replyToken: replyToken, logger: logger}
}

// Reply sends the batch through the reply endpoint.
func (h *replyHandle) Reply(_ context.Context, messages []assistant.OutMessage) error {
	if len(messages) == 0 {
		return nil
	}
	if h.used.Swap(true) {
		return fmt.Errorf("line: reply token already used")
	}

	out := make([]messaging_api.MessageInterface, 0, len(messages))
	for _, m := range messages {
		converted, err := convertMessage(m)
		if err != nil {
			return err
		}
		out = append(out, converted)
	}

	_, err := h.bot.ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: h.replyToken,
		Messages:   out,
	})
	if err != nil {
		return fmt.Errorf("line: reply: %w", err)
	}
	h.logger.Debug("reply sent", "messages", len(out))
	return nil
}

// convertMessage maps a pipeline message onto the LINE message model.
func convertMessage(m assistant.OutMessage) (messaging_api.MessageInterface, error) {
	switch m.Type {
	case assistant.MessageText:
		return messaging_api.TextMessage{Text: m.Text}, nil
	case assistant.MessageAudio:
		return messaging_api.AudioMessage{
			OriginalContentUrl: m.URL,
			Duration:           int64(m.DurationMS),
		}, nil
	case assistant.MessageImage:
		preview := m.PreviewURL
		if preview == "" {
			preview = m.URL
		}
		return messaging_api.ImageMessage{
			OriginalContentUrl: m.URL,
			PreviewImageUrl:    preview,
		}, nil
	default:
		return nil, fmt.Errorf("line: unsupported message type %q", m.Type)
	}
}
