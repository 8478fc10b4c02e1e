// Package assistant – reply.go assembles the outbound message batch and
// sends it through the single-use reply handle, enforcing the platform's
// per-reply message cap.
package assistant

import (
	"context"
	"log/slog"
)

// MaxReplyMessages is the platform's per-reply message cap; larger batches
// are rejected at the protocol level.
const MaxReplyMessages = 5

// oversizedReplyText replaces a batch that would exceed the cap. Dropping
// part of the batch silently is worse than saying so.
const oversizedReplyText = "抱歉，這次的回覆內容太多，一次送不完。可以請你把問題拆小一點再問我嗎？"

// AssembleBatch orders the reply: combined text first, then the synthesized
// audio, then each generated image. Empty pieces are skipped.
func AssembleBatch(text string, voice *OutMessage, images []OutMessage) []OutMessage {
	var batch []OutMessage
	if text != "" {
		batch = append(batch, OutMessage{Type: MessageText, Text: text})
	}
	if voice != nil {
		batch = append(batch, *voice)
	}
	batch = append(batch, images...)
	return batch
}

// SendReply sends the batch through the reply handle. An empty batch makes
// no call at all; an oversized batch is replaced with a single warning
// message so the platform does not reject the reply outright. The handle
// is used at most once either way.
func SendReply(ctx context.Context, replier Replier, batch []OutMessage, logger *slog.Logger) error {
	if len(batch) == 0 {
		logger.Debug("empty reply batch, skipping send")
		return nil
	}

	if len(batch) > MaxReplyMessages {
		logger.Warn("reply batch exceeds platform cap, sending warning instead",
			"messages", len(batch),
			"cap", MaxReplyMessages,
		)
		batch = []OutMessage{{Type: MessageText, Text: oversizedReplyText}}
	}

	return replier.Reply(ctx, batch)
}
