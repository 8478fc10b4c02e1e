package line

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"

	"github.com/YouMingYeh/lio/pkg/lio/store"
)

// maxInboundBytes caps how much of a media attachment is mirrored to blob
// storage.
const maxInboundBytes = 10 << 20

// contentFromMessage converts an inbound LINE message into content parts.
// Media is mirrored into our own blob storage so the model and history see
// stable URLs; LINE's content endpoint expires.
func (c *Channel) contentFromMessage(ctx context.Context, message webhook.MessageContentInterface) store.Content {
	switch m := message.(type) {
	case webhook.TextMessageContent:
		text := strings.TrimSpace(m.Text)
		if text == "" {
			return nil
		}
		return store.Content{store.TextPart(text)}

	case webhook.ImageMessageContent:
		url, err := c.mirrorContent(ctx, m.Id, "inbound/%s.jpg", "image/jpeg")
		if err != nil {
			c.logger.Warn("mirroring image failed", "error", err)
			return store.Content{store.TextPart("[傳了一張圖片，但我沒收到內容]")}
		}
		return store.Content{store.ImagePart(url)}

	case webhook.AudioMessageContent:
		url, err := c.mirrorContent(ctx, m.Id, "inbound/%s.m4a", "audio/mp4")
		if err != nil {
			c.logger.Warn("mirroring audio failed", "error", err)
			return store.Content{store.TextPart("[傳了一段語音，但我沒收到內容]")}
		}
		return store.Content{store.FilePart(url, "audio/mp4")}

	case webhook.VideoMessageContent:
		url, err := c.mirrorContent(ctx, m.Id, "inbound/%s.mp4", "video/mp4")
		if err != nil {
			c.logger.Warn("mirroring video failed", "error", err)
			return store.Content{store.TextPart("[傳了一段影片，但我沒收到內容]")}
		}
		return store.Content{store.FilePart(url, "video/mp4")}

	case webhook.FileMessageContent:
		url, err := c.mirrorContent(ctx, m.Id, "inbound/%s_"+sanitizeFileName(m.FileName), "application/octet-stream")
		if err != nil {
			c.logger.Warn("mirroring file failed", "error", err)
			return store.Content{store.TextPart(fmt.Sprintf("[傳了檔案 %s，但我沒收到內容]", m.FileName))}
		}
		return store.Content{store.FilePart(url, "application/octet-stream")}

	case webhook.StickerMessageContent:
		return store.Content{store.TextPart(stickerText(m))}

	case webhook.LocationMessageContent:
		return store.Content{store.TextPart(locationText(m))}

	default:
		return nil
	}
}

// mirrorContent downloads a message attachment from LINE and re-uploads it
// to blob storage, returning the public URL. nameFormat receives a fresh
// UUID.
func (c *Channel) mirrorContent(ctx context.Context, messageID, nameFormat, contentType string) (string, error) {
	resp, err := c.blobAPI.GetMessageContent(messageID)
	if err != nil {
		return "", fmt.Errorf("fetching message content %s: %w", messageID, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxInboundBytes))
	if err != nil {
		return "", fmt.Errorf("reading message content %s: %w", messageID, err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("message content %s is empty", messageID)
	}

	name := fmt.Sprintf(nameFormat, uuid.NewString())
	url, err := c.uploader.UploadFile(ctx, data, name, contentType)
	if err != nil {
		return "", fmt.Errorf("uploading message content %s: %w", messageID, err)
	}
	return url, nil
}

// stickerText renders a sticker as a text placeholder, using LINE's sticker
// keywords when available so the model gets some sentiment signal.
func stickerText(m webhook.StickerMessageContent) string {
	if len(m.Keywords) > 0 {
		return fmt.Sprintf("[傳了一張貼圖：%s]", strings.Join(m.Keywords, "、"))
	}
	return "[傳了一張貼圖]"
}

func locationText(m webhook.LocationMessageContent) string {
	var b strings.Builder
	b.WriteString("[分享了位置")
	if m.Title != "" {
		b.WriteString("：" + m.Title)
	}
	if m.Address != "" {
		b.WriteString("，" + m.Address)
	}
	fmt.Fprintf(&b, "（%f, %f）]", m.Latitude, m.Longitude)
	return b.String()
}

// sanitizeFileName keeps blob object names URL-safe.
func sanitizeFileName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
