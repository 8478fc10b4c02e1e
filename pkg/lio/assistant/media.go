// Package assistant – media.go turns the combined voice narration into one
// synthesized audio message and each image prompt into one generated image
// message. Failures are isolated per media item: a failed synthesis becomes
// a fallback text message and never sinks the rest of the batch.
package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/YouMingYeh/lio/pkg/lio/blob"
)

// voiceBytesPerSecond is the assumed voice bitrate used to estimate
// playback duration when the provider does not report one.
const voiceBytesPerSecond = 16 * 1024

// minAudioDurationMS floors the duration estimate.
const minAudioDurationMS = 1000

// EstimateAudioDuration derives playback duration in milliseconds from the
// payload size, floored at one second. A positive reported duration wins.
func EstimateAudioDuration(byteSize int, reported time.Duration) int64 {
	if reported > 0 {
		return reported.Milliseconds()
	}
	ms := int64(float64(byteSize) / voiceBytesPerSecond * 1000)
	if ms < minAudioDurationMS {
		return minAudioDurationMS
	}
	return ms
}

// Synthesizer converts parsed segments into platform media messages.
type Synthesizer struct {
	speech   SpeechSynthesizer
	images   ImageGenerator
	uploader blob.Uploader
	logger   *slog.Logger
}

// NewSynthesizer creates a media synthesizer.
func NewSynthesizer(speech SpeechSynthesizer, images ImageGenerator, uploader blob.Uploader, logger *slog.Logger) *Synthesizer {
	return &Synthesizer{
		speech:   speech,
		images:   images,
		uploader: uploader,
		logger:   logger.With("component", "media"),
	}
}

// SynthesizeVoice converts the combined narration into one audio message.
// On failure the narration is quoted back as a text message instead.
func (s *Synthesizer) SynthesizeVoice(ctx context.Context, narration, voice string) OutMessage {
	audio, err := s.speech.Synthesize(ctx, narration, voice)
	if err == nil {
		name := fmt.Sprintf("voice/%s.mp3", uuid.NewString())
		var url string
		url, err = s.uploader.UploadFile(ctx, audio, name, "audio/mpeg")
		if err == nil {
			return OutMessage{
				Type:       MessageAudio,
				URL:        url,
				DurationMS: EstimateAudioDuration(len(audio), 0),
			}
		}
	}

	s.logger.Warn("voice synthesis failed, falling back to text", "error", err)
	return OutMessage{
		Type: MessageText,
		Text: fmt.Sprintf("🔈 %s", narration),
	}
}

// GenerateImages renders every image prompt concurrently and returns one
// message per prompt in original order. A failed prompt yields a fallback
// text message naming it.
func (s *Synthesizer) GenerateImages(ctx context.Context, prompts []string) []OutMessage {
	if len(prompts) == 0 {
		return nil
	}

	out := make([]OutMessage, len(prompts))
	var wg sync.WaitGroup
	for i, prompt := range prompts {
		wg.Add(1)
		go func(i int, prompt string) {
			defer wg.Done()
			out[i] = s.generateOne(ctx, prompt)
		}(i, prompt)
	}
	wg.Wait()
	return out
}

// generateOne renders and uploads a single image.
func (s *Synthesizer) generateOne(ctx context.Context, prompt string) OutMessage {
	img, err := s.images.GenerateImage(ctx, prompt)
	if err == nil {
		name := fmt.Sprintf("images/%s.png", uuid.NewString())
		var url string
		url, err = s.uploader.UploadFile(ctx, img, name, "image/png")
		if err == nil {
			return OutMessage{
				Type:       MessageImage,
				URL:        url,
				PreviewURL: url,
			}
		}
	}

	s.logger.Warn("image generation failed, falling back to text",
		"prompt", truncatePrompt(prompt),
		"error", err,
	)
	return OutMessage{
		Type: MessageText,
		Text: fmt.Sprintf("🖼️ 圖片生成失敗：%s", truncatePrompt(prompt)),
	}
}

// truncatePrompt shortens a prompt for fallback messages and logs. The cut
// lands on a rune boundary so multi-byte text stays valid UTF-8.
func truncatePrompt(prompt string) string {
	const max = 120
	if len(prompt) <= max {
		return prompt
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(prompt[cut]) {
		cut--
	}
	return prompt[:cut] + "..."
}
