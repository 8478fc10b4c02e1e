// Package llm – speech.go synthesizes spoken audio from text via the
// provider's /audio/speech endpoint.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Voices is the set of supported TTS personas.
var Voices = map[string]bool{
	"alloy":   true,
	"ash":     true,
	"coral":   true,
	"echo":    true,
	"fable":   true,
	"nova":    true,
	"onyx":    true,
	"sage":    true,
	"shimmer": true,
}

// DefaultVoice is used when a user has no (or an unsupported) voice set.
const DefaultVoice = "nova"

// NormalizeVoice maps a configured voice onto the supported set.
func NormalizeVoice(voice string) string {
	if Voices[voice] {
		return voice
	}
	return DefaultVoice
}

// Synthesize converts text to spoken audio with the given voice persona.
// Returns MP3 bytes.
func (c *Client) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	model := c.speechModel
	if model == "" {
		model = "tts-1"
	}
	voice = NormalizeVoice(voice)

	// The speech endpoint rejects inputs over 4096 characters.
	if len(text) > 4096 {
		text = truncate(text, 4093)
	}

	payload := map[string]any{
		"model":           model,
		"input":           text,
		"voice":           voice,
		"response_format": "mp3",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("speech: marshal request: %w", err)
	}

	respBody, status, duration, err := c.post(ctx, "/audio/speech", "application/json", body)
	if err != nil {
		return nil, fmt.Errorf("speech: %w", err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("speech: API returned %d: %s", status, truncate(string(respBody), 300))
	}
	if len(respBody) == 0 {
		return nil, fmt.Errorf("speech: empty audio response")
	}

	c.logger.Info("speech synthesis done",
		"voice", voice,
		"input_len", len(text),
		"audio_bytes", len(respBody),
		"duration_ms", duration.Milliseconds(),
	)
	return respBody, nil
}
