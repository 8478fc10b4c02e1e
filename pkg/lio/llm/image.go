// Package llm – image.go generates images from prompts via the provider's
// /images/generations endpoint.
package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
)

// imageResponse is the images API response envelope.
type imageResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
		URL     string `json:"url"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// GenerateImage renders one image for the prompt and returns PNG bytes.
func (c *Client) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	model := c.imageModel
	if model == "" {
		model = "gpt-image-1"
	}

	payload := map[string]any{
		"model":  model,
		"prompt": prompt,
		"n":      1,
		"size":   "1024x1024",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("image: marshal request: %w", err)
	}

	respBody, status, duration, err := c.post(ctx, "/images/generations", "application/json", body)
	if err != nil {
		return nil, fmt.Errorf("image: %w", err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("image: API returned %d: %s", status, truncate(string(respBody), 300))
	}

	var parsed imageResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("image: parsing response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("image: API error: %s", parsed.Error.Message)
	}
	if len(parsed.Data) == 0 || parsed.Data[0].B64JSON == "" {
		return nil, fmt.Errorf("image: no image in response")
	}

	img, err := base64.StdEncoding.DecodeString(parsed.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("image: decoding payload: %w", err)
	}

	c.logger.Info("image generation done",
		"prompt_len", len(prompt),
		"image_bytes", len(img),
		"duration_ms", duration.Milliseconds(),
	)
	return img, nil
}
