// Package blob uploads media artifacts (synthesized audio, generated
// images, inbound attachments) and returns public URLs for them.
package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Uploader stores a named binary artifact and returns its public URL.
type Uploader interface {
	UploadFile(ctx context.Context, content []byte, name, contentType string) (string, error)
}

// SupabaseUploader implements Uploader against the Supabase Storage REST API.
// Objects land in a public bucket and are addressed via the public object URL.
type SupabaseUploader struct {
	projectURL string
	serviceKey string
	bucket     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewSupabaseUploader creates an uploader for the given project and bucket.
func NewSupabaseUploader(projectURL, serviceKey, bucket string, logger *slog.Logger) *SupabaseUploader {
	return &SupabaseUploader{
		projectURL: strings.TrimRight(projectURL, "/"),
		serviceKey: serviceKey,
		bucket:     bucket,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger.With("component", "blob"),
	}
}

// UploadFile uploads content under the given object name.
func (u *SupabaseUploader) UploadFile(ctx context.Context, content []byte, name, contentType string) (string, error) {
	if u.projectURL == "" || u.serviceKey == "" {
		return "", fmt.Errorf("blob: storage not configured")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	endpoint := fmt.Sprintf("%s/storage/v1/object/%s/%s",
		u.projectURL, u.bucket, escapeObjectName(name))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("blob: creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+u.serviceKey)
	req.Header.Set("Content-Type", contentType)
	// Overwrite on name collision rather than failing the reply.
	req.Header.Set("x-upsert", "true")

	start := time.Now()
	resp, err := u.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("blob: upload failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("blob: upload returned %d: %s", resp.StatusCode, string(errBody))
	}

	publicURL := fmt.Sprintf("%s/storage/v1/object/public/%s/%s",
		u.projectURL, u.bucket, escapeObjectName(name))

	u.logger.Info("artifact uploaded",
		"name", name,
		"bytes", len(content),
		"content_type", contentType,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return publicURL, nil
}

// escapeObjectName escapes each path segment while keeping the folder
// separators intact.
func escapeObjectName(name string) string {
	segments := strings.Split(name, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
