// Package assistant – webtools.go fetches external pages and files for the
// loadWebContent / loadFileContent capabilities. HTML is reduced to
// readable text with goquery; plain-text payloads pass through.
package assistant

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	// maxFetchBytes caps how much of a remote payload is read.
	maxFetchBytes = 2 << 20 // 2 MiB

	// maxToolText caps how much extracted text is returned to the model.
	maxToolText = 20000
)

// WebLoader fetches and extracts text from web pages and files.
type WebLoader struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// NewWebLoader creates a loader with a bounded fetch timeout.
func NewWebLoader(logger *slog.Logger) *WebLoader {
	return &WebLoader{
		httpClient: &http.Client{Timeout: 20 * time.Second},
		logger:     logger.With("component", "webloader"),
	}
}

// LoadWebContent fetches a page and returns its readable text.
func (l *WebLoader) LoadWebContent(ctx context.Context, rawURL string) (string, error) {
	body, contentType, err := l.fetch(ctx, rawURL)
	if err != nil {
		return "", err
	}

	if !strings.Contains(contentType, "html") {
		return clampText(string(body)), nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return "", fmt.Errorf("parsing HTML: %w", err)
	}

	// Drop non-content elements before extracting text.
	doc.Find("script, style, noscript, nav, header, footer, iframe").Remove()

	var sb strings.Builder
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		sb.WriteString(title + "\n\n")
	}
	doc.Find("h1, h2, h3, p, li, td, pre, blockquote").Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			sb.WriteString(t + "\n")
		}
	})

	text := strings.TrimSpace(sb.String())
	if text == "" {
		text = strings.TrimSpace(doc.Text())
	}
	return clampText(text), nil
}

// LoadFileContent downloads a file and returns its text content. Only
// text-like payloads are supported; binary formats are rejected with an
// error the model can act on.
func (l *WebLoader) LoadFileContent(ctx context.Context, rawURL string) (string, error) {
	body, contentType, err := l.fetch(ctx, rawURL)
	if err != nil {
		return "", err
	}

	switch {
	case strings.Contains(contentType, "html"):
		return l.LoadWebContent(ctx, rawURL)
	case strings.HasPrefix(contentType, "text/"),
		strings.Contains(contentType, "json"),
		strings.Contains(contentType, "xml"),
		strings.Contains(contentType, "csv"),
		strings.Contains(contentType, "yaml"):
		return clampText(string(body)), nil
	}
	if isMostlyText(body) {
		return clampText(string(body)), nil
	}
	return "", fmt.Errorf("unsupported file type %q", contentType)
}

// fetch downloads a URL with scheme validation and a size cap.
func (l *WebLoader) fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, "", fmt.Errorf("invalid URL %q", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; lio/1.0)")

	start := time.Now()
	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetching %q: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetching %q: HTTP %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return nil, "", fmt.Errorf("reading %q: %w", rawURL, err)
	}

	l.logger.Debug("fetched",
		"url", rawURL,
		"bytes", len(body),
		"content_type", resp.Header.Get("Content-Type"),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return body, resp.Header.Get("Content-Type"), nil
}

// clampText truncates extracted text to the tool output cap.
func clampText(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxToolText {
		return s[:maxToolText] + "\n... [truncated]"
	}
	return s
}

// isMostlyText reports whether a payload looks like text despite an
// unhelpful content type.
func isMostlyText(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	sample := b
	if len(sample) > 1024 {
		sample = sample[:1024]
	}
	printable := 0
	for _, c := range sample {
		if c == '\n' || c == '\r' || c == '\t' || c >= 0x20 {
			printable++
		}
	}
	return printable*10 >= len(sample)*9
}
