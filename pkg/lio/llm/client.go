// Package llm implements the language model client for chat completions
// with function calling and schema-constrained structured output.
// Uses the OpenAI-compatible API format, which works with OpenAI and any
// compatible endpoint.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

// Client handles communication with the LLM provider API.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	searchModel string
	speechModel string
	imageModel  string
	httpClient  *http.Client
	logger      *slog.Logger
}

// Options configures a Client.
type Options struct {
	BaseURL     string
	APIKey      string
	Model       string
	SearchModel string
	SpeechModel string
	ImageModel  string
}

// NewClient creates a new LLM client.
func NewClient(opts Options, logger *slog.Logger) *Client {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	model := opts.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	return &Client{
		baseURL:     baseURL,
		apiKey:      opts.APIKey,
		model:       model,
		searchModel: opts.SearchModel,
		speechModel: opts.SpeechModel,
		imageModel:  opts.ImageModel,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: logger.With("component", "llm"),
	}
}

// ---------- Wire Types (OpenAI-compatible) ----------

// Message represents a message in the chat format. Supports user, system,
// assistant (with optional tool_calls), and tool result messages.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// chatRequest is the OpenAI-compatible chat completions request.
type chatRequest struct {
	Model          string           `json:"model"`
	Messages       []Message        `json:"messages"`
	Tools          []ToolDefinition `json:"tools,omitempty"`
	ResponseFormat *responseFormat  `json:"response_format,omitempty"`
}

// responseFormat constrains output to a JSON schema.
type responseFormat struct {
	Type       string            `json:"type"`
	JSONSchema *jsonSchemaFormat `json:"json_schema,omitempty"`
}

type jsonSchemaFormat struct {
	Name   string          `json:"name"`
	Strict bool            `json:"strict"`
	Schema json.RawMessage `json:"schema"`
}

// chatResponse is the OpenAI-compatible chat completions response.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content   string     `json:"content"`
			ToolCalls []ToolCall `json:"tool_calls,omitempty"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// ToolDefinition is an OpenAI-compatible tool definition for function calling.
type ToolDefinition struct {
	Type     string      `json:"type"`
	Function FunctionDef `json:"function"`
}

// FunctionDef describes a callable function exposed to the LLM.
type FunctionDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// ToolCall represents a tool invocation requested by the LLM.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall holds the function name and serialized arguments from the LLM.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Response holds the parsed response from a chat completion.
type Response struct {
	Content      string
	ToolCalls    []ToolCall
	FinishReason string
	Usage        Usage
}

// Usage holds token usage information from the API response.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// ---------- Public Methods ----------

// Complete sends a chat completion request with optional tool definitions.
// Returns a structured response that may include tool calls the LLM wants
// to execute. If tools is nil/empty, behaves as a regular chat completion.
func (c *Client) Complete(ctx context.Context, messages []Message, tools []ToolDefinition) (*Response, error) {
	req := chatRequest{
		Model:    c.model,
		Messages: messages,
	}
	if len(tools) > 0 {
		req.Tools = tools
	}
	return c.doChat(ctx, req)
}

// CompleteStructured sends a chat completion constrained to the given JSON
// schema and returns the raw JSON content. The call either yields output
// valid against the schema or fails outright.
func (c *Client) CompleteStructured(ctx context.Context, messages []Message, schemaName string, schema json.RawMessage) (json.RawMessage, error) {
	req := chatRequest{
		Model:    c.model,
		Messages: messages,
		ResponseFormat: &responseFormat{
			Type: "json_schema",
			JSONSchema: &jsonSchemaFormat{
				Name:   schemaName,
				Strict: true,
				Schema: schema,
			},
		},
	}

	resp, err := c.doChat(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.Content == "" {
		return nil, fmt.Errorf("structured completion %q: empty content", schemaName)
	}
	return json.RawMessage(resp.Content), nil
}

// SearchCompletion runs a single completion against the search-grounded
// model and returns its answer text. Used by the searchWeb capability.
func (c *Client) SearchCompletion(ctx context.Context, query string) (string, error) {
	model := c.searchModel
	if model == "" {
		model = c.model
	}
	resp, err := c.doChat(ctx, chatRequest{
		Model: model,
		Messages: []Message{{
			Role:    "user",
			Content: query,
		}},
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// doChat performs one chat completions call.
func (c *Client) doChat(ctx context.Context, reqBody chatRequest) (*Response, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("API key not configured (set OPENAI_API_KEY)")
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	respBody, status, duration, err := c.post(ctx, "/chat/completions", "application/json", bodyBytes)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		c.logger.Error("API error",
			"status", status,
			"body", truncate(string(respBody), 500),
		)
		return nil, fmt.Errorf("API returned %d: %s", status, truncate(string(respBody), 500))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	if chatResp.Error != nil {
		return nil, fmt.Errorf("API error: %s", chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("no response from model")
	}

	choice := chatResp.Choices[0]
	content := strings.TrimSpace(choice.Message.Content)

	c.logger.Info("chat completion done",
		"model", reqBody.Model,
		"duration_ms", duration.Milliseconds(),
		"prompt_tokens", chatResp.Usage.PromptTokens,
		"completion_tokens", chatResp.Usage.CompletionTokens,
		"finish_reason", choice.FinishReason,
		"tool_calls", len(choice.Message.ToolCalls),
	)

	return &Response{
		Content:      content,
		ToolCalls:    choice.Message.ToolCalls,
		FinishReason: choice.FinishReason,
		Usage: Usage{
			PromptTokens:     chatResp.Usage.PromptTokens,
			CompletionTokens: chatResp.Usage.CompletionTokens,
			TotalTokens:      chatResp.Usage.TotalTokens,
		},
	}, nil
}

// post sends a POST request to the given API path and returns the body,
// status, and elapsed time.
func (c *Client) post(ctx context.Context, path, contentType string, body []byte) ([]byte, int, time.Duration, error) {
	endpoint := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("reading response: %w", err)
	}
	return respBody, resp.StatusCode, time.Since(start), nil
}

// truncate shortens s to at most n bytes for logging.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
