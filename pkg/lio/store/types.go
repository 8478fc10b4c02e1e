// Package store defines the persistence model for Lio and its SQLite-backed
// store implementations. Each store is a small interface so the pipeline can
// be exercised against fakes in tests.
package store

import (
	"encoding/json"
	"fmt"
	"time"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ContentKind discriminates the ContentPart union.
type ContentKind string

const (
	ContentText  ContentKind = "text"
	ContentImage ContentKind = "image"
	ContentFile  ContentKind = "file"
)

// ContentPart is one typed piece of message content. Exactly one of the
// value fields is meaningful for a given Kind: Text for text parts, URL for
// image parts, URL+MimeType for file parts.
type ContentPart struct {
	Kind     ContentKind `json:"type"`
	Text     string      `json:"text,omitempty"`
	URL      string      `json:"url,omitempty"`
	MimeType string      `json:"mimeType,omitempty"`
}

// TextPart builds a text content part.
func TextPart(text string) ContentPart {
	return ContentPart{Kind: ContentText, Text: text}
}

// ImagePart builds an image content part.
func ImagePart(url string) ContentPart {
	return ContentPart{Kind: ContentImage, URL: url}
}

// FilePart builds a file content part.
func FilePart(url, mimeType string) ContentPart {
	return ContentPart{Kind: ContentFile, URL: url, MimeType: mimeType}
}

// Content is the ordered list of parts making up one message.
type Content []ContentPart

// PlainText flattens content into a single string for LLM context. Non-text
// parts are rendered as bracketed references so the model still sees them.
func (c Content) PlainText() string {
	var out string
	for i, p := range c {
		if i > 0 {
			out += "\n"
		}
		switch p.Kind {
		case ContentText:
			out += p.Text
		case ContentImage:
			out += fmt.Sprintf("[image] %s", p.URL)
		case ContentFile:
			out += fmt.Sprintf("[file %s] %s", p.MimeType, p.URL)
		}
	}
	return out
}

// encode serializes content for the database.
func (c Content) encode() (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode content: %w", err)
	}
	return string(b), nil
}

// decodeContent parses stored content. Legacy rows hold a bare string
// instead of a part array; those become a single text part.
func decodeContent(raw string) (Content, error) {
	if raw == "" {
		return nil, nil
	}
	var parts Content
	if err := json.Unmarshal([]byte(raw), &parts); err == nil {
		return parts, nil
	}
	var s string
	if err := json.Unmarshal([]byte(raw), &s); err == nil {
		return Content{TextPart(s)}, nil
	}
	return Content{TextPart(raw)}, nil
}

// ConversationMessage is one stored conversation row. Immutable once created.
type ConversationMessage struct {
	ID        string
	UserID    string
	Role      Role
	Content   Content
	CreatedAt time.Time
}

// Priority orders tasks.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// ValidPriority reports whether p is a known priority level.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Task is one user task. Mutated only through tool invocations.
type Task struct {
	ID          string
	UserID      string
	Title       string
	Description string
	DueAt       *time.Time
	Priority    Priority
	Completed   bool
	CreatedAt   time.Time
}

// TaskUpdate carries a partial task update; nil fields are left unchanged.
type TaskUpdate struct {
	Title       *string
	Description *string
	DueAt       *time.Time
	Priority    *Priority
	Completed   *bool
}

// JobType discriminates reminder schedules.
type JobType string

const (
	JobOneTime JobType = "one-time"
	JobCron    JobType = "cron"
)

// Job is one scheduled reminder.
type Job struct {
	ID        string
	UserID    string
	Name      string
	Schedule  string
	Type      JobType
	Message   string
	CreatedAt time.Time
	LastRunAt *time.Time
}

// Memory is one stored user memory.
type Memory struct {
	ID        string
	UserID    string
	Content   string
	CreatedAt time.Time
}

// Feedback is one recorded piece of user feedback.
type Feedback struct {
	ID        string
	UserID    string
	Content   string
	CreatedAt time.Time
}

// User is one platform user known to the assistant.
type User struct {
	ID          string
	LineUserID  string
	DisplayName string
	Voice       string
	Active      bool
	CreatedAt   time.Time
}
