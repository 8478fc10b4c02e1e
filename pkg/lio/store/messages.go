// Package store – messages.go persists conversation history rows.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MessageStore persists and loads conversation history.
type MessageStore interface {
	// CreateMessage stores one conversation row. A missing ID is generated.
	CreateMessage(ctx context.Context, msg *ConversationMessage) error

	// GetMessagesByUserID returns the limit most recent rows for the user,
	// ordered oldest-first for LLM context.
	GetMessagesByUserID(ctx context.Context, userID string, limit int) ([]ConversationMessage, error)
}

// SQLiteMessageStore implements MessageStore on the shared database.
type SQLiteMessageStore struct {
	db *sql.DB
}

// NewMessageStore creates a SQLite-backed message store.
func NewMessageStore(db *sql.DB) *SQLiteMessageStore {
	return &SQLiteMessageStore{db: db}
}

// CreateMessage stores one conversation row.
func (s *SQLiteMessageStore) CreateMessage(ctx context.Context, msg *ConversationMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	content, err := msg.Content.encode()
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO messages (id, user_id, role, content, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		msg.ID, msg.UserID, string(msg.Role), content,
		msg.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

// GetMessagesByUserID returns the limit most recent rows, oldest-first.
func (s *SQLiteMessageStore) GetMessagesByUserID(ctx context.Context, userID string, limit int) ([]ConversationMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, role, content, created_at
		FROM (
			SELECT id, user_id, role, content, created_at
			FROM messages WHERE user_id = ?
			ORDER BY created_at DESC LIMIT ?
		) ORDER BY created_at ASC`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	defer rows.Close()

	var msgs []ConversationMessage
	for rows.Next() {
		var (
			m         ConversationMessage
			role      string
			content   string
			createdAt string
		)
		if err := rows.Scan(&m.ID, &m.UserID, &role, &content, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Role = Role(role)
		if m.Content, err = decodeContent(content); err != nil {
			return nil, err
		}
		m.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
