// Package store – feedback.go records user feedback.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// FeedbackStore records user feedback.
type FeedbackStore interface {
	CreateFeedback(ctx context.Context, fb *Feedback) error
}

// SQLiteFeedbackStore implements FeedbackStore on the shared database.
type SQLiteFeedbackStore struct {
	db *sql.DB
}

// NewFeedbackStore creates a SQLite-backed feedback store.
func NewFeedbackStore(db *sql.DB) *SQLiteFeedbackStore {
	return &SQLiteFeedbackStore{db: db}
}

// CreateFeedback stores one feedback row. A missing ID is generated.
func (s *SQLiteFeedbackStore) CreateFeedback(ctx context.Context, fb *Feedback) error {
	if fb.ID == "" {
		fb.ID = uuid.NewString()
	}
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feedback (id, user_id, content, created_at)
		VALUES (?, ?, ?, ?)`,
		fb.ID, fb.UserID, fb.Content,
		fb.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("create feedback: %w", err)
	}
	return nil
}
