// Package store – users.go persists platform users.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// UserStore persists platform users.
type UserStore interface {
	// GetOrCreateByLineID returns the user for a LINE user ID, creating and
	// reactivating the row as needed. displayName updates the stored name
	// when non-empty.
	GetOrCreateByLineID(ctx context.Context, lineUserID, displayName string) (*User, error)

	// GetByID returns the user with the internal ID.
	GetByID(ctx context.Context, userID string) (*User, error)

	// Deactivate marks a user inactive (unfollow).
	Deactivate(ctx context.Context, lineUserID string) error

	// SetVoice updates the user's TTS persona.
	SetVoice(ctx context.Context, userID, voice string) error
}

// SQLiteUserStore implements UserStore on the shared database.
type SQLiteUserStore struct {
	db *sql.DB
}

// NewUserStore creates a SQLite-backed user store.
func NewUserStore(db *sql.DB) *SQLiteUserStore {
	return &SQLiteUserStore{db: db}
}

// GetOrCreateByLineID returns the user row for the LINE user ID.
func (s *SQLiteUserStore) GetOrCreateByLineID(ctx context.Context, lineUserID, displayName string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, line_user_id, display_name, voice, active, created_at
		FROM users WHERE line_user_id = ?`, lineUserID)

	var (
		u         User
		active    int
		createdAt string
	)
	err := row.Scan(&u.ID, &u.LineUserID, &u.DisplayName, &u.Voice, &active, &createdAt)
	switch {
	case err == sql.ErrNoRows:
		u = User{
			ID:          uuid.NewString(),
			LineUserID:  lineUserID,
			DisplayName: displayName,
			Active:      true,
			CreatedAt:   time.Now(),
		}
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO users (id, line_user_id, display_name, voice, active, created_at)
			VALUES (?, ?, ?, '', 1, ?)`,
			u.ID, u.LineUserID, u.DisplayName, u.CreatedAt.UTC().Format(time.RFC3339))
		if err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		return &u, nil
	case err != nil:
		return nil, fmt.Errorf("load user: %w", err)
	}

	u.Active = active != 0
	u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)

	if (displayName != "" && displayName != u.DisplayName) || !u.Active {
		if displayName != "" {
			u.DisplayName = displayName
		}
		u.Active = true
		if _, err := s.db.ExecContext(ctx,
			"UPDATE users SET display_name = ?, active = 1 WHERE id = ?",
			u.DisplayName, u.ID); err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}
	}
	return &u, nil
}

// GetByID returns the user with the internal ID.
func (s *SQLiteUserStore) GetByID(ctx context.Context, userID string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, line_user_id, display_name, voice, active, created_at
		FROM users WHERE id = ?`, userID)

	var (
		u         User
		active    int
		createdAt string
	)
	if err := row.Scan(&u.ID, &u.LineUserID, &u.DisplayName, &u.Voice, &active, &createdAt); err != nil {
		return nil, fmt.Errorf("load user %q: %w", userID, err)
	}
	u.Active = active != 0
	u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &u, nil
}

// Deactivate marks a user inactive.
func (s *SQLiteUserStore) Deactivate(ctx context.Context, lineUserID string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE users SET active = 0 WHERE line_user_id = ?", lineUserID)
	if err != nil {
		return fmt.Errorf("deactivate user: %w", err)
	}
	return nil
}

// SetVoice updates the user's TTS persona.
func (s *SQLiteUserStore) SetVoice(ctx context.Context, userID, voice string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE users SET voice = ? WHERE id = ?", voice, userID)
	if err != nil {
		return fmt.Errorf("set voice: %w", err)
	}
	return nil
}
