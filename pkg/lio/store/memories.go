// Package store – memories.go persists user memories.
// Search uses case-insensitive substring matching, which is plenty for the
// handful of memories a single user accumulates.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MemoryStore persists user memories.
type MemoryStore interface {
	CreateMemory(ctx context.Context, memory *Memory) error
	GetMemoriesByUserID(ctx context.Context, userID string) ([]Memory, error)
	SearchMemoriesByUserID(ctx context.Context, userID, query string) ([]Memory, error)
	DeleteMemoryByID(ctx context.Context, userID, id string) error
}

// SQLiteMemoryStore implements MemoryStore on the shared database.
type SQLiteMemoryStore struct {
	db *sql.DB
}

// NewMemoryStore creates a SQLite-backed memory store.
func NewMemoryStore(db *sql.DB) *SQLiteMemoryStore {
	return &SQLiteMemoryStore{db: db}
}

// CreateMemory stores one memory. A missing ID is generated.
func (s *SQLiteMemoryStore) CreateMemory(ctx context.Context, memory *Memory) error {
	if memory.ID == "" {
		memory.ID = uuid.NewString()
	}
	if memory.CreatedAt.IsZero() {
		memory.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO memories (id, user_id, content, created_at)
		VALUES (?, ?, ?, ?)`,
		memory.ID, memory.UserID, memory.Content,
		memory.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("create memory: %w", err)
	}
	return nil
}

// GetMemoriesByUserID returns the user's memories, newest first.
func (s *SQLiteMemoryStore) GetMemoriesByUserID(ctx context.Context, userID string) ([]Memory, error) {
	return s.queryMemories(ctx,
		"SELECT id, user_id, content, created_at FROM memories WHERE user_id = ? ORDER BY created_at DESC",
		userID)
}

// SearchMemoriesByUserID returns memories whose content matches the query.
func (s *SQLiteMemoryStore) SearchMemoriesByUserID(ctx context.Context, userID, query string) ([]Memory, error) {
	return s.queryMemories(ctx,
		"SELECT id, user_id, content, created_at FROM memories WHERE user_id = ? AND content LIKE ? ORDER BY created_at DESC",
		userID, "%"+query+"%")
}

// DeleteMemoryByID removes a memory.
func (s *SQLiteMemoryStore) DeleteMemoryByID(ctx context.Context, userID, id string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM memories WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("delete memory %q: %w", id, err)
	}
	return nil
}

func (s *SQLiteMemoryStore) queryMemories(ctx context.Context, query string, args ...any) ([]Memory, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load memories: %w", err)
	}
	defer rows.Close()

	var memories []Memory
	for rows.Next() {
		var (
			m         Memory
			createdAt string
		)
		if err := rows.Scan(&m.ID, &m.UserID, &m.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		m.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		memories = append(memories, m)
	}
	return memories, rows.Err()
}
