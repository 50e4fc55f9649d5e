// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history maintains a local SQLite mirror of fetched transcripts so
// conversations can be searched offline. The backend stays authoritative; the
// cache is rebuilt opportunistically as transcripts are fetched and saved.
package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/aihub-tui/internal/model"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrNotFound      = errors.New("conversation not in cache")
	ErrDatabaseError = errors.New("database error")
)

// =============================================================================
// SCHEMA
// =============================================================================

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id           TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL DEFAULT '',
	title        TEXT NOT NULL DEFAULT '',
	model        TEXT NOT NULL DEFAULT '',
	total_tokens INTEGER NOT NULL DEFAULT 0,
	is_pinned    INTEGER NOT NULL DEFAULT 0,
	created_at   INTEGER NOT NULL DEFAULT 0,
	updated_at   INTEGER NOT NULL DEFAULT 0,
	cached_at    INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS messages (
	conversation_id TEXT NOT NULL,
	seq             INTEGER NOT NULL,
	role            TEXT NOT NULL,
	content         TEXT NOT NULL,
	timestamp       INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (conversation_id, seq),
	FOREIGN KEY (conversation_id) REFERENCES conversations(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_messages_content ON messages(content);
CREATE INDEX IF NOT EXISTS idx_conversations_updated ON conversations(updated_at);
`

// =============================================================================
// STORE
// =============================================================================

// Store is the local transcript cache.
type Store struct {
	db *sql.DB
}

// SearchResult is one search hit: the conversation a matching message belongs
// to, plus the matching message itself.
type SearchResult struct {
	ConversationID string
	Title          string
	Role           model.Role
	Content        string
	Timestamp      time.Time
}

// Open opens (creating if necessary) the cache database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the cache and releases resources.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// =============================================================================
// WRITES
// =============================================================================

// Upsert replaces the cached copy of a conversation and its messages.
func (s *Store) Upsert(conv *model.Conversation) error {
	if conv == nil || conv.ID == "" {
		return fmt.Errorf("%w: conversation missing id", ErrDatabaseError)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO conversations (id, user_id, title, model, total_tokens, is_pinned, created_at, updated_at, cached_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			title = excluded.title,
			model = excluded.model,
			total_tokens = excluded.total_tokens,
			is_pinned = excluded.is_pinned,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			cached_at = excluded.cached_at
	`, conv.ID, conv.UserID, conv.Title, conv.Model, conv.TotalTokens,
		boolToInt(conv.IsPinned), conv.CreatedAt.Unix(), conv.UpdatedAt.Unix(), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	if _, err := tx.Exec("DELETE FROM messages WHERE conversation_id = ?", conv.ID); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	stmt, err := tx.Prepare("INSERT INTO messages (conversation_id, seq, role, content, timestamp) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer stmt.Close()

	for i, msg := range conv.Messages {
		if _, err := stmt.Exec(conv.ID, i, string(msg.Role), msg.Content, msg.Timestamp.Unix()); err != nil {
			return fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
	}

	return tx.Commit()
}

// Delete removes a conversation from the cache. Missing rows are not an error.
func (s *Store) Delete(id string) error {
	_, err := s.db.Exec("DELETE FROM conversations WHERE id = ?", id)
	return err
}

// =============================================================================
// READS
// =============================================================================

// Get returns a cached conversation with its full transcript.
func (s *Store) Get(id string) (*model.Conversation, error) {
	conv := &model.Conversation{}
	var pinned int
	var createdAt, updatedAt int64

	err := s.db.QueryRow(`
		SELECT id, user_id, title, model, total_tokens, is_pinned, created_at, updated_at
		FROM conversations WHERE id = ?
	`, id).Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.Model,
		&conv.TotalTokens, &pinned, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	conv.IsPinned = pinned != 0
	conv.CreatedAt = time.Unix(createdAt, 0).UTC()
	conv.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	rows, err := s.db.Query(`
		SELECT role, content, timestamp FROM messages
		WHERE conversation_id = ? ORDER BY seq
	`, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var role, content string
		var ts int64
		if err := rows.Scan(&role, &content, &ts); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		conv.Messages = append(conv.Messages, model.Message{
			Role:      model.Role(role),
			Content:   content,
			Timestamp: time.Unix(ts, 0).UTC(),
		})
	}

	return conv, rows.Err()
}

// List returns cached conversation headers, most recently updated first.
// Messages are not populated.
func (s *Store) List() ([]model.Conversation, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, title, model, total_tokens, is_pinned, created_at, updated_at
		FROM conversations ORDER BY is_pinned DESC, updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var convs []model.Conversation
	for rows.Next() {
		var conv model.Conversation
		var pinned int
		var createdAt, updatedAt int64
		if err := rows.Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.Model,
			&conv.TotalTokens, &pinned, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		conv.IsPinned = pinned != 0
		conv.CreatedAt = time.Unix(createdAt, 0).UTC()
		conv.UpdatedAt = time.Unix(updatedAt, 0).UTC()
		convs = append(convs, conv)
	}

	return convs, rows.Err()
}

// Search finds cached messages whose content matches the query
// (case-insensitive substring). Results are ordered newest first.
func (s *Store) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(`
		SELECT m.conversation_id, c.title, m.role, m.content, m.timestamp
		FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE m.content LIKE ? ESCAPE '\'
		ORDER BY m.timestamp DESC
		LIMIT ?
	`, "%"+escapeLike(query)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		var role string
		var ts int64
		if err := rows.Scan(&r.ConversationID, &r.Title, &role, &r.Content, &ts); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
		r.Role = model.Role(role)
		r.Timestamp = time.Unix(ts, 0).UTC()
		results = append(results, r)
	}

	return results, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
