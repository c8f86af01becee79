// Copyright (c) 2025 Beacon Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/beaconhq/console-agent/internal/conversation"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrNotFound    = errors.New("conversation not found")
	ErrNoSessionID = errors.New("conversation has no session id")
)

// =============================================================================
// SCHEMA
// =============================================================================

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
    session_id    TEXT PRIMARY KEY,
    title         TEXT NOT NULL,
    tenant        TEXT NOT NULL DEFAULT '',
    created_at    INTEGER NOT NULL,
    updated_at    INTEGER NOT NULL,
    message_count INTEGER NOT NULL,
    messages      TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_conversations_updated ON conversations(updated_at);
CREATE INDEX IF NOT EXISTS idx_conversations_tenant ON conversations(tenant);
`

// =============================================================================
// STORE
// =============================================================================

// Meta is the listing row for one stored conversation.
type Meta struct {
	SessionID    string    `json:"session_id"`
	Title        string    `json:"title"`
	Tenant       string    `json:"tenant"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

// Store persists conversations keyed by session id.
type Store struct {
	db *sql.DB

	// MaxConversations caps stored rows; the oldest are pruned on save
	// (0 = unlimited).
	MaxConversations int
}

// DefaultPath returns the per-user database location.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".beacon", "history.db"), nil
}

// Open opens or creates the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
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

	return &Store{db: db, MaxConversations: 200}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================
// SAVE / LOAD
// =============================================================================

// Save upserts the conversation under its session id. The title derives from
// the first user message when the row is new.
func (s *Store) Save(sessionID, tenant string, msgs []conversation.Message) error {
	if sessionID == "" {
		return ErrNoSessionID
	}

	blob, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("failed to encode messages: %w", err)
	}

	now := time.Now().Unix()
	_, err = s.db.Exec(`
        INSERT INTO conversations (session_id, title, tenant, created_at, updated_at, message_count, messages)
        VALUES (?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(session_id) DO UPDATE SET
            updated_at = excluded.updated_at,
            message_count = excluded.message_count,
            messages = excluded.messages`,
		sessionID, deriveTitle(msgs), tenant, now, now, len(msgs), string(blob))
	if err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}

	return s.prune()
}

// Load returns the messages of a stored conversation.
func (s *Store) Load(sessionID string) ([]conversation.Message, error) {
	var blob string
	err := s.db.QueryRow(
		"SELECT messages FROM conversations WHERE session_id = ?", sessionID,
	).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}

	var msgs []conversation.Message
	if err := json.Unmarshal([]byte(blob), &msgs); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}
	return msgs, nil
}

// List returns conversation metadata, most recently updated first.
func (s *Store) List(limit int) ([]Meta, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(`
        SELECT session_id, title, tenant, created_at, updated_at, message_count
        FROM conversations ORDER BY updated_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	return scanMetas(rows)
}

// Search returns conversations whose title or content contains the query,
// most recently updated first.
func (s *Store) Search(query string, limit int) ([]Meta, error) {
	if limit <= 0 {
		limit = 50
	}
	pattern := "%" + query + "%"
	rows, err := s.db.Query(`
        SELECT session_id, title, tenant, created_at, updated_at, message_count
        FROM conversations
        WHERE title LIKE ? OR messages LIKE ?
        ORDER BY updated_at DESC LIMIT ?`, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search conversations: %w", err)
	}
	defer rows.Close()

	return scanMetas(rows)
}

// Delete removes one stored conversation.
func (s *Store) Delete(sessionID string) error {
	res, err := s.db.Exec("DELETE FROM conversations WHERE session_id = ?", sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Clear removes every stored conversation.
func (s *Store) Clear() error {
	_, err := s.db.Exec("DELETE FROM conversations")
	if err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

// Count returns the number of stored conversations.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM conversations").Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// =============================================================================
// INTERNAL
// =============================================================================

// prune enforces MaxConversations by removing the oldest rows.
func (s *Store) prune() error {
	if s.MaxConversations <= 0 {
		return nil
	}
	_, err := s.db.Exec(`
        DELETE FROM conversations WHERE session_id IN (
            SELECT session_id FROM conversations
            ORDER BY updated_at DESC LIMIT -1 OFFSET ?
        )`, s.MaxConversations)
	return err
}

func scanMetas(rows *sql.Rows) ([]Meta, error) {
	var out []Meta
	for rows.Next() {
		var m Meta
		var created, updated int64
		if err := rows.Scan(&m.SessionID, &m.Title, &m.Tenant, &created, &updated, &m.MessageCount); err != nil {
			return nil, err
		}
		m.CreatedAt = time.Unix(created, 0)
		m.UpdatedAt = time.Unix(updated, 0)
		out = append(out, m)
	}
	return out, rows.Err()
}

// deriveTitle takes the first user message as the conversation title.
func deriveTitle(msgs []conversation.Message) string {
	for _, m := range msgs {
		if m.Role == conversation.RoleUser && m.Content != "" {
			return m.Preview(80)
		}
	}
	return "Untitled conversation"
}
