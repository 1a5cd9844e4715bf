// Package feedback persists user feedback on answers for later offline
// analysis. Writes are fire-and-forget from the bot's point of view.
package feedback

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"askbot/internal/logging"

	_ "modernc.org/sqlite"
)

// Category buckets a piece of feedback.
type Category string

const (
	CategoryPositive Category = "positive"
	CategoryNegative Category = "negative"
	CategoryNeutral  Category = "neutral"
)

// Entry is one feedback record.
type Entry struct {
	ID        string
	UserID    string
	Question  string
	Answer    string
	Category  Category
	Text      string
	CreatedAt time.Time
}

// Store writes feedback entries through to SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the feedback database at path.
func NewStore(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create feedback directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open feedback database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS feedback (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		question TEXT NOT NULL,
		answer TEXT NOT NULL,
		category TEXT NOT NULL,
		text TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize feedback database: %w", err)
	}

	return &Store{db: db}, nil
}

// Record writes one feedback entry and returns its id.
func (s *Store) Record(userID, question, answer string, category Category, text string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		`INSERT INTO feedback (id, user_id, question, answer, category, text) VALUES (?, ?, ?, ?, ?, ?)`,
		id, userID, question, answer, string(category), text,
	)
	if err != nil {
		return "", fmt.Errorf("failed to record feedback: %w", err)
	}

	logging.Feedback("recorded %s feedback %s from user %s", category, id, userID)
	return id, nil
}

// Recent returns the newest entries, most recent first.
func (s *Store) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		`SELECT id, user_id, question, answer, category, text, created_at
		 FROM feedback ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var category string
		if err := rows.Scan(&e.ID, &e.UserID, &e.Question, &e.Answer, &category, &e.Text, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan feedback row: %w", err)
		}
		e.Category = Category(category)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }
