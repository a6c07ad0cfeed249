// Package store persists the server's resolution request log in SQLite.
// The log is append-mostly operational data: who asked for what and which
// sound and theme the resolver picked. Conversation ledgers are never
// persisted here; the session owns those.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"ambiance/internal/logging"
)

// Entry is one logged resolution request. SoundID and ThemeID are empty
// when the resolver produced no pick for that axis.
type Entry struct {
	ID        string
	CreatedAt time.Time
	UserID    string
	Text      string
	SoundID   string
	ThemeID   string
}

// RequestLog is the SQLite-backed log.
type RequestLog struct {
	db *sql.DB
}

// Open initializes the log database at path, creating parent directories
// and the schema as needed.
func Open(path string) (*RequestLog, error) {
	logging.Store("opening request log at %s", path)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("failed to set sqlite journal_mode=WAL: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		logging.StoreDebug("failed to set sqlite synchronous=NORMAL: %v", err)
	}

	l := &RequestLog{db: db}
	if err := l.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	logging.StoreDebug("request log schema ready")
	return l, nil
}

func (l *RequestLog) initialize() error {
	_, err := l.db.Exec(`
		CREATE TABLE IF NOT EXISTS request_log (
			id TEXT PRIMARY KEY,
			created_at TIMESTAMP NOT NULL,
			user_id TEXT NOT NULL,
			text TEXT NOT NULL,
			sound_id TEXT NOT NULL DEFAULT '',
			theme_id TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_request_log_created ON request_log(created_at);
		CREATE INDEX IF NOT EXISTS idx_request_log_user ON request_log(user_id);
	`)
	if err != nil {
		return fmt.Errorf("failed to initialize request log schema: %w", err)
	}
	return nil
}

// Insert records one resolution request and returns the new entry's id.
func (l *RequestLog) Insert(ctx context.Context, userID, text string, soundID, themeID *string) (string, error) {
	id := uuid.NewString()
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO request_log (id, created_at, user_id, text, sound_id, theme_id)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, time.Now().UTC(), userID, text, deref(soundID), deref(themeID))
	if err != nil {
		return "", fmt.Errorf("failed to insert request log entry: %w", err)
	}
	logging.StoreDebug("request log entry %s for user %s", id, userID)
	return id, nil
}

// Recent returns the newest entries, most recent first.
func (l *RequestLog) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, created_at, user_id, text, sound_id, theme_id
		FROM request_log ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query request log: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.CreatedAt, &e.UserID, &e.Text, &e.SoundID, &e.ThemeID); err != nil {
			return nil, fmt.Errorf("failed to scan request log entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close releases the database handle.
func (l *RequestLog) Close() error {
	return l.db.Close()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
