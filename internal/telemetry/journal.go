package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Entry is one proxied request as seen by the route handler
type Entry struct {
	ID        int64
	Action    string
	SessionID string
	Status    int
	Duration  time.Duration
	Error     string
	CreatedAt time.Time
}

// Journal records route handler traffic in SQLite. It never stores
// message content.
type Journal struct {
	db *sql.DB
}

// InitDB opens (or creates) the journal database at path
func InitDB(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	createRequestsTable := `
	CREATE TABLE IF NOT EXISTS requests (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		action TEXT NOT NULL,
		session_id TEXT,
		status INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		error TEXT,
		created_at DATETIME NOT NULL
	);`

	if _, err := db.Exec(createRequestsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create requests table: %w", err)
	}

	return &Journal{db: db}, nil
}

// Record appends an entry; CreatedAt defaults to now
func (j *Journal) Record(ctx context.Context, e Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := j.db.ExecContext(ctx,
		"INSERT INTO requests (action, session_id, status, duration_ms, error, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		e.Action, e.SessionID, e.Status, e.Duration.Milliseconds(), e.Error, e.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record request: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := j.db.QueryContext(ctx,
		"SELECT id, action, session_id, status, duration_ms, error, created_at FROM requests ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var durationMS int64
		var sessionID, errText sql.NullString
		if err := rows.Scan(&e.ID, &e.Action, &sessionID, &e.Status, &durationMS, &errText, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		e.SessionID = sessionID.String
		e.Error = errText.String
		e.Duration = time.Duration(durationMS) * time.Millisecond
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the database
func (j *Journal) Close() error {
	return j.db.Close()
}
