// Package archive writes chat transcripts to a local SQLite file so past
// conversations survive across CLI runs and can be grepped offline.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/HueCodes/shipagent/internal/ledger"
)

const schema = `
CREATE TABLE IF NOT EXISTS transcript (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	sent_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transcript_session ON transcript(session_id, id);
`

// Entry is one archived transcript line.
type Entry struct {
	SessionID string
	Role      ledger.Role
	Content   string
	SentAt    time.Time
}

type Archive struct {
	db *sql.DB
}

func Open(path string) (*Archive, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create archive dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("archive ping failed: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create archive schema: %w", err)
	}
	return &Archive{db: db}, nil
}

func (a *Archive) Record(ctx context.Context, sessionID string, msg ledger.Message) error {
	_, err := a.db.ExecContext(ctx,
		"INSERT INTO transcript (session_id, role, content, sent_at) VALUES (?, ?, ?, ?)",
		sessionID, string(msg.Role), msg.Content, msg.Timestamp.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("record transcript line: %w", err)
	}
	return nil
}

// List returns a session's archived lines in the order they were written.
func (a *Archive) List(ctx context.Context, sessionID string) ([]Entry, error) {
	rows, err := a.db.QueryContext(ctx,
		"SELECT role, content, sent_at FROM transcript WHERE session_id = ? ORDER BY id",
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query transcript: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var role, sentAt string
		if err := rows.Scan(&role, &entry.Content, &sentAt); err != nil {
			return nil, fmt.Errorf("scan transcript row: %w", err)
		}
		entry.SessionID = sessionID
		entry.Role = ledger.Role(role)
		if parsed, err := time.Parse(time.RFC3339, sentAt); err == nil {
			entry.SentAt = parsed
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("transcript rows: %w", err)
	}
	return entries, nil
}

// Sessions lists the distinct session ids present in the archive, newest
// activity first.
func (a *Archive) Sessions(ctx context.Context) ([]string, error) {
	rows, err := a.db.QueryContext(ctx,
		"SELECT session_id FROM transcript GROUP BY session_id ORDER BY MAX(id) DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("session rows: %w", err)
	}
	return ids, nil
}

func (a *Archive) Close() error {
	return a.db.Close()
}
