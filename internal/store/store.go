// Package store persists per-session conversation history for the agent
// daemon. Drivers cover in-process memory, SQL databases through GORM, and
// Redis.
package store

import (
	"context"
	"time"
)

// Record is one persisted chat message.
type Record struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Store is the conversation history backend. List returns messages oldest
// first; a positive limit keeps only the most recent entries.
type Store interface {
	Append(ctx context.Context, sessionID string, rec Record) error
	List(ctx context.Context, sessionID string, limit int) ([]Record, error)
	Clear(ctx context.Context, sessionID string) error
	Close() error
}

func tail(records []Record, limit int) []Record {
	if limit > 0 && len(records) > limit {
		return records[len(records)-limit:]
	}
	return records
}
