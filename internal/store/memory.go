package store

import (
	"context"
	"fmt"
	"sync"
)

type MemoryStore struct {
	mu       sync.Mutex
	messages map[string][]Record
	closed   bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{messages: make(map[string][]Record)}
}

func (s *MemoryStore) Append(_ context.Context, sessionID string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("memory store is closed")
	}
	s.messages[sessionID] = append(s.messages[sessionID], rec)
	return nil
}

func (s *MemoryStore) List(_ context.Context, sessionID string, limit int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("memory store is closed")
	}
	records := tail(s.messages[sessionID], limit)
	out := make([]Record, len(records))
	copy(out, records)
	return out, nil
}

func (s *MemoryStore) Clear(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("memory store is closed")
	}
	delete(s.messages, sessionID)
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
