// Package identity produces and persists the per-profile session identifier
// that correlates every transport call with server-side conversation state.
// The identifier lives in a single file under the shipagent dot-directory,
// the CLI analogue of the browser's local-storage key.
package identity

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/HueCodes/shipagent/internal/ids"
)

const (
	shipagentDirName = ".shipagent"
	sessionFileName  = "session"
)

// DefaultPath resolves the session file location, preferring a local
// .shipagent directory over the home one when it already exists.
func DefaultPath() (string, error) {
	if info, err := os.Stat(shipagentDirName); err == nil && info.IsDir() {
		return filepath.Join(shipagentDirName, sessionFileName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, shipagentDirName, sessionFileName), nil
}

// Manager owns the persisted identifier. The identifier is created lazily on
// first access and replaced, never mutated, on reset.
type Manager struct {
	mu     sync.Mutex
	path   string
	cached string

	now func() time.Time
}

func NewManager(path string) *Manager {
	return &Manager{
		path: path,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Get returns the persisted session identifier, creating and persisting one
// if none exists. No network call is involved.
func (m *Manager) Get() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cached != "" {
		return m.cached, nil
	}

	data, err := os.ReadFile(m.path)
	if err == nil {
		id := strings.TrimSpace(string(data))
		if id != "" {
			m.cached = id
			return id, nil
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("read session file %s: %w", m.path, err)
	}

	return m.replaceLocked()
}

// Reset discards the current identifier and persists a fresh one. Callers are
// expected to discard local conversation state; the server treats the new
// identifier as a fresh conversation.
func (m *Manager) Reset() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.replaceLocked()
}

func (m *Manager) replaceLocked() (string, error) {
	id := ids.NewSession(m.now())
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return "", fmt.Errorf("create session dir: %w", err)
	}
	if err := os.WriteFile(m.path, []byte(id+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("write session file %s: %w", m.path, err)
	}
	m.cached = id
	return id, nil
}
