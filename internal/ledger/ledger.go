// Package ledger holds the ordered conversation transcript. The ledger is the
// single source of truth the UI renders; only the event interpreter (and the
// dispatcher, for the initial user append) may write to it.
package ledger

import (
	"errors"
	"sync"
	"time"

	"github.com/HueCodes/shipagent/internal/ids"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// WelcomeText seeds an empty conversation.
const WelcomeText = "Hi! I'm your shipping assistant. Ask me about rates, tracking a package, validating an address, or creating a shipment."

var ErrNotFound = errors.New("message not found")

// Message is one conversation turn entry. Role never changes after creation;
// Content and IsStreaming are mutable for the duration of a streamed turn.
type Message struct {
	ID          string    `json:"id"`
	Role        Role      `json:"role"`
	Content     string    `json:"content"`
	Timestamp   time.Time `json:"timestamp"`
	IsStreaming bool      `json:"is_streaming"`
}

// Ledger is an append-only sequence with targeted in-place mutation. Order is
// slice position, never timestamp; timestamps may collide.
type Ledger struct {
	mu       sync.Mutex
	messages []Message
	index    map[string]int
	observer func()

	now func() time.Time
}

func New() *Ledger {
	return &Ledger{
		index: make(map[string]int),
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// SetObserver registers a callback invoked after every mutation, outside the
// ledger lock. At most one observer; the UI is the expected consumer.
func (l *Ledger) SetObserver(fn func()) {
	l.mu.Lock()
	l.observer = fn
	l.mu.Unlock()
}

func (l *Ledger) notify() {
	l.mu.Lock()
	fn := l.observer
	l.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Append adds a message, assigning its id and timestamp, and returns the id.
func (l *Ledger) Append(role Role, content string, streaming bool) string {
	l.mu.Lock()
	msg := Message{
		ID:          ids.New(),
		Role:        role,
		Content:     content,
		Timestamp:   l.now(),
		IsStreaming: streaming,
	}
	l.index[msg.ID] = len(l.messages)
	l.messages = append(l.messages, msg)
	l.mu.Unlock()

	l.notify()
	return msg.ID
}

// MutateContent replaces a message's content in full.
func (l *Ledger) MutateContent(id, content string) error {
	l.mu.Lock()
	idx, ok := l.index[id]
	if !ok {
		l.mu.Unlock()
		return ErrNotFound
	}
	l.messages[idx].Content = content
	l.mu.Unlock()

	l.notify()
	return nil
}

// AppendContent concatenates a chunk onto a message's content.
func (l *Ledger) AppendContent(id, chunk string) error {
	l.mu.Lock()
	idx, ok := l.index[id]
	if !ok {
		l.mu.Unlock()
		return ErrNotFound
	}
	l.messages[idx].Content += chunk
	l.mu.Unlock()

	l.notify()
	return nil
}

// Finalize marks a streamed message done. When content is non-nil it replaces
// whatever accumulated; nil keeps the accumulated chunks.
func (l *Ledger) Finalize(id string, content *string) error {
	l.mu.Lock()
	idx, ok := l.index[id]
	if !ok {
		l.mu.Unlock()
		return ErrNotFound
	}
	if content != nil {
		l.messages[idx].Content = *content
	}
	l.messages[idx].IsStreaming = false
	l.mu.Unlock()

	l.notify()
	return nil
}

// ReplaceAll swaps the whole transcript, used to hydrate from server history.
// Incoming messages missing ids or timestamps get them assigned.
func (l *Ledger) ReplaceAll(messages []Message) {
	l.mu.Lock()
	l.messages = make([]Message, 0, len(messages))
	l.index = make(map[string]int, len(messages))
	for _, msg := range messages {
		if msg.ID == "" {
			msg.ID = ids.New()
		}
		if msg.Timestamp.IsZero() {
			msg.Timestamp = l.now()
		}
		l.index[msg.ID] = len(l.messages)
		l.messages = append(l.messages, msg)
	}
	l.mu.Unlock()

	l.notify()
}

// Reset clears the transcript down to the single system welcome entry.
func (l *Ledger) Reset() {
	l.mu.Lock()
	welcome := Message{
		ID:        ids.New(),
		Role:      RoleSystem,
		Content:   WelcomeText,
		Timestamp: l.now(),
	}
	l.messages = []Message{welcome}
	l.index = map[string]int{welcome.ID: 0}
	l.mu.Unlock()

	l.notify()
}

// Messages returns a copy of the transcript in order.
func (l *Ledger) Messages() []Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// Get returns one message by id.
func (l *Ledger) Get(id string) (Message, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	idx, ok := l.index[id]
	if !ok {
		return Message{}, false
	}
	return l.messages[idx], true
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.messages)
}
