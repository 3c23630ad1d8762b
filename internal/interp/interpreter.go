// Package interp turns the inbound event stream into ordered ledger mutations
// and transient indicator state. It is the only writer of assistant/system
// entries; the dispatcher funnels its fallback results through here so ledger
// ownership stays in one place.
package interp

import (
	"io"
	"log"
	"sync"
	"time"

	"github.com/HueCodes/shipagent/internal/chatwire"
	"github.com/HueCodes/shipagent/internal/ledger"
)

const (
	toolClearDelay = 500 * time.Millisecond

	// DefaultErrorText stands in when an error event carries no message.
	DefaultErrorText = "An error occurred while processing your request. Please try again."
)

type ToolState string

const (
	ToolStateStart    ToolState = "start"
	ToolStateComplete ToolState = "complete"
)

// ToolActivity is the transient tool-execution indicator. At most one is live
// at a time and it is superseded or cleared by later events.
type ToolActivity struct {
	Tool    string
	State   ToolState
	Success *bool
}

// Snapshot is the indicator state the UI renders alongside the ledger. The
// tool indicator, when present, visually supersedes the status text; both are
// tracked independently.
type Snapshot struct {
	StatusText string
	Tool       *ToolActivity
	Busy       bool
}

type Interpreter struct {
	logger *log.Logger
	ledger *ledger.Ledger

	mu          sync.Mutex
	statusText  string
	tool        *ToolActivity
	toolSeq     uint64
	busy        bool
	streamingID string
	onChange    func()

	afterFunc func(time.Duration, func()) *time.Timer
}

func New(l *ledger.Ledger, logger *log.Logger) *Interpreter {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Interpreter{
		logger:    logger,
		ledger:    l,
		afterFunc: time.AfterFunc,
	}
}

// SetOnChange registers a callback fired, outside the lock, whenever the
// snapshot state changes.
func (i *Interpreter) SetOnChange(fn func()) {
	i.mu.Lock()
	i.onChange = fn
	i.mu.Unlock()
}

func (i *Interpreter) notify() {
	i.mu.Lock()
	fn := i.onChange
	i.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (i *Interpreter) Snapshot() Snapshot {
	i.mu.Lock()
	defer i.mu.Unlock()
	snap := Snapshot{StatusText: i.statusText, Busy: i.busy}
	if i.tool != nil {
		tool := *i.tool
		snap.Tool = &tool
	}
	return snap
}

func (i *Interpreter) Busy() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.busy
}

// TryBeginTurn raises the busy flag and appends the user message, refusing
// when a turn is already in flight. The check and the flag flip share one
// critical section so concurrent callers cannot both pass the gate.
func (i *Interpreter) TryBeginTurn(text string) (string, bool) {
	i.mu.Lock()
	if i.busy {
		i.mu.Unlock()
		return "", false
	}
	i.busy = true
	i.mu.Unlock()

	id := i.ledger.Append(ledger.RoleUser, text, false)
	i.notify()
	return id, true
}

// FinishFallback records a full request/response answer and ends the turn.
func (i *Interpreter) FinishFallback(content string) {
	i.ledger.Append(ledger.RoleAssistant, content, false)
	i.endTurn()
}

// FailTurn surfaces a turn-level failure as a system entry and ends the turn.
// Partially streamed content, if any, is left in place.
func (i *Interpreter) FailTurn(message string) {
	if message == "" {
		message = DefaultErrorText
	}

	i.mu.Lock()
	i.statusText = ""
	i.tool = nil
	i.toolSeq++
	streamingID := i.streamingID
	i.mu.Unlock()

	if streamingID != "" {
		if err := i.ledger.Finalize(streamingID, nil); err != nil {
			i.logger.Printf("finalize streaming message id=%s err=%v", streamingID, err)
		}
	}
	i.ledger.Append(ledger.RoleSystem, message, false)
	i.endTurn()
}

func (i *Interpreter) endTurn() {
	i.mu.Lock()
	i.busy = false
	i.streamingID = ""
	i.mu.Unlock()
	i.notify()
}

// HandleEvent applies one inbound event. Events arrive in per-connection
// order; each variant maps to exactly one state transition.
func (i *Interpreter) HandleEvent(ev chatwire.Event) {
	switch e := ev.(type) {
	case chatwire.StatusEvent:
		i.handleStatus(e)
	case chatwire.ToolStartEvent:
		i.setTool(&ToolActivity{Tool: e.Tool, State: ToolStateStart}, false)
	case chatwire.ToolCompleteEvent:
		i.setTool(&ToolActivity{Tool: e.Tool, State: ToolStateComplete, Success: e.Success}, true)
	case chatwire.ChunkEvent:
		i.handleChunk(e)
	case chatwire.CompleteEvent:
		i.handleComplete(e)
	case chatwire.ErrorEvent:
		i.FailTurn(e.Message)
	default:
		i.logger.Printf("dropping unhandled event type=%s", ev.Type())
	}
}

func (i *Interpreter) handleStatus(e chatwire.StatusEvent) {
	i.mu.Lock()
	i.statusText = e.Message
	i.mu.Unlock()
	i.notify()
}

func (i *Interpreter) setTool(activity *ToolActivity, scheduleClear bool) {
	i.mu.Lock()
	i.tool = activity
	i.toolSeq++
	seq := i.toolSeq
	i.mu.Unlock()
	i.notify()

	if !scheduleClear {
		return
	}
	// The latest scheduled clear wins; an earlier timer firing checks that
	// its target indicator is still the live one before erasing it.
	i.afterFunc(toolClearDelay, func() {
		i.mu.Lock()
		if i.toolSeq != seq {
			i.mu.Unlock()
			return
		}
		i.tool = nil
		i.mu.Unlock()
		i.notify()
	})
}

func (i *Interpreter) handleChunk(e chatwire.ChunkEvent) {
	i.mu.Lock()
	i.statusText = ""
	if i.streamingID == "" {
		i.mu.Unlock()
		id := i.ledger.Append(ledger.RoleAssistant, "", true)
		i.mu.Lock()
		i.streamingID = id
	}
	id := i.streamingID
	i.mu.Unlock()

	if err := i.ledger.AppendContent(id, e.Content); err != nil {
		i.logger.Printf("append chunk id=%s err=%v", id, err)
	}
	i.notify()
}

func (i *Interpreter) handleComplete(e chatwire.CompleteEvent) {
	i.mu.Lock()
	i.statusText = ""
	i.tool = nil
	i.toolSeq++
	streamingID := i.streamingID
	i.mu.Unlock()

	// A turn that produced no chunks finalizes without a ledger entry.
	if streamingID != "" {
		if err := i.ledger.Finalize(streamingID, e.Content); err != nil {
			i.logger.Printf("finalize id=%s err=%v", streamingID, err)
		}
	}
	i.endTurn()
}
