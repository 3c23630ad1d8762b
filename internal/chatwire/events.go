// Package chatwire defines the framed JSON protocol spoken between the chat
// client and the shipping-agent backend. Every inbound frame is one JSON
// object tagged by "type"; decoding produces one of the Event variants so
// consumers can switch exhaustively instead of probing type strings.
package chatwire

import (
	"encoding/json"
	"fmt"
	"strings"
)

type EventType string

const (
	EventTypeStatus       EventType = "status"
	EventTypeToolStart    EventType = "tool_start"
	EventTypeToolComplete EventType = "tool_complete"
	EventTypeChunk        EventType = "chunk"
	EventTypeComplete     EventType = "complete"
	EventTypeError        EventType = "error"
)

// SendFrame is the single outbound frame shape for the streaming connection
// and the body of the POST /api/chat fallback.
type SendFrame struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

// Event is the decoded form of one inbound frame.
type Event interface {
	Type() EventType
}

type StatusEvent struct {
	// Status is the machine-readable phase word ("thinking", "responding");
	// Message is the display text. Clients render Message only.
	Status  string
	Message string
}

type ToolStartEvent struct {
	Tool string
}

type ToolCompleteEvent struct {
	Tool string
	// Success is nil when the backend omitted the field.
	Success *bool
}

type ChunkEvent struct {
	Content string
}

type CompleteEvent struct {
	// Content is nil when the backend finished without an explicit final
	// body, meaning accumulated chunks stand as-is.
	Content *string
	// SessionID echoes the session the turn belonged to. Informational.
	SessionID string
}

type ErrorEvent struct {
	Message string
	Code    string
}

func (StatusEvent) Type() EventType       { return EventTypeStatus }
func (ToolStartEvent) Type() EventType    { return EventTypeToolStart }
func (ToolCompleteEvent) Type() EventType { return EventTypeToolComplete }
func (ChunkEvent) Type() EventType        { return EventTypeChunk }
func (CompleteEvent) Type() EventType     { return EventTypeComplete }
func (ErrorEvent) Type() EventType        { return EventTypeError }

// frame is the superset wire shape shared by every event type.
type frame struct {
	Type      EventType `json:"type"`
	Message   string    `json:"message,omitempty"`
	Status    string    `json:"status,omitempty"`
	Tool      string    `json:"tool,omitempty"`
	Success   *bool     `json:"success,omitempty"`
	Content   *string   `json:"content,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	Code      string    `json:"code,omitempty"`
}

// Decode parses one inbound frame. Frames with an unknown or missing type tag
// are an error; callers drop them without tearing down the connection.
func Decode(data []byte) (Event, error) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	switch f.Type {
	case EventTypeStatus:
		return StatusEvent{Status: f.Status, Message: f.Message}, nil
	case EventTypeToolStart:
		if strings.TrimSpace(f.Tool) == "" {
			return nil, fmt.Errorf("tool_start frame missing tool")
		}
		return ToolStartEvent{Tool: f.Tool}, nil
	case EventTypeToolComplete:
		if strings.TrimSpace(f.Tool) == "" {
			return nil, fmt.Errorf("tool_complete frame missing tool")
		}
		return ToolCompleteEvent{Tool: f.Tool, Success: f.Success}, nil
	case EventTypeChunk:
		if f.Content == nil {
			return nil, fmt.Errorf("chunk frame missing content")
		}
		return ChunkEvent{Content: *f.Content}, nil
	case EventTypeComplete:
		return CompleteEvent{Content: f.Content, SessionID: f.SessionID}, nil
	case EventTypeError:
		return ErrorEvent{Message: f.Message, Code: f.Code}, nil
	case "":
		return nil, fmt.Errorf("frame missing type tag")
	default:
		return nil, fmt.Errorf("unknown frame type %q", f.Type)
	}
}

// Encode serializes an event back into its frame form. Used by the dev server
// and by tests that script a backend.
func Encode(ev Event) ([]byte, error) {
	f := frame{Type: ev.Type()}
	switch e := ev.(type) {
	case StatusEvent:
		f.Status = e.Status
		f.Message = e.Message
	case ToolStartEvent:
		f.Tool = e.Tool
	case ToolCompleteEvent:
		f.Tool = e.Tool
		f.Success = e.Success
	case ChunkEvent:
		content := e.Content
		f.Content = &content
	case CompleteEvent:
		f.Content = e.Content
		f.SessionID = e.SessionID
	case ErrorEvent:
		f.Message = e.Message
		f.Code = e.Code
	default:
		return nil, fmt.Errorf("unsupported event type %T", ev)
	}
	return json.Marshal(f)
}
