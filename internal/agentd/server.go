// Package agentd serves the shipping assistant over HTTP and WebSocket: a
// request/response chat endpoint, session history, session reset, and the
// streaming endpoint that plays each turn out as tagged frames.
package agentd

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/HueCodes/shipagent/internal/agent"
	"github.com/HueCodes/shipagent/internal/chatwire"
	"github.com/HueCodes/shipagent/internal/store"
)

const (
	maxChatRequestBytes int64 = 1 << 20

	defaultSessionID   = "default"
	defaultHistorySize = 50
	streamChunkSize    = 20

	emptyMessageText = "Message cannot be empty"

	codeValidationError = "validation_error"
	codeInternalError   = "internal_error"
)

type server struct {
	logger *log.Logger
	agent  *agent.Agent
	store  store.Store
	now    func() time.Time
	// chunkDelay paces streamed chunks so the typing effect is visible.
	chunkDelay time.Duration
}

func NewServer(logger *log.Logger, addr string, chatAgent *agent.Agent, historyStore store.Store) *http.Server {
	h := newHandler(logger, chatAgent, historyStore)
	return &http.Server{
		Addr:              addr,
		Handler:           h.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func newHandler(logger *log.Logger, chatAgent *agent.Agent, historyStore store.Store) *server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &server{
		logger:     logger,
		agent:      chatAgent,
		store:      historyStore,
		now:        time.Now,
		chunkDelay: 20 * time.Millisecond,
	}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/api/chat", s.handleChat)
	mux.HandleFunc("/api/chat/history", s.handleHistory)
	mux.HandleFunc("/api/reset", s.handleReset)
	mux.HandleFunc("/api/chat/stream", s.handleStream)
	return mux
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	defer r.Body.Close()
	var req chatwire.SendFrame
	dec := json.NewDecoder(io.LimitReader(r.Body, maxChatRequestBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json", codeValidationError)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, emptyMessageText, codeValidationError)
		return
	}

	sessionID := sessionOrDefault(req.SessionID)
	_, response := s.agent.Reply(req.Message)
	s.persistTurn(r, sessionID, req.Message, response)

	writeJSON(w, http.StatusOK, map[string]any{
		"response":   response,
		"session_id": sessionID,
	})
}

func (s *server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := sessionOrDefault(r.URL.Query().Get("session_id"))
	limit := defaultHistorySize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer", codeValidationError)
			return
		}
		limit = parsed
	}

	records, err := s.store.List(r.Context(), sessionID, limit)
	if err != nil {
		s.logger.Printf("history list failed for %s: %v", sessionID, err)
		writeError(w, http.StatusInternalServerError, "failed to load history", codeInternalError)
		return
	}

	messages := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		messages = append(messages, map[string]any{
			"role":      rec.Role,
			"content":   rec.Content,
			"timestamp": rec.Timestamp.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"messages":   messages,
		"total":      len(messages),
	})
}

func (s *server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := sessionOrDefault(r.URL.Query().Get("session_id"))
	if err := s.store.Clear(r.Context(), sessionID); err != nil {
		s.logger.Printf("reset failed for %s: %v", sessionID, err)
		writeError(w, http.StatusInternalServerError, "failed to reset session", codeInternalError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"session_id": sessionID,
	})
}

func (s *server) handleStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("stream upgrade failed: %v", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxChatRequestBytes)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var req chatwire.SendFrame
		if err := json.Unmarshal(data, &req); err != nil {
			s.sendEvent(conn, chatwire.ErrorEvent{Message: "Invalid JSON format", Code: codeValidationError})
			continue
		}
		if strings.TrimSpace(req.Message) == "" {
			s.sendEvent(conn, chatwire.ErrorEvent{Message: emptyMessageText, Code: codeValidationError})
			continue
		}

		s.streamTurn(r, conn, sessionOrDefault(req.SessionID), req.Message)
	}
}

// streamTurn plays one chat turn out as frames: a working status, tool
// activity when a tool ran, a responding status, the reply in fixed-size
// chunks, and a closing complete frame.
func (s *server) streamTurn(r *http.Request, conn *websocket.Conn, sessionID, message string) {
	if !s.sendEvent(conn, chatwire.StatusEvent{Status: "thinking", Message: "Processing your request..."}) {
		return
	}

	tool, response := s.agent.Reply(message)
	if tool != "" {
		if !s.sendEvent(conn, chatwire.ToolStartEvent{Tool: tool}) {
			return
		}
		if !s.sendEvent(conn, chatwire.ToolCompleteEvent{Tool: tool}) {
			return
		}
	}

	if !s.sendEvent(conn, chatwire.StatusEvent{Status: "responding", Message: "Generating response..."}) {
		return
	}

	for _, chunk := range chunkText(response, streamChunkSize) {
		if !s.sendEvent(conn, chatwire.ChunkEvent{Content: chunk}) {
			return
		}
		if s.chunkDelay > 0 {
			time.Sleep(s.chunkDelay)
		}
	}

	s.persistTurn(r, sessionID, message, response)
	s.sendEvent(conn, chatwire.CompleteEvent{SessionID: sessionID})
}

// chunkText splits on rune boundaries so no frame carries a torn code point.
func chunkText(text string, size int) []string {
	runes := []rune(text)
	chunks := make([]string, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

func (s *server) sendEvent(conn *websocket.Conn, ev chatwire.Event) bool {
	data, err := chatwire.Encode(ev)
	if err != nil {
		s.logger.Printf("encode %s frame: %v", ev.Type(), err)
		return false
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.logger.Printf("write %s frame: %v", ev.Type(), err)
		return false
	}
	return true
}

func (s *server) persistTurn(r *http.Request, sessionID, userText, assistantText string) {
	now := s.now().UTC()
	userRec := store.Record{Role: "user", Content: userText, Timestamp: now}
	if err := s.store.Append(r.Context(), sessionID, userRec); err != nil {
		s.logger.Printf("persist user message for %s: %v", sessionID, err)
		return
	}
	assistantRec := store.Record{Role: "assistant", Content: assistantText, Timestamp: now}
	if err := s.store.Append(r.Context(), sessionID, assistantRec); err != nil {
		s.logger.Printf("persist assistant message for %s: %v", sessionID, err)
	}
}

func sessionOrDefault(id string) string {
	if strings.TrimSpace(id) == "" {
		return defaultSessionID
	}
	return id
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, map[string]any{
		"error": message,
		"code":  code,
	})
}
