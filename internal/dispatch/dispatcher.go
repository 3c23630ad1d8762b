// Package dispatch is the single entry point for outgoing user messages. It
// routes each accepted message over the live streaming connection when one is
// open, or falls back to the one-shot request/response endpoint, and enforces
// the one-in-flight-turn contract.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/HueCodes/shipagent/internal/chatwire"
	"github.com/HueCodes/shipagent/internal/interp"
)

var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrBusy         = errors.New("a turn is already in flight")
)

// FallbackErrorText is surfaced when the request/response path fails. No
// automatic retry happens; the user may resend manually.
const FallbackErrorText = "Unable to connect to the AI assistant. Please try again later."

// Transport is the streaming-connection surface the dispatcher routes over.
type Transport interface {
	Connected() bool
	Send(message, sessionID string) bool
}

// SessionFunc yields the current session identifier.
type SessionFunc func() (string, error)

type chatResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}

type Dispatcher struct {
	logger     *log.Logger
	transport  Transport
	interp     *interp.Interpreter
	session    SessionFunc
	baseURL    string
	httpClient *http.Client
}

type Option func(*Dispatcher)

func WithHTTPClient(client *http.Client) Option {
	return func(d *Dispatcher) {
		if client != nil {
			d.httpClient = client
		}
	}
}

func New(transport Transport, interpreter *interp.Interpreter, session SessionFunc, baseURL string, logger *log.Logger, opts ...Option) *Dispatcher {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	d := &Dispatcher{
		logger:    logger,
		transport: transport,
		interp:    interpreter,
		session:   session,
		baseURL:   strings.TrimSuffix(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// SendMessage accepts one user message. The user entry is appended to the
// ledger synchronously, before any transport attempt, so it stays visible
// even if everything after it fails.
func (d *Dispatcher) SendMessage(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}
	if _, ok := d.interp.TryBeginTurn(text); !ok {
		return ErrBusy
	}

	sessionID, err := d.session()
	if err != nil {
		d.logger.Printf("session id unavailable err=%v", err)
		d.interp.FailTurn(FallbackErrorText)
		return fmt.Errorf("resolve session id: %w", err)
	}

	if d.transport.Connected() && d.transport.Send(text, sessionID) {
		// Progress arrives through the event interpreter.
		return nil
	}

	d.fallback(ctx, text, sessionID)
	return nil
}

// fallback issues the single request/response call. Failure is surfaced once
// as a system entry; transport errors are never raised to the caller.
func (d *Dispatcher) fallback(ctx context.Context, text, sessionID string) {
	body, err := json.Marshal(chatwire.SendFrame{Message: text, SessionID: sessionID})
	if err != nil {
		d.logger.Printf("marshal fallback request err=%v", err)
		d.interp.FailTurn(FallbackErrorText)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		d.logger.Printf("build fallback request err=%v", err)
		d.interp.FailTurn(FallbackErrorText)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		d.logger.Printf("fallback request failed err=%v", err)
		d.interp.FailTurn(FallbackErrorText)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		d.logger.Printf("fallback request status=%d", resp.StatusCode)
		d.interp.FailTurn(FallbackErrorText)
		return
	}

	var parsed chatResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&parsed); err != nil {
		d.logger.Printf("decode fallback response err=%v", err)
		d.interp.FailTurn(FallbackErrorText)
		return
	}

	d.interp.FinishFallback(parsed.Response)
}
