// Package transport owns the duplex streaming connection to the agent
// backend: opening, closing, failure detection and capped exponential-backoff
// reconnection. At most one live connection and at most one pending
// reconnection timer exist at a time.
package transport

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/HueCodes/shipagent/internal/chatwire"
)

// ErrClosed is returned by Connect after Disconnect has been called.
var ErrClosed = errors.New("connection is closed")

const (
	// StreamPath is the well-known duplex endpoint.
	StreamPath = "/api/chat/stream"

	maxReconnectAttempts = 5
	baseReconnectDelay   = time.Second

	handshakeTimeout = 10 * time.Second
	writeTimeout     = 10 * time.Second
)

// StreamURL derives the websocket endpoint from the server base URL,
// upgrading the scheme to its streaming equivalent (http->ws, https->wss).
func StreamURL(base string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch parsed.Scheme {
	case "http", "ws":
		parsed.Scheme = "ws"
	case "https", "wss":
		parsed.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("server url %q missing host", base)
	}
	parsed.Path = strings.TrimSuffix(parsed.Path, "/") + StreamPath
	return parsed.String(), nil
}

// Conn maintains the streaming connection. Inbound frames are decoded and
// handed to the event callback in arrival order; connect/disconnect
// transitions go to the state callback.
type Conn struct {
	url     string
	logger  *log.Logger
	onEvent func(chatwire.Event)
	onState func(connected bool)

	mu             sync.Mutex
	writeMu        sync.Mutex
	conn           *websocket.Conn
	closed         bool
	attempts       int
	reconnectTimer *time.Timer

	dial      func(url string) (*websocket.Conn, error)
	afterFunc func(time.Duration, func()) *time.Timer
}

func New(streamURL string, onEvent func(chatwire.Event), onState func(connected bool), logger *log.Logger) *Conn {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Conn{
		url:     streamURL,
		logger:  logger,
		onEvent: onEvent,
		onState: onState,
		dial: func(u string) (*websocket.Conn, error) {
			dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
			conn, _, err := dialer.Dial(u, nil)
			return conn, err
		},
		afterFunc: time.AfterFunc,
	}
}

// Connect opens the connection. No-op when already open, ErrClosed after
// Disconnect. On failure the next reconnection is scheduled, unless the
// attempt budget is exhausted.
func (c *Conn) Connect() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.conn != nil {
		c.mu.Unlock()
		return nil
	}
	c.cancelReconnectLocked()
	c.mu.Unlock()

	conn, err := c.dial(c.url)
	if err != nil {
		c.logger.Printf("stream connect failed url=%s err=%v", c.url, err)
		c.mu.Lock()
		c.scheduleReconnectLocked()
		c.mu.Unlock()
		c.reportState(false)
		return fmt.Errorf("dial stream: %w", err)
	}

	c.mu.Lock()
	if c.closed {
		// Disconnect won the race while the handshake was in flight; the
		// fresh connection must not be installed.
		c.mu.Unlock()
		_ = conn.Close()
		return ErrClosed
	}
	c.conn = conn
	c.attempts = 0
	c.mu.Unlock()

	go c.readLoop(conn)
	c.reportState(true)
	return nil
}

// Send transmits {message, session_id} over the open connection. It returns
// false, without error, when the connection is not open; the reply arrives
// later as inbound events, never as a return value.
func (c *Conn) Send(message, sessionID string) bool {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return false
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		c.logger.Printf("set write deadline err=%v", err)
		return false
	}
	if err := conn.WriteJSON(chatwire.SendFrame{Message: message, SessionID: sessionID}); err != nil {
		c.logger.Printf("stream send failed err=%v", err)
		return false
	}
	return true
}

// Disconnect cancels any pending reconnection, caps the attempt counter so no
// further automatic attempt fires, and closes the connection. This is the
// only way to permanently stop reconnection.
func (c *Conn) Disconnect() {
	c.mu.Lock()
	c.cancelReconnectLocked()
	c.closed = true
	c.attempts = maxReconnectAttempts
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		deadline := time.Now().Add(500 * time.Millisecond)
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = conn.Close()
		c.reportState(false)
	}
}

func (c *Conn) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

func (c *Conn) ReconnectAttempt() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// scheduleReconnectLocked arms the backoff timer for the next attempt. Delay
// for attempt n is 1s * 2^(n-1): 1s, 2s, 4s, 8s, 16s, no jitter. A newly
// scheduled timer always replaces a pending one.
func (c *Conn) scheduleReconnectLocked() {
	if c.closed || c.attempts >= maxReconnectAttempts {
		c.logger.Printf("reconnect attempts exhausted url=%s", c.url)
		return
	}
	c.attempts++
	delay := baseReconnectDelay << (c.attempts - 1)
	c.cancelReconnectLocked()
	c.logger.Printf("scheduling reconnect attempt=%d delay=%s", c.attempts, delay)
	c.reconnectTimer = c.afterFunc(delay, func() {
		_ = c.Connect()
	})
}

func (c *Conn) cancelReconnectLocked() {
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
}

func (c *Conn) reportState(connected bool) {
	if c.onState != nil {
		c.onState(connected)
	}
}

func (c *Conn) readLoop(conn *websocket.Conn) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			owned := c.conn == conn
			if owned {
				c.conn = nil
				c.scheduleReconnectLocked()
			}
			c.mu.Unlock()

			if owned {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					c.logger.Printf("stream closed err=%v", err)
				}
				c.reportState(false)
			}
			return
		}

		event, err := chatwire.Decode(payload)
		if err != nil {
			// Malformed frames are dropped without terminating the
			// connection or the in-flight turn.
			c.logger.Printf("dropping malformed frame err=%v", err)
			continue
		}
		if c.onEvent != nil {
			c.onEvent(event)
		}
	}
}
