// Package history talks to the conversation collaborator endpoints: history
// hydration on startup and server-side conversation reset.
package history

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/HueCodes/shipagent/internal/ledger"
)

const maxResponseBytes = 1 << 20

type ChatMessage struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

type HistoryResponse struct {
	SessionID string        `json:"session_id"`
	Messages  []ChatMessage `json:"messages"`
	Total     int           `json:"total"`
}

type resetResponse struct {
	Status    string `json:"status"`
	SessionID string `json:"session_id"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *log.Logger
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func NewClient(baseURL string, logger *log.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	c := &Client{
		baseURL: strings.TrimSuffix(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Fetch retrieves up to limit prior turns for the session, converted into
// ledger entries. An empty slice means the caller should seed the welcome
// entry instead.
func (c *Client) Fetch(ctx context.Context, sessionID string, limit int) ([]ledger.Message, error) {
	query := url.Values{}
	query.Set("session_id", sessionID)
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	endpoint := c.baseURL + "/api/chat/history?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build history request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch history: unexpected status %d", resp.StatusCode)
	}

	var parsed HistoryResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode history response: %w", err)
	}

	out := make([]ledger.Message, 0, len(parsed.Messages))
	for _, msg := range parsed.Messages {
		entry := ledger.Message{
			Role:    roleFromWire(msg.Role),
			Content: msg.Content,
		}
		if msg.Timestamp != nil {
			entry.Timestamp = *msg.Timestamp
		}
		out = append(out, entry)
	}
	return out, nil
}

// Reset clears the server-side conversation for the session.
func (c *Client) Reset(ctx context.Context, sessionID string) error {
	endpoint := c.baseURL + "/api/reset?session_id=" + url.QueryEscape(sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(nil))
	if err != nil {
		return fmt.Errorf("build reset request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("reset conversation: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("reset conversation: unexpected status %d", resp.StatusCode)
	}

	var parsed resetResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&parsed); err != nil {
		return fmt.Errorf("decode reset response: %w", err)
	}
	if parsed.Status != "ok" {
		return fmt.Errorf("reset conversation: server reported status %q", parsed.Status)
	}
	return nil
}

func roleFromWire(role string) ledger.Role {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "user":
		return ledger.RoleUser
	case "assistant":
		return ledger.RoleAssistant
	default:
		return ledger.RoleSystem
	}
}
