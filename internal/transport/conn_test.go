package transport

import (
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/HueCodes/shipagent/internal/chatwire"
)

type fakeClock struct {
	delays []time.Duration
	fns    []func()
}

func (f *fakeClock) afterFunc(d time.Duration, fn func()) *time.Timer {
	f.delays = append(f.delays, d)
	f.fns = append(f.fns, fn)
	return time.NewTimer(time.Hour)
}

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestStreamURL(t *testing.T) {
	cases := []struct {
		base string
		want string
	}{
		{"http://localhost:8080", "ws://localhost:8080/api/chat/stream"},
		{"https://ship.example.com", "wss://ship.example.com/api/chat/stream"},
		{"https://ship.example.com/", "wss://ship.example.com/api/chat/stream"},
		{"ws://localhost:8080", "ws://localhost:8080/api/chat/stream"},
	}
	for _, tc := range cases {
		got, err := StreamURL(tc.base)
		if err != nil {
			t.Fatalf("StreamURL(%q): %v", tc.base, err)
		}
		if got != tc.want {
			t.Fatalf("StreamURL(%q) = %q, want %q", tc.base, got, tc.want)
		}
	}

	for _, bad := range []string{"ftp://x", "localhost:8080", ""} {
		if _, err := StreamURL(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestReconnectBackoffSequence(t *testing.T) {
	c := New("ws://127.0.0.1:1/api/chat/stream", nil, nil, discardLogger())
	c.dial = func(string) (*websocket.Conn, error) {
		return nil, errors.New("connection refused")
	}
	clock := &fakeClock{}
	c.afterFunc = clock.afterFunc

	if err := c.Connect(); err == nil {
		t.Fatal("expected connect failure")
	}

	// Fire every armed timer; each failed attempt arms the next one.
	for i := 0; i < len(clock.fns); i++ {
		clock.fns[i]()
	}

	want := []time.Duration{
		1000 * time.Millisecond,
		2000 * time.Millisecond,
		4000 * time.Millisecond,
		8000 * time.Millisecond,
		16000 * time.Millisecond,
	}
	if len(clock.delays) != len(want) {
		t.Fatalf("expected exactly %d scheduled attempts, got %d (%v)", len(want), len(clock.delays), clock.delays)
	}
	for i := range want {
		if clock.delays[i] != want[i] {
			t.Fatalf("attempt %d delay = %s, want %s", i+1, clock.delays[i], want[i])
		}
	}
	if c.ReconnectAttempt() != maxReconnectAttempts {
		t.Fatalf("attempt counter = %d, want %d", c.ReconnectAttempt(), maxReconnectAttempts)
	}
}

func TestDisconnectCancelsPendingReconnect(t *testing.T) {
	c := New("ws://127.0.0.1:1/api/chat/stream", nil, nil, discardLogger())
	c.dial = func(string) (*websocket.Conn, error) {
		return nil, errors.New("connection refused")
	}
	clock := &fakeClock{}
	c.afterFunc = clock.afterFunc

	_ = c.Connect()
	if len(clock.fns) != 1 {
		t.Fatalf("expected one armed timer, got %d", len(clock.fns))
	}

	c.Disconnect()
	if c.ReconnectAttempt() != maxReconnectAttempts {
		t.Fatal("disconnect must cap the attempt counter")
	}

	// Even if the armed timer were to fire late, a subsequent failure must
	// not arm another attempt.
	clock.fns[0]()
	if len(clock.fns) > 2 {
		t.Fatalf("reconnection kept going after disconnect: %v", clock.delays)
	}
}

func TestDialCompletingAfterDisconnectIsDiscarded(t *testing.T) {
	server := newStreamServer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	c := New(wsURL(server), nil, nil, discardLogger())
	realDial := c.dial
	dialStarted := make(chan struct{})
	release := make(chan struct{})
	c.dial = func(u string) (*websocket.Conn, error) {
		close(dialStarted)
		<-release
		return realDial(u)
	}

	done := make(chan error, 1)
	go func() { done <- c.Connect() }()

	// Disconnect lands while the handshake is still in flight.
	<-dialStarted
	c.Disconnect()
	close(release)

	if err := <-done; !errors.Is(err, ErrClosed) {
		t.Fatalf("late dial must report ErrClosed, got %v", err)
	}
	if c.Connected() {
		t.Fatal("late dial must not reinstall the connection")
	}
	if c.ReconnectAttempt() != maxReconnectAttempts {
		t.Fatalf("attempt counter = %d, want %d", c.ReconnectAttempt(), maxReconnectAttempts)
	}
	if err := c.Connect(); !errors.Is(err, ErrClosed) {
		t.Fatalf("connect after disconnect must report ErrClosed, got %v", err)
	}
}

func TestSendReturnsFalseWhenClosed(t *testing.T) {
	c := New("ws://127.0.0.1:1/api/chat/stream", nil, nil, discardLogger())
	if c.Send("hello", "session_x_1") {
		t.Fatal("send on a closed connection must return false")
	}
}

func newStreamServer(t *testing.T, handler func(*websocket.Conn)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + StreamPath
}

func TestConnectSendAndReceiveEvents(t *testing.T) {
	received := make(chan chatwire.SendFrame, 1)
	server := newStreamServer(t, func(conn *websocket.Conn) {
		var frame chatwire.SendFrame
		if err := conn.ReadJSON(&frame); err != nil {
			return
		}
		received <- frame

		// A malformed frame must be dropped without killing the stream.
		_ = conn.WriteMessage(websocket.TextMessage, []byte("garbage"))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"chunk","content":"Hi"}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"complete"}`))

		// Hold the connection open until the client disconnects.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	defer server.Close()

	events := make(chan chatwire.Event, 8)
	states := make(chan bool, 8)
	c := New(wsURL(server), func(ev chatwire.Event) { events <- ev }, func(up bool) { states <- up }, discardLogger())
	defer c.Disconnect()

	if err := c.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if up := <-states; !up {
		t.Fatal("expected connected=true transition")
	}
	if c.ReconnectAttempt() != 0 {
		t.Fatal("successful connect must reset the attempt counter")
	}
	if err := c.Connect(); err != nil {
		t.Fatalf("connect while open must be a no-op, got %v", err)
	}

	if !c.Send("rates to Chicago", "session_ab_1") {
		t.Fatal("send on open connection must return true")
	}

	select {
	case frame := <-received:
		if frame.Message != "rates to Chicago" || frame.SessionID != "session_ab_1" {
			t.Fatalf("unexpected outbound frame %+v", frame)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server never received the frame")
	}

	waitEvent := func() chatwire.Event {
		select {
		case ev := <-events:
			return ev
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for event")
			return nil
		}
	}

	if ev := waitEvent(); ev.Type() != chatwire.EventTypeChunk {
		t.Fatalf("expected chunk after dropped garbage frame, got %s", ev.Type())
	}
	if ev := waitEvent(); ev.Type() != chatwire.EventTypeComplete {
		t.Fatalf("expected complete, got %s", ev.Type())
	}
	if !c.Connected() {
		t.Fatal("malformed frame must not close the connection")
	}
}

func TestAbruptServerCloseSchedulesReconnect(t *testing.T) {
	server := newStreamServer(t, func(conn *websocket.Conn) {
		// Close immediately without a close handshake.
		_ = conn.UnderlyingConn().Close()
	})
	defer server.Close()

	states := make(chan bool, 4)
	c := New(wsURL(server), nil, func(up bool) { states <- up }, discardLogger())
	clock := &fakeClock{}
	c.afterFunc = clock.afterFunc
	defer c.Disconnect()

	if err := c.Connect(); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if up := <-states; !up {
		t.Fatal("expected connected=true")
	}

	select {
	case up := <-states:
		if up {
			t.Fatal("expected connected=false after abrupt close")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no disconnect transition reported")
	}

	if c.ReconnectAttempt() != 1 {
		t.Fatalf("expected one scheduled attempt, counter = %d", c.ReconnectAttempt())
	}
	if len(clock.delays) != 1 || clock.delays[0] != time.Second {
		t.Fatalf("expected a 1s reconnect timer, got %v", clock.delays)
	}
}
