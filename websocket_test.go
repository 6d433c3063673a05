package rews

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// echoServer upgrades incoming connections and echoes every frame back.
func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, data); err != nil {
				return
			}
		}
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func waitFor[T any](t *testing.T, ch <-chan T, what string) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
		panic("unreachable")
	}
}

func TestWebSocket_EchoRoundTrip(t *testing.T) {
	server := echoServer(t)
	defer server.Close()

	opened := make(chan struct{}, 1)
	messages := make(chan Message, 10)
	closed := make(chan CloseEvent, 1)

	client, err := Dial(wsURL(server)).
		NoReconnect().
		OnOpen(func() { opened <- struct{}{} }).
		OnMessage(func(msg Message) { messages <- msg }).
		OnClose(func(ev CloseEvent) { closed <- ev }).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	waitFor(t, opened, "open notification")
	if got := client.Status(); got != StatusOpen {
		t.Fatalf("Status() = %v, want open", got)
	}

	if err := client.Send(TextMessage("ping")); err != nil {
		t.Fatalf("Send text failed: %v", err)
	}
	echo := waitFor(t, messages, "text echo")
	if !echo.IsText() || echo.Text() != "ping" {
		t.Errorf("echo = kind %v %q, want text %q", echo.Kind(), echo.Text(), "ping")
	}

	if err := client.Send(BinaryMessage([]byte{0xde, 0xad})); err != nil {
		t.Fatalf("Send binary failed: %v", err)
	}
	echo = waitFor(t, messages, "binary echo")
	if echo.IsText() || len(echo.Data()) != 2 {
		t.Errorf("echo = kind %v len %d, want binary len 2", echo.Kind(), len(echo.Data()))
	}

	if err := client.CloseWith(CloseNormal, "bye"); err != nil {
		t.Fatalf("CloseWith failed: %v", err)
	}
	ev := waitFor(t, closed, "close notification")
	if !ev.WasClean {
		t.Errorf("close event WasClean = false, want true")
	}
	if got := client.Status(); got != StatusClosed {
		t.Errorf("Status() after close = %v, want closed", got)
	}
}

func TestWebSocket_SubprotocolNegotiation(t *testing.T) {
	upgrader := websocket.Upgrader{
		CheckOrigin:  func(r *http.Request) bool { return true },
		Subprotocols: []string{"chat"},
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	opened := make(chan struct{}, 1)
	client, err := Dial(wsURL(server)).
		Protocols("chat", "superchat").
		NoReconnect().
		OnOpen(func() { opened <- struct{}{} }).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer client.Close()

	waitFor(t, opened, "open notification")
	if got := client.Subprotocol(); got != "chat" {
		t.Errorf("Subprotocol() = %q, want %q", got, "chat")
	}
}

func TestWebSocket_ServerDropReconnects(t *testing.T) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	var mu sync.Mutex
	connCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		mu.Lock()
		connCount++
		first := connCount == 1
		mu.Unlock()

		if first {
			// Drop without a close handshake.
			conn.Close()
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	opened := make(chan struct{}, 2)
	errored := make(chan error, 2)
	closed := make(chan CloseEvent, 2)
	sched := &fakeScheduler{}

	client, err := Dial(wsURL(server)).
		WithScheduler(sched).
		Reconnect(ReconnectConfig{
			InitialInterval:     50 * time.Millisecond,
			Multiplier:          2,
			RandomizationFactor: 0,
			MaxInterval:         time.Second,
		}).
		OnOpen(func() { opened <- struct{}{} }).
		OnError(func(err error) { errored <- err }).
		OnClose(func(ev CloseEvent) { closed <- ev }).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer client.Close()

	waitFor(t, opened, "first open")
	waitFor(t, errored, "drop error")
	ev := waitFor(t, closed, "drop close")
	if ev.WasClean {
		t.Error("close event WasClean = true for abnormal drop")
	}
	if ev.Code != CloseAbnormal {
		t.Errorf("close event code = %d, want %d", ev.Code, CloseAbnormal)
	}

	if got := sched.pendingCount(); got != 1 {
		t.Fatalf("pending retries = %d, want 1", got)
	}
	sched.fire(t)

	waitFor(t, opened, "reopen")
	if got := client.Status(); got != StatusOpen {
		t.Errorf("Status() after reconnect = %v, want open", got)
	}
	mu.Lock()
	if connCount != 2 {
		t.Errorf("server connections = %d, want 2", connCount)
	}
	mu.Unlock()
}

func TestWebSocket_DialFailureEmitsErrorThenClosed(t *testing.T) {
	// Grab an address that refuses connections.
	server := httptest.NewServer(http.NotFoundHandler())
	deadURL := wsURL(server)
	server.Close()

	var mu sync.Mutex
	var sequence []string
	done := make(chan struct{}, 1)

	client, err := Dial(deadURL).
		NoReconnect().
		OnError(func(error) {
			mu.Lock()
			sequence = append(sequence, "error")
			mu.Unlock()
		}).
		OnClose(func(CloseEvent) {
			mu.Lock()
			sequence = append(sequence, "closed")
			mu.Unlock()
			done <- struct{}{}
		}).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	waitFor(t, done, "close notification")
	mu.Lock()
	defer mu.Unlock()
	if len(sequence) != 2 || sequence[0] != "error" || sequence[1] != "closed" {
		t.Errorf("notification sequence = %v, want [error closed]", sequence)
	}
	if got := client.Status(); got != StatusClosed {
		t.Errorf("Status() = %v, want closed", got)
	}
}

func TestWebSocketDialer_RejectsBadEndpoints(t *testing.T) {
	dialer := NewWebSocketDialer()

	if _, err := dialer.Open(Endpoint{URL: "http://example.com"}, Callbacks{}); err == nil {
		t.Error("Open with http scheme succeeded, want error")
	}
	if _, err := dialer.Open(Endpoint{URL: "://bad"}, Callbacks{}); err == nil {
		t.Error("Open with malformed URL succeeded, want error")
	}
}
