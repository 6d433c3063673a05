package rews

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Defaults for WebSocketDialer.
const (
	defaultHandshakeTimeout = 10 * time.Second
	defaultWriteTimeout     = 5 * time.Second
	defaultPingInterval     = 30 * time.Second
	defaultPongTimeout      = 60 * time.Second
	defaultCloseGrace       = 5 * time.Second
)

// WebSocketDialer is the production Dialer, backed by gorilla/websocket.
// Open validates the endpoint synchronously and performs the handshake in
// the background, reporting the outcome through the installed callbacks.
type WebSocketDialer struct {
	// HandshakeTimeout bounds the WebSocket handshake.
	HandshakeTimeout time.Duration

	// WriteTimeout is the per-write deadline for sends and control frames.
	WriteTimeout time.Duration

	// PingInterval is how often keepalive pings are sent.
	PingInterval time.Duration

	// PongTimeout is how long a connection may go without ping/pong
	// traffic from the peer before it is considered stale and dropped.
	PongTimeout time.Duration

	// CloseGrace is how long to wait for the peer to complete the close
	// handshake before dropping the connection.
	CloseGrace time.Duration

	// Header is sent with the handshake request (e.g. authorization).
	Header http.Header
}

// NewWebSocketDialer returns a dialer with default timeouts.
func NewWebSocketDialer() *WebSocketDialer {
	return &WebSocketDialer{
		HandshakeTimeout: defaultHandshakeTimeout,
		WriteTimeout:     defaultWriteTimeout,
		PingInterval:     defaultPingInterval,
		PongTimeout:      defaultPongTimeout,
		CloseGrace:       defaultCloseGrace,
	}
}

// Open validates the endpoint and returns a handle in StatusConnecting.
// The handshake runs asynchronously; a failure there is delivered as an
// error notification followed by a closed notification.
func (d *WebSocketDialer) Open(endpoint Endpoint, cb Callbacks) (Handle, error) {
	u, err := url.Parse(endpoint.URL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	h := &wsHandle{
		cfg:      d.withDefaults(),
		endpoint: endpoint,
		cb:       cb,
		status:   StatusConnecting,
		done:     make(chan struct{}),
	}
	go h.run()
	return h, nil
}

// withDefaults fills zero-valued timeouts.
func (d *WebSocketDialer) withDefaults() WebSocketDialer {
	cfg := *d
	if cfg.HandshakeTimeout == 0 {
		cfg.HandshakeTimeout = defaultHandshakeTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.PingInterval == 0 {
		cfg.PingInterval = defaultPingInterval
	}
	if cfg.PongTimeout == 0 {
		cfg.PongTimeout = defaultPongTimeout
	}
	if cfg.CloseGrace == 0 {
		cfg.CloseGrace = defaultCloseGrace
	}
	return cfg
}

// wsHandle is one gorilla-backed connection. All notification callbacks
// are invoked from a single goroutine (the dial goroutine, which becomes
// the read loop), preserving delivery order.
type wsHandle struct {
	cfg      WebSocketDialer
	endpoint Endpoint
	cb       Callbacks

	mu          sync.RWMutex
	conn        *websocket.Conn
	status      Status
	subprotocol string
	lastPong    time.Time

	// Write serialization
	writeMu sync.Mutex

	done     chan struct{}
	stopOnce sync.Once
}

// run performs the handshake and then reads until the connection ends.
func (h *wsHandle) run() {
	dialer := websocket.Dialer{
		HandshakeTimeout: h.cfg.HandshakeTimeout,
		Subprotocols:     h.endpoint.Protocols,
	}

	conn, resp, err := dialer.Dial(h.endpoint.URL, h.cfg.Header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		h.mu.Lock()
		h.status = StatusClosed
		h.mu.Unlock()
		h.stop()

		h.emitError(err)
		h.emitClosed(CloseEvent{Code: CloseAbnormal, WasClean: false})
		return
	}

	h.mu.Lock()
	if h.status == StatusClosing {
		// Close was requested while the dial was in flight.
		h.status = StatusClosed
		h.mu.Unlock()
		conn.Close()
		h.stop()
		h.emitClosed(CloseEvent{Code: CloseAbnormal, WasClean: false})
		return
	}
	h.conn = conn
	h.status = StatusOpen
	h.subprotocol = conn.Subprotocol()
	h.lastPong = time.Now()
	h.mu.Unlock()

	// Server sends ping, we respond with pong; either direction refreshes
	// the staleness clock.
	conn.SetPingHandler(func(data string) error {
		h.touchPong()
		return conn.WriteControl(
			websocket.PongMessage,
			[]byte(data),
			time.Now().Add(time.Second),
		)
	})
	conn.SetPongHandler(func(string) error {
		h.touchPong()
		return nil
	})

	go h.keepaliveLoop(conn)

	h.emitOpened()
	h.readLoop(conn)
}

// readLoop reads frames and delivers message notifications until the
// connection ends, then delivers the error/closed notifications.
func (h *wsHandle) readLoop(conn *websocket.Conn) {
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			ev := CloseEvent{Code: CloseAbnormal, WasClean: false}
			var closeErr *websocket.CloseError
			clean := errors.As(err, &closeErr)
			if clean {
				ev = CloseEvent{
					Code:     uint16(closeErr.Code),
					Reason:   closeErr.Text,
					WasClean: true,
				}
			}

			h.mu.Lock()
			wasClosing := h.status == StatusClosing
			h.status = StatusClosed
			h.mu.Unlock()
			h.stop()
			conn.Close()

			if wasClosing {
				ev.WasClean = true
			} else if !clean {
				h.emitError(err)
			}
			h.emitClosed(ev)
			return
		}

		switch mt {
		case websocket.TextMessage:
			h.emitMessage(TextMessage(string(data)))
		case websocket.BinaryMessage:
			h.emitMessage(BinaryMessage(data))
		}
	}
}

// keepaliveLoop pings the peer and drops connections that have gone
// stale. The forced close surfaces through the read loop.
func (h *wsHandle) keepaliveLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(h.cfg.WriteTimeout)
			conn.WriteControl(websocket.PingMessage, []byte("keepalive"), deadline)

			h.mu.RLock()
			last := h.lastPong
			h.mu.RUnlock()
			if time.Since(last) > h.cfg.PongTimeout {
				conn.Close()
				return
			}
		}
	}
}

// Send writes one frame with the configured write deadline.
func (h *wsHandle) Send(msg Message) error {
	h.mu.RLock()
	conn := h.conn
	status := h.status
	h.mu.RUnlock()

	if status != StatusOpen {
		return ErrNotOpen
	}

	mt := websocket.TextMessage
	if !msg.IsText() {
		mt = websocket.BinaryMessage
	}

	h.writeMu.Lock()
	defer h.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
	if err := conn.WriteMessage(mt, msg.Payload()); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

// Close starts the close handshake. The closed notification is delivered
// by the read loop once the peer echoes the close frame, or after the
// grace period if it never does. Closing with CloseNoStatus sends an
// empty close payload, omitting the code from the wire.
func (h *wsHandle) Close(code uint16, reason string) error {
	h.mu.Lock()
	if h.status == StatusClosing || h.status == StatusClosed {
		h.mu.Unlock()
		return nil
	}
	h.status = StatusClosing
	conn := h.conn
	h.mu.Unlock()

	if conn == nil {
		// Still dialing; run notices StatusClosing when the dial
		// completes and drops the connection.
		return nil
	}

	deadline := time.Now().Add(h.cfg.WriteTimeout)
	payload := websocket.FormatCloseMessage(int(code), reason)
	err := conn.WriteControl(websocket.CloseMessage, payload, deadline)

	// Drop the connection if the peer never completes the handshake.
	time.AfterFunc(h.cfg.CloseGrace, func() { conn.Close() })

	if err != nil {
		return fmt.Errorf("write close frame: %w", err)
	}
	return nil
}

// Status returns the live connection state.
func (h *wsHandle) Status() Status {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.status
}

// Subprotocol returns the server-selected subprotocol.
func (h *wsHandle) Subprotocol() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.subprotocol
}

func (h *wsHandle) touchPong() {
	h.mu.Lock()
	h.lastPong = time.Now()
	h.mu.Unlock()
}

func (h *wsHandle) stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *wsHandle) emitOpened() {
	if h.cb.Opened != nil {
		h.cb.Opened()
	}
}

func (h *wsHandle) emitMessage(msg Message) {
	if h.cb.Message != nil {
		h.cb.Message(msg)
	}
}

func (h *wsHandle) emitError(err error) {
	if h.cb.Errored != nil {
		h.cb.Errored(err)
	}
}

func (h *wsHandle) emitClosed(ev CloseEvent) {
	if h.cb.Closed != nil {
		h.cb.Closed(ev)
	}
}
