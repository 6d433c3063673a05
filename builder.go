package rews

import "log/slog"

// Builder configures and builds a Client. Obtain one with Dial, chain the
// fluent setters, and finish with Build. Reconnecting is enabled by
// default with DefaultReconnectConfig; call NoReconnect to opt out.
type Builder struct {
	endpoint  Endpoint
	handlers  handlerSet
	reconnect *ReconnectConfig
	dialer    Dialer
	sched     Scheduler
	logger    *slog.Logger
}

// Dial begins building a Client that will connect to the given URL.
func Dial(url string) *Builder {
	cfg := DefaultReconnectConfig()
	return &Builder{
		endpoint:  Endpoint{URL: url},
		reconnect: &cfg,
	}
}

// Protocols sets the subprotocols to offer during the handshake, in
// preference order. See RFC 6455 section 1.9.
func (b *Builder) Protocols(protos ...string) *Builder {
	b.endpoint.Protocols = protos
	return b
}

// OnOpen sets the handler invoked each time a connection (initial or
// reconnected) completes its handshake.
func (b *Builder) OnOpen(fn func()) *Builder {
	b.handlers.onOpen = fn
	return b
}

// OnMessage sets the handler invoked once per received frame, with the
// frame classified as text or binary per its opcode.
func (b *Builder) OnMessage(fn func(Message)) *Builder {
	b.handlers.onMessage = fn
	return b
}

// OnError sets the handler invoked on connection errors. An error is
// always followed by a close notification.
func (b *Builder) OnError(fn func(error)) *Builder {
	b.handlers.onError = fn
	return b
}

// OnClose sets the handler invoked each time a connection closes, whether
// or not a reconnect will follow.
func (b *Builder) OnClose(fn func(CloseEvent)) *Builder {
	b.handlers.onClose = fn
	return b
}

// Reconnect overrides the default backoff parameters.
func (b *Builder) Reconnect(cfg ReconnectConfig) *Builder {
	b.reconnect = &cfg
	return b
}

// NoReconnect disables reconnecting entirely: the first close notification
// is terminal.
func (b *Builder) NoReconnect() *Builder {
	b.reconnect = nil
	return b
}

// WithDialer overrides the transport used to open connections. The
// default is a WebSocketDialer with default settings.
func (b *Builder) WithDialer(d Dialer) *Builder {
	b.dialer = d
	return b
}

// WithScheduler overrides the timer used to schedule retries.
func (b *Builder) WithScheduler(s Scheduler) *Builder {
	b.sched = s
	return b
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// Build opens the initial connection and returns the Client. An error is
// returned only for synchronous construction failures of the very first
// attempt; once a Client exists, connection failures are handled by the
// reconnect engine and observed through callbacks and Status.
func (b *Builder) Build() (*Client, error) {
	dialer := b.dialer
	if dialer == nil {
		dialer = NewWebSocketDialer()
	}
	sched := b.sched
	if sched == nil {
		sched = timerScheduler{}
	}

	var ctrl *reconnectController
	if b.reconnect != nil {
		ctrl = newReconnectController(*b.reconnect)
	}

	handlers := b.handlers
	core, err := newCore(b.endpoint, dialer, sched, &handlers, ctrl, b.logger)
	if err != nil {
		return nil, err
	}
	return &Client{core: core}, nil
}
