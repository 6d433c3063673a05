package rews

import (
	"fmt"
	"log/slog"
	"sync"
)

// core owns the current transport handle and drives the connection state
// machine: Connecting -> Open -> Closing -> Closed, with Closed cycling
// back to Connecting through scheduled retries until the user closes the
// client.
//
// The handle is exclusively owned and replaced wholesale on reconnect,
// never mutated in place. Transport notifications and timer callbacks
// arrive on their own goroutines, so every transition is serialized behind
// mu; user callbacks are always invoked with mu released so they may call
// Send, Status, or Close re-entrantly.
type core struct {
	endpoint  Endpoint
	dialer    Dialer
	sched     Scheduler
	logger    *slog.Logger
	handlers  *handlerSet
	reconnect *reconnectController // nil = reconnect disabled

	mu           sync.Mutex
	handle       Handle
	generation   uint64
	closing      bool // user-initiated close, one-way
	retryPending bool // at most one outstanding retry timer
}

// newCore opens the initial transport handle and installs the first
// adapter generation. A synchronous open failure here is the only
// construction error ever surfaced to the caller; failures on later
// reconnect attempts are absorbed by the retry loop.
func newCore(
	endpoint Endpoint,
	dialer Dialer,
	sched Scheduler,
	handlers *handlerSet,
	reconnect *reconnectController,
	logger *slog.Logger,
) (*core, error) {
	if logger == nil {
		logger = slog.Default()
	}

	c := &core{
		endpoint:  endpoint,
		dialer:    dialer,
		sched:     sched,
		logger:    logger,
		handlers:  handlers,
		reconnect: reconnect,
	}

	// Hold the lock across the dial so adapters that fire immediately
	// after Open returns serialize behind the initial handle assignment.
	c.mu.Lock()
	c.generation = 1
	handle, err := dialer.Open(endpoint, c.adaptersFor(1))
	if err != nil {
		c.mu.Unlock()
		return nil, fmt.Errorf("open %s: %w", endpoint.URL, err)
	}
	c.handle = handle
	c.mu.Unlock()

	return c, nil
}

// adaptersFor builds the four adapters bound to one handle generation.
// Each closes over the shared handler set and checks its generation at
// delivery time, so no notification from a replaced handle can reach the
// user callbacks.
func (c *core) adaptersFor(gen uint64) Callbacks {
	return Callbacks{
		Opened:  func() { c.handleOpened(gen) },
		Message: func(msg Message) { c.handleMessage(gen, msg) },
		Errored: func(err error) { c.handleError(gen, err) },
		Closed:  func(ev CloseEvent) { c.handleClosed(gen, ev) },
	}
}

// handleOpened resets the backoff state before invoking the user's open
// callback, so a callback that immediately triggers further client
// operations observes consistent reconnect state.
func (c *core) handleOpened(gen uint64) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	if c.reconnect != nil {
		c.reconnect.reset()
	}
	c.mu.Unlock()

	c.logger.Debug("connection open", "url", c.endpoint.URL, "generation", gen)
	c.handlers.emitOpen()
}

func (c *core) handleMessage(gen uint64, msg Message) {
	if c.stale(gen) {
		return
	}
	c.handlers.emitMessage(msg)
}

// handleError only forwards to the user callback. The transport follows
// every error with a closed notification, which carries the reconnect
// responsibility; scheduling here as well would double-schedule.
func (c *core) handleError(gen uint64, err error) {
	if c.stale(gen) {
		return
	}
	c.handlers.emitError(err)
}

// handleClosed schedules the retry before invoking the user's close
// callback, so reconnect scheduling cannot be bypassed by a panicking or
// blocking handler.
func (c *core) handleClosed(gen uint64, ev CloseEvent) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	if !c.closing && c.reconnect != nil && !c.retryPending {
		delay := c.reconnect.nextBackoff()
		c.retryPending = true
		c.sched.Schedule(delay, func() { c.retry(gen) })
		c.logger.Info("connection lost, retry scheduled",
			"url", c.endpoint.URL,
			"code", ev.Code,
			"delay", delay,
		)
	}
	c.mu.Unlock()

	c.handlers.emitClose(ev)
}

// retry runs when a scheduled retry timer fires. There is no timer
// cancellation: a retry made stale by a user close or by a newer handle
// generation detects that here and becomes a no-op.
func (c *core) retry(gen uint64) {
	c.mu.Lock()
	c.retryPending = false
	if c.closing || gen != c.generation {
		c.mu.Unlock()
		return
	}

	next := c.generation + 1
	handle, err := c.dialer.Open(c.endpoint, c.adaptersFor(next))
	if err != nil {
		// Synchronous construction failures are environmental and
		// transient; absorb and reschedule without leaving Closed.
		delay := c.reconnect.nextBackoff()
		c.retryPending = true
		c.sched.Schedule(delay, func() { c.retry(gen) })
		c.mu.Unlock()

		c.logger.Warn("reconnect attempt failed",
			"url", c.endpoint.URL,
			"error", err,
			"next_delay", delay,
		)
		return
	}

	c.generation = next
	c.handle = handle
	c.mu.Unlock()

	c.logger.Info("reconnecting", "url", c.endpoint.URL, "generation", next)
}

// send delegates to the current handle, querying its live state rather
// than any cached status to avoid racing a just-replaced handle.
func (c *core) send(msg Message) error {
	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		return ErrClosed
	}
	handle := c.handle
	c.mu.Unlock()

	if handle.Status() != StatusOpen {
		return ErrNotOpen
	}
	return handle.Send(msg)
}

// close sets the one-way user-close flag and requests shutdown of the
// live handle. Subsequent calls are no-ops. Once the flag is set, any
// pending retry timer fires inert, so no further handle is ever created.
func (c *core) close(code uint16, reason string) error {
	if err := validateClose(code, reason); err != nil {
		return err
	}

	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		return nil
	}
	c.closing = true
	handle := c.handle
	c.mu.Unlock()

	c.logger.Debug("closing connection", "url", c.endpoint.URL, "code", code)
	if err := handle.Close(code, reason); err != nil {
		return fmt.Errorf("close transport: %w", err)
	}
	return nil
}

// status returns the live state of the current handle.
func (c *core) status() Status {
	c.mu.Lock()
	handle := c.handle
	c.mu.Unlock()
	return handle.Status()
}

func (c *core) subprotocol() string {
	c.mu.Lock()
	handle := c.handle
	c.mu.Unlock()
	return handle.Subprotocol()
}

func (c *core) isReconnecting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reconnect != nil && c.reconnect.isActive()
}

func (c *core) stale(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return gen != c.generation
}
