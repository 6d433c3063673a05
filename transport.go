package rews

// Endpoint is the immutable target of a connection: the URL and optional
// ordered subprotocol list, fixed for the lifetime of a Client and reused
// verbatim on every reconnect attempt.
type Endpoint struct {
	URL       string
	Protocols []string
}

// CloseEvent carries the details of a closed notification.
type CloseEvent struct {
	Code     uint16 // Close code from the peer, or CloseAbnormal
	Reason   string // Close reason, may be empty
	WasClean bool   // True if a close handshake completed
}

// Callbacks are the four notification channels installed on a Handle when
// it is opened. A Handle delivers notifications one at a time, in order,
// and must deliver none after reporting StatusClosed via a Closed call.
//
// All fields are optional; nil callbacks are simply not invoked.
type Callbacks struct {
	Opened  func()
	Message func(Message)
	Errored func(error)
	Closed  func(CloseEvent)
}

// Dialer constructs transport handles. Open returns immediately with a
// handle in StatusConnecting, or an error for failures detectable
// synchronously (a malformed URL, a blocked port). Connection establishment
// proceeds asynchronously: success is signalled through cb.Opened, failure
// through cb.Errored followed by cb.Closed.
//
// Open must not invoke any callback before returning.
type Dialer interface {
	Open(endpoint Endpoint, cb Callbacks) (Handle, error)
}

// Handle is a single underlying transport connection. Handles are replaced
// wholesale on reconnect, never reused.
type Handle interface {
	// Send writes one message. It fails with ErrNotOpen unless the
	// handle is in StatusOpen.
	Send(msg Message) error

	// Close requests connection shutdown with the given code and reason.
	// Using CloseNoStatus omits the code from the wire.
	Close(code uint16, reason string) error

	// Status returns the live connection state.
	Status() Status

	// Subprotocol returns the server-selected subprotocol, or "" if none
	// was negotiated or the connection is not yet open.
	Subprotocol() string
}
