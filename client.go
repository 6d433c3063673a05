package rews

// Client is the user-facing handle to a logical connection. It delegates
// to the connection core, which transparently swaps the underlying
// transport handle across reconnects.
type Client struct {
	core *core
}

// Send writes one message on the current connection. It returns ErrClosed
// after Close has been called and ErrNotOpen while the connection is not
// in StatusOpen; a send never triggers a reconnect.
func (c *Client) Send(msg Message) error {
	return c.core.send(msg)
}

// Status returns the live state of the current underlying connection.
func (c *Client) Status() Status {
	return c.core.status()
}

// Close shuts the connection down without a status code and permanently
// suppresses reconnecting. Calling Close more than once is a no-op.
func (c *Client) Close() error {
	return c.core.close(CloseNoStatus, "")
}

// CloseWith shuts the connection down with the given close code and
// reason, and permanently suppresses reconnecting. The code must be
// CloseNormal, CloseNoStatus, or in the 3000-4999 application range; the
// reason must fit in a close frame (123 bytes).
func (c *Client) CloseWith(code uint16, reason string) error {
	return c.core.close(code, reason)
}

// URL returns the endpoint URL this client connects to.
func (c *Client) URL() string {
	return c.core.endpoint.URL
}

// Protocols returns the subprotocols requested at build time.
func (c *Client) Protocols() []string {
	return c.core.endpoint.Protocols
}

// Subprotocol returns the subprotocol the server selected for the current
// connection, or "" if none was negotiated.
func (c *Client) Subprotocol() string {
	return c.core.subprotocol()
}

// IsReconnecting reports whether a reconnect sequence is currently in
// progress: a non-user-initiated close has occurred and no connection has
// been successfully re-established since.
func (c *Client) IsReconnecting() bool {
	return c.core.isReconnecting()
}
