package rews

import "errors"

// Errors
var (
	ErrNotOpen          = errors.New("connection not open")
	ErrClosed           = errors.New("client closed")
	ErrInvalidCloseCode = errors.New("invalid close code")
	ErrReasonTooLong    = errors.New("close reason exceeds 123 bytes")
)

// Close codes commonly used with Close and CloseWith. Any code valid per
// RFC 6455 section 7.4 is accepted.
const (
	// CloseNormal indicates a normal closure.
	CloseNormal uint16 = 1000

	// CloseGoingAway indicates the endpoint is going away.
	CloseGoingAway uint16 = 1001

	// CloseNoStatus is the "no status code" sentinel. Closing with this
	// code omits the code from the wire entirely; it is the default used
	// by Close.
	CloseNoStatus uint16 = 1005

	// CloseAbnormal is reported on close events when the connection was
	// dropped without a close frame. It is never sent.
	CloseAbnormal uint16 = 1006
)

// maxCloseReasonBytes is the RFC 6455 limit on close frame reason length.
const maxCloseReasonBytes = 123

// validateClose checks a user-supplied close code and reason against the
// rules the platform WebSocket close() call enforces: code must be 1000 or
// in the 3000-4999 application range (or the no-status sentinel), and the
// reason must fit in a close frame.
func validateClose(code uint16, reason string) error {
	if code != CloseNormal && code != CloseNoStatus && (code < 3000 || code > 4999) {
		return ErrInvalidCloseCode
	}
	if len(reason) > maxCloseReasonBytes {
		return ErrReasonTooLong
	}
	return nil
}
