package rews

// MessageKind identifies the framing of a Message.
type MessageKind int

const (
	// KindText is a UTF-8 text frame.
	KindText MessageKind = iota + 1

	// KindBinary is a binary frame.
	KindBinary
)

// Message is one complete application-level frame, in either direction.
// It is either text or binary, mirroring the WebSocket framing protocol
// (RFC 6455 section 1.2).
type Message struct {
	kind MessageKind
	text string
	data []byte
}

// TextMessage builds a text Message.
func TextMessage(s string) Message {
	return Message{kind: KindText, text: s}
}

// BinaryMessage builds a binary Message. The payload is not copied.
func BinaryMessage(p []byte) Message {
	return Message{kind: KindBinary, data: p}
}

// Kind returns the framing of the message.
func (m Message) Kind() MessageKind {
	return m.kind
}

// IsText reports whether the message is a text frame.
func (m Message) IsText() bool {
	return m.kind == KindText
}

// Text returns the payload of a text message. It returns "" for binary
// messages.
func (m Message) Text() string {
	return m.text
}

// Data returns the payload of a binary message. It returns nil for text
// messages.
func (m Message) Data() []byte {
	return m.data
}

// Payload returns the raw payload bytes regardless of kind.
func (m Message) Payload() []byte {
	if m.kind == KindText {
		return []byte(m.text)
	}
	return m.data
}
