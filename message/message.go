// Package message defines the two-part (header, body) message value used
// throughout the socket and protocol layers. The header is small and owned
// outright per message; the body is backed by a reference-counted chunk
// whose ownership may be shared between messages without copying.
package message

import "github.com/joeycumines/scalesock/chunk"

// Message is a header plus a body. Either may be empty. Messages carry no
// addressing of their own; protocols that need addressing (REQ/REP
// envelopes, BUS hop counts) push it into Header.
//
// The zero Message is valid and empty.
type Message struct {
	Header []byte
	body   *chunk.Chunk
}

// New creates a Message from header bytes and an owned copy of body. The
// body is copied into a fresh, exclusively-owned chunk.
func New(header, body []byte) Message {
	var c *chunk.Chunk
	if len(body) > 0 {
		b := make([]byte, len(body))
		copy(b, body)
		c = chunk.New(b, nil)
	}
	return Message{Header: header, body: c}
}

// FromChunk builds a Message whose body is backed by an existing chunk,
// taking one reference. Used by transports and protocols that want to
// forward a body without copying (e.g. PUB fanning the same body to many
// pipes, BUS forwarding a received message).
func FromChunk(header []byte, c *chunk.Chunk) Message {
	if c != nil {
		c = c.AddRef()
	}
	return Message{Header: header, body: c}
}

// Body returns the message body bytes. The returned slice must not be
// mutated; it may be shared with other messages.
func (m Message) Body() []byte {
	return m.body.Bytes()
}

// BodyChunk returns the underlying chunk, or nil for an empty body. Callers
// that retain it across the call that produced m must AddRef.
func (m Message) BodyChunk() *chunk.Chunk {
	return m.body
}

// Len returns len(m.Header) + len(m.Body()), the wire size the spec's
// MaxMsgSize option bounds.
func (m Message) Len() int {
	return len(m.Header) + m.body.Len()
}

// Copy returns a Message with its own exclusively-owned copies of header
// and body, safe to mutate or outlive m.
func (m Message) Copy() Message {
	h := append([]byte(nil), m.Header...)
	return New(h, m.Body())
}

// Move transfers ownership of m's body chunk to the returned Message
// without copying, and clears m's reference. Used by zero-copy send paths
// where the caller is handing off a caller-allocated chunk.
func (m *Message) Move() Message {
	out := Message{Header: m.Header, body: m.body}
	m.body = nil
	m.Header = nil
	return out
}

// Release drops the Message's reference to its body chunk. Every Message
// produced by New, FromChunk, Copy, or Move must eventually be released
// exactly once by its final owner.
func (m Message) Release() {
	m.body.Release()
}

// WithHeader returns a copy of m with the header replaced, sharing the same
// body chunk (taking a new reference), used by REQ/REP/SURVEYOR/RESPONDENT
// to prepend or strip routing envelopes without touching the body.
func (m Message) WithHeader(header []byte) Message {
	return FromChunk(header, m.body)
}
