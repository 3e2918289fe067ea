package scalesock

import (
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/joeycumines/scalesock/corectx"
	"github.com/joeycumines/scalesock/message"
	"github.com/joeycumines/scalesock/socket"
)

// Stats is a point-in-time snapshot of a Socket's traffic counters. Not
// part of the library's invariants, just ambient observability every
// socket accumulates.
type Stats struct {
	MsgsSent        uint64
	MsgsReceived    uint64
	BytesSent       uint64
	BytesRecv       uint64
	PipeCount       int
	DroppedOversize uint64
}

// Socket is a handle-table-registered wrapper around a socket.Socket. It
// is what Bind/Connect/Send/Recv/Close operate on from user code; the
// integer returned by registering it with a corectx.Context is the
// "socket handle" the external interfaces describe.
type Socket struct {
	ctx    *corectx.Context
	inner  *socket.Socket
	proto  string
	handle int

	sent, recv           atomic.Uint64
	bytesSent, bytesRecv atomic.Uint64
	dropped              atomic.Uint64
}

func newSocket(ctx *corectx.Context, inner *socket.Socket, proto string) (*Socket, error) {
	s := &Socket{ctx: ctx, inner: inner, proto: proto}
	h, err := ctx.Register(s)
	if err != nil {
		inner.Close()
		return nil, err
	}
	s.handle = h
	_ = inner.SetOption(socket.OptSocketName, proto+"-"+uuid.NewString())
	return s, nil
}

// Handle returns the integer handle this Socket was registered under.
func (s *Socket) Handle() int { return s.handle }

// Protocol returns the scalability pattern name this Socket was
// constructed with (e.g. "PAIR", "REQ").
func (s *Socket) Protocol() string { return s.proto }

// Bind creates a listening endpoint at addr (inproc://name), returning
// its endpoint id.
func (s *Socket) Bind(addr string) (int, error) {
	a, err := parseAddress(addr)
	if err != nil {
		return 0, err
	}
	return s.inner.Bind(a.host)
}

// Connect creates a connecting endpoint to addr (inproc://name),
// returning its endpoint id. The connection is established asynchronously
// and retried with backoff if no matching Bind exists yet.
func (s *Socket) Connect(addr string) (int, error) {
	a, err := parseAddress(addr)
	if err != nil {
		return 0, err
	}
	return s.inner.Connect(a.host)
}

// Shutdown removes one endpoint previously returned by Bind/Connect.
func (s *Socket) Shutdown(endpointID int) error {
	return s.inner.Shutdown(endpointID)
}

// Send copies body into a new Message and hands it to the socket,
// blocking per SNDTIMEO. flags is accepted for interface parity with the
// copying-mode send described in the library's external interfaces; no
// flag values are currently recognized.
func (s *Socket) Send(body []byte, flags int) error {
	msg := message.New(nil, body)
	if err := s.inner.Send(msg); err != nil {
		if err == socket.ErrMsgSize {
			s.dropped.Add(1)
		}
		return err
	}
	s.sent.Add(1)
	s.bytesSent.Add(uint64(len(body)))
	return nil
}

// SendMessage hands a caller-constructed, zero-copy Message to the
// socket, taking ownership of it (the "take ownership" flag the library's
// design notes describe is conveyed by using this method instead of
// Send, rather than a pointer convention or flag argument).
func (s *Socket) SendMessage(msg message.Message) error {
	n := msg.Len()
	if err := s.inner.Send(msg); err != nil {
		if err == socket.ErrMsgSize {
			s.dropped.Add(1)
		}
		return err
	}
	s.sent.Add(1)
	s.bytesSent.Add(uint64(n))
	return nil
}

// Recv blocks per RCVTIMEO and returns the next message's body.
func (s *Socket) Recv() ([]byte, error) {
	msg, err := s.RecvMessage()
	if err != nil {
		return nil, err
	}
	body := append([]byte(nil), msg.Body()...)
	msg.Release()
	return body, nil
}

// RecvMessage blocks per RCVTIMEO and returns the next message, still
// backed by a reference-counted chunk the caller must Release.
func (s *Socket) RecvMessage() (message.Message, error) {
	msg, err := s.inner.Recv()
	if err != nil {
		return message.Message{}, err
	}
	s.recv.Add(1)
	s.bytesRecv.Add(uint64(msg.Len()))
	return msg, nil
}

// SetOption sets a socket- or protocol-level option. name is one of the
// socket.Opt* constants or a protocol-specific name (MAXTTL,
// SURVEYOR_DEADLINE, REQ_RESEND_IVL, SUB_SUBSCRIBE, SUB_UNSUBSCRIBE).
func (s *Socket) SetOption(name string, value any) error {
	return s.inner.SetOption(name, value)
}

// GetOption mirrors SetOption's dispatch.
func (s *Socket) GetOption(name string) (any, error) {
	return s.inner.GetOption(name)
}

// Ready reports the protocol core's current send/recv readiness without
// blocking, the primitive Poll is built on.
func (s *Socket) Ready() (canSend, canRecv bool) {
	return s.inner.Ready()
}

// Stats returns a snapshot of this socket's traffic counters.
func (s *Socket) Stats() Stats {
	return Stats{
		MsgsSent:        s.sent.Load(),
		MsgsReceived:    s.recv.Load(),
		BytesSent:       s.bytesSent.Load(),
		BytesRecv:       s.bytesRecv.Load(),
		PipeCount:       s.inner.PipeCount(),
		DroppedOversize: s.dropped.Load(),
	}
}

// Close performs linger-then-teardown (waiting for buffered sends to
// reach their peers, up to LINGER) and releases this socket's handle. A
// subsequent Bind/Connect/Send/Recv on the same Socket value returns
// ErrTerm; operations against its now-freed handle (if looked up through
// the Context) return ErrBadF.
func (s *Socket) Close() error {
	err := s.inner.Close()
	s.ctx.Unregister(s.handle)
	return err
}
