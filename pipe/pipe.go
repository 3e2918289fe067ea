// Package pipe implements the bidirectional duplex message channel between
// a socket's protocol core and one endpoint: per-direction half-states
// (INACTIVE/ACTIVE/FAILED) and the send/recv contract that reports SENT/RELEASE or RECV/RELEASE so the
// socket knows whether the pipe stays writable/readable.
//
// Grounded on the teacher's eventtarget.go ({type, target} dispatch) and
// ingress.go's explicit readable/writable bookkeeping, generalized to the
// pipe contract named in the spec.
package pipe

import (
	"errors"

	"github.com/joeycumines/scalesock/message"
)

// HalfState is the state of one direction of a Pipe.
type HalfState int

const (
	Inactive HalfState = iota
	Active
	Failed
)

// Result is the outcome of a Send or Recv call.
type Result int

const (
	// Sent means the message was handed off and the pipe stays writable.
	Sent Result = iota
	// Recv means a message was returned and the pipe stays readable.
	Recv
	// Release means the operation succeeded but the pipe is no longer
	// ready in that direction until the transport side re-activates it.
	Release
)

// Handler receives IN (pipe became readable) or OUT (pipe became
// writable) notifications. The socket never receives IN again for a pipe
// whose previous Recv returned Release until the transport reactivates
// it.
type Handler func()

var (
	// ErrNotActive is returned by Send/Recv when the relevant direction
	// is not Active.
	ErrNotActive = errors.New("pipe: direction not active")
)

// Transport is implemented by the concrete transport backing one Pipe
// (e.g. an inproc queue pair). It is where messages actually flow.
type Transport interface {
	// TransportSend enqueues msg for the peer. ok is false if msg was not
	// enqueued, which happens for two distinct reasons the caller must
	// tell apart: the outbound queue is merely full (closed is false —
	// transient backpressure, revivable once the peer drains it and
	// OnWritable fires) or the transport is dead (closed is true — the
	// pipe should fail permanently rather than wait for a writability
	// notification that will never come).
	TransportSend(msg message.Message) (ok, closed bool)
	// TransportRecv dequeues the next inbound message. ok is false if
	// none is available.
	TransportRecv() (msg message.Message, ok bool)
	// Close tears down the transport-level queues in both directions.
	Close()
}

// Pipe is a duplex ordered message channel. Messages on a single Pipe are
// delivered in FIFO order; there is no ordering guarantee across pipes.
type Pipe struct {
	transport Transport

	inState  HalfState
	outState HalfState

	inHdlr   Handler
	outHdlr  Handler
	failHdlr Handler

	added bool
	rmed  bool
}

// New wraps transport in a Pipe, both directions starting Inactive until
// Start is called.
func New(transport Transport) *Pipe {
	return &Pipe{transport: transport}
}

// SetInHandler registers the callback invoked when the pipe becomes
// readable.
func (p *Pipe) SetInHandler(fn Handler) { p.inHdlr = fn }

// SetOutHandler registers the callback invoked when the pipe becomes
// writable.
func (p *Pipe) SetOutHandler(fn Handler) { p.outHdlr = fn }

// SetFailHandler registers the callback invoked the moment either
// direction transitions to Failed on its own (currently only Send's
// closed-transport case does this autonomously — a merely full queue
// stays Active). The owning endpoint uses this to tear the pipe down
// and, for a connect-mode endpoint, schedule a reconnect, without the
// protocol core needing to know anything about endpoints.
func (p *Pipe) SetFailHandler(fn Handler) { p.failHdlr = fn }

// Start activates both directions. Idempotent only via the add-once
// invariant enforced by the owning endpoint; calling Start twice on the
// same Pipe is a programming error the caller must avoid.
func (p *Pipe) Start() {
	p.inState = Active
	p.outState = Active
}

// Stop deactivates both directions, leaving them Inactive rather than
// Failed and the transport open. The endpoint does not call it; it tears
// pipes down with Fail.
func (p *Pipe) Stop() {
	p.inState = Inactive
	p.outState = Inactive
}

// NotifyIn signals that the transport has data available; invokes the
// registered IN handler if the pipe is Active for reading.
func (p *Pipe) NotifyIn() {
	if p.inState == Active && p.inHdlr != nil {
		p.inHdlr()
	}
}

// NotifyOut signals that the transport has become writable again after a
// prior Release; invokes the registered OUT handler if the pipe is Active
// for writing.
func (p *Pipe) NotifyOut() {
	if p.outState == Active && p.outHdlr != nil {
		p.outHdlr()
	}
}

// Send hands msg to the transport. Returns Sent if the pipe remains
// writable. Returns Release in two distinct cases the caller cannot tell
// apart from the Result alone but which behave differently: the
// transport merely reports its queue full (the direction stays Active;
// the caller waits for NotifyOut before sending again) or the transport
// reports itself closed (this direction transitions to Failed and the
// registered fail handler runs, the same autonomous path a dead queue
// always takes — ResetOut can no longer revive it).
func (p *Pipe) Send(msg message.Message) (Result, error) {
	if p.outState != Active {
		return Release, ErrNotActive
	}
	ok, closed := p.transport.TransportSend(msg)
	if ok {
		return Sent, nil
	}
	if closed {
		p.outState = Failed
		if p.failHdlr != nil {
			p.failHdlr()
		}
	}
	return Release, nil
}

// Recv dequeues the next message. Returns Recv and the message if one was
// available, or Release with a zero Message if the queue is empty (the
// caller must wait for NotifyIn before calling again).
func (p *Pipe) Recv() (message.Message, Result, error) {
	if p.inState != Active {
		return message.Message{}, Release, ErrNotActive
	}
	msg, ok := p.transport.TransportRecv()
	if !ok {
		return message.Message{}, Release, nil
	}
	return msg, Recv, nil
}

// pendingReporter is an optional capability a Transport can implement to
// report how many sent messages are still buffered, unread by the peer.
// Only the inproc transport does; others report 0.
type pendingReporter interface {
	SendPending() int
}

// Pending reports how many messages sent on this Pipe are still
// buffered, unread by the peer. Used by a lingering Close to know when
// it is safe to tear the transport down without dropping anything.
func (p *Pipe) Pending() int {
	if r, ok := p.transport.(pendingReporter); ok {
		return r.SendPending()
	}
	return 0
}

// InState reports the current readable-direction half-state.
func (p *Pipe) InState() HalfState { return p.inState }

// OutState reports the current writable-direction half-state.
func (p *Pipe) OutState() HalfState { return p.outState }

// Fail marks both directions Failed, e.g. after a transport-level error.
func (p *Pipe) Fail() {
	p.inState = Failed
	p.outState = Failed
	p.transport.Close()
}

// ResetOut clears a Release back to Active, called when the transport
// reports the outbound side has drained.
func (p *Pipe) ResetOut() {
	if p.outState != Failed {
		p.outState = Active
	}
}

// ResetIn clears a Release back to Active, called when the transport
// reports a new inbound message arrived.
func (p *Pipe) ResetIn() {
	if p.inState != Failed {
		p.inState = Active
	}
}
