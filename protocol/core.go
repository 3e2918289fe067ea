// Package protocol defines the capability set every scalability-pattern
// core implements, shared by the concrete pair/push/pull/pub/sub/req/rep/
// surveyor/respondent/bus subpackages. The socket base (package socket)
// drives a Core purely through this interface; it never knows which
// pattern it is hosting.
//
// Grounded on the spec's §9 re-architecture note: base-class polymorphism
// among protocols is expressed here as a small interface rather than
// inheritance, dispatched via native Go interface satisfaction instead of
// a hand-rolled vtable struct.
package protocol

import (
	"github.com/joeycumines/scalesock/message"
	"github.com/joeycumines/scalesock/pipe"
)

// Flags reports what operations are currently meaningful on a Core,
// recomputed by the core itself whenever pipe state changes.
type Flags int

const (
	// CanSend is set when Send would not immediately need to wait.
	CanSend Flags = 1 << iota
	// CanRecv is set when Recv would not immediately need to wait.
	CanRecv
)

// Core is the capability set common to every scalability pattern.
type Core interface {
	// AddPipe registers a newly-activated pipe with the core. Returns an
	// error if the pattern rejects additional pipes (e.g. PAIR with one
	// already set).
	AddPipe(p *pipe.Pipe) error
	// RmPipe deregisters a pipe, e.g. after the transport tears it down.
	RmPipe(p *pipe.Pipe)
	// In is called by the socket base when p reports it became readable.
	In(p *pipe.Pipe)
	// Out is called by the socket base when p reports it became writable.
	Out(p *pipe.Pipe)
	// Send attempts to hand msg to the pattern's send discipline. Returns
	// false if the pattern is not currently able to accept a send (the
	// socket base makes the blocking caller wait for CanSend).
	Send(msg message.Message) bool
	// Recv attempts to receive the next message per the pattern's receive
	// discipline. Returns false if none is currently available.
	Recv() (message.Message, bool)
	// Flags reports the pattern's current readiness.
	Flags() Flags
	// SetOption/GetOption dispatch pattern-specific options (e.g.
	// SUB_SUBSCRIBE, REQ_RESEND_IVL); unrecognized names return an error.
	SetOption(name string, value any) error
	GetOption(name string) (any, error)
	// Destroy tears down any pattern-internal state (timers, trie, etc).
	// Called once, after every pipe has been removed.
	Destroy()
}

// PriorityAware is an optional capability a Core implements when its
// write-side pipe selection honors SNDPRIO (PUSH, REQ). The socket base
// calls SetPipePriority immediately after a successful AddPipe, passing
// the socket's current SNDPRIO value; cores that don't implement this
// interface ignore SNDPRIO entirely.
type PriorityAware interface {
	SetPipePriority(p *pipe.Pipe, prio int)
}

// ErrUnknownOption is returned by SetOption/GetOption for a name the
// pattern does not recognize.
type ErrUnknownOption struct{ Name string }

func (e *ErrUnknownOption) Error() string {
	return "protocol: unknown option " + e.Name
}

// ErrPipeRejected is returned by AddPipe when the pattern's topology
// cannot accept another pipe (PAIR with a peer already set).
type ErrPipeRejected struct{ Reason string }

func (e *ErrPipeRejected) Error() string {
	return "protocol: pipe rejected: " + e.Reason
}
