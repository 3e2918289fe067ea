// Package scalesock is the public surface of the scalability-protocol
// messaging library: a socket handle table, address parsing for
// inproc://, and the Bind/Connect/Shutdown/Send/Recv/Poll/option
// operations described by the library's design. Concrete protocol
// behavior lives in the protocol subpackages; this package only wires a
// chosen protocol.Core to a worker, a pipe registry, and the socket base,
// and hands the result back as a handle-table-registered Socket.
package scalesock

import (
	"errors"
	"fmt"

	"github.com/joeycumines/scalesock/pipe"
	"github.com/joeycumines/scalesock/socket"
	"github.com/joeycumines/scalesock/transport/inproc"
)

// Sentinel errors surfaced at the public boundary, one per error kind
// named in the library's error handling design.
var (
	ErrAgain        = socket.ErrAgain
	ErrTimedOut     = socket.ErrTimedOut
	ErrIntr         = errors.New("scalesock: operation interrupted by close")
	ErrTerm         = socket.ErrTerm
	ErrBadF         = errors.New("scalesock: unknown handle")
	ErrInval        = errors.New("scalesock: malformed address, unknown option, or protocol/transport mismatch")
	ErrProto        = errors.New("scalesock: peer violated the protocol envelope")
	ErrAddrInUse    = inproc.ErrAddrInUse
	ErrAddrNotAvail = inproc.ErrAddrNotAvail
	ErrMsgSize      = socket.ErrMsgSize
)

// ProtoViolationError reports a specific protocol-envelope violation
// observed on pipe. It unwraps to ErrProto, so callers that only care
// about the error kind can still use errors.Is(err, scalesock.ErrProto).
type ProtoViolationError struct {
	Pipe   *pipe.Pipe
	Detail string
}

func (e *ProtoViolationError) Error() string {
	return fmt.Sprintf("scalesock: protocol violation: %s", e.Detail)
}

func (e *ProtoViolationError) Unwrap() error { return ErrProto }
