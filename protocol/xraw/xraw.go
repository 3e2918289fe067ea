// Package xraw implements the ten "raw" X-variant patterns (XREQ, XREP,
// XPUB, XSUB, XPAIR, XSURVEYOR, XRESPONDENT, XBUS, XPULL, XPUSH): the
// protocol adds or strips no routing/metadata of its own, simply exposing
// whatever envelope the pipe carries to the user. This composes well with
// bridging code that wants to inspect or rewrite the envelope itself
// (e.g. a device relaying between two sockets).
//
// Every X-variant is the same shape — a send discipline (none, one of,
// or all-of the connected pipes) paired with a receive discipline (none,
// or fair-queued) — so rather than ten near-identical files this package
// builds each one from a shared Core parameterized by those two
// disciplines, matching the capability-set dispatch the spec's §9
// re-architecture note calls for instead of per-pattern inheritance.
package xraw

import (
	"github.com/joeycumines/scalesock/message"
	"github.com/joeycumines/scalesock/pipe"
	"github.com/joeycumines/scalesock/policy"
	"github.com/joeycumines/scalesock/protocol"
)

// SendMode selects how Send routes an outgoing message.
type SendMode int

const (
	// SendNone means the pattern never sends (e.g. XPULL).
	SendNone SendMode = iota
	// SendLoadBalance round-robins across writable pipes (XREQ, XPUSH).
	SendLoadBalance
	// SendBroadcast fans out to every writable pipe (XPUB, XSURVEYOR, XBUS).
	SendBroadcast
	// SendExclusive requires exactly one peer pipe (XPAIR).
	SendExclusive
)

// RecvMode selects how Recv drains incoming messages.
type RecvMode int

const (
	// RecvNone means the pattern never receives (e.g. XPUSH).
	RecvNone RecvMode = iota
	// RecvFairQueue round-robins across readable pipes (XREP, XSUB, XPULL,
	// XRESPONDENT, XBUS).
	RecvFairQueue
	// RecvExclusive receives only from the single peer pipe (XPAIR).
	RecvExclusive
)

// Core is the shared implementation behind every X-variant constructor
// below. The envelope (Header) is passed through unmodified in both
// directions.
type Core struct {
	sendMode SendMode
	recvMode RecvMode

	lb   policy.LoadBalancer
	fq   policy.FairQueue
	dl   policy.DistributionList
	excl policy.Exclusive

	inQ []message.Message
}

func newCore(sendMode SendMode, recvMode RecvMode) *Core {
	return &Core{sendMode: sendMode, recvMode: recvMode}
}

// NewXPair constructs XPAIR: exactly one peer, envelope passed through.
func NewXPair() *Core { return newCore(SendExclusive, RecvExclusive) }

// NewXPush constructs XPUSH: load-balanced send, never receives.
func NewXPush() *Core { return newCore(SendLoadBalance, RecvNone) }

// NewXPull constructs XPULL: fair-queued receive, never sends.
func NewXPull() *Core { return newCore(SendNone, RecvFairQueue) }

// NewXPub constructs XPUB: broadcast send; also fair-queues inbound
// subscription-control traffic so a proxy can observe it.
func NewXPub() *Core { return newCore(SendBroadcast, RecvFairQueue) }

// NewXSub constructs XSUB: fair-queued receive of every message (no
// local filtering — the raw variant leaves prefix matching to whatever
// owns the envelope); also allows sending raw subscription-control
// frames upstream.
func NewXSub() *Core { return newCore(SendLoadBalance, RecvFairQueue) }

// NewXReq constructs XREQ: load-balanced send, fair-queued receive, no
// request-id tagging.
func NewXReq() *Core { return newCore(SendLoadBalance, RecvFairQueue) }

// NewXRep constructs XREP: symmetric to XREQ.
func NewXRep() *Core { return newCore(SendLoadBalance, RecvFairQueue) }

// NewXSurveyor constructs XSURVEYOR: broadcast send, fair-queued receive,
// no survey-id tagging or deadline.
func NewXSurveyor() *Core { return newCore(SendBroadcast, RecvFairQueue) }

// NewXRespondent constructs XRESPONDENT: symmetric to XSURVEYOR.
func NewXRespondent() *Core { return newCore(SendLoadBalance, RecvFairQueue) }

// NewXBus constructs XBUS: broadcast send, fair-queued receive, no
// hop-count field.
func NewXBus() *Core { return newCore(SendBroadcast, RecvFairQueue) }

func (c *Core) AddPipe(p *pipe.Pipe) error {
	switch c.sendMode {
	case SendLoadBalance:
		c.lb.Add(p)
	case SendBroadcast:
		c.dl.Add(p)
	case SendExclusive:
		if !c.excl.Set(p) {
			return &protocol.ErrPipeRejected{Reason: "exclusive pattern already has a peer"}
		}
	}
	if c.recvMode == RecvFairQueue {
		c.fq.Add(p)
	}
	return nil
}

func (c *Core) RmPipe(p *pipe.Pipe) {
	switch c.sendMode {
	case SendLoadBalance:
		c.lb.Remove(p)
	case SendBroadcast:
		c.dl.Remove(p)
	case SendExclusive:
		c.excl.Clear(p)
	}
	if c.recvMode == RecvFairQueue {
		c.fq.Remove(p)
	}
}

func (c *Core) In(p *pipe.Pipe) {
	if c.recvMode == RecvNone {
		return
	}
	for {
		msg, res, err := p.Recv()
		if err != nil || res != pipe.Recv {
			return
		}
		c.inQ = append(c.inQ, msg)
	}
}

func (c *Core) Out(p *pipe.Pipe) {}

func (c *Core) Send(msg message.Message) bool {
	switch c.sendMode {
	case SendExclusive:
		p := c.excl.Get()
		if p == nil {
			msg.Release()
			return false
		}
		res, err := p.Send(msg)
		if err != nil || res != pipe.Sent {
			msg.Release()
			return false
		}
		return true
	case SendLoadBalance:
		for tried := 0; tried < c.lb.Len(); tried++ {
			p := c.lb.Pick()
			if p == nil {
				break
			}
			out := message.FromChunk(msg.Header, msg.BodyChunk())
			res, err := p.Send(out)
			if err == nil && res == pipe.Sent {
				msg.Release()
				return true
			}
			out.Release()
		}
		msg.Release()
		return false
	case SendBroadcast:
		sentAny := false
		for _, p := range c.dl.All() {
			out := message.FromChunk(msg.Header, msg.BodyChunk())
			res, err := p.Send(out)
			if err == nil && res == pipe.Sent {
				sentAny = true
			} else {
				out.Release()
			}
		}
		msg.Release()
		return sentAny || c.dl.Len() == 0
	default:
		msg.Release()
		return false
	}
}

func (c *Core) Recv() (message.Message, bool) {
	if len(c.inQ) == 0 {
		return message.Message{}, false
	}
	msg := c.inQ[0]
	c.inQ = c.inQ[1:]
	return msg, true
}

func (c *Core) Flags() protocol.Flags {
	var f protocol.Flags
	switch c.sendMode {
	case SendExclusive:
		if c.excl.Get() != nil {
			f |= protocol.CanSend
		}
	case SendLoadBalance:
		if c.lb.Len() > 0 {
			f |= protocol.CanSend
		}
	case SendBroadcast:
		f |= protocol.CanSend
	}
	if len(c.inQ) > 0 {
		f |= protocol.CanRecv
	}
	return f
}

func (c *Core) SetOption(name string, value any) error {
	return &protocol.ErrUnknownOption{Name: name}
}

func (c *Core) GetOption(name string) (any, error) {
	return nil, &protocol.ErrUnknownOption{Name: name}
}

func (c *Core) Destroy() {}
