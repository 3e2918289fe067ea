// Package pair implements the PAIR scalability pattern: exactly one peer
// pipe, messages sent and received verbatim with no added routing header.
// Any further AddPipe call is rejected.
//
// Grounded on the spec's §4.9 PAIR description and the Exclusive helper in
// package policy.
package pair

import (
	"github.com/joeycumines/scalesock/message"
	"github.com/joeycumines/scalesock/pipe"
	"github.com/joeycumines/scalesock/policy"
	"github.com/joeycumines/scalesock/protocol"
)

// Core implements protocol.Core for PAIR.
type Core struct {
	slot policy.Exclusive
	inQ  []message.Message
}

// New constructs an empty PAIR core.
func New() *Core { return &Core{} }

func (c *Core) AddPipe(p *pipe.Pipe) error {
	if !c.slot.Set(p) {
		return &protocol.ErrPipeRejected{Reason: "PAIR already has a peer"}
	}
	return nil
}

func (c *Core) RmPipe(p *pipe.Pipe) {
	c.slot.Clear(p)
}

func (c *Core) In(p *pipe.Pipe) {
	if c.slot.Get() != p {
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
	p := c.slot.Get()
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
	if c.slot.Get() != nil {
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
