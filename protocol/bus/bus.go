// Package bus implements the BUS pattern: forward each message to every
// other pipe except the one it arrived on; no sender id is tracked beyond
// that.
//
// MAXTTL enforcement (left unspecified by the spec's source material,
// per §9): a one-byte hop count is prefixed to the header on first send
// and incremented by every RmPipe-free forward; once the count reaches
// MaxTTL the message is dropped rather than forwarded further, bounding
// a cyclic bus topology's message lifetime.
package bus

import (
	"github.com/joeycumines/scalesock/message"
	"github.com/joeycumines/scalesock/pipe"
	"github.com/joeycumines/scalesock/policy"
	"github.com/joeycumines/scalesock/protocol"
)

const defaultMaxTTL = 8

// Core implements protocol.Core for BUS.
type Core struct {
	dl policy.DistributionList

	maxTTL int
	inQ    []message.Message
}

// New constructs a BUS core with the default hop-count bound.
func New() *Core {
	return &Core{maxTTL: defaultMaxTTL}
}

func (c *Core) AddPipe(p *pipe.Pipe) error {
	c.dl.Add(p)
	return nil
}

func (c *Core) RmPipe(p *pipe.Pipe) {
	c.dl.Remove(p)
}

func (c *Core) In(p *pipe.Pipe) {
	for {
		msg, res, err := p.Recv()
		if err != nil || res != pipe.Recv {
			return
		}
		c.forward(msg, p)
	}
}

// forward delivers msg (received from origin) to the user and relays it
// to every other pipe, unless its hop count has reached maxTTL.
func (c *Core) forward(msg message.Message, origin *pipe.Pipe) {
	hop := 0
	if len(msg.Header) > 0 {
		hop = int(msg.Header[0])
	}
	c.inQ = append(c.inQ, msg.WithHeader(nil))

	if hop+1 >= c.maxTTL {
		msg.Release()
		return
	}
	hdr := []byte{byte(hop + 1)}
	for _, p := range c.dl.All() {
		if p == origin {
			continue
		}
		out := message.FromChunk(hdr, msg.BodyChunk())
		res, err := p.Send(out)
		if err != nil || res != pipe.Sent {
			out.Release()
		}
	}
	msg.Release()
}

func (c *Core) Out(p *pipe.Pipe) {}

// Send injects a locally-originated message onto the bus, delivered to
// every connected pipe.
func (c *Core) Send(msg message.Message) bool {
	hdr := []byte{0}
	sentAny := false
	for _, p := range c.dl.All() {
		out := message.FromChunk(hdr, msg.BodyChunk())
		res, err := p.Send(out)
		if err == nil && res == pipe.Sent {
			sentAny = true
		} else {
			out.Release()
		}
	}
	msg.Release()
	return sentAny || c.dl.Len() == 0
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
	f := protocol.CanSend
	if len(c.inQ) > 0 {
		f |= protocol.CanRecv
	}
	return f
}

// Recognized option names.
const OptMaxTTL = "MAXTTL"

func (c *Core) SetOption(name string, value any) error {
	if name == OptMaxTTL {
		if n, ok := value.(int); ok {
			c.maxTTL = n
			return nil
		}
	}
	return &protocol.ErrUnknownOption{Name: name}
}

func (c *Core) GetOption(name string) (any, error) {
	if name == OptMaxTTL {
		return c.maxTTL, nil
	}
	return nil, &protocol.ErrUnknownOption{Name: name}
}

func (c *Core) Destroy() {}
