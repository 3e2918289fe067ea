// Package pub implements the PUB pattern: distribute each outgoing
// message to every currently-writable pipe, dropping it silently for
// pipes that are not.
package pub

import (
	"github.com/joeycumines/scalesock/message"
	"github.com/joeycumines/scalesock/pipe"
	"github.com/joeycumines/scalesock/policy"
	"github.com/joeycumines/scalesock/protocol"
)

// Core implements protocol.Core for PUB.
type Core struct {
	dl policy.DistributionList
}

// New constructs an empty PUB core.
func New() *Core { return &Core{} }

func (c *Core) AddPipe(p *pipe.Pipe) error {
	c.dl.Add(p)
	return nil
}

func (c *Core) RmPipe(p *pipe.Pipe) {
	c.dl.Remove(p)
}

// In is a no-op: PUB never receives.
func (c *Core) In(p *pipe.Pipe) {}

func (c *Core) Out(p *pipe.Pipe) {}

// Send fans msg out to every writable pipe, dropping it for any that are
// not. Every pipe gets its own Message value sharing the same underlying
// body chunk (via message.FromChunk) rather than a fresh copy, so a
// fan-out to N pipes costs one refcount bump per pipe, not N copies.
// Always reports success, matching the "broadcast, drop the rest"
// semantics — PUB has no notion of a failed send.
func (c *Core) Send(msg message.Message) bool {
	for _, p := range c.dl.All() {
		out := message.FromChunk(msg.Header, msg.BodyChunk())
		res, err := p.Send(out)
		if err != nil || res != pipe.Sent {
			out.Release()
		}
	}
	msg.Release()
	return true
}

// Recv always fails: PUB never receives.
func (c *Core) Recv() (message.Message, bool) {
	return message.Message{}, false
}

func (c *Core) Flags() protocol.Flags {
	return protocol.CanSend
}

func (c *Core) SetOption(name string, value any) error {
	return &protocol.ErrUnknownOption{Name: name}
}

func (c *Core) GetOption(name string) (any, error) {
	return nil, &protocol.ErrUnknownOption{Name: name}
}

func (c *Core) Destroy() {}
