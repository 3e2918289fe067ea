// Package pull implements the PULL pattern: fair-queue across all
// readable pipes so every readable pipe yields exactly one message before
// repeating, preventing a fast peer from starving slow ones.
package pull

import (
	"github.com/joeycumines/scalesock/message"
	"github.com/joeycumines/scalesock/pipe"
	"github.com/joeycumines/scalesock/policy"
	"github.com/joeycumines/scalesock/protocol"
)

// Core implements protocol.Core for PULL.
type Core struct {
	fq      policy.FairQueue
	readyAt map[*pipe.Pipe]bool
}

// New constructs an empty PULL core.
func New() *Core {
	return &Core{readyAt: make(map[*pipe.Pipe]bool)}
}

func (c *Core) AddPipe(p *pipe.Pipe) error {
	c.fq.Add(p)
	return nil
}

func (c *Core) RmPipe(p *pipe.Pipe) {
	c.fq.Remove(p)
	delete(c.readyAt, p)
}

func (c *Core) In(p *pipe.Pipe) {
	c.readyAt[p] = true
}

func (c *Core) Out(p *pipe.Pipe) {}

// Send always fails: PULL never sends.
func (c *Core) Send(msg message.Message) bool {
	msg.Release()
	return false
}

func (c *Core) Recv() (message.Message, bool) {
	for tried := 0; tried < c.fq.Len(); tried++ {
		p := c.fq.Pick()
		if p == nil {
			return message.Message{}, false
		}
		if !c.readyAt[p] {
			continue
		}
		msg, res, err := p.Recv()
		if err != nil {
			continue
		}
		if res != pipe.Recv {
			c.readyAt[p] = false
			continue
		}
		return msg, true
	}
	return message.Message{}, false
}

func (c *Core) Flags() protocol.Flags {
	for p, ready := range c.readyAt {
		if ready && p != nil {
			return protocol.CanRecv
		}
	}
	return 0
}

func (c *Core) SetOption(name string, value any) error {
	return &protocol.ErrUnknownOption{Name: name}
}

func (c *Core) GetOption(name string) (any, error) {
	return nil, &protocol.ErrUnknownOption{Name: name}
}

func (c *Core) Destroy() {}
