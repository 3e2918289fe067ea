// Package push implements the PUSH (pipeline push) pattern: load-balance
// sends across writable pipes with a round-robin ring. If no pipe is
// writable, CanSend is false and the socket base makes the caller wait.
package push

import (
	"github.com/joeycumines/scalesock/message"
	"github.com/joeycumines/scalesock/pipe"
	"github.com/joeycumines/scalesock/policy"
	"github.com/joeycumines/scalesock/protocol"
)

// Core implements protocol.Core for PUSH. Pipe selection is priority-
// ordered (SNDPRIO, via protocol.PriorityAware) with round-robin within
// each priority class.
type Core struct {
	lb       policy.PriorityList
	writable map[*pipe.Pipe]bool
}

// New constructs an empty PUSH core.
func New() *Core { return &Core{writable: make(map[*pipe.Pipe]bool)} }

func (c *Core) AddPipe(p *pipe.Pipe) error {
	c.lb.Add(p, 0)
	c.writable[p] = true
	return nil
}

// SetPipePriority implements protocol.PriorityAware.
func (c *Core) SetPipePriority(p *pipe.Pipe, prio int) {
	c.lb.Remove(p)
	c.lb.Add(p, prio)
}

func (c *Core) RmPipe(p *pipe.Pipe) {
	c.lb.Remove(p)
	delete(c.writable, p)
}

// In is a no-op: PUSH never receives.
func (c *Core) In(p *pipe.Pipe) {}

// Out marks p writable again after a prior full-queue Release.
func (c *Core) Out(p *pipe.Pipe) {
	c.writable[p] = true
}

func (c *Core) Send(msg message.Message) bool {
	for tried, n := 0, c.lb.Len(); tried < n; tried++ {
		p := c.lb.Pick()
		if p == nil {
			break
		}
		res, err := p.Send(msg)
		if err == nil && res == pipe.Sent {
			return true
		}
		c.writable[p] = false
	}
	msg.Release()
	return false
}

// Recv always fails: PUSH never receives.
func (c *Core) Recv() (message.Message, bool) {
	return message.Message{}, false
}

// Flags reports CanSend only while at least one pipe is actually
// writable, not merely registered — a pipe whose queue is currently full
// does not make the socket base report the caller as unblockable.
func (c *Core) Flags() protocol.Flags {
	for p, w := range c.writable {
		if w && p != nil {
			return protocol.CanSend
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
