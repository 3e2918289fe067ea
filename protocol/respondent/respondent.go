// Package respondent implements the RESPONDENT pattern: symmetric to
// SURVEYOR/REP — preserves the incoming survey id and route, attaching
// both to the reply.
package respondent

import (
	"github.com/joeycumines/scalesock/message"
	"github.com/joeycumines/scalesock/pipe"
	"github.com/joeycumines/scalesock/policy"
	"github.com/joeycumines/scalesock/protocol"
)

// Core implements protocol.Core for RESPONDENT.
type Core struct {
	fq policy.FairQueue

	inQ          []pendingSurvey
	lastAnswered *pendingSurvey
}

type pendingSurvey struct {
	hdr []byte
	msg message.Message
	src *pipe.Pipe
}

// New constructs an empty RESPONDENT core.
func New() *Core { return &Core{} }

func (c *Core) AddPipe(p *pipe.Pipe) error {
	c.fq.Add(p)
	return nil
}

func (c *Core) RmPipe(p *pipe.Pipe) {
	c.fq.Remove(p)
}

func (c *Core) In(p *pipe.Pipe) {
	for {
		msg, res, err := p.Recv()
		if err != nil || res != pipe.Recv {
			return
		}
		hdr := append([]byte(nil), msg.Header...)
		body := msg.WithHeader(nil)
		msg.Release()
		c.inQ = append(c.inQ, pendingSurvey{hdr: hdr, msg: body, src: p})
	}
}

func (c *Core) Out(p *pipe.Pipe) {}

// Send attaches the most recently received survey's id and routes the
// reply back to the originating pipe.
func (c *Core) Send(msg message.Message) bool {
	if c.lastAnswered == nil {
		msg.Release()
		return false
	}
	out := msg.WithHeader(c.lastAnswered.hdr)
	msg.Release()
	res, err := c.lastAnswered.src.Send(out)
	c.lastAnswered = nil
	if err != nil || res != pipe.Sent {
		out.Release()
		return false
	}
	return true
}

func (c *Core) Recv() (message.Message, bool) {
	if len(c.inQ) == 0 {
		return message.Message{}, false
	}
	req := c.inQ[0]
	c.inQ = c.inQ[1:]
	c.lastAnswered = &req
	return req.msg, true
}

func (c *Core) Flags() protocol.Flags {
	var f protocol.Flags
	if len(c.inQ) > 0 {
		f |= protocol.CanRecv
	}
	if c.lastAnswered != nil {
		f |= protocol.CanSend
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
