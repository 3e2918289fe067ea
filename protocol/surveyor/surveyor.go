// Package surveyor implements the SURVEYOR pattern: like REQ but
// multi-reply. Send broadcasts (as PUB does) tagged with a survey id and
// a deadline; replies with a matching id are collected until the deadline
// elapses, after which further replies are discarded and Recv reports
// timeout.
package surveyor

import (
	"encoding/binary"
	"time"

	"github.com/joeycumines/scalesock/message"
	"github.com/joeycumines/scalesock/pipe"
	"github.com/joeycumines/scalesock/policy"
	"github.com/joeycumines/scalesock/protocol"
)

// Core implements protocol.Core for SURVEYOR.
type Core struct {
	dl policy.DistributionList

	deadline time.Duration
	schedule func(d time.Duration, fire func()) (cancel func())
	cancelFn func()

	surveyID  uint32
	surveying bool
	timedOut  bool
	replies   []message.Message
}

// New constructs a SURVEYOR core with the default 1s deadline.
func New(schedule func(d time.Duration, fire func()) (cancel func())) *Core {
	return &Core{deadline: time.Second, schedule: schedule}
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
		if !c.surveying || c.timedOut || len(msg.Header) < 4 {
			msg.Release()
			continue
		}
		if binary.BigEndian.Uint32(msg.Header[:4]) != c.surveyID {
			msg.Release()
			continue
		}
		c.replies = append(c.replies, msg.WithHeader(nil))
		msg.Release()
	}
}

func (c *Core) Out(p *pipe.Pipe) {}

// Send starts a new survey, cancelling any previous one's remaining
// collection window.
func (c *Core) Send(msg message.Message) bool {
	if c.cancelFn != nil {
		c.cancelFn()
		c.cancelFn = nil
	}
	for _, r := range c.replies {
		r.Release()
	}
	c.replies = nil

	c.surveyID++
	hdr := make([]byte, 4)
	binary.BigEndian.PutUint32(hdr, c.surveyID)

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

	c.surveying = true
	c.timedOut = false
	if c.schedule != nil {
		c.cancelFn = c.schedule(c.deadline, c.onDeadline)
	}
	return sentAny || c.dl.Len() == 0
}

func (c *Core) onDeadline() {
	c.timedOut = true
}

// Recv returns the next collected reply, or (zero, false) once the
// deadline has passed and all replies received before it have been
// drained — the caller's socket-level timeout translates that into
// TIMEDOUT.
func (c *Core) Recv() (message.Message, bool) {
	if len(c.replies) == 0 {
		return message.Message{}, false
	}
	msg := c.replies[0]
	c.replies = c.replies[1:]
	return msg, true
}

// TimedOut reports whether the current survey's deadline has elapsed.
func (c *Core) TimedOut() bool {
	return c.timedOut
}

func (c *Core) Flags() protocol.Flags {
	f := protocol.CanSend
	if len(c.replies) > 0 {
		f |= protocol.CanRecv
	}
	return f
}

// Recognized option names.
const OptDeadline = "SURVEYOR_DEADLINE"

func (c *Core) SetOption(name string, value any) error {
	if name == OptDeadline {
		if ms, ok := value.(int); ok {
			c.deadline = time.Duration(ms) * time.Millisecond
			return nil
		}
	}
	return &protocol.ErrUnknownOption{Name: name}
}

func (c *Core) GetOption(name string) (any, error) {
	if name == OptDeadline {
		return int(c.deadline / time.Millisecond), nil
	}
	return nil, &protocol.ErrUnknownOption{Name: name}
}

func (c *Core) Destroy() {
	if c.cancelFn != nil {
		c.cancelFn()
	}
}
