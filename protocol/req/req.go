// Package req implements the REQ pattern: writes a synthetic header
// carrying a fresh 31-bit request id with the high bit set, load-balances
// the send to one pipe, starts a resend timer, and on a matching reply
// (high-bit-stripped id) cancels the timer. Only one request may be
// in-flight per socket; on timer expiry the request resends, possibly to
// a different pipe.
//
// Open question (spec §9): whether the resend timer resets when the
// chosen pipe disappears mid-flight. This implementation resets it
// immediately — RmPipe on the pipe a request is outstanding against
// triggers an immediate resend to another pipe rather than waiting out
// the remainder of REQ_RESEND_IVL, since continuing to wait on a peer
// that is already known gone only adds latency with no compensating
// benefit.
package req

import (
	"encoding/binary"
	"time"

	"github.com/joeycumines/scalesock/message"
	"github.com/joeycumines/scalesock/pipe"
	"github.com/joeycumines/scalesock/policy"
	"github.com/joeycumines/scalesock/protocol"
)

const highBit = uint32(1) << 31

// Core implements protocol.Core for REQ. Pipe selection is priority-
// ordered (SNDPRIO, via protocol.PriorityAware) with round-robin within
// each priority class.
type Core struct {
	lb       policy.PriorityList
	writable map[*pipe.Pipe]bool

	resendIvl time.Duration
	schedule  func(d time.Duration, fire func()) (cancel func())
	cancelFn  func()

	nextID     uint32
	inFlight   bool
	reqID      uint32
	lastPipe   *pipe.Pipe
	pendingMsg message.Message
	reply      message.Message
	hasReply   bool
}

// New constructs a REQ core. schedule is called to arrange a one-shot
// resend timer; it returns a cancel function. Sockets wire this to their
// worker's ScheduleTimer/CancelTimer.
func New(schedule func(d time.Duration, fire func()) (cancel func())) *Core {
	return &Core{resendIvl: 200 * time.Millisecond, schedule: schedule, writable: make(map[*pipe.Pipe]bool)}
}

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
	if c.inFlight && c.lastPipe == p {
		c.resend()
	}
}

func (c *Core) In(p *pipe.Pipe) {
	for {
		msg, res, err := p.Recv()
		if err != nil || res != pipe.Recv {
			return
		}
		c.handleReply(msg)
	}
}

func (c *Core) handleReply(msg message.Message) {
	if !c.inFlight || len(msg.Header) < 4 {
		msg.Release()
		return
	}
	id := binary.BigEndian.Uint32(msg.Header[:4]) &^ highBit
	if id != (c.reqID &^ highBit) {
		msg.Release() // stale reply for a superseded request
		return
	}
	c.inFlight = false
	if c.cancelFn != nil {
		c.cancelFn()
		c.cancelFn = nil
	}
	if c.hasReply {
		c.reply.Release()
	}
	c.reply = msg.WithHeader(nil)
	msg.Release()
	c.hasReply = true
	c.pendingMsg.Release()
	c.pendingMsg = message.Message{}
}

// Out marks p writable again after a prior full-queue Release.
func (c *Core) Out(p *pipe.Pipe) {
	c.writable[p] = true
}

func (c *Core) Send(msg message.Message) bool {
	if c.inFlight {
		msg.Release() // only one in-flight request per socket
		return false
	}
	c.nextID++
	c.reqID = highBit | c.nextID
	hdr := make([]byte, 4)
	binary.BigEndian.PutUint32(hdr, c.reqID)
	c.pendingMsg = msg.WithHeader(hdr)
	msg.Release()
	if !c.dispatch() {
		c.pendingMsg.Release()
		c.pendingMsg = message.Message{}
		return false
	}
	return true
}

// dispatch tries every registered pipe, highest priority first, until one
// accepts the pending request, arming the resend timer on success.
func (c *Core) dispatch() bool {
	for tried, n := 0, c.lb.Len(); tried < n; tried++ {
		p := c.lb.Pick()
		if p == nil {
			break
		}
		out := message.FromChunk(c.pendingMsg.Header, c.pendingMsg.BodyChunk())
		res, err := p.Send(out)
		if err == nil && res == pipe.Sent {
			c.lastPipe = p
			c.inFlight = true
			if c.schedule != nil {
				c.cancelFn = c.schedule(c.resendIvl, c.resend)
			}
			return true
		}
		out.Release()
		c.writable[p] = false
	}
	return false
}

// resend is invoked by the timer (or immediately on RmPipe of the
// outstanding pipe) to retry the pending request on a possibly different
// pipe.
func (c *Core) resend() {
	if !c.inFlight {
		return
	}
	c.inFlight = false
	if !c.dispatch() {
		c.pendingMsg.Release()
		c.pendingMsg = message.Message{}
	}
}

func (c *Core) Recv() (message.Message, bool) {
	if !c.hasReply {
		return message.Message{}, false
	}
	c.hasReply = false
	return c.reply, true
}

// Flags reports CanSend only while no request is outstanding and at
// least one pipe is actually writable, not merely registered.
func (c *Core) Flags() protocol.Flags {
	var f protocol.Flags
	if c.hasReply {
		f |= protocol.CanRecv
	}
	if !c.inFlight {
		for p, w := range c.writable {
			if w && p != nil {
				f |= protocol.CanSend
				break
			}
		}
	}
	return f
}

// Recognized option names.
const OptResendIvl = "REQ_RESEND_IVL"

func (c *Core) SetOption(name string, value any) error {
	if name == OptResendIvl {
		if ms, ok := value.(int); ok {
			c.resendIvl = time.Duration(ms) * time.Millisecond
			return nil
		}
	}
	return &protocol.ErrUnknownOption{Name: name}
}

func (c *Core) GetOption(name string) (any, error) {
	if name == OptResendIvl {
		return int(c.resendIvl / time.Millisecond), nil
	}
	return nil, &protocol.ErrUnknownOption{Name: name}
}

func (c *Core) Destroy() {
	if c.cancelFn != nil {
		c.cancelFn()
	}
}
